package generate

import (
	"fmt"

	"github.com/fpang/redo-ai/internal/assets"
	"github.com/fpang/redo-ai/internal/filter"
)

// BuildPrompt renders the edit instructions for opts under the mode's
// framing. Each fragment becomes one bullet, verbatim, in the order given;
// callers pass catalog order (filter.Selection.Active, Catalog.Resolve).
func BuildPrompt(mode filter.Mode, opts []filter.Option) (string, error) {
	if len(opts) == 0 {
		return "", ErrNoFilters
	}
	fragments := make([]string, len(opts))
	for i, o := range opts {
		fragments[i] = o.PromptFragment
	}
	switch mode {
	case filter.ModeCity:
		return assets.RenderCityEditPrompt(fragments), nil
	case filter.ModeHome:
		return assets.RenderHomeEditPrompt(fragments), nil
	}
	return "", fmt.Errorf("unknown mode %q", mode)
}
