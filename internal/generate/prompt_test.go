package generate

import (
	"errors"
	"strings"
	"testing"

	"github.com/fpang/redo-ai/internal/filter"
)

func TestSelect(t *testing.T) {
	tests := []struct {
		name  string
		state SessionState
		want  Route
	}{
		{"anonymous", SessionState{}, DemoRoute{}},
		{"signed in", SessionState{GuestToken: "tok"}, GuestRoute{Token: "tok"}},
		{"own key", SessionState{UserAPIKey: "key"}, BYOKRoute{APIKey: "key"}},
		{"own key wins over session", SessionState{UserAPIKey: "key", GuestToken: "tok"}, BYOKRoute{APIKey: "key"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Select(tt.state); got != tt.want {
				t.Errorf("expected %#v, got %#v", tt.want, got)
			}
		})
	}
}

func TestBuildPrompt_BulletsInCatalogOrder(t *testing.T) {
	c := filter.MustLoad(filter.ModeCity)
	opts, err := c.Resolve([]string{"add_greenery", "remove_trash"})
	if err != nil {
		t.Fatal(err)
	}

	prompt, err := BuildPrompt(filter.ModeCity, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	trash, _ := c.Lookup("remove_trash")
	green, _ := c.Lookup("add_greenery")
	i := strings.Index(prompt, "- "+trash.PromptFragment)
	j := strings.Index(prompt, "- "+green.PromptFragment)
	if i < 0 || j < 0 {
		t.Fatalf("expected both fragments as bullets, got:\n%s", prompt)
	}
	if i > j {
		t.Error("expected catalog order, not request order")
	}
}

func TestBuildPrompt_ModeFraming(t *testing.T) {
	opt := filter.MustLoad(filter.ModeHome).Options()[0]
	home, err := BuildPrompt(filter.ModeHome, []filter.Option{opt})
	if err != nil {
		t.Fatal(err)
	}
	city, err := BuildPrompt(filter.ModeCity, []filter.Option{opt})
	if err != nil {
		t.Fatal(err)
	}
	if home == city {
		t.Error("expected different framing per mode")
	}
	if _, err := BuildPrompt("GARDEN", []filter.Option{opt}); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestBuildPrompt_Empty(t *testing.T) {
	if _, err := BuildPrompt(filter.ModeCity, nil); !errors.Is(err, ErrNoFilters) {
		t.Errorf("expected ErrNoFilters, got %v", err)
	}
}

// Distinct non-empty selections must never produce the same instructions.
func TestBuildPrompt_Injective(t *testing.T) {
	for _, mode := range []filter.Mode{filter.ModeCity, filter.ModeHome} {
		opts := filter.MustLoad(mode).Options()
		if len(opts) > 12 {
			opts = opts[:12]
		}
		seen := make(map[string]int, 1<<len(opts))
		for mask := 1; mask < 1<<len(opts); mask++ {
			var subset []filter.Option
			for i, o := range opts {
				if mask&(1<<i) != 0 {
					subset = append(subset, o)
				}
			}
			p, err := BuildPrompt(mode, subset)
			if err != nil {
				t.Fatal(err)
			}
			if other, dup := seen[p]; dup {
				t.Fatalf("%s: subsets %b and %b produce the same prompt", mode, other, mask)
			}
			seen[p] = mask
		}
	}
}
