package main

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"github.com/fpang/redo-ai/internal/composite"
	"github.com/fpang/redo-ai/internal/filehandler"
	"github.com/fpang/redo-ai/internal/filter"
	"github.com/fpang/redo-ai/internal/generate"
	"github.com/fpang/redo-ai/internal/share"
)

type listFiltersInput struct {
	Mode string `json:"mode" jsonschema:"city or home"`
}

type listFiltersOutput struct {
	Mode     filter.Mode     `json:"mode"`
	Filters  []filter.Option `json:"filters"`
	Defaults []string        `json:"defaults"`
}

type buildPromptInput struct {
	Mode    string   `json:"mode" jsonschema:"city or home"`
	Filters []string `json:"filters,omitempty" jsonschema:"filter IDs; the mode's defaults when empty"`
}

type buildPromptOutput struct {
	Prompt  string   `json:"prompt"`
	Filters []string `json:"filters"`
}

type renderCompositeInput struct {
	Original  string `json:"original" jsonschema:"path to the original photo"`
	Generated string `json:"generated" jsonschema:"path to the generated image"`
	Dir       string `json:"dir,omitempty" jsonschema:"directory to save into; the current directory when empty"`
}

type renderCompositeOutput struct {
	Path   string `json:"path"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

func registerTools(server *mcp.Server, renderer *composite.Renderer) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_filters",
		Description: "List the filters available for a city or home photo, in catalog order, with the default selection.",
	}, listFilters)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "build_prompt",
		Description: "Build the exact instructions the image model would receive for a mode and filter selection.",
	}, buildPrompt)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "render_composite",
		Description: "Render a labelled before/after JPEG from two image files and save it as redo-ai-before-after.jpg.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, in renderCompositeInput) (*mcp.CallToolResult, renderCompositeOutput, error) {
		return renderComposite(ctx, renderer, in)
	})
}

func listFilters(_ context.Context, _ *mcp.CallToolRequest, in listFiltersInput) (*mcp.CallToolResult, listFiltersOutput, error) {
	m, err := filter.ParseMode(in.Mode)
	if err != nil {
		return nil, listFiltersOutput{}, err
	}
	c, err := filter.Load(m)
	if err != nil {
		return nil, listFiltersOutput{}, err
	}
	return nil, listFiltersOutput{Mode: m, Filters: c.Options(), Defaults: c.Defaults()}, nil
}

func buildPrompt(_ context.Context, _ *mcp.CallToolRequest, in buildPromptInput) (*mcp.CallToolResult, buildPromptOutput, error) {
	m, err := filter.ParseMode(in.Mode)
	if err != nil {
		return nil, buildPromptOutput{}, err
	}
	c, err := filter.Load(m)
	if err != nil {
		return nil, buildPromptOutput{}, err
	}
	ids := in.Filters
	if len(ids) == 0 {
		ids = c.Defaults()
	}
	opts, err := c.Resolve(ids)
	if err != nil {
		return nil, buildPromptOutput{}, err
	}
	prompt, err := generate.BuildPrompt(m, opts)
	if err != nil {
		return nil, buildPromptOutput{}, err
	}
	out := buildPromptOutput{Prompt: prompt}
	for _, o := range opts {
		out.Filters = append(out.Filters, o.ID)
	}
	return nil, out, nil
}

func renderComposite(ctx context.Context, r *composite.Renderer, in renderCompositeInput) (*mcp.CallToolResult, renderCompositeOutput, error) {
	original, err := filehandler.ReadFile(in.Original)
	if err != nil {
		return nil, renderCompositeOutput{}, err
	}
	generated, err := filehandler.ReadFile(in.Generated)
	if err != nil {
		return nil, renderCompositeOutput{}, err
	}
	art, err := r.Render(ctx, composite.FromBytes(original.Data), composite.FromBytes(generated.Data))
	if err != nil {
		return nil, renderCompositeOutput{}, fmt.Errorf("render composite: %w", err)
	}
	dir := in.Dir
	if dir == "" {
		dir = "."
	}
	path, err := share.SaveFile(dir, art)
	if err != nil {
		return nil, renderCompositeOutput{}, err
	}
	log.Info().Str("path", path).Int("width", art.Width).Int("height", art.Height).Msg("Composite rendered via MCP")
	return nil, renderCompositeOutput{Path: path, Width: art.Width, Height: art.Height}, nil
}
