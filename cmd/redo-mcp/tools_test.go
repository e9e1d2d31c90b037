package main

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fpang/redo-ai/internal/composite"
	"github.com/fpang/redo-ai/internal/filter"
)

func TestListFilters(t *testing.T) {
	_, out, err := listFilters(context.Background(), nil, listFiltersInput{Mode: "home"})
	if err != nil {
		t.Fatal(err)
	}
	if out.Mode != filter.ModeHome || len(out.Filters) == 0 || len(out.Defaults) == 0 {
		t.Errorf("unexpected output %+v", out)
	}
	if _, _, err := listFilters(context.Background(), nil, listFiltersInput{Mode: "garden"}); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestBuildPrompt(t *testing.T) {
	_, out, err := buildPrompt(context.Background(), nil, buildPromptInput{Mode: "city", Filters: []string{"benches", "remove_trash"}})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(out.Filters, ",") != "remove_trash,benches" {
		t.Errorf("expected catalog order, got %v", out.Filters)
	}
	if out.Prompt == "" {
		t.Error("expected a prompt")
	}

	_, def, err := buildPrompt(context.Background(), nil, buildPromptInput{Mode: "city"})
	if err != nil {
		t.Fatal(err)
	}
	if len(def.Filters) != len(filter.MustLoad(filter.ModeCity).Defaults()) {
		t.Errorf("expected the defaults, got %v", def.Filters)
	}

	if _, _, err := buildPrompt(context.Background(), nil, buildPromptInput{Mode: "city", Filters: []string{"jetpacks"}}); err == nil {
		t.Error("expected error for unknown filter")
	}
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	img.Set(0, 0, color.Black)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestRenderComposite(t *testing.T) {
	dir := t.TempDir()
	before := filepath.Join(dir, "before.png")
	after := filepath.Join(dir, "after.png")
	writePNG(t, before, 60, 40)
	writePNG(t, after, 30, 30)

	_, out, err := renderComposite(context.Background(), composite.NewRenderer(composite.Options{}),
		renderCompositeInput{Original: before, Generated: after, Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	if out.Path != filepath.Join(dir, composite.Filename) {
		t.Errorf("unexpected path %s", out.Path)
	}
	if out.Height != 40 || out.Width != 2*60+composite.DividerWidth(40) {
		t.Errorf("unexpected size %dx%d", out.Width, out.Height)
	}
	if _, err := os.Stat(out.Path); err != nil {
		t.Errorf("composite not saved: %v", err)
	}
}
