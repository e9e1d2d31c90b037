package main

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fpang/redo-ai/internal/auth"
	"github.com/fpang/redo-ai/internal/config"
	"github.com/fpang/redo-ai/internal/filter"
	"github.com/fpang/redo-ai/internal/generate"
	"github.com/fpang/redo-ai/internal/session"
)

// setupCLI isolates HOME and the key sources and loads the default config.
func setupCLI(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(auth.APIKeyEnv, "")
	t.Setenv(auth.DemoKeyEnv, "")

	c, err := config.Load()
	if err != nil {
		t.Fatal(err)
	}
	c.SSMAPIKeyParam = ""
	c.DemoUses = 3
	prevCfg, prevRoute, prevToken := cfg, genRoute, genToken
	cfg, genRoute, genToken = c, "auto", ""
	t.Cleanup(func() { cfg, genRoute, genToken = prevCfg, prevRoute, prevToken })
	return home
}

type countingTransport struct {
	calls int
}

func (f *countingTransport) Generate(_ context.Context, _ generate.Call) (generate.Output, error) {
	f.calls++
	return generate.Output{Image: []byte("generated"), MIMEType: "image/png"}, nil
}

func stubDemoTransport(t *testing.T) *countingTransport {
	t.Helper()
	fake := &countingTransport{}
	prev := demoTransport
	demoTransport = func(context.Context) (generate.Transport, error) { return fake, nil }
	t.Cleanup(func() { demoTransport = prev })
	return fake
}

func photo(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestAutoRouteWithoutPersonalKeyRunsOnDemoKey(t *testing.T) {
	setupCLI(t)
	t.Setenv(auth.DemoKeyEnv, "demo-key")

	route, err := selectRoute()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := route.(generate.DemoRoute); !ok {
		t.Fatalf("expected demo route, got %s", route.Name())
	}
	if _, _, err := newOrchestrator(context.Background(), route); err != nil {
		t.Errorf("expected demo orchestrator, got %v", err)
	}
	if key, err := loadDemoKey(context.Background()); err != nil || key != "demo-key" {
		t.Errorf("expected demo-key, got %q (%v)", key, err)
	}
}

func TestDemoKeyNeverFallsBackToPersonalKey(t *testing.T) {
	setupCLI(t)
	if _, err := auth.SaveAPIKey("personal-key"); err != nil {
		t.Fatal(err)
	}
	genRoute = "demo"

	route, err := selectRoute()
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := newOrchestrator(context.Background(), route); !errors.Is(err, auth.ErrNoDemoKey) {
		t.Errorf("expected ErrNoDemoKey, got %v", err)
	}
}

func TestDemoUsesPersistAcrossRuns(t *testing.T) {
	home := setupCLI(t)
	fake := stubDemoTransport(t)
	ctx := context.Background()

	run := func() error {
		o, demo, err := newOrchestrator(ctx, generate.DemoRoute{})
		if err != nil {
			return err
		}
		ed, err := session.NewEditor(filter.ModeCity)
		if err != nil {
			return err
		}
		if err := ed.Upload("street.png", photo(t)); err != nil {
			return err
		}
		_, err = generateOn(ctx, ed, o, generate.DemoRoute{}, demo)
		return err
	}

	for i := 1; i <= 3; i++ {
		if err := run(); err != nil {
			t.Fatalf("run %d: unexpected error: %v", i, err)
		}
	}

	err := run()
	var failure *generate.Failure
	if !errors.As(err, &failure) {
		t.Fatalf("expected a failure on the fourth run, got %v", err)
	}
	if failure.Message != generate.MsgDemoExhausted || failure.OpenPaywall {
		t.Errorf("expected demo exhausted without paywall, got %+v", failure)
	}
	if fake.calls != 3 {
		t.Errorf("expected 3 model calls, got %d", fake.calls)
	}

	path := filepath.Join(home, ".redo-ai", "demo")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(string(data)) != "0" {
		t.Errorf("expected 0 uses recorded, got %q", data)
	}
	fi, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if fi.Mode().Perm() != 0o600 {
		t.Errorf("expected owner-only demo state, got %04o", fi.Mode().Perm())
	}
}

func TestLoadDemoCounter(t *testing.T) {
	home := setupCLI(t)

	d, err := loadDemoCounter(3)
	if err != nil {
		t.Fatal(err)
	}
	if d.Remaining() != 3 {
		t.Fatalf("expected 3 fresh uses, got %d", d.Remaining())
	}

	path := filepath.Join(home, ".redo-ai", "demo")
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("7\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if d, err = loadDemoCounter(3); err != nil || d.Remaining() != 3 {
		t.Errorf("expected recorded uses capped at 3 (%v)", err)
	}

	if err := os.WriteFile(path, []byte("many"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := loadDemoCounter(3); err == nil {
		t.Error("expected error for corrupt demo state")
	}
}
