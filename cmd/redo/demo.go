package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fpang/redo-ai/internal/auth"
	"github.com/fpang/redo-ai/internal/credits"
	"github.com/fpang/redo-ai/internal/generate"
	"github.com/fpang/redo-ai/internal/lambdaboot"
)

// demoTransport builds the transport behind the demo route. Tests swap it.
var demoTransport = func(ctx context.Context) (generate.Transport, error) {
	key, err := loadDemoKey(ctx)
	if err != nil {
		return nil, err
	}
	editor, err := generate.GeminiEditorFactory(cfg.ImageModel)(ctx, key)
	if err != nil {
		return nil, err
	}
	return &generate.EditorTransport{Editor: editor}, nil
}

// loadDemoKey resolves the demo key from REDO_DEMO_KEY or the configured
// SSM parameter. The user's own key is never used for the demo.
func loadDemoKey(ctx context.Context) (string, error) {
	var client auth.ParameterGetter
	if os.Getenv(auth.DemoKeyEnv) == "" && cfg.SSMAPIKeyParam != "" {
		client = lambdaboot.InitAWS().SSM
	}
	return auth.LoadDemoKey(ctx, client, cfg.SSMAPIKeyParam)
}

// demoStatePath is ~/.redo-ai/demo, next to the credentials file.
func demoStatePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".redo-ai", "demo"), nil
}

// loadDemoCounter returns the demo uses left from earlier runs, or uses
// when nothing has been recorded yet.
func loadDemoCounter(uses int) (*credits.DemoCounter, error) {
	path, err := demoStatePath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return credits.NewDemoCounter(uses), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read demo state: %w", err)
	}
	left, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("demo state %s is corrupt: %w", path, err)
	}
	return credits.NewDemoCounter(min(left, uses)), nil
}

// saveDemoCounter records d's remaining uses with owner-only permissions.
func saveDemoCounter(d *credits.DemoCounter) error {
	path, err := demoStatePath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(strconv.Itoa(d.Remaining())+"\n"), 0o600); err != nil {
		return fmt.Errorf("failed to write demo state: %w", err)
	}
	return os.Chmod(path, 0o600)
}
