package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/redo-ai/internal/auth"
	"github.com/fpang/redo-ai/internal/cli"
	"github.com/fpang/redo-ai/internal/composite"
	"github.com/fpang/redo-ai/internal/credits"
	"github.com/fpang/redo-ai/internal/filehandler"
	"github.com/fpang/redo-ai/internal/generate"
	"github.com/fpang/redo-ai/internal/session"
	"github.com/fpang/redo-ai/internal/share"
)

var (
	genFilters   []string
	genOut       string
	genToken     string
	genRoute     string
	genComposite bool
)

var generateCmd = &cobra.Command{
	Use:   "generate [photo]",
	Short: "Transform a photo with the selected filters",
	Long: `Generate sends the photo and the selected filters to the image model and
saves the result. Without a photo argument a file picker opens.

The route is chosen automatically: your own API key if one is configured,
otherwise the guest API when --token is given, otherwise the demo. The demo
runs on REDO_DEMO_KEY or the key in REDO_SSM_API_KEY_PARAM and its free uses
are counted in ~/.redo-ai/demo.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runGenerate,
}

func init() {
	f := generateCmd.Flags()
	f.StringSliceVarP(&genFilters, "filters", "f", nil, "Filter IDs (defaults when empty)")
	f.StringVarP(&genOut, "out", "o", "", "Where to save the generated image (default redo-ai.<ext>)")
	f.StringVar(&genToken, "token", os.Getenv("REDO_TOKEN"), "Guest ID token for the Redo AI API")
	f.StringVar(&genRoute, "route", "auto", "Route: auto, demo, guest or byok")
	f.BoolVar(&genComposite, "composite", false, "Also save a before/after composite")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	m, err := mode()
	if err != nil {
		return err
	}

	path := ""
	if len(args) == 1 {
		path = args[0]
	} else if path, err = cli.PickImage("Select a photo to transform"); err != nil {
		return err
	}
	if path, err = cli.ValidateImagePath(path); err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	ed, err := session.NewEditor(m)
	if err != nil {
		return err
	}
	if err := ed.Upload(filepath.Base(path), data); err != nil {
		return errors.New(ed.Message())
	}
	if len(genFilters) > 0 {
		if err := ed.Select(genFilters...); err != nil {
			return err
		}
	}

	route, err := selectRoute()
	if err != nil {
		return err
	}
	o, demo, err := newOrchestrator(ctx, route)
	if err != nil {
		return err
	}

	log.Info().
		Str("photo", path).
		Str("route", route.Name()).
		Strs("filters", ed.Selected()).
		Msg("Generating")
	start := time.Now()

	res, err := generateOn(ctx, ed, o, route, demo)
	if err != nil {
		var failure *generate.Failure
		if errors.As(err, &failure) {
			fmt.Fprintln(os.Stderr, ed.Message())
			if ed.Paywall() {
				fmt.Fprintln(os.Stderr, "Buy a credit pack in the Redo AI app to continue.")
			}
		}
		return err
	}

	out := genOut
	if out == "" {
		out = "redo-ai" + filehandler.ExtensionFor(res.GeneratedMIME)
	}
	if err := os.WriteFile(out, res.Generated, 0o644); err != nil {
		return fmt.Errorf("failed to save %s: %w", out, err)
	}
	fmt.Printf("Saved %s (%s) in %s\n", out, cli.FormatBytes(len(res.Generated)), cli.FormatDurationShort(time.Since(start)))
	if res.Credits != nil {
		fmt.Printf("Credits left: %d\n", *res.Credits)
	}

	if genComposite {
		r := composite.NewRenderer(composite.Options{Timeout: cfg.CompositeTimeout})
		art, err := r.Render(ctx, composite.FromBytes(res.Original), composite.FromBytes(res.Generated))
		if err != nil {
			return err
		}
		saved, err := share.SaveFile(filepath.Dir(out), art)
		if err != nil {
			return err
		}
		fmt.Printf("Saved %s (%dx%d)\n", saved, art.Width, art.Height)
	}
	return nil
}

func selectRoute() (generate.Route, error) {
	key, _ := auth.GetAPIKey()
	switch strings.ToLower(genRoute) {
	case "auto":
		return generate.Select(generate.SessionState{UserAPIKey: key, GuestToken: genToken}), nil
	case "demo":
		return generate.DemoRoute{}, nil
	case "guest":
		if genToken == "" {
			return nil, errors.New("--token is required for the guest route")
		}
		return generate.GuestRoute{Token: genToken}, nil
	case "byok":
		if key == "" {
			return nil, auth.ErrNoAPIKey
		}
		return generate.BYOKRoute{APIKey: key}, nil
	}
	return nil, fmt.Errorf("unknown route %q", genRoute)
}

// newOrchestrator wires the transport for route. Only the transport the
// route needs is built. The demo counter carries the uses left from
// earlier runs.
func newOrchestrator(ctx context.Context, route generate.Route) (*generate.Orchestrator, *credits.DemoCounter, error) {
	demo, err := loadDemoCounter(cfg.DemoUses)
	if err != nil {
		return nil, nil, err
	}
	var (
		t        generate.Transports
		balances credits.BalanceReader
	)
	switch route.(type) {
	case generate.DemoRoute:
		// An exhausted demo is refused by the gate before dispatch, so the
		// key is only resolved while uses remain.
		if demo.Available() {
			if t.Demo, err = demoTransport(ctx); err != nil {
				return nil, nil, err
			}
		}
	case generate.GuestRoute:
		if cfg.GuestURL == "" {
			return nil, nil, errors.New("--guest-url (or REDO_GUEST_URL) is required for the guest route")
		}
		guest := generate.NewGuestClient(cfg.GuestURL, nil)
		t.Guest = guest
		balances = guest
	case generate.BYOKRoute:
		t.BYOK = generate.NewKeyedTransport(generate.GeminiEditorFactory(cfg.ImageModel))
	}
	gate := credits.NewGate(demo, balances, cfg.CostPerGeneration)
	return generate.NewOrchestrator(t, gate), demo, nil
}

// generateOn runs one generation and records the demo use it spent.
func generateOn(ctx context.Context, ed *session.Editor, o *generate.Orchestrator, route generate.Route, demo *credits.DemoCounter) (*generate.Result, error) {
	res, err := ed.Generate(ctx, o, route)
	if err != nil {
		return nil, err
	}
	if _, ok := route.(generate.DemoRoute); ok {
		if err := saveDemoCounter(demo); err != nil {
			log.Warn().Err(err).Msg("Failed to record demo use")
		}
	}
	return res, nil
}
