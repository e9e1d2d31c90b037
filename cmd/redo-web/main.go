// Package main runs the Redo AI API as a local web server.
//
// Guests are identified by the X-Redo-User header (or their bearer token)
// and their credits are kept in memory unless a DynamoDB table is
// configured. The server's own Gemini key (GEMINI_API_KEY or the local
// credentials file) plays the shared key of the guest callable.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fpang/redo-ai/internal/api"
	"github.com/fpang/redo-ai/internal/auth"
	"github.com/fpang/redo-ai/internal/chat"
	"github.com/fpang/redo-ai/internal/composite"
	"github.com/fpang/redo-ai/internal/config"
	"github.com/fpang/redo-ai/internal/credits"
	"github.com/fpang/redo-ai/internal/lambdaboot"
	"github.com/fpang/redo-ai/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "redo-web",
	Short: "Local web server for the Redo AI API",
	Long: `Redo Web serves the Redo AI HTTP API on localhost: the guest generate
callable, credits, filter catalogs, composites, sharing and bundles.

Examples:
  redo-web
  redo-web --port 9090
  redo-web --starter-credits 10 --model gemini-2.5-flash-image`,
	RunE: runMain,
}

func init() {
	rootCmd.Flags().Int("port", 8080, "Port to listen on")
	rootCmd.Flags().StringP("model", "m", chat.DefaultImageModel, "Gemini image model to use")
	rootCmd.Flags().Int("starter-credits", 3, "Credits a new guest starts with")
	rootCmd.Flags().String("credits-table", "", "DynamoDB table for credits (in-memory when empty)")
	rootCmd.Flags().String("share-bucket", "", "S3 bucket for shared composites (sharing disabled when empty)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func bindFlags(v *viper.Viper, cmd *cobra.Command) {
	for key, flag := range map[string]string{
		"port":            "port",
		"image_model":     "model",
		"starter_credits": "starter-credits",
		"credits_table":   "credits-table",
		"share_bucket":    "share-bucket",
	} {
		_ = v.BindPFlag(key, cmd.Flags().Lookup(flag))
	}
}

func runMain(cmd *cobra.Command, args []string) error {
	initStart := time.Now()
	logging.Init()

	v, err := config.New()
	if err != nil {
		return err
	}
	bindFlags(v, cmd)
	v.SetDefault("local_auth", true)
	cfg, err := config.Parse(v)
	if err != nil {
		return err
	}

	apiKey, err := auth.GetAPIKey()
	if err != nil {
		return err
	}
	ctx := context.Background()
	client, err := chat.NewClient(ctx, apiKey)
	if err != nil {
		return fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if err := auth.ValidateAPIKey(ctx, client.Models); err != nil {
		return fmt.Errorf("invalid API key: %w", err)
	}
	log.Info().Msg("API key validated")

	opts := api.Options{
		Editor:             chat.NewImageEditor(client, cfg.ImageModel),
		Model:              cfg.ImageModel,
		Renderer:           composite.NewRenderer(composite.Options{Timeout: cfg.CompositeTimeout}),
		Cost:               cfg.CostPerGeneration,
		LocalAuth:          cfg.LocalAuth,
		OriginVerifySecret: cfg.OriginVerifySecret,
	}
	if cfg.CreditsTable != "" || cfg.ShareBucket != "" {
		clients := lambdaboot.InitAWS()
		opts.Sharer = lambdaboot.InitSharer(clients.Config, cfg.ShareBucket, cfg.ShareURLExpiry)
		if ledger := lambdaboot.InitDynamoOptional(clients.Config, cfg.CreditsTable, cfg.StarterCredits); ledger != nil {
			opts.Ledger = ledger
			opts.History = ledger
		}
	}
	if opts.Ledger == nil {
		opts.Ledger = credits.NewMemoryLedger(cfg.StarterCredits)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      api.NewServer(opts).Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 180 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info().Msg("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}()

	lambdaboot.StartupLog("redo-web", initStart).
		S3Bucket("share", cfg.ShareBucket).
		DynamoTable("credits", cfg.CreditsTable).
		Feature("localAuth", cfg.LocalAuth).
		Feature("share", cfg.ShareBucket != "").
		Config("imageModel", cfg.ImageModel).
		Config("port", fmt.Sprint(cfg.Port)).
		Log()
	fmt.Printf("\n  Redo AI API: http://localhost:%d/api/health\n\n", cfg.Port)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}
