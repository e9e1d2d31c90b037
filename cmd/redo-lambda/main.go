// Package main provides the Lambda entry point for the Redo AI API.
//
// It serves the same handler as redo-web behind API Gateway (HTTP API, JWT
// authorizer). The shared Gemini key comes from SSM Parameter Store, guest
// credits live in DynamoDB, and shared composites go to S3.
//
// Security:
//   - Origin-verify middleware blocks direct API Gateway access (CloudFront-only)
//   - Guest identity comes only from the JWT authorizer's sub claim
//   - Filters are resolved server-side; clients cannot send prompt text
package main

import (
	"context"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
	"github.com/rs/zerolog/log"

	"github.com/fpang/redo-ai/internal/api"
	"github.com/fpang/redo-ai/internal/chat"
	"github.com/fpang/redo-ai/internal/composite"
	"github.com/fpang/redo-ai/internal/config"
	"github.com/fpang/redo-ai/internal/lambdaboot"
	"github.com/fpang/redo-ai/internal/logging"
)

var handler http.Handler

func init() {
	initStart := time.Now()
	logging.Init()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	clients := lambdaboot.InitAWS()
	apiKey := lambdaboot.LoadGeminiKey(clients.SSM, cfg.SSMAPIKeyParam)

	client, err := chat.NewClient(context.Background(), apiKey)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Gemini client")
	}

	opts := api.Options{
		Editor:             chat.NewImageEditor(client, cfg.ImageModel),
		Model:              cfg.ImageModel,
		Renderer:           composite.NewRenderer(composite.Options{Timeout: cfg.CompositeTimeout}),
		Sharer:             lambdaboot.InitSharer(clients.Config, cfg.ShareBucket, cfg.ShareURLExpiry),
		Cost:               cfg.CostPerGeneration,
		OriginVerifySecret: cfg.OriginVerifySecret,
	}
	if cfg.OriginVerifySecret == "" {
		log.Warn().Msg("REDO_ORIGIN_VERIFY_SECRET not set, origin verification disabled")
	}
	if ledger := lambdaboot.InitDynamoOptional(clients.Config, cfg.CreditsTable, cfg.StarterCredits); ledger != nil {
		opts.Ledger = ledger
		opts.History = ledger
	}

	handler = api.NewServer(opts).Handler()

	lambdaboot.StartupLog("redo-lambda", initStart).
		CommitHash(commitHash).
		S3Bucket("share", cfg.ShareBucket).
		DynamoTable("credits", cfg.CreditsTable).
		SSMParam("geminiApiKey", cfg.SSMAPIKeyParam).
		Feature("share", cfg.ShareBucket != "").
		Feature("guest", opts.Ledger != nil).
		Feature("originVerify", cfg.OriginVerifySecret != "").
		Config("imageModel", cfg.ImageModel).
		Config("buildTime", buildTime).
		Log()
}

func main() {
	adapter := httpadapter.NewV2(handler)
	lambda.Start(adapter.ProxyWithContext)
}
