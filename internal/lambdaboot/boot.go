// Package lambdaboot provides the cold-start bootstrap shared by the Redo AI
// binaries that run against AWS.
//
// redo-lambda needs AWS config, S3 for shared composites, DynamoDB for the
// credit ledger, the shared Gemini key from SSM, and one startup log line.
// Each helper covers one of those so main's init is a short composition.
package lambdaboot

import (
	"context"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"

	"github.com/fpang/redo-ai/internal/auth"
	"github.com/fpang/redo-ai/internal/logging"
	"github.com/fpang/redo-ai/internal/share"
	"github.com/fpang/redo-ai/internal/store"
)

// AWSClients holds the core AWS SDK clients used at boot.
type AWSClients struct {
	Config aws.Config
	SSM    *ssm.Client
}

// InitAWS loads the default AWS config and returns it along with common clients.
func InitAWS() AWSClients {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load AWS config")
	}
	log.Debug().Str("region", cfg.Region).Msg("AWS config loaded")
	return AWSClients{
		Config: cfg,
		SSM:    ssm.NewFromConfig(cfg),
	}
}

// InitSharer returns an S3-backed sharer for bucket, or share.Unsupported
// (with a warning) when no bucket is configured.
func InitSharer(cfg aws.Config, bucket string, expiry time.Duration) share.Sharer {
	if bucket == "" {
		log.Warn().Msg("Share bucket not set, sharing disabled")
		return share.Unsupported{}
	}
	return share.NewSharer(s3.NewFromConfig(cfg), bucket, expiry)
}

// InitDynamo creates the credit store for table. Fatals if table is empty.
func InitDynamo(cfg aws.Config, table string, starter int) *store.DynamoStore {
	if table == "" {
		log.Fatal().Msg("Credits table is required (REDO_CREDITS_TABLE)")
	}
	return store.NewDynamoStore(dynamodb.NewFromConfig(cfg), table, starter)
}

// InitDynamoOptional creates the credit store if table is set. Returns nil
// (with a warning) if not configured.
func InitDynamoOptional(cfg aws.Config, table string, starter int) *store.DynamoStore {
	if table == "" {
		log.Warn().Msg("Credits table not set, guest generation disabled")
		return nil
	}
	return store.NewDynamoStore(dynamodb.NewFromConfig(cfg), table, starter)
}

// LoadGeminiKey resolves the shared Gemini key from GEMINI_API_KEY, then
// REDO_DEMO_KEY or the SSM parameter param, and exports it to the
// environment. Fatals on error.
func LoadGeminiKey(ssmClient *ssm.Client, param string) string {
	if key := os.Getenv(auth.APIKeyEnv); key != "" {
		return key
	}
	start := time.Now()
	var client auth.ParameterGetter
	if ssmClient != nil {
		client = ssmClient
	}
	key, err := auth.LoadDemoKey(context.Background(), client, param)
	if err != nil {
		log.Fatal().Err(err).Str("param", param).Msg("Failed to load Gemini API key")
	}
	os.Setenv(auth.APIKeyEnv, key)
	log.Debug().Str("param", param).Dur("elapsed", time.Since(start)).Msg("Gemini API key loaded")
	return key
}

// StartupLog is a convenience wrapper for the startup logger.
func StartupLog(name string, initStart time.Time) *logging.StartupLogger {
	return logging.NewStartupLogger(name).InitDuration(time.Since(initStart))
}
