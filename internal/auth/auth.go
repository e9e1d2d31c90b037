// Package auth resolves the Gemini API keys Redo AI runs with and the
// identity of the caller on guest requests.
package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"
)

const (
	// APIKeyEnv holds the user's own key, or the shared key of a local
	// server.
	APIKeyEnv = "GEMINI_API_KEY"
	// DemoKeyEnv holds the demo key. It is never read as a personal key.
	DemoKeyEnv = "REDO_DEMO_KEY"

	credentialDir  = ".redo-ai"
	credentialFile = "credentials"
)

// ErrNoAPIKey is returned when no key source is configured.
var ErrNoAPIKey = errors.New("API key not found. Set GEMINI_API_KEY or run `redo key set`")

// ErrNoDemoKey is returned when neither REDO_DEMO_KEY nor an SSM parameter
// is configured for the demo route.
var ErrNoDemoKey = errors.New("demo key not configured. Set REDO_DEMO_KEY or REDO_SSM_API_KEY_PARAM")

// GetAPIKey retrieves the Gemini API key from available sources.
// Priority order:
//  1. GEMINI_API_KEY environment variable
//  2. Owner-only file at ~/.redo-ai/credentials
func GetAPIKey() (string, error) {
	if key := os.Getenv(APIKeyEnv); key != "" {
		log.Debug().Msg("Using API key from environment variable")
		return key, nil
	}

	key, err := readCredentialFile()
	if err == nil && key != "" {
		log.Debug().Msg("Using API key from credentials file")
		return key, nil
	}

	log.Debug().Err(err).Msg("No API key available")
	return "", ErrNoAPIKey
}

// SaveAPIKey writes key to the credentials file with owner-only
// permissions and returns the file's path.
func SaveAPIKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.New("API key is empty")
	}
	path, err := getCredentialPath()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(key+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("failed to write credentials: %w", err)
	}
	// WriteFile keeps the mode of an existing file.
	if err := os.Chmod(path, 0o600); err != nil {
		return "", fmt.Errorf("failed to restrict credentials file: %w", err)
	}
	return path, nil
}

func readCredentialFile() (string, error) {
	path, err := getCredentialPath()
	if err != nil {
		return "", err
	}

	fi, err := os.Stat(path)
	if os.IsNotExist(err) {
		return "", fmt.Errorf("credentials file not found at %s", path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to stat credentials file: %w", err)
	}
	if mode := fi.Mode().Perm(); mode&0o077 != 0 {
		log.Warn().
			Str("file", path).
			Str("permissions", fmt.Sprintf("%04o", mode)).
			Msg("Credentials file has insecure permissions (should be 0600); skipping")
		return "", fmt.Errorf("credentials file %s is readable by other users", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read credentials file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// getCredentialPath returns the full path to the credentials file.
func getCredentialPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, credentialDir, credentialFile), nil
}

// ParameterGetter is the SSM call LoadDemoKey makes.
type ParameterGetter interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// LoadDemoKey returns the shared key used by the demo route and the guest
// callable. REDO_DEMO_KEY wins; otherwise the SecureString param is read
// from SSM Parameter Store. The personal key sources are not consulted.
func LoadDemoKey(ctx context.Context, client ParameterGetter, param string) (string, error) {
	if key := os.Getenv(DemoKeyEnv); key != "" {
		return key, nil
	}
	if client == nil || param == "" {
		return "", ErrNoDemoKey
	}

	start := time.Now()
	result, err := client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           &param,
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("failed to read API key from SSM param %s: %w", param, err)
	}
	if result.Parameter == nil || aws.ToString(result.Parameter.Value) == "" {
		return "", fmt.Errorf("SSM param %s is empty", param)
	}
	log.Debug().Str("param", param).Dur("elapsed", time.Since(start)).Msg("Gemini API key loaded from SSM")
	return *result.Parameter.Value, nil
}
