// Package config loads runtime configuration for the Redo AI binaries.
//
// Values come from (lowest to highest precedence) built-in defaults, an
// optional redo.yaml in the working directory, and REDO_* environment
// variables. Cobra flags are applied on top by each binary.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the resolved settings shared by redo, redo-web and redo-lambda.
type Config struct {
	Port               int           `mapstructure:"port"`
	ImageModel         string        `mapstructure:"image_model"`
	DemoUses           int           `mapstructure:"demo_uses"`
	CompositeTimeout   time.Duration `mapstructure:"composite_timeout"`
	ShareBucket        string        `mapstructure:"share_bucket"`
	ShareURLExpiry     time.Duration `mapstructure:"share_url_expiry"`
	CreditsTable       string        `mapstructure:"credits_table"`
	StarterCredits     int           `mapstructure:"starter_credits"`
	CostPerGeneration  int           `mapstructure:"cost_per_generation"`
	SSMAPIKeyParam     string        `mapstructure:"ssm_api_key_param"`
	OriginVerifySecret string        `mapstructure:"origin_verify_secret"`
	GuestURL           string        `mapstructure:"guest_url"`
	LocalAuth          bool          `mapstructure:"local_auth"`
}

var defaults = map[string]any{
	"port":                 8080,
	"image_model":          "gemini-2.5-flash-image",
	"demo_uses":            3,
	"composite_timeout":    30 * time.Second,
	"share_bucket":         "",
	"share_url_expiry":     24 * time.Hour,
	"credits_table":        "",
	"starter_credits":      3,
	"cost_per_generation":  1,
	"ssm_api_key_param":    "/redo-ai/prod/gemini-api-key",
	"origin_verify_secret": "",
	"guest_url":            "",
	"local_auth":           false,
}

// New returns a viper instance wired with defaults, the REDO_ env prefix
// and the optional redo.yaml file.
func New() (*viper.Viper, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	v.SetEnvPrefix("REDO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("redo")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read redo.yaml: %w", err)
		}
	}
	return v, nil
}

// Parse decodes a viper instance into a validated Config.
func Parse(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Load is New followed by Parse.
func Load() (*Config, error) {
	v, err := New()
	if err != nil {
		return nil, err
	}
	return Parse(v)
}

// Validate rejects settings that would make the service misbehave.
func (c *Config) Validate() error {
	switch {
	case c.Port <= 0 || c.Port > 65535:
		return fmt.Errorf("invalid port %d", c.Port)
	case c.DemoUses < 0:
		return fmt.Errorf("demo_uses must not be negative, got %d", c.DemoUses)
	case c.CostPerGeneration < 1:
		return fmt.Errorf("cost_per_generation must be at least 1, got %d", c.CostPerGeneration)
	case c.StarterCredits < 0:
		return fmt.Errorf("starter_credits must not be negative, got %d", c.StarterCredits)
	case c.CompositeTimeout <= 0:
		return fmt.Errorf("composite_timeout must be positive, got %s", c.CompositeTimeout)
	case c.ImageModel == "":
		return errors.New("image_model is required")
	}
	return nil
}
