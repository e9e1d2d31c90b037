package logging

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{" error ", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"verbose", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, expected %v", tt.in, got, tt.want)
		}
	}
}

func TestEnvOrDefault(t *testing.T) {
	t.Setenv("REDO_TEST_VALUE", "")
	if got := EnvOrDefault("REDO_TEST_VALUE", "fallback"); got != "fallback" {
		t.Errorf("expected fallback, got %q", got)
	}

	t.Setenv("REDO_TEST_VALUE", "set")
	if got := EnvOrDefault("REDO_TEST_VALUE", "fallback"); got != "set" {
		t.Errorf("expected set, got %q", got)
	}
}

func TestStartupLogger_SkipsEmptyResources(t *testing.T) {
	s := NewStartupLogger("redo-test").
		S3Bucket("share", "").
		DynamoTable("credits", "redo-credits")

	if _, ok := s.resources["s3Buckets"]; ok {
		t.Error("expected empty bucket name to be skipped")
	}
	if got := s.resources["dynamoTables"]["credits"]; got != "redo-credits" {
		t.Errorf("expected credits table redo-credits, got %q", got)
	}
}
