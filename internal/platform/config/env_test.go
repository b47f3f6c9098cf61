package config

import "testing"

type testEnv struct {
	Addr  string `env:"AI_EXCHANGE_TEST_ADDR"`
	Limit int    `env:"AI_EXCHANGE_TEST_LIMIT" envDefault:"10"`
}

func TestParseEnvReadsValues(t *testing.T) {
	t.Setenv("AI_EXCHANGE_TEST_ADDR", ":9000")

	var cfg testEnv
	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Addr != ":9000" {
		t.Fatalf("expected addr :9000, got %q", cfg.Addr)
	}
	if cfg.Limit != 10 {
		t.Fatalf("expected default limit 10, got %d", cfg.Limit)
	}
}

func TestParseEnvRejectsBadValues(t *testing.T) {
	t.Setenv("AI_EXCHANGE_TEST_LIMIT", "not-a-number")

	var cfg testEnv
	if err := ParseEnv(&cfg); err == nil {
		t.Fatal("expected error for non-numeric limit")
	}
}
