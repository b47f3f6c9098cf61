package exchange

import (
	"flag"
	"testing"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("exchange", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Port != 8080 {
		t.Fatalf("port = %d, want 8080", cfg.Port)
	}
	if cfg.DBPath != "exchange.db" {
		t.Fatalf("db path = %q", cfg.DBPath)
	}
}

func TestParseConfigFlagOverridesEnv(t *testing.T) {
	t.Setenv("AI_EXCHANGE_PORT", "9000")
	t.Setenv("AI_EXCHANGE_ALLOWED_DOMAINS", "uni.edu, college.edu")

	fs := flag.NewFlagSet("exchange", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-port", "9001"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Port != 9001 {
		t.Fatalf("port = %d, want flag override 9001", cfg.Port)
	}

	domains := splitList(cfg.AllowedDomains)
	if len(domains) != 2 || domains[1] != "college.edu" {
		t.Fatalf("domains = %v", domains)
	}
}

func TestSplitListSkipsEmptyEntries(t *testing.T) {
	if got := splitList(" , uni.edu ,, "); len(got) != 1 || got[0] != "uni.edu" {
		t.Fatalf("split = %v", got)
	}
	if got := splitList("   "); got != nil {
		t.Fatalf("split blank = %v, want nil", got)
	}
}
