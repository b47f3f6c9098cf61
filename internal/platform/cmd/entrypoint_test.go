package cmd

import (
	"context"
	"flag"
	"testing"
)

type entrypointConfig struct {
	Port int `env:"AI_EXCHANGE_ENTRYPOINT_PORT" envDefault:"8080"`
}

func TestParseConfigFromArgs(t *testing.T) {
	t.Setenv("AI_EXCHANGE_ENTRYPOINT_PORT", "9001")

	var cfg entrypointConfig
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	if err := ParseConfig(&cfg); err != nil {
		t.Fatalf("parse config: %v", err)
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "port")
	if err := ParseArgs(fs, []string{"-port", "9002"}); err != nil {
		t.Fatalf("parse args: %v", err)
	}
	if cfg.Port != 9002 {
		t.Fatalf("port = %d, want flag override 9002", cfg.Port)
	}
}

func TestParseConfigRejectsNil(t *testing.T) {
	if err := ParseConfig[entrypointConfig](nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}

func TestRunRequiresServiceName(t *testing.T) {
	err := Run(context.Background(), "  ", func(context.Context) error { return nil })
	if err == nil {
		t.Fatal("expected error for blank service name")
	}

	ran := false
	if err := Run(context.Background(), ServiceExchange, func(context.Context) error {
		ran = true
		return nil
	}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !ran {
		t.Fatal("run function not invoked")
	}
}
