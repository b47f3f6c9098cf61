// Package exchange parses exchange command flags and launches the
// exchange runtime.
package exchange

import (
	"context"
	"flag"
	"strings"
	"time"

	entrypoint "github.com/sommlab/ai.exchange/internal/platform/cmd"
	exchangeserver "github.com/sommlab/ai.exchange/internal/services/exchange"
)

// Config holds exchange command configuration.
type Config struct {
	Port            int           `env:"AI_EXCHANGE_PORT" envDefault:"8080"`
	DBPath          string        `env:"AI_EXCHANGE_DB_PATH" envDefault:"exchange.db"`
	TokenSecret     string        `env:"AI_EXCHANGE_TOKEN_SECRET"`
	AccessTokenTTL  time.Duration `env:"AI_EXCHANGE_ACCESS_TOKEN_TTL" envDefault:"30m"`
	RefreshTokenTTL time.Duration `env:"AI_EXCHANGE_REFRESH_TOKEN_TTL" envDefault:"168h"`
	AllowedDomains  string        `env:"AI_EXCHANGE_ALLOWED_DOMAINS"`
	EmailWhitelist  string        `env:"AI_EXCHANGE_EMAIL_WHITELIST"`
	AllowedOrigins  string        `env:"AI_EXCHANGE_ALLOWED_ORIGINS"`
	SMTPAddr        string        `env:"AI_EXCHANGE_SMTP_ADDR"`
	SMTPFrom        string        `env:"AI_EXCHANGE_SMTP_FROM"`
	SMTPUsername    string        `env:"AI_EXCHANGE_SMTP_USERNAME"`
	SMTPPassword    string        `env:"AI_EXCHANGE_SMTP_PASSWORD"`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.IntVar(&cfg.Port, "port", cfg.Port, "The exchange HTTP server port")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "The SQLite database path")
	fs.StringVar(&cfg.TokenSecret, "token-secret", cfg.TokenSecret, "The JWT signing secret")
	fs.StringVar(&cfg.AllowedDomains, "allowed-domains", cfg.AllowedDomains, "Comma-separated email domains allowed to register")
	fs.StringVar(&cfg.EmailWhitelist, "email-whitelist", cfg.EmailWhitelist, "Comma-separated addresses allowed regardless of domain")
	fs.StringVar(&cfg.AllowedOrigins, "allowed-origins", cfg.AllowedOrigins, "Comma-separated CORS origins")
	fs.StringVar(&cfg.SMTPAddr, "smtp-addr", cfg.SMTPAddr, "SMTP relay address, empty logs email instead")

	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func splitList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Run starts the exchange runtime.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.Run(ctx, entrypoint.ServiceExchange, func(ctx context.Context) error {
		return exchangeserver.Run(ctx, exchangeserver.RuntimeConfig{
			Port:            cfg.Port,
			DBPath:          cfg.DBPath,
			TokenSecret:     cfg.TokenSecret,
			AccessTokenTTL:  cfg.AccessTokenTTL,
			RefreshTokenTTL: cfg.RefreshTokenTTL,
			AllowedDomains:  splitList(cfg.AllowedDomains),
			EmailWhitelist:  splitList(cfg.EmailWhitelist),
			AllowedOrigins:  splitList(cfg.AllowedOrigins),
			SMTPAddr:        cfg.SMTPAddr,
			SMTPFrom:        cfg.SMTPFrom,
			SMTPUsername:    cfg.SMTPUsername,
			SMTPPassword:    cfg.SMTPPassword,
		})
	})
}
