// Package exchange boots the AI Exchange HTTP runtime.
package exchange

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/sommlab/ai.exchange/internal/platform/timeouts"
	"github.com/sommlab/ai.exchange/internal/services/exchange/api/rest"
	"github.com/sommlab/ai.exchange/internal/services/exchange/app"
	"github.com/sommlab/ai.exchange/internal/services/exchange/mailer"
	"github.com/sommlab/ai.exchange/internal/services/exchange/storage/sqlite"
	"github.com/sommlab/ai.exchange/internal/services/exchange/token"
)

const defaultPort = 8080

// RuntimeConfig controls exchange service startup and dependency wiring.
type RuntimeConfig struct {
	Port            int
	DBPath          string
	TokenSecret     string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	AllowedDomains  []string
	EmailWhitelist  []string
	AllowedOrigins  []string

	// SMTPAddr switches mail delivery from the dev logger to a relay.
	SMTPAddr     string
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string
}

// Run starts the exchange HTTP runtime until context cancellation.
func Run(ctx context.Context, cfg RuntimeConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return fmt.Errorf("database path is required")
	}
	if strings.TrimSpace(cfg.TokenSecret) == "" {
		return fmt.Errorf("token secret is required")
	}
	if cfg.Port <= 0 {
		cfg.Port = defaultPort
	}

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			log.Printf("close storage: %v", closeErr)
		}
	}()

	tokens, err := token.NewManager(cfg.TokenSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	if err != nil {
		return fmt.Errorf("configure tokens: %w", err)
	}

	var mail mailer.Mailer = mailer.Dev{}
	if strings.TrimSpace(cfg.SMTPAddr) != "" {
		mail = mailer.SMTP{
			Addr:     cfg.SMTPAddr,
			From:     cfg.SMTPFrom,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
		}
	}

	service := app.New(store, tokens, mail, app.Config{
		AllowedDomains: cfg.AllowedDomains,
		EmailWhitelist: cfg.EmailWhitelist,
	})
	handler := rest.NewHandler(service, store.Ping, rest.Options{
		AllowedOrigins: cfg.AllowedOrigins,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler.Routes(),
		ReadHeaderTimeout: timeouts.ReadHeader,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("exchange listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return <-errCh
	case err := <-errCh:
		return err
	}
}
