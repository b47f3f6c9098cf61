// Package app implements the exchange service behaviors behind the HTTP API.
package app

import (
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sommlab/ai.exchange/internal/services/exchange/mailer"
	"github.com/sommlab/ai.exchange/internal/services/exchange/render"
	"github.com/sommlab/ai.exchange/internal/services/exchange/storage"
	"github.com/sommlab/ai.exchange/internal/services/exchange/token"
)

// Registration access windows.
const (
	verificationTTL = 60 * time.Minute
	resetTTL        = 30 * time.Minute
)

// Config carries the service policy knobs.
type Config struct {
	// AllowedDomains lists email domains whose users register pre-approved.
	AllowedDomains []string
	// EmailWhitelist lists individual addresses granted access regardless
	// of domain.
	EmailWhitelist []string
	// BasePath prefixes resource links in notification emails.
	BasePath string
}

// Service wires storage, tokens, and mail delivery into the exchange
// use cases.
type Service struct {
	store  storage.Store
	tokens *token.Manager
	mail   mailer.Mailer
	loc    render.Localizer
	cfg    Config
	now    func() time.Time
}

// New builds the exchange service.
func New(store storage.Store, tokens *token.Manager, mail mailer.Mailer, cfg Config) *Service {
	if mail == nil {
		mail = mailer.Dev{}
	}
	if cfg.BasePath == "" {
		cfg.BasePath = "/api/v1"
	}
	cfg.AllowedDomains = lowercaseAll(cfg.AllowedDomains)
	cfg.EmailWhitelist = lowercaseAll(cfg.EmailWhitelist)
	return &Service{
		store:  store,
		tokens: tokens,
		mail:   mail,
		loc:    message.NewPrinter(language.English),
		cfg:    cfg,
		now:    time.Now,
	}
}

func lowercaseAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		value = strings.ToLower(strings.TrimSpace(value))
		if value != "" {
			out = append(out, value)
		}
	}
	return out
}
