package app

import (
	"context"
	"errors"
	"log"
	"sort"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/sommlab/ai.exchange/internal/platform/errors"
	"github.com/sommlab/ai.exchange/internal/services/exchange/domain"
	"github.com/sommlab/ai.exchange/internal/services/exchange/storage"
)

// Runtime configuration lives in the settings table. Editable keys can
// be changed by admins at runtime; secret keys are write-only and their
// values are never returned. Registration access, token lifetimes, and
// the auth rate limits take effect on the next request; allowed_origins
// and email_provider apply on the next restart because the CORS wrapper
// and mail transport are wired at startup.
type settingDef struct {
	Category    string
	Description string
}

// Snapshot categories, in presentation order.
const (
	categoryGeneral      = "general"
	categoryAuth         = "authentication"
	categoryEmail        = "email"
	categoryRateLimiting = "rate_limiting"
	categoryCORS         = "cors"
)

var editableSettings = map[string]settingDef{
	"log_level":                   {categoryGeneral, "Minimum log level"},
	"debug":                       {categoryGeneral, "Debug mode"},
	"testing":                     {categoryGeneral, "Testing mode"},
	"allowed_domains":             {categoryAuth, "Email domains allowed to register"},
	"email_whitelist":             {categoryAuth, "Specific emails allowed to register"},
	"access_token_expire_minutes": {categoryAuth, "Access token expiration (minutes)"},
	"refresh_token_expire_days":   {categoryAuth, "Refresh token expiration (days)"},
	"email_provider":              {categoryEmail, "Outbound email provider"},
	"rate_limit_login":            {categoryRateLimiting, "Login attempt rate limit"},
	"rate_limit_register":         {categoryRateLimiting, "Registration rate limit"},
	"rate_limit_forgot_password":  {categoryRateLimiting, "Password reset request rate limit"},
	"rate_limit_reset_password":   {categoryRateLimiting, "Password reset submission rate limit"},
	"allowed_origins":             {categoryCORS, "Cross-origin request allowlist"},
}

var secretSettings = map[string]string{
	"jwt_secret":    "Token signing key",
	"smtp_password": "SMTP server password",
}

// SettingInfo is one entry of the admin configuration snapshot.
type SettingInfo struct {
	Key         string
	Value       string
	Description string
	Category    string
	Editable    bool
}

// SecretStatus reports whether a write-only secret has been configured.
type SecretStatus struct {
	Key         string
	Configured  bool
	Description string
}

// ConfigSnapshot returns the current runtime configuration, sorted by
// key. Secret values are never included. Admin only.
func (s *Service) ConfigSnapshot(ctx context.Context, caller domain.User) ([]SettingInfo, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	stored, err := s.store.ListSettings(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindUnavailable, "list settings", err)
	}

	values := make(map[string]string, len(stored))
	for _, setting := range stored {
		if setting.Secret {
			continue
		}
		values[setting.Key] = setting.Value
	}
	// Service defaults show up even before an admin has overridden them.
	if _, ok := values["allowed_domains"]; !ok {
		values["allowed_domains"] = strings.Join(s.cfg.AllowedDomains, ",")
	}
	if _, ok := values["email_whitelist"]; !ok {
		values["email_whitelist"] = strings.Join(s.cfg.EmailWhitelist, ",")
	}

	snapshot := make([]SettingInfo, 0, len(editableSettings))
	for key, def := range editableSettings {
		snapshot = append(snapshot, SettingInfo{
			Key:         key,
			Value:       values[key],
			Description: def.Description,
			Category:    def.Category,
			Editable:    true,
		})
	}
	sort.Slice(snapshot, func(i, j int) bool { return snapshot[i].Key < snapshot[j].Key })
	return snapshot, nil
}

// UpdateConfig applies admin overrides to editable settings and returns
// the keys that changed. Unknown and secret keys are rejected.
func (s *Service) UpdateConfig(ctx context.Context, caller domain.User, updates map[string]string) ([]string, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		return nil, apperrors.E(apperrors.KindInvalidInput, "no settings to update")
	}
	keys := make([]string, 0, len(updates))
	for key := range updates {
		if _, ok := editableSettings[key]; !ok {
			return nil, apperrors.E(apperrors.KindInvalidInput, "unknown or read-only setting: "+key)
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		setting := domain.Setting{Key: key, Value: updates[key], UpdatedAt: s.now()}
		if err := s.store.UpsertSetting(ctx, setting); err != nil {
			return nil, apperrors.Wrap(apperrors.KindUnavailable, "save setting", err)
		}
	}
	return keys, nil
}

// SecretsStatus reports which secrets are configured without revealing
// their values. Admin only.
func (s *Service) SecretsStatus(ctx context.Context, caller domain.User) ([]SecretStatus, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	statuses := make([]SecretStatus, 0, len(secretSettings))
	for key, description := range secretSettings {
		_, err := s.store.GetSetting(ctx, key)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return nil, apperrors.Wrap(apperrors.KindUnavailable, "load setting", err)
		}
		statuses = append(statuses, SecretStatus{
			Key:         key,
			Configured:  err == nil,
			Description: description,
		})
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Key < statuses[j].Key })
	return statuses, nil
}

// UpdateSecret stores a write-only secret. The value is persisted but
// never surfaced through ConfigSnapshot or SecretsStatus.
func (s *Service) UpdateSecret(ctx context.Context, caller domain.User, key, value string) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}
	if _, ok := secretSettings[key]; !ok {
		return apperrors.E(apperrors.KindInvalidInput, "unknown secret: "+key)
	}
	if strings.TrimSpace(value) == "" {
		return apperrors.E(apperrors.KindInvalidInput, "secret value is required")
	}
	setting := domain.Setting{Key: key, Value: value, Secret: true, UpdatedAt: s.now()}
	if err := s.store.UpsertSetting(ctx, setting); err != nil {
		return apperrors.Wrap(apperrors.KindUnavailable, "save secret", err)
	}
	return nil
}

// settingOverride returns the stored admin override for an editable
// key. Lookup failures other than absence are logged and treated as
// unset so a storage hiccup never locks the effective config.
func (s *Service) settingOverride(ctx context.Context, key string) (string, bool) {
	setting, err := s.store.GetSetting(ctx, key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.Printf("load setting %s: %v", key, err)
		}
		return "", false
	}
	if setting.Secret {
		return "", false
	}
	return setting.Value, true
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// allowedDomains returns the effective registration domains: the stored
// admin override when present, otherwise the boot configuration.
func (s *Service) allowedDomains(ctx context.Context) []string {
	if value, ok := s.settingOverride(ctx, "allowed_domains"); ok {
		return splitList(value)
	}
	return s.cfg.AllowedDomains
}

// emailWhitelist returns the effective per-address registration
// allowlist, preferring the stored admin override.
func (s *Service) emailWhitelist(ctx context.Context) []string {
	if value, ok := s.settingOverride(ctx, "email_whitelist"); ok {
		return splitList(value)
	}
	return s.cfg.EmailWhitelist
}

func (s *Service) settingInt(ctx context.Context, key string) (int, bool) {
	value, ok := s.settingOverride(ctx, key)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// RateLimit returns the effective per-window request count for a rate
// limit setting. Falls back when no override is stored or the stored
// value is not a positive integer.
func (s *Service) RateLimit(ctx context.Context, key string, fallback int) int {
	if _, ok := editableSettings[key]; !ok {
		return fallback
	}
	if n, ok := s.settingInt(ctx, key); ok {
		return n
	}
	return fallback
}

// tokenTTLs returns the effective access and refresh token lifetimes.
// Zero means the token manager default.
func (s *Service) tokenTTLs(ctx context.Context) (access, refresh time.Duration) {
	if n, ok := s.settingInt(ctx, "access_token_expire_minutes"); ok {
		access = time.Duration(n) * time.Minute
	}
	if n, ok := s.settingInt(ctx, "refresh_token_expire_days"); ok {
		refresh = time.Duration(n) * 24 * time.Hour
	}
	return access, refresh
}
