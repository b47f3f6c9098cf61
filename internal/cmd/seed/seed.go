// Package seed populates an exchange database with demo content for
// local development.
package seed

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	entrypoint "github.com/sommlab/ai.exchange/internal/platform/cmd"
	"github.com/sommlab/ai.exchange/internal/platform/id"
	"github.com/sommlab/ai.exchange/internal/services/exchange/domain"
	"github.com/sommlab/ai.exchange/internal/services/exchange/password"
	"github.com/sommlab/ai.exchange/internal/services/exchange/storage/sqlite"
	"github.com/sommlab/ai.exchange/internal/services/exchange/tagger"
)

// Config holds seed command configuration.
type Config struct {
	DBPath   string `env:"AI_EXCHANGE_DB_PATH" envDefault:"exchange.db"`
	Password string `env:"AI_EXCHANGE_SEED_PASSWORD" envDefault:"password-123"`
	Verbose  bool
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "The SQLite database path")
	fs.BoolVar(&cfg.Verbose, "v", false, "verbose output")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type seedUser struct {
	email      string
	name       string
	role       domain.UserRole
	discipline string
}

var seedUsers = []seedUser{
	{"admin@example.edu", "Avery Admin", domain.RoleAdmin, "computer science"},
	{"morgan@example.edu", "Morgan Lee", domain.RoleStaff, "history"},
	{"riley@example.edu", "Riley Chen", domain.RoleStaff, "biology"},
}

type seedResource struct {
	author  string // email
	rtype   domain.ResourceType
	title   string
	content string
}

var seedResources = []seedResource{
	{"morgan@example.edu", domain.TypeUseCase, "Primary source discussion prompts", "Generating seminar discussion prompts from digitised primary sources."},
	{"riley@example.edu", domain.TypePrompt, "Lab report feedback rubric", "Structured feedback on lab reports against a grading rubric."},
	{"riley@example.edu", domain.TypeRequest, "Help automating enrolment FAQs", "Looking for a workflow that answers repetitive enrolment questions."},
	{"admin@example.edu", domain.TypePolicy, "Generative tools disclosure policy", "Template policy for disclosing generative tool usage in coursework."},
}

var seedSubscriptions = []struct {
	email string
	tag   string
}{
	{"morgan@example.edu", "prompts"},
	{"riley@example.edu", "grading"},
}

// Run seeds the database with demo users and resources. Conflicting
// rows cause the run to fail rather than duplicate content.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.Run(ctx, entrypoint.ServiceSeed, func(ctx context.Context) error {
		store, err := sqlite.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open storage: %w", err)
		}
		defer func() {
			if closeErr := store.Close(); closeErr != nil {
				log.Printf("close storage: %v", closeErr)
			}
		}()

		hashed, err := password.Hash(cfg.Password)
		if err != nil {
			return fmt.Errorf("hash seed password: %w", err)
		}

		now := time.Now().UTC()
		userIDs := make(map[string]string, len(seedUsers))
		for _, entry := range seedUsers {
			userID, err := id.NewID()
			if err != nil {
				return err
			}
			user := domain.User{
				ID:             userID,
				Email:          entry.email,
				HashedPassword: hashed,
				FullName:       entry.name,
				Role:           entry.role,
				IsActive:       true,
				IsVerified:     true,
				IsApproved:     true,
				Disciplines:    []string{entry.discipline},
				Prefs:          domain.DefaultNotificationPrefs(),
				CreatedAt:      now,
			}
			if err := store.CreateUser(ctx, user); err != nil {
				return fmt.Errorf("seed user %s: %w", entry.email, err)
			}
			userIDs[entry.email] = userID
			if cfg.Verbose {
				log.Printf("seeded user %s (%s)", entry.email, entry.role)
			}
		}

		for _, entry := range seedResources {
			resourceID, err := id.NewID()
			if err != nil {
				return err
			}
			resource := domain.Resource{
				ID:            resourceID,
				UserID:        userIDs[entry.author],
				Type:          entry.rtype,
				Status:        domain.StatusOpen,
				Title:         entry.title,
				ContentText:   entry.content,
				SystemTags:    tagger.Extract(entry.title + " " + entry.content),
				VersionNumber: 1,
				CreatedAt:     now,
				UpdatedAt:     now,
			}
			if err := store.CreateResource(ctx, resource); err != nil {
				return fmt.Errorf("seed resource %q: %w", entry.title, err)
			}
			if cfg.Verbose {
				log.Printf("seeded resource %q", entry.title)
			}
		}

		for _, sub := range seedSubscriptions {
			if _, err := store.CreateSubscription(ctx, userIDs[sub.email], sub.tag, now); err != nil {
				return fmt.Errorf("seed subscription %s/%s: %w", sub.email, sub.tag, err)
			}
			if cfg.Verbose {
				log.Printf("seeded subscription %s -> %s", sub.email, sub.tag)
			}
		}

		log.Printf("seeded %d users, %d resources, %d subscriptions",
			len(seedUsers), len(seedResources), len(seedSubscriptions))
		return nil
	})
}
