package seed

import (
	"context"
	"flag"
	"path/filepath"
	"testing"

	"github.com/sommlab/ai.exchange/internal/services/exchange/storage"
	"github.com/sommlab/ai.exchange/internal/services/exchange/storage/sqlite"
)

func TestRunSeedsUsersAndResources(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "seed.db")
	cfg := Config{DBPath: dbPath, Password: "password-123"}

	if err := Run(context.Background(), cfg); err != nil {
		t.Fatalf("run: %v", err)
	}

	store, err := sqlite.Open(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	users, err := store.CountUsers(ctx)
	if err != nil {
		t.Fatalf("count users: %v", err)
	}
	if users != len(seedUsers) {
		t.Fatalf("seeded %d users, want %d", users, len(seedUsers))
	}

	resources, err := store.ListResources(ctx, storage.ResourceFilter{})
	if err != nil {
		t.Fatalf("list resources: %v", err)
	}
	if len(resources) != len(seedResources) {
		t.Fatalf("seeded %d resources, want %d", len(resources), len(seedResources))
	}
	for _, resource := range resources {
		if resource.UserID == "" {
			t.Fatalf("resource %q has no author", resource.Title)
		}
	}

	morgan, err := store.GetUserByEmail(ctx, "morgan@example.edu")
	if err != nil {
		t.Fatalf("load seeded user: %v", err)
	}
	subs, err := store.ListSubscriptions(ctx, morgan.ID)
	if err != nil {
		t.Fatalf("list subscriptions: %v", err)
	}
	if len(subs) != 1 || subs[0].Tag != "prompts" {
		t.Fatalf("subscriptions = %+v, want one prompts subscription", subs)
	}

	// A second run against the same database must fail on duplicates.
	if err := Run(context.Background(), cfg); err == nil {
		t.Fatal("expected duplicate seed run to fail")
	}
}

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-v"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.DBPath != "exchange.db" {
		t.Fatalf("db path = %q", cfg.DBPath)
	}
	if !cfg.Verbose {
		t.Fatal("verbose flag not applied")
	}
}
