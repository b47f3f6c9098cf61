package app

import (
	"context"
	"testing"

	apperrors "github.com/sommlab/ai.exchange/internal/platform/errors"
	"github.com/sommlab/ai.exchange/internal/services/exchange/domain"
)

func TestViewTriedSaveCounters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := signUp(t, f, "alice@uni.edu")
	viewer := signUp(t, f, "bob@uni.edu")

	resource, err := f.svc.CreateResource(ctx, author.User, CreateResourceInput{
		Type:  domain.TypeUseCase,
		Title: "Reading list generator",
	})
	if err != nil {
		t.Fatalf("create resource: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := f.svc.TrackView(ctx, viewer.User, resource.ID); err != nil {
			t.Fatalf("track view: %v", err)
		}
	}
	views, err := f.svc.TrackView(ctx, author.User, resource.ID)
	if err != nil {
		t.Fatalf("track view: %v", err)
	}
	if views != 4 {
		t.Fatalf("view count = %d, want 4", views)
	}

	// Tried is once per user.
	if _, err := f.svc.TrackTried(ctx, viewer.User, resource.ID); err != nil {
		t.Fatalf("track tried: %v", err)
	}
	tried, err := f.svc.TrackTried(ctx, viewer.User, resource.ID)
	if err != nil {
		t.Fatalf("track tried again: %v", err)
	}
	if tried != 1 {
		t.Fatalf("tried count = %d, want 1", tried)
	}

	saved, count, err := f.svc.ToggleSave(ctx, viewer.User, resource.ID)
	if err != nil {
		t.Fatalf("toggle save: %v", err)
	}
	if !saved || count != 1 {
		t.Fatalf("first toggle = (%v, %d), want (true, 1)", saved, count)
	}
	saved, count, err = f.svc.ToggleSave(ctx, viewer.User, resource.ID)
	if err != nil {
		t.Fatalf("toggle save: %v", err)
	}
	if saved || count != 0 {
		t.Fatalf("second toggle = (%v, %d), want (false, 0)", saved, count)
	}

	analytics, err := f.svc.ResourceAnalytics(ctx, resource.ID)
	if err != nil {
		t.Fatalf("analytics: %v", err)
	}
	if analytics.ViewCount != 4 || analytics.UniqueViewers != 2 || analytics.TriedCount != 1 {
		t.Fatalf("analytics = %+v", analytics)
	}
}

func TestSavedResourcesSkipsHidden(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := signUp(t, f, "admin@uni.edu")
	user := signUp(t, f, "bob@uni.edu")

	visible, err := f.svc.CreateResource(ctx, admin.User, CreateResourceInput{
		Type:  domain.TypeUseCase,
		Title: "Visible workflow",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	doomed, err := f.svc.CreateResource(ctx, admin.User, CreateResourceInput{
		Type:  domain.TypeUseCase,
		Title: "Doomed workflow",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	for _, id := range []string{visible.ID, doomed.ID} {
		if _, _, err := f.svc.ToggleSave(ctx, user.User, id); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}
	if _, err := f.svc.SetResourceHidden(ctx, admin.User, doomed.ID, true); err != nil {
		t.Fatalf("hide: %v", err)
	}

	saved, err := f.svc.SavedResources(ctx, user.User, 0, 0)
	if err != nil {
		t.Fatalf("saved resources: %v", err)
	}
	if len(saved) != 1 || saved[0].Resource.ID != visible.ID {
		t.Fatalf("saved = %+v, want only visible resource", saved)
	}
}

func TestSavedResourcesPaged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := signUp(t, f, "alice@uni.edu")
	reader := signUp(t, f, "bob@uni.edu")

	titles := []string{"First pick", "Second pick", "Third pick"}
	for _, title := range titles {
		resource, err := f.svc.CreateResource(ctx, author.User, CreateResourceInput{
			Type:  domain.TypeUseCase,
			Title: title,
		})
		if err != nil {
			t.Fatalf("create %q: %v", title, err)
		}
		if _, _, err := f.svc.ToggleSave(ctx, reader.User, resource.ID); err != nil {
			t.Fatalf("save %q: %v", title, err)
		}
	}

	page, err := f.svc.SavedResources(ctx, reader.User, 1, 1)
	if err != nil {
		t.Fatalf("saved resources page: %v", err)
	}
	if len(page) != 1 {
		t.Fatalf("page size = %d, want 1", len(page))
	}
	rest, err := f.svc.SavedResources(ctx, reader.User, 2, 10)
	if err != nil {
		t.Fatalf("saved resources tail: %v", err)
	}
	if len(rest) != 1 {
		t.Fatalf("tail size = %d, want 1", len(rest))
	}
}

func TestPlatformAnalyticsAdminOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := signUp(t, f, "admin@uni.edu")
	staff := signUp(t, f, "staff@uni.edu")

	_, err := f.svc.GetPlatformAnalytics(ctx, staff.User)
	wantKind(t, err, apperrors.KindForbidden)

	resource, err := f.svc.CreateResource(ctx, staff.User, CreateResourceInput{
		Type:       domain.TypeUseCase,
		Title:      "Counted workflow",
		Discipline: "physics",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.svc.TrackView(ctx, admin.User, resource.ID); err != nil {
		t.Fatalf("view: %v", err)
	}
	if _, _, err := f.svc.ToggleSave(ctx, admin.User, resource.ID); err != nil {
		t.Fatalf("save: %v", err)
	}

	report, err := f.svc.GetPlatformAnalytics(ctx, admin.User)
	if err != nil {
		t.Fatalf("platform analytics: %v", err)
	}
	if report.Stats.TotalUsers != 2 || report.Stats.TotalResources != 1 {
		t.Fatalf("totals = %+v", report.Stats)
	}
	if report.Stats.TotalViews != 1 || report.Stats.TotalSaves != 1 {
		t.Fatalf("engagement totals = %+v", report.Stats)
	}
	if report.Stats.AvgViewsPerResource != 1 {
		t.Fatalf("avg views = %v, want 1", report.Stats.AvgViewsPerResource)
	}
	if len(report.TopResources) != 1 || report.TopResources[0].ResourceID != resource.ID {
		t.Fatalf("top resources = %+v", report.TopResources)
	}

	byDiscipline, err := f.svc.AnalyticsByDiscipline(ctx, admin.User)
	if err != nil {
		t.Fatalf("by discipline: %v", err)
	}
	stats, ok := byDiscipline["physics"]
	if !ok || stats.Count != 1 || stats.TotalViews != 1 {
		t.Fatalf("discipline stats = %+v", byDiscipline)
	}
}

func TestPlatformAnalyticsCountsHiddenResources(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := signUp(t, f, "admin@uni.edu")
	staff := signUp(t, f, "staff@uni.edu")

	resource, err := f.svc.CreateResource(ctx, staff.User, CreateResourceInput{
		Type:  domain.TypeUseCase,
		Title: "Moderated workflow",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.svc.TrackView(ctx, admin.User, resource.ID); err != nil {
		t.Fatalf("view: %v", err)
	}
	if _, err := f.svc.SetResourceHidden(ctx, admin.User, resource.ID, true); err != nil {
		t.Fatalf("hide: %v", err)
	}

	report, err := f.svc.GetPlatformAnalytics(ctx, admin.User)
	if err != nil {
		t.Fatalf("platform analytics: %v", err)
	}
	// Totals and the top list apply the same visibility rule: the
	// moderation dashboard sees everything.
	if report.Stats.TotalResources != 1 || report.Stats.TotalViews != 1 {
		t.Fatalf("totals = %+v, want hidden resource counted", report.Stats)
	}
	if len(report.TopResources) != 1 || report.TopResources[0].ResourceID != resource.ID {
		t.Fatalf("top resources = %+v, want hidden resource listed", report.TopResources)
	}
}

func TestSubscriptionLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := signUp(t, f, "alice@uni.edu")

	if _, err := f.svc.Subscribe(ctx, user.User, "grading"); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	_, err := f.svc.Subscribe(ctx, user.User, "grading")
	wantKind(t, err, apperrors.KindConflict)

	subs, err := f.svc.ListSubscriptions(ctx, user.User)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(subs) != 1 || subs[0].Tag != "grading" {
		t.Fatalf("subscriptions = %+v", subs)
	}

	if err := f.svc.Unsubscribe(ctx, user.User, "grading"); err != nil {
		t.Fatalf("unsubscribe: %v", err)
	}
	err = f.svc.Unsubscribe(ctx, user.User, "grading")
	wantKind(t, err, apperrors.KindNotFound)
}
