package app

import (
	"context"
	"strings"
	"testing"
	"time"

	apperrors "github.com/sommlab/ai.exchange/internal/platform/errors"
	"github.com/sommlab/ai.exchange/internal/services/exchange/domain"
)

func TestCreateResourceDerivesSystemTags(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := signUp(t, f, "alice@uni.edu")

	resource, err := f.svc.CreateResource(ctx, session.User, CreateResourceInput{
		Type:        domain.TypeUseCase,
		Title:       "Automated grading rubrics",
		ContentText: "Using language models for grading essays against rubrics",
	})
	if err != nil {
		t.Fatalf("create resource: %v", err)
	}
	if len(resource.SystemTags) == 0 {
		t.Fatal("no system tags derived")
	}
	found := false
	for _, tag := range resource.SystemTags {
		if tag == "grading" {
			found = true
		}
	}
	if !found {
		t.Fatalf("system tags %v missing %q", resource.SystemTags, "grading")
	}
}

func TestSolutionMarksRequestSolvedAndNotifies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	requester := signUp(t, f, "alice@uni.edu")
	solver := signUp(t, f, "bob@uni.edu")

	// Requester opts into solution notices.
	prefs := domain.NotificationPrefs{NotifyRequests: true, NotifySolutions: true}
	if _, err := f.svc.UpdateNotificationPrefs(ctx, requester.User, prefs); err != nil {
		t.Fatalf("update prefs: %v", err)
	}
	requester.User.Prefs = prefs

	request, err := f.svc.CreateResource(ctx, requester.User, CreateResourceInput{
		Type:  domain.TypeRequest,
		Title: "Need help summarising lecture transcripts",
	})
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	f.mail.Reset()

	if _, err := f.svc.CreateResource(ctx, solver.User, CreateResourceInput{
		ParentID: request.ID,
		Type:     domain.TypeUseCase,
		Title:    "Transcript summariser workflow",
	}); err != nil {
		t.Fatalf("create solution: %v", err)
	}

	view, err := f.svc.GetResource(ctx, requester.User, request.ID)
	if err != nil {
		t.Fatalf("get request: %v", err)
	}
	if view.Resource.Status != domain.StatusSolved {
		t.Fatalf("request status = %v, want solved", view.Resource.Status)
	}

	emails := f.mail.Emails()
	if len(emails) != 1 || emails[0].To != "alice@uni.edu" {
		t.Fatalf("solution notice = %+v, want one email to requester", emails)
	}
}

func TestNewRequestNotifiesTagSubscribers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := signUp(t, f, "alice@uni.edu")
	subscriber := signUp(t, f, "bob@uni.edu")
	optedOut := signUp(t, f, "carol@uni.edu")

	for _, session := range []Session{subscriber, optedOut, author} {
		if _, err := f.svc.Subscribe(ctx, session.User, "grading"); err != nil {
			t.Fatalf("subscribe: %v", err)
		}
	}
	// Default prefs opt everyone in; carol opts out.
	if _, err := f.svc.UpdateNotificationPrefs(ctx, optedOut.User, domain.NotificationPrefs{}); err != nil {
		t.Fatalf("update prefs: %v", err)
	}
	f.mail.Reset()

	if _, err := f.svc.CreateResource(ctx, author.User, CreateResourceInput{
		Type:        domain.TypeRequest,
		Title:       "Grading assistance wanted",
		ContentText: "Looking for grading workflows that handle short answers",
	}); err != nil {
		t.Fatalf("create request: %v", err)
	}

	emails := f.mail.Emails()
	if len(emails) != 1 {
		t.Fatalf("got %d notices, want 1 (author and opted-out skipped)", len(emails))
	}
	if emails[0].To != "bob@uni.edu" {
		t.Fatalf("notice went to %s, want bob@uni.edu", emails[0].To)
	}
}

func TestSolutionParentMustBeRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := signUp(t, f, "alice@uni.edu")

	tool, err := f.svc.CreateResource(ctx, author.User, CreateResourceInput{
		Type:  domain.TypeTool,
		Title: "Flashcard builder",
	})
	if err != nil {
		t.Fatalf("create tool: %v", err)
	}

	_, err = f.svc.CreateResource(ctx, author.User, CreateResourceInput{
		ParentID: tool.ID,
		Type:     domain.TypeUseCase,
		Title:    "Misplaced solution",
	})
	wantKind(t, err, apperrors.KindInvalidInput)

	_, err = f.svc.ListSolutions(ctx, tool.ID)
	wantKind(t, err, apperrors.KindInvalidInput)
}

func TestListSolutionsNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	requester := signUp(t, f, "alice@uni.edu")
	solver := signUp(t, f, "bob@uni.edu")

	request, err := f.svc.CreateResource(ctx, requester.User, CreateResourceInput{
		Type:  domain.TypeRequest,
		Title: "Need a syllabus rewrite assistant",
	})
	if err != nil {
		t.Fatalf("create request: %v", err)
	}

	base := time.Now().UTC()
	f.svc.now = func() time.Time { return base }
	older, err := f.svc.CreateResource(ctx, solver.User, CreateResourceInput{
		ParentID: request.ID,
		Type:     domain.TypeUseCase,
		Title:    "First attempt",
	})
	if err != nil {
		t.Fatalf("create first solution: %v", err)
	}
	f.svc.now = func() time.Time { return base.Add(time.Minute) }
	newer, err := f.svc.CreateResource(ctx, solver.User, CreateResourceInput{
		ParentID: request.ID,
		Type:     domain.TypeUseCase,
		Title:    "Better attempt",
	})
	if err != nil {
		t.Fatalf("create second solution: %v", err)
	}

	solutions, err := f.svc.ListSolutions(ctx, request.ID)
	if err != nil {
		t.Fatalf("list solutions: %v", err)
	}
	if len(solutions) != 2 {
		t.Fatalf("got %d solutions, want 2", len(solutions))
	}
	if solutions[0].Resource.ID != newer.ID || solutions[1].Resource.ID != older.ID {
		t.Fatalf("solutions out of order: %s then %s", solutions[0].Resource.ID, solutions[1].Resource.ID)
	}
}

func TestDeleteLastSolutionReopensRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	requester := signUp(t, f, "alice@uni.edu")
	solver := signUp(t, f, "bob@uni.edu")

	request, err := f.svc.CreateResource(ctx, requester.User, CreateResourceInput{
		Type:  domain.TypeRequest,
		Title: "Need quiz question generator",
	})
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	solution, err := f.svc.CreateResource(ctx, solver.User, CreateResourceInput{
		ParentID: request.ID,
		Type:     domain.TypePrompt,
		Title:    "Quiz generation prompt",
	})
	if err != nil {
		t.Fatalf("create solution: %v", err)
	}

	if err := f.svc.DeleteResource(ctx, solver.User, solution.ID); err != nil {
		t.Fatalf("delete solution: %v", err)
	}
	view, err := f.svc.GetResource(ctx, requester.User, request.ID)
	if err != nil {
		t.Fatalf("get request: %v", err)
	}
	if view.Resource.Status != domain.StatusOpen {
		t.Fatalf("request status = %v, want open after last solution removed", view.Resource.Status)
	}
}

func TestUpdateResourceOwnerOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := signUp(t, f, "alice@uni.edu")
	other := signUp(t, f, "bob@uni.edu")

	resource, err := f.svc.CreateResource(ctx, owner.User, CreateResourceInput{
		Type:  domain.TypePrompt,
		Title: "Essay feedback prompt",
	})
	if err != nil {
		t.Fatalf("create resource: %v", err)
	}

	title := "Detailed essay feedback prompt"
	_, err = f.svc.UpdateResource(ctx, other.User, resource.ID, UpdateResourceInput{Title: &title})
	wantKind(t, err, apperrors.KindForbidden)

	updated, err := f.svc.UpdateResource(ctx, owner.User, resource.ID, UpdateResourceInput{Title: &title})
	if err != nil {
		t.Fatalf("owner update: %v", err)
	}
	if updated.Title != title {
		t.Fatalf("title = %q, want %q", updated.Title, title)
	}
}

func TestAnonymousAuthorMasked(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := signUp(t, f, "alice@uni.edu")
	name := "Alice Example"
	if _, err := f.svc.UpdateProfile(ctx, author.User.ID, UpdateProfileInput{FullName: &name}); err != nil {
		t.Fatalf("update profile: %v", err)
	}

	resource, err := f.svc.CreateResource(ctx, author.User, CreateResourceInput{
		Type:        domain.TypeUseCase,
		Title:       "Confidential workflow",
		IsAnonymous: true,
	})
	if err != nil {
		t.Fatalf("create resource: %v", err)
	}

	view, err := f.svc.GetResource(ctx, author.User, resource.ID)
	if err != nil {
		t.Fatalf("get resource: %v", err)
	}
	if view.AuthorName != "Faculty Member" {
		t.Fatalf("author name = %q, want masked", view.AuthorName)
	}
	if view.AuthorEmail != "" {
		t.Fatal("anonymous resource leaked author email")
	}
}

func TestForkResource(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := signUp(t, f, "alice@uni.edu")
	forker := signUp(t, f, "bob@uni.edu")

	source, err := f.svc.CreateResource(ctx, author.User, CreateResourceInput{
		Type:  domain.TypePrompt,
		Title: "Lecture outline prompt",
	})
	if err != nil {
		t.Fatalf("create resource: %v", err)
	}

	_, err = f.svc.ForkResource(ctx, author.User, source.ID)
	wantKind(t, err, apperrors.KindInvalidInput)

	fork, err := f.svc.ForkResource(ctx, forker.User, source.ID)
	if err != nil {
		t.Fatalf("fork: %v", err)
	}
	if !fork.IsFork || fork.ForkedFromID != source.ID || fork.UserID != forker.User.ID {
		t.Fatalf("fork fields wrong: %+v", fork)
	}
	if fork.VersionNumber != source.VersionNumber+1 {
		t.Fatalf("fork version = %d, want %d", fork.VersionNumber, source.VersionNumber+1)
	}

	analytics, err := f.svc.ResourceAnalytics(ctx, source.ID)
	if err != nil {
		t.Fatalf("analytics: %v", err)
	}
	if analytics.ForkCount != 1 {
		t.Fatalf("fork count = %d, want 1", analytics.ForkCount)
	}
}

func TestListResourcesFiltersAndPages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := signUp(t, f, "alice@uni.edu")

	titles := []string{"Alpha grading helper", "Beta slide generator", "Gamma grading rubric"}
	for _, title := range titles {
		if _, err := f.svc.CreateResource(ctx, author.User, CreateResourceInput{
			Type:  domain.TypeUseCase,
			Title: title,
		}); err != nil {
			t.Fatalf("create %q: %v", title, err)
		}
	}

	views, err := f.svc.ListResources(ctx, ListResourcesInput{Search: "grading"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("search matched %d resources, want 2", len(views))
	}
	for _, view := range views {
		if !strings.Contains(strings.ToLower(view.Resource.Title), "grading") {
			t.Fatalf("unexpected match %q", view.Resource.Title)
		}
	}

	paged, err := f.svc.ListResources(ctx, ListResourcesInput{Skip: 1, Limit: 1})
	if err != nil {
		t.Fatalf("list paged: %v", err)
	}
	if len(paged) != 1 {
		t.Fatalf("page size = %d, want 1", len(paged))
	}

	_, err = f.svc.ListResources(ctx, ListResourcesInput{SortBy: "sideways"})
	wantKind(t, err, apperrors.KindInvalidInput)
}

func TestListResourcesByAuthorDiscipline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	physicist := signUp(t, f, "alice@uni.edu")
	historian := signUp(t, f, "bob@uni.edu")

	physics := []string{"physics"}
	if _, err := f.svc.UpdateProfile(ctx, physicist.User.ID, UpdateProfileInput{Disciplines: &physics}); err != nil {
		t.Fatalf("update physicist: %v", err)
	}
	history := []string{"history"}
	if _, err := f.svc.UpdateProfile(ctx, historian.User.ID, UpdateProfileInput{Disciplines: &history}); err != nil {
		t.Fatalf("update historian: %v", err)
	}

	for _, author := range []Session{physicist, historian} {
		if _, err := f.svc.CreateResource(ctx, author.User, CreateResourceInput{
			Type:  domain.TypeUseCase,
			Title: "Lecture prep workflow",
		}); err != nil {
			t.Fatalf("create resource: %v", err)
		}
	}

	views, err := f.svc.ListResources(ctx, ListResourcesInput{AuthorDisciplines: []string{"physics"}})
	if err != nil {
		t.Fatalf("list by author discipline: %v", err)
	}
	if len(views) != 1 || views[0].Resource.UserID != physicist.User.ID {
		t.Fatalf("filtered to %d resources, want only the physicist's", len(views))
	}

	both, err := f.svc.ListResources(ctx, ListResourcesInput{AuthorDisciplines: []string{"physics", "history"}})
	if err != nil {
		t.Fatalf("list by either discipline: %v", err)
	}
	if len(both) != 2 {
		t.Fatalf("filtered to %d resources, want both", len(both))
	}
}

func TestHiddenResourceVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := signUp(t, f, "admin@uni.edu")
	staff := signUp(t, f, "staff@uni.edu")

	resource, err := f.svc.CreateResource(ctx, staff.User, CreateResourceInput{
		Type:  domain.TypeUseCase,
		Title: "Soon to be hidden",
	})
	if err != nil {
		t.Fatalf("create resource: %v", err)
	}
	if _, err := f.svc.SetResourceHidden(ctx, admin.User, resource.ID, true); err != nil {
		t.Fatalf("hide: %v", err)
	}

	_, err = f.svc.GetResource(ctx, staff.User, resource.ID)
	wantKind(t, err, apperrors.KindNotFound)

	if _, err := f.svc.GetResource(ctx, admin.User, resource.ID); err != nil {
		t.Fatalf("admin get hidden: %v", err)
	}

	views, err := f.svc.ListResources(ctx, ListResourcesInput{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(views) != 0 {
		t.Fatalf("hidden resource listed: %+v", views)
	}
}
