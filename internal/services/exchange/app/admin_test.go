package app

import (
	"context"
	"testing"

	apperrors "github.com/sommlab/ai.exchange/internal/platform/errors"
	"github.com/sommlab/ai.exchange/internal/services/exchange/domain"
)

func TestAdminUserManagement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := signUp(t, f, "admin@uni.edu")
	staff := signUp(t, f, "staff@uni.edu")

	_, err := f.svc.ListUsers(ctx, staff.User, 0, 10)
	wantKind(t, err, apperrors.KindForbidden)

	users, err := f.svc.ListUsers(ctx, admin.User, 0, 10)
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("got %d users, want 2", len(users))
	}

	promoted, err := f.svc.SetUserRole(ctx, admin.User, staff.User.ID, domain.RoleAdmin)
	if err != nil {
		t.Fatalf("set role: %v", err)
	}
	if promoted.Role != domain.RoleAdmin {
		t.Fatalf("role = %v, want admin", promoted.Role)
	}
	_, err = f.svc.SetUserRole(ctx, admin.User, staff.User.ID, "WIZARD")
	wantKind(t, err, apperrors.KindInvalidInput)

	demoted, err := f.svc.SetUserRole(ctx, admin.User, staff.User.ID, domain.RoleStaff)
	if err != nil {
		t.Fatalf("set role back: %v", err)
	}
	if demoted.Role != domain.RoleStaff {
		t.Fatalf("role = %v, want staff", demoted.Role)
	}

	deactivated, err := f.svc.SetUserActive(ctx, admin.User, staff.User.ID, false)
	if err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if deactivated.IsActive {
		t.Fatal("user still active")
	}
	_, err = f.svc.Login(ctx, "staff@uni.edu", "sufficiently-long")
	wantKind(t, err, apperrors.KindForbidden)

	_, err = f.svc.GetUserDetail(ctx, admin.User, "missing")
	wantKind(t, err, apperrors.KindNotFound)
}

func TestAdminDeleteUserCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := signUp(t, f, "admin@uni.edu")
	staff := signUp(t, f, "staff@uni.edu")

	resource, err := f.svc.CreateResource(ctx, staff.User, CreateResourceInput{
		Type:  domain.TypeUseCase,
		Title: "Orphaned on delete",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	detail, err := f.svc.GetUserDetail(ctx, admin.User, staff.User.ID)
	if err != nil {
		t.Fatalf("user detail: %v", err)
	}
	if detail.ResourceCount != 1 {
		t.Fatalf("resource count = %d, want 1", detail.ResourceCount)
	}

	err = f.svc.DeleteUserAccount(ctx, admin.User, admin.User.ID)
	wantKind(t, err, apperrors.KindInvalidInput)

	if err := f.svc.DeleteUserAccount(ctx, admin.User, staff.User.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	_, err = f.svc.GetResource(ctx, admin.User, resource.ID)
	wantKind(t, err, apperrors.KindNotFound)
}

func TestAdminApprovalGate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := signUp(t, f, "admin@uni.edu")
	outsider := signUp(t, f, "guest@partner.org")

	_, err := f.svc.ApproveUser(ctx, outsider.User, admin.User.ID)
	wantKind(t, err, apperrors.KindForbidden)

	approved, err := f.svc.ApproveUser(ctx, admin.User, outsider.User.ID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if !approved.IsApproved {
		t.Fatal("user not approved")
	}
	_, err = f.svc.ApproveUser(ctx, admin.User, "missing")
	wantKind(t, err, apperrors.KindNotFound)
}

func TestAdminResourceModeration(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := signUp(t, f, "admin@uni.edu")
	staff := signUp(t, f, "staff@uni.edu")

	resource, err := f.svc.CreateResource(ctx, staff.User, CreateResourceInput{
		Type:  domain.TypeUseCase,
		Title: "Awaiting review",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = f.svc.VerifyResource(ctx, staff.User, resource.ID)
	wantKind(t, err, apperrors.KindForbidden)

	verified, err := f.svc.VerifyResource(ctx, admin.User, resource.ID)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !verified.IsVerified {
		t.Fatal("resource not verified")
	}

	hidden, err := f.svc.SetResourceHidden(ctx, admin.User, resource.ID, true)
	if err != nil {
		t.Fatalf("hide: %v", err)
	}
	if !hidden.IsHidden {
		t.Fatal("resource not hidden")
	}
	restored, err := f.svc.SetResourceHidden(ctx, admin.User, resource.ID, false)
	if err != nil {
		t.Fatalf("unhide: %v", err)
	}
	if restored.IsHidden {
		t.Fatal("resource still hidden")
	}

	description := "Cleaned-up summary"
	tags := []string{"curated"}
	edited, err := f.svc.ShadowEditResource(ctx, admin.User, resource.ID, ShadowEditInput{
		ShadowDescription: &description,
		ShadowTags:        &tags,
	})
	if err != nil {
		t.Fatalf("shadow edit: %v", err)
	}
	if edited.ShadowDescription != description || len(edited.ShadowTags) != 1 {
		t.Fatalf("shadow fields = %+v", edited)
	}
}

func TestAdminConfigSettings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := signUp(t, f, "admin@uni.edu")
	staff := signUp(t, f, "staff@uni.edu")

	_, err := f.svc.ConfigSnapshot(ctx, staff.User)
	wantKind(t, err, apperrors.KindForbidden)

	snapshot, err := f.svc.ConfigSnapshot(ctx, admin.User)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	settings := make(map[string]SettingInfo, len(snapshot))
	for _, setting := range snapshot {
		settings[setting.Key] = setting
	}
	if got := settings["allowed_domains"]; got.Value != "uni.edu" || got.Category != "authentication" {
		t.Fatalf("allowed_domains = %+v, want service default in authentication", got)
	}
	if got := settings["log_level"]; got.Category != "general" {
		t.Fatalf("log_level = %+v, want a general setting", got)
	}
	if got := settings["rate_limit_login"]; got.Category != "rate_limiting" {
		t.Fatalf("rate_limit_login = %+v, want a rate_limiting setting", got)
	}
	if got := settings["allowed_origins"]; got.Category != "cors" {
		t.Fatalf("allowed_origins = %+v, want a cors setting", got)
	}
	if got := settings["email_provider"]; got.Category != "email" {
		t.Fatalf("email_provider = %+v, want an email setting", got)
	}

	changed, err := f.svc.UpdateConfig(ctx, admin.User, map[string]string{
		"allowed_domains": "uni.edu,college.edu",
	})
	if err != nil {
		t.Fatalf("update config: %v", err)
	}
	if len(changed) != 1 || changed[0] != "allowed_domains" {
		t.Fatalf("changed = %v", changed)
	}

	_, err = f.svc.UpdateConfig(ctx, admin.User, map[string]string{"jwt_secret": "nope"})
	wantKind(t, err, apperrors.KindInvalidInput)

	statuses, err := f.svc.SecretsStatus(ctx, admin.User)
	if err != nil {
		t.Fatalf("secrets status: %v", err)
	}
	for _, status := range statuses {
		if status.Configured {
			t.Fatalf("secret %s configured before any write", status.Key)
		}
	}

	if err := f.svc.UpdateSecret(ctx, admin.User, "smtp_password", "hunter2"); err != nil {
		t.Fatalf("update secret: %v", err)
	}
	statuses, err = f.svc.SecretsStatus(ctx, admin.User)
	if err != nil {
		t.Fatalf("secrets status: %v", err)
	}
	configured := false
	for _, status := range statuses {
		if status.Key == "smtp_password" && status.Configured {
			configured = true
		}
	}
	if !configured {
		t.Fatal("smtp_password not reported configured")
	}

	// Secret values never surface in the snapshot.
	snapshot, err = f.svc.ConfigSnapshot(ctx, admin.User)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	for _, setting := range snapshot {
		if setting.Value == "hunter2" {
			t.Fatal("secret value leaked into snapshot")
		}
	}
}
