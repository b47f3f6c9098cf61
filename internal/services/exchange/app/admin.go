package app

import (
	"context"
	"errors"

	apperrors "github.com/sommlab/ai.exchange/internal/platform/errors"
	"github.com/sommlab/ai.exchange/internal/services/exchange/domain"
	"github.com/sommlab/ai.exchange/internal/services/exchange/storage"
)

// UserDetail is a user joined with their contribution count.
type UserDetail struct {
	User          domain.User
	ResourceCount int
}

// ListUsers returns registered users, newest first. Admin only.
func (s *Service) ListUsers(ctx context.Context, caller domain.User, skip, limit int) ([]domain.User, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	users, err := s.store.ListUsers(ctx, skip, limit)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindUnavailable, "list users", err)
	}
	return users, nil
}

// GetUserDetail returns one user with their resource count. Admin only.
func (s *Service) GetUserDetail(ctx context.Context, caller domain.User, userID string) (UserDetail, error) {
	if err := requireAdmin(caller); err != nil {
		return UserDetail{}, err
	}
	user, err := s.adminLoadUser(ctx, userID)
	if err != nil {
		return UserDetail{}, err
	}
	count, err := s.store.CountResourcesByUser(ctx, userID)
	if err != nil {
		return UserDetail{}, apperrors.Wrap(apperrors.KindUnavailable, "count user resources", err)
	}
	return UserDetail{User: user, ResourceCount: count}, nil
}

func (s *Service) adminLoadUser(ctx context.Context, userID string) (domain.User, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return domain.User{}, apperrors.E(apperrors.KindNotFound, "user not found")
		}
		return domain.User{}, apperrors.Wrap(apperrors.KindUnavailable, "load user", err)
	}
	return user, nil
}

// SetUserRole changes a user's role. Admin only.
func (s *Service) SetUserRole(ctx context.Context, caller domain.User, userID string, role domain.UserRole) (domain.User, error) {
	if err := requireAdmin(caller); err != nil {
		return domain.User{}, err
	}
	if !domain.ValidUserRole(string(role)) {
		return domain.User{}, apperrors.E(apperrors.KindInvalidInput, "unknown role")
	}
	user, err := s.adminLoadUser(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}
	user.Role = role
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return domain.User{}, apperrors.Wrap(apperrors.KindUnavailable, "update role", err)
	}
	return user, nil
}

// SetUserActive activates or deactivates an account. Admin only.
func (s *Service) SetUserActive(ctx context.Context, caller domain.User, userID string, active bool) (domain.User, error) {
	if err := requireAdmin(caller); err != nil {
		return domain.User{}, err
	}
	user, err := s.adminLoadUser(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}
	user.IsActive = active
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return domain.User{}, apperrors.Wrap(apperrors.KindUnavailable, "update status", err)
	}
	return user, nil
}

// ApproveUser grants access to an account that registered from outside
// the allowed domains. Admin only.
func (s *Service) ApproveUser(ctx context.Context, caller domain.User, userID string) (domain.User, error) {
	if err := requireAdmin(caller); err != nil {
		return domain.User{}, err
	}
	user, err := s.adminLoadUser(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}
	user.IsApproved = true
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return domain.User{}, apperrors.Wrap(apperrors.KindUnavailable, "approve user", err)
	}
	return user, nil
}

// DeleteUserAccount removes a user and everything they own. Admin only.
func (s *Service) DeleteUserAccount(ctx context.Context, caller domain.User, userID string) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}
	if caller.ID == userID {
		return apperrors.E(apperrors.KindInvalidInput, "cannot delete your own account")
	}
	if err := s.store.DeleteUser(ctx, userID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperrors.E(apperrors.KindNotFound, "user not found")
		}
		return apperrors.Wrap(apperrors.KindUnavailable, "delete user", err)
	}
	return nil
}

func (s *Service) adminLoadResource(ctx context.Context, resourceID string) (domain.Resource, error) {
	resource, err := s.store.GetResource(ctx, resourceID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return domain.Resource{}, apperrors.E(apperrors.KindNotFound, "resource not found")
		}
		return domain.Resource{}, apperrors.Wrap(apperrors.KindUnavailable, "load resource", err)
	}
	return resource, nil
}

// VerifyResource marks a resource as admin-verified. Admin only.
func (s *Service) VerifyResource(ctx context.Context, caller domain.User, resourceID string) (domain.Resource, error) {
	if err := requireAdmin(caller); err != nil {
		return domain.Resource{}, err
	}
	resource, err := s.adminLoadResource(ctx, resourceID)
	if err != nil {
		return domain.Resource{}, err
	}
	resource.IsVerified = true
	if err := s.store.UpdateResource(ctx, resource); err != nil {
		return domain.Resource{}, apperrors.Wrap(apperrors.KindUnavailable, "verify resource", err)
	}
	return resource, nil
}

// SetResourceHidden hides or restores a resource. Hidden resources are
// excluded from every public listing. Admin only.
func (s *Service) SetResourceHidden(ctx context.Context, caller domain.User, resourceID string, hidden bool) (domain.Resource, error) {
	if err := requireAdmin(caller); err != nil {
		return domain.Resource{}, err
	}
	resource, err := s.adminLoadResource(ctx, resourceID)
	if err != nil {
		return domain.Resource{}, err
	}
	resource.IsHidden = hidden
	if err := s.store.UpdateResource(ctx, resource); err != nil {
		return domain.Resource{}, apperrors.Wrap(apperrors.KindUnavailable, "update resource visibility", err)
	}
	return resource, nil
}

// ShadowEditInput carries the admin curation fields.
type ShadowEditInput struct {
	ShadowDescription *string
	ShadowTags        *[]string
}

// ShadowEditResource applies admin curation to a resource without
// touching the author's own content. Admin only.
func (s *Service) ShadowEditResource(ctx context.Context, caller domain.User, resourceID string, input ShadowEditInput) (domain.Resource, error) {
	if err := requireAdmin(caller); err != nil {
		return domain.Resource{}, err
	}
	resource, err := s.adminLoadResource(ctx, resourceID)
	if err != nil {
		return domain.Resource{}, err
	}
	if input.ShadowDescription != nil {
		resource.ShadowDescription = *input.ShadowDescription
	}
	if input.ShadowTags != nil {
		resource.ShadowTags = *input.ShadowTags
	}
	if err := s.store.UpdateResource(ctx, resource); err != nil {
		return domain.Resource{}, apperrors.Wrap(apperrors.KindUnavailable, "shadow edit resource", err)
	}
	return resource, nil
}
