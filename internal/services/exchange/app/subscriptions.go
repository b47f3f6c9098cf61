package app

import (
	"context"
	"errors"
	"strings"

	apperrors "github.com/sommlab/ai.exchange/internal/platform/errors"
	"github.com/sommlab/ai.exchange/internal/services/exchange/domain"
	"github.com/sommlab/ai.exchange/internal/services/exchange/storage"
)

// Subscribe opts the user into notifications for a tag.
func (s *Service) Subscribe(ctx context.Context, user domain.User, tag string) (domain.Subscription, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return domain.Subscription{}, apperrors.E(apperrors.KindInvalidInput, "tag is required")
	}
	subscription, err := s.store.CreateSubscription(ctx, user.ID, tag, s.now())
	if err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return domain.Subscription{}, apperrors.E(apperrors.KindConflict, "already subscribed to this tag")
		}
		return domain.Subscription{}, apperrors.Wrap(apperrors.KindUnavailable, "create subscription", err)
	}
	return subscription, nil
}

// Unsubscribe removes the user's subscription to a tag.
func (s *Service) Unsubscribe(ctx context.Context, user domain.User, tag string) error {
	if err := s.store.DeleteSubscription(ctx, user.ID, strings.TrimSpace(tag)); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperrors.E(apperrors.KindNotFound, "not subscribed to this tag")
		}
		return apperrors.Wrap(apperrors.KindUnavailable, "delete subscription", err)
	}
	return nil
}

// ListSubscriptions returns the user's tag subscriptions.
func (s *Service) ListSubscriptions(ctx context.Context, user domain.User) ([]domain.Subscription, error) {
	subscriptions, err := s.store.ListSubscriptions(ctx, user.ID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindUnavailable, "list subscriptions", err)
	}
	return subscriptions, nil
}

// UpdateNotificationPrefs replaces the user's notification opt-ins.
func (s *Service) UpdateNotificationPrefs(ctx context.Context, user domain.User, prefs domain.NotificationPrefs) (domain.NotificationPrefs, error) {
	user.Prefs = prefs
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return domain.NotificationPrefs{}, apperrors.Wrap(apperrors.KindUnavailable, "update prefs", err)
	}
	return prefs, nil
}
