package app

import (
	"context"
	"strings"

	apperrors "github.com/sommlab/ai.exchange/internal/platform/errors"
	"github.com/sommlab/ai.exchange/internal/services/exchange/domain"
	"github.com/sommlab/ai.exchange/internal/services/exchange/storage"
)

const defaultCollabMessage = "I'm working on something similar"

// CollabRequest is the confirmation returned when a user reaches out to
// a resource author.
type CollabRequest struct {
	ResourceID string
	FromUserID string
	ToUserID   string
	Message    string
}

// RequestCollaboration sends an "I'm working on something similar" note
// to the resource author. Users cannot collaborate with themselves.
func (s *Service) RequestCollaboration(ctx context.Context, user domain.User, resourceID, message string) (CollabRequest, error) {
	resource, err := s.visibleResource(ctx, resourceID)
	if err != nil {
		return CollabRequest{}, err
	}
	if resource.UserID == user.ID {
		return CollabRequest{}, apperrors.E(apperrors.KindInvalidInput, "cannot collaborate with yourself")
	}
	message = strings.TrimSpace(message)
	if message == "" {
		message = defaultCollabMessage
	}
	return CollabRequest{
		ResourceID: resource.ID,
		FromUserID: user.ID,
		ToUserID:   resource.UserID,
		Message:    message,
	}, nil
}

// CollabOptions describes how a resource author can be reached and what
// forms of collaboration they are open to.
type CollabOptions struct {
	ResourceID     string
	AuthorID       string
	Status         domain.CollaborationStatus
	OpenTo         []string
	ContactByEmail bool
}

// CollaborationOptions returns the author's collaboration preferences
// for a resource.
func (s *Service) CollaborationOptions(ctx context.Context, resourceID string) (CollabOptions, error) {
	resource, err := s.visibleResource(ctx, resourceID)
	if err != nil {
		return CollabOptions{}, err
	}
	return CollabOptions{
		ResourceID:     resource.ID,
		AuthorID:       resource.UserID,
		Status:         resource.CollabStatus,
		OpenTo:         resource.OpenTo,
		ContactByEmail: !resource.IsAnonymous,
	}, nil
}

// SimilarResourcesInput filters the collaboration search.
type SimilarResourcesInput struct {
	Discipline string
	Tools      []string
	Limit      int
}

// SimilarResources finds other users' resources that are actively
// seeking collaborators, optionally narrowed by discipline and tools.
func (s *Service) SimilarResources(ctx context.Context, user domain.User, input SimilarResourcesInput) ([]ResourceView, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = 5
	}

	resources, err := s.store.ListResources(ctx, storage.ResourceFilter{Discipline: input.Discipline})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindUnavailable, "list resources", err)
	}

	matches := resources[:0:0]
	for _, resource := range resources {
		if resource.UserID == user.ID {
			continue
		}
		if resource.CollabStatus != domain.CollabSeeking {
			continue
		}
		if len(input.Tools) > 0 && !hasAnyToolCategory(resource, input.Tools) {
			continue
		}
		matches = append(matches, resource)
		if len(matches) == limit {
			break
		}
	}
	return s.buildViews(ctx, matches)
}
