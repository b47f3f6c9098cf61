package app

import (
	"context"
	"errors"
	"log"
	"strings"

	apperrors "github.com/sommlab/ai.exchange/internal/platform/errors"
	"github.com/sommlab/ai.exchange/internal/platform/id"
	"github.com/sommlab/ai.exchange/internal/services/exchange/domain"
	"github.com/sommlab/ai.exchange/internal/services/exchange/storage"
)

// AddCommentInput creates a comment, optionally threaded under another.
type AddCommentInput struct {
	ResourceID      string
	ParentCommentID string
	Content         string
}

// AddComment posts a comment on a visible resource.
func (s *Service) AddComment(ctx context.Context, user domain.User, input AddCommentInput) (domain.Comment, error) {
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return domain.Comment{}, apperrors.E(apperrors.KindInvalidInput, "comment content is required")
	}
	resource, err := s.visibleResource(ctx, input.ResourceID)
	if err != nil {
		return domain.Comment{}, err
	}
	if input.ParentCommentID != "" {
		parent, err := s.loadComment(ctx, input.ParentCommentID)
		if err != nil {
			return domain.Comment{}, err
		}
		if parent.ResourceID != resource.ID {
			return domain.Comment{}, apperrors.E(apperrors.KindInvalidInput, "parent comment belongs to a different resource")
		}
	}

	commentID, err := id.NewID()
	if err != nil {
		return domain.Comment{}, apperrors.Wrap(apperrors.KindUnknown, "generate comment id", err)
	}
	now := s.now()
	comment := domain.Comment{
		ID:              commentID,
		ResourceID:      resource.ID,
		ParentCommentID: input.ParentCommentID,
		UserID:          user.ID,
		Content:         content,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.store.CreateComment(ctx, comment); err != nil {
		return domain.Comment{}, apperrors.Wrap(apperrors.KindUnavailable, "create comment", err)
	}
	if err := s.store.AdjustCommentCount(ctx, resource.ID, 1); err != nil {
		log.Printf("adjust comment count for %s: %v", resource.ID, err)
	}
	return comment, nil
}

func (s *Service) loadComment(ctx context.Context, commentID string) (domain.Comment, error) {
	comment, err := s.store.GetComment(ctx, commentID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return domain.Comment{}, apperrors.E(apperrors.KindNotFound, "comment not found")
		}
		return domain.Comment{}, apperrors.Wrap(apperrors.KindUnavailable, "load comment", err)
	}
	return comment, nil
}

// ListComments returns a resource's comments, oldest first.
func (s *Service) ListComments(ctx context.Context, resourceID string) ([]domain.Comment, error) {
	if _, err := s.visibleResource(ctx, resourceID); err != nil {
		return nil, err
	}
	comments, err := s.store.ListComments(ctx, resourceID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindUnavailable, "list comments", err)
	}
	return comments, nil
}

// EditComment replaces a comment's content. Author only.
func (s *Service) EditComment(ctx context.Context, user domain.User, commentID, content string) (domain.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return domain.Comment{}, apperrors.E(apperrors.KindInvalidInput, "comment content is required")
	}
	comment, err := s.loadComment(ctx, commentID)
	if err != nil {
		return domain.Comment{}, err
	}
	if comment.UserID != user.ID {
		return domain.Comment{}, apperrors.E(apperrors.KindForbidden, "not the comment author")
	}
	comment.Content = content
	comment.UpdatedAt = s.now()
	if err := s.store.UpdateComment(ctx, comment); err != nil {
		return domain.Comment{}, apperrors.Wrap(apperrors.KindUnavailable, "update comment", err)
	}
	return comment, nil
}

// DeleteComment removes a comment. The author or an admin may delete.
func (s *Service) DeleteComment(ctx context.Context, user domain.User, commentID string) error {
	comment, err := s.loadComment(ctx, commentID)
	if err != nil {
		return err
	}
	if comment.UserID != user.ID && user.Role != domain.RoleAdmin {
		return apperrors.E(apperrors.KindForbidden, "not the comment author")
	}
	if err := s.store.DeleteComment(ctx, commentID); err != nil {
		return apperrors.Wrap(apperrors.KindUnavailable, "delete comment", err)
	}
	if err := s.store.AdjustCommentCount(ctx, comment.ResourceID, -1); err != nil {
		log.Printf("adjust comment count for %s: %v", comment.ResourceID, err)
	}
	return nil
}

// MarkCommentHelpful bumps a comment's helpful counter and returns the
// new count. The parent resource's helpful total moves with it.
func (s *Service) MarkCommentHelpful(ctx context.Context, commentID string) (int, error) {
	comment, err := s.loadComment(ctx, commentID)
	if err != nil {
		return 0, err
	}
	count, err := s.store.IncrementCommentHelpful(ctx, commentID)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.KindUnavailable, "mark comment helpful", err)
	}
	if err := s.store.IncrementHelpfulCount(ctx, comment.ResourceID); err != nil {
		log.Printf("increment helpful count for %s: %v", comment.ResourceID, err)
	}
	return count, nil
}

// CreatePromptInput carries a new prompt-library entry.
type CreatePromptInput struct {
	Title        string
	PromptText   string
	Description  string
	Variables    []string
	SharingLevel domain.SharingLevel
}

// CreatePrompt adds an entry to the prompt library.
func (s *Service) CreatePrompt(ctx context.Context, user domain.User, input CreatePromptInput) (domain.Prompt, error) {
	if strings.TrimSpace(input.Title) == "" {
		return domain.Prompt{}, apperrors.E(apperrors.KindInvalidInput, "title is required")
	}
	if strings.TrimSpace(input.PromptText) == "" {
		return domain.Prompt{}, apperrors.E(apperrors.KindInvalidInput, "prompt text is required")
	}
	if input.SharingLevel != "" && !domain.ValidSharingLevel(string(input.SharingLevel)) {
		return domain.Prompt{}, apperrors.E(apperrors.KindInvalidInput, "unknown sharing level")
	}

	promptID, err := id.NewID()
	if err != nil {
		return domain.Prompt{}, apperrors.Wrap(apperrors.KindUnknown, "generate prompt id", err)
	}
	now := s.now()
	prompt := domain.Prompt{
		ID:           promptID,
		UserID:       user.ID,
		Title:        input.Title,
		PromptText:   input.PromptText,
		Description:  input.Description,
		Variables:    input.Variables,
		SharingLevel: input.SharingLevel,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreatePrompt(ctx, prompt); err != nil {
		return domain.Prompt{}, apperrors.Wrap(apperrors.KindUnavailable, "create prompt", err)
	}
	return s.promptByID(ctx, prompt.ID)
}

func (s *Service) promptByID(ctx context.Context, promptID string) (domain.Prompt, error) {
	prompt, err := s.store.GetPrompt(ctx, promptID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return domain.Prompt{}, apperrors.E(apperrors.KindNotFound, "prompt not found")
		}
		return domain.Prompt{}, apperrors.Wrap(apperrors.KindUnavailable, "load prompt", err)
	}
	return prompt, nil
}

func canViewPrompt(prompt domain.Prompt, viewer domain.User) bool {
	return prompt.UserID == viewer.ID || prompt.SharingLevel != domain.SharingPrivate
}

// GetPrompt returns one prompt. Private prompts are only visible to
// their owner.
func (s *Service) GetPrompt(ctx context.Context, viewer domain.User, promptID string) (domain.Prompt, error) {
	prompt, err := s.promptByID(ctx, promptID)
	if err != nil {
		return domain.Prompt{}, err
	}
	if !canViewPrompt(prompt, viewer) {
		return domain.Prompt{}, apperrors.E(apperrors.KindNotFound, "prompt not found")
	}
	return prompt, nil
}

// ListPrompts returns prompts visible to the viewer, optionally
// filtered by a search term.
func (s *Service) ListPrompts(ctx context.Context, viewer domain.User, search string) ([]domain.Prompt, error) {
	prompts, err := s.store.ListPrompts(ctx, storage.PromptFilter{ViewerID: viewer.ID, Search: search})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindUnavailable, "list prompts", err)
	}
	return prompts, nil
}

// UpdatePromptInput updates prompt fields. Nil pointers leave the
// current value untouched.
type UpdatePromptInput struct {
	Title        *string
	PromptText   *string
	Description  *string
	Variables    *[]string
	SharingLevel *domain.SharingLevel
}

// UpdatePrompt edits a prompt. Owner only. Changing the prompt text
// bumps the version number.
func (s *Service) UpdatePrompt(ctx context.Context, user domain.User, promptID string, input UpdatePromptInput) (domain.Prompt, error) {
	prompt, err := s.promptByID(ctx, promptID)
	if err != nil {
		return domain.Prompt{}, err
	}
	if prompt.UserID != user.ID {
		return domain.Prompt{}, apperrors.E(apperrors.KindForbidden, "not the prompt owner")
	}

	if input.Title != nil {
		prompt.Title = *input.Title
	}
	if input.PromptText != nil && *input.PromptText != prompt.PromptText {
		prompt.PromptText = *input.PromptText
		prompt.VersionNumber++
	}
	if input.Description != nil {
		prompt.Description = *input.Description
	}
	if input.Variables != nil {
		prompt.Variables = *input.Variables
	}
	if input.SharingLevel != nil {
		if !domain.ValidSharingLevel(string(*input.SharingLevel)) {
			return domain.Prompt{}, apperrors.E(apperrors.KindInvalidInput, "unknown sharing level")
		}
		prompt.SharingLevel = *input.SharingLevel
	}
	prompt.UpdatedAt = s.now()
	if err := s.store.UpdatePrompt(ctx, prompt); err != nil {
		return domain.Prompt{}, apperrors.Wrap(apperrors.KindUnavailable, "update prompt", err)
	}
	return prompt, nil
}

// DeletePrompt removes a prompt. Owner only.
func (s *Service) DeletePrompt(ctx context.Context, user domain.User, promptID string) error {
	prompt, err := s.promptByID(ctx, promptID)
	if err != nil {
		return err
	}
	if prompt.UserID != user.ID {
		return apperrors.E(apperrors.KindForbidden, "not the prompt owner")
	}
	if err := s.store.DeletePrompt(ctx, promptID); err != nil {
		return apperrors.Wrap(apperrors.KindUnavailable, "delete prompt", err)
	}
	return nil
}

// UsePrompt records a use of a shared prompt and returns the usage
// count.
func (s *Service) UsePrompt(ctx context.Context, viewer domain.User, promptID string) (int, error) {
	prompt, err := s.promptByID(ctx, promptID)
	if err != nil {
		return 0, err
	}
	if !canViewPrompt(prompt, viewer) {
		return 0, apperrors.E(apperrors.KindNotFound, "prompt not found")
	}
	count, err := s.store.IncrementPromptUsage(ctx, promptID)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.KindUnavailable, "record prompt usage", err)
	}
	return count, nil
}

// ForkPrompt copies a shared prompt into the user's own library.
func (s *Service) ForkPrompt(ctx context.Context, user domain.User, promptID string) (domain.Prompt, error) {
	source, err := s.promptByID(ctx, promptID)
	if err != nil {
		return domain.Prompt{}, err
	}
	if !canViewPrompt(source, user) {
		return domain.Prompt{}, apperrors.E(apperrors.KindNotFound, "prompt not found")
	}
	if source.UserID == user.ID {
		return domain.Prompt{}, apperrors.E(apperrors.KindInvalidInput, "cannot fork your own prompt")
	}

	forkID, err := id.NewID()
	if err != nil {
		return domain.Prompt{}, apperrors.Wrap(apperrors.KindUnknown, "generate prompt id", err)
	}
	now := s.now()
	fork := source
	fork.ID = forkID
	fork.UserID = user.ID
	fork.SharingLevel = domain.SharingPrivate
	fork.IsFork = true
	fork.ForkedFromID = source.ID
	fork.VersionNumber = source.VersionNumber + 1
	fork.UsageCount = 0
	fork.ForkCount = 0
	fork.CreatedAt = now
	fork.UpdatedAt = now
	if err := s.store.CreatePrompt(ctx, fork); err != nil {
		return domain.Prompt{}, apperrors.Wrap(apperrors.KindUnavailable, "fork prompt", err)
	}
	if err := s.store.IncrementPromptForks(ctx, source.ID); err != nil {
		log.Printf("increment prompt fork count for %s: %v", source.ID, err)
	}
	return fork, nil
}

// CreateCollectionInput carries a new curated collection.
type CreateCollectionInput struct {
	Name        string
	Description string
	ResourceIDs []string
	PromptIDs   []string
}

// CreateCollection makes a curated grouping of resources and prompts.
// Admins create platform-owned collections; everyone else owns theirs.
func (s *Service) CreateCollection(ctx context.Context, user domain.User, input CreateCollectionInput) (domain.Collection, error) {
	if strings.TrimSpace(input.Name) == "" {
		return domain.Collection{}, apperrors.E(apperrors.KindInvalidInput, "name is required")
	}

	owner := user.ID
	if user.Role == domain.RoleAdmin {
		owner = domain.SystemOwnerID
	}
	collectionID, err := id.NewID()
	if err != nil {
		return domain.Collection{}, apperrors.Wrap(apperrors.KindUnknown, "generate collection id", err)
	}
	now := s.now()
	collection := domain.Collection{
		ID:          collectionID,
		Name:        input.Name,
		Description: input.Description,
		OwnerID:     owner,
		ResourceIDs: input.ResourceIDs,
		PromptIDs:   input.PromptIDs,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateCollection(ctx, collection); err != nil {
		return domain.Collection{}, apperrors.Wrap(apperrors.KindUnavailable, "create collection", err)
	}
	return collection, nil
}

// GetCollection returns one collection.
func (s *Service) GetCollection(ctx context.Context, collectionID string) (domain.Collection, error) {
	collection, err := s.store.GetCollection(ctx, collectionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return domain.Collection{}, apperrors.E(apperrors.KindNotFound, "collection not found")
		}
		return domain.Collection{}, apperrors.Wrap(apperrors.KindUnavailable, "load collection", err)
	}
	return collection, nil
}

// ListCollections returns every collection, newest first.
func (s *Service) ListCollections(ctx context.Context) ([]domain.Collection, error) {
	collections, err := s.store.ListCollections(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindUnavailable, "list collections", err)
	}
	return collections, nil
}

// UpdateCollectionInput updates collection fields. Nil pointers leave
// the current value untouched.
type UpdateCollectionInput struct {
	Name        *string
	Description *string
	ResourceIDs *[]string
	PromptIDs   *[]string
}

func canEditCollection(collection domain.Collection, user domain.User) bool {
	if collection.OwnerID == user.ID {
		return true
	}
	return collection.OwnerID == domain.SystemOwnerID && user.Role == domain.RoleAdmin
}

// UpdateCollection edits a collection. The owner may edit; admins may
// edit platform-owned collections.
func (s *Service) UpdateCollection(ctx context.Context, user domain.User, collectionID string, input UpdateCollectionInput) (domain.Collection, error) {
	collection, err := s.GetCollection(ctx, collectionID)
	if err != nil {
		return domain.Collection{}, err
	}
	if !canEditCollection(collection, user) {
		return domain.Collection{}, apperrors.E(apperrors.KindForbidden, "not the collection owner")
	}

	if input.Name != nil {
		collection.Name = *input.Name
	}
	if input.Description != nil {
		collection.Description = *input.Description
	}
	if input.ResourceIDs != nil {
		collection.ResourceIDs = *input.ResourceIDs
	}
	if input.PromptIDs != nil {
		collection.PromptIDs = *input.PromptIDs
	}
	collection.UpdatedAt = s.now()
	if err := s.store.UpdateCollection(ctx, collection); err != nil {
		return domain.Collection{}, apperrors.Wrap(apperrors.KindUnavailable, "update collection", err)
	}
	return collection, nil
}

// DeleteCollection removes a collection under the same ownership rules
// as UpdateCollection.
func (s *Service) DeleteCollection(ctx context.Context, user domain.User, collectionID string) error {
	collection, err := s.GetCollection(ctx, collectionID)
	if err != nil {
		return err
	}
	if !canEditCollection(collection, user) {
		return apperrors.E(apperrors.KindForbidden, "not the collection owner")
	}
	if err := s.store.DeleteCollection(ctx, collectionID); err != nil {
		return apperrors.Wrap(apperrors.KindUnavailable, "delete collection", err)
	}
	return nil
}
