package app

import (
	"context"
	"errors"
	"log"
	"strings"

	apperrors "github.com/sommlab/ai.exchange/internal/platform/errors"
	"github.com/sommlab/ai.exchange/internal/platform/id"
	"github.com/sommlab/ai.exchange/internal/services/exchange/domain"
	"github.com/sommlab/ai.exchange/internal/services/exchange/render"
	"github.com/sommlab/ai.exchange/internal/services/exchange/storage"
	"github.com/sommlab/ai.exchange/internal/services/exchange/tagger"
)

// List pagination bounds.
const (
	defaultListLimit = 10
	maxListLimit     = 1000
)

// ResourceView is a resource joined with its author label and counters.
type ResourceView struct {
	Resource    domain.Resource
	AuthorName  string
	AuthorEmail string // empty when the author is anonymous
	Analytics   domain.ResourceAnalytics
}

// CreateResourceInput is the payload for a new resource.
type CreateResourceInput struct {
	ParentID           string
	Type               domain.ResourceType
	Title              string
	ContentText        string
	ContentMeta        map[string]any
	IsAnonymous        bool
	UserTags           []string
	Discipline         string
	AuthorTitle        string
	ToolsUsed          map[string][]string
	Collaborators      []string
	TimeSavedValue     float64
	TimeSavedFrequency string
	EvidenceOfSuccess  []string
	QuickSummary       string
	WorkflowSteps      []string
	ExamplePrompt      string
	EthicsLimitations  string
	CollabStatus       domain.CollaborationStatus
	OpenTo             []string
}

// CreateResource stores a new resource, derives its system tags, and
// fires the notifications the new content triggers: solutions flip
// their parent request to solved and alert the requester, and new
// requests alert tag subscribers.
func (s *Service) CreateResource(ctx context.Context, author domain.User, input CreateResourceInput) (domain.Resource, error) {
	if !domain.ValidResourceType(string(input.Type)) {
		return domain.Resource{}, apperrors.E(apperrors.KindInvalidInput, "unknown resource type")
	}
	if strings.TrimSpace(input.Title) == "" {
		return domain.Resource{}, apperrors.E(apperrors.KindInvalidInput, "title is required")
	}

	var parent domain.Resource
	if input.ParentID != "" {
		var err error
		parent, err = s.store.GetResource(ctx, input.ParentID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return domain.Resource{}, apperrors.E(apperrors.KindNotFound, "parent resource not found")
			}
			return domain.Resource{}, apperrors.Wrap(apperrors.KindUnavailable, "load parent resource", err)
		}
		if parent.Type != domain.TypeRequest {
			return domain.Resource{}, apperrors.E(apperrors.KindInvalidInput, "only requests can have solutions")
		}
	}

	resourceID, err := id.NewID()
	if err != nil {
		return domain.Resource{}, apperrors.Wrap(apperrors.KindUnknown, "generate resource id", err)
	}

	now := s.now().UTC()
	resource := domain.Resource{
		ID:                 resourceID,
		UserID:             author.ID,
		ParentID:           input.ParentID,
		Type:               input.Type,
		Status:             domain.StatusOpen,
		Title:              strings.TrimSpace(input.Title),
		ContentText:        input.ContentText,
		ContentMeta:        input.ContentMeta,
		IsAnonymous:        input.IsAnonymous,
		SystemTags:         tagger.Extract(input.Title + " " + input.ContentText),
		UserTags:           input.UserTags,
		Discipline:         input.Discipline,
		AuthorTitle:        input.AuthorTitle,
		ToolsUsed:          input.ToolsUsed,
		Collaborators:      input.Collaborators,
		TimeSavedValue:     input.TimeSavedValue,
		TimeSavedFrequency: input.TimeSavedFrequency,
		EvidenceOfSuccess:  input.EvidenceOfSuccess,
		QuickSummary:       input.QuickSummary,
		WorkflowSteps:      input.WorkflowSteps,
		ExamplePrompt:      input.ExamplePrompt,
		EthicsLimitations:  input.EthicsLimitations,
		CollabStatus:       input.CollabStatus,
		OpenTo:             input.OpenTo,
		VersionNumber:      1,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.store.CreateResource(ctx, resource); err != nil {
		return domain.Resource{}, apperrors.Wrap(apperrors.KindUnavailable, "create resource", err)
	}

	if parent.ID != "" {
		parent.Status = domain.StatusSolved
		if err := s.store.UpdateResource(ctx, parent); err != nil {
			return domain.Resource{}, apperrors.Wrap(apperrors.KindUnavailable, "mark request solved", err)
		}
		s.notifySolution(ctx, resource, parent)
	}

	if resource.ParentID == "" && resource.Type == domain.TypeRequest {
		s.notifyRequest(ctx, resource)
	}

	return resource, nil
}

func (s *Service) notifySolution(ctx context.Context, solution, parent domain.Resource) {
	requester, err := s.store.GetUser(ctx, parent.UserID)
	if err != nil {
		log.Printf("load requester for solution notice: %v", err)
		return
	}
	if !requester.Prefs.NotifySolutions {
		return
	}
	email := render.NewSolution(s.loc, requester, solution, s.cfg.BasePath)
	if err := s.mail.Send(ctx, requester.Email, email.Subject, email.Body); err != nil {
		log.Printf("send solution notice to %s: %v", requester.Email, err)
	}
}

func (s *Service) notifyRequest(ctx context.Context, request domain.Resource) {
	subscribers, err := s.store.ListSubscribersByTags(ctx, request.SystemTags)
	if err != nil {
		log.Printf("load subscribers for request notice: %v", err)
		return
	}
	for _, subscriber := range subscribers {
		if subscriber.ID == request.UserID {
			continue
		}
		if !subscriber.Prefs.NotifyRequests {
			continue
		}
		email := render.NewRequest(s.loc, subscriber, request, s.cfg.BasePath)
		if err := s.mail.Send(ctx, subscriber.Email, email.Subject, email.Body); err != nil {
			log.Printf("send request notice to %s: %v", subscriber.Email, err)
		}
	}
}

// ListResourcesInput narrows and pages the resource catalog.
type ListResourcesInput struct {
	Type              domain.ResourceType
	Status            domain.ResourceStatus
	Tag               string
	Search            string
	Discipline        string
	AuthorDisciplines []string // author's disciplines, any match
	Tools             []string // tool categories, any match
	MinTimeSaved      *float64
	SortBy            string
	Skip              int
	Limit             int
}

// ListResources returns visible resources with author and engagement
// info. Tag, tool, and time-saved filters operate on JSON fields and
// are applied after the SQL filters.
func (s *Service) ListResources(ctx context.Context, input ListResourcesInput) ([]ResourceView, error) {
	if input.Type != "" && !domain.ValidResourceType(string(input.Type)) {
		return nil, apperrors.E(apperrors.KindInvalidInput, "unknown resource type")
	}
	if input.Status != "" && !domain.ValidResourceStatus(string(input.Status)) {
		return nil, apperrors.E(apperrors.KindInvalidInput, "unknown resource status")
	}
	switch input.SortBy {
	case "", storage.SortNewest, storage.SortPopular, storage.SortMostTried:
	default:
		return nil, apperrors.E(apperrors.KindInvalidInput, "unknown sort order")
	}

	resources, err := s.store.ListResources(ctx, storage.ResourceFilter{
		Type:              input.Type,
		Status:            input.Status,
		Discipline:        input.Discipline,
		AuthorDisciplines: input.AuthorDisciplines,
		Search:            input.Search,
		SortBy:            input.SortBy,
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindUnavailable, "list resources", err)
	}

	filtered := resources[:0:0]
	for _, resource := range resources {
		if input.Tag != "" && !resource.HasTag(input.Tag) {
			continue
		}
		if len(input.Tools) > 0 && !hasAnyToolCategory(resource, input.Tools) {
			continue
		}
		if input.MinTimeSaved != nil && resource.TimeSavedValue < *input.MinTimeSaved {
			continue
		}
		filtered = append(filtered, resource)
	}

	filtered = paginate(filtered, input.Skip, input.Limit)
	return s.buildViews(ctx, filtered)
}

func hasAnyToolCategory(resource domain.Resource, categories []string) bool {
	for _, category := range categories {
		if _, ok := resource.ToolsUsed[strings.TrimSpace(category)]; ok {
			return true
		}
	}
	return false
}

func paginate(resources []domain.Resource, skip, limit int) []domain.Resource {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if skip >= len(resources) {
		return nil
	}
	resources = resources[skip:]
	if len(resources) > limit {
		resources = resources[:limit]
	}
	return resources
}

func (s *Service) buildViews(ctx context.Context, resources []domain.Resource) ([]ResourceView, error) {
	ids := make([]string, 0, len(resources))
	authorIDs := make([]string, 0, len(resources))
	for _, resource := range resources {
		ids = append(ids, resource.ID)
		authorIDs = append(authorIDs, resource.UserID)
	}

	authors, err := s.store.GetUsersByIDs(ctx, authorIDs)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindUnavailable, "load authors", err)
	}
	analytics, err := s.store.AnalyticsByResourceIDs(ctx, ids)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindUnavailable, "load analytics", err)
	}

	views := make([]ResourceView, 0, len(resources))
	for _, resource := range resources {
		views = append(views, s.newView(resource, authors, analytics))
	}
	return views, nil
}

func (s *Service) newView(resource domain.Resource, authors map[string]domain.User, analytics map[string]domain.ResourceAnalytics) ResourceView {
	view := ResourceView{Resource: resource, AuthorName: "Unknown"}
	if author, ok := authors[resource.UserID]; ok {
		if resource.IsAnonymous {
			view.AuthorName = render.MaskedAuthor(s.loc)
		} else {
			view.AuthorName = author.FullName
			view.AuthorEmail = author.Email
		}
	}
	if counters, ok := analytics[resource.ID]; ok {
		view.Analytics = counters
	} else {
		view.Analytics = domain.ResourceAnalytics{ResourceID: resource.ID}
	}
	return view
}

// GetResource returns one resource with author info. Hidden resources
// are visible to admins only.
func (s *Service) GetResource(ctx context.Context, viewer domain.User, resourceID string) (ResourceView, error) {
	resource, err := s.store.GetResource(ctx, resourceID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ResourceView{}, apperrors.E(apperrors.KindNotFound, "resource not found")
		}
		return ResourceView{}, apperrors.Wrap(apperrors.KindUnavailable, "load resource", err)
	}
	if resource.IsHidden && viewer.Role != domain.RoleAdmin {
		return ResourceView{}, apperrors.E(apperrors.KindNotFound, "resource not found")
	}

	views, err := s.buildViews(ctx, []domain.Resource{resource})
	if err != nil {
		return ResourceView{}, err
	}
	return views[0], nil
}

// ListSolutions returns the visible solutions posted under a request,
// newest first. Only requests carry solutions.
func (s *Service) ListSolutions(ctx context.Context, resourceID string) ([]ResourceView, error) {
	resource, err := s.store.GetResource(ctx, resourceID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperrors.E(apperrors.KindNotFound, "resource not found")
		}
		return nil, apperrors.Wrap(apperrors.KindUnavailable, "load resource", err)
	}
	if resource.Type != domain.TypeRequest {
		return nil, apperrors.E(apperrors.KindInvalidInput, "only requests have solutions")
	}
	solutions, err := s.store.ListSolutions(ctx, resourceID, false)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindUnavailable, "list solutions", err)
	}
	return s.buildViews(ctx, solutions)
}

// UpdateResourceInput carries the owner-editable fields.
type UpdateResourceInput struct {
	Title       *string
	ContentText *string
	ContentMeta *map[string]any
	UserTags    *[]string
}

// UpdateResource applies the owner's changes to their resource.
func (s *Service) UpdateResource(ctx context.Context, user domain.User, resourceID string, input UpdateResourceInput) (domain.Resource, error) {
	resource, err := s.store.GetResource(ctx, resourceID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return domain.Resource{}, apperrors.E(apperrors.KindNotFound, "resource not found")
		}
		return domain.Resource{}, apperrors.Wrap(apperrors.KindUnavailable, "load resource", err)
	}
	if resource.UserID != user.ID {
		return domain.Resource{}, apperrors.E(apperrors.KindForbidden, "only resource owner can update")
	}

	if input.Title != nil {
		resource.Title = strings.TrimSpace(*input.Title)
	}
	if input.ContentText != nil {
		resource.ContentText = *input.ContentText
	}
	if input.ContentMeta != nil {
		resource.ContentMeta = *input.ContentMeta
	}
	if input.UserTags != nil {
		resource.UserTags = *input.UserTags
	}

	if err := s.store.UpdateResource(ctx, resource); err != nil {
		return domain.Resource{}, apperrors.Wrap(apperrors.KindUnavailable, "update resource", err)
	}
	return s.store.GetResource(ctx, resourceID)
}

// DeleteResource removes an owner's resource. Deleting the last visible
// solution under a request reopens it.
func (s *Service) DeleteResource(ctx context.Context, user domain.User, resourceID string) error {
	resource, err := s.store.GetResource(ctx, resourceID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperrors.E(apperrors.KindNotFound, "resource not found")
		}
		return apperrors.Wrap(apperrors.KindUnavailable, "load resource", err)
	}
	if resource.UserID != user.ID {
		return apperrors.E(apperrors.KindForbidden, "only resource owner can delete")
	}

	if resource.ParentID != "" {
		siblings, err := s.store.ListSolutions(ctx, resource.ParentID, false)
		if err != nil {
			return apperrors.Wrap(apperrors.KindUnavailable, "list sibling solutions", err)
		}
		remaining := 0
		for _, sibling := range siblings {
			if sibling.ID != resource.ID {
				remaining++
			}
		}
		if remaining == 0 {
			parent, err := s.store.GetResource(ctx, resource.ParentID)
			if err == nil && parent.Status == domain.StatusSolved {
				parent.Status = domain.StatusOpen
				if err := s.store.UpdateResource(ctx, parent); err != nil {
					return apperrors.Wrap(apperrors.KindUnavailable, "reopen parent request", err)
				}
			}
		}
	}

	if err := s.store.DeleteResource(ctx, resourceID); err != nil {
		return apperrors.Wrap(apperrors.KindUnavailable, "delete resource", err)
	}
	return nil
}

// ForkResource copies someone else's resource into the user's account
// so they can adapt it, and credits the original with a fork.
func (s *Service) ForkResource(ctx context.Context, user domain.User, resourceID string) (domain.Resource, error) {
	source, err := s.store.GetResource(ctx, resourceID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return domain.Resource{}, apperrors.E(apperrors.KindNotFound, "resource not found")
		}
		return domain.Resource{}, apperrors.Wrap(apperrors.KindUnavailable, "load resource", err)
	}
	if source.IsHidden {
		return domain.Resource{}, apperrors.E(apperrors.KindNotFound, "resource not found")
	}
	if source.UserID == user.ID {
		return domain.Resource{}, apperrors.E(apperrors.KindInvalidInput, "cannot fork your own resource")
	}

	forkID, err := id.NewID()
	if err != nil {
		return domain.Resource{}, apperrors.Wrap(apperrors.KindUnknown, "generate fork id", err)
	}

	now := s.now().UTC()
	fork := source
	fork.ID = forkID
	fork.UserID = user.ID
	fork.ParentID = ""
	fork.Status = domain.StatusOpen
	fork.IsAnonymous = false
	fork.IsVerified = false
	fork.IsHidden = false
	fork.IsFork = true
	fork.ForkedFromID = source.ID
	fork.VersionNumber = source.VersionNumber + 1
	fork.CreatedAt = now
	fork.UpdatedAt = now

	if err := s.store.CreateResource(ctx, fork); err != nil {
		return domain.Resource{}, apperrors.Wrap(apperrors.KindUnavailable, "create fork", err)
	}
	if err := s.store.IncrementForkCount(ctx, source.ID); err != nil {
		log.Printf("increment fork count for %s: %v", source.ID, err)
	}
	return fork, nil
}
