// Package storage defines persistence contracts for the exchange service.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/sommlab/ai.exchange/internal/services/exchange/domain"
)

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict indicates a uniqueness constraint was violated.
	ErrConflict = errors.New("record conflict")
)

// Resource list sort orders.
const (
	SortNewest    = "newest"
	SortPopular   = "popular"
	SortMostTried = "most_tried"
)

// ResourceFilter narrows and orders resource listings. Filters that
// operate on resource JSON columns (tags, tools) are applied by the
// caller on the returned set; AuthorDisciplines matches any of the
// given disciplines against the author's profile.
type ResourceFilter struct {
	Type              domain.ResourceType
	Status            domain.ResourceStatus
	Discipline        string
	AuthorDisciplines []string
	Search            string
	IncludeHidden     bool
	TopLevelOnly      bool
	SortBy            string
}

// PromptFilter narrows prompt listings to entries visible to ViewerID.
type PromptFilter struct {
	ViewerID string
	Search   string
}

// EngagementTotals aggregates counters across every resource.
type EngagementTotals struct {
	Views    int
	Saves    int
	Tried    int
	Forks    int
	Comments int
	Viewers  int
}

// UserStore persists platform members.
type UserStore interface {
	CreateUser(ctx context.Context, user domain.User) error
	GetUser(ctx context.Context, id string) (domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)
	GetUsersByIDs(ctx context.Context, ids []string) (map[string]domain.User, error)
	ListUsers(ctx context.Context, skip, limit int) ([]domain.User, error)
	CountUsers(ctx context.Context) (int, error)
	UpdateUser(ctx context.Context, user domain.User) error
	DeleteUser(ctx context.Context, id string) error
}

// CredentialStore persists single-use verification and reset codes.
type CredentialStore interface {
	CreateEmailVerification(ctx context.Context, verification domain.EmailVerification) error
	GetEmailVerification(ctx context.Context, userID, code string) (domain.EmailVerification, error)
	MarkEmailVerificationUsed(ctx context.Context, id string) error
	CreatePasswordReset(ctx context.Context, reset domain.PasswordReset) error
	GetPasswordReset(ctx context.Context, userID, code string) (domain.PasswordReset, error)
	MarkPasswordResetUsed(ctx context.Context, id string) error
}

// ResourceStore persists shared content items.
type ResourceStore interface {
	CreateResource(ctx context.Context, resource domain.Resource) error
	GetResource(ctx context.Context, id string) (domain.Resource, error)
	UpdateResource(ctx context.Context, resource domain.Resource) error
	DeleteResource(ctx context.Context, id string) error
	ListResources(ctx context.Context, filter ResourceFilter) ([]domain.Resource, error)
	ListSolutions(ctx context.Context, parentID string, includeHidden bool) ([]domain.Resource, error)
	CountResources(ctx context.Context) (int, error)
	CountResourcesByUser(ctx context.Context, userID string) (int, error)
}

// EngagementStore persists views, saves, tries, and derived counters.
type EngagementStore interface {
	RecordView(ctx context.Context, resourceID, viewerID string, at time.Time) error
	RecordTried(ctx context.Context, userID, resourceID string, at time.Time) (int, error)
	ToggleSave(ctx context.Context, userID, resourceID string, at time.Time) (bool, int, error)
	IsSaved(ctx context.Context, userID, resourceID string) (bool, error)
	GetAnalytics(ctx context.Context, resourceID string) (domain.ResourceAnalytics, error)
	AnalyticsByResourceIDs(ctx context.Context, ids []string) (map[string]domain.ResourceAnalytics, error)
	ListSavedResourceIDs(ctx context.Context, userID string) ([]string, error)
	TopResourcesByViews(ctx context.Context, limit int) ([]domain.ResourceAnalytics, error)
	TotalEngagement(ctx context.Context) (EngagementTotals, error)
	IncrementForkCount(ctx context.Context, resourceID string) error
	AdjustCommentCount(ctx context.Context, resourceID string, delta int) error
	IncrementHelpfulCount(ctx context.Context, resourceID string) error
}

// SubscriptionStore persists tag subscriptions.
type SubscriptionStore interface {
	CreateSubscription(ctx context.Context, userID, tag string, at time.Time) (domain.Subscription, error)
	DeleteSubscription(ctx context.Context, userID, tag string) error
	ListSubscriptions(ctx context.Context, userID string) ([]domain.Subscription, error)
	ListSubscribersByTags(ctx context.Context, tags []string) ([]domain.User, error)
}

// CommentStore persists resource discussion threads.
type CommentStore interface {
	CreateComment(ctx context.Context, comment domain.Comment) error
	GetComment(ctx context.Context, id string) (domain.Comment, error)
	ListComments(ctx context.Context, resourceID string) ([]domain.Comment, error)
	UpdateComment(ctx context.Context, comment domain.Comment) error
	DeleteComment(ctx context.Context, id string) error
	IncrementCommentHelpful(ctx context.Context, id string) (int, error)
}

// PromptStore persists prompt-library entries.
type PromptStore interface {
	CreatePrompt(ctx context.Context, prompt domain.Prompt) error
	GetPrompt(ctx context.Context, id string) (domain.Prompt, error)
	ListPrompts(ctx context.Context, filter PromptFilter) ([]domain.Prompt, error)
	UpdatePrompt(ctx context.Context, prompt domain.Prompt) error
	DeletePrompt(ctx context.Context, id string) error
	IncrementPromptUsage(ctx context.Context, id string) (int, error)
	IncrementPromptForks(ctx context.Context, id string) error
}

// CollectionStore persists curated resource groupings.
type CollectionStore interface {
	CreateCollection(ctx context.Context, collection domain.Collection) error
	GetCollection(ctx context.Context, id string) (domain.Collection, error)
	ListCollections(ctx context.Context) ([]domain.Collection, error)
	UpdateCollection(ctx context.Context, collection domain.Collection) error
	DeleteCollection(ctx context.Context, id string) error
}

// SettingStore persists runtime configuration overrides.
type SettingStore interface {
	UpsertSetting(ctx context.Context, setting domain.Setting) error
	GetSetting(ctx context.Context, key string) (domain.Setting, error)
	ListSettings(ctx context.Context) ([]domain.Setting, error)
}

// Store is the full persistence surface of the exchange service.
type Store interface {
	UserStore
	CredentialStore
	ResourceStore
	EngagementStore
	SubscriptionStore
	CommentStore
	PromptStore
	CollectionStore
	SettingStore

	Ping(ctx context.Context) error
	Close() error
}
