// Package domain defines the entities of the AI Exchange platform.
package domain

import (
	"sort"
	"strings"
	"time"
)

// UserRole classifies platform users.
type UserRole string

const (
	RoleStaff UserRole = "STAFF"
	RoleAdmin UserRole = "ADMIN"
)

// ValidUserRole reports whether value is a known role.
func ValidUserRole(value string) bool {
	switch UserRole(value) {
	case RoleStaff, RoleAdmin:
		return true
	}
	return false
}

// ResourceType classifies shared content items.
type ResourceType string

const (
	TypeRequest    ResourceType = "REQUEST"
	TypeUseCase    ResourceType = "USE_CASE"
	TypePrompt     ResourceType = "PROMPT"
	TypeTool       ResourceType = "TOOL"
	TypePolicy     ResourceType = "POLICY"
	TypePaper      ResourceType = "PAPER"
	TypeProject    ResourceType = "PROJECT"
	TypeConference ResourceType = "CONFERENCE"
	TypeDataset    ResourceType = "DATASET"
)

// ValidResourceType reports whether value is a known resource type.
func ValidResourceType(value string) bool {
	switch ResourceType(value) {
	case TypeRequest, TypeUseCase, TypePrompt, TypeTool, TypePolicy,
		TypePaper, TypeProject, TypeConference, TypeDataset:
		return true
	}
	return false
}

// ResourceStatus tracks whether a request has been solved.
type ResourceStatus string

const (
	StatusOpen   ResourceStatus = "OPEN"
	StatusSolved ResourceStatus = "SOLVED"
)

// ValidResourceStatus reports whether value is a known status.
func ValidResourceStatus(value string) bool {
	switch ResourceStatus(value) {
	case StatusOpen, StatusSolved:
		return true
	}
	return false
}

// SharingLevel controls prompt visibility.
type SharingLevel string

const (
	SharingPrivate    SharingLevel = "PRIVATE"
	SharingDepartment SharingLevel = "DEPARTMENT"
	SharingSchool     SharingLevel = "SCHOOL"
	SharingPublic     SharingLevel = "PUBLIC"
)

// ValidSharingLevel reports whether value is a known sharing level.
func ValidSharingLevel(value string) bool {
	switch SharingLevel(value) {
	case SharingPrivate, SharingDepartment, SharingSchool, SharingPublic:
		return true
	}
	return false
}

// CollaborationStatus signals whether an author wants to work with others.
type CollaborationStatus string

const (
	CollabNone    CollaborationStatus = ""
	CollabSeeking CollaborationStatus = "SEEKING"
	CollabOpen    CollaborationStatus = "OPEN"
	CollabClosed  CollaborationStatus = "CLOSED"
)

// ValidCollaborationStatus reports whether value is a known status. The
// empty string means the author has not set one.
func ValidCollaborationStatus(value string) bool {
	switch CollaborationStatus(value) {
	case CollabNone, CollabSeeking, CollabOpen, CollabClosed:
		return true
	}
	return false
}

// SystemOwnerID marks collections curated by the platform rather than a user.
const SystemOwnerID = "SYSTEM"

// NotificationPrefs holds a user's email notification opt-ins.
type NotificationPrefs struct {
	NotifyRequests  bool `json:"notify_requests"`
	NotifySolutions bool `json:"notify_solutions"`
}

// DefaultNotificationPrefs returns the opt-ins applied at registration.
func DefaultNotificationPrefs() NotificationPrefs {
	return NotificationPrefs{NotifyRequests: true, NotifySolutions: false}
}

// User is a registered platform member.
type User struct {
	ID             string
	Email          string
	HashedPassword string
	FullName       string
	Role           UserRole
	IsActive       bool
	IsVerified     bool
	IsApproved     bool
	Disciplines    []string
	Prefs          NotificationPrefs
	CreatedAt      time.Time
}

// EmailVerification is a single-use registration confirmation code.
type EmailVerification struct {
	ID        string
	UserID    string
	Code      string
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}

// Expired reports whether the verification code can no longer be redeemed.
func (v EmailVerification) Expired(now time.Time) bool {
	return now.After(v.ExpiresAt)
}

// PasswordReset is a single-use password recovery code.
type PasswordReset struct {
	ID        string
	UserID    string
	Code      string
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}

// Expired reports whether the reset code can no longer be redeemed.
func (r PasswordReset) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// Valid reports whether the reset code is unused and unexpired.
func (r PasswordReset) Valid(now time.Time) bool {
	return !r.Used && !r.Expired(now)
}

// Resource is a user-submitted content item: a request, use case, prompt,
// tool, policy, or similar artifact with flexible metadata.
type Resource struct {
	ID                 string
	UserID             string
	ParentID           string // parent request when this is a solution
	Type               ResourceType
	Status             ResourceStatus
	Title              string
	ContentText        string
	ShadowDescription  string // admin-provided improved description
	ContentMeta        map[string]any
	IsAnonymous        bool
	IsVerified         bool
	IsHidden           bool
	SystemTags         []string // extracted by the keyword tagger
	UserTags           []string // added by the author
	ShadowTags         []string // added by admins
	Discipline         string
	AuthorTitle        string
	ToolsUsed          map[string][]string // tool category -> tool names
	Collaborators      []string            // collaborator emails, first is primary contact
	TimeSavedValue     float64
	TimeSavedFrequency string // per_week, per_month, per_semester
	EvidenceOfSuccess  []string
	IsFork             bool
	ForkedFromID       string
	VersionNumber      int
	QuickSummary       string
	WorkflowSteps      []string
	ExamplePrompt      string
	EthicsLimitations  string
	CollabStatus       CollaborationStatus
	OpenTo             []string // collaboration formats the author welcomes
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// AllTags returns the deduplicated union of system, user, and shadow tags.
func (r Resource) AllTags() []string {
	seen := make(map[string]bool)
	var tags []string
	for _, set := range [][]string{r.SystemTags, r.UserTags, r.ShadowTags} {
		for _, tag := range set {
			tag = strings.TrimSpace(tag)
			if tag == "" || seen[tag] {
				continue
			}
			seen[tag] = true
			tags = append(tags, tag)
		}
	}
	sort.Strings(tags)
	return tags
}

// HasTag reports whether any tag set contains the given tag.
func (r Resource) HasTag(tag string) bool {
	for _, set := range [][]string{r.SystemTags, r.UserTags, r.ShadowTags} {
		for _, candidate := range set {
			if candidate == tag {
				return true
			}
		}
	}
	return false
}

// Subscription is a user's opt-in to notifications for one tag.
type Subscription struct {
	ID        int64
	UserID    string
	Tag       string
	CreatedAt time.Time
}

// Comment is a discussion entry on a resource, optionally threaded.
type Comment struct {
	ID              string
	ResourceID      string
	ParentCommentID string
	UserID          string
	Content         string
	HelpfulCount    int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Prompt is a reusable prompt-library entry.
type Prompt struct {
	ID            string
	UserID        string
	Title         string
	PromptText    string
	Description   string
	Variables     []string // template variables like {{course}}
	SharingLevel  SharingLevel
	IsFork        bool
	ForkedFromID  string
	VersionNumber int
	UsageCount    int
	ForkCount     int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Collection is a curated group of resources and prompts.
type Collection struct {
	ID              string
	Name            string
	Description     string
	OwnerID         string // user id or SystemOwnerID
	ResourceIDs     []string
	PromptIDs       []string
	SubscriberCount int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ResourceAnalytics aggregates engagement counters for one resource.
type ResourceAnalytics struct {
	ResourceID    string
	ViewCount     int
	UniqueViewers int
	SaveCount     int
	TriedCount    int
	ForkCount     int
	CommentCount  int
	HelpfulCount  int
	LastViewed    *time.Time
}

// SavedResource records that a user bookmarked a resource.
type SavedResource struct {
	UserID     string
	ResourceID string
	SavedAt    time.Time
}

// TriedResource records that a user tried implementing a resource.
type TriedResource struct {
	UserID     string
	ResourceID string
	TriedAt    time.Time
}

// Setting is one runtime configuration override.
type Setting struct {
	Key       string
	Value     string
	Secret    bool
	UpdatedAt time.Time
}
