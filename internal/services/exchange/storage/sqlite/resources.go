package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sommlab/ai.exchange/internal/services/exchange/domain"
	"github.com/sommlab/ai.exchange/internal/services/exchange/storage"
)

func normalizeResource(resource domain.Resource) (domain.Resource, error) {
	resource.ID = strings.TrimSpace(resource.ID)
	if resource.ID == "" {
		return resource, fmt.Errorf("resource id is required")
	}
	resource.UserID = strings.TrimSpace(resource.UserID)
	if resource.UserID == "" {
		return resource, fmt.Errorf("resource user id is required")
	}
	if !domain.ValidResourceType(string(resource.Type)) {
		return resource, fmt.Errorf("resource type %q is invalid", resource.Type)
	}
	if resource.Status == "" {
		resource.Status = domain.StatusOpen
	}
	if !domain.ValidResourceStatus(string(resource.Status)) {
		return resource, fmt.Errorf("resource status %q is invalid", resource.Status)
	}
	resource.Title = strings.TrimSpace(resource.Title)
	if resource.Title == "" {
		return resource, fmt.Errorf("resource title is required")
	}
	if !domain.ValidCollaborationStatus(string(resource.CollabStatus)) {
		return resource, fmt.Errorf("resource collaboration status %q is invalid", resource.CollabStatus)
	}
	if resource.VersionNumber <= 0 {
		resource.VersionNumber = 1
	}
	now := time.Now().UTC()
	if resource.CreatedAt.IsZero() {
		resource.CreatedAt = now
	}
	if resource.UpdatedAt.IsZero() {
		resource.UpdatedAt = resource.CreatedAt
	}
	return resource, nil
}

type resourceRow struct {
	parentID      sql.NullString
	contentMeta   string
	systemTags    string
	userTags      string
	shadowTags    string
	toolsUsed     string
	collaborators string
	evidence      string
	workflow      string
	openTo        string
	forkedFromID  sql.NullString
}

func marshalResourceJSON(resource domain.Resource) (resourceRow, error) {
	var row resourceRow
	var err error

	row.parentID = nullableString(resource.ParentID)
	row.forkedFromID = nullableString(resource.ForkedFromID)

	meta := resource.ContentMeta
	if meta == nil {
		meta = map[string]any{}
	}
	encodedMeta, err := json.Marshal(meta)
	if err != nil {
		return row, fmt.Errorf("marshal content meta: %w", err)
	}
	row.contentMeta = string(encodedMeta)

	tools := resource.ToolsUsed
	if tools == nil {
		tools = map[string][]string{}
	}
	encodedTools, err := json.Marshal(tools)
	if err != nil {
		return row, fmt.Errorf("marshal tools used: %w", err)
	}
	row.toolsUsed = string(encodedTools)

	if row.systemTags, err = marshalStrings(resource.SystemTags); err != nil {
		return row, err
	}
	if row.userTags, err = marshalStrings(resource.UserTags); err != nil {
		return row, err
	}
	if row.shadowTags, err = marshalStrings(resource.ShadowTags); err != nil {
		return row, err
	}
	if row.collaborators, err = marshalStrings(resource.Collaborators); err != nil {
		return row, err
	}
	if row.evidence, err = marshalStrings(resource.EvidenceOfSuccess); err != nil {
		return row, err
	}
	if row.workflow, err = marshalStrings(resource.WorkflowSteps); err != nil {
		return row, err
	}
	if row.openTo, err = marshalStrings(resource.OpenTo); err != nil {
		return row, err
	}
	return row, nil
}

// CreateResource persists one content item.
func (s *Store) CreateResource(ctx context.Context, resource domain.Resource) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	normalized, err := normalizeResource(resource)
	if err != nil {
		return err
	}
	row, err := marshalResourceJSON(normalized)
	if err != nil {
		return err
	}

	_, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO resources (
    id, user_id, parent_id, type, status, title, content_text, shadow_description,
    content_meta, is_anonymous, is_verified, is_hidden,
    system_tags, user_tags, shadow_tags,
    discipline, author_title, tools_used, collaborators,
    time_saved_value, time_saved_frequency, evidence_of_success,
    is_fork, forked_from_id, version_number,
    quick_summary, workflow_steps, example_prompt, ethics_limitations,
    collab_status, open_to,
    created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
		normalized.ID,
		normalized.UserID,
		row.parentID,
		string(normalized.Type),
		string(normalized.Status),
		normalized.Title,
		normalized.ContentText,
		normalized.ShadowDescription,
		row.contentMeta,
		boolToInt(normalized.IsAnonymous),
		boolToInt(normalized.IsVerified),
		boolToInt(normalized.IsHidden),
		row.systemTags,
		row.userTags,
		row.shadowTags,
		normalized.Discipline,
		normalized.AuthorTitle,
		row.toolsUsed,
		row.collaborators,
		normalized.TimeSavedValue,
		normalized.TimeSavedFrequency,
		row.evidence,
		boolToInt(normalized.IsFork),
		row.forkedFromID,
		normalized.VersionNumber,
		normalized.QuickSummary,
		row.workflow,
		normalized.ExamplePrompt,
		normalized.EthicsLimitations,
		string(normalized.CollabStatus),
		row.openTo,
		toMillis(normalized.CreatedAt),
		toMillis(normalized.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return storage.ErrConflict
		}
		if isForeignKeyConstraintError(err) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("insert resource: %w", err)
	}
	return nil
}

const resourceColumns = `id, user_id, parent_id, type, status, title, content_text, shadow_description,
content_meta, is_anonymous, is_verified, is_hidden,
system_tags, user_tags, shadow_tags,
discipline, author_title, tools_used, collaborators,
time_saved_value, time_saved_frequency, evidence_of_success,
is_fork, forked_from_id, version_number,
quick_summary, workflow_steps, example_prompt, ethics_limitations,
collab_status, open_to,
created_at, updated_at`

func scanResource(row rowScanner) (domain.Resource, error) {
	var (
		resource      domain.Resource
		parentID      sql.NullString
		contentMeta   string
		anonymous     int
		verified      int
		hidden        int
		systemTags    string
		userTags      string
		shadowTags    string
		toolsUsed     string
		collaborators string
		evidence      string
		isFork        int
		forkedFromID  sql.NullString
		workflow      string
		openTo        string
		createdAt     int64
		updatedAt     int64
	)
	err := row.Scan(
		&resource.ID,
		&resource.UserID,
		&parentID,
		&resource.Type,
		&resource.Status,
		&resource.Title,
		&resource.ContentText,
		&resource.ShadowDescription,
		&contentMeta,
		&anonymous,
		&verified,
		&hidden,
		&systemTags,
		&userTags,
		&shadowTags,
		&resource.Discipline,
		&resource.AuthorTitle,
		&toolsUsed,
		&collaborators,
		&resource.TimeSavedValue,
		&resource.TimeSavedFrequency,
		&evidence,
		&isFork,
		&forkedFromID,
		&resource.VersionNumber,
		&resource.QuickSummary,
		&workflow,
		&resource.ExamplePrompt,
		&resource.EthicsLimitations,
		&resource.CollabStatus,
		&openTo,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return domain.Resource{}, err
	}

	resource.ParentID = parentID.String
	resource.ForkedFromID = forkedFromID.String
	resource.IsAnonymous = anonymous == 1
	resource.IsVerified = verified == 1
	resource.IsHidden = hidden == 1
	resource.IsFork = isFork == 1

	if strings.TrimSpace(contentMeta) != "" && contentMeta != "{}" {
		if err := json.Unmarshal([]byte(contentMeta), &resource.ContentMeta); err != nil {
			return domain.Resource{}, fmt.Errorf("unmarshal content meta: %w", err)
		}
	}
	if strings.TrimSpace(toolsUsed) != "" && toolsUsed != "{}" {
		if err := json.Unmarshal([]byte(toolsUsed), &resource.ToolsUsed); err != nil {
			return domain.Resource{}, fmt.Errorf("unmarshal tools used: %w", err)
		}
	}
	if resource.SystemTags, err = unmarshalStrings(systemTags); err != nil {
		return domain.Resource{}, err
	}
	if resource.UserTags, err = unmarshalStrings(userTags); err != nil {
		return domain.Resource{}, err
	}
	if resource.ShadowTags, err = unmarshalStrings(shadowTags); err != nil {
		return domain.Resource{}, err
	}
	if resource.Collaborators, err = unmarshalStrings(collaborators); err != nil {
		return domain.Resource{}, err
	}
	if resource.EvidenceOfSuccess, err = unmarshalStrings(evidence); err != nil {
		return domain.Resource{}, err
	}
	if resource.WorkflowSteps, err = unmarshalStrings(workflow); err != nil {
		return domain.Resource{}, err
	}
	if resource.OpenTo, err = unmarshalStrings(openTo); err != nil {
		return domain.Resource{}, err
	}

	resource.CreatedAt = fromMillis(createdAt)
	resource.UpdatedAt = fromMillis(updatedAt)
	return resource, nil
}

// GetResource returns the resource with the given id.
func (s *Store) GetResource(ctx context.Context, id string) (domain.Resource, error) {
	if err := ctx.Err(); err != nil {
		return domain.Resource{}, err
	}
	row := s.sqlDB.QueryRowContext(ctx, "SELECT "+resourceColumns+" FROM resources WHERE id = ?", id)
	resource, err := scanResource(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Resource{}, storage.ErrNotFound
		}
		return domain.Resource{}, fmt.Errorf("select resource: %w", err)
	}
	return resource, nil
}

// UpdateResource overwrites the stored resource with the given state.
func (s *Store) UpdateResource(ctx context.Context, resource domain.Resource) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	normalized, err := normalizeResource(resource)
	if err != nil {
		return err
	}
	normalized.UpdatedAt = time.Now().UTC()
	row, err := marshalResourceJSON(normalized)
	if err != nil {
		return err
	}

	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE resources SET
    parent_id = ?, type = ?, status = ?, title = ?, content_text = ?, shadow_description = ?,
    content_meta = ?, is_anonymous = ?, is_verified = ?, is_hidden = ?,
    system_tags = ?, user_tags = ?, shadow_tags = ?,
    discipline = ?, author_title = ?, tools_used = ?, collaborators = ?,
    time_saved_value = ?, time_saved_frequency = ?, evidence_of_success = ?,
    is_fork = ?, forked_from_id = ?, version_number = ?,
    quick_summary = ?, workflow_steps = ?, example_prompt = ?, ethics_limitations = ?,
    collab_status = ?, open_to = ?,
    updated_at = ?
WHERE id = ?
`,
		row.parentID,
		string(normalized.Type),
		string(normalized.Status),
		normalized.Title,
		normalized.ContentText,
		normalized.ShadowDescription,
		row.contentMeta,
		boolToInt(normalized.IsAnonymous),
		boolToInt(normalized.IsVerified),
		boolToInt(normalized.IsHidden),
		row.systemTags,
		row.userTags,
		row.shadowTags,
		normalized.Discipline,
		normalized.AuthorTitle,
		row.toolsUsed,
		row.collaborators,
		normalized.TimeSavedValue,
		normalized.TimeSavedFrequency,
		row.evidence,
		boolToInt(normalized.IsFork),
		row.forkedFromID,
		normalized.VersionNumber,
		normalized.QuickSummary,
		row.workflow,
		normalized.ExamplePrompt,
		normalized.EthicsLimitations,
		string(normalized.CollabStatus),
		row.openTo,
		toMillis(normalized.UpdatedAt),
		normalized.ID,
	)
	if err != nil {
		return fmt.Errorf("update resource: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update resource rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeleteResource removes the resource and its engagement rows.
func (s *Store) DeleteResource(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	result, err := s.sqlDB.ExecContext(ctx, "DELETE FROM resources WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete resource: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete resource rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListResources returns resources matching the SQL-expressible parts of the
// filter, ordered by the requested sort.
func (s *Store) ListResources(ctx context.Context, filter storage.ResourceFilter) ([]domain.Resource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		conditions []string
		args       []any
	)
	if !filter.IncludeHidden {
		conditions = append(conditions, "r.is_hidden = 0")
	}
	if filter.TopLevelOnly {
		conditions = append(conditions, "r.parent_id IS NULL")
	}
	if filter.Type != "" {
		conditions = append(conditions, "r.type = ?")
		args = append(args, string(filter.Type))
	}
	if filter.Status != "" {
		conditions = append(conditions, "r.status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.Discipline != "" {
		conditions = append(conditions, "r.discipline = ?")
		args = append(args, filter.Discipline)
	}
	if len(filter.AuthorDisciplines) > 0 {
		// Disciplines are stored as a JSON string array on the user row.
		var matches []string
		for _, discipline := range filter.AuthorDisciplines {
			matches = append(matches, "u.disciplines LIKE ?")
			args = append(args, `%"`+strings.TrimSpace(discipline)+`"%`)
		}
		conditions = append(conditions,
			"EXISTS (SELECT 1 FROM users u WHERE u.id = r.user_id AND ("+strings.Join(matches, " OR ")+"))")
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		conditions = append(conditions, "(r.title LIKE ? OR r.content_text LIKE ? OR r.quick_summary LIKE ?)")
		pattern := "%" + search + "%"
		args = append(args, pattern, pattern, pattern)
	}

	query := "SELECT " + prefixColumns(resourceColumns, "r") + " FROM resources r"
	switch filter.SortBy {
	case storage.SortPopular:
		query += " LEFT JOIN resource_analytics a ON a.resource_id = r.id"
	case storage.SortMostTried:
		query += " LEFT JOIN resource_analytics a ON a.resource_id = r.id"
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	switch filter.SortBy {
	case storage.SortPopular:
		query += " ORDER BY COALESCE(a.view_count, 0) DESC, r.created_at DESC"
	case storage.SortMostTried:
		query += " ORDER BY COALESCE(a.tried_count, 0) DESC, r.created_at DESC"
	default:
		query += " ORDER BY r.created_at DESC, r.id DESC"
	}

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select resources: %w", err)
	}
	defer rows.Close()

	var resources []domain.Resource
	for rows.Next() {
		resource, err := scanResource(rows)
		if err != nil {
			return nil, fmt.Errorf("scan resource: %w", err)
		}
		resources = append(resources, resource)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate resources: %w", err)
	}
	return resources, nil
}

// ListSolutions returns the children of a request, newest first.
func (s *Store) ListSolutions(ctx context.Context, parentID string, includeHidden bool) ([]domain.Resource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	query := "SELECT " + resourceColumns + " FROM resources WHERE parent_id = ?"
	if !includeHidden {
		query += " AND is_hidden = 0"
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := s.sqlDB.QueryContext(ctx, query, parentID)
	if err != nil {
		return nil, fmt.Errorf("select solutions: %w", err)
	}
	defer rows.Close()

	var solutions []domain.Resource
	for rows.Next() {
		solution, err := scanResource(rows)
		if err != nil {
			return nil, fmt.Errorf("scan solution: %w", err)
		}
		solutions = append(solutions, solution)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate solutions: %w", err)
	}
	return solutions, nil
}

// CountResources returns the total number of resources, hidden included.
func (s *Store) CountResources(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var count int
	if err := s.sqlDB.QueryRowContext(ctx, "SELECT COUNT(1) FROM resources").Scan(&count); err != nil {
		return 0, fmt.Errorf("count resources: %w", err)
	}
	return count, nil
}

// CountResourcesByUser returns the number of resources owned by one user.
func (s *Store) CountResourcesByUser(ctx context.Context, userID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var count int
	if err := s.sqlDB.QueryRowContext(ctx, "SELECT COUNT(1) FROM resources WHERE user_id = ?", userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count resources by user: %w", err)
	}
	return count, nil
}

func prefixColumns(columns, alias string) string {
	parts := strings.Split(columns, ",")
	for i, part := range parts {
		parts[i] = alias + "." + strings.TrimSpace(part)
	}
	return strings.Join(parts, ", ")
}
