package app

import (
	"context"
	"errors"

	apperrors "github.com/sommlab/ai.exchange/internal/platform/errors"
	"github.com/sommlab/ai.exchange/internal/services/exchange/domain"
	"github.com/sommlab/ai.exchange/internal/services/exchange/storage"
)

func (s *Service) visibleResource(ctx context.Context, resourceID string) (domain.Resource, error) {
	resource, err := s.store.GetResource(ctx, resourceID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return domain.Resource{}, apperrors.E(apperrors.KindNotFound, "resource not found")
		}
		return domain.Resource{}, apperrors.Wrap(apperrors.KindUnavailable, "load resource", err)
	}
	if resource.IsHidden {
		return domain.Resource{}, apperrors.E(apperrors.KindNotFound, "resource not found")
	}
	return resource, nil
}

// TrackView records a view and returns the updated view count.
func (s *Service) TrackView(ctx context.Context, viewer domain.User, resourceID string) (int, error) {
	if _, err := s.visibleResource(ctx, resourceID); err != nil {
		return 0, err
	}
	if err := s.store.RecordView(ctx, resourceID, viewer.ID, s.now()); err != nil {
		return 0, apperrors.Wrap(apperrors.KindUnavailable, "record view", err)
	}
	analytics, err := s.store.GetAnalytics(ctx, resourceID)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.KindUnavailable, "load analytics", err)
	}
	return analytics.ViewCount, nil
}

// TrackTried marks the resource as tried by the user and returns the
// tried count. Repeat tries by the same user do not move the counter.
func (s *Service) TrackTried(ctx context.Context, user domain.User, resourceID string) (int, error) {
	if _, err := s.visibleResource(ctx, resourceID); err != nil {
		return 0, err
	}
	count, err := s.store.RecordTried(ctx, user.ID, resourceID, s.now())
	if err != nil {
		return 0, apperrors.Wrap(apperrors.KindUnavailable, "record tried", err)
	}
	return count, nil
}

// ToggleSave flips the user's bookmark on the resource and reports the
// resulting state and save count.
func (s *Service) ToggleSave(ctx context.Context, user domain.User, resourceID string) (bool, int, error) {
	if _, err := s.visibleResource(ctx, resourceID); err != nil {
		return false, 0, err
	}
	saved, count, err := s.store.ToggleSave(ctx, user.ID, resourceID, s.now())
	if err != nil {
		return false, 0, apperrors.Wrap(apperrors.KindUnavailable, "toggle save", err)
	}
	return saved, count, nil
}

// IsSaved reports whether the user has bookmarked the resource.
func (s *Service) IsSaved(ctx context.Context, user domain.User, resourceID string) (bool, error) {
	saved, err := s.store.IsSaved(ctx, user.ID, resourceID)
	if err != nil {
		return false, apperrors.Wrap(apperrors.KindUnavailable, "check saved", err)
	}
	return saved, nil
}

// ResourceAnalytics returns the engagement counters for one resource.
func (s *Service) ResourceAnalytics(ctx context.Context, resourceID string) (domain.ResourceAnalytics, error) {
	if _, err := s.visibleResource(ctx, resourceID); err != nil {
		return domain.ResourceAnalytics{}, err
	}
	analytics, err := s.store.GetAnalytics(ctx, resourceID)
	if err != nil {
		return domain.ResourceAnalytics{}, apperrors.Wrap(apperrors.KindUnavailable, "load analytics", err)
	}
	return analytics, nil
}

// SavedResources returns a page of the user's bookmarked resources,
// most recently saved first, skipping anything since hidden or deleted.
func (s *Service) SavedResources(ctx context.Context, user domain.User, skip, limit int) ([]ResourceView, error) {
	ids, err := s.store.ListSavedResourceIDs(ctx, user.ID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindUnavailable, "list saved resources", err)
	}

	var resources []domain.Resource
	for _, resourceID := range ids {
		resource, err := s.store.GetResource(ctx, resourceID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			return nil, apperrors.Wrap(apperrors.KindUnavailable, "load saved resource", err)
		}
		if resource.IsHidden {
			continue
		}
		resources = append(resources, resource)
	}
	return s.buildViews(ctx, paginate(resources, skip, limit))
}

// PlatformStats aggregates engagement across the whole exchange.
type PlatformStats struct {
	TotalUsers          int
	TotalResources      int
	TotalViews          int
	TotalSaves          int
	TotalTried          int
	TotalForks          int
	TotalComments       int
	UniqueViewers       int
	AvgViewsPerResource float64
	AvgSavesPerResource float64
}

// PlatformAnalytics is the admin dashboard payload.
type PlatformAnalytics struct {
	Stats        PlatformStats
	TopResources []domain.ResourceAnalytics
}

func requireAdmin(user domain.User) error {
	if user.Role != domain.RoleAdmin {
		return apperrors.E(apperrors.KindForbidden, "admin access required")
	}
	return nil
}

// GetPlatformAnalytics returns platform totals and the five most viewed
// resources. Admin only. The dashboard is a moderation surface, so
// every figure covers all stored resources, hidden ones included.
func (s *Service) GetPlatformAnalytics(ctx context.Context, caller domain.User) (PlatformAnalytics, error) {
	if err := requireAdmin(caller); err != nil {
		return PlatformAnalytics{}, err
	}

	totals, err := s.store.TotalEngagement(ctx)
	if err != nil {
		return PlatformAnalytics{}, apperrors.Wrap(apperrors.KindUnavailable, "sum engagement", err)
	}
	resourceCount, err := s.store.CountResources(ctx)
	if err != nil {
		return PlatformAnalytics{}, apperrors.Wrap(apperrors.KindUnavailable, "count resources", err)
	}
	userCount, err := s.store.CountUsers(ctx)
	if err != nil {
		return PlatformAnalytics{}, apperrors.Wrap(apperrors.KindUnavailable, "count users", err)
	}
	top, err := s.store.TopResourcesByViews(ctx, 5)
	if err != nil {
		return PlatformAnalytics{}, apperrors.Wrap(apperrors.KindUnavailable, "load top resources", err)
	}

	stats := PlatformStats{
		TotalUsers:     userCount,
		TotalResources: resourceCount,
		TotalViews:     totals.Views,
		TotalSaves:     totals.Saves,
		TotalTried:     totals.Tried,
		TotalForks:     totals.Forks,
		TotalComments:  totals.Comments,
		UniqueViewers:  totals.Viewers,
	}
	if resourceCount > 0 {
		stats.AvgViewsPerResource = float64(totals.Views) / float64(resourceCount)
		stats.AvgSavesPerResource = float64(totals.Saves) / float64(resourceCount)
	}
	return PlatformAnalytics{Stats: stats, TopResources: top}, nil
}

// DisciplineStats aggregates engagement for one discipline.
type DisciplineStats struct {
	Count      int
	TotalViews int
	TotalSaves int
}

// AnalyticsByDiscipline breaks resource engagement down by discipline.
// Resources without a discipline are skipped. Admin only.
func (s *Service) AnalyticsByDiscipline(ctx context.Context, caller domain.User) (map[string]DisciplineStats, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}

	resources, err := s.store.ListResources(ctx, storage.ResourceFilter{IncludeHidden: true})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindUnavailable, "list resources", err)
	}

	ids := make([]string, 0, len(resources))
	for _, resource := range resources {
		ids = append(ids, resource.ID)
	}
	analytics, err := s.store.AnalyticsByResourceIDs(ctx, ids)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindUnavailable, "load analytics", err)
	}

	stats := make(map[string]DisciplineStats)
	for _, resource := range resources {
		if resource.Discipline == "" {
			continue
		}
		entry := stats[resource.Discipline]
		entry.Count++
		if counters, ok := analytics[resource.ID]; ok {
			entry.TotalViews += counters.ViewCount
			entry.TotalSaves += counters.SaveCount
		}
		stats[resource.Discipline] = entry
	}
	return stats, nil
}
