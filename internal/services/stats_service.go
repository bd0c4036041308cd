package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/adanyl0v/tracker/internal/models"
	"github.com/adanyl0v/tracker/internal/query"
	"github.com/adanyl0v/tracker/internal/storage"
)

const (
	topCategoriesLimit = 10
	completedWindow    = 7 * 24 * time.Hour
)

type statsServiceImpl struct {
	logger zerolog.Logger
	repo   storage.Repository
	now    func() time.Time
}

func NewStatsService(
	logger zerolog.Logger,
	repo storage.Repository,
	now func() time.Time,
) StatsService {
	return &statsServiceImpl{
		logger: logger,
		repo:   repo,
		now:    now,
	}
}

func (s *statsServiceImpl) TaskStats(ctx context.Context, ownerID, sectionID string) (*models.TaskStats, error) {
	if sectionID != "" {
		_, err := s.repo.GetSection(ctx, ownerID, sectionID)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrSectionNotFound
		}
		if err != nil {
			s.logger.Error().
				Err(err).
				Str("section_id", sectionID).
				Msg("failed to get section")
			return nil, fmt.Errorf("%w: %w", ErrInternal, err)
		}
	}

	now := s.now()
	base := query.TaskFilter{OwnerID: ownerID, SectionID: sectionID}
	stats := &models.TaskStats{
		Status:   make(map[models.TaskStatus]int, len(models.TaskStatuses)),
		Priority: make(map[models.TaskPriority]int, len(models.TaskPriorities)),
	}
	for _, st := range models.TaskStatuses {
		stats.Status[st] = 0
	}
	for _, p := range models.TaskPriorities {
		stats.Priority[p] = 0
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	count := func(filter query.TaskFilter, set func(n int)) {
		g.Go(func() error {
			n, err := s.repo.CountTasks(gctx, filter)
			if err != nil {
				return err
			}
			mu.Lock()
			set(n)
			mu.Unlock()
			return nil
		})
	}

	count(base, func(n int) { stats.Total = n })
	for _, st := range models.TaskStatuses {
		filter := base
		filter.Statuses = []models.TaskStatus{st}
		count(filter, func(n int) { stats.Status[st] = n })
	}
	for _, p := range models.TaskPriorities {
		filter := base
		filter.Priorities = []models.TaskPriority{p}
		count(filter, func(n int) { stats.Priority[p] = n })
	}

	overdue := base
	overdue.Overdue(now)
	count(overdue, func(n int) { stats.Overdue = n })

	since := now.Add(-completedWindow)
	completed := base
	completed.Statuses = []models.TaskStatus{models.TaskStatusCompleted}
	completed.CompletedSince = &since
	count(completed, func(n int) { stats.CompletedThisWeek = n })

	if err := g.Wait(); err != nil {
		s.logger.Error().
			Err(err).
			Str("user_id", ownerID).
			Str("section_id", sectionID).
			Msg("failed to aggregate task stats")
		return nil, fmt.Errorf("%w: %w", ErrInternal, err)
	}

	s.logger.Debug().
		Str("user_id", ownerID).
		Str("section_id", sectionID).
		Int("total", stats.Total).
		Msg("aggregated task stats")
	return stats, nil
}

func (s *statsServiceImpl) ArticleStats(ctx context.Context, ownerID string) (*models.ArticleStats, error) {
	now := s.now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	base := query.ArticleFilter{OwnerID: ownerID}

	stats := &models.ArticleStats{
		Status:     make(map[models.ArticleStatus]int, len(models.ArticleStatuses)),
		Categories: []models.CategoryCount{},
	}
	for _, st := range models.ArticleStatuses {
		stats.Status[st] = 0
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	count := func(filter query.ArticleFilter, set func(n int)) {
		g.Go(func() error {
			n, err := s.repo.CountArticles(gctx, filter)
			if err != nil {
				return err
			}
			mu.Lock()
			set(n)
			mu.Unlock()
			return nil
		})
	}

	count(base, func(n int) { stats.Total = n })
	for _, st := range models.ArticleStatuses {
		filter := base
		filter.Statuses = []models.ArticleStatus{st}
		count(filter, func(n int) { stats.Status[st] = n })
	}

	published := base
	published.Statuses = []models.ArticleStatus{models.ArticleStatusPublished}
	published.PublishedSince = &monthStart
	count(published, func(n int) { stats.PublishedThisMonth = n })

	g.Go(func() error {
		views, err := s.repo.SumArticleViews(gctx, ownerID)
		if err != nil {
			return err
		}
		mu.Lock()
		stats.TotalViews = views
		mu.Unlock()
		return nil
	})
	g.Go(func() error {
		categories, err := s.repo.TopArticleCategories(gctx, ownerID, topCategoriesLimit)
		if err != nil {
			return err
		}
		if categories != nil {
			mu.Lock()
			stats.Categories = categories
			mu.Unlock()
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		s.logger.Error().
			Err(err).
			Str("user_id", ownerID).
			Msg("failed to aggregate article stats")
		return nil, fmt.Errorf("%w: %w", ErrInternal, err)
	}

	s.logger.Debug().
		Str("user_id", ownerID).
		Int("total", stats.Total).
		Msg("aggregated article stats")
	return stats, nil
}
