package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/adanyl0v/tracker/internal/models"
	"github.com/adanyl0v/tracker/internal/query"
	"github.com/adanyl0v/tracker/internal/storage"
)

const sectionNameTaken = "an active section with this name already exists"

type sectionServiceImpl struct {
	logger zerolog.Logger
	repo   storage.Repository
	now    func() time.Time
}

func NewSectionService(
	logger zerolog.Logger,
	repo storage.Repository,
	now func() time.Time,
) SectionService {
	return &sectionServiceImpl{
		logger: logger,
		repo:   repo,
		now:    now,
	}
}

func (s *sectionServiceImpl) CreateSection(ctx context.Context, params CreateSectionParams) (*models.Section, error) {
	params.Name = strings.TrimSpace(params.Name)
	params.Description = strings.TrimSpace(params.Description)
	if err := validateStruct(params); err != nil {
		return nil, err
	}

	if err := s.checkNameFree(ctx, params.OwnerID, "", params.Name); err != nil {
		return nil, err
	}

	id, err := newID()
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to generate section id")
		return nil, fmt.Errorf("%w: %w", ErrInternal, err)
	}

	now := s.now()
	section := &models.Section{
		ID:          id,
		UserID:      params.OwnerID,
		Name:        params.Name,
		Description: params.Description,
		Color:       params.Color,
		Icon:        params.Icon,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if section.Color == "" {
		section.Color = models.DefaultSectionColor
	}
	if section.Icon == "" {
		section.Icon = models.DefaultSectionIcon
	}

	if err = s.repo.CreateSection(ctx, section); err != nil {
		return nil, s.storageError(err, id, "failed to create section")
	}

	s.logger.Info().
		Str("section_id", id).
		Str("user_id", params.OwnerID).
		Msg("created section")
	return section, nil
}

func (s *sectionServiceImpl) GetSection(ctx context.Context, ownerID, id string) (*SectionDetails, error) {
	section, err := s.repo.GetSection(ctx, ownerID, id)
	if err != nil {
		return nil, s.storageError(err, id, "failed to get section")
	}

	n, err := s.repo.CountTasks(ctx, query.TaskFilter{OwnerID: ownerID, SectionID: id})
	if err != nil {
		return nil, s.storageError(err, id, "failed to count section tasks")
	}

	s.logger.Debug().
		Str("section_id", id).
		Int("tasks_count", n).
		Msg("got section")
	return &SectionDetails{Section: section, TasksCount: n}, nil
}

func (s *sectionServiceImpl) ListSections(ctx context.Context, ownerID string, archived bool) ([]*models.Section, error) {
	sections, err := s.repo.ListSections(ctx, ownerID, archived)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("user_id", ownerID).
			Msg("failed to list sections")
		return nil, fmt.Errorf("%w: %w", ErrInternal, err)
	}

	s.logger.Debug().
		Str("user_id", ownerID).
		Bool("archived", archived).
		Int("count", len(sections)).
		Msg("listed sections")
	return sections, nil
}

func (s *sectionServiceImpl) UpdateSection(ctx context.Context, params UpdateSectionParams) (*models.Section, error) {
	if params.Name != nil {
		name := strings.TrimSpace(*params.Name)
		params.Name = &name
	}
	if params.Description != nil {
		desc := strings.TrimSpace(*params.Description)
		params.Description = &desc
	}
	if err := validateStruct(params); err != nil {
		return nil, err
	}

	if params.Name != nil {
		if err := s.checkNameFree(ctx, params.OwnerID, params.ID, *params.Name); err != nil {
			return nil, err
		}
	}

	section, err := s.repo.UpdateSection(ctx, params.OwnerID, params.ID, func(section *models.Section) error {
		if params.Name != nil {
			section.Name = *params.Name
		}
		if params.Description != nil {
			section.Description = *params.Description
		}
		if params.Color != nil {
			section.Color = *params.Color
		}
		if params.Icon != nil {
			section.Icon = *params.Icon
		}
		section.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return nil, s.storageError(err, params.ID, "failed to update section")
	}

	s.logger.Info().
		Str("section_id", params.ID).
		Msg("updated section")
	return section, nil
}

func (s *sectionServiceImpl) ArchiveSection(ctx context.Context, ownerID, id string, archive bool) (*models.Section, error) {
	section, err := s.repo.UpdateSection(ctx, ownerID, id, func(section *models.Section) error {
		section.IsArchived = archive
		section.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return nil, s.storageError(err, id, "failed to archive section")
	}

	s.logger.Info().
		Str("section_id", id).
		Bool("archived", archive).
		Msg("changed section archive state")
	return section, nil
}

func (s *sectionServiceImpl) DeleteSection(ctx context.Context, ownerID, id string) error {
	err := s.repo.DeleteSection(ctx, ownerID, id)
	if err != nil {
		var depErr *storage.DependentsError
		if errors.As(err, &depErr) {
			s.logger.Debug().
				Str("section_id", id).
				Int("dependents", depErr.Count).
				Msg("section still has tasks")
			return &ConflictError{
				Reason:     "section still has tasks",
				Dependents: depErr.Count,
			}
		}
		return s.storageError(err, id, "failed to delete section")
	}

	s.logger.Info().
		Str("section_id", id).
		Msg("deleted section")
	return nil
}

// checkNameFree fails with a *ConflictError when another active section
// of the owner already uses name. The unique index still decides at
// commit time.
func (s *sectionServiceImpl) checkNameFree(ctx context.Context, ownerID, selfID, name string) error {
	active, err := s.repo.ListSections(ctx, ownerID, false)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("user_id", ownerID).
			Msg("failed to list sections")
		return fmt.Errorf("%w: %w", ErrInternal, err)
	}

	for _, section := range active {
		if section.Name == name && section.ID != selfID {
			return &ConflictError{Reason: sectionNameTaken}
		}
	}
	return nil
}

func (s *sectionServiceImpl) storageError(err error, id, msg string) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return ErrSectionNotFound
	case errors.Is(err, storage.ErrDuplicate):
		return &ConflictError{Reason: sectionNameTaken}
	}

	// Errors returned by a mutation are already classified.
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return err
	}

	s.logger.Error().
		Err(err).
		Str("section_id", id).
		Msg(msg)
	return fmt.Errorf("%w: %w", ErrInternal, err)
}
