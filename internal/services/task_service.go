package services

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/adanyl0v/tracker/internal/derive"
	"github.com/adanyl0v/tracker/internal/models"
	"github.com/adanyl0v/tracker/internal/query"
	"github.com/adanyl0v/tracker/internal/storage"
)

type taskServiceImpl struct {
	logger    zerolog.Logger
	repo      storage.Repository
	now       func() time.Time
	integrity *integrity
}

func NewTaskService(
	logger zerolog.Logger,
	repo storage.Repository,
	now func() time.Time,
) TaskService {
	return &taskServiceImpl{
		logger:    logger,
		repo:      repo,
		now:       now,
		integrity: &integrity{logger: logger, repo: repo},
	}
}

func (s *taskServiceImpl) CreateTask(ctx context.Context, params CreateTaskParams) (*models.Task, error) {
	params.Name = strings.TrimSpace(params.Name)
	params.Description = strings.TrimSpace(params.Description)
	params.Notes = strings.TrimSpace(params.Notes)
	if err := validateStruct(params); err != nil {
		return nil, err
	}

	linked := dedupe(params.LinkedArticles)
	if err := s.integrity.checkSection(ctx, params.OwnerID, params.SectionID); err != nil {
		return nil, err
	}
	if err := s.integrity.checkArticles(ctx, "linkedArticles", params.OwnerID, "", linked); err != nil {
		return nil, err
	}

	id, err := newID()
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to generate task id")
		return nil, fmt.Errorf("%w: %w", ErrInternal, err)
	}

	now := s.now()
	task := &models.Task{
		ID:             id,
		UserID:         params.OwnerID,
		SectionID:      params.SectionID,
		Name:           params.Name,
		Description:    params.Description,
		DueDate:        params.DueDate,
		Notes:          params.Notes,
		Priority:       params.Priority,
		Status:         params.Status,
		Tags:           normalizeTags(params.Tags),
		LinkedArticles: linked,
		EstimatedTime:  params.EstimatedTime,
		ActualTime:     params.ActualTime,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if task.Priority == "" {
		task.Priority = models.TaskPriorityMedium
	}
	if task.Status == "" {
		task.Status = models.TaskStatusPending
	}
	derive.Task(nil, task, now)

	if err = s.repo.CreateTask(ctx, task); err != nil {
		return nil, s.storageError(err, id, "failed to create task")
	}

	s.logger.Info().
		Str("task_id", id).
		Str("section_id", task.SectionID).
		Msg("created task")
	return task, nil
}

func (s *taskServiceImpl) GetTask(ctx context.Context, ownerID, id string) (*TaskDetails, error) {
	task, err := s.repo.GetTask(ctx, ownerID, id)
	if err != nil {
		return nil, s.storageError(err, id, "failed to get task")
	}

	details, err := s.integrity.populateTasks(ctx, ownerID, []*models.Task{task})
	if err != nil {
		return nil, err
	}

	s.logger.Debug().
		Str("task_id", id).
		Msg("got task")
	return details[0], nil
}

func (s *taskServiceImpl) ListTasks(ctx context.Context, params ListTasksParams) (*TaskPage, error) {
	if params.Filter.OwnerID == "" {
		return nil, invalid("ownerID", "is required")
	}
	if params.Sort.Field == "" {
		params.Sort = query.DefaultSort
	}
	if err := query.ValidateTaskSort(params.Sort); err != nil {
		return nil, queryError(err)
	}
	page, err := params.Page.Normalize()
	if err != nil {
		return nil, queryError(err)
	}

	filter := params.Filter
	if params.DueOn != nil {
		filter.DueOn(*params.DueOn)
	}
	if params.Overdue {
		filter.Overdue(s.now())
	}

	tasks, total, err := s.repo.ListTasks(ctx, filter, params.Sort, page)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("user_id", filter.OwnerID).
			Msg("failed to list tasks")
		return nil, fmt.Errorf("%w: %w", ErrInternal, err)
	}

	details, err := s.integrity.populateTasks(ctx, filter.OwnerID, tasks)
	if err != nil {
		return nil, err
	}

	s.logger.Debug().
		Str("user_id", filter.OwnerID).
		Int("count", len(tasks)).
		Int("total", total).
		Msg("listed tasks")
	return &TaskPage{
		Tasks:      details,
		Pagination: query.NewPagination(page, len(tasks), total),
	}, nil
}

func (s *taskServiceImpl) UpdateTask(ctx context.Context, params UpdateTaskParams) (*models.Task, error) {
	update, err := s.prepareUpdate(ctx, params.OwnerID, params.TaskUpdate, params)
	if err != nil {
		return nil, err
	}

	task, err := s.repo.UpdateTask(ctx, params.OwnerID, params.ID, func(task *models.Task) error {
		now := s.now()
		applyTaskUpdate(task, update, now)
		task.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, s.storageError(err, params.ID, "failed to update task")
	}

	s.logger.Info().
		Str("task_id", params.ID).
		Msg("updated task")
	return task, nil
}

func (s *taskServiceImpl) DeleteTask(ctx context.Context, ownerID, id string) error {
	if err := s.repo.DeleteTask(ctx, ownerID, id); err != nil {
		return s.storageError(err, id, "failed to delete task")
	}

	s.logger.Info().
		Str("task_id", id).
		Msg("deleted task")
	return nil
}

func (s *taskServiceImpl) BulkUpdateTasks(ctx context.Context, params BulkUpdateTasksParams) (int, error) {
	update, err := s.prepareUpdate(ctx, params.OwnerID, params.TaskUpdate, params)
	if err != nil {
		return 0, err
	}
	ids := dedupe(params.TaskIDs)

	now := s.now()
	modified, err := s.repo.UpdateTasks(ctx, params.OwnerID, ids, func(task *models.Task) (bool, error) {
		before := task.Clone()
		applyTaskUpdate(task, update, now)
		if reflect.DeepEqual(before, task) {
			return false, nil
		}
		task.UpdatedAt = now
		return true, nil
	})
	if err != nil {
		return 0, s.storageError(err, "", "failed to bulk update tasks")
	}

	s.logger.Info().
		Int("requested", len(ids)).
		Int("modified", modified).
		Msg("bulk updated tasks")
	return modified, nil
}

// prepareUpdate normalizes and validates a partial update, including the
// section and article references it sets. params is the enclosing struct
// whose tags are validated.
func (s *taskServiceImpl) prepareUpdate(ctx context.Context, ownerID string, u TaskUpdate, params any) (TaskUpdate, error) {
	if err := validateStruct(params); err != nil {
		return TaskUpdate{}, err
	}

	if u.Name != nil {
		name := strings.TrimSpace(*u.Name)
		if name == "" {
			return TaskUpdate{}, invalid("name", "is required")
		}
		u.Name = &name
	}
	if u.Description != nil {
		desc := strings.TrimSpace(*u.Description)
		u.Description = &desc
	}
	if u.Notes != nil {
		notes := strings.TrimSpace(*u.Notes)
		u.Notes = &notes
	}
	if u.DueDate != nil && u.DueDate.IsZero() {
		return TaskUpdate{}, invalid("dueDate", "is required")
	}
	if u.Tags != nil {
		tags := normalizeTags(*u.Tags)
		u.Tags = &tags
	}

	if u.SectionID != nil {
		if err := s.integrity.checkSection(ctx, ownerID, *u.SectionID); err != nil {
			return TaskUpdate{}, err
		}
	}
	if u.LinkedArticles != nil {
		linked := dedupe(*u.LinkedArticles)
		if err := s.integrity.checkArticles(ctx, "linkedArticles", ownerID, "", linked); err != nil {
			return TaskUpdate{}, err
		}
		u.LinkedArticles = &linked
	}
	return u, nil
}

// applyTaskUpdate copies the set fields of u onto task and re-derives the
// completion timestamp.
func applyTaskUpdate(task *models.Task, u TaskUpdate, now time.Time) {
	prev := task.Clone()

	if u.SectionID != nil {
		task.SectionID = *u.SectionID
	}
	if u.Name != nil {
		task.Name = *u.Name
	}
	if u.Description != nil {
		task.Description = *u.Description
	}
	if u.DueDate != nil {
		task.DueDate = *u.DueDate
	}
	if u.Notes != nil {
		task.Notes = *u.Notes
	}
	if u.Priority != nil {
		task.Priority = *u.Priority
	}
	if u.Status != nil {
		task.Status = *u.Status
	}
	if u.Tags != nil && !slices.Equal(task.Tags, *u.Tags) {
		task.Tags = slices.Clone(*u.Tags)
	}
	if u.LinkedArticles != nil && !slices.Equal(task.LinkedArticles, *u.LinkedArticles) {
		task.LinkedArticles = slices.Clone(*u.LinkedArticles)
	}
	if u.EstimatedTime != nil {
		v := *u.EstimatedTime
		task.EstimatedTime = &v
	}
	if u.ActualTime != nil {
		v := *u.ActualTime
		task.ActualTime = &v
	}

	derive.Task(prev, task, now)
}

func (s *taskServiceImpl) storageError(err error, id, msg string) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return ErrTaskNotFound
	case errors.Is(err, storage.ErrInvalidReference):
		return invalid("sectionID", "does not reference an existing section")
	}

	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return err
	}

	s.logger.Error().
		Err(err).
		Str("task_id", id).
		Msg(msg)
	return fmt.Errorf("%w: %w", ErrInternal, err)
}
