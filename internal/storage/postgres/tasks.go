package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/adanyl0v/tracker/internal/models"
	"github.com/adanyl0v/tracker/internal/query"
	"github.com/adanyl0v/tracker/internal/storage"
)

const taskColumns = `id,
       user_id,
       section_id,
       name,
       description,
       due_date,
       notes,
       priority,
       status,
       tags,
       linked_articles,
       estimated_time,
       actual_time,
       completed_at,
       created_at,
       updated_at`

func scanTask(row scanner) (*models.Task, error) {
	var (
		task     = new(models.Task)
		priority string
		status   string
	)
	err := row.Scan(
		&task.ID,
		&task.UserID,
		&task.SectionID,
		&task.Name,
		&task.Description,
		&task.DueDate,
		&task.Notes,
		&priority,
		&status,
		&task.Tags,
		&task.LinkedArticles,
		&task.EstimatedTime,
		&task.ActualTime,
		&task.CompletedAt,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	task.Priority = models.TaskPriority(priority)
	task.Status = models.TaskStatus(status)
	return task, nil
}

func (s *Store) CreateTask(ctx context.Context, task *models.Task) error {
	const insertTaskQuery = `
INSERT INTO tasks (id,
                   user_id,
                   section_id,
                   name,
                   description,
                   due_date,
                   notes,
                   priority,
                   status,
                   tags,
                   linked_articles,
                   estimated_time,
                   actual_time,
                   completed_at,
                   created_at,
                   updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
`
	_, err := s.pgPool.Exec(
		ctx,
		insertTaskQuery,
		task.ID,
		task.UserID,
		task.SectionID,
		task.Name,
		task.Description,
		task.DueDate,
		task.Notes,
		string(task.Priority),
		string(task.Status),
		nonNil(task.Tags),
		nonNil(task.LinkedArticles),
		task.EstimatedTime,
		task.ActualTime,
		task.CompletedAt,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		err = mapError(err)
		if !isStorageError(err) {
			s.logger.Error().
				Err(err).
				Msg("failed to insert task")
		}
		return err
	}
	s.logger.Debug().
		Str("task_id", task.ID).
		Msg("inserted task")
	return nil
}

func (s *Store) GetTask(ctx context.Context, ownerID, id string) (*models.Task, error) {
	const selectTaskQuery = `
SELECT ` + taskColumns + `
FROM tasks
WHERE id = $1 AND user_id = $2
`
	task, err := scanTask(s.pgPool.QueryRow(ctx, selectTaskQuery, id, ownerID))
	if err != nil {
		err = mapError(err)
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Error().
				Err(err).
				Str("task_id", id).
				Msg("failed to select task")
		}
		return nil, err
	}
	return task, nil
}

func (s *Store) ListTasks(
	ctx context.Context,
	filter query.TaskFilter,
	order query.Sort,
	page query.Page,
) ([]*models.Task, int, error) {
	var (
		tasks []*models.Task
		total int
	)
	err := s.inSnapshot(ctx, func(tx pgx.Tx) error {
		where := taskWhere(filter)

		var err error
		total, err = countRows(ctx, tx, "tasks", where)
		if err != nil {
			return err
		}

		selectTasksQuery := `
SELECT ` + taskColumns + `
FROM tasks
` + where.String() + `
` + orderBy(taskSortColumns, order) + `
` + pageClause(where, page)

		rows, err := tx.Query(ctx, selectTasksQuery, where.args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		tasks = make([]*models.Task, 0, page.Limit)
		for rows.Next() {
			task, err := scanTask(rows)
			if err != nil {
				return err
			}
			tasks = append(tasks, task)
		}
		return rows.Err()
	})
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("user_id", filter.OwnerID).
			Msg("failed to list tasks")
		return nil, 0, err
	}
	s.logger.Debug().
		Int("count", len(tasks)).
		Int("total", total).
		Str("user_id", filter.OwnerID).
		Msg("selected tasks")
	return tasks, total, nil
}

func countRows(ctx context.Context, q querier, table string, where *whereBuilder) (int, error) {
	var count int
	err := q.QueryRow(ctx, "SELECT count(*) FROM "+table+" "+where.String(), where.args...).Scan(&count)
	return count, err
}

func (s *Store) CountTasks(ctx context.Context, filter query.TaskFilter) (int, error) {
	count, err := countRows(ctx, s.pgPool, "tasks", taskWhere(filter))
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("user_id", filter.OwnerID).
			Msg("failed to count tasks")
		return 0, err
	}
	return count, nil
}

const updateTaskQuery = `
UPDATE tasks
SET section_id = $1,
    name = $2,
    description = $3,
    due_date = $4,
    notes = $5,
    priority = $6,
    status = $7,
    tags = $8,
    linked_articles = $9,
    estimated_time = $10,
    actual_time = $11,
    completed_at = $12,
    updated_at = $13
WHERE id = $14 AND user_id = $15
`

func updateTaskArgs(task *models.Task) []any {
	return []any{
		task.SectionID,
		task.Name,
		task.Description,
		task.DueDate,
		task.Notes,
		string(task.Priority),
		string(task.Status),
		nonNil(task.Tags),
		nonNil(task.LinkedArticles),
		task.EstimatedTime,
		task.ActualTime,
		task.CompletedAt,
		task.UpdatedAt,
		task.ID,
		task.UserID,
	}
}

func (s *Store) UpdateTask(
	ctx context.Context,
	ownerID, id string,
	mutate storage.Mutation[*models.Task],
) (*models.Task, error) {
	var (
		task      *models.Task
		mutateErr error
	)
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		const lockTaskQuery = `
SELECT ` + taskColumns + `
FROM tasks
WHERE id = $1 AND user_id = $2
FOR UPDATE
`
		var err error
		task, err = scanTask(tx.QueryRow(ctx, lockTaskQuery, id, ownerID))
		if err != nil {
			return mapError(err)
		}

		mutateErr = mutate(task)
		if mutateErr != nil {
			return mutateErr
		}

		_, err = tx.Exec(ctx, updateTaskQuery, updateTaskArgs(task)...)
		return mapError(err)
	})
	if mutateErr != nil {
		return nil, mutateErr
	}
	if err != nil {
		if !isStorageError(err) {
			s.logger.Error().
				Err(err).
				Str("task_id", id).
				Msg("failed to update task")
		}
		return nil, err
	}
	s.logger.Debug().
		Str("task_id", id).
		Msg("updated task")
	return task, nil
}

func (s *Store) UpdateTasks(
	ctx context.Context,
	ownerID string,
	ids []string,
	mutate storage.BatchMutation[*models.Task],
) (int, error) {
	var (
		modified  int
		mutateErr error
	)
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		const lockTasksQuery = `
SELECT ` + taskColumns + `
FROM tasks
WHERE user_id = $1 AND id = ANY($2)
ORDER BY id
FOR UPDATE
`
		rows, err := tx.Query(ctx, lockTasksQuery, ownerID, ids)
		if err != nil {
			return err
		}

		tasks := make([]*models.Task, 0, len(ids))
		for rows.Next() {
			task, err := scanTask(rows)
			if err != nil {
				rows.Close()
				return err
			}
			tasks = append(tasks, task)
		}
		rows.Close()
		if err = rows.Err(); err != nil {
			return err
		}

		if len(tasks) != len(ids) {
			s.logger.Warn().
				Int("requested", len(ids)).
				Int("owned", len(tasks)).
				Str("user_id", ownerID).
				Msg("bulk update references tasks the user does not own")
			return storage.ErrNotFound
		}

		batch := &pgx.Batch{}
		for _, task := range tasks {
			var changed bool
			changed, mutateErr = mutate(task)
			if mutateErr != nil {
				return mutateErr
			}
			if changed {
				modified++
			}
			batch.Queue(updateTaskQuery, updateTaskArgs(task)...)
		}

		return mapError(tx.SendBatch(ctx, batch).Close())
	})
	if mutateErr != nil {
		return 0, mutateErr
	}
	if err != nil {
		if !isStorageError(err) {
			s.logger.Error().
				Err(err).
				Str("user_id", ownerID).
				Msg("failed to bulk update tasks")
		}
		return 0, err
	}
	s.logger.Debug().
		Int("modified", modified).
		Str("user_id", ownerID).
		Msg("bulk updated tasks")
	return modified, nil
}

func (s *Store) DeleteTask(ctx context.Context, ownerID, id string) error {
	const deleteTaskQuery = `
DELETE FROM tasks
WHERE id = $1 AND user_id = $2
`
	tag, err := s.pgPool.Exec(ctx, deleteTaskQuery, id, ownerID)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("task_id", id).
			Msg("failed to delete task")
		return err
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	s.logger.Debug().
		Str("task_id", id).
		Msg("deleted task")
	return nil
}
