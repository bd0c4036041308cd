package memory

import (
	"context"
	"sort"

	"github.com/adanyl0v/tracker/internal/models"
	"github.com/adanyl0v/tracker/internal/query"
	"github.com/adanyl0v/tracker/internal/storage"
)

func (s *Store) CreateTask(_ context.Context, task *models.Task) error {
	sh := s.shard(task.UserID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if _, ok := sh.sections[task.SectionID]; !ok {
		return storage.ErrInvalidReference
	}
	if _, ok := sh.tasks[task.ID]; ok {
		return storage.ErrDuplicate
	}
	sh.tasks[task.ID] = task.Clone()
	return nil
}

func (s *Store) GetTask(_ context.Context, ownerID, id string) (*models.Task, error) {
	sh := s.lookup(ownerID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	task, ok := sh.tasks[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return task.Clone(), nil
}

func (sh *shard) matchTasks(filter query.TaskFilter) []*models.Task {
	var tasks []*models.Task
	for _, task := range sh.tasks {
		if query.MatchTask(filter, task) {
			tasks = append(tasks, task)
		}
	}
	return tasks
}

func (s *Store) ListTasks(
	_ context.Context,
	filter query.TaskFilter,
	order query.Sort,
	page query.Page,
) ([]*models.Task, int, error) {
	sh := s.lookup(filter.OwnerID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	matched := sh.matchTasks(filter)
	sort.Slice(matched, func(i, j int) bool {
		return query.LessTask(order, matched[i], matched[j])
	})

	start, end := page.Window(len(matched))
	tasks := make([]*models.Task, 0, end-start)
	for _, task := range matched[start:end] {
		tasks = append(tasks, task.Clone())
	}
	return tasks, len(matched), nil
}

func (s *Store) CountTasks(_ context.Context, filter query.TaskFilter) (int, error) {
	sh := s.lookup(filter.OwnerID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	return len(sh.matchTasks(filter)), nil
}

func (s *Store) UpdateTask(
	_ context.Context,
	ownerID, id string,
	mutate storage.Mutation[*models.Task],
) (*models.Task, error) {
	sh := s.lookup(ownerID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	stored, ok := sh.tasks[id]
	if !ok {
		return nil, storage.ErrNotFound
	}

	task := stored.Clone()
	if err := mutate(task); err != nil {
		return nil, err
	}
	if _, ok := sh.sections[task.SectionID]; !ok {
		return nil, storage.ErrInvalidReference
	}

	sh.tasks[id] = task.Clone()
	return task, nil
}

func (s *Store) UpdateTasks(
	_ context.Context,
	ownerID string,
	ids []string,
	mutate storage.BatchMutation[*models.Task],
) (int, error) {
	sh := s.lookup(ownerID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	staged := make([]*models.Task, 0, len(ids))
	for _, id := range ids {
		stored, ok := sh.tasks[id]
		if !ok {
			return 0, storage.ErrNotFound
		}
		staged = append(staged, stored.Clone())
	}

	modified := 0
	for _, task := range staged {
		changed, err := mutate(task)
		if err != nil {
			return 0, err
		}
		if _, ok := sh.sections[task.SectionID]; !ok {
			return 0, storage.ErrInvalidReference
		}
		if changed {
			modified++
		}
	}

	for _, task := range staged {
		sh.tasks[task.ID] = task
	}
	return modified, nil
}

func (s *Store) DeleteTask(_ context.Context, ownerID, id string) error {
	sh := s.lookup(ownerID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if _, ok := sh.tasks[id]; !ok {
		return storage.ErrNotFound
	}
	delete(sh.tasks, id)
	return nil
}
