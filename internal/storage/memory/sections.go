package memory

import (
	"context"
	"sort"

	"github.com/adanyl0v/tracker/internal/models"
	"github.com/adanyl0v/tracker/internal/storage"
)

func (sh *shard) activeNameTaken(section *models.Section) bool {
	if section.IsArchived {
		return false
	}
	for id, other := range sh.sections {
		if id != section.ID && !other.IsArchived && other.Name == section.Name {
			return true
		}
	}
	return false
}

func (s *Store) CreateSection(_ context.Context, section *models.Section) error {
	sh := s.shard(section.UserID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if _, ok := sh.sections[section.ID]; ok || sh.activeNameTaken(section) {
		return storage.ErrDuplicate
	}
	sh.sections[section.ID] = section.Clone()
	return nil
}

func (s *Store) GetSection(_ context.Context, ownerID, id string) (*models.Section, error) {
	sh := s.lookup(ownerID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	section, ok := sh.sections[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return section.Clone(), nil
}

func (s *Store) ListSections(_ context.Context, ownerID string, archived bool) ([]*models.Section, error) {
	sh := s.lookup(ownerID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	sections := make([]*models.Section, 0, len(sh.sections))
	for _, section := range sh.sections {
		if section.IsArchived == archived {
			sections = append(sections, section.Clone())
		}
	}
	sort.Slice(sections, func(i, j int) bool {
		a, b := sections[i], sections[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
	return sections, nil
}

func (s *Store) SectionSummaries(_ context.Context, ownerID string, ids []string) ([]models.SectionSummary, error) {
	sh := s.lookup(ownerID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	summaries := make([]models.SectionSummary, 0, len(ids))
	for _, id := range ids {
		if section, ok := sh.sections[id]; ok {
			summaries = append(summaries, models.SectionSummary{
				ID:    section.ID,
				Name:  section.Name,
				Color: section.Color,
				Icon:  section.Icon,
			})
		}
	}
	return summaries, nil
}

func (s *Store) UpdateSection(
	_ context.Context,
	ownerID, id string,
	mutate storage.Mutation[*models.Section],
) (*models.Section, error) {
	sh := s.lookup(ownerID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	stored, ok := sh.sections[id]
	if !ok {
		return nil, storage.ErrNotFound
	}

	section := stored.Clone()
	if err := mutate(section); err != nil {
		return nil, err
	}
	if sh.activeNameTaken(section) {
		return nil, storage.ErrDuplicate
	}

	sh.sections[id] = section.Clone()
	return section, nil
}

func (s *Store) DeleteSection(_ context.Context, ownerID, id string) error {
	sh := s.lookup(ownerID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if _, ok := sh.sections[id]; !ok {
		return storage.ErrNotFound
	}

	dependents := 0
	for _, task := range sh.tasks {
		if task.SectionID == id {
			dependents++
		}
	}
	if dependents > 0 {
		return &storage.DependentsError{Count: dependents}
	}

	delete(sh.sections, id)
	return nil
}
