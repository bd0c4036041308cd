package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/adanyl0v/tracker/internal/models"
	"github.com/adanyl0v/tracker/internal/storage"
)

const sectionColumns = `id,
       user_id,
       name,
       description,
       color,
       icon,
       is_archived,
       created_at,
       updated_at`

func scanSection(row scanner) (*models.Section, error) {
	section := new(models.Section)
	err := row.Scan(
		&section.ID,
		&section.UserID,
		&section.Name,
		&section.Description,
		&section.Color,
		&section.Icon,
		&section.IsArchived,
		&section.CreatedAt,
		&section.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return section, nil
}

func (s *Store) CreateSection(ctx context.Context, section *models.Section) error {
	const insertSectionQuery = `
INSERT INTO sections (id,
                      user_id,
                      name,
                      description,
                      color,
                      icon,
                      is_archived,
                      created_at,
                      updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`
	_, err := s.pgPool.Exec(
		ctx,
		insertSectionQuery,
		section.ID,
		section.UserID,
		section.Name,
		section.Description,
		section.Color,
		section.Icon,
		section.IsArchived,
		section.CreatedAt,
		section.UpdatedAt,
	)
	if err != nil {
		err = mapError(err)
		if errors.Is(err, storage.ErrDuplicate) {
			s.logger.Warn().
				Str("user_id", section.UserID).
				Str("name", section.Name).
				Msg("active section with this name already exists")
			return err
		}

		s.logger.Error().
			Err(err).
			Msg("failed to insert section")
		return err
	}
	s.logger.Debug().
		Str("section_id", section.ID).
		Msg("inserted section")
	return nil
}

func (s *Store) GetSection(ctx context.Context, ownerID, id string) (*models.Section, error) {
	const selectSectionQuery = `
SELECT ` + sectionColumns + `
FROM sections
WHERE id = $1 AND user_id = $2
`
	section, err := scanSection(s.pgPool.QueryRow(ctx, selectSectionQuery, id, ownerID))
	if err != nil {
		err = mapError(err)
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Error().
				Err(err).
				Str("section_id", id).
				Msg("failed to select section")
		}
		return nil, err
	}
	return section, nil
}

func (s *Store) ListSections(ctx context.Context, ownerID string, archived bool) ([]*models.Section, error) {
	const selectSectionsQuery = `
SELECT ` + sectionColumns + `
FROM sections
WHERE user_id = $1 AND is_archived = $2
ORDER BY created_at DESC, id COLLATE "C" DESC
`
	rows, err := s.pgPool.Query(ctx, selectSectionsQuery, ownerID, archived)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to select sections")
		return nil, err
	}
	defer rows.Close()

	var sections []*models.Section
	for rows.Next() {
		section, err := scanSection(rows)
		if err != nil {
			s.logger.Error().
				Err(err).
				Msg("failed to scan section")
			return nil, err
		}
		sections = append(sections, section)
	}

	err = rows.Err()
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to iterate over rows")
		return nil, err
	}
	return sections, nil
}

func (s *Store) SectionSummaries(ctx context.Context, ownerID string, ids []string) ([]models.SectionSummary, error) {
	const selectSectionSummariesQuery = `
SELECT id, name, color, icon
FROM sections
WHERE user_id = $1 AND id = ANY($2)
ORDER BY array_position($2::text[], id)
`
	rows, err := s.pgPool.Query(ctx, selectSectionSummariesQuery, ownerID, ids)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("user_id", ownerID).
			Msg("failed to select section summaries")
		return nil, err
	}

	summaries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.SectionSummary, error) {
		var summary models.SectionSummary
		err := row.Scan(&summary.ID, &summary.Name, &summary.Color, &summary.Icon)
		return summary, err
	})
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to scan section summaries")
		return nil, err
	}
	return summaries, nil
}

func (s *Store) UpdateSection(
	ctx context.Context,
	ownerID, id string,
	mutate storage.Mutation[*models.Section],
) (*models.Section, error) {
	var (
		section   *models.Section
		mutateErr error
	)
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		const lockSectionQuery = `
SELECT ` + sectionColumns + `
FROM sections
WHERE id = $1 AND user_id = $2
FOR UPDATE
`
		var err error
		section, err = scanSection(tx.QueryRow(ctx, lockSectionQuery, id, ownerID))
		if err != nil {
			return mapError(err)
		}

		mutateErr = mutate(section)
		if mutateErr != nil {
			return mutateErr
		}

		const updateSectionQuery = `
UPDATE sections
SET name = $1,
    description = $2,
    color = $3,
    icon = $4,
    is_archived = $5,
    updated_at = $6
WHERE id = $7 AND user_id = $8
`
		_, err = tx.Exec(
			ctx,
			updateSectionQuery,
			section.Name,
			section.Description,
			section.Color,
			section.Icon,
			section.IsArchived,
			section.UpdatedAt,
			id,
			ownerID,
		)
		return mapError(err)
	})
	if mutateErr != nil {
		return nil, mutateErr
	}
	if err != nil {
		if !isStorageError(err) {
			s.logger.Error().
				Err(err).
				Str("section_id", id).
				Msg("failed to update section")
		}
		return nil, err
	}
	s.logger.Debug().
		Str("section_id", id).
		Msg("updated section")
	return section, nil
}

func countSectionTasks(ctx context.Context, q querier, ownerID, sectionID string) (int, error) {
	const countTasksQuery = `
SELECT count(*)
FROM tasks
WHERE user_id = $1 AND section_id = $2
`
	var count int
	err := q.QueryRow(ctx, countTasksQuery, ownerID, sectionID).Scan(&count)
	return count, err
}

func (s *Store) DeleteSection(ctx context.Context, ownerID, id string) error {
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		const lockSectionQuery = `
SELECT id
FROM sections
WHERE id = $1 AND user_id = $2
FOR UPDATE
`
		var lockedID string
		err := tx.QueryRow(ctx, lockSectionQuery, id, ownerID).Scan(&lockedID)
		if err != nil {
			return mapError(err)
		}

		count, err := countSectionTasks(ctx, tx, ownerID, id)
		if err != nil {
			return err
		}
		if count > 0 {
			return &storage.DependentsError{Count: count}
		}

		const deleteSectionQuery = `
DELETE FROM sections
WHERE id = $1 AND user_id = $2
`
		_, err = tx.Exec(ctx, deleteSectionQuery, id, ownerID)
		return mapError(err)
	})

	// A task committed between the count and the delete trips the
	// foreign key instead.
	if errors.Is(err, storage.ErrInvalidReference) {
		count, countErr := countSectionTasks(ctx, s.pgPool, ownerID, id)
		if countErr != nil {
			s.logger.Error().
				Err(countErr).
				Str("section_id", id).
				Msg("failed to count section tasks")
			return countErr
		}
		err = &storage.DependentsError{Count: count}
	}

	if err != nil {
		if !isStorageError(err) {
			s.logger.Error().
				Err(err).
				Str("section_id", id).
				Msg("failed to delete section")
		}
		return err
	}
	s.logger.Debug().
		Str("section_id", id).
		Msg("deleted section")
	return nil
}
