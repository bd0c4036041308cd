package services

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/rs/zerolog"

	"github.com/adanyl0v/tracker/internal/models"
	"github.com/adanyl0v/tracker/internal/storage"
)

// integrity checks the references between sections, tasks and articles
// before a record that carries them is written, and resolves them into
// summaries when the record is read.
type integrity struct {
	logger zerolog.Logger
	repo   storage.Repository
}

// checkSection verifies that a task may be filed under sectionID: the
// section must exist, belong to the owner and not be archived.
func (i *integrity) checkSection(ctx context.Context, ownerID, sectionID string) error {
	section, err := i.repo.GetSection(ctx, ownerID, sectionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return invalid("sectionID", "does not reference an existing section")
		}
		i.logger.Error().
			Err(err).
			Str("section_id", sectionID).
			Msg("failed to check task section")
		return fmt.Errorf("%w: %w", ErrInternal, err)
	}

	if section.IsArchived {
		return invalid("sectionID", "references an archived section")
	}
	return nil
}

// checkArticles verifies that every id in ids is an article of the owner.
// selfID is the id of the article carrying the list, if any. ids must be
// free of duplicates.
func (i *integrity) checkArticles(ctx context.Context, field, ownerID, selfID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	for _, id := range ids {
		if !isID(id) {
			return invalid(field, "must only contain valid ids")
		}
		if selfID != "" && id == selfID {
			return invalid(field, "must not reference the article itself")
		}
	}

	n, err := i.repo.CountOwnedArticles(ctx, ownerID, ids)
	if err != nil {
		i.logger.Error().
			Err(err).
			Strs("article_ids", ids).
			Msg("failed to count referenced articles")
		return fmt.Errorf("%w: %w", ErrInternal, err)
	}

	if n != len(ids) {
		i.logger.Debug().
			Int("found", n).
			Int("expected", len(ids)).
			Msg("unresolved article references")
		return invalid(field, "references articles that do not exist")
	}
	return nil
}

// populateTasks resolves the section and linked articles of every task
// with one lookup per kind.
func (i *integrity) populateTasks(ctx context.Context, ownerID string, tasks []*models.Task) ([]*TaskDetails, error) {
	var sectionIDs, articleIDs []string
	for _, task := range tasks {
		if !slices.Contains(sectionIDs, task.SectionID) {
			sectionIDs = append(sectionIDs, task.SectionID)
		}
		for _, id := range task.LinkedArticles {
			if !slices.Contains(articleIDs, id) {
				articleIDs = append(articleIDs, id)
			}
		}
	}

	sections := make(map[string]models.SectionSummary, len(sectionIDs))
	if len(sectionIDs) > 0 {
		summaries, err := i.repo.SectionSummaries(ctx, ownerID, sectionIDs)
		if err != nil {
			i.logger.Error().
				Err(err).
				Strs("section_ids", sectionIDs).
				Msg("failed to resolve task sections")
			return nil, fmt.Errorf("%w: %w", ErrInternal, err)
		}
		for _, summary := range summaries {
			sections[summary.ID] = summary
		}
	}

	articles, err := i.articleSummaries(ctx, ownerID, articleIDs)
	if err != nil {
		return nil, err
	}

	details := make([]*TaskDetails, len(tasks))
	for n, task := range tasks {
		d := &TaskDetails{
			Task:                   task,
			LinkedArticleSummaries: make([]models.ArticleSummary, 0, len(task.LinkedArticles)),
		}
		if summary, ok := sections[task.SectionID]; ok {
			d.Section = &summary
		}
		for _, id := range task.LinkedArticles {
			if summary, ok := articles[id]; ok {
				d.LinkedArticleSummaries = append(d.LinkedArticleSummaries, summary)
			}
		}
		details[n] = d
	}
	return details, nil
}

// populateArticle resolves the articles referenced by article.
func (i *integrity) populateArticle(ctx context.Context, article *models.Article) (*ArticleDetails, error) {
	summaries, err := i.articleSummaries(ctx, article.UserID, article.ReferencedArticles)
	if err != nil {
		return nil, err
	}

	d := &ArticleDetails{
		Article:    article,
		References: make([]models.ArticleSummary, 0, len(article.ReferencedArticles)),
	}
	for _, id := range article.ReferencedArticles {
		if summary, ok := summaries[id]; ok {
			d.References = append(d.References, summary)
		}
	}
	return d, nil
}

func (i *integrity) articleSummaries(ctx context.Context, ownerID string, ids []string) (map[string]models.ArticleSummary, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	summaries, err := i.repo.ArticleSummaries(ctx, ownerID, ids)
	if err != nil {
		i.logger.Error().
			Err(err).
			Strs("article_ids", ids).
			Msg("failed to resolve article references")
		return nil, fmt.Errorf("%w: %w", ErrInternal, err)
	}

	byID := make(map[string]models.ArticleSummary, len(summaries))
	for _, summary := range summaries {
		byID[summary.ID] = summary
	}
	return byID, nil
}
