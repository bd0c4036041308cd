package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/adanyl0v/tracker/internal/models"
	"github.com/adanyl0v/tracker/internal/query"
	"github.com/adanyl0v/tracker/internal/storage"
)

const articleColumns = `id,
       user_id,
       title,
       slug,
       content,
       excerpt,
       cover_image,
       images,
       tags,
       category,
       status,
       referenced_articles,
       published_at,
       read_time,
       views,
       created_at,
       updated_at`

func scanArticle(row scanner) (*models.Article, error) {
	var (
		article = new(models.Article)
		status  string
	)
	err := row.Scan(
		&article.ID,
		&article.UserID,
		&article.Title,
		&article.Slug,
		&article.Content,
		&article.Excerpt,
		&article.CoverImage,
		&article.Images,
		&article.Tags,
		&article.Category,
		&status,
		&article.ReferencedArticles,
		&article.PublishedAt,
		&article.ReadTime,
		&article.Views,
		&article.CreatedAt,
		&article.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	article.Status = models.ArticleStatus(status)
	return article, nil
}

func (s *Store) CreateArticle(ctx context.Context, article *models.Article) error {
	const insertArticleQuery = `
INSERT INTO articles (id,
                      user_id,
                      title,
                      slug,
                      content,
                      excerpt,
                      cover_image,
                      images,
                      tags,
                      category,
                      status,
                      referenced_articles,
                      published_at,
                      read_time,
                      views,
                      created_at,
                      updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
`
	_, err := s.pgPool.Exec(
		ctx,
		insertArticleQuery,
		article.ID,
		article.UserID,
		article.Title,
		article.Slug,
		article.Content,
		article.Excerpt,
		article.CoverImage,
		nonNil(article.Images),
		nonNil(article.Tags),
		article.Category,
		string(article.Status),
		nonNil(article.ReferencedArticles),
		article.PublishedAt,
		article.ReadTime,
		article.Views,
		article.CreatedAt,
		article.UpdatedAt,
	)
	if err != nil {
		err = mapError(err)
		if errors.Is(err, storage.ErrDuplicate) {
			s.logger.Warn().
				Str("user_id", article.UserID).
				Str("slug", article.Slug).
				Msg("article with this slug already exists")
			return err
		}

		s.logger.Error().
			Err(err).
			Msg("failed to insert article")
		return err
	}
	s.logger.Debug().
		Str("article_id", article.ID).
		Msg("inserted article")
	return nil
}

func (s *Store) getArticleWhere(ctx context.Context, column, value, ownerID string) (*models.Article, error) {
	selectArticleQuery := `
SELECT ` + articleColumns + `
FROM articles
WHERE ` + column + ` = $1 AND user_id = $2
`
	article, err := scanArticle(s.pgPool.QueryRow(ctx, selectArticleQuery, value, ownerID))
	if err != nil {
		err = mapError(err)
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Error().
				Err(err).
				Str(column, value).
				Msg("failed to select article")
		}
		return nil, err
	}
	return article, nil
}

func (s *Store) GetArticle(ctx context.Context, ownerID, id string) (*models.Article, error) {
	return s.getArticleWhere(ctx, "id", id, ownerID)
}

func (s *Store) GetArticleBySlug(ctx context.Context, ownerID, slug string) (*models.Article, error) {
	return s.getArticleWhere(ctx, "slug", slug, ownerID)
}

func (s *Store) ListArticles(
	ctx context.Context,
	filter query.ArticleFilter,
	order query.Sort,
	page query.Page,
) ([]*models.Article, int, error) {
	var (
		articles []*models.Article
		total    int
	)
	err := s.inSnapshot(ctx, func(tx pgx.Tx) error {
		where := articleWhere(filter)

		var err error
		total, err = countRows(ctx, tx, "articles", where)
		if err != nil {
			return err
		}

		selectArticlesQuery := `
SELECT ` + articleColumns + `
FROM articles
` + where.String() + `
` + orderBy(articleSortColumns, order) + `
` + pageClause(where, page)

		rows, err := tx.Query(ctx, selectArticlesQuery, where.args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		articles = make([]*models.Article, 0, page.Limit)
		for rows.Next() {
			article, err := scanArticle(rows)
			if err != nil {
				return err
			}
			articles = append(articles, article)
		}
		return rows.Err()
	})
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("user_id", filter.OwnerID).
			Msg("failed to list articles")
		return nil, 0, err
	}
	s.logger.Debug().
		Int("count", len(articles)).
		Int("total", total).
		Str("user_id", filter.OwnerID).
		Msg("selected articles")
	return articles, total, nil
}

func (s *Store) CountArticles(ctx context.Context, filter query.ArticleFilter) (int, error) {
	count, err := countRows(ctx, s.pgPool, "articles", articleWhere(filter))
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("user_id", filter.OwnerID).
			Msg("failed to count articles")
		return 0, err
	}
	return count, nil
}

func (s *Store) CountOwnedArticles(ctx context.Context, ownerID string, ids []string) (int, error) {
	const countOwnedArticlesQuery = `
SELECT count(*)
FROM articles
WHERE user_id = $1 AND id = ANY($2)
`
	var count int
	err := s.pgPool.QueryRow(ctx, countOwnedArticlesQuery, ownerID, ids).Scan(&count)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("user_id", ownerID).
			Msg("failed to count owned articles")
		return 0, err
	}
	return count, nil
}

func (s *Store) ArticleSummaries(ctx context.Context, ownerID string, ids []string) ([]models.ArticleSummary, error) {
	const selectArticleSummariesQuery = `
SELECT id, title, slug, status, excerpt
FROM articles
WHERE user_id = $1 AND id = ANY($2)
ORDER BY array_position($2::text[], id)
`
	rows, err := s.pgPool.Query(ctx, selectArticleSummariesQuery, ownerID, ids)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("user_id", ownerID).
			Msg("failed to select article summaries")
		return nil, err
	}

	summaries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.ArticleSummary, error) {
		var (
			summary models.ArticleSummary
			status  string
		)
		err := row.Scan(&summary.ID, &summary.Title, &summary.Slug, &status, &summary.Excerpt)
		summary.Status = models.ArticleStatus(status)
		return summary, err
	})
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to scan article summaries")
		return nil, err
	}
	return summaries, nil
}

func (s *Store) UpdateArticle(
	ctx context.Context,
	ownerID, id string,
	mutate storage.Mutation[*models.Article],
) (*models.Article, error) {
	var (
		article   *models.Article
		mutateErr error
	)
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		const lockArticleQuery = `
SELECT ` + articleColumns + `
FROM articles
WHERE id = $1 AND user_id = $2
FOR UPDATE
`
		var err error
		article, err = scanArticle(tx.QueryRow(ctx, lockArticleQuery, id, ownerID))
		if err != nil {
			return mapError(err)
		}

		mutateErr = mutate(article)
		if mutateErr != nil {
			return mutateErr
		}

		const updateArticleQuery = `
UPDATE articles
SET title = $1,
    slug = $2,
    content = $3,
    excerpt = $4,
    cover_image = $5,
    images = $6,
    tags = $7,
    category = $8,
    status = $9,
    referenced_articles = $10,
    published_at = $11,
    read_time = $12,
    views = $13,
    updated_at = $14
WHERE id = $15 AND user_id = $16
`
		_, err = tx.Exec(
			ctx,
			updateArticleQuery,
			article.Title,
			article.Slug,
			article.Content,
			article.Excerpt,
			article.CoverImage,
			nonNil(article.Images),
			nonNil(article.Tags),
			article.Category,
			string(article.Status),
			nonNil(article.ReferencedArticles),
			article.PublishedAt,
			article.ReadTime,
			article.Views,
			article.UpdatedAt,
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
				Str("article_id", id).
				Msg("failed to update article")
		}
		return nil, err
	}
	s.logger.Debug().
		Str("article_id", id).
		Msg("updated article")
	return article, nil
}

func (s *Store) DeleteArticle(ctx context.Context, ownerID, id string) error {
	now := s.now()
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		const lockArticleQuery = `
SELECT id
FROM articles
WHERE id = $1 AND user_id = $2
FOR UPDATE
`
		var lockedID string
		err := tx.QueryRow(ctx, lockArticleQuery, id, ownerID).Scan(&lockedID)
		if err != nil {
			return mapError(err)
		}

		const pullArticleReferencesQuery = `
UPDATE articles
SET referenced_articles = array_remove(referenced_articles, $1),
    updated_at = $3
WHERE user_id = $2 AND id <> $1 AND $1 = ANY(referenced_articles)
`
		tag, err := tx.Exec(ctx, pullArticleReferencesQuery, id, ownerID, now)
		if err != nil {
			return err
		}
		s.logger.Debug().
			Str("article_id", id).
			Int64("affected", tag.RowsAffected()).
			Msg("pulled article references")

		const pullTaskLinksQuery = `
UPDATE tasks
SET linked_articles = array_remove(linked_articles, $1),
    updated_at = $3
WHERE user_id = $2 AND $1 = ANY(linked_articles)
`
		tag, err = tx.Exec(ctx, pullTaskLinksQuery, id, ownerID, now)
		if err != nil {
			return err
		}
		s.logger.Debug().
			Str("article_id", id).
			Int64("affected", tag.RowsAffected()).
			Msg("pulled task links")

		const deleteArticleQuery = `
DELETE FROM articles
WHERE id = $1 AND user_id = $2
`
		_, err = tx.Exec(ctx, deleteArticleQuery, id, ownerID)
		return err
	})
	if err != nil {
		if !isStorageError(err) {
			s.logger.Error().
				Err(err).
				Str("article_id", id).
				Msg("failed to delete article")
		}
		return err
	}
	s.logger.Debug().
		Str("article_id", id).
		Msg("deleted article")
	return nil
}

func (s *Store) SumArticleViews(ctx context.Context, ownerID string) (int64, error) {
	const sumViewsQuery = `
SELECT COALESCE(SUM(views), 0)::bigint
FROM articles
WHERE user_id = $1
`
	var total int64
	err := s.pgPool.QueryRow(ctx, sumViewsQuery, ownerID).Scan(&total)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("user_id", ownerID).
			Msg("failed to sum article views")
		return 0, err
	}
	return total, nil
}

func (s *Store) TopArticleCategories(ctx context.Context, ownerID string, limit int) ([]models.CategoryCount, error) {
	const topCategoriesQuery = `
SELECT category, count(*)
FROM articles
WHERE user_id = $1 AND category <> ''
GROUP BY category
ORDER BY count(*) DESC, category COLLATE "C" ASC
LIMIT $2
`
	rows, err := s.pgPool.Query(ctx, topCategoriesQuery, ownerID, limit)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("user_id", ownerID).
			Msg("failed to select top categories")
		return nil, err
	}

	categories, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.CategoryCount, error) {
		var c models.CategoryCount
		err := row.Scan(&c.Category, &c.Count)
		return c, err
	})
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to scan categories")
		return nil, err
	}
	return categories, nil
}

func (s *Store) ArticleCategoriesAndTags(ctx context.Context, ownerID string) ([]string, []string, error) {
	const selectCategoriesQuery = `
SELECT DISTINCT category COLLATE "C"
FROM articles
WHERE user_id = $1 AND category <> ''
ORDER BY 1
`
	const selectTagsQuery = `
SELECT DISTINCT t.tag COLLATE "C"
FROM articles a
         CROSS JOIN LATERAL unnest(a.tags) AS t(tag)
WHERE a.user_id = $1 AND t.tag <> ''
ORDER BY 1
`
	categories, err := collectStrings(ctx, s.pgPool, selectCategoriesQuery, ownerID)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("user_id", ownerID).
			Msg("failed to select categories")
		return nil, nil, err
	}

	tags, err := collectStrings(ctx, s.pgPool, selectTagsQuery, ownerID)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("user_id", ownerID).
			Msg("failed to select tags")
		return nil, nil, err
	}
	return categories, tags, nil
}

func collectStrings(ctx context.Context, q querier, sql string, args ...any) ([]string, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}
