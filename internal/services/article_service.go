package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/adanyl0v/tracker/internal/derive"
	"github.com/adanyl0v/tracker/internal/models"
	"github.com/adanyl0v/tracker/internal/query"
	"github.com/adanyl0v/tracker/internal/storage"
)

const (
	DefaultSearchLimit = 10

	articleSlugTaken = "an article with this slug already exists"
)

type articleServiceImpl struct {
	logger    zerolog.Logger
	repo      storage.Repository
	now       func() time.Time
	integrity *integrity
}

func NewArticleService(
	logger zerolog.Logger,
	repo storage.Repository,
	now func() time.Time,
) ArticleService {
	return &articleServiceImpl{
		logger:    logger,
		repo:      repo,
		now:       now,
		integrity: &integrity{logger: logger, repo: repo},
	}
}

func (s *articleServiceImpl) CreateArticle(ctx context.Context, params CreateArticleParams) (*models.Article, error) {
	params.Title = strings.TrimSpace(params.Title)
	params.Slug = strings.ToLower(strings.TrimSpace(params.Slug))
	params.Excerpt = strings.TrimSpace(params.Excerpt)
	params.Category = strings.TrimSpace(params.Category)
	if err := validateStruct(params); err != nil {
		return nil, err
	}

	refs := dedupe(params.ReferencedArticles)
	if err := s.integrity.checkArticles(ctx, "referencedArticles", params.OwnerID, "", refs); err != nil {
		return nil, err
	}

	id, err := newID()
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to generate article id")
		return nil, fmt.Errorf("%w: %w", ErrInternal, err)
	}

	now := s.now()
	article := &models.Article{
		ID:                 id,
		UserID:             params.OwnerID,
		Title:              params.Title,
		Slug:               params.Slug,
		Content:            params.Content,
		Excerpt:            params.Excerpt,
		CoverImage:         params.CoverImage,
		Images:             params.Images,
		Tags:               normalizeTags(params.Tags),
		Category:           params.Category,
		Status:             params.Status,
		ReferencedArticles: refs,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if article.Status == "" {
		article.Status = models.ArticleStatusDraft
	}
	if err = finishArticle(nil, article, now); err != nil {
		return nil, err
	}

	if err = s.checkSlugFree(ctx, params.OwnerID, id, article.Slug); err != nil {
		return nil, err
	}

	if err = s.repo.CreateArticle(ctx, article); err != nil {
		return nil, s.storageError(err, id, "failed to create article")
	}

	s.logger.Info().
		Str("article_id", id).
		Str("slug", article.Slug).
		Msg("created article")
	return article, nil
}

func (s *articleServiceImpl) GetArticle(ctx context.Context, ownerID, identifier string, incrementViews bool) (*ArticleDetails, error) {
	var (
		article *models.Article
		err     error
	)
	if isID(identifier) {
		article, err = s.repo.GetArticle(ctx, ownerID, identifier)
	} else {
		article, err = s.repo.GetArticleBySlug(ctx, ownerID, strings.ToLower(identifier))
	}
	if err != nil {
		return nil, s.storageError(err, identifier, "failed to get article")
	}

	if incrementViews {
		article, err = s.repo.UpdateArticle(ctx, ownerID, article.ID, func(a *models.Article) error {
			a.Views++
			return nil
		})
		if err != nil {
			return nil, s.storageError(err, identifier, "failed to increment article views")
		}
	}

	details, err := s.integrity.populateArticle(ctx, article)
	if err != nil {
		return nil, err
	}

	s.logger.Debug().
		Str("article_id", article.ID).
		Bool("increment_views", incrementViews).
		Msg("got article")
	return details, nil
}

func (s *articleServiceImpl) ListArticles(ctx context.Context, params ListArticlesParams) (*ArticlePage, error) {
	if params.Filter.OwnerID == "" {
		return nil, invalid("ownerID", "is required")
	}
	if params.Sort.Field == "" {
		params.Sort = query.DefaultSort
	}
	if err := query.ValidateArticleSort(params.Sort); err != nil {
		return nil, queryError(err)
	}
	page, err := params.Page.Normalize()
	if err != nil {
		return nil, queryError(err)
	}

	articles, total, err := s.repo.ListArticles(ctx, params.Filter, params.Sort, page)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("user_id", params.Filter.OwnerID).
			Msg("failed to list articles")
		return nil, fmt.Errorf("%w: %w", ErrInternal, err)
	}
	stripContent(articles)

	s.logger.Debug().
		Str("user_id", params.Filter.OwnerID).
		Int("count", len(articles)).
		Int("total", total).
		Msg("listed articles")
	return &ArticlePage{
		Articles:   articles,
		Pagination: query.NewPagination(page, len(articles), total),
	}, nil
}

func (s *articleServiceImpl) SearchArticles(ctx context.Context, params SearchArticlesParams) ([]*models.Article, error) {
	params.Query = strings.TrimSpace(params.Query)
	if err := validateStruct(params); err != nil {
		return nil, err
	}

	limit := params.Limit
	if limit == 0 {
		limit = DefaultSearchLimit
	}
	page := query.Page{Number: 1, Limit: min(limit, query.MaxPageLimit)}

	filter := query.ArticleFilter{
		OwnerID:  params.OwnerID,
		Statuses: params.Statuses,
		Category: params.Category,
		Tags:     params.Tags,
		Search:   params.Query,
	}
	articles, _, err := s.repo.ListArticles(ctx, filter, query.DefaultSort, page)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("user_id", params.OwnerID).
			Str("query", params.Query).
			Msg("failed to search articles")
		return nil, fmt.Errorf("%w: %w", ErrInternal, err)
	}
	stripContent(articles)

	s.logger.Debug().
		Str("user_id", params.OwnerID).
		Str("query", params.Query).
		Int("count", len(articles)).
		Msg("searched articles")
	return articles, nil
}

func (s *articleServiceImpl) UpdateArticle(ctx context.Context, params UpdateArticleParams) (*models.Article, error) {
	trim := func(p *string) *string {
		if p == nil {
			return nil
		}
		v := strings.TrimSpace(*p)
		return &v
	}
	params.Title = trim(params.Title)
	params.Excerpt = trim(params.Excerpt)
	params.Category = trim(params.Category)
	if params.Slug != nil {
		slug := strings.ToLower(strings.TrimSpace(*params.Slug))
		params.Slug = &slug
	}
	if err := validateStruct(params); err != nil {
		return nil, err
	}

	var refs []string
	if params.ReferencedArticles != nil {
		refs = dedupe(*params.ReferencedArticles)
		err := s.integrity.checkArticles(ctx, "referencedArticles", params.OwnerID, params.ID, refs)
		if err != nil {
			return nil, err
		}
	}
	if params.Slug != nil {
		if err := s.checkSlugFree(ctx, params.OwnerID, params.ID, *params.Slug); err != nil {
			return nil, err
		}
	}

	article, err := s.repo.UpdateArticle(ctx, params.OwnerID, params.ID, func(a *models.Article) error {
		prev := a.Clone()
		if params.Title != nil {
			a.Title = *params.Title
		}
		if params.Slug != nil {
			a.Slug = *params.Slug
		}
		if params.Content != nil {
			a.Content = *params.Content
		}
		if params.Excerpt != nil {
			a.Excerpt = *params.Excerpt
		}
		if params.CoverImage != nil {
			a.CoverImage = *params.CoverImage
		}
		if params.Images != nil {
			a.Images = append([]models.Image{}, *params.Images...)
		}
		if params.Tags != nil {
			a.Tags = normalizeTags(*params.Tags)
		}
		if params.Category != nil {
			a.Category = *params.Category
		}
		if params.Status != nil {
			a.Status = *params.Status
		}
		if params.ReferencedArticles != nil {
			a.ReferencedArticles = refs
		}

		now := s.now()
		if err := finishArticle(prev, a, now); err != nil {
			return err
		}
		a.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, s.storageError(err, params.ID, "failed to update article")
	}

	s.logger.Info().
		Str("article_id", params.ID).
		Msg("updated article")
	return article, nil
}

func (s *articleServiceImpl) DeleteArticle(ctx context.Context, ownerID, id string) error {
	if err := s.repo.DeleteArticle(ctx, ownerID, id); err != nil {
		return s.storageError(err, id, "failed to delete article")
	}

	s.logger.Info().
		Str("article_id", id).
		Msg("deleted article")
	return nil
}

func (s *articleServiceImpl) CategoriesAndTags(ctx context.Context, ownerID string) ([]string, []string, error) {
	categories, tags, err := s.repo.ArticleCategoriesAndTags(ctx, ownerID)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("user_id", ownerID).
			Msg("failed to collect article categories and tags")
		return nil, nil, fmt.Errorf("%w: %w", ErrInternal, err)
	}

	if categories == nil {
		categories = []string{}
	}
	if tags == nil {
		tags = []string{}
	}
	return categories, tags, nil
}

// finishArticle derives the computed fields of next and checks the rules
// that depend on them.
func finishArticle(prev, next *models.Article, now time.Time) error {
	derive.Article(prev, next, now)
	if next.Slug == "" || isID(next.Slug) {
		next.Slug = fallbackSlug()
	}

	if next.Status == models.ArticleStatusPublished {
		if next.Title == "" {
			return invalid("title", "is required to publish an article")
		}
		if strings.TrimSpace(next.Content) == "" {
			return invalid("content", "is required to publish an article")
		}
	}
	return nil
}

func fallbackSlug() string {
	id := uuid.New()
	return "untitled-" + strings.ReplaceAll(id.String(), "-", "")[:8]
}

// checkSlugFree fails with a *ConflictError when another article of the
// owner already uses slug.
func (s *articleServiceImpl) checkSlugFree(ctx context.Context, ownerID, selfID, slug string) error {
	if slug == "" {
		return nil
	}

	existing, err := s.repo.GetArticleBySlug(ctx, ownerID, slug)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return nil
	case err != nil:
		s.logger.Error().
			Err(err).
			Str("slug", slug).
			Msg("failed to look up article slug")
		return fmt.Errorf("%w: %w", ErrInternal, err)
	case existing.ID != selfID:
		return &ConflictError{Reason: articleSlugTaken}
	}
	return nil
}

func stripContent(articles []*models.Article) {
	for _, a := range articles {
		a.Content = ""
	}
}

func (s *articleServiceImpl) storageError(err error, id, msg string) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return ErrArticleNotFound
	case errors.Is(err, storage.ErrDuplicate):
		return &ConflictError{Reason: articleSlugTaken}
	}

	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return err
	}

	s.logger.Error().
		Err(err).
		Str("article_id", id).
		Msg(msg)
	return fmt.Errorf("%w: %w", ErrInternal, err)
}
