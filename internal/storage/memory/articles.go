package memory

import (
	"context"
	"sort"

	"github.com/adanyl0v/tracker/internal/models"
	"github.com/adanyl0v/tracker/internal/query"
	"github.com/adanyl0v/tracker/internal/storage"
)

func (sh *shard) slugTaken(article *models.Article) bool {
	for id, other := range sh.articles {
		if id != article.ID && other.Slug == article.Slug {
			return true
		}
	}
	return false
}

func (s *Store) CreateArticle(_ context.Context, article *models.Article) error {
	sh := s.shard(article.UserID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if _, ok := sh.articles[article.ID]; ok || sh.slugTaken(article) {
		return storage.ErrDuplicate
	}
	sh.articles[article.ID] = article.Clone()
	return nil
}

func (s *Store) GetArticle(_ context.Context, ownerID, id string) (*models.Article, error) {
	sh := s.lookup(ownerID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	article, ok := sh.articles[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return article.Clone(), nil
}

func (s *Store) GetArticleBySlug(_ context.Context, ownerID, slug string) (*models.Article, error) {
	sh := s.lookup(ownerID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	for _, article := range sh.articles {
		if article.Slug == slug {
			return article.Clone(), nil
		}
	}
	return nil, storage.ErrNotFound
}

func (sh *shard) matchArticles(filter query.ArticleFilter) []*models.Article {
	var articles []*models.Article
	for _, article := range sh.articles {
		if query.MatchArticle(filter, article) {
			articles = append(articles, article)
		}
	}
	return articles
}

func (s *Store) ListArticles(
	_ context.Context,
	filter query.ArticleFilter,
	order query.Sort,
	page query.Page,
) ([]*models.Article, int, error) {
	sh := s.lookup(filter.OwnerID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	matched := sh.matchArticles(filter)
	sort.Slice(matched, func(i, j int) bool {
		return query.LessArticle(order, matched[i], matched[j])
	})

	start, end := page.Window(len(matched))
	articles := make([]*models.Article, 0, end-start)
	for _, article := range matched[start:end] {
		articles = append(articles, article.Clone())
	}
	return articles, len(matched), nil
}

func (s *Store) CountArticles(_ context.Context, filter query.ArticleFilter) (int, error) {
	sh := s.lookup(filter.OwnerID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	return len(sh.matchArticles(filter)), nil
}

func (s *Store) CountOwnedArticles(_ context.Context, ownerID string, ids []string) (int, error) {
	sh := s.lookup(ownerID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := sh.articles[id]; ok {
			seen[id] = struct{}{}
		}
	}
	return len(seen), nil
}

func (s *Store) ArticleSummaries(_ context.Context, ownerID string, ids []string) ([]models.ArticleSummary, error) {
	sh := s.lookup(ownerID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	summaries := make([]models.ArticleSummary, 0, len(ids))
	for _, id := range ids {
		if article, ok := sh.articles[id]; ok {
			summaries = append(summaries, article.Summary())
		}
	}
	return summaries, nil
}

func (s *Store) UpdateArticle(
	_ context.Context,
	ownerID, id string,
	mutate storage.Mutation[*models.Article],
) (*models.Article, error) {
	sh := s.lookup(ownerID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	stored, ok := sh.articles[id]
	if !ok {
		return nil, storage.ErrNotFound
	}

	article := stored.Clone()
	if err := mutate(article); err != nil {
		return nil, err
	}
	if sh.slugTaken(article) {
		return nil, storage.ErrDuplicate
	}

	sh.articles[id] = article.Clone()
	return article, nil
}

func (s *Store) DeleteArticle(_ context.Context, ownerID, id string) error {
	sh := s.lookup(ownerID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if _, ok := sh.articles[id]; !ok {
		return storage.ErrNotFound
	}

	now := s.now()
	for otherID, other := range sh.articles {
		if otherID == id {
			continue
		}
		if refs, found := pull(other.ReferencedArticles, id); found {
			other.ReferencedArticles = refs
			other.UpdatedAt = now
		}
	}
	for _, task := range sh.tasks {
		if links, found := pull(task.LinkedArticles, id); found {
			task.LinkedArticles = links
			task.UpdatedAt = now
		}
	}

	delete(sh.articles, id)
	return nil
}

func (s *Store) SumArticleViews(_ context.Context, ownerID string) (int64, error) {
	sh := s.lookup(ownerID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	var total int64
	for _, article := range sh.articles {
		total += article.Views
	}
	return total, nil
}

func (s *Store) TopArticleCategories(_ context.Context, ownerID string, limit int) ([]models.CategoryCount, error) {
	sh := s.lookup(ownerID)
	sh.mu.RLock()
	counts := make(map[string]int)
	for _, article := range sh.articles {
		if article.Category != "" {
			counts[article.Category]++
		}
	}
	sh.mu.RUnlock()

	categories := make([]models.CategoryCount, 0, len(counts))
	for category, count := range counts {
		categories = append(categories, models.CategoryCount{Category: category, Count: count})
	}
	sort.Slice(categories, func(i, j int) bool {
		if categories[i].Count != categories[j].Count {
			return categories[i].Count > categories[j].Count
		}
		return categories[i].Category < categories[j].Category
	})

	if len(categories) > limit {
		categories = categories[:limit]
	}
	return categories, nil
}

func (s *Store) ArticleCategoriesAndTags(_ context.Context, ownerID string) ([]string, []string, error) {
	sh := s.lookup(ownerID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	categories := make(map[string]struct{})
	tags := make(map[string]struct{})
	for _, article := range sh.articles {
		if article.Category != "" {
			categories[article.Category] = struct{}{}
		}
		for _, tag := range article.Tags {
			if tag != "" {
				tags[tag] = struct{}{}
			}
		}
	}
	return sortedKeys(categories), sortedKeys(tags), nil
}
