// Package storage defines the owner-scoped persistence contract shared by
// the postgres and in-memory backends.
package storage

import (
	"context"
	"errors"

	"github.com/adanyl0v/tracker/internal/models"
	"github.com/adanyl0v/tracker/internal/query"
)

var (
	// ErrNotFound is returned for missing records and for records owned by
	// someone else.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a commit would violate a unique
	// constraint.
	ErrDuplicate = errors.New("duplicate record")
	// ErrHasDependents is returned when a section still has tasks.
	ErrHasDependents = errors.New("record has dependents")
	// ErrInvalidReference is returned when a task points at a section
	// that no longer exists.
	ErrInvalidReference = errors.New("invalid reference")
)

// DependentsError carries the number of records blocking a delete.
type DependentsError struct {
	Count int
}

func (e *DependentsError) Error() string {
	return ErrHasDependents.Error()
}

func (e *DependentsError) Unwrap() error {
	return ErrHasDependents
}

// Mutation edits a record in place. It runs while the record is locked
// and aborts the write when it returns an error.
type Mutation[T any] func(record T) error

// BatchMutation edits one record of a batch and reports whether it
// changed anything.
type BatchMutation[T any] func(record T) (changed bool, err error)

type SectionRepository interface {
	CreateSection(ctx context.Context, section *models.Section) error
	GetSection(ctx context.Context, ownerID, id string) (*models.Section, error)
	ListSections(ctx context.Context, ownerID string, archived bool) ([]*models.Section, error)
	// SectionSummaries returns the owner's sections among ids, archived
	// ones included, in the order of ids. Unknown ids are skipped.
	SectionSummaries(ctx context.Context, ownerID string, ids []string) ([]models.SectionSummary, error)
	UpdateSection(ctx context.Context, ownerID, id string, mutate Mutation[*models.Section]) (*models.Section, error)
	// DeleteSection removes a section that no task references. It returns
	// a *DependentsError otherwise.
	DeleteSection(ctx context.Context, ownerID, id string) error
}

type TaskRepository interface {
	CreateTask(ctx context.Context, task *models.Task) error
	GetTask(ctx context.Context, ownerID, id string) (*models.Task, error)
	// ListTasks returns one page of matching tasks and the total number of
	// matches regardless of the page window.
	ListTasks(ctx context.Context, filter query.TaskFilter, sort query.Sort, page query.Page) ([]*models.Task, int, error)
	CountTasks(ctx context.Context, filter query.TaskFilter) (int, error)
	UpdateTask(ctx context.Context, ownerID, id string, mutate Mutation[*models.Task]) (*models.Task, error)
	// UpdateTasks applies mutate to every task in ids atomically. It
	// returns ErrNotFound without writing anything unless every id is
	// owned by ownerID.
	UpdateTasks(ctx context.Context, ownerID string, ids []string, mutate BatchMutation[*models.Task]) (int, error)
	DeleteTask(ctx context.Context, ownerID, id string) error
}

type ArticleRepository interface {
	CreateArticle(ctx context.Context, article *models.Article) error
	GetArticle(ctx context.Context, ownerID, id string) (*models.Article, error)
	GetArticleBySlug(ctx context.Context, ownerID, slug string) (*models.Article, error)
	ListArticles(ctx context.Context, filter query.ArticleFilter, sort query.Sort, page query.Page) ([]*models.Article, int, error)
	CountArticles(ctx context.Context, filter query.ArticleFilter) (int, error)
	// CountOwnedArticles returns how many of ids resolve to articles
	// owned by ownerID.
	CountOwnedArticles(ctx context.Context, ownerID string, ids []string) (int, error)
	// ArticleSummaries returns the owner's articles among ids in the order
	// of ids. Unknown ids are skipped.
	ArticleSummaries(ctx context.Context, ownerID string, ids []string) ([]models.ArticleSummary, error)
	UpdateArticle(ctx context.Context, ownerID, id string, mutate Mutation[*models.Article]) (*models.Article, error)
	// DeleteArticle first pulls id from every reference list of the
	// owner's other articles and tasks, then removes the article. Either
	// everything is applied or nothing is.
	DeleteArticle(ctx context.Context, ownerID, id string) error
	SumArticleViews(ctx context.Context, ownerID string) (int64, error)
	// TopArticleCategories returns up to limit non-empty categories by
	// article count, descending, ties broken by name.
	TopArticleCategories(ctx context.Context, ownerID string, limit int) ([]models.CategoryCount, error)
	// ArticleCategoriesAndTags returns the sorted distinct non-empty
	// categories and tags of the owner's articles.
	ArticleCategoriesAndTags(ctx context.Context, ownerID string) ([]string, []string, error)
}

type Repository interface {
	SectionRepository
	TaskRepository
	ArticleRepository
}
