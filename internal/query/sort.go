package query

import (
	"strings"
	"time"

	"github.com/adanyl0v/tracker/internal/models"
)

const (
	SortCreatedAt   = "createdAt"
	SortUpdatedAt   = "updatedAt"
	SortDueDate     = "dueDate"
	SortName        = "name"
	SortPriority    = "priority"
	SortStatus      = "status"
	SortPublishedAt = "publishedAt"
	SortTitle       = "title"
	SortViews       = "views"
	SortReadTime    = "readTime"
)

var (
	taskSortFields = []string{
		SortCreatedAt, SortUpdatedAt, SortDueDate,
		SortName, SortPriority, SortStatus,
	}
	articleSortFields = []string{
		SortCreatedAt, SortUpdatedAt, SortPublishedAt,
		SortTitle, SortViews, SortReadTime,
	}
)

// Sort orders a listing. Rows with equal sort keys are ordered by id in
// the same direction so pages never overlap.
type Sort struct {
	Field string
	Desc  bool
}

// DefaultSort is createdAt descending.
var DefaultSort = Sort{Field: SortCreatedAt, Desc: true}

// ParseSort builds a Sort from raw field and order values. An empty field
// yields createdAt, an empty order yields descending.
func ParseSort(field, order string) (Sort, error) {
	s := DefaultSort
	if field != "" {
		s.Field = field
	}
	switch strings.ToLower(order) {
	case "", "desc":
		s.Desc = true
	case "asc":
		s.Desc = false
	default:
		return Sort{}, newError("sortOrder", "must be asc or desc, got %q", order)
	}
	return s, nil
}

// ValidateTaskSort rejects fields tasks cannot be sorted by.
func ValidateTaskSort(s Sort) error {
	if !contains(taskSortFields, s.Field) {
		return newError("sortBy", "tasks cannot be sorted by %q", s.Field)
	}
	return nil
}

// ValidateArticleSort rejects fields articles cannot be sorted by.
func ValidateArticleSort(s Sort) error {
	if !contains(articleSortFields, s.Field) {
		return newError("sortBy", "articles cannot be sorted by %q", s.Field)
	}
	return nil
}

// LessTask reports whether a sorts before b under s.
func LessTask(s Sort, a, b *models.Task) bool {
	var c int
	switch s.Field {
	case SortUpdatedAt:
		c = a.UpdatedAt.Compare(b.UpdatedAt)
	case SortDueDate:
		c = a.DueDate.Compare(b.DueDate)
	case SortName:
		c = strings.Compare(a.Name, b.Name)
	case SortPriority:
		c = a.Priority.Rank() - b.Priority.Rank()
	case SortStatus:
		c = strings.Compare(string(a.Status), string(b.Status))
	default:
		c = a.CreatedAt.Compare(b.CreatedAt)
	}
	return less(s.Desc, c, a.ID, b.ID)
}

// LessArticle reports whether a sorts before b under s.
func LessArticle(s Sort, a, b *models.Article) bool {
	var c int
	switch s.Field {
	case SortUpdatedAt:
		c = a.UpdatedAt.Compare(b.UpdatedAt)
	case SortPublishedAt:
		c = compareOptionalTime(a.PublishedAt, b.PublishedAt)
	case SortTitle:
		c = strings.Compare(a.Title, b.Title)
	case SortViews:
		c = compareInt64(a.Views, b.Views)
	case SortReadTime:
		c = a.ReadTime - b.ReadTime
	default:
		c = a.CreatedAt.Compare(b.CreatedAt)
	}
	return less(s.Desc, c, a.ID, b.ID)
}

func less(desc bool, c int, idA, idB string) bool {
	if c == 0 {
		c = strings.Compare(idA, idB)
	}
	if desc {
		return c > 0
	}
	return c < 0
}

// compareOptionalTime orders unset times first, matching NULLS FIRST in
// ascending order.
func compareOptionalTime(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	return a.Compare(*b)
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
