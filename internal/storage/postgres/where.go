package postgres

import (
	"strconv"
	"strings"

	"github.com/adanyl0v/tracker/internal/query"
)

// whereBuilder collects AND'd conditions written with '?' placeholders
// and renumbers them into $n arguments.
type whereBuilder struct {
	conds []string
	args  []any
}

func (b *whereBuilder) add(cond string, args ...any) {
	for _, arg := range args {
		b.args = append(b.args, arg)
		cond = strings.Replace(cond, "?", "$"+strconv.Itoa(len(b.args)), 1)
	}
	b.conds = append(b.conds, cond)
}

// arg appends a bare argument and returns its placeholder.
func (b *whereBuilder) arg(v any) string {
	b.args = append(b.args, v)
	return "$" + strconv.Itoa(len(b.args))
}

func (b *whereBuilder) String() string {
	if len(b.conds) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(b.conds, " AND ")
}

func likePattern(search string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(search) + "%"
}

func toStrings[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}

func taskWhere(f query.TaskFilter) *whereBuilder {
	b := &whereBuilder{}
	b.add("user_id = ?", f.OwnerID)
	if f.SectionID != "" {
		b.add("section_id = ?", f.SectionID)
	}
	if len(f.Statuses) > 0 {
		b.add("status = ANY(?)", toStrings(f.Statuses))
	}
	if len(f.ExcludeStatuses) > 0 {
		b.add("status <> ALL(?)", toStrings(f.ExcludeStatuses))
	}
	if len(f.Priorities) > 0 {
		b.add("priority = ANY(?)", toStrings(f.Priorities))
	}
	if len(f.Tags) > 0 {
		b.add("tags && ?::text[]", f.Tags)
	}
	if f.DueFrom != nil {
		b.add("due_date >= ?", *f.DueFrom)
	}
	if f.DueBefore != nil {
		b.add("due_date < ?", *f.DueBefore)
	}
	if f.CompletedSince != nil {
		b.add("completed_at >= ?", *f.CompletedSince)
	}
	if f.Search != "" {
		p := b.arg(likePattern(f.Search))
		b.conds = append(b.conds,
			"(name ILIKE "+p+" OR description ILIKE "+p+" OR notes ILIKE "+p+")")
	}
	return b
}

func articleWhere(f query.ArticleFilter) *whereBuilder {
	b := &whereBuilder{}
	b.add("user_id = ?", f.OwnerID)
	if len(f.Statuses) > 0 {
		b.add("status = ANY(?)", toStrings(f.Statuses))
	}
	if f.Category != "" {
		b.add("category = ?", f.Category)
	}
	if len(f.Tags) > 0 {
		b.add("tags && ?::text[]", f.Tags)
	}
	if f.PublishedSince != nil {
		b.add("published_at >= ?", *f.PublishedSince)
	}
	if f.Search != "" {
		p := b.arg(likePattern(f.Search))
		b.conds = append(b.conds,
			"(title ILIKE "+p+" OR content ILIKE "+p+" OR excerpt ILIKE "+p+")")
	}
	return b
}

const priorityRankExpr = `CASE priority WHEN 'low' THEN 1 WHEN 'medium' THEN 2 ` +
	`WHEN 'high' THEN 3 WHEN 'urgent' THEN 4 ELSE 0 END`

var (
	taskSortColumns = map[string]string{
		query.SortCreatedAt: "created_at",
		query.SortUpdatedAt: "updated_at",
		query.SortDueDate:   "due_date",
		query.SortName:      `name COLLATE "C"`,
		query.SortPriority:  priorityRankExpr,
		query.SortStatus:    `status COLLATE "C"`,
	}
	articleSortColumns = map[string]string{
		query.SortCreatedAt:   "created_at",
		query.SortUpdatedAt:   "updated_at",
		query.SortPublishedAt: "published_at",
		query.SortTitle:       `title COLLATE "C"`,
		query.SortViews:       "views",
		query.SortReadTime:    "read_time",
	}
)

// orderBy renders s with an id tiebreak in the same direction. Unset
// values sort first in ascending order, last in descending order.
func orderBy(columns map[string]string, s query.Sort) string {
	column, ok := columns[s.Field]
	if !ok {
		column = columns[query.SortCreatedAt]
	}
	dir := "ASC NULLS FIRST"
	if s.Desc {
		dir = "DESC NULLS LAST"
	}
	return "ORDER BY " + column + " " + dir + `, id COLLATE "C" ` + dir
}

func pageClause(b *whereBuilder, p query.Page) string {
	return "LIMIT " + b.arg(p.Limit) + " OFFSET " + b.arg(p.Offset())
}
