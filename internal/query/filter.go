// Package query holds the owner-scoped filters, sort orders and pagination
// used to list tasks and articles, together with pure predicates that
// evaluate them in memory.
package query

import (
	"strings"
	"time"

	"github.com/adanyl0v/tracker/internal/models"
)

// TaskFilter selects tasks. Slice fields are OR'd internally; all fields
// are AND'd together. Zero values impose no constraint except OwnerID,
// which is mandatory.
type TaskFilter struct {
	OwnerID         string
	SectionID       string
	Statuses        []models.TaskStatus
	ExcludeStatuses []models.TaskStatus
	Priorities      []models.TaskPriority
	Tags            []string
	// DueFrom is inclusive, DueBefore exclusive.
	DueFrom        *time.Time
	DueBefore      *time.Time
	CompletedSince *time.Time
	Search         string
}

// DueOn restricts the filter to tasks due within the 24h bucket starting
// at day.
func (f *TaskFilter) DueOn(day time.Time) {
	f.narrowDue(day, day.AddDate(0, 0, 1))
}

// Overdue restricts the filter to tasks due before now that are neither
// completed nor cancelled.
func (f *TaskFilter) Overdue(now time.Time) {
	f.narrowDue(time.Time{}, now)
	f.ExcludeStatuses = appendMissing(f.ExcludeStatuses,
		models.TaskStatusCompleted, models.TaskStatusCancelled)
}

func (f *TaskFilter) narrowDue(from, before time.Time) {
	if !from.IsZero() && (f.DueFrom == nil || from.After(*f.DueFrom)) {
		f.DueFrom = &from
	}
	if f.DueBefore == nil || before.Before(*f.DueBefore) {
		f.DueBefore = &before
	}
}

func appendMissing[T comparable](s []T, values ...T) []T {
	for _, v := range values {
		if !contains(s, v) {
			s = append(s, v)
		}
	}
	return s
}

func contains[T comparable](s []T, v T) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

// ArticleFilter selects articles. Same combination rules as TaskFilter.
type ArticleFilter struct {
	OwnerID        string
	Statuses       []models.ArticleStatus
	Category       string
	Tags           []string
	PublishedSince *time.Time
	Search         string
}

// MatchTask reports whether t satisfies f.
func MatchTask(f TaskFilter, t *models.Task) bool {
	if t.UserID != f.OwnerID {
		return false
	}
	if f.SectionID != "" && t.SectionID != f.SectionID {
		return false
	}
	if len(f.Statuses) > 0 && !contains(f.Statuses, t.Status) {
		return false
	}
	if contains(f.ExcludeStatuses, t.Status) {
		return false
	}
	if len(f.Priorities) > 0 && !contains(f.Priorities, t.Priority) {
		return false
	}
	if len(f.Tags) > 0 && !anyTag(t.Tags, f.Tags) {
		return false
	}
	if f.DueFrom != nil && t.DueDate.Before(*f.DueFrom) {
		return false
	}
	if f.DueBefore != nil && !t.DueDate.Before(*f.DueBefore) {
		return false
	}
	if f.CompletedSince != nil && (t.CompletedAt == nil || t.CompletedAt.Before(*f.CompletedSince)) {
		return false
	}
	if f.Search != "" && !containsFold(f.Search, t.Name, t.Description, t.Notes) {
		return false
	}
	return true
}

// MatchArticle reports whether a satisfies f.
func MatchArticle(f ArticleFilter, a *models.Article) bool {
	if a.UserID != f.OwnerID {
		return false
	}
	if len(f.Statuses) > 0 && !contains(f.Statuses, a.Status) {
		return false
	}
	if f.Category != "" && a.Category != f.Category {
		return false
	}
	if len(f.Tags) > 0 && !anyTag(a.Tags, f.Tags) {
		return false
	}
	if f.PublishedSince != nil && (a.PublishedAt == nil || a.PublishedAt.Before(*f.PublishedSince)) {
		return false
	}
	if f.Search != "" && !containsFold(f.Search, a.Title, a.Content, a.Excerpt) {
		return false
	}
	return true
}

func anyTag(have, want []string) bool {
	for _, w := range want {
		if contains(have, w) {
			return true
		}
	}
	return false
}

func containsFold(needle string, fields ...string) bool {
	needle = strings.ToLower(needle)
	for _, field := range fields {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

// ParseList splits a comma separated query value, dropping blanks.
func ParseList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ParseTaskStatuses parses a comma separated status list.
func ParseTaskStatuses(raw string) ([]models.TaskStatus, error) {
	var out []models.TaskStatus
	for _, v := range ParseList(raw) {
		s := models.TaskStatus(v)
		if !s.Valid() {
			return nil, newError("status", "unknown task status %q", v)
		}
		out = append(out, s)
	}
	return out, nil
}

// ParseTaskPriorities parses a comma separated priority list.
func ParseTaskPriorities(raw string) ([]models.TaskPriority, error) {
	var out []models.TaskPriority
	for _, v := range ParseList(raw) {
		p := models.TaskPriority(v)
		if !p.Valid() {
			return nil, newError("priority", "unknown task priority %q", v)
		}
		out = append(out, p)
	}
	return out, nil
}

// ParseArticleStatuses parses a comma separated status list.
func ParseArticleStatuses(raw string) ([]models.ArticleStatus, error) {
	var out []models.ArticleStatus
	for _, v := range ParseList(raw) {
		s := models.ArticleStatus(v)
		if !s.Valid() {
			return nil, newError("status", "unknown article status %q", v)
		}
		out = append(out, s)
	}
	return out, nil
}
