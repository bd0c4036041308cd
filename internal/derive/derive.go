// Package derive computes the fields of an entity that callers never set
// directly: article slugs, read time and the completion and publication
// timestamps. Every function is pure and runs before a record is persisted.
package derive

import (
	"strings"
	"time"
	"unicode"

	"github.com/adanyl0v/tracker/internal/models"
)

const wordsPerMinute = 200

// Slug turns a title into a lowercase, hyphen separated slug. The result
// only contains [a-z0-9-] and is empty when the title has no ASCII
// letters or digits. Slug(Slug(s)) == Slug(s).
func Slug(title string) string {
	var b strings.Builder
	b.Grow(len(title))

	pendingHyphen := false
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
		case r == '-' || unicode.IsSpace(r):
			pendingHyphen = true
		}
	}
	return b.String()
}

// ReadTime estimates the reading time of content in whole minutes,
// never less than one.
func ReadTime(content string) int {
	words := len(strings.Fields(content))
	minutes := (words + wordsPerMinute - 1) / wordsPerMinute
	return max(1, minutes)
}

// Task keeps next.CompletedAt in line with next.Status. prev is the
// stored record, or nil when next is being created.
func Task(prev, next *models.Task, now time.Time) {
	if next.Status != models.TaskStatusCompleted {
		next.CompletedAt = nil
		return
	}

	if prev == nil || prev.Status != next.Status {
		t := now
		next.CompletedAt = &t
		return
	}
	next.CompletedAt = prev.CompletedAt
}

// Article runs slug, publication and read time derivation in that order.
// prev is the stored record, or nil when next is being created.
func Article(prev, next *models.Article, now time.Time) {
	if next.Slug == "" && next.Title != "" {
		next.Slug = Slug(next.Title)
	}

	switch {
	case next.Status != models.ArticleStatusPublished:
		next.PublishedAt = nil
	case prev == nil || prev.Status != next.Status:
		t := now
		next.PublishedAt = &t
	default:
		next.PublishedAt = prev.PublishedAt
	}

	if prev == nil || prev.Content != next.Content {
		next.ReadTime = ReadTime(next.Content)
	}
}
