package query

import (
	"errors"
	"math"
	"reflect"
	"sort"
	"testing"
	"time"

	"github.com/adanyl0v/tracker/internal/models"
)

var now = time.Date(2025, 5, 14, 15, 0, 0, 0, time.UTC)

func task(id string, mutate func(*models.Task)) *models.Task {
	t := &models.Task{
		ID:        id,
		UserID:    "owner",
		SectionID: "s1",
		Name:      "task " + id,
		Priority:  models.TaskPriorityMedium,
		Status:    models.TaskStatusPending,
		DueDate:   now.Add(24 * time.Hour),
		CreatedAt: now,
	}
	if mutate != nil {
		mutate(t)
	}
	return t
}

func TestMatchTask_OwnerScope(t *testing.T) {
	f := TaskFilter{OwnerID: "owner"}
	if !MatchTask(f, task("1", nil)) {
		t.Fatalf("own task not matched")
	}
	other := task("2", func(t *models.Task) { t.UserID = "intruder" })
	if MatchTask(f, other) {
		t.Fatalf("foreign task matched")
	}
}

func TestMatchTask_MultiValueIsOr(t *testing.T) {
	f := TaskFilter{
		OwnerID:  "owner",
		Statuses: []models.TaskStatus{models.TaskStatusPending, models.TaskStatusInProgress},
	}
	cases := map[models.TaskStatus]bool{
		models.TaskStatusPending:    true,
		models.TaskStatusInProgress: true,
		models.TaskStatusCompleted:  false,
		models.TaskStatusCancelled:  false,
	}
	for status, want := range cases {
		got := MatchTask(f, task("1", func(t *models.Task) { t.Status = status }))
		if got != want {
			t.Fatalf("status %s: got %v want %v", status, got, want)
		}
	}
}

func TestMatchTask_SearchAndFilterCombineWithAnd(t *testing.T) {
	f := TaskFilter{
		OwnerID:    "owner",
		Priorities: []models.TaskPriority{models.TaskPriorityHigh},
		Search:     "MILK",
	}

	hit := task("1", func(t *models.Task) {
		t.Priority = models.TaskPriorityHigh
		t.Notes = "remember the milk"
	})
	wrongPriority := task("2", func(t *models.Task) { t.Name = "Buy milk" })
	noText := task("3", func(t *models.Task) { t.Priority = models.TaskPriorityHigh })

	if !MatchTask(f, hit) {
		t.Fatalf("expected match on notes")
	}
	if MatchTask(f, wrongPriority) || MatchTask(f, noText) {
		t.Fatalf("search and filters must both hold")
	}
}

func TestMatchTask_Overdue(t *testing.T) {
	f := TaskFilter{OwnerID: "owner"}
	f.Overdue(now)

	past := func(status models.TaskStatus) *models.Task {
		return task("1", func(t *models.Task) {
			t.DueDate = now.Add(-time.Minute)
			t.Status = status
		})
	}

	if !MatchTask(f, past(models.TaskStatusPending)) {
		t.Fatalf("pending past-due task should be overdue")
	}
	if !MatchTask(f, past(models.TaskStatusInProgress)) {
		t.Fatalf("in-progress past-due task should be overdue")
	}
	if MatchTask(f, past(models.TaskStatusCompleted)) || MatchTask(f, past(models.TaskStatusCancelled)) {
		t.Fatalf("terminal tasks are never overdue")
	}
	if MatchTask(f, task("2", nil)) {
		t.Fatalf("future task should not be overdue")
	}
	exact := task("3", func(t *models.Task) { t.DueDate = now })
	if MatchTask(f, exact) {
		t.Fatalf("task due exactly now is not yet overdue")
	}
}

func TestTaskFilter_DueOnIntersectsOverdue(t *testing.T) {
	day := time.Date(2025, 5, 14, 0, 0, 0, 0, time.UTC)
	f := TaskFilter{OwnerID: "owner"}
	f.DueOn(day)
	f.Overdue(now)

	if !f.DueFrom.Equal(day) {
		t.Fatalf("DueFrom: got %v want %v", f.DueFrom, day)
	}
	if !f.DueBefore.Equal(now) {
		t.Fatalf("DueBefore: got %v want %v", f.DueBefore, now)
	}

	morning := task("1", func(t *models.Task) { t.DueDate = day.Add(9 * time.Hour) })
	evening := task("2", func(t *models.Task) { t.DueDate = day.Add(20 * time.Hour) })
	yesterday := task("3", func(t *models.Task) { t.DueDate = day.Add(-time.Hour) })

	if !MatchTask(f, morning) {
		t.Fatalf("morning task should match")
	}
	if MatchTask(f, evening) || MatchTask(f, yesterday) {
		t.Fatalf("only tasks due today and before now should match")
	}
}

func TestMatchTask_Tags(t *testing.T) {
	f := TaskFilter{OwnerID: "owner", Tags: []string{"home", "errand"}}
	if !MatchTask(f, task("1", func(t *models.Task) { t.Tags = []string{"work", "errand"} })) {
		t.Fatalf("tag membership should match any requested tag")
	}
	if MatchTask(f, task("2", func(t *models.Task) { t.Tags = []string{"work"} })) {
		t.Fatalf("unrelated tags matched")
	}
}

func TestMatchArticle(t *testing.T) {
	published := now.Add(-time.Hour)
	a := &models.Article{
		ID:          "a",
		UserID:      "owner",
		Title:       "Notes on Go",
		Content:     "Channels and goroutines",
		Category:    "engineering",
		Tags:        []string{"go"},
		Status:      models.ArticleStatusPublished,
		PublishedAt: &published,
	}

	since := now.Add(-2 * time.Hour)
	ok := ArticleFilter{
		OwnerID:        "owner",
		Statuses:       []models.ArticleStatus{models.ArticleStatusPublished},
		Category:       "engineering",
		Tags:           []string{"rust", "go"},
		PublishedSince: &since,
		Search:         "GOROUTINE",
	}
	if !MatchArticle(ok, a) {
		t.Fatalf("expected match")
	}

	later := now
	miss := ok
	miss.PublishedSince = &later
	if MatchArticle(miss, a) {
		t.Fatalf("published before window should not match")
	}

	miss = ok
	miss.Category = "cooking"
	if MatchArticle(miss, a) {
		t.Fatalf("category mismatch matched")
	}
}

func TestParseTaskStatuses(t *testing.T) {
	got, err := ParseTaskStatuses("pending, in-progress,,")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []models.TaskStatus{models.TaskStatusPending, models.TaskStatusInProgress}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}

	_, err = ParseTaskStatuses("pending,done")
	var qerr *Error
	if !errors.As(err, &qerr) || qerr.Field != "status" {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestParseSort(t *testing.T) {
	s, err := ParseSort("", "")
	if err != nil || s != DefaultSort {
		t.Fatalf("got %v, %v want default sort", s, err)
	}

	s, err = ParseSort("dueDate", "ASC")
	if err != nil || s != (Sort{Field: SortDueDate}) {
		t.Fatalf("got %v, %v", s, err)
	}
	if err := ValidateTaskSort(s); err != nil {
		t.Fatalf("dueDate is a task sort field: %v", err)
	}
	if err := ValidateArticleSort(s); err == nil {
		t.Fatalf("dueDate is not an article sort field")
	}

	if _, err := ParseSort("name", "sideways"); err == nil {
		t.Fatalf("expected error for bad order")
	}
}

func TestLessTask_DeterministicTiebreak(t *testing.T) {
	tasks := []*models.Task{
		task("c", nil),
		task("a", nil),
		task("b", nil),
	}

	sort.Slice(tasks, func(i, j int) bool { return LessTask(DefaultSort, tasks[i], tasks[j]) })
	got := []string{tasks[0].ID, tasks[1].ID, tasks[2].ID}
	if want := []string{"c", "b", "a"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("desc tiebreak: got %v want %v", got, want)
	}

	asc := Sort{Field: SortCreatedAt}
	sort.Slice(tasks, func(i, j int) bool { return LessTask(asc, tasks[i], tasks[j]) })
	got = []string{tasks[0].ID, tasks[1].ID, tasks[2].ID}
	if want := []string{"a", "b", "c"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("asc tiebreak: got %v want %v", got, want)
	}
}

func TestLessTask_PriorityRank(t *testing.T) {
	tasks := []*models.Task{
		task("1", func(t *models.Task) { t.Priority = models.TaskPriorityUrgent }),
		task("2", func(t *models.Task) { t.Priority = models.TaskPriorityLow }),
		task("3", func(t *models.Task) { t.Priority = models.TaskPriorityHigh }),
		task("4", func(t *models.Task) { t.Priority = models.TaskPriorityMedium }),
	}
	s := Sort{Field: SortPriority}
	sort.Slice(tasks, func(i, j int) bool { return LessTask(s, tasks[i], tasks[j]) })

	var got []models.TaskPriority
	for _, tk := range tasks {
		got = append(got, tk.Priority)
	}
	if !reflect.DeepEqual(got, models.TaskPriorities) {
		t.Fatalf("got %v want %v", got, models.TaskPriorities)
	}
}

func TestParsePage(t *testing.T) {
	p, err := ParsePage("", "")
	if err != nil || p != (Page{Number: 1, Limit: DefaultPageLimit}) {
		t.Fatalf("defaults: got %v, %v", p, err)
	}

	p, err = ParsePage("3", "500")
	if err != nil || p != (Page{Number: 3, Limit: MaxPageLimit}) {
		t.Fatalf("capped: got %v, %v", p, err)
	}

	for _, raw := range []string{"0", "-1", "two"} {
		if _, err := ParsePage(raw, ""); err == nil {
			t.Fatalf("page %q accepted", raw)
		}
	}
}

func TestPagination(t *testing.T) {
	p := Page{Number: 2, Limit: 10}
	start, end := p.Window(25)
	if start != 10 || end != 20 {
		t.Fatalf("window: got [%d,%d) want [10,20)", start, end)
	}

	got := NewPagination(p, end-start, 25)
	want := Pagination{Current: 2, TotalPages: 3, Count: 10, TotalCount: 25}
	if got != want {
		t.Fatalf("got %+v want %+v", got, want)
	}

	last := Page{Number: 3, Limit: 10}
	start, end = last.Window(25)
	if got := NewPagination(last, end-start, 25); got.Count != 5 || got.TotalPages != 3 {
		t.Fatalf("partial page: got %+v", got)
	}

	beyond := Page{Number: 9, Limit: 10}
	start, end = beyond.Window(25)
	if start != end {
		t.Fatalf("page past the end should be empty, got [%d,%d)", start, end)
	}

	if got := NewPagination(Page{Number: 1, Limit: 20}, 0, 0); got.TotalPages != 0 {
		t.Fatalf("empty result: got %+v", got)
	}
}

func TestPage_HugeNumberDoesNotOverflow(t *testing.T) {
	p, err := ParsePage("9223372036854775807", "20")
	if err != nil {
		t.Fatalf("ParsePage: %v", err)
	}
	if got := p.Offset(); got != math.MaxInt {
		t.Fatalf("offset: got %d want %d", got, math.MaxInt)
	}

	start, end := p.Window(25)
	if start != 25 || end != 25 {
		t.Fatalf("window: got [%d,%d) want [25,25)", start, end)
	}

	got := NewPagination(p, end-start, 25)
	want := Pagination{Current: math.MaxInt, TotalPages: 2, Count: 0, TotalCount: 25}
	if got != want {
		t.Fatalf("got %+v want %+v", got, want)
	}

	if _, err := ParsePage("92233720368547758070", ""); err == nil {
		t.Fatalf("page beyond int range accepted")
	}
}
