package services

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/adanyl0v/tracker/internal/models"
	"github.com/adanyl0v/tracker/internal/query"
	"github.com/adanyl0v/tracker/internal/storage/memory"
)

const owner = "owner-1"

var ctx = context.Background()

// clock is a settable time source shared by the services under test.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	clock    *clock
	sections SectionService
	tasks    TaskService
	articles ArticleService
	stats    StatsService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	c := &clock{now: time.Date(2024, 3, 14, 12, 0, 0, 0, time.UTC)}
	repo := memory.New()
	logger := zerolog.Nop()
	return &fixture{
		clock:    c,
		sections: NewSectionService(logger, repo, c.Now),
		tasks:    NewTaskService(logger, repo, c.Now),
		articles: NewArticleService(logger, repo, c.Now),
		stats:    NewStatsService(logger, repo, c.Now),
	}
}

func (f *fixture) section(t *testing.T, name string) *models.Section {
	t.Helper()
	s, err := f.sections.CreateSection(ctx, CreateSectionParams{OwnerID: owner, Name: name})
	if err != nil {
		t.Fatalf("create section %q: %v", name, err)
	}
	return s
}

func (f *fixture) task(t *testing.T, sectionID, name string, due time.Time) *models.Task {
	t.Helper()
	task, err := f.tasks.CreateTask(ctx, CreateTaskParams{
		OwnerID:   owner,
		SectionID: sectionID,
		Name:      name,
		DueDate:   due,
	})
	if err != nil {
		t.Fatalf("create task %q: %v", name, err)
	}
	return task
}

func (f *fixture) article(t *testing.T, params CreateArticleParams) *models.Article {
	t.Helper()
	params.OwnerID = owner
	a, err := f.articles.CreateArticle(ctx, params)
	if err != nil {
		t.Fatalf("create article %q: %v", params.Title, err)
	}
	return a
}

func ptr[T any](v T) *T {
	return &v
}

func TestCreateSection_Defaults(t *testing.T) {
	f := newFixture(t)

	s := f.section(t, "  Work  ")
	if s.Name != "Work" {
		t.Fatalf("got name %q want %q", s.Name, "Work")
	}
	if s.Color != models.DefaultSectionColor || s.Icon != models.DefaultSectionIcon {
		t.Fatalf("got color %q icon %q", s.Color, s.Icon)
	}
	if !isID(s.ID) {
		t.Fatalf("got id %q, want a uuid", s.ID)
	}
}

func TestCreateSection_Validation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		params CreateSectionParams
		field  string
	}{
		{"empty name", CreateSectionParams{OwnerID: owner, Name: "   "}, "name"},
		{"long name", CreateSectionParams{OwnerID: owner, Name: strings.Repeat("x", 101)}, "name"},
		{"bad color", CreateSectionParams{OwnerID: owner, Name: "a", Color: "blue"}, "color"},
		{"long icon", CreateSectionParams{OwnerID: owner, Name: "a", Icon: strings.Repeat("i", 51)}, "icon"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.sections.CreateSection(ctx, tt.params)
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("got %v want a validation error", err)
			}
			if vErr.Field != tt.field {
				t.Fatalf("got field %q want %q", vErr.Field, tt.field)
			}
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("validation error does not unwrap to ErrValidation")
			}
		})
	}
}

func TestSection_NameUniqueAmongActive(t *testing.T) {
	f := newFixture(t)

	work := f.section(t, "Work")
	_, err := f.sections.CreateSection(ctx, CreateSectionParams{OwnerID: owner, Name: "Work"})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("got %v want conflict", err)
	}

	if _, err = f.sections.ArchiveSection(ctx, owner, work.ID, true); err != nil {
		t.Fatalf("archive: %v", err)
	}
	replacement := f.section(t, "Work")

	_, err = f.sections.ArchiveSection(ctx, owner, work.ID, false)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("restore: got %v want conflict", err)
	}

	_, err = f.sections.UpdateSection(ctx, UpdateSectionParams{OwnerID: owner, ID: replacement.ID, Name: ptr("Home")})
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if _, err = f.sections.ArchiveSection(ctx, owner, work.ID, false); err != nil {
		t.Fatalf("restore after rename: %v", err)
	}

	active, err := f.sections.ListSections(ctx, owner, false)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("got %d active sections want 2", len(active))
	}
}

func TestSection_OwnerIsolation(t *testing.T) {
	f := newFixture(t)
	s := f.section(t, "Work")

	_, err := f.sections.GetSection(ctx, "someone-else", s.ID)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v want not found", err)
	}
	err = f.sections.DeleteSection(ctx, "someone-else", s.ID)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("delete: got %v want not found", err)
	}
}

func TestDeleteSection_WithTasks(t *testing.T) {
	f := newFixture(t)
	s := f.section(t, "Work")
	due := f.clock.Now().Add(24 * time.Hour)
	task := f.task(t, s.ID, "one", due)
	f.task(t, s.ID, "two", due)

	details, err := f.sections.GetSection(ctx, owner, s.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if details.TasksCount != 2 {
		t.Fatalf("got tasks count %d want 2", details.TasksCount)
	}

	err = f.sections.DeleteSection(ctx, owner, s.ID)
	var cErr *ConflictError
	if !errors.As(err, &cErr) {
		t.Fatalf("got %v want conflict", err)
	}
	if cErr.Dependents != 2 {
		t.Fatalf("got %d dependents want 2", cErr.Dependents)
	}

	if err = f.tasks.DeleteTask(ctx, owner, task.ID); err != nil {
		t.Fatalf("delete task: %v", err)
	}
	err = f.sections.DeleteSection(ctx, owner, s.ID)
	if !errors.As(err, &cErr) || cErr.Dependents != 1 {
		t.Fatalf("got %v want conflict with one task left", err)
	}

	page, err := f.tasks.ListTasks(ctx, ListTasksParams{Filter: query.TaskFilter{OwnerID: owner, SectionID: s.ID}})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	home := f.section(t, "Home")
	for _, task := range page.Tasks {
		_, err = f.tasks.UpdateTask(ctx, UpdateTaskParams{
			OwnerID:    owner,
			ID:         task.ID,
			TaskUpdate: TaskUpdate{SectionID: ptr(home.ID)},
		})
		if err != nil {
			t.Fatalf("move task: %v", err)
		}
	}
	if err = f.sections.DeleteSection(ctx, owner, s.ID); err != nil {
		t.Fatalf("delete after moving tasks: %v", err)
	}
}

func TestScenario_StatsOverdueFlipsWithClock(t *testing.T) {
	f := newFixture(t)
	personal := f.section(t, "Personal")
	if personal.Color != "#3b82f6" {
		t.Fatalf("got color %q want the default blue", personal.Color)
	}
	f.task(t, personal.ID, "Buy milk", f.clock.Now().Add(24*time.Hour))

	stats, err := f.stats.TaskStats(ctx, owner, "")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Total != 1 || stats.Status[models.TaskStatusPending] != 1 || stats.Overdue != 0 {
		t.Fatalf("got %+v before the due date", stats)
	}

	f.clock.Advance(25 * time.Hour)
	stats, err = f.stats.TaskStats(ctx, owner, "")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Overdue != 1 {
		t.Fatalf("got overdue %d after the due date want 1", stats.Overdue)
	}
}

func TestCreateTask_SectionChecks(t *testing.T) {
	f := newFixture(t)
	archived := f.section(t, "Old")
	if _, err := f.sections.ArchiveSection(ctx, owner, archived.ID, true); err != nil {
		t.Fatalf("archive: %v", err)
	}
	foreign, err := f.sections.CreateSection(ctx, CreateSectionParams{OwnerID: "other", Name: "Theirs"})
	if err != nil {
		t.Fatalf("create foreign section: %v", err)
	}

	for _, sectionID := range []string{archived.ID, foreign.ID, "not-an-id"} {
		_, err := f.tasks.CreateTask(ctx, CreateTaskParams{
			OwnerID:   owner,
			SectionID: sectionID,
			Name:      "task",
			DueDate:   f.clock.Now(),
		})
		var vErr *ValidationError
		if !errors.As(err, &vErr) || vErr.Field != "sectionID" {
			t.Fatalf("section %s: got %v want sectionID validation error", sectionID, err)
		}
	}
}

func TestCreateTask_Defaults(t *testing.T) {
	f := newFixture(t)
	s := f.section(t, "Work")

	task, err := f.tasks.CreateTask(ctx, CreateTaskParams{
		OwnerID:   owner,
		SectionID: s.ID,
		Name:      "write report",
		DueDate:   f.clock.Now(),
		Tags:      []string{" a ", "b", "a", ""},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if task.Status != models.TaskStatusPending || task.Priority != models.TaskPriorityMedium {
		t.Fatalf("got status %q priority %q", task.Status, task.Priority)
	}
	if strings.Join(task.Tags, ",") != "a,b" {
		t.Fatalf("got tags %v want [a b]", task.Tags)
	}
	if task.CompletedAt != nil {
		t.Fatalf("pending task has completedAt %v", task.CompletedAt)
	}

	_, err = f.tasks.CreateTask(ctx, CreateTaskParams{OwnerID: owner, SectionID: s.ID, Name: "x"})
	var vErr *ValidationError
	if !errors.As(err, &vErr) || vErr.Field != "dueDate" {
		t.Fatalf("got %v want dueDate validation error", err)
	}
}

func TestUpdateTask_CompletedAtTransitions(t *testing.T) {
	f := newFixture(t)
	s := f.section(t, "Work")
	task := f.task(t, s.ID, "t", f.clock.Now())

	completedAt := f.clock.Now().Add(time.Hour)
	f.clock.Advance(time.Hour)
	task, err := f.tasks.UpdateTask(ctx, UpdateTaskParams{
		OwnerID:    owner,
		ID:         task.ID,
		TaskUpdate: TaskUpdate{Status: ptr(models.TaskStatusCompleted)},
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if task.CompletedAt == nil || !task.CompletedAt.Equal(completedAt) {
		t.Fatalf("got completedAt %v want %v", task.CompletedAt, completedAt)
	}

	f.clock.Advance(time.Hour)
	task, err = f.tasks.UpdateTask(ctx, UpdateTaskParams{
		OwnerID:    owner,
		ID:         task.ID,
		TaskUpdate: TaskUpdate{Notes: ptr("done early")},
	})
	if err != nil {
		t.Fatalf("edit notes: %v", err)
	}
	if task.CompletedAt == nil || !task.CompletedAt.Equal(completedAt) {
		t.Fatalf("unrelated edit moved completedAt to %v", task.CompletedAt)
	}

	task, err = f.tasks.UpdateTask(ctx, UpdateTaskParams{
		OwnerID:    owner,
		ID:         task.ID,
		TaskUpdate: TaskUpdate{Status: ptr(models.TaskStatusInProgress)},
	})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if task.CompletedAt != nil {
		t.Fatalf("reopened task kept completedAt %v", task.CompletedAt)
	}
}

func TestUpdateTask_PartialUpdateKeepsOtherFields(t *testing.T) {
	f := newFixture(t)
	s := f.section(t, "Work")
	created, err := f.tasks.CreateTask(ctx, CreateTaskParams{
		OwnerID:     owner,
		SectionID:   s.ID,
		Name:        "t",
		Description: "keep me",
		DueDate:     f.clock.Now(),
		Tags:        []string{"x"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := f.tasks.UpdateTask(ctx, UpdateTaskParams{
		OwnerID:    owner,
		ID:         created.ID,
		TaskUpdate: TaskUpdate{Priority: ptr(models.TaskPriorityUrgent), Tags: ptr([]string{})},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Description != "keep me" {
		t.Fatalf("got description %q want %q", updated.Description, "keep me")
	}
	if updated.Priority != models.TaskPriorityUrgent {
		t.Fatalf("got priority %q", updated.Priority)
	}
	if len(updated.Tags) != 0 {
		t.Fatalf("explicit empty tags not applied: %v", updated.Tags)
	}
}

func TestListTasks_OverdueFollowsClock(t *testing.T) {
	f := newFixture(t)
	s := f.section(t, "Work")
	task := f.task(t, s.ID, "t", f.clock.Now().Add(24*time.Hour))

	overdue := func() int {
		t.Helper()
		page, err := f.tasks.ListTasks(ctx, ListTasksParams{
			Filter:  query.TaskFilter{OwnerID: owner},
			Overdue: true,
		})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		return page.Pagination.TotalCount
	}

	if n := overdue(); n != 0 {
		t.Fatalf("got %d overdue before due date want 0", n)
	}
	f.clock.Advance(48 * time.Hour)
	if n := overdue(); n != 1 {
		t.Fatalf("got %d overdue after due date want 1", n)
	}

	_, err := f.tasks.UpdateTask(ctx, UpdateTaskParams{
		OwnerID:    owner,
		ID:         task.ID,
		TaskUpdate: TaskUpdate{Status: ptr(models.TaskStatusCancelled)},
	})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if n := overdue(); n != 0 {
		t.Fatalf("got %d overdue after cancel want 0", n)
	}
}

func TestListTasks_Pagination(t *testing.T) {
	f := newFixture(t)
	s := f.section(t, "Work")
	for i := 0; i < 25; i++ {
		f.task(t, s.ID, "t", f.clock.Now())
		f.clock.Advance(time.Minute)
	}

	page, err := f.tasks.ListTasks(ctx, ListTasksParams{
		Filter: query.TaskFilter{OwnerID: owner},
		Sort:   query.DefaultSort,
		Page:   query.Page{Number: 3, Limit: 10},
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := query.Pagination{Current: 3, TotalPages: 3, Count: 5, TotalCount: 25}
	if page.Pagination != want {
		t.Fatalf("got %+v want %+v", page.Pagination, want)
	}

	_, err = f.tasks.ListTasks(ctx, ListTasksParams{
		Filter: query.TaskFilter{OwnerID: owner},
		Sort:   query.Sort{Field: "password"},
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("got %v want validation error for unknown sort field", err)
	}
}

func TestBulkUpdateTasks(t *testing.T) {
	f := newFixture(t)
	s := f.section(t, "Work")
	due := f.clock.Now()
	a := f.task(t, s.ID, "a", due)
	b := f.task(t, s.ID, "b", due)

	other := f.section(t, "Other")
	foreign, err := f.sections.CreateSection(ctx, CreateSectionParams{OwnerID: "other", Name: "Theirs"})
	if err != nil {
		t.Fatalf("create foreign section: %v", err)
	}
	foreignTask, err := f.tasks.CreateTask(ctx, CreateTaskParams{
		OwnerID: "other", SectionID: foreign.ID, Name: "x", DueDate: due,
	})
	if err != nil {
		t.Fatalf("create foreign task: %v", err)
	}

	_, err = f.tasks.BulkUpdateTasks(ctx, BulkUpdateTasksParams{
		OwnerID:    owner,
		TaskIDs:    []string{a.ID, foreignTask.ID},
		TaskUpdate: TaskUpdate{SectionID: ptr(other.ID)},
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v want not found", err)
	}
	got, err := f.tasks.GetTask(ctx, owner, a.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.SectionID != s.ID {
		t.Fatalf("failed bulk update moved task to %s", got.SectionID)
	}

	n, err := f.tasks.BulkUpdateTasks(ctx, BulkUpdateTasksParams{
		OwnerID:    owner,
		TaskIDs:    []string{a.ID, b.ID, a.ID},
		TaskUpdate: TaskUpdate{Status: ptr(models.TaskStatusCompleted)},
	})
	if err != nil {
		t.Fatalf("bulk complete: %v", err)
	}
	if n != 2 {
		t.Fatalf("got %d modified want 2", n)
	}
	got, err = f.tasks.GetTask(ctx, owner, b.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.CompletedAt == nil {
		t.Fatalf("bulk completion did not set completedAt")
	}

	n, err = f.tasks.BulkUpdateTasks(ctx, BulkUpdateTasksParams{
		OwnerID:    owner,
		TaskIDs:    []string{a.ID, b.ID},
		TaskUpdate: TaskUpdate{Status: ptr(models.TaskStatusCompleted)},
	})
	if err != nil {
		t.Fatalf("repeat bulk complete: %v", err)
	}
	if n != 0 {
		t.Fatalf("got %d modified for a no-op update want 0", n)
	}
}

func TestCreateArticle_Derivation(t *testing.T) {
	f := newFixture(t)

	a := f.article(t, CreateArticleParams{
		Title:   "My First Post!!",
		Content: strings.Repeat("word ", 450),
		Status:  models.ArticleStatusPublished,
	})
	if a.Slug != "my-first-post" {
		t.Fatalf("got slug %q want %q", a.Slug, "my-first-post")
	}
	if a.ReadTime != 3 {
		t.Fatalf("got read time %d want 3", a.ReadTime)
	}
	if a.PublishedAt == nil || !a.PublishedAt.Equal(f.clock.Now()) {
		t.Fatalf("got publishedAt %v want %v", a.PublishedAt, f.clock.Now())
	}

	_, err := f.articles.CreateArticle(ctx, CreateArticleParams{OwnerID: owner, Title: "My first post"})
	var cErr *ConflictError
	if !errors.As(err, &cErr) {
		t.Fatalf("got %v want slug conflict", err)
	}

	other, err := f.articles.CreateArticle(ctx, CreateArticleParams{OwnerID: "other", Title: "My first post"})
	if err != nil {
		t.Fatalf("same slug for another owner: %v", err)
	}
	if other.Slug != a.Slug {
		t.Fatalf("got slug %q want %q", other.Slug, a.Slug)
	}

	untitled := f.article(t, CreateArticleParams{Title: "!!!"})
	if !strings.HasPrefix(untitled.Slug, "untitled-") || len(untitled.Slug) != len("untitled-")+8 {
		t.Fatalf("got fallback slug %q", untitled.Slug)
	}
}

func TestArticleSlug_MustNotLookLikeID(t *testing.T) {
	f := newFixture(t)
	idShaped := "0192f1c4-8b3a-7d2e-9f10-3c4d5e6f7a8b"

	_, err := f.articles.CreateArticle(ctx, CreateArticleParams{OwnerID: owner, Title: "Post", Slug: idShaped})
	var vErr *ValidationError
	if !errors.As(err, &vErr) || vErr.Field != "slug" {
		t.Fatalf("create: got %v want slug validation error", err)
	}

	a := f.article(t, CreateArticleParams{Title: "Post"})
	_, err = f.articles.UpdateArticle(ctx, UpdateArticleParams{OwnerID: owner, ID: a.ID, Slug: ptr(idShaped)})
	if !errors.As(err, &vErr) || vErr.Field != "slug" {
		t.Fatalf("update: got %v want slug validation error", err)
	}

	derived := f.article(t, CreateArticleParams{Title: idShaped})
	if !strings.HasPrefix(derived.Slug, "untitled-") {
		t.Fatalf("got slug %q derived from an id-shaped title", derived.Slug)
	}
	got, err := f.articles.GetArticle(ctx, owner, derived.Slug, false)
	if err != nil || got.ID != derived.ID {
		t.Fatalf("get by slug: got %v, %v", got, err)
	}
}

func TestCreateArticle_PublishRequiresContent(t *testing.T) {
	f := newFixture(t)

	_, err := f.articles.CreateArticle(ctx, CreateArticleParams{
		OwnerID: owner,
		Title:   "Empty",
		Status:  models.ArticleStatusPublished,
	})
	var vErr *ValidationError
	if !errors.As(err, &vErr) || vErr.Field != "content" {
		t.Fatalf("got %v want content validation error", err)
	}

	draft := f.article(t, CreateArticleParams{Title: "Empty"})
	_, err = f.articles.UpdateArticle(ctx, UpdateArticleParams{
		OwnerID: owner,
		ID:      draft.ID,
		Status:  ptr(models.ArticleStatusPublished),
	})
	if !errors.As(err, &vErr) || vErr.Field != "content" {
		t.Fatalf("publish update: got %v want content validation error", err)
	}
}

func TestUpdateArticle_Derivation(t *testing.T) {
	f := newFixture(t)
	a := f.article(t, CreateArticleParams{Title: "Draft", Content: "one two"})
	if a.PublishedAt != nil {
		t.Fatalf("draft has publishedAt %v", a.PublishedAt)
	}

	f.clock.Advance(time.Hour)
	a, err := f.articles.UpdateArticle(ctx, UpdateArticleParams{
		OwnerID: owner,
		ID:      a.ID,
		Title:   ptr("Renamed"),
		Status:  ptr(models.ArticleStatusPublished),
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if a.Slug != "draft" {
		t.Fatalf("title change rewrote slug to %q", a.Slug)
	}
	if a.PublishedAt == nil || !a.PublishedAt.Equal(f.clock.Now()) {
		t.Fatalf("got publishedAt %v want %v", a.PublishedAt, f.clock.Now())
	}

	a, err = f.articles.UpdateArticle(ctx, UpdateArticleParams{OwnerID: owner, ID: a.ID, Slug: ptr("")})
	if err != nil {
		t.Fatalf("clear slug: %v", err)
	}
	if a.Slug != "renamed" {
		t.Fatalf("got slug %q want %q", a.Slug, "renamed")
	}

	a, err = f.articles.UpdateArticle(ctx, UpdateArticleParams{
		OwnerID: owner,
		ID:      a.ID,
		Status:  ptr(models.ArticleStatusArchived),
	})
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if a.PublishedAt != nil {
		t.Fatalf("archived article kept publishedAt %v", a.PublishedAt)
	}
}

func TestArticleReferences(t *testing.T) {
	f := newFixture(t)
	target := f.article(t, CreateArticleParams{Title: "Target"})
	theirs, err := f.articles.CreateArticle(ctx, CreateArticleParams{OwnerID: "other", Title: "Theirs"})
	if err != nil {
		t.Fatalf("create foreign article: %v", err)
	}

	tests := []struct {
		name string
		refs []string
	}{
		{"malformed", []string{"abc"}},
		{"foreign", []string{theirs.ID}},
		{"partially unknown", []string{target.ID, "0190b3c4-5d6e-7f80-9a1b-2c3d4e5f6a7b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.articles.CreateArticle(ctx, CreateArticleParams{
				OwnerID:            owner,
				Title:              "Ref " + tt.name,
				ReferencedArticles: tt.refs,
			})
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("got %v want validation error", err)
			}
		})
	}

	_, err = f.articles.UpdateArticle(ctx, UpdateArticleParams{
		OwnerID:            owner,
		ID:                 target.ID,
		ReferencedArticles: ptr([]string{target.ID}),
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("self reference: got %v want validation error", err)
	}

	ref := f.article(t, CreateArticleParams{
		Title:              "Ref",
		ReferencedArticles: []string{target.ID, target.ID},
	})
	if len(ref.ReferencedArticles) != 1 {
		t.Fatalf("got references %v want one", ref.ReferencedArticles)
	}
}

func TestDeleteArticle_PullsReferences(t *testing.T) {
	f := newFixture(t)
	s := f.section(t, "Work")
	target := f.article(t, CreateArticleParams{Title: "Target"})
	keep := f.article(t, CreateArticleParams{Title: "Keep"})
	ref := f.article(t, CreateArticleParams{
		Title:              "Ref",
		ReferencedArticles: []string{target.ID, keep.ID},
	})
	task, err := f.tasks.CreateTask(ctx, CreateTaskParams{
		OwnerID:        owner,
		SectionID:      s.ID,
		Name:           "read",
		DueDate:        f.clock.Now(),
		LinkedArticles: []string{target.ID},
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	if err = f.articles.DeleteArticle(ctx, owner, target.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	gotRef, err := f.articles.GetArticle(ctx, owner, ref.ID, false)
	if err != nil {
		t.Fatalf("get ref: %v", err)
	}
	if len(gotRef.ReferencedArticles) != 1 || gotRef.ReferencedArticles[0] != keep.ID {
		t.Fatalf("got references %v want [%s]", gotRef.ReferencedArticles, keep.ID)
	}
	if len(gotRef.References) != 1 || gotRef.References[0].Title != "Keep" {
		t.Fatalf("got resolved references %+v want [Keep]", gotRef.References)
	}
	gotTask, err := f.tasks.GetTask(ctx, owner, task.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if len(gotTask.LinkedArticles) != 0 || len(gotTask.LinkedArticleSummaries) != 0 {
		t.Fatalf("got linked articles %v want none", gotTask.LinkedArticles)
	}

	if _, err = f.articles.GetArticle(ctx, owner, target.ID, false); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v want not found", err)
	}
}

func TestGetTask_ResolvesReferences(t *testing.T) {
	f := newFixture(t)
	s := f.section(t, "Work")
	first := f.article(t, CreateArticleParams{Title: "First", Excerpt: "one"})
	second := f.article(t, CreateArticleParams{
		Title:   "Second",
		Status:  models.ArticleStatusPublished,
		Content: "body",
	})
	task, err := f.tasks.CreateTask(ctx, CreateTaskParams{
		OwnerID:        owner,
		SectionID:      s.ID,
		Name:           "read",
		DueDate:        f.clock.Now(),
		LinkedArticles: []string{second.ID, first.ID},
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	got, err := f.tasks.GetTask(ctx, owner, task.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	wantSection := models.SectionSummary{ID: s.ID, Name: "Work", Color: models.DefaultSectionColor, Icon: models.DefaultSectionIcon}
	if got.Section == nil || *got.Section != wantSection {
		t.Fatalf("got section %+v want %+v", got.Section, wantSection)
	}
	want := []models.ArticleSummary{
		{ID: second.ID, Title: "Second", Slug: "second", Status: models.ArticleStatusPublished},
		{ID: first.ID, Title: "First", Slug: "first", Status: models.ArticleStatusDraft, Excerpt: "one"},
	}
	if !reflect.DeepEqual(got.LinkedArticleSummaries, want) {
		t.Fatalf("got linked articles %+v want %+v", got.LinkedArticleSummaries, want)
	}

	if _, err = f.sections.ArchiveSection(ctx, owner, s.ID, true); err != nil {
		t.Fatalf("archive: %v", err)
	}
	page, err := f.tasks.ListTasks(ctx, ListTasksParams{Filter: query.TaskFilter{OwnerID: owner}})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Tasks) != 1 || page.Tasks[0].Section == nil || page.Tasks[0].Section.Name != "Work" {
		t.Fatalf("archived section not resolved in list: %+v", page.Tasks)
	}
	if len(page.Tasks[0].LinkedArticleSummaries) != 2 {
		t.Fatalf("got %d linked articles in list want 2", len(page.Tasks[0].LinkedArticleSummaries))
	}
}

func TestGetArticle_IdentifierAndViews(t *testing.T) {
	f := newFixture(t)
	a := f.article(t, CreateArticleParams{Title: "Hello World"})

	bySlug, err := f.articles.GetArticle(ctx, owner, "hello-world", true)
	if err != nil {
		t.Fatalf("get by slug: %v", err)
	}
	if bySlug.ID != a.ID || bySlug.Views != 1 {
		t.Fatalf("got id %s views %d", bySlug.ID, bySlug.Views)
	}

	byID, err := f.articles.GetArticle(ctx, owner, a.ID, false)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if byID.Views != 1 {
		t.Fatalf("read without increment changed views to %d", byID.Views)
	}

	if _, err = f.articles.GetArticle(ctx, "other", "hello-world", false); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v want not found for another owner", err)
	}
}

func TestListAndSearchArticles(t *testing.T) {
	f := newFixture(t)
	f.article(t, CreateArticleParams{Title: "Go generics", Content: "type parameters", Category: "go"})
	f.clock.Advance(time.Minute)
	f.article(t, CreateArticleParams{Title: "Postgres", Content: "100% indexes", Category: "db"})

	page, err := f.articles.ListArticles(ctx, ListArticlesParams{Filter: query.ArticleFilter{OwnerID: owner}})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Pagination.TotalCount != 2 {
		t.Fatalf("got total %d want 2", page.Pagination.TotalCount)
	}
	for _, a := range page.Articles {
		if a.Content != "" {
			t.Fatalf("list view carries content of %s", a.Title)
		}
	}

	found, err := f.articles.SearchArticles(ctx, SearchArticlesParams{OwnerID: owner, Query: "100%"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(found) != 1 || found[0].Title != "Postgres" {
		t.Fatalf("got %d results for literal search", len(found))
	}

	_, err = f.articles.SearchArticles(ctx, SearchArticlesParams{OwnerID: owner, Query: " g "})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("got %v want validation error for a one-character query", err)
	}

	categories, tags, err := f.articles.CategoriesAndTags(ctx, owner)
	if err != nil {
		t.Fatalf("categories and tags: %v", err)
	}
	if strings.Join(categories, ",") != "db,go" || len(tags) != 0 {
		t.Fatalf("got categories %v tags %v", categories, tags)
	}
}

func TestTaskStats(t *testing.T) {
	f := newFixture(t)
	work := f.section(t, "Work")
	home := f.section(t, "Home")
	now := f.clock.Now()

	f.task(t, work.ID, "overdue", now.Add(-time.Hour))
	done := f.task(t, work.ID, "done", now.Add(-time.Hour))
	f.task(t, home.ID, "later", now.Add(time.Hour))
	if _, err := f.tasks.UpdateTask(ctx, UpdateTaskParams{
		OwnerID:    owner,
		ID:         done.ID,
		TaskUpdate: TaskUpdate{Status: ptr(models.TaskStatusCompleted)},
	}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	stats, err := f.stats.TaskStats(ctx, owner, "")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Total != 3 || stats.Overdue != 1 || stats.CompletedThisWeek != 1 {
		t.Fatalf("got %+v", stats)
	}
	if stats.Status[models.TaskStatusPending] != 2 || stats.Status[models.TaskStatusCancelled] != 0 {
		t.Fatalf("got status counts %v", stats.Status)
	}
	if len(stats.Priority) != len(models.TaskPriorities) || stats.Priority[models.TaskPriorityMedium] != 3 {
		t.Fatalf("got priority counts %v", stats.Priority)
	}

	scoped, err := f.stats.TaskStats(ctx, owner, home.ID)
	if err != nil {
		t.Fatalf("section stats: %v", err)
	}
	if scoped.Total != 1 || scoped.Overdue != 0 {
		t.Fatalf("got section stats %+v", scoped)
	}

	f.clock.Advance(8 * 24 * time.Hour)
	later, err := f.stats.TaskStats(ctx, owner, "")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if later.CompletedThisWeek != 0 || later.Overdue != 2 {
		t.Fatalf("got %+v a week later", later)
	}

	if _, err = f.stats.TaskStats(ctx, "other", work.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v want not found for a foreign section", err)
	}
}

func TestArticleStats(t *testing.T) {
	f := newFixture(t)

	empty, err := f.stats.ArticleStats(ctx, owner)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if empty.Total != 0 || len(empty.Status) != 3 || empty.Categories == nil {
		t.Fatalf("got %+v for an owner without articles", empty)
	}

	f.article(t, CreateArticleParams{Title: "A", Content: "x", Category: "go", Status: models.ArticleStatusPublished})
	f.article(t, CreateArticleParams{Title: "B", Category: "go"})
	f.article(t, CreateArticleParams{Title: "C", Category: "db"})
	f.article(t, CreateArticleParams{Title: "D"})
	if _, err = f.articles.GetArticle(ctx, owner, "a", true); err != nil {
		t.Fatalf("view: %v", err)
	}

	stats, err := f.stats.ArticleStats(ctx, owner)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Total != 4 || stats.PublishedThisMonth != 1 || stats.TotalViews != 1 {
		t.Fatalf("got %+v", stats)
	}
	if stats.Status[models.ArticleStatusDraft] != 3 {
		t.Fatalf("got status counts %v", stats.Status)
	}
	want := []models.CategoryCount{{Category: "go", Count: 2}, {Category: "db", Count: 1}}
	if len(stats.Categories) != 2 || stats.Categories[0] != want[0] || stats.Categories[1] != want[1] {
		t.Fatalf("got categories %v want %v", stats.Categories, want)
	}

	f.clock.Advance(31 * 24 * time.Hour)
	next, err := f.stats.ArticleStats(ctx, owner)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if next.PublishedThisMonth != 0 {
		t.Fatalf("got %d published this month after the month rolled over", next.PublishedThisMonth)
	}
}
