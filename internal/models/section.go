package models

import "time"

const (
	DefaultSectionColor = "#3b82f6"
	DefaultSectionIcon  = "folder"
)

type Section struct {
	ID          string
	UserID      string
	Name        string
	Description string
	Color       string
	Icon        string
	IsArchived  bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (s *Section) Clone() *Section {
	c := *s
	return &c
}

// SectionSummary is what a task shows of its section.
type SectionSummary struct {
	ID    string
	Name  string
	Color string
	Icon  string
}
