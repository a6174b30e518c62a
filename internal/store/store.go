// Package store provides the note/reminder record store with two
// interchangeable backends: a volatile in-process map and a durable
// SQLite database. Both behave identically from the executor's point
// of view.
package store

import (
	"context"

	"github.com/starford/ansuz/internal/models"
)

// Filter narrows list operations. Zero value matches everything.
type Filter struct {
	ID         string // equality on record id
	Title      string // title match; substring unless TitleExact
	TitleExact bool
	Search     string // case-insensitive substring over title and body text
}

// NotePatch describes a partial note update. Nil fields are left
// untouched. Setting Completed maintains the completed_at invariant:
// non-null iff completed is true.
type NotePatch struct {
	Title     *string
	Content   *string
	Completed *bool
}

// LastItem identifies the most recently inserted record across both
// collections, by insertion order.
type LastItem struct {
	Kind     models.ItemKind
	Note     *models.Note
	Reminder *models.Reminder
}

// Title returns the stored title regardless of kind.
func (l *LastItem) Title() string {
	if l.Kind == models.KindReminder {
		return l.Reminder.Title
	}
	return l.Note.Title
}

// Content returns the body text regardless of kind.
func (l *LastItem) Content() string {
	if l.Kind == models.KindReminder {
		return l.Reminder.Notes
	}
	return l.Note.Content
}

// Store is the record store contract. All operations are scoped to one
// user id. Mutations return the affected record; a missing target yields
// apperr.ErrNotFound.
//
// Ordering: notes list newest-first by creation; reminders list
// soonest-first by due date, records without a date last.
type Store interface {
	InsertNote(ctx context.Context, n models.Note) (models.Note, error)
	InsertReminder(ctx context.Context, r models.Reminder) (models.Reminder, error)

	ListNotes(ctx context.Context, userID string, f Filter) ([]models.Note, error)
	ListReminders(ctx context.Context, userID string, f Filter) ([]models.Reminder, error)

	UpdateNote(ctx context.Context, userID, id string, p NotePatch) (models.Note, error)
	DeleteNote(ctx context.Context, userID, id string) (models.Note, error)
	DeleteReminder(ctx context.Context, userID, id string) (models.Reminder, error)

	CountNotes(ctx context.Context, userID string) (int, error)
	CountReminders(ctx context.Context, userID string) (int, error)

	// DeleteAll removes every note and reminder for the user and returns
	// how many records were removed.
	DeleteAll(ctx context.Context, userID string) (int, error)

	// LastInserted returns the most recently inserted record across both
	// collections, or nil when the store is empty for this user.
	LastInserted(ctx context.Context, userID string) (*LastItem, error)

	Close() error
}
