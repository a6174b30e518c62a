// Package models defines the domain types for Ansuz.
package models

import "time"

// ItemKind distinguishes the two record collections.
type ItemKind string

const (
	KindNote     ItemKind = "note"
	KindReminder ItemKind = "reminder"
)

// Priority levels for notes and reminders.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Default field values applied on insert.
const (
	DefaultNoteTitle     = "Untitled Note"
	DefaultReminderTitle = "Untitled Reminder"
	DefaultCategory      = "general"
)

// Note is a saved note owned by a single user.
type Note struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Title       string     `json:"title"`
	Content     string     `json:"content"`
	Category    string     `json:"category"`
	Priority    Priority   `json:"priority"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
}

// Reminder is a saved reminder owned by a single user. Reminders carry an
// optional due date and are immutable once created: they can only be
// listed and deleted.
type Reminder struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Title     string     `json:"title"`
	Notes     string     `json:"notes"`
	Date      *time.Time `json:"date"`
	Category  string     `json:"category"`
	Priority  Priority   `json:"priority"`
	CreatedAt time.Time  `json:"created_at"`
}
