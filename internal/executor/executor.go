// Package executor performs the store operations an intent or tool call
// asks for and renders the spoken confirmation text.
package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/intent"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/store"
	"github.com/starford/ansuz/internal/voice"
)

// Result is the outcome of a structured tool call. Body is returned to
// the caller verbatim as the success payload and always contains the
// confirmation under "message".
type Result struct {
	Message string
	Body    map[string]any
}

// Outcome is the result of executing a transcript-derived intent.
type Outcome struct {
	Response string         `json:"response"`
	Action   map[string]any `json:"action,omitempty"`
}

// Executor runs intents and tool calls against one user's record store.
type Executor struct {
	store   store.Store
	userID  string
	courier voice.Courier
}

// New creates an executor. courier may be nil, in which case contextual
// updates go to the log.
func New(st store.Store, userID string, courier voice.Courier) *Executor {
	if courier == nil {
		courier = &voice.LogCourier{}
	}
	return &Executor{store: st, userID: userID, courier: courier}
}

// notify pushes a contextual update into the voice session. Fire and
// forget: failures never surface to the caller.
func (e *Executor) notify(text string) {
	e.courier.ContextualUpdate(text)
}

func result(message string, extra map[string]any) Result {
	body := map[string]any{"message": message}
	for k, v := range extra {
		body[k] = v
	}
	return Result{Message: message, Body: body}
}

// AddNote handles the add_note tool call.
func (e *Executor) AddNote(ctx context.Context, title, content string) (Result, error) {
	if title == "" {
		title = models.DefaultNoteTitle
	}
	n, err := e.store.InsertNote(ctx, models.Note{
		UserID:   e.userID,
		Title:    title,
		Content:  content,
		Category: models.DefaultCategory,
		Priority: models.PriorityMedium,
	})
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", apperr.ErrBackend, err)
	}
	count, err := e.store.CountNotes(ctx, e.userID)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", apperr.ErrBackend, err)
	}
	e.notify(fmt.Sprintf("User added note %q", n.Title))
	return result(fmt.Sprintf("I've added your note titled %q. You now have %d notes.", n.Title, count), nil), nil
}

// AddReminder handles the add_reminder tool call. date is "YYYY-MM-DD"
// and clock is "HH:MM"; both optional.
func (e *Executor) AddReminder(ctx context.Context, title, content, date, clock string) (Result, error) {
	if title == "" {
		title = models.DefaultReminderTitle
	}

	due, err := combineDateTime(date, clock)
	if err != nil {
		return Result{}, err
	}

	r, err := e.store.InsertReminder(ctx, models.Reminder{
		UserID:   e.userID,
		Title:    title,
		Notes:    content,
		Date:     due,
		Category: models.DefaultCategory,
		Priority: models.PriorityMedium,
	})
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", apperr.ErrBackend, err)
	}
	count, err := e.store.CountReminders(ctx, e.userID)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", apperr.ErrBackend, err)
	}

	msg := fmt.Sprintf("I've added your reminder %q.", r.Title)
	switch {
	case date != "" && clock != "":
		msg += fmt.Sprintf(" It's scheduled for %s at %s.", date, clock)
	case date != "":
		msg += fmt.Sprintf(" It's scheduled for %s.", date)
	}
	msg += fmt.Sprintf(" You now have %d reminders.", count)

	e.notify(fmt.Sprintf("User added reminder %q", r.Title))
	return result(msg, nil), nil
}

// ModifyNote handles the modify_note tool call. The target is resolved by
// id first, then by case-insensitive title substring.
func (e *Executor) ModifyNote(ctx context.Context, id, title, content string) (Result, error) {
	if id == "" && title == "" {
		return Result{}, fmt.Errorf("%w: provide either an ID or title to modify the note", apperr.ErrValidation)
	}

	target, err := e.resolveNote(ctx, id, title)
	if err != nil {
		return Result{}, err
	}

	var patch store.NotePatch
	if title != "" && title != target.Title {
		patch.Title = &title
	}
	if content != "" {
		patch.Content = &content
	}

	updated, err := e.store.UpdateNote(ctx, e.userID, target.ID, patch)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return Result{}, err
		}
		return Result{}, fmt.Errorf("%w: %v", apperr.ErrBackend, err)
	}

	e.notify(fmt.Sprintf("User updated note %q", updated.Title))
	return result(
		fmt.Sprintf("I've updated your note %q. The changes have been saved.", updated.Title),
		map[string]any{"note": updated},
	), nil
}

// CompleteNote handles the complete_note tool call.
func (e *Executor) CompleteNote(ctx context.Context, id, title string, completed bool) (Result, error) {
	if id == "" && title == "" {
		return Result{}, fmt.Errorf("%w: provide either an ID or title to complete the note", apperr.ErrValidation)
	}

	target, err := e.resolveNote(ctx, id, title)
	if err != nil {
		return Result{}, err
	}

	updated, err := e.store.UpdateNote(ctx, e.userID, target.ID, store.NotePatch{Completed: &completed})
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return Result{}, err
		}
		return Result{}, fmt.Errorf("%w: %v", apperr.ErrBackend, err)
	}

	state := "completed"
	if !completed {
		state = "uncompleted"
	}
	e.notify(fmt.Sprintf("User marked note %q as %s", updated.Title, state))
	return result(
		fmt.Sprintf("I've marked the note %q as %s.", updated.Title, state),
		map[string]any{"note": updated},
	), nil
}

// DeleteNote handles the delete_note tool call. The target is looked up
// among notes first, then reminders.
func (e *Executor) DeleteNote(ctx context.Context, id, title string) (Result, error) {
	if id == "" && title == "" {
		return Result{}, fmt.Errorf("%w: provide either an ID or title to delete", apperr.ErrValidation)
	}

	if target, err := e.resolveNote(ctx, id, title); err == nil {
		deleted, err := e.store.DeleteNote(ctx, e.userID, target.ID)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				return Result{}, err
			}
			return Result{}, fmt.Errorf("%w: %v", apperr.ErrBackend, err)
		}
		e.notify(fmt.Sprintf("User deleted note %q", deleted.Title))
		return result(fmt.Sprintf("I've deleted the note titled %q.", deleted.Title), nil), nil
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return Result{}, err
	}

	// Not among notes; fall back to reminders.
	reminders, err := e.store.ListReminders(ctx, e.userID, store.Filter{ID: id, Title: title})
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", apperr.ErrBackend, err)
	}
	if len(reminders) == 0 {
		return Result{}, apperr.ErrNotFound
	}
	deleted, err := e.store.DeleteReminder(ctx, e.userID, reminders[0].ID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return Result{}, err
		}
		return Result{}, fmt.Errorf("%w: %v", apperr.ErrBackend, err)
	}
	e.notify(fmt.Sprintf("User deleted reminder %q", deleted.Title))
	return result(fmt.Sprintf("I've deleted the reminder titled %q.", deleted.Title), nil), nil
}

// GetNotes handles the get_notes tool call. typ narrows to "notes" or
// "reminders"; anything else returns both. search filters by substring.
func (e *Executor) GetNotes(ctx context.Context, typ, search string) (Result, error) {
	f := store.Filter{Search: search}

	var (
		notes     []models.Note
		reminders []models.Reminder
		err       error
	)
	if typ != "reminders" {
		notes, err = e.store.ListNotes(ctx, e.userID, f)
		if err != nil {
			return Result{}, fmt.Errorf("%w: %v", apperr.ErrBackend, err)
		}
	}
	if typ != "notes" {
		reminders, err = e.store.ListReminders(ctx, e.userID, f)
		if err != nil {
			return Result{}, fmt.Errorf("%w: %v", apperr.ErrBackend, err)
		}
	}

	var msg string
	switch {
	case len(notes) == 0 && len(reminders) == 0:
		msg = "You don't have any notes or reminders yet. Would you like to add some?"
	case typ == "notes":
		msg = fmt.Sprintf("You have %d notes. Here are your recent notes: %s.",
			len(notes), joinTitles(noteTitles(notes), 3))
	case typ == "reminders":
		msg = fmt.Sprintf("You have %d reminders. Here are your upcoming reminders: %s.",
			len(reminders), joinTitles(reminderTitles(reminders), 3))
	default:
		recent := noteTitles(notes)[:min(2, len(notes))]
		recent = append(recent, reminderTitles(reminders)[:min(1, len(reminders))]...)
		msg = fmt.Sprintf("You have %d notes and %d reminders. Your recent items: %s.",
			len(notes), len(reminders), strings.Join(recent, ", "))
	}

	if notes == nil {
		notes = []models.Note{}
	}
	if reminders == nil {
		reminders = []models.Reminder{}
	}
	return result(msg, map[string]any{
		"notes":     notes,
		"reminders": reminders,
		"total":     len(notes) + len(reminders),
	}), nil
}

// Execute runs a transcript-derived intent. The caller guarantees it is
// non-nil; unmatched transcripts never reach the executor.
func (e *Executor) Execute(ctx context.Context, it *intent.Intent) (*Outcome, error) {
	switch it.Kind {
	case intent.AddNote:
		if it.NeedsInput {
			return &Outcome{Response: "What would you like noted?"}, nil
		}
		n, err := e.store.InsertNote(ctx, models.Note{
			UserID:   e.userID,
			Title:    models.DefaultNoteTitle,
			Content:  it.Content,
			Category: models.DefaultCategory,
			Priority: models.PriorityMedium,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", apperr.ErrBackend, err)
		}
		count, err := e.store.CountNotes(ctx, e.userID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", apperr.ErrBackend, err)
		}
		e.notify(fmt.Sprintf("User added note: %q", n.Content))
		return &Outcome{
			Response: fmt.Sprintf("I've added your note: %q. You now have %d notes.", n.Content, count),
			Action:   map[string]any{"type": "add_note", "note": n},
		}, nil

	case intent.AddReminder:
		if it.NeedsInput {
			return &Outcome{Response: "What would you like to be reminded about?"}, nil
		}
		r, err := e.store.InsertReminder(ctx, models.Reminder{
			UserID:   e.userID,
			Title:    models.DefaultReminderTitle,
			Notes:    it.Content,
			Category: models.DefaultCategory,
			Priority: models.PriorityMedium,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", apperr.ErrBackend, err)
		}
		count, err := e.store.CountReminders(ctx, e.userID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", apperr.ErrBackend, err)
		}
		e.notify(fmt.Sprintf("User added reminder: %q", r.Notes))
		return &Outcome{
			Response: fmt.Sprintf("I've created your reminder: %q. You now have %d reminders.", r.Notes, count),
			Action:   map[string]any{"type": "add_reminder", "reminder": r},
		}, nil

	case intent.GetItems:
		return e.readItems(ctx, it.Target)

	case intent.ClearAll:
		return e.clearAll(ctx)

	case intent.DeleteLast:
		return e.deleteLast(ctx)

	default:
		return nil, fmt.Errorf("%w: unknown intent kind %q", apperr.ErrValidation, it.Kind)
	}
}

func (e *Executor) readItems(ctx context.Context, kind models.ItemKind) (*Outcome, error) {
	if kind == models.KindReminder {
		reminders, err := e.store.ListReminders(ctx, e.userID, store.Filter{})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", apperr.ErrBackend, err)
		}
		if len(reminders) == 0 {
			return &Outcome{
				Response: "You don't have any reminders yet.",
				Action:   map[string]any{"type": "read_reminders", "count": 0},
			}, nil
		}
		return &Outcome{
			Response: "Here are your reminders: " + enumerate(reminderBodies(reminders)),
			Action:   map[string]any{"type": "read_reminders", "count": len(reminders)},
		}, nil
	}

	notes, err := e.store.ListNotes(ctx, e.userID, store.Filter{})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrBackend, err)
	}
	if len(notes) == 0 {
		return &Outcome{
			Response: "You don't have any notes yet.",
			Action:   map[string]any{"type": "read_notes", "count": 0},
		}, nil
	}
	return &Outcome{
		Response: "Here are your notes: " + enumerate(noteBodies(notes)),
		Action:   map[string]any{"type": "read_notes", "count": len(notes)},
	}, nil
}

func (e *Executor) clearAll(ctx context.Context) (*Outcome, error) {
	noteCount, err := e.store.CountNotes(ctx, e.userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrBackend, err)
	}
	remCount, err := e.store.CountReminders(ctx, e.userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrBackend, err)
	}
	if noteCount+remCount == 0 {
		return &Outcome{Response: "You don't have any notes to clear."}, nil
	}

	count, err := e.store.DeleteAll(ctx, e.userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrBackend, err)
	}
	e.notify(fmt.Sprintf("User cleared all %d notes and reminders", count))
	return &Outcome{
		Response: fmt.Sprintf("I've cleared all %d notes and reminders.", count),
		Action:   map[string]any{"type": "clear_notes", "count": count},
	}, nil
}

func (e *Executor) deleteLast(ctx context.Context) (*Outcome, error) {
	last, err := e.store.LastInserted(ctx, e.userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrBackend, err)
	}
	if last == nil {
		return &Outcome{Response: "You don't have any notes to delete."}, nil
	}

	if last.Kind == models.KindReminder {
		if _, err := e.store.DeleteReminder(ctx, e.userID, last.Reminder.ID); err != nil {
			return nil, fmt.Errorf("%w: %v", apperr.ErrBackend, err)
		}
	} else {
		if _, err := e.store.DeleteNote(ctx, e.userID, last.Note.ID); err != nil {
			return nil, fmt.Errorf("%w: %v", apperr.ErrBackend, err)
		}
	}

	e.notify(fmt.Sprintf("User deleted %s: %q", last.Kind, last.Content()))
	return &Outcome{
		Response: fmt.Sprintf("I've deleted your last %s: %q", last.Kind, last.Content()),
		Action:   map[string]any{"type": "delete_note", "kind": string(last.Kind)},
	}, nil
}

// resolveNote finds the single target note by id, falling back to a
// case-insensitive title substring match. The first match wins when the
// title is ambiguous.
func (e *Executor) resolveNote(ctx context.Context, id, title string) (models.Note, error) {
	f := store.Filter{ID: id}
	if id == "" {
		f.Title = title
	}
	notes, err := e.store.ListNotes(ctx, e.userID, f)
	if err != nil {
		return models.Note{}, fmt.Errorf("%w: %v", apperr.ErrBackend, err)
	}
	if len(notes) == 0 {
		return models.Note{}, apperr.ErrNotFound
	}
	return notes[0], nil
}

// combineDateTime builds a due timestamp from "YYYY-MM-DD" and "HH:MM"
// parts. Returns nil when no date was given.
func combineDateTime(date, clock string) (*time.Time, error) {
	if date == "" {
		return nil, nil
	}
	due, err := time.ParseInLocation("2006-01-02", date, time.Local)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid date %q, expected YYYY-MM-DD", apperr.ErrValidation, date)
	}
	if clock != "" {
		t, err := time.Parse("15:04", clock)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid time %q, expected HH:MM", apperr.ErrValidation, clock)
		}
		due = due.Add(time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute)
	}
	return &due, nil
}

// enumerate renders up to five items as a 1-indexed spoken list.
func enumerate(items []string) string {
	if len(items) > 5 {
		items = items[:5]
	}
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = fmt.Sprintf("%d. %s", i+1, it)
	}
	return strings.Join(parts, ". ")
}

func noteBodies(notes []models.Note) []string {
	out := make([]string, len(notes))
	for i, n := range notes {
		out[i] = n.Content
	}
	return out
}

func reminderBodies(reminders []models.Reminder) []string {
	out := make([]string, len(reminders))
	for i, r := range reminders {
		if r.Notes != "" {
			out[i] = r.Notes
		} else {
			out[i] = r.Title
		}
	}
	return out
}

func noteTitles(notes []models.Note) []string {
	out := make([]string, len(notes))
	for i, n := range notes {
		out[i] = n.Title
	}
	return out
}

func reminderTitles(reminders []models.Reminder) []string {
	out := make([]string, len(reminders))
	for i, r := range reminders {
		out[i] = r.Title
	}
	return out
}

func joinTitles(titles []string, limit int) string {
	if len(titles) > limit {
		titles = titles[:limit]
	}
	return strings.Join(titles, ", ")
}
