package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/models"
)

type memNote struct {
	models.Note
	seq uint64
}

type memReminder struct {
	models.Reminder
	seq uint64
}

// Memory is the volatile in-process store. State lives for the process
// lifetime only; suitable for demos and tests. It is created per instance
// and injected, never shared module state.
type Memory struct {
	mu        sync.Mutex
	notes     []memNote
	reminders []memReminder
	seq       uint64
}

// Verify Memory satisfies Store at compile time.
var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) InsertNote(_ context.Context, n models.Note) (models.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n.ID = uuid.NewString()
	n.CreatedAt = time.Now().UTC()
	m.seq++
	m.notes = append(m.notes, memNote{Note: n, seq: m.seq})
	return n, nil
}

func (m *Memory) InsertReminder(_ context.Context, r models.Reminder) (models.Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r.ID = uuid.NewString()
	r.CreatedAt = time.Now().UTC()
	m.seq++
	m.reminders = append(m.reminders, memReminder{Reminder: r, seq: m.seq})
	return r, nil
}

func (m *Memory) ListNotes(_ context.Context, userID string, f Filter) ([]models.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.Note
	for _, n := range m.notes {
		if n.UserID != userID || !noteMatches(n.Note, f) {
			continue
		}
		out = append(out, n.Note)
	}
	// Newest first; insertion sequence breaks same-instant ties.
	idx := make(map[string]uint64, len(m.notes))
	for _, n := range m.notes {
		idx[n.ID] = n.seq
	}
	sort.SliceStable(out, func(i, j int) bool { return idx[out[i].ID] > idx[out[j].ID] })
	return out, nil
}

func (m *Memory) ListReminders(_ context.Context, userID string, f Filter) ([]models.Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.Reminder
	for _, r := range m.reminders {
		if r.UserID != userID || !reminderMatches(r.Reminder, f) {
			continue
		}
		out = append(out, r.Reminder)
	}
	// Soonest first; undated reminders last.
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Date, out[j].Date
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})
	return out, nil
}

func (m *Memory) UpdateNote(_ context.Context, userID, id string, p NotePatch) (models.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.notes {
		n := &m.notes[i]
		if n.UserID != userID || n.ID != id {
			continue
		}
		now := time.Now().UTC()
		if p.Title != nil || p.Content != nil {
			if p.Title != nil {
				n.Title = *p.Title
			}
			if p.Content != nil {
				n.Content = *p.Content
			}
			n.UpdatedAt = &now
		}
		if p.Completed != nil {
			n.Completed = *p.Completed
			if *p.Completed {
				n.CompletedAt = &now
			} else {
				n.CompletedAt = nil
			}
		}
		return n.Note, nil
	}
	return models.Note{}, apperr.ErrNotFound
}

func (m *Memory) DeleteNote(_ context.Context, userID, id string) (models.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, n := range m.notes {
		if n.UserID == userID && n.ID == id {
			m.notes = append(m.notes[:i], m.notes[i+1:]...)
			return n.Note, nil
		}
	}
	return models.Note{}, apperr.ErrNotFound
}

func (m *Memory) DeleteReminder(_ context.Context, userID, id string) (models.Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, r := range m.reminders {
		if r.UserID == userID && r.ID == id {
			m.reminders = append(m.reminders[:i], m.reminders[i+1:]...)
			return r.Reminder, nil
		}
	}
	return models.Reminder{}, apperr.ErrNotFound
}

func (m *Memory) CountNotes(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, n := range m.notes {
		if n.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (m *Memory) CountReminders(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, r := range m.reminders {
		if r.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (m *Memory) DeleteAll(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	notes := m.notes[:0]
	for _, n := range m.notes {
		if n.UserID == userID {
			count++
			continue
		}
		notes = append(notes, n)
	}
	m.notes = notes

	reminders := m.reminders[:0]
	for _, r := range m.reminders {
		if r.UserID == userID {
			count++
			continue
		}
		reminders = append(reminders, r)
	}
	m.reminders = reminders
	return count, nil
}

func (m *Memory) LastInserted(_ context.Context, userID string) (*LastItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var (
		bestSeq uint64
		last    *LastItem
	)
	for i := range m.notes {
		n := m.notes[i]
		if n.UserID == userID && n.seq > bestSeq {
			bestSeq = n.seq
			note := n.Note
			last = &LastItem{Kind: models.KindNote, Note: &note}
		}
	}
	for i := range m.reminders {
		r := m.reminders[i]
		if r.UserID == userID && r.seq > bestSeq {
			bestSeq = r.seq
			rem := r.Reminder
			last = &LastItem{Kind: models.KindReminder, Reminder: &rem}
		}
	}
	return last, nil
}

// Close is a no-op for the in-memory backend.
func (m *Memory) Close() error { return nil }

func noteMatches(n models.Note, f Filter) bool {
	if f.ID != "" && n.ID != f.ID {
		return false
	}
	if f.Title != "" && !titleMatches(n.Title, f) {
		return false
	}
	if f.Search != "" && !containsFold(n.Title, f.Search) && !containsFold(n.Content, f.Search) {
		return false
	}
	return true
}

func reminderMatches(r models.Reminder, f Filter) bool {
	if f.ID != "" && r.ID != f.ID {
		return false
	}
	if f.Title != "" && !titleMatches(r.Title, f) {
		return false
	}
	if f.Search != "" && !containsFold(r.Title, f.Search) && !containsFold(r.Notes, f.Search) {
		return false
	}
	return true
}

func titleMatches(title string, f Filter) bool {
	if f.TitleExact {
		return title == f.Title
	}
	return containsFold(title, f.Title)
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
