package intent

import (
	"fmt"
	"os"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

// Vocabulary holds the trigger phrase sets for each rule. Phrases are
// matched as lowercase substrings, so entries must be lowercase.
//
// The sets are intentionally broad (multiple synonyms per action) because
// transcripts are noisy. A vocabulary file can override individual sets;
// empty sets fall back to the defaults.
type Vocabulary struct {
	AddNote       []string `yaml:"add_note"`
	AddReminder   []string `yaml:"add_reminder"`
	ReadNotes     []string `yaml:"read_notes"`
	ReadReminders []string `yaml:"read_reminders"`
	ClearAll      []string `yaml:"clear_all"`
	DeleteLast    []string `yaml:"delete_last"`
}

// DefaultVocabulary returns the built-in trigger phrases.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		AddNote:       []string{"add a note", "add note"},
		AddReminder:   []string{"create a reminder", "create reminder", "remind me"},
		ReadNotes:     []string{"read my notes", "read notes", "what are my notes"},
		ReadReminders: []string{"read my reminders", "read reminders", "what are my reminders"},
		ClearAll:      []string{"clear all notes", "delete all notes"},
		DeleteLast:    []string{"delete the last note", "delete last note"},
	}
}

// LoadVocabulary reads a YAML vocabulary file and merges it over the
// defaults: sets absent from the file keep their built-in phrases.
func LoadVocabulary(path string) (Vocabulary, error) {
	v := DefaultVocabulary()

	data, err := os.ReadFile(path)
	if err != nil {
		return v, fmt.Errorf("intent: read vocabulary %s: %w", path, err)
	}

	var override Vocabulary
	if err := yaml.Unmarshal(data, &override); err != nil {
		return v, fmt.Errorf("intent: parse vocabulary %s: %w", path, err)
	}

	if len(override.AddNote) > 0 {
		v.AddNote = override.AddNote
	}
	if len(override.AddReminder) > 0 {
		v.AddReminder = override.AddReminder
	}
	if len(override.ReadNotes) > 0 {
		v.ReadNotes = override.ReadNotes
	}
	if len(override.ReadReminders) > 0 {
		v.ReadReminders = override.ReadReminders
	}
	if len(override.ClearAll) > 0 {
		v.ClearAll = override.ClearAll
	}
	if len(override.DeleteLast) > 0 {
		v.DeleteLast = override.DeleteLast
	}
	return v, nil
}

// Source holds the current interpreter and allows atomic replacement when
// the vocabulary file changes. Readers never block on a reload.
type Source struct {
	ptr atomic.Pointer[Interpreter]
}

// NewSource creates a Source serving the given interpreter.
func NewSource(in *Interpreter) *Source {
	s := &Source{}
	s.ptr.Store(in)
	return s
}

// Current returns the active interpreter.
func (s *Source) Current() *Interpreter {
	return s.ptr.Load()
}

// Swap replaces the active interpreter.
func (s *Source) Swap(in *Interpreter) {
	s.ptr.Store(in)
}
