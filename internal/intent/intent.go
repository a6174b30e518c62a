// Package intent turns freeform voice transcripts into structured commands.
//
// Matching is case-insensitive substring detection over an ordered rule
// table: the first rule whose trigger phrase occurs anywhere in the input
// wins, which tolerates leading filler words from speech-to-text. Rules
// with an extraction pattern then capture the trailing free text.
package intent

import (
	"regexp"
	"strings"

	"github.com/starford/ansuz/internal/models"
)

// Kind names the action a transcript resolved to.
type Kind string

const (
	AddNote     Kind = "add_note"
	AddReminder Kind = "add_reminder"
	GetItems    Kind = "get_items"
	ClearAll    Kind = "clear_all"
	DeleteLast  Kind = "delete_last"
)

// Intent is the structured result of interpreting one transcript.
// It is transient and never persisted.
type Intent struct {
	Kind    Kind
	Target  models.ItemKind // which collection GetItems reads
	Content string          // captured text for add intents, trimmed
	// NeedsInput is set when the trigger phrase matched but no content
	// could be captured; the executor answers with a clarification
	// prompt instead of mutating anything.
	NeedsInput bool
	RawText    string
}

type rule struct {
	triggers []string
	extract  *regexp.Regexp
	build    func(captured string) Intent
}

// Interpreter evaluates the rule table against transcripts.
type Interpreter struct {
	rules []rule
}

var (
	addNoteRe     = regexp.MustCompile(`(?i)add (?:a )?note:?\s*(.+)`)
	addReminderRe = regexp.MustCompile(`(?i)(?:create (?:a )?reminder|remind me):?\s*(.+)`)
)

// New builds an interpreter from a trigger vocabulary.
func New(v Vocabulary) *Interpreter {
	return &Interpreter{rules: []rule{
		{
			triggers: v.AddNote,
			extract:  addNoteRe,
			build: func(c string) Intent {
				return Intent{Kind: AddNote, Content: c, NeedsInput: c == ""}
			},
		},
		{
			triggers: v.AddReminder,
			extract:  addReminderRe,
			build: func(c string) Intent {
				return Intent{Kind: AddReminder, Content: c, NeedsInput: c == ""}
			},
		},
		{
			triggers: v.ReadNotes,
			build: func(string) Intent {
				return Intent{Kind: GetItems, Target: models.KindNote}
			},
		},
		{
			triggers: v.ReadReminders,
			build: func(string) Intent {
				return Intent{Kind: GetItems, Target: models.KindReminder}
			},
		},
		{
			triggers: v.ClearAll,
			build:    func(string) Intent { return Intent{Kind: ClearAll} },
		},
		{
			triggers: v.DeleteLast,
			build:    func(string) Intent { return Intent{Kind: DeleteLast} },
		},
	}}
}

// Interpret maps a transcript to an Intent, or nil when no trigger phrase
// matches. A nil result means the caller must not mutate state and must
// not fabricate a response.
func (in *Interpreter) Interpret(text string) *Intent {
	lower := strings.ToLower(text)
	for _, r := range in.rules {
		if !containsAny(lower, r.triggers) {
			continue
		}
		captured := ""
		if r.extract != nil {
			if m := r.extract.FindStringSubmatch(text); m != nil {
				captured = strings.TrimSpace(m[1])
			}
		}
		it := r.build(captured)
		it.RawText = text
		return &it
	}
	return nil
}

func containsAny(lower string, phrases []string) bool {
	for _, p := range phrases {
		if p != "" && strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
