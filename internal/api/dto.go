package api

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Webhook tool names.
const (
	ToolAddNote      = "add_note"
	ToolAddReminder  = "add_reminder"
	ToolModifyNote   = "modify_note"
	ToolCompleteNote = "complete_note"
	ToolDeleteNote   = "delete_note"
	ToolGetNotes     = "get_notes"
)

// toolRequest is the webhook tool-call contract: all parameters arrive
// flat at the top level of the request body. The voice agent platform
// serializes loosely, so id and completed accept more than one JSON type.
type toolRequest struct {
	ToolName       string `json:"tool_name"`
	Content        string `json:"content"`
	Title          string `json:"title"`
	Date           string `json:"date"`
	Time           string `json:"time"`
	Type           string `json:"type"`
	Search         string `json:"search"`
	ID             any    `json:"id"`
	Completed      any    `json:"completed"`
	ConversationID string `json:"conversation_id"`
	AgentID        string `json:"agent_id"`
}

// Validate checks the tool name and the type filter.
func (r toolRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ToolName, validation.Required, validation.In(
			ToolAddNote, ToolAddReminder, ToolModifyNote, ToolCompleteNote, ToolDeleteNote, ToolGetNotes,
		)),
		validation.Field(&r.Type, validation.In("", "notes", "reminders", "all")),
	)
}

// id returns the record id as a string, tolerating numeric JSON values.
func (r toolRequest) id() string {
	switch v := r.ID.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// completed coerces true, "true" and "1" to true.
func (r toolRequest) completed() bool {
	switch v := r.Completed.(type) {
	case bool:
		return v
	case string:
		return v == "true" || v == "1"
	default:
		return false
	}
}

type processRequest struct {
	SessionID string `json:"session_id"`
	UserInput string `json:"user_input"`
}

// Validate requires the transcript text.
func (r processRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.UserInput, validation.Required),
	)
}

type sessionRequest struct {
	AgentID string `json:"agent_id"`
}

// toolParam describes one parameter in the tool-discovery document.
type toolParam struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// toolSchema describes one tool in the tool-discovery document.
type toolSchema struct {
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Parameters  map[string]toolParam `json:"parameters"`
}

// toolCatalog enumerates the six webhook tools with their parameter
// schemas, used to configure the voice agent.
var toolCatalog = []toolSchema{
	{
		Name:        ToolAddNote,
		Description: "Add a new note",
		Parameters: map[string]toolParam{
			"title":   {Type: "string", Description: "Title of the note", Required: false},
			"content": {Type: "string", Description: "Content of the note", Required: true},
		},
	},
	{
		Name:        ToolAddReminder,
		Description: "Add a new reminder with optional date/time",
		Parameters: map[string]toolParam{
			"title":   {Type: "string", Description: "Title of the reminder", Required: false},
			"content": {Type: "string", Description: "Content of the reminder", Required: true},
			"date":    {Type: "string", Description: "Date for the reminder (YYYY-MM-DD format)", Required: false},
			"time":    {Type: "string", Description: "Time for the reminder (HH:MM format)", Required: false},
		},
	},
	{
		Name:        ToolModifyNote,
		Description: "Modify an existing note",
		Parameters: map[string]toolParam{
			"id":      {Type: "string", Description: "ID of the note to modify", Required: false},
			"title":   {Type: "string", Description: "New or existing title to find and modify the note", Required: false},
			"content": {Type: "string", Description: "New content for the note", Required: false},
		},
	},
	{
		Name:        ToolCompleteNote,
		Description: "Mark a note as completed or uncompleted",
		Parameters: map[string]toolParam{
			"id":        {Type: "string", Description: "ID of the note to complete", Required: false},
			"title":     {Type: "string", Description: "Title of the note to complete", Required: false},
			"completed": {Type: "boolean", Description: "Completion state to set", Required: true},
		},
	},
	{
		Name:        ToolDeleteNote,
		Description: "Delete a note or reminder",
		Parameters: map[string]toolParam{
			"id":    {Type: "string", Description: "ID of the note to delete", Required: false},
			"title": {Type: "string", Description: "Title of the note to delete", Required: false},
		},
	},
	{
		Name:        ToolGetNotes,
		Description: "Retrieve and analyze notes/reminders",
		Parameters: map[string]toolParam{
			"type":   {Type: "string", Description: `Type to retrieve: "notes", "reminders", or "all"`, Required: false},
			"search": {Type: "string", Description: "Search term to filter notes/reminders", Required: false},
		},
	},
}
