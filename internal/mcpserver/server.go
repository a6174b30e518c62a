// Package mcpserver exposes the note/reminder tools over MCP (Model
// Context Protocol) stdio transport, for agents that call tools via MCP
// instead of HTTP webhooks.
package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/ansuz/internal/executor"
)

// Server wraps the MCP server with the Ansuz tools.
type Server struct {
	mcp  *server.MCPServer
	exec *executor.Executor
}

// New creates a new MCP server with all six tools registered.
func New(exec *executor.Executor) *Server {
	s := &Server{exec: exec}

	s.mcp = server.NewMCPServer(
		"Ansuz",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("add_note",
		mcp.WithDescription("Add a new note."),
		mcp.WithString("title", mcp.Description("Title of the note")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Content of the note")),
	), s.addNote)

	s.mcp.AddTool(mcp.NewTool("add_reminder",
		mcp.WithDescription("Add a new reminder with an optional due date and time."),
		mcp.WithString("title", mcp.Description("Title of the reminder")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Content of the reminder")),
		mcp.WithString("date", mcp.Description("Date for the reminder (YYYY-MM-DD)")),
		mcp.WithString("time", mcp.Description("Time for the reminder (HH:MM)")),
	), s.addReminder)

	s.mcp.AddTool(mcp.NewTool("modify_note",
		mcp.WithDescription("Modify an existing note, found by id or title."),
		mcp.WithString("id", mcp.Description("ID of the note to modify")),
		mcp.WithString("title", mcp.Description("New or existing title to find and modify the note")),
		mcp.WithString("content", mcp.Description("New content for the note")),
	), s.modifyNote)

	s.mcp.AddTool(mcp.NewTool("complete_note",
		mcp.WithDescription("Mark a note as completed or uncompleted."),
		mcp.WithString("id", mcp.Description("ID of the note")),
		mcp.WithString("title", mcp.Description("Title of the note")),
		mcp.WithBoolean("completed", mcp.Required(), mcp.Description("Completion state to set")),
	), s.completeNote)

	s.mcp.AddTool(mcp.NewTool("delete_note",
		mcp.WithDescription("Delete a note or reminder, found by id or title."),
		mcp.WithString("id", mcp.Description("ID of the record to delete")),
		mcp.WithString("title", mcp.Description("Title of the record to delete")),
	), s.deleteNote)

	s.mcp.AddTool(mcp.NewTool("get_notes",
		mcp.WithDescription("Retrieve notes and reminders, optionally filtered."),
		mcp.WithString("type", mcp.Description(`"notes", "reminders", or "all"`)),
		mcp.WithString("search", mcp.Description("Substring to filter by")),
	), s.getNotes)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// optString reads an optional string argument.
func optString(req mcp.CallToolRequest, key string) string {
	if v, err := req.RequireString(key); err == nil {
		return v
	}
	return ""
}

func (s *Server) addNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.exec.AddNote(ctx, optString(req, "title"), content)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(res.Message), nil
}

func (s *Server) addReminder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.exec.AddReminder(ctx, optString(req, "title"), content, optString(req, "date"), optString(req, "time"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(res.Message), nil
}

func (s *Server) modifyNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := s.exec.ModifyNote(ctx, optString(req, "id"), optString(req, "title"), optString(req, "content"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(res.Message), nil
}

func (s *Server) completeNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	completed, err := req.RequireBool("completed")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.exec.CompleteNote(ctx, optString(req, "id"), optString(req, "title"), completed)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(res.Message), nil
}

func (s *Server) deleteNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := s.exec.DeleteNote(ctx, optString(req, "id"), optString(req, "title"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(res.Message), nil
}

func (s *Server) getNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := s.exec.GetNotes(ctx, optString(req, "type"), optString(req, "search"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(res.Body, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}
