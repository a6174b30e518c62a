package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/starford/ansuz/internal/executor"
	"github.com/starford/ansuz/internal/intent"
	"github.com/starford/ansuz/internal/sse"
	"github.com/starford/ansuz/internal/store"
	"github.com/starford/ansuz/internal/voice"
)

const testUserID = "00000000-0000-0000-0000-000000000001"

// testEnv wires a memory store, executor, interpreter and broker behind
// the full router.
func testEnv(t *testing.T) (store.Store, http.Handler) {
	t.Helper()

	st := store.NewMemory()
	broker := sse.NewBroker()
	t.Cleanup(broker.Close)

	courier := voice.NewSSECourier(broker)
	exec := executor.New(st, testUserID, courier)
	src := intent.NewSource(intent.New(intent.DefaultVocabulary()))

	h := NewHandler(exec, st, testUserID, src, broker, courier)
	return st, NewRouter(h, broker)
}

func postJSON(t *testing.T, router http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v (body = %s)", err, w.Body.String())
	}
	return resp
}

func TestHealth(t *testing.T) {
	_, router := testEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("health = %d", w.Code)
	}
	resp := decode(t, w)
	if resp["status"] != "ok" {
		t.Errorf("status = %v", resp["status"])
	}
	endpoints := resp["endpoints"].(map[string]any)
	if endpoints["webhook"] != "/webhook" {
		t.Errorf("endpoints = %v", endpoints)
	}
}

func TestToolsCatalog(t *testing.T) {
	_, router := testEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/tools", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("tools = %d", w.Code)
	}
	resp := decode(t, w)
	tools := resp["tools"].([]any)
	if len(tools) != 6 {
		t.Fatalf("len(tools) = %d, want 6", len(tools))
	}
	first := tools[0].(map[string]any)
	if first["name"] != ToolAddNote {
		t.Errorf("first tool = %v", first["name"])
	}
}

func TestWebhook_AddNote(t *testing.T) {
	_, router := testEnv(t)

	w := postJSON(t, router, "/webhook", map[string]any{
		"tool_name": "add_note",
		"title":     "Groceries",
		"content":   "buy milk",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("webhook = %d, body = %s", w.Code, w.Body.String())
	}
	resp := decode(t, w)
	if resp["message"] != `I've added your note titled "Groceries". You now have 1 notes.` {
		t.Errorf("message = %v", resp["message"])
	}
}

func TestWebhook_AddReminderWithSchedule(t *testing.T) {
	_, router := testEnv(t)

	w := postJSON(t, router, "/webhook", map[string]any{
		"tool_name": "add_reminder",
		"title":     "Dentist",
		"content":   "checkup",
		"date":      "2026-09-15",
		"time":      "14:30",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("webhook = %d, body = %s", w.Code, w.Body.String())
	}
	resp := decode(t, w)
	want := `I've added your reminder "Dentist". It's scheduled for 2026-09-15 at 14:30. You now have 1 reminders.`
	if resp["message"] != want {
		t.Errorf("message = %v", resp["message"])
	}
}

func TestWebhook_InvalidToolName(t *testing.T) {
	_, router := testEnv(t)

	w := postJSON(t, router, "/webhook", map[string]any{"tool_name": "launch_rocket"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown tool = %d, want 400", w.Code)
	}

	w = postJSON(t, router, "/webhook", map[string]any{"content": "no tool"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing tool = %d, want 400", w.Code)
	}
}

func TestWebhook_InvalidJSON(t *testing.T) {
	_, router := testEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader([]byte("{nope")))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad json = %d, want 400", w.Code)
	}
}

func TestWebhook_CompleteAndDelete(t *testing.T) {
	_, router := testEnv(t)

	postJSON(t, router, "/webhook", map[string]any{
		"tool_name": "add_note", "title": "Chore", "content": "laundry",
	})

	// completed arrives as a string from the agent platform.
	w := postJSON(t, router, "/webhook", map[string]any{
		"tool_name": "complete_note", "title": "chore", "completed": "true",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("complete = %d, body = %s", w.Code, w.Body.String())
	}
	resp := decode(t, w)
	if resp["message"] != `I've marked the note "Chore" as completed.` {
		t.Errorf("message = %v", resp["message"])
	}

	w = postJSON(t, router, "/webhook", map[string]any{
		"tool_name": "delete_note", "title": "chore",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("delete = %d, body = %s", w.Code, w.Body.String())
	}

	w = postJSON(t, router, "/webhook", map[string]any{
		"tool_name": "delete_note", "title": "chore",
	})
	if w.Code != http.StatusNotFound {
		t.Errorf("delete missing = %d, want 404", w.Code)
	}
}

func TestWebhook_ModifyValidation(t *testing.T) {
	_, router := testEnv(t)

	w := postJSON(t, router, "/webhook", map[string]any{
		"tool_name": "modify_note", "content": "new text",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("modify without target = %d, want 400", w.Code)
	}
}

func TestWebhook_GetNotes(t *testing.T) {
	_, router := testEnv(t)

	postJSON(t, router, "/webhook", map[string]any{
		"tool_name": "add_note", "title": "Groceries", "content": "buy milk",
	})
	postJSON(t, router, "/webhook", map[string]any{
		"tool_name": "add_reminder", "title": "Dentist", "content": "checkup",
	})

	w := postJSON(t, router, "/webhook", map[string]any{
		"tool_name": "get_notes", "type": "all",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("get_notes = %d, body = %s", w.Code, w.Body.String())
	}
	resp := decode(t, w)
	if resp["total"] != float64(2) {
		t.Errorf("total = %v", resp["total"])
	}
	notes := resp["notes"].([]any)
	if len(notes) != 1 {
		t.Errorf("notes = %v", notes)
	}

	w = postJSON(t, router, "/webhook", map[string]any{
		"tool_name": "get_notes", "type": "notes", "search": "milk",
	})
	resp = decode(t, w)
	if resp["total"] != float64(1) {
		t.Errorf("search total = %v", resp["total"])
	}
}

func TestProcess_MatchedTranscript(t *testing.T) {
	_, router := testEnv(t)

	w := postJSON(t, router, "/api/process", map[string]any{
		"user_input": "add a note: buy milk",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("process = %d, body = %s", w.Code, w.Body.String())
	}
	resp := decode(t, w)
	if resp["response"] != `I've added your note: "buy milk". You now have 1 notes.` {
		t.Errorf("response = %v", resp["response"])
	}
	action := resp["action"].(map[string]any)
	if action["type"] != "add_note" {
		t.Errorf("action = %v", action)
	}
	notes := resp["notes"].([]any)
	if len(notes) != 1 {
		t.Errorf("notes = %v", notes)
	}
}

func TestProcess_UnmatchedTranscript(t *testing.T) {
	st, router := testEnv(t)

	w := postJSON(t, router, "/api/process", map[string]any{
		"user_input": "what's the weather like today",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("process = %d", w.Code)
	}
	resp := decode(t, w)
	if resp["response"] != nil {
		t.Errorf("response = %v, want null", resp["response"])
	}
	if resp["action"] != nil {
		t.Errorf("action = %v, want null", resp["action"])
	}
	if n, _ := st.CountNotes(context.Background(), testUserID); n != 0 {
		t.Errorf("unmatched input must not mutate: %d notes", n)
	}
}

func TestProcess_MissingInput(t *testing.T) {
	_, router := testEnv(t)

	w := postJSON(t, router, "/api/process", map[string]any{"session_id": "s1"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing input = %d, want 400", w.Code)
	}
}

func TestProcess_Clarification(t *testing.T) {
	_, router := testEnv(t)

	w := postJSON(t, router, "/api/process", map[string]any{"user_input": "add a note"})
	if w.Code != http.StatusOK {
		t.Fatalf("process = %d", w.Code)
	}
	resp := decode(t, w)
	if resp["response"] != "What would you like noted?" {
		t.Errorf("response = %v", resp["response"])
	}
	if resp["action"] != nil {
		t.Errorf("clarification action = %v, want null", resp["action"])
	}
}

func TestCreateSession(t *testing.T) {
	_, router := testEnv(t)

	w := postJSON(t, router, "/api/session", map[string]any{"agent_id": "agent-1"})
	if w.Code != http.StatusOK {
		t.Fatalf("session = %d", w.Code)
	}
	resp := decode(t, w)
	if resp["session_id"] == "" || resp["session_id"] == nil {
		t.Errorf("session_id = %v", resp["session_id"])
	}
}

func TestRESTListEndpoints(t *testing.T) {
	_, router := testEnv(t)

	// Empty collections come back as [] rather than null.
	req := httptest.NewRequest(http.MethodGet, "/api/notes", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("list notes = %d", w.Code)
	}
	resp := decode(t, w)
	if resp["success"] != true {
		t.Errorf("success = %v", resp["success"])
	}
	if data, ok := resp["data"].([]any); !ok || data == nil {
		t.Errorf("data = %v, want empty array", resp["data"])
	}

	postJSON(t, router, "/webhook", map[string]any{
		"tool_name": "add_note", "title": "A", "content": "x",
	})
	postJSON(t, router, "/webhook", map[string]any{
		"tool_name": "add_reminder", "title": "B", "content": "y",
	})

	req = httptest.NewRequest(http.MethodGet, "/api/notes-and-reminders", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("list all = %d", w.Code)
	}
	resp = decode(t, w)
	data := resp["data"].(map[string]any)
	if data["total"] != float64(2) {
		t.Errorf("total = %v", data["total"])
	}

	req = httptest.NewRequest(http.MethodGet, "/api/reminders", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	resp = decode(t, w)
	reminders := resp["data"].([]any)
	if len(reminders) != 1 {
		t.Errorf("reminders = %v", reminders)
	}
}

func TestRESTCompleteAndDeleteNote(t *testing.T) {
	st, router := testEnv(t)

	postJSON(t, router, "/webhook", map[string]any{
		"tool_name": "add_note", "title": "Chore", "content": "laundry",
	})
	notes, err := st.ListNotes(context.Background(), testUserID, store.Filter{})
	if err != nil || len(notes) != 1 {
		t.Fatalf("seed note: %v, %v", notes, err)
	}
	id := notes[0].ID

	body, _ := json.Marshal(map[string]bool{"completed": true})
	req := httptest.NewRequest(http.MethodPatch, "/api/notes/"+id+"/complete", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("complete = %d, body = %s", w.Code, w.Body.String())
	}
	resp := decode(t, w)
	if resp["message"] != "Note completed successfully" {
		t.Errorf("message = %v", resp["message"])
	}
	note := resp["data"].(map[string]any)
	if note["completed"] != true || note["completed_at"] == nil {
		t.Errorf("note = %v", note)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/notes/"+id, nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("delete = %d", w.Code)
	}
	resp = decode(t, w)
	if resp["message"] != "Note deleted successfully" {
		t.Errorf("message = %v", resp["message"])
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/notes/"+id, nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", w.Code)
	}
}

func TestRESTDeleteReminder(t *testing.T) {
	st, router := testEnv(t)

	postJSON(t, router, "/webhook", map[string]any{
		"tool_name": "add_reminder", "title": "Dentist", "content": "checkup",
	})
	rems, err := st.ListReminders(context.Background(), testUserID, store.Filter{})
	if err != nil || len(rems) != 1 {
		t.Fatalf("seed reminder: %v, %v", rems, err)
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/reminders/"+rems[0].ID, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("delete reminder = %d", w.Code)
	}
	resp := decode(t, w)
	if resp["message"] != "Reminder deleted successfully" {
		t.Errorf("message = %v", resp["message"])
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/reminders/"+rems[0].ID, nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", w.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	_, router := testEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/webhook", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Errorf("preflight = %d, want 204", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("allow origin = %q", got)
	}
}

func TestToolRequestCoercion(t *testing.T) {
	var req toolRequest
	if err := json.Unmarshal([]byte(`{"tool_name":"complete_note","id":42,"completed":"1"}`), &req); err != nil {
		t.Fatal(err)
	}
	if req.id() != "42" {
		t.Errorf("id = %q, want 42", req.id())
	}
	if !req.completed() {
		t.Error("completed should coerce to true")
	}

	if err := json.Unmarshal([]byte(`{"tool_name":"complete_note","id":"abc","completed":false}`), &req); err != nil {
		t.Fatal(err)
	}
	if req.id() != "abc" {
		t.Errorf("id = %q", req.id())
	}
	if req.completed() {
		t.Error("completed should be false")
	}
}
