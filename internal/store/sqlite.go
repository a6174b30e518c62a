package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/models"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS notes (
	id           TEXT PRIMARY KEY,
	user_id      TEXT NOT NULL,
	title        TEXT NOT NULL DEFAULT '',
	content      TEXT NOT NULL DEFAULT '',
	category     TEXT NOT NULL DEFAULT 'general',
	priority     TEXT NOT NULL DEFAULT 'medium',
	completed    INTEGER NOT NULL DEFAULT 0,
	completed_at DATETIME,
	created_at   DATETIME NOT NULL,
	updated_at   DATETIME,
	seq          INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS reminders (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	title      TEXT NOT NULL DEFAULT '',
	notes      TEXT NOT NULL DEFAULT '',
	date       DATETIME,
	category   TEXT NOT NULL DEFAULT 'general',
	priority   TEXT NOT NULL DEFAULT 'medium',
	created_at DATETIME NOT NULL,
	seq        INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS insert_seq (
	n INTEGER PRIMARY KEY AUTOINCREMENT
);

CREATE INDEX IF NOT EXISTS idx_notes_user ON notes(user_id);
CREATE INDEX IF NOT EXISTS idx_reminders_user ON reminders(user_id);
`

// SQLite is the durable store backend.
type SQLite struct {
	conn *sql.DB
}

var _ Store = (*SQLite)(nil)

// OpenSQLite opens (or creates) the database and applies the schema.
func OpenSQLite(dsn string) (*SQLite, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &SQLite{conn: conn}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.conn.Close()
}

// nextSeq allocates the next cross-table insertion sequence number within tx.
func nextSeq(tx *sql.Tx) (int64, error) {
	res, err := tx.Exec(`INSERT INTO insert_seq DEFAULT VALUES`)
	if err != nil {
		return 0, fmt.Errorf("store: alloc seq: %w", err)
	}
	return res.LastInsertId()
}

func (s *SQLite) InsertNote(ctx context.Context, n models.Note) (models.Note, error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return models.Note{}, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	seq, err := nextSeq(tx)
	if err != nil {
		return models.Note{}, err
	}

	n.ID = uuid.NewString()
	n.CreatedAt = time.Now().UTC()

	_, err = tx.Exec(`
		INSERT INTO notes (id, user_id, title, content, category, priority, completed, completed_at, created_at, updated_at, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, NULL, ?, NULL, ?)
	`, n.ID, n.UserID, n.Title, n.Content, n.Category, string(n.Priority), n.Completed, n.CreatedAt, seq)
	if err != nil {
		return models.Note{}, fmt.Errorf("store: insert note: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return models.Note{}, fmt.Errorf("store: commit: %w", err)
	}
	return n, nil
}

func (s *SQLite) InsertReminder(ctx context.Context, r models.Reminder) (models.Reminder, error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return models.Reminder{}, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	seq, err := nextSeq(tx)
	if err != nil {
		return models.Reminder{}, err
	}

	r.ID = uuid.NewString()
	r.CreatedAt = time.Now().UTC()

	_, err = tx.Exec(`
		INSERT INTO reminders (id, user_id, title, notes, date, category, priority, created_at, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.UserID, r.Title, r.Notes, nullTime(r.Date), r.Category, string(r.Priority), r.CreatedAt, seq)
	if err != nil {
		return models.Reminder{}, fmt.Errorf("store: insert reminder: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return models.Reminder{}, fmt.Errorf("store: commit: %w", err)
	}
	return r, nil
}

func (s *SQLite) ListNotes(ctx context.Context, userID string, f Filter) ([]models.Note, error) {
	where, args := noteFilterSQL(userID, f)
	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, user_id, title, content, category, priority, completed, completed_at, created_at, updated_at
		FROM notes `+where+`
		ORDER BY created_at DESC, seq DESC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list notes: %w", err)
	}
	defer rows.Close()

	var out []models.Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *SQLite) ListReminders(ctx context.Context, userID string, f Filter) ([]models.Reminder, error) {
	where, args := reminderFilterSQL(userID, f)
	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, user_id, title, notes, date, category, priority, created_at
		FROM reminders `+where+`
		ORDER BY date IS NULL, date ASC, seq ASC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list reminders: %w", err)
	}
	defer rows.Close()

	var out []models.Reminder
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLite) UpdateNote(ctx context.Context, userID, id string, p NotePatch) (models.Note, error) {
	var sets []string
	var args []any
	now := time.Now().UTC()

	if p.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *p.Title)
	}
	if p.Content != nil {
		sets = append(sets, "content = ?")
		args = append(args, *p.Content)
	}
	if p.Title != nil || p.Content != nil {
		sets = append(sets, "updated_at = ?")
		args = append(args, now)
	}
	if p.Completed != nil {
		sets = append(sets, "completed = ?")
		args = append(args, *p.Completed)
		if *p.Completed {
			sets = append(sets, "completed_at = ?")
			args = append(args, now)
		} else {
			sets = append(sets, "completed_at = NULL")
		}
	}
	if len(sets) == 0 {
		return s.getNote(ctx, userID, id)
	}

	args = append(args, userID, id)
	res, err := s.conn.ExecContext(ctx,
		`UPDATE notes SET `+strings.Join(sets, ", ")+` WHERE user_id = ? AND id = ?`, args...)
	if err != nil {
		return models.Note{}, fmt.Errorf("store: update note: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.Note{}, apperr.ErrNotFound
	}
	return s.getNote(ctx, userID, id)
}

func (s *SQLite) DeleteNote(ctx context.Context, userID, id string) (models.Note, error) {
	n, err := s.getNote(ctx, userID, id)
	if err != nil {
		return models.Note{}, err
	}
	if _, err := s.conn.ExecContext(ctx,
		`DELETE FROM notes WHERE user_id = ? AND id = ?`, userID, id); err != nil {
		return models.Note{}, fmt.Errorf("store: delete note: %w", err)
	}
	return n, nil
}

func (s *SQLite) DeleteReminder(ctx context.Context, userID, id string) (models.Reminder, error) {
	row := s.conn.QueryRowContext(ctx, `
		SELECT id, user_id, title, notes, date, category, priority, created_at
		FROM reminders WHERE user_id = ? AND id = ?
	`, userID, id)
	r, err := scanReminder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Reminder{}, apperr.ErrNotFound
		}
		return models.Reminder{}, err
	}
	if _, err := s.conn.ExecContext(ctx,
		`DELETE FROM reminders WHERE user_id = ? AND id = ?`, userID, id); err != nil {
		return models.Reminder{}, fmt.Errorf("store: delete reminder: %w", err)
	}
	return r, nil
}

func (s *SQLite) CountNotes(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notes WHERE user_id = ?`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("store: count notes: %w", err)
	}
	return n, nil
}

func (s *SQLite) CountReminders(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reminders WHERE user_id = ?`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("store: count reminders: %w", err)
	}
	return n, nil
}

func (s *SQLite) DeleteAll(ctx context.Context, userID string) (int, error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	total := 0
	for _, table := range []string{"notes", "reminders"} {
		res, err := tx.Exec(`DELETE FROM `+table+` WHERE user_id = ?`, userID)
		if err != nil {
			return 0, fmt.Errorf("store: clear %s: %w", table, err)
		}
		n, _ := res.RowsAffected()
		total += int(n)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("store: commit: %w", err)
	}
	return total, nil
}

func (s *SQLite) LastInserted(ctx context.Context, userID string) (*LastItem, error) {
	var (
		noteID, remID   string
		noteSeq, remSeq int64
	)
	noteErr := s.conn.QueryRowContext(ctx,
		`SELECT id, seq FROM notes WHERE user_id = ? ORDER BY seq DESC LIMIT 1`, userID).
		Scan(&noteID, &noteSeq)
	remErr := s.conn.QueryRowContext(ctx,
		`SELECT id, seq FROM reminders WHERE user_id = ? ORDER BY seq DESC LIMIT 1`, userID).
		Scan(&remID, &remSeq)

	switch {
	case noteErr != nil && remErr != nil:
		if errors.Is(noteErr, sql.ErrNoRows) && errors.Is(remErr, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: last inserted: %w", noteErr)
	case remErr != nil || (noteErr == nil && noteSeq > remSeq):
		n, err := s.getNote(ctx, userID, noteID)
		if err != nil {
			return nil, err
		}
		return &LastItem{Kind: models.KindNote, Note: &n}, nil
	default:
		row := s.conn.QueryRowContext(ctx, `
			SELECT id, user_id, title, notes, date, category, priority, created_at
			FROM reminders WHERE user_id = ? AND id = ?
		`, userID, remID)
		r, err := scanReminder(row)
		if err != nil {
			return nil, err
		}
		return &LastItem{Kind: models.KindReminder, Reminder: &r}, nil
	}
}

func (s *SQLite) getNote(ctx context.Context, userID, id string) (models.Note, error) {
	row := s.conn.QueryRowContext(ctx, `
		SELECT id, user_id, title, content, category, priority, completed, completed_at, created_at, updated_at
		FROM notes WHERE user_id = ? AND id = ?
	`, userID, id)
	n, err := scanNote(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Note{}, apperr.ErrNotFound
		}
		return models.Note{}, err
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanNote(row scanner) (models.Note, error) {
	var (
		n           models.Note
		priority    string
		completedAt sql.NullTime
		updatedAt   sql.NullTime
	)
	err := row.Scan(&n.ID, &n.UserID, &n.Title, &n.Content, &n.Category, &priority,
		&n.Completed, &completedAt, &n.CreatedAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Note{}, err
		}
		return models.Note{}, fmt.Errorf("store: scan note: %w", err)
	}
	n.Priority = models.Priority(priority)
	if completedAt.Valid {
		t := completedAt.Time
		n.CompletedAt = &t
	}
	if updatedAt.Valid {
		t := updatedAt.Time
		n.UpdatedAt = &t
	}
	return n, nil
}

func scanReminder(row scanner) (models.Reminder, error) {
	var (
		r        models.Reminder
		priority string
		date     sql.NullTime
	)
	err := row.Scan(&r.ID, &r.UserID, &r.Title, &r.Notes, &date, &r.Category, &priority, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Reminder{}, err
		}
		return models.Reminder{}, fmt.Errorf("store: scan reminder: %w", err)
	}
	r.Priority = models.Priority(priority)
	if date.Valid {
		t := date.Time
		r.Date = &t
	}
	return r, nil
}

func noteFilterSQL(userID string, f Filter) (string, []any) {
	clauses := []string{"user_id = ?"}
	args := []any{userID}
	if f.ID != "" {
		clauses = append(clauses, "id = ?")
		args = append(args, f.ID)
	}
	if f.Title != "" {
		if f.TitleExact {
			clauses = append(clauses, "title = ?")
			args = append(args, f.Title)
		} else {
			clauses = append(clauses, "title LIKE '%' || ? || '%'")
			args = append(args, f.Title)
		}
	}
	if f.Search != "" {
		clauses = append(clauses, "(title LIKE '%' || ? || '%' OR content LIKE '%' || ? || '%')")
		args = append(args, f.Search, f.Search)
	}
	return "WHERE " + strings.Join(clauses, " AND "), args
}

func reminderFilterSQL(userID string, f Filter) (string, []any) {
	clauses := []string{"user_id = ?"}
	args := []any{userID}
	if f.ID != "" {
		clauses = append(clauses, "id = ?")
		args = append(args, f.ID)
	}
	if f.Title != "" {
		if f.TitleExact {
			clauses = append(clauses, "title = ?")
			args = append(args, f.Title)
		} else {
			clauses = append(clauses, "title LIKE '%' || ? || '%'")
			args = append(args, f.Title)
		}
	}
	if f.Search != "" {
		clauses = append(clauses, "(title LIKE '%' || ? || '%' OR notes LIKE '%' || ? || '%')")
		args = append(args, f.Search, f.Search)
	}
	return "WHERE " + strings.Join(clauses, " AND "), args
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
