package db

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Session statuses.
const (
	StatusActive    = "active"
	StatusCompleted = "completed"
)

// Store provides access to the dictate history database.
type Store struct {
	db    *sql.DB
	clock func() time.Time
}

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	locale TEXT NOT NULL,
	engine TEXT NOT NULL,
	startedAt REAL NOT NULL,
	endedAt REAL,
	status TEXT NOT NULL DEFAULT 'active',
	createdAt REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS transcripts (
	id TEXT PRIMARY KEY,
	sessionId TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	text TEXT NOT NULL,
	language TEXT NOT NULL,
	engine TEXT NOT NULL,
	sequenceNumber INTEGER NOT NULL,
	createdAt REAL NOT NULL,
	UNIQUE(sessionId, sequenceNumber)
);

CREATE TABLE IF NOT EXISTS saves (
	id TEXT PRIMARY KEY,
	transcriptId TEXT REFERENCES transcripts(id) ON DELETE SET NULL,
	path TEXT NOT NULL,
	format TEXT NOT NULL,
	bytes INTEGER NOT NULL,
	createdAt REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transcripts_created ON transcripts(createdAt);
`

// Open opens or creates the database at path with WAL.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Verify connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s, err := newStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func newStore(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db, clock: time.Now}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// BeginSession records a new active session.
func (s *Store) BeginSession(locale, engine string) (*Session, error) {
	now := s.clock()
	sess := &Session{
		ID:        uuid.NewString(),
		Locale:    locale,
		Engine:    engine,
		StartedAt: now,
		Status:    StatusActive,
		CreatedAt: now,
	}
	_, err := s.db.Exec(`
		INSERT INTO sessions (id, locale, engine, startedAt, status, createdAt)
		VALUES (?, ?, ?, ?, ?, ?)
	`, sess.ID, sess.Locale, sess.Engine, unixFromTime(now), sess.Status, unixFromTime(now))
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	return sess, nil
}

// EndSession marks a session completed.
func (s *Store) EndSession(id string) error {
	res, err := s.db.Exec(`
		UPDATE sessions SET endedAt = ?, status = ?
		WHERE id = ? AND status = ?
	`, unixFromTime(s.clock()), StatusCompleted, id, StatusActive)
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("end session %s: not active", id)
	}
	return nil
}

// ArchiveTranscript appends a finished transcript to a session.
func (s *Store) ArchiveTranscript(sessionID, text, language, engine string) (*Transcript, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var seq int
	if err := tx.QueryRow(`
		SELECT COALESCE(MAX(sequenceNumber), 0) + 1 FROM transcripts WHERE sessionId = ?
	`, sessionID).Scan(&seq); err != nil {
		return nil, fmt.Errorf("next sequence: %w", err)
	}

	now := s.clock()
	tr := &Transcript{
		ID:             uuid.NewString(),
		SessionID:      sessionID,
		Text:           text,
		Language:       language,
		Engine:         engine,
		SequenceNumber: seq,
		CreatedAt:      now,
	}
	if _, err := tx.Exec(`
		INSERT INTO transcripts (id, sessionId, text, language, engine, sequenceNumber, createdAt)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, tr.ID, tr.SessionID, tr.Text, tr.Language, tr.Engine, tr.SequenceNumber, unixFromTime(now)); err != nil {
		return nil, fmt.Errorf("insert transcript: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return tr, nil
}

// RecordSave notes a file written by the transcript writer. transcriptID may
// be empty when the text was not archived.
func (s *Store) RecordSave(transcriptID, path, format string, bytes int64) (*Save, error) {
	now := s.clock()
	sv := &Save{
		ID:           uuid.NewString(),
		TranscriptID: transcriptID,
		Path:         path,
		Format:       format,
		Bytes:        bytes,
		CreatedAt:    now,
	}
	var tid sql.NullString
	if transcriptID != "" {
		tid = sql.NullString{String: transcriptID, Valid: true}
	}
	_, err := s.db.Exec(`
		INSERT INTO saves (id, transcriptId, path, format, bytes, createdAt)
		VALUES (?, ?, ?, ?, ?, ?)
	`, sv.ID, tid, sv.Path, sv.Format, sv.Bytes, unixFromTime(now))
	if err != nil {
		return nil, fmt.Errorf("insert save: %w", err)
	}
	return sv, nil
}

// RecentTranscripts returns up to limit transcripts, newest first.
func (s *Store) RecentTranscripts(limit int) ([]Transcript, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(`
		SELECT id, sessionId, text, language, engine, sequenceNumber, createdAt
		FROM transcripts
		ORDER BY createdAt DESC, sequenceNumber DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query transcripts: %w", err)
	}
	defer rows.Close()

	var out []Transcript
	for rows.Next() {
		var tr Transcript
		var createdAt float64
		if err := rows.Scan(&tr.ID, &tr.SessionID, &tr.Text, &tr.Language,
			&tr.Engine, &tr.SequenceNumber, &createdAt); err != nil {
			return nil, fmt.Errorf("scan transcript: %w", err)
		}
		tr.CreatedAt = timeFromUnix(createdAt)
		out = append(out, tr)
	}
	return out, rows.Err()
}

// SavesForTranscript returns the files written for a transcript, oldest first.
func (s *Store) SavesForTranscript(transcriptID string) ([]Save, error) {
	rows, err := s.db.Query(`
		SELECT id, transcriptId, path, format, bytes, createdAt
		FROM saves
		WHERE transcriptId = ?
		ORDER BY createdAt ASC
	`, transcriptID)
	if err != nil {
		return nil, fmt.Errorf("query saves: %w", err)
	}
	defer rows.Close()

	var saves []Save
	for rows.Next() {
		var sv Save
		var tid sql.NullString
		var createdAt float64
		if err := rows.Scan(&sv.ID, &tid, &sv.Path, &sv.Format, &sv.Bytes, &createdAt); err != nil {
			return nil, fmt.Errorf("scan save: %w", err)
		}
		sv.TranscriptID = tid.String
		sv.CreatedAt = timeFromUnix(createdAt)
		saves = append(saves, sv)
	}
	return saves, rows.Err()
}

// ActiveSession returns the most recent active session, if any.
func (s *Store) ActiveSession() (*Session, error) {
	return s.scanSession(s.db.QueryRow(`
		SELECT id, locale, engine, startedAt, endedAt, status, createdAt
		FROM sessions
		WHERE status = 'active'
		ORDER BY startedAt DESC
		LIMIT 1
	`))
}

// LatestSession returns the most recent session regardless of status.
func (s *Store) LatestSession() (*Session, error) {
	return s.scanSession(s.db.QueryRow(`
		SELECT id, locale, engine, startedAt, endedAt, status, createdAt
		FROM sessions
		ORDER BY startedAt DESC
		LIMIT 1
	`))
}

func (s *Store) scanSession(row *sql.Row) (*Session, error) {
	var sess Session
	var startedAt, createdAt float64
	var endedAt sql.NullFloat64

	if err := row.Scan(&sess.ID, &sess.Locale, &sess.Engine, &startedAt, &endedAt,
		&sess.Status, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}

	sess.StartedAt = timeFromUnix(startedAt)
	sess.CreatedAt = timeFromUnix(createdAt)
	if endedAt.Valid {
		t := timeFromUnix(endedAt.Float64)
		sess.EndedAt = &t
	}
	return &sess, nil
}

func timeFromUnix(ts float64) time.Time {
	sec := int64(ts)
	nsec := int64((ts - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}

func unixFromTime(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}
