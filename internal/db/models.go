// Package db archives dictation sessions, transcripts and saved files in
// SQLite so they outlive the process.
package db

import "time"

// Session represents one run of the recorder.
type Session struct {
	ID        string
	Locale    string
	Engine    string
	StartedAt time.Time
	EndedAt   *time.Time
	Status    string
	CreatedAt time.Time
}

// Transcript is a finished recording, archived when it was stopped.
type Transcript struct {
	ID             string
	SessionID      string
	Text           string
	Language       string
	Engine         string
	SequenceNumber int
	CreatedAt      time.Time
}

// Save records a transcript file written to disk.
type Save struct {
	ID           string
	TranscriptID string
	Path         string
	Format       string
	Bytes        int64
	CreatedAt    time.Time
}
