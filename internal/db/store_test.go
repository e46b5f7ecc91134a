package db

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

// createTestStore creates an in-memory store with a clock that advances one
// second per call.
func createTestStore(t *testing.T) *Store {
	t.Helper()

	rawDB, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	// each connection would get its own :memory: database
	rawDB.SetMaxOpenConns(1)
	t.Cleanup(func() { rawDB.Close() })

	store, err := newStore(rawDB)
	if err != nil {
		t.Fatalf("newStore: %v", err)
	}
	now := time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)
	store.clock = func() time.Time {
		now = now.Add(time.Second)
		return now
	}
	return store
}

func TestBeginAndEndSession(t *testing.T) {
	store := createTestStore(t)

	sess, err := store.BeginSession("en-US", "cloud")
	if err != nil {
		t.Fatalf("BeginSession: %v", err)
	}
	if sess.ID == "" || sess.Status != StatusActive {
		t.Errorf("session = %+v", sess)
	}

	active, err := store.ActiveSession()
	if err != nil {
		t.Fatalf("ActiveSession: %v", err)
	}
	if active == nil || active.ID != sess.ID {
		t.Fatalf("active = %+v, want %s", active, sess.ID)
	}
	if active.Engine != "cloud" || active.Locale != "en-US" {
		t.Errorf("active = %+v", active)
	}

	if err := store.EndSession(sess.ID); err != nil {
		t.Fatalf("EndSession: %v", err)
	}
	if err := store.EndSession(sess.ID); err == nil {
		t.Error("ending a completed session should fail")
	}

	active, err = store.ActiveSession()
	if err != nil {
		t.Fatalf("ActiveSession: %v", err)
	}
	if active != nil {
		t.Errorf("expected nil, got session %q", active.ID)
	}

	latest, err := store.LatestSession()
	if err != nil {
		t.Fatalf("LatestSession: %v", err)
	}
	if latest == nil || latest.Status != StatusCompleted || latest.EndedAt == nil {
		t.Fatalf("latest = %+v", latest)
	}
	if !latest.EndedAt.After(latest.StartedAt) {
		t.Errorf("endedAt %v not after startedAt %v", latest.EndedAt, latest.StartedAt)
	}
}

func TestLatestSessionEmpty(t *testing.T) {
	store := createTestStore(t)

	sess, err := store.LatestSession()
	if err != nil {
		t.Fatalf("LatestSession: %v", err)
	}
	if sess != nil {
		t.Errorf("expected nil, got %+v", sess)
	}
}

func TestArchiveTranscript(t *testing.T) {
	store := createTestStore(t)
	sess, _ := store.BeginSession("fr-FR", "offline")

	first, err := store.ArchiveTranscript(sess.ID, " bonjour", "fr-FR", "offline")
	if err != nil {
		t.Fatalf("ArchiveTranscript: %v", err)
	}
	second, err := store.ArchiveTranscript(sess.ID, " au revoir", "fr-FR", "offline")
	if err != nil {
		t.Fatalf("ArchiveTranscript: %v", err)
	}
	if first.SequenceNumber != 1 || second.SequenceNumber != 2 {
		t.Errorf("sequence = %d, %d, want 1, 2", first.SequenceNumber, second.SequenceNumber)
	}

	recent, err := store.RecentTranscripts(10)
	if err != nil {
		t.Fatalf("RecentTranscripts: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("got %d transcripts, want 2", len(recent))
	}
	if recent[0].Text != " au revoir" || recent[1].Text != " bonjour" {
		t.Errorf("order = %q, %q, want newest first", recent[0].Text, recent[1].Text)
	}
	if recent[0].SessionID != sess.ID || recent[0].Language != "fr-FR" {
		t.Errorf("recent[0] = %+v", recent[0])
	}

	limited, _ := store.RecentTranscripts(1)
	if len(limited) != 1 {
		t.Errorf("limit 1 returned %d", len(limited))
	}
	all, _ := store.RecentTranscripts(0)
	if len(all) != 2 {
		t.Errorf("limit 0 returned %d, want all", len(all))
	}
}

func TestArchiveTranscriptUnknownSession(t *testing.T) {
	store := createTestStore(t)
	if _, err := store.db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("pragma: %v", err)
	}
	if _, err := store.ArchiveTranscript("missing", "text", "en-US", "cloud"); err == nil {
		t.Error("expected foreign key error")
	}
}

func TestRecordSave(t *testing.T) {
	store := createTestStore(t)
	sess, _ := store.BeginSession("en-US", "cloud")
	tr, _ := store.ArchiveTranscript(sess.ID, " hello", "en-US", "cloud")

	if _, err := store.RecordSave(tr.ID, "transcripts/transcript_20240305_143001.txt", "txt", 42); err != nil {
		t.Fatalf("RecordSave: %v", err)
	}
	if _, err := store.RecordSave(tr.ID, "transcripts/transcript_20240305_143002.json", "json", 64); err != nil {
		t.Fatalf("RecordSave: %v", err)
	}
	if _, err := store.RecordSave("", "transcripts/loose.csv", "csv", 10); err != nil {
		t.Fatalf("RecordSave without transcript: %v", err)
	}

	saves, err := store.SavesForTranscript(tr.ID)
	if err != nil {
		t.Fatalf("SavesForTranscript: %v", err)
	}
	if len(saves) != 2 {
		t.Fatalf("got %d saves, want 2", len(saves))
	}
	if saves[0].Format != "txt" || saves[1].Format != "json" || saves[1].Bytes != 64 {
		t.Errorf("saves = %+v", saves)
	}
	if saves[0].TranscriptID != tr.ID {
		t.Errorf("transcript id = %q", saves[0].TranscriptID)
	}
}

func TestOpenCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.sqlite")

	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	sess, err := store.BeginSession("en-US", "cloud")
	if err != nil {
		t.Fatalf("BeginSession: %v", err)
	}
	if _, err := store.ArchiveTranscript(sess.ID, " persisted", "en-US", "cloud"); err != nil {
		t.Fatalf("ArchiveTranscript: %v", err)
	}
	store.Close()

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	recent, err := reopened.RecentTranscripts(5)
	if err != nil {
		t.Fatalf("RecentTranscripts: %v", err)
	}
	if len(recent) != 1 || recent[0].Text != " persisted" {
		t.Errorf("recent = %+v", recent)
	}
}

func TestTimeRoundTrip(t *testing.T) {
	want := time.Date(2024, 3, 5, 14, 30, 1, 500_000_000, time.UTC)
	got := timeFromUnix(unixFromTime(want))
	if d := got.Sub(want); d > time.Millisecond || d < -time.Millisecond {
		t.Errorf("round trip drift %v", d)
	}
}
