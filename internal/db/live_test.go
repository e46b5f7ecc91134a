package db

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/dustin/go-humanize"
)

// TestLiveDatabase opens the real history database and lists recent
// transcripts. Skipped if the database doesn't exist.
func TestLiveDatabase(t *testing.T) {
	home, _ := os.UserHomeDir()
	dbPath := filepath.Join(home, ".dictate", "history.sqlite")
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Skip("database not found at", dbPath)
	}

	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	sess, err := store.LatestSession()
	if err != nil {
		t.Fatalf("LatestSession: %v", err)
	}
	if sess == nil {
		fmt.Println("No sessions in database")
		return
	}
	fmt.Printf("Latest session: id=%s locale=%s engine=%s status=%s started %s\n",
		sess.ID, sess.Locale, sess.Engine, sess.Status, humanize.Time(sess.StartedAt))

	recent, err := store.RecentTranscripts(5)
	if err != nil {
		t.Fatalf("RecentTranscripts: %v", err)
	}
	fmt.Printf("Recent transcripts: %d\n", len(recent))
	for i, tr := range recent {
		fmt.Printf("  %d. [%s] %s\n", i+1, humanize.Time(tr.CreatedAt), tr.Text)
	}
}
