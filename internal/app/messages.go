package app

import (
	"github.com/jwulff/dictate/internal/control"
	"github.com/jwulff/dictate/internal/recognize"
)

// TickResultMsg carries the outcome of one listen-and-recognize call.
type TickResultMsg struct {
	Epoch  int
	Result recognize.Result
}

// RetryTickMsg fires when the backoff after a failed tick has elapsed.
type RetryTickMsg struct {
	Epoch int
}

// SavedMsg reports a finished save.
type SavedMsg struct {
	Label        string
	Path         string
	Format       string
	Bytes        int64
	TranscriptID string
	Err          error
	// Reply is set when the save was requested over the control socket.
	Reply chan<- control.Response
}

// ArchivedMsg reports a history entry written to the database.
type ArchivedMsg struct {
	Index int
	ID    string
	Err   error
}

// SaveRecordedMsg reports a save noted in the database.
type SaveRecordedMsg struct {
	Err error
}

// CopiedMsg reports the saved file copied to the clipboard.
type CopiedMsg struct {
	Path string
	Err  error
}

// ControlMsg carries a command from the control socket. The reply channel
// must be buffered.
type ControlMsg struct {
	Command control.Command
	Reply   chan<- control.Response
}

// ClearTransientErrorMsg clears a transient error after a timeout.
type ClearTransientErrorMsg struct{}
