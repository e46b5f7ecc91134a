// Package control lets other processes drive a running recorder over a Unix
// socket using NDJSON.
package control

// Command names.
const (
	CmdStart     = "start"
	CmdStop      = "stop"
	CmdPause     = "pause"
	CmdSave      = "save"
	CmdStatus    = "status"
	CmdSubscribe = "subscribe"
)

// Event names.
const (
	EventState    = "state"
	EventFragment = "fragment"
	EventSaved    = "saved"
	EventError    = "error"
)

// Command is sent from a client to the recorder.
type Command struct {
	Cmd string `json:"cmd"`
	// Format overrides the save format for a save command.
	Format string `json:"format,omitempty"`
	// History selects the n-th visible history entry, numbered from 1 as
	// the UI shows them, for a save command instead of the current transcript.
	History *int `json:"history,omitempty"`
}

// Response is returned after processing a command.
type Response struct {
	OK         bool   `json:"ok"`
	Status     string `json:"status,omitempty"`
	Recording  *bool  `json:"recording,omitempty"`
	Paused     *bool  `json:"paused,omitempty"`
	Transcript string `json:"transcript,omitempty"`
	History    *int   `json:"history,omitempty"`
	Language   string `json:"language,omitempty"`
	Engine     string `json:"engine,omitempty"`
	Path       string `json:"path,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Event is streamed to subscribed clients.
type Event struct {
	Event     string `json:"event"`
	Status    string `json:"status,omitempty"`
	Text      string `json:"text,omitempty"`
	Path      string `json:"path,omitempty"`
	Message   string `json:"message,omitempty"`
	Transient *bool  `json:"transient,omitempty"`
}

// Fail builds a failed response from err.
func Fail(err error) Response { return Response{OK: false, Error: err.Error()} }

// BoolPtr returns a pointer to a bool value. Convenience for building responses.
func BoolPtr(b bool) *bool { return &b }

// IntPtr returns a pointer to an int value.
func IntPtr(i int) *int { return &i }
