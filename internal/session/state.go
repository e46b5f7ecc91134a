// Package session holds the recording state machine.
//
// State moves Idle -> Recording <-> Paused -> Idle through Apply, a pure
// function; callers own the loop that feeds it events.
package session

// State is one user's recording session.
type State struct {
	Recording bool
	Paused    bool
	// Current accumulates fragments of the active or just-stopped recording.
	Current string
	// History holds finished transcripts, oldest first.
	History []string
	// Epoch increments on every Start so late fragments can be dropped.
	Epoch int
}

// Event is an input to Apply.
type Event interface{ isEvent() }

// Start begins a new recording.
type Start struct{}

// Stop ends the recording and archives a non-empty transcript.
type Stop struct{}

// PauseToggle pauses or resumes an active recording.
type PauseToggle struct{}

// Fragment is recognized text for the recording identified by Epoch.
type Fragment struct {
	Epoch int
	Text  string
}

func (Start) isEvent()       {}
func (Stop) isEvent()        {}
func (PauseToggle) isEvent() {}
func (Fragment) isEvent()    {}

// Apply returns the state after ev. Events that do not apply in the current
// state leave it unchanged.
func Apply(s State, ev Event) State {
	switch ev := ev.(type) {
	case Start:
		if s.Recording {
			return s
		}
		s.Recording = true
		s.Paused = false
		s.Current = ""
		s.Epoch++

	case Stop:
		if !s.Recording {
			return s
		}
		if s.Current != "" {
			s.History = append(s.History[:len(s.History):len(s.History)], s.Current)
		}
		s.Recording = false
		s.Paused = false

	case PauseToggle:
		if !s.Recording {
			return s
		}
		s.Paused = !s.Paused

	case Fragment:
		if !ShouldListen(s) || ev.Epoch != s.Epoch || ev.Text == "" {
			return s
		}
		s.Current += " " + ev.Text
	}
	return s
}

// ShouldListen reports whether the next tick should be issued.
func ShouldListen(s State) bool {
	return s.Recording && !s.Paused
}

// NeedsCalibration reports whether a tick should sample ambient noise
// first. It does so once per transcript, before any text arrives.
func NeedsCalibration(s State) bool {
	return s.Current == ""
}

// Visible returns up to n most recent history entries, oldest first.
func Visible(history []string, n int) []string {
	if n <= 0 || len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}

// Status is a short label for the current state.
func Status(s State) string {
	switch {
	case s.Recording && s.Paused:
		return "paused"
	case s.Recording:
		return "recording"
	}
	return "idle"
}
