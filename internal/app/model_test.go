package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jwulff/dictate/internal/audio"
	"github.com/jwulff/dictate/internal/config"
	"github.com/jwulff/dictate/internal/control"
	"github.com/jwulff/dictate/internal/db"
	"github.com/jwulff/dictate/internal/logging"
	"github.com/jwulff/dictate/internal/recognize"
	"github.com/jwulff/dictate/internal/session"
	"github.com/jwulff/dictate/internal/transcript"

	tea "github.com/charmbracelet/bubbletea"
)

var fixedNow = time.Date(2024, 3, 5, 14, 30, 1, 0, time.UTC)

// phrase is half a second of silence, half a second of tone, then silence.
func phrase() audio.Capture {
	samples := make([]int16, audio.SampleRate*5/2)
	for i := audio.SampleRate / 2; i < audio.SampleRate; i++ {
		if i%2 == 0 {
			samples[i] = 3000
		} else {
			samples[i] = -3000
		}
	}
	return audio.Capture{Samples: samples, SampleRate: audio.SampleRate}
}

type testDeps struct {
	cfg     config.Config
	mock    *recognize.Mock
	engines *recognize.Factory
	copied  []string
}

func newTestModel(t *testing.T, opts ...func(*Options)) (Model, *testDeps) {
	t.Helper()

	deps := &testDeps{cfg: config.Default(), mock: recognize.NewMock()}
	deps.cfg.Save.Directory = filepath.Join(t.TempDir(), "out")
	deps.engines = recognize.NewFactory(deps.cfg, logging.Discard())
	deps.engines.Register(config.EngineCloud, deps.mock)
	deps.engines.Register(config.EngineOffline, deps.mock)
	t.Cleanup(deps.engines.Close)

	o := Options{
		Config: deps.cfg,
		Ticker: &session.Ticker{
			Mic:      audio.NewReplay(phrase()),
			Listener: audio.NewListener(300, 0),
			Timing:   session.Timing{ListenTimeout: time.Second, PhraseTimeLimit: 5 * time.Second},
			Log:      logging.Discard(),
		},
		Engines: deps.engines,
		Writer:  &transcript.Writer{Clock: func() time.Time { return fixedNow }},
		Clipboard: func(s string) error {
			deps.copied = append(deps.copied, s)
			return nil
		},
	}
	for _, fn := range opts {
		fn(&o)
	}
	m := New(o)
	m.width = 100
	m.height = 30
	return m, deps
}

func applyUpdate(m Model, msg tea.Msg) (Model, tea.Cmd) {
	newModel, cmd := m.Update(msg)
	return newModel.(Model), cmd
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

// collect runs cmd and any batched commands, returning their messages.
// Only use it on commands that do not sleep.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collect(c)...)
		}
		return out
	}
	if msg == nil {
		return nil
	}
	return []tea.Msg{msg}
}

func find[T tea.Msg](t *testing.T, msgs []tea.Msg) T {
	t.Helper()
	for _, msg := range msgs {
		if v, ok := msg.(T); ok {
			return v
		}
	}
	var zero T
	t.Fatalf("no %T among %d messages", zero, len(msgs))
	return zero
}

// recordTranscript starts, feeds fragments, and stops.
func recordTranscript(m Model, fragments ...string) (Model, tea.Cmd) {
	m, _ = applyUpdate(m, keyMsg(" "))
	for _, f := range fragments {
		m, _ = applyUpdate(m, TickResultMsg{Epoch: m.state.Epoch, Result: recognize.OK(f)})
	}
	return applyUpdate(m, keyMsg(" "))
}

func TestNewModel(t *testing.T) {
	m, _ := newTestModel(t)
	if m.state.Recording || m.listening {
		t.Error("new model should be idle")
	}
	if m.language() != "en-US" || m.engine() != config.EngineCloud {
		t.Errorf("selection = %s/%s", m.language(), m.engine())
	}
	if m.format() != transcript.FormatTXT || !m.timestamp {
		t.Errorf("save options = %+v", m.saveOptions())
	}
	if m.visibleCount != 5 {
		t.Errorf("visibleCount = %d", m.visibleCount)
	}
}

func TestSpaceStartsListening(t *testing.T) {
	m, _ := newTestModel(t)

	m, cmd := applyUpdate(m, keyMsg(" "))
	if !m.state.Recording || m.state.Epoch != 1 {
		t.Fatalf("state = %+v", m.state)
	}
	if !m.listening || cmd == nil {
		t.Fatal("start should issue a tick")
	}
	if m.statusText != "Adjusting for ambient noise..." {
		t.Errorf("status = %q", m.statusText)
	}
}

func TestTickCmdRecognizes(t *testing.T) {
	m, deps := newTestModel(t)
	deps.mock = recognize.NewMock(recognize.MockReply{Text: "bonjour"})
	deps.engines.Register(config.EngineOffline, deps.mock)

	msg := tickCmd(context.Background(), m.ticker, m.engines, config.EngineOffline, "fr-FR", false, 3)()
	res, ok := msg.(TickResultMsg)
	if !ok {
		t.Fatalf("msg = %T", msg)
	}
	if res.Epoch != 3 || res.Result.Kind != recognize.KindOK || res.Result.Text != "bonjour" {
		t.Errorf("result = %+v", res)
	}
	if calls := deps.mock.Calls(); len(calls) != 1 || calls[0].Language != "fr-FR" {
		t.Errorf("calls = %+v", calls)
	}
}

func TestTickResultAppendsFragment(t *testing.T) {
	m, _ := newTestModel(t)
	m, _ = applyUpdate(m, keyMsg(" "))

	m, cmd := applyUpdate(m, TickResultMsg{Epoch: 1, Result: recognize.OK("hello")})
	if m.state.Current != " hello" {
		t.Errorf("Current = %q", m.state.Current)
	}
	if !m.listening || cmd == nil {
		t.Error("a fragment should schedule the next tick immediately")
	}
	if m.statusText != "Listening..." {
		t.Errorf("status = %q, want no calibration once text arrived", m.statusText)
	}
}

func TestStaleTickResultDropped(t *testing.T) {
	m, _ := newTestModel(t)
	m, _ = applyUpdate(m, keyMsg(" "))
	m, _ = applyUpdate(m, keyMsg(" "))
	m, _ = applyUpdate(m, keyMsg(" "))

	// the tick from epoch 1 is still in flight; the new recording waits for it
	m, cmd := applyUpdate(m, TickResultMsg{Epoch: 1, Result: recognize.OK("late")})
	if m.state.Current != "" {
		t.Errorf("Current = %q, stale fragment applied", m.state.Current)
	}
	if !m.listening || cmd == nil {
		t.Error("the new recording should get its own tick")
	}
}

func TestResultWhilePausedDropped(t *testing.T) {
	m, _ := newTestModel(t)
	m, _ = applyUpdate(m, keyMsg(" "))
	m, _ = applyUpdate(m, keyMsg("p"))
	if m.statusText != "Adjusting for ambient noise..." {
		t.Errorf("status changed while a tick is in flight: %q", m.statusText)
	}

	m, cmd := applyUpdate(m, TickResultMsg{Epoch: 1, Result: recognize.OK("ignored")})
	if m.state.Current != "" {
		t.Errorf("Current = %q", m.state.Current)
	}
	if m.listening || cmd != nil {
		t.Error("no tick while paused")
	}
	if m.statusText != "Recording Paused" {
		t.Errorf("status = %q", m.statusText)
	}

	m, cmd = applyUpdate(m, keyMsg("p"))
	if !m.listening || cmd == nil {
		t.Error("resume should issue a tick")
	}
}

func TestNoSpeechRetriesImmediately(t *testing.T) {
	m, _ := newTestModel(t)
	m, _ = applyUpdate(m, keyMsg(" "))

	for _, res := range []recognize.Result{recognize.NoSpeech(), recognize.Unintelligible()} {
		var cmd tea.Cmd
		m, cmd = applyUpdate(m, TickResultMsg{Epoch: 1, Result: res})
		if !m.listening || cmd == nil {
			t.Errorf("%v should retry immediately", res.Kind)
		}
		if m.errorMessage != "" {
			t.Errorf("%v should not be visible: %q", res.Kind, m.errorMessage)
		}
	}
}

func TestTransportErrorBacksOff(t *testing.T) {
	m, _ := newTestModel(t)
	m, _ = applyUpdate(m, keyMsg(" "))

	m, cmd := applyUpdate(m, TickResultMsg{Epoch: 1, Result: recognize.TransportError(errors.New("connection refused"))})
	if m.listening || !m.retryPending || cmd == nil {
		t.Fatalf("listening=%v retryPending=%v", m.listening, m.retryPending)
	}
	if !strings.Contains(m.errorMessage, "Could not request results; connection refused") || !m.errorTransient {
		t.Errorf("error = %q transient=%v", m.errorMessage, m.errorTransient)
	}
	if m.retryAttempt != 1 || m.statusText != "Retrying in 1s..." {
		t.Errorf("attempt = %d status = %q", m.retryAttempt, m.statusText)
	}

	// resuming from pause does not skip the backoff
	m, _ = applyUpdate(m, keyMsg("p"))
	m, _ = applyUpdate(m, keyMsg("p"))
	if m.listening {
		t.Error("tick issued during backoff")
	}

	m, _ = applyUpdate(m, RetryTickMsg{Epoch: 0})
	if !m.retryPending {
		t.Error("retry for another recording should be ignored")
	}

	m, cmd = applyUpdate(m, RetryTickMsg{Epoch: 1})
	if !m.listening || cmd == nil {
		t.Fatal("retry should issue a tick")
	}

	m, _ = applyUpdate(m, TickResultMsg{Epoch: 1, Result: recognize.TransportError(errors.New("again"))})
	if m.statusText != "Retrying in 2s..." {
		t.Errorf("status = %q", m.statusText)
	}
	m, _ = applyUpdate(m, RetryTickMsg{Epoch: 1})
	m, _ = applyUpdate(m, TickResultMsg{Epoch: 1, Result: recognize.OK("back")})
	if m.retryAttempt != 0 {
		t.Errorf("attempt = %d, want reset after a fragment", m.retryAttempt)
	}

	m, _ = applyUpdate(m, ClearTransientErrorMsg{})
	if m.errorMessage != "" {
		t.Errorf("transient error not cleared: %q", m.errorMessage)
	}
}

func TestStartClearsPendingRetry(t *testing.T) {
	m, _ := newTestModel(t)
	m, _ = applyUpdate(m, keyMsg(" "))
	m, _ = applyUpdate(m, TickResultMsg{Epoch: 1, Result: recognize.TransportError(errors.New("down"))})
	m, _ = applyUpdate(m, keyMsg(" "))

	m, cmd := applyUpdate(m, keyMsg(" "))
	if !m.listening || cmd == nil || m.retryAttempt != 0 {
		t.Errorf("new recording should listen at once: listening=%v attempt=%d", m.listening, m.retryAttempt)
	}
}

func TestStopMovesTranscriptToHistory(t *testing.T) {
	m, _ := newTestModel(t)
	m, _ = recordTranscript(m, "hello", "world")

	if m.state.Recording {
		t.Fatal("should be idle after stop")
	}
	if len(m.state.History) != 1 || m.state.History[0] != " hello world" {
		t.Errorf("History = %q", m.state.History)
	}
	if !m.canSaveCurrent() {
		t.Error("save panel should be offered after stop")
	}

	view := m.View()
	for _, want := range []string{"SAVE TRANSCRIPT", "TRANSCRIPT HISTORY (1)", "hello world"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestSaveCurrentTranscript(t *testing.T) {
	m, deps := newTestModel(t)
	m, _ = recordTranscript(m, "bonjour")

	m, cmd := applyUpdate(m, keyMsg("s"))
	if cmd == nil {
		t.Fatal("save should return a command")
	}
	saved := find[SavedMsg](t, collect(cmd))
	if saved.Err != nil {
		t.Fatalf("save: %v", saved.Err)
	}
	want := filepath.Join(deps.cfg.Save.Directory, "transcript_20240305_143001.txt")
	if saved.Path != want {
		t.Errorf("path = %q, want %q", saved.Path, want)
	}

	m, _ = applyUpdate(m, saved)
	if m.lastSaved != want || !strings.Contains(m.notice, "Successfully saved transcript as: "+want) {
		t.Errorf("lastSaved = %q notice = %q", m.lastSaved, m.notice)
	}
	if !strings.Contains(m.View(), "text/txt") {
		t.Error("view should show the saved file's MIME type")
	}

	data, err := os.ReadFile(want)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "Timestamp: 2024-03-05 14:30:01\n\n bonjour" {
		t.Errorf("content = %q", data)
	}

	m, cmd = applyUpdate(m, keyMsg("c"))
	copied := find[CopiedMsg](t, collect(cmd))
	m, _ = applyUpdate(m, copied)
	if len(deps.copied) != 1 || deps.copied[0] != string(data) {
		t.Errorf("clipboard = %q", deps.copied)
	}
	if !strings.Contains(m.notice, "Copied") {
		t.Errorf("notice = %q", m.notice)
	}
}

func TestSaveOptionsFromSelectors(t *testing.T) {
	m, deps := newTestModel(t)
	m, _ = recordTranscript(m, "hola")

	m, _ = applyUpdate(m, keyMsg("f"))
	m, _ = applyUpdate(m, keyMsg("t"))
	if m.format() != transcript.FormatJSON || m.timestamp {
		t.Fatalf("options = %+v", m.saveOptions())
	}

	_, cmd := applyUpdate(m, keyMsg("s"))
	saved := find[SavedMsg](t, collect(cmd))
	if filepath.Ext(saved.Path) != ".json" {
		t.Errorf("path = %q", saved.Path)
	}
	data, _ := os.ReadFile(filepath.Join(deps.cfg.Save.Directory, "transcript_20240305_143001.json"))
	if strings.Contains(string(data), "timestamp") {
		t.Errorf("timestamp written when disabled: %s", data)
	}
}

func TestSaveDisabledWhileRecording(t *testing.T) {
	m, _ := newTestModel(t)
	m, _ = applyUpdate(m, keyMsg(" "))
	m, _ = applyUpdate(m, TickResultMsg{Epoch: 1, Result: recognize.OK("busy")})

	if _, cmd := applyUpdate(m, keyMsg("s")); cmd != nil {
		t.Error("save should be unavailable while recording")
	}
}

func TestSaveError(t *testing.T) {
	m, _ := newTestModel(t)
	m, _ = recordTranscript(m, "x")

	m, _ = applyUpdate(m, SavedMsg{Err: errors.New("permission denied")})
	if !strings.Contains(m.errorMessage, "Error saving transcript: permission denied") {
		t.Errorf("error = %q", m.errorMessage)
	}
	if m.errorTransient {
		t.Error("save errors should stay visible")
	}
	if m.lastSaved != "" {
		t.Error("failed save should not set lastSaved")
	}
}

func TestSaveErrorClears(t *testing.T) {
	m, _ := newTestModel(t)
	m, _ = recordTranscript(m, "x")

	m, _ = applyUpdate(m, SavedMsg{Err: errors.New("disk full")})
	m, _ = applyUpdate(m, SavedMsg{Path: "transcripts/transcript.txt", Bytes: 10})
	if m.errorMessage != "" {
		t.Errorf("successful save left error %q", m.errorMessage)
	}

	m, _ = applyUpdate(m, SavedMsg{Err: errors.New("disk full")})
	m, _ = applyUpdate(m, keyMsg(" "))
	if !m.state.Recording {
		t.Fatal("space should start recording")
	}
	if m.errorMessage != "" {
		t.Errorf("start left error %q", m.errorMessage)
	}
}

func TestHistorySaveUsesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	m, _ := newTestModel(t)
	for _, word := range []string{"one", "two", "three", "four", "five", "six"} {
		m, _ = recordTranscript(m, word)
	}
	// selectors do not apply to history saves
	m, _ = applyUpdate(m, keyMsg("f"))

	if got := m.visibleHistory(); len(got) != 5 || got[0] != " two" {
		t.Fatalf("visible = %q", got)
	}

	m, cmd := applyUpdate(m, keyMsg("1"))
	saved := find[SavedMsg](t, collect(cmd))
	if saved.Err != nil {
		t.Fatalf("save: %v", saved.Err)
	}
	if saved.Path != filepath.Join("transcripts", "transcript_20240305_143001.txt") {
		t.Errorf("path = %q", saved.Path)
	}
	data, _ := os.ReadFile(saved.Path)
	if !strings.HasSuffix(string(data), "\n\n two") {
		t.Errorf("content = %q", data)
	}

	m, _ = applyUpdate(m, saved)
	if !strings.Contains(m.notice, "Saved transcript #1 as:") {
		t.Errorf("notice = %q", m.notice)
	}

	if _, cmd := applyUpdate(m, keyMsg("6")); cmd != nil {
		t.Error("only visible entries can be saved")
	}
}

func TestSelectorsCycle(t *testing.T) {
	m, _ := newTestModel(t)

	m, _ = applyUpdate(m, keyMsg("l"))
	if m.language() != "fr-FR" {
		t.Errorf("language = %q", m.language())
	}
	m, _ = applyUpdate(m, keyMsg("L"))
	m, _ = applyUpdate(m, keyMsg("L"))
	if m.language() != "es-ES" {
		t.Errorf("language = %q, want wrap backwards", m.language())
	}

	m, _ = applyUpdate(m, keyMsg("e"))
	if m.engine() != config.EngineOffline {
		t.Errorf("engine = %q", m.engine())
	}
	m, _ = applyUpdate(m, keyMsg("e"))
	if m.engine() != config.EngineCloud {
		t.Errorf("engine = %q", m.engine())
	}

	for _, want := range []transcript.Format{transcript.FormatJSON, transcript.FormatCSV, transcript.FormatTXT} {
		m, _ = applyUpdate(m, keyMsg("f"))
		if m.format() != want {
			t.Errorf("format = %q, want %q", m.format(), want)
		}
	}
}

func TestEditDirectory(t *testing.T) {
	m, deps := newTestModel(t)
	m, _ = recordTranscript(m, "x")

	m, _ = applyUpdate(m, keyMsg("d"))
	if !m.editingDir {
		t.Fatal("d should start editing")
	}
	// keys go to the input, not the shortcuts
	m, _ = applyUpdate(m, keyMsg("/notes"))
	if m.state.Recording || m.format() != transcript.FormatTXT {
		t.Error("shortcut fired while editing")
	}
	m, _ = applyUpdate(m, keyMsg("enter"))
	if m.editingDir || m.saveDir != deps.cfg.Save.Directory+"/notes" {
		t.Errorf("saveDir = %q editing=%v", m.saveDir, m.editingDir)
	}

	m, _ = applyUpdate(m, keyMsg("d"))
	m, _ = applyUpdate(m, keyMsg("zzz"))
	m, _ = applyUpdate(m, keyMsg("esc"))
	if m.saveDir != deps.cfg.Save.Directory+"/notes" {
		t.Errorf("esc should discard edits, saveDir = %q", m.saveDir)
	}
}

func sendControl(m Model, cmd control.Command) (Model, tea.Cmd, control.Response, bool) {
	reply := make(chan control.Response, 1)
	m, next := applyUpdate(m, ControlMsg{Command: cmd, Reply: reply})
	select {
	case resp := <-reply:
		return m, next, resp, true
	default:
		return m, next, control.Response{}, false
	}
}

func TestControlCommands(t *testing.T) {
	m, _ := newTestModel(t)

	m, _, resp, _ := sendControl(m, control.Command{Cmd: control.CmdPause})
	if resp.OK {
		t.Error("pause while idle should fail")
	}

	m, cmd, resp, _ := sendControl(m, control.Command{Cmd: control.CmdStart})
	if !resp.OK || resp.Status != "recording" || cmd == nil {
		t.Errorf("start = %+v", resp)
	}

	m, _, resp, _ = sendControl(m, control.Command{Cmd: control.CmdPause})
	if resp.Status != "paused" || resp.Paused == nil || !*resp.Paused {
		t.Errorf("pause = %+v", resp)
	}

	m, _, resp, _ = sendControl(m, control.Command{Cmd: control.CmdSave})
	if resp.OK {
		t.Error("save while recording should fail")
	}

	m, _ = applyUpdate(m, keyMsg("p"))
	m, _ = applyUpdate(m, TickResultMsg{Epoch: 1, Result: recognize.OK("remote")})
	m, _, resp, _ = sendControl(m, control.Command{Cmd: control.CmdStop})
	if resp.Status != "idle" || resp.Transcript != " remote" || resp.History == nil || *resp.History != 1 {
		t.Errorf("stop = %+v", resp)
	}

	_, _, resp, _ = sendControl(m, control.Command{Cmd: "rewind"})
	if resp.OK || !strings.Contains(resp.Error, "unknown command") {
		t.Errorf("unknown = %+v", resp)
	}
}

func TestControlSaveRepliesWithPath(t *testing.T) {
	m, _ := newTestModel(t)
	m, _ = recordTranscript(m, "via socket")

	m, cmd, _, answered := sendControl(m, control.Command{Cmd: control.CmdSave, Format: "csv"})
	if answered {
		t.Fatal("save should reply after the file is written")
	}
	saved := find[SavedMsg](t, collect(cmd))
	if saved.Reply == nil {
		t.Fatal("reply channel not carried")
	}

	reply := make(chan control.Response, 1)
	saved.Reply = reply
	m, _ = applyUpdate(m, saved)
	resp := <-reply
	if !resp.OK || filepath.Ext(resp.Path) != ".csv" {
		t.Errorf("resp = %+v", resp)
	}

	_, _, resp, _ = sendControl(m, control.Command{Cmd: control.CmdSave, Format: "pdf"})
	if resp.OK {
		t.Error("unknown format should fail")
	}
	_, _, resp, _ = sendControl(m, control.Command{Cmd: control.CmdSave, History: control.IntPtr(4)})
	if resp.OK {
		t.Error("missing history entry should fail")
	}
}

func TestNotifySubscribers(t *testing.T) {
	var events []control.Event
	m, _ := newTestModel(t, func(o *Options) {
		o.Notify = func(ev control.Event) { events = append(events, ev) }
	})

	m, _ = applyUpdate(m, keyMsg(" "))
	_, cmd := applyUpdate(m, TickResultMsg{Epoch: 1, Result: recognize.OK("hi")})
	// the nested batch holding the next tick is returned, not run
	for _, c := range cmd().(tea.BatchMsg) {
		c()
	}

	var sawFragment bool
	for _, ev := range events {
		if ev.Event == control.EventFragment && ev.Text == "hi" {
			sawFragment = true
		}
	}
	if !sawFragment {
		t.Errorf("events = %+v", events)
	}
}

func TestArchiveAndRecordSave(t *testing.T) {
	store, err := db.Open(filepath.Join(t.TempDir(), "history.sqlite"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()
	sess, err := store.BeginSession("en-US", config.EngineCloud)
	if err != nil {
		t.Fatalf("BeginSession: %v", err)
	}

	m, _ := newTestModel(t, func(o *Options) {
		o.Store = store
		o.SessionID = sess.ID
	})

	m, cmd := recordTranscript(m, "archived")
	archived := find[ArchivedMsg](t, collect(cmd))
	if archived.Err != nil || archived.Index != 0 {
		t.Fatalf("archived = %+v", archived)
	}
	m, _ = applyUpdate(m, archived)

	m, cmd = applyUpdate(m, keyMsg("s"))
	saved := find[SavedMsg](t, collect(cmd))
	if saved.TranscriptID != archived.ID {
		t.Errorf("transcript id = %q, want %q", saved.TranscriptID, archived.ID)
	}
	_, cmd = applyUpdate(m, saved)
	recorded := find[SaveRecordedMsg](t, collect(cmd))
	if recorded.Err != nil {
		t.Fatalf("record save: %v", recorded.Err)
	}

	saves, err := store.SavesForTranscript(archived.ID)
	if err != nil {
		t.Fatalf("SavesForTranscript: %v", err)
	}
	if len(saves) != 1 || saves[0].Path != saved.Path || saves[0].Bytes == 0 {
		t.Errorf("saves = %+v", saves)
	}
	recent, _ := store.RecentTranscripts(1)
	if len(recent) != 1 || recent[0].Text != " archived" {
		t.Errorf("recent = %+v", recent)
	}
}

func TestViewRendersWithSize(t *testing.T) {
	m, _ := newTestModel(t)
	view := m.View()
	if !strings.Contains(view, "DICTATE") || !strings.Contains(view, "Press Space to start recording") {
		t.Errorf("view = %q", view)
	}

	m, _ = applyUpdate(m, keyMsg(" "))
	m, _ = applyUpdate(m, keyMsg("p"))
	m, _ = applyUpdate(m, TickResultMsg{Epoch: 1, Result: recognize.NoSpeech()})
	if view := m.View(); !strings.Contains(view, "PAUSED") || !strings.Contains(view, "Recording Paused") {
		t.Errorf("paused view = %q", view)
	}
}

func TestViewWithoutSize(t *testing.T) {
	m, _ := newTestModel(t)
	m.width = 0
	if view := m.View(); view != "Initializing..." {
		t.Errorf("view without size = %q, want 'Initializing...'", view)
	}
}

func TestWrapText(t *testing.T) {
	got := wrapText("the quick brown fox", 9)
	want := []string{"the quick", "brown fox"}
	if len(got) != len(want) {
		t.Fatalf("wrapText = %q", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
	if got := truncateToWidth("abcdefgh", 5); got != "abcd…" {
		t.Errorf("truncate = %q", got)
	}
}
