package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/jwulff/dictate/internal/config"
	"github.com/jwulff/dictate/internal/control"
	"github.com/jwulff/dictate/internal/db"
	"github.com/jwulff/dictate/internal/logging"
	"github.com/jwulff/dictate/internal/recognize"
	"github.com/jwulff/dictate/internal/session"
	"github.com/jwulff/dictate/internal/transcript"
	"github.com/jwulff/dictate/internal/ui"

	tea "github.com/charmbracelet/bubbletea"
)

// Options wires the model to its collaborators.
type Options struct {
	Context context.Context
	Config  config.Config
	Ticker  *session.Ticker
	Engines session.Engines
	Writer  *transcript.Writer
	// Store and SessionID are optional; without them nothing is archived.
	Store     *db.Store
	SessionID string
	// Notify, if set, receives events for control socket subscribers.
	Notify func(control.Event)
	// Clipboard defaults to the system clipboard.
	Clipboard func(string) error
	Log       *log.Logger
}

// Model is the root bubbletea model for the dictate TUI.
type Model struct {
	ctx       context.Context
	ticker    *session.Ticker
	engines   session.Engines
	writer    *transcript.Writer
	store     *db.Store
	sessionID string
	archive   bool
	notify    func(control.Event)
	clipboard func(string) error
	log       *log.Logger

	// Session
	state         session.State
	transcriptIDs map[int]string
	listening     bool
	retryPending  bool
	retryAttempt  int

	// Selectors
	languages    []string
	langIndex    int
	engineNames  []string
	engineIndex  int
	formats      []transcript.Format
	formatIndex  int
	timestamp    bool
	saveDir      string
	dirInput     textinput.Model
	editingDir   bool
	visibleCount int

	// Last save
	lastSaved string
	notice    string

	// UI state
	spinner    spinner.Model
	statusText string
	width      int
	height     int

	// Errors
	errorMessage   string
	errorTransient bool
}

// New creates a Model with default state.
func New(opts Options) Model {
	cfg := opts.Config
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	if opts.Writer == nil {
		opts.Writer = &transcript.Writer{}
	}
	if opts.Clipboard == nil {
		opts.Clipboard = clipboard.WriteAll
	}
	if opts.Log == nil {
		opts.Log = logging.Discard()
	}

	languages := cfg.Languages
	if len(languages) == 0 {
		languages = config.Default().Languages
	}
	engineNames := []string{config.EngineCloud, config.EngineOffline}
	formats := transcript.Formats()

	dir := textinput.New()
	dir.Prompt = ""
	dir.CharLimit = 256
	dir.SetValue(cfg.Save.Directory)

	sp := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(ui.SpinnerStyle))

	return Model{
		ctx:           opts.Context,
		ticker:        opts.Ticker,
		engines:       opts.Engines,
		writer:        opts.Writer,
		store:         opts.Store,
		sessionID:     opts.SessionID,
		archive:       cfg.History.Archive && opts.Store != nil && opts.SessionID != "",
		notify:        opts.Notify,
		clipboard:     opts.Clipboard,
		log:           opts.Log,
		transcriptIDs: make(map[int]string),
		languages:     languages,
		langIndex:     max(0, indexOf(languages, cfg.Language)),
		engineNames:   engineNames,
		engineIndex:   max(0, indexOf(engineNames, cfg.Engine)),
		formats:       formats,
		formatIndex:   max(0, indexOf(formats, transcript.Format(cfg.Save.Format))),
		timestamp:     cfg.Save.IncludeTimestamp,
		saveDir:       cfg.Save.Directory,
		dirInput:      dir,
		visibleCount:  cfg.History.Visible,
		spinner:       sp,
		statusText:    "Idle",
	}
}

func indexOf[T comparable](list []T, v T) int {
	for i, item := range list {
		if item == v {
			return i
		}
	}
	return -1
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// State returns the session state.
func (m Model) State() session.State { return m.state }

func (m Model) language() string { return m.languages[m.langIndex] }

func (m Model) engine() string { return m.engineNames[m.engineIndex] }

func (m Model) format() transcript.Format { return m.formats[m.formatIndex] }

func (m Model) saveOptions() transcript.Options {
	return transcript.Options{
		Format:           m.format(),
		IncludeTimestamp: m.timestamp,
		Directory:        m.saveDir,
	}
}

// tickCmd runs one listen-and-recognize call off the update loop.
func tickCmd(ctx context.Context, t *session.Ticker, engines session.Engines, engine, language string, calibrate bool, epoch int) tea.Cmd {
	return func() tea.Msg {
		rec, err := engines.Get(engine)
		if err != nil {
			return TickResultMsg{Epoch: epoch, Result: recognize.TransportError(err)}
		}
		return TickResultMsg{Epoch: epoch, Result: t.Tick(ctx, rec, language, calibrate)}
	}
}

// retryCmd schedules the next tick after a transport error.
func retryCmd(delay time.Duration, epoch int) tea.Cmd {
	return tea.Tick(delay, func(time.Time) tea.Msg {
		return RetryTickMsg{Epoch: epoch}
	})
}

// clearTransientErrorCmd fires after a delay to clear transient errors.
func clearTransientErrorCmd() tea.Cmd {
	return tea.Tick(5*time.Second, func(time.Time) tea.Msg {
		return ClearTransientErrorMsg{}
	})
}

// saveCmd writes text through the transcript writer.
func saveCmd(w *transcript.Writer, label, text string, opts transcript.Options, transcriptID string, reply chan<- control.Response) tea.Cmd {
	return func() tea.Msg {
		msg := SavedMsg{Label: label, Format: string(opts.Format), TranscriptID: transcriptID, Reply: reply}
		path, err := w.Save(text, opts)
		if err != nil {
			msg.Err = err
			return msg
		}
		msg.Path = path
		if fi, err := os.Stat(path); err == nil {
			msg.Bytes = fi.Size()
		}
		return msg
	}
}

// archiveCmd stores a finished transcript.
func archiveCmd(store *db.Store, sessionID string, index int, text, language, engine string) tea.Cmd {
	return func() tea.Msg {
		tr, err := store.ArchiveTranscript(sessionID, text, language, engine)
		if err != nil {
			return ArchivedMsg{Index: index, Err: err}
		}
		return ArchivedMsg{Index: index, ID: tr.ID}
	}
}

// recordSaveCmd notes a saved file in the archive.
func recordSaveCmd(store *db.Store, transcriptID, path, format string, bytes int64) tea.Cmd {
	return func() tea.Msg {
		_, err := store.RecordSave(transcriptID, path, format, bytes)
		return SaveRecordedMsg{Err: err}
	}
}

// copyCmd puts the saved file's contents on the clipboard.
func copyCmd(write func(string) error, path string) tea.Cmd {
	return func() tea.Msg {
		data, err := os.ReadFile(path)
		if err != nil {
			return CopiedMsg{Path: path, Err: err}
		}
		return CopiedMsg{Path: path, Err: write(string(data))}
	}
}

// notifyCmd forwards an event to control subscribers.
func (m Model) notifyCmd(ev control.Event) tea.Cmd {
	if m.notify == nil {
		return nil
	}
	notify := m.notify
	return func() tea.Msg {
		notify(ev)
		return nil
	}
}

func (m Model) stateEvent() control.Event {
	return control.Event{Event: control.EventState, Status: session.Status(m.state), Text: m.state.Current}
}

// Update processes messages and returns the updated model and any commands.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		if !m.listening {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case TickResultMsg:
		cmd := m.handleTickResult(msg)
		return m, cmd

	case RetryTickMsg:
		if msg.Epoch != m.state.Epoch || !m.retryPending {
			return m, nil
		}
		m.retryPending = false
		return m, m.maybeListen()

	case SavedMsg:
		return m, m.handleSaved(msg)

	case ArchivedMsg:
		if msg.Err != nil {
			m.log.Warn("app: archive failed", "error", msg.Err)
			return m, m.showError("Could not archive transcript: "+msg.Err.Error(), true)
		}
		m.transcriptIDs[msg.Index] = msg.ID
		return m, nil

	case SaveRecordedMsg:
		if msg.Err != nil {
			m.log.Warn("app: recording save failed", "error", msg.Err)
		}
		return m, nil

	case CopiedMsg:
		if msg.Err != nil {
			return m, m.showError("Copy failed: "+msg.Err.Error(), true)
		}
		m.notice = "Copied " + msg.Path + " to clipboard"
		return m, nil

	case ControlMsg:
		return m.handleControl(msg)

	case ClearTransientErrorMsg:
		if m.errorTransient {
			m.clearError()
		}
		return m, nil
	}

	if m.editingDir {
		var cmd tea.Cmd
		m.dirInput, cmd = m.dirInput.Update(msg)
		return m, cmd
	}
	return m, nil
}

// maybeListen issues the next tick when the session wants one and none is
// already in flight or waiting out a backoff.
func (m *Model) maybeListen() tea.Cmd {
	if !session.ShouldListen(m.state) || m.listening || m.retryPending || m.ticker == nil || m.engines == nil {
		return nil
	}
	m.listening = true
	calibrate := session.NeedsCalibration(m.state)
	if calibrate {
		m.statusText = session.PhaseCalibrating.String()
	} else {
		m.statusText = session.PhaseListening.String()
	}
	return tea.Batch(
		tickCmd(m.ctx, m.ticker, m.engines, m.engine(), m.language(), calibrate, m.state.Epoch),
		m.spinner.Tick,
	)
}

func (m *Model) handleTickResult(msg TickResultMsg) tea.Cmd {
	m.listening = false
	res := msg.Result

	if msg.Epoch != m.state.Epoch || !session.ShouldListen(m.state) {
		m.log.Debug("app: dropping stale result", "epoch", msg.Epoch, "current", m.state.Epoch, "kind", res.Kind)
		m.statusText = m.idleStatus()
		return m.maybeListen()
	}

	switch res.Kind {
	case recognize.KindOK:
		m.state = session.Apply(m.state, session.Fragment{Epoch: msg.Epoch, Text: res.Text})
		m.retryAttempt = 0
		return tea.Batch(
			m.notifyCmd(control.Event{Event: control.EventFragment, Text: res.Text}),
			m.maybeListen(),
		)

	case recognize.KindTransportError:
		m.log.Warn("app: recognition failed", "engine", m.engine(), "error", res.Err, "attempt", m.retryAttempt+1)
		delay := session.RetryDelay(m.retryAttempt)
		m.retryAttempt++
		m.retryPending = true
		m.statusText = fmt.Sprintf("Retrying in %s...", delay)
		message := "Could not request results; " + res.Err.Error()
		return tea.Batch(
			m.showError(message, true),
			retryCmd(delay, msg.Epoch),
			m.notifyCmd(control.Event{Event: control.EventError, Message: message, Transient: control.BoolPtr(true)}),
		)
	}

	return m.maybeListen()
}

func (m *Model) handleSaved(msg SavedMsg) tea.Cmd {
	if msg.Err != nil {
		m.log.Error("app: save failed", "label", msg.Label, "error", msg.Err)
		if msg.Reply != nil {
			msg.Reply <- control.Fail(msg.Err)
		}
		return m.showError("Error saving transcript: "+msg.Err.Error(), false)
	}

	m.log.Info("app: saved transcript", "path", msg.Path, "bytes", msg.Bytes)
	m.clearError()
	m.lastSaved = msg.Path
	if msg.Label == "" {
		m.notice = fmt.Sprintf("Successfully saved transcript as: %s (%s)", msg.Path, humanize.Bytes(uint64(msg.Bytes)))
	} else {
		m.notice = fmt.Sprintf("Saved %s as: %s", msg.Label, msg.Path)
	}
	if msg.Reply != nil {
		resp := m.statusResponse()
		resp.Path = msg.Path
		msg.Reply <- resp
	}

	cmds := []tea.Cmd{m.notifyCmd(control.Event{Event: control.EventSaved, Path: msg.Path})}
	if m.store != nil {
		cmds = append(cmds, recordSaveCmd(m.store, msg.TranscriptID, msg.Path, msg.Format, msg.Bytes))
	}
	return tea.Batch(cmds...)
}

func (m *Model) showError(message string, transient bool) tea.Cmd {
	m.errorMessage = message
	m.errorTransient = transient
	if transient {
		return clearTransientErrorCmd()
	}
	return nil
}

func (m *Model) clearError() {
	m.errorMessage = ""
	m.errorTransient = false
}

func (m Model) idleStatus() string {
	switch {
	case m.state.Recording && m.state.Paused:
		return "Recording Paused"
	case m.state.Recording:
		return "Recording..."
	}
	return "Idle"
}

func (m *Model) start() tea.Cmd {
	if m.state.Recording {
		return nil
	}
	m.state = session.Apply(m.state, session.Start{})
	m.retryPending = false
	m.retryAttempt = 0
	m.notice = ""
	m.clearError()
	m.statusText = m.idleStatus()
	return tea.Batch(m.notifyCmd(m.stateEvent()), m.maybeListen())
}

func (m *Model) stop() tea.Cmd {
	if !m.state.Recording {
		return nil
	}
	before := len(m.state.History)
	m.state = session.Apply(m.state, session.Stop{})
	m.retryPending = false
	m.statusText = m.idleStatus()

	cmds := []tea.Cmd{m.notifyCmd(m.stateEvent())}
	if len(m.state.History) > before && m.archive {
		idx := len(m.state.History) - 1
		cmds = append(cmds, archiveCmd(m.store, m.sessionID, idx, m.state.History[idx], m.language(), m.engine()))
	}
	return tea.Batch(cmds...)
}

func (m *Model) togglePause() tea.Cmd {
	if !m.state.Recording {
		return nil
	}
	m.state = session.Apply(m.state, session.PauseToggle{})
	if !m.listening {
		m.statusText = m.idleStatus()
	}
	return tea.Batch(m.notifyCmd(m.stateEvent()), m.maybeListen())
}

// canSaveCurrent reports whether the save panel is offered.
func (m Model) canSaveCurrent() bool {
	return !m.state.Recording && m.state.Current != ""
}

// currentTranscriptID returns the archive ID of the just-stopped
// transcript, which is the newest history entry.
func (m Model) currentTranscriptID() string {
	n := len(m.state.History)
	if n == 0 || m.state.History[n-1] != m.state.Current {
		return ""
	}
	return m.transcriptIDs[n-1]
}

func (m Model) visibleHistory() []string {
	return session.Visible(m.state.History, m.visibleCount)
}

// saveCurrent saves the just-stopped transcript with the selected options.
func (m *Model) saveCurrent(reply chan<- control.Response) (tea.Cmd, error) {
	if !m.canSaveCurrent() {
		return nil, errors.New("no stopped transcript to save")
	}
	return saveCmd(m.writer, "", m.state.Current, m.saveOptions(), m.currentTranscriptID(), reply), nil
}

// saveHistory saves the n-th visible history entry with default options.
func (m *Model) saveHistory(n int, reply chan<- control.Response) (tea.Cmd, error) {
	visible := m.visibleHistory()
	if n < 1 || n > len(visible) {
		return nil, fmt.Errorf("no transcript #%d in history", n)
	}
	idx := len(m.state.History) - len(visible) + n - 1
	label := fmt.Sprintf("transcript #%d", n)
	return saveCmd(m.writer, label, visible[n-1], transcript.DefaultOptions(), m.transcriptIDs[idx], reply), nil
}

func (m Model) statusResponse() control.Response {
	return control.Response{
		OK:         true,
		Status:     session.Status(m.state),
		Recording:  control.BoolPtr(m.state.Recording),
		Paused:     control.BoolPtr(m.state.Paused),
		Transcript: m.state.Current,
		History:    control.IntPtr(len(m.state.History)),
		Language:   m.language(),
		Engine:     m.engine(),
	}
}

// handleControl applies a command from the control socket.
func (m Model) handleControl(msg ControlMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg.Command.Cmd {
	case control.CmdStart:
		cmd = m.start()
	case control.CmdStop:
		cmd = m.stop()
	case control.CmdPause:
		if !m.state.Recording {
			msg.Reply <- control.Fail(errors.New("not recording"))
			return m, nil
		}
		cmd = m.togglePause()
	case control.CmdStatus:
	case control.CmdSave:
		save, err := m.controlSave(msg)
		if err != nil {
			msg.Reply <- control.Fail(err)
			return m, nil
		}
		// the reply is sent when the save finishes
		return m, save
	default:
		msg.Reply <- control.Fail(fmt.Errorf("unknown command %q", msg.Command.Cmd))
		return m, nil
	}
	msg.Reply <- m.statusResponse()
	return m, cmd
}

func (m *Model) controlSave(msg ControlMsg) (tea.Cmd, error) {
	if msg.Command.History != nil {
		return m.saveHistory(*msg.Command.History, msg.Reply)
	}
	if !m.canSaveCurrent() {
		return nil, errors.New("no stopped transcript to save")
	}
	opts := m.saveOptions()
	if msg.Command.Format != "" {
		f, err := transcript.ParseFormat(msg.Command.Format)
		if err != nil {
			return nil, err
		}
		opts.Format = f
	}
	return saveCmd(m.writer, "", m.state.Current, opts, m.currentTranscriptID(), msg.Reply), nil
}

// handleKey processes key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.editingDir {
		return m.handleDirKey(msg)
	}

	switch key := msg.String(); key {
	case KeyQuit, KeyQuitUpper, KeyCtrlC:
		return m, tea.Quit

	case KeySpace:
		if m.state.Recording {
			return m, m.stop()
		}
		return m, m.start()

	case KeyPause:
		return m, m.togglePause()

	case KeyLanguage:
		m.langIndex = (m.langIndex + 1) % len(m.languages)
		return m, nil

	case KeyLanguageUpper:
		m.langIndex = (m.langIndex + len(m.languages) - 1) % len(m.languages)
		return m, nil

	case KeyEngine:
		m.engineIndex = (m.engineIndex + 1) % len(m.engineNames)
		return m, nil

	case KeyFormat:
		m.formatIndex = (m.formatIndex + 1) % len(m.formats)
		return m, nil

	case KeyTimestamp:
		m.timestamp = !m.timestamp
		return m, nil

	case KeyDirectory:
		if !m.canSaveCurrent() {
			return m, nil
		}
		m.editingDir = true
		m.dirInput.SetValue(m.saveDir)
		m.dirInput.CursorEnd()
		return m, m.dirInput.Focus()

	case KeySave:
		cmd, err := m.saveCurrent(nil)
		if err != nil {
			return m, nil
		}
		return m, cmd

	case KeyCopy:
		if m.lastSaved == "" {
			return m, nil
		}
		return m, copyCmd(m.clipboard, m.lastSaved)

	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		cmd, err := m.saveHistory(int(key[0]-'0'), nil)
		if err != nil {
			return m, nil
		}
		return m, cmd
	}

	return m, nil
}

func (m Model) handleDirKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case KeyEnter:
		if dir := strings.TrimSpace(m.dirInput.Value()); dir != "" {
			m.saveDir = dir
		}
		m.editingDir = false
		m.dirInput.Blur()
		return m, nil
	case KeyEsc:
		m.editingDir = false
		m.dirInput.SetValue(m.saveDir)
		m.dirInput.Blur()
		return m, nil
	case KeyCtrlC:
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.dirInput, cmd = m.dirInput.Update(msg)
	return m, cmd
}

// ControlHandler routes control socket commands into a running program.
func ControlHandler(p *tea.Program) control.Handler {
	return func(cmd control.Command) control.Response {
		if cmd.Cmd == "" {
			return control.Fail(errors.New("missing cmd"))
		}
		reply := make(chan control.Response, 1)
		p.Send(ControlMsg{Command: cmd, Reply: reply})
		select {
		case resp := <-reply:
			return resp
		case <-time.After(10 * time.Second):
			return control.Fail(errors.New("recorder did not answer"))
		}
	}
}
