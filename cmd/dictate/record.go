package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/jwulff/dictate/internal/audio"
	"github.com/jwulff/dictate/internal/control"
	"github.com/jwulff/dictate/internal/db"
	"github.com/jwulff/dictate/internal/recognize"
	"github.com/jwulff/dictate/internal/session"
	"github.com/jwulff/dictate/internal/transcript"
)

type RecordCmd struct {
	Language    string `short:"l" help:"Recognition language."`
	Engine      string `short:"e" help:"Engine (cloud or offline)."`
	Format      string `short:"f" help:"Save format on exit (txt, json, csv)."`
	NoTimestamp bool   `help:"Omit the timestamp from the saved file."`
	Dir         string `short:"d" type:"path" help:"Save directory."`
	Input       string `type:"existingfile" help:"Replay a 16-bit WAV file instead of the microphone."`
}

func (c *RecordCmd) Run(g *Globals) error {
	cfg, err := g.load()
	if err != nil {
		return err
	}
	if c.Language != "" {
		cfg.Language = c.Language
	}
	if c.Engine != "" {
		cfg.Engine = c.Engine
	}
	opts, err := saveOptions(cfg.Save.Format, !c.NoTimestamp && cfg.Save.IncludeTimestamp, cfg.Save.Directory, c.Format, c.Dir)
	if err != nil {
		return err
	}

	logger, closer, err := g.logger(cfg, false)
	if err != nil {
		return err
	}
	defer closer.Close()
	warnConfig(cfg, logger)

	var mic audio.Microphone
	if c.Input != "" {
		replay, err := audio.OpenWAVFile(c.Input)
		if err != nil {
			return err
		}
		mic = replay
	} else {
		pa, err := audio.NewPortAudio(cfg.Audio.SampleRate)
		if err != nil {
			return err
		}
		defer pa.Close()
		mic = pa
	}

	engines := recognize.NewFactory(cfg, logger)
	defer engines.Close()

	store, sessionID := openArchive(cfg, logger)
	if store != nil {
		defer store.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ticker := newTicker(cfg, mic, logger)
	ticker.Progress = func(p session.Phase) { logger.Debug(p.String()) }
	ctrl := session.NewController(ticker, engines, cfg.Language, cfg.Engine, logger)
	rec := &recorder{
		ctrl:    ctrl,
		writer:  &transcript.Writer{},
		opts:    opts,
		visible: cfg.History.Visible,
		out:     os.Stdout,
		log:     logger,
	}
	if store != nil && sessionID != "" {
		rec.store = store
		rec.sessionID = sessionID
	}

	ctrl.OnResult = rec.onResult
	if cfg.Control.Enabled {
		srv, err := control.Listen(cfg.Control.Socket, rec.handle, logger)
		if err != nil {
			return err
		}
		defer srv.Close()
		rec.notify = srv.Broadcast
		go srv.Serve(ctx)
	}
	ctrl.OnChange = rec.onChange

	ctrl.Start()
	fmt.Fprintln(os.Stderr, "Recording... press Ctrl+C to stop.")
	switch err := ctrl.Run(ctx); {
	case errors.Is(err, session.ErrEndOfInput):
		logger.Info("input ended", "file", c.Input)
	case err != nil && !errors.Is(err, context.Canceled):
		return err
	}

	if _, err := rec.stop(); err != nil {
		return err
	}
	if store != nil && sessionID != "" {
		if err := store.EndSession(sessionID); err != nil {
			logger.Warn("end session", "error", err)
		}
	}
	return nil
}

// recorder drives a headless session and answers control commands.
type recorder struct {
	ctrl      *session.Controller
	writer    *transcript.Writer
	opts      transcript.Options
	visible   int
	store     *db.Store
	sessionID string
	notify    func(control.Event)
	out       io.Writer
	log       *log.Logger
}

func (r *recorder) onResult(_ session.State, res recognize.Result) {
	switch res.Kind {
	case recognize.KindOK:
		fmt.Fprintln(r.out, res.Text)
		r.emit(control.Event{Event: control.EventFragment, Text: res.Text})
	case recognize.KindTransportError:
		r.emit(control.Event{
			Event:     control.EventError,
			Message:   "Could not request results; " + res.Err.Error(),
			Transient: control.BoolPtr(true),
		})
	}
}

func (r *recorder) onChange(s session.State) {
	r.emit(control.Event{Event: control.EventState, Status: session.Status(s), Text: s.Current})
}

func (r *recorder) emit(ev control.Event) {
	if r.notify != nil {
		r.notify(ev)
	}
}

// stop ends the recording, archives it and saves it with the configured
// options. An empty transcript is neither archived nor saved.
func (r *recorder) stop() (string, error) {
	prev := r.ctrl.Snapshot()
	if !prev.Recording {
		return "", nil
	}
	before := len(prev.History)
	s := r.ctrl.Stop()
	if s.Current == "" {
		return "", nil
	}

	var transcriptID string
	if r.store != nil && len(s.History) > before {
		lang, engine := r.ctrl.Selection()
		tr, err := r.store.ArchiveTranscript(r.sessionID, s.Current, lang, engine)
		if err != nil {
			r.log.Warn("archive transcript", "error", err)
		} else {
			transcriptID = tr.ID
		}
	}
	return r.save(s.Current, r.opts, transcriptID)
}

func (r *recorder) save(text string, opts transcript.Options, transcriptID string) (string, error) {
	path, err := r.writer.Save(text, opts)
	if err != nil {
		return "", fmt.Errorf("error saving transcript: %w", err)
	}
	var size int64
	if fi, err := os.Stat(path); err == nil {
		size = fi.Size()
	}
	fmt.Fprintf(r.out, "Successfully saved transcript as: %s (%s)\n", path, humanize.Bytes(uint64(size)))
	if r.store != nil {
		if _, err := r.store.RecordSave(transcriptID, path, string(opts.Format), size); err != nil {
			r.log.Warn("record save", "error", err)
		}
	}
	r.emit(control.Event{Event: control.EventSaved, Path: path})
	return path, nil
}

func (r *recorder) status() control.Response {
	s := r.ctrl.Snapshot()
	lang, engine := r.ctrl.Selection()
	return control.Response{
		OK:         true,
		Status:     session.Status(s),
		Recording:  control.BoolPtr(s.Recording),
		Paused:     control.BoolPtr(s.Paused),
		Transcript: s.Current,
		History:    control.IntPtr(len(s.History)),
		Language:   lang,
		Engine:     engine,
	}
}

// handle answers control socket commands for a headless recording.
func (r *recorder) handle(cmd control.Command) control.Response {
	switch cmd.Cmd {
	case control.CmdStart:
		r.ctrl.Start()
	case control.CmdStop:
		if _, err := r.stop(); err != nil {
			return control.Fail(err)
		}
	case control.CmdPause:
		if !r.ctrl.Snapshot().Recording {
			return control.Fail(errors.New("not recording"))
		}
		r.ctrl.TogglePause()
	case control.CmdStatus:
	case control.CmdSave:
		return r.handleSave(cmd)
	default:
		return control.Fail(fmt.Errorf("unknown command %q", cmd.Cmd))
	}
	return r.status()
}

func (r *recorder) handleSave(cmd control.Command) control.Response {
	s := r.ctrl.Snapshot()
	opts := r.opts
	text := s.Current

	switch {
	case cmd.History != nil:
		// history entries always save with the defaults
		visible := session.Visible(s.History, r.visible)
		n := *cmd.History
		if n < 1 || n > len(visible) {
			return control.Fail(fmt.Errorf("no transcript #%d in history", n))
		}
		text = visible[n-1]
		opts = transcript.DefaultOptions()
	case s.Recording || text == "":
		return control.Fail(errors.New("no stopped transcript to save"))
	case cmd.Format != "":
		f, err := transcript.ParseFormat(cmd.Format)
		if err != nil {
			return control.Fail(err)
		}
		opts.Format = f
	}

	path, err := r.save(text, opts, "")
	if err != nil {
		return control.Fail(err)
	}
	resp := r.status()
	resp.Path = path
	return resp
}
