package main

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/jwulff/dictate/internal/app"
	"github.com/jwulff/dictate/internal/audio"
	"github.com/jwulff/dictate/internal/config"
	"github.com/jwulff/dictate/internal/control"
	"github.com/jwulff/dictate/internal/db"
	"github.com/jwulff/dictate/internal/recognize"
	"github.com/jwulff/dictate/internal/transcript"

	tea "github.com/charmbracelet/bubbletea"
)

type TUICmd struct {
	Language string `short:"l" help:"Initial recognition language."`
	Engine   string `short:"e" help:"Initial engine (cloud or offline)."`
}

func (c *TUICmd) Run(g *Globals) error {
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

	logger, closer, err := g.logger(cfg, true)
	if err != nil {
		return err
	}
	defer closer.Close()
	logger.Info("dictate starting", "version", version, "language", cfg.Language, "engine", cfg.Engine)
	warnConfig(cfg, logger)

	mic, err := audio.NewPortAudio(cfg.Audio.SampleRate)
	if err != nil {
		return err
	}
	defer mic.Close()

	engines := recognize.NewFactory(cfg, logger)
	defer engines.Close()

	store, sessionID := openArchive(cfg, logger)
	if store != nil {
		defer store.Close()
		if sessionID != "" {
			defer func() {
				if err := store.EndSession(sessionID); err != nil {
					logger.Warn("end session", "error", err)
				}
			}()
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Notify runs inside the program, after srv is set below.
	var srv *control.Server
	model := app.New(app.Options{
		Context:   ctx,
		Config:    cfg,
		Ticker:    newTicker(cfg, mic, logger),
		Engines:   engines,
		Writer:    &transcript.Writer{},
		Store:     store,
		SessionID: sessionID,
		Notify: func(ev control.Event) {
			if srv != nil {
				srv.Broadcast(ev)
			}
		},
		Log: logger,
	})
	p := tea.NewProgram(model, tea.WithAltScreen())

	if cfg.Control.Enabled {
		srv, err = control.Listen(cfg.Control.Socket, app.ControlHandler(p), logger)
		if err != nil {
			return err
		}
		defer srv.Close()
		go srv.Serve(ctx)
	}

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	logger.Info("dictate stopped")
	return nil
}

// openArchive opens the history database and begins a session. Archive
// failures are logged, not fatal: recording works without history.
func openArchive(cfg config.Config, logger *log.Logger) (*db.Store, string) {
	if !cfg.History.Archive {
		return nil, ""
	}
	store, err := db.Open(cfg.History.DBPath)
	if err != nil {
		logger.Warn("history archive unavailable", "path", cfg.History.DBPath, "error", err)
		return nil, ""
	}
	// a run that crashed leaves its session active
	if stale, err := store.ActiveSession(); err != nil {
		logger.Warn("active session", "error", err)
	} else if stale != nil {
		logger.Info("closing stale session", "id", stale.ID, "started", stale.StartedAt)
		if err := store.EndSession(stale.ID); err != nil {
			logger.Warn("end stale session", "error", err)
		}
	}
	sess, err := store.BeginSession(cfg.Language, cfg.Engine)
	if err != nil {
		logger.Warn("begin session", "error", err)
		return store, ""
	}
	return store, sess.ID
}

func warnConfig(cfg config.Config, logger *log.Logger) {
	for _, w := range cfg.Warnings() {
		logger.Warn(w)
	}
}
