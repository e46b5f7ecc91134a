// Command dictate records speech, transcribes it phrase by phrase and saves
// the transcript as txt, json or csv.
package main

import (
	"fmt"
	"io"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/jwulff/dictate/internal/audio"
	"github.com/jwulff/dictate/internal/config"
	"github.com/jwulff/dictate/internal/logging"
	"github.com/jwulff/dictate/internal/session"
)

var version = "0.1.0-dev"

// Globals are flags shared by every command.
type Globals struct {
	Config   string `help:"Path to config file." type:"path" placeholder:"PATH"`
	LogLevel string `help:"Override the configured log level." placeholder:"LEVEL"`
}

type CLI struct {
	Globals

	Version kong.VersionFlag `help:"Print version and exit."`

	TUI     TUICmd     `cmd:"" default:"1" help:"Run the interactive recorder (default)."`
	Record  RecordCmd  `cmd:"" help:"Record headless, printing phrases as they are recognized."`
	Save    SaveCmd    `cmd:"" help:"Save text from an argument or stdin as a transcript."`
	History HistoryCmd `cmd:"" help:"List archived transcripts."`
	Ctl     CtlCmd     `cmd:"" help:"Control a running recorder over its socket."`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("dictate"),
		kong.Description("Speech-to-text recorder."),
		kong.UsageOnError(),
		kong.Vars{"version": version},
	)
	ctx.FatalIfErrorf(ctx.Run(&cli.Globals))
}

// load reads the config file named by --config, or the default one.
func (g *Globals) load() (config.Config, error) {
	path := g.Config
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	if g.LogLevel != "" {
		cfg.Log.Level = g.LogLevel
	}
	return cfg, nil
}

// logger builds the process logger. The TUI owns the terminal, so it
// logs to the configured file; everything else logs to stderr.
func (g *Globals) logger(cfg config.Config, toFile bool) (*log.Logger, io.Closer, error) {
	lc := logging.Config{Level: cfg.Log.Level}
	if toFile {
		lc.File = cfg.Log.File
	}
	logger, closer, err := logging.New(lc)
	if err != nil {
		return nil, nil, fmt.Errorf("logging: %w", err)
	}
	return logger, closer, nil
}

func newTicker(cfg config.Config, mic audio.Microphone, logger *log.Logger) *session.Ticker {
	return &session.Ticker{
		Mic:      mic,
		Listener: audio.NewListener(cfg.Audio.EnergyThreshold, cfg.Audio.PauseThreshold),
		Timing: session.Timing{
			ListenTimeout:   cfg.Audio.ListenTimeout,
			PhraseTimeLimit: cfg.Audio.PhraseTimeLimit,
			Calibration:     cfg.Audio.Calibration,
		},
		Log: logger,
	}
}
