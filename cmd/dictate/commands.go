package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jwulff/dictate/internal/control"
	"github.com/jwulff/dictate/internal/db"
	"github.com/jwulff/dictate/internal/transcript"
)

// saveOptions layers command-line overrides over the configured defaults.
func saveOptions(format string, timestamp bool, dir, formatFlag, dirFlag string) (transcript.Options, error) {
	if formatFlag != "" {
		format = formatFlag
	}
	if dirFlag != "" {
		dir = dirFlag
	}
	f, err := transcript.ParseFormat(format)
	if err != nil {
		return transcript.Options{}, err
	}
	return transcript.Options{Format: f, IncludeTimestamp: timestamp, Directory: dir}, nil
}

type SaveCmd struct {
	Text        string `arg:"" optional:"" help:"Text to save. Read from stdin when omitted."`
	Format      string `short:"f" help:"Format (txt, json, csv)."`
	NoTimestamp bool   `help:"Omit the timestamp."`
	Dir         string `short:"d" type:"path" help:"Save directory."`

	stdin io.Reader
	out   io.Writer
}

func (c *SaveCmd) Run(g *Globals) error {
	cfg, err := g.load()
	if err != nil {
		return err
	}
	opts, err := saveOptions(cfg.Save.Format, !c.NoTimestamp && cfg.Save.IncludeTimestamp, cfg.Save.Directory, c.Format, c.Dir)
	if err != nil {
		return err
	}

	text := c.Text
	if text == "" {
		in := c.stdin
		if in == nil {
			in = os.Stdin
		}
		data, err := io.ReadAll(in)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		text = strings.TrimRight(string(data), "\n")
	}
	if text == "" {
		return errors.New("nothing to save")
	}

	path, err := (&transcript.Writer{}).Save(text, opts)
	if err != nil {
		return fmt.Errorf("error saving transcript: %w", err)
	}
	fmt.Fprintf(c.output(), "Successfully saved transcript as: %s\n", path)
	return nil
}

func (c *SaveCmd) output() io.Writer {
	if c.out == nil {
		return os.Stdout
	}
	return c.out
}

type HistoryCmd struct {
	Limit int  `short:"n" default:"10" help:"Number of transcripts to show (0 for all)."`
	Saves bool `short:"s" help:"Also list the files each transcript was saved to."`

	out io.Writer
}

func (c *HistoryCmd) Run(g *Globals) error {
	cfg, err := g.load()
	if err != nil {
		return err
	}
	if _, err := os.Stat(cfg.History.DBPath); errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("no history at %s", cfg.History.DBPath)
	}
	store, err := db.Open(cfg.History.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()
	return c.print(store)
}

func (c *HistoryCmd) print(store *db.Store) error {
	out := c.out
	if out == nil {
		out = os.Stdout
	}

	latest, err := store.LatestSession()
	if err != nil {
		return err
	}
	if latest != nil {
		fmt.Fprintf(out, "Last session: %s · %s, started %s (%s)\n\n",
			latest.Locale, latest.Engine, humanize.Time(latest.StartedAt), latest.Status)
	}

	transcripts, err := store.RecentTranscripts(c.Limit)
	if err != nil {
		return err
	}
	if len(transcripts) == 0 {
		fmt.Fprintln(out, "No transcripts yet.")
		return nil
	}

	for _, tr := range transcripts {
		fmt.Fprintf(out, "%s  %s · %s  %s\n",
			tr.ID[:8], tr.Language, tr.Engine, humanize.Time(tr.CreatedAt))
		fmt.Fprintf(out, "  %s\n", strings.TrimSpace(tr.Text))
		if !c.Saves {
			continue
		}
		saves, err := store.SavesForTranscript(tr.ID)
		if err != nil {
			return err
		}
		for _, s := range saves {
			fmt.Fprintf(out, "  -> %s (%s, %s)\n", s.Path, s.Format, humanize.Bytes(uint64(s.Bytes)))
		}
	}
	return nil
}

type CtlCmd struct {
	Action  string `arg:"" enum:"start,stop,pause,save,status,watch" help:"One of start, stop, pause, save, status, watch."`
	Format  string `short:"f" help:"Format override for save."`
	History int    `short:"n" help:"Save history entry n (1 is the oldest shown) instead of the current transcript."`
	Socket  string `type:"path" help:"Control socket path."`

	out io.Writer
}

func (c *CtlCmd) Run(g *Globals) error {
	path := c.Socket
	if path == "" {
		cfg, err := g.load()
		if err != nil {
			return err
		}
		path = cfg.Control.Socket
	}

	client, err := control.Connect(path)
	if err != nil {
		return err
	}
	defer client.Close()
	return c.run(client)
}

func (c *CtlCmd) run(client *control.Client) error {
	out := c.out
	if out == nil {
		out = os.Stdout
	}

	if c.Action == "watch" {
		return watch(client, out)
	}

	cmd := control.Command{Cmd: c.Action}
	if c.Action == control.CmdSave {
		cmd.Format = c.Format
		if c.History > 0 {
			cmd.History = control.IntPtr(c.History)
		}
	}

	resp, err := client.SendCommand(cmd)
	if err != nil {
		return err
	}
	if !resp.OK {
		return fmt.Errorf("%s: %s", c.Action, resp.Error)
	}

	fmt.Fprintf(out, "status: %s\n", resp.Status)
	if resp.Language != "" {
		fmt.Fprintf(out, "language: %s  engine: %s\n", resp.Language, resp.Engine)
	}
	if resp.Transcript != "" {
		fmt.Fprintf(out, "transcript: %s\n", strings.TrimSpace(resp.Transcript))
	}
	if resp.History != nil {
		fmt.Fprintf(out, "history: %d\n", *resp.History)
	}
	if resp.Path != "" {
		fmt.Fprintf(out, "saved: %s\n", resp.Path)
	}
	return nil
}

// watch prints events until the recorder goes away.
func watch(client *control.Client, out io.Writer) error {
	if err := client.Subscribe(); err != nil {
		return err
	}

	for {
		ev, err := client.ReadEvent()
		if errors.Is(err, control.ErrClosed) {
			return nil
		}
		if err != nil {
			return err
		}
		switch ev.Event {
		case control.EventState:
			fmt.Fprintf(out, "[%s]\n", ev.Status)
		case control.EventFragment:
			fmt.Fprintln(out, strings.TrimSpace(ev.Text))
		case control.EventSaved:
			fmt.Fprintf(out, "saved %s\n", ev.Path)
		case control.EventError:
			fmt.Fprintf(out, "error: %s\n", ev.Message)
		}
	}
}
