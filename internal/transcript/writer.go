// Package transcript writes finished transcripts to disk as txt, json or csv.
package transcript

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Format is an on-disk transcript encoding.
type Format string

const (
	FormatTXT  Format = "txt"
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// Timestamp layouts. ISOLayout matches the JSON payload, dropping to
// ISOSecondsLayout on a whole second. HumanLayout is the txt header and csv
// column, FileLayout the filename suffix.
const (
	ISOLayout        = "2006-01-02T15:04:05.000000"
	ISOSecondsLayout = "2006-01-02T15:04:05"
	HumanLayout      = "2006-01-02 15:04:05"
	FileLayout       = "20060102_150405"
)

// ErrUnknownFormat is returned for formats other than txt, json and csv.
var ErrUnknownFormat = errors.New("unknown transcript format")

// Formats lists the supported formats in selector order.
func Formats() []Format {
	return []Format{FormatTXT, FormatJSON, FormatCSV}
}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatTXT, FormatJSON, FormatCSV:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// MIMEType returns the content type offered when the file is handed out.
func MIMEType(f Format) string {
	return "text/" + string(f)
}

// Record is the JSON shape of a saved transcript.
type Record struct {
	Timestamp string `json:"timestamp,omitempty"`
	Text      string `json:"text"`
}

// Options selects how a transcript is written.
type Options struct {
	Format           Format
	IncludeTimestamp bool
	Directory        string
}

// DefaultOptions are used by per-history-entry saves.
func DefaultOptions() Options {
	return Options{Format: FormatTXT, IncludeTimestamp: true, Directory: "transcripts"}
}

// Writer saves transcripts. The zero value uses time.Now.
type Writer struct {
	Clock func() time.Time
}

// Save writes text with the package default writer.
func Save(text string, opts Options) (string, error) {
	return (&Writer{}).Save(text, opts)
}

// Path returns the destination for a save performed at ts.
func Path(dir string, f Format, ts time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("transcript_%s.%s", ts.Format(FileLayout), f))
}

// Save creates opts.Directory if needed and writes text to
// transcript_YYYYMMDD_HHMMSS.<format> inside it, returning that path.
// Two saves within the same second overwrite each other.
func (w *Writer) Save(text string, opts Options) (string, error) {
	if _, err := ParseFormat(string(opts.Format)); err != nil {
		return "", err
	}
	if opts.Directory == "" {
		return "", errors.New("save directory must not be empty")
	}
	if err := os.MkdirAll(opts.Directory, 0o755); err != nil {
		return "", fmt.Errorf("create save directory: %w", err)
	}

	now := w.now()
	path := Path(opts.Directory, opts.Format, now)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create transcript file: %w", err)
	}

	bw := bufio.NewWriter(f)
	switch opts.Format {
	case FormatTXT:
		err = writeTXT(bw, text, opts.IncludeTimestamp, now)
	case FormatJSON:
		err = writeJSON(bw, text, opts.IncludeTimestamp, now)
	case FormatCSV:
		err = writeCSV(bw, text, opts.IncludeTimestamp, now)
	}
	if err == nil {
		err = bw.Flush()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write %s transcript: %w", opts.Format, err)
	}
	return path, nil
}

func (w *Writer) now() time.Time {
	if w.Clock != nil {
		return w.Clock()
	}
	return time.Now()
}

func writeTXT(w *bufio.Writer, text string, withTS bool, ts time.Time) error {
	if withTS {
		if _, err := fmt.Fprintf(w, "Timestamp: %s\n\n", ts.Format(HumanLayout)); err != nil {
			return err
		}
	}
	_, err := w.WriteString(text)
	return err
}

func writeJSON(w *bufio.Writer, text string, withTS bool, ts time.Time) error {
	rec := Record{Text: text}
	if withTS {
		rec.Timestamp = isoTimestamp(ts)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	enc.SetEscapeHTML(false)
	return enc.Encode(rec)
}

// isoTimestamp omits the fraction when there are no microseconds.
func isoTimestamp(ts time.Time) string {
	if ts.Nanosecond()/1000 == 0 {
		return ts.Format(ISOSecondsLayout)
	}
	return ts.Format(ISOLayout)
}

func writeCSV(w *bufio.Writer, text string, withTS bool, ts time.Time) error {
	cw := csv.NewWriter(w)
	cw.UseCRLF = true
	var rows [][]string
	if withTS {
		rows = [][]string{{"Timestamp", "Text"}, {ts.Format(HumanLayout), text}}
	} else {
		rows = [][]string{{"Text"}, {text}}
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}
