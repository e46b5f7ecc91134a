// Package recognize turns captured phrases into text through pluggable
// speech-to-text engines.
package recognize

import (
	"context"
	"errors"
	"strings"

	"github.com/jwulff/dictate/internal/audio"
)

// ErrUnintelligible is returned by engines that heard audio but could not
// make words out of it.
var ErrUnintelligible = errors.New("speech was unintelligible")

// Recognizer abstracts STT backends.
type Recognizer interface {
	// Recognize transcribes one phrase. language is a BCP-47 tag such as en-US.
	Recognize(ctx context.Context, c audio.Capture, language string) (string, error)
	Name() string
	Close() error
}

// Kind classifies the outcome of one tick.
type Kind int

const (
	KindOK Kind = iota
	KindNoSpeech
	KindUnintelligible
	KindTransportError
)

func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindNoSpeech:
		return "no-speech"
	case KindUnintelligible:
		return "unintelligible"
	case KindTransportError:
		return "transport-error"
	}
	return "unknown"
}

// Result is the outcome of one listen-and-recognize call.
type Result struct {
	Kind Kind
	Text string
	Err  error
}

func OK(text string) Result { return Result{Kind: KindOK, Text: text} }

func NoSpeech() Result { return Result{Kind: KindNoSpeech} }

func Unintelligible() Result { return Result{Kind: KindUnintelligible} }

func TransportError(err error) Result { return Result{Kind: KindTransportError, Err: err} }

// Visible reports whether the result should be shown to the user.
func (r Result) Visible() bool { return r.Kind == KindTransportError }

// Classify maps an engine's return values onto a Result.
func Classify(text string, err error) Result {
	switch {
	case err == nil && strings.TrimSpace(text) != "":
		return OK(strings.TrimSpace(text))
	case err == nil, errors.Is(err, ErrUnintelligible):
		return Unintelligible()
	case errors.Is(err, audio.ErrWaitTimeout):
		return NoSpeech()
	default:
		return TransportError(err)
	}
}

// BaseLanguage strips the region from a tag: "fr-FR" -> "fr".
func BaseLanguage(tag string) string {
	base, _, _ := strings.Cut(tag, "-")
	return strings.ToLower(base)
}
