//go:build !whispercpp

package recognize

import (
	"errors"

	"github.com/charmbracelet/log"
)

// WhisperCppAvailable reports whether the in-process engine was compiled in.
const WhisperCppAvailable = false

// NewWhisperCpp is unavailable without the whispercpp build tag, which also
// needs libwhisper on the linker path.
func NewWhisperCpp(string, uint, *log.Logger) (Recognizer, error) {
	return nil, errors.New("whisper.cpp support not compiled in (build with -tags whispercpp)")
}
