package audio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Signal is a mono sample buffer paired with its sample rate in Hz.
type Signal struct {
	Samples    []float64
	SampleRate int
}

// Duration returns the playing time of the signal.
func (s Signal) Duration() time.Duration {
	if s.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(s.Samples)) / float64(s.SampleRate) * float64(time.Second))
}

var ErrFileNotLoaded = errors.New("audio: file decoded to no samples")

var ErrUnsupportedFormat = errors.New("audio: unsupported format")

// Format returns the decoder name for a file path, based on its extension.
func Format(path string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}

// Load decodes a wav or flac file into a mono Signal.
func Load(path string) (Signal, error) {
	file, err := os.Open(path)
	if err != nil {
		return Signal{}, err
	}
	defer file.Close()

	sig, err := Decode(file, Format(path))
	if err != nil {
		return Signal{}, fmt.Errorf("load %s: %w", path, err)
	}
	return sig, nil
}

// Decode reads a whole stream of the given format ("wav" or "flac") into a mono Signal.
func Decode(r io.Reader, format string) (Signal, error) {
	var (
		sig Signal
		err error
	)
	switch strings.ToLower(format) {
	case "wav", "wave":
		sig, err = decodeWav(r)
	case "flac":
		sig, err = decodeFlac(r)
	default:
		return Signal{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return Signal{}, err
	}
	if len(sig.Samples) == 0 || sig.SampleRate <= 0 {
		return Signal{}, ErrFileNotLoaded
	}
	return sig, nil
}
