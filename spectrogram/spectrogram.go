package spectrogram

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/r9y9/gossp/stft"

	"github.com/neurlang/gosep/audio"
)

// Spectrogram is a one-sided complex spectrogram indexed [frame][bin].
type Spectrogram [][]complex128

// Config represents the analysis parameters of the feature transform.
type Config struct {
	SampleRate  int
	WindowSize  float64 // seconds
	StepSize    float64 // seconds
	FFTSize     int
	Preemphasis float64
}

// NewConfig creates a new Config with the defaults of the separation models.
func NewConfig() *Config {
	return &Config{
		SampleRate:  10000,
		WindowSize:  0.0512,
		StepSize:    0.0256,
		FFTSize:     512,
		Preemphasis: 0.97,
	}
}

var ErrBadWindow = errors.New("spectrogram: invalid window configuration")

// WindowSamples returns the analysis window length in samples.
func (c *Config) WindowSamples() int {
	return int(math.Round(c.WindowSize * float64(c.SampleRate)))
}

// StepSamples returns the hop between frames in samples.
func (c *Config) StepSamples() int {
	return int(math.Round(c.StepSize * float64(c.SampleRate)))
}

// Bins returns the number of one-sided frequency bins.
func (c *Config) Bins() int {
	return c.FFTSize/2 + 1
}

// Analyzer returns the framing and window shared by analysis and synthesis.
func (c *Config) Analyzer() (*stft.STFT, error) {
	window, step := c.WindowSamples(), c.StepSamples()
	if window <= 0 || step <= 0 || window > c.FFTSize {
		return nil, fmt.Errorf("%w: window=%d step=%d fft=%d", ErrBadWindow, window, step, c.FFTSize)
	}
	return stft.New(step, window), nil
}

// STFT analyzes x with the configured window, step and FFT size.
func (c *Config) STFT(x []float64) (Spectrogram, error) {
	s, err := c.Analyzer()
	if err != nil {
		return nil, err
	}
	return Analyze(s, x, c.FFTSize), nil
}

// Features computes the mixture spectrogram for a signal: it resamples to the
// analysis rate, applies pre-emphasis and runs the STFT.
func (c *Config) Features(sig audio.Signal) (Spectrogram, error) {
	sig, err := audio.Resample(sig, c.SampleRate)
	if err != nil {
		return nil, err
	}
	x := sig.Samples
	if c.Preemphasis > 0 {
		x = Preemphasis(x, c.Preemphasis)
	}
	return c.STFT(x)
}

// Analyze frames x with s, windows each frame, zero-pads it to fftSize and keeps
// the fftSize/2+1 non-negative frequency bins. Signals shorter than one window
// are zero-padded to a single frame; a trailing partial frame is dropped.
func Analyze(s *stft.STFT, x []float64, fftSize int) Spectrogram {
	frameLen := len(s.Window)
	if len(x) < frameLen {
		x = append(append(make([]float64, 0, frameLen), x...), make([]float64, frameLen-len(x))...)
	}
	numFrames := (len(x)-frameLen)/s.FrameShift + 1
	bins := fftSize/2 + 1

	spectrum := make(Spectrogram, numFrames)
	frame := make([]float64, fftSize)
	for i := range spectrum {
		offset := i * s.FrameShift
		for j := range frame {
			frame[j] = 0
		}
		for j := 0; j < frameLen; j++ {
			frame[j] = x[offset+j] * s.Window[j]
		}
		coeffs := fft.FFTReal(frame)
		spectrum[i] = append(make([]complex128, 0, bins), coeffs[:bins]...)
	}
	return spectrum
}

// Shape returns the number of frames and bins.
func Shape[T any](m [][]T) (frames, bins int) {
	if len(m) == 0 {
		return 0, 0
	}
	return len(m), len(m[0])
}

// Magnitude returns |X| for every bin.
func Magnitude(spec Spectrogram) [][]float64 {
	out := make([][]float64, len(spec))
	for i := range spec {
		out[i] = make([]float64, len(spec[i]))
		for j, v := range spec[i] {
			out[i][j] = cmplx.Abs(v)
		}
	}
	return out
}

// Power returns |X|^2 for every bin.
func Power(spec Spectrogram) [][]float64 {
	out := Magnitude(spec)
	for i := range out {
		for j := range out[i] {
			out[i][j] *= out[i][j]
		}
	}
	return out
}

// LogMagnitude returns log(m + floor) for every bin.
func LogMagnitude(mag [][]float64, floor float64) [][]float64 {
	out := make([][]float64, len(mag))
	for i := range mag {
		out[i] = make([]float64, len(mag[i]))
		for j, v := range mag[i] {
			out[i][j] = math.Log(v + floor)
		}
	}
	return out
}
