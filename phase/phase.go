package phase

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/r9y9/gossp/stft"

	"github.com/neurlang/gosep/spectrogram"
)

// Options represents the synthesis parameters of Reconstruct.
type Options struct {
	SampleRate int
	// WindowSize in seconds, 0 selects twice the step size
	WindowSize float64
	// StepSize in seconds
	StepSize float64
	FFTSize  int
	// Square marks the magnitude input as power, so its square root is taken first
	Square      bool
	Preemphasis float64
	// GriffinLimIterations refine the supplied phase, 0 keeps it as is
	GriffinLimIterations int
}

// NewOptions creates Options with the defaults of the separation demo.
func NewOptions() Options {
	return Options{
		SampleRate: 10000,
		StepSize:   0.0256,
		FFTSize:    512,
	}
}

var ErrShapeMismatch = errors.New("phase: magnitude and phase shapes differ")

var ErrEmpty = errors.New("phase: empty spectrogram")

func (o Options) analysis() *spectrogram.Config {
	window := o.WindowSize
	if window == 0 {
		window = 2 * o.StepSize
	}
	return &spectrogram.Config{
		SampleRate: o.SampleRate,
		WindowSize: window,
		StepSize:   o.StepSize,
		FFTSize:    o.FFTSize,
	}
}

// Reconstruct synthesizes a waveform from a magnitude spectrogram and a phase of
// the same [frame][bin] shape. The result has (frames-1)*hop + window samples.
func Reconstruct(mag, ph [][]float64, opts Options) ([]float64, error) {
	if len(mag) == 0 {
		return nil, ErrEmpty
	}
	if len(mag) != len(ph) {
		return nil, fmt.Errorf("%w: %d vs %d frames", ErrShapeMismatch, len(mag), len(ph))
	}
	cfg := opts.analysis()
	s, err := cfg.Analyzer()
	if err != nil {
		return nil, err
	}
	bins := cfg.Bins()

	spec := make(spectrogram.Spectrogram, len(mag))
	for i := range mag {
		if len(mag[i]) != bins || len(ph[i]) != bins {
			return nil, fmt.Errorf("%w: frame %d has %d/%d bins, want %d",
				ErrShapeMismatch, i, len(mag[i]), len(ph[i]), bins)
		}
		spec[i] = make([]complex128, bins)
		for j, m := range mag[i] {
			if opts.Square {
				m = math.Sqrt(math.Max(m, 0))
			}
			spec[i][j] = cmplx.Rect(m, ph[i][j])
		}
	}

	if opts.GriffinLimIterations > 0 {
		spec = GriffinLim(s, spec, cfg.FFTSize, opts.GriffinLimIterations)
	}

	buf := ISTFT(s, spec, cfg.FFTSize)

	if opts.Preemphasis > 0 {
		buf = spectrogram.UndoPreemphasis(buf, opts.Preemphasis)
	}
	return buf, nil
}

// ISTFT inverts a one-sided spectrogram by overlap-add. Each frame is mirrored to
// a full Hermitian spectrum, inverse transformed, windowed and accumulated at its
// hop offset; the sum is normalized by the overlapping squared window.
func ISTFT(s *stft.STFT, spectrum spectrogram.Spectrogram, fftSize int) []float64 {
	numFrames := len(spectrum)
	if numFrames == 0 {
		return nil
	}
	frameLen := len(s.Window)
	reconstructedSignal := make([]float64, frameLen+(numFrames-1)*s.FrameShift)
	windowSum := make([]float64, len(reconstructedSignal))

	full := make([]complex128, fftSize)
	for i := 0; i < numFrames; i++ {
		mirror(full, spectrum[i])
		buf := fft.IFFT(full)
		offset := i * s.FrameShift
		for j := 0; j < frameLen; j++ {
			reconstructedSignal[offset+j] += real(buf[j]) * s.Window[j]
			windowSum[offset+j] += s.Window[j] * s.Window[j]
		}
	}

	for i := range reconstructedSignal {
		if windowSum[i] > 1e-8 {
			reconstructedSignal[i] /= windowSum[i]
		}
	}
	return reconstructedSignal
}

// mirror fills full with the Hermitian extension of the one-sided bins in half.
func mirror(full, half []complex128) {
	n := len(full)
	for k := range full {
		full[k] = 0
	}
	for k := 0; k < len(half) && k <= n/2; k++ {
		full[k] = half[k]
		if k > 0 && k < n-k {
			full[n-k] = cmplx.Conj(half[k])
		}
	}
}

// GriffinLim keeps the magnitude of spectrum and iteratively replaces its phase
// with the phase of the re-analyzed reconstruction.
func GriffinLim(s *stft.STFT, spectrum spectrogram.Spectrogram, fftSize, iterations int) spectrogram.Spectrogram {
	mag := spectrogram.Magnitude(spectrum)
	current := spectrum
	for iter := 0; iter < iterations; iter++ {
		signal := ISTFT(s, current, fftSize)
		estimate := spectrogram.Analyze(s, signal, fftSize)
		next := make(spectrogram.Spectrogram, len(mag))
		for i := range mag {
			next[i] = make([]complex128, len(mag[i]))
			for j, m := range mag[i] {
				var angle float64
				if i < len(estimate) {
					angle = cmplx.Phase(estimate[i][j])
				}
				next[i][j] = cmplx.Rect(m, angle)
			}
		}
		current = next
	}
	return current
}
