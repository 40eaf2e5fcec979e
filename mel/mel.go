package mel

import (
	"errors"
	"math"
)

// Options configures the mel projection of a magnitude spectrogram.
type Options struct {
	NumMels int
	Fmin    float64
	// Fmax of 0 means the Nyquist frequency.
	Fmax float64
	// Floor is the smallest magnitude kept before the log.
	Floor float64
	// Reverse puts low frequencies at the bottom of rendered images.
	Reverse bool
}

// NewOptions returns the options used by the command line renderer.
func NewOptions() *Options {
	return &Options{
		NumMels: 80,
		Floor:   1e-5,
		Reverse: true,
	}
}

var (
	ErrEmpty = errors.New("mel: empty spectrogram")
	ErrBands = errors.New("mel: NumMels must be positive")
)

const (
	melBreakFrequencyHertz = 700.0
	melHighFrequencyQ      = 1127.0
)

func MelToHz(value float64) float64 {
	return melBreakFrequencyHertz * (math.Exp(value/melHighFrequencyQ) - 1.0)
}

func HzToMel(value float64) float64 {
	return melHighFrequencyQ * math.Log(1.0+(value/melBreakFrequencyHertz))
}

// Spectrogram folds a frames x bins magnitude spectrogram into frames x NumMels
// log magnitudes. Bands narrower than one bin interpolate between neighbours,
// wider bands average the bins they cover.
func Spectrogram(mag [][]float64, sampleRate int, opts *Options) ([][]float64, error) {
	if len(mag) == 0 || len(mag[0]) < 2 {
		return nil, ErrEmpty
	}
	if opts.NumMels < 1 {
		return nil, ErrBands
	}
	bins := len(mag[0])
	nyquist := float64(sampleRate) / 2
	fmax := opts.Fmax
	if fmax <= 0 || fmax > nyquist {
		fmax = nyquist
	}
	lowMel, highMel := HzToMel(opts.Fmin), HzToMel(fmax)
	step := (highMel - lowMel) / float64(opts.NumMels)

	// bin position of every band edge
	edges := make([]float64, opts.NumMels+1)
	for i := range edges {
		hz := MelToHz(lowMel + step*float64(i))
		edges[i] = math.Min(hz/nyquist*float64(bins-1), float64(bins-1))
	}

	out := make([][]float64, len(mag))
	for t, frame := range mag {
		row := make([]float64, opts.NumMels)
		for i := range row {
			lo, hi := edges[i], edges[i+1]
			var v float64
			if base, frac := math.Modf(lo); hi-lo < 1 {
				k := int(base)
				v = frame[k]
				if k+1 < bins {
					v = frame[k]*(1-frac) + frame[k+1]*frac
				}
			} else {
				var total float64
				n := 0
				for k := int(base); k <= int(hi) && k < bins; k++ {
					total += frame[k]
					n++
				}
				v = total / float64(n)
			}
			row[i] = math.Log(math.Max(v, opts.Floor))
		}
		out[t] = row
	}
	return out, nil
}
