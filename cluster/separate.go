package cluster

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/neurlang/gosep/audio"
	"github.com/neurlang/gosep/model"
	"github.com/neurlang/gosep/phase"
	"github.com/neurlang/gosep/spectrogram"
)

// Options configures Separate.
type Options struct {
	Features *spectrogram.Config
	// SilenceThreshold in dB below the loudest bin; quieter bins do not take part
	// in clustering but are still assigned to the nearest source. 0 disables it.
	SilenceThreshold float64
	Iterations       int
	Seed             uint64
}

// NewOptions creates Options with the defaults of the separation demo.
func NewOptions() Options {
	return Options{
		Features:         spectrogram.NewConfig(),
		SilenceThreshold: 40,
		Iterations:       100,
		Seed:             1,
	}
}

var ErrSources = errors.New("cluster: number of sources must be positive")

// Separate splits sig into numSources waveforms using the embeddings of sess.
// Waveforms are returned in cluster order and sampled at opts.Features.SampleRate.
func Separate(ctx context.Context, sig audio.Signal, sess model.Session, numSources int, opts Options) ([][]float64, error) {
	if numSources < 1 {
		return nil, ErrSources
	}
	cfg := opts.Features
	if cfg == nil {
		cfg = spectrogram.NewConfig()
	}

	spec, err := cfg.Features(sig)
	if err != nil {
		return nil, err
	}
	mag := spectrogram.Magnitude(spec)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	emb, err := sess.Embed(Input(mag))
	if err != nil {
		return nil, err
	}
	frames, bins := spectrogram.Shape(mag)
	if e, b := spectrogram.Shape(emb); e != frames || b != bins {
		return nil, fmt.Errorf("%w: embeddings %dx%d for spectrogram %dx%d",
			model.ErrFeatureShape, e, b, frames, bins)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	labels, err := assign(mag, emb, numSources, opts)
	if err != nil {
		return nil, err
	}

	ph := phase.Unwrap(phase.Angle(spec))
	synth := phase.Options{
		SampleRate:  cfg.SampleRate,
		WindowSize:  cfg.WindowSize,
		StepSize:    cfg.StepSize,
		FFTSize:     cfg.FFTSize,
		Preemphasis: cfg.Preemphasis,
	}

	sources := make([][]float64, numSources)
	for k := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		masked := make([][]float64, frames)
		for t := range masked {
			masked[t] = make([]float64, bins)
			for f := range masked[t] {
				if labels[t][f] == k {
					masked[t][f] = mag[t][f]
				}
			}
		}
		sources[k], err = phase.Reconstruct(masked, ph, synth)
		if err != nil {
			return nil, fmt.Errorf("source %d: %w", k, err)
		}
	}
	return sources, nil
}

// Input compresses the mixture magnitude into the network input: the log of the
// square-root magnitude, standardized to zero mean and unit variance.
func Input(mag [][]float64) [][]float64 {
	out := make([][]float64, len(mag))
	var all []float64
	for t := range mag {
		out[t] = make([]float64, len(mag[t]))
		for f, v := range mag[t] {
			out[t][f] = math.Log(math.Sqrt(v) + 1e-7)
		}
		all = append(all, out[t]...)
	}
	mean, std := stat.MeanStdDev(all, nil)
	if std == 0 || math.IsNaN(std) {
		std = 1
	}
	for t := range out {
		floats.AddConst(-mean, out[t])
		floats.Scale(1/std, out[t])
	}
	return out
}

// assign clusters the embeddings of the active bins and labels every bin with
// its nearest centroid.
func assign(mag [][]float64, emb [][][]float64, k int, opts Options) ([][]int, error) {
	var peak float64
	for t := range mag {
		peak = math.Max(peak, floats.Max(mag[t]))
	}
	floor := 0.0
	if opts.SilenceThreshold > 0 && peak > 0 {
		floor = peak * math.Pow(10, -opts.SilenceThreshold/20)
	}

	var active [][]float64
	for t := range mag {
		for f, v := range mag[t] {
			if v >= floor {
				active = append(active, emb[t][f])
			}
		}
	}
	if len(active) < k {
		active = active[:0]
		for t := range emb {
			active = append(active, emb[t]...)
		}
	}

	centroids, _, err := KMeans(active, k, opts.Iterations, opts.Seed)
	if err != nil {
		return nil, err
	}
	labels := make([][]int, len(emb))
	for t := range emb {
		labels[t] = make([]int, len(emb[t]))
		for f, v := range emb[t] {
			labels[t][f] = Nearest(centroids, v)
		}
	}
	return labels, nil
}
