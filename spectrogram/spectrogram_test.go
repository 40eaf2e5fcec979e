package spectrogram

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/neurlang/gosep/audio"
)

func TestPreemphasisRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	x := make([]float64, 2048)
	for i := range x {
		x[i] = rng.Float64()*2 - 1
	}
	for _, coeff := range []float64{0, 0.5, 0.97} {
		y := UndoPreemphasis(Preemphasis(x, coeff), coeff)
		for i := range x {
			if math.Abs(y[i]-x[i]) > 1e-9 {
				t.Fatalf("coeff %.2f: mismatch at %d: got %.12f want %.12f", coeff, i, y[i], x[i])
			}
		}
	}
}

func TestPreemphasisFirstSample(t *testing.T) {
	y := Preemphasis([]float64{1, 1, 1}, 0.97)
	if y[0] != 1 || math.Abs(y[1]-0.03) > 1e-12 || math.Abs(y[2]-0.03) > 1e-12 {
		t.Fatalf("unexpected filter output: %v", y)
	}
}

func TestConfigSamples(t *testing.T) {
	c := NewConfig()
	if got := c.WindowSamples(); got != 512 {
		t.Fatalf("expected 512 window samples, got %d", got)
	}
	if got := c.StepSamples(); got != 256 {
		t.Fatalf("expected 256 step samples, got %d", got)
	}
	if got := c.Bins(); got != 257 {
		t.Fatalf("expected 257 bins, got %d", got)
	}
}

func TestAnalyzerRejectsBadWindow(t *testing.T) {
	c := NewConfig()
	c.FFTSize = 256
	if _, err := c.Analyzer(); !errors.Is(err, ErrBadWindow) {
		t.Fatalf("expected ErrBadWindow, got %v", err)
	}
	c = NewConfig()
	c.StepSize = 0
	if _, err := c.STFT(make([]float64, 1024)); !errors.Is(err, ErrBadWindow) {
		t.Fatalf("expected ErrBadWindow for zero step, got %v", err)
	}
}

func TestSTFTShape(t *testing.T) {
	c := NewConfig()
	x := make([]float64, 10000)
	spec, err := c.STFT(x)
	if err != nil {
		t.Fatalf("STFT error: %v", err)
	}
	frames, bins := Shape(spec)
	if frames != (10000-512)/256+1 {
		t.Fatalf("unexpected frame count %d", frames)
	}
	if bins != 257 {
		t.Fatalf("unexpected bin count %d", bins)
	}

	short, err := c.STFT(make([]float64, 100))
	if err != nil {
		t.Fatalf("STFT error: %v", err)
	}
	if len(short) != 1 {
		t.Fatalf("expected a single padded frame, got %d", len(short))
	}
}

func TestSTFTPeakBin(t *testing.T) {
	c := NewConfig()
	c.Preemphasis = 0
	// 1250 Hz falls exactly on bin 64 with a 512-point FFT at 10 kHz.
	x := make([]float64, 4096)
	for i := range x {
		x[i] = math.Sin(2 * math.Pi * 1250 * float64(i) / 10000)
	}
	spec, err := c.Features(audio.Signal{Samples: x, SampleRate: 10000})
	if err != nil {
		t.Fatalf("Features error: %v", err)
	}
	mag := Magnitude(spec)
	peak := 0
	for j := range mag[3] {
		if mag[3][j] > mag[3][peak] {
			peak = j
		}
	}
	if peak != 64 {
		t.Fatalf("expected peak at bin 64, got %d", peak)
	}
}

func TestPowerAndLog(t *testing.T) {
	spec := Spectrogram{{complex(3, 4), 0}}
	p := Power(spec)
	if p[0][0] != 25 || p[0][1] != 0 {
		t.Fatalf("unexpected power: %v", p)
	}
	l := LogMagnitude(Magnitude(spec), 1)
	if math.Abs(l[0][0]-math.Log(6)) > 1e-12 || l[0][1] != 0 {
		t.Fatalf("unexpected log magnitude: %v", l)
	}
}
