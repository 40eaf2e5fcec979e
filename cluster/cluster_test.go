package cluster

import (
	"context"
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/stat"

	"github.com/neurlang/gosep/audio"
	"github.com/neurlang/gosep/model"
)

// bandSession embeds bins below split at (1, 0) and the rest at (0, 1).
type bandSession struct {
	split int
}

func (b bandSession) Embed(features [][]float64) ([][][]float64, error) {
	out := make([][][]float64, len(features))
	for t := range features {
		out[t] = make([][]float64, len(features[t]))
		for f := range features[t] {
			if f < b.split {
				out[t][f] = []float64{1, 0}
			} else {
				out[t][f] = []float64{0, 1}
			}
		}
	}
	return out, nil
}

func (bandSession) Kind() model.Kind   { return model.KindDeepClustering }
func (bandSession) EmbeddingSize() int { return 2 }
func (bandSession) Close() error       { return nil }

type brokenSession struct{ bandSession }

func (brokenSession) Embed([][]float64) ([][][]float64, error) {
	return [][][]float64{}, nil
}

func tone(freq float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 0.4 * math.Sin(2*math.Pi*freq*float64(i)/10000)
	}
	return out
}

func TestKMeansTwoBlobs(t *testing.T) {
	var points [][]float64
	for i := 0; i < 50; i++ {
		d := float64(i%5) * 0.01
		points = append(points, []float64{d, d}, []float64{5 + d, 5 - d})
	}
	centroids, labels, err := KMeans(points, 2, 50, 7)
	if err != nil {
		t.Fatalf("KMeans error: %v", err)
	}
	if len(centroids) != 2 {
		t.Fatalf("expected 2 centroids, got %d", len(centroids))
	}
	for i := 0; i < len(points); i += 2 {
		if labels[i] == labels[i+1] {
			t.Fatalf("points %d and %d share cluster %d", i, i+1, labels[i])
		}
		if labels[i] != labels[0] {
			t.Fatalf("blob split across clusters at %d", i)
		}
	}
}

func TestKMeansZeroIterationsAssignsLabels(t *testing.T) {
	points := [][]float64{{0, 0}, {0.1, 0}, {9, 9}, {9, 9.1}}
	centroids, labels, err := KMeans(points, 2, 0, 3)
	if err != nil {
		t.Fatalf("KMeans error: %v", err)
	}
	if len(centroids) != 2 {
		t.Fatalf("expected 2 centroids, got %d", len(centroids))
	}
	for i, l := range labels {
		if l < 0 || l >= 2 {
			t.Fatalf("point %d: label %d out of range", i, l)
		}
	}
	if labels[0] != labels[1] || labels[2] != labels[3] || labels[0] == labels[2] {
		t.Fatalf("expected seeded centroids to split the blobs, got %v", labels)
	}
}

func TestKMeansTooFewPoints(t *testing.T) {
	if _, _, err := KMeans([][]float64{{1}}, 2, 10, 1); !errors.Is(err, ErrTooFewPoints) {
		t.Fatalf("expected ErrTooFewPoints, got %v", err)
	}
}

func TestSeparateTwoTones(t *testing.T) {
	n := 10000
	low, high := tone(300, n), tone(3000, n)
	mix := make([]float64, n)
	for i := range mix {
		mix[i] = low[i] + high[i]
	}

	// 1500 Hz is bin 77 of a 512-point FFT at 10 kHz.
	sources, err := Separate(context.Background(), audio.Signal{Samples: mix, SampleRate: 10000},
		bandSession{split: 77}, 2, NewOptions())
	if err != nil {
		t.Fatalf("Separate error: %v", err)
	}
	if len(sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(sources))
	}
	if len(sources[0]) != len(sources[1]) {
		t.Fatalf("source lengths differ: %d vs %d", len(sources[0]), len(sources[1]))
	}

	for name, ref := range map[string][]float64{"low": low, "high": high} {
		best := -1.0
		for _, src := range sources {
			lo, hi := 1024, len(src)-1024
			best = math.Max(best, stat.Correlation(src[lo:hi], ref[lo:hi], nil))
		}
		if best < 0.9 {
			t.Fatalf("%s tone not recovered, best correlation %.3f", name, best)
		}
	}
}

func TestSeparateErrors(t *testing.T) {
	sig := audio.Signal{Samples: tone(440, 4000), SampleRate: 10000}
	if _, err := Separate(context.Background(), sig, bandSession{split: 10}, 0, NewOptions()); !errors.Is(err, ErrSources) {
		t.Fatalf("expected ErrSources, got %v", err)
	}
	if _, err := Separate(context.Background(), sig, brokenSession{}, 2, NewOptions()); !errors.Is(err, model.ErrFeatureShape) {
		t.Fatalf("expected ErrFeatureShape, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Separate(ctx, sig, bandSession{split: 10}, 2, NewOptions()); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestSeparateWithNetwork(t *testing.T) {
	net, err := model.NewNetwork(model.NewRandom(model.KindL41, 257, 8, 11))
	if err != nil {
		t.Fatalf("NewNetwork error: %v", err)
	}
	sig := audio.Signal{Samples: tone(440, 6000), SampleRate: 10000}
	sources, err := Separate(context.Background(), sig, net, 2, NewOptions())
	if err != nil {
		t.Fatalf("Separate error: %v", err)
	}
	want := ((6000-512)/256)*256 + 512
	for k, src := range sources {
		if len(src) != want {
			t.Fatalf("source %d: expected %d samples, got %d", k, want, len(src))
		}
	}
}

func TestInputStandardized(t *testing.T) {
	in := Input([][]float64{{1, 4}, {9, 16}})
	mean, std := stat.MeanStdDev(append(append([]float64(nil), in[0]...), in[1]...), nil)
	if math.Abs(mean) > 1e-12 || math.Abs(std-1) > 1e-12 {
		t.Fatalf("expected standardized input, got mean %.3g std %.3g", mean, std)
	}
}
