package nmf

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func lowRank(rows, cols int) *mat.Dense {
	rng := rand.New(rand.NewPCG(1, 1))
	a := mat.NewDense(rows, 2, nil)
	b := mat.NewDense(2, cols, nil)
	a.Apply(func(_, _ int, _ float64) float64 { return rng.Float64() }, a)
	b.Apply(func(_, _ int, _ float64) float64 { return rng.Float64() }, b)
	var v mat.Dense
	v.Mul(a, b)
	return &v
}

func residual(V, W, H mat.Matrix) float64 {
	var wh, diff mat.Dense
	wh.Mul(W, H)
	diff.Sub(V, &wh)
	return mat.Norm(&diff, 2)
}

func TestFactorizeConverges(t *testing.T) {
	V := lowRank(30, 40)
	W0, H0, err := Factorize(V, 2, 0, 3)
	if err != nil {
		t.Fatalf("Factorize error: %v", err)
	}
	W, H, err := Factorize(V, 2, 500, 3)
	if err != nil {
		t.Fatalf("Factorize error: %v", err)
	}
	before, after := residual(V, W0, H0), residual(V, W, H)
	if after >= before {
		t.Fatalf("residual did not decrease: %.4f -> %.4f", before, after)
	}
	if rel := after / mat.Norm(V, 2); rel > 0.1 {
		t.Fatalf("relative residual %.4f too large for a rank-2 matrix", rel)
	}
	for _, m := range []*mat.Dense{W, H} {
		r, c := m.Dims()
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				if m.At(i, j) < 0 {
					t.Fatalf("negative factor entry at %d,%d", i, j)
				}
			}
		}
	}
}

func TestFactorizeRejectsNegative(t *testing.T) {
	V := mat.NewDense(2, 2, []float64{1, -1, 0, 2})
	if _, _, err := Factorize(V, 1, 10, 1); !errors.Is(err, ErrNegative) {
		t.Fatalf("expected ErrNegative, got %v", err)
	}
	if _, _, err := Factorize(V, 0, 10, 1); !errors.Is(err, ErrRank) {
		t.Fatalf("expected ErrRank, got %v", err)
	}
}

func TestSeparateSumsToMixture(t *testing.T) {
	V := lowRank(20, 33)
	mag := make([][]float64, 20)
	for i := range mag {
		mag[i] = mat.Row(nil, i, V)
	}

	sources, err := Separate(mag, 2, NewOptions())
	if err != nil {
		t.Fatalf("Separate error: %v", err)
	}
	if len(sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(sources))
	}
	for t0 := range mag {
		for f := range mag[t0] {
			sum := sources[0][t0][f] + sources[1][t0][f]
			if math.Abs(sum-mag[t0][f]) > 1e-6 {
				t.Fatalf("bin %d,%d: sources sum to %.6f, mixture %.6f", t0, f, sum, mag[t0][f])
			}
			for k := range sources {
				if sources[k][t0][f] < 0 {
					t.Fatalf("negative estimate in source %d", k)
				}
			}
		}
	}
}

func TestSeparateErrors(t *testing.T) {
	mag := [][]float64{{1, 2}, {3, 4}}
	opts := NewOptions()
	opts.Rank = 1
	if _, err := Separate(mag, 2, opts); !errors.Is(err, ErrRank) {
		t.Fatalf("expected ErrRank, got %v", err)
	}
	if _, err := Separate(nil, 2, NewOptions()); err == nil {
		t.Fatalf("expected error for empty spectrogram")
	}
	if _, err := Separate([][]float64{{1, 2}, {3}}, 2, NewOptions()); err == nil {
		t.Fatalf("expected error for ragged spectrogram")
	}
}

func TestSeparateSilence(t *testing.T) {
	mag := make([][]float64, 4)
	for i := range mag {
		mag[i] = make([]float64, 9)
	}
	sources, err := Separate(mag, 2, NewOptions())
	if err != nil {
		t.Fatalf("Separate error: %v", err)
	}
	for k := range sources {
		for _, row := range sources[k] {
			for _, v := range row {
				if v != 0 {
					t.Fatalf("expected silent source, got %v", v)
				}
			}
		}
	}
}

func TestSeparateWithoutUpdates(t *testing.T) {
	V := lowRank(10, 17)
	mag := make([][]float64, 10)
	for i := range mag {
		mag[i] = mat.Row(nil, i, V)
	}
	opts := NewOptions()
	opts.Iterations = 0

	sources, err := Separate(mag, 2, opts)
	if err != nil {
		t.Fatalf("Separate error: %v", err)
	}
	// the initial factors still split the whole mixture between the sources
	for t0 := range mag {
		for f := range mag[t0] {
			if sum := sources[0][t0][f] + sources[1][t0][f]; math.Abs(sum-mag[t0][f]) > 1e-6 {
				t.Fatalf("bin %d,%d: sources sum to %.6f, mixture %.6f", t0, f, sum, mag[t0][f])
			}
		}
	}
}
