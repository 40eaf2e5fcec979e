package nmf

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/neurlang/gosep/cluster"
)

// eps keeps the multiplicative updates away from division by zero.
const eps = 1e-12

// Options configures Separate.
type Options struct {
	Rank       int
	Iterations int
	Seed       uint64
}

// NewOptions creates Options with the defaults of the separation demo.
func NewOptions() Options {
	return Options{
		Rank:       8,
		Iterations: 200,
		Seed:       1,
	}
}

var ErrRank = errors.New("nmf: rank must be at least the number of sources")

var ErrNegative = errors.New("nmf: input must be non-negative")

// Factorize approximates the non-negative matrix V (rows x cols) by W (rows x rank)
// times H (rank x cols), minimizing the Euclidean distance with Lee-Seung updates.
func Factorize(V mat.Matrix, rank, iterations int, seed uint64) (W, H *mat.Dense, err error) {
	rows, cols := V.Dims()
	if rank < 1 {
		return nil, nil, ErrRank
	}
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if V.At(i, j) < 0 {
				return nil, nil, fmt.Errorf("%w: V[%d,%d]", ErrNegative, i, j)
			}
		}
	}

	rng := rand.New(rand.NewPCG(seed, seed^0x5851f42d4c957f2d))
	scale := mat.Sum(V) / float64(rows*cols*rank)
	W = mat.NewDense(rows, rank, nil)
	H = mat.NewDense(rank, cols, nil)
	W.Apply(func(_, _ int, _ float64) float64 { return (rng.Float64() + eps) * 2 * scale }, W)
	H.Apply(func(_, _ int, _ float64) float64 { return rng.Float64() + eps }, H)

	var num, den, gram mat.Dense
	for iter := 0; iter < iterations; iter++ {
		// H <- H * (W'V) / (W'WH)
		num.Mul(W.T(), V)
		gram.Mul(W.T(), W)
		den.Mul(&gram, H)
		H.Apply(func(i, j int, h float64) float64 {
			return h * num.At(i, j) / (den.At(i, j) + eps)
		}, H)

		// W <- W * (VH') / (WHH')
		num.Reset()
		den.Reset()
		gram.Reset()
		num.Mul(V, H.T())
		gram.Mul(H, H.T())
		den.Mul(W, &gram)
		W.Apply(func(i, j int, w float64) float64 {
			return w * num.At(i, j) / (den.At(i, j) + eps)
		}, W)
		num.Reset()
		den.Reset()
		gram.Reset()
	}
	return W, H, nil
}

// Separate splits a mixture magnitude [frame][bin] into numSources magnitude
// estimates of the same shape. Bases are grouped by k-means on their normalized
// spectra and each source keeps V * (W_g H_g) / (WH).
func Separate(mag [][]float64, numSources int, opts Options) ([][][]float64, error) {
	if numSources < 1 || opts.Rank < numSources {
		return nil, fmt.Errorf("%w: rank=%d sources=%d", ErrRank, opts.Rank, numSources)
	}
	frames := len(mag)
	if frames == 0 {
		return nil, errors.New("nmf: empty spectrogram")
	}
	bins := len(mag[0])

	// V is bins x frames so the columns of W are spectral bases
	V := mat.NewDense(bins, frames, nil)
	for t := range mag {
		if len(mag[t]) != bins {
			return nil, fmt.Errorf("nmf: frame %d has %d bins, want %d", t, len(mag[t]), bins)
		}
		for f, v := range mag[t] {
			V.Set(f, t, v)
		}
	}

	W, H, err := Factorize(V, opts.Rank, opts.Iterations, opts.Seed)
	if err != nil {
		return nil, err
	}

	groups, err := groupBases(W, numSources, opts.Seed)
	if err != nil {
		return nil, err
	}

	var total mat.Dense
	total.Mul(W, H)

	sources := make([][][]float64, numSources)
	for g := range sources {
		var part mat.Dense
		part.Mul(W, mask(H, groups, g))

		sources[g] = make([][]float64, frames)
		for t := range sources[g] {
			sources[g][t] = make([]float64, bins)
			for f := range sources[g][t] {
				sources[g][t][f] = V.At(f, t) * part.At(f, t) / (total.At(f, t) + eps)
			}
		}
	}
	return sources, nil
}

// groupBases assigns every column of W to one of k groups.
func groupBases(W *mat.Dense, k int, seed uint64) ([]int, error) {
	_, rank := W.Dims()
	points := make([][]float64, rank)
	for j := range points {
		points[j] = mat.Col(nil, j, W)
		if norm := floats.Norm(points[j], 2); norm > 0 {
			floats.Scale(1/norm, points[j])
		}
	}
	_, labels, err := cluster.KMeans(points, k, 100, seed)
	return labels, err
}

// mask returns a copy of H with the rows outside group g zeroed.
func mask(H *mat.Dense, groups []int, g int) *mat.Dense {
	out := mat.DenseCopyOf(H)
	_, cols := out.Dims()
	zero := make([]float64, cols)
	for r, label := range groups {
		if label != g {
			out.SetRow(r, zero)
		}
	}
	return out
}
