package phase

import (
	"math"
	"math/cmplx"

	"github.com/neurlang/gosep/spectrogram"
)

// Angle returns the wrapped phase of every bin, in (-pi, pi].
func Angle(spec spectrogram.Spectrogram) [][]float64 {
	out := make([][]float64, len(spec))
	for i := range spec {
		out[i] = make([]float64, len(spec[i]))
		for j, v := range spec[i] {
			out[i][j] = cmplx.Phase(v)
		}
	}
	return out
}

// Unwrap removes 2*pi discontinuities along the bins of every frame, so that
// consecutive values never differ by more than pi.
func Unwrap(ph [][]float64) [][]float64 {
	out := make([][]float64, len(ph))
	for i := range ph {
		out[i] = unwrap1(ph[i])
	}
	return out
}

func unwrap1(p []float64) []float64 {
	out := make([]float64, len(p))
	if len(p) == 0 {
		return out
	}
	out[0] = p[0]
	var correction float64
	for k := 1; k < len(p); k++ {
		d := p[k] - p[k-1]
		dd := math.Mod(d+math.Pi, 2*math.Pi)
		if dd < 0 {
			dd += 2 * math.Pi
		}
		dd -= math.Pi
		if dd == -math.Pi && d > 0 {
			dd = math.Pi
		}
		if math.Abs(d) >= math.Pi {
			correction += dd - d
		}
		out[k] = p[k] + correction
	}
	return out
}
