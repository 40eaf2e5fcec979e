package spectrogram

// Preemphasis applies the high-pass filter y[n] = x[n] - coeff*x[n-1].
func Preemphasis(x []float64, coeff float64) []float64 {
	y := make([]float64, len(x))
	var prev float64
	for i, v := range x {
		y[i] = v - coeff*prev
		prev = v
	}
	return y
}

// UndoPreemphasis inverts Preemphasis with the recurrence x[n] = y[n] + coeff*x[n-1].
func UndoPreemphasis(y []float64, coeff float64) []float64 {
	x := make([]float64, len(y))
	var prev float64
	for i, v := range y {
		prev = v + coeff*prev
		x[i] = prev
	}
	return x
}
