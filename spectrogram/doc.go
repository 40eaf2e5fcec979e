// Package spectrogram turns mono signals into the one-sided complex spectrograms
// consumed by the separation models.
//
// It covers:
//   - First-order pre-emphasis and its inverse
//   - STFT analysis with a Hann window, zero-padded to the FFT size
//   - The fixed feature pipeline (resample, pre-emphasis, STFT) used by every separator
package spectrogram
