// Package phase provides waveform synthesis from magnitude spectrograms and a phase estimate.
//
// This package implements the reconstruction step of magnitude-masking source separation.
// It supports:
//   - Recombining a (possibly power) magnitude spectrogram with a supplied phase
//   - Inverse STFT by windowed overlap-add, normalized by the squared window sum
//   - Undoing the pre-emphasis applied during feature extraction
//   - Phase extraction and unwrapping from a mixture spectrogram
//   - Optional Griffin-Lim refinement of the supplied phase
package phase
