// Package audio loads and saves the mono sample buffers the separation pipeline works on.
//
// It supports:
//   - Decoding WAV (via beep) and FLAC (via mewkiz/flac) files into a mono Signal
//   - Resampling a Signal to the analysis sample rate
//   - Encoding separated waveforms back into 16-bit mono WAV files
package audio
