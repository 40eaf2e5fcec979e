// Package mel renders magnitude spectrograms on the mel scale.
//
// It is used to inspect separation results: each source's magnitude
// spectrogram is folded into mel bands, log compressed, and written as a PNG
// image with one column per frame.
package mel
