// Package separate provides the caller-facing separation entry points.
//
// Each entry point takes the path of an audio file and returns one waveform per
// separated source:
//   - DeepClusterSeparate clusters deep clustering embeddings
//   - L41Separate clusters L41 embeddings
//   - NMFSeparate factorizes the mixture spectrogram, no trained model involved
//
// Checkpoint locations come from the injected configuration and loaded
// sessions are shared through a model.Cache.
package separate
