// Package cluster separates a mixture by clustering per-bin embeddings.
//
// The embedding session assigns a vector to every time-frequency bin; k-means
// groups the vectors into sources, and each group becomes a binary mask over
// the mixture magnitude. Masked magnitudes are synthesized with the mixture
// phase.
package cluster
