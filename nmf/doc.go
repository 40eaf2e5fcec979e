// Package nmf implements the non-negative matrix factorization baseline separator.
//
// The mixture magnitude is factorized as V ≈ WH with multiplicative updates;
// the spectral bases in W are grouped into sources and each group's share of
// WH becomes a soft mask over the mixture.
package nmf
