// Package model provides the inference-session capability of the embedding separators.
//
// A Session maps per-frame spectral features to one embedding vector per
// time-frequency bin. Sessions are loaded from checkpoint files (zstd-compressed
// msgpack with float16 weights) and can be shared through a Cache so that each
// checkpoint is read once per process.
package model
