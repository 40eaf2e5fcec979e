// Command separate splits a mixed recording into its sources.
//
// This tool loads a WAV or FLAC file, runs one of the separation methods
// (deep clustering, L41 or the NMF baseline) and writes one WAV file per source.
// It can also serve separations over HTTP and create checkpoint files.
//
// Usage:
//
//	separate run [--method nmf] [-o outdir] [--png] <audio_file>
//	separate serve [--listen :8080]
//	separate checkpoint init [--kind l41] [--bins 257] [--dim 20] [--seed 1] <ckpt_file>
//
// The output WAV files are named <audio_file>-<n>.wav, with --png adding a mel
// spectrogram image <audio_file>-<n>.png per source.
// Models are read from the model_root of the --config yaml file (default static/models).
package main
