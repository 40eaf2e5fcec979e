package model

import (
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
	"github.com/x448/float16"
)

// CheckpointVersion is the only checkpoint layout this package reads and writes.
const CheckpointVersion = 1

// Checkpoint is the serialized form of a Network.
// Weights are row-major (Bins*EmbeddingSize) x Bins, stored as float16 bits.
type Checkpoint struct {
	Version       int          `msgpack:"version"`
	Kind          Kind         `msgpack:"kind"`
	Bins          int          `msgpack:"bins"`
	EmbeddingSize int          `msgpack:"embedding_size"`
	Nonlinearity  Nonlinearity `msgpack:"nonlinearity"`
	Normalize     bool         `msgpack:"normalize"`
	Weights       []uint16     `msgpack:"weights"`
	Bias          []uint16     `msgpack:"bias"`
}

var ErrCheckpointVersion = errors.New("model: unsupported checkpoint version")

func pack(v []float64) []uint16 {
	out := make([]uint16, len(v))
	for i, f := range v {
		out[i] = float16.Fromfloat32(float32(f)).Bits()
	}
	return out
}

func unpack(v []uint16) []float64 {
	out := make([]float64, len(v))
	for i, b := range v {
		out[i] = float64(float16.Frombits(b).Float32())
	}
	return out
}

// Defaults returns the activation and normalization each variant is trained with.
func Defaults(kind Kind) (Nonlinearity, bool) {
	if kind == KindL41 {
		return Tanh, false
	}
	return Tanh, true
}

// NewRandom creates a checkpoint with seeded, scaled uniform weights.
func NewRandom(kind Kind, bins, dim int, seed uint64) *Checkpoint {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	scale := 1 / math.Sqrt(float64(bins))
	weights := make([]float64, bins*dim*bins)
	for i := range weights {
		weights[i] = (rng.Float64()*2 - 1) * scale
	}
	bias := make([]float64, bins*dim)
	for i := range bias {
		bias[i] = (rng.Float64()*2 - 1) * 0.1
	}
	nonlin, normalize := Defaults(kind)
	return &Checkpoint{
		Version:       CheckpointVersion,
		Kind:          kind,
		Bins:          bins,
		EmbeddingSize: dim,
		Nonlinearity:  nonlin,
		Normalize:     normalize,
		Weights:       pack(weights),
		Bias:          pack(bias),
	}
}

// Encode writes ckpt as zstd-compressed msgpack.
func Encode(w io.Writer, ckpt *Checkpoint) error {
	enc, err := zstd.NewWriter(w)
	if err != nil {
		return err
	}
	if err := msgpack.NewEncoder(enc).Encode(ckpt); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

// Decode reads a checkpoint written by Encode.
func Decode(r io.Reader) (*Checkpoint, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var ckpt Checkpoint
	if err := msgpack.NewDecoder(dec).Decode(&ckpt); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIncompatible, err)
	}
	if ckpt.Version != CheckpointVersion {
		return nil, fmt.Errorf("%w: %d", ErrCheckpointVersion, ckpt.Version)
	}
	return &ckpt, nil
}

// Save writes ckpt to a file.
func Save(path string, ckpt *Checkpoint) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Encode(f, ckpt); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Load reads a checkpoint file and builds its Network.
func Load(path string) (*Network, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ckpt, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	n, err := NewNetwork(ckpt)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return n, nil
}

// Open is Load returning the Session capability.
func Open(path string) (Session, error) {
	n, err := Load(path)
	if err != nil {
		return nil, err
	}
	return n, nil
}
