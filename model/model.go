package model

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Kind names a separation model variant.
type Kind string

const (
	// KindDeepClustering produces unit-norm embeddings.
	KindDeepClustering Kind = "deep_clustering"
	// KindL41 produces tanh embeddings without normalization.
	KindL41 Kind = "l41"
)

// Nonlinearity is the activation applied to the projected embeddings.
type Nonlinearity string

const (
	Tanh     Nonlinearity = "tanh"
	Logistic Nonlinearity = "logistic"
	Linear   Nonlinearity = "linear"
)

// Session is a loaded model ready for inference.
//
// Implementations must be safe for concurrent use.
type Session interface {
	// Embed maps features [frame][bin] to embeddings [frame][bin][EmbeddingSize()].
	Embed(features [][]float64) ([][][]float64, error)
	Kind() Kind
	EmbeddingSize() int
	Close() error
}

var ErrFeatureShape = errors.New("model: feature shape does not match the network")

var ErrIncompatible = errors.New("model: incompatible checkpoint")

// Network is a dense projection from a feature frame to one embedding per bin:
// V_t = act(W x_t + b), reshaped to [bins][dim].
type Network struct {
	kind      Kind
	bins      int
	dim       int
	nonlin    Nonlinearity
	normalize bool
	weights   *mat.Dense // bins*dim x bins
	bias      []float64
}

// NewNetwork builds a Network from a decoded checkpoint.
func NewNetwork(ckpt *Checkpoint) (*Network, error) {
	if ckpt.Bins <= 0 || ckpt.EmbeddingSize <= 0 {
		return nil, fmt.Errorf("%w: bins=%d dim=%d", ErrIncompatible, ckpt.Bins, ckpt.EmbeddingSize)
	}
	rows := ckpt.Bins * ckpt.EmbeddingSize
	if len(ckpt.Weights) != rows*ckpt.Bins || len(ckpt.Bias) != rows {
		return nil, fmt.Errorf("%w: %d weights and %d biases for %dx%d",
			ErrIncompatible, len(ckpt.Weights), len(ckpt.Bias), rows, ckpt.Bins)
	}
	switch ckpt.Nonlinearity {
	case Tanh, Logistic, Linear:
	default:
		return nil, fmt.Errorf("%w: nonlinearity %q", ErrIncompatible, ckpt.Nonlinearity)
	}
	return &Network{
		kind:      ckpt.Kind,
		bins:      ckpt.Bins,
		dim:       ckpt.EmbeddingSize,
		nonlin:    ckpt.Nonlinearity,
		normalize: ckpt.Normalize,
		weights:   mat.NewDense(rows, ckpt.Bins, unpack(ckpt.Weights)),
		bias:      unpack(ckpt.Bias),
	}, nil
}

func (n *Network) Kind() Kind { return n.kind }

func (n *Network) EmbeddingSize() int { return n.dim }

// Bins returns the feature width the network expects.
func (n *Network) Bins() int { return n.bins }

func (n *Network) Close() error { return nil }

// Embed implements Session.
func (n *Network) Embed(features [][]float64) ([][][]float64, error) {
	if len(features) == 0 {
		return nil, nil
	}
	data := make([]float64, 0, len(features)*n.bins)
	for i, row := range features {
		if len(row) != n.bins {
			return nil, fmt.Errorf("%w: frame %d has %d bins, want %d", ErrFeatureShape, i, len(row), n.bins)
		}
		data = append(data, row...)
	}
	x := mat.NewDense(len(features), n.bins, data)

	var y mat.Dense
	y.Mul(x, n.weights.T())

	out := make([][][]float64, len(features))
	for t := range out {
		row := y.RawRowView(t)
		floats.Add(row, n.bias)
		n.activate(row)
		out[t] = make([][]float64, n.bins)
		for f := range out[t] {
			v := append([]float64(nil), row[f*n.dim:(f+1)*n.dim]...)
			if n.normalize {
				if norm := floats.Norm(v, 2); norm > 0 {
					floats.Scale(1/norm, v)
				}
			}
			out[t][f] = v
		}
	}
	return out, nil
}

func (n *Network) activate(v []float64) {
	switch n.nonlin {
	case Tanh:
		for i := range v {
			v[i] = math.Tanh(v[i])
		}
	case Logistic:
		for i := range v {
			v[i] = 1 / (1 + math.Exp(-v[i]))
		}
	}
}
