package separate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/neurlang/gosep/audio"
	"github.com/neurlang/gosep/cluster"
	"github.com/neurlang/gosep/config"
	"github.com/neurlang/gosep/model"
	"github.com/neurlang/gosep/nmf"
	"github.com/neurlang/gosep/phase"
	"github.com/neurlang/gosep/spectrogram"
)

// Method selects a separation routine.
type Method string

const (
	MethodDeepClustering Method = "deep_clustering"
	MethodL41            Method = "l41"
	MethodNMF            Method = "nmf"
)

// Methods lists every supported method.
var Methods = []Method{MethodDeepClustering, MethodL41, MethodNMF}

var ErrUnknownMethod = errors.New("separate: unknown method")

// ParseMethod converts a method name, accepting "dc" and "lab41" aliases.
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "deep_clustering", "deep-clustering", "dc":
		return MethodDeepClustering, nil
	case "l41", "lab41":
		return MethodL41, nil
	case "nmf":
		return MethodNMF, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMethod, s)
}

// Result is a finished separation.
type Result struct {
	ID         string      `json:"id"`
	Method     Method      `json:"method"`
	SampleRate int         `json:"sample_rate"`
	Sources    [][]float64 `json:"sources"`
}

// Separator wires audio loading, model sessions and reconstruction.
// It is safe for concurrent use.
type Separator struct {
	cfg    *config.Config
	logger *zap.Logger
	cache  *model.Cache
	load   func(path string) (audio.Signal, error)
}

// Option configures a Separator.
type Option func(*Separator)

// WithLogger sets the logger receiving pipeline traces.
func WithLogger(l *zap.Logger) Option {
	return func(s *Separator) { s.logger = l }
}

// WithCache shares a session cache between separators.
func WithCache(c *model.Cache) Option {
	return func(s *Separator) { s.cache = c }
}

// WithAudioLoader replaces audio.Load.
func WithAudioLoader(fn func(path string) (audio.Signal, error)) Option {
	return func(s *Separator) { s.load = fn }
}

// New creates a Separator for a validated configuration.
func New(cfg *config.Config, opts ...Option) (*Separator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Separator{
		cfg:    cfg,
		logger: zap.NewNop(),
		load:   audio.Load,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cache == nil {
		cache, err := model.NewCache(cfg.CacheSize, model.Open)
		if err != nil {
			return nil, err
		}
		s.cache = cache
	}
	return s, nil
}

// DeepClusterSeparate separates the file at inputPath with the deep clustering model.
func (s *Separator) DeepClusterSeparate(ctx context.Context, inputPath string) ([][]float64, error) {
	return s.SeparateFile(ctx, MethodDeepClustering, inputPath)
}

// L41Separate separates the file at inputPath with the L41 model.
func (s *Separator) L41Separate(ctx context.Context, inputPath string) ([][]float64, error) {
	return s.SeparateFile(ctx, MethodL41, inputPath)
}

// NMFSeparate separates the file at inputPath with the NMF baseline.
func (s *Separator) NMFSeparate(ctx context.Context, inputPath string) ([][]float64, error) {
	return s.SeparateFile(ctx, MethodNMF, inputPath)
}

// SeparateFile loads inputPath and separates it with method.
func (s *Separator) SeparateFile(ctx context.Context, method Method, inputPath string) ([][]float64, error) {
	res, err := s.Run(ctx, method, inputPath)
	if err != nil {
		return nil, err
	}
	return res.Sources, nil
}

// Run loads inputPath and separates it, returning the waveforms with their sample rate.
func (s *Separator) Run(ctx context.Context, method Method, inputPath string) (*Result, error) {
	sig, err := s.load(inputPath)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("audio loaded",
		zap.String("path", inputPath),
		zap.Int("sample_rate", sig.SampleRate),
		zap.Int("samples", len(sig.Samples)))
	return s.SeparateSignal(ctx, method, sig)
}

// SeparateSignal separates an already decoded signal, resampling it to the
// configured rate first.
func (s *Separator) SeparateSignal(ctx context.Context, method Method, sig audio.Signal) (*Result, error) {
	id := uuid.NewString()
	logger := s.logger.With(zap.String("request_id", id), zap.String("method", string(method)))
	start := time.Now()

	if sig.SampleRate != s.cfg.SampleRate {
		logger.Debug("resampling input",
			zap.Int("from", sig.SampleRate),
			zap.Int("to", s.cfg.SampleRate))
		resampled, err := audio.Resample(sig, s.cfg.SampleRate)
		if err != nil {
			logger.Warn("separation failed", zap.Error(err))
			return nil, err
		}
		sig = resampled
	}

	var (
		sources [][]float64
		err     error
	)
	switch method {
	case MethodDeepClustering:
		sources, err = s.clusterSeparate(ctx, logger, config.DeepClustering, model.KindDeepClustering, sig)
	case MethodL41:
		sources, err = s.clusterSeparate(ctx, logger, config.L41, model.KindL41, sig)
	case MethodNMF:
		sources, err = s.nmfSeparate(ctx, logger, sig)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}
	if err != nil {
		logger.Warn("separation failed", zap.Error(err))
		return nil, err
	}

	logger.Info("separation finished",
		zap.Int("sources", len(sources)),
		zap.Duration("elapsed", time.Since(start)))
	return &Result{ID: id, Method: method, SampleRate: s.cfg.SampleRate, Sources: sources}, nil
}

func (s *Separator) features() *spectrogram.Config {
	cfg := spectrogram.NewConfig()
	cfg.SampleRate = s.cfg.SampleRate
	return cfg
}

func (s *Separator) session(name string, kind model.Kind) (model.Session, error) {
	path, err := s.cfg.CheckpointPath(name)
	if err != nil {
		return nil, err
	}
	sess, err := s.cache.Get(path)
	if err != nil {
		return nil, err
	}
	if sess.Kind() != kind {
		return nil, fmt.Errorf("%w: %s holds a %s model, want %s", model.ErrIncompatible, path, sess.Kind(), kind)
	}
	return sess, nil
}

func (s *Separator) clusterSeparate(ctx context.Context, logger *zap.Logger, name string, kind model.Kind, sig audio.Signal) ([][]float64, error) {
	sess, err := s.session(name, kind)
	if err != nil {
		return nil, err
	}
	logger.Debug("session ready", zap.Int("embedding_size", sess.EmbeddingSize()))

	opts := cluster.NewOptions()
	opts.Features = s.features()
	opts.SilenceThreshold = s.cfg.Cluster.SilenceThreshold
	opts.Iterations = s.cfg.Cluster.Iterations
	opts.Seed = s.cfg.Cluster.Seed
	return cluster.Separate(ctx, sig, sess, s.cfg.NumSources, opts)
}

// nmfSeparate squares the NMF magnitude estimates and reconstructs each one as
// power with the unwrapped mixture phase. Pre-emphasis is left in place.
func (s *Separator) nmfSeparate(ctx context.Context, logger *zap.Logger, sig audio.Signal) ([][]float64, error) {
	feat := s.features()
	spec, err := feat.Features(sig)
	if err != nil {
		return nil, err
	}
	frames, bins := spectrogram.Shape(spec)
	logger.Debug("spectrogram ready", zap.Int("frames", frames), zap.Int("bins", bins))

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	estimates, err := nmf.Separate(spectrogram.Magnitude(spec), s.cfg.NumSources, nmf.Options{
		Rank:       s.cfg.NMF.Rank,
		Iterations: s.cfg.NMF.Iterations,
		Seed:       s.cfg.NMF.Seed,
	})
	if err != nil {
		return nil, err
	}

	ph := phase.Unwrap(phase.Angle(spec))
	opts := phase.NewOptions()
	opts.SampleRate = s.cfg.SampleRate
	opts.Square = true

	out := make([][]float64, 0, len(estimates))
	for i, est := range estimates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for t := range est {
			for f := range est[t] {
				est[t][f] *= est[t][f]
			}
		}
		recon, err := phase.Reconstruct(est, ph, opts)
		if err != nil {
			return nil, fmt.Errorf("source %d: %w", i, err)
		}
		logger.Debug("source reconstructed", zap.Int("source", i), zap.Int("samples", len(recon)))
		out = append(out, recon)
	}
	return out, nil
}
