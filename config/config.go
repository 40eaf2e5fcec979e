package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/neurlang/gosep/spectrogram"
)

// Checkpoint names used as keys of Config.Checkpoints.
const (
	DeepClustering = "deep_clustering"
	L41            = "l41"
)

// Config is the separator configuration.
type Config struct {
	// ModelRoot is joined with the relative checkpoint paths.
	ModelRoot   string            `yaml:"model_root"`
	Checkpoints map[string]string `yaml:"checkpoints"`
	SampleRate  int               `yaml:"sample_rate"`
	NumSources  int               `yaml:"num_sources"`
	CacheSize   int               `yaml:"cache_size"`
	LogLevel    string            `yaml:"log_level"`
	LogFormat   string            `yaml:"log_format"`
	Listen      string            `yaml:"listen"`
	NMF         NMF               `yaml:"nmf"`
	Cluster     Cluster           `yaml:"cluster"`
}

type NMF struct {
	Rank       int    `yaml:"rank"`
	Iterations int    `yaml:"iterations"`
	Seed       uint64 `yaml:"seed"`
}

type Cluster struct {
	SilenceThreshold float64 `yaml:"silence_threshold"`
	Iterations       int     `yaml:"iterations"`
	Seed             uint64  `yaml:"seed"`
}

// Default returns the configuration of the separation demo.
func Default() *Config {
	return &Config{
		ModelRoot: filepath.Join("static", "models"),
		Checkpoints: map[string]string{
			DeepClustering: "deep_clustering.ckpt",
			L41:            "lab41_nonorm-final.ckpt",
		},
		SampleRate: 10000,
		NumSources: 2,
		CacheSize:  4,
		LogLevel:   "info",
		LogFormat:  "json",
		Listen:     ":8080",
		NMF: NMF{
			Rank:       8,
			Iterations: 200,
			Seed:       1,
		},
		Cluster: Cluster{
			SilenceThreshold: 40,
			Iterations:       100,
			Seed:             1,
		},
	}
}

var ErrInvalid = errors.New("config: invalid value")

// Load reads a yaml file over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from GOSEP_* environment variables.
func (c *Config) ApplyEnv() {
	c.ModelRoot = EnvOr("GOSEP_MODEL_ROOT", c.ModelRoot)
	c.LogLevel = EnvOr("GOSEP_LOG_LEVEL", c.LogLevel)
	c.LogFormat = EnvOr("GOSEP_LOG_FORMAT", c.LogFormat)
	c.Listen = EnvOr("GOSEP_LISTEN", c.Listen)
	c.NumSources = EnvIntOr("GOSEP_NUM_SOURCES", c.NumSources)
	c.SampleRate = EnvIntOr("GOSEP_SAMPLE_RATE", c.SampleRate)
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	switch {
	case c.SampleRate <= 0:
		return fmt.Errorf("%w: sample_rate %d", ErrInvalid, c.SampleRate)
	case c.NumSources < 1:
		return fmt.Errorf("%w: num_sources %d", ErrInvalid, c.NumSources)
	case c.CacheSize < 1:
		return fmt.Errorf("%w: cache_size %d", ErrInvalid, c.CacheSize)
	case c.NMF.Rank < c.NumSources:
		return fmt.Errorf("%w: nmf.rank %d below num_sources %d", ErrInvalid, c.NMF.Rank, c.NumSources)
	case c.NMF.Iterations < 0 || c.Cluster.Iterations < 1:
		return fmt.Errorf("%w: iterations", ErrInvalid)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	// the analysis window has to fit the FFT at this rate
	feat := spectrogram.NewConfig()
	feat.SampleRate = c.SampleRate
	if _, err := feat.Analyzer(); err != nil {
		return fmt.Errorf("%w: sample_rate %d: %v", ErrInvalid, c.SampleRate, err)
	}
	return nil
}

// CheckpointPath returns the location of a named checkpoint. Absolute entries
// are returned unchanged.
func (c *Config) CheckpointPath(name string) (string, error) {
	rel, ok := c.Checkpoints[name]
	if !ok || rel == "" {
		return "", fmt.Errorf("%w: no checkpoint configured for %q", ErrInvalid, name)
	}
	if filepath.IsAbs(rel) {
		return rel, nil
	}
	return filepath.Join(c.ModelRoot, rel), nil
}
