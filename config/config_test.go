package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	path, err := cfg.CheckpointPath(L41)
	if err != nil {
		t.Fatalf("CheckpointPath error: %v", err)
	}
	if want := filepath.Join("static", "models", "lab41_nonorm-final.ckpt"); path != want {
		t.Fatalf("expected %q, got %q", want, path)
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gosep.yaml")
	data := []byte(`
model_root: /srv/models
checkpoints:
  l41: /abs/l41.ckpt
num_sources: 3
nmf:
  rank: 12
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.ModelRoot != "/srv/models" || cfg.NumSources != 3 || cfg.NMF.Rank != 12 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.NMF.Iterations != 200 {
		t.Fatalf("expected default nmf iterations to survive, got %d", cfg.NMF.Iterations)
	}
	if p, _ := cfg.CheckpointPath(L41); p != "/abs/l41.ckpt" {
		t.Fatalf("expected absolute checkpoint path, got %q", p)
	}
	if p, _ := cfg.CheckpointPath(DeepClustering); p != filepath.Join("/srv/models", "deep_clustering.ckpt") {
		t.Fatalf("expected merged default checkpoint, got %q", p)
	}
	if _, err := cfg.CheckpointPath("cnn"); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid for unknown checkpoint, got %v", err)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected os.ErrNotExist, got %v", err)
	}
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("num_sources: [1"), 0o644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("GOSEP_MODEL_ROOT", `"  /env/models  "`)
	t.Setenv("GOSEP_NUM_SOURCES", "3")
	t.Setenv("GOSEP_SAMPLE_RATE", "not-int")

	cfg := Default()
	cfg.ApplyEnv()
	if cfg.ModelRoot != "/env/models" {
		t.Fatalf("expected trimmed model root, got %q", cfg.ModelRoot)
	}
	if cfg.NumSources != 3 {
		t.Fatalf("expected 3 sources, got %d", cfg.NumSources)
	}
	if cfg.SampleRate != 10000 {
		t.Fatalf("expected default sample rate on bad int, got %d", cfg.SampleRate)
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"sample rate": func(c *Config) { c.SampleRate = 0 },
		"16 kHz":      func(c *Config) { c.SampleRate = 16000 },
		"sources":     func(c *Config) { c.NumSources = 0 },
		"cache":       func(c *Config) { c.CacheSize = 0 },
		"rank":        func(c *Config) { c.NMF.Rank = 1 },
		"iterations":  func(c *Config) { c.Cluster.Iterations = 0 },
		"log level":   func(c *Config) { c.LogLevel = "loud" },
	}
	for name, mutate := range cases {
		cfg := Default()
		mutate(cfg)
		if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
			t.Errorf("%s: expected ErrInvalid, got %v", name, err)
		}
	}
}

func TestValidateSampleRates(t *testing.T) {
	for _, rate := range []int{8000, 10000} {
		cfg := Default()
		cfg.SampleRate = rate
		if err := cfg.Validate(); err != nil {
			t.Errorf("%d Hz: unexpected error %v", rate, err)
		}
	}
	// a 0.0512 s window is 819 samples at 16 kHz, beyond the 512-point FFT
	t.Setenv("GOSEP_SAMPLE_RATE", "16000")
	cfg := Default()
	cfg.ApplyEnv()
	if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid for 16000 Hz, got %v", err)
	}
}

func TestNewLogger(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		l, err := NewLogger("debug", format)
		if err != nil {
			t.Fatalf("%s: NewLogger error: %v", format, err)
		}
		if !l.Core().Enabled(-1) {
			t.Fatalf("%s: expected debug level enabled", format)
		}
	}
	if _, err := NewLogger("info", "xml"); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid for format, got %v", err)
	}
}
