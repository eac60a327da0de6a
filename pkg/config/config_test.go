package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/user/framenav/pkg/ports"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "framenav.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaults_Valid(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	pf, err := cfg.PixelFormat()
	if err != nil || pf != ports.PixelFormatRGB32 {
		t.Errorf("expected rgb32, got %s (%v)", pf, err)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
scale:
  width: 320
  pixel_format: rgb24
  stride_mode: pow2
enumerator:
  predicate: every-nth
  every_nth: 5
decoder:
  pcm_chunk_bytes: 4096
log_level: debug
`)
	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if cfg.Scale.Width != 320 || cfg.Scale.Height != 0 {
		t.Errorf("unexpected scale size %dx%d", cfg.Scale.Width, cfg.Scale.Height)
	}
	if cfg.Scale.Interpolator != "approx-bilinear" {
		t.Errorf("interpolator default lost: %q", cfg.Scale.Interpolator)
	}
	if cfg.Decoder.PCMChunkBytes != 4096 || cfg.LogLevel != "debug" {
		t.Errorf("unexpected decoder/log settings: %+v %q", cfg.Decoder, cfg.LogLevel)
	}
	p, err := cfg.Predicate()
	if err != nil {
		t.Fatalf("Predicate failed: %v", err)
	}
	if !p.Match(10, ports.IndexEntry{}) || p.Match(11, ports.IndexEntry{}) {
		t.Error("expected every 5th entry to match")
	}
}

func TestLoadFromFile_Errors(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}
	if _, err := LoadFromFile(writeConfig(t, "scale: [")); err == nil {
		t.Error("expected a parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"negative width", func(c *Config) { c.Scale.Width = -1 }},
		{"planar pixel format", func(c *Config) { c.Scale.PixelFormat = "yuv420p" }},
		{"unknown pixel format", func(c *Config) { c.Scale.PixelFormat = "cmyk" }},
		{"stride mode", func(c *Config) { c.Scale.StrideMode = "align16" }},
		{"interpolator", func(c *Config) { c.Scale.Interpolator = "lanczos" }},
		{"predicate", func(c *Config) { c.Enumerator.Predicate = "random" }},
		{"pcm chunk", func(c *Config) { c.Decoder.PCMChunkBytes = -4 }},
		{"log level", func(c *Config) { c.LogLevel = "trace" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.modify(&cfg)
			if err := cfg.Validate(); !errors.Is(err, ports.ErrConfiguration) {
				t.Errorf("expected ErrConfiguration, got %v", err)
			}
		})
	}
}
