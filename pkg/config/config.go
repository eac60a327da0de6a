// Package config provides configuration loading and management.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/user/framenav/pkg/adapters/drawscaler"
	"github.com/user/framenav/pkg/decode"
	"github.com/user/framenav/pkg/frameindex"
	"github.com/user/framenav/pkg/ports"
)

// Config represents the full configuration for framenav.
type Config struct {
	Scale      ScaleConfig      `yaml:"scale"`
	Enumerator EnumeratorConfig `yaml:"enumerator"`
	Decoder    DecoderConfig    `yaml:"decoder"`
	LogLevel   string           `yaml:"log_level"`
}

// ScaleConfig sets the output picture layout. Zero width or height keeps
// the source size.
type ScaleConfig struct {
	Width        int    `yaml:"width"`
	Height       int    `yaml:"height"`
	PixelFormat  string `yaml:"pixel_format"`
	StrideMode   string `yaml:"stride_mode"`
	Interpolator string `yaml:"interpolator"`
}

// EnumeratorConfig selects which index entries are visited.
type EnumeratorConfig struct {
	Predicate string `yaml:"predicate"`
	EveryNth  int    `yaml:"every_nth"`
}

// DecoderConfig configures the decoding engines.
type DecoderConfig struct {
	FFmpegPath    string `yaml:"ffmpeg_path"`
	PCMChunkBytes int    `yaml:"pcm_chunk_bytes"`
}

// Defaults returns a Config with default values.
func Defaults() Config {
	return Config{
		Scale: ScaleConfig{
			PixelFormat:  "rgb32",
			StrideMode:   "four-byte-aligned",
			Interpolator: drawscaler.ApproxBiLinear,
		},
		Enumerator: EnumeratorConfig{
			Predicate: "keyframes",
			EveryNth:  1,
		},
		LogLevel: "info",
	}
}

// LoadFromFile loads configuration from a YAML file over the defaults.
func LoadFromFile(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}

	return cfg, cfg.Validate()
}

// Validate checks every enumerated field. Errors wrap ports.ErrConfiguration.
func (c Config) Validate() error {
	if c.Scale.Width < 0 || c.Scale.Height < 0 {
		return fmt.Errorf("%w: negative scale size %dx%d", ports.ErrConfiguration, c.Scale.Width, c.Scale.Height)
	}
	if _, err := c.PixelFormat(); err != nil {
		return err
	}
	if _, err := decode.ParseStrideMode(c.Scale.StrideMode); err != nil {
		return err
	}
	if _, err := drawscaler.ParseInterpolator(c.Scale.Interpolator); err != nil {
		return err
	}
	if _, err := c.Predicate(); err != nil {
		return err
	}
	if c.Decoder.PCMChunkBytes < 0 {
		return fmt.Errorf("%w: negative pcm_chunk_bytes", ports.ErrConfiguration)
	}
	if _, err := ports.ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// PixelFormat returns the configured target pixel format.
func (c Config) PixelFormat() (ports.PixelFormat, error) {
	if c.Scale.PixelFormat == "" {
		return ports.PixelFormatRGB32, nil
	}
	pf := ports.ParsePixelFormat(c.Scale.PixelFormat)
	if !pf.IsTarget() {
		return pf, fmt.Errorf("%w: pixel format %q cannot be a scale target", ports.ErrConfiguration, c.Scale.PixelFormat)
	}
	return pf, nil
}

// Predicate returns the configured enumeration predicate.
func (c Config) Predicate() (frameindex.Predicate, error) {
	p, ok := frameindex.ParsePredicate(c.Enumerator.Predicate, c.Enumerator.EveryNth)
	if !ok {
		return nil, fmt.Errorf("%w: unknown predicate %q", ports.ErrConfiguration, c.Enumerator.Predicate)
	}
	return p, nil
}
