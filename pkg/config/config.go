// Package config reads forthc settings from the environment.
package config

import (
	"fmt"
	"strings"

	"github.com/xyproto/env/v2"
)

// Environment variables understood by Load.
const (
	EnvVerbose        = "FORTHC_VERBOSE"
	EnvColor          = "FORTHC_COLOR"
	EnvGas            = "FORTHC_GAS"
	EnvExt            = "FORTHC_EXT"
	EnvShadowWarnings = "FORTHC_SHADOW_WARNINGS"
)

const (
	DefaultGas = 1000000
	DefaultExt = ".hex"
)

// ColorMode selects when diagnostics are colored.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

// ParseColorMode accepts auto, always or never in any case.
func ParseColorMode(s string) (ColorMode, error) {
	switch m := ColorMode(strings.ToLower(strings.TrimSpace(s))); m {
	case ColorAuto, ColorAlways, ColorNever:
		return m, nil
	case "":
		return ColorAuto, nil
	}
	return "", fmt.Errorf("invalid color mode %q (want auto, always or never)", s)
}

type Config struct {
	Verbose        bool
	Color          ColorMode
	Gas            int
	OutputExt      string
	ShadowWarnings bool
}

// Default returns the settings used when no variable is set.
func Default() *Config {
	return &Config{
		Color:          ColorAuto,
		Gas:            DefaultGas,
		OutputExt:      DefaultExt,
		ShadowWarnings: true,
	}
}

// Load builds a Config from the environment.
func Load() (*Config, error) {
	cfg := Default()

	cfg.Verbose = env.Bool(EnvVerbose)
	cfg.Gas = env.Int(EnvGas, DefaultGas)
	if cfg.Gas < 0 {
		return nil, fmt.Errorf("%s must not be negative, got %d", EnvGas, cfg.Gas)
	}

	color, err := ParseColorMode(env.Str(EnvColor, string(ColorAuto)))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", EnvColor, err)
	}
	cfg.Color = color

	ext := env.Str(EnvExt, DefaultExt)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	cfg.OutputExt = ext

	if env.Has(EnvShadowWarnings) {
		cfg.ShadowWarnings = env.Bool(EnvShadowWarnings)
	}
	return cfg, nil
}

// UseColor reports whether output written to fd should carry ANSI colors.
func (c *Config) UseColor(fd uintptr) bool {
	switch c.Color {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	}
	return IsTerminal(fd)
}
