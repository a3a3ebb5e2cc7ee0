package core

import "go.uber.org/zap"

// Config holds construction-time options shared by all engine adapters.
type Config struct {
	// Engine names a registered backend. Empty selects the build-time
	// default.
	Engine string

	// SourceURL is used as the script name when an evaluation call does
	// not supply one. Empty means "<eval>".
	SourceURL string

	// Transform runs source through esbuild before evaluation, lowering
	// syntax the engine may not support natively.
	Transform bool

	// TransformTarget is the esbuild target when Transform is set.
	// Empty means ES2017.
	TransformTarget string

	// CacheSize bounds the transformed-source cache (entries). Zero means
	// a default of 64; negative disables caching.
	CacheSize int

	// Logger receives adapter diagnostics. Nil means no logging.
	Logger *zap.Logger
}

// DefaultCacheSize is used when Config.CacheSize is zero.
const DefaultCacheSize = 64

// Normalize fills defaults in place.
func (c *Config) Normalize() {
	if c.SourceURL == "" {
		c.SourceURL = "<eval>"
	}
	if c.CacheSize == 0 {
		c.CacheSize = DefaultCacheSize
	}
	if c.TransformTarget == "" {
		c.TransformTarget = "es2017"
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
}
