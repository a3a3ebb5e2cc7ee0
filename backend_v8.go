//go:build v8

package jsi

import (
	"github.com/cryguy/jsi/internal/core"
	"github.com/cryguy/jsi/internal/v8engine"
)

func newBackend(cfg core.Config) (core.Runtime, error) {
	return v8engine.New(cfg)
}

func init() {
	Register("v8", func(cfg Config) (Runtime, error) { return v8engine.New(cfg) })
}
