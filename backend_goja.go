//go:build !v8

package jsi

import (
	"github.com/cryguy/jsi/internal/core"
	"github.com/cryguy/jsi/internal/gojaengine"
)

func newBackend(cfg core.Config) (core.Runtime, error) {
	return gojaengine.New(cfg)
}

func init() {
	Register("goja", func(cfg Config) (Runtime, error) { return gojaengine.New(cfg) })
}
