// Package jsi is an engine-agnostic JavaScript runtime boundary. It exposes
// a single Runtime interface over opaque handles, with scope-based lifetime
// management, a host object/function bridge, and a byte-source protocol for
// moving text and buffers across without extra copies where the engine
// allows it. The backing engine is selected at build time: goja by default,
// V8 with the v8 build tag.
package jsi

import (
	"fmt"
	"sort"
	"sync"
)

// Factory constructs a runtime from a config.
type Factory func(cfg Config) (Runtime, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register makes a named runtime factory available to Open. The built-in
// backend registers itself under its engine name; embedders can add more.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// Backends lists the registered factory names, sorted.
func Backends() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open constructs a runtime from a registered factory.
func Open(name string, cfg Config) (Runtime, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no runtime backend registered as %q", name)
	}
	return factory(cfg)
}

// New constructs a runtime. Config.Engine selects a registered backend;
// empty means the build-selected default.
func New(cfg Config) (Runtime, error) {
	if cfg.Engine != "" {
		return Open(cfg.Engine, cfg)
	}
	return newBackend(cfg)
}
