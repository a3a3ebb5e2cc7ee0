// Package sourcecache caches transformed script source so repeated
// preparation of the same source skips the transform pass. Entries are
// keyed by the SHA-256 of the raw source and held brotli-compressed.
package sourcecache

import (
	"bytes"
	"container/list"
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
)

type key [sha256.Size]byte

type entry struct {
	key        key
	compressed []byte
}

// Cache is a fixed-capacity LRU. It is instance-local and unsynchronized,
// like the runtime that owns it.
type Cache struct {
	max     int
	order   *list.List // front = most recent
	entries map[key]*list.Element
}

// New returns a cache holding at most max entries. max <= 0 disables the
// cache entirely: Get always misses and Put is a no-op.
func New(max int) *Cache {
	c := &Cache{max: max}
	if max > 0 {
		c.order = list.New()
		c.entries = make(map[key]*list.Element, max)
	}
	return c
}

// Get returns the transformed source for raw, if cached.
func (c *Cache) Get(raw []byte) (string, bool) {
	if c.max <= 0 {
		return "", false
	}
	k := key(sha256.Sum256(raw))
	el, ok := c.entries[k]
	if !ok {
		return "", false
	}
	c.order.MoveToFront(el)
	out, err := decompress(el.Value.(*entry).compressed)
	if err != nil {
		// A corrupt entry is dropped rather than served.
		c.remove(el)
		return "", false
	}
	return out, true
}

// Put stores the transformed source for raw, evicting the least recently
// used entry when full.
func (c *Cache) Put(raw []byte, transformed string) {
	if c.max <= 0 {
		return
	}
	k := key(sha256.Sum256(raw))
	if el, ok := c.entries[k]; ok {
		c.order.MoveToFront(el)
		el.Value.(*entry).compressed = compress(transformed)
		return
	}
	for c.order.Len() >= c.max {
		c.remove(c.order.Back())
	}
	el := c.order.PushFront(&entry{key: k, compressed: compress(transformed)})
	c.entries[k] = el
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	if c.max <= 0 {
		return 0
	}
	return c.order.Len()
}

func (c *Cache) remove(el *list.Element) {
	c.order.Remove(el)
	delete(c.entries, el.Value.(*entry).key)
}

func compress(s string) []byte {
	var buf bytes.Buffer
	w := brotli.NewWriter(&buf)
	_, _ = io.WriteString(w, s)
	_ = w.Close()
	return buf.Bytes()
}

func decompress(b []byte) (string, error) {
	r := brotli.NewReader(bytes.NewReader(b))
	out, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("decompressing cached source: %w", err)
	}
	return string(out), nil
}
