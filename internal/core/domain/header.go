package domain

import "strings"

// Header is an ordered, case-insensitive-lookup container for HTTP header
// fields. Iteration preserves insertion order and original casing, which
// matters for byte-accurate re-serialization of proxied messages.
type Header struct {
	keys   []string
	values [][]string
	index  map[string]int // lowercased key -> position in keys/values
}

// NewHeader returns an empty header container.
func NewHeader() *Header {
	return &Header{index: make(map[string]int)}
}

// Add appends a value for key, preserving any existing values under that key.
func (h *Header) Add(key, value string) {
	if h.index == nil {
		h.index = make(map[string]int)
	}
	lk := strings.ToLower(key)
	if pos, ok := h.index[lk]; ok {
		h.values[pos] = append(h.values[pos], value)
		return
	}
	h.index[lk] = len(h.keys)
	h.keys = append(h.keys, key)
	h.values = append(h.values, []string{value})
}

// Set replaces all values for key with a single value, preserving the
// original position if the key already existed.
func (h *Header) Set(key, value string) {
	if h.index == nil {
		h.index = make(map[string]int)
	}
	lk := strings.ToLower(key)
	if pos, ok := h.index[lk]; ok {
		h.keys[pos] = key
		h.values[pos] = []string{value}
		return
	}
	h.Add(key, value)
}

// Get returns the first value for key, case-insensitively, and whether it was present.
func (h *Header) Get(key string) (string, bool) {
	if h.index == nil {
		return "", false
	}
	pos, ok := h.index[strings.ToLower(key)]
	if !ok || len(h.values[pos]) == 0 {
		return "", false
	}
	return h.values[pos][0], true
}

// Values returns all values for key, case-insensitively.
func (h *Header) Values(key string) []string {
	if h.index == nil {
		return nil
	}
	pos, ok := h.index[strings.ToLower(key)]
	if !ok {
		return nil
	}
	return h.values[pos]
}

// Del removes key, case-insensitively. No-op if absent.
func (h *Header) Del(key string) {
	if h.index == nil {
		return
	}
	lk := strings.ToLower(key)
	pos, ok := h.index[lk]
	if !ok {
		return
	}
	delete(h.index, lk)
	h.keys = append(h.keys[:pos], h.keys[pos+1:]...)
	h.values = append(h.values[:pos], h.values[pos+1:]...)
	for k, p := range h.index {
		if p > pos {
			h.index[k] = p - 1
		}
	}
}

// Has reports whether key is present, case-insensitively.
func (h *Header) Has(key string) bool {
	_, ok := h.Get(key)
	return ok
}

// Range calls fn for every header in insertion order, once per value.
func (h *Header) Range(fn func(key, value string)) {
	for i, k := range h.keys {
		for _, v := range h.values[i] {
			fn(k, v)
		}
	}
}

// Clone returns a deep copy of h.
func (h *Header) Clone() *Header {
	c := NewHeader()
	h.Range(func(k, v string) { c.Add(k, v) })
	return c
}

// Len returns the number of distinct header names.
func (h *Header) Len() int {
	return len(h.keys)
}
