package fetch

import (
	"iter"
	"net/http"
	"sort"
	"strings"

	"golang.org/x/net/http/httpguts"
)

type headerEntry struct {
	name  string
	value string
}

// Headers is an ordered multi-value header collection. Names are stored
// lowercased. Iteration is sorted by name and keeps insertion order for
// repeated names, so duplicate values are never merged.
type Headers struct {
	entries []headerEntry
}

// NewHeaders returns an empty collection.
func NewHeaders() *Headers {
	return &Headers{}
}

// HeadersFrom builds a collection from an http.Header. Keys are visited in
// sorted order; each value of a key is appended individually.
func HeadersFrom(h http.Header) *Headers {
	out := NewHeaders()
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range h[k] {
			out.Append(k, v)
		}
	}
	return out
}

// Append adds a value under name. Invalid names or values are dropped.
func (h *Headers) Append(name, value string) {
	if h == nil {
		return
	}
	value = strings.Trim(value, " \t")
	if !httpguts.ValidHeaderFieldName(name) || !httpguts.ValidHeaderFieldValue(value) {
		return
	}
	h.entries = append(h.entries, headerEntry{name: strings.ToLower(name), value: value})
}

// Set replaces every value under name with value.
func (h *Headers) Set(name, value string) {
	if h == nil {
		return
	}
	h.Delete(name)
	h.Append(name, value)
}

// Delete removes every value under name.
func (h *Headers) Delete(name string) {
	if h == nil {
		return
	}
	name = strings.ToLower(name)
	kept := h.entries[:0]
	for _, e := range h.entries {
		if e.name != name {
			kept = append(kept, e)
		}
	}
	h.entries = kept
}

// Has reports whether at least one value exists under name.
func (h *Headers) Has(name string) bool {
	return len(h.Values(name)) > 0
}

// Get returns the values under name joined with ", ", the way a Fetch
// Headers object does. The bool is false when the name is absent.
func (h *Headers) Get(name string) (string, bool) {
	vs := h.Values(name)
	if len(vs) == 0 {
		return "", false
	}
	return strings.Join(vs, ", "), true
}

// Values returns the individual values under name in insertion order.
func (h *Headers) Values(name string) []string {
	if h == nil {
		return nil
	}
	name = strings.ToLower(name)
	var out []string
	for _, e := range h.entries {
		if e.name == name {
			out = append(out, e.value)
		}
	}
	return out
}

// Len returns the number of stored name/value pairs.
func (h *Headers) Len() int {
	if h == nil {
		return 0
	}
	return len(h.entries)
}

// All yields every name/value pair sorted by name. Pairs sharing a name
// are yielded in insertion order.
func (h *Headers) All() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		if h == nil {
			return
		}
		sorted := make([]headerEntry, len(h.entries))
		copy(sorted, h.entries)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].name < sorted[j].name })
		for _, e := range sorted {
			if !yield(e.name, e.value) {
				return
			}
		}
	}
}

// Clone returns an independent copy.
func (h *Headers) Clone() *Headers {
	if h == nil {
		return NewHeaders()
	}
	out := &Headers{entries: make([]headerEntry, len(h.entries))}
	copy(out.entries, h.entries)
	return out
}
