package psparse

import (
	"slices"
	"strings"
)

// Block is one record of a PowerShell `Format-List` listing: an ordered set of
// field name to value pairs. Field names are stored normalized, so lookups are
// case-insensitive.
type Block struct {
	keys   []string
	values map[string]string
}

// NewBlock returns an empty block.
func NewBlock() *Block {
	return &Block{values: make(map[string]string)}
}

// Set stores value under the normalized form of key. Setting an existing key
// replaces its value in place and keeps its original position.
func (b *Block) Set(key, value string) {
	k := NormalizeKey(key)
	if _, ok := b.values[k]; !ok {
		b.keys = append(b.keys, k)
	}
	b.values[k] = value
}

// Get returns the value stored for key.
func (b *Block) Get(key string) (string, bool) {
	if b == nil {
		return "", false
	}
	v, ok := b.values[NormalizeKey(key)]
	return v, ok
}

// Value returns the value for key or "" if the key is absent.
func (b *Block) Value(key string) string {
	v, _ := b.Get(key)
	return v
}

// Has reports whether key is present.
func (b *Block) Has(key string) bool {
	_, ok := b.Get(key)
	return ok
}

// Keys returns the normalized field names in source order.
func (b *Block) Keys() []string {
	if b == nil {
		return nil
	}
	return append([]string(nil), b.keys...)
}

// Len returns the number of fields.
func (b *Block) Len() int {
	if b == nil {
		return 0
	}
	return len(b.keys)
}

// Map returns a copy of the block as a plain map.
func (b *Block) Map() map[string]string {
	m := make(map[string]string, b.Len())
	if b == nil {
		return m
	}
	for k, v := range b.values {
		m[k] = v
	}
	return m
}

// String renders the block back in `key : value` form, one field per line.
// Multi-line values continue on lines indented past the key column so that
// Parse reads them back as the same value.
func (b *Block) String() string {
	var sb strings.Builder
	for _, k := range b.keys {
		lines := strings.Split(b.values[k], "\n")
		sb.WriteString(k)
		sb.WriteString(" : ")
		sb.WriteString(lines[0])
		sb.WriteByte('\n')
		pad := strings.Repeat(" ", len(k)+3)
		for _, l := range lines[1:] {
			sb.WriteString(pad)
			sb.WriteString(l)
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// BlockFromMap builds a block from m. Go maps are unordered so the keys are
// sorted to keep the result deterministic.
func BlockFromMap(m map[string]string) *Block {
	b := NewBlock()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		b.Set(k, m[k])
	}
	return b
}
