package insights

import (
	"bytes"
	"encoding/json"
	"hash/fnv"
	"strconv"
)

// HashString is a 32-bit FNV-1a hash of s rendered as unpadded lowercase hex.
// It is a stable key helper, not a cryptographic digest.
func HashString(s string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return strconv.FormatUint(uint64(h.Sum32()), 16)
}

// SeedFromDNA derives the renderer seed from the DNA's JSON form. Identical
// DNA values always produce the same seed.
func SeedFromDNA(dna DNA) (uint32, error) {
	raw, err := marshalDNA(dna)
	if err != nil {
		return 0, err
	}
	return SeedFromJSON(raw), nil
}

// SeedFromJSON hashes raw JSON and parses the first eight hex digits of the
// hash as the seed.
func SeedFromJSON(raw []byte) uint32 {
	hex := HashString(string(raw))
	if len(hex) > 8 {
		hex = hex[:8]
	}
	seed, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0
	}
	return uint32(seed)
}

// LCG is a linear congruential generator with 32-bit state. It carries its own
// state so two generators with the same seed yield the same draws.
type LCG struct {
	state uint32
}

// NewLCG returns a generator seeded with seed.
func NewLCG(seed uint32) *LCG {
	return &LCG{state: seed}
}

// Next advances the state and returns a draw in [0, 1).
func (g *LCG) Next() float64 {
	g.state = 1664525*g.state + 1013904223
	return float64(g.state) / 4294967296
}

// BarPattern returns n deterministic draws for the fingerprint's decorative
// bars.
func BarPattern(dna DNA, n int) ([]float64, error) {
	seed, err := SeedFromDNA(dna)
	if err != nil {
		return nil, err
	}
	g := NewLCG(seed)
	out := make([]float64, max(n, 0))
	for i := range out {
		out[i] = g.Next()
	}
	return out, nil
}

// marshalDNA renders compact JSON without HTML escaping and without the
// encoder's trailing newline.
func marshalDNA(dna DNA) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(dna); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
