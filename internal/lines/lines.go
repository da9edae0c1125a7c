// Package lines rebuilds human-readable text lines from the unordered
// fragments returned by an OCR engine.
//
// Fragments are grouped into horizontal bands of fixed height. Every fragment
// whose vertical anchor falls into the same band becomes part of the same
// line, in the order the engine reported it. Bands are emitted top to bottom.
package lines

import (
	"fmt"
	"math"
	"slices"
	"strings"
)

// DefaultThreshold is the band height in normalized units (20 bands per image).
const DefaultThreshold = 0.05

// Reconstructor groups fragments into lines. The zero value uses DefaultThreshold.
type Reconstructor struct {
	Threshold float64
}

// New returns a Reconstructor with the given band height.
func New(threshold float64) (*Reconstructor, error) {
	if err := ValidateThreshold(threshold); err != nil {
		return nil, err
	}
	return &Reconstructor{Threshold: threshold}, nil
}

// ValidateThreshold reports whether threshold is a usable band height.
func ValidateThreshold(threshold float64) error {
	if math.IsNaN(threshold) || threshold <= 0 || threshold > 1 {
		return fmt.Errorf("invalid line threshold: %v (must be in (0, 1])", threshold)
	}
	return nil
}

// LineKey returns the band index for a vertical anchor.
func LineKey(y, threshold float64) int {
	return int(math.Floor(y / threshold))
}

func (r *Reconstructor) threshold() float64 {
	if r == nil || r.Threshold <= 0 {
		return DefaultThreshold
	}
	return r.Threshold
}

// Group buckets fragment texts by band, preserving input order within a band.
func (r *Reconstructor) Group(frags []Fragment) map[int][]string {
	t := r.threshold()
	buckets := make(map[int][]string)
	for _, f := range frags {
		k := LineKey(f.BBox.Y(), t)
		buckets[k] = append(buckets[k], f.Text)
	}
	return buckets
}

// Reconstruct returns one string per band, top line first. Texts inside a
// band are concatenated without a separator.
func (r *Reconstructor) Reconstruct(frags []Fragment) []string {
	return Join(r.Group(frags))
}

// Join flattens a bucket map into lines. Keys are sorted ascending (bottom to
// top in engine coordinates) and the result is then reversed.
func Join(buckets map[int][]string) []string {
	keys := make([]int, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, strings.Join(buckets[k], ""))
	}
	slices.Reverse(out)
	return out
}

// Reconstruct runs a default Reconstructor over frags.
func Reconstruct(frags []Fragment) []string {
	var r Reconstructor
	return r.Reconstruct(frags)
}
