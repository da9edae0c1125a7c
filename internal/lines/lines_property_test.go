package lines

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// genFragments builds fragments with single-letter texts and anchors in [0, 1).
func genFragments() gopter.Gen {
	return gen.SliceOf(gen.Float64Range(0, 0.999)).Map(func(ys []float64) []Fragment {
		frags := make([]Fragment, len(ys))
		for i, y := range ys {
			frags[i] = Fragment{
				Text:       string(rune('a' + i%26)),
				Confidence: 0.5,
				BBox:       BBox{0, y, 0.1, 0.01},
			}
		}
		return frags
	})
}

func distinctKeys(frags []Fragment, threshold float64) int {
	seen := make(map[int]struct{})
	for _, f := range frags {
		seen[LineKey(f.BBox.Y(), threshold)] = struct{}{}
	}
	return len(seen)
}

// TestReconstruct_LineCountMatchesBands verifies one output line per band.
func TestReconstruct_LineCountMatchesBands(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("output length equals distinct band count", prop.ForAll(
		func(frags []Fragment) bool {
			return len(Reconstruct(frags)) == distinctKeys(frags, DefaultThreshold)
		},
		genFragments(),
	))

	properties.TestingRun(t)
}

// TestReconstruct_PreservesAllText verifies no fragment text is dropped or duplicated.
func TestReconstruct_PreservesAllText(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("total rune count is preserved", prop.ForAll(
		func(frags []Fragment) bool {
			want := 0
			for _, f := range frags {
				want += len(f.Text)
			}
			got := len(strings.Join(Reconstruct(frags), ""))
			return got == want
		},
		genFragments(),
	))

	properties.TestingRun(t)
}

// TestReconstruct_TopToBottom verifies lines come out in descending band order.
func TestReconstruct_TopToBottom(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("a higher fragment never appears on a later line", prop.ForAll(
		func(hi, lo float64) bool {
			if LineKey(hi, DefaultThreshold) <= LineKey(lo, DefaultThreshold) {
				return true
			}
			got := Reconstruct([]Fragment{
				{Text: "L", BBox: BBox{0, lo, 0, 0}},
				{Text: "H", BBox: BBox{0, hi, 0, 0}},
			})
			return len(got) == 2 && got[0] == "H" && got[1] == "L"
		},
		gen.Float64Range(0, 0.999),
		gen.Float64Range(0, 0.999),
	))

	properties.TestingRun(t)
}
