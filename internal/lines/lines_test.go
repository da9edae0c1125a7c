package lines

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frag(text string, y float64) Fragment {
	return Fragment{Text: text, Confidence: 1, BBox: BBox{0.1, y, 0.2, 0.03}}
}

func TestLineKey(t *testing.T) {
	tests := []struct {
		name      string
		y         float64
		threshold float64
		want      int
	}{
		{"bottom edge", 0, 0.05, 0},
		{"inside first band", 0.049, 0.05, 0},
		{"second band", 0.051, 0.05, 1},
		{"near top", 0.97, 0.05, 19},
		{"wider bands", 0.55, 0.1, 5},
		{"exact multiple", 0.5, 0.05, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LineKey(tt.y, tt.threshold))
		})
	}
}

func TestReconstruct_Empty(t *testing.T) {
	got := Reconstruct(nil)
	require.NotNil(t, got)
	assert.Empty(t, got)

	got = Reconstruct([]Fragment{})
	assert.Empty(t, got)
}

func TestReconstruct_SameBandConcatenates(t *testing.T) {
	got := Reconstruct([]Fragment{frag("A", 0.42), frag("B", 0.42)})
	assert.Equal(t, []string{"AB"}, got)
}

func TestReconstruct_TopLineFirst(t *testing.T) {
	got := Reconstruct([]Fragment{frag("bottom", 0.1), frag("top", 0.9)})
	assert.Equal(t, []string{"top", "bottom"}, got)
}

func TestReconstruct_InputOrderKeptWithinBand(t *testing.T) {
	// No horizontal re-sort: "world" comes first because it was reported first.
	world := Fragment{Text: "world", BBox: BBox{0.6, 0.5, 0.2, 0.03}}
	hello := Fragment{Text: "hello", BBox: BBox{0.1, 0.51, 0.2, 0.03}}

	got := Reconstruct([]Fragment{world, hello})
	assert.Equal(t, []string{"worldhello"}, got)
}

func TestReconstruct_BoundarySplit(t *testing.T) {
	got := Reconstruct([]Fragment{frag("left", 0.049), frag("right", 0.051)})
	assert.Equal(t, []string{"right", "left"}, got)
}

// 0.5/0.05 rounds to exactly 10 in float64, so y=0.5 opens the upper band.
func TestReconstruct_ExactMultipleJoinsUpperBand(t *testing.T) {
	got := Reconstruct([]Fragment{frag("A", 0.49), frag("B", 0.5), frag("C", 0.51)})
	assert.Equal(t, []string{"BC", "A"}, got)
}

func TestReconstruct_NoConfidenceFiltering(t *testing.T) {
	low := Fragment{Text: "faint", Confidence: 0.01, BBox: BBox{0, 0.3, 0.1, 0.02}}
	got := Reconstruct([]Fragment{low})
	assert.Equal(t, []string{"faint"}, got)
}

func TestReconstruct_MultiLineDocument(t *testing.T) {
	frags := []Fragment{
		frag("Total: ", 0.12),
		frag("Invoice", 0.93),
		frag("42.00", 0.11),
		frag("Item 1", 0.52),
		frag(" 10.00", 0.53),
	}

	got := Reconstruct(frags)
	assert.Equal(t, []string{"Invoice", "Item 1 10.00", "Total: 42.00"}, got)
}

func TestReconstructor_CustomThreshold(t *testing.T) {
	r, err := New(0.2)
	require.NoError(t, err)

	got := r.Reconstruct([]Fragment{frag("a", 0.41), frag("b", 0.55), frag("c", 0.05)})
	assert.Equal(t, []string{"ab", "c"}, got)
}

func TestReconstructor_ZeroValueUsesDefault(t *testing.T) {
	var r Reconstructor
	assert.Len(t, r.Reconstruct([]Fragment{frag("x", 0.01), frag("y", 0.06)}), 2)

	var nilR *Reconstructor
	assert.Len(t, nilR.Reconstruct([]Fragment{frag("x", 0.01)}), 1)
}

func TestNew_InvalidThreshold(t *testing.T) {
	for _, th := range []float64{0, -0.1, 1.5} {
		_, err := New(th)
		assert.Error(t, err, "threshold %v", th)
	}
}

func TestJoin_KnownBuckets(t *testing.T) {
	got := Join(map[int][]string{0: {"c"}, 5: {"b"}, 10: {"a"}})
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestGroup(t *testing.T) {
	var r Reconstructor
	buckets := r.Group([]Fragment{frag("a", 0.11), frag("b", 0.12), frag("c", 0.91)})

	assert.Equal(t, map[int][]string{2: {"a", "b"}, 18: {"c"}}, buckets)
}

func TestFragmentJSON(t *testing.T) {
	f := Fragment{Text: "你好", Confidence: 0.5, BBox: BBox{0.1, 0.2, 0.3, 0.4}}

	data, err := json.Marshal(f)
	require.NoError(t, err)
	assert.JSONEq(t, `["你好", 0.5, [0.1, 0.2, 0.3, 0.4]]`, string(data))

	var back Fragment
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, f, back)
}

func TestFragmentJSON_Invalid(t *testing.T) {
	var f Fragment
	assert.Error(t, json.Unmarshal([]byte(`["only text"]`), &f))
	assert.Error(t, json.Unmarshal([]byte(`{"text":"x"}`), &f))
	assert.Error(t, json.Unmarshal([]byte(`["x", "high", [0,0,0,0]]`), &f))
}
