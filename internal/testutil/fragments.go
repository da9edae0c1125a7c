package testutil

import (
	"github.com/MeKo-Tech/macocr/internal/engine"
	"github.com/MeKo-Tech/macocr/internal/lines"
)

// SampleFragments returns two fragments given bottom line first, so a
// correct reconstruction yields ["hello", "world"].
func SampleFragments() []lines.Fragment {
	return []lines.Fragment{
		{Text: "world", Confidence: 0.9, BBox: lines.BBox{0.1, 0.1, 0.3, 0.05}},
		{Text: "hello", Confidence: 1.0, BBox: lines.BBox{0.1, 0.9, 0.3, 0.05}},
	}
}

// StaticEngine returns an engine that always recognizes SampleFragments.
func StaticEngine() *engine.Static {
	return &engine.Static{Fragments: SampleFragments()}
}
