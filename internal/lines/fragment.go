package lines

import (
	"encoding/json"
	"errors"
	"fmt"
)

// BBox is a bounding box [x, y, width, height] normalized to the image
// dimensions with a bottom-left origin, so a larger Y is higher on the page.
type BBox [4]float64

// X returns the left edge.
func (b BBox) X() float64 { return b[0] }

// Y returns the vertical anchor used for line banding.
func (b BBox) Y() float64 { return b[1] }

// Width returns the normalized width.
func (b BBox) Width() float64 { return b[2] }

// Height returns the normalized height.
func (b BBox) Height() float64 { return b[3] }

// Fragment is one recognized text span as reported by the OCR engine.
type Fragment struct {
	Text       string
	Confidence float64
	BBox       BBox
}

// MarshalJSON encodes a fragment as [text, confidence, [x, y, w, h]].
func (f Fragment) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{f.Text, f.Confidence, f.BBox})
}

// UnmarshalJSON decodes the array form produced by MarshalJSON.
func (f *Fragment) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("fragment: %w", err)
	}
	if len(raw) != 3 {
		return errors.New("fragment: expected [text, confidence, bbox]")
	}
	if err := json.Unmarshal(raw[0], &f.Text); err != nil {
		return fmt.Errorf("fragment text: %w", err)
	}
	if err := json.Unmarshal(raw[1], &f.Confidence); err != nil {
		return fmt.Errorf("fragment confidence: %w", err)
	}
	if err := json.Unmarshal(raw[2], &f.BBox); err != nil {
		return fmt.Errorf("fragment bbox: %w", err)
	}
	return nil
}
