// Package compare holds the before/after comparison state: a reveal boundary
// between the original and the processed image.
package compare

import "math"

// DefaultPosition places the boundary in the middle.
const DefaultPosition = 50.0

// Span is a horizontal range in percent of the view width.
type Span struct {
	From float64 `json:"from"`
	To   float64 `json:"to"`
}

// Slider is the comparison state.
type Slider struct {
	Position float64 `json:"position"`
	Visible  bool    `json:"visible"`
}

// NewSlider returns a hidden slider at the default position.
func NewSlider() Slider {
	return Slider{Position: DefaultPosition}
}

// Clamp bounds p to [0, 100].
func Clamp(p float64) float64 {
	switch {
	case math.IsNaN(p):
		return DefaultPosition
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}

// PositionFromPointer converts a pointer x coordinate inside a box starting
// at left with the given width into a clamped percentage.
func PositionFromPointer(x, left, width float64) float64 {
	if width <= 0 {
		return DefaultPosition
	}
	return Clamp((x - left) / width * 100)
}

// SetPosition moves the boundary, clamped.
func (s *Slider) SetPosition(p float64) {
	s.Position = Clamp(p)
}

// Clip returns the visible spans of the original and the result.
func (s Slider) Clip() (original, result Span) {
	p := Clamp(s.Position)
	return Span{From: 0, To: p}, Span{From: p, To: 100}
}
