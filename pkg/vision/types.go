package vision

import "encoding/json"

// ActionKind is the action the model chose for the current turn.
type ActionKind string

const (
	ActionType   ActionKind = "type"
	ActionClick  ActionKind = "click"
	ActionScroll ActionKind = "scroll"
)

// ScrollUp is the only scroll direction treated as upward; anything else scrolls down.
const ScrollUp = "up"

// Mesh is an element rectangle in x/y/width/height form.
type Mesh struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Center returns the midpoint of the mesh rectangle.
func (m Mesh) Center() Point {
	return Point{X: m.X + m.Width/2, Y: m.Y + m.Height/2}
}

// BBox is an element rectangle in corner form.
type BBox struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Center returns the midpoint of the bbox rectangle.
func (b BBox) Center() Point {
	return Point{X: b.X1 + (b.X2-b.X1)/2, Y: b.Y1 + (b.Y2-b.Y1)/2}
}

// MeshFromBBox converts corner form to x/y/width/height form.
func MeshFromBBox(b BBox) Mesh {
	return Mesh{X: b.X1, Y: b.Y1, Width: b.X2 - b.X1, Height: b.Y2 - b.Y1}
}

// BBoxFromMesh converts x/y/width/height form to corner form.
func BBoxFromMesh(m Mesh) BBox {
	return BBox{X1: m.X, Y1: m.Y, X2: m.X + m.Width, Y2: m.Y + m.Height}
}

// Size is the width/height record carried in element metadata.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Metadata describes the element classification plus a secondary copy of its geometry.
type Metadata struct {
	// Type is a freeform classification such as "button" or "input".
	Type string `json:"type"`
	BBox *BBox  `json:"bbox,omitempty"`
	Size *Size  `json:"size,omitempty"`
}

// Box is one UI element candidate detected by the model.
// Mesh and BBox describe the same rectangle in viewport pixels.
type Box struct {
	ID         string   `json:"id"`
	Mesh       Mesh     `json:"mesh"`
	BBox       BBox     `json:"bbox"`
	Metadata   Metadata `json:"metadata"`
	Confidence float64  `json:"confidence"`
	// IsChosen mirrors whether this box is at ChosenElementIndex. Informational only.
	IsChosen bool `json:"is_chosen"`
}

// ActionDirective is the single action chosen by the model.
type ActionDirective struct {
	Action ActionKind `json:"action"`
	// KeyCommand is reserved and not used during execution.
	KeyCommand      *string `json:"key_command"`
	InputText       *string `json:"input_text"`
	ScrollDirection *string `json:"scroll_direction"`
	Confidence      float64 `json:"confidence"`
}

// Response is the full answer of the reasoning service for one query.
type Response struct {
	Query string `json:"query"`
	// Boxes keeps the model's detection order; ChosenElementIndex points into it.
	Boxes              []Box           `json:"boxes"`
	ChosenAction       ActionDirective `json:"chosen_action"`
	ChosenElementIndex int             `json:"chosen_element_index"`
	Explanation        string          `json:"explanation"`

	// Diagnostic pass-through, never interpreted.
	RawDetections json.RawMessage `json:"raw_detections,omitempty"`
	Hierarchy     json.RawMessage `json:"hierarchy,omitempty"`
	Timings       json.RawMessage `json:"timings,omitempty"`
}

// ChosenBox returns the box referenced by ChosenElementIndex.
func (r *Response) ChosenBox() (Box, error) {
	if r.ChosenElementIndex < 0 || r.ChosenElementIndex >= len(r.Boxes) {
		return Box{}, ElementOutOfRange(r.ChosenElementIndex, len(r.Boxes))
	}
	return r.Boxes[r.ChosenElementIndex], nil
}

// Point is a viewport coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Method is the device operation a ParsedAction maps to.
type Method string

const (
	MethodClick  Method = "click"
	MethodFill   Method = "fill"
	MethodScroll Method = "scroll"
)

// ParsedAction is a directive translated into an executable device operation.
type ParsedAction struct {
	Method Method `json:"method" yaml:"method"`
	// Coordinates is set for click and fill.
	Coordinates *Point `json:"coordinates,omitempty" yaml:"coordinates,omitempty"`
	// Value is the text for fill and the direction for scroll.
	Value string `json:"value,omitempty" yaml:"value,omitempty"`
}
