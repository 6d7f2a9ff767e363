package vision_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/babelcloud/vlm-bridge/pkg/vision"
)

func strPtr(s string) *string { return &s }

// searchBox mirrors the geometry used in the BrowserBase search scenario.
func searchBox() vision.Box {
	return vision.Box{
		ID:   "el-0",
		Mesh: vision.Mesh{X: 100, Y: 100, Width: 200, Height: 30},
		BBox: vision.BBox{X1: 100, Y1: 100, X2: 300, Y2: 130},
		Metadata: vision.Metadata{
			Type: "input",
			Size: &vision.Size{Width: 200, Height: 30},
		},
		Confidence: 0.92,
		IsChosen:   true,
	}
}

func TestParseResponseTypeScenario(t *testing.T) {
	resp := &vision.Response{
		Query:              `Type "BrowserBase" into the search box`,
		Boxes:              []vision.Box{searchBox()},
		ChosenAction:       vision.ActionDirective{Action: vision.ActionType, InputText: strPtr("BrowserBase")},
		ChosenElementIndex: 0,
		Explanation:        "the search box is the only text input",
	}

	parsed, err := vision.ParseResponse(resp)
	require.NoError(t, err)

	assert.Equal(t, vision.MethodFill, parsed.Method)
	require.NotNil(t, parsed.Coordinates)
	assert.Equal(t, vision.Point{X: 200, Y: 115}, *parsed.Coordinates)
	assert.Equal(t, "BrowserBase", parsed.Value)
}

func TestParseResponseClickUsesBBox(t *testing.T) {
	testCases := []struct {
		name     string
		bbox     vision.BBox
		expected vision.Point
	}{
		{"aligned", vision.BBox{X1: 10, Y1: 20, X2: 30, Y2: 60}, vision.Point{X: 20, Y: 40}},
		{"fractional center", vision.BBox{X1: 0, Y1: 0, X2: 5, Y2: 3}, vision.Point{X: 2.5, Y: 1.5}},
		{"offset", vision.BBox{X1: 400, Y1: 250, X2: 520, Y2: 290}, vision.Point{X: 460, Y: 270}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// Mesh deliberately disagrees so the test proves which rectangle is used.
			resp := &vision.Response{
				Boxes: []vision.Box{
					{ID: "decoy", BBox: vision.BBox{X1: 0, Y1: 0, X2: 1, Y2: 1}},
					{ID: "target", BBox: tc.bbox, Mesh: vision.Mesh{X: 999, Y: 999, Width: 2, Height: 2}},
				},
				ChosenAction:       vision.ActionDirective{Action: vision.ActionClick},
				ChosenElementIndex: 1,
			}

			parsed, err := vision.ParseResponse(resp)
			require.NoError(t, err)
			assert.Equal(t, vision.MethodClick, parsed.Method)
			assert.Equal(t, tc.expected, *parsed.Coordinates)
			assert.Empty(t, parsed.Value)
		})
	}
}

func TestParseResponseTypeUsesMesh(t *testing.T) {
	resp := &vision.Response{
		Boxes: []vision.Box{{
			Mesh: vision.Mesh{X: 40, Y: 60, Width: 100, Height: 20},
			BBox: vision.BBox{X1: 0, Y1: 0, X2: 10, Y2: 10},
		}},
		ChosenAction: vision.ActionDirective{Action: vision.ActionType, InputText: strPtr("  keep spaces  ")},
	}

	parsed, err := vision.ParseResponse(resp)
	require.NoError(t, err)
	assert.Equal(t, vision.Point{X: 90, Y: 70}, *parsed.Coordinates)
	assert.Equal(t, "  keep spaces  ", parsed.Value, "value must be passed through verbatim")
}

func TestParseResponseErrors(t *testing.T) {
	testCases := []struct {
		name      string
		directive vision.ActionDirective
		boxes     []vision.Box
		index     int
		kind      vision.ErrorKind
		field     string
	}{
		{
			name:      "type with nil input_text",
			directive: vision.ActionDirective{Action: vision.ActionType},
			boxes:     []vision.Box{searchBox()},
			kind:      vision.KindMissingField,
			field:     "input_text",
		},
		{
			name:      "type with empty input_text",
			directive: vision.ActionDirective{Action: vision.ActionType, InputText: strPtr("")},
			boxes:     []vision.Box{searchBox()},
			kind:      vision.KindMissingField,
			field:     "input_text",
		},
		{
			name:      "scroll with nil direction",
			directive: vision.ActionDirective{Action: vision.ActionScroll},
			kind:      vision.KindMissingField,
			field:     "scroll_direction",
		},
		{
			name:      "unknown action",
			directive: vision.ActionDirective{Action: "drag"},
			boxes:     []vision.Box{searchBox()},
			kind:      vision.KindUnsupportedAction,
		},
		{
			name:      "empty action",
			directive: vision.ActionDirective{},
			kind:      vision.KindUnsupportedAction,
		},
		{
			name:      "click index past end",
			directive: vision.ActionDirective{Action: vision.ActionClick},
			boxes:     []vision.Box{searchBox()},
			index:     1,
			kind:      vision.KindElementOutOfRange,
		},
		{
			name:      "type negative index",
			directive: vision.ActionDirective{Action: vision.ActionType, InputText: strPtr("x")},
			boxes:     []vision.Box{searchBox()},
			index:     -1,
			kind:      vision.KindElementOutOfRange,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resp := &vision.Response{Boxes: tc.boxes, ChosenAction: tc.directive, ChosenElementIndex: tc.index}

			parsed, err := vision.ParseResponse(resp)
			require.Error(t, err)
			assert.Nil(t, parsed)

			var verr *vision.Error
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.kind, verr.Kind)
			if tc.field != "" {
				assert.Equal(t, tc.field, verr.Field)
			}
			assert.False(t, vision.IsTransient(err))
		})
	}
}

func TestParseResponseUnsupportedNamesAction(t *testing.T) {
	_, err := vision.ParseResponse(&vision.Response{ChosenAction: vision.ActionDirective{Action: "hover"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hover")

	var verr *vision.Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, vision.ActionKind("hover"), verr.Action)
}

func TestParseResponseScroll(t *testing.T) {
	for _, direction := range []string{"up", "down", "left", "UP", ""} {
		t.Run(direction, func(t *testing.T) {
			resp := &vision.Response{
				ChosenAction: vision.ActionDirective{Action: vision.ActionScroll, ScrollDirection: strPtr(direction)},
				// Scroll never reads the index.
				ChosenElementIndex: 42,
			}
			parsed, err := vision.ParseResponse(resp)
			require.NoError(t, err)
			assert.Equal(t, vision.MethodScroll, parsed.Method)
			assert.Nil(t, parsed.Coordinates)
			assert.Equal(t, direction, parsed.Value)
		})
	}
}

func TestGeometryConversions(t *testing.T) {
	mesh := vision.Mesh{X: 100, Y: 100, Width: 200, Height: 30}
	bbox := vision.BBox{X1: 100, Y1: 100, X2: 300, Y2: 130}

	assert.Equal(t, bbox, vision.BBoxFromMesh(mesh))
	assert.Equal(t, mesh, vision.MeshFromBBox(bbox))
	assert.Equal(t, mesh.Center(), bbox.Center())
}
