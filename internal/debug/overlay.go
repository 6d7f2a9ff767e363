package debug

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/jpeg"
	"image/png"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/babelcloud/vlm-bridge/pkg/vision"
)

var (
	boxColor     = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	chosenColor  = color.RGBA{R: 0, G: 200, B: 0, A: 255}
	targetColor  = color.RGBA{R: 0, G: 120, B: 255, A: 255}
	textColor    = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	outlineColor = color.RGBA{R: 0, G: 0, B: 0, A: 200}
)

// RenderOverlay decodes screenshot, draws every detected bbox with its index
// and marks the chosen element and the point the action will target.
// The result is PNG encoded.
func RenderOverlay(screenshot []byte, resp *vision.Response, action *vision.ParsedAction) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(screenshot))
	if err != nil {
		return nil, fmt.Errorf("failed to decode screenshot: %w", err)
	}

	rgba := image.NewRGBA(src.Bounds())
	draw.Draw(rgba, rgba.Bounds(), src, src.Bounds().Min, draw.Src)

	for i, box := range resp.Boxes {
		c := boxColor
		if i == resp.ChosenElementIndex {
			c = chosenColor
		}
		b := box.BBox
		drawRectangle(rgba, int(b.X1), int(b.Y1), int(b.X2), int(b.Y2), c)
		drawLabel(rgba, fmt.Sprintf("[%d]", i), int(b.X1)+2, int(b.Y1)+12)
	}

	if action != nil && action.Coordinates != nil {
		drawCross(rgba, int(action.Coordinates.X), int(action.Coordinates.Y), 6, targetColor)
	}

	var out bytes.Buffer
	if err := png.Encode(&out, rgba); err != nil {
		return nil, fmt.Errorf("failed to encode overlay: %w", err)
	}
	return out.Bytes(), nil
}

func drawRectangle(img *image.RGBA, x1, y1, x2, y2 int, c color.Color) {
	r := image.Rect(x1, y1, x2, y2).Intersect(img.Bounds())
	if r.Empty() {
		return
	}
	for x := r.Min.X; x < r.Max.X; x++ {
		img.Set(x, r.Min.Y, c)
		img.Set(x, r.Max.Y-1, c)
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		img.Set(r.Min.X, y, c)
		img.Set(r.Max.X-1, y, c)
	}
}

func drawCross(img *image.RGBA, cx, cy, size int, c color.Color) {
	bounds := img.Bounds()
	for d := -size; d <= size; d++ {
		if p := image.Pt(cx+d, cy); p.In(bounds) {
			img.Set(p.X, p.Y, c)
		}
		if p := image.Pt(cx, cy+d); p.In(bounds) {
			img.Set(p.X, p.Y, c)
		}
	}
}

// drawLabel draws text with a one pixel outline; (x, y) is the baseline origin.
func drawLabel(img *image.RGBA, text string, x, y int) {
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			if dx == 0 && dy == 0 {
				continue
			}
			drawString(img, text, x+dx, y+dy, outlineColor)
		}
	}
	drawString(img, text, x, y, textColor)
}

func drawString(img *image.RGBA, text string, x, y int, c color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}
