package executor

import (
	"time"

	"github.com/playwright-community/playwright-go"
)

// PageDevice drives the mouse and keyboard of a playwright page.
type PageDevice struct {
	page playwright.Page
}

// NewPageDevice wraps page as a Device.
func NewPageDevice(page playwright.Page) *PageDevice {
	return &PageDevice{page: page}
}

// Move moves the pointer along an interpolated path of steps moves.
func (d *PageDevice) Move(x, y float64, steps int) error {
	return d.page.Mouse().Move(x, y, playwright.MouseMoveOptions{
		Steps: playwright.Int(steps),
	})
}

// Click clicks the left button at x, y.
func (d *PageDevice) Click(x, y float64) error {
	return d.page.Mouse().Click(x, y, playwright.MouseClickOptions{
		Button: playwright.MouseButtonLeft,
	})
}

// Type sends text as individual key presses to the focused element.
func (d *PageDevice) Type(text string) error {
	return d.page.Keyboard().Type(text)
}

// Wheel dispatches a wheel event at the current pointer position.
func (d *PageDevice) Wheel(deltaX, deltaY float64) error {
	return d.page.Mouse().Wheel(deltaX, deltaY)
}

// Wait blocks for d using the page's own timer.
func (d *PageDevice) Wait(dur time.Duration) {
	d.page.WaitForTimeout(float64(dur.Milliseconds()))
}
