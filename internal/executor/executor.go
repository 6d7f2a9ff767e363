package executor

import (
	"fmt"
	"time"

	"github.com/babelcloud/vlm-bridge/pkg/vision"
)

const (
	// MoveSteps is the number of interpolated pointer moves before a click.
	MoveSteps = 10
	// FillSettleDelay is the pause between focusing a field and typing into it.
	FillSettleDelay = time.Second
	// ScrollDistance is the wheel delta of one scroll action.
	ScrollDistance = 100
)

// Device is the set of input primitives an action needs.
type Device interface {
	Move(x, y float64, steps int) error
	Click(x, y float64) error
	Type(text string) error
	Wheel(deltaX, deltaY float64) error
	Wait(d time.Duration)
}

// Executor performs parsed actions on a device. Calls against one device
// must be serialized by the caller.
type Executor struct {
	device Device
}

// New creates an Executor bound to device.
func New(device Device) *Executor {
	return &Executor{device: device}
}

// Execute performs the action. Device errors are returned as they are.
func (e *Executor) Execute(action vision.ParsedAction) error {
	switch action.Method {
	case vision.MethodClick:
		if action.Coordinates == nil {
			return fmt.Errorf("click action has no coordinates")
		}
		return e.moveAndClick(*action.Coordinates)

	case vision.MethodFill:
		if action.Coordinates == nil {
			return fmt.Errorf("fill action has no coordinates")
		}
		if err := e.moveAndClick(*action.Coordinates); err != nil {
			return err
		}
		e.device.Wait(FillSettleDelay)
		return e.device.Type(action.Value)

	case vision.MethodScroll:
		return e.device.Wheel(0, ScrollDelta(action.Value))
	}
	return fmt.Errorf("unknown action method %q", action.Method)
}

func (e *Executor) moveAndClick(p vision.Point) error {
	if err := e.device.Move(p.X, p.Y, MoveSteps); err != nil {
		return err
	}
	return e.device.Click(p.X, p.Y)
}

// ScrollDelta maps a direction to a vertical wheel delta. Only "up" scrolls
// upward; every other value scrolls down.
func ScrollDelta(direction string) float64 {
	if direction == vision.ScrollUp {
		return -ScrollDistance
	}
	return ScrollDistance
}
