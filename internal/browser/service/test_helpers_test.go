package service_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/require"

	service "github.com/babelcloud/vlm-bridge/internal/browser/service"
	"github.com/babelcloud/vlm-bridge/internal/executor"
	"github.com/babelcloud/vlm-bridge/internal/tracker"
	"github.com/babelcloud/vlm-bridge/pkg/vision"
)

// --- Fake page --- only the calls the service makes without a device.
type fakePage struct {
	playwright.Page

	mu       sync.Mutex
	url      string
	title    string
	titleErr error
	shot     []byte
	shotErr  error
	closed   bool
}

func newFakePage(url string) *fakePage {
	return &fakePage{url: url, title: "Fake " + url, shot: []byte("\x89PNG fake screenshot")}
}

func (p *fakePage) Screenshot(options ...playwright.PageScreenshotOptions) ([]byte, error) {
	return p.shot, p.shotErr
}

func (p *fakePage) URL() string { return p.url }

func (p *fakePage) Title() (string, error) {
	if p.titleErr != nil {
		return "", p.titleErr
	}
	return p.title, nil
}

func (p *fakePage) Close(options ...playwright.PageCloseOptions) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *fakePage) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// --- Fake reasoner ---
type reasonerFunc func(ctx context.Context, instruction string, image []byte) (*vision.Response, error)

func (f reasonerFunc) Reason(ctx context.Context, instruction string, image []byte) (*vision.Response, error) {
	return f(ctx, instruction, image)
}

func staticReasoner(resp *vision.Response) reasonerFunc {
	return func(context.Context, string, []byte) (*vision.Response, error) {
		return resp, nil
	}
}

// --- Recording device ---
type recordingDevice struct {
	mu    sync.Mutex
	calls []string
}

func (d *recordingDevice) add(call string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, call)
	return nil
}

func (d *recordingDevice) Move(x, y float64, steps int) error {
	return d.add(fmt.Sprintf("move(%g,%g,%d)", x, y, steps))
}
func (d *recordingDevice) Click(x, y float64) error { return d.add(fmt.Sprintf("click(%g,%g)", x, y)) }
func (d *recordingDevice) Type(text string) error { return d.add(fmt.Sprintf("type(%s)", text)) }
func (d *recordingDevice) Wheel(dx, dy float64) error {
	return d.add(fmt.Sprintf("wheel(%g,%g)", dx, dy))
}
func (d *recordingDevice) Wait(time.Duration) { d.add("wait") }

func (d *recordingDevice) Calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

// typeResponse is the reference scenario: type "BrowserBase" into the
// element whose mesh centers on (200, 115).
func typeResponse() *vision.Response {
	text := "BrowserBase"
	return &vision.Response{
		Query: "Type BrowserBase in the search box",
		Boxes: []vision.Box{
			{ID: "0", Mesh: vision.Mesh{X: 10, Y: 10, Width: 50, Height: 20}, BBox: vision.BBox{X1: 10, Y1: 10, X2: 60, Y2: 30}},
			{ID: "1", Mesh: vision.Mesh{X: 100, Y: 100, Width: 200, Height: 30}, BBox: vision.BBox{X1: 100, Y1: 100, X2: 300, Y2: 130}},
		},
		ChosenAction: vision.ActionDirective{
			Action:    vision.ActionType,
			InputText: &text,
		},
		ChosenElementIndex: 1,
		Explanation:        "The search input is the wide box near the top",
	}
}

func setupService(t *testing.T, reasoner service.Reasoner, idle time.Duration) (*service.BrowserService, *recordingDevice) {
	t.Helper()
	svc, err := service.NewBrowserService(service.Options{
		Reasoner:      reasoner,
		Tracker:       tracker.NewInMemoryAccessTracker(),
		IdleThreshold: idle,
	})
	require.NoError(t, err)

	dev := &recordingDevice{}
	svc.SetDeviceFactory(func(playwright.Page) executor.Device { return dev })
	return svc, dev
}
