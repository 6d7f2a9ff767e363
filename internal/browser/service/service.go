package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/playwright-community/playwright-go"

	"github.com/babelcloud/vlm-bridge/config"
	"github.com/babelcloud/vlm-bridge/internal/executor"
	"github.com/babelcloud/vlm-bridge/internal/tracker"
	"github.com/babelcloud/vlm-bridge/pkg/logger"
	"github.com/babelcloud/vlm-bridge/pkg/vision"
)

var (
	ErrPageNotFound = errors.New("page not found")
	ErrPageBusy     = errors.New("page is busy with another action")
	ErrInvalidInput = errors.New("invalid input")
)

const (
	connectAttempts   = 3
	connectRetryDelay = 4 * time.Second
	connectTimeout    = 15 * time.Second
)

// Reasoner turns an instruction and a screenshot into a reasoning response.
type Reasoner interface {
	Reason(ctx context.Context, instruction string, image []byte) (*vision.Response, error)
}

// ManagedPage holds a page driven by the service.
type ManagedPage struct {
	ID       string
	Instance playwright.Page
	// Context is owned by the page when the service created it.
	Context playwright.BrowserContext
	busy    sync.Mutex
}

// Options configures a BrowserService.
type Options struct {
	WSEndpoint     string
	Headless       bool
	ViewportWidth  int
	ViewportHeight int
	NavTimeout     time.Duration
	IdleThreshold  time.Duration
	Reasoner       Reasoner
	Tracker        tracker.AccessTracker
	Logger         *logger.Logger
}

// OptionsFromConfig maps the browser and session configuration onto Options.
func OptionsFromConfig(cfg *config.Config, reasoner Reasoner, tr tracker.AccessTracker) Options {
	return Options{
		WSEndpoint:     cfg.Browser.WSEndpoint,
		Headless:       cfg.Browser.Headless,
		ViewportWidth:  cfg.Browser.ViewportWidth,
		ViewportHeight: cfg.Browser.ViewportHeight,
		NavTimeout:     cfg.Browser.NavTimeout,
		IdleThreshold:  cfg.Session.IdleThreshold,
		Reasoner:       reasoner,
		Tracker:        tr,
	}
}

// BrowserService owns a browser and the pages opened in it, and runs
// instructions against those pages.
type BrowserService struct {
	opts Options
	log  *logger.Logger

	mu    sync.RWMutex
	pages map[string]*ManagedPage

	browserMu sync.Mutex
	pw        *playwright.Playwright
	browser   playwright.Browser

	newDevice func(playwright.Page) executor.Device
}

// NewBrowserService creates a service. Playwright is started on the first
// CreatePage, so pages attached with AttachPage never need a driver.
func NewBrowserService(opts Options) (*BrowserService, error) {
	if opts.Reasoner == nil {
		return nil, fmt.Errorf("reasoner is required")
	}
	if opts.Tracker == nil {
		opts.Tracker = tracker.NewInMemoryAccessTracker()
	}
	log := opts.Logger
	if log == nil {
		log = logger.New()
	}
	return &BrowserService{
		opts:  opts,
		log:   log,
		pages: make(map[string]*ManagedPage),
		newDevice: func(p playwright.Page) executor.Device {
			return executor.NewPageDevice(p)
		},
	}, nil
}

// Mode reports how the service obtains its browser.
func (s *BrowserService) Mode() string {
	if s.opts.WSEndpoint != "" {
		return "connect"
	}
	return "launch"
}

func (s *BrowserService) getBrowser() (playwright.Browser, error) {
	s.browserMu.Lock()
	defer s.browserMu.Unlock()

	if s.browser != nil && s.browser.IsConnected() {
		return s.browser, nil
	}

	if s.pw == nil {
		pw, err := playwright.Run()
		if err != nil {
			return nil, fmt.Errorf("could not start playwright: %w", err)
		}
		s.pw = pw
	}

	if s.opts.WSEndpoint == "" {
		b, err := s.pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
			Headless: playwright.Bool(s.opts.Headless),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to launch chromium: %w", err)
		}
		s.log.Info("Launched chromium (headless: %v)", s.opts.Headless)
		s.browser = b
		return b, nil
	}

	var b playwright.Browser
	connect := func() error {
		var err error
		b, err = s.pw.Chromium.Connect(s.opts.WSEndpoint, playwright.BrowserTypeConnectOptions{
			Timeout: playwright.Float(float64(connectTimeout.Milliseconds())),
		})
		return err
	}
	policy := backoff.WithMaxRetries(backoff.NewConstantBackOff(connectRetryDelay), connectAttempts-1)
	notify := func(err error, wait time.Duration) {
		s.log.Warn("Connecting to %s failed: %v. Retrying in %v...", s.opts.WSEndpoint, err, wait)
	}
	if err := backoff.RetryNotify(connect, policy, notify); err != nil {
		return nil, fmt.Errorf("failed to connect to playwright at %s after %d attempts: %w", s.opts.WSEndpoint, connectAttempts, err)
	}
	s.log.Info("Connected to playwright at %s", s.opts.WSEndpoint)
	s.browser = b
	return b, nil
}

func (s *BrowserService) findManagedPage(pageID string) (*ManagedPage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	mp, ok := s.pages[pageID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPageNotFound, pageID)
	}
	return mp, nil
}

// GetPageInstance returns the playwright page registered under pageID.
func (s *BrowserService) GetPageInstance(pageID string) (playwright.Page, error) {
	mp, err := s.findManagedPage(pageID)
	if err != nil {
		return nil, err
	}
	return mp.Instance, nil
}

// Close closes every managed page and the browser, then stops playwright
// if the service started it.
func (s *BrowserService) Close() error {
	s.mu.Lock()
	pages := make([]*ManagedPage, 0, len(s.pages))
	for _, mp := range s.pages {
		pages = append(pages, mp)
	}
	s.pages = make(map[string]*ManagedPage)
	s.mu.Unlock()

	var errs []error
	for _, mp := range pages {
		s.opts.Tracker.Remove(mp.ID)
		if err := closeManagedPage(mp); err != nil {
			errs = append(errs, fmt.Errorf("failed closing page %s: %w", mp.ID, err))
		}
	}

	s.browserMu.Lock()
	defer s.browserMu.Unlock()
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed closing browser: %w", err))
		}
		s.browser = nil
	}
	if s.pw != nil {
		if err := s.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
		}
		s.pw = nil
	}
	return errors.Join(errs...)
}
