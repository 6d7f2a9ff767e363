package service

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"

	model "github.com/babelcloud/vlm-bridge/pkg/browser"
)

// CreatePage opens url in a fresh browser context and registers the page.
func (s *BrowserService) CreatePage(params model.CreatePageParams) (*model.CreatePageResult, error) {
	if params.URL == "" {
		return nil, fmt.Errorf("%w: url is required", ErrInvalidInput)
	}

	b, err := s.getBrowser()
	if err != nil {
		return nil, err
	}

	width, height := params.Width, params.Height
	if width <= 0 {
		width = s.opts.ViewportWidth
	}
	if height <= 0 {
		height = s.opts.ViewportHeight
	}
	ctxOpts := playwright.BrowserNewContextOptions{}
	if width > 0 && height > 0 {
		ctxOpts.Viewport = &playwright.Size{Width: width, Height: height}
	}
	bc, err := b.NewContext(ctxOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	page, err := bc.NewPage()
	if err != nil {
		bc.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	gotoOpts := playwright.PageGotoOptions{}
	if params.Timeout > 0 {
		gotoOpts.Timeout = playwright.Float(float64(params.Timeout))
	} else if s.opts.NavTimeout > 0 {
		gotoOpts.Timeout = playwright.Float(float64(s.opts.NavTimeout.Milliseconds()))
	}
	if params.WaitUntil != "" {
		gotoOpts.WaitUntil = &params.WaitUntil
	}
	if _, err := page.Goto(params.URL, gotoOpts); err != nil {
		bc.Close()
		return nil, fmt.Errorf("failed to navigate page to %s: %w", params.URL, err)
	}
	mp := s.register(page, bc)
	title := s.pageTitle(mp)
	page.Once("close", func() {
		s.log.Debug("Page %s close event", mp.ID)
		s.forget(mp.ID)
	})

	s.log.Info("Opened page %s at %s", mp.ID, params.URL)
	result := model.NewCreatePageResult(mp.ID, params.URL, title)
	return &result, nil
}

// AttachPage registers a page the caller already owns and returns its id.
// ClosePage closes the page but the caller keeps its browser context.
func (s *BrowserService) AttachPage(page playwright.Page) string {
	return s.register(page, nil).ID
}

func (s *BrowserService) register(page playwright.Page, bc playwright.BrowserContext) *ManagedPage {
	mp := &ManagedPage{
		ID:       uuid.New().String(),
		Instance: page,
		Context:  bc,
	}
	s.mu.Lock()
	s.pages[mp.ID] = mp
	s.mu.Unlock()
	s.opts.Tracker.Update(mp.ID)
	return mp
}

// pageTitle returns "" when the title cannot be read.
func (s *BrowserService) pageTitle(mp *ManagedPage) string {
	title, err := mp.Instance.Title()
	if err != nil {
		s.log.Warn("Failed to get title for page %s: %v", mp.ID, err)
	}
	return title
}

func (s *BrowserService) forget(pageID string) *ManagedPage {
	s.mu.Lock()
	mp, ok := s.pages[pageID]
	delete(s.pages, pageID)
	s.mu.Unlock()
	s.opts.Tracker.Remove(pageID)
	if !ok {
		return nil
	}
	return mp
}

// ListPages describes every managed page, ordered by id.
func (s *BrowserService) ListPages() *model.ListPagesResult {
	s.mu.RLock()
	pages := make([]*ManagedPage, 0, len(s.pages))
	for _, mp := range s.pages {
		pages = append(pages, mp)
	}
	s.mu.RUnlock()

	sort.Slice(pages, func(i, j int) bool { return pages[i].ID < pages[j].ID })

	result := &model.ListPagesResult{Pages: make([]model.PageInfo, 0, len(pages))}
	for _, mp := range pages {
		title := s.pageTitle(mp)
		lastAccessed, _ := s.opts.Tracker.GetLastAccessed(mp.ID)
		result.Pages = append(result.Pages, model.PageInfo{
			PageID:       mp.ID,
			URL:          mp.Instance.URL(),
			Title:        title,
			LastAccessed: lastAccessed,
		})
	}
	return result
}

// ClosePage closes a managed page and stops tracking it.
func (s *BrowserService) ClosePage(pageID string) error {
	mp := s.forget(pageID)
	if mp == nil {
		return fmt.Errorf("%w: %s", ErrPageNotFound, pageID)
	}
	if err := closeManagedPage(mp); err != nil {
		return fmt.Errorf("failed to close page %s: %w", pageID, err)
	}
	s.log.Info("Closed page %s", pageID)
	return nil
}

// Screenshot captures the viewport of a managed page as PNG.
func (s *BrowserService) Screenshot(pageID string) ([]byte, error) {
	mp, err := s.findManagedPage(pageID)
	if err != nil {
		return nil, err
	}
	s.opts.Tracker.Update(pageID)
	return screenshot(mp.Instance)
}

func screenshot(page playwright.Page) ([]byte, error) {
	data, err := page.Screenshot(playwright.PageScreenshotOptions{
		Type: playwright.ScreenshotTypePng,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to take screenshot: %w", err)
	}
	return data, nil
}

func closeManagedPage(mp *ManagedPage) error {
	if mp.Context != nil {
		return mp.Context.Close()
	}
	return mp.Instance.Close()
}
