package service

import (
	"github.com/playwright-community/playwright-go"

	"github.com/babelcloud/vlm-bridge/internal/executor"
)

// SetDeviceFactory replaces the playwright input device used by Act.
func (s *BrowserService) SetDeviceFactory(f func(playwright.Page) executor.Device) {
	s.newDevice = f
}
