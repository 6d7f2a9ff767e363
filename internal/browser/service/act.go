package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/babelcloud/vlm-bridge/internal/executor"
	model "github.com/babelcloud/vlm-bridge/pkg/browser"
	"github.com/babelcloud/vlm-bridge/pkg/vision"
)

// Act runs one instruction against a page: it captures a screenshot, asks
// the reasoner for a directive, translates it and drives the page.
// A page runs one action at a time; a concurrent call gets ErrPageBusy.
func (s *BrowserService) Act(ctx context.Context, pageID string, params model.ActParams) (*model.ActResult, error) {
	if strings.TrimSpace(params.Instruction) == "" {
		return nil, fmt.Errorf("%w: instruction is required", ErrInvalidInput)
	}

	mp, err := s.findManagedPage(pageID)
	if err != nil {
		return nil, err
	}
	if !mp.busy.TryLock() {
		return nil, fmt.Errorf("%w: %s", ErrPageBusy, pageID)
	}
	defer mp.busy.Unlock()

	start := time.Now()
	s.opts.Tracker.Update(pageID)
	defer s.opts.Tracker.Update(pageID)

	shot, err := screenshot(mp.Instance)
	if err != nil {
		return nil, err
	}

	resp, err := s.opts.Reasoner.Reason(ctx, params.Instruction, shot)
	if err != nil {
		return nil, err
	}

	action, err := vision.ParseResponse(resp)
	if err != nil {
		return nil, err
	}

	if err := executor.New(s.newDevice(mp.Instance)).Execute(*action); err != nil {
		return nil, fmt.Errorf("failed to execute %s on page %s: %w", action.Method, pageID, err)
	}

	result := &model.ActResult{
		PageID:             pageID,
		Action:             *action,
		Explanation:        resp.Explanation,
		ChosenElementIndex: resp.ChosenElementIndex,
		ElementCount:       len(resp.Boxes),
		DurationMs:         time.Since(start).Milliseconds(),
	}
	s.log.WithFields(logrus.Fields{
		"page":     pageID,
		"method":   action.Method,
		"element":  resp.ChosenElementIndex,
		"duration": time.Since(start).Round(time.Millisecond),
	}).Info("Action executed")
	return result, nil
}

// Reclaim closes pages idle for longer than the configured threshold.
// Pages in the middle of an action are left alone.
func (s *BrowserService) Reclaim(ctx context.Context) (*model.ReclaimResult, error) {
	result := &model.ReclaimResult{ClosedIDs: []string{}}
	if s.opts.IdleThreshold <= 0 {
		return result, nil
	}

	for _, id := range s.opts.Tracker.Idle(s.opts.IdleThreshold) {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		mp, err := s.findManagedPage(id)
		if err != nil {
			// Tracked but no longer managed.
			s.opts.Tracker.Remove(id)
			continue
		}
		if !mp.busy.TryLock() {
			continue
		}
		err = s.ClosePage(id)
		mp.busy.Unlock()
		if err != nil {
			s.log.Warn("Failed to reclaim page %s: %v", id, err)
			continue
		}
		result.ClosedIDs = append(result.ClosedIDs, id)
	}

	if len(result.ClosedIDs) > 0 {
		s.log.Info("Reclaimed %d idle page(s)", len(result.ClosedIDs))
	}
	return result, nil
}
