package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	model "github.com/babelcloud/vlm-bridge/pkg/browser"
	"github.com/babelcloud/vlm-bridge/pkg/logger"
)

// Timeout for one page reclamation run
const pageReclaimTimeout = 2 * time.Minute

// Reclaimer closes idle pages.
type Reclaimer interface {
	Reclaim(ctx context.Context) (*model.ReclaimResult, error)
}

// Manager manages cron jobs
type Manager struct {
	cron      *cron.Cron
	logger    *logger.Logger
	reclaimer Reclaimer
	schedule  string
}

// NewManager creates a manager that runs reclaimer on schedule, a standard
// five field cron expression.
func NewManager(logger *logger.Logger, reclaimer Reclaimer, schedule string) *Manager {
	return &Manager{
		cron:      cron.New(cron.WithLogger(cron.DefaultLogger)),
		logger:    logger,
		reclaimer: reclaimer,
		schedule:  schedule,
	}
}

// Start registers the jobs and starts the scheduler.
func (m *Manager) Start() error {
	if _, err := m.cron.AddFunc(m.schedule, m.reclaimPages); err != nil {
		return fmt.Errorf("failed to add page reclaim job (%q): %w", m.schedule, err)
	}
	m.cron.Start()
	m.logger.Info("Cron manager started, reclaiming idle pages on %q", m.schedule)
	return nil
}

// Stop stops the scheduler and waits for a running job to finish.
func (m *Manager) Stop() {
	<-m.cron.Stop().Done()
	m.logger.Info("Cron manager stopped")
}

func (m *Manager) reclaimPages() {
	m.logger.Debug("Running scheduled page reclamation")
	ctx, cancel := context.WithTimeout(context.Background(), pageReclaimTimeout)
	defer cancel()

	result, err := m.reclaimer.Reclaim(ctx)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			m.logger.Error("Page reclamation timed out after %v", pageReclaimTimeout)
		} else {
			m.logger.Error("Failed to reclaim pages: %v", err)
		}
		return
	}
	if len(result.ClosedIDs) > 0 {
		m.logger.Info("Closed %d idle page(s): %v", len(result.ClosedIDs), result.ClosedIDs)
	}
}
