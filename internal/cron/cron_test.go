package cron

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	model "github.com/babelcloud/vlm-bridge/pkg/browser"
	"github.com/babelcloud/vlm-bridge/pkg/logger"
)

type countingReclaimer struct {
	calls atomic.Int32
	err   error
}

func (r *countingReclaimer) Reclaim(ctx context.Context) (*model.ReclaimResult, error) {
	r.calls.Add(1)
	if _, ok := ctx.Deadline(); !ok {
		return nil, errors.New("reclaim must run with a deadline")
	}
	if r.err != nil {
		return nil, r.err
	}
	return &model.ReclaimResult{ClosedIDs: []string{"page-1"}}, nil
}

func TestStartRejectsInvalidSchedule(t *testing.T) {
	m := NewManager(logger.New(), &countingReclaimer{}, "not a schedule")
	assert.Error(t, m.Start())
}

func TestReclaimPages(t *testing.T) {
	r := &countingReclaimer{}
	m := NewManager(logger.New(), r, "*/5 * * * *")
	assert.NoError(t, m.Start())
	defer m.Stop()

	m.reclaimPages()
	r.err = errors.New("boom")
	m.reclaimPages()
	assert.Equal(t, int32(2), r.calls.Load())
}
