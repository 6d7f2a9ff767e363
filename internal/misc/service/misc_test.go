package service

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetVersion(t *testing.T) {
	oldVersion, oldBuild := Version, BuildTime
	t.Cleanup(func() { Version, BuildTime = oldVersion, oldBuild })

	Version = "1.2.3"
	BuildTime = "2026-10-16T09:30:00Z"

	info := New("http://vlm:8000/api/v1/reason").GetVersion()
	assert.Equal(t, "1.2.3", info.Version)
	assert.Equal(t, "v1", info.APIVersion)
	assert.Equal(t, "Fri Oct 16 09:30:00 2026", info.FormattedTime)
	assert.Equal(t, "http://vlm:8000/api/v1/reason", info.Endpoint)
	assert.Equal(t, runtime.GOOS, info.OS)

	BuildTime = "unknown"
	assert.Equal(t, "unknown", New("").GetVersion().FormattedTime)
}
