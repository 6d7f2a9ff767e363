package service

import (
	"runtime"
	"time"

	"github.com/babelcloud/vlm-bridge/internal/misc/model"
)

// Set at link time with -ldflags "-X .../internal/misc/service.Version=...".
var (
	Version   = "dev"
	BuildTime = "unknown"
	CommitID  = "unknown"
)

const apiVersion = "v1"

// MiscService answers build and runtime metadata queries.
type MiscService struct {
	endpoint string
}

// New creates a MiscService reporting endpoint as the reasoning service.
func New(endpoint string) *MiscService {
	return &MiscService{endpoint: endpoint}
}

func formatBuildTime(raw string) string {
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return raw
	}
	return t.Format("Mon Jan 2 15:04:05 2006")
}

// GetVersion returns version information for this binary.
func (s *MiscService) GetVersion() *model.VersionInfo {
	return &model.VersionInfo{
		Version:       Version,
		APIVersion:    apiVersion,
		GoVersion:     runtime.Version(),
		GitCommit:     CommitID,
		BuildTime:     BuildTime,
		FormattedTime: formatBuildTime(BuildTime),
		Endpoint:      s.endpoint,
		OS:            runtime.GOOS,
		Arch:          runtime.GOARCH,
	}
}
