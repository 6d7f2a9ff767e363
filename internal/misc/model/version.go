package model

// VersionInfo describes the running build.
type VersionInfo struct {
	Version       string `json:"version" yaml:"version"`
	APIVersion    string `json:"apiVersion" yaml:"apiVersion"`
	GoVersion     string `json:"goVersion" yaml:"goVersion"`
	GitCommit     string `json:"gitCommit" yaml:"gitCommit"`
	BuildTime     string `json:"buildTime" yaml:"buildTime"`
	FormattedTime string `json:"formattedTime" yaml:"formattedTime"`
	// Endpoint is the reasoning service this build is configured against.
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	OS       string `json:"os" yaml:"os"`
	Arch     string `json:"arch" yaml:"arch"`
}
