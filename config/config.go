package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

const appName = "vlm-bridge"

// Config holds the resolved configuration of the bridge
type Config struct {
	Server    ServerConfig
	Reasoning ReasoningConfig
	Debug     DebugConfig
	Browser   BrowserConfig
	Session   SessionConfig
	Log       LogConfig
}

// ServerConfig configures the REST API
type ServerConfig struct {
	Port int
}

// ReasoningConfig configures the client of the VLM service
type ReasoningConfig struct {
	Endpoint     string
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Timeout      time.Duration
	Debug        bool
}

// DebugConfig configures the debug artifact side channel
type DebugConfig struct {
	Dir     string
	Overlay bool
}

// BrowserConfig configures how pages are obtained
type BrowserConfig struct {
	// WSEndpoint connects to a remote playwright server instead of launching chromium
	WSEndpoint     string
	Headless       bool
	ViewportWidth  int
	ViewportHeight int
	NavTimeout     time.Duration
}

// SessionConfig configures idle page reclamation
type SessionConfig struct {
	IdleThreshold   time.Duration
	ReclaimSchedule string
}

// LogConfig configures the logger
type LogConfig struct {
	Level string
}

var (
	instance *Config
	once     sync.Once
)

// GetInstance returns the process-wide configuration, loading it on first use
func GetInstance() *Config {
	once.Do(func() {
		cfg, err := Load()
		if err != nil {
			panic(fmt.Sprintf("Fatal error reading config file: %s", err))
		}
		instance = cfg
	})
	return instance
}

// Load reads defaults, config file and environment into a fresh Config
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	bindEnv(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	configPaths := []string{
		".",
		filepath.Join(xdg.ConfigHome, appName),
		"/etc/" + appName,
	}
	for _, path := range configPaths {
		v.AddConfigPath(os.ExpandEnv(path))
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// Config file not found; use defaults
	}

	return &Config{
		Server: ServerConfig{
			Port: v.GetInt("server.port"),
		},
		Reasoning: ReasoningConfig{
			Endpoint:     v.GetString("reasoning.endpoint"),
			MaxRetries:   v.GetInt("reasoning.max_retries"),
			InitialDelay: v.GetDuration("reasoning.initial_delay"),
			MaxDelay:     v.GetDuration("reasoning.max_delay"),
			Timeout:      v.GetDuration("reasoning.timeout"),
			Debug:        v.GetBool("reasoning.debug"),
		},
		Debug: DebugConfig{
			Dir:     v.GetString("debug.dir"),
			Overlay: v.GetBool("debug.overlay"),
		},
		Browser: BrowserConfig{
			WSEndpoint:     v.GetString("browser.ws_endpoint"),
			Headless:       v.GetBool("browser.headless"),
			ViewportWidth:  v.GetInt("browser.viewport_width"),
			ViewportHeight: v.GetInt("browser.viewport_height"),
			NavTimeout:     v.GetDuration("browser.nav_timeout"),
		},
		Session: SessionConfig{
			IdleThreshold:   v.GetDuration("session.idle_threshold"),
			ReclaimSchedule: v.GetString("session.reclaim_schedule"),
		},
		Log: LogConfig{
			Level: v.GetString("log.level"),
		},
	}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 28081)

	v.SetDefault("reasoning.endpoint", "http://localhost:8000/api/v1/reason")
	v.SetDefault("reasoning.max_retries", 3)
	v.SetDefault("reasoning.initial_delay", "1s")
	v.SetDefault("reasoning.max_delay", "10s")
	v.SetDefault("reasoning.timeout", "30s")
	v.SetDefault("reasoning.debug", false)

	v.SetDefault("debug.dir", filepath.Join(xdg.DataHome, appName, "debug"))
	v.SetDefault("debug.overlay", true)

	v.SetDefault("browser.ws_endpoint", "")
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.viewport_width", 1280)
	v.SetDefault("browser.viewport_height", 720)
	v.SetDefault("browser.nav_timeout", "30s")

	v.SetDefault("session.idle_threshold", "30m")
	v.SetDefault("session.reclaim_schedule", "*/5 * * * *")

	v.SetDefault("log.level", "info")
}

func bindEnv(v *viper.Viper) {
	v.AutomaticEnv()
	v.BindEnv("server.port", "PORT")
	v.BindEnv("reasoning.endpoint", "VLM_ENDPOINT")
	v.BindEnv("reasoning.max_retries", "VLM_MAX_RETRIES")
	v.BindEnv("reasoning.initial_delay", "VLM_INITIAL_DELAY")
	v.BindEnv("reasoning.max_delay", "VLM_MAX_DELAY")
	v.BindEnv("reasoning.timeout", "VLM_TIMEOUT")
	v.BindEnv("reasoning.debug", "VLM_DEBUG")
	v.BindEnv("debug.dir", "VLM_DEBUG_DIR")
	v.BindEnv("browser.ws_endpoint", "BROWSER_WS_ENDPOINT")
	v.BindEnv("browser.headless", "BROWSER_HEADLESS")
	v.BindEnv("log.level", "LOG_LEVEL")
}
