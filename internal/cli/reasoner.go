package cli

import (
	"github.com/babelcloud/vlm-bridge/config"
	"github.com/babelcloud/vlm-bridge/internal/debug"
	"github.com/babelcloud/vlm-bridge/internal/reasoning"
	"github.com/babelcloud/vlm-bridge/pkg/logger"
)

// newReasoningClient builds the client described by cfg. When reasoning
// debug is on, artifacts go to cfg.Debug.Dir and the observer is returned.
// An unusable debug directory only disables the observer.
func newReasoningClient(cfg *config.Config, log *logger.Logger) (*reasoning.Client, *debug.FileObserver, error) {
	opts := reasoning.OptionsFromConfig(cfg.Reasoning)
	opts.Logger = log

	var obs *debug.FileObserver
	if cfg.Reasoning.Debug {
		var err error
		obs, err = debug.NewFileObserver(cfg.Debug.Dir, cfg.Debug.Overlay, log)
		if err != nil {
			log.Warn("Reasoning debug disabled: %v", err)
		} else {
			opts.Observer = obs
			log.Info("Writing reasoning debug artifacts to %s", obs.Dir())
		}
	}

	client, err := reasoning.NewClient(opts)
	if err != nil {
		return nil, nil, err
	}
	return client, obs, nil
}
