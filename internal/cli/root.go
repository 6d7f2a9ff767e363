package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/babelcloud/vlm-bridge/config"
	"github.com/babelcloud/vlm-bridge/pkg/logger"
)

// NewRootCommand builds the vlm-bridge command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "vlm-bridge",
		Short:         "Drive web pages with a vision-language model",
		Long:          "vlm-bridge sends page screenshots and instructions to a VLM reasoning service and executes the chosen action with playwright.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, _ := cmd.Flags().GetString("log-level")
			if level == "" {
				return nil
			}
			return logger.New().SetLevelName(level)
		},
	}
	root.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error); overrides log.level")

	cobra.EnableCommandSorting = false
	root.AddCommand(NewServeCommand())
	root.AddCommand(NewActCommand())
	root.AddCommand(NewParseCommand())
	root.AddCommand(NewVersionCommand())
	return root
}

// Execute runs the root command
func Execute() error {
	return NewRootCommand().Execute()
}

// loadConfig returns the process configuration and applies its log level
// unless --log-level was given.
func loadConfig(cmd *cobra.Command) *config.Config {
	cfg := config.GetInstance()
	if f := cmd.Flags().Lookup("log-level"); f != nil && f.Changed {
		return cfg
	}
	if cfg.Log.Level != "" {
		if err := logger.New().SetLevelName(cfg.Log.Level); err != nil {
			logger.New().Warn("Ignoring log.level: %v", err)
		}
	}
	return cfg
}

func validateOutput(format string) error {
	switch format {
	case outputJSON, outputYAML, outputText:
		return nil
	}
	return fmt.Errorf("invalid output format %q, must be one of json, yaml or text", format)
}
