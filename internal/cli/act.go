package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/babelcloud/vlm-bridge/internal/browser/service"
	"github.com/babelcloud/vlm-bridge/internal/tracker"
	model "github.com/babelcloud/vlm-bridge/pkg/browser"
	"github.com/babelcloud/vlm-bridge/pkg/logger"
)

// ActOptions holds command options
type ActOptions struct {
	URL          string
	Instruction  string
	OutputFormat string
	Debug        bool
	OpenOverlay  bool
	Headed       bool
}

// NewActCommand runs a single instruction against a freshly opened page.
func NewActCommand() *cobra.Command {
	opts := &ActOptions{}

	cmd := &cobra.Command{
		Use:   "act",
		Short: "Open a page and perform one instruction on it",
		Example: `  vlm-bridge act --url https://www.google.com --instruction "Type BrowserBase in the search box"
  vlm-bridge act --url https://example.com -i "Click the More information link" --debug --open-overlay`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(opts.OutputFormat); err != nil {
				return err
			}
			return runAct(cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.URL, "url", "", "Page to open")
	flags.StringVarP(&opts.Instruction, "instruction", "i", "", "What to do on the page")
	flags.BoolVar(&opts.Debug, "debug", false, "Write reasoning debug artifacts (overrides reasoning.debug)")
	flags.BoolVar(&opts.OpenOverlay, "open-overlay", false, "Open the annotated screenshot after the action; implies --debug")
	flags.BoolVar(&opts.Headed, "headed", false, "Show the browser window")
	addOutputFlag(cmd, &opts.OutputFormat)
	cmd.MarkFlagRequired("url")
	cmd.MarkFlagRequired("instruction")

	return cmd
}

func runAct(cmd *cobra.Command, opts *ActOptions) error {
	log := logger.New()
	cfg := *loadConfig(cmd)
	if opts.Debug || opts.OpenOverlay {
		cfg.Reasoning.Debug = true
	}
	if opts.Headed {
		cfg.Browser.Headless = false
	}

	client, obs, err := newReasoningClient(&cfg, log)
	if err != nil {
		return err
	}

	svc, err := service.NewBrowserService(service.OptionsFromConfig(&cfg, client, tracker.NewInMemoryAccessTracker()))
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			log.Warn("Failed to shut down browser: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	page, err := svc.CreatePage(model.CreatePageParams{URL: opts.URL})
	if err != nil {
		return err
	}

	result, err := svc.Act(ctx, page.PageID, model.ActParams{Instruction: opts.Instruction})
	if err != nil {
		if ctx.Err() == context.Canceled {
			return fmt.Errorf("interrupted: %w", err)
		}
		return err
	}

	if err := writeOutput(cmd.OutOrStdout(), opts.OutputFormat, result, func(w io.Writer) error {
		fmt.Fprintf(w, "Page:        %s\n", page.URL)
		return describeAction(w, result.Action, result.Explanation, result.ChosenElementIndex, result.ElementCount)
	}); err != nil {
		return err
	}

	if opts.OpenOverlay && obs != nil {
		if path := obs.LastOverlay(); path != "" {
			return browser.OpenFile(path)
		}
		log.Warn("No overlay was written to %s", obs.Dir())
	}
	return nil
}
