package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/babelcloud/vlm-bridge/internal/debug"
	model "github.com/babelcloud/vlm-bridge/pkg/browser"
	"github.com/babelcloud/vlm-bridge/pkg/vision"
)

// ParseOptions holds command options
type ParseOptions struct {
	OutputFormat string
	Screenshot   string
	OverlayPath  string
	Open         bool
}

// NewParseCommand translates a saved reasoning response without a browser.
func NewParseCommand() *cobra.Command {
	opts := &ParseOptions{}

	cmd := &cobra.Command{
		Use:   "parse [response.json]",
		Short: "Translate a reasoning response into an action",
		Long: `Decode a raw reasoning service response and print the action it translates to.
The response is read from stdin when no file is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(opts.OutputFormat); err != nil {
				return err
			}
			if opts.Screenshot != "" && opts.OverlayPath == "" {
				return fmt.Errorf("--overlay-out is required with --screenshot")
			}
			return runParse(cmd, args, opts)
		},
	}

	flags := cmd.Flags()
	addOutputFlag(cmd, &opts.OutputFormat)
	flags.StringVar(&opts.Screenshot, "screenshot", "", "Screenshot the response was produced from; renders an overlay")
	flags.StringVar(&opts.OverlayPath, "overlay-out", "", "Where to write the overlay PNG")
	flags.BoolVar(&opts.Open, "open", false, "Open the overlay in the default viewer")

	return cmd
}

func runParse(cmd *cobra.Command, args []string, opts *ParseOptions) error {
	var (
		body []byte
		err  error
	)
	if len(args) == 1 {
		body, err = os.ReadFile(args[0])
	} else {
		body, err = io.ReadAll(cmd.InOrStdin())
	}
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	resp, err := vision.DecodeResponse(body)
	if err != nil {
		return err
	}
	action, err := vision.ParseResponse(resp)
	if err != nil {
		return err
	}

	if opts.Screenshot != "" {
		if err := writeOverlay(opts, resp, action); err != nil {
			return err
		}
	}

	result := model.NewParseResult(resp, action)
	return writeOutput(cmd.OutOrStdout(), opts.OutputFormat, result, func(w io.Writer) error {
		return describeAction(w, result.Action, result.Explanation, result.ChosenElementIndex, result.ElementCount)
	})
}

func writeOverlay(opts *ParseOptions, resp *vision.Response, action *vision.ParsedAction) error {
	shot, err := os.ReadFile(opts.Screenshot)
	if err != nil {
		return fmt.Errorf("failed to read screenshot: %w", err)
	}
	img, err := debug.RenderOverlay(shot, resp, action)
	if err != nil {
		return err
	}
	if err := os.WriteFile(opts.OverlayPath, img, 0644); err != nil {
		return fmt.Errorf("failed to write overlay: %w", err)
	}
	if opts.Open {
		return browser.OpenFile(opts.OverlayPath)
	}
	return nil
}

// describeAction prints an action the way a person would say it.
func describeAction(w io.Writer, action vision.ParsedAction, explanation string, index, count int) error {
	var line string
	switch action.Method {
	case vision.MethodClick:
		line = fmt.Sprintf("click at (%g, %g)", action.Coordinates.X, action.Coordinates.Y)
	case vision.MethodFill:
		line = fmt.Sprintf("fill %q at (%g, %g)", action.Value, action.Coordinates.X, action.Coordinates.Y)
	case vision.MethodScroll:
		line = fmt.Sprintf("scroll %s", action.Value)
	default:
		line = string(action.Method)
	}
	if _, err := fmt.Fprintf(w, "Action:      %s\n", line); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Element:     %d of %d\n", index, count); err != nil {
		return err
	}
	if explanation != "" {
		if _, err := fmt.Fprintf(w, "Explanation: %s\n", explanation); err != nil {
			return err
		}
	}
	return nil
}
