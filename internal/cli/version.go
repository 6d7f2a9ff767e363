package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/template"
	"time"

	"github.com/spf13/cobra"

	"github.com/babelcloud/vlm-bridge/internal/misc/model"
	"github.com/babelcloud/vlm-bridge/internal/misc/service"
)

// VersionOptions holds command options
type VersionOptions struct {
	OutputFormat string
	ShortFormat  bool
	Server       string
}

// NewVersionCommand creates a new version command
func NewVersionCommand() *cobra.Command {
	opts := &VersionOptions{}

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  "Display version information about this binary and, with --server, a running vlm-bridge server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(opts.OutputFormat); err != nil {
				return err
			}
			return runVersion(cmd, opts)
		},
	}

	flags := cmd.Flags()
	addOutputFlag(cmd, &opts.OutputFormat)
	flags.BoolVarP(&opts.ShortFormat, "short", "s", false, "Print only the version number")
	flags.StringVar(&opts.Server, "server", "", "Base URL of a running server to query, e.g. http://localhost:28081")

	return cmd
}

const versionTemplate = `{{.Title}}:
 Version:           {{.Info.Version}}
 API version:       {{.Info.APIVersion}}
 Go version:        {{.Info.GoVersion}}
 Git commit:        {{.Info.GitCommit}}
 Built:             {{.Info.FormattedTime}}
 OS/Arch:           {{.Info.OS}}/{{.Info.Arch}}
{{- if .Info.Endpoint}}
 Reasoning service: {{.Info.Endpoint}}
{{- end}}
`

type versionReport struct {
	Client      *model.VersionInfo `json:"client" yaml:"client"`
	Server      *model.VersionInfo `json:"server,omitempty" yaml:"server,omitempty"`
	ServerError string             `json:"serverError,omitempty" yaml:"serverError,omitempty"`
}

func runVersion(cmd *cobra.Command, opts *VersionOptions) error {
	out := cmd.OutOrStdout()
	client := service.New(loadConfig(cmd).Reasoning.Endpoint).GetVersion()

	if opts.ShortFormat {
		_, err := fmt.Fprintf(out, "vlm-bridge version %s, build %s\n", client.Version, client.GitCommit)
		return err
	}

	report := versionReport{Client: client}
	if opts.Server != "" {
		server, err := fetchServerVersion(opts.Server)
		if err != nil {
			report.ServerError = err.Error()
		} else {
			report.Server = server
		}
	}

	return writeOutput(out, opts.OutputFormat, report, func(w io.Writer) error {
		tmpl, err := template.New("version").Parse(versionTemplate)
		if err != nil {
			return fmt.Errorf("failed to parse version template: %w", err)
		}
		if err := tmpl.Execute(w, map[string]any{"Title": "Client", "Info": report.Client}); err != nil {
			return err
		}
		switch {
		case report.Server != nil:
			fmt.Fprintln(w)
			return tmpl.Execute(w, map[string]any{"Title": "Server", "Info": report.Server})
		case report.ServerError != "":
			_, err := fmt.Fprintf(w, "\n%s\n", report.ServerError)
			return err
		}
		return nil
	})
}

func fetchServerVersion(base string) (*model.VersionInfo, error) {
	httpClient := &http.Client{Timeout: 5 * time.Second}
	resp, err := httpClient.Get(strings.TrimRight(base, "/") + "/api/v1/version")
	if err != nil {
		return nil, fmt.Errorf("failed to reach server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned status %d", resp.StatusCode)
	}
	var info model.VersionInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode server version: %w", err)
	}
	return &info, nil
}
