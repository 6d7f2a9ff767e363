package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	restful "github.com/emicklei/go-restful/v3"
	"github.com/spf13/cobra"

	browserApi "github.com/babelcloud/vlm-bridge/internal/browser/api"
	browserService "github.com/babelcloud/vlm-bridge/internal/browser/service"
	"github.com/babelcloud/vlm-bridge/internal/cron"
	miscApi "github.com/babelcloud/vlm-bridge/internal/misc/api"
	miscService "github.com/babelcloud/vlm-bridge/internal/misc/service"
	"github.com/babelcloud/vlm-bridge/internal/tracker"
	"github.com/babelcloud/vlm-bridge/pkg/format"
	"github.com/babelcloud/vlm-bridge/pkg/logger"
)

const shutdownTimeout = 5 * time.Second

// NewServeCommand starts the REST API.
func NewServeCommand() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the page and action API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, port)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (overrides server.port)")
	return cmd
}

func runServe(cmd *cobra.Command, port int) error {
	log := logger.New()
	cfg := *loadConfig(cmd)
	if port > 0 {
		cfg.Server.Port = port
	}

	accessTracker := tracker.NewInMemoryAccessTracker()
	log.Info("Idle pages are closed after %s", format.FormatDurationConcise(cfg.Session.IdleThreshold))

	client, _, err := newReasoningClient(&cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize reasoning client: %w", err)
	}
	log.Info("Reasoning service: %s", client.Options().Endpoint)

	browserSvc, err := browserService.NewBrowserService(browserService.OptionsFromConfig(&cfg, client, accessTracker))
	if err != nil {
		return fmt.Errorf("failed to initialize browser service: %w", err)
	}
	defer func() {
		if err := browserSvc.Close(); err != nil {
			log.Error("Failed to close browser service: %v", err)
		}
	}()
	miscSvc := miscService.New(client.Options().Endpoint)

	cronManager := cron.NewManager(log, browserSvc, cfg.Session.ReclaimSchedule)
	if err := cronManager.Start(); err != nil {
		return err
	}
	defer cronManager.Stop()

	container := newContainer(log, browserApi.NewHandler(browserSvc), miscApi.NewMiscHandler(miscSvc))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	logBrowserMode(log, browserSvc.Mode(), cfg.Browser.WSEndpoint)
	log.Info("Starting server on %s", addr)
	log.Info("Accessible URLs:")
	for _, host := range localHosts() {
		log.Info("  http://%s:%d", host, cfg.Server.Port)
	}

	server := &http.Server{
		Addr:    addr,
		Handler: container,
	}
	serveErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-serveErr:
		return fmt.Errorf("failed to start server: %w", err)
	case <-sigChan:
	}
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown: %v", err)
	}

	log.Success("Server exited properly")
	return nil
}

func newContainer(log *logger.Logger, browserHandler *browserApi.Handler, miscHandler *miscApi.MiscHandler) *restful.Container {
	container := restful.NewContainer()

	ws := new(restful.WebService)
	ws.Path("/api/v1").
		Consumes(restful.MIME_JSON).
		Produces(restful.MIME_JSON)

	browserApi.RegisterRoutes(ws, browserHandler)
	miscApi.RegisterRoutes(ws, miscHandler)
	container.Add(ws)

	endpoints := make([]format.APIEndpoint, 0, len(ws.Routes()))
	for _, route := range ws.Routes() {
		endpoints = append(endpoints, format.APIEndpoint{
			Method:      route.Method,
			Path:        route.Path,
			Description: route.Doc,
		})
	}
	format.LogAPIEndpoints(log, endpoints)

	cors := restful.CrossOriginResourceSharing{
		AllowedHeaders: []string{"Content-Type", "Accept"},
		AllowedMethods: []string{"GET", "POST", "DELETE"},
		Container:      container,
	}
	container.Filter(cors.Filter)

	container.Filter(func(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
		start := time.Now()
		url := req.Request.URL.Path
		if req.Request.URL.RawQuery != "" {
			url += "?" + req.Request.URL.RawQuery
		}

		if log.IsDebugEnabled() && len(req.Request.Header) > 0 {
			headers := make([]string, 0, len(req.Request.Header))
			for name, values := range req.Request.Header {
				headers = append(headers, fmt.Sprintf("%s: %s", name, values[0]))
			}
			log.Debug("Headers: %s", strings.Join(headers, ", "))
		}

		chain.ProcessFilter(req, resp)

		log.Info("%s %s %d %s", req.Request.Method, url, resp.StatusCode(), time.Since(start).Round(time.Millisecond))
	})

	return container
}

// logBrowserMode logs where pages run. The endpoint may contain '%'.
func logBrowserMode(log *logger.Logger, mode, endpoint string) {
	log.Info("%s", format.FormatBrowserMode(mode, endpoint))
}

// localHosts lists localhost and the first non-loopback IPv4 address.
func localHosts() []string {
	hosts := []string{"localhost", "127.0.0.1"}

	ifaces, err := net.Interfaces()
	if err != nil {
		return hosts
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&(net.FlagLoopback|net.FlagPointToPoint) != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && ipnet.IP.To4() != nil && !ipnet.IP.IsLoopback() {
				return append(hosts, ipnet.IP.String())
			}
		}
	}
	return hosts
}
