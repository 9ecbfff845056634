package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/LuisPadre25/wu-cli/internal/config"
	"github.com/LuisPadre25/wu-cli/internal/server"
	"github.com/LuisPadre25/wu-cli/internal/telemetry"
)

func devCmd() *cobra.Command {
	var (
		port      int
		host      string
		open      bool
		debugPort int
	)

	cmd := &cobra.Command{
		Use:   "dev",
		Short: "Start the unified development server",
		Long: `Start the development server for every app in the project.

All apps, the shell, and resolved npm modules are served from one port.
File changes hot-reload the affected app in connected browsers.

Examples:
  wu dev
  wu dev --port=8080
  wu dev --debug-port=9090`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDev(port, host, open, debugPort)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to serve on (default from wu.config.json)")
	cmd.Flags().StringVarP(&host, "host", "H", "localhost", "Host to bind to")
	cmd.Flags().BoolVarP(&open, "open", "o", false, "Open browser on start")
	cmd.Flags().IntVar(&debugPort, "debug-port", 0, "Serve /metrics and /healthz on this port (0 disables)")

	return cmd
}

func runDev(port int, host string, open bool, debugPort int) error {
	wd, err := os.Getwd()
	if err != nil {
		return err
	}

	cfg, err := config.Load(wd)
	if err != nil {
		return err
	}
	if port > 0 {
		cfg.Proxy.Port = port
	}
	if open {
		cfg.Proxy.OpenBrowser = true
	}

	printBanner()
	info("%s — %d apps", cfg.Name, len(cfg.Apps))
	for _, app := range cfg.Apps {
		info("  %s (%s) %s", app.Name, app.Framework, app.Dir)
	}
	fmt.Println()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	var metrics *telemetry.Metrics
	var debug *telemetry.DebugServer
	if debugPort > 0 {
		metrics = telemetry.NewMetrics(telemetry.MetricsConfig{})
	}

	srv := server.New(server.Options{
		Config:  cfg,
		Host:    host,
		Logger:  logger,
		Metrics: metrics,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\n  Shutting down...")
		cancel()
	}()

	if debugPort > 0 {
		debug = telemetry.NewDebugServer(fmt.Sprintf("%s:%d", host, debugPort), srv.Store(), logger)
		go debug.Run()
		defer debug.Close()
	}

	if err := srv.Listen(); err != nil {
		return err
	}
	success("Serving at http://%s", srv.Addr())

	if cfg.Proxy.OpenBrowser {
		go openURL("http://" + srv.Addr())
	}

	return srv.Run(ctx)
}

// openURL opens a URL in the default browser.
func openURL(url string) {
	var cmd *exec.Cmd
	switch {
	case commandExists("xdg-open"):
		cmd = exec.Command("xdg-open", url)
	case commandExists("open"):
		cmd = exec.Command("open", url)
	case commandExists("start"):
		cmd = exec.Command("cmd", "/c", "start", url)
	default:
		return
	}
	cmd.Start()
}

// commandExists checks if a command exists in PATH.
func commandExists(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
