// Package commands implements the docstore-coordinator CLI: spec.md §6's
// "<bin> <port>" invocation, layered with the ambient config/telemetry/
// diagnostic-HTTP flags SPEC_FULL.md adds. Grounded on the teacher's
// cmd/dfs/commands/root.go + start.go shape.
package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/opendocstore/docstore/internal/adminhttp"
	"github.com/opendocstore/docstore/internal/coordinator"
	"github.com/opendocstore/docstore/internal/log"
	"github.com/opendocstore/docstore/internal/metrics"
	"github.com/opendocstore/docstore/internal/telemetry"
	"github.com/opendocstore/docstore/pkg/config"
)

var (
	// Version is injected at build time via ldflags.
	Version = "dev"

	configFile  string
	adminAddr   string
	enableExec  bool
	registryDir string
)

var rootCmd = &cobra.Command{
	Use:   "docstore-coordinator <port>",
	Short: "Start the document store coordinator node",
	Long: `docstore-coordinator owns the filename-to-storage-node index, the
client registry, and the ACL authorization decisions for the document
store. It accepts storage-node SS_INIT registrations and client
CLIENT_INIT sessions on the same TCP port.`,
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runCoordinator,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&adminAddr, "admin-addr", "", "Diagnostic HTTP address (empty disables /healthz and /metrics)")
	rootCmd.PersistentFlags().BoolVar(&enableExec, "enable-exec", false, "Allow the EXEC command to run shell commands (default off; see spec.md §9)")
	rootCmd.PersistentFlags().StringVar(&registryDir, "registry-path", "", "Path to the client registry file (default: ./docstore-coordinator.registry)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func runCoordinator(cmd *cobra.Command, args []string) error {
	port, err := strconv.Atoi(args[0])
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid port %q", args[0])
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := log.Init(log.Config{
		Level:     log.ParseLevel(cfg.Logging.Level),
		Component: "name_server",
		FilePath:  "logs/name_server.log",
	}); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryShutdown, err := telemetry.Init(ctx, telemetry.FromAppConfig(
		cfg.Telemetry.Enabled, "docstore-coordinator", cfg.Telemetry.Endpoint,
		cfg.Telemetry.Insecure, cfg.Telemetry.SampleRate,
		cfg.Telemetry.ProfilingEnabled, cfg.Telemetry.ProfilingEndpoint,
	))
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer telemetryShutdown(ctx)

	registryPath := registryDir
	if registryPath == "" {
		registryPath = "docstore-coordinator.registry"
	}

	m := metrics.NewCoordinator()
	srv, err := coordinator.NewServer(coordinator.Config{
		ListenAddr:   fmt.Sprintf(":%d", port),
		RegistryPath: registryPath,
		EnableExec:   enableExec,
	}, m)
	if err != nil {
		return fmt.Errorf("create coordinator: %w", err)
	}

	addr := adminAddr
	if addr == "" {
		addr = cfg.Admin.Addr
	}
	if addr != "" {
		alive := func() bool { return true } // the actor loop either runs or the process has already exited
		admin := adminhttp.NewServer("coordinator", addr, alive, m.Registry())
		go func() {
			if err := admin.Start(ctx); err != nil {
				log.Warn("admin HTTP server stopped", "error", err)
			}
		}()
		defer admin.Stop(context.Background())
		log.Info("diagnostic HTTP surface enabled", "addr", addr)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Run(ctx) }()

	log.Info("coordinator starting", "port", port, "enable_exec", enableExec)
	select {
	case <-sigCh:
		log.Info("shutdown signal received")
		cancel()
		<-serveErr
	case err := <-serveErr:
		if err != nil {
			log.Error("coordinator exited with error", "error", err)
			return err
		}
	}
	return nil
}
