// Package commands implements the docstore-storage CLI: spec.md §6's
// "<bin> <coord_ip> <coord_port> <storage_dir> <client_port>" invocation,
// layered with the ambient config/telemetry/diagnostic-HTTP flags
// SPEC_FULL.md adds. Grounded on the teacher's cmd/dfs/commands root+start
// shape, trimmed of the database/adapter-factory surface this domain lacks.
package commands

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/opendocstore/docstore/internal/adminhttp"
	"github.com/opendocstore/docstore/internal/log"
	"github.com/opendocstore/docstore/internal/metrics"
	"github.com/opendocstore/docstore/internal/storage"
	"github.com/opendocstore/docstore/internal/telemetry"
	"github.com/opendocstore/docstore/pkg/config"
)

var (
	// Version is injected at build time via ldflags.
	Version = "dev"

	configFile string
	adminAddr  string
	nodeID     string
)

var rootCmd = &cobra.Command{
	Use:   "docstore-storage <coord_host> <coord_port> <storage_dir> <client_port>",
	Short: "Start a document store storage node",
	Long: `docstore-storage owns one shard of the document store's bytes and
metadata. It registers with the coordinator on startup (SS_INIT), then
accepts client connections for READ, STREAM, WRITE, and the other
content-path operations spec.md §4.2 describes.`,
	Args:          cobra.ExactArgs(4),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runStorage,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&adminAddr, "admin-addr", "", "Diagnostic HTTP address (empty disables /healthz and /metrics)")
	rootCmd.PersistentFlags().StringVar(&nodeID, "node-id", "", "Node ID reported at SS_INIT (default: <client_addr>)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func runStorage(cmd *cobra.Command, args []string) error {
	coordHost := args[0]
	coordPort, err := strconv.Atoi(args[1])
	if err != nil || coordPort < 1 || coordPort > 65535 {
		return fmt.Errorf("invalid coordinator port %q", args[1])
	}
	storageDir := args[2]
	clientPort, err := strconv.Atoi(args[3])
	if err != nil || clientPort < 1 || clientPort > 65535 {
		return fmt.Errorf("invalid client port %q", args[3])
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := log.Init(log.Config{
		Level:     log.ParseLevel(cfg.Logging.Level),
		Component: "storage_server",
		FilePath:  "logs/storage_server.log",
	}); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryShutdown, err := telemetry.Init(ctx, telemetry.FromAppConfig(
		cfg.Telemetry.Enabled, "docstore-storage", cfg.Telemetry.Endpoint,
		cfg.Telemetry.Insecure, cfg.Telemetry.SampleRate,
		cfg.Telemetry.ProfilingEnabled, cfg.Telemetry.ProfilingEndpoint,
	))
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer telemetryShutdown(ctx)

	clientAddr := net.JoinHostPort(localAdvertiseHost(), strconv.Itoa(clientPort))
	id := nodeID
	if id == "" {
		id = clientAddr
	}

	m := metrics.NewStorage()
	srv, err := storage.NewServer(storage.Config{
		NodeID:      id,
		Dir:         storageDir,
		CoordAddr:   net.JoinHostPort(coordHost, args[1]),
		ClientAddr:  clientAddr,
		IdleTimeout: cfg.Lock.WriteSessionIdleTimeout,
	}, m)
	if err != nil {
		return fmt.Errorf("create storage node: %w", err)
	}

	addr := adminAddr
	if addr == "" {
		addr = cfg.Admin.Addr
	}
	if addr != "" {
		alive := func() bool { return true }
		admin := adminhttp.NewServer("storage", addr, alive, m.Registry())
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

	log.Info("storage node starting", "node_id", id, "dir", storageDir, "client_port", clientPort, "coordinator", args[0]+":"+args[1])
	select {
	case <-sigCh:
		log.Info("shutdown signal received")
		cancel()
		<-serveErr
	case err := <-serveErr:
		if err != nil {
			log.Error("storage node exited with error", "error", err)
			return err
		}
	}
	return nil
}

// localAdvertiseHost picks the address this node advertises to the
// coordinator in SS_INIT: the DOCSTORE_ADVERTISE_HOST environment variable
// when set (e.g. a container's external IP), otherwise 127.0.0.1, which is
// enough for loopback setups.
func localAdvertiseHost() string {
	if h := os.Getenv("DOCSTORE_ADVERTISE_HOST"); h != "" {
		return h
	}
	return "127.0.0.1"
}
