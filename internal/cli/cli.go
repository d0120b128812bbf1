// ============================================================================
// Priority Timeline CLI - Command Line Interface
// ============================================================================
//
// Package: internal/cli
// File: cli.go
// Purpose: Cobra command tree for rendering, serving and editing timelines
//
// Command Structure:
//   timeline                       # Root command
//   ├── render                     # Render the visible set once (or on change)
//   │   ├── --output, -o          # Write atomically to a file instead of stdout
//   │   ├── --format              # svg | text (overrides render.format)
//   │   └── --watch               # Re-render whenever the config file changes
//   ├── serve                      # gRPC + HTTP service for one timeline
//   ├── visible                    # Print the visible set of a running server
//   ├── add                        # Add an item to a running server
//   ├── delete                     # Delete an item from a running server
//   ├── resize                     # Change the track width of a running server
//   ├── validate                   # Strict check of the timeline section
//   ├── --config, -c              # Config file (default: configs/default.yaml)
//   ├── --version                  # Display version information
//   └── --help                     # Display help information
//
// serve Command:
//   1. Load config file
//   2. Build Service (domain + view), metrics collector if enabled
//   3. Start gRPC server on server.grpc_port
//   4. Start HTTP server (chi) on server.http_port
//   5. Start config watcher if server.watch is set
//   6. Wait for SIGINT / SIGTERM and shut everything down
//
//   Examples:
//     ./timeline serve
//     ./timeline serve -c custom.yaml
//
// Client Commands:
//   visible / add / delete / resize talk to `serve` over gRPC. --addr defaults
//   to localhost:<server.grpc_port>.
//
//   Examples:
//     ./timeline add --id 4 --location 0.5 --priority 2 --label Fourth
//     ./timeline resize 1200
//     ./timeline visible --watch
//
// ============================================================================

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/ChuLiYu/priority-timeline/internal/config"
	"github.com/ChuLiYu/priority-timeline/internal/export"
	"github.com/ChuLiYu/priority-timeline/internal/metrics"
	"github.com/ChuLiYu/priority-timeline/internal/render"
	"github.com/ChuLiYu/priority-timeline/internal/server"
	"github.com/ChuLiYu/priority-timeline/internal/timeline"
	"github.com/ChuLiYu/priority-timeline/internal/watch"
	"github.com/ChuLiYu/priority-timeline/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const rpcTimeout = 10 * time.Second

var configFile string

func BuildCLI() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "timeline",
		Short: "Priority Timeline: collision-free labels on a one-dimensional track",
		Long: `Priority Timeline shows as many items on a track as fit without overlap:
- Priority layers, most important first
- Reactive recomputation on every edit and resize
- SVG and text rendering
- gRPC and HTTP access with Prometheus metrics`,
		Version:      "1.0.0",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "configs/default.yaml", "config file path")

	rootCmd.AddCommand(buildRenderCommand())
	rootCmd.AddCommand(buildServeCommand())
	rootCmd.AddCommand(buildVisibleCommand())
	rootCmd.AddCommand(buildAddCommand())
	rootCmd.AddCommand(buildDeleteCommand())
	rootCmd.AddCommand(buildResizeCommand())
	rootCmd.AddCommand(buildValidateCommand())

	return rootCmd
}

// loadConfig reads the config file and installs a logger at its level.
func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: cfg.LogLevel()}))
	slog.SetDefault(logger)

	if err := cfg.Timeline.Validate(); err != nil {
		logger.Warn("timeline config has problems", "error", err)
	}
	return cfg, logger, nil
}

// clientLogger is the logger for commands that talk to a server. They run
// without a config file, so log.level applies only when one loads.
func clientLogger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelInfo
	if cfg, err := config.Load(configFile); err == nil {
		level = cfg.LogLevel()
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// ============================================================================
// render
// ============================================================================

func buildRenderCommand() *cobra.Command {
	var output string
	var format string
	var backups int
	var watchFile bool

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the visible items of the configured timeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if format != "" {
				if format != config.FormatSVG && format != config.FormatText {
					return fmt.Errorf("unknown render format %q", format)
				}
				cfg.Render.Format = format
			}
			if output != "" {
				cfg.Render.Output = output
			}
			if watchFile {
				return renderWatch(cmd, cfg, backups, logger)
			}
			return renderOnce(cmd.OutOrStdout(), cfg, backups, logger)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: render.output, else stdout)")
	cmd.Flags().StringVar(&format, "format", "", "output format: svg, text")
	cmd.Flags().IntVar(&backups, "backups", 0, "previous renderings to keep next to the output file")
	cmd.Flags().BoolVar(&watchFile, "watch", false, "re-render whenever the config file changes")

	return cmd
}

func renderOptions(cfg *config.Config) render.Options {
	return render.Options{Height: cfg.Render.Height}
}

// sink returns where renderings go: an atomic file writer when an output
// path is configured, else out.
func sink(out io.Writer, cfg *config.Config, backups int) (func([]byte) error, error) {
	if cfg.Render.Output == "" {
		return func(b []byte) error {
			_, err := out.Write(b)
			return err
		}, nil
	}
	w, err := export.NewWriter(cfg.Render.Output, backups)
	if err != nil {
		return nil, err
	}
	return w.Write, nil
}

func renderOnce(out io.Writer, cfg *config.Config, backups int, logger *slog.Logger) error {
	write, err := sink(out, cfg, backups)
	if err != nil {
		return err
	}

	domain := timeline.NewDomain(cfg.Timeline, timeline.WithLogger(logger))
	defer domain.Dispose()
	view := render.NewView(domain, cfg.Render.Format, renderOptions(cfg))
	defer view.Close()

	logger.Debug("rendered", "visible", len(domain.VisibleItems().Get()), "items", len(domain.Items().Get()))
	if err := write(view.Bytes()); err != nil {
		return fmt.Errorf("failed to write rendering: %w", err)
	}
	return nil
}

func renderWatch(cmd *cobra.Command, cfg *config.Config, backups int, logger *slog.Logger) error {
	write, err := sink(cmd.OutOrStdout(), cfg, backups)
	if err != nil {
		return err
	}

	svc := server.NewService(cfg.Timeline, cfg.Render.Format, renderOptions(cfg), nil, logger)
	defer svc.Close()

	w, err := watch.NewWatcher(configFile, logger)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := w.Start(); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer w.Stop()

	emit := func() {
		body, _ := svc.Rendering()
		if err := write(body); err != nil {
			logger.Error("failed to write rendering", "error", err)
		}
	}
	emit()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case next, ok := <-w.Changes:
			if !ok {
				return nil
			}
			svc.Reload(next.Timeline)
			emit()
		}
	}
}

// ============================================================================
// serve
// ============================================================================

func buildServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the gRPC and HTTP timeline service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg, logger)
		},
	}
	return cmd
}

func runServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector(prometheus.NewRegistry())
	}

	svc := server.NewService(cfg.Timeline, cfg.Render.Format, renderOptions(cfg), collector, logger)
	defer svc.Close()

	// gRPC
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.GRPCPort))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", cfg.Server.GRPCPort, err)
	}
	grpcServer := grpc.NewServer()
	server.RegisterTimelineServiceServer(grpcServer, server.NewGRPCServer(svc))

	// HTTP
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:           server.NewRouter(svc, collector),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("gRPC server listening", "addr", lis.Addr().String())
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("gRPC server failed: %w", err)
		}
	}()
	go func() {
		logger.Info("HTTP server listening", "addr", httpServer.Addr, "metrics", collector != nil)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server failed: %w", err)
		}
	}()

	var changes <-chan *config.Config
	if cfg.Server.Watch {
		w, err := watch.NewWatcher(configFile, logger)
		if err != nil {
			return fmt.Errorf("failed to create watcher: %w", err)
		}
		if err := w.Start(); err != nil {
			return fmt.Errorf("failed to start watcher: %w", err)
		}
		defer w.Stop()
		changes = w.Changes
	}

	logger.Info("timeline service started", "items", len(svc.Items()), "visible", len(svc.Visible()))

	var runErr error
loop:
	for {
		select {
		case <-ctx.Done():
			logger.Info("received shutdown signal, stopping gracefully")
			break loop
		case runErr = <-errCh:
			break loop
		case next, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			svc.Reload(next.Timeline)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown", "error", err)
	}

	// watch streams never end on their own
	stopped := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-shutdownCtx.Done():
		grpcServer.Stop()
	}

	logger.Info("timeline service stopped")
	return runErr
}

// ============================================================================
// client commands
// ============================================================================

func addAddrFlag(cmd *cobra.Command, addr *string) {
	cmd.Flags().StringVar(addr, "addr", "", "server address (default: localhost:<server.grpc_port>)")
}

// dial connects to addr, falling back to the configured gRPC port.
func dial(addr string) (*server.Client, func(), error) {
	if addr == "" {
		port := 50051
		if cfg, err := config.Load(configFile); err == nil {
			port = cfg.Server.GRPCPort
		}
		addr = net.JoinHostPort("localhost", strconv.Itoa(port))
	}

	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	return server.NewClient(conn), func() { conn.Close() }, nil
}

func printItems(out io.Writer, items []server.Item) {
	if len(items) == 0 {
		fmt.Fprintln(out, "(no visible items)")
		return
	}
	for _, item := range items {
		fmt.Fprintf(out, "%-8s %-20s @%.3f  p%d\n", item.ID, item.Label, item.Location, item.Priority)
	}
}

func buildVisibleCommand() *cobra.Command {
	var addr string
	var follow bool

	cmd := &cobra.Command{
		Use:   "visible",
		Short: "Print the visible items of a running server",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, closeConn, err := dial(addr)
			if err != nil {
				return err
			}
			defer closeConn()
			out := cmd.OutOrStdout()

			if follow {
				ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
				defer stop()
				err := client.WatchVisible(ctx, func(items []server.Item) {
					fmt.Fprintf(out, "--- %s\n", time.Now().Format(time.TimeOnly))
					printItems(out, items)
				})
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), rpcTimeout)
			defer cancel()
			items, err := client.GetVisible(ctx)
			if err != nil {
				return err
			}
			printItems(out, items)
			return nil
		},
	}

	addAddrFlag(cmd, &addr)
	cmd.Flags().BoolVarP(&follow, "watch", "w", false, "keep printing the visible set as it changes")
	return cmd
}

func buildAddCommand() *cobra.Command {
	var addr string
	var item server.Item
	var color string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an item to a running server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if color != "" {
				item.Value.Color = types.Color(color)
			}
			if err := timeline.ValidateItem(item); err != nil {
				clientLogger(cmd).Warn("adding item anyway", "error", err)
			}

			client, closeConn, err := dial(addr)
			if err != nil {
				return err
			}
			defer closeConn()

			ctx, cancel := context.WithTimeout(cmd.Context(), rpcTimeout)
			defer cancel()
			if err := client.AddItem(ctx, item); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %s\n", item.ID)
			return nil
		},
	}

	addAddrFlag(cmd, &addr)
	cmd.Flags().StringVar(&item.ID, "id", "", "item id")
	cmd.Flags().Float64Var(&item.Location, "location", 0, "position on the track, 0..1")
	cmd.Flags().StringVar(&item.Label, "label", "", "display label")
	cmd.Flags().IntVar(&item.Priority, "priority", 0, "priority value")
	cmd.Flags().StringVar(&item.Value.Title, "title", "", "marker title")
	cmd.Flags().StringVar(&item.Value.Notes, "notes", "", "marker notes")
	cmd.Flags().StringVar(&color, "color", "", "marker fill color")
	cmd.MarkFlagRequired("id")
	cmd.MarkFlagRequired("location")

	return cmd
}

func buildDeleteCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an item from a running server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, closeConn, err := dial(addr)
			if err != nil {
				return err
			}
			defer closeConn()

			ctx, cancel := context.WithTimeout(cmd.Context(), rpcTimeout)
			defer cancel()
			if err := client.DeleteItem(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}

	addAddrFlag(cmd, &addr)
	return cmd
}

func buildResizeCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "resize <width>",
		Short: "Change the track width of a running server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			width, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("invalid width %q: %w", args[0], err)
			}

			client, closeConn, err := dial(addr)
			if err != nil {
				return err
			}
			defer closeConn()

			ctx, cancel := context.WithTimeout(cmd.Context(), rpcTimeout)
			defer cancel()
			if err := client.SetTotalWidth(ctx, width); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "width set to %g\n", width)
			return nil
		},
	}

	addAddrFlag(cmd, &addr)
	return cmd
}

// ============================================================================
// validate
// ============================================================================

func buildValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the timeline section of the config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if err := cfg.Timeline.Validate(); err != nil {
				return fmt.Errorf("%s is invalid:\n%w", configFile, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d items, priorities %v, ok\n",
				configFile, len(cfg.Timeline.Items), cfg.Timeline.PriorityList)
			return nil
		},
	}
	return cmd
}
