// CLAUDE:SUMMARY voxsearch CLI entry point: serve, search, listen, ask, mcp and import subcommands.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"golang.org/x/sync/errgroup"

	"github.com/hazyhaar/voxsearch/pkg/api"
	"github.com/hazyhaar/voxsearch/pkg/chassis"
	"github.com/hazyhaar/voxsearch/pkg/config"
	"github.com/hazyhaar/voxsearch/pkg/dataset"
	"github.com/hazyhaar/voxsearch/pkg/importer"
	"github.com/hazyhaar/voxsearch/pkg/voice"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "serve":
		err = cmdServe(os.Args[2:])
	case "search":
		err = cmdSearch(os.Args[2:])
	case "listen":
		err = cmdListen(os.Args[2:])
	case "ask":
		err = cmdAsk(os.Args[2:])
	case "mcp":
		err = cmdMCP(os.Args[2:])
	case "import":
		err = cmdImport(os.Args[2:])
	case "version":
		fmt.Println("voxsearch", version)
	default:
		usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "voxsearch %s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: voxsearch <command> [flags]

Commands:
  serve    Start the HTTP server (plus HTTP/3 and MCP over QUIC with TLS)
  search   Filter a dataset from the command line
  listen   Voice session reading transcripts from stdin
  ask      Query a running server over MCP/QUIC
  mcp      Serve the MCP tools on stdio
  import   Manage and import dataset sources
  version  Print the version
`)
}

// setup loads the configuration, installs the logger and loads the datasets.
func setup(ctx context.Context, cfgPath string) (*config.Config, *slog.Logger, *dataset.Registry, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, nil, err
	}
	logger := config.NewLogger(cfg.Log, os.Stderr)

	reg := dataset.NewRegistry(cfg.DatasetsDir, logger)
	if err := reg.Load(ctx); err != nil {
		return nil, nil, nil, fmt.Errorf("load datasets: %w", err)
	}
	logger.Debug("datasets loaded", "count", reg.DatasetCount(), "records", reg.TotalRecords())
	return cfg, logger, reg, nil
}

func newMCPServer(d api.Deps) *server.MCPServer {
	srv := server.NewMCPServer("voxsearch", version, server.WithToolCapabilities(false))
	api.RegisterMCPTools(srv, d)
	return srv
}

func cmdServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cfgPath := fs.String("config", "", "path to config file (default $VOXSEARCH_CONFIG or config.yaml)")
	fs.Parse(args)

	// SIGINT/SIGTERM: graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, logger, reg, err := setup(ctx, *cfgPath)
	if err != nil {
		return err
	}
	logger.Info("datasets loaded", "count", reg.DatasetCount(), "records", reg.TotalRecords())

	sessions := voice.NewManager(reg, voice.ContextGate, logger)
	defer sessions.CloseAll()

	deps := api.Deps{
		Registry:       reg,
		Sessions:       sessions,
		DefaultDataset: cfg.DefaultDataset,
		Logger:         logger,
	}
	router := api.NewRouter(deps)

	// SIGHUP: hot reload datasets.
	sighup := make(chan os.Signal, 1)
	signal.Notify(sighup, syscall.SIGHUP)
	defer signal.Stop(sighup)
	go func() {
		for range sighup {
			logger.Info("SIGHUP received, reloading datasets")
			if err := reg.Reload(ctx); err != nil {
				logger.Error("reload failed", "error", err)
			} else {
				logger.Info("datasets reloaded", "count", reg.DatasetCount(), "records", reg.TotalRecords())
			}
		}
	}()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		reapSessions(gctx, sessions, cfg.Session.IdleTTL, logger)
		return nil
	})

	if cfg.Sources.DBPath != "" {
		sdb, err := importer.OpenSourceDB(cfg.Sources.DBPath)
		if err != nil {
			return fmt.Errorf("open sources db: %w", err)
		}
		defer sdb.Close()
		checker := importer.NewChecker(sdb, logger, cfg.Sources.CheckInterval)
		g.Go(func() error {
			checker.Start(gctx)
			return nil
		})
	}

	var mcpSrv *server.MCPServer
	if cfg.MCPOverQUIC() {
		mcpSrv = newMCPServer(deps)
	}
	ch, err := chassis.New(chassis.Config{
		Addr:      cfg.Addr,
		Plain:     !cfg.TLS.Enabled,
		CertFile:  cfg.TLS.CertFile,
		KeyFile:   cfg.TLS.KeyFile,
		Handler:   router,
		MCPServer: mcpSrv,
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	g.Go(func() error { return ch.Start(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return ch.Stop(shutdownCtx)
	})

	return g.Wait()
}

// reapSessions drops voice sessions idle for longer than ttl.
func reapSessions(ctx context.Context, sessions *voice.Manager, ttl time.Duration, logger *slog.Logger) {
	interval := ttl / 2
	if interval > time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := sessions.Reap(ttl); n > 0 {
				logger.Info("idle sessions reaped", "count", n, "remaining", sessions.Len())
			}
		}
	}
}

func cmdMCP(args []string) error {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)
	cfgPath := fs.String("config", "", "path to config file")
	fs.Parse(args)

	cfg, logger, reg, err := setup(context.Background(), *cfgPath)
	if err != nil {
		return err
	}
	srv := newMCPServer(api.Deps{
		Registry:       reg,
		Sessions:       voice.NewManager(reg, voice.ContextGate, logger),
		DefaultDataset: cfg.DefaultDataset,
		Logger:         logger,
	})
	logger.Info("serving MCP on stdio", "datasets", reg.DatasetCount())
	return server.ServeStdio(srv)
}
