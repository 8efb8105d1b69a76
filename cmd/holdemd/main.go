package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/cardroomlabs/holdemd/internal/server"
	"github.com/cardroomlabs/holdemd/internal/store"
)

var CLI struct {
	Config   string `short:"c" long:"config" default:"holdemd.hcl" help:"Path to HCL configuration file"`
	Addr     string `short:"a" long:"addr" help:"Server address to bind to (overrides config)"`
	LogLevel string `short:"l" long:"log-level" help:"Log level (overrides config)"`
	DB       string `short:"d" long:"db" help:"Path to the sqlite database (overrides config)"`
	AuthURL  string `long:"auth-url" help:"External auth validation endpoint (overrides config)"`
}

func main() {
	ctx := kong.Parse(&CLI)

	// Load configuration
	cfg, err := server.LoadServerConfig(CLI.Config)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		ctx.Exit(1)
	}

	// Apply command line overrides
	if CLI.Addr != "" {
		cfg.Server.Address = CLI.Addr
	}
	if CLI.LogLevel != "" {
		cfg.Server.LogLevel = CLI.LogLevel
	}
	if CLI.DB != "" {
		cfg.Storage.Path = CLI.DB
	}
	if CLI.AuthURL != "" {
		cfg.Server.AuthURL = CLI.AuthURL
	}

	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid configuration: %v\n", err)
		ctx.Exit(1)
	}

	// Setup logging
	logOutput := os.Stderr
	if cfg.Server.LogFile != "" {
		f, err := os.OpenFile(cfg.Server.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Printf("Error opening log file: %v\n", err)
			ctx.Exit(1)
		}
		defer f.Close()
		logOutput = f
	}

	logger := log.New(logOutput)
	switch cfg.Server.LogLevel {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "info":
		logger.SetLevel(log.InfoLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}

	st, err := store.OpenSQLite(cfg.Storage.Path)
	if err != nil {
		logger.Error("Failed to open store", "path", cfg.Storage.Path, "error", err)
		ctx.Exit(1)
	}
	defer st.Close()

	srv := server.NewServer(cfg, logger, st)

	// Bring snapshotted tables back before accepting connections so
	// reconnecting players find their hands where they left them.
	if err := srv.Recover(context.Background()); err != nil {
		logger.Error("Snapshot recovery failed", "error", err)
		ctx.Exit(1)
	}

	logger.Info("Starting holdemd",
		"addr", cfg.GetServerAddress(),
		"db", cfg.Storage.Path,
		"authEnabled", cfg.Server.AuthURL != "")

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Stop(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server failed", "error", err)
		ctx.Exit(1)
	}
}
