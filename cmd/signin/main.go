package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"azdoauth/internal/app"
	"azdoauth/internal/config"
)

var (
	configFile = flag.String("config", "", "config file path; empty uses defaults and AZDOAUTH_* variables")
	logLevel   = flag.String("log-level", "", "log level, overrides log.level")
	watch      = flag.Bool("watch", true, "reload the config file when it changes")
)

func main() {
	flag.Parse()

	// Load config
	cfg, err := config.NewLoader(*configFile).Load()
	if err != nil {
		setupLogging("info")
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	level := cfg.Log.Level
	if *logLevel != "" {
		level = *logLevel
	}
	setupLogging(level)

	watchPath := ""
	if *watch {
		watchPath = *configFile
	}

	server, err := app.NewServer(cfg, watchPath, slog.Default())
	if err != nil {
		slog.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := server.Start(ctx); err != nil {
		slog.Error("failed to start server", "error", err)
		os.Exit(1)
	}

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), server.ShutdownTimeout())
	defer shutdownCancel()

	if err := server.Stop(shutdownCtx); err != nil {
		slog.Error("failed to stop server", "error", err)
		os.Exit(1)
	}
}

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

func setupLogging(level string) {
	lvl, ok := logLevels[strings.ToLower(level)]
	if !ok {
		lvl = slog.LevelInfo
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: lvl,
	})))
}
