package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	stlog "log"
	"net/http"
	"os"
	"time"

	"github.com/bethropolis/proofsync/internal/app"
	"github.com/bethropolis/proofsync/internal/config"
	"github.com/bethropolis/proofsync/internal/event"
	"github.com/bethropolis/proofsync/internal/logger"
	"github.com/bethropolis/proofsync/internal/marker"
	"github.com/bethropolis/proofsync/internal/metrics"
	"github.com/bethropolis/proofsync/internal/prover"
	"github.com/bethropolis/proofsync/internal/prover/local"
	"github.com/bethropolis/proofsync/internal/session"
	"github.com/bethropolis/proofsync/internal/theme"
)

const version = "0.1.0"

func main() {
	flags := config.NewFlags(flag.CommandLine)
	args, err := flags.Parse(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}
	if *flags.Version {
		fmt.Printf("%s %s\n", config.AppName, version)
		return
	}
	if len(args) != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] FILE.thy\n", config.AppName)
		os.Exit(2)
	}
	filePath := args[0]

	cfg, cfgErr := config.LoadConfig(*flags.ConfigFilePath, flags)

	// The screen owns the terminal, so logs go to a file unless "-".
	logOut := os.Stderr
	logPath := cfg.Logger.LogFilePath
	if logPath == "" {
		logPath = config.DefaultLogFileName
	}
	if logPath != "-" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			stlog.Fatalf("Failed to open log file '%s': %v", logPath, err)
		}
		defer f.Close()
		logOut = f
	}
	logger.Init(cfg.Logger, logOut)

	logger.Infof("Starting %s %s on %s", config.AppName, version, filePath)
	if cfgErr != nil {
		logger.Warnf("Config: %v", cfgErr)
	}
	if len(cfg.Undecoded) > 0 {
		logger.Warnf("Config: unrecognized keys: %v", cfg.Undecoded)
	}

	if err := run(cfg, filePath); err != nil {
		logger.Errorf("Application exited with error: %v", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger.Infof("%s finished.", config.AppName)
}

func run(cfg *config.Config, filePath string) error {
	th, err := theme.Load(cfg.Annotations.ThemeFile)
	if err != nil {
		logger.Warnf("Theme: %v; using %s", err, th.Name)
	}

	var markers marker.Store
	if cfg.Annotations.Markers {
		bc := marker.InMemoryBadgerConfig()
		if cfg.Annotations.MarkerStore != "" {
			bc = marker.DefaultBadgerConfig(cfg.Annotations.MarkerStore)
		}
		bc.Logger = logger.Get().With("component", "badger")
		store, err := marker.OpenBadger(bc)
		if err != nil {
			return err
		}
		defer store.Close()
		markers = store
	}

	if cfg.Metrics.Listen != "" {
		srv := serveMetrics(cfg.Metrics.Listen)
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}()
	}

	opts := local.Options{InputDelay: cfg.Session.InputDelay, StepDelay: cfg.Session.StepDelay}
	sessions := session.NewManager(event.NewManager(), func() (prover.Session, error) {
		s := local.New(opts)
		s.Start()
		return s, nil
	})

	a, err := app.New(app.Options{
		FilePath: filePath,
		Config:   cfg,
		Theme:    th,
		Sessions: sessions,
		Markers:  markers,
	})
	if err != nil {
		return err
	}
	return a.Run()
}

func serveMetrics(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("Metrics server on %s: %v", addr, err)
		}
	}()
	logger.Infof("Serving metrics on %s/metrics", addr)
	return srv
}
