package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/parlolabs/parlo-core/internal/bus"
	"github.com/parlolabs/parlo-core/internal/capture"
	"github.com/parlolabs/parlo-core/internal/config"
	"github.com/parlolabs/parlo-core/internal/control"
	"github.com/parlolabs/parlo-core/internal/i18n"
	"github.com/parlolabs/parlo-core/internal/language"
	"github.com/parlolabs/parlo-core/internal/natsserver"
	"github.com/parlolabs/parlo-core/internal/playback"
	"github.com/parlolabs/parlo-core/internal/runtime"
	"github.com/parlolabs/parlo-core/internal/session"
	"github.com/parlolabs/parlo-core/internal/translate"
	"github.com/parlolabs/parlo-core/internal/voice"
)

var version = "0.1.0-dev"

func main() {
	var (
		configPath  string
		showVersion bool
	)

	flag.StringVar(&configPath, "config", "parlo.yaml", "Path to configuration file")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Println(version)
		return
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	embedded, err := natsserver.Start(cfg.Bus, logger)
	if err != nil {
		logger.Error("failed to start embedded NATS", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if embedded != nil {
		defer embedded.Shutdown()
		cfg.Bus.Servers = []string{embedded.ClientURL()}
	}

	busClient, err := bus.Connect(ctx, cfg.Bus, logger)
	if err != nil {
		logger.Error("failed to connect to bus", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer busClient.Close()

	catalog := language.Default()

	client, err := translate.NewClient(cfg.Translator, catalog)
	if err != nil {
		logger.Error("failed to build translator", slog.String("error", err.Error()))
		os.Exit(1)
	}

	recorder, err := capture.NewRecorder(cfg.Capture)
	if err != nil {
		if errors.Is(err, capture.ErrUnsupported) {
			// Capture-dependent commands stay disabled; uploads
			// keep working.
			logger.Warn("audio capture unavailable, running upload-only")
			recorder = nil
		} else {
			logger.Error("failed to build recorder", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	speaker, err := playback.NewSpeaker(cfg.Playback)
	if err != nil {
		logger.Error("failed to build speaker", slog.String("error", err.Error()))
		os.Exit(1)
	}

	registry, err := voice.NewRegistry(busClient, logger)
	if err != nil {
		logger.Error("failed to start voice registry", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer registry.Close()

	orch := session.New(ctx, session.Options{
		Config:   cfg.Session,
		Catalog:  catalog,
		Recorder: recorder,
		Client:   client,
		Speaker:  speaker,
		Voices:   registry.Snapshot,
		Logger:   logger,
	})
	defer orch.Close()

	ctrl := control.NewService(busClient, orch, i18n.Parse(cfg.UILanguage), logger)
	orch.SetNotify(ctrl.PublishState)
	if err := ctrl.Start(); err != nil {
		logger.Error("failed to start control service", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer ctrl.Close()

	rt := runtime.New(cfg, orch, catalog, logger)
	if err := rt.Start(ctx); err != nil {
		logger.Error("runtime exited with error", slog.String("error", err.Error()))
		time.Sleep(1 * time.Second)
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}
