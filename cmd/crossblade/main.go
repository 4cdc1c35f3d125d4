package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/Element-Re/crossblade/internal/audio"
	"github.com/Element-Re/crossblade/internal/config"
	"github.com/Element-Re/crossblade/internal/engine"
	"github.com/Element-Re/crossblade/internal/game"
	"github.com/Element-Re/crossblade/internal/library"
	"github.com/Element-Re/crossblade/internal/playlist"
	"github.com/Element-Re/crossblade/internal/relay"
	"github.com/Element-Re/crossblade/internal/ui"
	"github.com/Element-Re/crossblade/pkg/events"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	// Logs would tear up the TUI; keep them in a file next to the data.
	logFile, err := os.OpenFile(filepath.Join(cfg.DataDir, "crossblade.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()
	slog.SetDefault(slog.New(slog.NewTextHandler(logFile, nil)))

	// Setup context with graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	bus := events.NewBus()
	defer bus.Close()

	state := game.NewState(bus)
	custom := game.NewCustomEvent(bus)
	opts := game.Options{
		CombatEvents:     cfg.CombatEvents,
		CombatPauseEvent: cfg.CombatPauseEvent,
	}

	eng := engine.New(cfg.Enable)
	orch := playlist.NewOrchestrator(eng, state, custom, bus, opts, audio.Factory, cfg.AutoPreload, audio.Duration)
	go orch.Run(ctx)

	// Playlists
	playlistPath := filepath.Join(cfg.DataDir, "playlists")
	manager := playlist.NewManager(playlistPath)
	if err := manager.LoadAll(); err != nil {
		return fmt.Errorf("load playlists: %w", err)
	}
	importer := library.NewImporter(manager, cfg.ScanWorkers, cfg.FadeDuration)

	// Pick up external edits to the playlist files.
	watcher := playlist.NewWatcher(manager, bus)
	go func() {
		if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Warn("playlist watcher stopped", "err", err)
		}
	}()

	// Event relay: serve as host, or mirror a remote host.
	if cfg.RelayAddr != "" {
		server := relay.NewServer(custom, bus)
		go server.Run(ctx)
		go func() {
			slog.Info("relay listening", "addr", cfg.RelayAddr)
			if err := http.ListenAndServe(cfg.RelayAddr, server); err != nil {
				slog.Error("relay server failed", "err", err)
			}
		}()
	} else if cfg.RelayURL != "" {
		client := relay.NewClient(cfg.RelayURL, custom)
		go func() {
			if err := client.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				slog.Warn("relay client stopped", "err", err)
			}
		}()
	}

	// Run UI
	err = ui.Run(ui.Deps{
		Engine:   eng,
		Orch:     orch,
		Manager:  manager,
		Importer: importer,
		State:    state,
		Custom:   custom,
		Bus:      bus,
		Options:  opts,
		Duration: audio.Duration,
	})
	orch.StopAll(context.Background())
	if err != nil {
		return fmt.Errorf("run ui: %w", err)
	}
	return nil
}
