// Package main is the entry point for the Stellar embedded player daemon.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/edumarques81/stellar-embed-player/internal/config"
	"github.com/edumarques81/stellar-embed-player/internal/domain/viewport"
	"github.com/edumarques81/stellar-embed-player/internal/infra/mpd"
	"github.com/edumarques81/stellar-embed-player/internal/infra/store"
	"github.com/edumarques81/stellar-embed-player/internal/transport/socketio"
	"github.com/edumarques81/stellar-embed-player/internal/version"
)

func main() {
	port := flag.String("port", "3002", "HTTP server port")
	presetsPath := flag.String("presets", "", "YAML file with per media kind player defaults (optional, reloaded on change)")
	dbPath := flag.String("db", store.DefaultDBPath, "SQLite database for resume positions")
	resume := flag.Bool("resume", true, "Remember playback positions across mounts")
	positionsMaxAge := flag.Duration("positions-max-age", 90*24*time.Hour, "Forget resume positions older than this")
	mpdHost := flag.String("mpd-host", "", "MPD host for mpd output (empty disables it)")
	mpdPort := flag.Int("mpd-port", 6600, "MPD port")
	mpdPassword := flag.String("mpd-password", "", "MPD password")
	maxExternal := flag.Int("max-external-pages", 8, "Maximum pages connected from other hosts (0 for no limit)")
	patchWindow := flag.Duration("patch-window", socketio.DefaultPatchWindow, "How long DOM patches are batched before sending")
	threshold := flag.Float64("visibility-threshold", viewport.DefaultThreshold, "Visible fraction at which a player counts as on screen")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	versionInfo := version.GetInfo()
	log.Info().Msg("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Info().Msgf("  %s", versionInfo.String())
	log.Info().Msg("  Embedded Audio & Video Player Daemon")
	log.Info().Msg("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Info().
		Str("port", *port).
		Str("presets", *presetsPath).
		Str("db", *dbPath).
		Bool("resume", *resume).
		Str("mpd_host", *mpdHost).
		Int("mpd_port", *mpdPort).
		Int("max_external_pages", *maxExternal).
		Dur("patch_window", *patchWindow).
		Msg("Configuration")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	presets, err := config.Load(*presetsPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load player presets")
	}
	if *presetsPath != "" {
		if err := presets.Watch(ctx, *presetsPath, nil); err != nil {
			log.Warn().Err(err).Msg("Player presets will not be reloaded")
		}
	}

	opts := socketio.SessionOptions{
		Presets:     presets,
		PatchWindow: *patchWindow,
		Threshold:   *threshold,
	}

	if *resume {
		db := store.NewDB(*dbPath)
		if err := db.Open(); err != nil {
			log.Fatal().Err(err).Msg("Failed to open position store")
		}
		defer db.Close()

		if n, err := db.Prune(*positionsMaxAge); err != nil {
			log.Warn().Err(err).Msg("Failed to prune resume positions")
		} else if n > 0 {
			log.Info().Int64("removed", n).Msg("Pruned stale resume positions")
		}
		opts.Positions = db
	}

	var pingMPD func() error
	if *mpdHost != "" {
		mpdClient := mpd.NewClient(*mpdHost, *mpdPort, *mpdPassword)
		defer mpdClient.Close()

		if err := mpdClient.Connect(); err != nil {
			log.Warn().Err(err).Msg("MPD unreachable, mpd output players play in the browser until it is back")
		}
		opts.OpenMPD, pingMPD = mpdOutput(ctx, mpdClient)
		log.Info().Msg("MPD output enabled")
	}

	socketServer, err := socketio.NewServer(opts, *maxExternal)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Socket.io server")
	}
	defer socketServer.Close()

	mux := http.NewServeMux()
	mux.Handle("/socket.io/", socketServer)
	mux.Handle("/", newRouter(&api{
		presets: presets,
		info:    socketServer.Info,
		pingMPD: pingMPD,
	}))

	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		log.Info().Msg("Shutting down...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server shutdown error")
		}
	}()

	log.Info().Str("addr", ":"+*port).Msg("HTTP server listening")
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("HTTP server error")
	}

	log.Info().Msg("Server stopped")
}
