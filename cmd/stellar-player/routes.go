package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/edumarques81/stellar-embed-player/internal/config"
	"github.com/edumarques81/stellar-embed-player/internal/domain/media"
	"github.com/edumarques81/stellar-embed-player/internal/domain/player"
	"github.com/edumarques81/stellar-embed-player/internal/render"
	"github.com/edumarques81/stellar-embed-player/internal/transport/socketio"
	"github.com/edumarques81/stellar-embed-player/internal/version"
)

// maxConfigBytes bounds a player configuration posted for rendering.
const maxConfigBytes = 64 << 10

// api serves the HTTP side of the daemon.
type api struct {
	presets *config.Presets
	info    func() socketio.ServerInfo
	pingMPD func() error // nil when MPD output is disabled
}

type markupResponse struct {
	InstanceID  string     `json:"instanceId,omitempty"`
	Kind        media.Kind `json:"kind,omitempty"`
	HTML        string     `json:"html"`
	Placeholder bool       `json:"placeholder"`
}

type healthResponse struct {
	Status string `json:"status"`
	MPD    string `json:"mpd"`
	socketio.ServerInfo
}

func newRouter(a *api) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(corsMiddleware)

	r.Get("/health", a.health)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/version", a.version)
		r.Get("/players/styles.css", a.stylesheet)
		r.Post("/players/markup", a.markup)
	})
	return r
}

// requestLogger logs every request except health checks.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("remote_addr", r.RemoteAddr).
			Msg("HTTP request")
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("Failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (a *api) health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", MPD: "disabled", ServerInfo: a.info()}
	if a.pingMPD != nil {
		if err := a.pingMPD(); err != nil {
			resp.Status, resp.MPD = "error", "disconnected"
			writeJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
		resp.MPD = "connected"
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *api) version(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, version.GetInfo())
}

func (a *api) stylesheet(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	io.WriteString(w, render.Stylesheet())
}

// markup renders the container of a player from its JSON configuration.
// A configuration without media renders the placeholder.
func (a *api) markup(w http.ResponseWriter, r *http.Request) {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		writeError(w, http.StatusUnsupportedMediaType, errors.New("expected application/json"))
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxConfigBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if len(body) > maxConfigBytes {
		writeError(w, http.StatusRequestEntityTooLarge, errors.New("player config too large"))
		return
	}

	cfg, err := render.ParseConfig(body, a.presets.For)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	html, err := render.Container(cfg)
	switch {
	case errors.Is(err, player.ErrConfigurationAbsent):
		writeJSON(w, http.StatusOK, markupResponse{HTML: html, Placeholder: true})
	case err != nil:
		writeError(w, http.StatusBadRequest, err)
	default:
		writeJSON(w, http.StatusOK, markupResponse{InstanceID: cfg.InstanceID, Kind: cfg.MediaKind, HTML: html})
	}
}
