// Package socketio connects browser pages to their player sessions over Socket.io.
package socketio

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zishang520/socket.io/servers/socket/v3"
	"github.com/zishang520/socket.io/v3/pkg/types"

	"github.com/edumarques81/stellar-embed-player/internal/domain/registry"
)

// Server handles page connections. Every connection gets its own Session.
type Server struct {
	io      *socket.Server
	opts    SessionOptions
	limiter *PageLimiter

	mu       sync.RWMutex
	sessions map[string]*Session
	clients  map[string]*socket.Socket
}

// NewServer creates a Socket.io server. maxExternalPages caps pages
// connected from other hosts; zero means unlimited.
func NewServer(opts SessionOptions, maxExternalPages int) (*Server, error) {
	sopts := socket.DefaultServerOptions()
	sopts.SetPingTimeout(20 * time.Second)
	sopts.SetPingInterval(25 * time.Second)
	sopts.SetCors(&types.Cors{
		Origin:      "*",
		Credentials: true,
	})

	s := &Server{
		io:       socket.NewServer(nil, sopts),
		opts:     opts,
		limiter:  NewPageLimiter(maxExternalPages),
		sessions: make(map[string]*Session),
		clients:  make(map[string]*socket.Socket),
	}

	s.setupHandlers()

	return s, nil
}

// decode converts the first event argument into v.
func decode(args []any, v any) error {
	if len(args) == 0 {
		return errors.New("missing payload")
	}
	data, err := json.Marshal(args[0])
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// setupHandlers registers all Socket.io event handlers.
func (s *Server) setupHandlers() {
	s.io.On("connection", func(clients ...any) {
		client := clients[0].(*socket.Socket)
		clientID := string(client.Id())
		addr := client.Handshake().Address

		log.Info().Str("id", clientID).Str("addr", addr).Msg("Page connected")

		sess := NewSession(clientID, func(event string, args ...any) {
			client.Emit(event, args...)
		}, s.opts)

		s.mu.Lock()
		s.sessions[clientID] = sess
		s.clients[clientID] = client
		s.mu.Unlock()

		if evicted := s.limiter.Admit(clientID, addr); evicted != "" {
			s.evict(evicted)
		}

		client.On("disconnect", func(args ...any) {
			reason := ""
			if len(args) > 0 {
				if r, ok := args[0].(string); ok {
					reason = r
				}
			}
			log.Info().Str("id", clientID).Str("reason", reason).Msg("Page disconnected")

			s.limiter.Release(clientID)
			s.mu.Lock()
			delete(s.sessions, clientID)
			delete(s.clients, clientID)
			s.mu.Unlock()
			sess.Close()
		})

		client.On("mount", func(args ...any) {
			var req MountRequest
			if err := decode(args, &req); err != nil {
				log.Warn().Err(err).Str("id", clientID).Msg("Bad mount payload")
				return
			}
			log.Debug().Str("id", clientID).Str("container", req.Container).Msg("mount")
			sess.Mount(req)
		})

		client.On("unmount", func(args ...any) {
			var req UnmountRequest
			if err := decode(args, &req); err != nil {
				log.Warn().Err(err).Str("id", clientID).Msg("Bad unmount payload")
				return
			}
			log.Debug().Str("id", clientID).Str("container", req.Container).Msg("unmount")
			if err := sess.Unmount(req); err != nil {
				log.Debug().Err(err).Msg("Unmount failed")
			}
		})

		client.On("media", func(args ...any) {
			var ev MediaEvent
			if err := decode(args, &ev); err != nil {
				log.Warn().Err(err).Str("id", clientID).Msg("Bad media payload")
				return
			}
			if err := sess.Media(ev); err != nil {
				log.Debug().Err(err).Str("event", string(ev.Event)).Msg("Media event dropped")
			}
		})

		client.On("control", func(args ...any) {
			var msg ControlMessage
			if err := decode(args, &msg); err != nil {
				log.Warn().Err(err).Str("id", clientID).Msg("Bad control payload")
				return
			}
			log.Debug().Str("instance", msg.InstanceID).Str("action", msg.Action).Float64("value", msg.Value).Msg("control")
			if err := sess.Control(msg); err != nil {
				log.Debug().Err(err).Msg("Control failed")
			}
		})

		client.On("getState", func(args ...any) {
			var req StateRequest
			if err := decode(args, &req); err != nil {
				log.Warn().Err(err).Str("id", clientID).Msg("Bad getState payload")
				return
			}
			if err := sess.PushState(req); err != nil {
				log.Debug().Err(err).Msg("getState failed")
			}
		})

		client.On("keydown", func(args ...any) {
			var ev registry.KeyEvent
			if err := decode(args, &ev); err != nil {
				log.Warn().Err(err).Str("id", clientID).Msg("Bad keydown payload")
				return
			}
			sess.KeyDown(ev)
		})

		client.On("visibility", func(args ...any) {
			var msg VisibilityMessage
			if err := decode(args, &msg); err != nil {
				log.Warn().Err(err).Str("id", clientID).Msg("Bad visibility payload")
				return
			}
			sess.Visibility(msg)
		})

		client.On("fullscreenchange", func(args ...any) {
			var msg FullscreenMessage
			if err := decode(args, &msg); err != nil {
				log.Warn().Err(err).Str("id", clientID).Msg("Bad fullscreenchange payload")
				return
			}
			sess.FullscreenChange(msg)
		})
	})
}

// evict disconnects a page pushed out by the page limit.
func (s *Server) evict(clientID string) {
	s.mu.RLock()
	client, ok := s.clients[clientID]
	s.mu.RUnlock()
	if !ok {
		return
	}
	log.Info().Str("id", clientID).Msg("Evicting oldest external page")
	client.Disconnect(true)
}

// Session returns the session of a connected page.
func (s *Server) Session(id string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

// SessionCount returns the number of connected pages.
func (s *Server) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// ServeHTTP implements http.Handler for the Socket.io server.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.io.ServeHandler(nil).ServeHTTP(w, r)
}

// Close destroys every session and closes the Socket.io server.
func (s *Server) Close() error {
	s.mu.Lock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.sessions = make(map[string]*Session)
	s.clients = make(map[string]*socket.Socket)
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.Close()
	}
	s.io.Close(nil)
	return nil
}
