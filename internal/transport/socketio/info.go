package socketio

import (
	"os"

	"github.com/edumarques81/stellar-embed-player/internal/version"
)

// ServerInfo describes the daemon to pages and health checks.
type ServerInfo struct {
	Host          string `json:"host"`
	Version       string `json:"version"`
	BuildTime     string `json:"buildTime,omitempty"`
	Sessions      int    `json:"sessions"`
	Players       int    `json:"players"`
	ExternalPages int    `json:"externalPages"`
	MPD           bool   `json:"mpd"` // mpd output available
}

// Info returns the daemon's current state.
func (s *Server) Info() ServerInfo {
	v := version.GetInfo()
	info := ServerInfo{
		Version:       v.Version,
		BuildTime:     v.BuildTime,
		ExternalPages: s.limiter.External(),
		MPD:           s.opts.OpenMPD != nil,
	}
	if hostname, err := os.Hostname(); err == nil {
		info.Host = hostname
	}

	s.mu.RLock()
	info.Sessions = len(s.sessions)
	for _, sess := range s.sessions {
		info.Players += sess.Mounter().Registry().Len()
	}
	s.mu.RUnlock()
	return info
}
