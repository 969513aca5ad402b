package main

import (
	"context"

	"github.com/edumarques81/stellar-embed-player/internal/domain/media"
	"github.com/edumarques81/stellar-embed-player/internal/domain/player"
	"github.com/edumarques81/stellar-embed-player/internal/infra/mpd"
	"github.com/edumarques81/stellar-embed-player/internal/transport/socketio"
)

// mpdOutput wires MPD output on client. The watcher and the connection are
// retried on demand, so an MPD that starts after the daemon is picked up.
func mpdOutput(ctx context.Context, client *mpd.Client) (socketio.ElementOpener, func() error) {
	hub := mpd.NewHub(client)
	hub.Run(ctx)

	open := func(ctx context.Context, cfg player.Config) (media.Element, error) {
		if err := client.Ping(); err != nil {
			return nil, err
		}
		return hub.Open(ctx, cfg.MediaURL), nil
	}
	return open, client.Ping
}
