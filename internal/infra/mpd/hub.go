package mpd

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultWatchRetry is how long the hub waits before rewatching MPD.
const DefaultWatchRetry = 5 * time.Second

// watchedSubsystems are the MPD idle subsystems elements care about.
var watchedSubsystems = []string{"player", "mixer", "playlist"}

// Hub shares one MPD idle watcher between every Element opened through it.
type Hub struct {
	client   *Client
	retry    time.Duration
	watching atomic.Bool

	mu   sync.Mutex
	next int
	subs map[int]chan string
}

// NewHub creates a hub on client. Call Run to start watching.
func NewHub(client *Client) *Hub {
	return &Hub{
		client: client,
		retry:  DefaultWatchRetry,
		subs:   make(map[int]chan string),
	}
}

// SetRetry changes the delay between watch attempts. Call before Run.
func (h *Hub) SetRetry(d time.Duration) {
	if d > 0 {
		h.retry = d
	}
}

// Run watches MPD and publishes every subsystem change until ctx is done.
// It returns at once; an unreachable MPD is retried in the background.
func (h *Hub) Run(ctx context.Context) {
	go func() {
		for {
			if err := h.watch(ctx); err != nil {
				log.Warn().Err(err).Dur("retry", h.retry).Msg("MPD watcher unavailable")
			}
			select {
			case <-ctx.Done():
				log.Info().Msg("MPD watcher stopped")
				return
			case <-time.After(h.retry):
			}
		}
	}()
}

// Watching reports whether the idle watcher is connected.
func (h *Hub) Watching() bool {
	return h.watching.Load()
}

func (h *Hub) watch(ctx context.Context) error {
	events, err := h.client.Watch(watchedSubsystems...)
	if err != nil {
		return err
	}
	h.watching.Store(true)
	defer h.watching.Store(false)

	log.Info().Strs("subsystems", watchedSubsystems).Msg("MPD watcher started")
	// Positions may have moved while nobody was watching.
	h.Publish("player")
	for {
		select {
		case <-ctx.Done():
			return nil
		case subsystem, ok := <-events:
			if !ok {
				log.Warn().Msg("MPD watcher channel closed")
				return nil
			}
			log.Debug().Str("subsystem", subsystem).Msg("MPD subsystem changed")
			h.Publish(subsystem)
		}
	}
}

// Subscribe returns a channel of subsystem changes and its cancel function.
// A subscriber that falls behind misses changes rather than blocking others.
func (h *Hub) Subscribe() (<-chan string, func()) {
	ch := make(chan string, 8)

	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Publish delivers a subsystem change to every subscriber.
func (h *Hub) Publish(subsystem string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- subsystem:
		default:
		}
	}
}

// Subscribers returns the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Open creates an element for uri that follows MPD until ctx is done or the
// element is closed. The media is queued on first Play so that opening a
// player never interrupts another one.
func (h *Hub) Open(ctx context.Context, uri string) *Element {
	el := NewElement(h.client, uri)
	changes, cancel := h.Subscribe()

	el.mu.Lock()
	el.release = cancel
	el.mu.Unlock()

	el.Start(ctx, changes)
	return el
}
