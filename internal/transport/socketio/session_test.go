package socketio_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/edumarques81/stellar-embed-player/internal/domain/media"
	"github.com/edumarques81/stellar-embed-player/internal/domain/player"
	"github.com/edumarques81/stellar-embed-player/internal/domain/registry"
	"github.com/edumarques81/stellar-embed-player/internal/transport/socketio"
)

type emitted struct {
	event   string
	payload any
}

// page records what the daemon sends to a browser page.
type page struct {
	mu     sync.Mutex
	events []emitted
}

func (p *page) emit(event string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var payload any
	if len(args) > 0 {
		payload = args[0]
	}
	p.events = append(p.events, emitted{event: event, payload: payload})
}

func (p *page) all(event string) []any {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []any
	for _, e := range p.events {
		if e.event == event {
			out = append(out, e.payload)
		}
	}
	return out
}

func (p *page) commands(instanceID string) []socketio.CommandMessage {
	var out []socketio.CommandMessage
	for _, c := range p.all(socketio.EventCommand) {
		if cmd := c.(socketio.CommandMessage); cmd.InstanceID == instanceID {
			out = append(out, cmd)
		}
	}
	return out
}

func (p *page) lastCommand(instanceID string) (socketio.CommandMessage, bool) {
	cmds := p.commands(instanceID)
	if len(cmds) == 0 {
		return socketio.CommandMessage{}, false
	}
	return cmds[len(cmds)-1], true
}

func (p *page) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}

func newSession(t *testing.T, opts socketio.SessionOptions) (*socketio.Session, *page) {
	t.Helper()
	p := &page{}
	s := socketio.NewSession("page-1", p.emit, opts)
	t.Cleanup(s.Close)
	return s, p
}

func mount(t *testing.T, s *socketio.Session, container, config string) {
	t.Helper()
	if err := s.Mount(socketio.MountRequest{Container: container, Config: json.RawMessage(config)}); err != nil {
		t.Fatalf("Mount(%s) failed: %v", container, err)
	}
}

func ptr[T any](v T) *T { return &v }

func loaded(id string, duration float64) socketio.MediaEvent {
	return socketio.MediaEvent{InstanceID: id, Event: media.EventLoadedMetadata, Duration: ptr(duration), Volume: ptr(1.0), Muted: ptr(false)}
}

func playing(id string, t float64) socketio.MediaEvent {
	return socketio.MediaEvent{InstanceID: id, Event: media.EventPlay, CurrentTime: t, Paused: ptr(false)}
}

func TestMountEmitsMountedAndInitialPatches(t *testing.T) {
	s, p := newSession(t, socketio.SessionOptions{})

	mount(t, s, "c1", `{"instanceId":"a1","mediaUrl":"/ep1.mp3"}`)

	mounted := p.all(socketio.EventMounted)
	if len(mounted) != 1 {
		t.Fatalf("expected 1 mounted event, got %d", len(mounted))
	}
	msg := mounted[0].(socketio.MountedMessage)
	if msg.Container != "c1" || msg.InstanceID != "a1" || msg.Kind != media.KindAudio {
		t.Errorf("unexpected mounted message %+v", msg)
	}
	if len(p.all(socketio.EventPatch)) == 0 {
		t.Error("expected the initial render to be sent")
	}
}

func TestMountWithoutMediaShowsPlaceholder(t *testing.T) {
	s, p := newSession(t, socketio.SessionOptions{})

	for _, cfg := range []string{``, `{}`, `{"mediaKind":"video"}`} {
		p.reset()
		err := s.Mount(socketio.MountRequest{Container: "c1", Config: json.RawMessage(cfg)})
		if !errors.Is(err, player.ErrConfigurationAbsent) {
			t.Errorf("config %q: expected ErrConfigurationAbsent, got %v", cfg, err)
		}
		errs := p.all(socketio.EventMountError)
		if len(errs) != 1 || errs[0].(socketio.MountErrorMessage).Placeholder == "" {
			t.Errorf("config %q: expected a placeholder, got %+v", cfg, errs)
		}
	}
	if n := s.Mounter().Registry().Len(); n != 0 {
		t.Errorf("no player should be registered, got %d", n)
	}
}

func TestMountInvalidConfig(t *testing.T) {
	s, p := newSession(t, socketio.SessionOptions{})

	err := s.Mount(socketio.MountRequest{Container: "c1", Config: json.RawMessage(`{"mediaUrl":"/a.mp3","rewindSeconds":-2}`)})
	if !errors.Is(err, player.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
	errs := p.all(socketio.EventMountError)
	if len(errs) != 1 || errs[0].(socketio.MountErrorMessage).Placeholder != "" {
		t.Errorf("invalid config is an error, not a placeholder: %+v", errs)
	}
}

func TestMountTwiceKeepsOnePlayer(t *testing.T) {
	s, p := newSession(t, socketio.SessionOptions{})

	mount(t, s, "c1", `{"instanceId":"a1","mediaUrl":"/ep1.mp3"}`)
	mount(t, s, "c1", `{"instanceId":"other","mediaUrl":"/ep2.mp3"}`)

	if n := s.Mounter().Registry().Len(); n != 1 {
		t.Errorf("expected 1 player, got %d", n)
	}
	mounted := p.all(socketio.EventMounted)
	if len(mounted) != 2 || mounted[1].(socketio.MountedMessage).InstanceID != "a1" {
		t.Errorf("second mount should confirm the existing player, got %+v", mounted)
	}
}

func TestMountDuplicateInstance(t *testing.T) {
	s, _ := newSession(t, socketio.SessionOptions{})

	mount(t, s, "c1", `{"instanceId":"a1","mediaUrl":"/ep1.mp3"}`)
	err := s.Mount(socketio.MountRequest{Container: "c2", Config: json.RawMessage(`{"instanceId":"a1","mediaUrl":"/ep2.mp3"}`)})
	if !errors.Is(err, registry.ErrDuplicateInstance) {
		t.Errorf("expected ErrDuplicateInstance, got %v", err)
	}
}

func TestConcurrentDuplicateMountKeepsWinner(t *testing.T) {
	for i := 0; i < 200; i++ {
		s, p := newSession(t, socketio.SessionOptions{})

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for n, container := range []string{"c1", "c2"} {
			wg.Add(1)
			go func(n int, container string) {
				defer wg.Done()
				errs[n] = s.Mount(socketio.MountRequest{Container: container, Config: json.RawMessage(`{"instanceId":"v1","mediaUrl":"/clip.mp4"}`)})
			}(n, container)
		}
		wg.Wait()

		failed := 0
		for _, err := range errs {
			if err != nil {
				if !errors.Is(err, registry.ErrDuplicateInstance) {
					t.Fatalf("iteration %d: unexpected error %v", i, err)
				}
				failed++
			}
		}
		if failed != 1 {
			t.Fatalf("iteration %d: expected exactly one mount to fail, got %d", i, failed)
		}

		if err := s.Media(loaded("v1", 120)); err != nil {
			t.Fatalf("iteration %d: the mounted player lost its element: %v", i, err)
		}
		s.FullscreenChange(socketio.FullscreenMessage{InstanceID: "v1", Active: true})
		if err := s.Control(socketio.ControlMessage{InstanceID: "v1", Action: socketio.ActionFullscreen}); err != nil {
			t.Fatalf("iteration %d: Control failed: %v", i, err)
		}
		if cmd, _ := p.lastCommand("v1"); cmd.Command != socketio.CommandFullscreen || cmd.Value != false {
			t.Fatalf("iteration %d: the mounted player lost its fullscreen state, got %+v", i, cmd)
		}
		s.Close()
	}
}

func TestMountGeneratesInstanceID(t *testing.T) {
	s, p := newSession(t, socketio.SessionOptions{})

	mount(t, s, "c1", `{"mediaUrl":"/clip.mp4"}`)

	msg := p.all(socketio.EventMounted)[0].(socketio.MountedMessage)
	if msg.InstanceID == "" || msg.Kind != media.KindVideo {
		t.Errorf("expected a generated id and video kind, got %+v", msg)
	}
}

func TestToggleSendsPlayAndMediaEventsDriveState(t *testing.T) {
	s, p := newSession(t, socketio.SessionOptions{})
	mount(t, s, "c1", `{"instanceId":"a1","mediaUrl":"/ep1.mp3"}`)
	s.Media(loaded("a1", 120))

	if err := s.Control(socketio.ControlMessage{InstanceID: "a1", Action: socketio.ActionToggle}); err != nil {
		t.Fatalf("Control failed: %v", err)
	}
	if cmd, _ := p.lastCommand("a1"); cmd.Command != socketio.CommandPlay {
		t.Fatalf("expected play command, got %+v", cmd)
	}

	h, _ := s.Mounter().Player("a1")
	if h.Controller.IsPlaying() {
		t.Fatal("the command alone must not mark the player as playing")
	}

	s.Media(playing("a1", 0))
	if !h.Controller.IsPlaying() {
		t.Error("the play event marks the player as playing")
	}
}

func TestSecondPlayerPausesFirst(t *testing.T) {
	s, p := newSession(t, socketio.SessionOptions{})
	mount(t, s, "c1", `{"instanceId":"a1","mediaUrl":"/ep1.mp3"}`)
	mount(t, s, "c2", `{"instanceId":"a2","mediaUrl":"/ep2.mp3"}`)
	s.Media(loaded("a1", 100))
	s.Media(loaded("a2", 100))

	s.Media(playing("a1", 0))
	s.Media(playing("a2", 0))

	a1, _ := s.Mounter().Player("a1")
	if a1.Controller.IsPlaying() {
		t.Error("a1 should be suspended")
	}
	if cmd, _ := p.lastCommand("a1"); cmd.Command != socketio.CommandPause {
		t.Errorf("expected pause command to a1, got %+v", cmd)
	}
	if got := s.Mounter().Registry().Active(); got != "a2" {
		t.Errorf("expected a2 active, got %q", got)
	}
}

func TestScrubCommitSeeks(t *testing.T) {
	s, p := newSession(t, socketio.SessionOptions{})
	mount(t, s, "c1", `{"instanceId":"a1","mediaUrl":"/ep1.mp3"}`)
	s.Media(loaded("a1", 200))

	s.Control(socketio.ControlMessage{InstanceID: "a1", Action: socketio.ActionScrubStart})
	s.Control(socketio.ControlMessage{InstanceID: "a1", Action: socketio.ActionScrubInput, Value: 0.25})
	if cmds := p.commands("a1"); len(cmds) != 0 {
		t.Fatalf("dragging must not seek, got %+v", cmds)
	}

	s.Control(socketio.ControlMessage{InstanceID: "a1", Action: socketio.ActionScrubCommit, Value: 0.5})
	cmd, ok := p.lastCommand("a1")
	if !ok || cmd.Command != socketio.CommandSeek || cmd.Value != 100.0 {
		t.Errorf("expected seek to 100, got %+v", cmd)
	}
}

func TestRewindAndForward(t *testing.T) {
	s, p := newSession(t, socketio.SessionOptions{})
	mount(t, s, "c1", `{"instanceId":"a1","mediaUrl":"/ep1.mp3","rewindSeconds":15,"forwardSeconds":30}`)
	ev := loaded("a1", 100)
	ev.CurrentTime = 50
	s.Media(ev)

	tests := []struct {
		action string
		want   float64
	}{
		{socketio.ActionForward, 80},
		{socketio.ActionRewind, 65},
	}
	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			s.Control(socketio.ControlMessage{InstanceID: "a1", Action: tt.action})
			cmd, _ := p.lastCommand("a1")
			if cmd.Command != socketio.CommandSeek || cmd.Value != tt.want {
				t.Errorf("expected seek to %v, got %+v", tt.want, cmd)
			}
		})
	}
}

func TestVolumeControlUnmutes(t *testing.T) {
	s, p := newSession(t, socketio.SessionOptions{})
	mount(t, s, "c1", `{"instanceId":"a1","mediaUrl":"/ep1.mp3"}`)

	s.Control(socketio.ControlMessage{InstanceID: "a1", Action: socketio.ActionVolume, Value: 0.4})

	cmds := p.commands("a1")
	if len(cmds) != 2 {
		t.Fatalf("expected muted and volume commands, got %+v", cmds)
	}
	if cmds[0].Command != socketio.CommandMuted || cmds[0].Value != false {
		t.Errorf("expected unmute first, got %+v", cmds[0])
	}
	if cmds[1].Command != socketio.CommandVolume || cmds[1].Value != 0.4 {
		t.Errorf("expected volume 0.4, got %+v", cmds[1])
	}
}

func TestKeyboardRoutesToActivePlayer(t *testing.T) {
	s, p := newSession(t, socketio.SessionOptions{})
	mount(t, s, "c1", `{"instanceId":"a1","mediaUrl":"/ep1.mp3"}`)
	s.Media(loaded("a1", 100))

	if s.KeyDown(registry.KeyEvent{Key: " "}) {
		t.Error("no player is active yet")
	}

	s.Media(playing("a1", 10))

	if s.KeyDown(registry.KeyEvent{Key: " ", Focus: registry.FocusTarget{Tag: "INPUT"}}) {
		t.Error("keys typed into an input must be ignored")
	}
	if !s.KeyDown(registry.KeyEvent{Key: " ", Focus: registry.FocusTarget{Tag: "div"}}) {
		t.Fatal("space should be handled")
	}
	if cmd, _ := p.lastCommand("a1"); cmd.Command != socketio.CommandPause {
		t.Errorf("expected pause, got %+v", cmd)
	}
	if s.KeyDown(registry.KeyEvent{Key: "q"}) {
		t.Error("unknown keys are not handled")
	}
}

func TestVisibilityGatesVideoShortcuts(t *testing.T) {
	s, _ := newSession(t, socketio.SessionOptions{Threshold: 0.25})
	mount(t, s, "c1", `{"instanceId":"v1","mediaUrl":"/clip.mp4"}`)
	s.Media(loaded("v1", 100))
	s.Media(playing("v1", 0))

	s.Visibility(socketio.VisibilityMessage{InstanceID: "v1", Ratio: 0.1})
	if s.KeyDown(registry.KeyEvent{Key: "m"}) {
		t.Error("an off-screen video must not take shortcuts")
	}

	s.Visibility(socketio.VisibilityMessage{InstanceID: "v1", Ratio: 0.6})
	if !s.KeyDown(registry.KeyEvent{Key: "m"}) {
		t.Error("a visible video takes shortcuts")
	}
}

func TestFullscreenRoundTrip(t *testing.T) {
	s, p := newSession(t, socketio.SessionOptions{})
	mount(t, s, "c1", `{"instanceId":"v1","mediaUrl":"/clip.mp4"}`)
	mount(t, s, "c2", `{"instanceId":"v2","mediaUrl":"/other.webm"}`)

	s.Control(socketio.ControlMessage{InstanceID: "v1", Action: socketio.ActionFullscreen})
	if cmd, _ := p.lastCommand("v1"); cmd.Command != socketio.CommandFullscreen || cmd.Value != true {
		t.Fatalf("expected fullscreen request, got %+v", cmd)
	}

	s.FullscreenChange(socketio.FullscreenMessage{InstanceID: "v1", Active: true})
	v1, _ := s.Mounter().Player("v1")
	v2, _ := s.Mounter().Player("v2")
	if !v1.Controller.State().IsFullscreen || v2.Controller.State().IsFullscreen {
		t.Fatal("only v1 should be fullscreen")
	}

	s.Control(socketio.ControlMessage{InstanceID: "v1", Action: socketio.ActionFullscreen})
	if cmd, _ := p.lastCommand("v1"); cmd.Value != false {
		t.Errorf("expected fullscreen exit, got %+v", cmd)
	}
	s.FullscreenChange(socketio.FullscreenMessage{Active: false})
	if v1.Controller.State().IsFullscreen {
		t.Error("v1 should have left fullscreen")
	}
}

func TestAudioHasNoFullscreen(t *testing.T) {
	s, p := newSession(t, socketio.SessionOptions{})
	mount(t, s, "c1", `{"instanceId":"a1","mediaUrl":"/ep1.mp3"}`)

	s.Control(socketio.ControlMessage{InstanceID: "a1", Action: socketio.ActionFullscreen})
	if cmds := p.commands("a1"); len(cmds) != 0 {
		t.Errorf("audio must not request fullscreen, got %+v", cmds)
	}
}

func TestHoverEmitsChapterTooltip(t *testing.T) {
	s, p := newSession(t, socketio.SessionOptions{})
	mount(t, s, "c1", `{"instanceId":"a1","mediaUrl":"/ep1.mp3","chapters":[{"title":"Intro","timeSeconds":0},{"title":"Verse","time":"0:30"}]}`)
	s.Media(loaded("a1", 100))

	s.Control(socketio.ControlMessage{InstanceID: "a1", Action: socketio.ActionHover, Value: 0.5})

	tips := p.all(socketio.EventTooltip)
	if len(tips) != 1 {
		t.Fatalf("expected 1 tooltip, got %d", len(tips))
	}
	if got := tips[0].(socketio.TooltipMessage).Label; got != "Verse – 00:50" {
		t.Errorf("unexpected label %q", got)
	}
}

func TestMarkerSeeks(t *testing.T) {
	s, p := newSession(t, socketio.SessionOptions{})
	mount(t, s, "c1", `{"instanceId":"a1","mediaUrl":"/ep1.mp3","chapters":[{"title":"Intro","timeSeconds":0},{"title":"Verse","timeSeconds":30}]}`)
	s.Media(loaded("a1", 100))

	if err := s.Control(socketio.ControlMessage{InstanceID: "a1", Action: socketio.ActionMarker, Value: 1}); err != nil {
		t.Fatalf("marker failed: %v", err)
	}
	if cmd, _ := p.lastCommand("a1"); cmd.Command != socketio.CommandSeek || cmd.Value != 30.0 {
		t.Errorf("expected seek to 30, got %+v", cmd)
	}
	if err := s.Control(socketio.ControlMessage{InstanceID: "a1", Action: socketio.ActionMarker, Value: 7}); err == nil {
		t.Error("expected an out of range error")
	}
}

func TestPushState(t *testing.T) {
	s, p := newSession(t, socketio.SessionOptions{})
	mount(t, s, "c1", `{"instanceId":"a1","mediaUrl":"/ep1.mp3"}`)
	s.Media(loaded("a1", 120))
	s.Media(playing("a1", 12))

	if err := s.PushState(socketio.StateRequest{InstanceID: "a1"}); err != nil {
		t.Fatalf("PushState failed: %v", err)
	}
	pushed := p.all(socketio.EventPushState)
	if len(pushed) != 1 {
		t.Fatalf("expected 1 pushState, got %d", len(pushed))
	}
	msg := pushed[0].(socketio.StateMessage)
	if !msg.Active || msg.State["isPlaying"] != true || msg.State["duration"] != 120.0 {
		t.Errorf("unexpected state %+v", msg)
	}

	if err := s.PushState(socketio.StateRequest{InstanceID: "zz"}); !errors.Is(err, socketio.ErrUnknownPlayer) {
		t.Errorf("expected ErrUnknownPlayer, got %v", err)
	}
}

func TestControlErrors(t *testing.T) {
	s, _ := newSession(t, socketio.SessionOptions{})
	mount(t, s, "c1", `{"instanceId":"a1","mediaUrl":"/ep1.mp3"}`)

	if err := s.Control(socketio.ControlMessage{InstanceID: "a1", Action: "dance"}); !errors.Is(err, socketio.ErrUnknownAction) {
		t.Errorf("expected ErrUnknownAction, got %v", err)
	}
	if err := s.Control(socketio.ControlMessage{InstanceID: "zz", Action: socketio.ActionToggle}); !errors.Is(err, socketio.ErrUnknownPlayer) {
		t.Errorf("expected ErrUnknownPlayer, got %v", err)
	}
	if err := s.Media(socketio.MediaEvent{InstanceID: "zz", Event: media.EventPlay}); !errors.Is(err, socketio.ErrUnknownPlayer) {
		t.Errorf("expected ErrUnknownPlayer, got %v", err)
	}
}

func TestUnmountDestroysPlayer(t *testing.T) {
	s, _ := newSession(t, socketio.SessionOptions{})
	mount(t, s, "c1", `{"instanceId":"a1","mediaUrl":"/ep1.mp3"}`)

	if err := s.Unmount(socketio.UnmountRequest{Container: "c1"}); err != nil {
		t.Fatalf("Unmount failed: %v", err)
	}
	if n := s.Mounter().Registry().Len(); n != 0 {
		t.Errorf("expected empty registry, got %d", n)
	}
	if err := s.Media(playing("a1", 0)); !errors.Is(err, socketio.ErrUnknownPlayer) {
		t.Errorf("events for an unmounted player are dropped, got %v", err)
	}
	if err := s.Unmount(socketio.UnmountRequest{Container: "c1"}); err == nil {
		t.Error("second unmount should fail")
	}

	// The container can be mounted again.
	mount(t, s, "c1", `{"instanceId":"a1","mediaUrl":"/ep1.mp3"}`)
}

func TestCloseDestroysEverything(t *testing.T) {
	p := &page{}
	s := socketio.NewSession("page-1", p.emit, socketio.SessionOptions{})
	mount(t, s, "c1", `{"instanceId":"a1","mediaUrl":"/ep1.mp3"}`)
	mount(t, s, "c2", `{"instanceId":"v1","mediaUrl":"/clip.mp4"}`)

	s.Close()
	s.Close()

	if n := s.Mounter().Registry().Len(); n != 0 {
		t.Errorf("expected empty registry, got %d", n)
	}
	if err := s.Mount(socketio.MountRequest{Container: "c3", Config: json.RawMessage(`{"mediaUrl":"/x.mp3"}`)}); !errors.Is(err, socketio.ErrSessionClosed) {
		t.Errorf("expected ErrSessionClosed, got %v", err)
	}
}

type memoryPositions struct {
	mu    sync.Mutex
	saved map[string]float64
}

func (m *memoryPositions) SavePosition(id, url string, seconds float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved[id+"|"+url] = seconds
	return nil
}

func (m *memoryPositions) ClearPosition(id, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.saved, id+"|"+url)
	return nil
}

func (m *memoryPositions) LoadPosition(id, url string) (float64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.saved[id+"|"+url]
	return v, ok, nil
}

func TestResumePositionAcrossMounts(t *testing.T) {
	store := &memoryPositions{saved: map[string]float64{}}
	s, p := newSession(t, socketio.SessionOptions{Positions: store})

	mount(t, s, "c1", `{"instanceId":"a1","mediaUrl":"/ep1.mp3"}`)
	s.Media(loaded("a1", 100))
	s.Media(playing("a1", 0))
	s.Media(socketio.MediaEvent{InstanceID: "a1", Event: media.EventPause, CurrentTime: 42})

	if pos, ok, _ := store.LoadPosition("a1", "/ep1.mp3"); !ok || pos != 42 {
		t.Fatalf("expected 42 saved, got %v %v", pos, ok)
	}

	s.Unmount(socketio.UnmountRequest{Container: "c1"})
	p.reset()
	mount(t, s, "c1", `{"instanceId":"a1","mediaUrl":"/ep1.mp3"}`)
	s.Media(loaded("a1", 100))

	if cmd, _ := p.lastCommand("a1"); cmd.Command != socketio.CommandSeek || cmd.Value != 42.0 {
		t.Errorf("expected resume seek to 42, got %+v", cmd)
	}
}

func TestMPDOutputUsesOpener(t *testing.T) {
	var opened []player.Config
	el := media.NewVirtual(media.KindAudio)
	s, p := newSession(t, socketio.SessionOptions{
		OpenMPD: func(_ context.Context, cfg player.Config) (media.Element, error) {
			opened = append(opened, cfg)
			return el, nil
		},
	})

	mount(t, s, "c1", `{"instanceId":"a1","mediaUrl":"music/a.flac","output":"mpd"}`)

	if len(opened) != 1 || opened[0].MediaURL != "music/a.flac" {
		t.Fatalf("expected the opener to be used, got %+v", opened)
	}
	el.Load(60)
	s.Control(socketio.ControlMessage{InstanceID: "a1", Action: socketio.ActionToggle})

	if el.Paused() {
		t.Error("the daemon-side element should be playing")
	}
	if cmds := p.commands("a1"); len(cmds) != 0 {
		t.Errorf("mpd players send no media commands to the page, got %+v", cmds)
	}
}

func TestMPDOutputUnavailableFallsBackToBrowser(t *testing.T) {
	s, p := newSession(t, socketio.SessionOptions{
		OpenMPD: func(context.Context, player.Config) (media.Element, error) {
			return nil, errors.New("connection refused")
		},
	})

	mount(t, s, "c1", `{"instanceId":"a1","mediaUrl":"a.flac","output":"mpd"}`)
	if len(p.all(socketio.EventMountError)) != 0 {
		t.Error("an unreachable MPD must not fail the mount")
	}

	if err := s.Control(socketio.ControlMessage{InstanceID: "a1", Action: socketio.ActionToggle}); err != nil {
		t.Fatalf("Control failed: %v", err)
	}
	if cmd, _ := p.lastCommand("a1"); cmd.Command != socketio.CommandPlay {
		t.Errorf("expected the browser to be told to play, got %+v", cmd)
	}
}
