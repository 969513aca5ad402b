package registry_test

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"testing"

	"github.com/edumarques81/stellar-embed-player/internal/domain/media"
	"github.com/edumarques81/stellar-embed-player/internal/domain/player"
	"github.com/edumarques81/stellar-embed-player/internal/domain/registry"
	"github.com/edumarques81/stellar-embed-player/internal/domain/viewport"
)

type instance struct {
	ctrl *player.Controller
	el   *media.Virtual
}

func mount(t *testing.T, reg *registry.Registry, kind media.Kind, id string) instance {
	t.Helper()
	cfg := player.DefaultConfig(kind)
	cfg.InstanceID = id
	cfg.MediaURL = "https://example.com/" + id
	el := media.NewVirtual(kind)
	c, err := player.NewController(cfg, el, player.WithCoordinator(reg))
	if err != nil {
		t.Fatalf("NewController(%s) failed: %v", id, err)
	}
	if err := reg.Register(c); err != nil {
		t.Fatalf("Register(%s) failed: %v", id, err)
	}
	t.Cleanup(c.Destroy)
	el.Load(100)
	return instance{ctrl: c, el: el}
}

func playingCount(instances []instance) int {
	n := 0
	for _, in := range instances {
		if in.ctrl.IsPlaying() {
			n++
		}
	}
	return n
}

func TestTwoVideosMutualExclusion(t *testing.T) {
	reg := registry.New(nil)
	a := mount(t, reg, media.KindVideo, "A")
	b := mount(t, reg, media.KindVideo, "B")

	a.ctrl.Play()
	b.ctrl.Play()

	if a.ctrl.IsPlaying() {
		t.Error("A should have been paused")
	}
	if !b.ctrl.IsPlaying() {
		t.Error("B should be playing")
	}
	if !a.el.Paused() {
		t.Error("A's element should be paused")
	}
	if got := reg.Active(); got != "B" {
		t.Errorf("expected active B, got %q", got)
	}
}

// yieldingCoordinator hands the scheduler to other goroutines around every
// activation so concurrent starts interleave as much as possible.
type yieldingCoordinator struct {
	*registry.Registry
}

func (y yieldingCoordinator) InstancePlaying(id string, activate func()) {
	runtime.Gosched()
	y.Registry.InstancePlaying(id, func() {
		runtime.Gosched()
		activate()
	})
	runtime.Gosched()
}

func TestConcurrentPlayMutualExclusion(t *testing.T) {
	const iterations = 500

	for i := 0; i < iterations; i++ {
		reg := registry.New(nil)
		coord := yieldingCoordinator{reg}

		var instances []instance
		for _, id := range []string{"A", "B"} {
			cfg := player.DefaultConfig(media.KindAudio)
			cfg.InstanceID = id
			cfg.MediaURL = "https://example.com/" + id
			el := media.NewVirtual(media.KindAudio)
			c, err := player.NewController(cfg, el, player.WithCoordinator(coord))
			if err != nil {
				t.Fatalf("NewController(%s) failed: %v", id, err)
			}
			if err := reg.Register(c); err != nil {
				t.Fatalf("Register(%s) failed: %v", id, err)
			}
			el.Load(100)
			instances = append(instances, instance{ctrl: c, el: el})
		}

		var wg sync.WaitGroup
		for _, in := range instances {
			wg.Add(1)
			go func(c *player.Controller) {
				defer wg.Done()
				c.Play()
			}(in.ctrl)
		}
		wg.Wait()

		if n := playingCount(instances); n != 1 {
			t.Fatalf("iteration %d: %d players playing, want 1", i, n)
		}
		active := reg.Active()
		for _, in := range instances {
			if in.ctrl.IsPlaying() && active != in.ctrl.ID() {
				t.Fatalf("iteration %d: playing %s but active is %q", i, in.ctrl.ID(), active)
			}
		}
		for _, in := range instances {
			in.ctrl.Destroy()
		}
	}
}

func TestMutualExclusionAcrossSequences(t *testing.T) {
	reg := registry.New(nil)
	var instances []instance
	for i := 0; i < 5; i++ {
		kind := media.KindAudio
		if i%2 == 0 {
			kind = media.KindVideo
		}
		instances = append(instances, mount(t, reg, kind, fmt.Sprintf("p%d", i)))
	}

	sequence := []int{0, 3, 3, 1, 4, 0, 2, 2, 1}
	for _, i := range sequence {
		instances[i].ctrl.TogglePlayPause()
		if n := playingCount(instances); n > 1 {
			t.Fatalf("after toggling p%d: %d instances playing", i, n)
		}
	}
}

func TestPauseClearsActive(t *testing.T) {
	reg := registry.New(nil)
	a := mount(t, reg, media.KindAudio, "A")
	b := mount(t, reg, media.KindAudio, "B")

	a.ctrl.Play()
	b.ctrl.Pause() // not active, must not clear A
	if reg.Active() != "A" {
		t.Fatalf("expected active A, got %q", reg.Active())
	}

	a.ctrl.Pause()
	if reg.Active() != "" {
		t.Errorf("expected no active player, got %q", reg.Active())
	}
}

func TestEndedClearsActive(t *testing.T) {
	reg := registry.New(nil)
	a := mount(t, reg, media.KindAudio, "A")

	a.ctrl.Play()
	a.el.Advance(100)

	if reg.Active() != "" {
		t.Errorf("expected no active player after end, got %q", reg.Active())
	}
}

func TestRegisterDuplicate(t *testing.T) {
	reg := registry.New(nil)
	mount(t, reg, media.KindAudio, "A")

	cfg := player.DefaultConfig(media.KindAudio)
	cfg.InstanceID = "A"
	cfg.MediaURL = "https://example.com/other"
	c, err := player.NewController(cfg, media.NewVirtual(media.KindAudio))
	if err != nil {
		t.Fatalf("NewController failed: %v", err)
	}
	defer c.Destroy()

	if err := reg.Register(c); !errors.Is(err, registry.ErrDuplicateInstance) {
		t.Errorf("expected ErrDuplicateInstance, got %v", err)
	}
}

func TestUnregisterActive(t *testing.T) {
	reg := registry.New(nil)
	a := mount(t, reg, media.KindAudio, "A")
	mount(t, reg, media.KindAudio, "B")
	a.ctrl.Play()

	reg.Unregister("A")
	reg.Unregister("missing")

	if reg.Active() != "" {
		t.Error("unregistering the active player should clear it")
	}
	if reg.Len() != 1 {
		t.Errorf("expected 1 player, got %d", reg.Len())
	}
	if ids := reg.IDs(); len(ids) != 1 || ids[0] != "B" {
		t.Errorf("unexpected ids %v", ids)
	}
}

func TestFocusTargetIsTextEntry(t *testing.T) {
	tests := []struct {
		focus    registry.FocusTarget
		expected bool
	}{
		{registry.FocusTarget{Tag: "input"}, true},
		{registry.FocusTarget{Tag: "TEXTAREA"}, true},
		{registry.FocusTarget{Tag: "select"}, true},
		{registry.FocusTarget{Tag: "div", ContentEditable: true}, true},
		{registry.FocusTarget{Tag: "body"}, false},
		{registry.FocusTarget{Tag: "button"}, false},
		{registry.FocusTarget{}, false},
	}

	for _, tt := range tests {
		if got := tt.focus.IsTextEntry(); got != tt.expected {
			t.Errorf("IsTextEntry(%+v) = %v, want %v", tt.focus, got, tt.expected)
		}
	}
}

func TestDispatchSpaceInTextareaIgnored(t *testing.T) {
	reg := registry.New(nil)
	a := mount(t, reg, media.KindVideo, "A")
	b := mount(t, reg, media.KindAudio, "B")
	a.ctrl.Play()

	handled := reg.DispatchGlobalKey(registry.KeyEvent{Key: " ", Focus: registry.FocusTarget{Tag: "textarea"}})

	if handled {
		t.Error("key typed into a textarea must not be handled")
	}
	if !a.ctrl.IsPlaying() || b.ctrl.IsPlaying() {
		t.Error("no controller state may change")
	}
}

func TestDispatchRoutesToActive(t *testing.T) {
	reg := registry.New(nil)
	a := mount(t, reg, media.KindAudio, "A")
	b := mount(t, reg, media.KindAudio, "B")
	a.ctrl.Play()
	b.el.SeekTo(50)

	body := registry.FocusTarget{Tag: "body"}
	if !reg.DispatchGlobalKey(registry.KeyEvent{Key: "ArrowRight", Focus: body}) {
		t.Fatal("expected ArrowRight to be handled")
	}
	if a.el.CurrentTime() != 5 {
		t.Errorf("expected active player at 5s, got %v", a.el.CurrentTime())
	}
	if b.el.CurrentTime() != 50 {
		t.Error("inactive player must not move")
	}

	if reg.DispatchGlobalKey(registry.KeyEvent{Key: "q", Focus: body}) {
		t.Error("unknown key should not be handled")
	}

	reg.DispatchGlobalKey(registry.KeyEvent{Key: "K", Focus: body})
	if a.ctrl.IsPlaying() {
		t.Error("K should pause the active player")
	}
	if reg.DispatchGlobalKey(registry.KeyEvent{Key: " ", Focus: body}) {
		t.Error("no active player after pause, nothing should handle the key")
	}
}

func TestDispatchSuppressedWhenOffScreen(t *testing.T) {
	gate := viewport.NewGate(viewport.DefaultThreshold)
	reg := registry.New(gate)
	v := mount(t, reg, media.KindVideo, "V")
	gate.Observe("V", true)
	v.ctrl.Play()

	ev := registry.KeyEvent{Key: "m", Focus: registry.FocusTarget{Tag: "body"}}
	if reg.DispatchGlobalKey(ev) {
		t.Error("off-screen gated player must not receive shortcuts")
	}
	if v.ctrl.State().IsMuted {
		t.Error("state changed while gated")
	}

	gate.Update("V", 0.6)
	if !reg.DispatchGlobalKey(ev) {
		t.Fatal("visible player should receive shortcuts")
	}
	if !v.ctrl.State().IsMuted {
		t.Error("expected muted after M")
	}
}
