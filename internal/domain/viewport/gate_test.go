package viewport_test

import (
	"testing"

	"github.com/edumarques81/stellar-embed-player/internal/domain/viewport"
)

func TestGateThresholdFallback(t *testing.T) {
	for _, th := range []float64{0, -1, 1.5} {
		if got := viewport.NewGate(th).Threshold(); got != viewport.DefaultThreshold {
			t.Errorf("NewGate(%v).Threshold() = %v, want default", th, got)
		}
	}
	if got := viewport.NewGate(0.5).Threshold(); got != 0.5 {
		t.Errorf("expected 0.5, got %v", got)
	}
}

func TestGateGatedInstance(t *testing.T) {
	g := viewport.NewGate(viewport.DefaultThreshold)
	g.Observe("v", true)

	if g.Allowed("v") {
		t.Fatal("gated instance must start out of view")
	}

	tests := []struct {
		ratio   float64
		allowed bool
		changed bool
	}{
		{0.1, false, false},
		{0.25, true, true},
		{0.9, true, false},
		{0.24, false, true},
		{0, false, false},
	}
	for _, tt := range tests {
		changed := g.Update("v", tt.ratio)
		if changed != tt.changed {
			t.Errorf("Update(%v) changed = %v, want %v", tt.ratio, changed, tt.changed)
		}
		if got := g.Allowed("v"); got != tt.allowed {
			t.Errorf("after ratio %v: Allowed = %v, want %v", tt.ratio, got, tt.allowed)
		}
	}
}

func TestGateUngatedInstanceAlwaysAllowed(t *testing.T) {
	g := viewport.NewGate(viewport.DefaultThreshold)
	g.Observe("a", false)
	g.Update("a", 0)

	if !g.Allowed("a") {
		t.Error("ungated instance should be allowed off screen")
	}
	if g.InView("a") {
		t.Error("raw in-view flag should still be false")
	}
}

func TestGateUnknownAndDisconnected(t *testing.T) {
	g := viewport.NewGate(viewport.DefaultThreshold)

	if !g.Allowed("nobody") {
		t.Error("unobserved instances are allowed")
	}
	if g.Update("nobody", 1) {
		t.Error("update for an unobserved instance should be ignored")
	}

	g.Observe("v", true)
	g.Disconnect("v")
	if g.Len() != 0 {
		t.Errorf("expected 0 entries, got %d", g.Len())
	}
}
