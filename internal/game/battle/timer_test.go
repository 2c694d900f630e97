package battle_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/cory-johannsen/monduel/internal/game/battle"
)

func TestTurnTimer_Fires(t *testing.T) {
	var called atomic.Int32
	tt := battle.NewTurnTimer(20*time.Millisecond, func() {
		called.Add(1)
	})
	_ = tt
	time.Sleep(50 * time.Millisecond)
	if called.Load() != 1 {
		t.Fatalf("expected callback called once, got %d", called.Load())
	}
}

func TestTurnTimer_Stop_PreventsCallback(t *testing.T) {
	var called atomic.Int32
	tt := battle.NewTurnTimer(50*time.Millisecond, func() {
		called.Add(1)
	})
	tt.Stop()
	time.Sleep(80 * time.Millisecond)
	if called.Load() != 0 {
		t.Fatalf("expected callback not called, got %d", called.Load())
	}
}

func TestTurnTimer_Reset_ExtendsDeadline(t *testing.T) {
	var called atomic.Int32
	tt := battle.NewTurnTimer(30*time.Millisecond, func() {
		called.Add(1)
	})
	time.Sleep(15 * time.Millisecond)
	tt.Reset(30*time.Millisecond, func() {
		called.Add(1)
	})
	time.Sleep(20 * time.Millisecond)
	if called.Load() != 0 {
		t.Fatalf("expected callback not called yet, got %d", called.Load())
	}
	time.Sleep(25 * time.Millisecond)
	if called.Load() != 1 {
		t.Fatalf("expected callback called once, got %d", called.Load())
	}
}

func TestTurnTimer_StopIdempotent(t *testing.T) {
	tt := battle.NewTurnTimer(50*time.Millisecond, func() {})
	// Multiple Stop() calls must not panic
	tt.Stop()
	tt.Stop()
	tt.Stop()
}
