package clock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/examforge/sessiond/internal/model"
)

var (
	windowStart = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	windowEnd   = time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
)

func TestPhaseAt(t *testing.T) {
	cases := []struct {
		name string
		now  time.Time
		want model.SessionPhase
	}{
		{"before start", windowStart.Add(-time.Minute), model.PhasePending},
		{"exactly at start", windowStart, model.PhaseRunning},
		{"mid window", windowStart.Add(12 * time.Hour), model.PhaseRunning},
		{"exactly at end", windowEnd, model.PhaseEnded},
		{"after end", windowEnd.Add(time.Hour), model.PhaseEnded},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := PhaseAt(tc.now, windowStart, windowEnd); got != tc.want {
				t.Errorf("PhaseAt(%v) = %v, want %v", tc.now, got, tc.want)
			}
		})
	}
}

func TestTickUntilDirection(t *testing.T) {
	m := NewMonitor(windowStart, windowEnd, time.Second, nil, zerolog.Nop())

	tick := m.tickAt(windowStart.Add(-time.Hour))
	if tick.Phase != model.PhasePending || tick.Until != time.Hour {
		t.Errorf("pending tick = %+v, want 1h to start", tick)
	}

	tick = m.tickAt(windowStart.Add(30 * time.Minute))
	if tick.Phase != model.PhaseRunning || tick.Until != windowEnd.Sub(windowStart.Add(30*time.Minute)) {
		t.Errorf("running tick = %+v, want time to end", tick)
	}

	tick = m.tickAt(windowEnd.Add(10 * time.Minute))
	if tick.Phase != model.PhaseEnded || tick.Until != -10*time.Minute {
		t.Errorf("ended tick = %+v, want negative elapsed", tick)
	}
}

func TestCountdownText(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name  string
		until time.Duration
		want  string
	}{
		{"under a minute", 42 * time.Second, "00:42"},
		{"minutes", 5*time.Minute + 3*time.Second, "05:03"},
		{"hours", 2*time.Hour + 4*time.Minute + 9*time.Second, "02:04:09"},
		{"elapsed after end", -90 * time.Second, "01:30"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := CountdownText(Tick{Phase: model.PhaseRunning, Until: tc.until, Now: now})
			if got != tc.want {
				t.Errorf("CountdownText(%v) = %q, want %q", tc.until, got, tc.want)
			}
		})
	}
}

func TestCountdownTextFarBoundary(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	got := CountdownText(Tick{Phase: model.PhasePending, Until: 48 * time.Hour, Now: now})
	want := now.Add(48 * time.Hour).UTC().Format(time.RFC1123)
	if got != want {
		t.Errorf("CountdownText(48h) = %q, want absolute %q", got, want)
	}
}

func TestMonitorEmissionThrottle(t *testing.T) {
	const interval = 50 * time.Millisecond

	var mu sync.Mutex
	var ticks []Tick
	callback := func(tick Tick) {
		mu.Lock()
		ticks = append(ticks, tick)
		mu.Unlock()
	}

	start := time.Now().Add(-time.Minute)
	end := time.Now().Add(time.Minute)
	m := NewMonitor(start, end, interval, callback, zerolog.Nop())
	m.Start(context.Background())

	time.Sleep(6 * interval)
	m.Stop()

	mu.Lock()
	defer mu.Unlock()

	if len(ticks) < 2 {
		t.Fatalf("got %d ticks, want at least 2", len(ticks))
	}
	// The driving timer fires 4x per interval; emission must still be
	// spaced at least one interval apart.
	for i := 1; i < len(ticks); i++ {
		gap := ticks[i].Now.Sub(ticks[i-1].Now)
		if gap < interval {
			t.Errorf("tick %d fired %v after previous, want >= %v", i, gap, interval)
		}
	}
	for _, tick := range ticks {
		if tick.Phase != model.PhaseRunning {
			t.Errorf("tick phase = %v, want running", tick.Phase)
		}
	}
}

func TestMonitorStopIdempotent(t *testing.T) {
	m := NewMonitor(windowStart, windowEnd, time.Second, func(Tick) {}, zerolog.Nop(),
		WithNowFunc(func() time.Time { return windowStart.Add(time.Hour) }))
	m.Start(context.Background())

	m.Stop()
	m.Stop() // must not panic or block
}

func TestMonitorContextCancelStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	m := NewMonitor(windowStart, windowEnd, 20*time.Millisecond, func(Tick) {}, zerolog.Nop())
	m.Start(ctx)

	cancel()

	done := make(chan struct{})
	go func() {
		m.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return after context cancellation")
	}
}
