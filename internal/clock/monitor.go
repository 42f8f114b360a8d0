// Package clock implements the deadline monitor: a cooperative repeating
// task that watches wall-clock time against an exam window and reports
// phase transitions to a callback.
package clock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/examforge/sessiond/internal/model"
)

// Tick is one observation delivered to the monitor callback.
type Tick struct {
	Phase model.SessionPhase
	// Until is the duration to the relevant boundary: to start while
	// pending, to end while running, and elapsed since end (negative)
	// once ended.
	Until time.Duration
	Now   time.Time
}

// PhaseAt derives the session phase from the current time and the
// [start, end) window.
func PhaseAt(now, start, end time.Time) model.SessionPhase {
	switch {
	case now.Before(start):
		return model.PhasePending
	case now.Before(end):
		return model.PhaseRunning
	default:
		return model.PhaseEnded
	}
}

// Monitor emits Ticks roughly once per interval until stopped. The
// underlying timer may fire more often than the interval; emission is
// throttled so consecutive callback invocations are at least one interval
// apart. The monitor is purely observational — it never mutates session
// state itself.
type Monitor struct {
	start    time.Time
	end      time.Time
	interval time.Duration
	callback func(Tick)
	now      func() time.Time
	log      zerolog.Logger

	stopOnce sync.Once
	cancel   context.CancelFunc
	done     chan struct{}
}

// Option customizes a Monitor.
type Option func(*Monitor)

// WithNowFunc overrides the time source (tests).
func WithNowFunc(now func() time.Time) Option {
	return func(m *Monitor) { m.now = now }
}

// NewMonitor creates a monitor for the [start, end) window. interval is
// the minimum spacing between callback invocations; values below 1ms fall
// back to one second.
func NewMonitor(start, end time.Time, interval time.Duration, callback func(Tick), log zerolog.Logger, opts ...Option) *Monitor {
	if interval < time.Millisecond {
		interval = time.Second
	}
	m := &Monitor{
		start:    start,
		end:      end,
		interval: interval,
		callback: callback,
		now:      time.Now,
		log:      log.With().Str("component", "clock_monitor").Logger(),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start begins the repeating task in a goroutine. The first tick fires
// immediately; subsequent ticks re-arm indefinitely until Stop is called
// or ctx is cancelled.
func (m *Monitor) Start(ctx context.Context) {
	ctx, m.cancel = context.WithCancel(ctx)

	go func() {
		defer close(m.done)

		// The driving signal fires faster than the emission interval,
		// mirroring an animation-frame source; emission is rate-limited
		// below.
		drive := m.interval / 4
		if drive < time.Millisecond {
			drive = time.Millisecond
		}
		ticker := time.NewTicker(drive)
		defer ticker.Stop()

		var lastEmit time.Time
		emit := func() {
			now := m.now()
			if !lastEmit.IsZero() && now.Sub(lastEmit) < m.interval {
				return
			}
			lastEmit = now
			m.callback(m.tickAt(now))
		}

		emit()
		for {
			select {
			case <-ctx.Done():
				m.log.Debug().Msg("Monitor stopped")
				return
			case <-ticker.C:
				emit()
			}
		}
	}()
}

// Stop tears the monitor down. Safe to call more than once; returns after
// the loop has exited.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		if m.cancel != nil {
			m.cancel()
		}
	})
	if m.cancel != nil {
		<-m.done
	}
}

func (m *Monitor) tickAt(now time.Time) Tick {
	phase := PhaseAt(now, m.start, m.end)

	var until time.Duration
	switch phase {
	case model.PhasePending:
		until = m.start.Sub(now)
	case model.PhaseRunning:
		until = m.end.Sub(now)
	default:
		until = m.end.Sub(now) // negative: time elapsed since end
	}

	return Tick{Phase: phase, Until: until, Now: now}
}

// CountdownText renders the phase display: a live duration under 24h, an
// absolute timestamp beyond that.
func CountdownText(t Tick) string {
	boundary := t.Now.Add(t.Until)
	abs := t.Until
	if abs < 0 {
		abs = -abs
	}
	if abs >= 24*time.Hour {
		return boundary.UTC().Format(time.RFC1123)
	}
	return formatDuration(abs)
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	min := d / time.Minute
	sec := (d - min*time.Minute) / time.Second
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, min, sec)
	}
	return fmt.Sprintf("%02d:%02d", min, sec)
}
