// Package flood bounds per-identity send rate and detects bot-like
// perfectly-paced flooding that a plain cooldown cannot catch.
package flood

import (
	"context"
	"errors"
	"time"

	"github.com/Yosshy-123/HARO-Chat/internal/metrics"
)

const (
	// CooldownWindow is the hard minimum spacing between sends.
	CooldownWindow = time.Second

	// IntervalTolerance is how close two consecutive send intervals must
	// be to count as the same cadence.
	IntervalTolerance = 100 * time.Millisecond

	// RepeatThreshold is the equal-interval repeat count that triggers a
	// mute.
	RepeatThreshold = 5

	// MuteDuration is how long a triggered mute lasts.
	MuteDuration = 20 * time.Second
)

// ErrCooldown is returned when a send arrives inside the hard cooldown
// window.
var ErrCooldown = errors.New("send cooldown active")

// ErrMuted is the match target for mute rejections.
var ErrMuted = errors.New("identity muted")

// MutedError reports a rejected send from a muted identity. Fresh is true
// when this very send triggered the mute, so the caller can notify the
// identity once.
type MutedError struct {
	Fresh bool
}

func (e *MutedError) Error() string {
	if e.Fresh {
		return "identity muted for constant-cadence flooding"
	}
	return "identity muted"
}

func (e *MutedError) Is(target error) bool { return target == ErrMuted }

// State is the slice of the shared store the guard needs. All records are
// TTL-bounded so idle identities do not leak.
type State interface {
	IsMuted(ctx context.Context, identity string) (bool, error)
	Mute(ctx context.Context, identity string, ttl time.Duration) error
	TryCooldown(ctx context.Context, identity string, window time.Duration) (bool, error)
	LastSendMillis(ctx context.Context, identity string) (int64, bool, error)
	SetLastSendMillis(ctx context.Context, identity string, millis int64) error
	LastInterval(ctx context.Context, identity string) (int64, bool, error)
	SetLastInterval(ctx context.Context, identity string, interval int64) error
	IncrRepeatCount(ctx context.Context, identity string) (int64, error)
	ClearPattern(ctx context.Context, identity string) error
}

// Guard admits, rejects, or mutes sends for an identity.
type Guard struct {
	state State

	now func() time.Time
}

// NewGuard creates a flood guard over the shared state.
func NewGuard(state State) *Guard {
	return &Guard{state: state, now: time.Now}
}

// Check runs the full admission pipeline for one send: mute check, hard
// cooldown, then the equal-interval pattern tracker. A nil return admits
// the send. The cooldown claim is a SETNX so concurrent sends from the
// same identity serialize on the shared store, not on process-local state.
func (g *Guard) Check(ctx context.Context, identity string) error {
	muted, err := g.state.IsMuted(ctx, identity)
	if err != nil {
		return err
	}
	if muted {
		metrics.FloodRejections.WithLabelValues("muted").Inc()
		return &MutedError{}
	}

	ok, err := g.state.TryCooldown(ctx, identity, CooldownWindow)
	if err != nil {
		return err
	}
	if !ok {
		metrics.FloodRejections.WithLabelValues("cooldown").Inc()
		return ErrCooldown
	}

	return g.trackPattern(ctx, identity)
}

// trackPattern updates the per-identity cadence tracker and mutes the
// identity when it has sent at a near-constant interval too many times.
func (g *Guard) trackPattern(ctx context.Context, identity string) error {
	now := g.now().UnixMilli()

	last, hasLast, err := g.state.LastSendMillis(ctx, identity)
	if err != nil {
		return err
	}

	if !hasLast {
		return g.state.SetLastSendMillis(ctx, identity, now)
	}

	interval := now - last

	lastInterval, hasInterval, err := g.state.LastInterval(ctx, identity)
	if err != nil {
		return err
	}

	if hasInterval && absDiff(interval, lastInterval) <= IntervalTolerance.Milliseconds() {
		count, err := g.state.IncrRepeatCount(ctx, identity)
		if err != nil {
			return err
		}
		if count >= RepeatThreshold {
			if err := g.state.Mute(ctx, identity, MuteDuration); err != nil {
				return err
			}
			if err := g.state.ClearPattern(ctx, identity); err != nil {
				return err
			}
			// Timestamp refresh happens on every branch, including this one.
			if err := g.state.SetLastSendMillis(ctx, identity, now); err != nil {
				return err
			}
			metrics.MutesApplied.Inc()
			metrics.FloodRejections.WithLabelValues("muted").Inc()
			return &MutedError{Fresh: true}
		}
	} else {
		if err := g.state.SetLastInterval(ctx, identity, interval); err != nil {
			return err
		}
	}

	return g.state.SetLastSendMillis(ctx, identity, now)
}

func absDiff(a, b int64) int64 {
	if a > b {
		return a - b
	}
	return b - a
}
