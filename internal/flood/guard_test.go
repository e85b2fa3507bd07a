package flood

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/Yosshy-123/HARO-Chat/internal/store"
)

// testGuard wires a guard to miniredis with a controllable clock. advance
// moves both the guard's clock and miniredis' TTL clock.
type testGuard struct {
	guard *Guard
	mr    *miniredis.Miniredis
	now   time.Time
}

func newTestGuard(t *testing.T) *testGuard {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	tg := &testGuard{
		guard: NewGuard(store.NewRedisStoreFromClient(client)),
		mr:    mr,
		now:   time.Unix(1_700_000_000, 0),
	}
	tg.guard.now = func() time.Time { return tg.now }
	return tg
}

func (tg *testGuard) advance(d time.Duration) {
	tg.now = tg.now.Add(d)
	tg.mr.FastForward(d)
}

func TestCheck_CooldownRejectsRapidSecondSend(t *testing.T) {
	tg := newTestGuard(t)
	ctx := context.Background()

	if err := tg.guard.Check(ctx, "id-1"); err != nil {
		t.Fatalf("first Check() error = %v", err)
	}
	if err := tg.guard.Check(ctx, "id-1"); !errors.Is(err, ErrCooldown) {
		t.Errorf("second Check() error = %v, want ErrCooldown", err)
	}

	// Another identity is unaffected.
	if err := tg.guard.Check(ctx, "id-2"); err != nil {
		t.Errorf("other identity Check() error = %v", err)
	}
}

func TestCheck_CooldownExpires(t *testing.T) {
	tg := newTestGuard(t)
	ctx := context.Background()

	if err := tg.guard.Check(ctx, "id-1"); err != nil {
		t.Fatalf("first Check() error = %v", err)
	}
	tg.advance(1100 * time.Millisecond)
	if err := tg.guard.Check(ctx, "id-1"); err != nil {
		t.Errorf("Check() after cooldown error = %v", err)
	}
}

// sendUntilMuted advances by each interval and checks, returning the send
// index (1-based, counting from the first send in this helper) at which
// the guard muted, or -1.
func sendUntilMuted(t *testing.T, tg *testGuard, identity string, intervals []time.Duration) int {
	t.Helper()
	ctx := context.Background()

	if err := tg.guard.Check(ctx, identity); err != nil {
		t.Fatalf("send 1 Check() error = %v", err)
	}
	for i, interval := range intervals {
		tg.advance(interval)
		err := tg.guard.Check(ctx, identity)
		if err == nil {
			continue
		}
		var muted *MutedError
		if errors.As(err, &muted) {
			if !muted.Fresh {
				t.Fatalf("send %d: mute not marked fresh", i+2)
			}
			return i + 2
		}
		t.Fatalf("send %d Check() error = %v", i+2, err)
	}
	return -1
}

func TestCheck_ConstantCadenceMutes(t *testing.T) {
	tg := newTestGuard(t)
	ctx := context.Background()

	intervals := make([]time.Duration, 10)
	for i := range intervals {
		intervals[i] = 1100 * time.Millisecond
	}

	// Send 2 records the first interval; sends 3-7 match it, so the
	// repeat count reaches the threshold of 5 on send 7.
	mutedAt := sendUntilMuted(t, tg, "bot-1", intervals)
	if mutedAt != 7 {
		t.Fatalf("muted at send %d, want 7", mutedAt)
	}

	// An immediate follow-up is rejected by the mute record itself, ahead
	// of any cooldown logic.
	err := tg.guard.Check(ctx, "bot-1")
	var muted *MutedError
	if !errors.As(err, &muted) {
		t.Fatalf("Check() while muted error = %v, want MutedError", err)
	}
	if muted.Fresh {
		t.Error("repeat rejection marked fresh")
	}
	if !errors.Is(err, ErrMuted) {
		t.Error("MutedError does not match ErrMuted")
	}
}

func TestCheck_SlowConstantCadenceMutes(t *testing.T) {
	tg := newTestGuard(t)

	// A 10s cadence outlives the tracker TTL between any two sends unless
	// each match refreshes the interval record. The threshold must still
	// land on send 7.
	intervals := make([]time.Duration, 19)
	for i := range intervals {
		intervals[i] = 10 * time.Second
	}

	if mutedAt := sendUntilMuted(t, tg, "bot-slow", intervals); mutedAt != 7 {
		t.Fatalf("muted at send %d, want 7", mutedAt)
	}
}

func TestCheck_MuteExpires(t *testing.T) {
	tg := newTestGuard(t)
	ctx := context.Background()

	intervals := make([]time.Duration, 10)
	for i := range intervals {
		intervals[i] = 1100 * time.Millisecond
	}
	if mutedAt := sendUntilMuted(t, tg, "bot-1", intervals); mutedAt == -1 {
		t.Fatal("constant cadence never muted")
	}

	tg.advance(MuteDuration + time.Second)
	if err := tg.guard.Check(ctx, "bot-1"); err != nil {
		t.Errorf("Check() after mute expiry error = %v", err)
	}
}

func TestCheck_CadenceWithinToleranceMutes(t *testing.T) {
	tg := newTestGuard(t)

	// Jittered but within the 100ms tolerance of the recorded interval.
	intervals := []time.Duration{
		1100 * time.Millisecond, // recorded as the base interval
		1050 * time.Millisecond,
		1150 * time.Millisecond,
		1080 * time.Millisecond,
		1120 * time.Millisecond,
		1100 * time.Millisecond,
		1100 * time.Millisecond,
	}
	if mutedAt := sendUntilMuted(t, tg, "bot-2", intervals); mutedAt != 7 {
		t.Errorf("muted at send %d, want 7", mutedAt)
	}
}

func TestCheck_VaryingCadenceNeverMutes(t *testing.T) {
	tg := newTestGuard(t)

	// Alternating intervals differ by more than the tolerance, so the
	// repeat count keeps resetting.
	var intervals []time.Duration
	for i := 0; i < 20; i++ {
		if i%2 == 0 {
			intervals = append(intervals, 1100*time.Millisecond)
		} else {
			intervals = append(intervals, 1400*time.Millisecond)
		}
	}
	if mutedAt := sendUntilMuted(t, tg, "human-1", intervals); mutedAt != -1 {
		t.Errorf("varying cadence muted at send %d, want no mute", mutedAt)
	}
}

func TestCheck_PatternStateExpiresWhenIdle(t *testing.T) {
	tg := newTestGuard(t)

	// Build up some repeat count.
	intervals := []time.Duration{
		1100 * time.Millisecond,
		1100 * time.Millisecond,
		1100 * time.Millisecond,
	}
	sendUntilMuted(t, tg, "id-1", intervals)

	// Idle past the tracker TTL: all pattern records expire, so the next
	// burst starts from scratch and is not muted early.
	tg.advance(time.Minute)
	if mutedAt := sendUntilMuted(t, tg, "id-1", intervals); mutedAt != -1 {
		t.Errorf("muted at send %d after idle period, want no mute", mutedAt)
	}
}
