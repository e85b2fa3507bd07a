package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"

	"github.com/Yosshy-123/HARO-Chat/internal/metrics"
	"github.com/Yosshy-123/HARO-Chat/internal/models"
)

const (
	// RoomMessageCap is the hard cap on retained messages per room.
	// Oldest entries are evicted first.
	RoomMessageCap = 100

	// patternTTL bounds how long per-identity send-pattern records
	// survive without activity.
	patternTTL = 30 * time.Second

	resetLockKey    = "system:reset_lock"
	currentMonthKey = "system:current_month"
	eventsChannel   = "events"
)

// ErrInvalidRoomID is returned when a room identifier fails validation.
var ErrInvalidRoomID = errors.New("invalid room id")

// Room names: alphanumeric, hyphens, underscores, 1-32 chars.
var roomIDRegex = regexp.MustCompile(`^[A-Za-z0-9_-]{1,32}$`)

// ValidRoomID reports whether id is an acceptable room identifier.
func ValidRoomID(id string) bool {
	return roomIDRegex.MatchString(id)
}

// RedisStore holds every durable record shared between server processes:
// room message logs, token records, flood guard state, and the reset lock.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new Redis store.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisStore{client: client}, nil
}

// NewRedisStoreFromClient wraps an existing client. Used by tests.
func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Client exposes the underlying client for consumers that need raw
// primitives (pub/sub subscriptions).
func (s *RedisStore) Client() *redis.Client {
	return s.client
}

// roomMessagesKey returns the key for a room's message list.
func roomMessagesKey(roomID string) string {
	return fmt.Sprintf("room:%s:messages", roomID)
}

// tokenKey returns the key holding an identity's active token.
func tokenKey(identity string) string {
	return fmt.Sprintf("token:%s", identity)
}

// cooldownKey returns the key for an identity's send cooldown.
func cooldownKey(identity string) string {
	return fmt.Sprintf("cooldown:%s", identity)
}

// muteKey returns the key for an identity's mute record.
func muteKey(identity string) string {
	return fmt.Sprintf("mute:%s", identity)
}

func patternLastKey(identity string) string {
	return fmt.Sprintf("pattern:%s:last", identity)
}

func patternIntervalKey(identity string) string {
	return fmt.Sprintf("pattern:%s:interval", identity)
}

func patternCountKey(identity string) string {
	return fmt.Sprintf("pattern:%s:count", identity)
}

// AppendMessage validates the room, assigns an ID and timestamp if unset,
// and appends the message to the room's capped log. Append and trim run in
// one MULTI/EXEC so concurrent appends cannot corrupt ordering or
// over-trim.
func (s *RedisStore) AppendMessage(ctx context.Context, msg *models.Message) error {
	if !ValidRoomID(msg.RoomID) {
		return ErrInvalidRoomID
	}

	if msg.ID == "" {
		msg.ID = ulid.Make().String()
	}
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().UnixMilli()
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	start := time.Now()
	key := roomMessagesKey(msg.RoomID)

	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, string(data))
	pipe.LTrim(ctx, key, -RoomMessageCap, -1)
	_, err = pipe.Exec(ctx)

	metrics.RedisLatency.Observe(time.Since(start).Seconds())
	return err
}

// RoomMessages returns a room's messages in insertion order, oldest first.
func (s *RedisStore) RoomMessages(ctx context.Context, roomID string) ([]models.Message, error) {
	if !ValidRoomID(roomID) {
		return nil, ErrInvalidRoomID
	}

	start := time.Now()
	results, err := s.client.LRange(ctx, roomMessagesKey(roomID), 0, -1).Result()
	metrics.RedisLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	messages := make([]models.Message, 0, len(results))
	for _, data := range results {
		var msg models.Message
		if err := json.Unmarshal([]byte(data), &msg); err != nil {
			continue
		}
		messages = append(messages, msg)
	}

	return messages, nil
}

// DeleteMessage removes a single message from a room's log by ID.
// Returns true if a message was removed.
func (s *RedisStore) DeleteMessage(ctx context.Context, roomID, msgID string) (bool, error) {
	if !ValidRoomID(roomID) {
		return false, ErrInvalidRoomID
	}

	key := roomMessagesKey(roomID)
	results, err := s.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return false, err
	}

	for _, data := range results {
		var msg models.Message
		if err := json.Unmarshal([]byte(data), &msg); err != nil {
			continue
		}
		if msg.ID == msgID {
			removed, err := s.client.LRem(ctx, key, 1, data).Result()
			return removed > 0, err
		}
	}

	return false, nil
}

// ClearRoom drops a room's entire message log.
func (s *RedisStore) ClearRoom(ctx context.Context, roomID string) error {
	if !ValidRoomID(roomID) {
		return ErrInvalidRoomID
	}
	return s.client.Del(ctx, roomMessagesKey(roomID)).Err()
}

// SetToken records identity's active token. Reissuing overwrites the
// previous record, which invalidates the older token.
func (s *RedisStore) SetToken(ctx context.Context, identity, token string, ttl time.Duration) error {
	return s.client.Set(ctx, tokenKey(identity), token, ttl).Err()
}

// GetToken returns identity's active token, or "" if none is stored.
func (s *RedisStore) GetToken(ctx context.Context, identity string) (string, error) {
	val, err := s.client.Get(ctx, tokenKey(identity)).Result()
	if err == redis.Nil {
		return "", nil
	}
	return val, err
}

// TryCooldown atomically claims the identity's send cooldown slot.
// Returns false if a send already claimed it inside the window.
func (s *RedisStore) TryCooldown(ctx context.Context, identity string, window time.Duration) (bool, error) {
	return s.client.SetNX(ctx, cooldownKey(identity), "1", window).Result()
}

// IsMuted reports whether identity has an active mute record.
func (s *RedisStore) IsMuted(ctx context.Context, identity string) (bool, error) {
	exists, err := s.client.Exists(ctx, muteKey(identity)).Result()
	return exists > 0, err
}

// Mute creates a mute record for identity lasting ttl.
func (s *RedisStore) Mute(ctx context.Context, identity string, ttl time.Duration) error {
	return s.client.Set(ctx, muteKey(identity), "1", ttl).Err()
}

// LastSendMillis returns the identity's last recorded send timestamp.
func (s *RedisStore) LastSendMillis(ctx context.Context, identity string) (int64, bool, error) {
	val, err := s.client.Get(ctx, patternLastKey(identity)).Int64()
	if err == redis.Nil {
		return 0, false, nil
	}
	return val, err == nil, err
}

// SetLastSendMillis refreshes the identity's last send timestamp.
func (s *RedisStore) SetLastSendMillis(ctx context.Context, identity string, millis int64) error {
	return s.client.Set(ctx, patternLastKey(identity), millis, patternTTL).Err()
}

// LastInterval returns the identity's last recorded send interval.
func (s *RedisStore) LastInterval(ctx context.Context, identity string) (int64, bool, error) {
	val, err := s.client.Get(ctx, patternIntervalKey(identity)).Int64()
	if err == redis.Nil {
		return 0, false, nil
	}
	return val, err == nil, err
}

// SetLastInterval records the identity's most recent send interval and
// resets the repeat counter.
func (s *RedisStore) SetLastInterval(ctx context.Context, identity string, interval int64) error {
	pipe := s.client.Pipeline()
	pipe.Set(ctx, patternIntervalKey(identity), interval, patternTTL)
	pipe.Del(ctx, patternCountKey(identity))
	_, err := pipe.Exec(ctx)
	return err
}

// IncrRepeatCount increments the identity's equal-interval repeat counter
// and returns the new value. The interval record's TTL is refreshed in
// the same pipeline: pattern state may only expire while the identity is
// idle, and an identity matching its own cadence is anything but.
func (s *RedisStore) IncrRepeatCount(ctx context.Context, identity string) (int64, error) {
	pipe := s.client.Pipeline()
	incr := pipe.Incr(ctx, patternCountKey(identity))
	pipe.Expire(ctx, patternCountKey(identity), patternTTL)
	pipe.Expire(ctx, patternIntervalKey(identity), patternTTL)
	_, err := pipe.Exec(ctx)
	return incr.Val(), err
}

// ClearPattern drops the identity's pattern-tracker records. Called when a
// mute is applied.
func (s *RedisStore) ClearPattern(ctx context.Context, identity string) error {
	return s.client.Del(ctx,
		patternIntervalKey(identity),
		patternCountKey(identity),
	).Err()
}

// AcquireResetLock attempts to claim the cluster-wide reset lock. The lock
// self-expires so a crash mid-reset cannot deadlock future attempts.
func (s *RedisStore) AcquireResetLock(ctx context.Context, owner string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, resetLockKey, owner, ttl).Result()
}

// ReleaseResetLock releases the reset lock.
func (s *RedisStore) ReleaseResetLock(ctx context.Context) error {
	return s.client.Del(ctx, resetLockKey).Err()
}

// CurrentPeriod returns the stored calendar period marker, or "".
func (s *RedisStore) CurrentPeriod(ctx context.Context) (string, error) {
	val, err := s.client.Get(ctx, currentMonthKey).Result()
	if err == redis.Nil {
		return "", nil
	}
	return val, err
}

// SetCurrentPeriod writes the calendar period marker.
func (s *RedisStore) SetCurrentPeriod(ctx context.Context, period string) error {
	return s.client.Set(ctx, currentMonthKey, period, 0).Err()
}

// WipeAll deletes every key except the reset lock. The lock must survive
// the wipe so the holder keeps mutual exclusion until the new period
// marker is written.
func (s *RedisStore) WipeAll(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, "*", 100).Result()
		if err != nil {
			return err
		}
		var doomed []string
		for _, k := range keys {
			if k != resetLockKey {
				doomed = append(doomed, k)
			}
		}
		if len(doomed) > 0 {
			if err := s.client.Del(ctx, doomed...).Err(); err != nil {
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// PublishEvent pushes a fan-out event onto the shared event channel so
// every process's hub can deliver it.
func (s *RedisStore) PublishEvent(ctx context.Context, payload []byte) error {
	return s.client.Publish(ctx, eventsChannel, payload).Err()
}

// SubscribeEvents subscribes to the shared event channel.
func (s *RedisStore) SubscribeEvents(ctx context.Context) *redis.PubSub {
	return s.client.Subscribe(ctx, eventsChannel)
}
