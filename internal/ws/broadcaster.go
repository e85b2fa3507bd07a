package ws

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/Yosshy-123/HARO-Chat/internal/metrics"
	"github.com/Yosshy-123/HARO-Chat/internal/store"
)

// envelope routes an event through the shared pub/sub channel. Target, if
// set, narrows delivery to one identity's connections; otherwise the event
// fans out to the room's subscribers.
type envelope struct {
	RoomID  string          `json:"room_id,omitempty"`
	Target  string          `json:"target,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

// Broadcaster publishes fan-out events through the shared store so every
// server process's hub delivers them to its local subscribers.
type Broadcaster struct {
	hub    *Hub
	store  *store.RedisStore
	logger zerolog.Logger
}

// NewBroadcaster creates a broadcaster over the shared store.
func NewBroadcaster(hub *Hub, st *store.RedisStore, logger zerolog.Logger) *Broadcaster {
	return &Broadcaster{hub: hub, store: st, logger: logger}
}

// Publish fans evt out to the subscribers of evt.RoomID across all
// processes.
func (b *Broadcaster) Publish(ctx context.Context, evt Event) error {
	return b.publish(ctx, envelope{RoomID: evt.RoomID}, evt)
}

// NotifyIdentity delivers evt to one identity's connections across all
// processes. Used for mute warnings.
func (b *Broadcaster) NotifyIdentity(ctx context.Context, identity string, evt Event) error {
	return b.publish(ctx, envelope{Target: identity}, evt)
}

func (b *Broadcaster) publish(ctx context.Context, env envelope, evt Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	env.Payload = payload

	data, err := json.Marshal(env)
	if err != nil {
		return err
	}

	metrics.EventsBroadcast.WithLabelValues(evt.Type).Inc()
	return b.store.PublishEvent(ctx, data)
}

// Run consumes the shared event channel and hands each event to the local
// hub. Blocks until ctx is cancelled.
func (b *Broadcaster) Run(ctx context.Context) {
	pubsub := b.store.SubscribeEvents(ctx)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				b.logger.Warn().Err(err).Msg("broadcast: bad envelope")
				continue
			}
			switch {
			case env.Target != "":
				b.hub.Notify(env.Target, env.Payload)
			case env.RoomID != "":
				b.hub.BroadcastRoom(env.RoomID, env.Payload)
			}
		}
	}
}
