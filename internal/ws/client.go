package ws

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/Yosshy-123/HARO-Chat/internal/models"
	"github.com/Yosshy-123/HARO-Chat/internal/store"
	"github.com/Yosshy-123/HARO-Chat/internal/token"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second

	// Inbound frames are only pings and close; anything bigger is abuse.
	maxReadLimit = 4096

	sendQueueSize = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Client is one WebSocket subscriber, bound to a single room and an
// assigned identity.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	room     string
	identity string
}

// trySend queues payload without blocking. A full queue drops the event;
// delivery is best-effort.
func (c *Client) trySend(payload []byte) {
	select {
	case c.send <- payload:
	default:
	}
}

// Serve upgrades the connection, assigns a fresh identity with a signed
// token, replays the room history, and subscribes the connection to its
// room. The presence count rebroadcast happens inside Hub.Register.
func Serve(hub *Hub, tokens *token.Service, st *store.RedisStore, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := r.URL.Query().Get("room")
		if !store.ValidRoomID(roomID) {
			http.Error(w, `{"error":"invalid room id"}`, http.StatusBadRequest)
			return
		}

		identity := token.NewIdentity()
		tok, err := tokens.Issue(r.Context(), identity)
		if err != nil {
			logger.Error().Err(err).Msg("ws: token issue failed")
			http.Error(w, `{"error":"store unavailable"}`, http.StatusInternalServerError)
			return
		}

		history, err := st.RoomMessages(r.Context(), roomID)
		if err != nil {
			logger.Error().Err(err).Msg("ws: history load failed")
			http.Error(w, `{"error":"store unavailable"}`, http.StatusInternalServerError)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}

		client := &Client{
			hub:      hub,
			conn:     conn,
			send:     make(chan []byte, sendQueueSize),
			room:     roomID,
			identity: identity,
		}

		// Queue the identity assignment and history replay before the hub
		// can interleave broadcasts.
		client.queueEvent(Event{Type: EventIdentity, Identity: identity, Token: tok})
		client.queueEvent(Event{Type: EventInit, RoomID: roomID, Messages: publicAll(history)})

		hub.Register(client)

		go client.writePump()
		client.readPump()
	}
}

func (c *Client) queueEvent(evt Event) {
	if payload, err := json.Marshal(evt); err == nil {
		c.trySend(payload)
	}
}

func publicAll(messages []models.Message) []models.PublicMessage {
	out := make([]models.PublicMessage, len(messages))
	for i, m := range messages {
		out[i] = m.Public()
	}
	return out
}

// readPump consumes inbound frames until the connection drops. Messages
// are posted over HTTP, so inbound payloads are discarded; the pump exists
// to drive pong handling and detect disconnects.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
