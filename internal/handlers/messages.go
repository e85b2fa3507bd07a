package handlers

import (
	"encoding/json"
	"errors"
	"html"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/Yosshy-123/HARO-Chat/internal/flood"
	"github.com/Yosshy-123/HARO-Chat/internal/metrics"
	"github.com/Yosshy-123/HARO-Chat/internal/models"
	"github.com/Yosshy-123/HARO-Chat/internal/store"
	"github.com/Yosshy-123/HARO-Chat/internal/token"
	"github.com/Yosshy-123/HARO-Chat/internal/ws"
)

// PostMessageRequest represents the message submission body.
type PostMessageRequest struct {
	Token    string `json:"token"`
	RoomID   string `json:"roomId"`
	Username string `json:"username"`
	Text     string `json:"text"`
	Seed     string `json:"seed"`
}

// PostMessage handles message submission. Pipeline order is fixed:
// validate shape, validate token, flood guard, persist, publish. Store
// failures at any step fail the whole request closed.
func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	var req PostMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if !store.ValidRoomID(req.RoomID) {
		h.Error(w, http.StatusBadRequest, "invalid room id")
		return
	}
	if req.Username == "" || utf8.RuneCountInString(req.Username) > MaxUsernameLen {
		h.Error(w, http.StatusBadRequest, "username must be 1-24 characters")
		return
	}
	if req.Text == "" || utf8.RuneCountInString(req.Text) > MaxTextLen {
		h.Error(w, http.StatusBadRequest, "text must be 1-800 characters")
		return
	}
	if len(req.Seed) > maxSeedLen {
		h.Error(w, http.StatusBadRequest, "seed too long")
		return
	}
	if req.Token == "" {
		h.Error(w, http.StatusForbidden, "token required")
		return
	}

	identity, err := h.tokens.Validate(r.Context(), req.Token)
	if err != nil {
		if errors.Is(err, token.ErrInvalidToken) {
			h.Error(w, http.StatusForbidden, "invalid token")
			return
		}
		h.logger.Error().Err(err).Msg("token validation store failure")
		h.Error(w, http.StatusInternalServerError, "store unavailable")
		return
	}

	if err := h.guard.Check(r.Context(), identity); err != nil {
		var muted *flood.MutedError
		switch {
		case errors.As(err, &muted):
			if muted.Fresh {
				h.notifyMuted(r, identity)
			}
			h.Error(w, http.StatusTooManyRequests, "muted for flooding")
		case errors.Is(err, flood.ErrCooldown):
			h.Error(w, http.StatusTooManyRequests, "sending too fast")
		default:
			h.logger.Error().Err(err).Msg("flood guard store failure")
			h.Error(w, http.StatusInternalServerError, "store unavailable")
		}
		return
	}

	msg := &models.Message{
		RoomID:   req.RoomID,
		Identity: identity,
		Username: html.EscapeString(req.Username),
		Text:     html.EscapeString(req.Text),
		Seed:     html.EscapeString(req.Seed),
		Time:     time.Now().Format("2006-01-02 15:04:05"),
	}

	if err := h.store.AppendMessage(r.Context(), msg); err != nil {
		h.logger.Error().Err(err).Msg("message persist failed")
		h.Error(w, http.StatusInternalServerError, "store unavailable")
		return
	}

	pub := msg.Public()
	evt := ws.Event{Type: ws.EventNewMessage, RoomID: req.RoomID, Message: &pub}
	if err := h.broadcaster.Publish(r.Context(), evt); err != nil {
		// Persisted-but-not-broadcast is not success.
		h.logger.Error().Err(err).Msg("message publish failed")
		h.Error(w, http.StatusInternalServerError, "store unavailable")
		return
	}

	metrics.MessagesPosted.WithLabelValues(req.RoomID).Inc()
	h.JSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) notifyMuted(r *http.Request, identity string) {
	evt := ws.Event{
		Type: ws.EventNotify,
		Text: "You have been muted for 20 seconds for sending messages at a constant rate.",
	}
	if err := h.broadcaster.NotifyIdentity(r.Context(), identity, evt); err != nil {
		h.logger.Warn().Err(err).Msg("mute notification failed")
	}
}

// RoomHistory returns a room's retained messages, oldest first, projected
// to public fields.
func (h *Handler) RoomHistory(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")

	messages, err := h.store.RoomMessages(r.Context(), roomID)
	if err != nil {
		if errors.Is(err, store.ErrInvalidRoomID) {
			h.Error(w, http.StatusBadRequest, "invalid room id")
			return
		}
		h.logger.Error().Err(err).Msg("history load failed")
		h.Error(w, http.StatusInternalServerError, "store unavailable")
		return
	}

	out := make([]models.PublicMessage, len(messages))
	for i, m := range messages {
		out[i] = m.Public()
	}
	h.JSON(w, http.StatusOK, out)
}
