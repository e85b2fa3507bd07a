package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Yosshy-123/HARO-Chat/internal/store"
	"github.com/Yosshy-123/HARO-Chat/internal/ws"
)

// ModerationRequest represents the moderation body. An empty MessageID
// clears the whole room.
type ModerationRequest struct {
	Password  string `json:"password"`
	RoomID    string `json:"roomId"`
	MessageID string `json:"messageId,omitempty"`
}

// Moderate deletes a single message or clears a room's history and
// broadcasts the matching reconciliation event to subscribers.
func (h *Handler) Moderate(w http.ResponseWriter, r *http.Request) {
	var req ModerationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if subtle.ConstantTimeCompare([]byte(req.Password), []byte(h.adminPassword)) != 1 {
		h.Error(w, http.StatusForbidden, "invalid password")
		return
	}

	if !store.ValidRoomID(req.RoomID) {
		h.Error(w, http.StatusBadRequest, "invalid room id")
		return
	}

	if req.MessageID != "" {
		h.deleteOne(w, r, req.RoomID, req.MessageID)
		return
	}
	h.deleteAll(w, r, req.RoomID)
}

func (h *Handler) deleteOne(w http.ResponseWriter, r *http.Request, roomID, msgID string) {
	removed, err := h.store.DeleteMessage(r.Context(), roomID, msgID)
	if err != nil {
		h.storeError(w, err, "message delete failed")
		return
	}
	if !removed {
		h.Error(w, http.StatusNotFound, "message not found")
		return
	}

	evt := ws.Event{Type: ws.EventDeleteMsg, RoomID: roomID, ID: msgID}
	if err := h.broadcaster.Publish(r.Context(), evt); err != nil {
		h.storeError(w, err, "delete broadcast failed")
		return
	}

	h.JSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) deleteAll(w http.ResponseWriter, r *http.Request, roomID string) {
	if err := h.store.ClearRoom(r.Context(), roomID); err != nil {
		h.storeError(w, err, "room clear failed")
		return
	}

	evt := ws.Event{Type: ws.EventDeleteAll, RoomID: roomID}
	if err := h.broadcaster.Publish(r.Context(), evt); err != nil {
		h.storeError(w, err, "clear broadcast failed")
		return
	}

	h.JSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) storeError(w http.ResponseWriter, err error, msg string) {
	if errors.Is(err, store.ErrInvalidRoomID) {
		h.Error(w, http.StatusBadRequest, "invalid room id")
		return
	}
	h.logger.Error().Err(err).Msg(msg)
	h.Error(w, http.StatusInternalServerError, "store unavailable")
}
