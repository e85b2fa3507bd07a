package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"unicode/utf8"
)

// Register hands the client a random avatar seed. Identities and tokens
// are assigned on the real-time channel, not here.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		h.Error(w, http.StatusInternalServerError, "seed generation failed")
		return
	}
	h.JSON(w, http.StatusOK, map[string]string{"seed": hex.EncodeToString(b)})
}

// UsernameRequest represents the display name check body.
type UsernameRequest struct {
	Username string `json:"username"`
}

// Username validates a display name against the length contract.
func (h *Handler) Username(w http.ResponseWriter, r *http.Request) {
	var req UsernameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Username == "" || utf8.RuneCountInString(req.Username) > MaxUsernameLen {
		h.Error(w, http.StatusBadRequest, "username must be 1-24 characters")
		return
	}
	h.JSON(w, http.StatusOK, map[string]bool{"ok": true})
}
