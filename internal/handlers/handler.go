package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/Yosshy-123/HARO-Chat/internal/flood"
	"github.com/Yosshy-123/HARO-Chat/internal/store"
	"github.com/Yosshy-123/HARO-Chat/internal/token"
	"github.com/Yosshy-123/HARO-Chat/internal/ws"
)

const (
	// MaxUsernameLen and MaxTextLen are hard contract bounds; stored and
	// broadcast content may be rendered unescaped downstream, so both
	// fields are also HTML-escaped before storage.
	MaxUsernameLen = 24
	MaxTextLen     = 800

	maxSeedLen = 64
)

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	store         *store.RedisStore
	tokens        *token.Service
	guard         *flood.Guard
	broadcaster   *ws.Broadcaster
	adminPassword string
	logger        zerolog.Logger
}

// NewHandler creates a new Handler.
func NewHandler(st *store.RedisStore, tokens *token.Service, guard *flood.Guard, broadcaster *ws.Broadcaster, adminPassword string, logger zerolog.Logger) *Handler {
	return &Handler{
		store:         st,
		tokens:        tokens,
		guard:         guard,
		broadcaster:   broadcaster,
		adminPassword: adminPassword,
		logger:        logger,
	}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}
