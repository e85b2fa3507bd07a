package ws

import "github.com/Yosshy-123/HARO-Chat/internal/models"

// Event types delivered over the real-time channel.
const (
	EventIdentity   = "identity"
	EventInit       = "init"
	EventNewMessage = "newMessage"
	EventDeleteMsg  = "deleteMessage"
	EventDeleteAll  = "deleteAllMessages"
	EventUserCount  = "userCount"
	EventNotify     = "notify"
)

// Event is the wire format for everything the server pushes to
// subscribers. Fields are populated per type; the rest stay empty.
type Event struct {
	Type     string                 `json:"type"`
	RoomID   string                 `json:"room_id,omitempty"`
	ID       string                 `json:"id,omitempty"`       // deleteMessage target
	Count    int                    `json:"count,omitempty"`    // userCount
	Text     string                 `json:"text,omitempty"`     // notify
	Identity string                 `json:"identity,omitempty"` // identity assignment
	Token    string                 `json:"token,omitempty"`    // identity assignment
	Message  *models.PublicMessage  `json:"message,omitempty"`  // newMessage
	Messages []models.PublicMessage `json:"messages,omitempty"` // init
}
