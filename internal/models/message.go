package models

// Message represents a chat message stored in Redis.
type Message struct {
	ID        string `json:"id"`       // ULID
	RoomID    string `json:"room_id"`
	Identity  string `json:"identity"` // Sender identity UUID, never exposed to readers
	Username  string `json:"username"` // HTML-escaped before storage
	Text      string `json:"text"`     // HTML-escaped before storage
	Seed      string `json:"seed"`     // Avatar seed / color hint
	Time      string `json:"time"`     // Server-formatted display timestamp
	Timestamp int64  `json:"ts"`       // Unix ms
}

// PublicMessage is the reader-facing projection of a Message.
// The sender identity is deliberately absent.
type PublicMessage struct {
	ID        string `json:"id"`
	RoomID    string `json:"room_id"`
	Username  string `json:"username"`
	Text      string `json:"text"`
	Seed      string `json:"seed"`
	Time      string `json:"time"`
	Timestamp int64  `json:"ts"`
}

// Public returns the projection of m safe to hand to subscribers and
// history readers.
func (m Message) Public() PublicMessage {
	return PublicMessage{
		ID:        m.ID,
		RoomID:    m.RoomID,
		Username:  m.Username,
		Text:      m.Text,
		Seed:      m.Seed,
		Time:      m.Time,
		Timestamp: m.Timestamp,
	}
}
