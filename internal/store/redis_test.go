package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/Yosshy-123/HARO-Chat/internal/models"
)

func newTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStoreFromClient(client), mr
}

func TestValidRoomID(t *testing.T) {
	tests := []struct {
		name   string
		roomID string
		want   bool
	}{
		{"simple", "lobby", true},
		{"with underscore and hyphen", "dev_room-2", true},
		{"single char", "a", true},
		{"max length", "abcdefghijklmnopqrstuvwxyz123456", true},
		{"empty", "", false},
		{"too long", "abcdefghijklmnopqrstuvwxyz1234567", false},
		{"spaces", "lobby room", false},
		{"slash", "lobby/room", false},
		{"unicode", "ロビー", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidRoomID(tt.roomID); got != tt.want {
				t.Errorf("ValidRoomID(%q) = %v, want %v", tt.roomID, got, tt.want)
			}
		})
	}
}

func TestAppendMessage_CapRetainsNewest(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 150; i++ {
		msg := &models.Message{
			RoomID:   "lobby",
			Identity: "id-1",
			Username: "alice",
			Text:     fmt.Sprintf("message %d", i),
		}
		if err := s.AppendMessage(ctx, msg); err != nil {
			t.Fatalf("AppendMessage(%d) error = %v", i, err)
		}
	}

	messages, err := s.RoomMessages(ctx, "lobby")
	if err != nil {
		t.Fatalf("RoomMessages() error = %v", err)
	}
	if len(messages) != RoomMessageCap {
		t.Fatalf("len(messages) = %d, want %d", len(messages), RoomMessageCap)
	}
	// The 100 retained must be the last 100 appended, in original order.
	for i, msg := range messages {
		want := fmt.Sprintf("message %d", i+50)
		if msg.Text != want {
			t.Errorf("messages[%d].Text = %q, want %q", i, msg.Text, want)
		}
	}
}

func TestAppendMessage_AssignsIDAndTimestamp(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	msg := &models.Message{RoomID: "lobby", Username: "alice", Text: "hi"}
	if err := s.AppendMessage(ctx, msg); err != nil {
		t.Fatalf("AppendMessage() error = %v", err)
	}
	if msg.ID == "" {
		t.Error("AppendMessage() did not assign an ID")
	}
	if msg.Timestamp == 0 {
		t.Error("AppendMessage() did not assign a timestamp")
	}
}

func TestAppendMessage_InvalidRoom(t *testing.T) {
	s, _ := newTestStore(t)
	msg := &models.Message{RoomID: "bad room!", Username: "alice", Text: "hi"}
	if err := s.AppendMessage(context.Background(), msg); err != ErrInvalidRoomID {
		t.Errorf("AppendMessage() error = %v, want ErrInvalidRoomID", err)
	}
}

func TestRoomMessages_EmptyRoom(t *testing.T) {
	s, _ := newTestStore(t)
	messages, err := s.RoomMessages(context.Background(), "empty")
	if err != nil {
		t.Fatalf("RoomMessages() error = %v", err)
	}
	if len(messages) != 0 {
		t.Errorf("len(messages) = %d, want 0", len(messages))
	}
}

func TestDeleteMessage(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	var target string
	for i := 0; i < 3; i++ {
		msg := &models.Message{RoomID: "lobby", Username: "alice", Text: fmt.Sprintf("m%d", i)}
		if err := s.AppendMessage(ctx, msg); err != nil {
			t.Fatalf("AppendMessage() error = %v", err)
		}
		if i == 1 {
			target = msg.ID
		}
	}

	removed, err := s.DeleteMessage(ctx, "lobby", target)
	if err != nil {
		t.Fatalf("DeleteMessage() error = %v", err)
	}
	if !removed {
		t.Fatal("DeleteMessage() = false, want true")
	}

	messages, err := s.RoomMessages(ctx, "lobby")
	if err != nil {
		t.Fatalf("RoomMessages() error = %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("len(messages) after delete = %d, want 2", len(messages))
	}
	for _, m := range messages {
		if m.ID == target {
			t.Error("deleted message still present")
		}
	}

	removed, err = s.DeleteMessage(ctx, "lobby", "no-such-id")
	if err != nil {
		t.Fatalf("DeleteMessage(missing) error = %v", err)
	}
	if removed {
		t.Error("DeleteMessage(missing) = true, want false")
	}
}

func TestClearRoom(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	msg := &models.Message{RoomID: "lobby", Username: "alice", Text: "hi"}
	if err := s.AppendMessage(ctx, msg); err != nil {
		t.Fatalf("AppendMessage() error = %v", err)
	}
	if err := s.ClearRoom(ctx, "lobby"); err != nil {
		t.Fatalf("ClearRoom() error = %v", err)
	}

	messages, err := s.RoomMessages(ctx, "lobby")
	if err != nil {
		t.Fatalf("RoomMessages() error = %v", err)
	}
	if len(messages) != 0 {
		t.Errorf("len(messages) after clear = %d, want 0", len(messages))
	}
}

func TestTokenRecords(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	if err := s.SetToken(ctx, "id-1", "tok-1", time.Minute); err != nil {
		t.Fatalf("SetToken() error = %v", err)
	}
	got, err := s.GetToken(ctx, "id-1")
	if err != nil {
		t.Fatalf("GetToken() error = %v", err)
	}
	if got != "tok-1" {
		t.Errorf("GetToken() = %q, want %q", got, "tok-1")
	}

	// Missing identity is "", not an error.
	got, err = s.GetToken(ctx, "id-2")
	if err != nil {
		t.Fatalf("GetToken(missing) error = %v", err)
	}
	if got != "" {
		t.Errorf("GetToken(missing) = %q, want empty", got)
	}

	// Token records expire.
	mr.FastForward(2 * time.Minute)
	got, err = s.GetToken(ctx, "id-1")
	if err != nil {
		t.Fatalf("GetToken(expired) error = %v", err)
	}
	if got != "" {
		t.Errorf("GetToken(expired) = %q, want empty", got)
	}
}

func TestTryCooldown(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	ok, err := s.TryCooldown(ctx, "id-1", time.Second)
	if err != nil || !ok {
		t.Fatalf("TryCooldown() first = (%v, %v), want (true, nil)", ok, err)
	}
	ok, err = s.TryCooldown(ctx, "id-1", time.Second)
	if err != nil || ok {
		t.Fatalf("TryCooldown() second = (%v, %v), want (false, nil)", ok, err)
	}

	mr.FastForward(1100 * time.Millisecond)
	ok, err = s.TryCooldown(ctx, "id-1", time.Second)
	if err != nil || !ok {
		t.Fatalf("TryCooldown() after expiry = (%v, %v), want (true, nil)", ok, err)
	}
}

func TestRepeatCount(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := s.IncrRepeatCount(ctx, "id-1")
		if err != nil {
			t.Fatalf("IncrRepeatCount() error = %v", err)
		}
		if got != want {
			t.Errorf("IncrRepeatCount() = %d, want %d", got, want)
		}
	}

	// Recording a new interval resets the counter.
	if err := s.SetLastInterval(ctx, "id-1", 1500); err != nil {
		t.Fatalf("SetLastInterval() error = %v", err)
	}
	got, err := s.IncrRepeatCount(ctx, "id-1")
	if err != nil {
		t.Fatalf("IncrRepeatCount() error = %v", err)
	}
	if got != 1 {
		t.Errorf("IncrRepeatCount() after reset = %d, want 1", got)
	}
}

func TestWipeAll_PreservesResetLock(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	msg := &models.Message{RoomID: "lobby", Username: "alice", Text: "hi"}
	if err := s.AppendMessage(ctx, msg); err != nil {
		t.Fatalf("AppendMessage() error = %v", err)
	}
	if err := s.SetToken(ctx, "id-1", "tok-1", time.Minute); err != nil {
		t.Fatalf("SetToken() error = %v", err)
	}
	if err := s.Mute(ctx, "id-1", time.Minute); err != nil {
		t.Fatalf("Mute() error = %v", err)
	}

	acquired, err := s.AcquireResetLock(ctx, "proc-1", time.Minute)
	if err != nil || !acquired {
		t.Fatalf("AcquireResetLock() = (%v, %v), want (true, nil)", acquired, err)
	}

	if err := s.WipeAll(ctx); err != nil {
		t.Fatalf("WipeAll() error = %v", err)
	}

	if !mr.Exists(resetLockKey) {
		t.Error("WipeAll() deleted the reset lock")
	}
	if mr.Exists("room:lobby:messages") {
		t.Error("WipeAll() left room messages behind")
	}
	if mr.Exists("token:id-1") {
		t.Error("WipeAll() left token records behind")
	}
	if mr.Exists("mute:id-1") {
		t.Error("WipeAll() left mute records behind")
	}
}

func TestPubSub_EventRoundTrip(t *testing.T) {
	s, _ := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := s.SubscribeEvents(ctx)
	defer sub.Close()

	// Wait for the subscription to be established.
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("Receive() error = %v", err)
	}

	if err := s.PublishEvent(ctx, []byte(`{"hello":"world"}`)); err != nil {
		t.Fatalf("PublishEvent() error = %v", err)
	}

	select {
	case msg := <-sub.Channel():
		if msg.Payload != `{"hello":"world"}` {
			t.Errorf("payload = %q, want %q", msg.Payload, `{"hello":"world"}`)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for published event")
	}
}
