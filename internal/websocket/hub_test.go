package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"
)

// mockClient creates a Client with a send channel but no real connection.
func mockClient(hub *Hub, userID string) *Client {
	return &Client{
		hub:    hub,
		conn:   nil,
		userID: userID,
		send:   make(chan []byte, sendBufferSize),
	}
}

func TestRegisterUnregister(t *testing.T) {
	hub := NewHub(slog.Default())

	c1 := mockClient(hub, "u1")
	c2 := mockClient(hub, "u2")

	hub.Register(c1)
	hub.Register(c2)

	if got := hub.ClientCount(); got != 2 {
		t.Fatalf("expected 2 clients, got %d", got)
	}

	hub.Unregister(c1)

	if got := hub.ClientCount(); got != 1 {
		t.Fatalf("expected 1 client after unregister, got %d", got)
	}

	hub.Unregister(c2)

	if got := hub.ClientCount(); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}
}

func TestDoubleUnregister(t *testing.T) {
	hub := NewHub(slog.Default())
	c := mockClient(hub, "u1")
	hub.Register(c)
	hub.Unregister(c)
	// Should not panic
	hub.Unregister(c)

	if got := hub.ClientCount(); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}
}

func TestSendToUser(t *testing.T) {
	hub := NewHub(slog.Default())

	// u1 has two tabs open, u2 has one
	u1a := mockClient(hub, "u1")
	u1b := mockClient(hub, "u1")
	u2 := mockClient(hub, "u2")
	hub.Register(u1a)
	hub.Register(u1b)
	hub.Register(u2)

	msg := NewMessage("wallet", "updated", "u1", map[string]any{"balance": float64(25)})
	hub.SendToUser("u1", msg)

	for _, c := range []*Client{u1a, u1b} {
		select {
		case data := <-c.send:
			var got Message
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if got.Type != "wallet_updated" {
				t.Errorf("expected type wallet_updated, got %s", got.Type)
			}
			if got.Extra["balance"] != float64(25) {
				t.Errorf("expected balance 25, got %v", got.Extra["balance"])
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatal("timeout waiting for message")
		}
	}

	select {
	case <-u2.send:
		t.Fatal("u2 should not receive u1's wallet event")
	default:
	}

	hub.Unregister(u1a)
	hub.Unregister(u1b)
	hub.Unregister(u2)
}

func TestSendToUnknownUser(t *testing.T) {
	hub := NewHub(slog.Default())
	// Should not panic
	hub.SendToUser("nobody", NewMessage("friend", "request", "u9", nil))
}

func TestBroadcast(t *testing.T) {
	hub := NewHub(slog.Default())

	c1 := mockClient(hub, "u1")
	c2 := mockClient(hub, "u2")
	hub.Register(c1)
	hub.Register(c2)

	hub.Broadcast(NewMessage("store", "updated", "", nil))

	for _, c := range []*Client{c1, c2} {
		select {
		case data := <-c.send:
			var got Message
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if got.Type != "store_updated" {
				t.Errorf("expected type store_updated, got %s", got.Type)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatal("timeout waiting for message")
		}
	}

	hub.Unregister(c1)
	hub.Unregister(c2)
}

func TestSendFullBuffer(t *testing.T) {
	hub := NewHub(slog.Default())

	c := mockClient(hub, "u1")
	hub.Register(c)

	// Fill the send buffer
	for i := 0; i < sendBufferSize; i++ {
		hub.SendToUser("u1", NewMessage("wallet", "updated", "u1", nil))
	}

	// This should drop the message, not panic or block
	hub.SendToUser("u1", NewMessage("wallet", "updated", "u1", nil))

	count := 0
	for {
		select {
		case <-c.send:
			count++
		default:
			goto done
		}
	}
done:
	if count != sendBufferSize {
		t.Errorf("expected %d messages, got %d", sendBufferSize, count)
	}

	hub.Unregister(c)
}

func TestNewMessage(t *testing.T) {
	msg := NewMessage("friend", "accepted", "u7", nil)
	if msg.Type != "friend_accepted" {
		t.Errorf("expected type friend_accepted, got %s", msg.Type)
	}
	if msg.Entity != "friend" {
		t.Errorf("expected entity friend, got %s", msg.Entity)
	}
	if msg.Action != "accepted" {
		t.Errorf("expected action accepted, got %s", msg.Action)
	}
	if msg.ID != "u7" {
		t.Errorf("expected id u7, got %s", msg.ID)
	}
}

func TestConcurrentAccess(t *testing.T) {
	hub := NewHub(slog.Default())
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := mockClient(hub, "u1")
			hub.Register(c)
			hub.SendToUser("u1", NewMessage("wallet", "updated", "u1", nil))
			hub.Broadcast(NewMessage("store", "updated", "", nil))
			for {
				select {
				case <-c.send:
				default:
					hub.Unregister(c)
					return
				}
			}
		}()
	}

	wg.Wait()

	if got := hub.ClientCount(); got != 0 {
		t.Errorf("expected 0 clients after concurrent test, got %d", got)
	}
}
