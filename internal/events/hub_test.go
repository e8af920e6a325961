package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tradesim/tradesim-api/internal/domain/order"
)

func subscribe(t *testing.T, h *Hub, userID uuid.UUID) *Connection {
	t.Helper()
	conn := &Connection{UserID: userID, Send: make(chan []byte, 8)}
	if !h.Register(conn) {
		t.Fatal("register on a running hub must succeed")
	}
	// Give the run loop a beat to finish the map insert.
	time.Sleep(10 * time.Millisecond)
	return conn
}

func receiveEvent(t *testing.T, conn *Connection) Event {
	t.Helper()
	select {
	case payload := <-conn.Send:
		var event Event
		if err := json.Unmarshal(payload, &event); err != nil {
			t.Fatalf("bad event payload: %v", err)
		}
		return event
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
		return Event{}
	}
}

func TestHubDeliversToOwnerOnly(t *testing.T) {
	h := NewHub(nil)
	go h.Run()
	defer h.Stop()

	owner := uuid.New()
	other := uuid.New()
	ownerConn := subscribe(t, h, owner)
	otherConn := subscribe(t, h, other)

	o := order.TopUpOrder{ID: uuid.New(), UserID: owner}
	h.OrderCredited(context.Background(), o, 200_000)

	event := receiveEvent(t, ownerConn)
	if event.Type != EventOrderCredited || event.OrderID != o.ID {
		t.Fatalf("unexpected event: %+v", event)
	}
	if event.CreditedAmount != 200_000 {
		t.Fatalf("expected credited amount in event, got %d", event.CreditedAmount)
	}

	select {
	case payload := <-otherConn.Send:
		t.Fatalf("event leaked to another user: %s", payload)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubFansOutToAllUserConnections(t *testing.T) {
	h := NewHub(nil)
	go h.Run()
	defer h.Stop()

	userID := uuid.New()
	first := subscribe(t, h, userID)
	second := subscribe(t, h, userID)

	h.OrderExpired(context.Background(), order.TopUpOrder{ID: uuid.New(), UserID: userID})

	if e := receiveEvent(t, first); e.Type != EventOrderExpired {
		t.Fatalf("unexpected event type: %s", e.Type)
	}
	if e := receiveEvent(t, second); e.Type != EventOrderExpired {
		t.Fatalf("unexpected event type: %s", e.Type)
	}
}

func TestHubUnregisterClosesSendChannel(t *testing.T) {
	h := NewHub(nil)
	go h.Run()
	defer h.Stop()

	userID := uuid.New()
	conn := subscribe(t, h, userID)

	h.Unregister(conn)

	select {
	case _, open := <-conn.Send:
		if open {
			t.Fatal("expected closed send channel after unregister")
		}
	case <-time.After(time.Second):
		t.Fatal("send channel not closed")
	}

	// Events after unregister must not panic or block.
	h.OrderFailed(context.Background(), order.TopUpOrder{ID: uuid.New(), UserID: userID})
}

func TestHubStoppedDoesNotBlockConnectionChurn(t *testing.T) {
	h := NewHub(nil)
	go h.Run()

	conn := subscribe(t, h, uuid.New())
	h.Stop()

	done := make(chan struct{})
	go func() {
		// Connection teardown races shutdown in practice; neither call may
		// block once Run has exited.
		h.Unregister(conn)
		late := &Connection{UserID: uuid.New(), Send: make(chan []byte, 1)}
		if h.Register(late) {
			t.Error("register must report failure after Stop")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("connection churn blocked after Stop")
	}
}
