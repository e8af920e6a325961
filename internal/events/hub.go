package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/tradesim/tradesim-api/internal/domain/order"
)

// EventType for order notifications
type EventType string

const (
	EventOrderCredited EventType = "order.credited"
	EventOrderFailed   EventType = "order.failed"
	EventOrderExpired  EventType = "order.expired"
)

// orderEventsChannel is the Redis Pub/Sub channel shared by all instances.
const orderEventsChannel = "topup:order_events"

// Event is pushed to the owning user's websocket subscribers whenever one of
// their orders reaches an outcome. Delivery is best effort; the order status
// endpoint remains the source of truth for pollers.
type Event struct {
	Type           EventType    `json:"type"`
	OrderID        uuid.UUID    `json:"order_id"`
	UserID         uuid.UUID    `json:"user_id"`
	Status         order.Status `json:"status"`
	CreditedAmount int64        `json:"credited_amount,omitempty"`
	At             time.Time    `json:"at"`
}

// Connection represents one websocket subscriber
type Connection struct {
	UserID uuid.UUID
	Conn   *websocket.Conn
	Send   chan []byte
}

// Hub fans order events out to local websocket connections, using Redis
// Pub/Sub so events reach subscribers on any instance.
type Hub struct {
	connections map[uuid.UUID]map[*Connection]bool
	redis       *redis.Client
	pubsub      *redis.PubSub

	mu sync.RWMutex

	register   chan *Connection
	unregister chan *Connection

	ctx    context.Context
	cancel context.CancelFunc
}

// NewHub creates an event hub. redisClient may be nil, in which case events
// are delivered to local connections only.
func NewHub(redisClient *redis.Client) *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	h := &Hub{
		connections: make(map[uuid.UUID]map[*Connection]bool),
		redis:       redisClient,
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		ctx:         ctx,
		cancel:      cancel,
	}

	if redisClient != nil {
		h.pubsub = redisClient.Subscribe(ctx, orderEventsChannel)
	}

	return h
}

// Run processes connection churn and inbound pub/sub messages until Stop.
func (h *Hub) Run() {
	var pubsubCh <-chan *redis.Message
	if h.pubsub != nil {
		pubsubCh = h.pubsub.Channel()
	}

	for {
		select {
		case <-h.ctx.Done():
			return

		case conn := <-h.register:
			h.mu.Lock()
			if h.connections[conn.UserID] == nil {
				h.connections[conn.UserID] = make(map[*Connection]bool)
			}
			h.connections[conn.UserID][conn] = true
			h.mu.Unlock()

		case conn := <-h.unregister:
			h.mu.Lock()
			if conns, ok := h.connections[conn.UserID]; ok {
				if _, ok := conns[conn]; ok {
					delete(conns, conn)
					close(conn.Send)
					if len(conns) == 0 {
						delete(h.connections, conn.UserID)
					}
				}
			}
			h.mu.Unlock()

		case msg, ok := <-pubsubCh:
			if !ok {
				pubsubCh = nil
				continue
			}
			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Warn().Err(err).Msg("malformed order event on pubsub channel")
				continue
			}
			h.deliverLocal(event)
		}
	}
}

// Register hands a connection to the run loop. Returns false when the hub is
// stopped, so callers never block against an exited Run.
func (h *Hub) Register(conn *Connection) bool {
	select {
	case h.register <- conn:
		return true
	case <-h.ctx.Done():
		return false
	}
}

// Unregister detaches a connection. A no-op after Stop; Stop already closed
// every registered send channel.
func (h *Hub) Unregister(conn *Connection) {
	select {
	case h.unregister <- conn:
	case <-h.ctx.Done():
	}
}

// Stop shuts the hub down and closes all connections.
func (h *Hub) Stop() {
	h.cancel()
	if h.pubsub != nil {
		h.pubsub.Close()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, conns := range h.connections {
		for conn := range conns {
			close(conn.Send)
		}
	}
	h.connections = make(map[uuid.UUID]map[*Connection]bool)
}

// Publish sends an event to every subscriber of the owning user.
func (h *Hub) Publish(ctx context.Context, event Event) {
	if h.redis != nil {
		payload, err := json.Marshal(event)
		if err != nil {
			log.Error().Err(err).Msg("failed to encode order event")
			return
		}
		if err := h.redis.Publish(ctx, orderEventsChannel, payload).Err(); err != nil {
			log.Warn().Err(err).Msg("order event publish failed, delivering locally")
			h.deliverLocal(event)
		}
		return
	}
	h.deliverLocal(event)
}

func (h *Hub) deliverLocal(event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for conn := range h.connections[event.UserID] {
		select {
		case conn.Send <- payload:
		default:
			// Slow consumer; drop rather than block the hub.
			log.Warn().Str("user_id", event.UserID.String()).Msg("order event dropped for slow subscriber")
		}
	}
}

// OrderCredited implements payment.Notifier
func (h *Hub) OrderCredited(ctx context.Context, o order.TopUpOrder, creditedAmount int64) {
	h.Publish(ctx, Event{
		Type:           EventOrderCredited,
		OrderID:        o.ID,
		UserID:         o.UserID,
		Status:         order.StatusCredited,
		CreditedAmount: creditedAmount,
		At:             time.Now(),
	})
}

// OrderFailed implements payment.Notifier
func (h *Hub) OrderFailed(ctx context.Context, o order.TopUpOrder) {
	h.Publish(ctx, Event{
		Type:    EventOrderFailed,
		OrderID: o.ID,
		UserID:  o.UserID,
		Status:  order.StatusFailed,
		At:      time.Now(),
	})
}

// OrderExpired implements order.Notifier
func (h *Hub) OrderExpired(ctx context.Context, o order.TopUpOrder) {
	h.Publish(ctx, Event{
		Type:    EventOrderExpired,
		OrderID: o.ID,
		UserID:  o.UserID,
		Status:  order.StatusExpired,
		At:      time.Now(),
	})
}
