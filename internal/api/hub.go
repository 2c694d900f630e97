package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/cory-johannsen/monduel/internal/game/battle"
	"github.com/cory-johannsen/monduel/internal/game/catalog"
)

const (
	// writeWait bounds a single frame write to a slow client.
	writeWait = 10 * time.Second
	// pingPeriod keeps idle connections alive through proxies.
	pingPeriod = 30 * time.Second
	// sendBuffer is the per-client outbound queue. A client that cannot
	// drain this many snapshots is dropped rather than allowed to stall
	// the battle fan-out.
	sendBuffer = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The session token already gates the upgrade; browsers on other
	// origins present the same token or nothing.
	CheckOrigin: func(*http.Request) bool { return true },
}

// wsClient is one subscribed connection. All writes go through send so the
// write pump is the connection's only writer.
type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans battle snapshots out to WebSocket subscribers, one subscription
// set per battle. It satisfies the session directory's Notifier.
type Hub struct {
	battles  BattleDirectory
	registry *catalog.Registry
	logger   *zap.Logger

	mu      sync.Mutex
	clients map[string]map[*wsClient]struct{}
	closed  bool
}

// NewHub creates a Hub.
//
// Precondition: battles, registry, and logger must be non-nil.
func NewHub(battles BattleDirectory, registry *catalog.Registry, logger *zap.Logger) *Hub {
	return &Hub{
		battles:  battles,
		registry: registry,
		logger:   logger,
		clients:  make(map[string]map[*wsClient]struct{}),
	}
}

// Serve handles GET /ws/battles/:id. The requester must be a battle
// participant; the current snapshot is sent immediately after the upgrade so
// subscribers never start from a blank state.
func (h *Hub) Serve(c echo.Context) error {
	id := c.Param("id")
	b, err := h.battles.Get(c.Request().Context(), requesterAddress(c), id)
	if err != nil {
		return h.httpError(c, err)
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already wrote its own failure response.
		return nil
	}

	client := &wsClient{conn: conn, send: make(chan []byte, sendBuffer)}
	if !h.register(id, client) {
		conn.Close()
		return nil
	}

	if payload, err := h.marshal(b); err == nil {
		h.trySend(id, client, payload)
	}

	go h.writePump(client)
	h.readPump(id, client)
	return nil
}

func (h *Hub) httpError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, battle.ErrBattleNotFound):
		return c.JSON(http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, battle.ErrForbidden):
		return c.JSON(http.StatusForbidden, errorResponse{Error: err.Error()})
	default:
		h.logger.Error("websocket subscribe failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

// BattleUpdated implements session.Notifier. Marshalling happens once per
// update; the payload is shared by every subscriber of that battle.
func (h *Hub) BattleUpdated(b *battle.Battle) {
	payload, err := h.marshal(b)
	if err != nil {
		h.logger.Error("marshalling battle snapshot", zap.String("battle", b.ID), zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients[b.ID] {
		select {
		case client.send <- payload:
		default:
			// Queue full: the client is too slow to keep. Dropping it here
			// closes its send channel, which ends its write pump.
			h.dropLocked(b.ID, client)
		}
	}
}

// trySend queues payload for the client if it is still registered. The
// mutex check keeps the send from racing Close, which closes the channel.
func (h *Hub) trySend(id string, client *wsClient, payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[id][client]; !ok {
		return
	}
	select {
	case client.send <- payload:
	default:
		h.dropLocked(id, client)
	}
}

func (h *Hub) marshal(b *battle.Battle) ([]byte, error) {
	return json.Marshal(newBattleSnapshot(b, h.registry))
}

// register adds the client to the battle's subscription set. Returns false
// when the hub is already closed.
func (h *Hub) register(id string, client *wsClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	set, ok := h.clients[id]
	if !ok {
		set = make(map[*wsClient]struct{})
		h.clients[id] = set
	}
	set[client] = struct{}{}
	return true
}

// dropLocked removes the client and closes its send channel.
//
// Precondition: h.mu must be held.
func (h *Hub) dropLocked(id string, client *wsClient) {
	set, ok := h.clients[id]
	if !ok {
		return
	}
	if _, ok := set[client]; !ok {
		return
	}
	delete(set, client)
	if len(set) == 0 {
		delete(h.clients, id)
	}
	close(client.send)
}

func (h *Hub) drop(id string, client *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(id, client)
}

// readPump discards inbound frames until the peer disconnects. The protocol
// is one-way; all mutations arrive over HTTP.
func (h *Hub) readPump(id string, client *wsClient) {
	defer h.drop(id, client)
	client.conn.SetReadLimit(512)
	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump is the connection's single writer: queued snapshots plus
// keepalive pings. It exits when the send channel closes.
func (h *Hub) writePump(client *wsClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-client.send:
			if !ok {
				client.conn.SetWriteDeadline(time.Now().Add(writeWait))
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close drops every subscriber. New registrations are refused afterwards.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, set := range h.clients {
		for client := range set {
			delete(set, client)
			close(client.send)
		}
		delete(h.clients, id)
	}
}
