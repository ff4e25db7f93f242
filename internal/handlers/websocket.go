package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"fleet-wars-backend/internal/middleware"
	"fleet-wars-backend/internal/models"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const (
	writeWait       = 10 * time.Second
	clientSendQueue = 32
	inboundRate     = 10 // messages per second
	inboundBurst    = 20
)

// WebSocketHandler pushes match events to clients watching those matches.
// It implements services.Broadcaster.
type WebSocketHandler struct {
	hub    *WebSocketHub
	logger *zap.Logger
}

type WebSocketHub struct {
	clients    map[*Client]bool
	watchers   map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	subscribe  chan subscription
	broadcast  chan *Message
	direct     chan directMessage
	done       chan struct{}
	logger     *zap.Logger
}

type Client struct {
	Identity models.Identity
	Conn     *websocket.Conn
	send     chan *Message
	limiter  *rate.Limiter
}

type subscription struct {
	client   *Client
	matchKey string
	watch    bool
}

type Message struct {
	Type     string      `json:"type"`
	MatchKey string      `json:"match_key,omitempty"`
	Data     interface{} `json:"data,omitempty"`
}

func NewWebSocketHandler(logger *zap.Logger) *WebSocketHandler {
	logger = logger.Named("ws")
	hub := &WebSocketHub{
		clients:    make(map[*Client]bool),
		watchers:   make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		subscribe:  make(chan subscription),
		broadcast:  make(chan *Message, 100),
		direct:     make(chan directMessage, 100),
		done:       make(chan struct{}),
		logger:     logger,
	}

	go hub.run()

	return &WebSocketHandler{hub: hub, logger: logger}
}

// Close stops the hub and drops every client.
func (h *WebSocketHandler) Close() {
	close(h.hub.done)
}

func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("failed to upgrade to websocket", zap.Error(err))
		return
	}

	client := &Client{
		Identity: middleware.Identity(c),
		Conn:     conn,
		send:     make(chan *Message, clientSendQueue),
		limiter:  rate.NewLimiter(rate.Limit(inboundRate), inboundBurst),
	}

	select {
	case h.hub.register <- client:
	case <-h.hub.done:
		conn.Close()
		return
	}
	go client.writePump()

	defer func() {
		select {
		case h.hub.unregister <- client:
		case <-h.hub.done:
		}
		conn.Close()
	}()

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn("websocket error", zap.Error(err))
			}
			return
		}

		if !client.limiter.Allow() {
			h.hub.queue(client, &Message{Type: "ERROR", Data: gin.H{"error": "rate limit exceeded"}})
			continue
		}
		h.handleMessage(client, &msg)
	}
}

func (h *WebSocketHandler) handleMessage(client *Client, msg *Message) {
	switch msg.Type {
	case "PING":
		h.hub.queue(client, &Message{Type: "PONG", Data: gin.H{"timestamp": time.Now().Unix()}})
	case "SUBSCRIBE_MATCH":
		h.hub.setWatch(client, msg.MatchKey, true)
	case "UNSUBSCRIBE_MATCH":
		h.hub.setWatch(client, msg.MatchKey, false)
	default:
		h.hub.queue(client, &Message{Type: "ERROR", Data: gin.H{"error": "unknown message type"}})
	}
}

// BroadcastMatchEvent queues ev for everyone watching its match. A full
// queue drops the event rather than stall the caller.
func (h *WebSocketHandler) BroadcastMatchEvent(ev models.MatchEvent) {
	msg := &Message{Type: string(ev.Type), MatchKey: ev.MatchKey, Data: ev}
	select {
	case h.hub.broadcast <- msg:
	default:
		h.logger.Warn("broadcast queue full, dropping event",
			zap.String("type", string(ev.Type)),
			zap.String("match", ev.MatchKey),
		)
	}
}

func (c *Client) writePump() {
	for msg := range c.send {
		c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.Conn.WriteJSON(msg); err != nil {
			c.Conn.Close()
			return
		}
	}
	c.Conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
}

func (hub *WebSocketHub) setWatch(client *Client, matchKey string, watch bool) {
	if matchKey == "" {
		hub.queue(client, &Message{Type: "ERROR", Data: gin.H{"error": "match_key required"}})
		return
	}
	select {
	case hub.subscribe <- subscription{client: client, matchKey: matchKey, watch: watch}:
	case <-hub.done:
	}
}

// queue sends a reply to one client through its writer.
func (hub *WebSocketHub) queue(client *Client, msg *Message) {
	select {
	case hub.direct <- directMessage{client: client, msg: msg}:
	case <-hub.done:
	}
}

type directMessage struct {
	client *Client
	msg    *Message
}

func (hub *WebSocketHub) run() {
	for {
		select {
		case client := <-hub.register:
			hub.clients[client] = true
			hub.logger.Debug("client registered", zap.Stringer("identity", client.Identity))

		case client := <-hub.unregister:
			hub.drop(client)

		case sub := <-hub.subscribe:
			if !hub.clients[sub.client] {
				continue
			}
			if sub.watch {
				if hub.watchers[sub.matchKey] == nil {
					hub.watchers[sub.matchKey] = make(map[*Client]bool)
				}
				hub.watchers[sub.matchKey][sub.client] = true
				hub.deliver(sub.client, &Message{Type: "SUBSCRIBED", MatchKey: sub.matchKey})
			} else {
				delete(hub.watchers[sub.matchKey], sub.client)
				if len(hub.watchers[sub.matchKey]) == 0 {
					delete(hub.watchers, sub.matchKey)
				}
				hub.deliver(sub.client, &Message{Type: "UNSUBSCRIBED", MatchKey: sub.matchKey})
			}

		case d := <-hub.direct:
			if hub.clients[d.client] {
				hub.deliver(d.client, d.msg)
			}

		case message := <-hub.broadcast:
			for client := range hub.watchers[message.MatchKey] {
				hub.deliver(client, message)
			}

		case <-hub.done:
			for client := range hub.clients {
				hub.drop(client)
			}
			return
		}
	}
}

// deliver never blocks the hub; a client that cannot keep up is dropped.
func (hub *WebSocketHub) deliver(client *Client, msg *Message) {
	select {
	case client.send <- msg:
	default:
		hub.logger.Warn("client too slow, disconnecting", zap.Stringer("identity", client.Identity))
		hub.drop(client)
	}
}

func (hub *WebSocketHub) drop(client *Client) {
	if !hub.clients[client] {
		return
	}
	delete(hub.clients, client)
	for key, set := range hub.watchers {
		delete(set, client)
		if len(set) == 0 {
			delete(hub.watchers, key)
		}
	}
	close(client.send)
}
