package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/qubotech/Referral/internal/models"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message is the wire envelope for ledger events pushed to clients.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

type client struct {
	userID string
	conn   *websocket.Conn
}

type event struct {
	userID  string
	message *Message
}

// LedgerEventHub fans ledger events out to each user's open sockets.
// It implements services.Broadcaster.
type LedgerEventHub struct {
	clients    map[string][]*websocket.Conn
	register   chan *client
	unregister chan *client
	events     chan *event
}

func NewLedgerEventHub() *LedgerEventHub {
	hub := &LedgerEventHub{
		clients:    make(map[string][]*websocket.Conn),
		register:   make(chan *client),
		unregister: make(chan *client),
		events:     make(chan *event, 100),
	}
	go hub.run()
	return hub
}

func (h *LedgerEventHub) run() {
	for {
		select {
		case c := <-h.register:
			h.clients[c.userID] = append(h.clients[c.userID], c.conn)

		case c := <-h.unregister:
			conns := h.clients[c.userID]
			for i, conn := range conns {
				if conn == c.conn {
					h.clients[c.userID] = append(conns[:i], conns[i+1:]...)
					break
				}
			}
			if len(h.clients[c.userID]) == 0 {
				delete(h.clients, c.userID)
			}

		case ev := <-h.events:
			for _, conn := range h.clients[ev.userID] {
				if err := conn.WriteJSON(ev.message); err != nil {
					log.Printf("websocket write to %s failed: %v", ev.userID, err)
				}
			}
		}
	}
}

func (h *LedgerEventHub) push(userID, msgType string, data interface{}) {
	select {
	case h.events <- &event{userID: userID, message: &Message{Type: msgType, Data: data}}:
	default:
		// Slow consumers drop events rather than block the ledger.
	}
}

func (h *LedgerEventHub) DepositConfirmed(userID string, amount, bonusPerReferral float64) {
	h.push(userID, "deposit_confirmed", gin.H{
		"amount":           amount,
		"bonusPerReferral": bonusPerReferral,
	})
}

func (h *LedgerEventHub) MemberJoined(userID string, member models.TeamMember) {
	h.push(userID, "member_joined", member)
}

func (h *LedgerEventHub) TransactionAdded(userID string, tx models.Transaction) {
	h.push(userID, "transaction_added", tx)
}

func (h *LedgerEventHub) TaskUnlocked(userID string, level int) {
	h.push(userID, "task_unlocked", gin.H{"level": level})
}

type WebSocketHandler struct {
	hub *LedgerEventHub
}

func NewWebSocketHandler(hub *LedgerEventHub) *WebSocketHandler {
	return &WebSocketHandler{hub: hub}
}

func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	userID := c.GetString("user_id")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Failed to upgrade to WebSocket: %v", err)
		return
	}

	cl := &client{userID: userID, conn: conn}
	h.hub.register <- cl

	defer func() {
		h.hub.unregister <- cl
		conn.Close()
	}()

	conn.WriteJSON(&Message{Type: "connected"})

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			return
		}

		if msg.Type == "ping" {
			conn.WriteJSON(&Message{Type: "pong"})
		}
	}
}
