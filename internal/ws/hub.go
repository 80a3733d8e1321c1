package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"chat-backend/internal/models"
)

const (
	KindDirect = "direct"
	KindGroup  = "group"
)

const writeWait = 5 * time.Second

// client serializes writes to one connection.
type client struct {
	kind       string
	resourceID int
	conn       *websocket.Conn
	info       ConnInfo
	mu         sync.Mutex
}

func (c *client) write(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

type roomKey struct {
	kind string
	id   int
}

// Hub maintains active websocket rooms. Direct rooms are keyed by the
// recipient user id, group rooms by group id.
type Hub struct {
	rooms map[roomKey]map[*websocket.Conn]*client
	mu    sync.RWMutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{rooms: make(map[roomKey]map[*websocket.Conn]*client)}
}

// AddDirectClient registers a connection to the inbox of userID.
func (h *Hub) AddDirectClient(userID int, conn *websocket.Conn, info ConnInfo) {
	h.add(KindDirect, userID, conn, info)
}

// RemoveDirectClient removes an inbox connection.
func (h *Hub) RemoveDirectClient(userID int, conn *websocket.Conn) {
	h.remove(KindDirect, userID, conn)
}

// AddGroupClient registers a websocket connection to a group room.
func (h *Hub) AddGroupClient(groupID int, conn *websocket.Conn, info ConnInfo) {
	h.add(KindGroup, groupID, conn, info)
}

// RemoveGroupClient removes a group websocket connection.
func (h *Hub) RemoveGroupClient(groupID int, conn *websocket.Conn) {
	h.remove(KindGroup, groupID, conn)
}

func (h *Hub) add(kind string, id int, conn *websocket.Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	key := roomKey{kind: kind, id: id}
	if _, ok := h.rooms[key]; !ok {
		h.rooms[key] = make(map[*websocket.Conn]*client)
	}
	h.rooms[key][conn] = &client{kind: kind, resourceID: id, conn: conn, info: info}
}

func (h *Hub) remove(kind string, id int, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	key := roomKey{kind: kind, id: id}
	if conns, ok := h.rooms[key]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.rooms, key)
		}
	}
}

// BroadcastDirectMessage sends message to the inboxes of both participants.
func (h *Hub) BroadcastDirectMessage(msg models.Message) {
	payload, _ := json.Marshal(models.DirectEvent{Type: "message", Message: &msg})
	h.send(KindDirect, msg.SenderID, payload)
	if msg.ReceiverID != msg.SenderID {
		h.send(KindDirect, msg.ReceiverID, payload)
	}
}

// BroadcastDirectDeletion notifies both participants of a delete-for-all event.
func (h *Hub) BroadcastDirectDeletion(msg models.Message) {
	payload, _ := json.Marshal(models.DirectEvent{Type: "delete_for_all", MessageID: msg.ID})
	h.send(KindDirect, msg.SenderID, payload)
	if msg.ReceiverID != msg.SenderID {
		h.send(KindDirect, msg.ReceiverID, payload)
	}
}

// BroadcastGroupMessage sends message to all clients in a group.
func (h *Hub) BroadcastGroupMessage(groupID int, msg models.GroupMessage) {
	payload, _ := json.Marshal(models.GroupEvent{Type: "message", Message: &msg})
	h.send(KindGroup, groupID, payload)
}

// BroadcastGroupDeletion notifies clients of a delete-for-all event.
func (h *Hub) BroadcastGroupDeletion(groupID int, messageID int) {
	payload, _ := json.Marshal(models.GroupEvent{Type: "delete_for_all", MessageID: messageID})
	h.send(KindGroup, groupID, payload)
}

// DisconnectUser closes every connection opened by userID, in any room, and
// returns how many were closed. The read loops of the closed connections
// report the disconnect.
func (h *Hub) DisconnectUser(userID int, reason string) int {
	h.mu.Lock()
	var kicked []*client
	for key, conns := range h.rooms {
		for conn, cl := range conns {
			if cl.info.UserID != userID {
				continue
			}
			kicked = append(kicked, cl)
			delete(conns, conn)
		}
		if len(conns) == 0 {
			delete(h.rooms, key)
		}
	}
	h.mu.Unlock()

	for _, cl := range kicked {
		cl.mu.Lock()
		msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason)
		_ = cl.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		cl.mu.Unlock()
		_ = cl.conn.Close()
		publishWSEvent(context.Background(), cl.kind, cl.resourceID, "ws_kick", cl.info, reason)
	}
	if len(kicked) > 0 {
		log.Printf("websocket connections closed: user_id=%d count=%d reason=%s", userID, len(kicked), reason)
	}
	return len(kicked)
}

func (h *Hub) send(kind string, id int, payload []byte) {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.rooms[roomKey{kind: kind, id: id}]))
	for _, cl := range h.rooms[roomKey{kind: kind, id: id}] {
		clients = append(clients, cl)
	}
	h.mu.RUnlock()

	for _, cl := range clients {
		if err := cl.write(payload); err != nil {
			log.Printf("websocket write error: %v", err)
			publishWSEvent(context.Background(), kind, id, "ws_error", cl.info, err.Error())
			h.remove(kind, id, cl.conn)
			_ = cl.conn.Close()
		}
	}
}

// clientCount reports open connections in a room.
func (h *Hub) clientCount(kind string, id int) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomKey{kind: kind, id: id}])
}
