package server

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/mikemainguy/rapierphysicsplugin/config"
	"github.com/mikemainguy/rapierphysicsplugin/logging"
)

func getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  config.GetWebSocketReadBufferSize(),
		WriteBufferSize: config.GetWebSocketWriteBufferSize(),
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

// Client is one WebSocket connection: a room-agnostic transport shell
// around the room.Broadcaster contract, dispatching decoded verbs to
// the manager and the client's joined room (if any).
type Client struct {
	id      string
	manager *RoomManager
	conn    *websocket.Conn
	send    chan []byte

	roomID string
}

// Send implements room.Broadcaster: a non-blocking enqueue that drops
// the frame rather than stalling the room's mailbox when the client's
// send queue is saturated.
func (c *Client) Send(data []byte) {
	select {
	case c.send <- data:
	default:
		logging.Warn("dropping frame to slow client", map[string]interface{}{"client_id": c.id})
	}
}

// readPump reads and dispatches inbound frames until the connection
// closes, then unregisters the client from its room and the manager.
func (c *Client) readPump() {
	defer func() {
		c.manager.handleDisconnect(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(config.GetWebSocketMaxMessageSize())
	c.conn.SetReadDeadline(time.Now().Add(config.GetWebSocketPongTimeout()))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(config.GetWebSocketPongTimeout()))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Error("websocket connection error", map[string]interface{}{"error": err.Error()})
			}
			break
		}
		c.manager.dispatch(c, message)
	}
}

// writePump drains c.send to the socket and sends periodic keepalive
// pings, closing the connection when the send channel closes or a
// write fails.
func (c *Client) writePump() {
	ticker := time.NewTicker(config.GetWebSocketPingPeriod())
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(config.GetWebSocketWriteTimeout()))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.BinaryMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(config.GetWebSocketWriteTimeout()))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWS upgrades an HTTP request to a WebSocket connection and spins
// up its read/write pump pair.
func ServeWS(manager *RoomManager, w http.ResponseWriter, r *http.Request) {
	upgrader := getUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Error("websocket upgrade failed", map[string]interface{}{"error": err.Error()})
		return
	}

	client := &Client{
		id:      uuid.NewString(),
		manager: manager,
		conn:    conn,
		send:    make(chan []byte, config.GetWebSocketClientSendQueueSize()),
	}

	manager.registerClient(client)

	go client.writePump()
	go client.readPump()
}
