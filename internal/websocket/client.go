package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 50 * time.Second
	maxMessageSize = 512
	sendBuffer     = 16
)

// Snapshot loads the balance a subscriber receives as its first message.
type Snapshot func(ctx context.Context) (BalanceUpdate, error)

// Client is one socket watching one account. Clients only ever receive.
type Client struct {
	hub       *Hub
	accountID int64
	conn      *websocket.Conn
	send      chan []byte
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWS upgrades the request and streams accountID's balance until the
// peer goes away. The client is registered before the snapshot is read so
// no committed change falls between the two.
func ServeWS(w http.ResponseWriter, r *http.Request, hub *Hub, accountID int64, snapshot Snapshot, logger *slog.Logger) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already replied with an HTTP error
		return
	}
	client := &Client{
		hub:       hub,
		accountID: accountID,
		conn:      conn,
		send:      make(chan []byte, sendBuffer),
	}
	hub.Register(accountID, client)

	if snapshot != nil {
		current, err := snapshot(r.Context())
		if err != nil {
			logger.Warn("balance snapshot failed", slog.Int64("account_id", accountID), slog.Any("error", err))
			client.closeWith(websocket.CloseInternalServerErr, "balance unavailable")
			return
		}
		payload, _ := json.Marshal(current)
		client.send <- payload
	}

	// client.send is never closed; writePump exits when the socket fails.
	go client.writePump()
	client.readPump()
}

func (c *Client) closeWith(code int, reason string) {
	c.hub.Unregister(c.accountID, c)
	_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(writeWait))
	_ = c.conn.Close()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c.accountID, c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.hub.Unregister(c.accountID, c)
		_ = c.conn.Close()
	}()
	for {
		select {
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
