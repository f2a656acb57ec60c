package ws

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// Sink abstracts a push connection to one client.
type Sink interface {
	Send([]byte) error
	Close()
}

// Command is a client request on a live view connection.
type Command struct {
	Type string `json:"type"`
}

// Client represents a websocket client connection. Writes are serialized;
// reads belong to a single goroutine.
type Client struct {
	conn *websocket.Conn
	log  *slog.Logger
	mu   sync.Mutex
	once sync.Once
}

// NewClient constructs a client wrapper.
func NewClient(conn *websocket.Conn, logger *slog.Logger) *Client {
	return &Client{conn: conn, log: logger}
}

// Send writes a message to the websocket connection.
func (c *Client) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		c.log.Warn("websocket send failed", "error", err)
		c.Close()
		return err
	}
	return nil
}

// ReadCommand blocks until the client sends the next command.
func (c *Client) ReadCommand() (Command, error) {
	var cmd Command
	err := c.conn.ReadJSON(&cmd)
	return cmd, err
}

// Close terminates the connection.
func (c *Client) Close() {
	c.once.Do(func() {
		_ = c.conn.Close()
	})
}
