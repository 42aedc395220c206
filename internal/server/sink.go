package server

import (
	"errors"
	"time"

	"github.com/gorilla/websocket"

	"github.com/google/uuid"
)

// writeTimeout bounds every transport write (spec.md §5 "Cancellation &
// timeouts"); exceeding it marks the connection disconnected rather than
// letting writes accumulate.
const writeTimeout = 5 * time.Second

// sendBufferSize is the bounded per-connection outbound queue. There is no
// unbounded per-connection queue (spec.md §5 "Backpressure"): a full buffer
// means the client is too slow and the connection is dropped.
const sendBufferSize = 16

var errSendBufferFull = errors.New("server: client send buffer full")

// wsClient adapts a *websocket.Conn to connection.Sink. Send() never
// blocks: it enqueues onto a bounded channel drained by writePump, which
// owns the actual transport write and its deadline.
type wsClient struct {
	clientID uuid.UUID
	conn     *websocket.Conn
	send     chan []byte
}

func newWSClient(conn *websocket.Conn) *wsClient {
	return &wsClient{
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}
}

// Send implements connection.Sink.
func (c *wsClient) Send(b []byte) error {
	select {
	case c.send <- b:
		return nil
	default:
		c.conn.Close()
		return errSendBufferFull
	}
}

// writePump drains c.send onto the transport and sends periodic transport
// pings, applying writeTimeout to every write. It returns (closing the
// connection) on any write failure or on c.send being closed.
func (c *wsClient) writePump(pingInterval time.Duration) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
