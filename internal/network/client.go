package network

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Client: одно WebSocket подключение браузера
type Client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	// room меняется только под hub.mu
	room string

	closeOnce sync.Once
}

// ID возвращает идентификатор подключения
func (c *Client) ID() string { return c.id }

// enqueue ставит кадр в очередь без блокировки. false - очередь полна.
func (c *Client) enqueue(frame []byte) bool {
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// closeSend закрывает очередь; writePump после этого закрывает соединение
func (c *Client) closeSend() {
	c.closeOnce.Do(func() { close(c.send) })
}

// readPump читает кадры браузера до ошибки соединения
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("Соединение %s закрыто: %v", c.id, err)
			}
			return
		}
		c.hub.handleFrame(c, frame)
	}
}

// writePump отправляет кадры из очереди и пинги
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
			c.hub.metrics.Frames.WithLabelValues("out").Inc()
			c.hub.metrics.Bytes.WithLabelValues("out").Add(float64(len(frame)))
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
