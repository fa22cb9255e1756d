// Package network раздаёт события вкладок браузерам по WebSocket.
package network

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/annel0/al-spectator/internal/logging"
	"github.com/annel0/al-spectator/internal/protocol"
	"github.com/annel0/al-spectator/internal/relay"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// DefaultSendBuffer: размер очереди исходящих кадров клиента
const DefaultSendBuffer = 256

// Joiner воспроизводит состояние вкладки для нового подписчика
type Joiner interface {
	Join(tab string, fn func(replay []*protocol.Message)) error
	Tabs() []string
}

var _ relay.Output = (*Hub)(nil)

// Hub держит подключения браузеров, сгруппированные по вкладкам
type Hub struct {
	joiner     Joiner
	metrics    *Metrics
	logger     *logging.Logger
	upgrader   websocket.Upgrader
	sendBuffer int

	mu      sync.RWMutex
	clients map[*Client]struct{}
	rooms   map[string]map[*Client]struct{}
}

// NewHub создаёт хаб. metrics может быть nil.
func NewHub(joiner Joiner, metrics *Metrics, logger *logging.Logger) *Hub {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	if logger == nil {
		logger = logging.GetNetworkLogger()
	}
	return &Hub{
		joiner:     joiner,
		metrics:    metrics,
		logger:     logger,
		sendBuffer: DefaultSendBuffer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		clients: make(map[*Client]struct{}),
		rooms:   make(map[string]map[*Client]struct{}),
	}
}

// SetSendBuffer меняет размер очереди для новых подключений
func (h *Hub) SetSendBuffer(n int) {
	if n > 0 {
		h.sendBuffer = n
	}
}

// Len возвращает число подключённых браузеров
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP поднимает WebSocket и запускает насосы клиента
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("⚠️ Upgrade не удался для %s: %v", r.RemoteAddr, err)
		return
	}

	c := &Client{
		id:   uuid.NewString(),
		hub:  h,
		conn: conn,
		send: make(chan []byte, h.sendBuffer),
	}
	h.register(c)

	go c.writePump()
	go c.readPump()
}

func (h *Hub) register(c *Client) {
	tabs := h.joiner.Tabs()

	h.mu.Lock()
	h.clients[c] = struct{}{}
	count := len(h.clients)
	// Новый клиент узнаёт обо всех вкладках
	overflow := false
	for _, tab := range tabs {
		frame, err := protocol.Encode(protocol.EventNewTab, tab)
		if err != nil {
			continue
		}
		if !c.enqueue(frame) {
			overflow = true
			break
		}
	}
	h.mu.Unlock()

	h.metrics.Clients.Set(float64(count))
	h.logger.Info("🔌 Браузер %s подключился", c.id)
	if overflow {
		h.drop(c)
	}
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		h.leaveLocked(c)
		delete(h.clients, c)
	}
	count := len(h.clients)
	h.mu.Unlock()

	if ok {
		c.closeSend()
		h.metrics.Clients.Set(float64(count))
		h.logger.Info("👋 Браузер %s отключился", c.id)
	}
}

// drop отключает клиента, который не успевает читать
func (h *Hub) drop(c *Client) {
	h.metrics.Dropped.Inc()
	h.logger.Warn("⚠️ Клиент %s не успевает, отключаем", c.id)
	h.unregister(c)
}

func (h *Hub) leaveLocked(c *Client) {
	if c.room == "" {
		return
	}
	if room, ok := h.rooms[c.room]; ok {
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, c.room)
		}
	}
	c.room = ""
}

// handleFrame разбирает кадр от браузера
func (h *Hub) handleFrame(c *Client, frame []byte) {
	h.metrics.Frames.WithLabelValues("in").Inc()
	h.metrics.Bytes.WithLabelValues("in").Add(float64(len(frame)))

	msg, err := protocol.Decode(frame)
	if err != nil {
		h.logger.ProtocolError(logging.DEBUG, c.id, err, frame)
		return
	}

	switch msg.Event {
	case protocol.EventSwitchTab:
		var tab string
		if err := msg.DecodeData(&tab); err != nil {
			h.metrics.Switches.WithLabelValues("malformed").Inc()
			h.logger.ProtocolError(logging.DEBUG, c.id, err, frame)
			return
		}
		h.switchTab(c, tab)
	default:
		h.logger.Debug("Неизвестное событие %s от %s", msg.Event, c.id)
	}
}

// switchTab переводит клиента во вкладку и отправляет её состояние.
// Неизвестная вкладка игнорируется, клиент остаётся, где был.
func (h *Hub) switchTab(c *Client, tab string) {
	var overflow bool
	err := h.joiner.Join(tab, func(replay []*protocol.Message) {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.clients[c]; !ok {
			return
		}
		h.leaveLocked(c)
		room, ok := h.rooms[tab]
		if !ok {
			room = make(map[*Client]struct{})
			h.rooms[tab] = room
		}
		room[c] = struct{}{}
		c.room = tab

		for _, msg := range replay {
			frame, err := json.Marshal(msg)
			if err != nil {
				continue
			}
			if !c.enqueue(frame) {
				overflow = true
				return
			}
		}
	})
	switch {
	case errors.Is(err, relay.ErrTabNotFound):
		h.metrics.Switches.WithLabelValues("unknown").Inc()
		h.logger.Debug("Клиент %s запросил неизвестную вкладку %s", c.id, tab)
		return
	case err != nil:
		h.metrics.Switches.WithLabelValues("error").Inc()
		h.logger.Warn("⚠️ switchTab %s для %s: %v", tab, c.id, err)
		return
	}
	if overflow {
		h.drop(c)
		return
	}
	h.metrics.Switches.WithLabelValues("ok").Inc()
	h.logger.Debug("Клиент %s смотрит вкладку %s", c.id, tab)
}

// Emit реализует relay.Output: кадр уходит всем клиентам вкладки
func (h *Hub) Emit(tab string, msg *protocol.Message) {
	frame, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("❌ Не удалось сериализовать %s: %v", msg.Event, err)
		return
	}

	var slow []*Client
	h.mu.RLock()
	for c := range h.rooms[tab] {
		if !c.enqueue(frame) {
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.drop(c)
	}
}

// TabAdded реализует relay.Output: о новой вкладке узнают все клиенты
func (h *Hub) TabAdded(tab string) {
	frame, err := protocol.Encode(protocol.EventNewTab, tab)
	if err != nil {
		h.logger.Error("❌ Не удалось сериализовать newTab: %v", err)
		return
	}

	var slow []*Client
	h.mu.RLock()
	for c := range h.clients {
		if !c.enqueue(frame) {
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.drop(c)
	}
}

// Close отключает всех клиентов
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.unregister(c)
	}
}
