package network

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/annel0/al-spectator/internal/gamedata"
	"github.com/annel0/al-spectator/internal/logging"
	"github.com/annel0/al-spectator/internal/protocol"
	"github.com/annel0/al-spectator/internal/relay"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logging.Logger {
	return logging.NewWriterLogger("network-test", io.Discard, logging.ERROR)
}

type harness struct {
	relay   *relay.Relay
	hub     *Hub
	metrics *Metrics
	server  *httptest.Server
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	r := relay.New(gamedata.Empty(), nil, nil, quietLogger())
	m := NewMetrics(prometheus.NewRegistry())
	h := NewHub(r, m, quietLogger())
	r.AddOutput(h)
	srv := httptest.NewServer(h)
	t.Cleanup(func() {
		h.Close()
		srv.Close()
	})
	return &harness{relay: r, hub: h, metrics: m, server: srv}
}

func (h *harness) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(h.server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) *protocol.Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, frame, err := conn.ReadMessage()
	require.NoError(t, err)
	msg, err := protocol.Decode(frame)
	require.NoError(t, err)
	return msg
}

func send(t *testing.T, conn *websocket.Conn, event string, data interface{}) {
	t.Helper()
	frame, err := protocol.Encode(event, data)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, frame))
}

func decodeString(t *testing.T, msg *protocol.Message) string {
	t.Helper()
	var s string
	require.NoError(t, json.Unmarshal(msg.Data, &s))
	return s
}

func TestHub_ConnectListsTabs(t *testing.T) {
	h := newHarness(t)
	h.relay.AddTab("alpha", relay.DefaultMap)
	h.relay.AddTab("beta", relay.DefaultMap)

	conn := h.dial(t)
	first := readMessage(t, conn)
	second := readMessage(t, conn)
	assert.Equal(t, protocol.EventNewTab, first.Event)
	assert.Equal(t, "alpha", decodeString(t, first))
	assert.Equal(t, "beta", decodeString(t, second))

	assert.Eventually(t, func() bool { return h.hub.Len() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Clients))
}

func TestHub_NewTabBroadcast(t *testing.T) {
	h := newHarness(t)
	conn := h.dial(t)
	require.Eventually(t, func() bool { return h.hub.Len() == 1 }, time.Second, 5*time.Millisecond)

	h.relay.AddTab("gamma", relay.DefaultMap)
	msg := readMessage(t, conn)
	assert.Equal(t, protocol.EventNewTab, msg.Event)
	assert.Equal(t, "gamma", decodeString(t, msg))
}

func TestHub_SwitchTabReplaysAndStreams(t *testing.T) {
	h := newHarness(t)
	h.relay.AddTab("alpha", protocol.MapData{Map: "main", X: 1, Y: 2})
	ctx := context.Background()
	require.NoError(t, h.relay.HandleUpstream(ctx, "alpha", protocol.UpstreamEntities,
		[]byte(`{"type":"xy","monsters":[{"id":"m1","type":"goo","x":3,"y":4}]}`)))

	conn := h.dial(t)
	assert.Equal(t, protocol.EventNewTab, readMessage(t, conn).Event)

	send(t, conn, protocol.EventSwitchTab, "alpha")
	mapMsg := readMessage(t, conn)
	assert.Equal(t, protocol.EventMap, mapMsg.Event)
	monster := readMessage(t, conn)
	assert.Equal(t, protocol.EventMonster, monster.Event)

	var data protocol.EntityData
	require.NoError(t, monster.DecodeData(&data))
	assert.Equal(t, "m1", data.ID)

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(h.metrics.Switches.WithLabelValues("ok")) == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, h.relay.HandleUpstream(ctx, "alpha", protocol.UpstreamDeath, []byte(`{"id":"m1"}`)))
	removed := readMessage(t, conn)
	assert.Equal(t, protocol.EventRemove, removed.Event)
	assert.Equal(t, "m1", decodeString(t, removed))
}

func TestHub_SwitchToUnknownTabIgnored(t *testing.T) {
	h := newHarness(t)
	conn := h.dial(t)

	send(t, conn, protocol.EventSwitchTab, "nowhere")
	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(h.metrics.Switches.WithLabelValues("unknown")) == 1
	}, time.Second, 5*time.Millisecond)

	send(t, conn, protocol.EventSwitchTab, 42)
	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(h.metrics.Switches.WithLabelValues("malformed")) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestHub_EmitOnlyToRoom(t *testing.T) {
	h := newHarness(t)
	h.relay.AddTab("alpha", relay.DefaultMap)
	h.relay.AddTab("beta", relay.DefaultMap)

	a := &Client{id: "a", hub: h.hub, send: make(chan []byte, 8)}
	b := &Client{id: "b", hub: h.hub, send: make(chan []byte, 8)}
	h.hub.mu.Lock()
	h.hub.clients[a] = struct{}{}
	h.hub.clients[b] = struct{}{}
	h.hub.mu.Unlock()

	h.hub.switchTab(a, "alpha")
	h.hub.switchTab(b, "beta")
	drain(a)
	drain(b)

	msg, err := protocol.NewMessage(protocol.EventRemoveAll, nil)
	require.NoError(t, err)
	h.hub.Emit("alpha", msg)

	assert.Len(t, a.send, 1)
	assert.Len(t, b.send, 0)
}

func TestHub_SlowClientDropped(t *testing.T) {
	h := newHarness(t)
	h.relay.AddTab("alpha", relay.DefaultMap)

	c := &Client{id: "slow", hub: h.hub, send: make(chan []byte, 1)}
	h.hub.mu.Lock()
	h.hub.clients[c] = struct{}{}
	h.hub.mu.Unlock()
	// replay карты занимает единственное место в очереди
	h.hub.switchTab(c, "alpha")
	require.Equal(t, 1, h.hub.Len())

	msg, err := protocol.NewMessage(protocol.EventRemoveAll, nil)
	require.NoError(t, err)
	h.hub.Emit("alpha", msg)

	assert.Equal(t, 0, h.hub.Len())
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Dropped))
	// очередь закрыта
	<-c.send
	_, ok := <-c.send
	assert.False(t, ok)
}

func drain(c *Client) {
	for {
		select {
		case <-c.send:
		default:
			return
		}
	}
}

func TestHub_MalformedFramesStayOutOfErrorLog(t *testing.T) {
	var logs bytes.Buffer
	r := relay.New(gamedata.Empty(), nil, nil, quietLogger())
	m := NewMetrics(nil)
	h := NewHub(r, m, logging.NewWriterLogger("network", &logs, logging.INFO))
	c := &Client{id: "noisy", hub: h, send: make(chan []byte, 8)}

	for i := 0; i < 50; i++ {
		h.handleFrame(c, []byte(`not json`))
		h.handleFrame(c, []byte(`{"event":"switchTab","data":42}`))
	}

	assert.Empty(t, logs.String(), "мусор от браузера пишется только на DEBUG")
	assert.Equal(t, 50.0, testutil.ToFloat64(m.Switches.WithLabelValues("malformed")))
	assert.Len(t, c.send, 0)
}
