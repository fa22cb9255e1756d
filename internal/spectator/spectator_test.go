package spectator

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/annel0/al-spectator/internal/gamedata"
	"github.com/annel0/al-spectator/internal/logging"
	"github.com/annel0/al-spectator/internal/presentation"
	"github.com/annel0/al-spectator/internal/protocol"
	"github.com/annel0/al-spectator/internal/relay"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logging.Logger {
	return logging.NewWriterLogger("spectator-test", io.Discard, logging.ERROR)
}

func testConfig() Config {
	return Config{FrameInterval: 5 * time.Millisecond, Buffer: 16}
}

func mustMessage(t *testing.T, event string, data interface{}) *protocol.Message {
	t.Helper()
	msg, err := protocol.NewMessage(event, data)
	require.NoError(t, err)
	return msg
}

func TestSpectator_StepWithoutRun(t *testing.T) {
	s := New("tab1", presentation.NewAtlas(nil), testConfig(), quietLogger())

	s.handle(mustMessage(t, protocol.EventMap, protocol.MapData{Map: "winterland", X: 10, Y: 20}))
	s.handle(mustMessage(t, protocol.EventMonster, protocol.EntityData{
		ID: "m1", Skin: "goo",
		X: protocol.Float(0), Y: protocol.Float(0),
		GoingX: protocol.Float(100), GoingY: protocol.Float(0),
		Speed: protocol.Float(50), Moving: protocol.Bool(true),
	}))
	s.step(100)

	snap := s.Snapshot()
	assert.Equal(t, "winterland", snap.Map)
	assert.Equal(t, uint64(1), snap.Tick)
	require.Len(t, snap.Entities, 1)
	assert.InDelta(t, 5.0, snap.Entities[0].X, 1e-9)

	scene := s.Scene()
	assert.Equal(t, "winterland", scene.Map)
	assert.Len(t, scene.Nodes, 1)
	assert.Equal(t, 1, s.Stats().Entities)
}

func TestSpectator_MalformedEventIsDropped(t *testing.T) {
	s := New("tab1", nil, testConfig(), quietLogger())
	s.handle(&protocol.Message{Event: protocol.EventMonster, Data: []byte(`{"x":1}`)})
	s.step(16)
	assert.Empty(t, s.Snapshot().Entities)
}

func TestSpectator_RunAppliesEventsAndTicks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := New("tab1", nil, testConfig(), quietLogger())

	stopped := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(stopped)
	}()

	require.True(t, s.Deliver(ctx, mustMessage(t, protocol.EventMonster, protocol.EntityData{
		ID: "m1", Skin: "goo", X: protocol.Float(1), Y: protocol.Float(2),
	})))

	assert.Eventually(t, func() bool {
		snap := s.Snapshot()
		return len(snap.Entities) == 1 && snap.Tick > 0
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("spectator did not stop")
	}
	assert.False(t, s.Deliver(context.Background(), mustMessage(t, protocol.EventRemoveAll, nil)))
}

func TestSpectator_DeliverAfterStopAlwaysFails(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := New("tab1", nil, testConfig(), quietLogger())
	cancel()
	s.Run(ctx)

	// в буфере есть место, но остановленный спектатор события не принимает
	for i := 0; i < 100; i++ {
		require.False(t, s.Deliver(context.Background(), mustMessage(t, protocol.EventRemoveAll, nil)))
	}
	assert.Empty(t, s.events)
}

func TestManager_FollowsRelay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
	}()

	m := NewManager(ctx, nil, testConfig(), quietLogger())
	r := relay.New(gamedata.Empty(), nil, nil, quietLogger())
	r.AddTab("tab1", protocol.MapData{Map: "main", X: 1, Y: 2})
	r.AddOutput(m)

	assert.Equal(t, []string{"tab1"}, m.Tabs())

	err := r.HandleUpstream(ctx, "tab1", protocol.UpstreamNewMap,
		[]byte(`{"name":"halloween","x":5,"y":6,"entities":{"type":"all","monsters":[{"id":"m1","type":"goo","x":5,"y":6}]}}`))
	require.NoError(t, err)

	s, ok := m.Get("tab1")
	require.True(t, ok)
	assert.Eventually(t, func() bool {
		snap := s.Snapshot()
		return snap.Map == "halloween" && len(snap.Entities) == 1
	}, time.Second, 5*time.Millisecond)

	r.AddTab("tab2", relay.DefaultMap)
	assert.Equal(t, []string{"tab1", "tab2"}, m.Tabs())

	assert.Equal(t, 10, testutil.CollectAndCount(m))

	cancel()
	m.Wait()
}

func TestManager_TabAddedIsIdempotent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	m := NewManager(ctx, nil, testConfig(), quietLogger())
	m.TabAdded("tab1")
	first, _ := m.Get("tab1")
	m.TabAdded("tab1")
	second, _ := m.Get("tab1")
	assert.Same(t, first, second)

	// событие для вкладки без спектатора не паникует
	m.Emit("missing", mustMessage(t, protocol.EventRemoveAll, nil))

	cancel()
	m.Wait()
}
