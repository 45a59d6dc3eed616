package statscollector

import (
	"context"
	"sync"
	"testing"
	"time"

	"emperror.dev/errors"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voluzi/ecsadmin/pkg/snapshot"
	"github.com/voluzi/ecsadmin/pkg/worldstats"
)

func readDocument(t *testing.T, p *snapshot.Publisher) (*snapshot.Snapshot, *Document) {
	t.Helper()
	s, err := p.Read()
	require.NoError(t, err)

	doc := &Document{}
	require.NoError(t, json.Unmarshal(s.Data, doc))
	return s, doc
}

func TestCollector_DerivedRates(t *testing.T) {
	publisher := snapshot.NewPublisher()
	c := NewCollector(publisher)

	err := c.OnTick(&worldstats.WorldStats{
		TickCount:  10,
		FrameTime:  0.5,
		SystemTime: 0.25,
	}, 1.0)
	require.NoError(t, err)

	s, doc := readDocument(t, publisher)
	assert.Equal(t, uint64(1), s.Tick)
	assert.InDelta(t, 10.0, doc.FPS.Current, 1e-9)
	assert.InDelta(t, 50.0, doc.Frame.Current, 1e-9)
	assert.InDelta(t, 25.0, doc.System.Current, 1e-9)
	assert.Equal(t, []float64{10}, doc.FPS.Data1m)
	assert.Equal(t, []float64{10}, doc.FPS.Data1h)
	assert.Equal(t, []float64{10}, doc.FPS.Min1h)
	assert.Equal(t, []float64{10}, doc.FPS.Max1h)
}

func TestCollector_SkipsTicksWithoutProgress(t *testing.T) {
	publisher := snapshot.NewPublisher()
	c := NewCollector(publisher)

	// Nothing published before the first tick with progress.
	require.NoError(t, c.OnTick(&worldstats.WorldStats{TickCount: 0}, 1.0))
	_, err := publisher.Read()
	assert.True(t, errors.Is(err, snapshot.ErrNoSnapshot))

	require.NoError(t, c.OnTick(&worldstats.WorldStats{TickCount: 10, FrameTime: 0.5}, 1.0))
	first, err := publisher.Read()
	require.NoError(t, err)

	require.NoError(t, c.OnTick(&worldstats.WorldStats{TickCount: 0}, 1.0))
	require.NoError(t, c.OnTick(&worldstats.WorldStats{TickCount: 10}, 0))
	require.NoError(t, c.OnTick(nil, 1.0))

	current, err := publisher.Read()
	require.NoError(t, err)
	assert.Same(t, first, current)

	_, doc := readDocument(t, publisher)
	assert.Len(t, doc.FPS.Data1m, 1)
}

func TestCollector_NewSystemGetsHistory(t *testing.T) {
	publisher := snapshot.NewPublisher()
	c := NewCollector(publisher)

	stats := &worldstats.WorldStats{
		SystemCount: 2,
		TickCount:   10,
		FrameTime:   0.5,
		SystemTime:  0.4,
		Systems: []worldstats.SystemStats{
			{Handle: 7, ID: "Move", Phase: worldstats.OnUpdate, Enabled: true, TimeSpent: 0.1},
			{Handle: 9, ID: "Render", Phase: worldstats.OnStore, Enabled: true, TimeSpent: 0.3},
		},
	}
	require.NoError(t, c.OnTick(stats, 1.0))

	_, doc := readDocument(t, publisher)
	require.Len(t, doc.Systems.OnUpdate, 1)
	require.Len(t, doc.Systems.OnStore, 1)
	assert.Empty(t, doc.Systems.OnLoad)

	move := doc.Systems.OnUpdate[0]
	assert.Equal(t, "Move", move.ID)
	assert.Equal(t, uint64(7), move.Handle)
	require.Len(t, move.TimeSpent1m, 1)
	assert.InDelta(t, 25.0, move.TimeSpent1m[0], 1e-9)
	assert.InDelta(t, 0.1/50*100*100, move.TimeSpent, 1e-9)

	render := doc.Systems.OnStore[0]
	require.Len(t, render.TimeSpent1m, 1)
	assert.InDelta(t, 75.0, render.TimeSpent1m[0], 1e-9)

	// A system appearing later starts its own series without touching the others.
	stats.Systems = append(stats.Systems, worldstats.SystemStats{
		Handle: 11, ID: "Late", Phase: worldstats.OnUpdate, TimeSpent: 0,
	})
	require.NoError(t, c.OnTick(stats, 1.0))

	_, doc = readDocument(t, publisher)
	require.Len(t, doc.Systems.OnUpdate, 2)
	assert.Len(t, doc.Systems.OnUpdate[0].TimeSpent1m, 2)
	assert.Equal(t, []float64{0}, doc.Systems.OnUpdate[1].TimeSpent1m)
}

func TestCollector_SystemShareWithoutProfiling(t *testing.T) {
	publisher := snapshot.NewPublisher()
	c := NewCollector(publisher)

	require.NoError(t, c.OnTick(&worldstats.WorldStats{
		TickCount: 10,
		Systems: []worldstats.SystemStats{
			{Handle: 1, ID: "Move", Phase: worldstats.OnUpdate},
		},
	}, 1.0))

	_, doc := readDocument(t, publisher)
	assert.Equal(t, []float64{0}, doc.Systems.OnUpdate[0].TimeSpent1m)
	assert.Zero(t, doc.Systems.OnUpdate[0].TimeSpent)
}

func TestCollector_ComponentMemoryHistory(t *testing.T) {
	publisher := snapshot.NewPublisher()
	c := NewCollector(publisher, WithSeriesCapacity(2))

	for _, used := range []uint64{100, 200, 300} {
		require.NoError(t, c.OnTick(&worldstats.WorldStats{
			TickCount: 1,
			Components: []worldstats.ComponentStats{
				{Handle: 3, ID: "Position", Entities: 4, Tables: 1, MemoryUsed: used},
			},
		}, 1.0))
	}

	_, doc := readDocument(t, publisher)
	require.Len(t, doc.Components, 1)
	assert.Equal(t, "Position", doc.Components[0].ID)
	assert.Equal(t, []float64{200, 300}, doc.Components[0].MemUsed1m)
}

func TestCollector_DocumentShape(t *testing.T) {
	publisher := snapshot.NewPublisher()
	c := NewCollector(publisher)

	require.NoError(t, c.OnTick(&worldstats.WorldStats{
		SystemCount:     1,
		ThreadCount:     4,
		FrameProfiling:  true,
		SystemProfiling: true,
		TickCount:       60,
		FrameTime:       0.3,
		Memory: worldstats.MemoryStats{
			Total: worldstats.MemoryStat{Allocd: 2048, Used: 1024},
		},
		Systems: []worldstats.SystemStats{
			{Handle: 1, ID: "Move", Phase: worldstats.OnUpdate},
		},
		Features: []worldstats.FeatureStats{
			{ID: "Physics", Entities: "Move", SystemCount: 1, SystemsEnabled: 1},
		},
	}, 1.0))

	s, err := publisher.Read()
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(s.Data, &raw))

	for _, key := range []string{
		"system_count", "component_count", "table_count", "entity_count", "thread_count",
		"frame_profiling", "system_profiling", "memory", "systems", "features",
		"fps", "frame", "system",
	} {
		assert.Contains(t, raw, key)
	}
	assert.NotContains(t, raw, "components")

	memory := raw["memory"].(map[string]interface{})
	for _, key := range []string{"total", "components", "entities", "systems", "families", "tables", "stage", "world"} {
		assert.Contains(t, memory, key)
	}
	assert.Equal(t, map[string]interface{}{"allocd": float64(2048), "used": float64(1024)}, memory["total"])

	systems := raw["systems"].(map[string]interface{})
	assert.Len(t, systems, 12)
	for _, phase := range worldstats.Phases {
		assert.Contains(t, systems, string(phase))
	}

	move := systems["on_update"].([]interface{})[0].(map[string]interface{})
	for _, key := range []string{
		"handle", "id", "enabled", "active", "tables_matched", "entities_matched",
		"signature", "is_hidden", "period", "time_spent", "time_spent_1m",
	} {
		assert.Contains(t, move, key)
	}

	fps := raw["fps"].(map[string]interface{})
	for _, key := range []string{"current", "data_1m", "data_1h", "min_1h", "max_1h"} {
		assert.Contains(t, fps, key)
	}
}

func TestCollector_SerializationFailureKeepsPreviousSnapshot(t *testing.T) {
	publisher := snapshot.NewPublisher()
	c := NewCollector(publisher)

	require.NoError(t, c.OnTick(&worldstats.WorldStats{TickCount: 10, FrameTime: 0.5}, 1.0))
	previous, err := publisher.Read()
	require.NoError(t, err)

	c.marshal = func(v interface{}) ([]byte, error) {
		return nil, errors.New("out of memory")
	}
	err = c.OnTick(&worldstats.WorldStats{TickCount: 20, FrameTime: 0.5}, 1.0)
	assert.Error(t, err)

	current, err := publisher.Read()
	require.NoError(t, err)
	assert.Same(t, previous, current)

	c.marshal = json.Marshal
	require.NoError(t, c.OnTick(&worldstats.WorldStats{TickCount: 30, FrameTime: 0.5}, 1.0))
	current, err = publisher.Read()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), current.Tick)
}

type countingProvider struct {
	mu    sync.Mutex
	calls int
}

func (p *countingProvider) Stats() (*worldstats.WorldStats, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.calls == 2 {
		return nil, errors.New("provider unavailable")
	}
	return &worldstats.WorldStats{TickCount: 5, FrameTime: 0.01}, nil
}

func TestCollector_Run(t *testing.T) {
	publisher := snapshot.NewPublisher()
	c := NewCollector(publisher, WithInterval(5*time.Millisecond))
	provider := &countingProvider{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Run(ctx, provider)
	}()

	require.Eventually(t, func() bool {
		s, err := publisher.Read()
		return err == nil && s.Tick >= 2
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("collector did not stop after cancel")
	}

	_, doc := readDocument(t, publisher)
	assert.Greater(t, doc.FPS.Current, 0.0)
}

// steadyProvider reports a world running at a fixed frame rate. Counters only
// reset on a successful read, like a real world.
type steadyProvider struct {
	mu     sync.Mutex
	fps    float64
	since  time.Time
	calls  int
	failOn int
}

func (p *steadyProvider) Stats() (*worldstats.WorldStats, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.calls == p.failOn {
		return nil, errors.New("provider unavailable")
	}

	now := time.Now()
	ticks := uint64(0)
	if !p.since.IsZero() {
		ticks = uint64(now.Sub(p.since).Seconds() * p.fps)
	}
	p.since = now
	return &worldstats.WorldStats{TickCount: ticks}, nil
}

func TestCollector_RunKeepsWindowAcrossProviderErrors(t *testing.T) {
	publisher := snapshot.NewPublisher()
	c := NewCollector(publisher, WithInterval(100*time.Millisecond))
	provider := &steadyProvider{fps: 1000, failOn: 2}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Run(ctx, provider)
	}()

	require.Eventually(t, func() bool {
		_, err := publisher.Read()
		return err == nil
	}, 2*time.Second, 5*time.Millisecond)
	cancel()
	<-done

	// The first snapshot covers the failed interval too.
	s, err := publisher.Read()
	require.NoError(t, err)
	doc := &Document{}
	require.NoError(t, json.Unmarshal(s.Data, doc))
	assert.InDelta(t, 1000.0, doc.FPS.Data1m[0], 250)
}
