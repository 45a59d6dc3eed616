package adminserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"emperror.dev/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voluzi/ecsadmin/pkg/snapshot"
	"github.com/voluzi/ecsadmin/pkg/worldstats"
)

func TestNewClient(t *testing.T) {
	tests := []struct {
		address string
		want    string
	}{
		{address: "localhost:9090", want: "http://localhost:9090"},
		{address: "http://10.0.0.1:8080/", want: "http://10.0.0.1:8080"},
		{address: "https://admin.example.com", want: "https://admin.example.com"},
	}
	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			assert.Equal(t, tt.want, NewClient(tt.address).url)
		})
	}

	assert.Equal(t, "http://localhost:9090", NewLocalClient("localhost").url)
}

func TestClient_World(t *testing.T) {
	s, world := newTestServer(t, WithGzipMinSize("1B"))
	server := httptest.NewServer(s.Handler())
	defer server.Close()

	client := NewClient(server.URL)
	ctx := context.Background()

	require.NoError(t, client.Health(ctx))

	_, err := client.GetWorld(ctx)
	assert.True(t, errors.Is(err, snapshot.ErrNoSnapshot))

	publish(t, s, 10)

	raw, tick, err := client.GetWorldRaw(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), tick)
	snap, err := s.Publisher().Read()
	require.NoError(t, err)
	assert.Equal(t, snap.Data, raw)

	doc, err := client.GetWorld(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, doc.FPS.Current, 1e-9)
	require.Len(t, doc.Systems.OnUpdate, 1)
	assert.Equal(t, "Move", doc.Systems.OnUpdate[0].ID)

	require.NoError(t, client.SetFrameProfiling(ctx, false))
	require.NoError(t, client.SetSystemProfiling(ctx, true))
	require.NoError(t, client.EnableSystem(ctx, "Move", false))
	assert.True(t, errors.Is(client.EnableSystem(ctx, "Ghost", true), worldstats.ErrSystemNotFound))

	stats, err := world.Stats()
	require.NoError(t, err)
	assert.False(t, stats.FrameProfiling)
	assert.True(t, stats.SystemProfiling)
	assert.False(t, stats.Systems[0].Enabled)
}

func TestClient_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	ctx := context.Background()

	_, err := client.GetWorld(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 500: internal error")

	assert.Error(t, client.Health(ctx))
	assert.Error(t, client.SetFrameProfiling(ctx, true))
}

func TestClient_InvalidTickHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(SnapshotTickHeader, "soon")
		w.Write([]byte("{}"))
	}))
	defer server.Close()

	_, _, err := NewClient(server.URL).GetWorldRaw(context.Background())
	assert.Error(t, err)
}

func TestClient_NotFoundOnlyMapsForSystems(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	client := NewClient(server.URL)
	ctx := context.Background()

	err := client.SetFrameProfiling(ctx, true)
	require.Error(t, err)
	assert.False(t, errors.Is(err, worldstats.ErrSystemNotFound))
	assert.Contains(t, err.Error(), "HTTP 404")

	err = client.SetSystemProfiling(ctx, true)
	require.Error(t, err)
	assert.False(t, errors.Is(err, worldstats.ErrSystemNotFound))

	assert.True(t, errors.Is(client.EnableSystem(ctx, "Move", true), worldstats.ErrSystemNotFound))
}
