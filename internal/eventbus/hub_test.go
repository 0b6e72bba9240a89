package eventbus

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHub() *Hub {
	return NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestHub_DeliversInDispatchOrder(t *testing.T) {
	hub := newTestHub()
	ctx := context.Background()

	var got []string
	hub.RegisterListener("type", "source", func(_ context.Context, e Event) {
		got = append(got, e.Name)
	})

	for _, name := range []string{"first", "second", "third"} {
		require.NoError(t, hub.Dispatch(ctx, NewEvent(name, "type", "source", nil)))
	}
	hub.Drain(ctx)

	assert.Equal(t, []string{"first", "second", "third"}, got)
}

func TestHub_FollowUpEventsRunAfterCurrentListener(t *testing.T) {
	hub := newTestHub()
	ctx := context.Background()

	var trace []string
	hub.RegisterListener("type", "request", func(ctx context.Context, e Event) {
		trace = append(trace, "request:start")
		require.NoError(t, hub.Dispatch(ctx, NewEvent("follow", "type", "followup", nil)))
		trace = append(trace, "request:end")
	})
	hub.RegisterListener("type", "followup", func(_ context.Context, e Event) {
		trace = append(trace, "followup")
	})

	require.NoError(t, hub.Dispatch(ctx, NewEvent("req", "type", "request", nil)))
	hub.Drain(ctx)

	assert.Equal(t, []string{"request:start", "request:end", "followup"}, trace)
}

func TestHub_WildcardListeners(t *testing.T) {
	hub := newTestHub()
	ctx := context.Background()

	var exact, anySource, all int
	hub.RegisterListener("type", "source", func(context.Context, Event) { exact++ })
	hub.RegisterListener("type", Wildcard, func(context.Context, Event) { anySource++ })
	hub.RegisterListener(Wildcard, Wildcard, func(context.Context, Event) { all++ })

	require.NoError(t, hub.Dispatch(ctx, NewEvent("a", "type", "source", nil)))
	require.NoError(t, hub.Dispatch(ctx, NewEvent("b", "type", "other", nil)))
	require.NoError(t, hub.Dispatch(ctx, NewEvent("c", "other", "other", nil)))
	hub.Drain(ctx)

	assert.Equal(t, 1, exact)
	assert.Equal(t, 2, anySource)
	assert.Equal(t, 3, all)
}

func TestHub_ListenerPanicDoesNotStopLane(t *testing.T) {
	hub := newTestHub()
	ctx := context.Background()

	delivered := 0
	hub.RegisterListener("type", "source", func(_ context.Context, e Event) {
		if e.Name == "bad" {
			panic("boom")
		}
		delivered++
	})

	require.NoError(t, hub.Dispatch(ctx, NewEvent("bad", "type", "source", nil)))
	require.NoError(t, hub.Dispatch(ctx, NewEvent("good", "type", "source", nil)))
	hub.Drain(ctx)

	assert.Equal(t, 1, delivered)
}

func TestHub_DispatchWithResponse(t *testing.T) {
	hub := newTestHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub.RegisterListener("type", "request", func(ctx context.Context, e Event) {
		resp := NewEvent("response", "type", "response", map[string]any{"ok": true}).InResponseTo(&e)
		_ = hub.Dispatch(ctx, resp)
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = hub.Run(ctx)
	}()

	req := NewEvent("request", "type", "request", nil)
	resp, err := hub.DispatchWithResponse(ctx, req, time.Second)
	require.NoError(t, err)
	assert.Equal(t, req.ID, resp.ResponseID)
	assert.Equal(t, true, resp.Data["ok"])

	cancel()
	wg.Wait()
}

func TestHub_DispatchWithResponse_Timeout(t *testing.T) {
	hub := newTestHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = hub.Run(ctx)
	}()

	_, err := hub.DispatchWithResponse(ctx, NewEvent("request", "type", "unanswered", nil), 20*time.Millisecond)
	assert.ErrorIs(t, err, ErrResponseTimeout)

	cancel()
	wg.Wait()
}

func TestHub_DispatchAfterRunStops(t *testing.T) {
	hub := newTestHub()
	ctx, cancel := context.WithCancel(context.Background())

	delivered := make(chan string, 1)
	hub.RegisterListener("type", "source", func(_ context.Context, e Event) {
		delivered <- e.Name
	})

	require.NoError(t, hub.Dispatch(ctx, NewEvent("queued", "type", "source", nil)))
	cancel()
	err := hub.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	select {
	case name := <-delivered:
		assert.Equal(t, "queued", name, "queued events are drained on shutdown")
	default:
		t.Fatal("queued event was not delivered")
	}

	assert.ErrorIs(t, hub.Dispatch(context.Background(), NewEvent("late", "type", "source", nil)), ErrClosed)
}

func TestSharedStates(t *testing.T) {
	hub := newTestHub()
	ctx := context.Background()

	_, ok := hub.SharedState("ext")
	assert.False(t, ok)

	data := map[string]any{"consents": map[string]any{"collect": map[string]any{"val": "y"}}}
	trigger := NewEvent("trigger", "type", "source", nil)
	hub.CreateSharedState(ctx, "ext", data, &trigger)
	hub.CreateSharedState(ctx, "ext", map[string]any{"consents": map[string]any{}}, nil)

	assert.Equal(t, 2, hub.SharedStateVersions("ext"))

	latest, ok := hub.SharedState("ext")
	require.True(t, ok)
	assert.Equal(t, 2, latest.Version)
	assert.Empty(t, latest.EventID)

	data["consents"] = "mutated"
	latest.Data["consents"] = "mutated too"
	again, _ := hub.SharedState("ext")
	assert.Equal(t, map[string]any{}, again.Data["consents"])
}
