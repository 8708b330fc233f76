package bus

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBus(t *testing.T) (*Server, *Client) {
	t.Helper()
	srv := NewServer(nil)
	ts := httptest.NewServer(srv)
	t.Cleanup(func() {
		srv.Close()
		ts.Close()
	})
	c, err := NewClient(ts.URL)
	require.NoError(t, err)
	return srv, c
}

func next(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		require.True(t, ok, "channel closed early")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event{}
}

func TestInvokeReturnsResult(t *testing.T) {
	srv, c := newTestBus(t)
	srv.Handle(CommandGetCurrentSteps, func(context.Context, json.RawMessage) (any, error) {
		return 42, nil
	})

	var steps int64
	require.NoError(t, c.Invoke(context.Background(), CommandGetCurrentSteps, &steps))
	assert.Equal(t, int64(42), steps)
}

func TestInvokeNilResult(t *testing.T) {
	srv, c := newTestBus(t)
	called := false
	srv.Handle(CommandResetCounter, func(context.Context, json.RawMessage) (any, error) {
		called = true
		return nil, nil
	})
	require.NoError(t, c.Invoke(context.Background(), CommandResetCounter, nil))
	assert.True(t, called)
}

func TestInvokeHandlerError(t *testing.T) {
	srv, c := newTestBus(t)
	srv.Handle(CommandSwitchToPetWindow, func(context.Context, json.RawMessage) (any, error) {
		return nil, errors.New(`window "pet" not found`)
	})

	err := c.Invoke(context.Background(), CommandSwitchToPetWindow, nil)
	var cmdErr *CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, CommandSwitchToPetWindow, cmdErr.Command)
	assert.Equal(t, `window "pet" not found`, cmdErr.Message)
	assert.False(t, errors.Is(err, ErrUnknownCommand))
}

func TestInvokeUnknownCommand(t *testing.T) {
	_, c := newTestBus(t)
	err := c.Invoke(context.Background(), "nope", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownCommand)
}

func TestInvokeUnreachable(t *testing.T) {
	c, err := NewClient("127.0.0.1:1")
	require.NoError(t, err)
	err = c.Invoke(context.Background(), CommandResetCounter, nil)
	require.Error(t, err)
	var cmdErr *CommandError
	assert.False(t, errors.As(err, &cmdErr), "transport failures are not command errors")
}

func TestListenDeliversBurstInOrder(t *testing.T) {
	srv, c := newTestBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := c.Listen(ctx, EventStepUpdate)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return srv.Subscribers() == 1 }, 2*time.Second, 5*time.Millisecond)

	for _, v := range []int64{10, 20, 30} {
		require.NoError(t, srv.Emit(EventStepUpdate, v))
	}
	for _, want := range []int64{10, 20, 30} {
		ev := next(t, ch)
		assert.Equal(t, EventStepUpdate, ev.Name)
		got, err := DecodeCount(ev.Payload)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestListenFiltersEvents(t *testing.T) {
	srv, c := newTestBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := c.Listen(ctx, EventWindowChanged)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return srv.Subscribers() == 1 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, srv.Emit(EventStepUpdate, 1))
	require.NoError(t, srv.Emit(EventWindowChanged, WindowPayload{Window: "pet"}))

	ev := next(t, ch)
	assert.Equal(t, EventWindowChanged, ev.Name)
	w, err := DecodeWindow(ev.Payload)
	require.NoError(t, err)
	assert.Equal(t, "pet", w)
}

func TestLateSubscriberGetsLatest(t *testing.T) {
	srv, c := newTestBus(t)
	require.NoError(t, srv.Emit(EventStepUpdate, 5))
	require.NoError(t, srv.Emit(EventStepUpdate, 6))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := c.Listen(ctx)
	require.NoError(t, err)

	got, err := DecodeCount(next(t, ch).Payload)
	require.NoError(t, err)
	assert.Equal(t, int64(6), got)
}

func TestListenClosesOnCancel(t *testing.T) {
	srv, c := newTestBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	ch, err := c.Listen(ctx)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return srv.Subscribers() == 1 }, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
	require.Eventually(t, func() bool { return srv.Subscribers() == 0 }, 2*time.Second, 5*time.Millisecond,
		"server must release the subscription")
}

func TestListenClosesWhenServerCloses(t *testing.T) {
	srv, c := newTestBus(t)
	ch, err := c.Listen(context.Background())
	require.NoError(t, err)
	require.Eventually(t, func() bool { return srv.Subscribers() == 1 }, 2*time.Second, 5*time.Millisecond)

	srv.Close()
	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after server close")
	}
}

func TestDecodeCount(t *testing.T) {
	n, err := DecodeCount(json.RawMessage(`17`))
	require.NoError(t, err)
	assert.Equal(t, int64(17), n)

	for _, bad := range []string{`-1`, `"x"`, `1.5`, `{}`} {
		_, err := DecodeCount(json.RawMessage(bad))
		assert.ErrorIs(t, err, ErrBadPayload, bad)
	}
}

func TestNewClientRejectsScheme(t *testing.T) {
	_, err := NewClient("ftp://example.com")
	assert.Error(t, err)
}

func TestFetchDecodesJSON(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/debug/state" {
			http.NotFound(w, r)
			return
		}
		assert.NotEmpty(t, r.Header.Get(RequestIDHeader))
		_, _ = w.Write([]byte(`{"subscribers":2}`))
	}))
	defer ts.Close()
	c, err := NewClient(ts.URL)
	require.NoError(t, err)

	var out struct {
		Subscribers int `json:"subscribers"`
	}
	require.NoError(t, c.Fetch(context.Background(), "/debug/state", &out))
	assert.Equal(t, 2, out.Subscribers)

	assert.Error(t, c.Fetch(context.Background(), "debug/missing", &out))
}
