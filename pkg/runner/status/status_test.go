package status

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"tableflip.dev/stepper/pkg/bus"
	"tableflip.dev/stepper/pkg/runner/daemon"
	"tableflip.dev/stepper/pkg/shell"
)

type fakeDaemon struct {
	steps     int64
	state     *daemon.State
	invokeErr error
}

func (f *fakeDaemon) Invoke(_ context.Context, command string, out any) error {
	if f.invokeErr != nil {
		return f.invokeErr
	}
	if command != bus.CommandGetCurrentSteps {
		return &bus.CommandError{Command: command, Status: 404, Message: "unknown"}
	}
	*(out.(*int64)) = f.steps
	return nil
}

func (f *fakeDaemon) Fetch(_ context.Context, _ string, out any) error {
	if f.state == nil {
		return errors.New("404 Not Found")
	}
	raw, _ := json.Marshal(f.state)
	return json.Unmarshal(raw, out)
}

func TestFetchDerivesStats(t *testing.T) {
	s := &Status{Daemon: &fakeDaemon{steps: 1450}, Addr: "127.0.0.1:7419"}
	r, err := s.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1450), r.Steps)
	assert.InDelta(t, 45.0, r.Progress, 0.001)
	assert.Equal(t, "145.0m", r.Distance)
	assert.InDelta(t, 3.9, r.Speed, 0.001)
	assert.Nil(t, r.State)
}

func TestDoJSON(t *testing.T) {
	var buf bytes.Buffer
	f := &fakeDaemon{steps: 12, state: &daemon.State{
		Windows:     []shell.WindowStatus{{Name: shell.Main, Visible: true}},
		Subscribers: 1,
	}}
	s := &Status{Daemon: f, Output: "json", Out: &buf}
	require.NoError(t, s.Do(context.Background()))

	var got Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, int64(12), got.Steps)
	require.NotNil(t, got.State)
	assert.Equal(t, 1, got.State.Subscribers)
}

func TestDoYAML(t *testing.T) {
	var buf bytes.Buffer
	s := &Status{Daemon: &fakeDaemon{steps: 7}, Output: "yaml", Out: &buf}
	require.NoError(t, s.Do(context.Background()))

	var got map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, 7, got["steps"])
}

func TestDoTable(t *testing.T) {
	var buf bytes.Buffer
	s := &Status{Daemon: &fakeDaemon{steps: 3}, Addr: "127.0.0.1:7419", Out: &buf}
	require.NoError(t, s.Do(context.Background()))
	assert.Contains(t, buf.String(), "127.0.0.1:7419")
	assert.Contains(t, buf.String(), "unavailable")
}

func TestDoErrors(t *testing.T) {
	s := &Status{Daemon: &fakeDaemon{invokeErr: errors.New("connection refused")}}
	assert.ErrorContains(t, s.Do(context.Background()), "connection refused")

	s = &Status{Daemon: &fakeDaemon{}, Output: "xml", Out: &bytes.Buffer{}}
	assert.ErrorContains(t, s.Do(context.Background()), "unknown output format")

	assert.Error(t, (&Status{}).Do(context.Background()))
}
