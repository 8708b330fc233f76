package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"tableflip.dev/stepper/pkg/bus"
	"tableflip.dev/stepper/pkg/store"
)

type fakeDaemon struct {
	steps    int64
	calls    []string
	failWith map[string]error
}

func (f *fakeDaemon) Invoke(ctx context.Context, command string, out any) error {
	f.calls = append(f.calls, command)
	if err := f.failWith[command]; err != nil {
		return err
	}
	var result any
	switch command {
	case bus.CommandGetCurrentSteps:
		result = f.steps
	case bus.CommandResetCounter:
		f.steps = 0
	case bus.CommandOpenDevtools:
		result = bus.DevtoolsResult{Window: "main", URL: "http://127.0.0.1:7419/debug/state"}
	}
	if out == nil || result == nil {
		return nil
	}
	raw, _ := json.Marshal(result)
	return json.Unmarshal(raw, out)
}

type memoryStore struct {
	days []store.DayTotal
}

func (m *memoryStore) Add(t time.Time, steps int64) (store.DayTotal, error) {
	return store.DayTotal{}, errors.New("read only")
}

func (m *memoryStore) Day(t time.Time) (store.DayTotal, error) {
	return store.DayTotal{}, nil
}

func (m *memoryStore) History(ctx context.Context) []store.DayTotal {
	return m.days
}

func (m *memoryStore) Watch(ctx context.Context) (<-chan store.Event, error) {
	return nil, errors.New("not supported")
}

func TestServiceCurrentStepsAndReset(t *testing.T) {
	ctx := context.Background()
	d := &fakeDaemon{steps: 1234}
	svc := NewService(d, nil)

	n, err := svc.CurrentSteps(ctx)
	if err != nil {
		t.Fatalf("CurrentSteps failed: %v", err)
	}
	if n != 1234 {
		t.Fatalf("expected 1234 steps, got %d", n)
	}

	if err := svc.Reset(ctx); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if n, _ := svc.CurrentSteps(ctx); n != 0 {
		t.Fatalf("expected 0 after reset, got %d", n)
	}
}

func TestServiceWindows(t *testing.T) {
	ctx := context.Background()
	d := &fakeDaemon{}
	svc := NewService(d, nil)

	if err := svc.ShowPet(ctx); err != nil {
		t.Fatalf("ShowPet failed: %v", err)
	}
	if err := svc.ShowMain(ctx); err != nil {
		t.Fatalf("ShowMain failed: %v", err)
	}
	res, err := svc.OpenDevtools(ctx)
	if err != nil {
		t.Fatalf("OpenDevtools failed: %v", err)
	}
	if res.Window != "main" {
		t.Fatalf("expected devtools on main, got %q", res.Window)
	}

	want := []string{bus.CommandSwitchToPetWindow, bus.CommandSwitchToMainWindow, bus.CommandOpenDevtools}
	if len(d.calls) != len(want) {
		t.Fatalf("expected calls %v, got %v", want, d.calls)
	}
	for i := range want {
		if d.calls[i] != want[i] {
			t.Fatalf("call %d: expected %s, got %s", i, want[i], d.calls[i])
		}
	}
}

func TestServiceWrapsCommandErrors(t *testing.T) {
	cause := &bus.CommandError{Command: bus.CommandSwitchToPetWindow, Status: 500, Message: "window not found"}
	svc := NewService(&fakeDaemon{failWith: map[string]error{bus.CommandSwitchToPetWindow: cause}}, nil)

	err := svc.ShowPet(context.Background())
	var cmdErr *bus.CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("expected a CommandError, got %v", err)
	}
}

func TestServiceHistoryLimit(t *testing.T) {
	m := &memoryStore{days: []store.DayTotal{
		{Day: "2025-10-17", Steps: 100},
		{Day: "2025-10-18", Steps: 200},
		{Day: "2025-10-19", Steps: 300},
	}}
	svc := NewService(&fakeDaemon{}, m)

	all, err := svc.History(context.Background(), 0)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if all.Count != 3 || all.Total != 600 {
		t.Fatalf("unexpected summary %+v", all)
	}

	recent, err := svc.History(context.Background(), 2)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if recent.Count != 2 || recent.Days[0].Day != "2025-10-18" || recent.Total != 500 {
		t.Fatalf("unexpected summary %+v", recent)
	}
}

func TestServiceHistoryWithoutStore(t *testing.T) {
	svc := NewService(&fakeDaemon{}, nil)
	if _, err := svc.History(context.Background(), 0); !errors.Is(err, ErrNoHistory) {
		t.Fatalf("expected ErrNoHistory, got %v", err)
	}
}

func TestRunnerRequiresDaemon(t *testing.T) {
	if err := (Runner{}).Do(context.Background()); err == nil {
		t.Fatal("expected an error without a commander")
	}
}

func TestRunnerServesHTTPUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	listening := make(chan net.Addr, 1)
	done := make(chan error, 1)
	r := Runner{
		Commander:       &fakeDaemon{},
		Transport:       TransportHTTP,
		HTTPListenAddr:  "127.0.0.1:0",
		OnHTTPListening: func(a net.Addr) { listening <- a },
	}
	go func() { done <- r.Do(ctx) }()

	select {
	case <-listening:
	case err := <-done:
		t.Fatalf("runner exited early: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("runner never listened")
	}
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("runner did not stop")
	}
}

func TestRunnerServesStdio(t *testing.T) {
	in := strings.NewReader(strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","capabilities":{},"clientInfo":{"name":"test","version":"1"}}}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"get_current_steps","arguments":{}}}`,
	}, "\n") + "\n")
	var out bytes.Buffer
	r := Runner{
		Commander: &fakeDaemon{steps: 321},
		Transport: TransportStdio,
		Stdin:     in,
		Stdout:    &out,
	}
	if err := r.Do(context.Background()); err != nil {
		t.Fatalf("stdio runner failed: %v", err)
	}
	if !strings.Contains(out.String(), `"id":2`) {
		t.Fatalf("missing tool reply:\n%s", out.String())
	}
	if !strings.Contains(out.String(), `321`) {
		t.Fatalf("expected the step count in the reply:\n%s", out.String())
	}
}

func TestRunnerRejectsHalfTLS(t *testing.T) {
	r := Runner{Commander: &fakeDaemon{}, HTTPListenAddr: "127.0.0.1:0", HTTPServerCert: "cert.pem"}
	if err := r.Do(context.Background()); err == nil {
		t.Fatal("expected an error with a cert but no key")
	}
}
