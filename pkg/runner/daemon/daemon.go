// Package daemon runs the step tracker and serves it over the bus.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"tableflip.dev/stepper/pkg/bus"
	"tableflip.dev/stepper/pkg/logging"
	"tableflip.dev/stepper/pkg/shell"
	"tableflip.dev/stepper/pkg/store"
	"tableflip.dev/stepper/pkg/tracker"
)

const shutdownTimeout = 5 * time.Second

// Daemon wires the tracker, the window shell and the history store to a bus
// server.
type Daemon struct {
	Config  *store.Config
	Locator tracker.Locator
	// History is optional; without it day totals are not recorded.
	History store.Persistence
	// Viper, when set, is watched for live changes to the pixels per step.
	Viper *viper.Viper

	Log  *slog.Logger
	Ring *logging.Ring

	// OnListening is called with the bound address once the server accepts
	// connections.
	OnListening func(net.Addr)
	// Now defaults to time.Now.
	Now func() time.Time
}

// State is served on /debug/state.
type State struct {
	Tracker     tracker.Snapshot     `json:"tracker"`
	Windows     []shell.WindowStatus `json:"windows"`
	Subscribers int                  `json:"subscribers"`
	Today       *store.DayTotal      `json:"today,omitempty"`
	Config      *store.Config        `json:"config"`
}

type runtime struct {
	// cfgMu guards cfg, which live reloads replace.
	cfgMu   sync.Mutex
	cfg     *store.Config
	tracker *tracker.Tracker
	shell   *shell.Shell
	bus     *bus.Server
	history store.Persistence
	log     *slog.Logger
	now     func() time.Time
	addr    string

	// flushMu orders history flushes against resets so an increase is
	// recorded exactly once.
	flushMu sync.Mutex
	flushed int64
}

// Do runs until ctx is cancelled or a quit_app command arrives.
func (d *Daemon) Do(ctx context.Context) error {
	if d.Config == nil {
		return errors.New("daemon: config is required")
	}
	if err := d.Config.Validate(); err != nil {
		return fmt.Errorf("daemon: %w", err)
	}
	if d.Locator == nil {
		return errors.New("daemon: pointer locator is required")
	}
	log := d.Log
	if log == nil {
		log = logging.Discard()
	}
	now := d.Now
	if now == nil {
		now = time.Now
	}

	windows := []shell.Window{shell.Main}
	if d.Config.PetWindow {
		windows = append(windows, shell.Pet)
	}

	ln, err := net.Listen("tcp", d.Config.Addr)
	if err != nil {
		return fmt.Errorf("daemon: listen: %w", err)
	}

	rt := &runtime{
		cfg: d.Config,
		tracker: tracker.New(
			tracker.WithPixelsPerStep(d.Config.PixelsPerStep),
			tracker.WithLogger(log.With("component", "tracker")),
		),
		shell:   shell.New(log.With("component", "shell"), windows...),
		bus:     bus.NewServer(log.With("component", "bus")),
		history: d.History,
		log:     log,
		now:     now,
		addr:    ln.Addr().String(),
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	rt.register(cancel)
	rt.shell.OnChange(func(w shell.Window) {
		if err := rt.bus.Emit(bus.EventWindowChanged, bus.WindowPayload{Window: string(w)}); err != nil {
			log.Warn("emit window change", "err", err)
		}
	})
	_ = rt.bus.Emit(bus.EventWindowChanged, bus.WindowPayload{Window: string(rt.shell.Visible())})
	_ = rt.bus.Emit(bus.EventStepUpdate, rt.tracker.Steps())

	if d.Viper != nil {
		d.Viper.OnConfigChange(func(e fsnotify.Event) {
			rt.reload(d.Viper, e.Name)
		})
		d.Viper.WatchConfig()
	}

	mux := http.NewServeMux()
	mux.Handle(bus.EventsPath, rt.bus)
	mux.Handle(bus.InvokePath, rt.bus)
	mux.HandleFunc("GET /debug/state", rt.serveState)
	mux.HandleFunc("GET /debug/logs", func(w http.ResponseWriter, r *http.Request) {
		records := []logging.Record{}
		if d.Ring != nil {
			records = d.Ring.Records()
		}
		writeJSON(w, records)
	})
	httpSrv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := rt.tracker.Run(ctx, d.Locator, d.Config.PollInterval, d.Config.RetryInterval); err != nil {
			errs <- fmt.Errorf("daemon: tracker: %w", err)
			cancel()
		}
	}()
	go func() {
		defer wg.Done()
		rt.emitLoop(ctx, d.Config.EmitInterval)
	}()
	go func() {
		<-ctx.Done()
		rt.bus.Close()
		shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
		defer stop()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	log.Info("daemon listening", "addr", rt.addr, "windows", len(windows), "pixels_per_step", d.Config.PixelsPerStep)
	if d.OnListening != nil {
		d.OnListening(ln.Addr())
	}

	err = httpSrv.Serve(ln)
	cancel()
	wg.Wait()
	rt.flush()
	log.Info("daemon stopped")

	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	select {
	case err := <-errs:
		return err
	default:
		return nil
	}
}

func (rt *runtime) register(quit context.CancelFunc) {
	rt.bus.Handle(bus.CommandResetCounter, func(context.Context, json.RawMessage) (any, error) {
		rt.reset()
		return nil, nil
	})
	rt.bus.Handle(bus.CommandGetCurrentSteps, func(context.Context, json.RawMessage) (any, error) {
		return rt.tracker.Steps(), nil
	})
	rt.bus.Handle(bus.CommandSwitchToPetWindow, func(context.Context, json.RawMessage) (any, error) {
		return nil, rt.shell.SwitchTo(shell.Pet)
	})
	rt.bus.Handle(bus.CommandSwitchToMainWindow, func(context.Context, json.RawMessage) (any, error) {
		return nil, rt.shell.SwitchTo(shell.Main)
	})
	rt.bus.Handle(bus.CommandOpenDevtools, func(context.Context, json.RawMessage) (any, error) {
		w, err := rt.shell.OpenDevtools()
		if err != nil {
			return nil, err
		}
		return bus.DevtoolsResult{Window: string(w), URL: "http://" + rt.addr + "/debug/state"}, nil
	})
	rt.bus.Handle(bus.CommandQuitApp, func(context.Context, json.RawMessage) (any, error) {
		rt.log.Info("quit requested")
		quit()
		return nil, nil
	})
}

func (rt *runtime) emitLoop(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rt.tick()
		}
	}
}

// tick flushes and publishes the count. Holding flushMu keeps a concurrent
// reset from being overtaken by a stale count.
func (rt *runtime) tick() {
	rt.flushMu.Lock()
	defer rt.flushMu.Unlock()
	rt.emitSteps(rt.flushLocked())
}

func (rt *runtime) emitSteps(steps int64) {
	if err := rt.bus.Emit(bus.EventStepUpdate, steps); err != nil {
		rt.log.Warn("emit step update", "err", err)
	}
}

// flush records the increase since the previous flush in today's total and
// returns the current count.
func (rt *runtime) flush() int64 {
	rt.flushMu.Lock()
	defer rt.flushMu.Unlock()
	return rt.flushLocked()
}

func (rt *runtime) flushLocked() int64 {
	steps := rt.tracker.Steps()
	delta := steps - rt.flushed
	rt.flushed = steps
	if delta <= 0 || rt.history == nil {
		return steps
	}
	if _, err := rt.history.Add(rt.now(), delta); err != nil {
		rt.log.Error("record history", "err", err, "steps", delta)
	}
	return steps
}

// reset zeroes the counter. Steps walked since the last emit are still
// added to today's total.
func (rt *runtime) reset() {
	rt.flushMu.Lock()
	defer rt.flushMu.Unlock()
	rt.flushLocked()
	rt.tracker.Reset()
	rt.flushed = 0
	rt.log.Info("counter reset")
	rt.emitSteps(0)
}

func (rt *runtime) reload(v *viper.Viper, file string) {
	cfg, err := store.ConfigFromViper(v)
	if err != nil {
		rt.log.Warn("ignoring invalid config change", "file", file, "err", err)
		return
	}
	if err := rt.tracker.SetPixelsPerStep(cfg.PixelsPerStep); err != nil {
		rt.log.Warn("ignoring pixels per step", "err", err)
		return
	}
	// Only the step length applies live; the rest needs a restart.
	rt.cfgMu.Lock()
	next := *rt.cfg
	next.PixelsPerStep = cfg.PixelsPerStep
	rt.cfg = &next
	rt.cfgMu.Unlock()
	rt.log.Info("config reloaded", "file", file, "pixels_per_step", cfg.PixelsPerStep)
}

func (rt *runtime) config() *store.Config {
	rt.cfgMu.Lock()
	defer rt.cfgMu.Unlock()
	return rt.cfg
}

func (rt *runtime) serveState(w http.ResponseWriter, r *http.Request) {
	st := State{
		Tracker:     rt.tracker.Snapshot(),
		Windows:     rt.shell.Windows(),
		Subscribers: rt.bus.Subscribers(),
		Config:      rt.config(),
	}
	if rt.history != nil {
		if today, err := rt.history.Day(rt.now()); err == nil {
			st.Today = &today
		}
	}
	writeJSON(w, st)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
