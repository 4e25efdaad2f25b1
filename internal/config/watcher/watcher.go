// Package watcher reloads the alarm configuration when its file changes.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jonboulle/clockwork"

	"github.com/oshokin/alarm-clock/internal/config"
	"github.com/oshokin/alarm-clock/internal/domain/alarm"
	"github.com/oshokin/alarm-clock/internal/logger"
)

// DefaultDebounce collapses bursts of writes (truncate then write) into one reload.
const DefaultDebounce = 500 * time.Millisecond

// errPathRequired is returned when no configuration path is given.
var errPathRequired = errors.New("configuration path must be provided")

// Result is the outcome of one reload: a fresh snapshot or the reason it failed.
type Result struct {
	// Config is the reloaded snapshot; nil when Err is set.
	Config *alarm.Config
	// Err describes why the reload failed.
	Err error
}

// Loader parses the configuration file at path.
type Loader func(path string) (*alarm.Config, error)

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce overrides the debounce window.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithClock sets the clock driving the debounce timer.
func WithClock(clock clockwork.Clock) Option {
	return func(w *Watcher) {
		if clock != nil {
			w.clock = clock
		}
	}
}

// WithLoader replaces config.Load, mostly for tests.
func WithLoader(load Loader) Option {
	return func(w *Watcher) {
		if load != nil {
			w.load = load
		}
	}
}

// Watcher observes a configuration file and delivers reload results
// without ever blocking the consumer.
type Watcher struct {
	// path is the absolute path of the watched file.
	path string
	// fs is the underlying filesystem subscription on the parent directory.
	fs *fsnotify.Watcher
	// clock drives the debounce timer.
	clock clockwork.Clock
	// debounce is the quiet period required before a reload.
	debounce time.Duration
	// load parses the file after a change.
	load Loader
	// results holds at most one undelivered result; newer results replace it.
	results chan Result
	// stop is closed by Close.
	stop chan struct{}
	// closeOnce guards the teardown.
	closeOnce sync.Once
	// closeErr is the error returned by the first Close.
	closeErr error
	// done is closed when the event loop exits.
	done chan struct{}
}

// Start subscribes to changes of path and returns a running watcher.
// The parent directory is watched so editors that replace the file by
// rename keep being observed.
func Start(ctx context.Context, path string, opts ...Option) (*Watcher, error) {
	if path == "" {
		return nil, errPathRequired
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}

	if err = fs.Add(filepath.Dir(absPath)); err != nil {
		_ = fs.Close()

		return nil, fmt.Errorf("watch config directory %s: %w", filepath.Dir(absPath), err)
	}

	w := &Watcher{
		path:     absPath,
		fs:       fs,
		clock:    clockwork.NewRealClock(),
		debounce: DefaultDebounce,
		load:     config.Load,
		results:  make(chan Result, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(w)
	}

	ctx = logger.WithName(ctx, "config-watcher")
	logger.InfoKV(ctx, "Watching configuration", "path", w.path, "debounce", w.debounce.String())

	go w.run(ctx)

	return w, nil
}

// Results returns the channel on which reload results are delivered.
func (w *Watcher) Results() <-chan Result {
	return w.results
}

// Poll returns the pending reload result, if any, without blocking.
func (w *Watcher) Poll() (Result, bool) {
	select {
	case result := <-w.results:
		return result, true
	default:
		return Result{}, false
	}
}

// Close unsubscribes from filesystem events. It is safe to call more than once.
func (w *Watcher) Close() error {
	w.closeOnce.Do(func() {
		close(w.stop)
		w.closeErr = w.fs.Close()
		<-w.done
	})

	return w.closeErr
}

// run consumes filesystem events and fires a reload once the debounce window passes quietly.
func (w *Watcher) run(ctx context.Context) {
	defer close(w.done)

	var (
		configFile = filepath.Base(w.path)
		timer      clockwork.Timer
		fire       <-chan time.Time
	)

	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}

			if filepath.Base(event.Name) != configFile {
				continue
			}

			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				if event.Has(fsnotify.Remove) {
					logger.WarnKV(ctx, "Configuration file removed", "path", event.Name)
				}

				continue
			}

			logger.DebugKV(ctx, "Configuration change detected", "path", event.Name, "op", event.Op.String())

			if timer == nil {
				timer = w.clock.NewTimer(w.debounce)
			} else {
				timer.Stop()
				timer.Reset(w.debounce)
			}

			fire = timer.Chan()
		case <-fire:
			fire = nil

			w.publish(ctx, w.reload(ctx))
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}

			logger.ErrorKV(ctx, "Configuration watcher error", "error", err)
		}
	}
}

// reload parses the file and wraps the outcome.
func (w *Watcher) reload(ctx context.Context) Result {
	cfg, err := w.load(w.path)
	if err != nil {
		logger.ErrorKV(ctx, "Configuration reload failed", "path", w.path, "error", err)

		return Result{Err: fmt.Errorf("reload configuration: %w", err)}
	}

	logger.InfoKV(ctx, "Configuration reloaded", "path", w.path, "alarms", len(cfg.Alarms))

	return Result{Config: cfg}
}

// publish stores result, replacing any result the consumer has not taken yet.
func (w *Watcher) publish(ctx context.Context, result Result) {
	for {
		select {
		case w.results <- result:
			return
		default:
		}

		select {
		case stale := <-w.results:
			logger.DebugKV(ctx, "Dropping undelivered reload result", "failed", stale.Err != nil)
		default:
		}
	}
}
