package artifact

import (
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/artpar/contentgate/core/schema"
	"github.com/artpar/contentgate/ports"
)

// DefaultDebounce coalesces bursts of file events into one reload.
const DefaultDebounce = 200 * time.Millisecond

// Holder owns the current artifact and swaps it atomically on reload.
// Readers never observe a partially built artifact.
type Holder struct {
	current atomic.Pointer[Artifact]

	dir      string
	deps     Deps
	logger   zerolog.Logger
	metrics  ports.SchemaMetrics
	debounce time.Duration

	// reloadMu serializes reloads.
	reloadMu sync.Mutex

	mu       sync.RWMutex
	onChange []func(*Artifact)

	watcher  *fsnotify.Watcher
	stopCh   chan struct{}
	stopOnce sync.Once
}

// Option configures a Holder.
type Option func(*Holder)

// WithMetrics records compile attempts.
func WithMetrics(m ports.SchemaMetrics) Option {
	return func(h *Holder) { h.metrics = m }
}

// WithDebounce sets the file event debounce window.
func WithDebounce(d time.Duration) Option {
	return func(h *Holder) { h.debounce = d }
}

// NewHolder creates a holder for the schema directory dir. Nothing is
// loaded until the first Reload, so listeners can register first.
func NewHolder(dir string, deps Deps, opts ...Option) *Holder {
	h := &Holder{
		dir:      dir,
		deps:     deps,
		logger:   deps.Logger.With().Str("component", "artifact").Logger(),
		debounce: DefaultDebounce,
		stopCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Get returns the current artifact, or nil before the first load.
func (h *Holder) Get() *Artifact {
	return h.current.Load()
}

// OnChange registers a callback run after each swap.
func (h *Holder) OnChange(fn func(*Artifact)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onChange = append(h.onChange, fn)
}

// Reload parses the schema directory and swaps in a new artifact. It
// reports whether a swap happened; an unchanged version is not rebuilt.
// On failure the current artifact stays in place.
func (h *Holder) Reload() (bool, error) {
	h.reloadMu.Lock()
	defer h.reloadMu.Unlock()

	set, err := schema.LoadDir(h.dir)
	if err != nil {
		return false, h.failed(err)
	}

	version, err := Version(set)
	if err != nil {
		return false, h.failed(err)
	}
	if cur := h.current.Load(); cur != nil && cur.Version == version {
		h.logger.Debug().Str("version", cur.Short()).Msg("schema unchanged")
		return false, nil
	}

	a, err := Build(set, h.deps)
	if err != nil {
		return false, h.failed(err)
	}

	old := h.current.Swap(a)
	if h.metrics != nil {
		h.metrics.SchemaCompiled(nil, a.Types)
	}

	evt := h.logger.Info().
		Str("version", a.Short()).
		Int("types", a.Types)
	if old != nil {
		evt = evt.Str("previous", old.Short())
	}
	evt.Msg("schema loaded")

	h.mu.RLock()
	listeners := append([]func(*Artifact){}, h.onChange...)
	h.mu.RUnlock()
	for _, fn := range listeners {
		fn(a)
	}
	return true, nil
}

func (h *Holder) failed(err error) error {
	if h.metrics != nil {
		h.metrics.SchemaCompiled(err, 0)
	}
	h.logger.Error().Err(err).Str("dir", h.dir).Msg("schema reload failed, keeping current schema")
	return fmt.Errorf("reload schema: %w", err)
}

// Watch reloads whenever a schema file under the directory changes.
func (h *Holder) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	// fsnotify is not recursive, so every subdirectory is added.
	err = filepath.WalkDir(h.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		watcher.Close()
		return fmt.Errorf("watch directory: %w", err)
	}
	h.watcher = watcher

	go h.watchLoop()

	h.logger.Info().Str("dir", h.dir).Msg("watching schema directory for changes")
	return nil
}

// WatchSignals reloads on SIGHUP.
func (h *Holder) WatchSignals() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP)

	go func() {
		for {
			select {
			case <-sigCh:
				h.logger.Info().Msg("received SIGHUP, reloading schema")
				h.Reload() //nolint:errcheck // failure is logged
			case <-h.stopCh:
				signal.Stop(sigCh)
				return
			}
		}
	}()
}

// Stop ends file watching and signal handling.
func (h *Holder) Stop() {
	h.stopOnce.Do(func() {
		close(h.stopCh)
		if h.watcher != nil {
			h.watcher.Close()
		}
	})
}

func (h *Holder) watchLoop() {
	var (
		timer *time.Timer
		fire  <-chan time.Time
	)

	for {
		select {
		case event, ok := <-h.watcher.Events:
			if !ok {
				return
			}

			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := h.watcher.Add(event.Name); err != nil {
						h.logger.Warn().Err(err).Str("dir", event.Name).Msg("cannot watch new directory")
					}
					continue
				}
			}
			if !isSchemaFile(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}

			h.logger.Debug().
				Str("event", event.Op.String()).
				Str("file", event.Name).
				Msg("schema file changed")

			if timer == nil {
				timer = time.NewTimer(h.debounce)
			} else {
				timer.Reset(h.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			h.Reload() //nolint:errcheck // failure is logged

		case err, ok := <-h.watcher.Errors:
			if !ok {
				return
			}
			h.logger.Error().Err(err).Msg("file watcher error")

		case <-h.stopCh:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

func isSchemaFile(name string) bool {
	return strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")
}
