package preset

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tastycandy/rlmtrans/pkg/types"
)

// ErrBuiltinImmutable reports an attempt to remove one of the six built-in
// presets. Registry has no removal operation and LoadDir accepts a user
// file that overrides a built-in's name, so no Registry method returns it.
var ErrBuiltinImmutable = errors.New("preset: built-in presets cannot be removed")

// ErrNotFound is returned by Get for an unknown preset id.
var ErrNotFound = errors.New("preset: not found")

// Registry holds the built-in presets plus any loaded from a directory of
// one-file-per-preset YAML documents, keyed by filename stem. It is safe
// for concurrent use; reads take an RLock and directory reloads replace the
// map wholesale under a write lock, the same snapshot-then-swap pattern the
// config package's Watcher uses for whole-file reloads.
type Registry struct {
	mu   sync.RWMutex
	dir  string
	user map[types.Preset]Preset

	done     chan struct{}
	stopOnce sync.Once
}

// NewRegistry creates a Registry seeded with the six built-ins and no user
// presets loaded.
func NewRegistry() *Registry {
	return &Registry{user: make(map[types.Preset]Preset)}
}

// Get returns the preset for id, preferring a user-loaded override over the
// built-in of the same name.
func (r *Registry) Get(id types.Preset) (Preset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.user[id]; ok {
		return p, nil
	}
	if p, ok := builtins[id]; ok {
		return p, nil
	}
	return Preset{}, fmt.Errorf("%w: %q", ErrNotFound, id)
}

// List returns every known preset id: the six built-ins plus any distinct
// user-loaded ids, sorted with built-ins first in their fixed order.
func (r *Registry) List() []types.Preset {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := append([]types.Preset(nil), BuiltinIDs()...)
	seen := make(map[types.Preset]struct{}, len(out))
	for _, id := range out {
		seen[id] = struct{}{}
	}
	for id := range r.user {
		if _, ok := seen[id]; !ok {
			out = append(out, id)
			seen[id] = struct{}{}
		}
	}
	user := out[len(BuiltinIDs()):]
	sort.Slice(user, func(i, j int) bool { return user[i] < user[j] })
	return out
}

// LoadDir reads every *.yaml/*.yml file in dir as a Preset, keyed by
// filename stem, and replaces the current set of user-loaded presets. The
// six built-ins are never affected. Returns the first parse error
// encountered, wrapped with the offending file name; partial progress from
// earlier files in the directory is discarded on error.
func (r *Registry) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("preset: read dir %s: %w", dir, err)
	}

	loaded := make(map[types.Preset]Preset)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		p, err := loadFile(path)
		if err != nil {
			return fmt.Errorf("preset: %s: %w", path, err)
		}
		stem := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		if p.Name == "" {
			p.Name = stem
		}
		loaded[types.Preset(stem)] = p
	}

	r.mu.Lock()
	r.dir = dir
	r.user = loaded
	r.mu.Unlock()
	return nil
}

func loadFile(path string) (Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Preset{}, err
	}
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	var p Preset
	if err := dec.Decode(&p); err != nil {
		return Preset{}, fmt.Errorf("parse: %w", err)
	}
	return p, nil
}

// Watch starts a background poller that re-runs LoadDir against the
// directory passed to the most recent LoadDir call every interval, logging
// and keeping the previous set on error rather than propagating it. Mirrors
// the config package's Watcher: polling over fsnotify to keep dependencies
// minimal, snapshot-then-swap rather than in-place mutation.
func (r *Registry) Watch(interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	r.mu.Lock()
	if r.done != nil {
		r.mu.Unlock()
		return
	}
	r.done = make(chan struct{})
	done := r.done
	r.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				r.mu.RLock()
				dir := r.dir
				r.mu.RUnlock()
				if dir == "" {
					continue
				}
				if err := r.LoadDir(dir); err != nil {
					slog.Warn("preset registry: reload failed", "dir", dir, "err", err)
				}
			}
		}
	}()
}

// Stop halts a background Watch poller, if running.
func (r *Registry) Stop() {
	r.stopOnce.Do(func() {
		r.mu.RLock()
		done := r.done
		r.mu.RUnlock()
		if done != nil {
			close(done)
		}
	})
}
