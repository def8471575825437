package model

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// ErrModelUnavailable is returned by Acquire when the artifact is missing
// or could not be loaded. It persists for the life of the process.
var ErrModelUnavailable = errors.New("model unavailable")

// Loader opens the classifier artifact at path.
type Loader func(path string) (Classifier, error)

// Registry owns the single classifier of the process. The first Acquire
// loads it; later calls reuse the result, including a failed load.
type Registry struct {
	path   string
	load   Loader
	logger *slog.Logger

	done    atomic.Bool
	mu      sync.Mutex
	handle  Classifier
	loadErr error
}

func NewRegistry(path string, load Loader, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{path: path, load: load, logger: logger}
}

// Acquire returns the shared classifier, loading it on first use.
func (r *Registry) Acquire() (Classifier, error) {
	if !r.done.Load() {
		r.mu.Lock()
		if !r.done.Load() {
			r.loadLocked()
			r.done.Store(true)
		}
		r.mu.Unlock()
	}

	if r.handle == nil {
		return nil, ErrModelUnavailable
	}
	return r.handle, nil
}

// Ready reports whether a classifier is loaded. It never triggers a load.
func (r *Registry) Ready() bool {
	return r.done.Load() && r.handle != nil
}

// Err returns the cause of a failed load, if any.
func (r *Registry) Err() error {
	if !r.done.Load() {
		return nil
	}
	return r.loadErr
}

// Close releases the classifier at process shutdown.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.handle != nil {
		r.handle.Close()
	}
}

func (r *Registry) loadLocked() {
	start := time.Now()
	r.logger.Info("loading model", "path", r.path)

	handle, err := r.load(r.path)
	if err != nil {
		r.loadErr = err
		r.logger.Error("model load failed", "path", r.path, "err", err)
		return
	}
	if handle == nil {
		r.loadErr = errors.New("loader returned no classifier")
		r.logger.Error("model load failed", "path", r.path, "err", r.loadErr)
		return
	}

	r.handle = handle
	r.logger.Info("model loaded", "path", r.path, "elapsed", time.Since(start))
}
