/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package keysem

import (
	"fmt"
	"sync"

	"github.com/acronis/go-keysem/log"
)

// Log fields used by Registry.
const (
	LogFieldKey         = "key"
	LogFieldPermits     = "permits"
	LogFieldSemaphoreID = "semaphore_id"
)

// Opts represents options for Registry.
type Opts struct {
	// Logger is used for debug tracing of registry operations.
	// If nil, nothing is logged.
	Logger log.FieldLogger

	// MetricsCollector is used to collect statistics about registry usage.
	// If nil, metrics are disabled.
	MetricsCollector MetricsCollector
}

// Registry maps keys to semaphores.
// Semaphores are created lazily on the first request for a key and live until they are removed explicitly.
// Registry is safe for concurrent use and must not be copied after the first use.
type Registry[K comparable] struct {
	mu         sync.RWMutex
	semaphores map[K]*Semaphore

	logger           log.FieldLogger
	metricsCollector MetricsCollector
}

// New creates a new empty Registry.
func New[K comparable]() *Registry[K] {
	return NewWithOpts[K](Opts{})
}

// NewWithOpts creates a new empty Registry with the provided options.
func NewWithOpts[K comparable](opts Opts) *Registry[K] {
	if opts.Logger == nil {
		opts.Logger = log.NewDisabledLogger()
	}
	if opts.MetricsCollector == nil {
		opts.MetricsCollector = disabledMetrics{}
	}
	return &Registry[K]{
		semaphores:       make(map[K]*Semaphore),
		logger:           opts.Logger,
		metricsCollector: opts.MetricsCollector,
	}
}

// GetOrCreate returns the semaphore for the key, creating one with the given number of permits if it is absent.
// Concurrent callers requesting the same absent key all receive the same semaphore.
// If the key is already present, permits is ignored and the semaphore keeps its original capacity.
func (r *Registry[K]) GetOrCreate(key K, permits uint) *Semaphore {
	r.logger.AtLevel(log.LevelDebug, func(logFunc log.LogFunc) {
		logFunc("semaphore requested", keyLogField(key), log.Uint64(LogFieldPermits, uint64(permits)))
	})

	r.mu.RLock()
	sem, ok := r.semaphores[key]
	r.mu.RUnlock()
	if ok {
		r.metricsCollector.IncHits()
		r.logIfCapacityDiffers(key, sem, permits)
		return sem
	}
	r.metricsCollector.IncMisses()
	return r.create(key, permits)
}

// GetExisting is intended for call sites that expect the key to be present already.
// It behaves exactly like GetOrCreate, so the first use of a key still creates its semaphore.
func (r *Registry[K]) GetExisting(key K, permits uint) *Semaphore {
	return r.GetOrCreate(key, permits)
}

// Get returns the semaphore for the key if it is present. It never creates a new one.
func (r *Registry[K]) Get(key K) (*Semaphore, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sem, ok := r.semaphores[key]
	return sem, ok
}

// RemoveIfExists removes the semaphore for the key and returns it.
// Removing an absent key is a no-op.
// Callers holding the removed semaphore can keep using it, but it is not handed out by the Registry anymore.
func (r *Registry[K]) RemoveIfExists(key K) (*Semaphore, bool) {
	r.mu.Lock()
	sem, ok := r.semaphores[key]
	if ok {
		delete(r.semaphores, key)
		r.metricsCollector.SetKeysAmount(len(r.semaphores))
	}
	r.mu.Unlock()

	if !ok {
		return nil, false
	}
	r.metricsCollector.IncRemovals()
	r.logger.AtLevel(log.LevelDebug, func(logFunc log.LogFunc) {
		logFunc("semaphore removed", keyLogField(key), log.String(LogFieldSemaphoreID, sem.ID()))
	})
	return sem, true
}

// Len returns the number of keys in the Registry.
func (r *Registry[K]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.semaphores)
}

// Keys returns a snapshot of the keys present in the Registry, in no particular order.
func (r *Registry[K]) Keys() []K {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]K, 0, len(r.semaphores))
	for key := range r.semaphores {
		keys = append(keys, key)
	}
	return keys
}

func (r *Registry[K]) create(key K, permits uint) *Semaphore {
	r.mu.Lock()
	// The key might have been inserted by a concurrent caller after the read lock was released.
	if sem, ok := r.semaphores[key]; ok {
		r.mu.Unlock()
		r.logIfCapacityDiffers(key, sem, permits)
		return sem
	}
	sem := newSemaphore(permits)
	r.semaphores[key] = sem
	r.metricsCollector.SetKeysAmount(len(r.semaphores))
	r.mu.Unlock()

	r.metricsCollector.IncCreations()
	r.logger.AtLevel(log.LevelDebug, func(logFunc log.LogFunc) {
		logFunc("semaphore created", keyLogField(key),
			log.Uint64(LogFieldPermits, uint64(permits)), log.String(LogFieldSemaphoreID, sem.ID()))
	})
	return sem
}

func (r *Registry[K]) logIfCapacityDiffers(key K, sem *Semaphore, permits uint) {
	if sem.Capacity() == permits {
		return
	}
	r.logger.AtLevel(log.LevelDebug, func(logFunc log.LogFunc) {
		logFunc("semaphore exists with different capacity, requested permits are ignored", keyLogField(key),
			log.Uint64(LogFieldPermits, uint64(permits)), log.Uint64("capacity", uint64(sem.Capacity())),
			log.String(LogFieldSemaphoreID, sem.ID()))
	})
}

func keyLogField[K comparable](key K) log.Field {
	switch v := any(key).(type) {
	case string:
		return log.String(LogFieldKey, v)
	case fmt.Stringer:
		return log.String(LogFieldKey, v.String())
	}
	return log.String(LogFieldKey, fmt.Sprint(key))
}
