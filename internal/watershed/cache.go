package watershed

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/singleflight"
)

// CacheObserver receives cache outcomes, typically a metrics sink. A nil
// observer is valid and ignored.
type CacheObserver interface {
	WatershedCacheHit()
	WatershedCacheMiss()
}

// CachedResolver memoizes a backend Resolver per canonical point key for
// the duration of a run. Concurrent requests for the same point are
// collapsed into a single backend call, so delineation happens at most
// once per point no matter how many culverts share a crossing.
//
// Successful results and DelineationFailedError results are both cached:
// a point the backend cannot delineate stays undelineatable for the run.
// Transient errors (context cancellation, backend I/O) are not cached.
type CachedResolver struct {
	backend  Resolver
	observer CacheObserver

	group singleflight.Group

	mu      sync.RWMutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	params Parameters
	err    error
}

func NewCachedResolver(backend Resolver, observer CacheObserver) *CachedResolver {
	return &CachedResolver{
		backend:  backend,
		observer: observer,
		entries:  make(map[string]cacheEntry),
	}
}

func (r *CachedResolver) ResolveWatershed(ctx context.Context, pt Point) (Parameters, error) {
	key := pt.Key()

	r.mu.RLock()
	entry, ok := r.entries[key]
	r.mu.RUnlock()
	if ok {
		r.hit()
		return entry.params, entry.err
	}

	v, err, _ := r.group.Do(key, func() (any, error) {
		// Recheck: another caller may have populated the entry between
		// the read above and acquiring the flight.
		r.mu.RLock()
		entry, ok := r.entries[key]
		r.mu.RUnlock()
		if ok {
			return entry, nil
		}

		r.miss()
		params, err := r.backend.ResolveWatershed(ctx, pt)

		var df *DelineationFailedError
		if err == nil || errors.As(err, &df) {
			e := cacheEntry{params: params, err: err}
			r.mu.Lock()
			r.entries[key] = e
			r.mu.Unlock()
			return e, nil
		}
		return cacheEntry{}, err
	})
	if err != nil {
		return Parameters{}, err
	}
	entry = v.(cacheEntry)
	return entry.params, entry.err
}

// Seed pre-populates the cache with an already-resolved result, used to
// resume a run from persisted state without re-delineating.
func (r *CachedResolver) Seed(pt Point, params Parameters) {
	r.mu.Lock()
	r.entries[pt.Key()] = cacheEntry{params: params}
	r.mu.Unlock()
}

// SeedKey is Seed for a stored canonical key.
func (r *CachedResolver) SeedKey(key string, params Parameters) {
	r.mu.Lock()
	r.entries[key] = cacheEntry{params: params}
	r.mu.Unlock()
}

// Snapshot returns the successfully resolved parameters keyed by
// canonical point key. Failed delineations are omitted.
func (r *CachedResolver) Snapshot() map[string]Parameters {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Parameters, len(r.entries))
	for k, e := range r.entries {
		if e.err == nil {
			out[k] = e.params
		}
	}
	return out
}

// Len reports the number of distinct points resolved so far.
func (r *CachedResolver) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func (r *CachedResolver) hit() {
	if r.observer != nil {
		r.observer.WatershedCacheHit()
	}
}

func (r *CachedResolver) miss() {
	if r.observer != nil {
		r.observer.WatershedCacheMiss()
	}
}
