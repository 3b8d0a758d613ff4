// Package store owns the session context: the active camera dataset,
// the region it was fetched for, and the load/refresh orchestration.
package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/DukesR8/Camera-Database/internal/fetch"
	"github.com/DukesR8/Camera-Database/internal/metrics"
	"github.com/DukesR8/Camera-Database/internal/model"
	"github.com/DukesR8/Camera-Database/internal/region"
)

// Cache is the local cache collaborator.
type Cache interface {
	Read() (entries []model.Entry, fetchedAt time.Time, ok bool)
	Write(entries []model.Entry) error
	IsExpired() bool
	Invalidate() error
	Sweep() error
}

// Fetcher obtains one region's bundle over the network.
type Fetcher interface {
	Fetch(ctx context.Context, id region.ID) (model.Bundle, error)
}

// Snapshot is a value copy of the session context. Readers always see
// a complete state; the entry slice is replaced in one assignment and
// never mutated in place.
type Snapshot struct {
	Entries      []model.Entry
	Region       region.ID
	LastLocation *model.Coordinate
	Loading      bool
	ErrorMessage string
	FetchedAt    time.Time
}

// CameraStore serializes all session mutations behind one mutex.
// Load never returns an error: failures land in the snapshot's
// ErrorMessage and the previous dataset stays in place.
type CameraStore struct {
	mu      sync.RWMutex
	cache   Cache
	fetcher Fetcher
	logger  *zap.Logger
	seq     uint64
	snap    Snapshot
	subs    []func(Snapshot)
}

// New creates a CameraStore.
func New(cache Cache, fetcher Fetcher, logger *zap.Logger) *CameraStore {
	return &CameraStore{
		cache:   cache,
		fetcher: fetcher,
		logger:  logger,
	}
}

// Snapshot returns the current session state.
func (s *CameraStore) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Subscribe registers a callback invoked, outside the lock, after each
// published change.
func (s *CameraStore) Subscribe(fn func(Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

func (s *CameraStore) notify(snap Snapshot) {
	s.mu.RLock()
	subs := make([]func(Snapshot), len(s.subs))
	copy(subs, s.subs)
	s.mu.RUnlock()
	for _, fn := range subs {
		fn(snap)
	}
}

// Load refreshes the active dataset for the given location (nil means
// no new location is known). Each load takes a sequence number; a
// completion observed after a newer load started does not install its
// result, so the last started load wins.
func (s *CameraStore) Load(ctx context.Context, loc *model.Coordinate) {
	s.mu.Lock()
	s.seq++
	mySeq := s.seq
	s.snap.Loading = true
	s.snap.ErrorMessage = ""

	established := s.snap.Region != ""
	regionChanged := false
	if loc != nil {
		resolved := region.Resolve(loc.Latitude, loc.Longitude)
		if established && resolved != s.snap.Region {
			s.logger.Info("Region boundary crossed",
				zap.String("from", string(s.snap.Region)), zap.String("to", string(resolved)))
			regionChanged = true
		}
		s.snap.Region = resolved
		c := *loc
		s.snap.LastLocation = &c
	} else if !established {
		// No location ever seen: fetch the origin-point region.
		s.snap.Region = region.Resolve(0, 0)
	}
	target := s.snap.Region
	snap := s.snap
	s.mu.Unlock()
	s.notify(snap)

	if err := s.cache.Sweep(); err != nil {
		s.logger.Warn("Cache sweep failed", zap.Error(err))
	}
	if regionChanged {
		// Stale out-of-region data must never linger.
		metrics.RegionChangesTotal.Inc()
		if err := s.cache.Invalidate(); err != nil {
			s.logger.Warn("Cache invalidation failed", zap.Error(err))
		}
	}

	if established && !regionChanged && !s.cache.IsExpired() {
		if entries, fetchedAt, ok := s.cache.Read(); ok {
			metrics.LoadsTotal.WithLabelValues("cache").Inc()
			s.install(mySeq, entries, fetchedAt, false)
			return
		}
	}

	bundle, err := s.fetcher.Fetch(ctx, target)
	if err != nil {
		metrics.LoadsTotal.WithLabelValues("error").Inc()
		s.fail(mySeq, err)
		return
	}

	metrics.LoadsTotal.WithLabelValues("network").Inc()
	s.install(mySeq, bundle.Flatten(), time.Now().UTC(), true)
}

// Refresh forces a network fetch: invalidate the cache, then load with
// the last known location.
func (s *CameraStore) Refresh(ctx context.Context) {
	if err := s.cache.Invalidate(); err != nil {
		s.logger.Warn("Cache invalidation failed", zap.Error(err))
	}
	s.mu.RLock()
	loc := s.snap.LastLocation
	s.mu.RUnlock()
	s.Load(ctx, loc)
}

// CheckLocationUpdate is the lightweight region-boundary monitor. The
// first location only seeds the session; a later location in the same
// region just updates it; a region change triggers an asynchronous
// Load.
func (s *CameraStore) CheckLocationUpdate(ctx context.Context, loc model.Coordinate) {
	s.mu.Lock()
	if s.snap.LastLocation == nil {
		c := loc
		s.snap.LastLocation = &c
		snap := s.snap
		s.mu.Unlock()
		s.notify(snap)
		return
	}

	resolved := region.Resolve(loc.Latitude, loc.Longitude)
	if resolved == s.snap.Region {
		c := loc
		s.snap.LastLocation = &c
		snap := s.snap
		s.mu.Unlock()
		s.notify(snap)
		return
	}
	s.mu.Unlock()

	go s.Load(ctx, &loc)
}

// install publishes a successfully loaded dataset unless a newer load
// has started since. A stale completion installs nothing, including
// its cache write: the last started load wins. The cache write happens
// inside the same critical section as the sequence check, so it can
// never land after a newer load's.
func (s *CameraStore) install(mySeq uint64, entries []model.Entry, fetchedAt time.Time, writeCache bool) {
	s.mu.Lock()
	if s.seq != mySeq {
		s.mu.Unlock()
		s.logger.Debug("Discarding stale load completion", zap.Uint64("seq", mySeq))
		return
	}
	if writeCache {
		if err := s.cache.Write(entries); err != nil {
			s.logger.Warn("Cache write failed", zap.Error(err))
		}
	}
	s.snap.Entries = entries
	s.snap.FetchedAt = fetchedAt
	s.snap.Loading = false
	s.snap.ErrorMessage = ""
	snap := s.snap
	s.mu.Unlock()

	s.logger.Info("Camera dataset loaded",
		zap.String("region", string(snap.Region)), zap.Int("entries", len(entries)))
	s.notify(snap)
}

// fail records a load failure. The previous dataset stays untouched.
func (s *CameraStore) fail(mySeq uint64, err error) {
	s.mu.Lock()
	if s.seq != mySeq {
		s.mu.Unlock()
		return
	}
	s.snap.Loading = false
	s.snap.ErrorMessage = messageFor(err)
	snap := s.snap
	s.mu.Unlock()

	s.logger.Error("Camera dataset load failed", zap.Error(err))
	s.notify(snap)
}

// messageFor converts a failure kind into the human-readable message
// surfaced in the session.
func messageFor(err error) string {
	switch {
	case errors.Is(err, fetch.ErrDecodeFailed):
		return "Camera data was malformed. Please try again later."
	case errors.Is(err, fetch.ErrInvalidResource):
		return "Camera database location is misconfigured."
	case errors.Is(err, fetch.ErrDownloadFailed):
		return "Could not download camera data. Check your connection and try again."
	default:
		return "Could not load camera data. Please try again."
	}
}
