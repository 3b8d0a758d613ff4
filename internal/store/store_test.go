package store_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/DukesR8/Camera-Database/internal/cache"
	"github.com/DukesR8/Camera-Database/internal/config"
	"github.com/DukesR8/Camera-Database/internal/fetch"
	"github.com/DukesR8/Camera-Database/internal/model"
	"github.com/DukesR8/Camera-Database/internal/region"
	"github.com/DukesR8/Camera-Database/internal/storage/kv"
	"github.com/DukesR8/Camera-Database/internal/store"
)

var (
	edmonton = model.Coordinate{Latitude: 53.55, Longitude: -113.49}
	calgary  = model.Coordinate{Latitude: 51.05, Longitude: -114.07}
	miami    = model.Coordinate{Latitude: 25.0, Longitude: -80.2}
)

// fakeFetcher serves canned bundles per region and counts calls. A
// region present in blocked is held until its channel is closed.
type fakeFetcher struct {
	mu      sync.Mutex
	calls   map[region.ID]int
	fail    error
	blocked map[region.ID]chan struct{}
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		calls:   make(map[region.ID]int),
		blocked: make(map[region.ID]chan struct{}),
	}
}

func (f *fakeFetcher) Fetch(ctx context.Context, id region.ID) (model.Bundle, error) {
	f.mu.Lock()
	f.calls[id]++
	failErr := f.fail
	gate := f.blocked[id]
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if failErr != nil {
		return model.Bundle{}, failErr
	}
	return model.Bundle{
		Feeds: []model.Feed{{
			ID: string(id),
			StaticAlerts: []model.Entry{
				{ID: string(id) + "-1", Latitude: 53.5, Longitude: -113.5, Type: model.TypeSpeed},
			},
		}},
	}, nil
}

func (f *fakeFetcher) count(id region.ID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[id]
}

func (f *fakeFetcher) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeFetcher) setFail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = err
}

func setupStore(t *testing.T) (*store.CameraStore, *fakeFetcher) {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	c := cache.New(kv.NewMemoryStore(), config.CacheConfig{
		KeyPrefix:       "camera_cache/",
		DataKey:         "camera_cache/cameras",
		TimestampKey:    "camera_cache/cameras_fetched_at",
		Expiry:          7 * 24 * time.Hour,
		SweepMaxBytes:   10 * 1024 * 1024,
		SweepMaxRegions: 5,
	}, logger)
	f := newFakeFetcher()
	return store.New(c, f, logger), f
}

func TestLoadNoLocationUsesOriginRegion(t *testing.T) {
	s, f := setupStore(t)

	s.Load(context.Background(), nil)

	snap := s.Snapshot()
	assert.Equal(t, region.DefaultRegion, snap.Region)
	assert.False(t, snap.Loading)
	assert.Empty(t, snap.ErrorMessage)
	require.Len(t, snap.Entries, 1)
	assert.Equal(t, 1, f.count(region.DefaultRegion))
}

func TestLoadIdempotentWithinExpiry(t *testing.T) {
	s, f := setupStore(t)

	s.Load(context.Background(), &edmonton)
	require.Equal(t, 1, f.total())

	// Same location, fresh cache: no second network fetch.
	s.Load(context.Background(), &edmonton)
	assert.Equal(t, 1, f.total())
	assert.Len(t, s.Snapshot().Entries, 1)
}

func TestLoadSameRegionDifferentLocationUsesCache(t *testing.T) {
	s, f := setupStore(t)

	s.Load(context.Background(), &edmonton)
	s.Load(context.Background(), &calgary) // still Alberta

	assert.Equal(t, 1, f.total())
	snap := s.Snapshot()
	require.NotNil(t, snap.LastLocation)
	assert.Equal(t, calgary, *snap.LastLocation)
}

func TestLoadRegionChangeInvalidatesAndFetches(t *testing.T) {
	s, f := setupStore(t)

	s.Load(context.Background(), &edmonton)
	s.Load(context.Background(), &miami)

	assert.Equal(t, 1, f.count("Alberta"))
	assert.Equal(t, 1, f.count("Florida"))
	snap := s.Snapshot()
	assert.Equal(t, region.ID("Florida"), snap.Region)
	assert.Equal(t, "Florida-1", snap.Entries[0].ID)
}

func TestLoadFailureKeepsPreviousDataset(t *testing.T) {
	s, f := setupStore(t)

	s.Load(context.Background(), &edmonton)
	previous := s.Snapshot().Entries

	f.setFail(fetch.ErrDownloadFailed)
	s.Load(context.Background(), &miami)

	snap := s.Snapshot()
	assert.False(t, snap.Loading)
	assert.NotEmpty(t, snap.ErrorMessage)
	assert.Equal(t, previous, snap.Entries, "previous dataset untouched on failure")
}

func TestLoadFailureMessageByKind(t *testing.T) {
	s, f := setupStore(t)

	f.setFail(fetch.ErrDecodeFailed)
	s.Load(context.Background(), &edmonton)
	assert.Contains(t, s.Snapshot().ErrorMessage, "malformed")

	f.setFail(fetch.ErrDownloadFailed)
	s.Load(context.Background(), &edmonton)
	assert.Contains(t, s.Snapshot().ErrorMessage, "connection")
}

func TestRefreshForcesFetch(t *testing.T) {
	s, f := setupStore(t)

	s.Load(context.Background(), &edmonton)
	require.Equal(t, 1, f.total())

	s.Refresh(context.Background())
	assert.Equal(t, 2, f.total())
}

func TestCheckLocationUpdateSeedsFirstLocation(t *testing.T) {
	s, f := setupStore(t)

	s.CheckLocationUpdate(context.Background(), edmonton)

	snap := s.Snapshot()
	require.NotNil(t, snap.LastLocation)
	assert.Equal(t, edmonton, *snap.LastLocation)
	assert.Equal(t, 0, f.total(), "first location triggers nothing")
}

func TestCheckLocationUpdateSameRegionOnlyRecords(t *testing.T) {
	s, f := setupStore(t)

	s.Load(context.Background(), &edmonton)
	s.CheckLocationUpdate(context.Background(), calgary)

	assert.Equal(t, 1, f.total())
	assert.Equal(t, calgary, *s.Snapshot().LastLocation)
}

func TestCheckLocationUpdateRegionChangeTriggersLoad(t *testing.T) {
	s, f := setupStore(t)

	s.Load(context.Background(), &edmonton)
	s.CheckLocationUpdate(context.Background(), miami)

	assert.Eventually(t, func() bool {
		return f.count("Florida") == 1 && s.Snapshot().Region == "Florida"
	}, 2*time.Second, 10*time.Millisecond)
}

// A border crossing during an in-flight fetch must not let the older
// fetch overwrite the newer one's dataset when it finally completes.
func TestStaleLoadCompletionIsDiscarded(t *testing.T) {
	s, f := setupStore(t)

	gate := make(chan struct{})
	f.mu.Lock()
	f.blocked["Alberta"] = gate
	f.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.Load(context.Background(), &edmonton)
		close(done)
	}()

	require.Eventually(t, func() bool { return f.count("Alberta") == 1 },
		2*time.Second, 10*time.Millisecond)

	// Newer load for Florida completes while Alberta is still in flight.
	s.Load(context.Background(), &miami)
	require.Equal(t, region.ID("Florida"), s.Snapshot().Region)

	close(gate)
	<-done

	snap := s.Snapshot()
	assert.Equal(t, region.ID("Florida"), snap.Region)
	assert.Equal(t, "Florida-1", snap.Entries[0].ID, "stale Alberta completion discarded")
}

// A discarded stale completion must not write the cache either; the
// cache has to end up holding the winning load's entries.
func TestStaleLoadCompletionSkipsCacheWrite(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	c := cache.New(kv.NewMemoryStore(), config.CacheConfig{
		KeyPrefix:       "camera_cache/",
		DataKey:         "camera_cache/cameras",
		TimestampKey:    "camera_cache/cameras_fetched_at",
		Expiry:          7 * 24 * time.Hour,
		SweepMaxBytes:   10 * 1024 * 1024,
		SweepMaxRegions: 5,
	}, logger)
	f := newFakeFetcher()
	s := store.New(c, f, logger)

	gate := make(chan struct{})
	f.mu.Lock()
	f.blocked["Alberta"] = gate
	f.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.Load(context.Background(), &edmonton)
		close(done)
	}()
	require.Eventually(t, func() bool { return f.count("Alberta") == 1 },
		2*time.Second, 10*time.Millisecond)

	s.Load(context.Background(), &miami)
	close(gate)
	<-done

	entries, _, ok := c.Read()
	require.True(t, ok)
	require.Len(t, entries, 1)
	assert.Equal(t, "Florida-1", entries[0].ID, "cache holds the winning load's entries")
}

func TestSubscribeReceivesPublishes(t *testing.T) {
	s, _ := setupStore(t)

	var mu sync.Mutex
	var seen []store.Snapshot
	s.Subscribe(func(snap store.Snapshot) {
		mu.Lock()
		seen = append(seen, snap)
		mu.Unlock()
	})

	s.Load(context.Background(), &edmonton)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, seen)
	first, last := seen[0], seen[len(seen)-1]
	assert.True(t, first.Loading)
	assert.False(t, last.Loading)
	assert.Len(t, last.Entries, 1)
}
