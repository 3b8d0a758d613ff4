package cache_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/DukesR8/Camera-Database/internal/cache"
	"github.com/DukesR8/Camera-Database/internal/config"
	"github.com/DukesR8/Camera-Database/internal/model"
	"github.com/DukesR8/Camera-Database/internal/storage/kv"
)

func testConfig() config.CacheConfig {
	return config.CacheConfig{
		KeyPrefix:       "camera_cache/",
		DataKey:         "camera_cache/cameras",
		TimestampKey:    "camera_cache/cameras_fetched_at",
		Expiry:          7 * 24 * time.Hour,
		SweepMaxBytes:   10 * 1024 * 1024,
		SweepMaxRegions: 5,
	}
}

func setupCache(t *testing.T) (*cache.CameraCache, *kv.MemoryStore) {
	t.Helper()
	store := kv.NewMemoryStore()
	logger, _ := zap.NewDevelopment()
	return cache.New(store, testConfig(), logger), store
}

func sampleEntries() []model.Entry {
	ts := time.Date(2024, 4, 30, 8, 0, 0, 0, time.UTC)
	return []model.Entry{
		{ID: "ab-001", Latitude: 53.55, Longitude: -113.49, Type: model.TypeSpeed, Timestamp: ts},
		{ID: "ab-002", Latitude: 51.05, Longitude: -114.07, Type: model.TypeRedLight, Timestamp: ts},
	}
}

func TestReadMiss(t *testing.T) {
	c, _ := setupCache(t)
	_, _, ok := c.Read()
	assert.False(t, ok)
}

func TestWriteReadRoundTrip(t *testing.T) {
	c, _ := setupCache(t)
	entries := sampleEntries()

	require.NoError(t, c.Write(entries))
	got, fetchedAt, ok := c.Read()
	require.True(t, ok)
	assert.Equal(t, entries, got)
	assert.WithinDuration(t, time.Now(), fetchedAt, 5*time.Second)
}

func TestReadMalformedIsMiss(t *testing.T) {
	c, store := setupCache(t)
	require.NoError(t, store.SetData("camera_cache/cameras", []byte("{not json")))

	_, _, ok := c.Read()
	assert.False(t, ok)
}

func TestIsExpiredNoRecord(t *testing.T) {
	c, _ := setupCache(t)
	assert.True(t, c.IsExpired())
}

func TestExpiryBoundary(t *testing.T) {
	c, _ := setupCache(t)
	fetchedAt := time.Now().UTC()
	c.SetClock(func() time.Time { return fetchedAt })
	require.NoError(t, c.Write(sampleEntries()))

	c.SetClock(func() time.Time { return fetchedAt.Add(7*24*time.Hour - time.Second) })
	assert.False(t, c.IsExpired())

	c.SetClock(func() time.Time { return fetchedAt.Add(7*24*time.Hour + time.Second) })
	assert.True(t, c.IsExpired())
}

func TestInvalidate(t *testing.T) {
	c, store := setupCache(t)
	require.NoError(t, c.Write(sampleEntries()))
	require.NoError(t, c.Invalidate())

	_, _, ok := c.Read()
	assert.False(t, ok)
	assert.True(t, c.IsExpired())

	keys, err := store.AllKeys()
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestSweepRemovesExpiredHistoricalKeys(t *testing.T) {
	c, store := setupCache(t)

	// A legacy per-region record whose marker is well past the window.
	old := time.Now().Add(-30 * 24 * time.Hour).Format(time.RFC3339)
	require.NoError(t, store.SetData("camera_cache/Ontario", []byte(`{"entries":[]}`)))
	require.NoError(t, store.SetData("camera_cache/Ontario_fetched_at", []byte(old)))

	// The active record is fresh.
	require.NoError(t, c.Write(sampleEntries()))

	require.NoError(t, c.Sweep())

	_, ok, err := store.GetData("camera_cache/Ontario")
	require.NoError(t, err)
	assert.False(t, ok)
	_, _, stillThere := c.Read()
	assert.True(t, stillThere)
}

func TestSweepClearsNamespaceOverByteCeiling(t *testing.T) {
	store := kv.NewMemoryStore()
	logger, _ := zap.NewDevelopment()
	cfg := testConfig()
	cfg.SweepMaxBytes = 16
	c := cache.New(store, cfg, logger)

	require.NoError(t, c.Write(sampleEntries()))
	require.NoError(t, store.SetData("other/key", []byte("untouched")))

	require.NoError(t, c.Sweep())

	_, _, ok := c.Read()
	assert.False(t, ok)
	_, ok, err := store.GetData("other/key")
	require.NoError(t, err)
	assert.True(t, ok, "keys outside the namespace survive a clear")
}

func TestSweepClearsNamespaceOverRecordCeiling(t *testing.T) {
	store := kv.NewMemoryStore()
	logger, _ := zap.NewDevelopment()
	cfg := testConfig()
	cfg.SweepMaxRegions = 2
	c := cache.New(store, cfg, logger)

	fresh := time.Now().Format(time.RFC3339)
	for _, region := range []string{"Alberta", "Ontario", "Quebec"} {
		require.NoError(t, store.SetData("camera_cache/"+region, []byte("{}")))
		require.NoError(t, store.SetData("camera_cache/"+region+"_fetched_at", []byte(fresh)))
	}

	require.NoError(t, c.Sweep())

	keys, err := store.AllKeys()
	require.NoError(t, err)
	assert.Empty(t, keys)
}
