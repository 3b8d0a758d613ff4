// Package cache persists the last-fetched camera list with a time-based
// expiry on top of the local key-value store.
package cache

import (
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/DukesR8/Camera-Database/internal/config"
	"github.com/DukesR8/Camera-Database/internal/metrics"
	"github.com/DukesR8/Camera-Database/internal/model"
	"github.com/DukesR8/Camera-Database/internal/storage/kv"
)

// markerSuffix pairs a data key with its expiry marker key. Historical
// per-region records follow the same convention, which is what Sweep
// relies on to find their markers.
const markerSuffix = "_fetched_at"

// record is the persisted cache payload.
type record struct {
	Entries   []model.Entry `json:"entries"`
	FetchedAt time.Time     `json:"fetchedAt"`
}

// CameraCache reads and writes the active camera dataset in the local
// key-value store.
type CameraCache struct {
	store  kv.Store
	cfg    config.CacheConfig
	logger *zap.Logger
	now    func() time.Time
}

// New creates a CameraCache over the given store.
func New(store kv.Store, cfg config.CacheConfig, logger *zap.Logger) *CameraCache {
	return &CameraCache{
		store:  store,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// SetClock overrides the cache's clock. Tests use it to probe the
// expiry boundary.
func (c *CameraCache) SetClock(now func() time.Time) { c.now = now }

// Read returns the cached entries and their fetch time. Malformed
// stored bytes are treated as a miss, never as an error.
func (c *CameraCache) Read() ([]model.Entry, time.Time, bool) {
	raw, ok, err := c.store.GetData(c.cfg.DataKey)
	if err != nil {
		c.logger.Warn("Cache read failed", zap.Error(err))
		metrics.CacheMissesTotal.Inc()
		return nil, time.Time{}, false
	}
	if !ok {
		metrics.CacheMissesTotal.Inc()
		return nil, time.Time{}, false
	}

	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		c.logger.Warn("Cached camera data was malformed, treating as absent",
			zap.String("key", c.cfg.DataKey), zap.Error(err))
		metrics.CacheDecodeFailTotal.Inc()
		return nil, time.Time{}, false
	}

	metrics.CacheHitsTotal.Inc()
	return rec.Entries, rec.FetchedAt, true
}

// Write stores entries with the current time as their fetch timestamp,
// overwriting the prior record.
func (c *CameraCache) Write(entries []model.Entry) error {
	fetchedAt := c.now().UTC()
	raw, err := json.Marshal(record{Entries: entries, FetchedAt: fetchedAt})
	if err != nil {
		return err
	}
	if err := c.store.SetData(c.cfg.DataKey, raw); err != nil {
		return err
	}
	if err := c.store.SetData(c.cfg.TimestampKey, []byte(fetchedAt.Format(time.RFC3339))); err != nil {
		return err
	}
	c.logger.Debug("Cache written", zap.Int("entries", len(entries)))
	return nil
}

// IsExpired reports whether the cached record is older than the expiry
// window. A missing or unreadable timestamp counts as expired.
func (c *CameraCache) IsExpired() bool {
	raw, ok, err := c.store.GetData(c.cfg.TimestampKey)
	if err != nil || !ok {
		return true
	}
	fetchedAt, err := time.Parse(time.RFC3339, string(raw))
	if err != nil {
		c.logger.Warn("Cache timestamp was malformed", zap.Error(err))
		return true
	}
	return c.now().Sub(fetchedAt) > c.cfg.Expiry
}

// Invalidate removes the data and timestamp records for the active key.
func (c *CameraCache) Invalidate() error {
	if err := c.store.Remove(c.cfg.DataKey); err != nil {
		return err
	}
	return c.store.Remove(c.cfg.TimestampKey)
}

// Sweep deletes expired records across the cache namespace and, when
// the namespace exceeds the byte or record ceilings, clears the whole
// namespace. Coarse on purpose: partial eviction risks leaving a
// truncated dataset behind, and the common path holds one region.
func (c *CameraCache) Sweep() error {
	keys, err := c.store.AllKeys()
	if err != nil {
		return err
	}

	now := c.now()
	records := 0
	for _, key := range keys {
		if !strings.HasPrefix(key, c.cfg.KeyPrefix) {
			continue
		}
		if !strings.HasSuffix(key, markerSuffix) {
			records++
			continue
		}
		raw, ok, err := c.store.GetData(key)
		if err != nil || !ok {
			continue
		}
		fetchedAt, err := time.Parse(time.RFC3339, string(raw))
		if err != nil || now.Sub(fetchedAt) > c.cfg.Expiry {
			dataKey := strings.TrimSuffix(key, markerSuffix)
			c.logger.Info("Sweeping expired cache record", zap.String("key", dataKey))
			_ = c.store.Remove(key)
			_ = c.store.Remove(dataKey)
		}
	}

	size, err := c.store.TotalSize(c.cfg.KeyPrefix)
	if err != nil {
		return err
	}
	if size > c.cfg.SweepMaxBytes || records > c.cfg.SweepMaxRegions {
		c.logger.Warn("Cache namespace over ceiling, clearing",
			zap.Int64("bytes", size), zap.Int("records", records))
		metrics.CacheSweepClearsTotal.Inc()
		return c.store.Clear(c.cfg.KeyPrefix)
	}
	return nil
}
