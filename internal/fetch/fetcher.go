// Package fetch downloads one region's camera bundle with a fallback to
// the full database resource.
package fetch

import (
	"compress/gzip"
	"compress/zlib"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/andybalholm/brotli"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/DukesR8/Camera-Database/internal/metrics"
	"github.com/DukesR8/Camera-Database/internal/model"
	"github.com/DukesR8/Camera-Database/internal/region"
)

// fallbackResource is the full-database file fetched when a region has
// no dedicated partition file.
const fallbackResource = "Camera_Database_Bundle.json"

const (
	validatorTTL   = 24 * time.Hour
	validatorSweep = time.Hour
)

// CacheReader supplies locally cached entries when the server reports
// no change since the last fetch.
type CacheReader interface {
	Read() (entries []model.Entry, fetchedAt time.Time, ok bool)
}

// validators holds the conditional-request headers remembered for one
// resource URL.
type validators struct {
	ETag         string
	LastModified string
}

// Fetcher downloads camera bundles. It never retries; a failed fetch
// surfaces to the caller, which owns retry policy.
type Fetcher struct {
	client     *http.Client
	baseURL    string
	cache      CacheReader
	validators *gocache.Cache
	logger     *zap.Logger
}

// New creates a Fetcher. client may be nil, in which case a default
// client with a 30s timeout is used.
func New(client *http.Client, baseURL string, cache CacheReader, logger *zap.Logger) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Fetcher{
		client:     client,
		baseURL:    baseURL,
		cache:      cache,
		validators: gocache.New(validatorTTL, validatorSweep),
		logger:     logger,
	}
}

// Fetch obtains the bundle for a region. A 404 on the partition
// resource falls back to the full database resource exactly once.
func (f *Fetcher) Fetch(ctx context.Context, id region.ID) (model.Bundle, error) {
	resource := fmt.Sprintf("%s/camera_database/Camera_Database_%s.json", f.baseURL, id)
	t0 := time.Now()
	bundle, err := f.get(ctx, resource, true)
	metrics.FetchDurationMs.Observe(float64(time.Since(t0).Milliseconds()))
	return bundle, err
}

func (f *Fetcher) get(ctx context.Context, resource string, allowFallback bool) (model.Bundle, error) {
	if _, err := url.ParseRequestURI(resource); err != nil {
		return model.Bundle{}, fmt.Errorf("%w: %s", ErrInvalidResource, resource)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resource, nil)
	if err != nil {
		return model.Bundle{}, fmt.Errorf("%w: %v", ErrInvalidResource, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")
	if v, ok := f.validators.Get(resource); ok {
		val := v.(validators)
		if val.ETag != "" {
			req.Header.Set("If-None-Match", val.ETag)
		}
		if val.LastModified != "" {
			req.Header.Set("If-Modified-Since", val.LastModified)
		}
	}

	f.logger.Debug("Fetching camera bundle", zap.String("url", resource))
	resp, err := f.client.Do(req)
	if err != nil {
		metrics.FetchTotal.WithLabelValues("download_error").Inc()
		return model.Bundle{}, fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		bundle, err := decodeBundle(resp)
		if err != nil {
			metrics.FetchTotal.WithLabelValues("decode_error").Inc()
			return model.Bundle{}, err
		}
		f.validators.Set(resource, validators{
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
		}, gocache.DefaultExpiration)
		metrics.FetchTotal.WithLabelValues("ok").Inc()
		f.logger.Info("Camera bundle fetched",
			zap.String("url", resource), zap.Int("feeds", len(bundle.Feeds)))
		return bundle, nil

	case http.StatusNotModified:
		entries, _, ok := f.cache.Read()
		if !ok {
			metrics.FetchTotal.WithLabelValues("download_error").Inc()
			return model.Bundle{}, fmt.Errorf("%w: not modified but cache is empty", ErrDownloadFailed)
		}
		metrics.FetchTotal.WithLabelValues("not_modified").Inc()
		f.logger.Debug("Camera bundle not modified, serving cache", zap.String("url", resource))
		return model.SyntheticBundle(entries), nil

	case http.StatusNotFound:
		if !allowFallback {
			metrics.FetchTotal.WithLabelValues("download_error").Inc()
			return model.Bundle{}, fmt.Errorf("%w: full database resource missing", ErrDownloadFailed)
		}
		metrics.FetchTotal.WithLabelValues("fallback").Inc()
		f.logger.Info("Regional file missing, falling back to full database",
			zap.String("url", resource))
		return f.get(ctx, fmt.Sprintf("%s/camera_database/%s", f.baseURL, fallbackResource), false)

	default:
		metrics.FetchTotal.WithLabelValues("download_error").Inc()
		return model.Bundle{}, fmt.Errorf("%w: unexpected status %d", ErrDownloadFailed, resp.StatusCode)
	}
}

// decodeBundle decodes a bundle body, decompressing every encoding the
// request advertises. Setting Accept-Encoding by hand disables the
// transport's automatic decompression.
func decodeBundle(resp *http.Response) (model.Bundle, error) {
	var body io.Reader
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return model.Bundle{}, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
		}
		defer gz.Close()
		body = gz
	case "deflate":
		zr, err := zlib.NewReader(resp.Body)
		if err != nil {
			return model.Bundle{}, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
		}
		defer zr.Close()
		body = zr
	case "br":
		body = brotli.NewReader(resp.Body)
	default:
		body = resp.Body
	}

	var bundle model.Bundle
	if err := json.NewDecoder(body).Decode(&bundle); err != nil {
		return model.Bundle{}, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}
	return bundle, nil
}
