package model

import "time"

// Feed is one named sub-source of entries within a bundle.
type Feed struct {
	ID                      string            `json:"id"`
	DisplayName             string            `json:"displayName"`
	Headers                 map[string]string `json:"headers,omitempty"`
	IsEnabled               bool              `json:"isEnabled"`
	UserConfirmsRights      bool              `json:"userConfirmsRights"`
	DartIntelligenceEnabled bool              `json:"dartIntelligenceEnabled"`
	IsRiskScoreFeed         bool              `json:"isRiskScoreFeed"`
	IsHeatMapFeed           bool              `json:"isHeatMapFeed"`
	FeedFormat              string            `json:"feedFormat"`
	StaticAlerts            []Entry           `json:"staticAlerts"`
}

// Bundle is the versioned container delivered by a partition resource.
// Bundles are immutable once fetched.
type Bundle struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Author      string    `json:"author"`
	Version     string    `json:"version"`
	CreatedAt   time.Time `json:"createdAt"`
	Feeds       []Feed    `json:"feeds"`
}

// Flatten concatenates all feeds' entries in feed order into one list.
func (b Bundle) Flatten() []Entry {
	n := 0
	for _, f := range b.Feeds {
		n += len(f.StaticAlerts)
	}
	entries := make([]Entry, 0, n)
	for _, f := range b.Feeds {
		entries = append(entries, f.StaticAlerts...)
	}
	return entries
}

// SyntheticBundle wraps an already-flattened entry list in a single
// anonymous feed. Used when the server reports no change and the local
// cache supplies the data.
func SyntheticBundle(entries []Entry) Bundle {
	return Bundle{
		Name:      "Cached Camera Database",
		CreatedAt: time.Now().UTC(),
		Feeds: []Feed{{
			ID:           "cached",
			DisplayName:  "Cached Camera Database",
			IsEnabled:    true,
			StaticAlerts: entries,
		}},
	}
}
