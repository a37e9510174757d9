package usage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"finassist/internal/logging"
)

type userKey struct{}

// Tracker records provider token usage and persists it as JSON.
type Tracker struct {
	mu       sync.Mutex
	data     UsageData
	filePath string
	dirty    bool
}

// NewTracker creates a tracker persisting to path. Existing data is loaded;
// a corrupt file is logged and replaced on the next Save.
func NewTracker(path string) (*Tracker, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create usage dir: %w", err)
	}

	t := &Tracker{filePath: path, data: UsageData{Version: "1.0"}}
	t.data.Aggregate.init()

	if err := t.Load(); err != nil {
		logging.Get(logging.CategoryUsage).Warn("ignoring unreadable usage file %s: %v", path, err)
		t.data = UsageData{Version: "1.0"}
		t.data.Aggregate.init()
	}

	return t, nil
}

func (a *AggregatedStats) init() {
	if a.ByProvider == nil {
		a.ByProvider = make(map[string]TokenCounts)
	}
	if a.ByModel == nil {
		a.ByModel = make(map[string]TokenCounts)
	}
	if a.ByUser == nil {
		a.ByUser = make(map[string]TokenCounts)
	}
	if a.FailuresBy == nil {
		a.FailuresBy = make(map[string]int64)
	}
}

// Load reads the usage data from disk.
func (t *Tracker) Load() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	data, err := os.ReadFile(t.filePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, &t.data); err != nil {
		return err
	}
	t.data.Aggregate.init()
	return nil
}

// Save writes the usage data to disk if anything changed.
func (t *Tracker) Save() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.dirty {
		return nil
	}

	data, err := json.MarshalIndent(t.data, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(t.filePath, data, 0644); err != nil {
		return err
	}
	t.dirty = false
	return nil
}

// Track records one successful provider call. The user is read from ctx
// (see WithUser).
func (t *Tracker) Track(ctx context.Context, provider, model string, input, output int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.data.Aggregate.Total.Add(input, output)
	addToMap(t.data.Aggregate.ByProvider, provider, input, output)
	addToMap(t.data.Aggregate.ByModel, model, input, output)
	addToMap(t.data.Aggregate.ByUser, UserFromContext(ctx), input, output)
	t.data.UpdatedAt = time.Now()
	t.dirty = true
}

// TrackFailure counts a classified provider failure.
func (t *Tracker) TrackFailure(provider, kind string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.data.Aggregate.FailuresBy[provider+":"+kind]++
	t.data.UpdatedAt = time.Now()
	t.dirty = true
}

// Stats returns a copy of the aggregated stats.
func (t *Tracker) Stats() AggregatedStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	stats := t.data.Aggregate
	stats.ByProvider = copyTokenCountsMap(stats.ByProvider)
	stats.ByModel = copyTokenCountsMap(stats.ByModel)
	stats.ByUser = copyTokenCountsMap(stats.ByUser)
	failures := make(map[string]int64, len(stats.FailuresBy))
	for k, v := range stats.FailuresBy {
		failures[k] = v
	}
	stats.FailuresBy = failures
	return stats
}

func copyTokenCountsMap(src map[string]TokenCounts) map[string]TokenCounts {
	dst := make(map[string]TokenCounts, len(src))
	for key, counts := range src {
		dst[key] = counts
	}
	return dst
}

func addToMap(m map[string]TokenCounts, key string, input, output int) {
	entry := m[key]
	entry.Add(input, output)
	m[key] = entry
}

// WithUser tags ctx with the user a provider call is made for.
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey{}, userID)
}

// UserFromContext returns the user tagged by WithUser, or "unknown".
func UserFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(userKey{}).(string); ok && v != "" {
		return v
	}
	return "unknown"
}
