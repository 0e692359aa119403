package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"escrowScope/internal/metrics"
	"escrowScope/internal/model"
)

// DefaultTTL is the freshness window used when callers do not configure one.
const DefaultTTL = 5 * time.Minute

// EventCache is a keyed, TTL-checked store of event result sets.
// Writes and merges for all keys are serialized through one in-memory reference,
// so a scan and a live subscription on the same key never interleave half-applied updates.
type EventCache struct {
	store   Store
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	mu      sync.Mutex
	entries map[string]model.CacheEntry
}

func NewEventCache(store Store, logger *zap.Logger, m *metrics.Metrics) *EventCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventCache{
		store:   store,
		logger:  logger,
		metrics: m,
		now:     time.Now,
		entries: make(map[string]model.CacheEntry),
	}
}

// SetClock replaces the time source used for UpdatedAt and freshness checks.
func (c *EventCache) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// Read loads the entry for key. Unparseable persisted data is logged and treated as absent.
func (c *EventCache) Read(ctx context.Context, key string) (model.CacheEntry, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readLocked(ctx, key)
}

func (c *EventCache) readLocked(ctx context.Context, key string) (model.CacheEntry, bool, error) {
	raw, err := c.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.metrics.CacheRead("miss")
			delete(c.entries, key)
			return model.CacheEntry{}, false, nil
		}
		return model.CacheEntry{}, false, fmt.Errorf("cache get %s: %w", key, err)
	}

	entry, err := decodeEntry(raw)
	if err == nil && entry.Key != key {
		err = fmt.Errorf("entry key %q does not match", entry.Key)
	}
	if err != nil {
		c.metrics.CacheRead("corrupt")
		c.logger.Warn("discarding unreadable cache entry", zap.String("key", key), zap.Error(err))
		delete(c.entries, key)
		return model.CacheEntry{}, false, nil
	}

	c.metrics.CacheRead("hit")
	c.entries[key] = entry
	return cloneEntry(entry), true, nil
}

// Write replaces the entry for key wholesale and stamps it with the current time.
func (c *EventCache) Write(ctx context.Context, key string, records []model.EventRecord) (model.CacheEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := model.CacheEntry{
		Key:       key,
		UpdatedAt: c.now().UnixMilli(),
		Records:   dedupe(records, nil),
	}
	model.SortNewestFirst(entry.Records)

	if err := c.persistLocked(ctx, entry); err != nil {
		return model.CacheEntry{}, err
	}
	c.metrics.CacheWrite("write")
	return cloneEntry(entry), nil
}

// Merge folds records into the existing entry for key, deduplicating by subject and
// transaction hash and re-sorting newest first. A missing entry is created unstamped,
// so it never counts as fresh until a scan writes it.
func (c *EventCache) Merge(ctx context.Context, key string, records []model.EventRecord) (model.CacheEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	current, ok := c.entries[key]
	if !ok {
		loaded, found, err := c.readLocked(ctx, key)
		if err != nil {
			return model.CacheEntry{}, err
		}
		if found {
			current, ok = loaded, true
		}
	}

	entry := model.CacheEntry{
		Key:     key,
		Records: dedupe(current.Records, records),
	}
	if ok {
		entry.UpdatedAt = c.now().UnixMilli()
	}
	model.SortNewestFirst(entry.Records)

	if err := c.persistLocked(ctx, entry); err != nil {
		return model.CacheEntry{}, err
	}
	c.metrics.CacheWrite("merge")
	return cloneEntry(entry), nil
}

// Rebase replaces the entry for key with a scan result that covered blocks up to head.
// Records already in the entry above head arrived after the scan read the chain and
// are kept.
func (c *EventCache) Rebase(ctx context.Context, key string, records []model.EventRecord, head uint64) (model.CacheEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	current, ok := c.entries[key]
	if !ok {
		loaded, found, err := c.readLocked(ctx, key)
		if err != nil {
			return model.CacheEntry{}, err
		}
		if found {
			current = loaded
		}
	}

	newer := make([]model.EventRecord, 0)
	for _, record := range current.Records {
		if record.BlockNumber > head {
			newer = append(newer, record)
		}
	}

	entry := model.CacheEntry{
		Key:       key,
		UpdatedAt: c.now().UnixMilli(),
		Records:   dedupe(records, newer),
	}
	model.SortNewestFirst(entry.Records)

	if err := c.persistLocked(ctx, entry); err != nil {
		return model.CacheEntry{}, err
	}
	c.metrics.CacheWrite("rebase")
	return cloneEntry(entry), nil
}

// IsFresh reports whether the entry for key exists and is younger than ttl.
func (c *EventCache) IsFresh(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	entry, ok, err := c.Read(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	return c.Fresh(entry, ttl), nil
}

// Fresh reports whether an already loaded entry is younger than ttl.
func (c *EventCache) Fresh(entry model.CacheEntry, ttl time.Duration) bool {
	c.mu.Lock()
	now := c.now()
	c.mu.Unlock()
	age := now.Sub(time.UnixMilli(entry.UpdatedAt))
	return age < ttl
}

func (c *EventCache) persistLocked(ctx context.Context, entry model.CacheEntry) error {
	raw, err := encodeEntry(entry)
	if err != nil {
		return err
	}
	if err := c.store.Set(ctx, entry.Key, raw); err != nil {
		return fmt.Errorf("cache set %s: %w", entry.Key, err)
	}
	c.entries[entry.Key] = entry
	return nil
}

func encodeEntry(entry model.CacheEntry) (string, error) {
	data, err := json.Marshal(entry)
	if err != nil {
		return "", fmt.Errorf("marshal cache entry: %w", err)
	}
	return string(data), nil
}

func decodeEntry(raw string) (model.CacheEntry, error) {
	var entry model.CacheEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return model.CacheEntry{}, err
	}
	if entry.Records == nil {
		entry.Records = []model.EventRecord{}
	}
	return entry, nil
}

// dedupe concatenates the batches keeping the first occurrence of each subject+tx pair.
func dedupe(batches ...[]model.EventRecord) []model.EventRecord {
	size := 0
	for _, batch := range batches {
		size += len(batch)
	}
	out := make([]model.EventRecord, 0, size)
	seen := make(map[string]struct{}, size)
	for _, batch := range batches {
		for _, record := range batch {
			key := record.DedupKey()
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, record)
		}
	}
	return out
}

func cloneEntry(entry model.CacheEntry) model.CacheEntry {
	entry.Records = append([]model.EventRecord(nil), entry.Records...)
	return entry
}
