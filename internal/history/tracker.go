package history

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"escrowScope/internal/cache"
	"escrowScope/internal/indexer"
	"escrowScope/internal/live"
	"escrowScope/internal/model"
)

// ErrClosed is returned when a tracker is closed while a load is in flight.
// The loaded records are discarded and the cache is left untouched.
var ErrClosed = errors.New("tracker closed")

// Config controls how a Tracker loads history.
type Config struct {
	ChainID      uint64
	TTL          time.Duration
	Scan         indexer.Options
	MaxRetries   int
	RetryBackoff time.Duration
}

// Snapshot is the record set a tracker currently serves, newest first.
type Snapshot struct {
	Key       string              `json:"key"`
	Records   []model.EventRecord `json:"records"`
	UpdatedAt time.Time           `json:"updated_at"`
	// Stale is set when the records came from an expired cache entry because a rescan failed.
	Stale bool `json:"stale"`
	// Cached is set when no scan ran for this snapshot.
	Cached bool `json:"cached"`
}

// Tracker serves the event history of one query: cached records while fresh,
// a full rescan once they expire, and live updates merged in between.
type Tracker struct {
	scanner    *indexer.Scanner
	subscriber *live.Subscriber
	cache      *cache.EventCache
	query      indexer.Query
	cfg        Config
	key        string
	logger     *zap.Logger

	mu       sync.Mutex
	closed   bool
	watching bool
	sub      *live.Subscription
}

func NewTracker(scanner *indexer.Scanner, subscriber *live.Subscriber, events *cache.EventCache, q indexer.Query, cfg Config, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = cache.DefaultTTL
	}
	key := cache.Key(cfg.ChainID, q.Kind, indexer.SubjectStrings(q.Subjects))
	if q.AllSubjects {
		key = cache.Key(cfg.ChainID, q.Kind, []string{"*"})
	}
	return &Tracker{
		scanner:    scanner,
		subscriber: subscriber,
		cache:      events,
		query:      q,
		cfg:        cfg,
		key:        key,
		logger:     logger.With(zap.String("key", key)),
	}
}

// Key returns the cache key the tracker reads and writes.
func (t *Tracker) Key() string {
	return t.key
}

// Records returns the cached history when it is fresh, and rescans otherwise.
// If the rescan fails and an expired entry exists, that entry is returned
// together with the error so callers can keep showing it.
func (t *Tracker) Records(ctx context.Context) (Snapshot, error) {
	entry, ok, err := t.cache.Read(ctx, t.key)
	if err != nil {
		t.logger.Warn("cache read failed", zap.Error(err))
		ok = false
	}
	if ok && t.cache.Fresh(entry, t.cfg.TTL) {
		return snapshotOf(entry, false, true), nil
	}

	snapshot, err := t.Refresh(ctx)
	if err != nil {
		if ok && !errors.Is(err, ErrClosed) {
			return snapshotOf(entry, true, true), err
		}
		return Snapshot{}, err
	}
	return snapshot, nil
}

// Refresh runs a full rescan and replaces the cache entry, keeping live records
// newer than the scanned window.
func (t *Tracker) Refresh(ctx context.Context) (Snapshot, error) {
	if t.isClosed() {
		return Snapshot{}, ErrClosed
	}
	t.logger.Info("history scan", zap.String("kind", string(t.query.Kind)))

	var (
		records []model.EventRecord
		window  indexer.BlockRange
	)
	err := withRetry(ctx, t.logger, t.cfg.MaxRetries, t.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		records, window, err = t.scanner.Scan(ctx, t.query, t.cfg.Scan)
		return err
	})
	if err != nil {
		return Snapshot{}, fmt.Errorf("scan %s: %w", t.key, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		t.logger.Debug("discarding scan result of closed tracker", zap.Int("records", len(records)))
		return Snapshot{}, ErrClosed
	}
	// Live batches merged while the scan ran sit above its head and survive the rebase.
	entry, err := t.cache.Rebase(ctx, t.key, records, window.To)
	if err != nil {
		return Snapshot{}, err
	}
	return snapshotOf(entry, false, false), nil
}

// Watch subscribes to new matching events and merges each batch into the cache.
// onUpdate receives the delivered batch and the merged snapshot.
func (t *Tracker) Watch(ctx context.Context, onUpdate func(batch []model.EventRecord, merged Snapshot), onError func(error)) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}
	if t.watching {
		t.mu.Unlock()
		return fmt.Errorf("tracker %s is already watching", t.key)
	}
	t.watching = true
	t.mu.Unlock()

	sub, err := t.subscriber.Subscribe(ctx, t.query, func(records []model.EventRecord) {
		t.mu.Lock()
		if t.closed {
			t.mu.Unlock()
			return
		}
		entry, err := t.cache.Merge(ctx, t.key, records)
		t.mu.Unlock()
		if err != nil {
			t.logger.Warn("live merge failed", zap.Error(err))
			if onError != nil {
				onError(err)
			}
			return
		}
		if onUpdate != nil {
			onUpdate(records, snapshotOf(entry, false, false))
		}
	}, onError)
	if err != nil {
		t.mu.Lock()
		t.watching = false
		t.mu.Unlock()
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		sub.Unsubscribe()
		return ErrClosed
	}
	t.sub = sub
	return nil
}

// Close stops the live watch. Loads still in flight finish but their results are dropped.
func (t *Tracker) Close() {
	t.mu.Lock()
	t.closed = true
	sub := t.sub
	t.sub = nil
	t.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
}

func (t *Tracker) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

func snapshotOf(entry model.CacheEntry, stale, cached bool) Snapshot {
	records := entry.Records
	if records == nil {
		records = []model.EventRecord{}
	}
	return Snapshot{
		Key:       entry.Key,
		Records:   records,
		UpdatedAt: time.UnixMilli(entry.UpdatedAt).UTC(),
		Stale:     stale,
		Cached:    cached,
	}
}
