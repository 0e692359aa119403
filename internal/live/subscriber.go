package live

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"escrowScope/internal/chain"
	"escrowScope/internal/contract"
	"escrowScope/internal/indexer"
	"escrowScope/internal/metrics"
	"escrowScope/internal/model"
)

const logBufferSize = 128

// RecordsFunc receives one normalized batch, in provider delivery order.
type RecordsFunc func(records []model.EventRecord)

// ErrorFunc receives watch failures. The failed watch stops; the others keep running.
type ErrorFunc func(err error)

// Subscriber opens live log watches against the provider.
type Subscriber struct {
	provider chain.LogSubscriber
	decoder  *contract.Decoder
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

func NewSubscriber(provider chain.LogSubscriber, decoder *contract.Decoder, logger *zap.Logger, m *metrics.Metrics) *Subscriber {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Subscriber{
		provider: provider,
		decoder:  decoder,
		logger:   logger,
		metrics:  m,
	}
}

// Subscribe opens one watch per distinct subject (or a single unfiltered watch for
// AllSubjects) and returns a handle that tears all of them down together.
// If any watch fails to open, the ones already opened are closed before returning.
func (s *Subscriber) Subscribe(ctx context.Context, q indexer.Query, onRecords RecordsFunc, onError ErrorFunc) (*Subscription, error) {
	if onRecords == nil {
		return nil, fmt.Errorf("records callback is nil")
	}
	topic0, err := s.decoder.Topic0(q.Kind)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", indexer.ErrInvalidOptions, err)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		kind:      q.Kind,
		cancel:    cancel,
		onRecords: onRecords,
		onError:   onError,
		logger:    s.logger,
		metrics:   s.metrics,
		done:      make(chan struct{}),
	}
	normalizer := indexer.NewNormalizer(s.decoder, chain.NewBlockClock(s.provider))

	for _, filter := range s.filters(q, topic0) {
		ch := make(chan types.Log, logBufferSize)
		handle, err := s.provider.SubscribeFilterLogs(watchCtx, filter, ch)
		if err != nil {
			sub.Unsubscribe()
			sub.wg.Wait()
			return nil, fmt.Errorf("subscribe %s: %w", q.Kind, err)
		}
		s.metrics.WatchOpened()
		sub.handles = append(sub.handles, handle)

		sub.wg.Add(1)
		go sub.run(watchCtx, normalizer, handle, ch)
	}

	go func() {
		<-watchCtx.Done()
		sub.Unsubscribe()
	}()
	go func() {
		sub.wg.Wait()
		close(sub.done)
	}()

	s.logger.Debug("live subscription opened",
		zap.String("kind", string(q.Kind)),
		zap.Int("watches", len(sub.handles)),
	)
	return sub, nil
}

func (s *Subscriber) filters(q indexer.Query, topic0 common.Hash) []ethereum.FilterQuery {
	address := []common.Address{s.decoder.Address()}
	if q.AllSubjects {
		return []ethereum.FilterQuery{{
			Addresses: address,
			Topics:    [][]common.Hash{{topic0}},
		}}
	}

	filters := make([]ethereum.FilterQuery, 0, len(q.Subjects))
	seen := make(map[string]struct{}, len(q.Subjects))
	for _, id := range uniqueSubjects(q.Subjects, seen) {
		filters = append(filters, ethereum.FilterQuery{
			Addresses: address,
			Topics:    [][]common.Hash{{topic0}, {contract.SubjectTopic(id)}},
		})
	}
	return filters
}

func uniqueSubjects(ids []*big.Int, seen map[string]struct{}) []*big.Int {
	out := make([]*big.Int, 0, len(ids))
	for _, id := range ids {
		if id == nil {
			continue
		}
		key := id.String()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Subscription is the composite handle for all watches opened by one Subscribe call.
type Subscription struct {
	kind      model.EventKind
	cancel    context.CancelFunc
	handles   []ethereum.Subscription
	onRecords RecordsFunc
	onError   ErrorFunc
	logger    *zap.Logger
	metrics   *metrics.Metrics

	once    sync.Once
	closed  atomic.Bool
	deliver sync.Mutex
	wg      sync.WaitGroup
	done    chan struct{}
}

// Watches returns the number of underlying provider watches.
func (s *Subscription) Watches() int {
	return len(s.handles)
}

// Unsubscribe closes every watch. It is safe to call more than once and from inside a callback.
// A callback already running is not interrupted; Done reports when all watches have exited.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.closed.Store(true)
		s.cancel()
		for _, handle := range s.handles {
			handle.Unsubscribe()
			s.metrics.WatchClosed()
		}
		s.logger.Debug("live subscription closed", zap.String("kind", string(s.kind)))
	})
}

// Done is closed once every watch goroutine has returned.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

func (s *Subscription) run(ctx context.Context, normalizer *indexer.Normalizer, handle ethereum.Subscription, ch <-chan types.Log) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-handle.Err():
			if !ok || err == nil {
				return
			}
			s.fail(fmt.Errorf("watch %s: %w", s.kind, err))
			return
		case first := <-ch:
			batch := drain(first, ch)
			records, err := normalizer.Normalize(ctx, s.kind, batch)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				s.logger.Warn("live batch dropped", zap.String("kind", string(s.kind)), zap.Error(err))
				s.fail(err)
				continue
			}
			s.emit(records)
		}
	}
}

// drain collects logs already buffered behind first so one callback covers them.
func drain(first types.Log, ch <-chan types.Log) []types.Log {
	batch := []types.Log{first}
	for {
		select {
		case log := <-ch:
			batch = append(batch, log)
		default:
			return batch
		}
	}
}

func (s *Subscription) emit(records []model.EventRecord) {
	if len(records) == 0 {
		return
	}
	s.deliver.Lock()
	defer s.deliver.Unlock()
	if s.closed.Load() {
		return
	}
	s.metrics.Live(string(s.kind), len(records))
	s.onRecords(records)
}

func (s *Subscription) fail(err error) {
	if s.onError == nil {
		return
	}
	s.deliver.Lock()
	defer s.deliver.Unlock()
	if s.closed.Load() {
		return
	}
	s.onError(err)
}
