package indexer

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"escrowScope/internal/chain"
	"escrowScope/internal/contract"
	"escrowScope/internal/metrics"
	"escrowScope/internal/model"
)

const (
	DefaultChunkSize        = uint64(5000)
	DefaultMaxRangeFromHead = uint64(100_000)
)

// ErrInvalidOptions is returned for unusable scan options or queries.
var ErrInvalidOptions = errors.New("invalid scan options")

// Query selects the logs of one event kind.
type Query struct {
	Kind model.EventKind
	// Subjects restricts the scan to these agreement ids.
	Subjects []*big.Int
	// AllSubjects scans every subject; otherwise an empty Subjects list matches nothing.
	AllSubjects bool
}

// Options bounds a scan.
type Options struct {
	// ChunkSize is the number of blocks per provider request.
	ChunkSize uint64
	// MaxRangeFromHead caps how far below the chain head the scan reaches.
	MaxRangeFromHead uint64
	// ProviderMaxRange is the largest block span the provider accepts in one request; 0 means no cap.
	ProviderMaxRange uint64
	// EarliestFirst walks chunks from the window start toward the head.
	EarliestFirst bool
}

func (o Options) normalized() Options {
	if o.ChunkSize == 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.ProviderMaxRange > 0 && o.ChunkSize > o.ProviderMaxRange {
		o.ChunkSize = o.ProviderMaxRange
	}
	if o.MaxRangeFromHead == 0 {
		o.MaxRangeFromHead = DefaultMaxRangeFromHead
	}
	return o
}

// Chunk is the result of one provider-safe sub-range.
type Chunk struct {
	Range   BlockRange
	Records []model.EventRecord
}

// Scanner fetches historical escrow events in bounded chunks.
// It never retries: a failed chunk aborts the scan.
type Scanner struct {
	provider chain.LogReader
	decoder  *contract.Decoder
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

// NewScanner builds a Scanner with its dependencies.
func NewScanner(provider chain.LogReader, decoder *contract.Decoder, logger *zap.Logger, m *metrics.Metrics) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scanner{
		provider: provider,
		decoder:  decoder,
		logger:   logger,
		metrics:  m,
	}
}

// Chunks prepares a lazy iterator over the scan window. Only the head lookup happens here;
// each chunk is fetched when the caller pulls it.
func (s *Scanner) Chunks(ctx context.Context, q Query, opts Options) (*ChunkIterator, error) {
	if s.provider == nil {
		return nil, fmt.Errorf("provider is nil")
	}
	if s.decoder == nil {
		return nil, fmt.Errorf("decoder is nil")
	}
	topic0, err := s.decoder.Topic0(q.Kind)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	opts = opts.normalized()

	it := &ChunkIterator{
		scanner:    s,
		kind:       q.Kind,
		normalizer: NewNormalizer(s.decoder, chain.NewBlockClock(s.provider)),
	}
	if !q.AllSubjects && len(q.Subjects) == 0 {
		return it, nil
	}

	it.filter = ethereum.FilterQuery{
		Addresses: []common.Address{s.decoder.Address()},
		Topics:    [][]common.Hash{{topic0}},
	}
	if !q.AllSubjects {
		subjects := make([]common.Hash, 0, len(q.Subjects))
		for _, id := range q.Subjects {
			subjects = append(subjects, contract.SubjectTopic(id))
		}
		it.filter.Topics = append(it.filter.Topics, subjects)
	}

	head, err := s.provider.BlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("get latest block: %w", err)
	}
	it.window = ScanWindow(head, opts.MaxRangeFromHead)

	split := SplitRangeFromHead
	if opts.EarliestFirst {
		split = SplitRange
	}
	ranges, err := split(it.window.From, it.window.To, opts.ChunkSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	it.ranges = ranges

	s.logger.Debug("scan window",
		zap.String("kind", string(q.Kind)),
		zap.Uint64("head", head),
		zap.Uint64("from", it.window.From),
		zap.Uint64("to", it.window.To),
		zap.Int("chunks", len(ranges)),
		zap.Bool("earliest_first", opts.EarliestFirst),
	)
	return it, nil
}

// FindAll scans every chunk of the window and returns all matches, oldest first.
func (s *Scanner) FindAll(ctx context.Context, q Query, opts Options) ([]model.EventRecord, error) {
	records, _, err := s.Scan(ctx, q, opts)
	return records, err
}

// Scan is FindAll that also reports the window it covered. Events above
// window.To were not visible to the scan.
func (s *Scanner) Scan(ctx context.Context, q Query, opts Options) ([]model.EventRecord, BlockRange, error) {
	it, err := s.Chunks(ctx, q, opts)
	if err != nil {
		return nil, BlockRange{}, err
	}

	records := make([]model.EventRecord, 0)
	for {
		chunk, ok, err := it.Next(ctx)
		if err != nil {
			return nil, BlockRange{}, err
		}
		if !ok {
			break
		}
		records = append(records, chunk.Records...)
	}
	model.SortByBlock(records)

	s.logger.Info("scan complete",
		zap.String("kind", string(q.Kind)),
		zap.Int("records", len(records)),
		zap.Int("chunks", it.Fetched()),
		zap.Uint64("head", it.Window().To),
	)
	return records, it.Window(), nil
}

// FindLatest walks the window head-first and stops at the first chunk with a match,
// returning the most recent record in that chunk.
func (s *Scanner) FindLatest(ctx context.Context, q Query, opts Options) (model.EventRecord, bool, error) {
	opts.EarliestFirst = false
	it, err := s.Chunks(ctx, q, opts)
	if err != nil {
		return model.EventRecord{}, false, err
	}

	for {
		chunk, ok, err := it.Next(ctx)
		if err != nil {
			return model.EventRecord{}, false, err
		}
		if !ok {
			return model.EventRecord{}, false, nil
		}
		if len(chunk.Records) == 0 {
			continue
		}

		latest := chunk.Records[0]
		for _, record := range chunk.Records[1:] {
			if record.BlockNumber > latest.BlockNumber ||
				(record.BlockNumber == latest.BlockNumber && record.LogIndex > latest.LogIndex) {
				latest = record
			}
		}
		s.logger.Debug("latest match found",
			zap.String("kind", string(q.Kind)),
			zap.Uint64("block", latest.BlockNumber),
			zap.Int("chunks", it.Fetched()),
		)
		return latest, true, nil
	}
}

// ChunkIterator yields chunks in scan order, one provider request per Next call.
type ChunkIterator struct {
	scanner    *Scanner
	kind       model.EventKind
	filter     ethereum.FilterQuery
	window     BlockRange
	ranges     []BlockRange
	next       int
	normalizer *Normalizer
	err        error
}

// Window returns the full block window being scanned.
func (it *ChunkIterator) Window() BlockRange {
	return it.window
}

// Ranges returns the planned chunk ranges in scan order.
func (it *ChunkIterator) Ranges() []BlockRange {
	return append([]BlockRange(nil), it.ranges...)
}

// Fetched reports how many chunks have been requested.
func (it *ChunkIterator) Fetched() int {
	return it.next
}

// Next fetches the next chunk. It returns ok=false when the window is exhausted.
// After an error the iterator stays failed.
func (it *ChunkIterator) Next(ctx context.Context) (Chunk, bool, error) {
	if it.err != nil {
		return Chunk{}, false, it.err
	}
	if it.next >= len(it.ranges) {
		return Chunk{}, false, nil
	}
	if err := ctx.Err(); err != nil {
		it.err = err
		return Chunk{}, false, err
	}

	blockRange := it.ranges[it.next]
	it.next++
	started := time.Now()

	query := it.filter
	query.FromBlock = new(big.Int).SetUint64(blockRange.From)
	query.ToBlock = new(big.Int).SetUint64(blockRange.To)

	logs, err := it.scanner.provider.FilterLogs(ctx, query)
	if err != nil {
		it.err = fmt.Errorf("filter logs %d-%d: %w", blockRange.From, blockRange.To, err)
		it.scanner.logger.Warn("chunk failed", zap.Error(err), zap.Uint64("from", blockRange.From), zap.Uint64("to", blockRange.To))
		return Chunk{}, false, it.err
	}

	records, err := it.normalizer.Normalize(ctx, it.kind, logs)
	if err != nil {
		it.err = fmt.Errorf("chunk %d-%d: %w", blockRange.From, blockRange.To, err)
		return Chunk{}, false, it.err
	}

	it.scanner.metrics.Chunk(string(it.kind), len(records), time.Since(started))
	it.scanner.logger.Debug("chunk complete",
		zap.Int("logs", len(records)),
		zap.Uint64("from", blockRange.From),
		zap.Uint64("to", blockRange.To),
	)
	return Chunk{Range: blockRange, Records: records}, true, nil
}
