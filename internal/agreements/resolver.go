package agreements

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"escrowScope/internal/metrics"
	"escrowScope/internal/model"
	"escrowScope/internal/projector"
)

// DefaultIDTTL is how long an owner's id list is reused before it is looked up again.
const DefaultIDTTL = 5 * time.Minute

var ErrNoOwner = errors.New("owner address is required")

// Source reads agreement ids and raw agreement records from the chain.
type Source interface {
	AgreementIDs(ctx context.Context, owner common.Address) ([]*big.Int, error)
	Agreement(ctx context.Context, id *big.Int, blockNumber *big.Int) (model.RawAgreement, error)
}

// Decimals resolves the declared decimal count of a token.
type Decimals interface {
	Decimals(ctx context.Context, token common.Address) (uint8, error)
}

// Failure records one agreement that could not be loaded.
type Failure struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// Result is the outcome of one list resolution. Items holds every agreement that
// loaded; Total is the number of distinct ids the owner has.
type Result struct {
	Owner  string                 `json:"owner"`
	Items  []model.AggregateState `json:"items"`
	Failed []Failure              `json:"failed,omitempty"`
	Total  int                    `json:"total"`
}

type idEntry struct {
	ids       []*big.Int
	fetchedAt time.Time
}

// Resolver lists the agreements of an owner. Agreements are fetched one at a time;
// a failing agreement is logged and left out rather than failing the list.
type Resolver struct {
	source   Source
	decimals Decimals
	logger   *zap.Logger
	metrics  *metrics.Metrics
	idTTL    time.Duration
	now      func() time.Time

	mu      sync.Mutex
	ids     map[common.Address]idEntry
	loading map[common.Address]int
}

func NewResolver(source Source, decimals Decimals, idTTL time.Duration, logger *zap.Logger, m *metrics.Metrics) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if idTTL <= 0 {
		idTTL = DefaultIDTTL
	}
	return &Resolver{
		source:   source,
		decimals: decimals,
		logger:   logger,
		metrics:  m,
		idTTL:    idTTL,
		now:      time.Now,
		ids:      make(map[common.Address]idEntry),
		loading:  make(map[common.Address]int),
	}
}

// List resolves the owner's agreements, reusing a fresh id list when one is cached.
func (r *Resolver) List(ctx context.Context, owner common.Address) (Result, error) {
	return r.list(ctx, owner, false)
}

// Refetch ignores the cached id list and reloads every agreement.
func (r *Resolver) Refetch(ctx context.Context, owner common.Address) (Result, error) {
	return r.list(ctx, owner, true)
}

// Loading reports whether a resolution for owner is in progress.
func (r *Resolver) Loading(owner common.Address) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loading[owner] > 0
}

// Get loads and projects a single agreement.
func (r *Resolver) Get(ctx context.Context, id *big.Int) (model.AggregateState, error) {
	raw, err := r.source.Agreement(ctx, id, nil)
	if err != nil {
		return model.AggregateState{}, err
	}
	decimals, err := r.decimals.Decimals(ctx, common.HexToAddress(raw.Token))
	if err != nil {
		return model.AggregateState{}, err
	}
	return projector.Project(raw, decimals)
}

func (r *Resolver) list(ctx context.Context, owner common.Address, force bool) (Result, error) {
	if owner == (common.Address{}) {
		return Result{}, ErrNoOwner
	}
	r.begin(owner)
	defer r.end(owner)

	ids, err := r.agreementIDs(ctx, owner, force)
	if err != nil {
		return Result{}, fmt.Errorf("agreement ids for %s: %w", owner.Hex(), err)
	}

	result := Result{
		Owner: owner.Hex(),
		Items: make([]model.AggregateState, 0, len(ids)),
		Total: len(ids),
	}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		state, err := r.Get(ctx, id)
		if err != nil {
			r.metrics.Aggregate(false)
			r.logger.Warn("agreement fetch failed", zap.String("id", id.String()), zap.Error(err))
			result.Failed = append(result.Failed, Failure{ID: id.String(), Error: err.Error()})
			continue
		}
		r.metrics.Aggregate(true)
		result.Items = append(result.Items, state)
	}

	r.logger.Info("agreements resolved",
		zap.String("owner", owner.Hex()),
		zap.Int("loaded", len(result.Items)),
		zap.Int("total", result.Total),
	)
	return result, nil
}

func (r *Resolver) agreementIDs(ctx context.Context, owner common.Address, force bool) ([]*big.Int, error) {
	r.mu.Lock()
	entry, ok := r.ids[owner]
	now := r.now()
	r.mu.Unlock()
	if ok && !force && now.Sub(entry.fetchedAt) < r.idTTL {
		return entry.ids, nil
	}

	raw, err := r.source.AgreementIDs(ctx, owner)
	if err != nil {
		return nil, err
	}
	ids := dedupeIDs(raw)

	r.mu.Lock()
	r.ids[owner] = idEntry{ids: ids, fetchedAt: now}
	r.mu.Unlock()
	return ids, nil
}

func (r *Resolver) begin(owner common.Address) {
	r.mu.Lock()
	r.loading[owner]++
	r.mu.Unlock()
}

func (r *Resolver) end(owner common.Address) {
	r.mu.Lock()
	r.loading[owner]--
	if r.loading[owner] <= 0 {
		delete(r.loading, owner)
	}
	r.mu.Unlock()
}

// dedupeIDs keeps the first occurrence of each id in order.
func dedupeIDs(ids []*big.Int) []*big.Int {
	out := make([]*big.Int, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
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
