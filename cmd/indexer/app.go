package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"escrowScope/internal/agreements"
	"escrowScope/internal/cache"
	"escrowScope/internal/chain"
	"escrowScope/internal/config"
	"escrowScope/internal/contract"
	"escrowScope/internal/history"
	"escrowScope/internal/indexer"
	"escrowScope/internal/live"
	"escrowScope/internal/metrics"
	"escrowScope/internal/storage"
	"escrowScope/internal/storage/postgres"
)

// app wires the components shared by every subcommand.
type app struct {
	cfg        config.Config
	logger     *zap.Logger
	metrics    *metrics.Metrics
	client     *chain.Client
	chainID    uint64
	reader     *contract.Reader
	assets     *contract.AssetRegistry
	scanner    *indexer.Scanner
	subscriber *live.Subscriber
	events     *cache.EventCache
	resolver   *agreements.Resolver
	sink       storage.Sink

	closers []func()
}

func newApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger}
	a.closers = append(a.closers, func() { _ = logger.Sync() })

	if err := a.init(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) init(ctx context.Context) error {
	cfg := a.cfg
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := contract.CheckDeclaredOrder(cfg.StatusEnum, cfg.PaymentTypeEnum); err != nil {
		return fmt.Errorf("enum tables do not match the deployed contract: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.metrics = metrics.New(reg, "escrow")
	if cfg.MetricsAddr != "" {
		a.serveMetrics(reg)
	}

	client, err := chain.NewClient(ctx, cfg.RPCURL, chain.ClientOptions{
		RequestsPerSecond: cfg.RequestsPerSec,
		Burst:             cfg.RequestBurst,
		Metrics:           a.metrics,
	})
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	a.client = client
	a.closers = append(a.closers, client.Close)

	a.chainID = cfg.ChainID
	if a.chainID == 0 {
		id, err := client.ChainID(ctx)
		if err != nil {
			return fmt.Errorf("chain id: %w", err)
		}
		a.chainID = id.Uint64()
	}

	address := common.HexToAddress(cfg.Contract)
	decoder, err := contract.NewDecoder(address)
	if err != nil {
		return err
	}
	a.reader, err = contract.NewReader(client, address)
	if err != nil {
		return err
	}
	configured, err := cfg.AssetDecimals()
	if err != nil {
		return err
	}
	a.assets = contract.NewAssetRegistry(client, configured, a.logger)

	a.scanner = indexer.NewScanner(client, decoder, a.logger, a.metrics)
	a.subscriber = live.NewSubscriber(client, decoder, a.logger, a.metrics)
	a.resolver = agreements.NewResolver(a.reader, a.assets, cfg.IDTTL, a.logger, a.metrics)

	var pg *postgres.Store
	if cfg.PGDSN != "" {
		pg, err = postgres.NewStore(ctx, cfg.PGDSN, a.chainID)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		a.closers = append(a.closers, pg.Close)
		if err := pg.EnsureSchema(ctx); err != nil {
			return err
		}
	}

	store, err := a.openCacheStore(ctx, pg)
	if err != nil {
		return err
	}
	a.events = cache.NewEventCache(store, a.logger, a.metrics)

	var sinks storage.Multi
	if cfg.Out != "" {
		sinks = append(sinks, storage.NewJsonlStorage(cfg.Out))
	}
	if pg != nil {
		sinks = append(sinks, pg)
	}
	if len(sinks) > 0 {
		a.sink = sinks
	}

	a.logger.Info("indexer start",
		zap.String("rpc", cfg.RPCURL),
		zap.String("contract", address.Hex()),
		zap.Uint64("chain_id", a.chainID),
		zap.Uint64("chunk_size", cfg.ChunkSize),
		zap.Uint64("max_range", cfg.MaxRange),
		zap.String("cache_backend", cfg.CacheBackend),
	)
	return nil
}

func (a *app) openCacheStore(ctx context.Context, pg *postgres.Store) (cache.Store, error) {
	cfg := a.cfg
	switch cfg.CacheBackend {
	case config.BackendMemory:
		return cache.NewMemoryStore(), nil
	case config.BackendFile:
		return cache.NewFileStore(cfg.CachePath, a.logger), nil
	case config.BackendPebble:
		store, err := cache.NewPebbleStore(cfg.CachePath, a.logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = store.Close() })
		return store, nil
	case config.BackendRedis:
		store, err := cache.NewRedisStore(ctx, cache.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   "escrow:",
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = store.Close() })
		return store, nil
	case config.BackendPostgres:
		if pg == nil {
			return nil, fmt.Errorf("postgres cache backend requires pg-dsn")
		}
		return pg.CacheStore(), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
	}
}

func (a *app) serveMetrics(reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: a.cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server stopped", zap.Error(err))
		}
	}()
	a.closers = append(a.closers, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	})
	a.logger.Info("metrics listening", zap.String("addr", a.cfg.MetricsAddr))
}

func (a *app) scanOptions() indexer.Options {
	return indexer.Options{
		ChunkSize:        a.cfg.ChunkSize,
		MaxRangeFromHead: a.cfg.MaxRange,
		ProviderMaxRange: a.cfg.ProviderMaxRange,
	}
}

func (a *app) tracker(q indexer.Query) *history.Tracker {
	return history.NewTracker(a.scanner, a.subscriber, a.events, q, history.Config{
		ChainID:      a.chainID,
		TTL:          a.cfg.CacheTTL,
		Scan:         a.scanOptions(),
		MaxRetries:   a.cfg.MaxRetries,
		RetryBackoff: a.cfg.RetryBackoff,
	}, a.logger)
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func parseID(cmd *cobra.Command) (*big.Int, error) {
	raw, _ := cmd.Flags().GetString("id")
	if raw == "" {
		return nil, fmt.Errorf("--id is required")
	}
	return contract.ParseSubjectID(raw)
}

func printJSON(value interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}
