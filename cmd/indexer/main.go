package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "indexer",
		Short:        "Escrow agreement event indexer",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")
	addCommonFlags(root.PersistentFlags())

	paymentsCmd := &cobra.Command{
		Use:   "payments",
		Short: "Payment history of one or more agreements",
		RunE:  runPayments,
	}
	paymentsCmd.Flags().StringSlice("ids", nil, "agreement ids (comma-separated)")
	paymentsCmd.Flags().Bool("watch", false, "keep running and merge new payments as they arrive")
	paymentsCmd.Flags().Bool("refresh", false, "ignore a fresh cache entry and rescan")
	root.AddCommand(paymentsCmd)

	rejectionsCmd := &cobra.Command{
		Use:   "rejections",
		Short: "Work rejection history of an agreement",
		RunE:  runRejections,
	}
	rejectionsCmd.Flags().String("id", "", "agreement id")
	rejectionsCmd.Flags().Bool("refresh", false, "ignore a fresh cache entry and rescan")
	root.AddCommand(rejectionsCmd)

	disputeCmd := &cobra.Command{
		Use:   "dispute",
		Short: "Most recent dispute of an agreement",
		RunE:  runDispute,
	}
	disputeCmd.Flags().String("id", "", "agreement id")
	root.AddCommand(disputeCmd)

	agreementCmd := &cobra.Command{
		Use:   "agreement",
		Short: "Decoded state of one agreement",
		RunE:  runAgreement,
	}
	agreementCmd.Flags().String("id", "", "agreement id")
	root.AddCommand(agreementCmd)

	agreementsCmd := &cobra.Command{
		Use:   "agreements",
		Short: "All agreements of a company or worker",
		RunE:  runAgreements,
	}
	agreementsCmd.Flags().String("owner", "", "company or worker address")
	agreementsCmd.Flags().Bool("refetch", false, "ignore the cached id list")
	root.AddCommand(agreementsCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addCommonFlags(flags *pflag.FlagSet) {
	flags.String("rpc", "", "RPC URL (ws:// or ipc for --watch)")
	flags.String("contract", "", "escrow contract address")
	flags.Uint64("chain-id", 0, "chain id, 0 means ask the provider")
	flags.Uint64("chunk-size", 5000, "blocks per log query")
	flags.Uint64("max-range", 100_000, "blocks below head to scan")
	flags.Uint64("provider-max-range", 5000, "largest block span the provider accepts per query")
	flags.Duration("cache-ttl", 5*time.Minute, "event cache freshness window")
	flags.String("cache-backend", "file", "event cache backend (memory, file, pebble, redis, postgres)")
	flags.String("cache-path", "./data/event_cache.json", "file or pebble directory for the event cache")
	flags.String("redis-addr", "", "redis address for the redis cache backend")
	flags.String("redis-password", "", "redis password")
	flags.Int("redis-db", 0, "redis database")
	flags.String("pg-dsn", "", "Postgres DSN for export and the postgres cache backend")
	flags.StringSlice("assets", nil, "token decimals as address=decimals pairs")
	flags.StringSlice("status-enum", nil, "declared Status member order of the deployed contract")
	flags.StringSlice("payment-type-enum", nil, "declared PaymentType member order of the deployed contract")
	flags.Float64("rpc-rps", 10, "max RPC requests per second, 0 disables limiting")
	flags.Int("rpc-burst", 5, "RPC request burst")
	flags.Int("max-retries", 0, "scan retry attempts")
	flags.Duration("retry-backoff", 500*time.Millisecond, "initial scan retry backoff")
	flags.Duration("id-ttl", 5*time.Minute, "agreement id list freshness window")
	flags.String("metrics-addr", "", "serve prometheus metrics on this address")
	flags.String("out", "", "also append results to this JSONL file")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
