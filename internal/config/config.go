package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Cache backends accepted by cache-backend.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendPebble   = "pebble"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	RPCURL           string
	Contract         string
	ChainID          uint64
	ChunkSize        uint64
	MaxRange         uint64
	ProviderMaxRange uint64
	CacheTTL         time.Duration
	CacheBackend     string
	CachePath        string
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	PGDSN            string
	Assets           map[string]string
	StatusEnum       []string
	PaymentTypeEnum  []string
	RequestsPerSec   float64
	RequestBurst     int
	MaxRetries       int
	RetryBackoff     time.Duration
	IDTTL            time.Duration
	MetricsAddr      string
	Out              string
	LogLevel         string
}

// Load merges config file, environment variables, and flags into Config.
// Environment variables use the ESCROW_ prefix, e.g. ESCROW_CHUNK_SIZE.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ESCROW")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("chunk-size", uint64(5000))
	v.SetDefault("max-range", uint64(100_000))
	v.SetDefault("provider-max-range", uint64(5000))
	v.SetDefault("cache-ttl", 5*time.Minute)
	v.SetDefault("cache-backend", BackendFile)
	v.SetDefault("cache-path", "./data/event_cache.json")
	v.SetDefault("redis-db", 0)
	v.SetDefault("rpc-rps", float64(10))
	v.SetDefault("rpc-burst", 5)
	v.SetDefault("max-retries", 0)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("id-ttl", 5*time.Minute)
	v.SetDefault("status-enum", "Created,Active,Completed,Disputed,Cancelled")
	v.SetDefault("payment-type-enum", "OneTime,Milestone,Recurring")
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		RPCURL:           v.GetString("rpc"),
		Contract:         v.GetString("contract"),
		ChainID:          v.GetUint64("chain-id"),
		ChunkSize:        v.GetUint64("chunk-size"),
		MaxRange:         v.GetUint64("max-range"),
		ProviderMaxRange: v.GetUint64("provider-max-range"),
		CacheTTL:         v.GetDuration("cache-ttl"),
		CacheBackend:     strings.ToLower(v.GetString("cache-backend")),
		CachePath:        v.GetString("cache-path"),
		RedisAddr:        v.GetString("redis-addr"),
		RedisPassword:    v.GetString("redis-password"),
		RedisDB:          v.GetInt("redis-db"),
		PGDSN:            v.GetString("pg-dsn"),
		Assets:           getStringMap(v, "assets"),
		StatusEnum:       getStringSlice(v, "status-enum"),
		PaymentTypeEnum:  getStringSlice(v, "payment-type-enum"),
		RequestsPerSec:   v.GetFloat64("rpc-rps"),
		RequestBurst:     v.GetInt("rpc-burst"),
		MaxRetries:       v.GetInt("max-retries"),
		RetryBackoff:     v.GetDuration("retry-backoff"),
		IDTTL:            v.GetDuration("id-ttl"),
		MetricsAddr:      v.GetString("metrics-addr"),
		Out:              v.GetString("out"),
		LogLevel:         v.GetString("log-level"),
	}

	return cfg, nil
}

// Validate checks the settings every command needs.
func (c Config) Validate() error {
	if c.RPCURL == "" {
		return fmt.Errorf("rpc is required")
	}
	if !common.IsHexAddress(c.Contract) {
		return fmt.Errorf("contract must be a hex address, got %q", c.Contract)
	}
	if c.ChunkSize == 0 {
		return fmt.Errorf("chunk-size must be greater than zero")
	}
	if c.MaxRange == 0 {
		return fmt.Errorf("max-range must be greater than zero")
	}
	switch c.CacheBackend {
	case BackendMemory, BackendFile, BackendPebble:
	case BackendRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("redis-addr is required for the redis cache backend")
		}
	case BackendPostgres:
		if c.PGDSN == "" {
			return fmt.Errorf("pg-dsn is required for the postgres cache backend")
		}
	default:
		return fmt.Errorf("unknown cache-backend %q", c.CacheBackend)
	}
	if _, err := c.AssetDecimals(); err != nil {
		return err
	}
	return nil
}

// AssetDecimals parses the assets setting (token=decimals pairs).
func (c Config) AssetDecimals() (map[common.Address]uint8, error) {
	out := make(map[common.Address]uint8, len(c.Assets))
	for token, raw := range c.Assets {
		if !common.IsHexAddress(token) {
			return nil, fmt.Errorf("assets: invalid token address %q", token)
		}
		decimals, err := strconv.ParseUint(raw, 10, 8)
		if err != nil {
			return nil, fmt.Errorf("assets: invalid decimals %q for %s", raw, token)
		}
		out[common.HexToAddress(token)] = uint8(decimals)
	}
	return out, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func getStringMap(v *viper.Viper, key string) map[string]string {
	if !v.IsSet(key) {
		return map[string]string{}
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case map[string]string:
		return typed
	case map[string]interface{}:
		out := make(map[string]string, len(typed))
		for k, v := range typed {
			out[k] = fmt.Sprintf("%v", v)
		}
		return out
	case []string:
		return parseStringMap(strings.Join(typed, ","))
	case string:
		return parseStringMap(typed)
	default:
		return map[string]string{}
	}
}

func parseStringMap(input string) map[string]string {
	out := make(map[string]string)
	if strings.TrimSpace(input) == "" {
		return out
	}
	pairs := strings.Split(input, ",")
	for _, pair := range pairs {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}
	return out
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
