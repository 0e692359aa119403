package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const usdc = "0x5555555555555555555555555555555555555555"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, uint64(5000), cfg.ChunkSize)
	assert.Equal(t, uint64(100_000), cfg.MaxRange)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, BackendFile, cfg.CacheBackend)
	assert.Equal(t, []string{"Created", "Active", "Completed", "Disputed", "Cancelled"}, cfg.StatusEnum)
	assert.Equal(t, []string{"OneTime", "Milestone", "Recurring"}, cfg.PaymentTypeEnum)
	assert.Zero(t, cfg.MaxRetries)
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
rpc: http://file.example
chunk-size: 1000
assets:
  "`+usdc+`": 6
`), 0o644))

	t.Setenv("ESCROW_CHUNK_SIZE", "2000")
	t.Setenv("ESCROW_CACHE_TTL", "90s")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("rpc", "", "")
	require.NoError(t, flags.Parse([]string{"--rpc", "http://flag.example"}))

	cfg, err := Load(file, flags)
	require.NoError(t, err)

	assert.Equal(t, "http://flag.example", cfg.RPCURL)
	assert.Equal(t, uint64(2000), cfg.ChunkSize)
	assert.Equal(t, 90*time.Second, cfg.CacheTTL)

	assets, err := cfg.AssetDecimals()
	require.NoError(t, err)
	assert.Equal(t, uint8(6), assets[common.HexToAddress(usdc)])
}

func TestValidate(t *testing.T) {
	base := Config{
		RPCURL:       "http://localhost:8545",
		Contract:     "0x1111111111111111111111111111111111111111",
		ChunkSize:    5000,
		MaxRange:     100_000,
		CacheBackend: BackendMemory,
	}
	require.NoError(t, base.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "missing rpc", mutate: func(c *Config) { c.RPCURL = "" }},
		{name: "bad contract", mutate: func(c *Config) { c.Contract = "escrow" }},
		{name: "zero chunk", mutate: func(c *Config) { c.ChunkSize = 0 }},
		{name: "redis without addr", mutate: func(c *Config) { c.CacheBackend = BackendRedis }},
		{name: "postgres without dsn", mutate: func(c *Config) { c.CacheBackend = BackendPostgres }},
		{name: "unknown backend", mutate: func(c *Config) { c.CacheBackend = "s3" }},
		{name: "bad decimals", mutate: func(c *Config) { c.Assets = map[string]string{usdc: "300"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestParseStringMap(t *testing.T) {
	got := parseStringMap(usdc + "=6, bad, =1,0xabc=")
	assert.Equal(t, map[string]string{usdc: "6"}, got)
}
