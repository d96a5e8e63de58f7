package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(viper.New(), filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, uint64(6), cfg.Verification.Start)
	assert.Equal(t, uint64(4294967295), cfg.Verification.End)
	assert.Equal(t, uint64(2), cfg.Verification.Step)
	assert.Equal(t, StrategyTable, cfg.Verification.Strategy)
	assert.Equal(t, 5, cfg.Verification.Witnesses)
	assert.Equal(t, time.Second, cfg.Verification.SlowPairThreshold)

	assert.Equal(t, "primes_2_32.txt", cfg.Table.Path)
	assert.True(t, cfg.Table.AutoGenerate)
	assert.Equal(t, uint64(1_000_000), cfg.Table.SegmentSize)

	assert.Equal(t, 80, cfg.Hardware.CPUUsagePercent)
	assert.GreaterOrEqual(t, cfg.Hardware.Workers, 1)

	assert.Equal(t, 500*time.Millisecond, cfg.Performance.ProgressPoll)
	assert.Equal(t, time.Second, cfg.Performance.ProgressInterval)
	assert.Equal(t, uint64(100), cfg.Performance.CounterBatch)

	assert.Equal(t, "goldbach", cfg.Output.FilenamePrefix)
	assert.Equal(t, "info", cfg.Output.LogLevel)
	assert.Empty(t, cfg.Output.MetricsAddr)
	assert.Empty(t, cfg.LoadedFrom())
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "goldbach.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
verification:
  start: 100
  end: 100000
  strategy: incremental
  slow_pair_threshold: 250ms
hardware:
  workers: 3
performance:
  progress_interval: 10s
output:
  verbose: true
`), 0644))

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)

	assert.Equal(t, uint64(100), cfg.Verification.Start)
	assert.Equal(t, uint64(100000), cfg.Verification.End)
	assert.Equal(t, uint64(2), cfg.Verification.Step)
	assert.Equal(t, StrategyIncremental, cfg.Verification.Strategy)
	assert.Equal(t, 250*time.Millisecond, cfg.Verification.SlowPairThreshold)
	assert.Equal(t, 3, cfg.Hardware.Workers)
	assert.Equal(t, 10*time.Second, cfg.Performance.ProgressInterval)
	assert.Equal(t, "debug", cfg.Output.LogLevel)
	assert.Equal(t, path, cfg.LoadedFrom())
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("GOLDBACH_VERIFICATION_END", "5000")
	t.Setenv("GOLDBACH_TABLE_AUTO_GENERATE", "false")
	t.Setenv("GOLDBACH_OUTPUT_METRICS_ADDR", ":9090")

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, uint64(5000), cfg.Verification.End)
	assert.False(t, cfg.Table.AutoGenerate)
	assert.Equal(t, ":9090", cfg.Output.MetricsAddr)
}

func TestLoadFlagPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "goldbach.yaml")
	require.NoError(t, os.WriteFile(path, []byte("verification:\n  end: 1000\n  step: 4\n"), 0644))
	t.Setenv("GOLDBACH_VERIFICATION_END", "2000")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Uint64("end", 0, "")
	flags.Uint64("step", 0, "")
	flags.Int("workers", 0, "")
	require.NoError(t, flags.Parse([]string{"--end=3000"}))

	v := viper.New()
	require.NoError(t, v.BindPFlag("verification.end", flags.Lookup("end")))
	require.NoError(t, v.BindPFlag("verification.step", flags.Lookup("step")))
	require.NoError(t, v.BindPFlag("hardware.workers", flags.Lookup("workers")))

	cfg, err := Load(v, path)
	require.NoError(t, err)
	assert.Equal(t, uint64(3000), cfg.Verification.End, "a set flag beats env and file")
	assert.Equal(t, uint64(4), cfg.Verification.Step, "an unset flag does not mask the file")
	assert.GreaterOrEqual(t, cfg.Hardware.Workers, 1)
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "goldbach.yaml")
	require.NoError(t, os.WriteFile(path, []byte("verification: [\n"), 0644))

	_, err := Load(viper.New(), path)
	assert.Error(t, err)
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "goldbach.yaml")
	require.NoError(t, os.WriteFile(path, []byte("verification:\n  start: 10\n  end: 8\n"), 0644))

	_, err := Load(viper.New(), path)
	assert.ErrorContains(t, err, "verification.end must not be less than verification.start")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"odd start", func(c *Config) { c.Verification.Start = 7 }, "verification.start must be even"},
		{"start below four", func(c *Config) { c.Verification.Start = 2 }, "verification.start must be at least 4"},
		{"start after end", func(c *Config) { c.Verification.End = 4 }, "verification.end must not be less than"},
		{"zero step", func(c *Config) { c.Verification.Step = 0 }, "verification.step must be greater than 0"},
		{"odd step", func(c *Config) { c.Verification.Step = 3 }, "verification.step must be even"},
		{"strategy", func(c *Config) { c.Verification.Strategy = "lucky" }, "verification.strategy must be one of: table, incremental"},
		{"witnesses low", func(c *Config) { c.Verification.Witnesses = 0 }, "verification.witnesses must be at least 1"},
		{"witnesses high", func(c *Config) { c.Verification.Witnesses = 13 }, "verification.witnesses must be at most 12"},
		{"segment", func(c *Config) { c.Table.SegmentSize = 0 }, "table.segment_size"},
		{"table limit", func(c *Config) { c.Table.Limit = 1 << 32 }, "table.limit must be at most 4294967295"},
		{"cpu", func(c *Config) { c.Hardware.CPUUsagePercent = 101 }, "hardware.cpu_usage_percent"},
		{"workers", func(c *Config) { c.Hardware.Workers = -1 }, "hardware.workers"},
		{"poll", func(c *Config) { c.Performance.ProgressPoll = 0 }, "performance.progress_poll"},
		{"batch", func(c *Config) { c.Performance.CounterBatch = 0 }, "performance.counter_batch"},
	}

	require.NoError(t, Validate(Default()))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorContains(t, Validate(cfg), tt.want)
		})
	}
}

func TestValidateReportsEveryField(t *testing.T) {
	cfg := Default()
	cfg.Verification.Step = 3
	cfg.Hardware.CPUUsagePercent = 0

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "verification.step")
	assert.Contains(t, err.Error(), "hardware.cpu_usage_percent")
}

func TestCalculateDynamicValues(t *testing.T) {
	cfg := Default()
	cfg.Hardware.Workers = 0
	cfg.Hardware.CPUUsagePercent = 50
	CalculateDynamicValues(cfg, 8)
	assert.Equal(t, 4, cfg.Hardware.Workers)

	cfg.Hardware.Workers = 0
	CalculateDynamicValues(cfg, 1)
	assert.Equal(t, 1, cfg.Hardware.Workers)

	cfg.Hardware.Workers = 6
	CalculateDynamicValues(cfg, 64)
	assert.Equal(t, 6, cfg.Hardware.Workers)
}

func TestWriteDefaultRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "goldbach.yaml")
	want := Default()
	want.Verification.End = 123456
	want.Performance.ProgressPoll = 250 * time.Millisecond
	require.NoError(t, WriteDefault(path, want))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Goldbach Hunter configuration")
	assert.Contains(t, string(data), "progress_poll: 250ms")

	got, err := Load(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, want.Verification, got.Verification)
	assert.Equal(t, want.Table, got.Table)
	assert.Equal(t, want.Performance, got.Performance)
	assert.Equal(t, want.Output, got.Output)
}
