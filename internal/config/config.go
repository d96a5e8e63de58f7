// Package config loads goldbach-hunter settings from defaults, an optional
// YAML file, GOLDBACH_* environment variables and bound command line flags.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/goldbach-research/goldbach-hunter/internal/hardware"
	"github.com/goldbach-research/goldbach-hunter/internal/primes"
)

const (
	EnvPrefix         = "GOLDBACH"
	DefaultConfigFile = "goldbach.yaml"

	StrategyTable       = "table"
	StrategyIncremental = "incremental"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("mapstructure")
	})
	_ = validate.RegisterValidation("even", func(fl validator.FieldLevel) bool {
		return fl.Field().Uint()%2 == 0
	})
}

type VerificationConfig struct {
	Start             uint64        `json:"start" yaml:"start" mapstructure:"start" validate:"gte=4,even"`
	End               uint64        `json:"end" yaml:"end" mapstructure:"end" validate:"gtefield=Start"`
	Step              uint64        `json:"step" yaml:"step" mapstructure:"step" validate:"gt=0,even"`
	Strategy          string        `json:"strategy" yaml:"strategy" mapstructure:"strategy" validate:"oneof=table incremental"`
	Witnesses         int           `json:"witnesses" yaml:"witnesses" mapstructure:"witnesses" validate:"gte=1,lte=12"`
	SlowPairThreshold time.Duration `json:"slow_pair_threshold" yaml:"slow_pair_threshold" mapstructure:"slow_pair_threshold"`
}

type TableConfig struct {
	Path         string `json:"path" yaml:"path" mapstructure:"path"`
	Limit        uint64 `json:"limit" yaml:"limit" mapstructure:"limit" validate:"lte=4294967295"`
	AutoGenerate bool   `json:"auto_generate" yaml:"auto_generate" mapstructure:"auto_generate"`
	SegmentSize  uint64 `json:"segment_size" yaml:"segment_size" mapstructure:"segment_size" validate:"gt=0"`
}

type HardwareConfig struct {
	CPUUsagePercent int `json:"cpu_usage_percent" yaml:"cpu_usage_percent" mapstructure:"cpu_usage_percent" validate:"gte=1,lte=100"`
	// Workers of zero is derived from the core count and CPUUsagePercent.
	Workers int `json:"workers" yaml:"workers" mapstructure:"workers" validate:"gte=0"`
}

type PerformanceConfig struct {
	ProgressPoll     time.Duration `json:"progress_poll" yaml:"progress_poll" mapstructure:"progress_poll" validate:"gt=0"`
	ProgressInterval time.Duration `json:"progress_interval" yaml:"progress_interval" mapstructure:"progress_interval" validate:"gt=0"`
	CounterBatch     uint64        `json:"counter_batch" yaml:"counter_batch" mapstructure:"counter_batch" validate:"gt=0"`
}

type OutputConfig struct {
	Directory       string `json:"directory" yaml:"directory" mapstructure:"directory"`
	FilenamePrefix  string `json:"filename_prefix" yaml:"filename_prefix" mapstructure:"filename_prefix"`
	SaveReport      bool   `json:"save_report" yaml:"save_report" mapstructure:"save_report"`
	SaveCheckpoints bool   `json:"save_checkpoints" yaml:"save_checkpoints" mapstructure:"save_checkpoints"`
	LogLevel        string `json:"log_level" yaml:"log_level" mapstructure:"log_level"`
	Verbose         bool   `json:"verbose" yaml:"verbose" mapstructure:"verbose"`
	MetricsAddr     string `json:"metrics_addr" yaml:"metrics_addr" mapstructure:"metrics_addr"`
}

type Config struct {
	Verification VerificationConfig `json:"verification" yaml:"verification" mapstructure:"verification"`
	Table        TableConfig        `json:"table" yaml:"table" mapstructure:"table"`
	Hardware     HardwareConfig     `json:"hardware" yaml:"hardware" mapstructure:"hardware"`
	Performance  PerformanceConfig  `json:"performance" yaml:"performance" mapstructure:"performance"`
	Output       OutputConfig       `json:"output" yaml:"output" mapstructure:"output"`

	loadedFrom string
}

// LoadedFrom returns the config file that was read, or "" when only defaults
// and the environment were used.
func (c *Config) LoadedFrom() string {
	return c.loadedFrom
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault("verification.start", 6)
	v.SetDefault("verification.end", uint64(primes.MaxTableValue))
	v.SetDefault("verification.step", 2)
	v.SetDefault("verification.strategy", StrategyTable)
	v.SetDefault("verification.witnesses", primes.DefaultWitnesses)
	v.SetDefault("verification.slow_pair_threshold", "1s")

	v.SetDefault("table.path", primes.DefaultTableFile)
	v.SetDefault("table.limit", uint64(primes.MaxTableValue))
	v.SetDefault("table.auto_generate", true)
	v.SetDefault("table.segment_size", primes.DefaultSegmentSize)

	v.SetDefault("hardware.cpu_usage_percent", hardware.DefaultCPUUsagePercent)
	v.SetDefault("hardware.workers", 0) // 0 = auto

	v.SetDefault("performance.progress_poll", "500ms")
	v.SetDefault("performance.progress_interval", "1s")
	v.SetDefault("performance.counter_batch", 100)

	v.SetDefault("output.directory", ".")
	v.SetDefault("output.filename_prefix", "goldbach")
	v.SetDefault("output.save_report", true)
	v.SetDefault("output.save_checkpoints", true)
	v.SetDefault("output.log_level", "info")
	v.SetDefault("output.verbose", false)
	v.SetDefault("output.metrics_addr", "")
}

// Load layers defaults, the YAML file at path (if it exists), GOLDBACH_*
// environment variables and any flags already bound on v. A missing file is
// not an error.
func Load(v *viper.Viper, path string) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.Is(err, fs.ErrNotExist) && !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	CalculateDynamicValues(&cfg, runtime.NumCPU())

	cfg.loadedFrom = v.ConfigFileUsed()
	if _, err := os.Stat(cfg.loadedFrom); err != nil {
		cfg.loadedFrom = ""
	}
	return &cfg, nil
}

// Default returns the configuration built from defaults alone. Dynamic
// values such as the worker count are left unresolved.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// Validate checks every field against its validate tag. Errors name the
// offending key the way it is written in the config file.
func Validate(cfg *Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, describe(fe))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	key := strings.TrimPrefix(fe.Namespace(), "Config.")

	var rule string
	switch fe.Tag() {
	case "gt":
		rule = "be greater than " + fe.Param()
	case "gte":
		rule = "be at least " + fe.Param()
	case "lte":
		rule = "be at most " + fe.Param()
	case "gtefield":
		rule = "not be less than verification.start"
	case "even":
		rule = "be even"
	case "oneof":
		rule = "be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	default:
		rule = "satisfy " + fe.Tag()
	}
	return fmt.Sprintf("%s must %s (got %v)", key, rule, fe.Value())
}

func CalculateDynamicValues(cfg *Config, cores int) {
	if cfg.Hardware.Workers <= 0 {
		cfg.Hardware.Workers = hardware.WorkerCount(cores, cfg.Hardware.CPUUsagePercent)
	}
	if cfg.Output.Verbose {
		cfg.Output.LogLevel = "debug"
	}
}

// WriteDefault writes cfg to path as commented YAML, creating parent
// directories as needed.
func WriteDefault(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	header := `# Goldbach Hunter configuration
# Generated on ` + time.Now().Format("2006-01-02 15:04:05") + `
# Every key can be overridden with GOLDBACH_<SECTION>_<KEY>, e.g. GOLDBACH_VERIFICATION_END.

`
	return os.WriteFile(path, []byte(header+string(data)), 0644)
}
