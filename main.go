// main.go - GOLDBACH HUNTER
// Parallel verification of Goldbach's conjecture over 64-bit ranges,
// backed by a precomputed prime table or an incrementally sieved prime list.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/goldbach-research/goldbach-hunter/internal/config"
	"github.com/goldbach-research/goldbach-hunter/internal/goldbach"
	"github.com/goldbach-research/goldbach-hunter/internal/logging"
	"github.com/goldbach-research/goldbach-hunter/internal/primes"
)

const Version = "1.0.0"

// ==================== COMMAND LINE INTERFACE ====================
var rootCmd = &cobra.Command{
	Use:   "goldbach-hunter",
	Short: "Parallel Goldbach conjecture verifier",
	Long: `Verifies that every even number in a range is the sum of two primes.
Without a subcommand it checks every even number from 6 to 2^32-1 using the
precomputed prime table, generating the table first if it is missing.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	Args:          cobra.NoArgs,
	RunE:          runVerify,
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify the configured range",
	Args:  cobra.NoArgs,
	RunE:  runVerify,
}

var generateCmd = &cobra.Command{
	Use:   "generate [path]",
	Short: "Write the prime table used by the table strategy",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runGenerate,
}

var isPrimeCmd = &cobra.Command{
	Use:   "isprime N...",
	Short: "Report whether each N is prime",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runIsPrime,
}

var pairCmd = &cobra.Command{
	Use:   "pair N...",
	Short: "Print the Goldbach pair with the smallest prime for each even N",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runPair,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a configuration file with the default settings",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigInit,
}

// Global flags
var (
	configPath  string
	verbose     bool
	logLevel    string
	outputDir   string
	metricsAddr string
	tablePath   string

	startN    uint64
	endN      uint64
	step      uint64
	strategy  string
	workers   int
	witnesses int
	cpuLimit  int
	resume    bool

	tableLimit  uint64
	segmentSize uint64
)

func init() {
	// Configuration and output flags
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultConfigFile, "Configuration file path")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Verbose output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&outputDir, "output-dir", "", "Output directory (overrides config)")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")
	rootCmd.PersistentFlags().StringVar(&tablePath, "table", "", "Prime table path (overrides config)")

	// Range and worker flags
	rootCmd.PersistentFlags().Uint64Var(&startN, "start", 0, "First even number to verify (overrides config)")
	rootCmd.PersistentFlags().Uint64Var(&endN, "end", 0, "Last number to verify (overrides config)")
	rootCmd.PersistentFlags().Uint64Var(&step, "step", 0, "Step between verified numbers (overrides config)")
	rootCmd.PersistentFlags().StringVar(&strategy, "strategy", "", "Primality source: table or incremental")
	rootCmd.PersistentFlags().IntVar(&workers, "workers", 0, "Number of workers (0=auto)")
	rootCmd.PersistentFlags().IntVar(&witnesses, "witnesses", 0, "Miller-Rabin witnesses for numbers outside the prime source (1-12)")
	rootCmd.PersistentFlags().IntVar(&cpuLimit, "cpu-limit", 0, "CPU usage limit used to derive workers (1-100%)")
	rootCmd.PersistentFlags().BoolVar(&resume, "resume", false, "Resume from last checkpoint")

	// Table generation flags
	generateCmd.Flags().Uint64Var(&tableLimit, "limit", 0, "Largest candidate written to the table")
	generateCmd.Flags().Uint64Var(&segmentSize, "segment-size", 0, "Sieve window size")

	// Bind flags to viper
	viper.BindPFlag("verification.start", rootCmd.PersistentFlags().Lookup("start"))
	viper.BindPFlag("verification.end", rootCmd.PersistentFlags().Lookup("end"))
	viper.BindPFlag("verification.step", rootCmd.PersistentFlags().Lookup("step"))
	viper.BindPFlag("verification.strategy", rootCmd.PersistentFlags().Lookup("strategy"))
	viper.BindPFlag("verification.witnesses", rootCmd.PersistentFlags().Lookup("witnesses"))
	viper.BindPFlag("hardware.workers", rootCmd.PersistentFlags().Lookup("workers"))
	viper.BindPFlag("hardware.cpu_usage_percent", rootCmd.PersistentFlags().Lookup("cpu-limit"))
	viper.BindPFlag("table.path", rootCmd.PersistentFlags().Lookup("table"))
	viper.BindPFlag("table.limit", generateCmd.Flags().Lookup("limit"))
	viper.BindPFlag("table.segment_size", generateCmd.Flags().Lookup("segment-size"))
	viper.BindPFlag("output.directory", rootCmd.PersistentFlags().Lookup("output-dir"))
	viper.BindPFlag("output.verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("output.log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("output.metrics_addr", rootCmd.PersistentFlags().Lookup("metrics-addr"))

	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(verifyCmd, generateCmd, isPrimeCmd, pairCmd, configCmd)
}

func loadConfig() (*config.Config, *logrus.Logger, error) {
	cfg, err := config.Load(viper.GetViper(), configPath)
	if err != nil {
		return nil, nil, err
	}

	logger := logging.New(cfg.Output.LogLevel, cfg.Output.Verbose)
	if from := cfg.LoadedFrom(); from != "" {
		logger.Debugf("Configuration loaded from %s", from)
	} else {
		logger.Debugf("Config file not found, using defaults: %s", configPath)
	}
	return cfg, logger, nil
}

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

func runVerify(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	_, err = newHunter(cfg, logger, cmd.OutOrStdout()).verify(ctx, resume)
	return err
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	path := cfg.Table.Path
	if len(args) == 1 {
		path = args[0]
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	count, err := primes.GenerateTableFile(ctx, path, primes.GenerateOptions{
		Limit:       cfg.Table.Limit,
		SegmentSize: cfg.Table.SegmentSize,
		Logger:      logger,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s primes to %s\n", goldbach.FormatCount(count), path)
	return nil
}

func parseArgs(args []string) ([]uint64, error) {
	ns := make([]uint64, 0, len(args))
	for _, arg := range args {
		n, err := strconv.ParseUint(arg, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", arg, err)
		}
		ns = append(ns, n)
	}
	return ns, nil
}

// queryOracle answers one-off questions about arbitrary 64-bit values, so it
// always uses the full deterministic witness set.
func queryOracle() *primes.Oracle {
	return primes.NewOracle(nil, nil, len(primes.Witnesses))
}

func runIsPrime(cmd *cobra.Command, args []string) error {
	ns, err := parseArgs(args)
	if err != nil {
		return err
	}

	oracle := queryOracle()
	for _, n := range ns {
		verdict := "composite"
		if oracle.IsPrime(n) {
			verdict = "prime"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d is %s\n", n, verdict)
	}
	return nil
}

func runPair(cmd *cobra.Command, args []string) error {
	ns, err := parseArgs(args)
	if err != nil {
		return err
	}

	_, logger, err := loadConfig()
	if err != nil {
		return err
	}
	searcher := goldbach.NewSearcher(queryOracle(), logger, 0)
	for _, n := range ns {
		if n < 4 || n%2 != 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "%d: not an even number >= 4\n", n)
			continue
		}
		if p, ok := searcher.FindPair(n); ok {
			fmt.Fprintf(cmd.OutOrStdout(), "%d = %d + %d\n", n, p, n-p)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "%d: no pair of primes found\n", n)
		}
	}
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configPath
	if len(args) == 1 {
		path = args[0]
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file %s already exists", path)
	}

	if err := config.WriteDefault(path, config.Default()); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote default configuration to %s\n", path)
	return nil
}

// ==================== MAIN ENTRY POINT ====================
func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
