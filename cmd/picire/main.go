package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rhodovan/picire/internal/config"
	"github.com/rhodovan/picire/internal/debug"
)

// Version information, set at build time via ldflags
var (
	Version = "dev"
	Build   = "unknown"
)

var (
	cfgFile     string
	verboseFlag bool
	quietFlag   bool
	settings    config.Settings

	// Signal-aware context for graceful cancellation
	rootCtx    context.Context
	rootCancel context.CancelFunc
)

var rootCmd = &cobra.Command{
	Use:   "picire",
	Short: "picire - Parallel minimising delta debugging",
	Long: `Shrinks a failing test input to a 1-minimal witness that still exhibits
an externally defined interesting property, typically a crash or an
assertion failure. The property is decided by a tester executable: it is
invoked with the path to a candidate file and exits 0 when the candidate
is still interesting.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Set up signal-aware context for graceful cancellation
		rootCtx, rootCancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

		// Apply verbosity flags early (before any output)
		debug.SetVerbose(verboseFlag)
		debug.SetQuiet(quietFlag)

		if err := config.Init(cfgFile); err != nil {
			return fmt.Errorf("read config file: %w", err)
		}

		// Apply viper configuration if flags weren't explicitly set
		// Priority: flags > viper (config file + env vars) > defaults
		applyConfig(cmd)
		return nil
	},
	RunE: runReduce,
}

// applyConfig fills every setting whose flag was not given on the
// command line from viper.
func applyConfig(cmd *cobra.Command) {
	flags := cmd.Flags()
	if !flags.Changed("input") {
		settings.Input = config.GetString("input")
	}
	if !flags.Changed("test") {
		settings.Test = config.GetString("test")
	}
	if !flags.Changed("out") {
		settings.Out = config.GetString("out")
	}
	if !flags.Changed("parallel") {
		settings.Parallel = config.GetBool("parallel")
	}
	if !flags.Changed("jobs") {
		settings.Jobs = config.GetInt("jobs")
	}
	if !flags.Changed("combine-loops") {
		settings.CombineLoops = config.GetBool("combine-loops")
	}
	if !flags.Changed("complement-first") {
		settings.ComplementFirst = config.GetBool("complement-first")
	}
	if !flags.Changed("subset-iterator") {
		settings.SubsetIterator = config.GetString("subset-iterator")
	}
	if !flags.Changed("complement-iterator") {
		settings.ComplementIterator = config.GetString("complement-iterator")
	}
	if !flags.Changed("split") {
		settings.SplitFactor = config.GetInt("split")
	}
	if !flags.Changed("granularity") {
		settings.Granularity = config.GetInt("granularity")
	}
	if !flags.Changed("cache") {
		settings.CacheMode = config.GetString("cache")
	}
	if !flags.Changed("cache-size") {
		settings.CacheSize = config.GetInt("cache-size")
	}
	if !flags.Changed("cleanup") {
		settings.Cleanup = config.GetBool("cleanup")
	}
	if !flags.Changed("atom") {
		settings.Atom = config.GetString("atom")
	}
	if !flags.Changed("timeout") {
		settings.Timeout = config.GetDuration("timeout")
	}
	if !flags.Changed("telemetry") {
		settings.Telemetry = config.GetBool("telemetry")
	}
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&settings.Input, "input", "", "Input file to reduce (required)")
	flags.StringVar(&settings.Test, "test", "", "Tester executable; exit 0 means the candidate is interesting (required)")
	flags.StringVar(&settings.Out, "out", "", "Output directory for results (default: <input>.picire)")
	flags.BoolVar(&settings.Parallel, "parallel", false, "Probe candidates in parallel")
	flags.IntVarP(&settings.Jobs, "jobs", "j", 0, "Worker count in parallel mode (default: CPU count)")
	flags.BoolVar(&settings.CombineLoops, "combine-loops", false, "Race subsets and complements in a single candidate list")
	flags.BoolVar(&settings.ComplementFirst, "complement-first", false, "Probe complements before subsets")
	flags.StringVar(&settings.SubsetIterator, "subset-iterator", "forward", "Subset probing order (forward, backward, skip)")
	flags.StringVar(&settings.ComplementIterator, "complement-iterator", "forward", "Complement probing order (forward, backward, skip)")
	flags.IntVar(&settings.SplitFactor, "split", 2, "Granularity multiplier")
	flags.IntVar(&settings.Granularity, "granularity", 0, "Initial chunk count (default: the split factor)")
	flags.StringVar(&settings.CacheMode, "cache", "config", "Outcome cache keying (none, config, content)")
	flags.IntVar(&settings.CacheSize, "cache-size", 0, "Bound the outcome cache to this many entries (0 = unbounded)")
	flags.BoolVar(&settings.Cleanup, "cleanup", false, "Remove superseded winner workspaces and the session directory on exit")
	flags.StringVar(&settings.Atom, "atom", "line", "Atomic unit of reduction (line, char)")
	flags.DurationVar(&settings.Timeout, "timeout", 0, "Per-probe tester timeout (0 = none)")
	flags.BoolVar(&settings.Telemetry, "telemetry", false, "Emit OpenTelemetry traces and metrics to stdout")
	flags.BoolP("version", "V", false, "Print version information")

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: ./picire.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable verbose/debug output")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Suppress non-essential output (errors only)")
}

func main() {
	code := 0
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "picire: interrupted")
			code = 130
		} else {
			fmt.Fprintf(os.Stderr, "picire: error: %v\n", err)
			code = 1
		}
	}
	if rootCancel != nil {
		rootCancel()
	}
	os.Exit(code)
}
