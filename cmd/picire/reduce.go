package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/rhodovan/picire/internal/cache"
	"github.com/rhodovan/picire/internal/dd"
	"github.com/rhodovan/picire/internal/debug"
	"github.com/rhodovan/picire/internal/race"
	"github.com/rhodovan/picire/internal/splitters"
	"github.com/rhodovan/picire/internal/telemetry"
	"github.com/rhodovan/picire/internal/tester"
)

func runReduce(cmd *cobra.Command, args []string) error {
	if v, _ := cmd.Flags().GetBool("version"); v {
		fmt.Printf("picire version %s (%s)\n", Version, Build)
		return nil
	}

	if err := settings.Validate(); err != nil {
		return err
	}
	if cmd.Flags().Changed("jobs") && !settings.Parallel {
		return fmt.Errorf("-j only applies in parallel mode, add --parallel")
	}

	shutdown, err := telemetry.Setup(settings.Telemetry)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			debug.Logf("picire: telemetry shutdown: %v\n", err)
		}
	}()

	data, err := os.ReadFile(settings.Input)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	splitter, err := splitters.Parse(settings.Atom)
	if err != nil {
		return err
	}
	atoms := splitter.Split(string(data))
	build := splitters.Builder(atoms)
	universe := make(dd.Config, len(atoms))
	for i := range universe {
		universe[i] = i
	}

	testPath, err := filepath.Abs(settings.Test)
	if err != nil {
		return fmt.Errorf("resolve tester path: %w", err)
	}
	filename := filepath.Base(settings.Input)
	session := fmt.Sprintf("picire-%s-%d", time.Now().Format("20060102-150405"), os.Getpid())
	t := tester.New(testPath, build, os.TempDir(), session, filename, settings.Timeout)

	var c cache.Cache
	switch settings.CacheMode {
	case "none":
		c = cache.Nop{}
	case "config":
		c = cache.NewConfig(settings.CacheSize)
	case "content":
		c = cache.NewContent(build, settings.CacheSize)
	}

	stats := race.NewCounters()
	var exec dd.Executor
	if settings.Parallel {
		exec = race.NewPool(t, c, settings.ResolveJobs(), stats)
	} else {
		exec = race.NewSequential(t, c, stats)
	}

	outDir := settings.Out
	if outDir == "" {
		outDir = settings.Input + ".picire"
	}

	subsetIter, _ := dd.ParseIterator(settings.SubsetIterator)
	complementIter, _ := dd.ParseIterator(settings.ComplementIterator)

	// Interactive runs get a progress line per reduction; piped output
	// stays quiet until the final report.
	progress := term.IsTerminal(int(os.Stdout.Fd()))

	var prevWinner string
	engine := dd.New(exec,
		dd.WithSplitFactor(settings.SplitFactor),
		dd.WithGranularity(settings.Granularity),
		dd.WithSubsetIterator(subsetIter),
		dd.WithComplementIterator(complementIter),
		dd.WithComplementFirst(settings.ComplementFirst),
		dd.WithCombineLoops(settings.CombineLoops),
		dd.WithReduceHook(func(cfg dd.Config, path string) {
			// Keep the best-so-far result on disk so an interrupted run
			// still leaves something useful behind.
			if err := writeResult(outDir, filename, build(cfg)); err != nil {
				debug.Logf("picire: write intermediate result: %v\n", err)
			}
			if settings.Cleanup && prevWinner != "" {
				t.RemoveWorkspace(prevWinner)
			}
			prevWinner = path
			if progress {
				debug.PrintNormal("%d units remaining (%s)\n", len(cfg), path)
			} else {
				debug.Logf("picire: reduced to %d units (%s)\n", len(cfg), path)
			}
		}),
	)

	start := time.Now()
	result, err := engine.Reduce(rootCtx, universe)
	if err != nil {
		return err
	}

	reduced := build(result)
	if err := writeResult(outDir, filename, reduced); err != nil {
		return err
	}
	if settings.Cleanup {
		t.RemoveSession()
	}

	debug.PrintNormal("✓ Reduced %s: %d units → %d units (%d bytes → %d bytes) in %s\n",
		settings.Input, len(universe), len(result), len(data), len(reduced),
		time.Since(start).Round(time.Millisecond))
	debug.PrintNormal("  result: %s\n", filepath.Join(outDir, filename))
	debug.PrintNormal("  probes %d, oracle runs %d, cache hits %d, cancelled %d\n",
		stats.Probes(), stats.OracleRuns(), stats.CacheHits(), stats.Cancelled())
	return nil
}

// writeResult writes content as the current reduction result under dir.
func writeResult(dir, filename, content string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, filename), []byte(content), 0644); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	return nil
}
