package config

import (
	"fmt"
	"os"
	"runtime"
	"time"
)

// Settings is the full set of reducer options after flag/env/file
// layering.
type Settings struct {
	Input string
	Test  string
	Out   string

	Parallel bool
	Jobs     int

	CombineLoops       bool
	ComplementFirst    bool
	SubsetIterator     string
	ComplementIterator string
	SplitFactor        int
	Granularity        int

	CacheMode string
	CacheSize int

	Cleanup   bool
	Atom      string
	Timeout   time.Duration
	Telemetry bool
}

var validIterators = map[string]bool{"forward": true, "backward": true, "skip": true}
var validCacheModes = map[string]bool{"none": true, "config": true, "content": true}
var validAtoms = map[string]bool{"line": true, "char": true}

// Validate checks option values and the input/tester files. It returns
// the first problem found; the command layer surfaces it as a one-line
// diagnostic with a non-zero exit.
func (s *Settings) Validate() error {
	if s.Input == "" {
		return fmt.Errorf("--input is required")
	}
	if s.Test == "" {
		return fmt.Errorf("--test is required")
	}
	if !validIterators[s.SubsetIterator] {
		return fmt.Errorf("invalid --subset-iterator %q (valid: forward, backward, skip)", s.SubsetIterator)
	}
	if !validIterators[s.ComplementIterator] {
		return fmt.Errorf("invalid --complement-iterator %q (valid: forward, backward, skip)", s.ComplementIterator)
	}
	if s.SubsetIterator == "skip" && s.ComplementIterator == "skip" {
		return fmt.Errorf("both iterators are skip: no probe would ever fire")
	}
	if !validCacheModes[s.CacheMode] {
		return fmt.Errorf("invalid --cache %q (valid: none, config, content)", s.CacheMode)
	}
	if !validAtoms[s.Atom] {
		return fmt.Errorf("invalid --atom %q (valid: line, char)", s.Atom)
	}
	if s.SplitFactor < 2 {
		return fmt.Errorf("--split must be at least 2, got %d", s.SplitFactor)
	}
	if s.Granularity != 0 && s.Granularity < 2 {
		return fmt.Errorf("--granularity must be at least 2, got %d", s.Granularity)
	}
	if s.CacheSize < 0 {
		return fmt.Errorf("--cache-size must not be negative, got %d", s.CacheSize)
	}
	if s.Jobs < 0 {
		return fmt.Errorf("-j must not be negative, got %d", s.Jobs)
	}
	if s.Timeout < 0 {
		return fmt.Errorf("--timeout must not be negative, got %s", s.Timeout)
	}

	info, err := os.Stat(s.Input)
	if err != nil {
		return fmt.Errorf("input %s: %w", s.Input, err)
	}
	if info.IsDir() {
		return fmt.Errorf("input %s is a directory", s.Input)
	}
	if info.Size() == 0 {
		return fmt.Errorf("input %s is empty", s.Input)
	}

	tinfo, err := os.Stat(s.Test)
	if err != nil {
		return fmt.Errorf("tester %s: %w", s.Test, err)
	}
	if tinfo.IsDir() {
		return fmt.Errorf("tester %s is a directory", s.Test)
	}
	if runtime.GOOS != "windows" && tinfo.Mode()&0111 == 0 {
		return fmt.Errorf("tester %s is not executable", s.Test)
	}
	return nil
}

// ResolveJobs returns the effective worker count: the configured value,
// or the CPU count when unset.
func (s *Settings) ResolveJobs() int {
	if !s.Parallel {
		return 1
	}
	if s.Jobs > 0 {
		return s.Jobs
	}
	return runtime.NumCPU()
}
