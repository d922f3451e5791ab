// Package tester adapts an external tester executable to the oracle
// contract. Each probe gets its own workspace directory containing the
// serialised candidate; the tester is invoked with the candidate path as
// its only argument and its exit code decides the verdict: zero is
// interesting, anything else is not.
package tester

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/rhodovan/picire/internal/dd"
	"github.com/rhodovan/picire/internal/debug"
)

// killGracePeriod is how long a cancelled tester gets to exit after the
// polite termination signal before the process group is killed outright.
const killGracePeriod = 2 * time.Second

// maxOutputBytes bounds how much captured tester output is attached to a
// probe span.
const maxOutputBytes = 8 * 1024

// Subprocess runs the tester executable once per probe.
type Subprocess struct {
	testPath string
	build    func(dd.Config) string
	root     string
	session  string
	filename string
	timeout  time.Duration
}

// New creates a subprocess oracle adapter.
//
// testPath is the tester executable, build serialises a candidate to the
// bytes the tester should see, root/session locate this run's workspace
// tree, filename is the candidate file name inside each probe workspace,
// and timeout (if positive) bounds each tester invocation.
func New(testPath string, build func(dd.Config) string, root, session, filename string, timeout time.Duration) *Subprocess {
	return &Subprocess{
		testPath: testPath,
		build:    build,
		root:     root,
		session:  session,
		filename: filename,
		timeout:  timeout,
	}
}

// WorkspaceDir returns the workspace directory for a probe path.
func (t *Subprocess) WorkspaceDir(probePath string) string {
	return filepath.Join(t.root, t.session, filepath.FromSlash(probePath))
}

// Test serialises cfg into the probe workspace and runs the tester on
// it. Workspaces of uninteresting and cancelled probes are removed
// before returning; interesting workspaces are kept so the caller can
// promote or retire them.
func (t *Subprocess) Test(ctx context.Context, cfg dd.Config, probePath string) dd.Outcome {
	dir := t.WorkspaceDir(probePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		debug.Logf("picire: probe %s: create workspace: %v\n", probePath, err)
		return dd.Uninteresting
	}
	file := filepath.Join(dir, t.filename)
	if err := os.WriteFile(file, []byte(t.build(cfg)), 0644); err != nil {
		debug.Logf("picire: probe %s: write candidate: %v\n", probePath, err)
		t.removeDir(dir)
		return dd.Uninteresting
	}

	out := t.run(ctx, dir, file, probePath, len(cfg))
	if out != dd.Interesting {
		t.removeDir(dir)
	}
	return out
}

// RemoveWorkspace deletes a probe workspace that was kept past its
// verdict, typically a winner superseded by a later one.
func (t *Subprocess) RemoveWorkspace(probePath string) {
	t.removeDir(t.WorkspaceDir(probePath))
}

// RemoveSession deletes this run's entire workspace tree.
func (t *Subprocess) RemoveSession() {
	t.removeDir(filepath.Join(t.root, t.session))
}

// removeDir retries removal briefly: a freshly killed process group can
// still hold files in the workspace for a moment.
func (t *Subprocess) removeDir(dir string) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 10 * time.Millisecond
	bo.MaxElapsedTime = 2 * time.Second
	err := backoff.Retry(func() error {
		return os.RemoveAll(dir)
	}, bo)
	if err != nil {
		debug.Logf("picire: remove workspace %s: %v\n", dir, err)
	}
}

// addOutputEvents attaches captured tester stdout/stderr to the probe
// span. Each buffer is only recorded if non-empty and is truncated to
// maxOutputBytes.
func addOutputEvents(span trace.Span, stdout, stderr *bytes.Buffer) {
	if n := stdout.Len(); n > 0 {
		span.AddEvent("tester.stdout", trace.WithAttributes(
			attribute.String("output", truncateOutput(stdout.String())),
			attribute.Int("bytes", n),
		))
	}
	if n := stderr.Len(); n > 0 {
		span.AddEvent("tester.stderr", trace.WithAttributes(
			attribute.String("output", truncateOutput(stderr.String())),
			attribute.Int("bytes", n),
		))
	}
}

func truncateOutput(s string) string {
	if len(s) <= maxOutputBytes {
		return s
	}
	return s[:maxOutputBytes] + "... (truncated)"
}
