//go:build unix

package tester

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/rhodovan/picire/internal/dd"
	"github.com/rhodovan/picire/internal/debug"
)

// run executes the tester on the candidate file and maps its exit to a
// verdict. The tester runs in its own process group so cancellation and
// timeout kill descendants too, not just the immediate process.
func (t *Subprocess) run(ctx context.Context, dir, file, probePath string, units int) (out dd.Outcome) {
	rctx := ctx
	if t.timeout > 0 {
		var cancel context.CancelFunc
		rctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	tracer := otel.Tracer("github.com/rhodovan/picire/tester")
	rctx, span := tracer.Start(rctx, "probe.exec",
		trace.WithAttributes(
			attribute.String("probe.path", probePath),
			attribute.Int("probe.units", units),
		),
	)
	defer func() {
		span.SetAttributes(attribute.String("probe.outcome", out.String()))
		span.End()
	}()

	// #nosec G204 -- the tester path comes from the user's own CLI invocation
	cmd := exec.Command(t.testPath, file)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	// Testers may spawn child processes. Creating a process group and
	// signalling the negative PID terminates the whole group, so a
	// cancelled probe cannot leave descendants behind.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		span.RecordError(err)
		debug.Logf("picire: probe %s: start tester: %v\n", probePath, err)
		return dd.Uninteresting
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	select {
	case <-rctx.Done():
		t.killGroup(cmd, done, probePath)
		addOutputEvents(span, &stdout, &stderr)
		if ctx.Err() != nil {
			return dd.Cancelled
		}
		// Per-probe timeout: the candidate gets no second chance.
		return dd.Uninteresting
	case err := <-done:
		addOutputEvents(span, &stdout, &stderr)
		if err == nil {
			return dd.Interesting
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return dd.Uninteresting
		}
		span.RecordError(err)
		debug.Logf("picire: probe %s: tester died without a verdict: %v\n", probePath, err)
		return dd.Uninteresting
	}
}

// killGroup terminates the tester's process group: SIGTERM first, then
// SIGKILL after the grace period. Blocks until the process has exited.
func (t *Subprocess) killGroup(cmd *exec.Cmd, done <-chan error, probePath string) {
	if cmd.Process == nil {
		<-done
		return
	}
	pgid := -cmd.Process.Pid
	if err := syscall.Kill(pgid, syscall.SIGTERM); err != nil && !errors.Is(err, syscall.ESRCH) {
		debug.Logf("picire: probe %s: terminate process group: %v\n", probePath, err)
	}
	select {
	case <-done:
	case <-time.After(killGracePeriod):
		if err := syscall.Kill(pgid, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
			debug.Logf("picire: probe %s: kill process group: %v\n", probePath, err)
		}
		<-done
	}
}
