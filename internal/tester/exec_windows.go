//go:build windows

package tester

import (
	"bytes"
	"context"
	"errors"
	"os/exec"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/rhodovan/picire/internal/dd"
	"github.com/rhodovan/picire/internal/debug"
)

// run executes the tester on the candidate file on Windows. Windows
// lacks Unix-style process groups; on cancellation or timeout we
// best-effort kill the started process. Descendants may survive if they
// detach.
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
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		<-done
		addOutputEvents(span, &stdout, &stderr)
		if ctx.Err() != nil {
			return dd.Cancelled
		}
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
