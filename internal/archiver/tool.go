package archiver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/arkeep/arkeep/internal/format"
	"go.uber.org/zap"
)

// Tool runs the strategy's host command (tar, zip) to produce the archive.
type Tool struct {
	logger  *zap.Logger
	timeout time.Duration
}

type ToolOption func(*Tool)

// WithTimeout bounds the external command's runtime. Zero means no limit;
// archive runs on large trees can legitimately take a long while, so there
// is no default.
func WithTimeout(d time.Duration) ToolOption {
	return func(t *Tool) {
		t.timeout = d
	}
}

func NewTool(logger *zap.Logger, opts ...ToolOption) *Tool {
	t := &Tool{logger: logger}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Archive invokes the strategy command with captured streams. The returned
// error covers launch failures only; a tool that ran and exited non-zero is
// reported through Result.ExitCode.
func (t *Tool) Archive(ctx context.Context, strategy format.Strategy, src, destDir, name string) (Result, error) {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	argv := strategy.Command(src, destDir, name)
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	t.logger.Debug("invoking archive tool",
		zap.String("format", string(strategy.Tag)),
		zap.Strings("command", argv),
	)
	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	result := Result{
		Command: strings.Join(argv, " "),
		Stdout:  stdout.String(),
		Stderr:  stderr.String(),
	}
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}

	t.logger.Debug("archive tool finished",
		zap.String("format", string(strategy.Tag)),
		zap.Int("exit_code", result.ExitCode),
		zap.Duration("duration", duration),
	)

	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return result, fmt.Errorf("archive command timed out after %s: %s", t.timeout, result.Command)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// The tool ran and failed; the caller classifies this.
			return result, nil
		}
		return result, fmt.Errorf("failed to launch archive command %q: %w", result.Command, err)
	}

	return result, nil
}
