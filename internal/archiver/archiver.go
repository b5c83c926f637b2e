package archiver

import (
	"context"
	"fmt"
	"strings"

	"github.com/arkeep/arkeep/internal/format"
)

// Result captures the outcome of one archive-creation attempt. A non-zero
// ExitCode is not an error at this layer; the runner classifies it.
type Result struct {
	Command  string `json:"command"`
	ExitCode int    `json:"exit_code"`
	Stdout   string `json:"stdout,omitempty"`
	Stderr   string `json:"stderr,omitempty"`
}

// Archiver produces one archive file at destDir/name from the src directory.
type Archiver interface {
	Archive(ctx context.Context, strategy format.Strategy, src, destDir, name string) (Result, error)
}

// ToolError reports an archive step that ran but failed: the tool exited
// non-zero, or the invocation itself could not complete.
type ToolError struct {
	Source      string
	Destination string
	Result      Result
}

func (e *ToolError) Error() string {
	msg := fmt.Sprintf("failed to archive %s to %s", e.Source, e.Destination)
	if e.Result.Command != "" {
		msg += fmt.Sprintf(" (command: %s, exit code: %d)", e.Result.Command, e.Result.ExitCode)
	}
	if stderr := strings.TrimSpace(e.Result.Stderr); stderr != "" {
		msg += ": " + stderr
	}
	return msg
}
