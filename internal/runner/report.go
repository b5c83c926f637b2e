package runner

import (
	"github.com/arkeep/arkeep/internal/archiver"
	"github.com/arkeep/arkeep/internal/retention"
)

// Report is the combined result of one archive invocation: which handler
// ran, what it produced, and what rotation and upload did afterwards.
type Report struct {
	Handler     string `json:"handler"`
	Source      string `json:"source"`
	Destination string `json:"destination"`

	// Archive is the final archive filename, timestamp prefix included when
	// retention is enabled.
	Archive string `json:"archive"`

	Changed bool `json:"changed"`

	ArchiveResult archiver.Result `json:"archive_result"`

	// Retention is set only when the job requested a retention count. Its
	// Errors field may be non-empty while the run as a whole succeeded.
	Retention *retention.Outcome `json:"retention,omitempty"`

	// Upload is the object location when an upload was configured.
	Upload string `json:"upload,omitempty"`
}
