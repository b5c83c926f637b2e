package runner

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	v1 "github.com/arkeep/arkeep/apis/v1"
	"github.com/arkeep/arkeep/internal/archiver"
	"github.com/arkeep/arkeep/internal/format"
	"github.com/arkeep/arkeep/internal/retention"
	"github.com/arkeep/arkeep/internal/upload"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// TimestampLayout prefixes archive names when retention is enabled:
// day-month-year-hour-minute-second. Second resolution keeps repeated runs
// distinct and gives rotation a time axis independent of filesystem
// metadata.
const TimestampLayout = "02-01-2006-15-04-05"

// ValidationError reports a source or destination path problem detected
// before any archiving attempt.
type ValidationError struct {
	Path   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("path %q %s", e.Path, e.Reason)
}

// Uploader ships a produced archive to remote storage.
type Uploader interface {
	Upload(ctx context.Context, name string, data io.Reader) (string, error)
}

// Runner sequences one archive invocation: validate, select a handler,
// archive, rotate, upload.
type Runner struct {
	logger   *zap.Logger
	job      v1.ArchiveJob
	fs       afero.Fs
	catalog  *format.Catalog
	clock    func() time.Time
	tool     archiver.Archiver
	native   *archiver.Native
	uploader Uploader
}

type Option func(*Runner)

// WithFs replaces the filesystem used for validation, the native engine and
// retention. Tests run on afero.NewMemMapFs.
func WithFs(fs afero.Fs) Option {
	return func(r *Runner) { r.fs = fs }
}

// WithCatalog replaces the strategy catalog, typically to control tool
// availability in tests.
func WithCatalog(catalog *format.Catalog) Option {
	return func(r *Runner) { r.catalog = catalog }
}

// WithClock replaces the timestamp source used for archive naming.
func WithClock(clock func() time.Time) Option {
	return func(r *Runner) { r.clock = clock }
}

// WithUploader replaces the uploader built from the job's upload spec.
func WithUploader(uploader Uploader) Option {
	return func(r *Runner) { r.uploader = uploader }
}

// WithToolArchiver replaces the tool engine.
func WithToolArchiver(tool archiver.Archiver) Option {
	return func(r *Runner) { r.tool = tool }
}

func New(logger *zap.Logger, job v1.ArchiveJob, opts ...Option) (*Runner, error) {
	logger.Info("creating runner",
		zap.String("job_name", job.Metadata.Name),
		zap.String("format", job.Spec.Archive.Format),
		zap.String("engine", job.Spec.Archive.Engine),
	)

	r := &Runner{
		logger: logger,
		job:    job,
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.fs == nil {
		r.fs = afero.NewOsFs()
	}
	if r.catalog == nil {
		r.catalog = format.NewCatalog()
	}
	if r.tool == nil {
		r.tool = archiver.NewTool(logger.Named("archiver"))
	}
	r.native = archiver.NewNative(r.fs, logger.Named("archiver"))

	return r, nil
}

// Run performs the invocation and returns the combined report. Validation
// and selection failures abort before any filesystem mutation; an archive
// failure aborts before rotation; per-file rotation failures are attached to
// the report rather than failing the run.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	spec := r.job.Spec

	if err := r.validatePaths(); err != nil {
		return nil, err
	}

	archiveName := spec.Archive.Name
	if spec.Retention != nil {
		archiveName = r.clock().Format(TimestampLayout) + "-" + archiveName
	}

	engine, strategy, err := r.selectHandler()
	if err != nil {
		return nil, err
	}

	report := &Report{
		Handler:     fmt.Sprintf("%s:%s", spec.Archive.Engine, strategy.Tag),
		Source:      spec.Source,
		Destination: spec.Destination,
		Archive:     archiveName,
	}

	r.logger.Info("creating archive",
		zap.String("handler", report.Handler),
		zap.String("source", spec.Source),
		zap.String("archive", archiveName),
	)

	result, err := engine.Archive(ctx, strategy, spec.Source, spec.Destination, archiveName)
	report.ArchiveResult = result
	if err != nil {
		return nil, fmt.Errorf("failed to archive %s to %s: %w", spec.Source, spec.Destination, err)
	}
	if result.ExitCode != 0 {
		return nil, &archiver.ToolError{
			Source:      spec.Source,
			Destination: spec.Destination,
			Result:      result,
		}
	}
	report.Changed = true

	if spec.Retention != nil {
		manager := retention.NewManager(r.fs, r.logger.Named("retention"))
		outcome, err := manager.Apply(ctx, spec.Destination, strategy.Extension, spec.Retention.Keep)
		if err != nil {
			return nil, fmt.Errorf("failed archive rotation for %s: %w", spec.Destination, err)
		}
		report.Retention = &outcome
	}

	if spec.Upload != nil {
		location, err := r.upload(ctx, archiveName)
		if err != nil {
			return nil, err
		}
		report.Upload = location
	}

	return report, nil
}

// selectHandler maps the requested format to a usable strategy and engine.
// The tool engine requires the strategy's tool on the host; the native
// engine needs only the format metadata but supports a subset of formats.
func (r *Runner) selectHandler() (archiver.Archiver, format.Strategy, error) {
	tag := format.Tag(r.job.Spec.Archive.Format)

	if r.job.Spec.Archive.Engine == "native" {
		strategy, ok := r.catalog.Lookup(tag)
		if !ok {
			return nil, format.Strategy{}, &format.NoHandlerError{Tag: tag, Available: r.catalog.AvailableTags()}
		}
		if !r.native.Supports(tag) {
			return nil, format.Strategy{}, fmt.Errorf("native engine does not support format %q (use the tool engine)", tag)
		}
		return r.native, strategy, nil
	}

	strategy, err := r.catalog.Select(tag)
	if err != nil {
		return nil, format.Strategy{}, err
	}
	return r.tool, strategy, nil
}

func (r *Runner) validatePaths() error {
	spec := r.job.Spec

	info, err := r.fs.Stat(spec.Source)
	if err != nil {
		return &ValidationError{Path: spec.Source, Reason: "does not exist"}
	}
	if !info.IsDir() {
		return &ValidationError{Path: spec.Source, Reason: "is not a directory"}
	}
	f, err := r.fs.Open(spec.Source)
	if err != nil {
		return &ValidationError{Path: spec.Source, Reason: "is not readable"}
	}
	f.Close()

	info, err = r.fs.Stat(spec.Destination)
	if err != nil {
		return &ValidationError{Path: spec.Destination, Reason: "does not exist"}
	}
	if !info.IsDir() {
		return &ValidationError{Path: spec.Destination, Reason: "is not a directory"}
	}

	return nil
}

func (r *Runner) upload(ctx context.Context, archiveName string) (string, error) {
	uploader := r.uploader
	if uploader == nil {
		s3Spec := r.job.Spec.Upload.S3
		if s3Spec == nil {
			return "", fmt.Errorf("upload requested but no destination configured")
		}
		var err error
		uploader, err = upload.NewS3Uploader(ctx, upload.S3Config{
			Bucket:          s3Spec.Bucket,
			Region:          s3Spec.Region,
			Endpoint:        s3Spec.Endpoint,
			Prefix:          s3Spec.Prefix,
			AccessKeyID:     s3Spec.AccessKeyID,
			SecretAccessKey: s3Spec.SecretAccessKey,
			ForcePathStyle:  s3Spec.ForcePathStyle,
		})
		if err != nil {
			return "", fmt.Errorf("failed to create uploader: %w", err)
		}
	}

	archivePath := filepath.Join(r.job.Spec.Destination, archiveName)
	f, err := r.fs.Open(archivePath)
	if err != nil {
		return "", fmt.Errorf("failed to open archive %s for upload: %w", archivePath, err)
	}
	defer f.Close()

	location, err := uploader.Upload(ctx, archiveName, f)
	if err != nil {
		return "", err
	}

	r.logger.Info("uploaded archive", zap.String("location", location))
	return location, nil
}
