package v1

type ArchiveJob struct {
	Kind     string         `yaml:"kind" json:"kind"`
	Metadata Metadata       `yaml:"metadata" json:"metadata" validate:"required"`
	Spec     ArchiveJobSpec `yaml:"spec" json:"spec" validate:"required"`
}

type Metadata struct {
	Name string `yaml:"name" json:"name" validate:"required"`
}

type ArchiveJobSpec struct {
	// Source is the directory to archive. Must exist and be readable.
	Source string `yaml:"source" json:"source" validate:"required"`

	// Destination is the directory the archive is written to. Must exist
	// and be writable.
	Destination string `yaml:"destination" json:"destination" validate:"required"`

	Archive   ArchiveSpec    `yaml:"archive" json:"archive" validate:"required"`
	Retention *RetentionSpec `yaml:"retention,omitempty" json:"retention,omitempty"`
	Upload    *UploadSpec    `yaml:"upload,omitempty" json:"upload,omitempty"`
}

type ArchiveSpec struct {
	// Name is the archive base name. When retention is enabled the final
	// filename is prefixed with a creation timestamp.
	Name string `yaml:"name" json:"name" validate:"required"`

	// Format selects the archive format (default: tgz).
	Format string `yaml:"format,omitempty" json:"format,omitempty" validate:"omitempty,oneof=tgz tar bz2 xz zip"`

	// Engine selects how the archive is produced: "tool" shells out to
	// tar/zip on the host, "native" uses the built-in writer (default: tool).
	// The native engine supports tgz, tar and zip only.
	Engine string `yaml:"engine,omitempty" json:"engine,omitempty" validate:"omitempty,oneof=tool native"`
}

// RetentionSpec enables rotation: after a successful archive, only the Keep
// most recent archives of the selected format remain in the destination.
type RetentionSpec struct {
	Keep int `yaml:"keep" json:"keep" validate:"required,gt=0"`
}

// UploadSpec configures an optional post-archive upload (one of the fields
// should be set).
type UploadSpec struct {
	S3 *S3Spec `yaml:"s3,omitempty" json:"s3,omitempty"`
}

type S3Spec struct {
	Bucket   string `yaml:"bucket" json:"bucket" validate:"required"`
	Region   string `yaml:"region,omitempty" json:"region,omitempty"`
	Prefix   string `yaml:"prefix,omitempty" json:"prefix,omitempty"`
	Endpoint string `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`

	AccessKeyID     string `yaml:"accessKeyId,omitempty" json:"accessKeyId,omitempty"`
	SecretAccessKey string `yaml:"secretAccessKey,omitempty" json:"secretAccessKey,omitempty"`

	// ForcePathStyle enables path-style addressing for MinIO and other
	// S3-compatible services.
	ForcePathStyle bool `yaml:"forcePathStyle,omitempty" json:"forcePathStyle,omitempty"`
}
