package runner

import (
	"errors"
	"fmt"
	"os"
	"time"

	v1 "github.com/arkeep/arkeep/apis/v1"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"
)

var defaultValidator = validator.New(validator.WithRequiredStructEnabled())

const (
	// ISO8601Basic is a URL-safe timestamp format without colons, usable in
	// S3 keys and filesystem paths.
	ISO8601Basic = "20060102T150405Z"

	defaultFormat = "tgz"
	defaultEngine = "tool"
)

// ParseArchiveJob parses a YAML or JSON job file, validates it against the
// v1.ArchiveJob struct tags and applies defaults (format tgz, engine tool).
func ParseArchiveJob(data []byte) (v1.ArchiveJob, error) {
	var job v1.ArchiveJob
	if err := yaml.Unmarshal(data, &job); err != nil {
		return v1.ArchiveJob{}, fmt.Errorf("failed to unmarshal job data: %w", err)
	}

	if err := defaultValidator.Struct(job); err != nil {
		return v1.ArchiveJob{}, fmt.Errorf("failed to validate job: %w", err)
	}

	if job.Spec.Archive.Format == "" {
		job.Spec.Archive.Format = defaultFormat
	}
	if job.Spec.Archive.Engine == "" {
		job.Spec.Archive.Engine = defaultEngine
	}

	return job, nil
}

// BuildVariables creates the variables map for template expansion. It
// includes built-in variables and reads allowed environment variables; an
// allowed variable that is not set is an error.
func BuildVariables(job v1.ArchiveJob, allowedEnv []string) (map[string]string, error) {
	date := time.Now().UTC()
	variables := map[string]string{
		"JOB_NAME":         job.Metadata.Name,
		"JOB_DATE_ISO8601": date.Format(ISO8601Basic),
		"JOB_DATE_RFC3339": date.Format(time.RFC3339),
	}

	var errs error
	for _, envName := range allowedEnv {
		val, ok := os.LookupEnv(envName)
		if !ok {
			errs = errors.Join(errs, fmt.Errorf("environment variable %q is not set", envName))
			continue
		}
		variables[envName] = val
	}

	if errs != nil {
		return nil, errs
	}

	return variables, nil
}

// ExpandTemplates replaces ${VAR} references in the job's path, name and
// upload fields using the provided variables map. Fields are expanded in
// place.
func ExpandTemplates(job *v1.ArchiveJob, variables map[string]string) error {
	fields := []*string{
		&job.Spec.Source,
		&job.Spec.Destination,
		&job.Spec.Archive.Name,
	}
	if job.Spec.Upload != nil && job.Spec.Upload.S3 != nil {
		s3 := job.Spec.Upload.S3
		fields = append(fields,
			&s3.Bucket, &s3.Region, &s3.Prefix, &s3.Endpoint,
			&s3.AccessKeyID, &s3.SecretAccessKey,
		)
	}

	var errs error
	for _, field := range fields {
		expanded, err := Expand(*field, variables)
		if err != nil {
			errs = errors.Join(errs, err)
			continue
		}
		*field = expanded
	}

	return errs
}

// Expand replaces ${VAR} references in the input string using the provided
// variables map. Referencing a variable outside the map is an error.
func Expand(value string, variables map[string]string) (string, error) {
	var errs error

	result := os.Expand(value, func(key string) string {
		if val, ok := variables[key]; ok {
			return val
		}
		errs = errors.Join(errs, fmt.Errorf("environment variable %q is not in the allowed list", key))
		return ""
	})

	if errs != nil {
		return "", errs
	}

	return result, nil
}
