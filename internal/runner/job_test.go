package runner

import (
	"testing"

	v1 "github.com/arkeep/arkeep/apis/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalJob = `
kind: ArchiveJob
metadata:
  name: nightly-backup
spec:
  source: /data/project
  destination: /backups
  archive:
    name: project.tar.gz
`

func TestParseArchiveJob_Defaults(t *testing.T) {
	job, err := ParseArchiveJob([]byte(minimalJob))
	require.NoError(t, err)

	assert.Equal(t, "nightly-backup", job.Metadata.Name)
	assert.Equal(t, "/data/project", job.Spec.Source)
	assert.Equal(t, "tgz", job.Spec.Archive.Format)
	assert.Equal(t, "tool", job.Spec.Archive.Engine)
	assert.Nil(t, job.Spec.Retention)
}

func TestParseArchiveJob_Full(t *testing.T) {
	job, err := ParseArchiveJob([]byte(`
kind: ArchiveJob
metadata:
  name: nightly-backup
spec:
  source: /data/project
  destination: /backups
  archive:
    name: project.zip
    format: zip
    engine: native
  retention:
    keep: 5
  upload:
    s3:
      bucket: my-backups
      prefix: nightly
`))
	require.NoError(t, err)

	assert.Equal(t, "zip", job.Spec.Archive.Format)
	assert.Equal(t, "native", job.Spec.Archive.Engine)
	require.NotNil(t, job.Spec.Retention)
	assert.Equal(t, 5, job.Spec.Retention.Keep)
	require.NotNil(t, job.Spec.Upload)
	require.NotNil(t, job.Spec.Upload.S3)
	assert.Equal(t, "my-backups", job.Spec.Upload.S3.Bucket)
}

func TestParseArchiveJob_Invalid(t *testing.T) {
	tests := []struct {
		name string
		job  string
	}{
		{
			name: "missing source",
			job: `
metadata:
  name: j
spec:
  destination: /backups
  archive:
    name: a.tar.gz
`,
		},
		{
			name: "missing archive name",
			job: `
metadata:
  name: j
spec:
  source: /data
  destination: /backups
  archive: {}
`,
		},
		{
			name: "unknown format",
			job: `
metadata:
  name: j
spec:
  source: /data
  destination: /backups
  archive:
    name: a.rar
    format: rar
`,
		},
		{
			name: "non-positive retention",
			job: `
metadata:
  name: j
spec:
  source: /data
  destination: /backups
  archive:
    name: a.tar.gz
  retention:
    keep: 0
`,
		},
		{
			name: "not yaml",
			job:  `{{{`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseArchiveJob([]byte(tt.job))
			require.Error(t, err)
		})
	}
}

func TestBuildVariables_Builtins(t *testing.T) {
	job, err := ParseArchiveJob([]byte(minimalJob))
	require.NoError(t, err)

	variables, err := BuildVariables(job, nil)
	require.NoError(t, err)

	assert.Equal(t, "nightly-backup", variables["JOB_NAME"])
	assert.NotEmpty(t, variables["JOB_DATE_ISO8601"])
	assert.NotEmpty(t, variables["JOB_DATE_RFC3339"])
}

func TestBuildVariables_AllowedEnv(t *testing.T) {
	t.Setenv("BACKUP_ROOT", "/mnt/backups")

	job, err := ParseArchiveJob([]byte(minimalJob))
	require.NoError(t, err)

	variables, err := BuildVariables(job, []string{"BACKUP_ROOT"})
	require.NoError(t, err)
	assert.Equal(t, "/mnt/backups", variables["BACKUP_ROOT"])

	_, err = BuildVariables(job, []string{"ARKEEP_UNSET_VARIABLE"})
	require.Error(t, err)
	assert.ErrorContains(t, err, `environment variable "ARKEEP_UNSET_VARIABLE" is not set`)
}

func TestExpandTemplates(t *testing.T) {
	job := v1.ArchiveJob{
		Metadata: v1.Metadata{Name: "nightly"},
		Spec: v1.ArchiveJobSpec{
			Source:      "${BACKUP_ROOT}/project",
			Destination: "${BACKUP_ROOT}/archives",
			Archive:     v1.ArchiveSpec{Name: "${JOB_NAME}.tar.gz"},
			Upload: &v1.UploadSpec{S3: &v1.S3Spec{
				Bucket: "backups",
				Prefix: "${JOB_NAME}",
			}},
		},
	}

	err := ExpandTemplates(&job, map[string]string{
		"BACKUP_ROOT": "/mnt",
		"JOB_NAME":    "nightly",
	})
	require.NoError(t, err)

	assert.Equal(t, "/mnt/project", job.Spec.Source)
	assert.Equal(t, "/mnt/archives", job.Spec.Destination)
	assert.Equal(t, "nightly.tar.gz", job.Spec.Archive.Name)
	assert.Equal(t, "nightly", job.Spec.Upload.S3.Prefix)
}

func TestExpandTemplates_DisallowedVariable(t *testing.T) {
	job := v1.ArchiveJob{
		Spec: v1.ArchiveJobSpec{
			Source:      "${SECRET_PATH}/project",
			Destination: "/backups",
			Archive:     v1.ArchiveSpec{Name: "a.tar.gz"},
		},
	}

	err := ExpandTemplates(&job, map[string]string{})
	require.Error(t, err)
	assert.ErrorContains(t, err, `environment variable "SECRET_PATH" is not in the allowed list`)
}
