package format

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allToolsLookup(tool string) (string, error) {
	return filepath.Join("/usr/bin", tool), nil
}

func onlyLookup(found ...string) LookPathFunc {
	return func(tool string) (string, error) {
		for _, f := range found {
			if tool == f {
				return filepath.Join("/usr/bin", tool), nil
			}
		}
		return "", fmt.Errorf("exec: %q: executable file not found in $PATH", tool)
	}
}

func TestCatalog_Select_Extensions(t *testing.T) {
	tests := []struct {
		tag       Tag
		extension string
		tool      string
	}{
		{TagTgz, ".tar.gz", "tar"},
		{TagTar, ".tar", "tar"},
		{TagBz2, ".tar.bz2", "tar"},
		{TagXz, ".tar.xz", "tar"},
		{TagZip, ".zip", "zip"},
	}

	catalog := NewCatalogWithLookup(allToolsLookup)
	for _, tt := range tests {
		t.Run(string(tt.tag), func(t *testing.T) {
			s, err := catalog.Select(tt.tag)
			require.NoError(t, err)
			assert.Equal(t, tt.extension, s.Extension)
			assert.Equal(t, tt.tool, s.Tool)
		})
	}
}

func TestCatalog_Select_UnknownTag(t *testing.T) {
	catalog := NewCatalogWithLookup(allToolsLookup)

	_, err := catalog.Select(Tag("rar"))
	require.Error(t, err)

	var noHandler *NoHandlerError
	require.ErrorAs(t, err, &noHandler)
	assert.Equal(t, Tag("rar"), noHandler.Tag)
	assert.ErrorContains(t, err, `no handler available for format "rar"`)
}

func TestCatalog_Select_MissingTool(t *testing.T) {
	catalog := NewCatalogWithLookup(onlyLookup("tar"))

	_, err := catalog.Select(TagZip)
	var noHandler *NoHandlerError
	require.ErrorAs(t, err, &noHandler)
	assert.NotContains(t, noHandler.Available, TagZip)

	// Other formats remain selectable.
	s, err := catalog.Select(TagTgz)
	require.NoError(t, err)
	assert.Equal(t, TagTgz, s.Tag)
}

func TestCatalog_Select_NoToolsAtAll(t *testing.T) {
	catalog := NewCatalogWithLookup(onlyLookup())

	_, err := catalog.Select(TagTgz)
	require.Error(t, err)
	assert.ErrorContains(t, err, "no archive tools found on host")
}

func TestCatalog_AvailableTags_PriorityOrder(t *testing.T) {
	catalog := NewCatalogWithLookup(allToolsLookup)
	assert.Equal(t, []Tag{TagZip, TagTgz, TagBz2, TagXz, TagTar}, catalog.AvailableTags())
}

func TestStrategy_Command(t *testing.T) {
	catalog := NewCatalogWithLookup(allToolsLookup)

	tests := []struct {
		tag      Tag
		expected []string
	}{
		{TagTgz, []string{"/usr/bin/tar", "-vzcf", "/backups/data.tar.gz", "/data"}},
		{TagTar, []string{"/usr/bin/tar", "-vcf", "/backups/data.tar.gz", "/data"}},
		{TagBz2, []string{"/usr/bin/tar", "-vjcf", "/backups/data.tar.gz", "/data"}},
		{TagXz, []string{"/usr/bin/tar", "-vJcf", "/backups/data.tar.gz", "/data"}},
		{TagZip, []string{"/usr/bin/zip", "-r", "/backups/data.tar.gz", "/data"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.tag), func(t *testing.T) {
			s, err := catalog.Select(tt.tag)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, s.Command("/data", "/backups", "data.tar.gz"))
		})
	}
}

func TestCatalog_Lookup_IgnoresAvailability(t *testing.T) {
	catalog := NewCatalogWithLookup(onlyLookup())

	s, ok := catalog.Lookup(TagTgz)
	require.True(t, ok)
	assert.Equal(t, ".tar.gz", s.Extension)
	assert.False(t, s.Available())

	_, ok = catalog.Lookup(Tag("rar"))
	assert.False(t, ok)
}
