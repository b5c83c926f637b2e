package format

import (
	"fmt"
	"os/exec"
	"path/filepath"

	"github.com/samber/lo"
)

// Tag identifies an archive format as requested in a job.
type Tag string

const (
	TagTgz Tag = "tgz"
	TagTar Tag = "tar"
	TagBz2 Tag = "bz2"
	TagXz  Tag = "xz"
	TagZip Tag = "zip"
)

type commandStyle int

const (
	tarStyle commandStyle = iota
	zipStyle
)

// Strategy describes one archive format: its extension convention, the host
// tool that produces it, and the tool invocation. Strategies are immutable
// value types built once per catalog.
type Strategy struct {
	Tag       Tag
	Extension string
	Tool      string

	// compressFlag is the tar compression letter (z, j, J); empty for
	// uncompressed tar and for zip.
	compressFlag string

	// toolPath is the resolved location of Tool on the host, empty when the
	// tool could not be found.
	toolPath string

	style commandStyle
}

// Matches reports whether this strategy serves the requested tag. A strategy
// whose tool did not resolve on the host never matches, so a match implies
// the format is actually producible.
func (s Strategy) Matches(tag Tag) bool {
	return s.Tag == tag && s.toolPath != ""
}

// Available reports whether the strategy's tool resolved on the host.
func (s Strategy) Available() bool {
	return s.toolPath != ""
}

// Command renders the argv for creating destDir/name from src. Pure string
// construction, no side effects.
func (s Strategy) Command(src, destDir, name string) []string {
	target := filepath.Join(destDir, name)
	switch s.style {
	case zipStyle:
		return []string{s.toolPath, "-r", target, src}
	default:
		return []string{s.toolPath, "-v" + s.compressFlag + "cf", target, src}
	}
}

// LookPathFunc resolves a tool name to its path, exec.LookPath-shaped.
type LookPathFunc func(string) (string, error)

// Catalog holds the fixed set of supported strategies in selection priority
// order: zip first, then tgz, bz2, xz, tar. First match wins, so the order
// is part of the selection contract.
type Catalog struct {
	strategies []Strategy
}

// NewCatalog builds the catalog, probing tool availability via exec.LookPath.
func NewCatalog() *Catalog {
	return NewCatalogWithLookup(exec.LookPath)
}

// NewCatalogWithLookup builds the catalog with a custom tool resolver. Tool
// paths are resolved once here; strategies carry no live host state.
func NewCatalogWithLookup(lookPath LookPathFunc) *Catalog {
	resolve := func(tool string) string {
		path, err := lookPath(tool)
		if err != nil {
			return ""
		}
		return path
	}

	tarPath := resolve("tar")
	zipPath := resolve("zip")

	return &Catalog{strategies: []Strategy{
		{Tag: TagZip, Extension: ".zip", Tool: "zip", toolPath: zipPath, style: zipStyle},
		{Tag: TagTgz, Extension: ".tar.gz", Tool: "tar", compressFlag: "z", toolPath: tarPath},
		{Tag: TagBz2, Extension: ".tar.bz2", Tool: "tar", compressFlag: "j", toolPath: tarPath},
		{Tag: TagXz, Extension: ".tar.xz", Tool: "tar", compressFlag: "J", toolPath: tarPath},
		{Tag: TagTar, Extension: ".tar", Tool: "tar", toolPath: tarPath},
	}}
}

// Select returns the first strategy in priority order that matches the tag.
// It fails with a NoHandlerError when the tag is unknown or the required
// tool is missing on the host, before any archiving is attempted.
func (c *Catalog) Select(tag Tag) (Strategy, error) {
	for _, s := range c.strategies {
		if s.Matches(tag) {
			return s, nil
		}
	}
	return Strategy{}, &NoHandlerError{Tag: tag, Available: c.AvailableTags()}
}

// Lookup returns the strategy data for a tag regardless of tool
// availability. The native engine uses this: it needs the extension and tag
// metadata but no host tool.
func (c *Catalog) Lookup(tag Tag) (Strategy, bool) {
	for _, s := range c.strategies {
		if s.Tag == tag {
			return s, true
		}
	}
	return Strategy{}, false
}

// AvailableTags lists the tags whose tools resolved, in priority order.
func (c *Catalog) AvailableTags() []Tag {
	available := lo.Filter(c.strategies, func(s Strategy, _ int) bool {
		return s.Available()
	})
	return lo.Map(available, func(s Strategy, _ int) Tag {
		return s.Tag
	})
}

// NoHandlerError is returned when no strategy can serve a requested format.
type NoHandlerError struct {
	Tag       Tag
	Available []Tag
}

func (e *NoHandlerError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("no handler available for format %q: no archive tools found on host", e.Tag)
	}
	return fmt.Sprintf("no handler available for format %q (available: %v)", e.Tag, e.Available)
}
