package archiver

import (
	"archive/tar"
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"

	"github.com/arkeep/arkeep/internal/format"
	"github.com/klauspost/compress/gzip"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Native produces archives in-process instead of shelling out, covering the
// formats Go can write itself: tgz, tar and zip. bz2 and xz stay on the tool
// engine.
type Native struct {
	fs     afero.Fs
	logger *zap.Logger
}

func NewNative(fs afero.Fs, logger *zap.Logger) *Native {
	return &Native{fs: fs, logger: logger}
}

// Supports reports whether the native engine can produce the given format.
func (n *Native) Supports(tag format.Tag) bool {
	switch tag {
	case format.TagTgz, format.TagTar, format.TagZip:
		return true
	default:
		return false
	}
}

func (n *Native) Archive(ctx context.Context, strategy format.Strategy, src, destDir, name string) (Result, error) {
	if !n.Supports(strategy.Tag) {
		return Result{}, fmt.Errorf("native engine does not support format %q (use the tool engine)", strategy.Tag)
	}

	target := filepath.Join(destDir, name)
	result := Result{Command: fmt.Sprintf("native:%s %s -> %s", strategy.Tag, src, target)}

	n.logger.Debug("writing native archive",
		zap.String("format", string(strategy.Tag)),
		zap.String("source", src),
		zap.String("target", target),
	)

	out, err := n.fs.Create(target)
	if err != nil {
		return result, fmt.Errorf("failed to create archive file %s: %w", target, err)
	}

	switch strategy.Tag {
	case format.TagZip:
		err = n.writeZip(ctx, out, src)
	default:
		err = n.writeTar(ctx, out, src, strategy.Tag == format.TagTgz)
	}
	err = errors.Join(err, out.Close())

	if err != nil {
		// Don't leave a half-written archive behind.
		if removeErr := n.fs.Remove(target); removeErr != nil {
			n.logger.Warn("failed to remove partial archive", zap.String("target", target), zap.Error(removeErr))
		}
		return result, fmt.Errorf("failed to archive %s to %s: %w", src, destDir, err)
	}

	return result, nil
}

func (n *Native) writeTar(ctx context.Context, out io.Writer, src string, compress bool) (err error) {
	w := out
	if compress {
		gzw := gzip.NewWriter(out)
		defer func() {
			err = errors.Join(err, gzw.Close())
		}()
		w = gzw
	}

	tw := tar.NewWriter(w)
	defer func() {
		err = errors.Join(err, tw.Close())
	}()

	return n.walk(ctx, src, func(entryName string, info fs.FileInfo, open func() (afero.File, error)) error {
		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return fmt.Errorf("failed to build tar header for %s: %w", entryName, err)
		}
		header.Name = entryName
		if info.IsDir() {
			header.Name += "/"
		}

		if err := tw.WriteHeader(header); err != nil {
			return fmt.Errorf("failed to write tar header for %s: %w", entryName, err)
		}
		if info.IsDir() {
			return nil
		}

		f, err := open()
		if err != nil {
			return err
		}
		defer f.Close()

		if _, err := io.Copy(tw, f); err != nil {
			return fmt.Errorf("failed to write tar content for %s: %w", entryName, err)
		}
		return nil
	})
}

func (n *Native) writeZip(ctx context.Context, out io.Writer, src string) (err error) {
	zw := zip.NewWriter(out)
	defer func() {
		err = errors.Join(err, zw.Close())
	}()

	return n.walk(ctx, src, func(entryName string, info fs.FileInfo, open func() (afero.File, error)) error {
		if info.IsDir() {
			return nil
		}

		header, err := zip.FileInfoHeader(info)
		if err != nil {
			return fmt.Errorf("failed to build zip header for %s: %w", entryName, err)
		}
		header.Name = entryName
		header.Method = zip.Deflate

		w, err := zw.CreateHeader(header)
		if err != nil {
			return fmt.Errorf("failed to create zip entry %s: %w", entryName, err)
		}

		f, err := open()
		if err != nil {
			return err
		}
		defer f.Close()

		if _, err := io.Copy(w, f); err != nil {
			return fmt.Errorf("failed to write zip content for %s: %w", entryName, err)
		}
		return nil
	})
}

type entryFunc func(entryName string, info fs.FileInfo, open func() (afero.File, error)) error

// walk visits src recursively, naming entries relative to src's parent so
// that archives unpack into a single top-level directory, matching what the
// tar/zip tools produce.
func (n *Native) walk(ctx context.Context, src string, fn entryFunc) error {
	base := filepath.Base(filepath.Clean(src))

	return afero.Walk(n.fs, src, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return fmt.Errorf("failed to walk %s: %w", path, err)
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("archive cancelled: %w", err)
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return fmt.Errorf("failed to resolve path %s: %w", path, err)
		}

		entryName := base
		if rel != "." {
			entryName = filepath.ToSlash(filepath.Join(base, rel))
		}

		return fn(entryName, info, func() (afero.File, error) {
			f, err := n.fs.Open(path)
			if err != nil {
				return nil, fmt.Errorf("failed to open %s: %w", path, err)
			}
			return f, nil
		})
	})
}
