package archive

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/klauspost/compress/flate"

	"github.com/difytools/plugin-releaser/internal/logger"
)

const (
	// DefaultFileMode is used for produced archives.
	DefaultFileMode os.FileMode = 0o644

	// flateLevel is the deflate level for archive entries. Plugin trees are
	// small, so the extra CPU for the densest level is never noticeable.
	flateLevel = flate.BestCompression
)

var (
	// errNothingToArchive is returned when the walk produced no entries.
	errNothingToArchive = errors.New("no files to archive")

	// excludedDirs are never descended into, at any depth: version-control
	// internals and CI definitions have no business inside a plugin bundle.
	excludedDirs = map[string]struct{}{
		".git":    {},
		".github": {},
	}
)

// Build recursively packs the tree rooted at root into a zip archive at
// destination. Entries matching any of the exclude patterns (matched against
// the entry's base name), files sharing the destination's extension, and the
// destination itself are skipped, so a previously built archive is never
// nested into a new one. Only regular files are packed.
func Build(ctx context.Context, root, destination string, excludes []string) (err error) {
	out, err := os.OpenFile(filepath.Clean(destination), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, DefaultFileMode)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}

	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close archive: %w", closeErr)
		}
	}()

	writer := zip.NewWriter(out)
	writer.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flateLevel)
	})

	absDestination, err := filepath.Abs(destination)
	if err != nil {
		return fmt.Errorf("resolve archive path: %w", err)
	}

	packed, err := packTree(ctx, writer, root, absDestination, excludes)
	if err != nil {
		return err
	}

	if err = writer.Close(); err != nil {
		return fmt.Errorf("finish archive: %w", err)
	}

	if packed == 0 {
		_ = os.Remove(destination) //nolint:errcheck // The empty container is useless either way.

		return errNothingToArchive
	}

	return nil
}

// packTree walks the tree and writes every eligible entry, returning how
// many files were packed.
func packTree(ctx context.Context, writer *zip.Writer, root, absDestination string, excludes []string) (int, error) {
	packed := 0
	archiveExt := filepath.Ext(absDestination)

	err := fs.WalkDir(os.DirFS(root), ".", func(entry string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		name := path.Base(entry)

		if d.IsDir() {
			if _, skip := excludedDirs[name]; skip {
				return fs.SkipDir
			}

			return nil
		}

		// Symlinks, sockets and the like never make it into a bundle.
		if !d.Type().IsRegular() {
			return nil
		}

		if skip, err := shouldSkipFile(root, entry, absDestination, archiveExt, excludes); err != nil || skip {
			if skip {
				logger.InfoKV(ctx, "Excluding file from archive", "file", entry)
			}

			return err
		}

		if err := packFile(writer, root, entry, d); err != nil {
			return err
		}

		packed++

		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("pack tree: %w", err)
	}

	return packed, nil
}

// shouldSkipFile applies the file-level exclusion rules.
func shouldSkipFile(root, entry, absDestination, archiveExt string, excludes []string) (bool, error) {
	if archiveExt != "" && path.Ext(entry) == archiveExt {
		return true, nil
	}

	absEntry, err := filepath.Abs(filepath.Join(root, filepath.FromSlash(entry)))
	if err != nil {
		return false, fmt.Errorf("resolve %s: %w", entry, err)
	}

	if absEntry == absDestination {
		return true, nil
	}

	for _, pattern := range excludes {
		matched, err := path.Match(pattern, path.Base(entry))
		if err != nil {
			return false, fmt.Errorf("exclude pattern %q: %w", pattern, err)
		}

		if matched {
			return true, nil
		}
	}

	return false, nil
}

// packFile writes a single regular file into the archive under its
// slash-separated path relative to the root.
func packFile(writer *zip.Writer, root, entry string, d fs.DirEntry) (err error) {
	info, err := d.Info()
	if err != nil {
		return fmt.Errorf("stat %s: %w", entry, err)
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("header for %s: %w", entry, err)
	}

	header.Name = entry
	header.Method = zip.Deflate

	dst, err := writer.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("create entry %s: %w", entry, err)
	}

	src, err := os.Open(filepath.Join(root, filepath.FromSlash(entry)))
	if err != nil {
		return fmt.Errorf("open %s: %w", entry, err)
	}

	defer func() {
		if closeErr := src.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", entry, closeErr)
		}
	}()

	if _, err = io.Copy(dst, src); err != nil {
		return fmt.Errorf("write entry %s: %w", entry, err)
	}

	return nil
}
