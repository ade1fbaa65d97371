// Package provision prepares on-disk assets before the server starts.
package provision

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
)

// ImageExtensions lists the file suffixes that count as an existing image.
var ImageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}

// ErrUnsafeEntry reports an archive entry that would land outside the target
// directory.
var ErrUnsafeEntry = errors.New("archive entry escapes target directory")

// Result describes what EnsureImages did.
type Result struct {
	// Extracted is false when images were already present.
	Extracted bool
	// Files counts the regular files written.
	Files int
}

// EnsureImages extracts archive into dir unless dir already holds an image.
// Running it again once images exist is a no-op, and the archive is not
// opened in that case.
func EnsureImages(dir, archive string) (Result, error) {
	found, err := HasImages(dir)
	if err != nil {
		return Result{}, err
	}
	if found {
		return Result{}, nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Result{}, fmt.Errorf("create image dir: %w", err)
	}
	files, err := extract(archive, dir)
	if err != nil {
		return Result{Files: files}, err
	}
	return Result{Extracted: true, Files: files}, nil
}

// HasImages reports whether dir directly contains a file with a known image
// extension. A missing directory holds no images.
func HasImages(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read image dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if isImage(entry.Name()) {
			return true, nil
		}
	}
	return false, nil
}

func isImage(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, known := range ImageExtensions {
		if ext == known {
			return true
		}
	}
	return false
}

func extract(archive, dir string) (int, error) {
	reader, err := zip.OpenReader(archive)
	if err != nil {
		return 0, fmt.Errorf("open archive: %w", err)
	}
	defer reader.Close()

	root, err := filepath.Abs(dir)
	if err != nil {
		return 0, fmt.Errorf("resolve image dir: %w", err)
	}

	files := 0
	for _, file := range reader.File {
		target, err := entryPath(root, file.Name)
		if err != nil {
			return files, err
		}
		if file.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return files, fmt.Errorf("create %s: %w", file.Name, err)
			}
			continue
		}
		if !file.Mode().IsRegular() {
			continue
		}
		if err := writeEntry(file, target); err != nil {
			return files, err
		}
		files++
	}
	return files, nil
}

func entryPath(root, name string) (string, error) {
	target := filepath.Join(root, filepath.FromSlash(name))
	rel, err := filepath.Rel(root, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return "", fmt.Errorf("%w: %s", ErrUnsafeEntry, name)
	}
	return target, nil
}

func writeEntry(file *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", file.Name, err)
	}
	src, err := file.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", file.Name, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", file.Name, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("write %s: %w", file.Name, err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("close %s: %w", file.Name, err)
	}
	return nil
}
