// Package fsutil holds the filesystem copy helpers shared by the
// installer, updater and mirror sync.
package fsutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// CopyFile copies a regular file, preserving its mode.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}

// CopyDir copies a directory tree recursively. Symlinks are recreated
// with their original targets rather than followed; package trees
// routinely contain relative links between their own files.
func CopyDir(src, dst string) error {
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dst, 0755); err != nil {
		return err
	}

	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())

		switch {
		case entry.Type()&os.ModeSymlink != 0:
			target, err := os.Readlink(srcPath)
			if err != nil {
				return fmt.Errorf("reading symlink %s: %w", srcPath, err)
			}
			os.Remove(dstPath)
			if err := os.Symlink(target, dstPath); err != nil {
				return fmt.Errorf("creating symlink %s: %w", dstPath, err)
			}

		case entry.IsDir():
			if err := CopyDir(srcPath, dstPath); err != nil {
				return err
			}

		default:
			if err := CopyFile(srcPath, dstPath); err != nil {
				return fmt.Errorf("copying %s: %w", srcPath, err)
			}
		}
	}

	return nil
}

// Exists reports whether a path exists.
func Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}
