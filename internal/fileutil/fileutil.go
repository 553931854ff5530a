package fileutil

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// ErrCrossDevice reports a hard link attempted across filesystem boundaries.
var ErrCrossDevice = errors.New("hard link across filesystems")

// CopyPreserve copies src to dst keeping the source permission bits and
// modification time. The data is written to a temporary file beside dst and
// renamed into place, so dst is either the old entry or a complete copy. An
// existing dst that is a symlink is replaced, never written through.
func CopyPreserve(src, dst string) error {
	return copyFile(src, dst, false)
}

// CopyFileVerified behaves like CopyPreserve and additionally re-reads the
// written file, comparing its size and SHA-256 with what was read from src.
func CopyFileVerified(src, dst string) error {
	return copyFile(src, dst, true)
}

func copyFile(src, dst string, verify bool) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", src)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	var srcSum hash.Hash
	var reader io.Reader = in
	if verify {
		srcSum = sha256.New()
		reader = io.TeeReader(in, srcSum)
	}
	written, err := io.Copy(tmp, reader)
	if err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if written != info.Size() {
		return fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", info.Size(), written)
	}
	if verify {
		dstSum, err := sumFile(tmpPath)
		if err != nil {
			return err
		}
		if !bytes.Equal(srcSum.Sum(nil), dstSum) {
			return errors.New("copy hash mismatch: file corrupted during copy")
		}
	}

	if err := os.Chmod(tmpPath, info.Mode().Perm()); err != nil {
		return err
	}
	if err := os.Chtimes(tmpPath, info.ModTime(), info.ModTime()); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		return err
	}
	committed = true
	return nil
}

func sumFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, err
	}
	return h.Sum(nil), nil
}

// HardLink creates dst as a new directory entry for src, replacing any
// existing dst. A cross-device attempt returns an error matching
// ErrCrossDevice and leaves dst absent.
func HardLink(src, dst string) error {
	if err := removeExisting(dst); err != nil {
		return err
	}
	if err := link(src, dst); err != nil {
		if IsCrossDevice(err) {
			return fmt.Errorf("%w: %w", ErrCrossDevice, err)
		}
		return err
	}
	return nil
}

// RelativeSymlink creates dst as a symbolic link to src using a path relative
// to dst's directory, replacing any existing dst.
func RelativeSymlink(src, dst string) error {
	absSrc, err := filepath.Abs(src)
	if err != nil {
		return err
	}
	absDstDir, err := filepath.Abs(filepath.Dir(dst))
	if err != nil {
		return err
	}
	target, err := filepath.Rel(absDstDir, absSrc)
	if err != nil {
		target = absSrc
	}
	if err := removeExisting(dst); err != nil {
		return err
	}
	return os.Symlink(target, dst)
}

// IsCrossDevice reports whether err is an EXDEV failure.
func IsCrossDevice(err error) bool {
	return errors.Is(err, ErrCrossDevice) || errors.Is(err, unix.EXDEV)
}

// Exists reports whether path names an existing entry (a dangling symlink counts).
func Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// SetLinkForTests swaps the hard-link implementation and returns a restore func.
func SetLinkForTests(fn func(oldname, newname string) error) func() {
	prev := link
	link = fn
	return func() { link = prev }
}

var link = os.Link

func removeExisting(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
