// Package ioutils provides file system utilities for beat-sharer.
//
// This package contains functions for:
//   - Exclusive directory creation
//   - Zip extraction confined to one directory
//   - Cover image resizing
package ioutils

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/handiism/beat-sharer/internal/model"
)

// CreateDir creates a single new directory with mode 0755.
//
// Unlike EnsureDir it fails when the directory already exists, so two
// downloads never share a folder. Parents must exist.
func CreateDir(path string) error {
	return os.Mkdir(path, 0755)
}

// EnsureDir creates a directory and all parent directories if they don't exist.
//
// Directories are created with mode 0755 (rwxr-xr-x).
// If the directory already exists, no error is returned.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// OpenZip parses an archive held in memory.
//
// A payload that is not a readable zip file is reported as UnzipFailed.
func OpenZip(data []byte) (*zip.Reader, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, model.NewError(model.KindUnzip, err)
	}
	return r, nil
}

// ExtractZip writes every entry of r below dir, which must already exist.
//
// Entry names are validated before anything is written for them: absolute
// paths and names climbing out of dir ("../x") are rejected as UnzipFailed,
// so extraction never writes outside dir.
//
// Failures reading an entry (bad checksum, corrupt data) are UnzipFailed;
// failures creating or writing local files are IOFailed.
func ExtractZip(r *zip.Reader, dir string) error {
	for _, f := range r.File {
		target, err := entryPath(dir, f.Name)
		if err != nil {
			return model.NewError(model.KindUnzip, err)
		}

		if f.FileInfo().IsDir() || strings.HasSuffix(f.Name, "/") {
			if err := EnsureDir(target); err != nil {
				return model.NewError(model.KindIO, err)
			}
			continue
		}

		if err := EnsureDir(filepath.Dir(target)); err != nil {
			return model.NewError(model.KindIO, err)
		}
		if err := extractFile(f, target); err != nil {
			return err
		}
	}
	return nil
}

func extractFile(f *zip.File, target string) error {
	rc, err := f.Open()
	if err != nil {
		return model.NewError(model.KindUnzip, fmt.Errorf("open %s: %w", f.Name, err))
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return model.NewError(model.KindIO, err)
	}

	src := &readTracker{r: rc}
	_, copyErr := io.Copy(out, src)
	closeErr := out.Close()

	switch {
	case src.err != nil:
		return model.NewError(model.KindUnzip, fmt.Errorf("read %s: %w", f.Name, src.err))
	case copyErr != nil:
		return model.NewError(model.KindIO, copyErr)
	case closeErr != nil:
		return model.NewError(model.KindIO, closeErr)
	}
	return nil
}

// entryPath resolves an archive entry name below dir.
func entryPath(dir, name string) (string, error) {
	local := filepath.FromSlash(strings.TrimSuffix(name, "/"))
	if local == "" || !filepath.IsLocal(local) {
		return "", fmt.Errorf("illegal entry path %q", name)
	}
	return filepath.Join(dir, local), nil
}

// readTracker remembers the first read error so it can be told apart from
// write errors after io.Copy.
type readTracker struct {
	r   io.Reader
	err error
}

func (t *readTracker) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if err != nil && !errors.Is(err, io.EOF) && t.err == nil {
		t.err = err
	}
	return n, err
}
