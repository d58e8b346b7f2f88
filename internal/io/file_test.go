package ioutils

import (
	"archive/zip"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/handiism/beat-sharer/internal/model"
)

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestExtractZip(t *testing.T) {
	data := buildZip(t, map[string]string{
		"Info.dat":       `{"_songName":"x"}`,
		"song.egg":       "audio",
		"sub/Expert.dat": "notes",
		"emptydir/":      "",
	})

	r, err := OpenZip(data)
	if err != nil {
		t.Fatalf("OpenZip: %v", err)
	}

	dir := t.TempDir()
	if err := ExtractZip(r, dir); err != nil {
		t.Fatalf("ExtractZip: %v", err)
	}

	for name, want := range map[string]string{
		"Info.dat":       `{"_songName":"x"}`,
		"song.egg":       "audio",
		"sub/Expert.dat": "notes",
	} {
		got, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(name)))
		if err != nil {
			t.Errorf("reading %s: %v", name, err)
			continue
		}
		if string(got) != want {
			t.Errorf("%s = %q, want %q", name, got, want)
		}
	}

	if info, err := os.Stat(filepath.Join(dir, "emptydir")); err != nil || !info.IsDir() {
		t.Errorf("expected emptydir to be created, err=%v", err)
	}
}

func TestOpenZip_Corrupt(t *testing.T) {
	_, err := OpenZip([]byte("definitely not a zip"))
	if !errors.Is(err, model.ErrUnzipFailed) {
		t.Errorf("expected UnzipFailed, got %v", err)
	}
}

func TestExtractZip_RejectsEscapingEntries(t *testing.T) {
	tests := []string{"../evil.txt", "a/../../evil.txt"}

	for _, name := range tests {
		t.Run(name, func(t *testing.T) {
			r, err := OpenZip(buildZip(t, map[string]string{name: "x"}))
			if err != nil {
				// zipinsecurepath=0 rejects the archive up front.
				if !errors.Is(err, model.ErrUnzipFailed) {
					t.Fatalf("OpenZip: %v", err)
				}
				return
			}

			parent := t.TempDir()
			dir := filepath.Join(parent, "level")
			if err := CreateDir(dir); err != nil {
				t.Fatal(err)
			}

			err = ExtractZip(r, dir)
			if !errors.Is(err, model.ErrUnzipFailed) {
				t.Errorf("expected UnzipFailed, got %v", err)
			}
			if _, err := os.Stat(filepath.Join(parent, "evil.txt")); !os.IsNotExist(err) {
				t.Error("entry was written outside the target directory")
			}
		})
	}
}

func TestCreateDir_Exclusive(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "level")
	if err := CreateDir(dir); err != nil {
		t.Fatalf("first CreateDir: %v", err)
	}
	if err := CreateDir(dir); !os.IsExist(err) {
		t.Errorf("second CreateDir should fail with exists, got %v", err)
	}
	if err := EnsureDir(dir); err != nil {
		t.Errorf("EnsureDir on existing dir: %v", err)
	}
}
