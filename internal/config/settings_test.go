package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/handiism/beat-sharer/internal/model"
)

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()

	if s.CustomLevelsPath == "" {
		t.Error("CustomLevelsPath should default to the working directory")
	}
	if !s.SkipExisting {
		t.Error("SkipExisting should default to true")
	}
	if s.FolderStyle() != model.FolderDisplay {
		t.Errorf("FolderStyle() = %v, want display", s.FolderStyle())
	}
	if s.Timeout() != 120*time.Second {
		t.Errorf("Timeout() = %v, want 2m", s.Timeout())
	}
	if err := s.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestConcurrency(t *testing.T) {
	s := DefaultSettings()
	if got := s.Concurrency(); got < 2 || got%2 != 0 {
		t.Errorf("default Concurrency() = %d, want a positive even number", got)
	}

	s.MaxConcurrentDownloads = 3
	if got := s.Concurrency(); got != 3 {
		t.Errorf("Concurrency() = %d, want 3", got)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.MetadataURL != defaultMetadataURL {
		t.Errorf("MetadataURL = %q, want default", s.MetadataURL)
	}
}

func TestSaveLoad_RoundTripFormats(t *testing.T) {
	for _, name := range []string{"config.json", "config.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", name)

			s := DefaultSettings()
			s.CustomLevelsPath = "/games/CustomLevels"
			s.MaxConcurrentDownloads = 6
			s.FolderNameStyle = "slug"
			s.ListStoreSecret = "do-not-write"

			if err := s.Save(path); err != nil {
				t.Fatalf("Save: %v", err)
			}

			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatal(err)
			}
			if strings.Contains(string(data), "do-not-write") {
				t.Error("secret must not be written to the settings file")
			}

			loaded, err := Load(path)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if loaded.CustomLevelsPath != "/games/CustomLevels" {
				t.Errorf("CustomLevelsPath = %q", loaded.CustomLevelsPath)
			}
			if loaded.MaxConcurrentDownloads != 6 {
				t.Errorf("MaxConcurrentDownloads = %d, want 6", loaded.MaxConcurrentDownloads)
			}
			if loaded.FolderStyle() != model.FolderSlug {
				t.Errorf("FolderStyle() = %v, want slug", loaded.FolderStyle())
			}
		})
	}
}

func TestLoad_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed settings")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("BEATSHARER_SECRET", "token")
	t.Setenv("BEATSHARER_LIST_URL", "http://localhost:9000")
	t.Setenv("BEATSHARER_MAX_CONCURRENT", "4")

	s, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.ListStoreSecret != "token" {
		t.Errorf("ListStoreSecret = %q, want token", s.ListStoreSecret)
	}
	if s.ListStoreURL != "http://localhost:9000" {
		t.Errorf("ListStoreURL = %q", s.ListStoreURL)
	}
	if s.MaxConcurrentDownloads != 4 {
		t.Errorf("MaxConcurrentDownloads = %d, want 4", s.MaxConcurrentDownloads)
	}
	// Untouched variables keep their defaults.
	if s.MetadataURL != defaultMetadataURL {
		t.Errorf("MetadataURL = %q, want default", s.MetadataURL)
	}
}

func TestValidate(t *testing.T) {
	s := DefaultSettings()
	s.MaxConcurrentDownloads = -1
	s.ResizeCovers = true
	s.CoverMaxSize = 0
	if err := s.Validate(); err == nil {
		t.Error("expected validation error")
	}
}

func TestPlaylistDirectory(t *testing.T) {
	s := DefaultSettings()
	s.CustomLevelsPath = filepath.Join("game", "Beat Saber_Data", "CustomLevels")
	if got, want := s.PlaylistDirectory(), filepath.Join("game", "Playlists"); got != want {
		t.Errorf("PlaylistDirectory() = %q, want %q", got, want)
	}

	s.PlaylistDir = "elsewhere"
	if got := s.PlaylistDirectory(); got != "elsewhere" {
		t.Errorf("PlaylistDirectory() = %q, want elsewhere", got)
	}
}
