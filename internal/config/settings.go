package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shirou/gopsutil/v3/cpu"
	"gopkg.in/yaml.v2"

	"github.com/handiism/beat-sharer/internal/model"
)

// EnvPrefix is the prefix of every environment variable read by ApplyEnv.
const EnvPrefix = "BEATSHARER"

const (
	defaultMetadataURL  = "https://api.beatsaver.com"
	defaultListStoreURL = "https://beat-sharer-default-rtdb.firebaseio.com"
)

// Settings holds all configuration options.
type Settings struct {
	// Download settings
	CustomLevelsPath       string  `json:"custom_levels_path" yaml:"custom_levels_path" envconfig:"LEVELS_PATH"`
	MaxConcurrentDownloads int     `json:"max_concurrent_downloads" yaml:"max_concurrent_downloads" envconfig:"MAX_CONCURRENT"`
	ItemTimeout            float64 `json:"item_timeout" yaml:"item_timeout" envconfig:"ITEM_TIMEOUT"` // seconds, 0 disables
	SkipExisting           bool    `json:"skip_existing" yaml:"skip_existing" envconfig:"SKIP_EXISTING"`
	FolderNameStyle        string  `json:"folder_name_style" yaml:"folder_name_style" envconfig:"FOLDER_STYLE"` // display, slug

	// Playlist settings
	CreatePlaylist bool   `json:"create_playlist" yaml:"create_playlist" envconfig:"CREATE_PLAYLIST"`
	PlaylistDir    string `json:"playlist_dir" yaml:"playlist_dir" envconfig:"PLAYLIST_DIR"`
	PlaylistTitle  string `json:"playlist_title" yaml:"playlist_title" envconfig:"PLAYLIST_TITLE"`

	// Cover art settings
	ResizeCovers bool `json:"resize_covers" yaml:"resize_covers" envconfig:"RESIZE_COVERS"`
	CoverMaxSize int  `json:"cover_max_size" yaml:"cover_max_size" envconfig:"COVER_MAX_SIZE"`

	// Remote services
	MetadataURL     string `json:"metadata_url" yaml:"metadata_url" envconfig:"METADATA_URL"`
	ListStoreURL    string `json:"list_store_url" yaml:"list_store_url" envconfig:"LIST_URL"`
	ListStoreSecret string `json:"-" yaml:"-" envconfig:"SECRET"`
	UserAgent       string `json:"user_agent" yaml:"user_agent" envconfig:"USER_AGENT"`
}

// DefaultSettings returns settings with default values.
func DefaultSettings() *Settings {
	levels, err := os.Getwd()
	if err != nil {
		levels = "."
	}
	return &Settings{
		CustomLevelsPath:       levels,
		MaxConcurrentDownloads: 0,
		ItemTimeout:            120,
		SkipExisting:           true,
		FolderNameStyle:        model.FolderDisplay.String(),

		CreatePlaylist: false,
		PlaylistTitle:  "Shared songs",

		ResizeCovers: false,
		CoverMaxSize: 512,

		MetadataURL:  defaultMetadataURL,
		ListStoreURL: defaultListStoreURL,
		UserAgent:    "BeatSharer",
	}
}

// DefaultPath returns the per-user settings file location.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "beat-sharer", "config.json")
}

// Load reads settings from a JSON or YAML file and applies environment
// overrides. A missing file yields the defaults.
func Load(path string) (*Settings, error) {
	settings := DefaultSettings()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := unmarshal(path, data, settings); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case !os.IsNotExist(err):
		return nil, err
	}

	if err := settings.ApplyEnv(); err != nil {
		return nil, err
	}
	return settings, nil
}

// ApplyEnv overrides fields from BEATSHARER_* environment variables.
// The list store secret is only ever read from the environment.
func (s *Settings) ApplyEnv() error {
	if err := envconfig.Process(EnvPrefix, s); err != nil {
		return fmt.Errorf("parsing environment variables: %w", err)
	}
	return nil
}

// Save writes settings to a JSON or YAML file, chosen by extension.
func (s *Settings) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	var data []byte
	var err error
	if isYAML(path) {
		data, err = yaml.Marshal(s)
	} else {
		data, err = json.MarshalIndent(s, "", "  ")
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Validate checks option ranges.
func (s *Settings) Validate() error {
	var errs []error
	if s.CustomLevelsPath == "" {
		errs = append(errs, errors.New("custom_levels_path must be set"))
	}
	if s.MaxConcurrentDownloads < 0 {
		errs = append(errs, errors.New("max_concurrent_downloads must not be negative"))
	}
	if s.ItemTimeout < 0 {
		errs = append(errs, errors.New("item_timeout must not be negative"))
	}
	if s.ResizeCovers && s.CoverMaxSize < 1 {
		errs = append(errs, errors.New("cover_max_size must be positive when resize_covers is set"))
	}
	return errors.Join(errs...)
}

// Concurrency returns the initial concurrency cap for a batch.
func (s *Settings) Concurrency() int {
	if s.MaxConcurrentDownloads > 0 {
		return s.MaxConcurrentDownloads
	}
	return DefaultConcurrency()
}

// Timeout returns the per-map deadline, or 0 for none.
func (s *Settings) Timeout() time.Duration {
	return time.Duration(s.ItemTimeout * float64(time.Second))
}

// FolderStyle returns the parsed folder naming style.
func (s *Settings) FolderStyle() model.FolderStyle {
	return model.ParseFolderStyle(s.FolderNameStyle)
}

// PlaylistDirectory returns where playlists are written. By default this is
// the game's Playlists folder, two levels above Beat Saber_Data/CustomLevels.
func (s *Settings) PlaylistDirectory() string {
	if s.PlaylistDir != "" {
		return s.PlaylistDir
	}
	return filepath.Join(s.CustomLevelsPath, "..", "..", "Playlists")
}

// DefaultConcurrency is twice the number of logical CPUs.
func DefaultConcurrency() int {
	n, err := cpu.Counts(true)
	if err != nil || n < 1 {
		n = runtime.NumCPU()
	}
	return 2 * n
}

func unmarshal(path string, data []byte, s *Settings) error {
	if isYAML(path) {
		return yaml.Unmarshal(data, s)
	}
	return json.Unmarshal(data, s)
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
