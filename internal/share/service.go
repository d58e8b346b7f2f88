// Package share implements the two user facing operations: publishing the
// codes of the locally installed levels under a key, and fetching every
// level listed under a key.
package share

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/handiism/beat-sharer/internal/config"
	"github.com/handiism/beat-sharer/internal/download"
	bshttp "github.com/handiism/beat-sharer/internal/http"
	ioutils "github.com/handiism/beat-sharer/internal/io"
	"github.com/handiism/beat-sharer/internal/listdb"
	"github.com/handiism/beat-sharer/internal/model"
	"github.com/handiism/beat-sharer/internal/playlist"
)

// ErrNothingToShare is returned by Upload when no levels are installed.
var ErrNothingToShare = errors.New("no levels found to share")

// Batch is a download started by the Service.
type Batch struct {
	*download.Observer

	// Key is the list key the codes came from, or -1 for an explicit list.
	Key int
	// Codes are the codes handed to the downloader.
	Codes []string
	// Skipped are the codes left out because they are already installed.
	Skipped []string
}

// Service ties the list store, the local level folder and the downloader
// together.
type Service struct {
	settings *config.Settings
	lists    *listdb.Client
	manager  *download.Manager

	onProgress func(download.ProgressEvent)
}

// NewService creates a Service from settings. onProgress receives the
// downloader's events as well as the service's own and may be nil.
func NewService(settings *config.Settings, onProgress func(download.ProgressEvent)) *Service {
	httpClient := bshttp.NewClient(settings.UserAgent)
	return &Service{
		settings:   settings,
		lists:      listdb.NewClient(httpClient, settings.ListStoreURL, settings.ListStoreSecret),
		manager:    download.NewManager(settings, onProgress),
		onProgress: onProgress,
	}
}

// LocalCodes returns the codes of the levels installed in the custom levels
// folder.
func (s *Service) LocalCodes() ([]string, error) {
	codes, err := model.ScanCodes(s.settings.CustomLevelsPath)
	if err != nil {
		return nil, model.NewError(model.KindIO, fmt.Errorf("scan %s: %w", s.settings.CustomLevelsPath, err))
	}
	return codes, nil
}

// Upload publishes the installed codes under a freshly reserved key and
// returns the key together with the published codes.
func (s *Service) Upload(ctx context.Context) (uint8, []string, error) {
	codes, err := s.LocalCodes()
	if err != nil {
		return 0, nil, err
	}
	if len(codes) == 0 {
		return 0, nil, ErrNothingToShare
	}

	key, err := s.lists.NextKey(ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("reserve key: %w", err)
	}
	if err := s.lists.PutList(ctx, key, codes); err != nil {
		return 0, nil, fmt.Errorf("store list %d: %w", key, err)
	}

	s.progress(download.ProgressEvent{
		Message: fmt.Sprintf("Shared %d level(s) under key %d", len(codes), key),
		Level:   download.LevelSuccess,
	})
	return key, codes, nil
}

// Download fetches every level listed under key into the custom levels
// folder. It returns once the batch has started.
func (s *Service) Download(ctx context.Context, key uint8) (*Batch, error) {
	codes, err := s.lists.GetList(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load list %d: %w", key, err)
	}
	s.progress(download.ProgressEvent{
		Message: fmt.Sprintf("Key %d lists %d level(s)", key, len(codes)),
		Level:   download.LevelInfo,
	})

	batch, err := s.Fetch(ctx, codes)
	if err != nil {
		return nil, err
	}
	batch.Key = int(key)
	return batch, nil
}

// Fetch downloads the given codes into the custom levels folder. Codes that
// are already installed are skipped when the settings ask for it.
func (s *Service) Fetch(ctx context.Context, codes []string) (*Batch, error) {
	dest := s.settings.CustomLevelsPath
	if err := ioutils.EnsureDir(dest); err != nil {
		return nil, model.NewError(model.KindIO, err)
	}

	var skipped []string
	if s.settings.SkipExisting {
		local, err := s.LocalCodes()
		if err != nil {
			return nil, err
		}
		codes, skipped = partition(codes, local)
		if len(skipped) > 0 {
			s.progress(download.ProgressEvent{
				Message: fmt.Sprintf("Skipping %d level(s) already installed", len(skipped)),
				Level:   download.LevelInfo,
			})
		}
	}

	return &Batch{
		Observer: s.manager.Start(ctx, codes, dest, s.manager.DefaultLimit()),
		Key:      -1,
		Codes:    codes,
		Skipped:  skipped,
	}, nil
}

// WritePlaylist writes a playlist of the levels a finished batch fetched. It
// does nothing and returns "" when playlists are disabled or nothing was
// fetched.
func (s *Service) WritePlaylist(b *Batch) (string, error) {
	maps := b.Finished()
	if !s.settings.CreatePlaylist || len(maps) == 0 {
		return "", nil
	}

	title := s.settings.PlaylistTitle
	creator := playlist.NewCreator(title, s.settings.UserAgent)
	if b.Key >= 0 {
		creator = playlist.NewCreator(fmt.Sprintf("%s %d", title, b.Key), s.settings.UserAgent).
			WithDescription(fmt.Sprintf("Levels shared under key %d", b.Key))
	}

	path, err := creator.Write(s.settings.PlaylistDirectory(), maps)
	if err != nil {
		return "", err
	}
	s.progress(download.ProgressEvent{Message: "Playlist written: " + path, Level: download.LevelSuccess})
	return path, nil
}

func (s *Service) progress(event download.ProgressEvent) {
	if s.onProgress != nil {
		s.onProgress(event)
	}
}

// partition splits codes into those not present in local and those that are.
// Order is preserved.
func partition(codes, local []string) (missing, present []string) {
	for _, code := range codes {
		if slices.Contains(local, code) {
			present = append(present, code)
		} else {
			missing = append(missing, code)
		}
	}
	return missing, present
}
