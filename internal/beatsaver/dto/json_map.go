package dto

import (
	"errors"
	"strings"

	"github.com/handiism/beat-sharer/internal/model"
)

// JSONMap is the subset of the map detail document the downloader needs.
type JSONMap struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	Metadata *JSONMapMetadata `json:"metadata"`
	Versions []JSONMapVersion `json:"versions"`
}

// JSONMapMetadata holds the song fields of a map.
type JSONMapMetadata struct {
	SongName        *string `json:"songName"`
	SongAuthorName  string  `json:"songAuthorName"`
	LevelAuthorName *string `json:"levelAuthorName"`
}

// JSONMapVersion is one published version of a map.
type JSONMapVersion struct {
	Hash        string `json:"hash"`
	State       string `json:"state"`
	DownloadURL string `json:"downloadURL"`
	CoverURL    string `json:"coverURL"`
}

// ErrMissingField is returned by ToMap when a required field is absent.
var ErrMissingField = errors.New("missing required field")

// ToMap converts JSONMap to a model.Map for the given code.
//
// The download location, song name and level author are required; the
// first version carrying a download URL is used.
func (jm *JSONMap) ToMap(id string) (model.Map, error) {
	var version *JSONMapVersion
	for i := range jm.Versions {
		if strings.TrimSpace(jm.Versions[i].DownloadURL) != "" {
			version = &jm.Versions[i]
			break
		}
	}
	if version == nil {
		return model.Map{}, fieldError("downloadURL")
	}
	if jm.Metadata == nil || jm.Metadata.SongName == nil {
		return model.Map{}, fieldError("songName")
	}
	if jm.Metadata.LevelAuthorName == nil {
		return model.Map{}, fieldError("levelAuthorName")
	}

	return model.Map{
		ID:          id,
		Name:        *jm.Metadata.SongName,
		Author:      *jm.Metadata.LevelAuthorName,
		DownloadURL: version.DownloadURL,
		CoverURL:    version.CoverURL,
		Hash:        version.Hash,
	}, nil
}

func fieldError(name string) error {
	return &missingFieldError{name: name}
}

type missingFieldError struct {
	name string
}

func (e *missingFieldError) Error() string {
	return ErrMissingField.Error() + ": " + e.name
}

func (e *missingFieldError) Unwrap() error {
	return ErrMissingField
}
