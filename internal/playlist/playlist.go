// Package playlist writes game playlists for a set of fetched maps.
package playlist

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gosimple/slug"

	"github.com/handiism/beat-sharer/internal/model"
)

// Extension is the file extension the game loads playlists from.
const Extension = ".bplist"

// document is the on-disk playlist layout.
type document struct {
	PlaylistTitle       string `json:"playlistTitle"`
	PlaylistAuthor      string `json:"playlistAuthor"`
	PlaylistDescription string `json:"playlistDescription,omitempty"`
	Image               string `json:"image,omitempty"`
	Songs               []song `json:"songs"`
}

type song struct {
	Key             string `json:"key"`
	Hash            string `json:"hash,omitempty"`
	SongName        string `json:"songName"`
	LevelAuthorName string `json:"levelAuthorName"`
}

// Creator builds playlists.
//
// Example:
//
//	creator := NewCreator("Shared songs", "beat-sharer")
//	path, err := creator.Write(settings.PlaylistDirectory(), observer.Finished())
//
//	// Result (Playlists/shared-songs.bplist):
//	// {
//	//   "playlistTitle": "Shared songs",
//	//   "playlistAuthor": "beat-sharer",
//	//   "songs": [{"key": "1a2b", "hash": "...", "songName": "...", "levelAuthorName": "..."}]
//	// }
type Creator struct {
	title       string
	author      string
	description string
}

// NewCreator creates a Creator for playlists named title.
func NewCreator(title, author string) *Creator {
	return &Creator{title: title, author: author}
}

// WithDescription sets the playlist description.
func (c *Creator) WithDescription(description string) *Creator {
	c.description = description
	return c
}

// Create renders the playlist for maps. Duplicate codes are listed once, in
// first-seen order.
func (c *Creator) Create(maps []model.Map) ([]byte, error) {
	doc := document{
		PlaylistTitle:       c.title,
		PlaylistAuthor:      c.author,
		PlaylistDescription: c.description,
		Songs:               make([]song, 0, len(maps)),
	}

	seen := make(map[string]bool, len(maps))
	for _, m := range maps {
		if seen[m.ID] {
			continue
		}
		seen[m.ID] = true
		doc.Songs = append(doc.Songs, song{
			Key:             m.ID,
			Hash:            m.Hash,
			SongName:        m.Name,
			LevelAuthorName: m.Author,
		})
	}

	return json.MarshalIndent(doc, "", "  ")
}

// FileName returns the playlist file name derived from the title.
func (c *Creator) FileName() string {
	name := slug.Make(c.title)
	if name == "" {
		name = "playlist"
	}
	return name + Extension
}

// Write renders the playlist for maps into dir, creating dir if needed, and
// returns the written path. An existing playlist with the same name is
// replaced.
func (c *Creator) Write(dir string, maps []model.Map) (string, error) {
	data, err := c.Create(maps)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", model.NewError(model.KindIO, err)
	}

	path := filepath.Join(dir, c.FileName())
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", model.NewError(model.KindIO, fmt.Errorf("write playlist: %w", err))
	}
	return path, nil
}
