package model

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/gosimple/slug"
)

// maxDirNameLen is the longest folder name DirName returns, in bytes.
const maxDirNameLen = 200

// Map is a custom level resolved from its code.
//
// A Map is built by the metadata lookup from one code and is consumed once by
// the archive download. It carries everything needed to fetch the level and
// to name its folder:
//   - ID is the short code the user shares
//   - Name and Author are used for display and for the folder name
//   - DownloadURL points at the zip archive
//
// Example:
//
//	m := model.Map{ID: "1a2b3", Name: "Song", Author: "Mapper", DownloadURL: zipURL}
//	fmt.Println(m)                        // 1a2b3 (Song - Mapper)
//	fmt.Println(m.DirName(FolderDisplay)) // 1a2b3 (Song - Mapper)
type Map struct {
	// ID is the code the map was resolved from.
	ID string

	// Name is the song name shown in game.
	Name string

	// Author is the level author (mapper).
	Author string

	// DownloadURL is the location of the zip archive.
	DownloadURL string

	// CoverURL is the location of the cover image, if the API reported one.
	CoverURL string

	// Hash is the version hash, used by playlists.
	Hash string
}

// String returns the display form "id (name - author)".
func (m Map) String() string {
	return fmt.Sprintf("%s (%s - %s)", m.ID, m.Name, m.Author)
}

// FolderStyle selects how map folders are named on disk.
type FolderStyle int

const (
	// FolderDisplay names folders "id (name - author)", the layout the game
	// itself uses for downloaded levels.
	FolderDisplay FolderStyle = iota

	// FolderSlug names folders "id-name-author" in lower case ASCII.
	FolderSlug
)

// ParseFolderStyle maps a settings value to a FolderStyle. Unknown values
// fall back to FolderDisplay.
func ParseFolderStyle(s string) FolderStyle {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "slug":
		return FolderSlug
	default:
		return FolderDisplay
	}
}

// String returns the settings value for the style.
func (fs FolderStyle) String() string {
	if fs == FolderSlug {
		return "slug"
	}
	return "display"
}

// DirName computes the folder name for the map. The result is a single path
// element: it never contains a separator, so joining it to a destination
// directory cannot escape that directory.
func (m Map) DirName(style FolderStyle) string {
	var name string
	switch style {
	case FolderSlug:
		name = slug.Make(fmt.Sprintf("%s %s %s", m.ID, m.Name, m.Author))
	default:
		name = sanitizeFileName(m.String())
	}

	// Limit length for Windows MAX_PATH, cutting on a rune boundary
	if len(name) > maxDirNameLen {
		cut := maxDirNameLen
		for cut > 0 && !utf8.RuneStart(name[cut]) {
			cut--
		}
		name = strings.TrimRight(name[:cut], " .")
	}
	if name == "" || name == "." || name == ".." {
		name = "_" + name
	}
	return name
}

// sanitizeFileName removes or replaces characters that are invalid in file/folder names.
//
// The following transformations are applied:
//   - Invalid characters (<>:"/\|?* and control chars) are replaced with underscore
//   - Trailing dots are removed (Windows limitation)
//   - Multiple whitespace is collapsed to single space
//   - Trailing whitespace is removed
//
// Example:
//
//	sanitizeFileName("Song: Part 1/2") // Returns "Song_ Part 1_2"
func sanitizeFileName(name string) string {
	name = invalidChars.ReplaceAllString(name, "_")
	name = trailingDots.ReplaceAllString(name, "")
	name = whitespace.ReplaceAllString(name, " ")
	return strings.TrimRight(name, " ")
}

var (
	invalidChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	trailingDots = regexp.MustCompile(`\.+$`)
	whitespace   = regexp.MustCompile(`\s+`)
)
