package model

import (
	"os"
	"strings"
)

// MaxCodeLength is the longest folder prefix still treated as a map code.
const MaxCodeLength = 5

// CodeFromDirName extracts the map code from a level folder name.
//
// Both folder styles are recognised: "1a2b3 (Song - Mapper)" and
// "1a2b3-song-mapper". The second return value is false when the name does
// not look like a downloaded level.
func CodeFromDirName(name string) (string, bool) {
	end := strings.Index(name, " (")
	if end == -1 {
		end = strings.Index(name, "-")
	}
	if end <= 0 || end > MaxCodeLength {
		return "", false
	}
	return name[:end], true
}

// ScanCodes lists the codes of all levels found directly under dir.
// Entries that are not directories or do not carry a code are ignored.
func ScanCodes(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	codes := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if code, ok := CodeFromDirName(entry.Name()); ok {
			codes = append(codes, code)
		}
	}
	return codes, nil
}
