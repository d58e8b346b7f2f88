// Package beatsaver talks to the public map API.
//
// The package covers the two remote steps of fetching a level:
//
//  1. Resolve turns a short code into a model.Map (song name, level author,
//     archive location)
//  2. FetchAndUnpack downloads the archive and expands it into a new folder
//
// # Map Document
//
// GET {base}/maps/id/{code} returns a JSON document. Only three fields are
// read, through a fixed schema in package dto:
//
//	{
//	  "metadata": {"songName": "...", "levelAuthorName": "..."},
//	  "versions": [{"downloadURL": "...", "coverURL": "...", "hash": "..."}]
//	}
//
// A document lacking any of them is reported as ItemNotFound.
//
// # Folder Layout
//
// Levels are unpacked into "code (song - author)" (or the slug style) below
// the destination directory. CoverPath reads the level's info file to locate
// its cover image.
package beatsaver
