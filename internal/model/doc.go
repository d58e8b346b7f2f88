// Package model defines the core data structures shared by the
// beat-sharer packages.
//
// # Map
//
// Map is a custom level resolved from its short code:
//
//	m := model.Map{ID: "1a2b3", Name: "Song", Author: "Mapper", DownloadURL: zipURL}
//	dir := filepath.Join(levelsPath, m.DirName(model.FolderDisplay))
//	// levelsPath/1a2b3 (Song - Mapper)
//
// # Codes
//
// CodeFromDirName and ScanCodes recover codes from folders that were created
// by a previous download, so a levels directory can be shared again.
//
// # Errors
//
// Every fetch stage returns *Error with one of a closed set of kinds
// (TransportFailed, TextDecodeFailed, ItemNotFound, IOFailed, UnzipFailed,
// ExecutionFault). Use KindOf or errors.Is with the Err* sentinels:
//
//	if errors.Is(err, model.ErrUnzipFailed) {
//	    // archive was corrupt
//	}
package model
