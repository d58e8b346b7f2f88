// Package config provides configuration management for beat-sharer.
//
// This package handles:
//   - Loading and saving settings from JSON or YAML files
//   - Environment overrides (BEATSHARER_* variables)
//   - Default configuration values
//
// # Default Settings
//
//	settings := config.DefaultSettings()
//	// Levels go to the current directory
//	// Concurrency cap is 2x the logical CPUs
//	// Codes already present locally are skipped
//
// # Loading from File
//
//	settings, err := config.Load(config.DefaultPath())
//	if err != nil {
//	    // Uses defaults if file doesn't exist
//	}
//
// # Environment
//
// The list store auth token is never stored in the settings file; it is
// read from BEATSHARER_SECRET. Other useful variables:
//
//	BEATSHARER_LIST_URL      list store base URL
//	BEATSHARER_LEVELS_PATH   CustomLevels folder
//	BEATSHARER_MAX_CONCURRENT initial concurrency cap
package config
