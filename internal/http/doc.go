// Package http provides the HTTP client used for the map API and the list
// store.
//
// The Client in this package handles:
//   - User-Agent headers
//   - In-memory downloads with progress tracking
//   - JSON PUT requests
//   - Timeout handling
//
// Non-2xx responses are returned as *StatusError so callers can tell a
// missing resource (404) from a transport failure.
//
// # Progress Tracking
//
// The ProgressWriter type can be used to wrap any io.Writer for progress tracking:
//
//	pw := &http.ProgressWriter{
//	    Writer:   &buf,
//	    Total:    contentLength,
//	    OnUpdate: func(written, total int64) { /* update counters */ },
//	}
package http
