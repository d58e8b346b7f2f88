// Package download runs batches of map downloads.
//
// # Manager
//
// Manager.Start takes a list of map codes and fetches them in the
// background. For every code it:
//
//  1. Resolves the code to its metadata (name, author, archive URL)
//  2. Downloads the archive
//  3. Unpacks it into a new folder below the destination directory
//  4. Optionally shrinks the cover image
//
// # Basic Usage
//
//	manager := download.NewManager(settings, func(event download.ProgressEvent) {
//	    fmt.Println(event.Message)
//	})
//
//	observer := manager.Start(ctx, []string{"1a2b", "3c4d"}, settings.CustomLevelsPath, manager.DefaultLimit())
//	<-observer.Done()
//	if err := observer.Err(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Concurrency
//
// At most Observer.Limit maps are fetched at once. The cap may be changed
// with Observer.SetLimit while the batch runs: raising it starts more
// downloads right away, lowering it only delays new ones.
//
// # Progress Tracking
//
// The Observer exposes counters and snapshots that can be polled from any
// goroutine. Human readable messages are also sent to the callback passed
// to NewManager:
//
//	type ProgressEvent struct {
//	    Message string
//	    Level   ProgressLevel // Info, Verbose, Warning, Error, Success
//	}
package download
