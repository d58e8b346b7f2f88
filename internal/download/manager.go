package download

import (
	"context"
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/handiism/beat-sharer/internal/beatsaver"
	"github.com/handiism/beat-sharer/internal/config"
	"github.com/handiism/beat-sharer/internal/http"
	ioutils "github.com/handiism/beat-sharer/internal/io"
)

// Manager runs download batches.
//
// A Manager holds no per-batch state; every call to Start creates a new
// batch with its own progress handles, so one Manager can serve many
// batches, sequentially or at the same time.
type Manager struct {
	settings *config.Settings
	resolver Resolver
	fetcher  Fetcher
	images   *ioutils.ImageService

	onProgress func(ProgressEvent)
}

// NewManager creates a new download Manager talking to the configured map API.
//
// onProgress may be nil. It is called from several goroutines while a batch
// runs.
func NewManager(settings *config.Settings, onProgress func(ProgressEvent)) *Manager {
	client := beatsaver.NewClient(http.NewClient(settings.UserAgent), settings.MetadataURL, settings.FolderStyle())
	return newManager(settings, client, client, onProgress)
}

func newManager(settings *config.Settings, resolver Resolver, fetcher Fetcher, onProgress func(ProgressEvent)) *Manager {
	return &Manager{
		settings:   settings,
		resolver:   resolver,
		fetcher:    fetcher,
		images:     ioutils.NewImageService(),
		onProgress: onProgress,
	}
}

// Start fetches every code in ids into dest, keeping at most limit maps in
// flight, and returns immediately. The returned Observer reports progress
// and lets the caller change the cap while the batch runs.
//
// Every code is attempted exactly once; duplicates are processed
// independently but never at the same time. Failed maps are listed by
// Observer.Failures and never stop the batch. A task that panics is fatal:
// no further maps are dispatched, running ones are drained and
// Observer.Err reports an ExecutionFault. Cancelling ctx likewise stops
// dispatching and Observer.Err returns the context error.
func (m *Manager) Start(ctx context.Context, ids []string, dest string, limit int) *Observer {
	updater, observer := newBatch(len(ids), limit)
	updater.SetRunning(true)
	go m.run(ctx, slices.Clone(ids), dest, updater)
	return observer
}

// run is the dispatch loop of one batch. It is the only goroutine that
// changes the in-flight and failure lists.
func (m *Manager) run(ctx context.Context, pending []string, dest string, up *Updater) {
	m.progress(ProgressEvent{
		Message: fmt.Sprintf("Batch %s: fetching %d map(s), up to %d at a time", up.BatchID(), len(pending), up.Limit()),
		Level:   LevelInfo,
	})

	// Buffered so a task never blocks on delivering its result.
	results := make(chan result, len(pending))
	active := make(map[string]bool)
	var g errgroup.Group
	stopped := false

	handle := func(r result) {
		delete(active, r.id)
		m.record(up, r)
		if r.fatal != nil {
			stopped = true
		}
	}

	for len(pending) > 0 && !stopped && ctx.Err() == nil {
		for len(active) < up.Limit() {
			i := nextDispatchable(pending, active)
			if i < 0 {
				break
			}
			id := pending[i]
			pending = slices.Delete(pending, i, i+1)

			active[id] = true
			up.AddInFlight(id)
			g.Go(func() error {
				r := m.process(ctx, id, dest, up)
				results <- r
				return r.fatal
			})
		}
		if len(pending) == 0 {
			break
		}

		// At the cap, or every remaining code is already in flight.
		select {
		case r := <-results:
			handle(r)
		case <-up.LimitChanged():
		case <-ctx.Done():
		}
	}

	for len(active) > 0 {
		handle(<-results)
	}

	err := g.Wait()
	if err == nil && len(pending) > 0 {
		err = ctx.Err()
	}
	if err != nil {
		m.progress(ProgressEvent{
			Message: fmt.Sprintf("Batch %s stopped with %d map(s) not attempted: %v", up.BatchID(), len(pending), err),
			Level:   LevelError,
		})
	} else {
		m.progress(ProgressEvent{Message: fmt.Sprintf("Batch %s finished", up.BatchID()), Level: LevelInfo})
	}
	up.Finish(err)
}

// record applies one task outcome to the batch state.
func (m *Manager) record(up *Updater, r result) {
	switch {
	case r.fatal != nil:
		up.RemoveInFlight(r.id)
		m.progress(ProgressEvent{Message: r.fatal.Error(), Level: LevelError})
	case r.err != nil:
		up.Fail(r.id, r.err)
		m.progress(ProgressEvent{Message: fmt.Sprintf("Could not fetch %s: %v", r.id, r.err), Level: LevelError})
	default:
		up.Complete(r.id, r.item)
		m.progress(ProgressEvent{Message: fmt.Sprintf("Downloaded: %s", r.item), Level: LevelSuccess})
	}
}

// nextDispatchable returns the index of the next code to start, taken from
// the end of the queue, skipping codes that are already in flight. It
// returns -1 when nothing can be started.
func nextDispatchable(pending []string, active map[string]bool) int {
	for i := len(pending) - 1; i >= 0; i-- {
		if !active[pending[i]] {
			return i
		}
	}
	return -1
}

// DefaultLimit returns the configured initial concurrency cap.
func (m *Manager) DefaultLimit() int {
	return m.settings.Concurrency()
}

func (m *Manager) progress(event ProgressEvent) {
	if m.onProgress != nil {
		m.onProgress(event)
	}
}
