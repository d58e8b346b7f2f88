package download

import (
	"context"
	"fmt"

	"github.com/handiism/beat-sharer/internal/beatsaver"
	"github.com/handiism/beat-sharer/internal/model"
)

// Resolver turns a map code into its metadata.
type Resolver interface {
	Resolve(ctx context.Context, id string) (model.Map, error)
}

// Fetcher downloads a resolved map and unpacks it below dest.
type Fetcher interface {
	FetchAndUnpack(ctx context.Context, m model.Map, dest string, onProgress func(written, total int64)) error
	Dir(dest string, m model.Map) string
}

// result is the outcome of one task, always tagged with its code.
type result struct {
	id    string
	item  model.Map
	err   error // per-map failure
	fatal error // the task itself broke
}

// process resolves and downloads one map. Errors from either stage are
// returned in the result; a panic is converted into an ExecutionFault.
func (m *Manager) process(ctx context.Context, id, dest string, up *Updater) (r result) {
	r.id = id
	defer func() {
		if p := recover(); p != nil {
			r.err = nil
			r.fatal = model.Errorf(model.KindExecution, "task for %s panicked: %v", id, p)
		}
	}()

	if timeout := m.settings.Timeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	item, err := m.resolver.Resolve(ctx, id)
	if err != nil {
		r.err = err
		return r
	}
	r.item = item
	m.progress(ProgressEvent{Message: fmt.Sprintf("Fetching %s", item), Level: LevelVerbose})

	var last int64
	err = m.fetcher.FetchAndUnpack(ctx, item, dest, func(written, _ int64) {
		up.AddReceived(written - last)
		last = written
	})
	if err != nil {
		r.err = err
		return r
	}

	if m.settings.ResizeCovers {
		m.resizeCover(m.fetcher.Dir(dest, item))
	}
	return r
}

// resizeCover shrinks the cover of a freshly unpacked level. Problems are
// reported as warnings; the map still counts as fetched.
func (m *Manager) resizeCover(levelDir string) {
	cover, err := beatsaver.CoverPath(levelDir)
	if err != nil {
		m.progress(ProgressEvent{Message: fmt.Sprintf("Could not locate cover in %s: %v", levelDir, err), Level: LevelWarning})
		return
	}
	if cover == "" {
		return
	}

	resized, err := m.images.ResizeFile(cover, m.settings.CoverMaxSize)
	if err != nil {
		m.progress(ProgressEvent{Message: fmt.Sprintf("Could not resize cover %s: %v", cover, err), Level: LevelWarning})
		return
	}
	if resized {
		m.progress(ProgressEvent{Message: fmt.Sprintf("Resized cover %s", cover), Level: LevelVerbose})
	}
}
