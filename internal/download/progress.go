package download

import (
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/handiism/beat-sharer/internal/model"
)

// ProgressLevel indicates the severity/type of a progress message.
type ProgressLevel int

const (
	LevelInfo ProgressLevel = iota
	LevelVerbose
	LevelWarning
	LevelError
	LevelSuccess
)

// ProgressEvent represents a download progress update.
type ProgressEvent struct {
	Message string
	Level   ProgressLevel
}

// Failure is a map that could not be fetched.
type Failure struct {
	ID  string
	Err error
}

// Kind returns the classification of the failure.
func (f Failure) Kind() model.ErrorKind {
	return model.KindOf(f.Err)
}

// batchState is shared by the Updater and Observer of one batch.
//
// Counters and flags are atomics; the two lists are guarded by mu, which is
// only held for in-memory copies and never across I/O.
type batchState struct {
	id    string
	total int

	completed atomic.Int64
	received  atomic.Int64
	limit     atomic.Int64
	running   atomic.Bool

	limitChanged chan struct{}
	done         chan struct{}

	mu       sync.RWMutex
	inFlight []string
	failures []Failure
	finished []model.Map
	err      error
}

// newBatch creates the shared state for a batch of total maps and returns
// its two handles.
func newBatch(total, limit int) (*Updater, *Observer) {
	s := &batchState{
		id:           uuid.NewString(),
		total:        total,
		limitChanged: make(chan struct{}, 1),
		done:         make(chan struct{}),
	}
	s.limit.Store(int64(max(limit, 1)))
	return &Updater{s: s}, &Observer{s: s}
}

// Updater is the write side of a batch's progress. Only the Manager and the
// tasks it starts hold one.
type Updater struct {
	s *batchState
}

// BatchID returns the batch identifier.
func (u *Updater) BatchID() string {
	return u.s.id
}

// AddInFlight marks id as dispatched.
func (u *Updater) AddInFlight(id string) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	u.s.inFlight = append(u.s.inFlight, id)
}

// Complete moves id from the in-flight list to the finished maps.
func (u *Updater) Complete(id string, m model.Map) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	u.s.removeInFlight(id)
	u.s.finished = append(u.s.finished, m)
	u.s.completed.Add(1)
}

// Fail moves id from the in-flight list to the failures.
func (u *Updater) Fail(id string, err error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	u.s.removeInFlight(id)
	u.s.failures = append(u.s.failures, Failure{ID: id, Err: err})
}

// RemoveInFlight drops id from the in-flight list without recording an
// outcome.
func (u *Updater) RemoveInFlight(id string) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	u.s.removeInFlight(id)
}

// removeInFlight removes one occurrence of id. mu must be held.
func (s *batchState) removeInFlight(id string) {
	if i := slices.Index(s.inFlight, id); i >= 0 {
		s.inFlight = slices.Delete(s.inFlight, i, i+1)
	}
}

// AddReceived adds n downloaded bytes.
func (u *Updater) AddReceived(n int64) {
	u.s.received.Add(n)
}

// Limit reads the current concurrency cap.
func (u *Updater) Limit() int {
	return int(u.s.limit.Load())
}

// LimitChanged is signalled whenever the Observer changes the cap.
func (u *Updater) LimitChanged() <-chan struct{} {
	return u.s.limitChanged
}

// SetRunning sets the batch running flag.
func (u *Updater) SetRunning(running bool) {
	u.s.running.Store(running)
}

// Finish ends the batch. err is nil unless the batch was cut short by a
// fatal fault or cancellation. Finish must be called exactly once.
func (u *Updater) Finish(err error) {
	u.s.mu.Lock()
	u.s.err = err
	u.s.mu.Unlock()
	u.SetRunning(false)
	close(u.s.done)
}

// Observer is the read side of a batch's progress. It is safe to poll from
// any goroutine at any rate while the batch runs.
type Observer struct {
	s *batchState
}

// BatchID returns a unique identifier for the batch.
func (o *Observer) BatchID() string {
	return o.s.id
}

// Total returns the number of maps submitted.
func (o *Observer) Total() int {
	return o.s.total
}

// Completed returns the number of maps fetched successfully.
func (o *Observer) Completed() int {
	return int(o.s.completed.Load())
}

// Received returns the number of archive bytes downloaded so far.
func (o *Observer) Received() int64 {
	return o.s.received.Load()
}

// InFlight returns a snapshot of the codes currently being fetched.
func (o *Observer) InFlight() []string {
	o.s.mu.RLock()
	defer o.s.mu.RUnlock()
	return slices.Clone(o.s.inFlight)
}

// Failures returns a snapshot of the failed maps, in the order they failed.
func (o *Observer) Failures() []Failure {
	o.s.mu.RLock()
	defer o.s.mu.RUnlock()
	return slices.Clone(o.s.failures)
}

// Finished returns a snapshot of the maps fetched successfully.
func (o *Observer) Finished() []model.Map {
	o.s.mu.RLock()
	defer o.s.mu.RUnlock()
	return slices.Clone(o.s.finished)
}

// Snapshot is a consistent view of a batch's lists.
type Snapshot struct {
	Completed int
	InFlight  []string
	Failures  []Failure
	Finished  []model.Map
}

// Snapshot returns the counters and lists as of one instant. A code is
// never both in flight and finished or failed in the same snapshot.
func (o *Observer) Snapshot() Snapshot {
	o.s.mu.RLock()
	defer o.s.mu.RUnlock()
	return Snapshot{
		Completed: int(o.s.completed.Load()),
		InFlight:  slices.Clone(o.s.inFlight),
		Failures:  slices.Clone(o.s.failures),
		Finished:  slices.Clone(o.s.finished),
	}
}

// Limit returns the current concurrency cap.
func (o *Observer) Limit() int {
	return int(o.s.limit.Load())
}

// SetLimit changes the concurrency cap. Values below 1 are raised to 1.
// The new cap applies to future dispatch decisions; running downloads are
// never interrupted.
func (o *Observer) SetLimit(n int) {
	o.s.limit.Store(int64(max(n, 1)))
	select {
	case o.s.limitChanged <- struct{}{}:
	default:
	}
}

// Downloading reports whether the batch is still running.
func (o *Observer) Downloading() bool {
	return o.s.running.Load()
}

// Done is closed when the batch has finished.
func (o *Observer) Done() <-chan struct{} {
	return o.s.done
}

// Err returns the batch level error once the batch has finished: an
// ExecutionFault or the context error if the batch was cancelled. Failures
// of individual maps are reported by Failures, not here.
func (o *Observer) Err() error {
	o.s.mu.RLock()
	defer o.s.mu.RUnlock()
	return o.s.err
}
