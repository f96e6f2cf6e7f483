package planner

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/prodplan/internal/eventbus"
)

// EventKind is the lifecycle step of a run.
type EventKind string

const (
	EventStarted   EventKind = "started"
	EventCompleted EventKind = "completed"
	EventFailed    EventKind = "failed"
)

// Event is published on the runner bus for every lifecycle step.
type Event struct {
	RunID  string
	Kind   EventKind
	Time   time.Time
	Result *Result
	Err    error
}

var (
	// ErrRunnerClosed is returned by Start after Close.
	ErrRunnerClosed = errors.New("planner: runner closed")
	// ErrUnknownRun is returned by Wait for an id the runner never issued.
	ErrUnknownRun = errors.New("planner: unknown run")
)

// DefaultRetention is the number of finished outcomes a runner keeps.
const DefaultRetention = 256

type pending struct {
	done chan struct{}
	res  *Result
	err  error
	// detached runs are dropped as soon as they finish.
	detached bool
}

// Runner executes plans asynchronously and publishes their lifecycle events.
type Runner struct {
	planner *Planner
	bus     *eventbus.TypedBus[Event]

	mu        sync.Mutex
	runs      map[string]*pending
	finished  []string // ids of retained finished runs, oldest first
	retention int
	closed    bool
	wg        sync.WaitGroup
}

// NewRunner returns a runner publishing on bus. A nil bus gets a private one.
func NewRunner(p *Planner, bus *eventbus.TypedBus[Event]) *Runner {
	if bus == nil {
		bus = eventbus.NewTyped[Event]()
	}
	return &Runner{planner: p, bus: bus, runs: make(map[string]*pending), retention: DefaultRetention}
}

// SetRetention bounds the number of finished outcomes kept for Wait and
// Lookup. The oldest outcomes are evicted first. Zero keeps none.
func (r *Runner) SetRetention(n int) {
	if n < 0 {
		n = 0
	}
	r.mu.Lock()
	r.retention = n
	r.evictLocked()
	r.mu.Unlock()
}

func (r *Runner) evictLocked() {
	for len(r.finished) > r.retention {
		delete(r.runs, r.finished[0])
		r.finished = r.finished[1:]
	}
}

// Start launches req on its own goroutine and returns its run id. The
// outcome stays available to Wait and Lookup until it is forgotten or evicted.
func (r *Runner) Start(ctx context.Context, req Request) (string, error) {
	id, _, err := r.start(ctx, req, false)
	return id, err
}

// Run executes req and waits for its outcome, which is not retained. When ctx
// ends first the run carries on and is dropped once it finishes.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	_, pr, err := r.start(ctx, req, true)
	if err != nil {
		return nil, err
	}
	select {
	case <-pr.done:
		return pr.res, pr.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *Runner) start(ctx context.Context, req Request, detached bool) (string, *pending, error) {
	id := uuid.NewString()
	pr := &pending{done: make(chan struct{}), detached: detached}
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return "", nil, ErrRunnerClosed
	}
	r.runs[id] = pr
	r.wg.Add(1)
	r.mu.Unlock()

	r.bus.Publish(Event{RunID: id, Kind: EventStarted, Time: time.Now()})
	go func() {
		defer r.wg.Done()
		res, err := r.planner.run(ctx, id, req)
		pr.res, pr.err = res, err

		r.mu.Lock()
		if pr.detached {
			delete(r.runs, id)
		} else {
			r.finished = append(r.finished, id)
			r.evictLocked()
		}
		r.mu.Unlock()
		close(pr.done)

		ev := Event{RunID: id, Kind: EventCompleted, Time: time.Now(), Result: res, Err: err}
		if err != nil {
			ev.Kind = EventFailed
		}
		r.bus.Publish(ev)
	}()
	return id, pr, nil
}

// Wait blocks until the run finishes or ctx is done.
func (r *Runner) Wait(ctx context.Context, runID string) (*Result, error) {
	r.mu.Lock()
	pr, ok := r.runs[runID]
	r.mu.Unlock()
	if !ok {
		return nil, ErrUnknownRun
	}
	select {
	case <-pr.done:
		return pr.res, pr.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// RunState is a snapshot of a run known to the runner.
type RunState struct {
	Done   bool
	Result *Result
	Err    error
}

// Lookup reports the state of runID without blocking.
func (r *Runner) Lookup(runID string) (RunState, bool) {
	r.mu.Lock()
	pr, ok := r.runs[runID]
	r.mu.Unlock()
	if !ok {
		return RunState{}, false
	}
	select {
	case <-pr.done:
		return RunState{Done: true, Result: pr.res, Err: pr.err}, true
	default:
		return RunState{}, true
	}
}

// Forget drops the stored outcome of a finished run.
func (r *Runner) Forget(runID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if pr, ok := r.runs[runID]; ok {
		select {
		case <-pr.done:
			delete(r.runs, runID)
			if i := slices.Index(r.finished, runID); i >= 0 {
				r.finished = slices.Delete(r.finished, i, i+1)
			}
		default:
		}
	}
}

// Subscribe returns a channel receiving lifecycle events.
func (r *Runner) Subscribe() <-chan Event { return r.bus.Subscribe() }

// Unsubscribe removes a subscriber.
func (r *Runner) Unsubscribe(ch <-chan Event) { r.bus.Unsubscribe(ch) }

// Close refuses new runs, waits for the running ones and closes the bus.
func (r *Runner) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.mu.Unlock()
	r.wg.Wait()
	r.bus.Close()
}
