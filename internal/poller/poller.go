// Package poller watches a single job until it reaches a terminal status.
package poller

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/fedutinova/vidshelf/internal/job"
	"github.com/google/uuid"
)

type State string

const (
	StateIdle            State = "idle"
	StatePolling         State = "polling"
	StateStoppedSuccess  State = "stopped-success"
	StateStoppedFailure  State = "stopped-failure"
	StateStoppedExternal State = "stopped-external"
)

const DefaultInterval = 4 * time.Second

var ErrAlreadyStarted = errors.New("poller already started")

type JobGetter interface {
	GetJob(ctx context.Context, id uuid.UUID) (*job.Job, error)
}

// Options holds the observer callbacks. All of them run on the poller's
// goroutine and may be nil.
type Options struct {
	Interval time.Duration
	// OnStatus sees every job read, terminal ones included.
	OnStatus func(j *job.Job)
	// OnSuccess runs once the job completed, so the caller can mark the
	// target as having a transcript.
	OnSuccess func(j *job.Job)
	// OnFailure receives errorDetail exactly as stored.
	OnFailure func(j *job.Job, detail string)
	// OnStopped runs last, whatever the reason.
	OnStopped func(state State, err error)
}

type Poller struct {
	getter JobGetter
	id     uuid.UUID
	opts   Options

	mu     sync.Mutex
	state  State
	err    error
	last   *job.Job
	cancel context.CancelFunc
	done   chan struct{}
}

func New(getter JobGetter, id uuid.UUID, opts Options) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	return &Poller{
		getter: getter,
		id:     id,
		opts:   opts,
		state:  StateIdle,
		done:   make(chan struct{}),
	}
}

// Start begins polling in the background. The first read happens one
// interval after Start. Cancelling ctx has the same effect as Stop.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateIdle {
		return ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.state = StatePolling
	go p.run(ctx)
	return nil
}

// Stop cancels the ticker and any in-flight read. It does not wait; use Done
// for that. Stopping an idle poller moves it straight to stopped-external.
func (p *Poller) Stop() {
	p.mu.Lock()
	switch p.state {
	case StateIdle:
		p.state = StateStoppedExternal
		close(p.done)
		p.mu.Unlock()
		return
	case StatePolling:
		p.cancel()
	}
	p.mu.Unlock()
}

func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Err returns the read error that stopped the poller, or the context error
// after a teardown.
func (p *Poller) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Job returns the most recent job read, or nil before the first poll.
func (p *Poller) Job() *job.Job {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

func (p *Poller) Done() <-chan struct{} {
	return p.done
}

func (p *Poller) run(ctx context.Context) {
	ticker := time.NewTicker(p.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.finish(StateStoppedExternal, ctx.Err())
			return
		case <-ticker.C:
		}

		if state, err := p.poll(ctx); state != StatePolling {
			p.finish(state, err)
			return
		}
	}
}

// poll reads the job once and returns the state the poller should be in next.
func (p *Poller) poll(ctx context.Context) (State, error) {
	j, err := p.getter.GetJob(ctx, p.id)
	if err != nil {
		if ctx.Err() != nil {
			return StateStoppedExternal, ctx.Err()
		}
		slog.Warn("job poll failed", "job_id", p.id, "error", err)
		return StateStoppedExternal, err
	}

	p.mu.Lock()
	p.last = j
	p.mu.Unlock()

	if p.opts.OnStatus != nil {
		p.opts.OnStatus(j)
	}

	switch j.Status {
	case job.StatusCompleted:
		if p.opts.OnSuccess != nil {
			p.opts.OnSuccess(j)
		}
		return StateStoppedSuccess, nil
	case job.StatusFailed:
		detail := ""
		if j.ErrorDetail != nil {
			detail = *j.ErrorDetail
		}
		if p.opts.OnFailure != nil {
			p.opts.OnFailure(j, detail)
		}
		return StateStoppedFailure, nil
	}
	return StatePolling, nil
}

func (p *Poller) finish(state State, err error) {
	p.mu.Lock()
	p.state = state
	p.err = err
	p.cancel()
	p.mu.Unlock()

	slog.Debug("poller stopped", "job_id", p.id, "state", state)
	if p.opts.OnStopped != nil {
		p.opts.OnStopped(state, err)
	}
	close(p.done)
}
