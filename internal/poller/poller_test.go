package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/fedutinova/vidshelf/internal/common"
	"github.com/fedutinova/vidshelf/internal/job"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedGetter returns the scripted statuses in order and then repeats the last one.
type scriptedGetter struct {
	mu       sync.Mutex
	statuses []job.Status
	detail   string
	err      error
	calls    int
}

func (g *scriptedGetter) GetJob(ctx context.Context, id uuid.UUID) (*job.Job, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	i := g.calls - 1
	if i >= len(g.statuses) {
		i = len(g.statuses) - 1
	}
	j := &job.Job{ID: id, TargetID: "abc123", Kind: job.KindTranscribe, Status: g.statuses[i]}
	j.ErrorDetail = job.ErrorDetailFor(j.Status, g.detail)
	return j, nil
}

func (g *scriptedGetter) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

type observer struct {
	mu       sync.Mutex
	statuses []job.Status
	success  int
	detail   string
	failures int
	stopped  []State
}

func (o *observer) options(interval time.Duration) Options {
	return Options{
		Interval: interval,
		OnStatus: func(j *job.Job) {
			o.mu.Lock()
			o.statuses = append(o.statuses, j.Status)
			o.mu.Unlock()
		},
		OnSuccess: func(j *job.Job) {
			o.mu.Lock()
			o.success++
			o.mu.Unlock()
		},
		OnFailure: func(j *job.Job, detail string) {
			o.mu.Lock()
			o.failures++
			o.detail = detail
			o.mu.Unlock()
		},
		OnStopped: func(state State, err error) {
			o.mu.Lock()
			o.stopped = append(o.stopped, state)
			o.mu.Unlock()
		},
	}
}

func waitDone(t *testing.T, p *Poller) {
	t.Helper()
	select {
	case <-p.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("poller did not stop")
	}
}

func TestPoller_Success(t *testing.T) {
	g := &scriptedGetter{statuses: []job.Status{
		job.StatusPending, job.StatusDownloading, job.StatusTranscribing, job.StatusCompleted,
	}}
	o := &observer{}
	p := New(g, uuid.New(), o.options(5*time.Millisecond))
	assert.Equal(t, StateIdle, p.State())

	require.NoError(t, p.Start(context.Background()))
	waitDone(t, p)

	assert.Equal(t, StateStoppedSuccess, p.State())
	assert.NoError(t, p.Err())
	assert.Equal(t, []job.Status{
		job.StatusPending, job.StatusDownloading, job.StatusTranscribing, job.StatusCompleted,
	}, o.statuses)
	assert.Equal(t, 1, o.success)
	assert.Zero(t, o.failures)
	assert.Equal(t, []State{StateStoppedSuccess}, o.stopped)
	assert.Equal(t, job.StatusCompleted, p.Job().Status)

	calls := g.Calls()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, g.Calls(), "no reads after a terminal status")
}

func TestPoller_FailureSurfacesDetailVerbatim(t *testing.T) {
	g := &scriptedGetter{
		statuses: []job.Status{job.StatusDownloading, job.StatusFailed},
		detail:   "ERROR: [youtube] abc123: Video unavailable",
	}
	o := &observer{}
	p := New(g, uuid.New(), o.options(5*time.Millisecond))

	require.NoError(t, p.Start(context.Background()))
	waitDone(t, p)

	assert.Equal(t, StateStoppedFailure, p.State())
	assert.Equal(t, "ERROR: [youtube] abc123: Video unavailable", o.detail)
	assert.Zero(t, o.success)
}

func TestPoller_ReadErrorStopsExternally(t *testing.T) {
	g := &scriptedGetter{err: fmt.Errorf("job: %w", common.ErrNotFound)}
	o := &observer{}
	p := New(g, uuid.New(), o.options(5*time.Millisecond))

	require.NoError(t, p.Start(context.Background()))
	waitDone(t, p)

	assert.Equal(t, StateStoppedExternal, p.State())
	assert.True(t, common.IsNotFound(p.Err()))
	assert.Equal(t, 1, g.Calls())
	assert.Empty(t, o.statuses)
}

func TestPoller_StopCancelsTimer(t *testing.T) {
	g := &scriptedGetter{statuses: []job.Status{job.StatusTranscribing}}
	o := &observer{}
	p := New(g, uuid.New(), o.options(5*time.Millisecond))

	require.NoError(t, p.Start(context.Background()))
	require.Eventually(t, func() bool { return g.Calls() >= 2 }, 5*time.Second, time.Millisecond)

	p.Stop()
	waitDone(t, p)
	assert.Equal(t, StateStoppedExternal, p.State())
	assert.True(t, errors.Is(p.Err(), context.Canceled))

	calls := g.Calls()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, g.Calls())
	assert.Equal(t, []State{StateStoppedExternal}, o.stopped)

	p.Stop()
}

func TestPoller_ParentContextCancel(t *testing.T) {
	g := &scriptedGetter{statuses: []job.Status{job.StatusPending}}
	p := New(g, uuid.New(), Options{Interval: 5 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, p.Start(ctx))
	cancel()
	waitDone(t, p)
	assert.Equal(t, StateStoppedExternal, p.State())
}

func TestPoller_StopBeforeStart(t *testing.T) {
	p := New(&scriptedGetter{}, uuid.New(), Options{})
	p.Stop()
	waitDone(t, p)
	assert.Equal(t, StateStoppedExternal, p.State())
	assert.ErrorIs(t, p.Start(context.Background()), ErrAlreadyStarted)
}

func TestPoller_StartTwice(t *testing.T) {
	g := &scriptedGetter{statuses: []job.Status{job.StatusPending}}
	p := New(g, uuid.New(), Options{Interval: time.Hour})
	require.NoError(t, p.Start(context.Background()))
	defer p.Stop()
	assert.ErrorIs(t, p.Start(context.Background()), ErrAlreadyStarted)
}

func TestPoller_DefaultInterval(t *testing.T) {
	p := New(&scriptedGetter{}, uuid.New(), Options{})
	assert.Equal(t, DefaultInterval, p.opts.Interval)
}

func TestPoller_IndependentPollers(t *testing.T) {
	slow := &scriptedGetter{statuses: []job.Status{job.StatusTranscribing}}
	fast := &scriptedGetter{statuses: []job.Status{job.StatusDownloading, job.StatusCompleted}}

	a := New(slow, uuid.New(), Options{Interval: 5 * time.Millisecond})
	b := New(fast, uuid.New(), Options{Interval: 5 * time.Millisecond})
	require.NoError(t, a.Start(context.Background()))
	require.NoError(t, b.Start(context.Background()))

	a.Stop()
	waitDone(t, a)
	waitDone(t, b)

	assert.Equal(t, StateStoppedExternal, a.State())
	assert.Equal(t, StateStoppedSuccess, b.State())
}
