// go-batgps
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-batgps.
//
// go-batgps is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-batgps is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-batgps; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

// Package worker runs long logger operations off the caller's goroutine.
// Jobs are identified by UUIDs so they can be looked up later, e.g. by the
// HTTP job status endpoint.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultRetention is how many finished jobs a pool keeps for Lookup
const DefaultRetention = 64

var (
	// ErrPoolClosed is returned by Submit after Close
	ErrPoolClosed = errors.New("worker pool closed")
	// ErrQueueFull is returned when the job queue has no free slot
	ErrQueueFull = errors.New("worker queue full")
)

// Status is the lifecycle position of a job
type Status string

const (
	StatusQueued  Status = "queued"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// Func is the work a job performs
type Func func() error

// Future is the handle of a submitted job
type Future struct {
	err      error
	done     chan struct{}
	started  time.Time
	finished time.Time
	id       string
	name     string
	status   Status
	mu       sync.Mutex
}

// ID returns the job id
func (f *Future) ID() string { return f.id }

// Name returns the job name given to Submit
func (f *Future) Name() string { return f.name }

// Done is closed when the job has finished
func (f *Future) Done() <-chan struct{} { return f.done }

// Wait blocks until the job finishes or ctx ends. A cancelled wait does not
// stop the job.
func (f *Future) Wait(ctx context.Context) error {
	select {
	case <-f.done:
		return f.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err returns the job error once finished
func (f *Future) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Snapshot is a point-in-time view of a job
type Snapshot struct {
	Started  time.Time `json:"started,omitempty"`
	Finished time.Time `json:"finished,omitempty"`
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Status   Status    `json:"status"`
	Error    string    `json:"error,omitempty"`
}

// Snapshot returns the current job state
func (f *Future) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := Snapshot{
		ID:       f.id,
		Name:     f.name,
		Status:   f.status,
		Started:  f.started,
		Finished: f.finished,
	}
	if f.err != nil {
		s.Error = f.err.Error()
	}
	return s
}

func (f *Future) setRunning() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = StatusRunning
	f.started = time.Now()
}

func (f *Future) finish(err error) {
	f.mu.Lock()
	f.err = err
	f.finished = time.Now()
	if err != nil {
		f.status = StatusFailed
	} else {
		f.status = StatusDone
	}
	f.mu.Unlock()
	close(f.done)
}

type job struct {
	future *Future
	fn     Func
}

// Pool runs jobs on a fixed number of goroutines
type Pool struct {
	logger   *zap.Logger
	queue    chan job
	jobs     map[string]*Future
	finished []string // ids of finished jobs still in jobs, oldest first
	wg       sync.WaitGroup
	retain   int
	mu       sync.RWMutex
	closed   bool
}

// NewPool starts workers goroutines serving a queue of queueSize jobs
func NewPool(workers, queueSize int, logger *zap.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &Pool{
		logger: logger,
		queue:  make(chan job, queueSize),
		jobs:   make(map[string]*Future),
		retain: DefaultRetention,
	}

	logger.Info("starting worker pool", zap.Int("worker_count", workers), zap.Int("queue_size", queueSize))
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker(i + 1)
	}
	return p
}

// Submit queues fn under name and returns its future
func (p *Pool) Submit(name string, fn Func) (*Future, error) {
	if fn == nil {
		return nil, errors.New("nil job function")
	}

	f := &Future{
		id:     uuid.NewString(),
		name:   name,
		status: StatusQueued,
		done:   make(chan struct{}),
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrPoolClosed
	}

	select {
	case p.queue <- job{future: f, fn: fn}:
	default:
		return nil, fmt.Errorf("%w: cannot queue %s", ErrQueueFull, name)
	}
	p.jobs[f.id] = f

	p.logger.Debug("job queued", zap.String("job_id", f.id), zap.String("job", name))
	return f, nil
}

// SetRetention sets how many finished jobs stay available to Lookup.
// Queued and running jobs are always kept. n < 1 restores DefaultRetention.
func (p *Pool) SetRetention(n int) {
	if n < 1 {
		n = DefaultRetention
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.retain = n
	p.evictLocked()
}

// Lookup returns the future of a job submitted to this pool
func (p *Pool) Lookup(id string) (*Future, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	f, ok := p.jobs[id]
	return f, ok
}

// Close stops accepting jobs and waits for queued ones to finish
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
	p.logger.Info("worker pool stopped")
}

func (p *Pool) worker(workerID int) {
	defer p.wg.Done()
	logger := p.logger.With(zap.Int("worker_id", workerID))

	for j := range p.queue {
		p.run(j, logger)
	}
}

func (p *Pool) run(j job, logger *zap.Logger) {
	f := j.future
	f.setRunning()
	logger.Debug("job started", zap.String("job_id", f.id), zap.String("job", f.name))

	err := safeCall(j.fn)
	f.finish(err)
	p.retire(f.id)

	if err != nil {
		logger.Warn("job failed", zap.String("job_id", f.id), zap.String("job", f.name), zap.Error(err))
		return
	}
	logger.Info("job finished", zap.String("job_id", f.id), zap.String("job", f.name),
		zap.Duration("elapsed", f.finished.Sub(f.started)))
}

// retire records a finished job and forgets the oldest ones beyond the retention
func (p *Pool) retire(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.finished = append(p.finished, id)
	p.evictLocked()
}

func (p *Pool) evictLocked() {
	for len(p.finished) > p.retain {
		delete(p.jobs, p.finished[0])
		p.finished = p.finished[1:]
	}
}

func safeCall(fn Func) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return fn()
}
