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

package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_SubmitAndWait(t *testing.T) {
	t.Parallel()

	pool := NewPool(2, 4, nil)
	defer pool.Close()

	f, err := pool.Submit("erase", func() error { return nil })
	require.NoError(t, err)

	_, parseErr := uuid.Parse(f.ID())
	require.NoError(t, parseErr, "job ids are UUIDs")
	assert.Equal(t, "erase", f.Name())

	require.NoError(t, f.Wait(context.Background()))
	snap := f.Snapshot()
	assert.Equal(t, StatusDone, snap.Status)
	assert.Empty(t, snap.Error)
	assert.False(t, snap.Finished.Before(snap.Started))
}

func TestPool_FailedJob(t *testing.T) {
	t.Parallel()

	pool := NewPool(1, 1, nil)
	defer pool.Close()

	jobErr := errors.New("unsuccessful memory erase")
	f, err := pool.Submit("erase", func() error { return jobErr })
	require.NoError(t, err)

	require.ErrorIs(t, f.Wait(context.Background()), jobErr)
	snap := f.Snapshot()
	assert.Equal(t, StatusFailed, snap.Status)
	assert.Equal(t, "unsuccessful memory erase", snap.Error)
}

func TestPool_PanicIsReported(t *testing.T) {
	t.Parallel()

	pool := NewPool(1, 1, nil)
	defer pool.Close()

	f, err := pool.Submit("log", func() error { panic("boom") })
	require.NoError(t, err)

	err = f.Wait(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	// The worker survives the panic
	f2, err := pool.Submit("log", func() error { return nil })
	require.NoError(t, err)
	require.NoError(t, f2.Wait(context.Background()))
}

func TestPool_WaitContextDoesNotCancelJob(t *testing.T) {
	t.Parallel()

	pool := NewPool(1, 1, nil)
	defer pool.Close()

	release := make(chan struct{})
	var finished atomic.Bool
	f, err := pool.Submit("log", func() error {
		<-release
		finished.Store(true)
		return nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, f.Wait(ctx), context.DeadlineExceeded)
	assert.Equal(t, StatusRunning, waitForStatus(t, f, StatusRunning))

	close(release)
	<-f.Done()
	assert.True(t, finished.Load())
	assert.Equal(t, StatusDone, f.Snapshot().Status)
}

func TestPool_Lookup(t *testing.T) {
	t.Parallel()

	pool := NewPool(1, 1, nil)
	defer pool.Close()

	f, err := pool.Submit("erase", func() error { return nil })
	require.NoError(t, err)

	got, ok := pool.Lookup(f.ID())
	require.True(t, ok)
	assert.Same(t, f, got)

	_, ok = pool.Lookup(uuid.NewString())
	assert.False(t, ok)
}

func TestPool_QueueFull(t *testing.T) {
	t.Parallel()

	pool := NewPool(1, 0, nil)
	release := make(chan struct{})
	defer func() {
		close(release)
		pool.Close()
	}()

	// Unbuffered queue: the first submit only succeeds once the worker takes it
	var first *Future
	require.Eventually(t, func() bool {
		f, err := pool.Submit("blocker", func() error {
			<-release
			return nil
		})
		if err != nil {
			return false
		}
		first = f
		return true
	}, time.Second, time.Millisecond)
	waitForStatus(t, first, StatusRunning)

	_, err := pool.Submit("second", func() error { return nil })
	require.ErrorIs(t, err, ErrQueueFull)
}

func TestPool_Close(t *testing.T) {
	t.Parallel()

	pool := NewPool(2, 8, nil)
	var ran atomic.Int32
	for i := 0; i < 5; i++ {
		_, err := pool.Submit("job", func() error {
			ran.Add(1)
			return nil
		})
		require.NoError(t, err)
	}

	pool.Close()
	assert.Equal(t, int32(5), ran.Load(), "queued jobs finish before Close returns")

	_, err := pool.Submit("late", func() error { return nil })
	require.ErrorIs(t, err, ErrPoolClosed)
	pool.Close()
}

func TestPool_NilFunc(t *testing.T) {
	t.Parallel()

	pool := NewPool(1, 1, nil)
	defer pool.Close()
	_, err := pool.Submit("nil", nil)
	require.Error(t, err)
}

func waitForStatus(t *testing.T, f *Future, want Status) Status {
	t.Helper()
	require.Eventually(t, func() bool {
		return f.Snapshot().Status == want
	}, time.Second, time.Millisecond)
	return f.Snapshot().Status
}

func TestPool_RetentionForgetsOldestFinished(t *testing.T) {
	t.Parallel()

	pool := NewPool(1, 4, nil)
	defer pool.Close()
	pool.SetRetention(2)

	var ids []string
	for i := 0; i < 4; i++ {
		f, err := pool.Submit("log", func() error { return nil })
		require.NoError(t, err)
		require.NoError(t, f.Wait(context.Background()))
		ids = append(ids, f.ID())
	}

	require.Eventually(t, func() bool {
		_, first := pool.Lookup(ids[0])
		_, second := pool.Lookup(ids[1])
		return !first && !second
	}, time.Second, time.Millisecond)
	for _, id := range ids[2:] {
		_, ok := pool.Lookup(id)
		assert.True(t, ok, "recent job %s is kept", id)
	}
}

func TestPool_RetentionKeepsRunningJobs(t *testing.T) {
	t.Parallel()

	pool := NewPool(2, 4, nil)
	defer pool.Close()
	pool.SetRetention(1)

	release := make(chan struct{})
	slow, err := pool.Submit("erase", func() error {
		<-release
		return nil
	})
	require.NoError(t, err)
	waitForStatus(t, slow, StatusRunning)

	quick := make([]*Future, 2)
	for i := range quick {
		quick[i], err = pool.Submit("log", func() error { return nil })
		require.NoError(t, err)
		require.NoError(t, quick[i].Wait(context.Background()))
	}

	require.Eventually(t, func() bool {
		_, ok := pool.Lookup(quick[0].ID())
		return !ok
	}, time.Second, time.Millisecond)
	_, ok := pool.Lookup(slow.ID())
	assert.True(t, ok, "running job is never evicted")

	close(release)
	require.NoError(t, slow.Wait(context.Background()))
	require.Eventually(t, func() bool {
		_, ok := pool.Lookup(quick[1].ID())
		return !ok
	}, time.Second, time.Millisecond)
	_, ok = pool.Lookup(slow.ID())
	assert.True(t, ok)
}

func TestPool_SetRetentionDefault(t *testing.T) {
	t.Parallel()

	pool := NewPool(1, 1, nil)
	defer pool.Close()

	pool.SetRetention(0)
	pool.mu.RLock()
	defer pool.mu.RUnlock()
	assert.Equal(t, DefaultRetention, pool.retain)
}
