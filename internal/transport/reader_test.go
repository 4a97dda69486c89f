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

package transport

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	batgps "github.com/ZaparooProject/go-batgps"
)

// chunkedPort hands out one scripted chunk per Read and then reports
// nothing received, like a serial port whose read timeout expired
type chunkedPort struct {
	err    error
	chunks [][]byte
	reads  int
	mu     sync.Mutex
}

func (p *chunkedPort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reads++
	if len(p.chunks) == 0 {
		return 0, p.err
	}
	n := copy(b, p.chunks[0])
	if n < len(p.chunks[0]) {
		p.chunks[0] = p.chunks[0][n:]
	} else {
		p.chunks = p.chunks[1:]
	}
	return n, nil
}

func newChunkedPort(chunks ...string) *chunkedPort {
	p := &chunkedPort{}
	for _, c := range chunks {
		p.chunks = append(p.chunks, []byte(c))
	}
	return p
}

func TestTerminatedReader_ReadUntil(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		terminator string
		want       string
		chunks     []string
		wantCarry  int
	}{
		{name: "single_chunk", chunks: []string{"$42,1#"}, terminator: "#", want: "$42,1#"},
		{name: "split_chunks", chunks: []string{"$4", "2,", "1#"}, terminator: "#", want: "$42,1#"},
		{name: "handshake", chunks: []string{"$BAT", "_GPS#"}, terminator: "$BAT_GPS#", want: "$BAT_GPS#"},
		{
			name:       "log_inner_hash_is_not_end",
			chunks:     []string{"$data#more", "$EOF_LOG#"},
			terminator: "$EOF_LOG#",
			want:       "$data#more$EOF_LOG#",
		},
		{name: "bytes_after_terminator_are_kept", chunks: []string{"$OK#$4"}, terminator: "#", want: "$OK#", wantCarry: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			reader := NewTerminatedReader(newChunkedPort(tt.chunks...))
			got, err := reader.ReadUntil([]byte(tt.terminator), time.Second)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
			assert.Equal(t, tt.wantCarry, reader.Buffered())
		})
	}
}

func TestTerminatedReader_TimeoutReturnsPartial(t *testing.T) {
	t.Parallel()

	reader := NewTerminatedReader(newChunkedPort("$42,"))
	start := time.Now()
	got, err := reader.ReadUntil([]byte("#"), 30*time.Millisecond)

	require.NoError(t, err)
	assert.Equal(t, "$42,", string(got))
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestTerminatedReader_NothingReceived(t *testing.T) {
	t.Parallel()

	reader := NewTerminatedReader(newChunkedPort())
	got, err := reader.ReadUntil([]byte("#"), 10*time.Millisecond)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestTerminatedReader_CarryServesNextRead(t *testing.T) {
	t.Parallel()

	port := newChunkedPort("$OK#$1,1,40,51#")
	reader := NewTerminatedReader(port)

	first, err := reader.ReadUntil([]byte("#"), time.Second)
	require.NoError(t, err)
	assert.Equal(t, "$OK#", string(first))

	second, err := reader.ReadUntil([]byte("#"), time.Second)
	require.NoError(t, err)
	assert.Equal(t, "$1,1,40,51#", string(second))
	assert.Equal(t, 1, port.reads, "second frame is served from the carried bytes")
}

func TestTerminatedReader_Reset(t *testing.T) {
	t.Parallel()

	reader := NewTerminatedReader(newChunkedPort("$OK#stale"))
	_, err := reader.ReadUntil([]byte("#"), time.Second)
	require.NoError(t, err)
	require.Equal(t, 5, reader.Buffered())

	reader.Reset()
	assert.Equal(t, 0, reader.Buffered())
}

func TestTerminatedReader_ReadError(t *testing.T) {
	t.Parallel()

	port := newChunkedPort("$4")
	port.err = errors.New("device disconnected")
	reader := NewTerminatedReader(port)

	got, err := reader.ReadUntil([]byte("#"), time.Second)
	require.ErrorIs(t, err, batgps.ErrTransportRead)
	assert.Equal(t, "$4", string(got))
}
