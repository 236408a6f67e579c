// Copyright (c) 2024, The OTNS Authors.
// All rights reserved.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions are met:
// 1. Redistributions of source code must retain the above copyright
//    notice, this list of conditions and the following disclaimer.
// 2. Redistributions in binary form must reproduce the above copyright
//    notice, this list of conditions and the following disclaimer in the
//    documentation and/or other materials provided with the distribution.
// 3. Neither the name of the copyright holder nor the
//    names of its contributors may be used to endorse or promote products
//    derived from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS"
// AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE
// IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE
// ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR CONTRIBUTORS BE
// LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR
// CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF
// SUBSTITUTE GOODS OR SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN
// CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE)
// ARISING IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
// POSSIBILITY OF SUCH DAMAGE.

package event

import (
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/speckmac/smns/types"
)

func TestQueue_Len(t *testing.T) {
	q := NewQueue()
	assert.Equal(t, 0, q.Len())
	q.Add(&Event{Timestamp: 2, NodeId: 2})
	assert.Equal(t, 1, q.Len())
	q.Add(&Event{Timestamp: 1, NodeId: 1})
	assert.Equal(t, 2, q.Len())
	q.Add(&Event{Timestamp: 3, NodeId: 3})
	assert.Equal(t, 3, q.Len())
}

func TestQueue_NextTimestamp(t *testing.T) {
	q := NewQueue()
	assert.Equal(t, Ever, q.NextTimestamp())
	q.Add(&Event{Timestamp: 2, NodeId: 2, Data: []byte{0, 1, 2, 3, 4, 5}})
	assert.Equal(t, uint64(2), q.NextTimestamp())
	q.Add(&Event{Timestamp: 1, NodeId: 1})
	assert.Equal(t, uint64(1), q.NextTimestamp())
	q.Add(&Event{Timestamp: 3, NodeId: 3})
	assert.Equal(t, uint64(1), q.NextTimestamp())
	assert.Equal(t, NodeId(1), q.NextEvent().NodeId)
}

func TestQueue_PopNext(t *testing.T) {
	q := NewQueue()
	q.Add(&Event{Timestamp: 2, NodeId: 2})
	q.Add(&Event{Timestamp: 1, NodeId: 1})
	q.Add(&Event{Timestamp: 3, NodeId: 3})

	ev := q.PopNext()
	assert.True(t, ev.NodeId == 1 && ev.Timestamp == 1)
	assert.False(t, ev.IsQueued())
	ev = q.PopNext()
	assert.True(t, ev.NodeId == 2 && ev.Timestamp == 2)
	ev = q.PopNext()
	assert.True(t, ev.NodeId == 3 && ev.Timestamp == 3)
	assert.Nil(t, q.PopNext())
}

func TestQueue_EqualTimestampsKeepSchedulingOrder(t *testing.T) {
	q := NewQueue()
	for i := 1; i <= 20; i++ {
		q.Add(&Event{Timestamp: 100, NodeId: i})
	}
	q.Add(&Event{Timestamp: 50, NodeId: 99})

	assert.Equal(t, NodeId(99), q.PopNext().NodeId)
	for i := 1; i <= 20; i++ {
		assert.Equal(t, NodeId(i), q.PopNext().NodeId)
	}
}

func TestQueue_Cancel(t *testing.T) {
	q := NewQueue()
	e1 := &Event{Timestamp: 10, NodeId: 1}
	e2 := &Event{Timestamp: 20, NodeId: 2}
	e3 := &Event{Timestamp: 30, NodeId: 3}
	q.Add(e1)
	q.Add(e2)
	q.Add(e3)

	assert.True(t, q.Cancel(e2))
	assert.False(t, q.Cancel(e2))
	assert.False(t, q.Cancel(nil))
	assert.False(t, q.Cancel(&Event{Timestamp: 10}))
	assert.Equal(t, 2, q.Len())

	assert.Equal(t, e1, q.PopNext())
	assert.Equal(t, e3, q.PopNext())

	// a cancelled event can be queued again
	q.Add(e2)
	assert.Equal(t, e2, q.PopNext())
}

func TestQueue_CancelOtherQueue(t *testing.T) {
	q1 := NewQueue()
	q2 := NewQueue()
	e := &Event{Timestamp: 1}
	q1.Add(e)
	q2.Add(&Event{Timestamp: 5})
	assert.False(t, q2.Cancel(e))
	assert.Equal(t, 1, q1.Len())
}

func TestQueue_RemoveNode(t *testing.T) {
	q := NewQueue()
	e := &Event{Timestamp: 3, NodeId: 1}
	q.Add(&Event{Timestamp: 5, NodeId: 2})
	q.Add(e)
	q.Add(&Event{Timestamp: 1, NodeId: 1})
	q.Add(&Event{Timestamp: 4, NodeId: 2})

	assert.Equal(t, 2, q.RemoveNode(1))
	assert.False(t, e.IsQueued())
	assert.Equal(t, 2, q.Len())
	assert.Equal(t, uint64(4), q.PopNext().Timestamp)
	assert.Equal(t, uint64(5), q.PopNext().Timestamp)
}

func TestTypeName(t *testing.T) {
	assert.Equal(t, "WakeTimer", TypeName(EventTypeWakeTimer))
	assert.Equal(t, "EventType(200)", TypeName(200))
	assert.True(t, IsMacEvent(EventTypeFrameReceived))
	assert.False(t, IsMacEvent(EventTypeRadioFrameEnd))
}
