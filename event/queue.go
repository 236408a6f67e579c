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
	"container/heap"

	"github.com/speckmac/smns/logger"
	"github.com/speckmac/smns/types"
)

type eventHeap []*Event

func (eh eventHeap) Len() int {
	return len(eh)
}

// Less orders by timestamp; equal timestamps keep scheduling order.
func (eh eventHeap) Less(i, j int) bool {
	a, b := eh[i], eh[j]
	if a.Timestamp != b.Timestamp {
		return a.Timestamp < b.Timestamp
	}
	return a.seq < b.seq
}

func (eh eventHeap) Swap(i, j int) {
	a, b := eh[i], eh[j]
	if a.index != i || b.index != j {
		logger.Panicf("wrong index")
	}

	eh[i], eh[j] = b, a             // swap the elements
	eh[i].index, eh[j].index = i, j // fix the indexes
}

func (eh *eventHeap) Push(x interface{}) {
	e := x.(*Event)
	*eh = append(*eh, e)
	e.index = len(*eh) - 1
}

func (eh *eventHeap) Pop() (elem interface{}) {
	n := len(*eh)
	e := (*eh)[n-1]
	(*eh)[n-1] = nil
	*eh = (*eh)[:n-1]
	e.index = -1
	return e
}

// Queue holds future events ordered by (Timestamp, scheduling order). Events can be cancelled
// while queued.
type Queue struct {
	h   eventHeap
	seq uint64
}

func NewQueue() *Queue {
	q := &Queue{
		h: eventHeap{},
	}
	heap.Init(&q.h)
	return q
}

func (q *Queue) Len() int {
	return len(q.h)
}

// Add queues evt. An event can only be held by one queue at a time.
func (q *Queue) Add(evt *Event) {
	logger.AssertFalse(evt.IsQueued(), "event already queued")
	q.seq++
	evt.seq = q.seq
	heap.Push(&q.h, evt)
}

// Cancel removes evt from the queue. It returns false if evt was not queued.
func (q *Queue) Cancel(evt *Event) bool {
	if evt == nil || !evt.IsQueued() || evt.index >= len(q.h) || q.h[evt.index] != evt {
		return false
	}
	heap.Remove(&q.h, evt.index)
	evt.seq = 0
	return true
}

func (q *Queue) NextTimestamp() uint64 {
	if len(q.h) == 0 {
		return types.Ever
	}
	return q.h[0].Timestamp
}

func (q *Queue) NextEvent() *Event {
	if len(q.h) == 0 {
		return nil
	}
	return q.h[0]
}

func (q *Queue) PopNext() *Event {
	if len(q.h) == 0 {
		return nil
	}
	evt := heap.Pop(&q.h).(*Event)
	evt.seq = 0
	return evt
}

// RemoveNode drops all queued events of the given node, and returns the number removed.
func (q *Queue) RemoveNode(id types.NodeId) int {
	kept := make(eventHeap, 0, len(q.h))
	removed := 0
	for _, e := range q.h {
		if e.NodeId == id {
			e.index = -1
			e.seq = 0
			removed++
			continue
		}
		e.index = len(kept)
		kept = append(kept, e)
	}
	q.h = kept
	heap.Init(&q.h)
	return removed
}
