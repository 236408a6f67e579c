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

package mac

import (
	"github.com/pkg/errors"
)

var (
	ErrQueueFull  = errors.New("transmit queue full")
	ErrQueueEmpty = errors.New("transmit queue empty")
)

// TxFrame is a queued frame. AirTimeUs and Redundancy are filled in when it is popped.
type TxFrame struct {
	Frame      *Frame
	Len        int
	AirTimeUs  float64
	Redundancy int
}

// TxQueue is a bounded FIFO ring of frames waiting for transmission. One slot of the backing
// array is always kept free so that empty and full can be told apart from head and tail alone.
type TxQueue struct {
	slots   []*TxFrame
	head    int
	tail    int
	codec   *Codec
	planner BurstPlanner
}

func NewTxQueue(capacity int, codec *Codec, planner BurstPlanner) *TxQueue {
	if capacity < 1 {
		capacity = 1
	}
	return &TxQueue{
		slots:   make([]*TxFrame, capacity+1),
		codec:   codec,
		planner: planner,
	}
}

func (q *TxQueue) Capacity() int {
	return len(q.slots) - 1
}

func (q *TxQueue) Len() int {
	return (q.tail - q.head + len(q.slots)) % len(q.slots)
}

func (q *TxQueue) IsEmpty() bool {
	return q.head == q.tail
}

func (q *TxQueue) IsFull() bool {
	return (q.tail+1)%len(q.slots) == q.head
}

// Push stores a copy of f at the tail.
func (q *TxQueue) Push(f *Frame) error {
	if q.IsFull() {
		return ErrQueueFull
	}
	q.slots[q.tail] = &TxFrame{
		Frame: f.Copy(),
		Len:   q.codec.FrameLen(f),
	}
	q.tail = (q.tail + 1) % len(q.slots)
	return nil
}

// Pop removes the head frame and computes its air time and redundancy.
func (q *TxQueue) Pop() (*TxFrame, error) {
	if q.IsEmpty() {
		return nil, ErrQueueEmpty
	}
	tf := q.slots[q.head]
	q.slots[q.head] = nil
	q.head = (q.head + 1) % len(q.slots)

	tf.AirTimeUs = q.planner.AirTimeUs(tf.Len)
	tf.Redundancy = q.planner.Redundancy(tf.AirTimeUs)
	return tf, nil
}

// Peek returns the head frame without removing it, or nil.
func (q *TxQueue) Peek() *TxFrame {
	if q.IsEmpty() {
		return nil
	}
	return q.slots[q.head]
}

// Clear drops all queued frames and returns how many there were.
func (q *TxQueue) Clear() int {
	n := q.Len()
	for i := range q.slots {
		q.slots[i] = nil
	}
	q.head, q.tail = 0, 0
	return n
}
