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

package simulation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNodeCounters(t *testing.T) {
	n1 := make(NodeCounters)
	n1["test1.key"] = 42
	n1["test3.key"] = 987

	n2 := make(NodeCounters)
	n2["test1.key"] = 42
	n2["test2.key"] = 121

	n2.Add(n1)

	assert.Equal(t, uint64(42), n1["test1.key"])
	_, n1HasTest2Key := n1["test2.key"]
	assert.False(t, n1HasTest2Key)
	assert.Equal(t, uint64(987), n1["test3.key"])

	assert.Equal(t, uint64(84), n2["test1.key"])
	assert.Equal(t, uint64(121), n2["test2.key"])
	assert.Equal(t, uint64(987), n2["test3.key"])
}

func TestCountersDiff(t *testing.T) {
	start := NodeCounters{"mac.bursts_sent": 2, "net.sent": 5}
	cur := NodeCounters{"mac.bursts_sent": 7, "net.sent": 5, "net.received": 3}
	diff := getCountersDiff(cur, start)
	assert.Equal(t, NodeCounters{"mac.bursts_sent": 5, "net.sent": 0, "net.received": 3}, diff)
}

func TestRatio(t *testing.T) {
	assert.Equal(t, 0.0, ratio(3, 0))
	assert.Equal(t, 1.5, ratio(3, 2))
	assert.Equal(t, 25.0, percentage(1, 4))
}

func TestKpiDeletedNode(t *testing.T) {
	sim := newTestSimulation(t, nil)
	addNodeAt(t, sim, 1, 0, 0)
	addNodeAt(t, sim, 2, 100, 0)
	sim.Kpi().Start()
	runFor(sim, time.Second)
	assert.Nil(t, sim.DeleteNode(2))
	runFor(sim, time.Second)

	kpi := sim.Kpi().Data()
	_, ok := kpi.Counters[2]
	assert.False(t, ok)
	assert.Equal(t, uint64(0), kpi.Delivery[1].Sent)
	assert.Equal(t, "ok", kpi.Status)
	assert.True(t, kpi.EnergyMj[1] > 0)
}
