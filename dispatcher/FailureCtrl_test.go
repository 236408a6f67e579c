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

package dispatcher

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/speckmac/smns/logger"
	"github.com/speckmac/smns/prng"
	. "github.com/speckmac/smns/types"
	"github.com/speckmac/smns/visualize"
)

type mockDispatcherCallback struct {
	failed, recovered, depleted []NodeId
}

func (m *mockDispatcherCallback) OnNodeFail(nodeid NodeId) {
	m.failed = append(m.failed, nodeid)
}

func (m *mockDispatcherCallback) OnNodeRecover(nodeid NodeId) {
	m.recovered = append(m.recovered, nodeid)
}

func (m *mockDispatcherCallback) OnNodeDepleted(nodeid NodeId) {
	m.depleted = append(m.depleted, nodeid)
}

func mockNode1() *Node {
	return &Node{
		Id:     0x1,
		logger: logger.GetNodeLogger(".", &NodeConfig{ID: 1, NodeLogFile: false}),
		D: &Dispatcher{
			cbHandler: &mockDispatcherCallback{},
			vis:       visualize.NewNopVisualizer(),
		},
	}
}

func TestFailureCtrlNonFailure(t *testing.T) {
	prng.Init(0)

	node1 := mockNode1()
	node1.failureCtrl = newFailureCtrl(node1, NonFailTime)

	for i := 0; i < 10; i++ {
		oldTime := node1.CurTime
		node1.CurTime += 1000000
		next, _ := node1.failureCtrl.OnTimeAdvanced(oldTime)
		assert.False(t, node1.IsFailed())
		assert.Equal(t, Ever, next)
	}

	node1.isFailed = true
	for i := 0; i < 10; i++ {
		oldTime := node1.CurTime
		node1.CurTime += 1000000
		node1.failureCtrl.OnTimeAdvanced(oldTime)
		assert.True(t, node1.IsFailed())
	}

	node1.isFailed = false
	for i := 0; i < 10; i++ {
		oldTime := node1.CurTime
		node1.CurTime += 1000000
		node1.failureCtrl.OnTimeAdvanced(oldTime)
		assert.False(t, node1.IsFailed())
	}
}

func simulateFailures(node1 *Node, steps int) float64 {
	failCount := 0
	worksCount := 0
	for i := 0; i < steps; i++ {
		oldTime := node1.CurTime
		node1.CurTime += 100000
		node1.D.CurTime = node1.CurTime
		node1.failureCtrl.OnTimeAdvanced(oldTime)
		if node1.IsFailed() {
			failCount++
		} else {
			worksCount++
		}
	}
	return float64(failCount) / float64(failCount+worksCount)
}

func TestFailureCtrlFailingHalfOfTheTime(t *testing.T) {
	prng.Init(0)

	node1 := mockNode1()
	ft := FailTime{
		FailDuration: 30 * 1e6,
		FailInterval: 60 * 1e6,
	}
	node1.failureCtrl = newFailureCtrl(node1, ft)

	// simulate a 10-hour period; verify that failure percentage is roughly 50%
	failPerc := simulateFailures(node1, 360000)
	assert.True(t, failPerc > 0.46)
	assert.True(t, failPerc < 0.54)
}

func TestFailureCtrlFailingMostOfTheTime(t *testing.T) {
	prng.Init(0)

	node1 := mockNode1()
	ft := FailTime{
		FailDuration: 9 * 1e6,
		FailInterval: 10 * 1e6,
	}
	node1.failureCtrl = newFailureCtrl(node1, ft)

	// simulate a 10-hour period; verify that failure percentage is roughly 90%
	failPerc := simulateFailures(node1, 360000)
	assert.True(t, failPerc > 0.88)
	assert.True(t, failPerc < 0.92)
}

func TestFailureCtrlAddedOnAlreadyFailedNode(t *testing.T) {
	prng.Init(0)

	node1 := mockNode1()
	ft := FailTime{
		FailDuration: 3 * 1e6,
		FailInterval: 35 * 1e6,
	}
	node1.failureCtrl = newFailureCtrl(node1, ft)
	node1.isFailed = true
	for i := 0; i < 40; i++ {
		oldTime := node1.CurTime
		node1.CurTime += 100000
		node1.failureCtrl.OnTimeAdvanced(oldTime)
	}
	// recovered after one fail duration
	assert.Equal(t, []NodeId{1}, node1.D.cbHandler.(*mockDispatcherCallback).recovered)
}

func TestFailureCtrlSetFailTime(t *testing.T) {
	prng.Init(0)

	node1 := mockNode1()
	node1.failureCtrl = newFailureCtrl(node1, NonFailTime)
	next := node1.failureCtrl.SetFailTime(FailTime{FailDuration: 1e6, FailInterval: 10e6})
	assert.True(t, next < 9e6)

	node1.isFailed = true
	assert.Equal(t, Ever, node1.failureCtrl.SetFailTime(NonFailTime))
	assert.False(t, node1.IsFailed())
	assert.Equal(t, []NodeId{1}, node1.D.cbHandler.(*mockDispatcherCallback).recovered)
}
