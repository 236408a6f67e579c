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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speckmac/smns/event"
	"github.com/speckmac/smns/prng"
	"github.com/speckmac/smns/progctx"
	. "github.com/speckmac/smns/types"
)

type received struct {
	src     NodeId
	payload []byte
}

type testNetwork struct {
	rx         []received
	bufferFull int
}

func (tn *testNetwork) ReceivePayload(src NodeId, payload []byte) {
	tn.rx = append(tn.rx, received{src, append([]byte(nil), payload...)})
}

func (tn *testNetwork) BufferFull() {
	tn.bufferFull++
}

func newTestDispatcher(t *testing.T, modify func(cfg *Config)) (*Dispatcher, *mockDispatcherCallback) {
	prng.Init(1)
	cfg := DefaultConfig()
	cfg.Speed = MaxSimulateSpeed
	cfg.OutputDir = t.TempDir()
	cfg.Mac.StrictInvariants = true
	if modify != nil {
		modify(cfg)
	}
	cb := &mockDispatcherCallback{}
	d, err := NewDispatcher(progctx.New(nil), cfg, cb)
	require.Nil(t, err)
	return d, cb
}

func addTestNode(t *testing.T, d *Dispatcher, id NodeId, x int) (*Node, *testNetwork) {
	cfg := DefaultNodeConfig()
	cfg.X = x
	network := &testNetwork{}
	node, err := d.AddNode(id, &cfg, network)
	require.Nil(t, err)
	return node, network
}

func TestBroadcastReachesNeighborsOnce(t *testing.T) {
	d, _ := newTestDispatcher(t, nil)
	n1, _ := addTestNode(t, d, 1, 0)
	n2, net2 := addTestNode(t, d, 2, 100)
	n3, net3 := addTestNode(t, d, 3, 200)
	n4, net4 := addTestNode(t, d, 4, 1000)

	d.RunFor(100 * time.Millisecond)
	assert.Nil(t, d.SendPayload(1, "broadcast", []byte("hello")))
	d.RunFor(2 * time.Second)

	for _, net := range []*testNetwork{net2, net3} {
		require.Equal(t, 1, len(net.rx))
		assert.Equal(t, NodeId(1), net.rx[0].src)
		assert.Equal(t, []byte("hello"), net.rx[0].payload)
	}
	assert.Equal(t, 0, len(net4.rx))

	assert.Equal(t, uint64(1), n1.Mac.Counters.BurstsSent)
	assert.Equal(t, uint64(1), d.Counters.Bursts)
	assert.True(t, n1.Mac.Counters.CopiesSent > 700)
	assert.False(t, n1.Mac.IsPendingTx())
	assert.Equal(t, uint64(1), n2.Mac.Counters.FramesDelivered)
	assert.Equal(t, uint64(1), n3.Mac.Counters.FramesDelivered)

	total, ok := d.MacCounters(InvalidNodeId)
	assert.True(t, ok)
	assert.Equal(t, uint64(0), total.Defects)
	assert.Equal(t, uint64(2), total.FramesDelivered)
	_, ok = d.MacCounters(9)
	assert.False(t, ok)

	radio, _ := d.RadioStats(1)
	assert.Equal(t, uint64(1), radio.NumBursts)
	assert.Equal(t, n1.Mac.Counters.CopiesSent, radio.NumFramesTx)
	assert.Equal(t, uint64(2*time.Second/time.Microsecond+100000), d.CurTime)
	assert.Equal(t, 0, n4.Mac.QueueLen())
}

func TestUnicastIsFiltered(t *testing.T) {
	d, _ := newTestDispatcher(t, nil)
	addTestNode(t, d, 1, 0)
	_, net2 := addTestNode(t, d, 2, 100)
	n3, net3 := addTestNode(t, d, 3, 100)

	d.RunFor(100 * time.Millisecond)
	assert.Nil(t, d.SendPayload(1, "3", []byte{1, 2, 3}))
	d.RunFor(2 * time.Second)

	assert.Equal(t, 0, len(net2.rx))
	assert.Equal(t, 1, len(net3.rx))
	assert.Equal(t, uint64(0), n3.Mac.Counters.FramesFiltered)
	c2, _ := d.MacCounters(2)
	assert.Equal(t, uint64(1), c2.FramesFiltered)
}

func TestFailedNodeHearsNothing(t *testing.T) {
	d, cb := newTestDispatcher(t, nil)
	addTestNode(t, d, 1, 0)
	_, net2 := addTestNode(t, d, 2, 100)
	_, net3 := addTestNode(t, d, 3, 100)

	assert.Nil(t, d.SetNodeFailed(2, true))
	assert.Equal(t, []NodeId{2}, cb.failed)
	assert.Equal(t, 1, d.GetFailedCount())

	d.RunFor(100 * time.Millisecond)
	assert.Nil(t, d.SendPayload(1, "broadcast", []byte("x")))
	d.RunFor(2 * time.Second)
	assert.Equal(t, 0, len(net2.rx))
	assert.Equal(t, 1, len(net3.rx))

	assert.Nil(t, d.SetNodeFailed(2, false))
	assert.Equal(t, []NodeId{2}, cb.recovered)
	assert.NotNil(t, d.SetNodeFailed(7, true))
}

func TestBatteryDepletionDisablesNode(t *testing.T) {
	d, cb := newTestDispatcher(t, nil)
	cfg := DefaultNodeConfig()
	cfg.BatteryJ = 0.0005
	n1, err := d.AddNode(1, &cfg, &testNetwork{})
	require.Nil(t, err)
	n2, _ := addTestNode(t, d, 2, 100)

	d.RunFor(1500 * time.Millisecond)
	assert.True(t, n1.IsDepleted())
	assert.True(t, n1.Mac.IsDisabled())
	assert.Equal(t, RadioDisabled, n1.RadioNode().RadioState)
	assert.Equal(t, []NodeId{1}, cb.depleted)
	assert.False(t, n2.IsDepleted())

	// payloads for a depleted node are dropped by its MAC
	assert.Nil(t, d.SendPayload(1, "broadcast", []byte("x")))
	d.RunFor(time.Second)
	assert.Equal(t, uint64(0), n1.Mac.Counters.BurstsSent)
	assert.True(t, n1.Mac.Counters.EventsDropped > 0)
	assert.Equal(t, 1, d.CalcStats().NumDepleted)
}

func TestAddAndDeleteNode(t *testing.T) {
	d, _ := newTestDispatcher(t, nil)
	cfg := DefaultNodeConfig()
	_, err := d.AddNode(0, &cfg, &testNetwork{})
	assert.NotNil(t, err)
	addTestNode(t, d, 1, 0)
	_, err = d.AddNode(1, &cfg, &testNetwork{})
	assert.NotNil(t, err)
	addTestNode(t, d, 2, 100)
	assert.Equal(t, []NodeId{1, 2}, d.NodeIds())

	d.RunFor(100 * time.Millisecond)
	assert.Nil(t, d.SendPayload(2, "broadcast", []byte("x")))
	discarded, err := d.DeleteNode(2)
	assert.Nil(t, err)
	assert.Equal(t, 0, discarded)
	assert.Nil(t, d.GetNode(2))
	assert.NotNil(t, d.SendPayload(2, "broadcast", []byte("x")))
	_, err = d.DeleteNode(2)
	assert.NotNil(t, err)

	d.RunFor(time.Second)
	assert.Equal(t, []NodeId{1}, d.NodeIds())
	addTestNode(t, d, 2, 100)
	d.RunFor(time.Second)
	c, _ := d.MacCounters(InvalidNodeId)
	assert.Equal(t, uint64(0), c.Defects)
}

func TestFailTimeSchedulesFailures(t *testing.T) {
	d, cb := newTestDispatcher(t, nil)
	addTestNode(t, d, 1, 0)
	assert.NotNil(t, d.SetFailTime(1, FailTime{FailDuration: 2e6, FailInterval: 1e6}))
	assert.Nil(t, d.SetFailTime(1, FailTime{FailDuration: 1e6, FailInterval: 4e6}))
	d.RunFor(20 * time.Second)
	assert.True(t, len(cb.failed) >= 3)
	assert.True(t, len(cb.recovered) >= 2)
	assert.True(t, d.Counters.FailureEvents > 0)
}

func TestCustomHandler(t *testing.T) {
	d, _ := newTestDispatcher(t, nil)
	addTestNode(t, d, 1, 0)
	var handled []uint64
	d.AddHandler(event.EventTypeTrafficGen, func(node *Node, evt *event.Event) {
		handled = append(handled, d.CurTime)
		assert.Equal(t, NodeId(1), node.Id)
	})
	assert.Nil(t, d.PostEvent(1, &event.Event{Type: event.EventTypeTrafficGen}, 1000))
	assert.NotNil(t, d.PostEvent(5, &event.Event{Type: event.EventTypeTrafficGen}, 1000))
	d.RunFor(time.Millisecond)
	assert.Equal(t, []uint64{1000}, handled)
}

func TestRunLoop(t *testing.T) {
	d, _ := newTestDispatcher(t, nil)
	addTestNode(t, d, 1, 0)
	go d.Run()
	<-d.Go(time.Second)
	assert.Equal(t, uint64(1000000), d.CurTime)

	done := make(chan struct{})
	d.PostAsync(false, func() {
		d.SetSpeed(2)
		close(done)
	})
	<-done
	assert.Equal(t, 2.0, d.GetSpeed())
	d.ctx.Cancel(nil)
	d.ctx.Wait()
}

func TestPcapCapturesFrames(t *testing.T) {
	d, _ := newTestDispatcher(t, func(cfg *Config) {
		cfg.PcapEnabled = true
	})
	addTestNode(t, d, 1, 0)
	addTestNode(t, d, 2, 100)
	d.RunFor(100 * time.Millisecond)
	assert.Nil(t, d.SendPayload(1, "broadcast", []byte("x")))
	d.RunFor(time.Second)
	d.Stop()

	info, err := os.Stat(filepath.Join(d.cfg.OutputDir, "current.pcap"))
	require.Nil(t, err)
	// one frame record per copy on the air
	assert.True(t, info.Size() > int64(24+700*(16+10+10)))
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	assert.Nil(t, cfg.Validate())
	cfg.Radio.BitRate = 1000 // 128 byte frame no longer fits into the sleep interval
	assert.NotNil(t, cfg.Validate())
	cfg = DefaultConfig()
	cfg.DefaultWatchLevel = "loud"
	assert.NotNil(t, cfg.Validate())
}
