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
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/speckmac/smns/event"
	. "github.com/speckmac/smns/types"
)

type txCall struct {
	data    []byte
	delayUs uint64
}

type mockRadio struct {
	bitRate   float64
	phy       int
	wakeDelay uint64
	validity  CarrierSenseValidity

	sleeps  int
	listens int
	senses  []uint64
	txCalls []txCall
}

func (r *mockRadio) EnterSleep() {
	r.sleeps++
}

func (r *mockRadio) EnterListen() {
	r.listens++
}

func (r *mockRadio) EnterTransmit(frame []byte, delayUs uint64) {
	r.txCalls = append(r.txCalls, txCall{frame, delayUs})
}

func (r *mockRadio) SenseCarrier(intervalUs uint64) {
	r.senses = append(r.senses, intervalUs)
}

func (r *mockRadio) CarrierSenseValidity() CarrierSenseValidity {
	return r.validity
}

func (r *mockRadio) BitRate() float64 {
	return r.bitRate
}

func (r *mockRadio) PhyOverhead() int {
	return r.phy
}

func (r *mockRadio) WakeDelay() uint64 {
	return r.wakeDelay
}

type mockResource struct {
	drift float64
}

func (r mockResource) ClockDrift() float64 {
	return r.drift
}

type mockNetwork struct {
	srcs       []NodeId
	payloads   [][]byte
	bufferFull int
}

func (n *mockNetwork) ReceivePayload(src NodeId, payload []byte) {
	n.srcs = append(n.srcs, src)
	n.payloads = append(n.payloads, payload)
}

func (n *mockNetwork) BufferFull() {
	n.bufferFull++
}

// manualScheduler runs MAC events from a queue, advancing time only when told to.
type manualScheduler struct {
	q         *event.Queue
	now       uint64
	scheduled []*event.Event
	handling  event.EventType // type of the event being handled by runUntil
}

func newManualScheduler() *manualScheduler {
	return &manualScheduler{q: event.NewQueue()}
}

func (s *manualScheduler) CurTime() uint64 {
	return s.now
}

func (s *manualScheduler) Schedule(evt *event.Event, delayUs uint64) {
	evt.Timestamp = s.now + delayUs
	s.q.Add(evt)
	s.scheduled = append(s.scheduled, evt)
}

func (s *manualScheduler) Cancel(evt *event.Event) bool {
	return s.q.Cancel(evt)
}

// post queues an external (radio, network or resource) event at absolute time ts.
func (s *manualScheduler) post(ts uint64, evt *event.Event) {
	evt.Timestamp = ts
	s.q.Add(evt)
}

// runUntil handles all events up to and including time ts.
func (s *manualScheduler) runUntil(m *SpeckMac, ts uint64, check func()) {
	for s.q.Len() > 0 && s.q.NextTimestamp() <= ts {
		evt := s.q.PopNext()
		s.now = evt.Timestamp
		s.handling = evt.Type
		m.HandleEvent(evt)
		if check != nil {
			check()
		}
	}
	s.now = ts
}

// queuedOfType counts events of the given type currently in the queue.
func (s *manualScheduler) queuedOfType(tp event.EventType) int {
	n := 0
	for _, e := range s.scheduled {
		if e.IsQueued() && e.Type == tp {
			n++
		}
	}
	return n
}

type stateChange struct {
	old, new State
	cause    event.EventType
}

type recordingObserver struct {
	sched       *manualScheduler
	states      map[State]int
	bursts      int
	copies      int
	history     []State
	transitions []stateChange
}

func (o *recordingObserver) OnStateChange(id NodeId, old State, new State) {
	o.states[new]++
	o.history = append(o.history, new)
	o.transitions = append(o.transitions, stateChange{old, new, o.sched.handling})
}

func (o *recordingObserver) OnTransmitBurst(id NodeId, frameLen int, copies int) {
	o.bursts++
	o.copies += copies
}

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.SleepInterval = time.Second
	cfg.ListenInterval = 10 * time.Millisecond
	cfg.RandomTxOffset = 0
	cfg.MaxFrameSize = 128
	cfg.QueueCapacity = 4
	cfg.HeaderOverhead = 9
	cfg.StrictInvariants = true
	return cfg
}

// 20 byte payload + 9 byte header + 1 byte PHY overhead at 800 bit/s gives an air time of 0.3s.
func testRadio() *mockRadio {
	return &mockRadio{
		bitRate:   800,
		phy:       1,
		wakeDelay: 500,
		validity:  CsValid,
	}
}

type testEnv struct {
	mac      *SpeckMac
	radio    *mockRadio
	network  *mockNetwork
	sched    *manualScheduler
	observer *recordingObserver
}

func newTestEnv(t *testing.T, id NodeId, cfg *Config, drift float64) *testEnv {
	env := &testEnv{
		radio:   testRadio(),
		network: &mockNetwork{},
		sched:   newManualScheduler(),
	}
	env.observer = &recordingObserver{sched: env.sched, states: map[State]int{}}
	m, err := New(id, cfg, env.radio, mockResource{drift}, env.network, env.sched, rand.New(rand.NewSource(1)))
	assert.Nil(t, err)
	m.SetObserver(env.observer)
	env.mac = m
	return env
}

func (env *testEnv) postType(ts uint64, tp event.EventType) {
	env.sched.post(ts, &event.Event{Type: tp, NodeId: env.mac.id})
}

func (env *testEnv) postPayload(ts uint64, dst string, payload []byte) {
	env.sched.post(ts, &event.Event{Type: event.EventTypeNetPayload, NodeId: env.mac.id, Dst: dst, Data: payload})
}

func (env *testEnv) timerAt(kind timerKind) uint64 {
	return env.mac.timers.t[kind].evt.Timestamp
}

func payloadOf(n int) []byte {
	p := make([]byte, n)
	for i := range p {
		p[i] = byte(i + 1)
	}
	return p
}
