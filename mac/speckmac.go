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

// Package mac implements the SpeckMAC-D duty-cycled, preamble-sampling MAC protocol.
//
// A node sleeps most of the time and periodically listens for a short window. A sender has no
// knowledge of its receivers' schedules; it instead repeats a frame back-to-back for a full
// sleep interval, so that every neighbour wakes up during one of the copies. A receiver goes
// back to sleep as soon as it got one copy.
package mac

import (
	"math"
	"math/rand"

	"github.com/pkg/errors"

	"github.com/speckmac/smns/event"
	"github.com/speckmac/smns/logger"
	. "github.com/speckmac/smns/types"
)

// SpeckMac is the MAC of a single node. It is driven by HandleEvent and must only be used from
// the goroutine that runs the node's events.
type SpeckMac struct {
	Counters Counters

	id       NodeId
	cfg      Config
	radio    Radio
	resource Resource
	network  Network
	sched    Scheduler
	observer Observer
	rnd      *rand.Rand

	state         State
	disabled      bool
	pendingTx     bool
	lastWakeup    uint64
	lastAirTimeUs float64
	csRetries     int

	queue   *TxQueue
	codec   *Codec
	planner BurstPlanner
	timers  timers

	sleepUs    float64
	listenUs   float64
	offsetUs   float64
	csUs       float64
	epsUs      float64
	rxWindowUs float64
}

func New(id NodeId, cfg *Config, radio Radio, resource Resource, network Network, sched Scheduler,
	rnd *rand.Rand) (*SpeckMac, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "node %d", id)
	}
	if rnd == nil {
		rnd = rand.New(rand.NewSource(int64(id)))
	}

	m := &SpeckMac{
		id:         id,
		cfg:        *cfg,
		radio:      radio,
		resource:   resource,
		network:    network,
		sched:      sched,
		rnd:        rnd,
		state:      StateIdle,
		sleepUs:    microseconds(cfg.SleepInterval),
		listenUs:   microseconds(cfg.ListenInterval),
		offsetUs:   microseconds(cfg.RandomTxOffset),
		csUs:       microseconds(cfg.CarrierSenseInterval),
		epsUs:      microseconds(cfg.Epsilon),
		rxWindowUs: float64(2*cfg.MaxFrameSize*8) * 1e6 / radio.BitRate(),
		planner: BurstPlanner{
			SleepIntervalUs: microseconds(cfg.SleepInterval),
			BitRate:         radio.BitRate(),
			PhyOverhead:     radio.PhyOverhead(),
		},
	}
	m.codec = NewCodec(cfg.HeaderOverhead, cfg.MaxFrameSize)
	m.queue = NewTxQueue(cfg.QueueCapacity, m.codec, m.planner)
	m.timers.owner = m
	return m, nil
}

func (m *SpeckMac) Id() NodeId {
	return m.id
}

func (m *SpeckMac) SetObserver(o Observer) {
	m.observer = o
}

func (m *SpeckMac) Config() Config {
	return m.cfg
}

func (m *SpeckMac) State() State {
	return m.state
}

func (m *SpeckMac) IsPendingTx() bool {
	return m.pendingTx
}

func (m *SpeckMac) IsDisabled() bool {
	return m.disabled
}

func (m *SpeckMac) QueueLen() int {
	return m.queue.Len()
}

func (m *SpeckMac) Codec() *Codec {
	return m.codec
}

func (m *SpeckMac) Planner() BurstPlanner {
	return m.planner
}

// HandleEvent processes a single event addressed to this MAC, to completion.
func (m *SpeckMac) HandleEvent(evt *event.Event) {
	if m.disabled && evt.Type != event.EventTypeNodeStartup {
		m.Counters.EventsDropped++
		m.tracef("dropped %v, MAC disabled", evt)
		return
	}
	if m.cfg.PrintDebugInfo {
		m.tracef("handle %v", evt)
	}

	switch evt.Type {
	case event.EventTypeNodeStartup:
		m.start()
	case event.EventTypeSleepTimer:
		if m.checkTimer(sleepTimer, evt) {
			m.enterSleep()
		}
	case event.EventTypeWakeTimer:
		if m.checkTimer(wakeTimer, evt) {
			m.enterListen()
		}
	case event.EventTypeCsExitTimer:
		if m.checkTimer(csExitTimer, evt) {
			m.carrierFree()
		}
	case event.EventTypeInitiateTx:
		m.initiateTx()
	case event.EventTypePerformCs:
		m.performCarrierSense()
	case event.EventTypeCheckTxBuffer:
		m.checkTxBuffer()
	case event.EventTypeNetPayload:
		m.payloadFromNetwork(evt.Data, evt.Dst)
	case event.EventTypeOutOfEnergy:
		m.outOfEnergy()
	case event.EventTypeCarrierBusy:
		m.carrierBusy()
	case event.EventTypeTxStarted:
		m.txStarted()
	case event.EventTypeTxStopped:
		m.txStopped()
	case event.EventTypeFrameReceived:
		m.frameReceived(evt.Data)
	default:
		m.defect("unexpected event %v", evt)
	}
}

// Finish drains the transmit queue and returns the number of frames that were never sent.
func (m *SpeckMac) Finish() int {
	n := m.queue.Clear()
	if n > 0 {
		m.infof("discarded %d untransmitted frames", n)
	}
	m.timers.cancelAll()
	m.pendingTx = false
	return n
}

func (m *SpeckMac) start() {
	m.timers.cancelAll()
	m.disabled = false
	m.pendingTx = !m.queue.IsEmpty()
	m.setState(StateIdle)
	m.timers.arm(wakeTimer, 0)
}

func (m *SpeckMac) outOfEnergy() {
	m.infof("out of energy, MAC disabled")
	m.disabled = true
	m.timers.cancelAll()
}

func (m *SpeckMac) checkTimer(kind timerKind, evt *event.Event) bool {
	if !m.timers.fired(kind, evt) {
		m.defect("stale %v timer fired (gen %d)", kind, evt.Gen)
		return false
	}
	return true
}

func (m *SpeckMac) payloadFromNetwork(payload []byte, dst string) {
	if m.queue.IsFull() {
		m.Counters.BufferFullDrops++
		m.warnf("transmit queue full, payload to %s dropped", dst)
		m.network.BufferFull()
		return
	}

	f, err := m.codec.Encapsulate(m.id, dst, payload)
	if err != nil {
		m.Counters.EncapsulationDrops++
		m.warnf("payload to %s dropped: %v", dst, err)
		return
	}
	if err = m.queue.Push(f); err != nil {
		m.defect("push failed: %v", err)
		return
	}
	m.Counters.PayloadsQueued++
	m.pendingTx = true

	delay := m.drifted(m.rnd.Float64() * m.offsetUs)
	m.scheduleSelf(event.EventTypeInitiateTx, delay)
}

func (m *SpeckMac) initiateTx() {
	if m.state != StateIdle {
		m.tracef("initiate transmit ignored in state %v", m.state)
		return
	}
	if !m.pendingTx || m.queue.IsEmpty() {
		m.tracef("initiate transmit with nothing to send")
		return
	}
	m.timers.cancel(sleepTimer)
	m.timers.cancel(wakeTimer)
	m.setState(StateAttemptingTx)
	m.radio.EnterListen()
	m.beginCarrierSense()
}

func (m *SpeckMac) txStarted() {
	switch m.state {
	case StateCarrierSensing:
		m.timers.cancel(csExitTimer)
		m.setState(StateIdle)
		m.scheduleSelf(event.EventTypeCheckTxBuffer, 0)
	case StateIdle, StateAttemptingTx:
		m.setState(StateTx)
	default:
		m.tracef("transmit started in state %v", m.state)
	}
}

func (m *SpeckMac) txStopped() {
	switch m.state {
	case StateTx, StateIdle:
		// Idle: the burst was appended to one the radio was already sending
		m.setState(StateIdle)
		if !m.queue.IsEmpty() {
			m.scheduleSelf(event.EventTypeInitiateTx, m.drifted(m.lastAirTimeUs+m.epsUs))
		} else {
			m.pendingTx = false
		}
	default:
		m.tracef("transmit stopped in state %v", m.state)
		return
	}
	m.goToSleep()
}

func (m *SpeckMac) frameReceived(data []byte) {
	m.Counters.FramesReceived++
	m.setState(StateIdle)
	m.timers.cancel(csExitTimer)
	m.timers.cancel(wakeTimer)
	m.timers.arm(sleepTimer, 0)

	f, err := m.codec.Unmarshal(data)
	if err != nil {
		m.Counters.DecodeErrors++
		m.warnf("received frame dropped: %v", err)
		return
	}
	if f.Dst != m.id && !f.IsBroadcast() {
		m.Counters.FramesFiltered++
		m.tracef("frame for node %d filtered", f.Dst)
		return
	}
	m.Counters.FramesDelivered++
	m.network.ReceivePayload(f.Src, m.codec.Decapsulate(f))
}

func (m *SpeckMac) setState(s State) {
	if s == m.state {
		return
	}
	old := m.state
	m.state = s
	if m.cfg.PrintStateTransitions {
		m.debugf("state %v -> %v", old, s)
	}
	if m.observer != nil {
		m.observer.OnStateChange(m.id, old, s)
	}
}

func (m *SpeckMac) scheduleSelf(tp event.EventType, delayUs uint64) {
	m.sched.Schedule(&event.Event{
		Type:   tp,
		NodeId: m.id,
	}, delayUs)
}

// drifted converts a duration measured by the node's clock to simulation time.
func (m *SpeckMac) drifted(us float64) uint64 {
	d := us * m.resource.ClockDrift()
	if d <= 0 {
		return 0
	}
	return uint64(math.Round(d))
}

// defect reports a broken invariant of the MAC.
func (m *SpeckMac) defect(format string, args ...interface{}) {
	m.Counters.Defects++
	if m.cfg.StrictInvariants {
		logger.NodeLogf(m.id, logger.PanicLevel, format, args...)
		return
	}
	logger.NodeLogf(m.id, logger.ErrorLevel, format, args...)
}

func (m *SpeckMac) tracef(format string, args ...interface{}) {
	if m.cfg.PrintDebugInfo {
		logger.NodeLogf(m.id, logger.TraceLevel, format, args...)
	}
}

func (m *SpeckMac) debugf(format string, args ...interface{}) {
	logger.NodeLogf(m.id, logger.DebugLevel, format, args...)
}

func (m *SpeckMac) infof(format string, args ...interface{}) {
	logger.NodeLogf(m.id, logger.InfoLevel, format, args...)
}

func (m *SpeckMac) warnf(format string, args ...interface{}) {
	logger.NodeLogf(m.id, logger.WarnLevel, format, args...)
}
