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
	"github.com/speckmac/smns/event"
	. "github.com/speckmac/smns/types"
)

type State int

const (
	StateIdle State = iota
	StateAttemptingTx
	StateCarrierSensing
	StateExpectingRx
	StateTx
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateAttemptingTx:
		return "AttemptingTx"
	case StateCarrierSensing:
		return "CarrierSensing"
	case StateExpectingRx:
		return "ExpectingRx"
	case StateTx:
		return "Tx"
	default:
		return "Invalid"
	}
}

// Radio is the radio collaborator of the MAC. Completion of the asynchronous operations is
// reported back as CarrierBusy, TxStarted, TxStopped and FrameReceived events.
type Radio interface {
	EnterSleep()
	EnterListen()
	// EnterTransmit sends frame starting delayUs from now. Copies sent back-to-back form a single
	// burst, reported by one TxStarted and one TxStopped event.
	EnterTransmit(frame []byte, delayUs uint64)
	SenseCarrier(intervalUs uint64)
	CarrierSenseValidity() CarrierSenseValidity

	BitRate() float64  // bits per second
	PhyOverhead() int  // bytes
	WakeDelay() uint64 // us until carrier sensing is valid after entering listen
}

// Resource reports the node's hardware condition. Energy depletion arrives as an OutOfEnergy event.
type Resource interface {
	ClockDrift() float64
}

// Network is the layer above the MAC.
type Network interface {
	ReceivePayload(src NodeId, payload []byte)
	BufferFull()
}

// Scheduler places events on the simulation time line of the node.
type Scheduler interface {
	CurTime() uint64
	Schedule(evt *event.Event, delayUs uint64)
	Cancel(evt *event.Event) bool
}

// Observer is notified of MAC activity, e.g. for visualization and statistics.
type Observer interface {
	OnStateChange(id NodeId, old State, new State)
	OnTransmitBurst(id NodeId, frameLen int, copies int)
}

type Counters struct {
	PayloadsQueued     uint64 `yaml:"payloads_queued"`
	BufferFullDrops    uint64 `yaml:"buffer_full_drops"`
	EncapsulationDrops uint64 `yaml:"encapsulation_drops"`
	BurstsSent         uint64 `yaml:"bursts_sent"`
	CopiesSent         uint64 `yaml:"copies_sent"`
	FramesReceived     uint64 `yaml:"frames_received"`
	FramesDelivered    uint64 `yaml:"frames_delivered"`
	FramesFiltered     uint64 `yaml:"frames_filtered"`
	DecodeErrors       uint64 `yaml:"decode_errors"`
	CarrierBusy        uint64 `yaml:"carrier_busy"`
	CarrierFree        uint64 `yaml:"carrier_free"`
	CsRetries          uint64 `yaml:"cs_retries"`
	CsAbandoned        uint64 `yaml:"cs_abandoned"`
	EventsDropped      uint64 `yaml:"events_dropped"`
	Defects            uint64 `yaml:"defects"`
}

// Add accumulates other into c.
func (c *Counters) Add(other *Counters) {
	c.PayloadsQueued += other.PayloadsQueued
	c.BufferFullDrops += other.BufferFullDrops
	c.EncapsulationDrops += other.EncapsulationDrops
	c.BurstsSent += other.BurstsSent
	c.CopiesSent += other.CopiesSent
	c.FramesReceived += other.FramesReceived
	c.FramesDelivered += other.FramesDelivered
	c.FramesFiltered += other.FramesFiltered
	c.DecodeErrors += other.DecodeErrors
	c.CarrierBusy += other.CarrierBusy
	c.CarrierFree += other.CarrierFree
	c.CsRetries += other.CsRetries
	c.CsAbandoned += other.CsAbandoned
	c.EventsDropped += other.EventsDropped
	c.Defects += other.Defects
}
