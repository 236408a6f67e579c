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

package radiomodel

import (
	"math"

	"github.com/speckmac/smns/event"
	"github.com/speckmac/smns/logger"
	. "github.com/speckmac/smns/types"
)

type RadioNodeConfig struct {
	X, Y       int
	RadioRange int
}

type RadioNodeStats struct {
	NumBursts     uint64 `yaml:"bursts"`
	NumFramesTx   uint64 `yaml:"frames_tx"`
	NumBytesTx    uint64 `yaml:"bytes_tx"`
	NumFramesRx   uint64 `yaml:"frames_rx"`
	NumFramesLost uint64 `yaml:"frames_lost"`
	NumCcaBusy    uint64 `yaml:"cca_busy"`
}

type pendingCopy struct {
	data    []byte
	startAt uint64
}

// RadioStateListener is notified of every radio state change of a node, e.g. for energy accounting.
type RadioStateListener func(id NodeId, state RadioStates, timestamp uint64)

// RadioNode is a half-duplex radio attached to the Medium. It implements the radio used by a
// node's MAC.
type RadioNode struct {
	Id NodeId

	// Node position in units/pixels.
	X, Y float64

	// RadioRange is the radio range as configured by the simulation for this node.
	RadioRange float64

	// RadioState is the current radio's state; RadioTx only when physically transmitting.
	RadioState RadioStates

	// InterferedBy holds the transmitters that overlapped with the frame currently (or last) sent.
	InterferedBy map[NodeId]*RadioNode

	Stats RadioNodeStats

	medium       *Medium
	listenSince  uint64
	senseUntil   uint64
	isSensing    bool
	burstActive  bool
	burstStarted bool
	onAir        bool
	curTx        []byte
	txPending    []pendingCopy
	rxOngoing    map[NodeId]uint64
	isFailed     bool
	listener     RadioStateListener
}

func newRadioNode(nodeid NodeId, medium *Medium, cfg *RadioNodeConfig) *RadioNode {
	return &RadioNode{
		Id:           nodeid,
		X:            float64(cfg.X),
		Y:            float64(cfg.Y),
		RadioRange:   float64(cfg.RadioRange),
		RadioState:   RadioSleep,
		InterferedBy: map[NodeId]*RadioNode{},
		medium:       medium,
		rxOngoing:    map[NodeId]uint64{},
	}
}

func (rn *RadioNode) SetStateListener(l RadioStateListener) {
	rn.listener = l
}

func (rn *RadioNode) SetNodePos(x, y int) {
	// simplified model: ignore pos changes during Rx.
	rn.X, rn.Y = float64(x), float64(y)
}

// GetDistanceTo gets the distance to another RadioNode (in grid/pixel units).
func (rn *RadioNode) GetDistanceTo(other *RadioNode) (dist float64) {
	dx := other.X - rn.X
	dy := other.Y - rn.Y
	dist = math.Sqrt(dx*dx + dy*dy)
	return
}

func (rn *RadioNode) now() uint64 {
	return rn.medium.q.CurTime()
}

// CanReceive returns true if the radio listens and has finished waking up.
func (rn *RadioNode) CanReceive() bool {
	return rn.RadioState == RadioRx && !rn.isFailed &&
		rn.now() >= rn.listenSince+uint64(rn.medium.wakeDelayUs)
}

func (rn *RadioNode) IsFailed() bool {
	return rn.isFailed
}

// SetFailed makes the radio deaf and mute, or recovers it.
func (rn *RadioNode) SetFailed(failed bool) {
	if failed {
		rn.abortReceptions()
		rn.isSensing = false
	}
	rn.isFailed = failed
}

// Disable switches the radio off for good, e.g. when the battery is depleted.
func (rn *RadioNode) Disable() {
	rn.txPending = nil
	rn.setRadioState(RadioDisabled)
}

func (rn *RadioNode) setRadioState(state RadioStates) {
	if rn.RadioState == state {
		return
	}
	if state != RadioRx {
		rn.isSensing = false
		rn.abortReceptions()
	}
	rn.RadioState = state
	if state == RadioRx {
		rn.listenSince = rn.now()
	}
	if rn.listener != nil {
		rn.listener(rn.Id, state, rn.now())
	}
}

func (rn *RadioNode) abortReceptions() {
	for id := range rn.rxOngoing {
		delete(rn.rxOngoing, id)
		rn.Stats.NumFramesLost++
	}
}

func (rn *RadioNode) EnterSleep() {
	if rn.burstActive {
		logger.NodeLogf(rn.Id, logger.DebugLevel, "radio sleep ignored during transmission")
		return
	}
	if rn.RadioState == RadioDisabled {
		return
	}
	rn.setRadioState(RadioSleep)
}

func (rn *RadioNode) EnterListen() {
	if rn.burstActive || rn.RadioState == RadioDisabled {
		return
	}
	rn.setRadioState(RadioRx)
}

func (rn *RadioNode) EnterTransmit(frame []byte, delayUs uint64) {
	if rn.RadioState == RadioDisabled {
		logger.NodeLogf(rn.Id, logger.WarnLevel, "radio disabled, frame not sent")
		return
	}
	startAt := rn.now() + delayUs
	rn.txPending = append(rn.txPending, pendingCopy{data: frame, startAt: startAt})
	if !rn.burstActive {
		rn.burstActive = true
		rn.medium.scheduleRadioEvent(rn.Id, event.EventTypeRadioFrameStart, startAt)
	}
}

func (rn *RadioNode) SenseCarrier(intervalUs uint64) {
	if rn.RadioState != RadioRx || rn.isFailed {
		logger.NodeLogf(rn.Id, logger.DebugLevel, "carrier sense in radio state %v ignored", rn.RadioState)
		return
	}
	rn.isSensing = true
	rn.senseUntil = rn.now() + intervalUs
	if rn.medium.isChannelBusyFor(rn) {
		rn.carrierBusy()
	}
}

// isSensingNow returns true while a carrier sense interval is running.
func (rn *RadioNode) isSensingNow() bool {
	if rn.isSensing && rn.now() >= rn.senseUntil {
		rn.isSensing = false
	}
	return rn.isSensing
}

func (rn *RadioNode) carrierBusy() {
	rn.isSensing = false
	rn.Stats.NumCcaBusy++
	rn.medium.scheduleRadioEvent(rn.Id, event.EventTypeCarrierBusy, rn.now())
}

func (rn *RadioNode) CarrierSenseValidity() CarrierSenseValidity {
	switch {
	case rn.isFailed || rn.RadioState == RadioDisabled:
		return CsRadioNotReady
	case rn.burstActive || rn.RadioState == RadioTx:
		return CsRadioTransmitting
	case rn.RadioState == RadioSleep:
		return CsRadioAsleep
	case rn.now() < rn.listenSince+uint64(rn.medium.wakeDelayUs):
		return CsRadioNotReady
	default:
		return CsValid
	}
}

func (rn *RadioNode) BitRate() float64 {
	return rn.medium.params.BitRate
}

func (rn *RadioNode) PhyOverhead() int {
	return rn.medium.params.PhyOverhead
}

func (rn *RadioNode) WakeDelay() uint64 {
	return uint64(rn.medium.wakeDelayUs)
}

// IsTransmitting returns true while a burst of frames is in progress.
func (rn *RadioNode) IsTransmitting() bool {
	return rn.burstActive
}
