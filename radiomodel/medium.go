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
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/speckmac/smns/event"
	"github.com/speckmac/smns/logger"
	. "github.com/speckmac/smns/types"
)

// EventQueue is where the Medium places the events it generates.
type EventQueue interface {
	CurTime() uint64
	AddEvent(evt *event.Event)
}

// FrameObserver is notified of frames put on the air and their reception outcome.
type FrameObserver interface {
	OnFrameTx(src NodeId, data []byte, timestamp uint64, durationUs uint64)
	OnFrameRx(src NodeId, dst NodeId, success bool)
}

// Medium is the shared radio channel connecting all RadioNodes.
type Medium struct {
	ActiveTransmitters map[NodeId]*RadioNode

	params      *Params
	model       RadioModel
	q           EventQueue
	nodes       map[NodeId]*RadioNode
	nodeIds     []NodeId
	observer    FrameObserver
	wakeDelayUs float64
}

func NewMedium(params *Params, q EventQueue) (*Medium, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	p := *params
	model := NewRadioModel(p.Model, &p)
	if model == nil {
		return nil, errors.Errorf("unknown radio model: %s", p.Model)
	}
	return &Medium{
		ActiveTransmitters: map[NodeId]*RadioNode{},
		params:             &p,
		model:              model,
		q:                  q,
		nodes:              map[NodeId]*RadioNode{},
		wakeDelayUs:        float64(p.WakeDelay) / float64(time.Microsecond),
	}, nil
}

func (m *Medium) SetObserver(o FrameObserver) {
	m.observer = o
}

func (m *Medium) Model() RadioModel {
	return m.model
}

func (m *Medium) Params() Params {
	return *m.params
}

func (m *Medium) AddNode(id NodeId, cfg *RadioNodeConfig) *RadioNode {
	logger.AssertNil(m.nodes[id])
	rn := newRadioNode(id, m, cfg)
	m.nodes[id] = rn
	m.nodeIds = append(m.nodeIds, id)
	sort.Ints(m.nodeIds)
	return rn
}

func (m *Medium) DeleteNode(id NodeId) {
	rn := m.nodes[id]
	if rn == nil {
		return
	}
	if rn.onAir {
		m.endTransmission(rn, false)
	}
	for _, other := range m.nodes {
		delete(other.rxOngoing, id)
		delete(other.InterferedBy, id)
	}
	delete(m.nodes, id)
	for i, nid := range m.nodeIds {
		if nid == id {
			m.nodeIds = append(m.nodeIds[:i], m.nodeIds[i+1:]...)
			break
		}
	}
}

func (m *Medium) GetNode(id NodeId) *RadioNode {
	return m.nodes[id]
}

// AirTimeUs returns the on-air duration of a MAC frame of frameLen bytes.
func (m *Medium) AirTimeUs(frameLen int) uint64 {
	return uint64(math.Round(float64((frameLen+m.params.PhyOverhead)*8) * 1e6 / m.params.BitRate))
}

// HandleEvent handles the radio-internal events of the medium.
func (m *Medium) HandleEvent(evt *event.Event) {
	rn := m.nodes[evt.NodeId]
	if rn == nil {
		return
	}
	switch evt.Type {
	case event.EventTypeRadioFrameStart:
		m.onFrameStart(rn)
	case event.EventTypeRadioFrameEnd:
		m.onFrameEnd(rn)
	default:
		logger.Panicf("event type not implemented: %v", evt)
	}
}

func (m *Medium) scheduleRadioEvent(id NodeId, tp event.EventType, timestamp uint64) {
	m.q.AddEvent(&event.Event{
		Timestamp: timestamp,
		Type:      tp,
		NodeId:    id,
	})
}

func (m *Medium) onFrameStart(rn *RadioNode) {
	if len(rn.txPending) == 0 {
		// radio was disabled meanwhile
		rn.burstActive = false
		rn.burstStarted = false
		return
	}
	head := rn.txPending[0]
	rn.txPending = rn.txPending[1:]

	if !rn.burstStarted {
		rn.burstStarted = true
		rn.Stats.NumBursts++
		m.scheduleRadioEvent(rn.Id, event.EventTypeTxStarted, m.q.CurTime())
	}
	rn.setRadioState(RadioTx)
	rn.curTx = head.data

	duration := m.AirTimeUs(len(head.data))
	if !rn.isFailed {
		m.startTransmission(rn, duration)
	}
	m.scheduleRadioEvent(rn.Id, event.EventTypeRadioFrameEnd, m.q.CurTime()+duration)
}

func (m *Medium) onFrameEnd(rn *RadioNode) {
	if rn.onAir {
		m.endTransmission(rn, true)
	}
	rn.curTx = nil

	if rn.RadioState == RadioDisabled {
		rn.burstActive = false
		rn.burstStarted = false
		return
	}

	if len(rn.txPending) > 0 {
		next := rn.txPending[0].startAt
		if now := m.q.CurTime(); next < now {
			next = now
		}
		m.scheduleRadioEvent(rn.Id, event.EventTypeRadioFrameStart, next)
		return
	}

	rn.burstActive = false
	rn.burstStarted = false
	rn.setRadioState(RadioRx)
	m.scheduleRadioEvent(rn.Id, event.EventTypeTxStopped, m.q.CurTime())
}

func (m *Medium) startTransmission(src *RadioNode, durationUs uint64) {
	_, nodeTransmits := m.ActiveTransmitters[src.Id]
	logger.AssertFalse(nodeTransmits)

	// mark what this new transmission will interfere with.
	src.InterferedBy = map[NodeId]*RadioNode{}
	for id, interferingTransmitter := range m.ActiveTransmitters {
		src.InterferedBy[id] = interferingTransmitter
		interferingTransmitter.InterferedBy[src.Id] = src
	}
	m.ActiveTransmitters[src.Id] = src
	src.onAir = true
	src.Stats.NumFramesTx++
	src.Stats.NumBytesTx += uint64(len(src.curTx))

	now := m.q.CurTime()
	if m.observer != nil {
		m.observer.OnFrameTx(src.Id, src.curTx, now, durationUs)
	}

	for _, id := range m.nodeIds {
		dst := m.nodes[id]
		if dst == src || dst.isFailed {
			continue
		}
		if dst.isSensingNow() && m.model.CcaDetects(src, dst) {
			dst.carrierBusy()
		}
		if m.model.CheckRadioReachable(src, dst) {
			dst.rxOngoing[src.Id] = now
		}
	}
}

func (m *Medium) endTransmission(src *RadioNode, deliver bool) {
	delete(m.ActiveTransmitters, src.Id)
	src.onAir = false

	now := m.q.CurTime()
	for _, id := range m.nodeIds {
		dst := m.nodes[id]
		if _, ok := dst.rxOngoing[src.Id]; !ok {
			continue
		}
		delete(dst.rxOngoing, src.Id)

		success := deliver && dst.RadioState == RadioRx && !dst.isFailed && m.model.IsRxSuccess(src, dst)
		if success {
			dst.Stats.NumFramesRx++
			m.q.AddEvent(&event.Event{
				Timestamp: now,
				Type:      event.EventTypeFrameReceived,
				NodeId:    dst.Id,
				Src:       src.Id,
				Data:      append([]byte(nil), src.curTx...),
			})
		} else {
			dst.Stats.NumFramesLost++
		}
		if m.observer != nil {
			m.observer.OnFrameRx(src.Id, dst.Id, success)
		}
	}
}

// isChannelBusyFor returns true if rn's carrier sense detects any ongoing transmission.
func (m *Medium) isChannelBusyFor(rn *RadioNode) bool {
	for _, tx := range m.ActiveTransmitters {
		if m.model.CcaDetects(tx, rn) {
			return true
		}
	}
	return false
}
