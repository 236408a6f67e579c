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

// Package event defines the simulation events exchanged between a node's MAC, its radio, its
// energy accounting and its network layer, and the time-ordered queue that holds them.
package event

import (
	"fmt"

	"github.com/speckmac/smns/types"
)

type EventType = uint8

const (
	// MAC self-events
	EventTypeNodeStartup     EventType = 0
	EventTypeSleepTimer      EventType = 1
	EventTypeWakeTimer       EventType = 2
	EventTypeCsExitTimer     EventType = 3
	EventTypeInitiateTx      EventType = 4
	EventTypePerformCs       EventType = 5
	EventTypeCheckTxBuffer   EventType = 6
	EventTypeNetPayload      EventType = 7
	EventTypeOutOfEnergy     EventType = 8
	EventTypeCarrierBusy     EventType = 9
	EventTypeTxStarted       EventType = 10
	EventTypeTxStopped       EventType = 11
	EventTypeFrameReceived   EventType = 12
	EventTypeRadioFrameStart EventType = 13 // a frame copy begins on the air
	EventTypeRadioFrameEnd   EventType = 14 // a frame copy ends on the air
	EventTypeTrafficGen      EventType = 15
	EventTypeEnergySample    EventType = 16
	EventTypeFailureCheck    EventType = 17
)

var eventTypeNames = map[EventType]string{
	EventTypeNodeStartup:     "NodeStartup",
	EventTypeSleepTimer:      "SleepTimer",
	EventTypeWakeTimer:       "WakeTimer",
	EventTypeCsExitTimer:     "CsExitTimer",
	EventTypeInitiateTx:      "InitiateTx",
	EventTypePerformCs:       "PerformCs",
	EventTypeCheckTxBuffer:   "CheckTxBuffer",
	EventTypeNetPayload:      "NetPayload",
	EventTypeOutOfEnergy:     "OutOfEnergy",
	EventTypeCarrierBusy:     "CarrierBusy",
	EventTypeTxStarted:       "TxStarted",
	EventTypeTxStopped:       "TxStopped",
	EventTypeFrameReceived:   "FrameReceived",
	EventTypeRadioFrameStart: "RadioFrameStart",
	EventTypeRadioFrameEnd:   "RadioFrameEnd",
	EventTypeTrafficGen:      "TrafficGen",
	EventTypeEnergySample:    "EnergySample",
	EventTypeFailureCheck:    "FailureCheck",
}

// TypeName returns the display name of an event type.
func TypeName(tp EventType) string {
	if s, ok := eventTypeNames[tp]; ok {
		return s
	}
	return fmt.Sprintf("EventType(%d)", tp)
}

// IsMacEvent returns true for event types that are handled by a node's MAC.
func IsMacEvent(tp EventType) bool {
	return tp <= EventTypeFrameReceived
}

// Event is a single scheduled occurrence at a node, at absolute simulation time Timestamp (us).
type Event struct {
	Timestamp uint64
	Type      EventType
	NodeId    types.NodeId
	Data      []byte

	// Dst is the destination token of a network payload ("broadcast", "-1" or a node id).
	Dst string
	// Gen is the generation token of an armed MAC timer.
	Gen uint64
	// Src is the originating node of a radio frame.
	Src types.NodeId

	seq   uint64
	index int
}

// IsQueued returns true if the event is currently held by a Queue.
func (e *Event) IsQueued() bool {
	return e.index >= 0 && e.seq > 0
}

func (e *Event) String() string {
	return fmt.Sprintf("Event{%s,node=%d,ts=%d,gen=%d,len=%d}", TypeName(e.Type), e.NodeId, e.Timestamp,
		e.Gen, len(e.Data))
}
