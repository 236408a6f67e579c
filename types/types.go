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

package types

import (
	"fmt"
	"math"
)

type NodeId = int

const (
	MaxNodeId       NodeId = 0xfffe
	InvalidNodeId   NodeId = 0
	BroadcastNodeId NodeId = -1
)

const (
	// Ever is a timestamp (us) that is never reached in a simulation.
	Ever uint64 = math.MaxUint64 / 2
)

// GetNodeName returns the display name of a node, as used in logs and CLI output.
func GetNodeName(id NodeId) string {
	return fmt.Sprintf("Node<%d> ", id)
}

type RadioStates byte

const (
	RadioDisabled RadioStates = 0
	RadioSleep    RadioStates = 1
	RadioRx       RadioStates = 2
	RadioTx       RadioStates = 3
)

func (s RadioStates) String() string {
	switch s {
	case RadioDisabled:
		return "Off_"
	case RadioSleep:
		return "Slp_"
	case RadioRx:
		return "Rx__"
	case RadioTx:
		return "Tx__"
	default:
		return "Inv_"
	}
}

// CarrierSenseValidity tells whether the radio can currently produce a meaningful carrier-sense result,
// and if not, why not.
type CarrierSenseValidity byte

const (
	CsValid CarrierSenseValidity = iota
	CsRadioTransmitting
	CsRadioAsleep
	CsRadioNotReady
	CsUnknown
)

func (v CarrierSenseValidity) String() string {
	switch v {
	case CsValid:
		return "valid"
	case CsRadioTransmitting:
		return "radio-transmitting"
	case CsRadioAsleep:
		return "radio-asleep"
	case CsRadioNotReady:
		return "radio-not-ready"
	default:
		return "unknown"
	}
}
