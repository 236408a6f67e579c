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

package energy

import (
	"math"
	"math/rand"

	"github.com/speckmac/smns/logger"
	. "github.com/speckmac/smns/types"
)

type NodeEnergy struct {
	nodeId    int
	cfg       *Config
	radio     RadioStatus
	batteryMj float64
	depleted  bool
	drift     float64
}

func (node *NodeEnergy) ComputeRadioState(timestamp uint64) {
	delta := timestamp - node.radio.Timestamp
	switch node.radio.State {
	case RadioDisabled:
		node.radio.SpentDisabled += delta
	case RadioSleep:
		node.radio.SpentSleep += delta
	case RadioTx:
		node.radio.SpentTx += delta
	case RadioRx:
		node.radio.SpentRx += delta
	default:
		logger.Panicf("unknown radio state: %v", node.radio.State)
	}
	node.radio.Timestamp = timestamp
}

func (node *NodeEnergy) SetRadioState(state RadioStates, timestamp uint64) {
	//Mandatory: compute energy consumed by the radio first.
	node.ComputeRadioState(timestamp)
	node.radio.State = state
}

func (node *NodeEnergy) RadioState() RadioStates {
	return node.radio.State
}

// Consumption returns the energy spent so far, as of the last computed timestamp.
func (node *NodeEnergy) Consumption() NodeConsumption {
	return NodeConsumption{
		NodeId:   node.nodeId,
		Disabled: float64(node.radio.SpentDisabled) * node.cfg.DisabledKw,
		Sleep:    float64(node.radio.SpentSleep) * node.cfg.SleepKw,
		Tx:       float64(node.radio.SpentTx) * node.cfg.TxKw,
		Rx:       float64(node.radio.SpentRx) * node.cfg.RxKw,
	}
}

// HasBattery returns true if the node runs on a finite battery.
func (node *NodeEnergy) HasBattery() bool {
	return node.batteryMj > 0
}

// RemainingMj returns the remaining battery energy in mJ, or +Inf for mains-powered nodes.
func (node *NodeEnergy) RemainingMj() float64 {
	if !node.HasBattery() {
		return math.Inf(1)
	}
	left := node.batteryMj - node.Consumption().Total()
	if left < 0 {
		left = 0
	}
	return left
}

// CheckDepleted updates the accounting to timestamp and returns true exactly once, when the
// battery is found empty for the first time.
func (node *NodeEnergy) CheckDepleted(timestamp uint64) bool {
	if node.depleted || !node.HasBattery() {
		return false
	}
	node.ComputeRadioState(timestamp)
	if node.RemainingMj() > 0 {
		return false
	}
	node.depleted = true
	return true
}

func (node *NodeEnergy) IsDepleted() bool {
	return node.depleted
}

// ClockDrift returns the ratio of the node's local clock rate to real time.
func (node *NodeEnergy) ClockDrift() float64 {
	return node.drift
}

func newNode(nodeID int, cfg *Config, batteryJ float64, rnd *rand.Rand, timestamp uint64) *NodeEnergy {
	node := &NodeEnergy{
		nodeId:    nodeID,
		cfg:       cfg,
		batteryMj: batteryJ * 1000.0,
		drift:     NewClockDrift(rnd, cfg.ClockDriftSigma),
		radio: RadioStatus{
			State:     RadioSleep,
			Timestamp: timestamp,
		},
	}
	return node
}

// NewClockDrift draws a clock drift factor around 1.0, clamped to three standard deviations.
func NewClockDrift(rnd *rand.Rand, sigma float64) float64 {
	if rnd == nil || sigma == 0 {
		return 1.0
	}
	d := rnd.NormFloat64() * sigma
	d = math.Max(-3*sigma, math.Min(3*sigma, d))
	return 1.0 + d
}
