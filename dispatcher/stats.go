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
	"github.com/speckmac/smns/mac"
	"github.com/speckmac/smns/radiomodel"
	. "github.com/speckmac/smns/types"
)

// NodeStats summarizes the condition of all nodes.
type NodeStats struct {
	NumNodes    int `yaml:"nodes"`
	NumFailed   int `yaml:"failed"`
	NumDepleted int `yaml:"depleted"`
	NumPending  int `yaml:"pending_tx"`
	NumQueued   int `yaml:"queued_frames"`
}

func (d *Dispatcher) CalcStats() NodeStats {
	s := NodeStats{
		NumNodes:  len(d.nodes),
		NumFailed: d.GetFailedCount(),
	}
	for _, n := range d.nodes {
		if n.IsDepleted() {
			s.NumDepleted++
		}
		if n.Mac.IsPendingTx() {
			s.NumPending++
		}
		s.NumQueued += n.Mac.QueueLen()
	}
	return s
}

// MacCounters returns the MAC counters of one node, or the sum over all nodes for
// InvalidNodeId.
func (d *Dispatcher) MacCounters(id NodeId) (mac.Counters, bool) {
	var sum mac.Counters
	if id != InvalidNodeId {
		node := d.nodes[id]
		if node == nil {
			return sum, false
		}
		return node.Mac.Counters, true
	}
	for _, n := range d.nodes {
		sum.Add(&n.Mac.Counters)
	}
	return sum, true
}

// RadioStats returns the radio statistics of one node, or the sum over all nodes for
// InvalidNodeId.
func (d *Dispatcher) RadioStats(id NodeId) (radiomodel.RadioNodeStats, bool) {
	var sum radiomodel.RadioNodeStats
	if id != InvalidNodeId {
		node := d.nodes[id]
		if node == nil {
			return sum, false
		}
		return node.radioNode.Stats, true
	}
	for _, n := range d.nodes {
		st := n.radioNode.Stats
		sum.NumBursts += st.NumBursts
		sum.NumFramesTx += st.NumFramesTx
		sum.NumBytesTx += st.NumBytesTx
		sum.NumFramesRx += st.NumFramesRx
		sum.NumFramesLost += st.NumFramesLost
		sum.NumCcaBusy += st.NumCcaBusy
	}
	return sum, true
}
