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

package simulation

import (
	. "github.com/speckmac/smns/types"
)

// NodeAutoPlacer places nodes without a given position on a grid, row by row.
type NodeAutoPlacer struct {
	X, Y       int
	Xref, Yref int
	Xmax       int
	NodeDelta  int
	isReset    bool
}

func NewNodeAutoPlacer() *NodeAutoPlacer {
	return &NodeAutoPlacer{
		Xref:      100,
		Yref:      100,
		Xmax:      1000,
		X:         100,
		Y:         100,
		NodeDelta: 100,
		isReset:   true,
	}
}

// UpdateReference updates the reference position of the NodeAutoPlacer to 'x', 'y'. It starts placing from there.
func (nap *NodeAutoPlacer) UpdateReference(x, y int) {
	nap.Xref = x
	nap.X = x
	nap.Yref = y
	nap.Y = y
	nap.isReset = false
}

// NextNodePosition lets the autoplacer pick the next position for a new node to be placed.
func (nap *NodeAutoPlacer) NextNodePosition() (int, int) {
	if !nap.isReset {
		nap.X += nap.NodeDelta
		if nap.X > nap.Xmax {
			nap.X = nap.Xref
			nap.Y += nap.NodeDelta
		}
	}
	nap.isReset = false
	return nap.X, nap.Y
}

// ReuseNextNodePosition instructs the autoplacer to re-use the position that was given out in the
// last call to NextNodePosition.
func (nap *NodeAutoPlacer) ReuseNextNodePosition() {
	nap.isReset = true
}

// NodeConfigFinalize fills in the simulation defaults for a node config that is about to be used.
func (s *Simulation) NodeConfigFinalize(nodeCfg *NodeConfig) {
	if nodeCfg.RadioRange <= 0 {
		nodeCfg.RadioRange = s.cfg.NewNodeConfig.RadioRange
	}
	if nodeCfg.BatteryJ < 0 {
		nodeCfg.BatteryJ = s.cfg.NewNodeConfig.BatteryJ
	}
	nodeCfg.NodeLogFile = nodeCfg.NodeLogFile || s.cfg.NewNodeConfig.NodeLogFile
}
