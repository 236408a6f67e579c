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

package visualize

import (
	"github.com/speckmac/smns/energy"
	"github.com/speckmac/smns/mac"
	. "github.com/speckmac/smns/types"
)

// Visualizer observes the simulation. All methods are called from the dispatcher goroutine.
type Visualizer interface {
	Init()
	Run()
	Stop()

	AddNode(nodeid NodeId, cfg *NodeConfig)
	DeleteNode(id NodeId)
	SetNodePos(nodeid NodeId, x, y int)
	SetMacState(nodeid NodeId, state mac.State)
	Send(srcid NodeId, dstid NodeId, mvinfo *MsgVisualizeInfo)
	SetSpeed(speed float64)
	AdvanceTime(ts uint64, speed float64)

	OnNodeFail(nodeId NodeId)
	OnNodeRecover(nodeId NodeId)
	OnNodeDepleted(nodeId NodeId)
	SetTitle(titleInfo TitleInfo)
	UpdateNodesEnergy(nodes []energy.NodeConsumption, timestamp uint64)
}

// MsgVisualizeInfo describes one redundant burst sent by a node.
type MsgVisualizeInfo struct {
	FrameLen       int
	Copies         int
	SendDurationUs uint64
}

type TitleInfo struct {
	Title    string
	X        int
	Y        int
	FontSize int
}

func DefaultTitleInfo() TitleInfo {
	return TitleInfo{
		Title:    "",
		X:        0,
		Y:        20,
		FontSize: 20,
	}
}
