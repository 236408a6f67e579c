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
	"math/rand"

	"github.com/speckmac/smns/dispatcher"
	"github.com/speckmac/smns/logger"
	"github.com/speckmac/smns/prng"
	. "github.com/speckmac/smns/types"
)

type Node struct {
	S      *Simulation
	Id     NodeId
	Logger *logger.NodeLogger
	cfg    *NodeConfig

	dnode   *dispatcher.Node
	net     *NetworkLayer
	traffic *trafficGen
	rnd     *rand.Rand
}

func newNode(s *Simulation, nodeid NodeId, cfg *NodeConfig) (*Node, error) {
	dcfg := s.d.GetConfig()
	send := func(dst string, payload []byte) error {
		return s.d.SendPayload(nodeid, dst, payload)
	}
	net := newNetworkLayer(nodeid, dcfg.Mac.MaxFrameSize-dcfg.Mac.HeaderOverhead, send, nil)

	dnode, err := s.d.AddNode(nodeid, cfg, net)
	if err != nil {
		return nil, err
	}
	net.log = dnode.Logger()

	node := &Node{
		S:      s,
		Id:     nodeid,
		Logger: dnode.Logger(),
		cfg:    cfg,
		dnode:  dnode,
		net:    net,
		rnd:    prng.NewNodeRand(),
	}
	node.Logger.Debugf("position: (%d,%d) range %d battery %gJ", cfg.X, cfg.Y, cfg.RadioRange, cfg.BatteryJ)
	return node, nil
}

func (node *Node) String() string {
	return GetNodeName(node.Id)
}

func (node *Node) Config() NodeConfig {
	return *node.cfg
}

func (node *Node) Network() *NetworkLayer {
	return node.net
}

func (node *Node) DispatcherNode() *dispatcher.Node {
	return node.dnode
}

// TrafficConfig returns the active traffic generator config, if any.
func (node *Node) TrafficConfig() (TrafficConfig, bool) {
	if node.traffic == nil || node.traffic.stopped || node.traffic.done() {
		return TrafficConfig{}, false
	}
	return node.traffic.cfg, true
}

// GetCounters returns the node's MAC, radio and network counters, with "mac.", "radio." and "net."
// key prefixes.
func (node *Node) GetCounters() NodeCounters {
	macCounters, err1 := structCounters("mac.", &node.dnode.Mac.Counters)
	radioCounters, err2 := structCounters("radio.", &node.dnode.RadioNode().Stats)
	netCounters, err3 := structCounters("net.", &node.net.Counters)
	for _, err := range []error{err1, err2, err3} {
		logger.PanicIfError(err)
	}
	return mergeNodeCounters(macCounters, radioCounters, netCounters)
}

func (node *Node) DisplayPendingLogEntries() {
	node.Logger.DisplayPendingLogEntries(node.S.d.CurTime)
}
