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
	"fmt"
	"math/rand"

	"github.com/speckmac/smns/energy"
	"github.com/speckmac/smns/event"
	"github.com/speckmac/smns/logger"
	"github.com/speckmac/smns/mac"
	"github.com/speckmac/smns/prng"
	"github.com/speckmac/smns/radiomodel"
	. "github.com/speckmac/smns/types"
)

// Node is a simulated SpeckMAC-D node: its MAC, its radio on the shared medium, and its energy
// account.
type Node struct {
	D          *Dispatcher
	Id         NodeId
	X, Y       int
	CreateTime uint64
	CurTime    uint64
	Mac        *mac.SpeckMac

	failureCtrl   *FailureCtrl
	failCheckEvt  *event.Event
	lastFailCheck uint64
	isFailed      bool
	radioNode     *radiomodel.RadioNode
	energy        *energy.NodeEnergy
	logger        *logger.NodeLogger
	rnd           *rand.Rand
}

func newNode(d *Dispatcher, nodeid NodeId, cfg *NodeConfig, network mac.Network) (*Node, error) {
	logger.AssertTrue(cfg.RadioRange >= 0)
	nodeCfg := *cfg
	nodeCfg.ID = nodeid
	cfg = &nodeCfg

	nc := &Node{
		D:          d,
		Id:         nodeid,
		CurTime:    d.CurTime,
		CreateTime: d.CurTime,
		X:          cfg.X,
		Y:          cfg.Y,
		logger:     logger.GetNodeLogger(d.cfg.OutputDir, cfg),
		rnd:        prng.NewNodeRand(),
	}
	nc.radioNode = d.medium.AddNode(nodeid, &radiomodel.RadioNodeConfig{
		X:          cfg.X,
		Y:          cfg.Y,
		RadioRange: cfg.RadioRange,
	})
	nc.energy = d.energyAnalyser.AddNode(nodeid, cfg.BatteryJ, nc.rnd, d.CurTime)
	nc.radioNode.SetStateListener(d.energyAnalyser.OnRadioStateChange)

	m, err := mac.New(nodeid, d.cfg.Mac, nc.radioNode, nc.energy, network, nodeScheduler{nc}, nc.rnd)
	if err != nil {
		d.medium.DeleteNode(nodeid)
		d.energyAnalyser.DeleteNode(nodeid)
		nc.logger.Close()
		return nil, err
	}
	m.SetObserver(d)
	nc.Mac = m
	nc.failureCtrl = newFailureCtrl(nc, NonFailTime)
	return nc, nil
}

func (node *Node) String() string {
	spacing := ""
	if node.Id < 10 {
		spacing = " "
	}
	return fmt.Sprintf("Node<%d>%s", node.Id, spacing)
}

// Schedule places evt on the dispatcher queue, delayUs from the current time.
func (node *Node) Schedule(evt *event.Event, delayUs uint64) {
	evt.NodeId = node.Id
	evt.Timestamp = node.D.CurTime + delayUs
	node.D.evtQueue.Add(evt)
}

// nodeScheduler is the MAC's view of the dispatcher time line.
type nodeScheduler struct {
	node *Node
}

func (ns nodeScheduler) CurTime() uint64 {
	return ns.node.D.CurTime
}

func (ns nodeScheduler) Schedule(evt *event.Event, delayUs uint64) {
	ns.node.Schedule(evt, delayUs)
}

func (ns nodeScheduler) Cancel(evt *event.Event) bool {
	return ns.node.D.evtQueue.Cancel(evt)
}

func (node *Node) RadioNode() *radiomodel.RadioNode {
	return node.radioNode
}

func (node *Node) Energy() *energy.NodeEnergy {
	return node.energy
}

func (node *Node) Logger() *logger.NodeLogger {
	return node.logger
}

func (node *Node) IsFailed() bool {
	return node.isFailed
}

func (node *Node) IsDepleted() bool {
	return node.energy != nil && node.energy.IsDepleted()
}

func (node *Node) Fail() {
	if !node.isFailed {
		node.isFailed = true
		if node.radioNode != nil {
			node.radioNode.SetFailed(true)
		}
		node.D.cbHandler.OnNodeFail(node.Id)
		node.D.vis.OnNodeFail(node.Id)
	}
}

func (node *Node) Recover() {
	if node.isFailed {
		node.isFailed = false
		if node.radioNode != nil {
			node.radioNode.SetFailed(false)
		}
		node.D.cbHandler.OnNodeRecover(node.Id)
		node.D.vis.OnNodeRecover(node.Id)
	}
}

func (node *Node) DumpStat() string {
	return fmt.Sprintf("CurTime=%v, Failed=%-5v, RecoverTS=%v, MAC=%v, Queue=%d", node.CurTime, node.isFailed,
		node.failureCtrl.recoverAt, node.Mac.State(), node.Mac.QueueLen())
}

func (node *Node) SetFailTime(failTime FailTime) {
	node.CurTime = node.D.CurTime
	next := node.failureCtrl.SetFailTime(failTime)
	node.lastFailCheck = node.CurTime
	node.scheduleFailureCheck(next)
}

func (node *Node) scheduleFailureCheck(ts uint64) {
	if node.failCheckEvt != nil {
		node.D.evtQueue.Cancel(node.failCheckEvt)
		node.failCheckEvt = nil
	}
	if ts >= Ever {
		return
	}
	if ts <= node.CurTime {
		ts = node.CurTime + 1
	}
	node.failCheckEvt = &event.Event{Type: event.EventTypeFailureCheck}
	node.Schedule(node.failCheckEvt, ts-node.CurTime)
}

func (node *Node) onFailureCheck() {
	node.failCheckEvt = nil
	oldTime := node.lastFailCheck
	node.lastFailCheck = node.CurTime
	next, _ := node.failureCtrl.OnTimeAdvanced(oldTime)
	node.scheduleFailureCheck(next)
}

// onDepleted switches the node off for good once its battery is empty.
func (node *Node) onDepleted() {
	node.logger.Infof("battery depleted")
	node.radioNode.Disable()
	node.Schedule(&event.Event{Type: event.EventTypeOutOfEnergy}, 0)
}
