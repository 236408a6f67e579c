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
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/speckmac/smns/logger"
	. "github.com/speckmac/smns/types"
)

type KpiManager struct {
	sim           *Simulation
	data          *Kpi
	startCounters NodeCountersStore
	curCounters   NodeCountersStore
	startRx       map[NodeId]uint64
	curRx         map[NodeId]uint64
	startEnergy   map[NodeId]float64
	curEnergy     map[NodeId]float64
	isRunning     bool
}

// NewKpiManager creates a new KPI manager/bookkeeper for a particular simulation.
func NewKpiManager() *KpiManager {
	km := &KpiManager{}
	return km
}

// Init inits the KPI manager for the given simulation.
func (km *KpiManager) Init(sim *Simulation) {
	logger.AssertNil(km.sim)
	logger.AssertFalse(km.isRunning)
	km.sim = sim
	km.data = &Kpi{Status: "ok"}
	km.startCounters = NodeCountersStore{}
	km.curCounters = NodeCountersStore{}
}

func (km *KpiManager) Start() {
	logger.AssertNotNil(km.sim)
	km.data = &Kpi{Status: "ok"}
	km.startCounters = km.retrieveNodeCounters()
	km.startRx = km.retrieveDeliveries()
	km.startEnergy = km.retrieveEnergy()
	km.data.TimeUs.StartTimeUs = km.sim.Dispatcher().CurTime
	km.isRunning = true
	km.SaveDefaultFile()
}

func (km *KpiManager) Stop() {
	if km.isRunning {
		km.retrieveAll()
		km.isRunning = false
		km.calculateKpis()
		km.SaveDefaultFile()
	}
}

func (km *KpiManager) IsRunning() bool {
	return km.isRunning
}

// Data returns the KPIs, recalculated to the current time if the KPI period is running.
func (km *KpiManager) Data() *Kpi {
	if km.isRunning {
		km.retrieveAll()
		km.calculateKpis()
	}
	return km.data
}

func (km *KpiManager) SaveDefaultFile() {
	if err := km.SaveFile(km.getDefaultSaveFileName()); err != nil {
		logger.Errorf("%v", err)
	}
}

func (km *KpiManager) SaveFile(fn string) error {
	logger.AssertNotNil(km.sim)
	data := km.Data()
	data.FileTime = time.Now().Format(time.RFC3339)
	js, err := json.MarshalIndent(data, "", "    ")
	if err != nil {
		return errors.Wrap(err, "could not marshal KPI JSON data")
	}
	if err = os.WriteFile(fn, js, 0644); err != nil {
		return errors.Wrapf(err, "could not write KPI JSON file %s", fn)
	}
	return nil
}

func (km *KpiManager) stopNode(nodeid NodeId) {
	// deleted nodes during a KPI period won't be used anymore in final node-specific KPI calculations.
	delete(km.startCounters, nodeid)
	delete(km.curCounters, nodeid)
	delete(km.startEnergy, nodeid)
	delete(km.curEnergy, nodeid)
}

func (km *KpiManager) retrieveAll() {
	km.curCounters = km.retrieveNodeCounters()
	km.curRx = km.retrieveDeliveries()
	km.curEnergy = km.retrieveEnergy()
}

func (km *KpiManager) retrieveNodeCounters() NodeCountersStore {
	nodesMap := make(NodeCountersStore, len(km.sim.nodes))
	km.sim.VisitNodesInOrder(func(node *Node) {
		nodesMap[node.Id] = node.GetCounters()
	})
	return nodesMap
}

// retrieveDeliveries returns per origin the number of unique payload receptions at all other nodes.
func (km *KpiManager) retrieveDeliveries() map[NodeId]uint64 {
	res := map[NodeId]uint64{}
	for _, node := range km.sim.nodes {
		for origin, n := range node.net.rxFrom {
			res[origin] += n
		}
	}
	return res
}

func (km *KpiManager) retrieveEnergy() map[NodeId]float64 {
	res := map[NodeId]float64{}
	now := km.sim.Dispatcher().CurTime
	for id, node := range km.sim.nodes {
		ne := node.dnode.Energy()
		ne.ComputeRadioState(now)
		res[id] = ne.Consumption().Total()
	}
	return res
}

func getCountersDiff(curCtr NodeCounters, startCtr NodeCounters) NodeCounters {
	ret := NodeCounters{}
	for k, v := range curCtr {
		startVal := uint64(0) // if node wasn't known at start, it was created during - use 0 for a counter's start value.
		if sv, ok := startCtr[k]; ok {
			startVal = sv
		}
		ret[k] = v - startVal
	}
	return ret
}

func ratio(part, total uint64) float64 {
	if total == 0 {
		return 0.0
	}
	return float64(part) / float64(total)
}

func percentage(part, total uint64) float64 {
	return 100.0 * ratio(part, total)
}

func (km *KpiManager) calculateKpis() {
	// time
	km.data.TimeUs.EndTimeUs = km.sim.Dispatcher().CurTime
	km.data.TimeUs.PeriodUs = km.data.TimeUs.EndTimeUs - km.data.TimeUs.StartTimeUs
	km.data.TimeSec.StartTimeSec = float64(km.data.TimeUs.StartTimeUs) / 1e6
	km.data.TimeSec.EndTimeSec = float64(km.data.TimeUs.EndTimeUs) / 1e6
	km.data.TimeSec.PeriodSec = float64(km.data.TimeUs.PeriodUs) / 1e6

	km.data.Counters = make(map[NodeId]NodeCounters)
	km.data.Delivery = make(map[NodeId]KpiDelivery)
	km.data.EnergyMj = make(map[NodeId]float64)
	km.data.Channel = KpiChannel{}
	km.data.Mac = KpiMac{}
	if km.curCounters == nil {
		km.data.Status = "'counters' not included due to interrupted simulation"
		return
	}

	var txBytes, busy, free, copies uint64
	for nid, ctr := range km.curCounters {
		counters := getCountersDiff(ctr, km.startCounters[nid])
		km.data.Counters[nid] = counters

		km.data.Channel.NumFrames += counters["radio.frames_tx"]
		km.data.Channel.NumFramesLost += counters["radio.frames_lost"]
		txBytes += counters["radio.bytes_tx"]
		km.data.Mac.Bursts += counters["mac.bursts_sent"]
		km.data.Mac.BufferFullDrops += counters["mac.buffer_full_drops"]
		km.data.Mac.Defects += counters["mac.defects"]
		copies += counters["mac.copies_sent"]
		busy += counters["mac.carrier_busy"]
		free += counters["mac.carrier_free"]

		sent := counters["net.sent"]
		deliveries := km.curRx[nid] - km.startRx[nid]
		km.data.Delivery[nid] = KpiDelivery{
			Sent:         sent,
			Deliveries:   deliveries,
			AvgReceivers: ratio(deliveries, sent),
		}
		km.data.EnergyMj[nid] = km.curEnergy[nid] - km.startEnergy[nid]
	}

	// channel
	params := km.sim.Dispatcher().GetMedium().Params()
	passedTime := km.data.TimeUs.PeriodUs
	txBits := (txBytes + km.data.Channel.NumFrames*uint64(params.PhyOverhead)) * 8
	km.data.Channel.TxTimeUs = uint64(math.Round(float64(txBits) * 1e6 / params.BitRate))
	if passedTime > 0 {
		km.data.Channel.TxPercentage = percentage(km.data.Channel.TxTimeUs, passedTime)
		km.data.Channel.AvgFps = 1.0e6 * float64(km.data.Channel.NumFrames) / float64(passedTime)
	}

	// mac
	km.data.Mac.AvgCopiesPerBurst = ratio(copies, km.data.Mac.Bursts)
	km.data.Mac.CarrierBusyPercent = percentage(busy, busy+free)
}

func (km *KpiManager) getDefaultSaveFileName() string {
	return filepath.Join(km.sim.cfg.OutputDir, fmt.Sprintf("%d_kpi.json", km.sim.cfg.Id))
}
