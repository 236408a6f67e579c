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
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"

	"github.com/speckmac/smns/logger"
	. "github.com/speckmac/smns/types"
)

type EnergyAnalyser struct {
	cfg                  *Config
	nodes                map[int]*NodeEnergy
	networkHistory       []NetworkConsumption
	energyHistoryByNodes [][]NodeConsumption
	title                string
}

func (e *EnergyAnalyser) Config() *Config {
	return e.cfg
}

// AddNode starts energy accounting for a node. A batteryJ of 0 means mains-powered.
func (e *EnergyAnalyser) AddNode(nodeID int, batteryJ float64, rnd *rand.Rand, timestamp uint64) *NodeEnergy {
	if node, ok := e.nodes[nodeID]; ok {
		return node
	}
	node := newNode(nodeID, e.cfg, batteryJ, rnd, timestamp)
	e.nodes[nodeID] = node
	return node
}

func (e *EnergyAnalyser) DeleteNode(nodeID int) {
	delete(e.nodes, nodeID)

	if len(e.nodes) == 0 {
		e.ClearEnergyData()
	}
}

func (e *EnergyAnalyser) GetNode(nodeID int) *NodeEnergy {
	return e.nodes[nodeID]
}

// OnRadioStateChange is a radio state listener feeding the per-node accounting.
func (e *EnergyAnalyser) OnRadioStateChange(nodeID NodeId, state RadioStates, timestamp uint64) {
	if node := e.nodes[nodeID]; node != nil {
		node.SetRadioState(state, timestamp)
	}
}

func (e *EnergyAnalyser) GetNetworkEnergyHistory() []NetworkConsumption {
	return e.networkHistory
}

func (e *EnergyAnalyser) GetEnergyHistoryByNodes() [][]NodeConsumption {
	return e.energyHistoryByNodes
}

func (e *EnergyAnalyser) GetLatestEnergyOfNodes() []NodeConsumption {
	if len(e.energyHistoryByNodes) == 0 {
		return nil
	}
	return e.energyHistoryByNodes[len(e.energyHistoryByNodes)-1]
}

func (e *EnergyAnalyser) sortedNodeIds() []int {
	sortedNodes := make([]int, 0, len(e.nodes))
	for id := range e.nodes {
		sortedNodes = append(sortedNodes, id)
	}
	sort.Ints(sortedNodes)
	return sortedNodes
}

// StoreNetworkEnergy takes a snapshot of all nodes and returns the ids of nodes whose battery
// ran out since the previous snapshot.
func (e *EnergyAnalyser) StoreNetworkEnergy(timestamp uint64) []NodeId {
	nodesEnergySnapshot := make([]NodeConsumption, 0, len(e.nodes))
	networkSnapshot := NetworkConsumption{
		Timestamp: timestamp,
	}
	var depleted []NodeId

	netSize := float64(len(e.nodes))
	for _, id := range e.sortedNodeIds() {
		node := e.nodes[id]
		node.ComputeRadioState(timestamp)
		if node.CheckDepleted(timestamp) {
			depleted = append(depleted, id)
		}

		c := node.Consumption()
		networkSnapshot.EnergyConsDisabled += c.Disabled / netSize
		networkSnapshot.EnergyConsSleep += c.Sleep / netSize
		networkSnapshot.EnergyConsTx += c.Tx / netSize
		networkSnapshot.EnergyConsRx += c.Rx / netSize
		nodesEnergySnapshot = append(nodesEnergySnapshot, c)
	}

	e.networkHistory = append(e.networkHistory, networkSnapshot)
	e.energyHistoryByNodes = append(e.energyHistoryByNodes, nodesEnergySnapshot)
	return depleted
}

// SaveEnergyDataToFile writes the per-node and network energy reports into dir.
func (e *EnergyAnalyser) SaveEnergyDataToFile(dir string, name string, timestamp uint64) error {
	if name == "" {
		if e.title == "" {
			name = "energy"
		} else {
			name = e.title
		}
	}

	dir = filepath.Join(dir, "energy_results")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "create %s", dir)
	}

	path := filepath.Join(dir, name)
	fileNodes, err := os.Create(path + "_nodes.txt")
	if err != nil {
		return err
	}
	defer fileNodes.Close()

	fileNetwork, err := os.Create(path + ".txt")
	if err != nil {
		return err
	}
	defer fileNetwork.Close()

	e.writeEnergyByNodes(fileNodes, timestamp)
	e.writeNetworkEnergy(fileNetwork, timestamp)
	logger.Debugf("energy data written to %s", path)
	return nil
}

func (e *EnergyAnalyser) writeEnergyByNodes(w io.Writer, timestamp uint64) {
	fmt.Fprintf(w, "Duration of the simulated network (in milliseconds): %d\n", timestamp/1000)
	fmt.Fprintf(w, "ID\tDisabled (mJ)\tSleep (mJ)\tTransmitting (mJ)\tReceiving (mJ)\tRemaining (mJ)\n")

	for _, id := range e.sortedNodeIds() {
		node := e.nodes[id]
		node.ComputeRadioState(timestamp)
		c := node.Consumption()
		fmt.Fprintf(w, "%d\t%f\t%f\t%f\t%f\t%f\n", id, c.Disabled, c.Sleep, c.Tx, c.Rx, node.RemainingMj())
	}
}

func (e *EnergyAnalyser) writeNetworkEnergy(w io.Writer, timestamp uint64) {
	fmt.Fprintf(w, "Duration of the simulated network (in milliseconds): %d\n", timestamp/1000)
	fmt.Fprintf(w, "Time (ms)\tDisabled (mJ)\tSleep (mJ)\tTransmitting (mJ)\tReceiving (mJ)\n")
	for _, snapshot := range e.networkHistory {
		fmt.Fprintf(w, "%d\t%f\t%f\t%f\t%f\n",
			snapshot.Timestamp/1000,
			snapshot.EnergyConsDisabled,
			snapshot.EnergyConsSleep,
			snapshot.EnergyConsTx,
			snapshot.EnergyConsRx,
		)
	}
}

func (e *EnergyAnalyser) ClearEnergyData() {
	logger.Debugf("Node's energy data cleared")
	e.networkHistory = make([]NetworkConsumption, 0, 3600)
	e.energyHistoryByNodes = make([][]NodeConsumption, 0, 3600)
}

func (e *EnergyAnalyser) SetTitle(title string) {
	e.title = title
}

func NewEnergyAnalyser(cfg *Config) *EnergyAnalyser {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	ea := &EnergyAnalyser{
		cfg:                  cfg,
		nodes:                make(map[int]*NodeEnergy),
		networkHistory:       make([]NetworkConsumption, 0, 3600), //Start with space for 1 sample every second for 1 hour
		energyHistoryByNodes: make([][]NodeConsumption, 0, 3600),
	}
	return ea
}
