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

package visualize_statslog

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/speckmac/smns/energy"
	"github.com/speckmac/smns/logger"
	"github.com/speckmac/smns/mac"
	. "github.com/speckmac/smns/types"
	. "github.com/speckmac/smns/visualize"
)

type statslogVisualizer struct {
	logFile        *os.File
	logFileName    string
	isFileEnabled  bool
	changed        bool   // flag to track if some node stats changed
	timestampUs    uint64 // simulation current timestamp
	logTimestampUs uint64 // last log entry timestamp
	stats          nodeStats
	oldStats       nodeStats

	nodeStates    map[NodeId]mac.State
	nodesFailed   map[NodeId]struct{}
	nodesDepleted map[NodeId]struct{}
	numBursts     int
	numCopies     int
	energyMj      float64
}

type nodeStats struct {
	numNodes      int
	numIdle       int
	numAttempting int
	numSensing    int
	numExpecting  int
	numTx         int
	numFailed     int
	numDepleted   int
	numBursts     int
	numCopies     int
}

// NewStatslogVisualizer creates a new Visualizer that writes a CSV log of network stats to file.
func NewStatslogVisualizer(outputDir string, simulationId int) Visualizer {
	return &statslogVisualizer{
		logFileName:   getStatsLogFileName(outputDir, simulationId),
		isFileEnabled: true,
		changed:       true,
		nodeStates:    make(map[NodeId]mac.State, 64),
		nodesFailed:   make(map[NodeId]struct{}),
		nodesDepleted: make(map[NodeId]struct{}),
	}
}

func (sv *statslogVisualizer) Init() {
	sv.createLogFile()
}

func (sv *statslogVisualizer) Run() {
	// no goroutine
}

func (sv *statslogVisualizer) Stop() {
	// add a final entry with final status
	sv.writeLogEntry(sv.timestampUs, sv.calcStats())
	sv.close()
	logger.Debugf("statslogVisualizer stopped and CSV log file closed.")
}

func (sv *statslogVisualizer) AddNode(nodeid NodeId, cfg *NodeConfig) {
	sv.changed = true
	sv.nodeStates[nodeid] = mac.StateIdle
}

func (sv *statslogVisualizer) DeleteNode(id NodeId) {
	sv.changed = true
	delete(sv.nodeStates, id)
	delete(sv.nodesFailed, id)
	delete(sv.nodesDepleted, id)
}

func (sv *statslogVisualizer) SetNodePos(NodeId, int, int) {
}

func (sv *statslogVisualizer) SetMacState(nodeid NodeId, state mac.State) {
	if _, ok := sv.nodeStates[nodeid]; !ok {
		return
	}
	sv.changed = true
	sv.nodeStates[nodeid] = state
}

func (sv *statslogVisualizer) Send(srcid NodeId, dstid NodeId, mvinfo *MsgVisualizeInfo) {
	sv.changed = true
	sv.numBursts++
	sv.numCopies += mvinfo.Copies
}

func (sv *statslogVisualizer) SetSpeed(float64) {
}

func (sv *statslogVisualizer) AdvanceTime(ts uint64, speed float64) {
	if sv.changed && sv.checkLogEntryChange() {
		sv.writeLogEntry(sv.timestampUs, sv.stats)
		sv.logTimestampUs = sv.timestampUs
		sv.oldStats = sv.stats
	}
	sv.changed = false // this is kept to avoid sv.calcStats() call every time.
	sv.timestampUs = ts
}

func (sv *statslogVisualizer) OnNodeFail(nodeid NodeId) {
	sv.changed = true
	sv.nodesFailed[nodeid] = struct{}{}
}

func (sv *statslogVisualizer) OnNodeRecover(nodeid NodeId) {
	sv.changed = true
	delete(sv.nodesFailed, nodeid)
}

func (sv *statslogVisualizer) OnNodeDepleted(nodeid NodeId) {
	sv.changed = true
	sv.nodesDepleted[nodeid] = struct{}{}
}

func (sv *statslogVisualizer) SetTitle(TitleInfo) {
}

func (sv *statslogVisualizer) UpdateNodesEnergy(nodes []energy.NodeConsumption, timestamp uint64) {
	total := 0.0
	for _, n := range nodes {
		total += n.Total()
	}
	sv.energyMj = total
}

func (sv *statslogVisualizer) createLogFile() {
	logger.AssertNil(sv.logFile)

	var err error
	_ = os.Remove(sv.logFileName)

	sv.logFile, err = os.OpenFile(sv.logFileName, os.O_CREATE|os.O_WRONLY, 0664)
	if err != nil {
		logger.Errorf("creating new stats log file %s failed: %+v", sv.logFileName, err)
		sv.isFileEnabled = false
		return
	}
	sv.writeLogFileHeader()
	logger.Debugf("Stats log file '%s' created.", sv.logFileName)
}

func (sv *statslogVisualizer) writeLogFileHeader() {
	// RFC 4180 CSV file: no leading or trailing spaces in header field names
	header := "timeSec,nNodes,nIdle,nAttemptingTx,nCarrierSensing,nExpectingRx,nTx,nFailed,nDepleted,nBursts,nCopies"
	_ = sv.writeToLogFile(header)
}

func (sv *statslogVisualizer) calcStats() nodeStats {
	s := nodeStats{
		numNodes:      len(sv.nodeStates),
		numIdle:       countState(sv.nodeStates, mac.StateIdle),
		numAttempting: countState(sv.nodeStates, mac.StateAttemptingTx),
		numSensing:    countState(sv.nodeStates, mac.StateCarrierSensing),
		numExpecting:  countState(sv.nodeStates, mac.StateExpectingRx),
		numTx:         countState(sv.nodeStates, mac.StateTx),
		numFailed:     len(sv.nodesFailed),
		numDepleted:   len(sv.nodesDepleted),
		numBursts:     sv.numBursts,
		numCopies:     sv.numCopies,
	}
	return s
}

func (sv *statslogVisualizer) checkLogEntryChange() bool {
	sv.stats = sv.calcStats()
	return sv.stats != sv.oldStats
}

func (sv *statslogVisualizer) writeLogEntry(ts uint64, stats nodeStats) {
	timeSec := float64(ts) / 1e6
	entry := fmt.Sprintf("%12.6f, %3d,%3d,%3d,%3d,%3d,%3d,%3d,%3d,%5d,%6d", timeSec, stats.numNodes, stats.numIdle,
		stats.numAttempting, stats.numSensing, stats.numExpecting, stats.numTx, stats.numFailed, stats.numDepleted,
		stats.numBursts, stats.numCopies)
	_ = sv.writeToLogFile(entry)
	logger.Tracef("statslog entry added: %s", entry)
}

func (sv *statslogVisualizer) writeToLogFile(line string) error {
	if !sv.isFileEnabled {
		return nil
	}
	_, err := sv.logFile.WriteString(line + "\n")
	if err != nil {
		sv.close()
		sv.isFileEnabled = false
		logger.Errorf("couldn't write to stats log file (%s), closing it", sv.logFileName)
	}
	return err
}

func (sv *statslogVisualizer) close() {
	if sv.logFile != nil {
		_ = sv.logFile.Close()
		sv.logFile = nil
		sv.isFileEnabled = false
	}
}

func getStatsLogFileName(outputDir string, simId int) string {
	return filepath.Join(outputDir, fmt.Sprintf("%d_stats.csv", simId))
}

func countState(nodeStates map[NodeId]mac.State, state mac.State) int {
	c := 0
	for _, s := range nodeStates {
		if s == state {
			c++
		}
	}
	return c
}
