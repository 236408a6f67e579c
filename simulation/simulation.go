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
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/speckmac/smns/dispatcher"
	"github.com/speckmac/smns/energy"
	"github.com/speckmac/smns/event"
	"github.com/speckmac/smns/logger"
	"github.com/speckmac/smns/progctx"
	. "github.com/speckmac/smns/types"
	"github.com/speckmac/smns/visualize"
)

type Simulation struct {
	Started    chan struct{}
	ctx        *progctx.ProgCtx
	stopped    bool
	cfg        *Config
	nodes      map[NodeId]*Node
	d          *dispatcher.Dispatcher
	vis        visualize.Visualizer
	cmdRunner  CmdRunner
	kpiMgr     *KpiManager
	nodePlacer *NodeAutoPlacer
	titleInfo  visualize.TitleInfo
}

func NewSimulation(ctx *progctx.ProgCtx, cfg *Config, dispatcherCfg *dispatcher.Config) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Simulation{
		Started:    make(chan struct{}),
		ctx:        ctx,
		cfg:        cfg,
		nodes:      map[NodeId]*Node{},
		nodePlacer: NewNodeAutoPlacer(),
		titleInfo:  visualize.DefaultTitleInfo(),
	}
	s.SetLogLevel(cfg.LogLevel)

	if dispatcherCfg == nil {
		dispatcherCfg = dispatcher.DefaultConfig()
	}
	dispatcherCfg.Speed = cfg.Speed
	dispatcherCfg.DumpPackets = cfg.DumpPackets
	dispatcherCfg.PcapEnabled = dispatcherCfg.PcapEnabled || cfg.PcapEnabled
	dispatcherCfg.OutputDir = cfg.OutputDir
	dispatcherCfg.SimulationId = cfg.Id
	dispatcherCfg.Mac.StrictInvariants = dispatcherCfg.Mac.StrictInvariants || cfg.Strict

	if err := s.createOutputDir(); err != nil {
		return nil, errors.Wrapf(err, "creating output directory %s failed", cfg.OutputDir)
	}
	if err := s.cleanOutputDir(cfg.Id); err != nil {
		return nil, errors.Wrapf(err, "cleaning output directory %s failed", cfg.OutputDir)
	}

	d, err := dispatcher.NewDispatcher(s.ctx, dispatcherCfg, s)
	if err != nil {
		return nil, err
	}
	s.d = d
	s.vis = s.d.GetVisualizer()
	s.d.AddHandler(event.EventTypeTrafficGen, s.onTrafficGen)
	s.kpiMgr = NewKpiManager()
	s.kpiMgr.Init(s)
	if cfg.Title != "" {
		s.SetTitle(cfg.Title)
	}
	return s, nil
}

func (s *Simulation) AddNode(cfg *NodeConfig) (*Node, error) {
	if s.cfg.ReadOnly {
		return nil, readonlySimulationError
	}
	nodeid := cfg.ID
	if nodeid <= 0 {
		nodeid = s.genNodeId()
	}
	if s.nodes[nodeid] != nil {
		return nil, errors.Errorf("node %d already exists", nodeid)
	}

	if cfg.IsAutoPlaced {
		cfg.X, cfg.Y = s.nodePlacer.NextNodePosition()
	} else {
		s.nodePlacer.UpdateReference(cfg.X, cfg.Y)
	}
	s.NodeConfigFinalize(cfg)

	logger.Debugf("simulation:AddNode: %+v", cfg)
	node, err := newNode(s, nodeid, cfg)
	if err != nil {
		logger.Errorf("simulation add node failed: %v", err)
		if cfg.IsAutoPlaced {
			s.nodePlacer.ReuseNextNodePosition()
		}
		return nil, err
	}
	s.nodes[nodeid] = node
	node.DisplayPendingLogEntries()
	return node, nil
}

func (s *Simulation) genNodeId() NodeId {
	nodeid := 1
	for s.nodes[nodeid] != nil {
		nodeid += 1
	}
	return nodeid
}

func (s *Simulation) Run() {
	s.ctx.WaitAdd("simulation", 1)
	defer s.ctx.WaitDone("simulation")
	defer logger.Debugf("simulation exit.")
	defer s.Stop()

	close(s.Started)
	s.d.Run()
}

func (s *Simulation) Nodes() map[NodeId]*Node {
	return s.nodes
}

// GetNodes returns a sorted array of NodeIds.
func (s *Simulation) GetNodes() []NodeId {
	keys := make([]NodeId, 0, len(s.nodes))
	for key := range s.nodes {
		keys = append(keys, key)
	}
	sort.Ints(keys)
	return keys
}

func (s *Simulation) AutoGo() bool {
	return s.cfg.AutoGo
}

func (s *Simulation) IsStopping() bool {
	return s.stopped || s.ctx.Err() != nil
}

// Stop ends the simulation: KPIs and energy data are saved and the program context is cancelled.
// The dispatcher stops (and drains the MACs) when its run loop exits.
func (s *Simulation) Stop() {
	if s.stopped {
		return
	}
	logger.Infof("stopping simulation ...")
	if s.kpiMgr.IsRunning() {
		s.kpiMgr.Stop()
	}
	if err := s.SaveEnergyData(); err != nil {
		logger.Errorf("saving energy data failed: %v", err)
	}
	s.stopped = true
	s.ctx.Cancel("simulation-stop")
}

func (s *Simulation) SetVisualizer(vis visualize.Visualizer) {
	logger.AssertNotNil(vis)
	s.vis = vis
	s.d.SetVisualizer(vis)
	vis.SetTitle(s.titleInfo)
}

func (s *Simulation) OnNodeFail(nodeid NodeId) {
	node := s.nodes[nodeid]
	if node != nil {
		node.Logger.Infof("radio failed")
	}
}

func (s *Simulation) OnNodeRecover(nodeid NodeId) {
	node := s.nodes[nodeid]
	if node != nil {
		node.Logger.Infof("radio recovered")
	}
}

func (s *Simulation) OnNodeDepleted(nodeid NodeId) {
	node := s.nodes[nodeid]
	if node != nil {
		node.Logger.Warnf("battery depleted")
		if node.traffic != nil {
			node.traffic.stopped = true
		}
	}
}

func (s *Simulation) PostAsync(trivial bool, f func()) {
	s.d.PostAsync(trivial, f)
}

func (s *Simulation) Dispatcher() *dispatcher.Dispatcher {
	return s.d
}

func (s *Simulation) VisitNodesInOrder(cb func(node *Node)) {
	for _, nodeid := range s.GetNodes() {
		cb(s.nodes[nodeid])
	}
}

func (s *Simulation) MoveNodeTo(nodeid NodeId, x, y int) error {
	if s.cfg.ReadOnly {
		return readonlySimulationError
	}
	node := s.nodes[nodeid]
	if node == nil {
		return errors.Errorf("node not found: %d", nodeid)
	}
	if err := s.d.SetNodePos(nodeid, x, y); err != nil {
		return err
	}
	node.cfg.X, node.cfg.Y = x, y
	s.nodePlacer.UpdateReference(x, y)
	return nil
}

// DeleteNode removes a node; its queued frames are discarded.
func (s *Simulation) DeleteNode(nodeid NodeId) error {
	if s.cfg.ReadOnly {
		return readonlySimulationError
	}
	node := s.nodes[nodeid]
	if node == nil {
		return errors.Errorf("node not found: %d", nodeid)
	}
	discarded, err := s.d.DeleteNode(nodeid)
	if err != nil {
		return err
	}
	if discarded > 0 {
		logger.Infof("node %d deleted, %d queued frames discarded", nodeid, discarded)
	}
	s.kpiMgr.stopNode(nodeid)
	delete(s.nodes, nodeid)
	return nil
}

// Send hands one application payload of size bytes for dst to the network layer of node src.
func (s *Simulation) Send(src NodeId, dst string, size int) (uint32, error) {
	node := s.nodes[src]
	if node == nil {
		return 0, errors.Errorf("node not found: %d", src)
	}
	return node.net.Send(dst, size)
}

func (s *Simulation) SetNodeFailed(id NodeId, failed bool) error {
	return s.d.SetNodeFailed(id, failed)
}

func (s *Simulation) SetFailTime(id NodeId, ft dispatcher.FailTime) error {
	return s.d.SetFailTime(id, ft)
}

func (s *Simulation) SetSpeed(speed float64) {
	s.d.SetSpeed(speed)
}

func (s *Simulation) GetSpeed() float64 {
	return s.d.GetSpeed()
}

// Go runs the simulation for duration at the dispatcher's set speed. The simulation must be running.
func (s *Simulation) Go(duration time.Duration) <-chan struct{} {
	return s.d.Go(duration)
}

// CurTime returns the current simulation time in us.
func (s *Simulation) CurTime() uint64 {
	return s.d.CurTime
}

func (s *Simulation) cleanOutputDir(simulationId int) error {
	for _, pattern := range []string{"%d_*.log", "%d_*.csv", "%d_*.json"} {
		if err := removeAllFiles(filepath.Join(s.cfg.OutputDir, fmt.Sprintf(pattern, simulationId))); err != nil {
			return err
		}
	}
	return nil
}

func (s *Simulation) createOutputDir() error {
	return os.MkdirAll(s.cfg.OutputDir, 0775)
}

func (s *Simulation) SetTitle(title string) {
	s.titleInfo.Title = title
	s.vis.SetTitle(s.titleInfo)
	s.d.GetEnergyAnalyser().SetTitle(title)
}

func (s *Simulation) SetCmdRunner(cmdRunner CmdRunner) {
	logger.AssertTrue(s.cmdRunner == nil)
	s.cmdRunner = cmdRunner
}

// RunScript runs CLI command lines through the registered command runner, stopping at the first
// command that fails to run.
func (s *Simulation) RunScript(lines []string, output io.Writer) error {
	if s.cmdRunner == nil {
		return errors.Errorf("no command runner")
	}
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if len(line) == 0 || strings.HasPrefix(line, "#") {
			continue
		}
		logger.Debugf("script: %s", line)
		if err := s.cmdRunner.RunCommand(line, output); err != nil {
			return err
		}
	}
	return nil
}

func (s *Simulation) GetEnergyAnalyser() *energy.EnergyAnalyser {
	return s.d.GetEnergyAnalyser()
}

// SaveEnergyData writes the energy history of all nodes to the output directory.
func (s *Simulation) SaveEnergyData() error {
	name := fmt.Sprintf("%d_energy", s.cfg.Id)
	return s.GetEnergyAnalyser().SaveEnergyDataToFile(s.cfg.OutputDir, name, s.d.CurTime)
}

func (s *Simulation) Kpi() *KpiManager {
	return s.kpiMgr
}

func (s *Simulation) GetConfig() *Config {
	return s.cfg
}

func (s *Simulation) GetLogLevel() logger.Level {
	return logger.GetLevel()
}

func (s *Simulation) SetLogLevel(level logger.Level) {
	logger.SetLevel(level)
}
