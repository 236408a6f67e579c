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
	"encoding/hex"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/speckmac/smns/energy"
	"github.com/speckmac/smns/event"
	"github.com/speckmac/smns/logger"
	"github.com/speckmac/smns/mac"
	"github.com/speckmac/smns/pcap"
	"github.com/speckmac/smns/progctx"
	"github.com/speckmac/smns/radiomodel"
	. "github.com/speckmac/smns/types"
	"github.com/speckmac/smns/visualize"
)

type goDuration struct {
	duration time.Duration
	done     chan struct{}
}

// EventHandler handles events of a type the dispatcher does not own, e.g. traffic generation.
type EventHandler func(node *Node, evt *event.Event)

type Dispatcher struct {
	ctx                *progctx.ProgCtx
	cfg                Config
	cbHandler          CallbackHandler
	waitGroup          sync.WaitGroup
	CurTime            uint64
	pauseTime          uint64
	evtQueue           *event.Queue
	medium             *radiomodel.Medium
	energyAnalyser     *energy.EnergyAnalyser
	energySampleEvt    *event.Event
	nodes              map[NodeId]*Node
	deletedNodes       map[NodeId]struct{}
	handlers           map[event.EventType]EventHandler
	pcap               pcap.File
	pcapFrameChan      chan pcap.Frame
	vis                visualize.Visualizer
	taskChan           chan func()
	speed              float64
	speedStartRealTime time.Time
	speedStartTime     uint64
	goDurationChan     chan goDuration
	visOptions         VisualizationOptions
	watchLevel         logger.Level

	Counters struct {
		// Event counters
		MacEvents     uint64
		RadioEvents   uint64
		HandlerEvents uint64
		EnergyEvents  uint64
		FailureEvents uint64
		EventsDropped uint64
		// Frame counters
		FramesOnAir uint64
		FramesRxOk  uint64
		FramesLost  uint64
		Bursts      uint64
	}
	watchingNodes map[NodeId]struct{}
	stopped       bool
}

// mediumQueue lets the Medium place its events on the dispatcher queue.
type mediumQueue struct {
	d *Dispatcher
}

func (mq mediumQueue) CurTime() uint64 {
	return mq.d.CurTime
}

func (mq mediumQueue) AddEvent(evt *event.Event) {
	logger.AssertTrue(evt.Timestamp >= mq.d.CurTime)
	mq.d.evtQueue.Add(evt)
}

func NewDispatcher(ctx *progctx.ProgCtx, cfg *Config, cbHandler CallbackHandler) (*Dispatcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	watchLevel, _ := logger.ParseLevelString(cfg.DefaultWatchLevel)

	d := &Dispatcher{
		ctx:                ctx,
		cfg:                *cfg,
		cbHandler:          cbHandler,
		evtQueue:           event.NewQueue(),
		energyAnalyser:     energy.NewEnergyAnalyser(cfg.Energy),
		nodes:              make(map[NodeId]*Node),
		deletedNodes:       map[NodeId]struct{}{},
		handlers:           map[event.EventType]EventHandler{},
		pcapFrameChan:      make(chan pcap.Frame, 100000),
		speed:              cfg.Speed,
		speedStartRealTime: time.Now(),
		vis:                visualize.NewNopVisualizer(),
		taskChan:           make(chan func(), 100),
		watchingNodes:      map[NodeId]struct{}{},
		goDurationChan:     make(chan goDuration, 10),
		visOptions:         defaultVisualizationOptions(),
		watchLevel:         watchLevel,
	}
	var err error
	if d.medium, err = radiomodel.NewMedium(cfg.Radio, mediumQueue{d}); err != nil {
		return nil, err
	}
	d.medium.SetObserver(d)
	d.speed = d.normalizeSpeed(d.speed)
	if d.cfg.PcapEnabled {
		fn := filepath.Join(d.cfg.OutputDir, "current.pcap")
		if d.pcap, err = pcap.NewFile(fn, d.cfg.PcapFrameType, true); err != nil {
			return nil, errors.Wrapf(err, "create %s", fn)
		}
		d.waitGroup.Add(1)
		go d.pcapFrameWriter()
	}

	d.vis.SetSpeed(d.speed)
	logger.Infof("dispatcher started: speed=%v, radio model=%s", d.speed, d.medium.Model().GetName())

	return d, nil
}

func (d *Dispatcher) Stop() {
	if d.stopped {
		return
	}
	d.stopped = true
	for _, id := range d.NodeIds() {
		node := d.nodes[id]
		node.Mac.Finish()
		node.logger.DisplayPendingLogEntries(d.CurTime)
	}
	close(d.pcapFrameChan)
	d.vis.Stop()
	d.waitGroup.Wait()
}

func (d *Dispatcher) Nodes() map[NodeId]*Node {
	return d.nodes
}

// NodeIds returns the ids of all nodes, sorted.
func (d *Dispatcher) NodeIds() []NodeId {
	ids := make([]NodeId, 0, len(d.nodes))
	for id := range d.nodes {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func (d *Dispatcher) Go(duration time.Duration) <-chan struct{} {
	done := make(chan struct{})
	d.goDurationChan <- goDuration{
		duration: duration,
		done:     done,
	}
	return done
}

func (d *Dispatcher) Run() {
	d.ctx.WaitAdd("dispatcher", 1)
	defer d.ctx.WaitDone("dispatcher")
	defer logger.Debugf("dispatcher exit.")

	defer d.Stop()

	done := d.ctx.Done()
loop:
	for {
		select {
		case f := <-d.taskChan:
			f()
		case duration := <-d.goDurationChan:
			d.RunFor(duration.duration)
			close(duration.done)
			if d.ctx.Err() != nil {
				break loop
			}
		case <-done:
			break loop
		}
	}
}

// RunFor advances the simulation by duration, processing all events up to and including the
// end time. It must be called from the dispatcher's goroutine.
func (d *Dispatcher) RunFor(duration time.Duration) {
	// sync the speed start time with the current time
	d.speedStartRealTime = time.Now()
	d.speedStartTime = d.CurTime

	logger.AssertTrue(d.CurTime == d.pauseTime)
	oldPauseTime := d.pauseTime
	d.pauseTime += uint64(duration / time.Microsecond)
	if d.pauseTime > Ever || d.pauseTime < oldPauseTime {
		d.pauseTime = Ever
	}

	d.goUntilPauseTime()
	if d.ctx.Err() != nil {
		return
	}
	logger.AssertTrue(d.CurTime == d.pauseTime)
	d.vis.AdvanceTime(d.CurTime, d.speed)
	if d.pcap != nil {
		d.PostPcapSync()
	}
}

func (d *Dispatcher) goUntilPauseTime() {
	for d.CurTime < d.pauseTime {
		d.handleTasks()

		if d.ctx.Err() != nil {
			// keep time consistent for a later Go.
			d.pauseTime = d.CurTime
			break
		}

		if !d.processNextEvent() {
			d.advanceTime(d.pauseTime) // if no more events until pauseTime, sim time is advanced to goal.
		}
	}
}

// processNextEvent processes all queued events of the next event time, as long as that is not
// beyond the pause time. It returns false if there is nothing to do until the pause time.
func (d *Dispatcher) processNextEvent() bool {
	logger.AssertTrue(d.CurTime <= d.pauseTime)

	nextEventTime := d.evtQueue.NextTimestamp()

	// convert nextEventTime to real time
	if d.speed < MaxSimulateSpeed {
		var sleepUntilTime = minUint64(nextEventTime, d.pauseTime)
		var needSleepDuration time.Duration

		if d.speed <= 0 {
			needSleepDuration = time.Hour
		} else {
			needSleepDuration = time.Duration(float64(sleepUntilTime-d.speedStartTime)/d.speed) * time.Microsecond
		}
		sleepUntilRealTime := d.speedStartRealTime.Add(needSleepDuration)
		sleepTime := time.Until(sleepUntilRealTime)

		if sleepTime > 0 {
			if sleepTime > time.Millisecond*10 {
				sleepTime = time.Millisecond * 10
			}
			time.Sleep(sleepTime)
			return true
		}
	}

	if nextEventTime > d.pauseTime {
		return false
	}

	d.advanceTime(nextEventTime)
	for d.evtQueue.NextTimestamp() == nextEventTime {
		d.handleEvent(d.evtQueue.PopNext())
	}
	return true
}

// handleEvent is the central handler for all events in the queue.
func (d *Dispatcher) handleEvent(evt *event.Event) {
	logger.AssertTrue(evt.Timestamp == d.CurTime)
	if evt.NodeId == InvalidNodeId {
		switch evt.Type {
		case event.EventTypeEnergySample:
			d.Counters.EnergyEvents++
			d.onEnergySample()
		default:
			logger.Panicf("unexpected network-wide event: %v", evt)
		}
		return
	}

	node := d.nodes[evt.NodeId]
	if node == nil {
		if _, ok := d.deletedNodes[evt.NodeId]; !ok {
			logger.Warnf("event for unknown node: %v", evt)
		}
		d.Counters.EventsDropped++
		return
	}
	node.CurTime = d.CurTime

	if d.isWatching(evt.NodeId) {
		node.logger.Tracef("dispatch %v", evt)
	}

	switch evt.Type {
	case event.EventTypeRadioFrameStart, event.EventTypeRadioFrameEnd:
		d.Counters.RadioEvents++
		d.medium.HandleEvent(evt)
	case event.EventTypeFailureCheck:
		d.Counters.FailureEvents++
		node.onFailureCheck()
	default:
		if event.IsMacEvent(evt.Type) {
			d.Counters.MacEvents++
			node.Mac.HandleEvent(evt)
		} else if h := d.handlers[evt.Type]; h != nil {
			d.Counters.HandlerEvents++
			h(node, evt)
		} else {
			logger.Panicf("event type not implemented: %v", evt)
		}
	}
	node.logger.DisplayPendingLogEntries(d.CurTime)
}

// AddHandler registers the handler for events of type tp, which must not be a MAC or radio event.
func (d *Dispatcher) AddHandler(tp event.EventType, h EventHandler) {
	logger.AssertFalse(event.IsMacEvent(tp))
	d.handlers[tp] = h
}

// PostEvent schedules evt for node nodeid, delayUs from now.
func (d *Dispatcher) PostEvent(nodeid NodeId, evt *event.Event, delayUs uint64) error {
	node := d.nodes[nodeid]
	if node == nil {
		return errors.Errorf("node %d not found", nodeid)
	}
	node.Schedule(evt, delayUs)
	return nil
}

// SendPayload hands a network-layer payload for dst to the MAC of node src.
func (d *Dispatcher) SendPayload(src NodeId, dst string, payload []byte) error {
	return d.PostEvent(src, &event.Event{
		Type: event.EventTypeNetPayload,
		Data: append([]byte(nil), payload...),
		Dst:  dst,
	}, 0)
}

func (d *Dispatcher) scheduleEnergySample() {
	if d.energySampleEvt != nil {
		return
	}
	d.energySampleEvt = &event.Event{
		Timestamp: d.CurTime + uint64(d.cfg.Energy.SamplePeriod/time.Microsecond),
		Type:      event.EventTypeEnergySample,
		NodeId:    InvalidNodeId,
	}
	d.evtQueue.Add(d.energySampleEvt)
}

func (d *Dispatcher) onEnergySample() {
	d.energySampleEvt = nil
	for _, id := range d.energyAnalyser.StoreNetworkEnergy(d.CurTime) {
		node := d.nodes[id]
		node.onDepleted()
		d.cbHandler.OnNodeDepleted(id)
		d.vis.OnNodeDepleted(id)
	}
	if d.visOptions.Energy {
		d.vis.UpdateNodesEnergy(d.energyAnalyser.GetLatestEnergyOfNodes(), d.CurTime)
	}
	if len(d.nodes) > 0 {
		d.scheduleEnergySample()
	}
}

// OnStateChange implements mac.Observer.
func (d *Dispatcher) OnStateChange(id NodeId, old mac.State, new mac.State) {
	if d.visOptions.MacStates {
		d.vis.SetMacState(id, new)
	}
}

// OnTransmitBurst implements mac.Observer.
func (d *Dispatcher) OnTransmitBurst(id NodeId, frameLen int, copies int) {
	d.Counters.Bursts++
	if d.visOptions.Bursts {
		d.vis.Send(id, BroadcastNodeId, &visualize.MsgVisualizeInfo{
			FrameLen:       frameLen,
			Copies:         copies,
			SendDurationUs: uint64(copies) * d.medium.AirTimeUs(frameLen),
		})
	}
}

// OnFrameTx implements radiomodel.FrameObserver.
func (d *Dispatcher) OnFrameTx(src NodeId, data []byte, timestamp uint64, durationUs uint64) {
	d.Counters.FramesOnAir++
	if d.pcap != nil {
		d.pcapFrameChan <- pcap.Frame{
			Timestamp:  timestamp,
			Data:       append([]byte(nil), data...),
			Src:        src,
			DurationUs: durationUs,
		}
	}
	if d.cfg.DumpPackets {
		logger.Infof("%s>>> %s", GetNodeName(src), hex.EncodeToString(data))
	}
}

// OnFrameRx implements radiomodel.FrameObserver.
func (d *Dispatcher) OnFrameRx(src NodeId, dst NodeId, success bool) {
	if success {
		d.Counters.FramesRxOk++
	} else {
		d.Counters.FramesLost++
	}
}

func (d *Dispatcher) pcapFrameWriter() {
	defer d.waitGroup.Done()
	defer func() {
		err := d.pcap.Close()
		if err != nil {
			logger.Errorf("failed to close pcap: %v", err)
		}
	}()

	for item := range d.pcapFrameChan {
		if item.Data == nil {
			// sync request
			if err := d.pcap.Sync(); err != nil {
				logger.Errorf("sync pcap failed: %+v", err)
			}
			continue
		}
		if err := d.pcap.AppendFrame(item); err != nil {
			logger.Errorf("write pcap failed: %+v", err)
		}
	}
}

// PostPcapSync asks the pcap writer to flush the file.
func (d *Dispatcher) PostPcapSync() {
	select {
	case d.pcapFrameChan <- pcap.Frame{}:
	default:
	}
}

func (d *Dispatcher) SetVisualizer(vis visualize.Visualizer) {
	logger.AssertNotNil(vis)
	d.vis = vis
	d.vis.SetSpeed(d.speed)
}

func (d *Dispatcher) GetVisualizer() visualize.Visualizer {
	return d.vis
}

// AddNode creates node nodeid, with network as the layer above its MAC, and starts it.
func (d *Dispatcher) AddNode(nodeid NodeId, cfg *NodeConfig, network mac.Network) (*Node, error) {
	if nodeid <= InvalidNodeId || nodeid > MaxNodeId {
		return nil, errors.Errorf("invalid node id %d", nodeid)
	}
	if d.nodes[nodeid] != nil {
		return nil, errors.Errorf("node %d already exists", nodeid)
	}
	node, err := newNode(d, nodeid, cfg, network)
	if err != nil {
		return nil, err
	}
	d.nodes[nodeid] = node
	delete(d.deletedNodes, nodeid)
	if d.cfg.DefaultWatchOn {
		d.WatchNode(nodeid, d.watchLevel)
	}

	d.vis.AddNode(nodeid, cfg)
	logger.Debugf("dispatcher add node %d", nodeid)

	node.Schedule(&event.Event{Type: event.EventTypeNodeStartup}, 0)
	d.scheduleEnergySample()
	return node, nil
}

func (d *Dispatcher) advanceTime(ts uint64) {
	logger.AssertTrue(d.CurTime <= ts, "%v > %v", d.CurTime, ts)
	logger.AssertTrue(ts <= d.evtQueue.NextTimestamp())
	if d.CurTime < ts {
		oldTime := d.CurTime
		d.CurTime = ts
		elapsedTime := int64(d.CurTime - d.speedStartTime)
		elapsedRealTime := time.Since(d.speedStartRealTime) / time.Microsecond
		if elapsedRealTime > 0 && ts/1000000 != oldTime/1000000 {
			d.vis.AdvanceTime(ts, float64(elapsedTime)/float64(elapsedRealTime))
		}
	}
}

func (d *Dispatcher) PostAsync(trivial bool, task func()) {
	if trivial {
		select {
		case d.taskChan <- task:
		default:
		}
	} else {
		d.taskChan <- task
	}
}

func (d *Dispatcher) handleTasks() {
	defer func() {
		err := recover()
		if err != nil {
			logger.Errorf("dispatcher handle task failed: %+v", err)
		}
	}()

loop:
	for {
		select {
		case t := <-d.taskChan:
			t()
		default:
			break loop
		}
	}
}

// WatchNode shows the node's log entries up to the given level.
func (d *Dispatcher) WatchNode(nodeid NodeId, level logger.Level) {
	if node := d.nodes[nodeid]; node != nil {
		d.watchingNodes[nodeid] = struct{}{}
		node.logger.SetDisplayLevel(level)
	}
}

func (d *Dispatcher) UnwatchNode(nodeid NodeId) {
	delete(d.watchingNodes, nodeid)
	if node := d.nodes[nodeid]; node != nil {
		node.logger.SetDisplayLevel(logger.WarnLevel)
	}
}

// SetDefaultWatch sets whether, and at what level, nodes added from now on are watched.
func (d *Dispatcher) SetDefaultWatch(on bool, level logger.Level) {
	d.cfg.DefaultWatchOn = on
	d.cfg.DefaultWatchLevel = logger.GetLevelString(level)
	d.watchLevel = level
}

func (d *Dispatcher) GetDefaultWatch() (bool, logger.Level) {
	return d.cfg.DefaultWatchOn, d.watchLevel
}

func (d *Dispatcher) isWatching(nodeid NodeId) bool {
	_, ok := d.watchingNodes[nodeid]
	return ok
}

func (d *Dispatcher) GetWatchingNodes() []NodeId {
	var ids []NodeId
	for id := range d.watchingNodes {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func (d *Dispatcher) GetNode(id NodeId) *Node {
	return d.nodes[id]
}

func (d *Dispatcher) GetFailedCount() int {
	failCount := 0
	for _, dn := range d.nodes {
		if dn.IsFailed() {
			failCount += 1
		}
	}
	return failCount
}

func (d *Dispatcher) SetNodePos(id NodeId, x, y int) error {
	node := d.nodes[id]
	if node == nil {
		return errors.Errorf("node %d not found", id)
	}
	node.X, node.Y = x, y
	node.radioNode.SetNodePos(x, y)
	d.vis.SetNodePos(id, x, y)
	return nil
}

// DeleteNode removes a node and all of its pending events. Frames still queued in its MAC are
// discarded; their number is returned.
func (d *Dispatcher) DeleteNode(id NodeId) (int, error) {
	node := d.nodes[id]
	if node == nil {
		return 0, errors.Errorf("node %d not found", id)
	}

	discarded := node.Mac.Finish()
	d.evtQueue.RemoveNode(id)
	d.medium.DeleteNode(id)
	d.energyAnalyser.DeleteNode(id)
	node.logger.Close()

	delete(d.nodes, id)
	delete(d.watchingNodes, id)
	d.deletedNodes[id] = struct{}{}
	d.vis.DeleteNode(id)
	return discarded, nil
}

func (d *Dispatcher) SetNodeFailed(id NodeId, fail bool) error {
	node := d.nodes[id]
	if node == nil {
		return errors.Errorf("node %d not found", id)
	}

	// if radio is set to on/off explicitly, failureCtrl should not be used anymore
	node.SetFailTime(NonFailTime)

	if fail {
		node.Fail()
	} else {
		node.Recover()
	}
	return nil
}

func (d *Dispatcher) SetFailTime(id NodeId, ft FailTime) error {
	node := d.nodes[id]
	if node == nil {
		return errors.Errorf("node %d not found", id)
	}
	if ft.CanFail() && ft.FailInterval <= ft.FailDuration {
		return errors.Errorf("fail interval must exceed fail duration")
	}
	node.SetFailTime(ft)
	return nil
}

func (d *Dispatcher) SetSpeed(f float64) {
	ns := d.normalizeSpeed(f)
	if ns == d.speed {
		return
	}

	// sync the speed start time with the current time
	d.speedStartRealTime = time.Now()
	d.speedStartTime = d.CurTime
	d.speed = ns
	d.vis.SetSpeed(ns)
}

func (d *Dispatcher) normalizeSpeed(f float64) float64 {
	if f <= 0 {
		f = 0
	} else if f >= MaxSimulateSpeed {
		f = MaxSimulateSpeed
	}
	return f
}

func (d *Dispatcher) GetSpeed() float64 {
	return d.speed
}

func (d *Dispatcher) GetVisualizationOptions() VisualizationOptions {
	return d.visOptions
}

func (d *Dispatcher) SetVisualizationOptions(opts VisualizationOptions) {
	d.visOptions = opts
}

func (d *Dispatcher) GetMedium() *radiomodel.Medium {
	return d.medium
}

func (d *Dispatcher) GetEnergyAnalyser() *energy.EnergyAnalyser {
	return d.energyAnalyser
}

func (d *Dispatcher) GetConfig() Config {
	return d.cfg
}
