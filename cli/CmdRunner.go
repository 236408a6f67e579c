// Copyright (c) 2020-2023, The OTNS Authors.
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

package cli

import (
	"context"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/speckmac/smns/dispatcher"
	"github.com/speckmac/smns/logger"
	"github.com/speckmac/smns/progctx"
	"github.com/speckmac/smns/simulation"
)

const (
	Prompt = "> "

	defaultSendSize = 20
)

type CommandContext struct {
	context.Context
	*Command
	rt     *CmdRunner
	err    error
	output io.Writer
}

func (cc *CommandContext) outputStr(msg string) {
	_, _ = fmt.Fprint(cc.output, msg)
}

func (cc *CommandContext) outputf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(cc.output, format, args...)
}

func (cc *CommandContext) errorf(format string, args ...interface{}) {
	cc.error(errors.Errorf(format, args...))
}

func (cc *CommandContext) error(err error) {
	if err != nil {
		if cc.err != nil { // if previous error, print it now and keep the last.
			cc.outputf("Error: %s\n", cc.err)
		}
		cc.err = err
	}
}

// Err returns the last error that occurred during command execution.
func (cc *CommandContext) Err() error {
	return cc.err
}

func (cc *CommandContext) outputItemsAsYaml(items interface{}) {
	var itemsYaml yaml.Node

	err := itemsYaml.Encode(items)
	logger.PanicIfError(err)

	for _, content := range itemsYaml.Content {
		content.Style = yaml.FlowStyle
	}

	data, err := yaml.Marshal(&itemsYaml)
	logger.PanicIfError(err)

	_, err = cc.output.Write(data)
	logger.PanicIfError(err)
}

func (cc *CommandContext) outputYaml(v interface{}) {
	data, err := yaml.Marshal(v)
	logger.PanicIfError(err)

	_, err = cc.output.Write(data)
	logger.PanicIfError(err)
}

type CmdRunner struct {
	sim  *simulation.Simulation
	ctx  *progctx.ProgCtx
	help Help
}

func NewCmdRunner(ctx *progctx.ProgCtx, sim *simulation.Simulation) *CmdRunner {
	cr := &CmdRunner{
		ctx:  ctx,
		sim:  sim,
		help: newHelp(),
	}
	sim.SetCmdRunner(cr)
	return cr
}

// RunCommand parses and executes one command line. Results and errors are written to output; the
// returned error is only set when the program is exiting.
func (rt *CmdRunner) RunCommand(cmdline string, output io.Writer) error {
	if rt.ctx.Err() == nil {
		cmd := Command{}

		if err := parseBytes([]byte(cmdline), &cmd); err != nil {
			if _, err := fmt.Fprintf(output, "Error: %v\n", err); err != nil {
				return err
			}
		} else {
			rt.execute(&cmd, output)
		}
	}
	return rt.ctx.Err()
}

// HandleCommand handles a line entered at the console. Comment lines starting with '#' are skipped.
func (rt *CmdRunner) HandleCommand(cmdline string, output io.Writer) error {
	cmdline = strings.TrimSpace(cmdline)
	if len(cmdline) == 0 || strings.HasPrefix(cmdline, "#") {
		return rt.ctx.Err()
	}
	return rt.RunCommand(cmdline, output)
}

func (rt *CmdRunner) GetPrompt() string {
	return Prompt
}

// CommandNames lists the CLI commands, for tab completion.
func (rt *CmdRunner) CommandNames() []string {
	return rt.help.commandNames()
}

func (rt *CmdRunner) execute(cmd *Command, output io.Writer) {
	cc := &CommandContext{
		Command: cmd,
		rt:      rt,
		output:  output,
	}

	defer func() {
		if cc.Err() != nil {
			cc.outputf("Error: %v\n", cc.Err())
		} else {
			cc.outputf("Done\n")
		}
	}()

	defer func() {
		rerr := recover()

		if rerr != nil {
			if err, ok := rerr.(error); ok {
				cc.err = errors.Wrapf(err, "panic: %v", err)
			} else {
				cc.err = errors.Errorf("panic: %v", rerr)
			}
		}
	}()

	if cmd.Add != nil {
		rt.executeAddNode(cc, cmd.Add)
	} else if cmd.Counters != nil {
		rt.executeCounters(cc, cmd.Counters)
	} else if cmd.Del != nil {
		rt.executeDelNode(cc, cmd.Del)
	} else if cmd.Energy != nil {
		rt.executeEnergy(cc, cmd.Energy)
	} else if cmd.Exit != nil {
		rt.executeExit(cc, cmd.Exit)
	} else if cmd.Go != nil {
		rt.executeGo(cc, cmd.Go)
	} else if cmd.Help != nil {
		rt.executeHelp(cc, cmd.Help)
	} else if cmd.Kpi != nil {
		rt.executeKpi(cc, cmd.Kpi)
	} else if cmd.LogLevel != nil {
		rt.executeLogLevel(cc, cmd.LogLevel)
	} else if cmd.Move != nil {
		rt.executeMoveNode(cc, cmd.Move)
	} else if cmd.Node != nil {
		rt.executeNode(cc, cmd.Node)
	} else if cmd.Nodes != nil {
		rt.executeLsNodes(cc, cmd.Nodes)
	} else if cmd.Radio != nil {
		rt.executeRadio(cc, cmd.Radio)
	} else if cmd.Send != nil {
		rt.executeSend(cc, cmd.Send)
	} else if cmd.Speed != nil {
		rt.executeSpeed(cc, cmd.Speed)
	} else if cmd.Time != nil {
		rt.executeTime(cc, cmd.Time)
	} else if cmd.Title != nil {
		rt.executeTitle(cc, cmd.Title)
	} else if cmd.Traffic != nil {
		rt.executeTraffic(cc, cmd.Traffic)
	} else if cmd.Unwatch != nil {
		rt.executeUnwatch(cc, cmd.Unwatch)
	} else if cmd.Watch != nil {
		rt.executeWatch(cc, cmd.Watch)
	} else {
		logger.Panicf("unimplemented command: %#v", cmd)
	}
}

// parseDuration parses a CLI duration; a number without unit is in seconds.
func parseDuration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		d, err = time.ParseDuration(s + "s")
	}
	if err != nil {
		return 0, errors.Errorf("could not parse time duration: %s", s)
	}
	return d, nil
}

func (rt *CmdRunner) executeGo(cc *CommandContext, cmd *GoCmd) {
	// determine duration and desired speed of the Go simulation period.
	var timeDurToGo time.Duration
	if cmd.Ever == nil {
		var err error
		if timeDurToGo, err = parseDuration(cmd.Time); err != nil {
			cc.error(err)
			return
		}
	}
	speed := rt.sim.GetSpeed()
	if cmd.Speed != nil {
		speed = *cmd.Speed
	} else if rt.sim.AutoGo() && cmd.Ever == nil {
		// when in AutoGo mode, 'go' command used to quickly jump time.
		speed = dispatcher.MaxSimulateSpeed
	}
	if speed == 0 { // when paused, assume 'go' is used to quickly jump time.
		speed = dispatcher.MaxSimulateSpeed
	}

	if cmd.Ever == nil {
		var oldSpeed float64
		rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
			oldSpeed = sim.GetSpeed()
			sim.SetSpeed(speed)
		})
		rt.waitGo(cc, timeDurToGo)
		rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
			sim.SetSpeed(oldSpeed)
		})
		return
	}

	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		sim.SetSpeed(speed) // permanent speed update
	})
	for cc.Err() == nil { // run forever but stop if rt.ctx.Err indicates "done"
		rt.waitGo(cc, time.Hour)
	}
}

// waitGo runs the simulation for duration and blocks until done or program exit.
func (rt *CmdRunner) waitGo(cc *CommandContext, duration time.Duration) {
	if rt.ctx.Err() != nil {
		cc.error(simulation.CommandInterruptedError)
		return
	}
	select {
	case <-rt.sim.Go(duration):
	case <-rt.ctx.Done():
		cc.error(simulation.CommandInterruptedError)
	}
}

func (rt *CmdRunner) executeSpeed(cc *CommandContext, cmd *SpeedCmd) {
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		if cmd.Speed == nil && cmd.Max == nil {
			cc.outputf("%v\n", sim.GetSpeed())
		} else if cmd.Max != nil {
			sim.SetSpeed(dispatcher.MaxSimulateSpeed)
		} else {
			sim.SetSpeed(*cmd.Speed)
		}
	})
}

// postAsyncWait runs f on the dispatcher goroutine and waits for it to finish.
func (rt *CmdRunner) postAsyncWait(cc *CommandContext, f func(sim *simulation.Simulation)) {
	if rt.ctx.Err() != nil {
		cc.error(simulation.CommandInterruptedError)
		return
	}
	done := make(chan struct{})
	rt.sim.PostAsync(false, func() {
		defer close(done) // even if f() fails execution, 'done' should be closed.
		f(rt.sim)         // executing task (later) may set cc.err status if error occurs.
	})
	select {
	case <-done:
	case <-rt.ctx.Done():
		cc.error(simulation.CommandInterruptedError)
	}
}

func (rt *CmdRunner) getNode(sim *simulation.Simulation, sel NodeSelector) (*simulation.Node, *dispatcher.Node) {
	node := sim.Nodes()[sel.Id]
	if node == nil {
		return nil, nil
	}
	return node, node.DispatcherNode()
}

func (rt *CmdRunner) executeAddNode(cc *CommandContext, cmd *AddCmd) {
	logger.Debugf("Add: %#v", *cmd)
	simCfg := cc.rt.sim.GetConfig()
	cfg := simCfg.NewNodeConfig // copy current new-node config for simulation, and modify it.

	if cmd.X != nil {
		cfg.X = *cmd.X
		cfg.IsAutoPlaced = false
	}
	if cmd.Y != nil {
		cfg.Y = *cmd.Y
		cfg.IsAutoPlaced = false
	}
	if cmd.Id != nil {
		cfg.ID = cmd.Id.Val
	}
	if cmd.RadioRange != nil {
		cfg.RadioRange = cmd.RadioRange.Val
	}
	if cmd.Battery != nil {
		if cmd.Battery.Val < 0 {
			cc.errorf("battery capacity must not be negative")
			return
		}
		cfg.BatteryJ = cmd.Battery.Val
	}

	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		node, err := sim.AddNode(&cfg)
		if err != nil {
			cc.error(err)
			return
		}
		if cmd.Traffic != nil {
			if err = sim.StartTraffic(node.Id, sim.GetConfig().Traffic); err != nil {
				cc.error(err)
			}
		}

		cc.outputf("%d\n", node.Id)
	})
}

func (rt *CmdRunner) executeDelNode(cc *CommandContext, cmd *DelCmd) {
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		for _, id := range getUniqueAndSorted(cmd.Nodes) {
			if sim.Nodes()[id] == nil {
				cc.outputf("Warn: node %d not found, skipping\n", id)
				continue
			}

			err := sim.DeleteNode(id)
			if err != nil {
				cc.errorf("node %d, %+v", id, err)
			}
		}
	})
}

func (rt *CmdRunner) executeExit(cc *CommandContext, cmd *ExitCmd) {
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		sim.Stop()
	})
}

func (rt *CmdRunner) executeSend(cc *CommandContext, cmd *SendCmd) {
	size := defaultSendSize
	if cmd.DataSize != nil {
		size = cmd.DataSize.Val
	}
	count := 1
	if cmd.Count != nil {
		count = cmd.Count.Val
	}
	if count <= 0 {
		cc.errorf("count must be positive")
		return
	}

	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		src, _ := rt.getNode(sim, cmd.Src)
		if src == nil {
			cc.errorf("src node %d not found", cmd.Src.Id)
			return
		}
		for i := 0; i < count; i++ {
			seq, err := sim.Send(src.Id, cmd.Dst.String(), size)
			if err != nil {
				cc.error(err)
				return
			}
			cc.outputf("%d\n", seq)
		}
	})
}

func (rt *CmdRunner) executeTraffic(cc *CommandContext, cmd *TrafficCmd) {
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		node, _ := rt.getNode(sim, cmd.Node)
		if node == nil {
			cc.errorf("node %d not found", cmd.Node.Id)
			return
		}
		if cmd.Stop != nil {
			cc.error(sim.StopTraffic(node.Id))
			return
		}

		cfg, ok := node.TrafficConfig()
		if !ok {
			cfg = sim.GetConfig().Traffic
		}
		var err error
		if cmd.Interval != nil {
			if cfg.Interval, err = parseDuration(cmd.Interval.Val); err != nil {
				cc.error(err)
				return
			}
		}
		if cmd.Jitter != nil {
			if cfg.Jitter, err = parseDuration(cmd.Jitter.Val); err != nil {
				cc.error(err)
				return
			}
		}
		if cmd.Start != nil {
			if cfg.Start, err = parseDuration(cmd.Start.Val); err != nil {
				cc.error(err)
				return
			}
		}
		if cmd.DataSize != nil {
			cfg.PayloadSize = cmd.DataSize.Val
		}
		if cmd.Dst != nil {
			cfg.Dst = cmd.Dst.Dst.String()
		}
		if cmd.Count != nil {
			cfg.Count = cmd.Count.Val
		}
		cc.error(sim.StartTraffic(node.Id, cfg))
	})
}

type nodeInfo struct {
	Id          int                       `yaml:"id"`
	Pos         [2]int                    `yaml:"pos,flow"`
	RadioRange  int                       `yaml:"radio-range"`
	MacState    string                    `yaml:"mac-state"`
	QueueLen    int                       `yaml:"queue-len"`
	PendingTx   bool                      `yaml:"pending-tx"`
	RadioState  string                    `yaml:"radio-state"`
	Failed      bool                      `yaml:"failed"`
	Depleted    bool                      `yaml:"depleted"`
	BatteryLeft *float64                  `yaml:"battery-left-mj,omitempty"`
	ClockDrift  float64                   `yaml:"clock-drift"`
	Traffic     *simulation.TrafficConfig `yaml:"traffic,omitempty"`
}

func (rt *CmdRunner) executeNode(cc *CommandContext, cmd *NodeCmd) {
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		node, dnode := rt.getNode(sim, cmd.Node)
		if node == nil {
			cc.errorf("node %d not found", cmd.Node.Id)
			return
		}

		ne := dnode.Energy()
		ne.ComputeRadioState(sim.CurTime())
		info := nodeInfo{
			Id:         node.Id,
			Pos:        [2]int{dnode.X, dnode.Y},
			RadioRange: node.Config().RadioRange,
			MacState:   dnode.Mac.State().String(),
			QueueLen:   dnode.Mac.QueueLen(),
			PendingTx:  dnode.Mac.IsPendingTx(),
			RadioState: ne.RadioState().String(),
			Failed:     dnode.IsFailed(),
			Depleted:   dnode.IsDepleted(),
			ClockDrift: ne.ClockDrift(),
		}
		if ne.HasBattery() {
			left := ne.RemainingMj()
			info.BatteryLeft = &left
		}
		if tc, ok := node.TrafficConfig(); ok {
			info.Traffic = &tc
		}
		cc.outputYaml(info)
	})
}

func (rt *CmdRunner) executeRadio(cc *CommandContext, radio *RadioCmd) {
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		for _, id := range getUniqueAndSorted(radio.Nodes) {
			var err error
			if radio.On != nil {
				err = sim.SetNodeFailed(id, false)
			} else if radio.Off != nil {
				err = sim.SetNodeFailed(id, true)
			} else if radio.FailTime != nil {
				err = sim.SetFailTime(id, dispatcher.FailTime{
					FailDuration: uint64(radio.FailTime.FailDuration * 1e6),
					FailInterval: uint64(radio.FailTime.FailInterval * 1e6),
				})
			}
			if err != nil {
				cc.errorf("node %d: %v", id, err)
			}
		}
	})
}

func (rt *CmdRunner) executeMoveNode(cc *CommandContext, cmd *MoveCmd) {
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		cc.error(sim.MoveNodeTo(cmd.Target.Id, cmd.X, cmd.Y))
	})
}

func (rt *CmdRunner) executeLsNodes(cc *CommandContext, cmd *NodesCmd) {
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		nodes := sim.ExportNodes()
		if len(nodes) == 0 {
			return
		}
		cc.outputItemsAsYaml(nodes)
	})
}

func (rt *CmdRunner) executeCounters(cc *CommandContext, cmd *CountersCmd) {
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		counters := make(simulation.NodeCounters)
		if cmd.Node != nil {
			node, _ := rt.getNode(sim, *cmd.Node)
			if node == nil {
				cc.errorf("node %d not found", cmd.Node.Id)
				return
			}
			counters = node.GetCounters()
		} else {
			sim.VisitNodesInOrder(func(node *simulation.Node) {
				counters.Add(node.GetCounters())
			})
		}
		cc.outputYaml(counters)
	})
}

func (rt *CmdRunner) executeKpi(cc *CommandContext, cmd *KpiCmd) {
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		kpi := sim.Kpi()
		switch cmd.Operation {
		case "start":
			if kpi.IsRunning() {
				kpi.Stop()
			}
			kpi.Start()
		case "stop":
			if !kpi.IsRunning() {
				cc.errorf("KPI collection is not running")
				return
			}
			kpi.Stop()
		case "save":
			if len(cmd.Filename) == 0 {
				kpi.SaveDefaultFile()
			} else {
				cc.error(kpi.SaveFile(unquote(cmd.Filename)))
			}
		default:
			cc.outputYaml(kpi.Data())
		}
	})
}

func (rt *CmdRunner) executeEnergy(cc *CommandContext, energy *EnergyCmd) {
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		if energy.Save != nil {
			if len(energy.Name) > 0 {
				cc.error(sim.GetEnergyAnalyser().SaveEnergyDataToFile(sim.GetConfig().OutputDir,
					unquote(energy.Name), sim.CurTime()))
			} else {
				cc.error(sim.SaveEnergyData())
			}
			return
		}

		cc.outputf("%-4s %-10s %-10s %-10s %-10s %s\n", "id", "sleep-mJ", "rx-mJ", "tx-mJ", "total-mJ", "remaining-mJ")
		sim.VisitNodesInOrder(func(node *simulation.Node) {
			ne := node.DispatcherNode().Energy()
			ne.ComputeRadioState(sim.CurTime())
			c := ne.Consumption()
			remaining := "inf"
			if left := ne.RemainingMj(); !math.IsInf(left, 1) {
				remaining = fmt.Sprintf("%.2f", left)
			}
			cc.outputf("%-4d %-10.2f %-10.2f %-10.2f %-10.2f %s\n", node.Id, c.Sleep, c.Rx, c.Tx, c.Total(), remaining)
		})
	})
}

func (rt *CmdRunner) executeLogLevel(cc *CommandContext, cmd *LogLevelCmd) {
	if cmd.Level == "" {
		cc.outputf("%v\n", logger.GetLevelString(rt.sim.GetLogLevel()))
		return
	}
	level, err := logger.ParseLevelString(cmd.Level)
	if err != nil {
		cc.error(err)
		return
	}
	rt.sim.SetLogLevel(level)
}

func (rt *CmdRunner) executeWatch(cc *CommandContext, cmd *WatchCmd) {
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		var level = logger.DefaultLevel
		if len(cmd.Level) > 0 {
			var err error
			if level, err = logger.ParseLevelString(cmd.Level); err != nil {
				cc.error(err)
				return
			}
		}
		nodesToWatch := getUniqueAndSorted(cmd.Nodes)

		if len(cmd.Nodes) == 0 && len(cmd.All) == 0 && len(cmd.Default) == 0 && len(cmd.Level) == 0 {
			// variant: 'watch'
			watchedList := strings.Trim(fmt.Sprintf("%v", sim.Dispatcher().GetWatchingNodes()), "[]")
			cc.outputf("%v\n", watchedList)
			return
		} else if len(cmd.Nodes) == 0 && len(cmd.All) == 0 && len(cmd.Default) > 0 && len(cmd.Level) > 0 {
			// variant: 'watch default <level>'
			sim.Dispatcher().SetDefaultWatch(cmd.Level != logger.OffLevelString, level)
			return
		} else if len(cmd.Nodes) == 0 && len(cmd.All) == 0 && len(cmd.Default) > 0 && len(cmd.Level) == 0 {
			// variant: 'watch default'
			watchLevelDefault := logger.OffLevelString
			if on, lv := sim.Dispatcher().GetDefaultWatch(); on {
				watchLevelDefault = logger.GetLevelString(lv)
			}
			cc.outputf("%s\n", watchLevelDefault)
			return
		} else if len(cmd.Nodes) == 0 && len(cmd.All) > 0 && len(cmd.Default) == 0 {
			// variant: 'watch all [<level>]'
			nodesToWatch = sim.GetNodes()
		} else if len(cmd.Nodes) > 0 && len(cmd.All) == 0 && len(cmd.Default) == 0 {
			// variant: 'watch <nodeid> [<nodeid> ...] [<level>]'
		} else if len(cmd.Nodes) == 0 && len(cmd.All) == 0 && len(cmd.Default) == 0 && len(cmd.Level) > 0 {
			// variant: 'watch <level>' applies to the nodes watched now
			nodesToWatch = sim.Dispatcher().GetWatchingNodes()
		} else {
			cc.errorf("watch: unsupported combination of command options")
			return
		}

		for _, id := range nodesToWatch {
			if sim.Nodes()[id] == nil {
				cc.errorf("node %d not found", id)
				continue
			}
			if cmd.Level == logger.OffLevelString {
				sim.Dispatcher().UnwatchNode(id)
			} else {
				sim.Dispatcher().WatchNode(id, level)
			}
		}
	})
}

func (rt *CmdRunner) executeUnwatch(cc *CommandContext, cmd *UnwatchCmd) {
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		nodes := getUniqueAndSorted(cmd.Nodes)
		if len(cmd.All) > 0 {
			nodes = sim.Dispatcher().GetWatchingNodes()
		}
		for _, id := range nodes {
			sim.Dispatcher().UnwatchNode(id)
		}
	})
}

func (rt *CmdRunner) executeTitle(cc *CommandContext, cmd *TitleCmd) {
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		sim.SetTitle(unquote(cmd.Title))
	})
}

func (rt *CmdRunner) executeTime(cc *CommandContext, cmd *TimeCmd) {
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		cc.outputf("%d\n", sim.CurTime())
	})
}

func (rt *CmdRunner) executeHelp(cc *CommandContext, cmd *HelpCmd) {
	if len(cmd.HelpTopic) == 0 {
		cc.outputStr(rt.help.outputGeneralHelp())
	} else if rt.help.hasCommand(cmd.HelpTopic) {
		cc.outputStr(rt.help.outputCommandHelp(cmd.HelpTopic))
	} else {
		cc.errorf("no help for '%s'", cmd.HelpTopic)
	}
}
