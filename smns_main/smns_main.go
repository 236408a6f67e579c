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

package smns_main

import (
	"flag"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"

	"github.com/speckmac/smns/cli"
	"github.com/speckmac/smns/dispatcher"
	"github.com/speckmac/smns/logger"
	"github.com/speckmac/smns/pcap"
	"github.com/speckmac/smns/prng"
	"github.com/speckmac/smns/progctx"
	"github.com/speckmac/smns/simulation"
	"github.com/speckmac/smns/visualize"
	statslog "github.com/speckmac/smns/visualize/statslog"
)

type MainArgs struct {
	Speed       string
	AutoGo      bool
	ReadOnly    bool
	LogLevel    string
	WatchLevel  string
	Scenario    string
	Seed        int64
	Pcap        string
	DumpPackets bool
	OutputDir   string
	Id          int
	Strict      bool
	StatsLog    bool
	History     string
}

var (
	args MainArgs
)

func parseArgs(argv []string) error {
	fs := flag.NewFlagSet("smns", flag.ContinueOnError)
	fs.StringVar(&args.Speed, "speed", "1", "set simulating speed, or 'max'")
	fs.BoolVar(&args.AutoGo, "autogo", true, "auto go (runs the simulation at given speed, without issuing 'go' commands.)")
	fs.BoolVar(&args.ReadOnly, "readonly", false, "readonly simulation can not be manipulated")
	fs.StringVar(&args.LogLevel, "log", "warn", "set logging level: trace, debug, info, note, warn, error.")
	fs.StringVar(&args.WatchLevel, "watch", "off", "set default watch level for all new nodes: off, trace, debug, info, note, warn, error.")
	fs.StringVar(&args.Scenario, "scenario", "", "load a YAML scenario file at startup")
	fs.Int64Var(&args.Seed, "seed", 0, "set the random seed; 0 picks a time-based seed")
	fs.StringVar(&args.Pcap, "pcap", pcap.FrameTypeOffStr, "PCAP file frame type: off, mac, mac-meta")
	fs.BoolVar(&args.DumpPackets, "dump-packets", false, "dump frames to the log")
	fs.StringVar(&args.OutputDir, "output-dir", simulation.DefaultOutputDir, "directory for logs, PCAP, KPI and energy files")
	fs.IntVar(&args.Id, "id", 0, "simulation ID, used to name output files")
	fs.BoolVar(&args.Strict, "strict", false, "stop on MAC invariant violations instead of counting them")
	fs.BoolVar(&args.StatsLog, "stats", true, "write the node statistics CSV log")
	fs.StringVar(&args.History, "history", "", "CLI command history file")

	return fs.Parse(argv)
}

// Main runs SMNS until the CLI exits, a signal arrives or the simulation stops. If visualizerCreator
// is nil, the statistics log visualizer is used.
func Main(ctx *progctx.ProgCtx, argv []string, visualizerCreator func(ctx *progctx.ProgCtx, args *MainArgs) visualize.Visualizer, cliOptions *cli.CliOptions) error {
	if err := parseArgs(argv); err != nil {
		return err
	}
	level, err := logger.ParseLevelString(args.LogLevel)
	if err != nil {
		return err
	}
	logger.SetLevel(level)
	prng.Init(args.Seed)
	logger.Infof("random seed %d", prng.RootSeed())

	ctx.Defer(func() {
		_ = os.Stdin.Close()
	})
	handleSignals(ctx)

	sim, scenario, err := createSimulation(ctx, level)
	if err != nil {
		return err
	}

	var vis visualize.Visualizer
	if visualizerCreator != nil {
		vis = visualizerCreator(ctx, &args)
	}
	if vis == nil {
		if args.StatsLog {
			vis = statslog.NewStatslogVisualizer(args.OutputDir, args.Id)
		} else {
			vis = visualize.NewNopVisualizer()
		}
	}
	vis.Init()
	sim.SetVisualizer(vis)

	rt := cli.NewCmdRunner(ctx, sim)
	logger.SetSimTimeSource(sim.CurTime)
	logger.SetStdoutCallback(cli.Cli)

	go sim.Run()
	<-sim.Started

	if scenario != nil {
		if err = importScenario(sim, scenario); err != nil {
			ctx.Cancel(err)
			ctx.Wait()
			return err
		}
	}

	if cliOptions == nil {
		cliOptions = cli.DefaultCliOptions()
	}
	cliOptions.HistoryFile = args.History
	go func() {
		if scenario != nil && len(scenario.Script) > 0 {
			if err := sim.RunScript(scenario.Script, os.Stdout); err != nil {
				ctx.Cancel(errors.Wrapf(err, "scenario script"))
				return
			}
		}
		err := cli.Cli.Run(rt, cliOptions)
		ctx.Cancel(errors.Wrapf(err, "console exit"))
	}()

	if args.AutoGo {
		go autoGo(ctx, sim)
	}

	vis.Run()
	<-ctx.Done()

	logger.Debugf("waiting for SMNS to stop gracefully ...")
	ctx.Wait()
	return ctx.Cause()
}

func handleSignals(ctx *progctx.ProgCtx) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGINT, syscall.SIGHUP)
	signal.Ignore(syscall.SIGALRM)

	ctx.WaitAdd("handleSignals", 1)
	go func() {
		defer logger.Debugf("handleSignals exit.")
		defer ctx.WaitDone("handleSignals")

		for {
			select {
			case sig := <-c:
				logger.Infof("signal received: %v", sig)
				ctx.Cancel(nil)
			case <-ctx.Done():
				signal.Stop(c)
				return
			}
		}
	}()
}

func autoGo(ctx *progctx.ProgCtx, sim *simulation.Simulation) {
	for {
		select {
		case <-sim.Go(time.Second):
		case <-ctx.Done():
			return
		}
	}
}

func parseSpeed(s string) (float64, error) {
	s = strings.ToLower(s)
	if s == "max" {
		return dispatcher.MaxSimulateSpeed, nil
	}
	speed, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.Errorf("invalid speed: %s", s)
	}
	return speed, nil
}

func createSimulation(ctx *progctx.ProgCtx, level logger.Level) (*simulation.Simulation, *simulation.YamlScenario, error) {
	var err error

	simcfg := simulation.DefaultConfig()
	if simcfg.Speed, err = parseSpeed(args.Speed); err != nil {
		return nil, nil, err
	}
	simcfg.ReadOnly = args.ReadOnly
	simcfg.DumpPackets = args.DumpPackets
	simcfg.AutoGo = args.AutoGo
	simcfg.Id = args.Id
	simcfg.OutputDir = args.OutputDir
	simcfg.Strict = args.Strict
	simcfg.LogLevel = level

	dispatcherCfg := dispatcher.DefaultConfig()
	dispatcherCfg.PcapFrameType = pcap.ParseFrameTypeStr(args.Pcap)
	if dispatcherCfg.PcapFrameType == pcap.FrameTypeUnknown {
		return nil, nil, errors.Errorf("invalid PCAP frame type: %s", args.Pcap)
	}
	simcfg.PcapEnabled = dispatcherCfg.PcapFrameType != pcap.FrameTypeOff
	dispatcherCfg.DefaultWatchLevel = args.WatchLevel
	dispatcherCfg.DefaultWatchOn = args.WatchLevel != logger.OffLevelString

	var scenario *simulation.YamlScenario
	if len(args.Scenario) > 0 {
		if scenario, err = simulation.LoadScenarioFile(args.Scenario); err != nil {
			return nil, nil, err
		}
		scenario.ApplyConfig(dispatcherCfg, simcfg)
	}

	sim, err := simulation.NewSimulation(ctx, simcfg, dispatcherCfg)
	if err != nil {
		return nil, nil, err
	}
	return sim, scenario, nil
}

// importScenario adds the scenario's nodes on the dispatcher goroutine.
func importScenario(sim *simulation.Simulation, sc *simulation.YamlScenario) error {
	errc := make(chan error, 1)
	sim.PostAsync(false, func() {
		errc <- sim.ImportScenario(sc)
	})
	return <-errc
}
