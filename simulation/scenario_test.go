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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/speckmac/smns/dispatcher"
	"github.com/speckmac/smns/logger"
	"github.com/speckmac/smns/prng"
	"github.com/speckmac/smns/progctx"
	"github.com/speckmac/smns/radiomodel"
)

const testScenario = `
title: "line of four"
mac:
  sleep-interval: 250ms
  queue-capacity: 4
radio:
  model: ideal
energy:
  sample-period: 500ms
traffic:
  interval: 2s
  jitter: 100ms
  payload-size: 12
  dst: broadcast
network:
  pos: [10, 0]
  radio-range: 150
nodes:
  - id: 1
    pos: [0, 0]
    traffic: true
  - id: 2
    pos: [100, 0]
  - id: 3
    pos: [200, 0]
    battery: 2.5
  - id: 4
    pos: [300, 0]
    radio-range: 50
    traffic-config:
      interval: 1s
      payload-size: 8
      dst: "3"
      count: 2
`

func TestParseScenario(t *testing.T) {
	sc, err := ParseScenario([]byte(testScenario))
	require.Nil(t, err)

	assert.Equal(t, "line of four", sc.Title)
	assert.Equal(t, 250*time.Millisecond, sc.Mac.SleepInterval)
	assert.Equal(t, 10*time.Millisecond, sc.Mac.ListenInterval)
	assert.Equal(t, 4, sc.Mac.QueueCapacity)
	assert.Equal(t, "ideal", sc.Radio.Model)
	assert.Equal(t, 250000.0, sc.Radio.BitRate)
	assert.Equal(t, 500*time.Millisecond, sc.Energy.SamplePeriod)
	assert.Equal(t, 2*time.Second, sc.Traffic.Interval)
	assert.Equal(t, 12, sc.Traffic.PayloadSize)
	assert.Equal(t, [2]int{10, 0}, sc.Network.Position)
	assert.Equal(t, 150, *sc.Network.RadioRange)
	require.Equal(t, 4, len(sc.Nodes))
	assert.True(t, *sc.Nodes[0].Traffic)
	assert.Nil(t, sc.Nodes[1].Traffic)
	assert.Equal(t, 2.5, *sc.Nodes[2].BatteryJ)
	assert.Equal(t, 50, *sc.Nodes[3].RadioRange)
	assert.Equal(t, 2, sc.Nodes[3].TrafficCfg.Count)
}

func TestParseScenarioErrors(t *testing.T) {
	for _, text := range []string{
		"mac: {sleep-interval: 0s}",
		"mac: {sleep-interval: 1ms}", // max frame does not fit
		"radio: {model: magic}",
		"traffic: {interval: 1s, jitter: 2s}",
		"nodes: [{id: 1}, {id: 1}]",
		"nodes: [{id: 1, traffic-config: {interval: 1s, payload-size: 10, dst: nowhere}}]",
		"mac: [1, 2]",
	} {
		_, err := ParseScenario([]byte(text))
		assert.NotNil(t, err, text)
	}
}

func TestLoadScenarioFile(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "scenario.yaml")
	require.Nil(t, os.WriteFile(fn, []byte(testScenario), 0644))
	sc, err := LoadScenarioFile(fn)
	require.Nil(t, err)
	assert.Equal(t, 4, len(sc.Nodes))

	_, err = LoadScenarioFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.NotNil(t, err)
}

func TestImportScenario(t *testing.T) {
	sc, err := ParseScenario([]byte(testScenario))
	require.Nil(t, err)

	prng.Init(1)
	cfg := DefaultConfig()
	cfg.OutputDir = t.TempDir()
	cfg.Strict = true
	cfg.LogLevel = logger.WarnLevel
	dcfg := dispatcher.DefaultConfig()
	sc.ApplyConfig(dcfg, cfg)
	assert.Equal(t, 250*time.Millisecond, dcfg.Mac.SleepInterval)
	assert.Equal(t, 150, cfg.NewNodeConfig.RadioRange)
	assert.Equal(t, "line of four", cfg.Title)

	sim, err := NewSimulation(progctx.New(nil), cfg, dcfg)
	require.Nil(t, err)
	assert.Equal(t, radiomodel.IdealName, sim.Dispatcher().GetMedium().Model().GetName())
	require.Nil(t, sim.ImportScenario(sc))
	assert.Equal(t, []int{1, 2, 3, 4}, sim.GetNodes())

	n1 := sim.Nodes()[1]
	assert.Equal(t, 10, n1.Config().X)
	assert.Equal(t, 150, n1.Config().RadioRange)
	assert.Equal(t, 2.5, sim.Nodes()[3].Config().BatteryJ)
	assert.Equal(t, 50, sim.Nodes()[4].Config().RadioRange)
	tc, ok := n1.TrafficConfig()
	assert.True(t, ok)
	assert.Equal(t, 2*time.Second, tc.Interval)
	_, ok = sim.Nodes()[2].TrafficConfig()
	assert.False(t, ok)

	exported := sim.ExportNodes()
	assert.Equal(t, 4, len(exported))
	assert.Equal(t, [2]int{310, 0}, exported[3].Position)
	assert.Nil(t, exported[0].RadioRange)
	assert.Equal(t, 50, *exported[3].RadioRange)
	assert.NotNil(t, exported[0].TrafficCfg)
	data, err := yaml.Marshal(exported)
	assert.Nil(t, err)
	assert.Contains(t, string(data), "radio-range: 50")

	sim.Dispatcher().RunFor(5 * time.Second)
	assert.Equal(t, uint64(2), sim.Nodes()[4].Network().Counters.Sent)
	assert.True(t, sim.Nodes()[1].Network().Counters.Sent >= 2)
	assert.True(t, sim.Nodes()[2].Network().Counters.Received >= 2)

	// importing the same ids again fails for every node
	assert.NotNil(t, sim.ImportNodes(sc.Network, sc.Nodes))
}
