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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speckmac/smns/dispatcher"
	"github.com/speckmac/smns/logger"
	"github.com/speckmac/smns/progctx"
)

const testScenario = `
title: "line"
mac:
    sleep-interval: 250ms
nodes:
    - id: 1
      pos: [0, 0]
    - id: 2
      pos: [100, 0]
script:
    - send 1 2
    - go 2
`

func TestParseSpeed(t *testing.T) {
	speed, err := parseSpeed("max")
	assert.Nil(t, err)
	assert.Equal(t, float64(dispatcher.MaxSimulateSpeed), speed)
	speed, err = parseSpeed("2.5")
	assert.Nil(t, err)
	assert.Equal(t, 2.5, speed)
	_, err = parseSpeed("fast")
	assert.NotNil(t, err)
}

func TestParseArgs(t *testing.T) {
	require.Nil(t, parseArgs([]string{"-speed", "max", "-seed", "7", "-pcap", "mac", "-autogo=false", "-id", "3"}))
	assert.Equal(t, "max", args.Speed)
	assert.Equal(t, int64(7), args.Seed)
	assert.Equal(t, "mac", args.Pcap)
	assert.False(t, args.AutoGo)
	assert.Equal(t, 3, args.Id)
	assert.NotNil(t, parseArgs([]string{"-nosuchflag"}))
}

func TestCreateSimulation(t *testing.T) {
	dir := t.TempDir()
	fn := filepath.Join(dir, "line.yaml")
	require.Nil(t, os.WriteFile(fn, []byte(testScenario), 0644))
	require.Nil(t, parseArgs([]string{"-scenario", fn, "-output-dir", dir, "-pcap", "mac-meta", "-speed", "max"}))

	ctx := progctx.New(nil)
	sim, sc, err := createSimulation(ctx, logger.WarnLevel)
	require.Nil(t, err)
	assert.Equal(t, []string{"send 1 2", "go 2"}, sc.Script)
	assert.True(t, sim.GetConfig().PcapEnabled)

	require.Nil(t, sim.ImportScenario(sc))
	assert.Equal(t, 2, len(sim.GetNodes()))
	sim.Dispatcher().Stop()

	require.Nil(t, parseArgs([]string{"-pcap", "wireshark", "-output-dir", dir}))
	_, _, err = createSimulation(progctx.New(nil), logger.WarnLevel)
	assert.NotNil(t, err)
}
