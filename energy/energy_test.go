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
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/speckmac/smns/types"
)

func TestRadioStateAccounting(t *testing.T) {
	ea := NewEnergyAnalyser(nil)
	node := ea.AddNode(1, 0, nil, 0)
	assert.Equal(t, 1.0, node.ClockDrift())

	ea.OnRadioStateChange(1, RadioRx, 1000)
	ea.OnRadioStateChange(1, RadioTx, 3000)
	ea.OnRadioStateChange(1, RadioSleep, 4000)
	node.ComputeRadioState(10000)

	c := node.Consumption()
	assert.InDelta(t, 1000*RadioSleepConsumption+6000*RadioSleepConsumption, c.Sleep, 1e-12)
	assert.InDelta(t, 2000*RadioRxConsumption, c.Rx, 1e-12)
	assert.InDelta(t, 1000*RadioTxConsumption, c.Tx, 1e-12)
	assert.Equal(t, 0.0, c.Disabled)
	assert.True(t, math.IsInf(node.RemainingMj(), 1))
	assert.False(t, node.CheckDepleted(10000))

	// unknown nodes are ignored
	ea.OnRadioStateChange(2, RadioRx, 1000)
}

func TestBatteryDepletion(t *testing.T) {
	ea := NewEnergyAnalyser(nil)
	// 1 mJ lasts ~67 ms while listening
	node := ea.AddNode(1, 0.001, nil, 0)
	ea.OnRadioStateChange(1, RadioRx, 0)

	assert.Nil(t, ea.StoreNetworkEnergy(50000))
	assert.False(t, node.IsDepleted())
	assert.Equal(t, []NodeId{1}, ea.StoreNetworkEnergy(100000))
	assert.True(t, node.IsDepleted())
	assert.Equal(t, 0.0, node.RemainingMj())
	// reported once only
	assert.Nil(t, ea.StoreNetworkEnergy(150000))
	assert.Equal(t, 3, len(ea.GetNetworkEnergyHistory()))
	assert.Equal(t, 1, len(ea.GetLatestEnergyOfNodes()))
}

func TestClockDrift(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		d := NewClockDrift(rnd, DefaultClockDriftSigma)
		assert.True(t, d >= 1-3*DefaultClockDriftSigma && d <= 1+3*DefaultClockDriftSigma)
	}
	assert.Equal(t, 1.0, NewClockDrift(rnd, 0))
}

func TestDeleteNodeClearsHistory(t *testing.T) {
	ea := NewEnergyAnalyser(nil)
	ea.AddNode(1, 0, nil, 0)
	ea.StoreNetworkEnergy(1000)
	ea.DeleteNode(1)
	assert.Nil(t, ea.GetNode(1))
	assert.Equal(t, 0, len(ea.GetNetworkEnergyHistory()))
	assert.Nil(t, ea.GetLatestEnergyOfNodes())
}

func TestSaveEnergyData(t *testing.T) {
	dir := t.TempDir()
	ea := NewEnergyAnalyser(nil)
	ea.AddNode(1, 1, nil, 0)
	ea.AddNode(2, 0, nil, 0)
	ea.StoreNetworkEnergy(30000000)
	ea.SetTitle("run")
	assert.Nil(t, ea.SaveEnergyDataToFile(dir, "", 30000000))

	_, err := os.Stat(filepath.Join(dir, "energy_results", "run.txt"))
	assert.Nil(t, err)
	data, err := os.ReadFile(filepath.Join(dir, "energy_results", "run_nodes.txt"))
	assert.Nil(t, err)
	assert.Contains(t, string(data), "Duration of the simulated network (in milliseconds): 30000")
}

func TestConfigValidate(t *testing.T) {
	assert.Nil(t, DefaultConfig().Validate())
	cfg := DefaultConfig()
	cfg.SamplePeriod = 0
	assert.NotNil(t, cfg.Validate())
	cfg = DefaultConfig()
	cfg.RxKw = -1
	assert.NotNil(t, cfg.Validate())
}
