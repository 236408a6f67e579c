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

package mac

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBurstPlannerExample(t *testing.T) {
	p := BurstPlanner{SleepIntervalUs: 1e6, BitRate: 800, PhyOverhead: 1}
	airTime := p.AirTimeUs(29)
	assert.Equal(t, 300000.0, airTime)
	assert.Equal(t, 3, p.Redundancy(airTime))
	assert.Equal(t, []uint64{0, 300000, 600000, 900000}, p.CopyOffsetsUs(airTime, 3, 1.0))
	assert.Equal(t, []uint64{0, 300009, 600018, 900027}, p.CopyOffsetsUs(airTime, 3, 1.00003))
}

func TestBurstPlannerRoundsHalfUp(t *testing.T) {
	p := BurstPlanner{SleepIntervalUs: 1e6}
	assert.Equal(t, 3, p.Redundancy(400000)) // 2.5
	assert.Equal(t, 2, p.Redundancy(410000)) // 2.44
	assert.Equal(t, 1, p.Redundancy(1e6))
	assert.Equal(t, 1, p.Redundancy(1.5e6)) // 0.67
	assert.Equal(t, 0, p.Redundancy(2.5e6))
	assert.Equal(t, 0, p.Redundancy(0))
}

func TestBurstPlannerCoversSleepInterval(t *testing.T) {
	for _, sleep := range []float64{1e5, 3.3e5, 1e6, 2.7e6} {
		p := BurstPlanner{SleepIntervalUs: sleep, BitRate: 250000, PhyOverhead: 6}
		for frameLen := 10; frameLen <= 127; frameLen += 13 {
			airTime := p.AirTimeUs(frameLen)
			r := p.Redundancy(airTime)
			burst := float64(r+1) * airTime
			assert.True(t, burst+airTime/2 >= sleep, "sleep %v len %d", sleep, frameLen)
		}
	}
}

func TestBurstPlannerZeroBitRate(t *testing.T) {
	p := BurstPlanner{SleepIntervalUs: 1e6}
	assert.Equal(t, 0.0, p.AirTimeUs(10))
}

func TestConfigValidate(t *testing.T) {
	assert.Nil(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.SleepInterval = 0
	assert.NotNil(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.HeaderOverhead = 4
	assert.NotNil(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.MaxFrameSize = cfg.HeaderOverhead
	assert.NotNil(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.QueueCapacity = 0
	assert.NotNil(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.RandomTxOffset = -time.Millisecond
	assert.NotNil(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.MaxCsRetries = 0
	assert.NotNil(t, cfg.Validate())
}
