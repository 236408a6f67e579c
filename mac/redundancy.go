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
	"math"
)

// BurstPlanner computes the air time of a frame and the number of redundant copies needed for a
// burst to span a receiver's full sleep interval.
type BurstPlanner struct {
	SleepIntervalUs float64
	BitRate         float64 // bits per second
	PhyOverhead     int     // bytes added by the PHY to each frame
}

// AirTimeUs returns the on-air duration of a MAC frame of frameLen bytes.
func (p BurstPlanner) AirTimeUs(frameLen int) float64 {
	if p.BitRate <= 0 {
		return 0
	}
	return float64((frameLen+p.PhyOverhead)*8) * 1e6 / p.BitRate
}

// Redundancy returns the number of additional copies, rounded half up so that the burst never
// falls short of the sleep interval by more than half a frame.
func (p BurstPlanner) Redundancy(airTimeUs float64) int {
	if airTimeUs <= 0 {
		return 0
	}
	return int(math.Floor(p.SleepIntervalUs/airTimeUs + 0.5))
}

// CopyOffsetsUs returns the send offset of each of the redundancy+1 copies, relative to the first,
// as measured on a clock with the given drift.
func (p BurstPlanner) CopyOffsetsUs(airTimeUs float64, redundancy int, drift float64) []uint64 {
	offsets := make([]uint64, redundancy+1)
	for i := range offsets {
		offsets[i] = uint64(math.Round(float64(i) * airTimeUs * drift))
	}
	return offsets
}

// sendBurst pops the head of the transmit queue and streams its copies to the radio.
func (m *SpeckMac) sendBurst() {
	tf, err := m.queue.Pop()
	if err != nil {
		m.defect("pop for transmission failed: %v", err)
		return
	}

	m.timers.cancel(sleepTimer)
	m.timers.cancel(wakeTimer)

	data := m.codec.Marshal(tf.Frame)
	offsets := m.planner.CopyOffsetsUs(tf.AirTimeUs, tf.Redundancy, m.resource.ClockDrift())
	for _, offset := range offsets {
		m.radio.EnterTransmit(append([]byte(nil), data...), offset)
	}
	m.lastAirTimeUs = tf.AirTimeUs

	m.Counters.BurstsSent++
	m.Counters.CopiesSent += uint64(len(offsets))
	m.debugf("burst of %d copies, %d bytes, airtime %.0fus, dst %d", len(offsets), len(data), tf.AirTimeUs,
		tf.Frame.Dst)
	if m.observer != nil {
		m.observer.OnTransmitBurst(m.id, len(data), len(offsets))
	}
}

// checkTxBuffer is run when the channel was found free with data pending, or when the radio is
// already transmitting. Outside Idle, AttemptingTx and Tx it does nothing.
func (m *SpeckMac) checkTxBuffer() {
	switch m.state {
	case StateIdle, StateAttemptingTx, StateTx:
	default:
		// a carrier busy can overtake the scheduled check; the frame waits for the next wakeup
		m.tracef("transmit queue check ignored in state %v", m.state)
		return
	}

	if m.queue.IsEmpty() {
		m.debugf("transmit queue empty, resuming duty cycle")
		m.pendingTx = false
		if m.state == StateTx {
			return
		}
		m.setState(StateIdle)
		m.goToSleep()
		return
	}
	m.sendBurst()
}

// goToSleep puts the radio to sleep and arms the next wakeup.
func (m *SpeckMac) goToSleep() {
	m.radio.EnterSleep()
	m.timers.arm(wakeTimer, m.drifted(m.sleepUs))
}
