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
	"github.com/speckmac/smns/event"
	. "github.com/speckmac/smns/types"
)

func (m *SpeckMac) beginCarrierSense() {
	if m.state != StateIdle && m.state != StateAttemptingTx {
		m.tracef("carrier sense not started in state %v", m.state)
		return
	}
	if m.pendingTx && m.queue.IsEmpty() {
		m.warnf("transmit pending but queue empty")
		m.pendingTx = false
		m.setState(StateIdle)
		m.timers.arm(sleepTimer, m.drifted(m.listenUs))
		return
	}
	m.scheduleSelf(event.EventTypePerformCs, 0)
}

func (m *SpeckMac) performCarrierSense() {
	if m.state != StateIdle && m.state != StateAttemptingTx {
		m.tracef("carrier sense dropped in state %v", m.state)
		return
	}

	v := m.radio.CarrierSenseValidity()
	switch v {
	case CsValid, CsRadioTransmitting, CsRadioAsleep, CsRadioNotReady:
	default:
		m.csRetries = 0
		m.defect("carrier sense invalid for unknown reason: %v", v)
		return
	}
	if v != CsValid && v != CsRadioTransmitting && !m.pendingTx && m.listenBudgetUs() <= 0 {
		// listen window over; the sleep timer owns the radio now
		m.csRetries = 0
		m.tracef("carrier sense retry dropped, radio %v", v)
		return
	}

	switch v {
	case CsValid:
		m.csRetries = 0
		m.radio.SenseCarrier(uint64(m.csUs))
		m.timers.arm(csExitTimer, uint64(m.csUs+m.epsUs))
		m.setState(StateCarrierSensing)
	case CsRadioTransmitting:
		m.csRetries = 0
		m.scheduleSelf(event.EventTypeCheckTxBuffer, 0)
	case CsRadioAsleep:
		if m.retryCarrierSense(v) {
			m.radio.EnterListen()
			m.scheduleSelf(event.EventTypePerformCs, m.drifted(float64(m.radio.WakeDelay()))+uint64(m.epsUs))
		}
	case CsRadioNotReady:
		if m.retryCarrierSense(v) {
			m.scheduleSelf(event.EventTypePerformCs, m.drifted(float64(m.radio.WakeDelay())))
		}
	}
}

// retryCarrierSense counts a retry on a radio that is not ready. Past MaxCsRetries it gives up,
// keeps any pending frame queued and returns to duty cycling.
func (m *SpeckMac) retryCarrierSense(v CarrierSenseValidity) bool {
	if m.csRetries < m.cfg.MaxCsRetries {
		m.csRetries++
		m.Counters.CsRetries++
		return true
	}
	m.warnf("radio %v after %d carrier sense retries, resuming duty cycle", v, m.csRetries)
	m.csRetries = 0
	m.Counters.CsAbandoned++
	m.timers.cancel(sleepTimer)
	m.setState(StateIdle)
	m.goToSleep()
	return false
}

func (m *SpeckMac) carrierBusy() {
	m.timers.cancel(csExitTimer)
	m.Counters.CarrierBusy++
	if m.state != StateCarrierSensing && m.state != StateIdle {
		m.tracef("carrier busy in state %v", m.state)
		return
	}

	// the pending frame stays queued until the channel is found free
	m.timers.cancel(wakeTimer)
	m.timers.arm(sleepTimer, m.drifted(m.rxWindowUs))
	m.setState(StateExpectingRx)
}

// carrierFree is run when the carrier-sense exit timer fires without a busy indication.
func (m *SpeckMac) carrierFree() {
	if m.state != StateCarrierSensing {
		m.tracef("carrier sense exit in state %v", m.state)
		return
	}
	m.Counters.CarrierFree++
	m.setState(StateIdle)

	if m.pendingTx {
		m.timers.cancel(sleepTimer)
		m.timers.cancel(wakeTimer)
		m.scheduleSelf(event.EventTypeCheckTxBuffer, 0)
		return
	}

	if m.listenBudgetUs() > int64(m.csUs)+int64(m.radio.WakeDelay()) {
		m.beginCarrierSense()
		return
	}
	if !m.timers.isArmed(sleepTimer) {
		m.timers.arm(sleepTimer, 0)
	}
}
