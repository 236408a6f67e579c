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

// enterSleep is run when the sleep timer fires.
func (m *SpeckMac) enterSleep() {
	if m.state == StateExpectingRx {
		// receive window lapsed without a frame
		m.setState(StateIdle)
	}
	if m.state != StateIdle {
		m.tracef("sleep ignored in state %v", m.state)
		return
	}
	m.goToSleep()
}

// enterListen is run when the wake timer fires.
func (m *SpeckMac) enterListen() {
	if m.state != StateIdle {
		m.tracef("wakeup ignored in state %v", m.state)
		return
	}
	m.radio.EnterListen()
	m.lastWakeup = m.sched.CurTime()
	m.timers.arm(sleepTimer, m.drifted(m.listenUs))
	m.beginCarrierSense()
}

// listenBudgetUs returns the listen time left in the current window, which may be negative.
func (m *SpeckMac) listenBudgetUs() int64 {
	elapsed := int64(m.sched.CurTime() - m.lastWakeup)
	return int64(m.drifted(m.listenUs)) - elapsed
}
