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
)

type timerKind int

const (
	sleepTimer timerKind = iota
	wakeTimer
	csExitTimer
	numTimerKinds
)

func (k timerKind) String() string {
	switch k {
	case sleepTimer:
		return "sleep"
	case wakeTimer:
		return "wake"
	case csExitTimer:
		return "cs-exit"
	default:
		return "invalid"
	}
}

func (k timerKind) eventType() event.EventType {
	switch k {
	case sleepTimer:
		return event.EventTypeSleepTimer
	case wakeTimer:
		return event.EventTypeWakeTimer
	default:
		return event.EventTypeCsExitTimer
	}
}

type timer struct {
	evt *event.Event
	gen uint64
}

// timers holds at most one armed timer of each kind. Every arming gets a new generation, so a
// firing can be matched against the currently armed instance.
type timers struct {
	owner *SpeckMac
	t     [numTimerKinds]timer
}

func (ts *timers) arm(kind timerKind, delayUs uint64) {
	ts.cancel(kind)
	t := &ts.t[kind]
	t.gen++
	t.evt = &event.Event{
		Type:   kind.eventType(),
		NodeId: ts.owner.id,
		Gen:    t.gen,
	}
	ts.owner.sched.Schedule(t.evt, delayUs)
}

func (ts *timers) cancel(kind timerKind) {
	t := &ts.t[kind]
	if t.evt != nil {
		ts.owner.sched.Cancel(t.evt)
		t.evt = nil
	}
}

func (ts *timers) cancelAll() {
	for k := timerKind(0); k < numTimerKinds; k++ {
		ts.cancel(k)
	}
}

func (ts *timers) isArmed(kind timerKind) bool {
	return ts.t[kind].evt != nil
}

// fired disarms the timer and returns true if evt is the currently armed instance of kind.
func (ts *timers) fired(kind timerKind, evt *event.Event) bool {
	t := &ts.t[kind]
	if t.evt == nil || evt.Gen != t.gen {
		return false
	}
	t.evt = nil
	return true
}
