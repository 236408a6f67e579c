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

package dispatcher

import (
	"github.com/speckmac/smns/logger"
	"github.com/speckmac/smns/prng"
	. "github.com/speckmac/smns/types"
)

// FailTime configures random radio failures: within every FailInterval the radio is off for
// FailDuration, starting at a random offset.
type FailTime struct {
	FailDuration uint64 // unit: us
	FailInterval uint64 // unit: us
}

var (
	NonFailTime = FailTime{0, 0}
)

func (ft FailTime) CanFail() bool {
	return ft.FailDuration > 0
}

// FailureCtrl drives the fail/recover cycle of one node. All timestamps are in us.
type FailureCtrl struct {
	owner    *Node
	failTime FailTime

	cycleEnd  uint64 // end of the current fail cycle
	failAt    uint64 // next failure, 0 when unscheduled
	recoverAt uint64 // next recovery, 0 when unscheduled
	lastNext  uint64 // last next-operation time handed out
}

func newFailureCtrl(owner *Node, failTime FailTime) *FailureCtrl {
	return &FailureCtrl{
		owner:    owner,
		failTime: failTime,
	}
}

func (fc *FailureCtrl) FailTime() FailTime {
	return fc.failTime
}

// SetFailTime replaces the failure configuration and returns the time of the next fail or
// recover operation, or Ever.
func (fc *FailureCtrl) SetFailTime(failTime FailTime) uint64 {
	*fc = FailureCtrl{owner: fc.owner, failTime: failTime}
	now := fc.owner.CurTime

	switch {
	case !failTime.CanFail():
		if fc.owner.IsFailed() {
			fc.owner.Recover()
		}
		return Ever
	case fc.owner.IsFailed():
		fc.recoverAt = now + failTime.FailDuration
		return fc.recoverAt
	default:
		fc.startCycle(now)
		return fc.failAt
	}
}

// startCycle begins a fail cycle at ts and picks its failure time.
func (fc *FailureCtrl) startCycle(ts uint64) {
	ft := fc.failTime
	logger.AssertTrue(ft.FailInterval > ft.FailDuration, "fail interval must exceed fail duration")
	fc.failAt = ts + prng.NewFailTime(int(ft.FailInterval-ft.FailDuration))
	fc.cycleEnd = ts + ft.FailInterval
}

// next records ts as the next operation time; the flag reports whether it moved later.
func (fc *FailureCtrl) next(ts uint64) (uint64, bool) {
	later := ts > fc.lastNext
	fc.lastNext = ts
	return ts, later
}

// OnTimeAdvanced must be called when the node's time advances. It fails or recovers the node when
// due, and returns the time of the next operation and whether it moved further into the future.
func (fc *FailureCtrl) OnTimeAdvanced(oldTime uint64) (uint64, bool) {
	if !fc.failTime.CanFail() {
		return Ever, false
	}
	now := fc.owner.CurTime
	logger.AssertTrue(now > oldTime)

	if fc.owner.IsFailed() {
		if fc.recoverAt == 0 {
			// failed by hand
			fc.failAt = 0
			fc.recoverAt = now + fc.failTime.FailDuration
		}
		if now < fc.recoverAt {
			return fc.next(fc.recoverAt)
		}
		fc.recoverAt = 0
		fc.startCycle(maxUint64(fc.cycleEnd, now))
		fc.owner.Recover()
		fc.lastNext = fc.failAt
		return fc.failAt, true
	}

	if fc.failAt == 0 {
		fc.startCycle(maxUint64(fc.cycleEnd, now))
	}
	if now < fc.failAt {
		return fc.next(fc.failAt)
	}
	fc.failAt = 0
	fc.recoverAt = now + fc.failTime.FailDuration
	fc.owner.Fail()
	fc.lastNext = fc.recoverAt
	return fc.recoverAt, true
}
