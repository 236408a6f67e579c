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
	"math/rand"
	"time"

	"github.com/pkg/errors"

	"github.com/speckmac/smns/dispatcher"
	"github.com/speckmac/smns/event"
	"github.com/speckmac/smns/mac"
)

// TrafficConfig configures the periodic payload generator of a node.
type TrafficConfig struct {
	Interval    time.Duration `yaml:"interval"`
	Jitter      time.Duration `yaml:"jitter"`
	Start       time.Duration `yaml:"start"`
	PayloadSize int           `yaml:"payload-size"`
	Dst         string        `yaml:"dst"`
	Count       int           `yaml:"count"` // 0 means unlimited
}

func DefaultTrafficConfig() TrafficConfig {
	return TrafficConfig{
		Interval:    5 * time.Second,
		Jitter:      time.Second,
		Start:       0,
		PayloadSize: 20,
		Dst:         mac.BroadcastToken,
		Count:       0,
	}
}

func (tc *TrafficConfig) Validate() error {
	if tc.Interval <= 0 {
		return errors.Errorf("traffic interval must be positive: %v", tc.Interval)
	}
	if tc.Jitter < 0 || tc.Jitter >= tc.Interval {
		return errors.Errorf("traffic jitter must be in [0, interval): %v", tc.Jitter)
	}
	if tc.Start < 0 {
		return errors.Errorf("traffic start must not be negative: %v", tc.Start)
	}
	if tc.PayloadSize < AppHeaderLen {
		return errors.Errorf("traffic payload size must be at least %d: %d", AppHeaderLen, tc.PayloadSize)
	}
	if tc.Count < 0 {
		return errors.Errorf("traffic count must not be negative: %d", tc.Count)
	}
	if _, err := mac.ResolveDestination(tc.Dst); err != nil {
		return err
	}
	return nil
}

// trafficGen drives one node's traffic. Generator events carry a generation number so that a
// restarted or stopped generator ignores its outstanding event.
type trafficGen struct {
	cfg     TrafficConfig
	gen     uint64
	sent    int
	stopped bool
	rnd     *rand.Rand
}

func (tg *trafficGen) nextDelayUs(base time.Duration) uint64 {
	d := base
	if tg.cfg.Jitter > 0 {
		d += time.Duration(tg.rnd.Int63n(int64(2*tg.cfg.Jitter))) - tg.cfg.Jitter
	}
	if d < 0 {
		d = 0
	}
	return uint64(d / time.Microsecond)
}

func (tg *trafficGen) done() bool {
	return tg.cfg.Count > 0 && tg.sent >= tg.cfg.Count
}

// StartTraffic (re)starts the traffic generator of a node.
func (s *Simulation) StartTraffic(nodeid int, cfg TrafficConfig) error {
	node := s.nodes[nodeid]
	if node == nil {
		return errors.Errorf("node %d not found", nodeid)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.PayloadSize > node.net.maxPayload {
		return errors.Wrapf(ErrPayloadSize, "traffic payload size %d exceeds %d", cfg.PayloadSize,
			node.net.maxPayload)
	}

	gen := uint64(1)
	if node.traffic != nil {
		gen = node.traffic.gen + 1
	}
	node.traffic = &trafficGen{cfg: cfg, gen: gen, rnd: node.rnd}
	first := cfg.Start
	if first < cfg.Jitter {
		first = cfg.Jitter
	}
	return s.d.PostEvent(nodeid, &event.Event{Type: event.EventTypeTrafficGen, Gen: gen},
		node.traffic.nextDelayUs(first))
}

// StopTraffic stops the traffic generator of a node.
func (s *Simulation) StopTraffic(nodeid int) error {
	node := s.nodes[nodeid]
	if node == nil {
		return errors.Errorf("node %d not found", nodeid)
	}
	if node.traffic != nil {
		node.traffic.gen++
		node.traffic.stopped = true
	}
	return nil
}

func (s *Simulation) onTrafficGen(dnode *dispatcher.Node, evt *event.Event) {
	node := s.nodes[dnode.Id]
	if node == nil || node.traffic == nil || node.traffic.gen != evt.Gen || node.traffic.stopped {
		return
	}
	tg := node.traffic
	if _, err := node.net.Send(tg.cfg.Dst, tg.cfg.PayloadSize); err != nil {
		node.Logger.Warnf("traffic send failed: %v", err)
	}
	tg.sent++
	if !tg.done() {
		dnode.Schedule(&event.Event{Type: event.EventTypeTrafficGen, Gen: tg.gen}, tg.nextDelayUs(tg.cfg.Interval))
	}
}
