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
	"time"

	"github.com/pkg/errors"

	"github.com/speckmac/smns/energy"
	"github.com/speckmac/smns/logger"
	"github.com/speckmac/smns/mac"
	"github.com/speckmac/smns/pcap"
	"github.com/speckmac/smns/radiomodel"
)

type Config struct {
	Speed             float64
	DumpPackets       bool
	PcapEnabled       bool
	PcapFrameType     pcap.FrameType
	DefaultWatchOn    bool
	DefaultWatchLevel string
	VizUpdateTime     time.Duration
	OutputDir         string
	SimulationId      int

	Mac    *mac.Config
	Radio  *radiomodel.Params
	Energy *energy.Config
}

func DefaultConfig() *Config {
	return &Config{
		Speed:             1,
		DumpPackets:       false,
		PcapEnabled:       false,
		PcapFrameType:     pcap.FrameTypeMacMeta,
		DefaultWatchOn:    false,
		DefaultWatchLevel: "info",
		VizUpdateTime:     125 * time.Millisecond,
		OutputDir:         ".",
		SimulationId:      0,
		Mac:               mac.DefaultConfig(),
		Radio:             radiomodel.DefaultParams(),
		Energy:            energy.DefaultConfig(),
	}
}

func (cfg *Config) Validate() error {
	if cfg.Mac == nil || cfg.Radio == nil || cfg.Energy == nil {
		return errors.Errorf("dispatcher config incomplete")
	}
	if err := cfg.Mac.Validate(); err != nil {
		return errors.Wrap(err, "mac")
	}
	if err := cfg.Radio.Validate(); err != nil {
		return errors.Wrap(err, "radio")
	}
	if err := cfg.Energy.Validate(); err != nil {
		return errors.Wrap(err, "energy")
	}
	if cfg.PcapEnabled && (cfg.PcapFrameType == pcap.FrameTypeOff || cfg.PcapFrameType == pcap.FrameTypeUnknown) {
		return errors.Errorf("invalid PCAP frame type: %d", cfg.PcapFrameType)
	}
	if _, err := logger.ParseLevelString(cfg.DefaultWatchLevel); err != nil {
		return err
	}
	// the largest MAC frame must fit into one sleep interval on the air
	maxAirUs := float64((cfg.Mac.MaxFrameSize+cfg.Radio.PhyOverhead)*8) * 1e6 / cfg.Radio.BitRate
	if maxAirUs >= float64(cfg.Mac.SleepInterval/time.Microsecond) {
		return errors.Errorf("max frame air time %.0fus exceeds sleep interval %v", maxAirUs, cfg.Mac.SleepInterval)
	}
	return nil
}
