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
	"github.com/pkg/errors"

	"github.com/speckmac/smns/logger"
	. "github.com/speckmac/smns/types"
)

const (
	DefaultOutputDir = "tmp"
)

type Config struct {
	Id            int
	Speed         float64
	AutoGo        bool
	ReadOnly      bool
	DumpPackets   bool
	PcapEnabled   bool
	Strict        bool
	LogLevel      logger.Level
	OutputDir     string
	Title         string
	NewNodeConfig NodeConfig
	Traffic       TrafficConfig // used for nodes that enable traffic without their own settings
}

func DefaultConfig() *Config {
	return &Config{
		Id:            0,
		Speed:         1,
		AutoGo:        true,
		ReadOnly:      false,
		DumpPackets:   false,
		PcapEnabled:   false,
		Strict:        false,
		LogLevel:      logger.WarnLevel,
		OutputDir:     DefaultOutputDir,
		NewNodeConfig: DefaultNodeConfig(),
		Traffic:       DefaultTrafficConfig(),
	}
}

func (cfg *Config) Validate() error {
	if cfg.Speed < 0 {
		return errors.Errorf("speed must not be negative: %v", cfg.Speed)
	}
	if cfg.OutputDir == "" {
		return errors.Errorf("output directory not set")
	}
	if cfg.NewNodeConfig.RadioRange <= 0 {
		return errors.Errorf("radio range must be positive: %d", cfg.NewNodeConfig.RadioRange)
	}
	if cfg.NewNodeConfig.BatteryJ < 0 {
		return errors.Errorf("battery capacity must not be negative: %g", cfg.NewNodeConfig.BatteryJ)
	}
	return errors.Wrap(cfg.Traffic.Validate(), "traffic")
}
