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
	"time"

	"github.com/pkg/errors"

	. "github.com/speckmac/smns/types"
)

/*
 * Default consumption values by state of a low-power 2.4 GHz transceiver at 3.3V.
 * Consumption in kilowatts, time in microseconds, resulting energy in mJ.
 */
const (
	RadioDisabledConsumption float64 = 0.00000011 //kilowatts
	RadioTxConsumption       float64 = 0.00001716 //kilowatts @ i = 5.2 mA
	RadioRxConsumption       float64 = 0.00001485 //kilowatts @ i = 4.5 mA
	RadioSleepConsumption    float64 = 0.00000066 //kilowatts @ i = 0.2 mA
)

const (
	DefaultSamplePeriod    = time.Second
	DefaultClockDriftSigma = 30e-6 // 30 ppm
)

// Config holds the energy model parameters. Consumption values are in kilowatts.
type Config struct {
	SamplePeriod    time.Duration `yaml:"sample-period"`
	ClockDriftSigma float64       `yaml:"clock-drift-sigma"`
	DisabledKw      float64       `yaml:"disabled-kw"`
	SleepKw         float64       `yaml:"sleep-kw"`
	RxKw            float64       `yaml:"rx-kw"`
	TxKw            float64       `yaml:"tx-kw"`
}

func DefaultConfig() *Config {
	return &Config{
		SamplePeriod:    DefaultSamplePeriod,
		ClockDriftSigma: DefaultClockDriftSigma,
		DisabledKw:      RadioDisabledConsumption,
		SleepKw:         RadioSleepConsumption,
		RxKw:            RadioRxConsumption,
		TxKw:            RadioTxConsumption,
	}
}

func (cfg *Config) Validate() error {
	if cfg.SamplePeriod <= 0 {
		return errors.Errorf("energy sample period must be positive: %v", cfg.SamplePeriod)
	}
	if cfg.ClockDriftSigma < 0 || cfg.ClockDriftSigma >= 0.01 {
		return errors.Errorf("clock drift sigma out of range: %g", cfg.ClockDriftSigma)
	}
	if cfg.DisabledKw < 0 || cfg.SleepKw < 0 || cfg.RxKw < 0 || cfg.TxKw < 0 {
		return errors.Errorf("radio consumption must not be negative")
	}
	return nil
}

type RadioStatus struct {
	State         RadioStates
	SpentDisabled uint64
	SpentSleep    uint64
	SpentTx       uint64
	SpentRx       uint64
	Timestamp     uint64
}

// NodeConsumption is a snapshot of the energy spent by one node, per radio state, in mJ.
type NodeConsumption struct {
	NodeId   NodeId  `yaml:"id"`
	Disabled float64 `yaml:"disabled"`
	Sleep    float64 `yaml:"sleep"`
	Tx       float64 `yaml:"tx"`
	Rx       float64 `yaml:"rx"`
}

func (nc NodeConsumption) Total() float64 {
	return nc.Disabled + nc.Sleep + nc.Tx + nc.Rx
}

type NetworkConsumption struct {
	Timestamp          uint64
	EnergyConsDisabled float64
	EnergyConsSleep    float64
	EnergyConsTx       float64
	EnergyConsRx       float64
}
