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

package radiomodel

import (
	"math"
	"time"

	"github.com/pkg/errors"
)

type DbValue = float64

const (
	RssiInvalid       DbValue = 127.0
	RssiMinusInfinity DbValue = -127.0
	RssiMin           DbValue = -126.0
	RssiMax           DbValue = 126.0
)

// default radio & simulation parameters
const (
	defaultMeterPerUnit float64 = 0.10 // Default distance equivalent in meters of one grid/pixel distance unit.
	defaultBitRate      float64 = 250000
)

// Params stores the parameters of the radios and of the radio model of the shared channel.
type Params struct {
	Model            string        `yaml:"model"`
	BitRate          float64       `yaml:"bit-rate"`     // bits per second
	PhyOverhead      int           `yaml:"phy-overhead"` // bytes of preamble, SFD and length per frame
	WakeDelay        time.Duration `yaml:"wake-delay"`   // time from entering listen until carrier sense is valid
	TxPowerDbm       DbValue       `yaml:"tx-power"`
	RxSensitivityDbm DbValue       `yaml:"rx-sensitivity"`
	CcaThresholdDbm  DbValue       `yaml:"cca-threshold"`
	MinSirDb         DbValue       `yaml:"min-sir"` // lowest signal-to-interference ratio for a frame to survive
	MeterPerUnit     float64       `yaml:"meter-per-unit"`
	IsDiscLimit      bool          `yaml:"disc-limit"` // If true, RF signal Tx range is limited to the RadioRange set for each node

	exponentDb  DbValue
	fixedLossDb DbValue
}

// DefaultParams gets a new set of parameters with default values, as a basis to configure further.
func DefaultParams() *Params {
	p := &Params{
		Model:            MutualInterferenceName,
		BitRate:          defaultBitRate,
		PhyOverhead:      6,
		WakeDelay:        192 * time.Microsecond,
		TxPowerDbm:       0.0,
		RxSensitivityDbm: -95.0,
		CcaThresholdDbm:  -85.0,
		MinSirDb:         6.0,
		MeterPerUnit:     defaultMeterPerUnit,
		IsDiscLimit:      true,
	}
	return p
}

func (p *Params) Validate() error {
	if p.BitRate <= 0 {
		return errors.Errorf("bit rate must be positive: %v", p.BitRate)
	}
	if p.PhyOverhead < 0 {
		return errors.Errorf("phy overhead must not be negative: %d", p.PhyOverhead)
	}
	if p.WakeDelay < 0 {
		return errors.Errorf("wake delay must not be negative: %v", p.WakeDelay)
	}
	if p.MeterPerUnit <= 0 {
		return errors.Errorf("meter per unit must be positive: %v", p.MeterPerUnit)
	}
	if CanonicalModelName(p.Model) == "" {
		return errors.Errorf("unknown radio model: %s", p.Model)
	}
	return nil
}

// ITU-T indoor model
func setIndoorModelParamsItu(params *Params) {
	params.exponentDb = 30.0
	params.fixedLossDb = paround(20.0*math.Log10(2400) - 28.0)
}
