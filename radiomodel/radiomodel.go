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
	"strings"
)

const (
	IdealName              = "Ideal"
	MutualInterferenceName = "MutualInterference"
)

// RadioModel decides which radios hear which transmissions.
type RadioModel interface {
	GetName() string

	// CheckRadioReachable returns true if a frame sent by src can be received by dst, ignoring interference.
	CheckRadioReachable(src *RadioNode, dst *RadioNode) bool

	// CcaDetects returns true if a carrier sense by dst detects the transmission of src.
	CcaDetects(src *RadioNode, dst *RadioNode) bool

	// IsRxSuccess returns true if the frame of src survives the transmissions it overlapped with, at dst.
	IsRxSuccess(src *RadioNode, dst *RadioNode) bool
}

// NewRadioModel creates a radio model by name. Names are case-insensitive; "mi" is accepted for
// MutualInterference. Returns nil for an unknown name.
func NewRadioModel(name string, params *Params) RadioModel {
	setIndoorModelParamsItu(params)
	switch strings.ToLower(name) {
	case "ideal", "i", "1":
		return &RadioModelIdeal{params: params}
	case "mutualinterference", "mi", "m", "2", "":
		return &RadioModelMutualInterference{params: params}
	default:
		return nil
	}
}

// CanonicalModelName returns the name of the model that NewRadioModel would create, or "".
func CanonicalModelName(name string) string {
	if rm := NewRadioModel(name, DefaultParams()); rm != nil {
		return rm.GetName()
	}
	return ""
}
