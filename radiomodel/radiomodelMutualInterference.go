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

// RadioModelMutualInterference computes RSSI from an indoor path loss model. A frame is lost at a
// receiver when the summed power of the transmissions it overlapped with comes within MinSirDb of
// its own signal, or when the receiver itself transmitted meanwhile.
type RadioModelMutualInterference struct {
	params *Params
}

func (rm *RadioModelMutualInterference) GetName() string {
	return MutualInterferenceName
}

// GetTxRssi returns the RSSI of src's signal at dst, or RssiInvalid if out of (disc) range.
func (rm *RadioModelMutualInterference) GetTxRssi(src *RadioNode, dst *RadioNode) DbValue {
	dist := src.GetDistanceTo(dst)
	if rm.params.IsDiscLimit && dist > src.RadioRange {
		return RssiInvalid
	}
	rssi := computeIndoorRssiItu(dist, rm.params.TxPowerDbm, rm.params)
	if rssi < RssiMin {
		return RssiMinusInfinity
	}
	if rssi > RssiMax {
		rssi = RssiMax
	}
	return rssi
}

func (rm *RadioModelMutualInterference) CheckRadioReachable(src *RadioNode, dst *RadioNode) bool {
	if src == dst || !dst.CanReceive() {
		return false
	}
	rssi := rm.GetTxRssi(src, dst)
	return rssi != RssiInvalid && rssi >= rm.params.RxSensitivityDbm
}

func (rm *RadioModelMutualInterference) CcaDetects(src *RadioNode, dst *RadioNode) bool {
	if src == dst {
		return false
	}
	rssi := rm.GetTxRssi(src, dst)
	return rssi != RssiInvalid && rssi >= rm.params.CcaThresholdDbm
}

func (rm *RadioModelMutualInterference) IsRxSuccess(src *RadioNode, dst *RadioNode) bool {
	signal := rm.GetTxRssi(src, dst)
	interference := RssiMinusInfinity
	interfered := false
	for _, interferer := range src.InterferedBy {
		if interferer == dst {
			return false
		}
		rssi := rm.GetTxRssi(interferer, dst)
		if rssi == RssiInvalid {
			continue
		}
		interference = addSignalPowersDbm(interference, rssi)
		interfered = true
	}
	if !interfered {
		return true
	}
	return signal-interference >= rm.params.MinSirDb
}
