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

package pcap

import (
	"encoding/binary"
	"math"
	"os"
)

// The mac-meta format prefixes every MAC frame with a pseudo-header, version 0:
//
//	version u8 | reserved u8 | header length u16 | source node u16 | air time (us) u32
//
// all little-endian, followed by the MAC frame itself.
const (
	dltUser1                = 148
	macMetaVersion          = 0
	pcapMetaFrameHeaderSize = 10
)

type macMetaFile struct {
	fd *os.File
}

func newMacMetaFile(filename string) (File, error) {
	fd, err := createFile(filename, dltUser1)
	if err != nil {
		return nil, err
	}
	return &macMetaFile{fd: fd}, nil
}

func (pf *macMetaFile) AppendFrame(frame Frame) error {
	var meta [pcapMetaFrameHeaderSize]byte
	meta[0] = macMetaVersion
	binary.LittleEndian.PutUint16(meta[2:4], pcapMetaFrameHeaderSize)
	src := uint16(0)
	if frame.Src > 0 {
		src = uint16(frame.Src)
	}
	binary.LittleEndian.PutUint16(meta[4:6], src)
	dur := frame.DurationUs
	if dur > math.MaxUint32 {
		dur = math.MaxUint32
	}
	binary.LittleEndian.PutUint32(meta[6:10], uint32(dur))

	if _, err := pf.fd.Write(frameHeader(frame.Timestamp, pcapMetaFrameHeaderSize+len(frame.Data))); err != nil {
		return err
	}
	if _, err := pf.fd.Write(meta[:]); err != nil {
		return err
	}
	_, err := pf.fd.Write(frame.Data)
	return err
}

func (pf *macMetaFile) Sync() error {
	return pf.fd.Sync()
}

func (pf *macMetaFile) Close() error {
	return pf.fd.Close()
}
