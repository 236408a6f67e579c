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
	"os"

	"github.com/pkg/errors"

	"github.com/speckmac/smns/logger"
	. "github.com/speckmac/smns/types"
)

type FrameType int

const (
	FrameTypeOff FrameType = iota
	FrameTypeMac
	FrameTypeMacMeta
	FrameTypeUnknown
)

const (
	FrameTypeOffStr     string = "off"
	FrameTypeMacStr     string = "mac"
	FrameTypeMacMetaStr string = "mac-meta"
)

const (
	dltUser0            = 147
	pcapMagicNumber     = 0xA1B2C3D4
	pcapVersionMajor    = 2
	pcapVersionMinor    = 4
	pcapFileHeaderSize  = 24
	pcapFrameHeaderSize = 16
	pcapSnapLen         = 0xffff + 64
)

const (
	// Frame with a reserved frame type, only included as t=0 simulation time reference for the PCAP file.
	timeReferenceFrameData string = "\xff\x00\x00\xff\xffThis is an SMNS simulation PCAP-start t=0 reference frame."
)

// File represents a PCAP file
type File interface {
	AppendFrame(frame Frame) error
	Sync() error
	Close() error
}

// Frame represents a single MAC frame copy put on the air, as added to a PCAP file.
type Frame struct {
	Timestamp  uint64
	Data       []byte
	Src        NodeId
	DurationUs uint64
}

type macFile struct {
	fd *os.File
}

// NewFile creates a new PCAP file with all frames using specified frameType
func NewFile(filename string, frameType FrameType, useTimeRefFrame bool) (File, error) {
	var f File
	var err error

	switch frameType {
	case FrameTypeMac:
		f, err = newMacFile(filename)
	case FrameTypeMacMeta:
		f, err = newMacMetaFile(filename)
	default:
		f, err = nil, errors.Errorf("invalid PCAP frame type: %d", frameType)
	}

	if useTimeRefFrame && err == nil && f != nil {
		if err = f.AppendFrame(Frame{Data: []byte(timeReferenceFrameData), Src: InvalidNodeId}); err != nil {
			_ = f.Close()
			return nil, errors.Wrap(err, "PCAP file time-reference frame could not be written")
		}
	}

	return f, err
}

func ParseFrameTypeStr(tp string) FrameType {
	switch tp {
	case FrameTypeOffStr:
		return FrameTypeOff
	case FrameTypeMacStr:
		return FrameTypeMac
	case FrameTypeMacMetaStr:
		return FrameTypeMacMeta
	default:
		return FrameTypeUnknown
	}
}

func createFile(filename string, dlt uint32) (*os.File, error) {
	fd, err := os.OpenFile(filename, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	if err = writeFileHeader(fd, dlt); err != nil {
		_ = fd.Close()
		return nil, err
	}
	return fd, nil
}

func newMacFile(filename string) (File, error) {
	fd, err := createFile(filename, dltUser0)
	if err != nil {
		return nil, err
	}
	return &macFile{fd: fd}, nil
}

func (pf *macFile) AppendFrame(frame Frame) error {
	if _, err := pf.fd.Write(frameHeader(frame.Timestamp, len(frame.Data))); err != nil {
		return err
	}
	_, err := pf.fd.Write(frame.Data)
	return err
}

func (pf *macFile) Sync() error {
	return pf.fd.Sync()
}

func (pf *macFile) Close() error {
	return pf.fd.Close()
}

func frameHeader(timestamp uint64, plen int) []byte {
	header := make([]byte, pcapFrameHeaderSize)
	sec := uint32(timestamp / 1000000)
	usec := uint32(timestamp % 1000000)
	binary.LittleEndian.PutUint32(header[:4], sec)
	binary.LittleEndian.PutUint32(header[4:8], usec)
	binary.LittleEndian.PutUint32(header[8:12], uint32(plen))
	binary.LittleEndian.PutUint32(header[12:16], uint32(plen))
	return header
}

func writeFileHeader(fd *os.File, dlt uint32) error {
	var header [pcapFileHeaderSize]byte
	binary.LittleEndian.PutUint32(header[:4], pcapMagicNumber)
	binary.LittleEndian.PutUint16(header[4:6], pcapVersionMajor)
	binary.LittleEndian.PutUint16(header[6:8], pcapVersionMinor)
	binary.LittleEndian.PutUint32(header[8:12], 0)
	binary.LittleEndian.PutUint32(header[12:16], 0)
	binary.LittleEndian.PutUint32(header[16:20], pcapSnapLen)
	binary.LittleEndian.PutUint32(header[20:24], dlt)
	if _, err := fd.Write(header[:]); err != nil {
		return err
	}
	logger.Debugf("PCAP file %s created, link type %d", fd.Name(), dlt)
	return fd.Sync()
}
