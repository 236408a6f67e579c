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
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPcapFile(t *testing.T) {
	pcapFilename := filepath.Join(t.TempDir(), "test.pcap")
	pcap, err := NewFile(pcapFilename, FrameTypeMac, false)
	if err != nil {
		t.Fatal(err)
	}

	defer func() {
		_ = pcap.Close()
	}()

	err = pcap.Sync()
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, pcapFileHeaderSize, getFileSize(t, pcapFilename))

	for i := 0; i < 10; i++ {
		frame := Frame{
			Timestamp: uint64(i) * 1000,
			Data:      []byte{0x01, 0x01, 0x00, 0xff, 0xff},
			Src:       1,
		}
		err = pcap.AppendFrame(frame)
		if err != nil {
			t.Fatal(err)
		}

		err = pcap.Sync()
		if err != nil {
			t.Fatal(err)
		}
		assert.Equal(t, pcapFileHeaderSize+(pcapFrameHeaderSize+5)*(i+1), getFileSize(t, pcapFilename))
	}

	data, err := os.ReadFile(pcapFilename)
	assert.Nil(t, err)
	assert.Equal(t, uint32(pcapMagicNumber), binary.LittleEndian.Uint32(data[0:4]))
	assert.Equal(t, uint32(dltUser0), binary.LittleEndian.Uint32(data[20:24]))
	// second frame at 1000us
	second := data[pcapFileHeaderSize+pcapFrameHeaderSize+5:]
	assert.Equal(t, uint32(0), binary.LittleEndian.Uint32(second[0:4]))
	assert.Equal(t, uint32(1000), binary.LittleEndian.Uint32(second[4:8]))
}

func TestPcapMetaFile(t *testing.T) {
	pcapFilename := filepath.Join(t.TempDir(), "test_meta.pcap")
	pcap, err := NewFile(pcapFilename, FrameTypeMacMeta, false)
	if err != nil {
		t.Fatal(err)
	}

	defer func() {
		_ = pcap.Close()
	}()

	for i := 0; i < 10; i++ {
		frame := Frame{
			Timestamp:  uint64(i) * 1000,
			Data:       []byte{0x01, 0x02, 0x00, 0x03, 0x00},
			Src:        2,
			DurationUs: 352,
		}
		err = pcap.AppendFrame(frame)
		if err != nil {
			t.Fatal(err)
		}
		assert.Equal(t, pcapFileHeaderSize+(pcapFrameHeaderSize+pcapMetaFrameHeaderSize+5)*(i+1), getFileSize(t, pcapFilename))
	}

	data, err := os.ReadFile(pcapFilename)
	assert.Nil(t, err)
	assert.Equal(t, uint32(dltUser1), binary.LittleEndian.Uint32(data[20:24]))
	meta := data[pcapFileHeaderSize+pcapFrameHeaderSize:]
	assert.Equal(t, uint16(2), binary.LittleEndian.Uint16(meta[4:6]))
	assert.Equal(t, uint32(352), binary.LittleEndian.Uint32(meta[6:10]))
}

func TestPcapFileWithTimeRefFrame(t *testing.T) {
	pcapFilename := filepath.Join(t.TempDir(), "test_timerefframe.pcap")
	pcap, err := NewFile(pcapFilename, FrameTypeMac, true)
	if err != nil {
		t.Fatal(err)
	}

	defer func() {
		_ = pcap.Close()
	}()

	err = pcap.Sync()
	if err != nil {
		t.Fatal(err)
	}
	pcapStartSize := getFileSize(t, pcapFilename)
	assert.Equal(t, pcapFileHeaderSize+pcapFrameHeaderSize+len(timeReferenceFrameData), pcapStartSize)

	for i := 0; i < 10; i++ {
		frame := Frame{
			Timestamp: 500 + uint64(i)*1000,
			Data:      []byte{0x01, 0x01, 0x00, 0xff, 0xff},
		}
		err = pcap.AppendFrame(frame)
		if err != nil {
			t.Fatal(err)
		}

		err = pcap.Sync()
		if err != nil {
			t.Fatal(err)
		}
		assert.Equal(t, pcapStartSize+(pcapFrameHeaderSize+5)*(i+1), getFileSize(t, pcapFilename))
	}
}

func TestParseFrameType(t *testing.T) {
	assert.Equal(t, FrameTypeOff, ParseFrameTypeStr("off"))
	assert.Equal(t, FrameTypeMac, ParseFrameTypeStr("mac"))
	assert.Equal(t, FrameTypeMacMeta, ParseFrameTypeStr("mac-meta"))
	assert.Equal(t, FrameTypeUnknown, ParseFrameTypeStr("wpan"))

	_, err := NewFile(filepath.Join(t.TempDir(), "x.pcap"), FrameTypeOff, false)
	assert.NotNil(t, err)
}

func getFileSize(t *testing.T, fp string) int {
	info, err := os.Stat(fp)
	if err != nil {
		t.Fatal(err)
	}

	return int(info.Size())
}
