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

package mac

import (
	"encoding/binary"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	. "github.com/speckmac/smns/types"
)

const (
	FrameTypeData byte = 1

	// BroadcastAddr is the wire value of the broadcast destination.
	BroadcastAddr uint16 = 0xffff

	BroadcastToken = "broadcast"
)

var (
	ErrFrameTooLarge  = errors.New("frame too large")
	ErrBadDestination = errors.New("bad destination")
	ErrShortFrame     = errors.New("short frame")
	ErrBadFrameType   = errors.New("bad frame type")
)

// Frame is a MAC frame: a small addressing header plus an opaque payload.
type Frame struct {
	Type    byte
	Src     NodeId
	Dst     NodeId // BroadcastNodeId for broadcast
	Payload []byte
}

func (f *Frame) IsBroadcast() bool {
	return f.Dst == BroadcastNodeId
}

// Copy returns a deep copy of the frame.
func (f *Frame) Copy() *Frame {
	c := *f
	c.Payload = append([]byte(nil), f.Payload...)
	return &c
}

// Codec encapsulates payloads into MAC frames and back. The serialized header is
// frameType(1) | src(2) | dst(2), little endian, padded with zero bytes to headerOverhead.
type Codec struct {
	headerOverhead int
	maxFrameSize   int
}

func NewCodec(headerOverhead int, maxFrameSize int) *Codec {
	if headerOverhead < MinHeaderOverhead {
		headerOverhead = MinHeaderOverhead
	}
	return &Codec{
		headerOverhead: headerOverhead,
		maxFrameSize:   maxFrameSize,
	}
}

func (c *Codec) HeaderOverhead() int {
	return c.headerOverhead
}

// FrameLen returns the serialized length of f.
func (c *Codec) FrameLen(f *Frame) int {
	return c.headerOverhead + len(f.Payload)
}

// ResolveDestination parses a destination token: a decimal node id, or "broadcast" / "-1".
func ResolveDestination(dst string) (NodeId, error) {
	dst = strings.TrimSpace(dst)
	if dst == BroadcastToken || dst == strconv.Itoa(BroadcastNodeId) {
		return BroadcastNodeId, nil
	}
	id, err := strconv.Atoi(dst)
	if err != nil || id <= InvalidNodeId || id > MaxNodeId {
		return 0, errors.Wrapf(ErrBadDestination, "%q", dst)
	}
	return id, nil
}

// Encapsulate builds a data frame from src to dst carrying a copy of payload.
func (c *Codec) Encapsulate(src NodeId, dst string, payload []byte) (*Frame, error) {
	dstId, err := ResolveDestination(dst)
	if err != nil {
		return nil, err
	}
	if c.headerOverhead+len(payload) > c.maxFrameSize {
		return nil, errors.Wrapf(ErrFrameTooLarge, "%d+%d bytes exceeds %d", c.headerOverhead, len(payload),
			c.maxFrameSize)
	}
	return &Frame{
		Type:    FrameTypeData,
		Src:     src,
		Dst:     dstId,
		Payload: append([]byte(nil), payload...),
	}, nil
}

// Decapsulate returns a copy of the frame's payload.
func (c *Codec) Decapsulate(f *Frame) []byte {
	return append([]byte(nil), f.Payload...)
}

func nodeIdToAddr(id NodeId) uint16 {
	if id == BroadcastNodeId {
		return BroadcastAddr
	}
	return uint16(id)
}

func addrToNodeId(addr uint16) NodeId {
	if addr == BroadcastAddr {
		return BroadcastNodeId
	}
	return NodeId(addr)
}

func (c *Codec) Marshal(f *Frame) []byte {
	data := make([]byte, c.headerOverhead+len(f.Payload))
	data[0] = f.Type
	binary.LittleEndian.PutUint16(data[1:3], nodeIdToAddr(f.Src))
	binary.LittleEndian.PutUint16(data[3:5], nodeIdToAddr(f.Dst))
	copy(data[c.headerOverhead:], f.Payload)
	return data
}

func (c *Codec) Unmarshal(data []byte) (*Frame, error) {
	if len(data) < c.headerOverhead {
		return nil, errors.Wrapf(ErrShortFrame, "%d bytes", len(data))
	}
	if data[0] != FrameTypeData {
		return nil, errors.Wrapf(ErrBadFrameType, "%d", data[0])
	}
	return &Frame{
		Type:    data[0],
		Src:     addrToNodeId(binary.LittleEndian.Uint16(data[1:3])),
		Dst:     addrToNodeId(binary.LittleEndian.Uint16(data[3:5])),
		Payload: append([]byte(nil), data[c.headerOverhead:]...),
	}, nil
}
