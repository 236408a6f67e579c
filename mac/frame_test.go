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
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/speckmac/smns/types"
)

func TestResolveDestination(t *testing.T) {
	id, err := ResolveDestination("broadcast")
	assert.Nil(t, err)
	assert.Equal(t, BroadcastNodeId, id)

	id, err = ResolveDestination("-1")
	assert.Nil(t, err)
	assert.Equal(t, BroadcastNodeId, id)

	id, err = ResolveDestination(" 17 ")
	assert.Nil(t, err)
	assert.Equal(t, 17, id)

	for _, bad := range []string{"", "abc", "0", "-2", "65535", "1.5"} {
		_, err = ResolveDestination(bad)
		assert.ErrorIs(t, err, ErrBadDestination, bad)
	}
}

func TestCodecRoundTrip(t *testing.T) {
	c := NewCodec(9, 128)
	payload := payloadOf(20)
	f, err := c.Encapsulate(3, "7", payload)
	assert.Nil(t, err)
	assert.Equal(t, FrameTypeData, f.Type)
	assert.Equal(t, 29, c.FrameLen(f))

	data := c.Marshal(f)
	assert.Equal(t, 29, len(data))
	assert.Equal(t, []byte{FrameTypeData, 3, 0, 7, 0, 0, 0, 0, 0}, data[:9])

	f2, err := c.Unmarshal(data)
	assert.Nil(t, err)
	assert.Equal(t, f, f2)
	assert.Equal(t, payload, c.Decapsulate(f2))
}

func TestCodecBroadcast(t *testing.T) {
	c := NewCodec(5, 64)
	f, err := c.Encapsulate(1, "broadcast", []byte{0xaa})
	assert.Nil(t, err)
	assert.True(t, f.IsBroadcast())

	data := c.Marshal(f)
	assert.Equal(t, []byte{FrameTypeData, 1, 0, 0xff, 0xff, 0xaa}, data)
	f2, err := c.Unmarshal(data)
	assert.Nil(t, err)
	assert.True(t, f2.IsBroadcast())
}

func TestCodecCopiesPayload(t *testing.T) {
	c := NewCodec(9, 128)
	payload := []byte{1, 2, 3}
	f, _ := c.Encapsulate(1, "2", payload)
	payload[0] = 99
	assert.Equal(t, byte(1), f.Payload[0])

	out := c.Decapsulate(f)
	out[1] = 99
	assert.Equal(t, byte(2), f.Payload[1])
}

func TestCodecFrameSizeLimit(t *testing.T) {
	c := NewCodec(9, 30)
	_, err := c.Encapsulate(1, "2", payloadOf(21))
	assert.Nil(t, err)
	_, err = c.Encapsulate(1, "2", payloadOf(22))
	assert.ErrorIs(t, err, ErrFrameTooLarge)
}

func TestCodecUnmarshalErrors(t *testing.T) {
	c := NewCodec(9, 128)
	_, err := c.Unmarshal([]byte{FrameTypeData, 1, 0})
	assert.ErrorIs(t, err, ErrShortFrame)
	_, err = c.Unmarshal([]byte{0x42, 1, 0, 2, 0, 0, 0, 0, 0})
	assert.ErrorIs(t, err, ErrBadFrameType)
}

func TestCodecMinimumOverhead(t *testing.T) {
	c := NewCodec(2, 64)
	assert.Equal(t, MinHeaderOverhead, c.HeaderOverhead())
}
