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
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/speckmac/smns/logger"
	. "github.com/speckmac/smns/types"
)

type sentPayload struct {
	dst     string
	payload []byte
}

func newTestNetworkLayer(id NodeId, maxPayload int) (*NetworkLayer, *[]sentPayload) {
	sent := &[]sentPayload{}
	send := func(dst string, payload []byte) error {
		*sent = append(*sent, sentPayload{dst, payload})
		return nil
	}
	cfg := DefaultNodeConfig()
	cfg.ID = id
	return newNetworkLayer(id, maxPayload, send, logger.GetNodeLogger("", &cfg)), sent
}

func TestAppPayloadCodec(t *testing.T) {
	p := EncodeAppPayload(513, 0x01020304, 12)
	assert.Equal(t, 12, len(p))
	assert.Equal(t, []byte{0x01, 0x02, 0x04, 0x03, 0x02, 0x01}, p[:AppHeaderLen])

	app, err := DecodeAppPayload(p)
	assert.Nil(t, err)
	assert.Equal(t, AppPayload{Origin: 513, Seq: 0x01020304, Len: 12}, app)

	assert.Equal(t, AppHeaderLen, len(EncodeAppPayload(1, 1, 0)))
	_, err = DecodeAppPayload([]byte{1, 2, 3})
	assert.NotNil(t, err)
}

func TestSeqWindow(t *testing.T) {
	w := &seqWindow{}
	assert.True(t, w.check(1))
	assert.False(t, w.check(1))
	assert.True(t, w.check(3))
	assert.True(t, w.check(2)) // late but inside the window
	assert.False(t, w.check(2))
	assert.True(t, w.check(100))
	assert.False(t, w.check(3)) // too old to tell, treated as duplicate
	assert.True(t, w.check(99))
	assert.True(t, w.check(37))
	assert.False(t, w.check(36))
	assert.True(t, w.check(1000))
	assert.False(t, w.check(1000))
}

func TestNetworkLayerSend(t *testing.T) {
	nl, sent := newTestNetworkLayer(4, 40)

	seq, err := nl.Send("broadcast", 20)
	assert.Nil(t, err)
	assert.Equal(t, uint32(1), seq)
	seq, err = nl.Send("7", 40)
	assert.Nil(t, err)
	assert.Equal(t, uint32(2), seq)

	_, err = nl.Send("7", 41)
	assert.True(t, errors.Is(err, ErrPayloadSize))
	_, err = nl.Send("7", 5)
	assert.True(t, errors.Is(err, ErrPayloadSize))

	assert.Equal(t, 2, len(*sent))
	assert.Equal(t, "7", (*sent)[1].dst)
	app, _ := DecodeAppPayload((*sent)[1].payload)
	assert.Equal(t, AppPayload{Origin: 4, Seq: 2, Len: 40}, app)
	assert.Equal(t, uint64(2), nl.Counters.Sent)
	assert.Equal(t, uint64(2), nl.Counters.SendErrors)
}

func TestNetworkLayerSendError(t *testing.T) {
	nl := newNetworkLayer(1, 40, func(dst string, payload []byte) error {
		return errors.New("node gone")
	}, nil)
	_, err := nl.Send("broadcast", 10)
	assert.NotNil(t, err)
	assert.Equal(t, uint64(0), nl.Counters.Sent)
	assert.Equal(t, uint64(1), nl.Counters.SendErrors)
}

func TestNetworkLayerReceive(t *testing.T) {
	nl, _ := newTestNetworkLayer(2, 40)

	p1 := EncodeAppPayload(1, 1, 10)
	nl.ReceivePayload(1, p1)
	nl.ReceivePayload(1, p1)
	nl.ReceivePayload(3, EncodeAppPayload(3, 1, 10))
	nl.ReceivePayload(1, EncodeAppPayload(1, 2, 10))
	nl.ReceivePayload(1, []byte{1})
	nl.BufferFull()

	assert.Equal(t, uint64(3), nl.Counters.Received)
	assert.Equal(t, uint64(1), nl.Counters.Duplicates)
	assert.Equal(t, uint64(1), nl.Counters.Malformed)
	assert.Equal(t, uint64(1), nl.Counters.BufferFull)
	assert.Equal(t, uint64(2), nl.ReceivedFrom(1))
	assert.Equal(t, uint64(1), nl.ReceivedFrom(3))
	assert.Equal(t, uint64(0), nl.ReceivedFrom(2))
}
