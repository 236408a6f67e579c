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
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/speckmac/smns/logger"
	. "github.com/speckmac/smns/types"
)

const (
	// AppHeaderLen is the size of the application header: origin u16 | seq u32.
	AppHeaderLen = 6

	dupWindowSize = 64
)

var (
	ErrPayloadSize = errors.New("payload size out of range")
)

// AppPayload is the decoded application header of a network-layer payload.
type AppPayload struct {
	Origin NodeId
	Seq    uint32
	Len    int
}

type NetCounters struct {
	Sent       uint64 `yaml:"sent"`
	SendErrors uint64 `yaml:"send_errors"`
	Received   uint64 `yaml:"received"`
	Duplicates uint64 `yaml:"duplicates"`
	Malformed  uint64 `yaml:"malformed"`
	BufferFull uint64 `yaml:"buffer_full"`
}

// seqWindow remembers the highest sequence number seen from one origin, and which of the
// dupWindowSize numbers below it have been seen.
type seqWindow struct {
	top  uint32
	mask uint64
}

// check returns true if seq is new, and marks it seen.
func (w *seqWindow) check(seq uint32) bool {
	if seq > w.top {
		shift := seq - w.top
		if shift >= dupWindowSize {
			w.mask = 0
		} else {
			w.mask <<= shift
		}
		w.mask |= 1
		w.top = seq
		return true
	}
	diff := w.top - seq
	if diff >= dupWindowSize {
		return false
	}
	bit := uint64(1) << diff
	if w.mask&bit != 0 {
		return false
	}
	w.mask |= bit
	return true
}

type payloadSender func(dst string, payload []byte) error

// NetworkLayer is the network collaborator of one node's MAC. It frames application payloads
// with an (origin, seq) header and drops duplicate deliveries.
type NetworkLayer struct {
	nodeid     NodeId
	maxPayload int
	send       payloadSender
	seq        uint32
	windows    map[NodeId]*seqWindow
	rxFrom     map[NodeId]uint64
	log        *logger.NodeLogger

	Counters NetCounters
}

func newNetworkLayer(nodeid NodeId, maxPayload int, send payloadSender, log *logger.NodeLogger) *NetworkLayer {
	return &NetworkLayer{
		nodeid:     nodeid,
		maxPayload: maxPayload,
		send:       send,
		windows:    map[NodeId]*seqWindow{},
		rxFrom:     map[NodeId]uint64{},
		log:        log,
	}
}

// EncodeAppPayload builds a payload of size bytes carrying origin and seq.
func EncodeAppPayload(origin NodeId, seq uint32, size int) []byte {
	if size < AppHeaderLen {
		size = AppHeaderLen
	}
	p := make([]byte, size)
	binary.LittleEndian.PutUint16(p[0:2], uint16(origin))
	binary.LittleEndian.PutUint32(p[2:6], seq)
	for i := AppHeaderLen; i < size; i++ {
		p[i] = byte(i)
	}
	return p
}

func DecodeAppPayload(p []byte) (AppPayload, error) {
	if len(p) < AppHeaderLen {
		return AppPayload{}, errors.Errorf("payload too short: %d bytes", len(p))
	}
	return AppPayload{
		Origin: NodeId(binary.LittleEndian.Uint16(p[0:2])),
		Seq:    binary.LittleEndian.Uint32(p[2:6]),
		Len:    len(p),
	}, nil
}

// Send hands a new application payload of size bytes for dst to the MAC.
func (nl *NetworkLayer) Send(dst string, size int) (uint32, error) {
	if size < AppHeaderLen || size > nl.maxPayload {
		nl.Counters.SendErrors++
		return 0, errors.Wrapf(ErrPayloadSize, "size %d not in [%d, %d]", size, AppHeaderLen, nl.maxPayload)
	}
	nl.seq++
	if err := nl.send(dst, EncodeAppPayload(nl.nodeid, nl.seq, size)); err != nil {
		nl.Counters.SendErrors++
		return 0, err
	}
	nl.Counters.Sent++
	return nl.seq, nil
}

// ReceivePayload is called by the MAC for each decapsulated frame.
func (nl *NetworkLayer) ReceivePayload(src NodeId, payload []byte) {
	app, err := DecodeAppPayload(payload)
	if err != nil {
		nl.Counters.Malformed++
		nl.log.Debugf("malformed payload from %d: %v", src, err)
		return
	}
	w := nl.windows[app.Origin]
	if w == nil {
		w = &seqWindow{}
		nl.windows[app.Origin] = w
	}
	if !w.check(app.Seq) {
		nl.Counters.Duplicates++
		nl.log.Tracef("duplicate payload %d/%d", app.Origin, app.Seq)
		return
	}
	nl.Counters.Received++
	nl.rxFrom[app.Origin]++
	nl.log.Debugf("received payload %d/%d (%d bytes) via %d", app.Origin, app.Seq, app.Len, src)
}

func (nl *NetworkLayer) BufferFull() {
	nl.Counters.BufferFull++
	nl.log.Infof("MAC transmit queue full, payload dropped")
}

// ReceivedFrom returns the number of unique payloads received from origin.
func (nl *NetworkLayer) ReceivedFrom(origin NodeId) uint64 {
	return nl.rxFrom[origin]
}
