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

package tests

import (
	"testing"
	"time"

	"github.com/speckmac/smns/smnstester"
	. "github.com/speckmac/smns/types"
)

func TestAddNode(t *testing.T) {
	test := smnstester.Instance(t)
	test.Start("TestAddNode")

	id := test.AddNodeRr(100, 200, 150)
	test.ExpectVisualizeAddNode(id, 100, 200, 150)

	nodes := test.ListNodes()
	test.ExpectTrue(len(nodes) == 1, "expected 1 node, got %d", len(nodes))
	test.ExpectEqual([2]int{100, 200}, nodes[id].Position)
}

func TestDeleteNode(t *testing.T) {
	test := smnstester.Instance(t)
	test.Start("TestDeleteNode")

	id1 := test.AddNode(100, 100)
	id2 := test.AddNode(200, 100)
	test.Go(time.Second)
	test.DeleteNode(id1)

	nodes := test.ListNodes()
	test.ExpectTrue(len(nodes) == 1, "expected 1 node, got %d", len(nodes))
	_, ok := nodes[id2]
	test.ExpectTrue(ok, "node %d missing", id2)

	test.CommandExpectError("node 9999")
}

func TestBroadcastDelivery(t *testing.T) {
	test := smnstester.Instance(t)
	test.Start("TestBroadcastDelivery")

	src := test.AddNodeRr(100, 100, 150)
	near := test.AddNodeRr(200, 100, 150)
	far := test.AddNodeRr(900, 100, 150)
	test.Go(time.Second)

	seq := test.Send(src, "broadcast", 20)
	test.ExpectTrue(seq > 0, "bad sequence number %d", seq)
	test.Go(time.Second * 5)
	test.ExpectVisualizeSend(src)

	test.ExpectEqual(uint64(1), test.Counters(near)["net.received"])
	test.ExpectEqual(uint64(0), test.Counters(far)["net.received"])
	test.ExpectEqual(uint64(1), test.Counters(src)["mac.bursts_sent"])
}

func TestUnicastFilteredByOthers(t *testing.T) {
	test := smnstester.Instance(t)
	test.Start("TestUnicastFilteredByOthers")

	src := test.AddNodeRr(100, 100, 200)
	dst := test.AddNodeRr(150, 100, 200)
	other := test.AddNodeRr(100, 150, 200)
	test.Go(time.Second)

	test.Commandf("send %d %d ds 40", src, dst)
	test.Go(time.Second * 5)

	test.ExpectEqual(uint64(1), test.Counters(dst)["net.received"])
	test.ExpectEqual(uint64(0), test.Counters(other)["net.received"])
	test.ExpectTrue(test.Counters(InvalidNodeId)["mac.copies_sent"] > 0, "no copies sent")
}

func TestRadioOff(t *testing.T) {
	test := smnstester.Instance(t)
	test.Start("TestRadioOff")

	src := test.AddNode(100, 100)
	dst := test.AddNode(150, 100)
	test.Go(time.Second)

	test.Commandf("radio %d off", dst)
	test.Commandf("send %d %d", src, dst)
	test.Go(time.Second * 5)
	test.ExpectEqual(uint64(0), test.Counters(dst)["net.received"])
}
