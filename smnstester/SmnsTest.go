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

// Package smnstester runs a complete SMNS instance, driven through its CLI, for integration tests.
package smnstester

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/simonlingoogle/go-simplelogger"
	"github.com/stretchr/testify/assert"
	"gopkg.in/yaml.v3"

	"github.com/speckmac/smns/cli"
	"github.com/speckmac/smns/dispatcher"
	"github.com/speckmac/smns/progctx"
	"github.com/speckmac/smns/simulation"
	"github.com/speckmac/smns/smns_main"
	. "github.com/speckmac/smns/types"
	"github.com/speckmac/smns/visualize"
)

var (
	smnsTestSingleton *SmnsTest = nil
)

type VisualizeEventKind int

const (
	VisualizeAddNode VisualizeEventKind = iota
	VisualizeSend
	VisualizeDepleted
)

type VisualizeEvent struct {
	Kind       VisualizeEventKind
	NodeId     NodeId
	X, Y       int
	RadioRange int
	Dst        NodeId
	Copies     int
}

// recordingVisualizer forwards a subset of visualization calls to the test.
type recordingVisualizer struct {
	visualize.Visualizer
	events chan VisualizeEvent
}

func (rv *recordingVisualizer) post(evt VisualizeEvent) {
	select {
	case rv.events <- evt:
	default:
		simplelogger.Warnf("visualize event dropped: %+v", evt)
	}
}

func (rv *recordingVisualizer) AddNode(nodeid NodeId, cfg *NodeConfig) {
	rv.post(VisualizeEvent{Kind: VisualizeAddNode, NodeId: nodeid, X: cfg.X, Y: cfg.Y, RadioRange: cfg.RadioRange})
}

func (rv *recordingVisualizer) Send(srcid NodeId, dstid NodeId, mvinfo *visualize.MsgVisualizeInfo) {
	rv.post(VisualizeEvent{Kind: VisualizeSend, NodeId: srcid, Dst: dstid, Copies: mvinfo.Copies})
}

func (rv *recordingVisualizer) OnNodeDepleted(nodeid NodeId) {
	rv.post(VisualizeEvent{Kind: VisualizeDepleted, NodeId: nodeid})
}

type SmnsTest struct {
	*testing.T

	dir                    string
	stdin                  *os.File
	stdout                 *os.File
	smnsDone               chan struct{}
	pendingOutput          chan string
	pendingVisualizeEvents chan VisualizeEvent
	ctx                    *progctx.ProgCtx
}

func (st *SmnsTest) Go(duration time.Duration) {
	seconds := float64(duration) / float64(time.Second)
	st.sendCommand(fmt.Sprintf("go %f", seconds))
	st.expectDone()
}

func (st *SmnsTest) Join() {
	<-st.smnsDone
}

func (st *SmnsTest) AddNode(x int, y int) NodeId {
	st.sendCommandf("add x %d y %d", x, y)
	return st.expectCommandResultInt()
}

// AddNodeRr adds a node with the given radio range.
func (st *SmnsTest) AddNodeRr(x int, y int, rr int) NodeId {
	st.sendCommandf("add x %d y %d rr %d", x, y, rr)
	return st.expectCommandResultInt()
}

// Send queues one payload at src and returns its sequence number.
func (st *SmnsTest) Send(src NodeId, dst string, size int) int {
	st.sendCommandf("send %d %s ds %d", src, dst, size)
	return st.expectCommandResultInt()
}

func (st *SmnsTest) sendCommand(cmd string) {
	simplelogger.Infof("> %s", cmd)
	_, err := st.stdin.WriteString(cmd + "\n")
	simplelogger.PanicIfError(err)
}

func (st *SmnsTest) sendCommandf(format string, args ...interface{}) {
	st.sendCommand(fmt.Sprintf(format, args...))
}

func (st *SmnsTest) stdoutReadRoutine() {
	scanner := bufio.NewScanner(st.stdout)
	scanner.Split(bufio.ScanLines)

	for scanner.Scan() {
		line := strings.TrimPrefix(scanner.Text(), cli.Prompt)
		simplelogger.Debugf("read stdout: %#v", line)
		st.pendingOutput <- line
	}
}

func (st *SmnsTest) expectDone() {
	st.expectCommandResultLines()
}

func (st *SmnsTest) readCommandResult() (output []string, errLine string) {
	deadline := time.After(time.Second * 30)
	for {
		select {
		case line := <-st.pendingOutput:
			if line == "Done" {
				return
			} else if strings.HasPrefix(line, "Error") {
				errLine = line
				return
			}
			output = append(output, line)
		case <-deadline:
			st.ExpectTrue(false, "command result timeout")
		}
	}
}

func (st *SmnsTest) expectCommandResultLines() []string {
	output, errLine := st.readCommandResult()
	st.ExpectTrue(errLine == "", errLine)
	return output
}

func (st *SmnsTest) expectCommandResultInt() int {
	lines := st.expectCommandResultLines()
	st.ExpectTrue(len(lines) == 1, "expected one line, got %v", lines)

	v, err := strconv.Atoi(lines[0])
	st.ExpectNoError(err)
	return v
}

func (st *SmnsTest) Shutdown() {
	st.ctx.Cancel(nil)
	st.Join()
	_ = os.RemoveAll(st.dir)
	smnsTestSingleton = nil
}

func (st *SmnsTest) SetSpeed(speed float64) {
	st.sendCommandf("speed %f", speed)
	st.expectDone()
}

func (st *SmnsTest) Start(testFunc string) {
	st.Reset()
	simplelogger.Infof("Go test Start(): %v", testFunc)
}

func (st *SmnsTest) Reset() {
	st.SetSpeed(dispatcher.MaxSimulateSpeed)
	st.RemoveAllNodes()
	st.Go(time.Second)
	st.drainVisualizeEvents()
}

func (st *SmnsTest) drainVisualizeEvents() {
	for {
		select {
		case <-st.pendingVisualizeEvents:
		default:
			return
		}
	}
}

func (st *SmnsTest) RemoveAllNodes() {
	nodes := st.ListNodes()
	ids := make([]NodeId, 0, len(nodes))
	for id := range nodes {
		ids = append(ids, id)
	}
	st.DeleteNode(ids...)
}

// ListNodes returns the nodes as shown by the 'nodes' command.
func (st *SmnsTest) ListNodes() map[NodeId]simulation.YamlNodeConfig {
	lines := st.Command("nodes")
	var list []simulation.YamlNodeConfig
	err := yaml.Unmarshal([]byte(strings.Join(lines, "\n")), &list)
	st.ExpectNoError(err)

	nodes := map[NodeId]simulation.YamlNodeConfig{}
	for _, n := range list {
		nodes[NodeId(n.ID)] = n
	}
	return nodes
}

// Counters returns the counters of a node, or of all nodes if id is InvalidNodeId.
func (st *SmnsTest) Counters(id NodeId) simulation.NodeCounters {
	cmd := "counters"
	if id != InvalidNodeId {
		cmd = fmt.Sprintf("counters %d", id)
	}
	lines := st.Command(cmd)
	counters := simulation.NodeCounters{}
	st.ExpectNoError(yaml.Unmarshal([]byte(strings.Join(lines, "\n")), &counters))
	return counters
}

func (st *SmnsTest) ExpectNoError(err error) {
	if err != nil {
		st.Shutdown()
	}
	assert.Nil(st, err, "unexpected error")
	if err != nil {
		st.FailNow()
	}
}

func (st *SmnsTest) ExpectTrue(value bool, msgAndArgs ...interface{}) {
	if !value {
		st.Shutdown()
	}
	assert.True(st, value, msgAndArgs...)

	if !value {
		st.FailNow()
	}
}

func (st *SmnsTest) ExpectEqual(expected interface{}, actual interface{}) {
	st.ExpectTrue(assert.ObjectsAreEqual(expected, actual), "expected %v, got %v", expected, actual)
}

func (st *SmnsTest) DeleteNode(ids ...NodeId) {
	if len(ids) == 0 {
		return
	}

	cmd := "del"
	for _, id := range ids {
		cmd = cmd + fmt.Sprintf(" %d", id)
	}
	st.Command(cmd)
}

func (st *SmnsTest) Command(cmd string) []string {
	st.sendCommand(cmd)
	return st.expectCommandResultLines()
}

func (st *SmnsTest) Commandf(format string, args ...interface{}) []string {
	st.sendCommandf(format, args...)
	return st.expectCommandResultLines()
}

// CommandExpectError runs a command that must fail and returns its error line.
func (st *SmnsTest) CommandExpectError(cmd string) string {
	st.sendCommand(cmd)
	output, errLine := st.readCommandResult()
	st.ExpectTrue(errLine != "", "expected error, got %v", output)
	return errLine
}

// OutputDir returns the directory the instance writes its output files to.
func (st *SmnsTest) OutputDir() string {
	return st.dir
}

func (st *SmnsTest) ExpectVisualizeEvent(match func(evt VisualizeEvent) bool) {
	deadline := time.After(time.Second * 10)
	for {
		select {
		case evt := <-st.pendingVisualizeEvents:
			if match(evt) {
				return
			}
		case <-deadline:
			st.ExpectTrue(false, "ExpectVisualizeEvent timeout")
		}
	}
}

func (st *SmnsTest) ExpectVisualizeAddNode(nodeid NodeId, x int, y int, radioRange int) {
	st.ExpectVisualizeEvent(func(evt VisualizeEvent) bool {
		return evt.Kind == VisualizeAddNode && evt.NodeId == nodeid && evt.X == x && evt.Y == y &&
			evt.RadioRange == radioRange
	})
}

func (st *SmnsTest) ExpectVisualizeSend(src NodeId) {
	st.ExpectVisualizeEvent(func(evt VisualizeEvent) bool {
		return evt.Kind == VisualizeSend && evt.NodeId == src && evt.Copies > 0
	})
}

func Instance(t *testing.T) *SmnsTest {
	if smnsTestSingleton == nil {
		smnsTestSingleton = NewSmnsTest(t)
	}
	smnsTestSingleton.T = t
	return smnsTestSingleton
}

func NewSmnsTest(t *testing.T) *SmnsTest {
	dir, err := os.MkdirTemp("", "smnstest")
	simplelogger.PanicIfError(err)

	st := &SmnsTest{
		T:                      t,
		dir:                    dir,
		smnsDone:               make(chan struct{}),
		pendingOutput:          make(chan string, 1000),
		pendingVisualizeEvents: make(chan VisualizeEvent, 1000),
	}

	stdinPipeFile := filepath.Join(dir, "stdin.namedpipe")
	stdoutPipeFile := filepath.Join(dir, "stdout.namedpipe")

	simplelogger.PanicIfError(syscall.Mkfifo(stdinPipeFile, 0644))
	st.stdin, err = os.OpenFile(stdinPipeFile, os.O_RDWR, os.ModeNamedPipe)
	simplelogger.PanicIfError(err)

	simplelogger.PanicIfError(syscall.Mkfifo(stdoutPipeFile, 0644))
	st.stdout, err = os.OpenFile(stdoutPipeFile, os.O_RDWR, os.ModeNamedPipe)
	simplelogger.PanicIfError(err)

	st.ctx = progctx.New(context.Background())
	argv := []string{"-log", "warn", "-autogo=false", "-seed", "1", "-output-dir", dir, "-stats=false"}

	go func() {
		defer func() {
			simplelogger.Infof("SMNS exited.")
			close(st.smnsDone)
		}()

		err := smns_main.Main(st.ctx, argv, func(ctx *progctx.ProgCtx, args *smns_main.MainArgs) visualize.Visualizer {
			return &recordingVisualizer{
				Visualizer: visualize.NewNopVisualizer(),
				events:     st.pendingVisualizeEvents,
			}
		}, &cli.CliOptions{
			EchoInput: false,
			Stdin:     st.stdin,
			Stdout:    st.stdout,
		})
		if err != nil {
			simplelogger.Errorf("SMNS main: %v", err)
		}
	}()

	<-cli.Cli.Started

	go st.stdoutReadRoutine()
	return st
}
