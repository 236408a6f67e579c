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

package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	. "github.com/speckmac/smns/types"
)

// maxPendingEntries bounds the entries a node buffers between two flushes.
const maxPendingEntries = 1000

// NodeLogger is a node-specific log object. Entries are buffered and flushed with the simulation time
// of the flush, to a per-node log file and to the global log, each with its own level.
type NodeLogger struct {
	Id NodeId

	mu           sync.Mutex
	fileLevel    Level
	displayLevel Level
	file         *os.File
	fileName     string
	pending      []logEntry
	lastTs       uint64
}

var (
	nodeLogs   = map[NodeId]*NodeLogger{}
	nodeLogsMu sync.Mutex
)

func lookupNodeLogger(id NodeId) *NodeLogger {
	nodeLogsMu.Lock()
	defer nodeLogsMu.Unlock()
	return nodeLogs[id]
}

// GetNodeLogger returns the NodeLogger of the node, creating it on first use. The node log
// file, under outputDir, is opened when cfg.NodeLogFile is set.
func GetNodeLogger(outputDir string, cfg *NodeConfig) *NodeLogger {
	nodeLogsMu.Lock()
	nl, ok := nodeLogs[cfg.ID]
	if !ok {
		nl = &NodeLogger{
			Id:           cfg.ID,
			fileLevel:    DebugLevel,
			displayLevel: WarnLevel,
			fileName:     filepath.Join(outputDir, fmt.Sprintf("node_%d.log", cfg.ID)),
		}
		nodeLogs[cfg.ID] = nl
	}
	nodeLogsMu.Unlock()

	nl.mu.Lock()
	defer nl.mu.Unlock()
	if cfg.NodeLogFile && nl.file == nil {
		nl.openFile()
	} else if !cfg.NodeLogFile {
		nl.closeFile()
	}
	return nl
}

func (nl *NodeLogger) openFile() {
	f, err := os.OpenFile(nl.fileName, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0664)
	if err != nil {
		Errorf("opening node log file %s failed: %+v", nl.fileName, err)
		return
	}
	nl.file = f
	nl.writeFile(fmt.Sprintf("#\n# SpeckMAC node log for %s created %s\n# SimTimeUs Message",
		GetNodeName(nl.Id), time.Now().Format(time.RFC3339)))
}

func (nl *NodeLogger) closeFile() {
	if nl.file != nil {
		_ = nl.file.Close()
		nl.file = nil
	}
}

func (nl *NodeLogger) writeFile(line string) {
	if _, err := nl.file.WriteString(line + "\n"); err != nil {
		Errorf("writing node log file %s failed, closing it: %v", nl.fileName, err)
		nl.closeFile()
	}
}

// NodeLogf logs a message for the node. Messages for nodes without a NodeLogger go to the global log.
func NodeLogf(nodeid NodeId, level Level, format string, args ...interface{}) {
	nl := lookupNodeLogger(nodeid)
	if nl == nil {
		Logf(level, GetNodeName(nodeid)+format, args)
		return
	}
	nl.logf(level, format, args)
}

func (nl *NodeLogger) logf(level Level, format string, args []interface{}) {
	nl.mu.Lock()
	if level > nl.fileLevel && level > nl.displayLevel && level > PanicLevel {
		nl.mu.Unlock()
		return
	}
	nl.pending = append(nl.pending, logEntry{Level: level, Msg: formatMessage(format, args)})
	flush := len(nl.pending) >= maxPendingEntries || level <= PanicLevel
	ts := nl.lastTs
	nl.mu.Unlock()

	if flush {
		nl.DisplayPendingLogEntries(ts)
	}
}

func (nl *NodeLogger) SetFileLevel(level Level) {
	nl.mu.Lock()
	nl.fileLevel = level
	nl.mu.Unlock()
}

func (nl *NodeLogger) SetDisplayLevel(level Level) {
	nl.mu.Lock()
	nl.displayLevel = level
	nl.mu.Unlock()
}

func (nl *NodeLogger) DisplayLevel() Level {
	nl.mu.Lock()
	defer nl.mu.Unlock()
	return nl.displayLevel
}

func (nl *NodeLogger) Tracef(format string, args ...interface{}) {
	nl.logf(TraceLevel, format, args)
}

func (nl *NodeLogger) Debugf(format string, args ...interface{}) {
	nl.logf(DebugLevel, format, args)
}

func (nl *NodeLogger) Infof(format string, args ...interface{}) {
	nl.logf(InfoLevel, format, args)
}

func (nl *NodeLogger) Warnf(format string, args ...interface{}) {
	nl.logf(WarnLevel, format, args)
}

func (nl *NodeLogger) Errorf(format string, args ...interface{}) {
	nl.logf(ErrorLevel, format, args)
}

// Panicf flushes the node's entries and panics.
func (nl *NodeLogger) Panicf(format string, args ...interface{}) {
	nl.logf(PanicLevel, format, args)
}

// DisplayPendingLogEntries writes out the buffered entries, stamped with simulation time ts.
func (nl *NodeLogger) DisplayPendingLogEntries(ts uint64) {
	nl.mu.Lock()
	nl.lastTs = ts
	entries := nl.pending
	nl.pending = nil
	prefix := fmt.Sprintf("%11d ", ts)
	var display []logEntry
	for _, e := range entries {
		if nl.file != nil && e.Level <= nl.fileLevel {
			nl.writeFile(prefix + e.Msg)
		}
		if e.Level <= nl.displayLevel || e.Level <= PanicLevel {
			display = append(display, e)
		}
	}
	nl.mu.Unlock()

	// outside the lock: a panic-level entry makes zap panic
	name := GetNodeName(nl.Id)
	for _, e := range display {
		write(e.Level, name+prefix+e.Msg)
	}
}

// IsFileEnabled returns true if logging to file is currently enabled, false if not.
func (nl *NodeLogger) IsFileEnabled() bool {
	nl.mu.Lock()
	defer nl.mu.Unlock()
	return nl.file != nil
}

// Close flushes pending entries, closes the node log file and forgets the node.
func (nl *NodeLogger) Close() {
	nl.mu.Lock()
	ts := nl.lastTs
	nl.mu.Unlock()
	nl.DisplayPendingLogEntries(ts)

	nl.mu.Lock()
	nl.closeFile()
	nl.mu.Unlock()

	nodeLogsMu.Lock()
	delete(nodeLogs, nl.Id)
	nodeLogsMu.Unlock()
}
