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

// Package logger is the process-wide leveled logger of SMNS. Global messages go through zap;
// per-node messages go through a NodeLogger, which filters by the node's watch level.
package logger

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level is the log-level for logging what happens in the simulation as a whole, or to watch an
// individual node's MAC.
type Level int8

const (
	MicroLevel   Level = 7
	TraceLevel   Level = 6
	DebugLevel   Level = 5
	InfoLevel    Level = 4
	NoteLevel    Level = 3
	WarnLevel    Level = 2
	ErrorLevel   Level = 1
	PanicLevel   Level = 0
	FatalLevel   Level = -1
	OffLevel     Level = -2
	MinLevel           = OffLevel
	DefaultLevel       = InfoLevel
)

type logEntry struct {
	Level Level
	Msg   string
}

// StdoutCallback is notified after log output was written to the terminal, so that an
// interactive prompt can redraw itself.
type StdoutCallback interface {
	OnStdout()
}

const clearLineSeq = "\033[2K\r"

var (
	logMutex     sync.Mutex
	zaplogger    *zap.Logger
	outputPaths  = []string{"stderr"}
	currentLevel = DefaultLevel
	toTerminal   bool
	cbStdout     StdoutCallback
	simTimeFunc  func() uint64
)

func init() {
	if fi, err := os.Stdout.Stat(); err == nil && fi.Mode()&os.ModeCharDevice != 0 {
		toTerminal = true
	}
	rebuild()
}

func (lv Level) zapLevel() zapcore.Level {
	switch {
	case lv >= DebugLevel:
		return zapcore.DebugLevel
	case lv >= NoteLevel:
		return zapcore.InfoLevel
	case lv == WarnLevel:
		return zapcore.WarnLevel
	case lv == ErrorLevel:
		return zapcore.ErrorLevel
	case lv == PanicLevel:
		return zapcore.PanicLevel
	default:
		return zapcore.FatalLevel
	}
}

// rebuild recreates the zap logger from the current outputs and time source. Caller holds no lock.
func rebuild() {
	logMutex.Lock()
	defer logMutex.Unlock()

	enc := zapcore.EncoderConfig{
		MessageKey:  "message",
		LevelKey:    "level",
		EncodeLevel: zapcore.LowercaseLevelEncoder,
	}
	if tf := simTimeFunc; tf != nil {
		enc.TimeKey = "t"
		enc.EncodeTime = func(_ time.Time, pae zapcore.PrimitiveArrayEncoder) {
			pae.AppendString(fmt.Sprintf("%11d", tf()))
		}
	}
	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapcore.DebugLevel),
		Encoding:         "console",
		EncoderConfig:    enc,
		OutputPaths:      outputPaths,
		ErrorOutputPaths: []string{"stderr"},
	}
	l, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	if zaplogger != nil {
		_ = zaplogger.Sync()
	}
	zaplogger = l
}

// SetLevel sets the global log level.
func SetLevel(lv Level) {
	currentLevel = lv
}

// GetLevel gets the global log level.
func GetLevel() Level {
	return currentLevel
}

// SetStdoutCallback sets a callback, that the logger will call when new log content was written to stdout/stderr.
func SetStdoutCallback(cb StdoutCallback) {
	logMutex.Lock()
	defer logMutex.Unlock()
	cbStdout = cb
}

// SetSimTimeSource makes every global log line carry the simulation time (us) returned by f.
// Passing nil removes the sim time from log lines.
func SetSimTimeSource(f func() uint64) {
	logMutex.Lock()
	simTimeFunc = f
	logMutex.Unlock()
	rebuild()
}

// SetOutput sets the output writers, e.g. logger.SetOutput([]string{"stderr", "smns.log"}).
func SetOutput(outputs []string) {
	logMutex.Lock()
	outputPaths = outputs
	logMutex.Unlock()
	rebuild()
}

func formatMessage(format string, args []interface{}) string {
	switch {
	case len(args) == 0:
		return format
	case format != "":
		return fmt.Sprintf(format, args...)
	case len(args) == 1:
		if s, ok := args[0].(string); ok {
			return s
		}
	}
	return fmt.Sprint(args...)
}

// Log outputs the log message/object at specified level using logger.
func Log(level Level, msg interface{}) {
	Logf(level, "", []interface{}{msg})
}

// Logf outputs formatted log message at specified level using logger. Panic and fatal
// messages are never filtered.
func Logf(level Level, format string, args []interface{}) {
	if level > currentLevel && level > PanicLevel {
		return
	}
	write(level, formatMessage(format, args))
}

func write(level Level, msg string) {
	logMutex.Lock()
	l, cb := zaplogger, cbStdout
	if toTerminal {
		_, _ = fmt.Fprint(os.Stdout, clearLineSeq)
	}
	logMutex.Unlock()

	l.Log(level.zapLevel(), msg)
	if toTerminal && cb != nil {
		cb.OnStdout()
	}
}

// Println prints a message for the user at the current console/CLI, to stdout, without logging fields.
func Println(msg string) {
	if toTerminal {
		_, _ = fmt.Fprint(os.Stdout, clearLineSeq)
	}
	_, _ = fmt.Fprintln(os.Stdout, msg)
	if toTerminal && cbStdout != nil {
		cbStdout.OnStdout()
	}
}

func Tracef(format string, args ...interface{}) {
	Logf(TraceLevel, format, args)
}

func Debugf(format string, args ...interface{}) {
	Logf(DebugLevel, format, args)
}

func Infof(format string, args ...interface{}) {
	Logf(InfoLevel, format, args)
}

func Notef(format string, args ...interface{}) {
	Logf(NoteLevel, format, args)
}

func Warnf(format string, args ...interface{}) {
	Logf(WarnLevel, format, args)
}

func Errorf(format string, args ...interface{}) {
	Logf(ErrorLevel, format, args)
}

// Panicf logs at panic level; zap panics after writing the entry.
func Panicf(format string, args ...interface{}) {
	Logf(PanicLevel, format, args)
}

func Fatalf(format string, args ...interface{}) {
	Logf(FatalLevel, format, args)
}

func Error(args ...interface{}) {
	Logf(ErrorLevel, "", args)
}

func Panic(args ...interface{}) {
	Logf(PanicLevel, "", args)
}

func PanicIfError(err error, args ...interface{}) {
	if err == nil {
		return
	}
	if len(args) == 0 {
		args = []interface{}{err}
	}
	Panic(args...)
}

func FatalIfError(err error, args ...interface{}) {
	if err == nil {
		return
	}
	if len(args) == 0 {
		args = []interface{}{err}
	}
	Fatalf("%s", formatMessage("", args))
}

// assertLogger turns failed testify assertions into panics.
type assertLogger struct{}

func (assertLogger) Errorf(format string, args ...interface{}) {
	Panicf(format, args...)
}

func AssertEqual(expected, actual interface{}, msgAndArgs ...interface{}) bool {
	return assert.Equal(assertLogger{}, expected, actual, msgAndArgs...)
}

func AssertNil(object interface{}, msgAndArgs ...interface{}) bool {
	return assert.Nil(assertLogger{}, object, msgAndArgs...)
}

func AssertNotNil(object interface{}, msgAndArgs ...interface{}) bool {
	return assert.NotNil(assertLogger{}, object, msgAndArgs...)
}

func AssertTrue(value bool, msgAndArgs ...interface{}) bool {
	return assert.True(assertLogger{}, value, msgAndArgs...)
}

func AssertFalse(value bool, msgAndArgs ...interface{}) bool {
	return assert.False(assertLogger{}, value, msgAndArgs...)
}

func AssertTruef(value bool, msg string, args ...interface{}) bool {
	return assert.Truef(assertLogger{}, value, msg, args...)
}
