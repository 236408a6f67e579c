// Copyright (c) 2020-2023, The OTNS Authors.
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

package cli

import (
	"errors"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/chzyer/readline"

	"github.com/speckmac/smns/logger"
)

type CliHandler interface {
	HandleCommand(cmd string, output io.Writer) error
	GetPrompt() string
}

// completingHandler is a CliHandler that can list its command names for tab completion.
type completingHandler interface {
	CliHandler
	CommandNames() []string
}

type CliOptions struct {
	EchoInput   bool
	HistoryFile string
	Stdin       *os.File
	Stdout      *os.File
}

func DefaultCliOptions() *CliOptions {
	return &CliOptions{}
}

func (opts *CliOptions) withDefaults() *CliOptions {
	o := DefaultCliOptions()
	if opts != nil {
		*o = *opts
	}
	if o.Stdin == nil {
		o.Stdin = os.Stdin
	}
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	return o
}

// CliInstance is the singleton console. It reads command lines with readline and hands them to a
// CliHandler until EOF, Ctrl-C on an empty line, or a handler error.
type CliInstance struct {
	Started chan struct{}
	Options *CliOptions

	startOnce sync.Once
	rl        *readline.Instance
	closed    chan struct{}
}

var Cli = newCliInstance()

func newCliInstance() *CliInstance {
	return &CliInstance{
		Started: make(chan struct{}),
		closed:  make(chan struct{}),
	}
}

func (cli *CliInstance) markStarted() {
	cli.startOnce.Do(func() { close(cli.Started) })
}

func (cli *CliInstance) RestorePrompt() {
	if cli.rl != nil {
		cli.rl.Refresh()
	}
}

// OnStdout redraws the prompt after log output was written to the console.
func (cli *CliInstance) OnStdout() {
	cli.RestorePrompt()
}

// Stop unblocks a running Run and waits for it to return.
func (cli *CliInstance) Stop() {
	<-cli.Started
	if cli.Options == nil {
		return
	}
	// Closing the readline instance here can deadlock, so feed it an interrupt and close its input.
	_, _ = cli.Options.Stdin.WriteString("\003\n")
	_ = cli.Options.Stdin.Close()
	logger.Tracef("waiting for CLI to stop")
	<-cli.closed
}

// saveTermState records the terminal state of f, if it is a terminal, and returns a function restoring it.
func saveTermState(f *os.File) (func(), error) {
	fd := int(f.Fd())
	if !readline.IsTerminal(fd) {
		return func() {}, nil
	}
	state, err := readline.GetState(fd)
	if err != nil {
		return nil, err
	}
	return func() { _ = readline.Restore(fd, state) }, nil
}

func newReadline(handler CliHandler, options *CliOptions) (*readline.Instance, error) {
	cfg := &readline.Config{
		Prompt:            handler.GetPrompt(),
		HistoryFile:       options.HistoryFile,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
		Stdin:             options.Stdin,
		Stdout:            options.Stdout,
		FuncFilterInputRune: func(r rune) (rune, bool) {
			return r, r != readline.CharCtrlZ
		},
	}
	if ch, ok := handler.(completingHandler); ok {
		items := make([]readline.PrefixCompleterInterface, 0, len(ch.CommandNames()))
		for _, name := range ch.CommandNames() {
			items = append(items, readline.PcItem(name))
		}
		cfg.AutoComplete = readline.NewPrefixCompleter(items...)
	}
	return readline.NewEx(cfg)
}

// Run reads and executes commands until the console is closed. Started is closed once input is
// accepted, or when setup fails.
func (cli *CliInstance) Run(handler CliHandler, options *CliOptions) error {
	defer close(cli.closed)
	defer cli.markStarted()
	defer logger.Debugf("CLI exit")

	options = options.withDefaults()
	cli.Options = options

	for _, f := range []*os.File{options.Stdin, options.Stdout} {
		restore, err := saveTermState(f)
		if err != nil {
			return err
		}
		defer restore()
	}

	rl, err := newReadline(handler, options)
	if err != nil {
		return err
	}
	defer func() {
		_ = rl.Close()
	}()
	cli.rl = rl
	cli.markStarted()

	for {
		rl.SetPrompt(handler.GetPrompt())
		line, err := rl.Readline()
		switch {
		case len(line) > 0 && line[0] == readline.CharInterrupt:
			return nil
		case errors.Is(err, readline.ErrInterrupt):
			if len(line) == 0 {
				return nil
			}
			// Ctrl-C while editing discards the line only
			continue
		case err == io.EOF:
			return nil
		case err != nil:
			return err
		}

		if options.EchoInput {
			if _, err = options.Stdout.WriteString(line + "\n"); err != nil {
				return err
			}
		}

		cmd := strings.TrimSpace(line)
		if cmd == "" {
			continue
		}
		err = handler.HandleCommand(cmd, rl.Stdout())
		_ = options.Stdout.Sync()
		if err != nil {
			return err
		}
	}
}
