// Copyright (c) 2023, The OTNS Authors.
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
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/mitchellh/go-wordwrap"
	"golang.org/x/term"
)

//go:embed README.md
var cliHelpFile string

const (
	defaultTermWidth = 80
	helpNameWidth    = 12
)

var (
	topicHeaderPattern = regexp.MustCompile(`^###\s+(\S+)`)
	mdLinkPattern      = regexp.MustCompile(`\(#[a-z-]+\)`)
)

// helpTopic is one '### <command>' section of the embedded README.
type helpTopic struct {
	summary string
	lines   []string
}

type Help struct {
	topics map[string]*helpTopic
	names  []string
}

func newHelp() Help {
	h := Help{topics: map[string]*helpTopic{}}
	h.parse(cliHelpFile)
	return h
}

func termWidth() uint {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return defaultTermWidth
	}
	w, _, err := term.GetSize(fd)
	if err != nil || w <= helpNameWidth {
		return defaultTermWidth
	}
	return uint(w)
}

func (help *Help) hasCommand(command string) bool {
	_, ok := help.topics[command]
	return ok
}

// commandNames returns all documented commands in alphabetical order.
func (help *Help) commandNames() []string {
	return help.names
}

func (help *Help) outputGeneralHelp() string {
	width := termWidth()
	var sb strings.Builder
	pad := strings.Repeat(" ", helpNameWidth)
	for _, name := range help.names {
		summary := wordwrap.WrapString(help.topics[name].summary, width-helpNameWidth)
		for i, line := range strings.Split(summary, "\n") {
			if i == 0 {
				sb.WriteString(fmt.Sprintf("%-*s%s\n", helpNameWidth, name, line))
			} else {
				sb.WriteString(pad + line + "\n")
			}
		}
	}
	sb.WriteString(wordwrap.WrapString("\nFor detailed help per command, use: 'help <command>'\n", width))
	return sb.String()
}

func (help *Help) outputCommandHelp(command string) string {
	topic, ok := help.topics[command]
	if !ok {
		return command + "\n  (Non-existent command.)\n"
	}
	width := termWidth() - 2
	var sb strings.Builder
	sb.WriteString(command + "\n")
	for _, line := range topic.lines {
		if strings.HasPrefix(line, "    ") {
			// definitions and examples are not wrapped
			sb.WriteString("  " + line + "\n")
			continue
		}
		for _, wl := range strings.Split(wordwrap.WrapString(line, width), "\n") {
			sb.WriteString("  " + wl + "\n")
		}
	}
	return sb.String()
}

func (help *Help) parse(md string) {
	var cur *helpTopic
	inBlock := false
	for _, raw := range strings.Split(md, "\n") {
		line := strings.TrimRight(raw, " \t")
		if m := topicHeaderPattern.FindStringSubmatch(line); m != nil {
			cur = &helpTopic{}
			help.topics[m[1]] = cur
			help.names = append(help.names, m[1])
			inBlock = false
			continue
		}
		if cur == nil {
			continue
		}

		switch {
		case line == "```shell":
			cur.lines = append(cur.lines, "", "Definition:")
			inBlock = true
		case line == "```bash":
			cur.lines = append(cur.lines, "", "Example:")
			inBlock = true
		case line == "```":
			inBlock = false
		case inBlock:
			cur.lines = append(cur.lines, "    "+line)
		case strings.TrimSpace(line) == "":
		default:
			text := markdownUnquote(strings.TrimSpace(line))
			if cur.summary == "" {
				cur.summary = firstSentence(text)
			}
			cur.lines = append(cur.lines, text)
		}
	}
	sort.Strings(help.names)
}

func firstSentence(s string) string {
	if idx := strings.Index(s, ". "); idx > 0 {
		return s[:idx+1]
	}
	return s
}

func markdownUnquote(md string) string {
	md = strings.ReplaceAll(md, "\\", "")
	md = strings.ReplaceAll(md, "`", "")
	return mdLinkPattern.ReplaceAllString(md, "")
}
