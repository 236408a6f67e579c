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
	"strings"

	"github.com/pkg/errors"
)

const (
	OffLevelString     = "off"
	NoneLevelString    = "none"
	DefaultLevelString = "default"
)

// levelNames holds the canonical name of each level, as printed by the CLI.
var levelNames = map[Level]string{
	MicroLevel: "micro",
	TraceLevel: "trace",
	DebugLevel: "debug",
	InfoLevel:  "info",
	NoteLevel:  "note",
	WarnLevel:  "warn",
	ErrorLevel: "error",
	OffLevel:   OffLevelString,
}

// levelAliases are accepted by ParseLevelString in addition to the canonical names.
var levelAliases = map[string]Level{
	"t":        TraceLevel,
	"d":        DebugLevel,
	"i":        InfoLevel,
	"n":        NoteLevel,
	"w":        WarnLevel,
	"warning":  WarnLevel,
	"e":        ErrorLevel,
	"err":      ErrorLevel,
	"c":        ErrorLevel,
	"crit":     ErrorLevel,
	"critical": ErrorLevel,
	"none":     OffLevel,
}

// ParseLevelString parses a level name or alias, case-insensitive. "default" and "def" give DefaultLevel.
func ParseLevelString(level string) (Level, error) {
	s := strings.ToLower(strings.TrimSpace(level))
	if s == DefaultLevelString || s == "def" {
		return DefaultLevel, nil
	}
	for lv, name := range levelNames {
		if name == s {
			return lv, nil
		}
	}
	if lv, ok := levelAliases[s]; ok {
		return lv, nil
	}
	return DefaultLevel, errors.Errorf("invalid log level string: %s", level)
}

func GetLevelString(level Level) string {
	if name, ok := levelNames[level]; ok {
		return name
	}
	return "unknown"
}
