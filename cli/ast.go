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

package cli

import (
	"strconv"

	"github.com/alecthomas/participle"
)

// noinspection GoStructTag
type Command struct {
	Add      *AddCmd      `  @@` //nolint
	Counters *CountersCmd `| @@` //nolint
	Del      *DelCmd      `| @@` //nolint
	Energy   *EnergyCmd   `| @@` //nolint
	Exit     *ExitCmd     `| @@` //nolint
	Go       *GoCmd       `| @@` //nolint
	Help     *HelpCmd     `| @@` //nolint
	Kpi      *KpiCmd      `| @@` //nolint
	LogLevel *LogLevelCmd `| @@` //nolint
	Move     *MoveCmd     `| @@` //nolint
	Node     *NodeCmd     `| @@` //nolint
	Nodes    *NodesCmd    `| @@` //nolint
	Radio    *RadioCmd    `| @@` //nolint
	Send     *SendCmd     `| @@` //nolint
	Speed    *SpeedCmd    `| @@` //nolint
	Time     *TimeCmd     `| @@` //nolint
	Title    *TitleCmd    `| @@` //nolint
	Traffic  *TrafficCmd  `| @@` //nolint
	Unwatch  *UnwatchCmd  `| @@` //nolint
	Watch    *WatchCmd    `| @@` //nolint
}

// noinspection GoStructTag
type NodeSelector struct {
	Id      int `@Int`         //nolint
	IdRange int `[ "-" @Int ]` //nolint
}

func (ns *NodeSelector) String() string {
	if ns.IdRange > 0 {
		return strconv.Itoa(ns.Id) + "-" + strconv.Itoa(ns.IdRange)
	}
	return strconv.Itoa(ns.Id)
}

// noinspection GoStructTag
type DstSelector struct {
	Broadcast *string `  @("broadcast"|"bc")` //nolint
	Id        *int    `| @Int`                //nolint
}

func (ds *DstSelector) String() string {
	if ds.Id != nil {
		return strconv.Itoa(*ds.Id)
	}
	return "broadcast"
}

// noinspection GoStructTag
type DataSizeFlag struct {
	Val int `("datasize"|"ds") @Int` //nolint
}

// noinspection GoStructTag
type IntervalFlag struct {
	Val string `("interval"|"itv") @((Int|Float)["h"|"us"|"m"|"ms"|"s"])` //nolint
}

// noinspection GoStructTag
type JitterFlag struct {
	Val string `"jitter" @((Int|Float)["h"|"us"|"m"|"ms"|"s"])` //nolint
}

// noinspection GoStructTag
type StartFlag struct {
	Val string `"start" @((Int|Float)["h"|"us"|"m"|"ms"|"s"])` //nolint
}

// noinspection GoStructTag
type CountFlag struct {
	Val int `("count" | "c") @Int` //nolint
}

// noinspection GoStructTag
type DstFlag struct {
	Dst DstSelector `"dst" @@` //nolint
}

// noinspection GoStructTag
type AddCmd struct {
	Cmd        struct{}        `"add"`                //nolint
	X          *int            `( "x" (@Int|@Float) ` //nolint
	Y          *int            `| "y" (@Int|@Float) ` //nolint
	Id         *AddNodeId      `| @@`                 //nolint
	RadioRange *RadioRangeFlag `| @@`                 //nolint
	Battery    *BatteryFlag    `| @@`                 //nolint
	Traffic    *TrafficFlag    `| @@ )*`              //nolint
}

// noinspection GoStructTag
type AddNodeId struct {
	Val int `"id" @Int` //nolint
}

// noinspection GoStructTag
type RadioRangeFlag struct {
	Val int `"rr" @Int` //nolint
}

// noinspection GoStructTag
type BatteryFlag struct {
	Val float64 `"battery" (@Int|@Float)` //nolint
}

// noinspection GoStructTag
type TrafficFlag struct {
	Dummy struct{} `"traffic"` //nolint
}

// noinspection GoStructTag
type DelCmd struct {
	Cmd   struct{}       `"del"`   //nolint
	Nodes []NodeSelector `( @@ )+` //nolint
}

// noinspection GoStructTag
type SendCmd struct {
	Cmd      struct{}      `"send"`  //nolint
	Src      NodeSelector  `@@`      //nolint
	Dst      DstSelector   `@@`      //nolint
	DataSize *DataSizeFlag `[ @@ ]`  //nolint
	Count    *CountFlag    `[ @@ ]`  //nolint
}

// noinspection GoStructTag
type TrafficCmd struct {
	Cmd      struct{}      `"traffic"` //nolint
	Node     NodeSelector  `@@`        //nolint
	Stop     *StopFlag     `( @@`      //nolint
	Interval *IntervalFlag `| @@`      //nolint
	Jitter   *JitterFlag   `| @@`      //nolint
	Start    *StartFlag    `| @@`      //nolint
	DataSize *DataSizeFlag `| @@`      //nolint
	Dst      *DstFlag      `| @@`      //nolint
	Count    *CountFlag    `| @@ )*`   //nolint
}

// noinspection GoStructTag
type StopFlag struct {
	Dummy struct{} `"stop"` //nolint
}

// noinspection GoStructTag
type GoCmd struct {
	Cmd   struct{}  `"go"`                                     //nolint
	Time  string    `( @((Int|Float)["h"|"us"|"m"|"ms"|"s"]) ` //nolint
	Ever  *EverFlag `| @@ )`                                   //nolint
	Speed *float64  `[ "speed" (@Int|@Float) ]`                //nolint
}

// noinspection GoStructTag
type EverFlag struct {
	Dummy struct{} `"ever"` //nolint
}

// noinspection GoStructTag
type SpeedCmd struct {
	Cmd   struct{}      `"speed"`               //nolint
	Max   *MaxSpeedFlag `( @@`                  //nolint
	Speed *float64      `| [ (@Int|@Float) ] )` //nolint
}

// noinspection MaxSpeedFlag
type MaxSpeedFlag struct {
	Dummy struct{} `( "max" | "inf")` //nolint
}

// noinspection GoStructTag
type TimeCmd struct {
	Cmd struct{} `"time"` //nolint
}

// noinspection GoStructTag
type TitleCmd struct {
	Cmd   struct{} `"title"` //nolint
	Title string   `@String` //nolint
}

// noinspection GoStructTag
type NodesCmd struct {
	Cmd struct{} `"nodes"` //nolint
}

// noinspection GoStructTag
type NodeCmd struct {
	Cmd  struct{}     `"node"` //nolint
	Node NodeSelector `@@`     //nolint
}

// noinspection GoStructTag
type CountersCmd struct {
	Cmd  struct{}      `"counters"` //nolint
	Node *NodeSelector `[ @@ ]`     //nolint
}

// noinspection GoStructTag
type KpiCmd struct {
	Cmd       struct{} `"kpi"`                        //nolint
	Operation string   `[ @("start"|"stop"|"save") ]` //nolint
	Filename  string   `[ @String ]`                  //nolint
}

// noinspection GoStructTag
type EnergyCmd struct {
	Cmd  struct{}  `"energy"` //nolint
	Save *SaveFlag `( @@ )?`  //nolint
	Name string    `@String?` //nolint
}

// noinspection GoStructTag
type SaveFlag struct {
	Dummy struct{} `"save"` //nolint
}

// noinspection GoStructTag
type MoveCmd struct {
	Cmd    struct{}     `"move"` //nolint
	Target NodeSelector `@@`     //nolint
	X      int          `@Int`   //nolint
	Y      int          `@Int`   //nolint
}

// noinspection GoStructTag
type RadioCmd struct {
	Cmd      struct{}        `"radio"` //nolint
	Nodes    []NodeSelector  `( @@ )+` //nolint
	On       *string         `( @"on"` //nolint
	Off      *string         `| @"off"` //nolint
	FailTime *FailTimeParams `| @@ )`  //nolint
}

// noinspection GoStructTag
type FailTimeParams struct {
	Dummy        struct{} `"ft"`          //nolint
	FailDuration float64  `(@Int|@Float)` //nolint
	FailInterval float64  `(@Int|@Float)` //nolint
}

type LogLevelCmd struct {
	Cmd   struct{} `"log"`                                                                 //nolint
	Level string   `[@( "micro"|"trace"|"debug"|"info"|"note"|"warn"|"error"|"off" )]` //nolint
}

type WatchCmd struct {
	Cmd     struct{}       `"watch"`                                                       //nolint
	Default string         `[ @("default"|"def") ]`                                        //nolint
	All     string         `[ @"all" ]`                                                    //nolint
	Nodes   []NodeSelector `[ ( @@ )+ ]`                                                   //nolint
	Level   string         `[@( "trace"|"debug"|"info"|"note"|"warn"|"error"|"off" )]` //nolint
}

// noinspection GoStructTag
type UnwatchCmd struct {
	Cmd   struct{}       `"unwatch"`                 //nolint
	All   string         `( @"all"`                  //nolint
	Nodes []NodeSelector `| ( @@ )+ )`               //nolint
}

// noinspection GoStructTag
type HelpCmd struct {
	Cmd       struct{} `"help"`       //nolint
	HelpTopic string   `[ (@Ident) ]` //nolint
}

// noinspection GoStructTag
type ExitCmd struct {
	Cmd struct{} `"exit"` //nolint
}

var (
	commandParser = participle.MustBuild(&Command{})
)

// unquote removes the quotes of a captured string literal, if still present.
func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		if u, err := strconv.Unquote(s); err == nil {
			return u
		}
	}
	return s
}

func parseBytes(b []byte, cmd *Command) error {
	err := commandParser.ParseBytes(b, cmd)
	return err
}
