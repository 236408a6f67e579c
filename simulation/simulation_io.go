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
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/speckmac/smns/dispatcher"
	"github.com/speckmac/smns/energy"
	"github.com/speckmac/smns/logger"
	"github.com/speckmac/smns/mac"
	"github.com/speckmac/smns/radiomodel"
	. "github.com/speckmac/smns/types"
)

// YamlNetworkConfig holds the defaults applied to all nodes of a scenario.
type YamlNetworkConfig struct {
	Position   [2]int   `yaml:"pos,flow"`
	RadioRange *int     `yaml:"radio-range,omitempty"`
	BatteryJ   *float64 `yaml:"battery,omitempty"`
	BaseId     *int     `yaml:"base-id,omitempty"`
}

type YamlNodeConfig struct {
	ID         int            `yaml:"id"`
	Position   [2]int         `yaml:"pos,flow"`
	RadioRange *int           `yaml:"radio-range,omitempty"`
	BatteryJ   *float64       `yaml:"battery,omitempty"`
	Traffic    *bool          `yaml:"traffic,omitempty"`
	TrafficCfg *TrafficConfig `yaml:"traffic-config,omitempty"`
}

// YamlScenario is the content of a scenario file. Sections left out keep their defaults.
type YamlScenario struct {
	Title   string             `yaml:"title,omitempty"`
	Mac     *mac.Config        `yaml:"mac"`
	Radio   *radiomodel.Params `yaml:"radio"`
	Energy  *energy.Config     `yaml:"energy"`
	Traffic *TrafficConfig     `yaml:"traffic"`
	Network YamlNetworkConfig  `yaml:"network"`
	Nodes   []YamlNodeConfig   `yaml:"nodes"`
	Script  []string           `yaml:"script,omitempty"` // CLI commands run after the nodes are added
}

func defaultScenario() *YamlScenario {
	traffic := DefaultTrafficConfig()
	return &YamlScenario{
		Mac:     mac.DefaultConfig(),
		Radio:   radiomodel.DefaultParams(),
		Energy:  energy.DefaultConfig(),
		Traffic: &traffic,
	}
}

// ParseScenario parses a YAML scenario and validates all of its sections.
func ParseScenario(data []byte) (*YamlScenario, error) {
	sc := defaultScenario()
	if err := yaml.Unmarshal(data, sc); err != nil {
		return nil, errors.Wrap(err, "scenario")
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return sc, nil
}

func LoadScenarioFile(fn string) (*YamlScenario, error) {
	data, err := os.ReadFile(fn)
	if err != nil {
		return nil, errors.Wrapf(err, "reading scenario %s", fn)
	}
	return ParseScenario(data)
}

func (sc *YamlScenario) Validate() error {
	if err := sc.Traffic.Validate(); err != nil {
		return errors.Wrap(err, "traffic")
	}
	dcfg := dispatcher.DefaultConfig()
	sc.ApplyConfig(dcfg, nil)
	if err := dcfg.Validate(); err != nil {
		return err
	}
	seen := map[NodeId]bool{}
	for _, n := range sc.Nodes {
		if n.ID <= 0 {
			continue // auto-assigned
		}
		if seen[n.ID] {
			return errors.Errorf("scenario node %d defined twice", n.ID)
		}
		seen[n.ID] = true
		if n.TrafficCfg != nil {
			if err := n.TrafficCfg.Validate(); err != nil {
				return errors.Wrapf(err, "node %d traffic", n.ID)
			}
		}
	}
	return nil
}

// ApplyConfig copies the scenario's mac, radio and energy sections into the dispatcher config, and
// the traffic defaults into the simulation config if simCfg is not nil.
func (sc *YamlScenario) ApplyConfig(dcfg *dispatcher.Config, simCfg *Config) {
	strict := dcfg.Mac.StrictInvariants
	macCfg := *sc.Mac
	macCfg.StrictInvariants = macCfg.StrictInvariants || strict
	radioCfg := *sc.Radio
	energyCfg := *sc.Energy
	dcfg.Mac, dcfg.Radio, dcfg.Energy = &macCfg, &radioCfg, &energyCfg

	if simCfg != nil {
		simCfg.Traffic = *sc.Traffic
		if sc.Title != "" {
			simCfg.Title = sc.Title
		}
		if sc.Network.RadioRange != nil {
			simCfg.NewNodeConfig.RadioRange = *sc.Network.RadioRange
		}
		if sc.Network.BatteryJ != nil {
			simCfg.NewNodeConfig.BatteryJ = *sc.Network.BatteryJ
		}
	}
}

// ImportNodes adds the scenario's nodes and starts their traffic generators.
func (s *Simulation) ImportNodes(nwConfig YamlNetworkConfig, nodes []YamlNodeConfig) error {
	allOk := true
	posOffset := nwConfig.Position
	nodeIdOffset := 0
	if nwConfig.BaseId != nil {
		nodeIdOffset = *nwConfig.BaseId
	}

	for _, node := range nodes {
		cfg := DefaultNodeConfig()
		if node.ID > 0 {
			cfg.ID = node.ID + nodeIdOffset
		}
		cfg.RadioRange = -1
		if node.RadioRange != nil {
			cfg.RadioRange = *node.RadioRange
		} else if nwConfig.RadioRange != nil {
			cfg.RadioRange = *nwConfig.RadioRange
		}
		cfg.BatteryJ = -1
		if node.BatteryJ != nil {
			cfg.BatteryJ = *node.BatteryJ
		} else if nwConfig.BatteryJ != nil {
			cfg.BatteryJ = *nwConfig.BatteryJ
		}
		cfg.IsAutoPlaced = false
		cfg.X = node.Position[0] + posOffset[0]
		cfg.Y = node.Position[1] + posOffset[1]

		s.NodeConfigFinalize(&cfg)
		added, err := s.AddNode(&cfg)
		if err != nil {
			logger.Warnf("Warn: %s", err)
			allOk = false // continue trying to import remaining nodes
			continue
		}

		if node.TrafficCfg != nil || (node.Traffic != nil && *node.Traffic) {
			tc := s.cfg.Traffic
			if node.TrafficCfg != nil {
				tc = *node.TrafficCfg
			}
			if err = s.StartTraffic(added.Id, tc); err != nil {
				logger.Warnf("Warn: node %d traffic: %s", added.Id, err)
				allOk = false
			}
		}
	}

	if !allOk {
		return errors.Errorf("not all nodes could be imported - see error log above")
	}
	return nil
}

// ImportScenario adds the nodes of a scenario whose config sections were already applied with
// ApplyConfig.
func (s *Simulation) ImportScenario(sc *YamlScenario) error {
	if sc.Title != "" {
		s.SetTitle(sc.Title)
	}
	return s.ImportNodes(sc.Network, sc.Nodes)
}

// ExportNodes exports config/position info of all nodes to a YAML-friendly object.
func (s *Simulation) ExportNodes() []YamlNodeConfig {
	res := make([]YamlNodeConfig, 0, len(s.nodes))
	for _, nodeid := range s.GetNodes() {
		node := s.nodes[nodeid]
		dnode := s.d.GetNode(nodeid)
		cfg := YamlNodeConfig{
			ID:       nodeid,
			Position: [2]int{dnode.X, dnode.Y},
		}
		if node.cfg.RadioRange != s.cfg.NewNodeConfig.RadioRange {
			rr := node.cfg.RadioRange
			cfg.RadioRange = &rr
		}
		if node.cfg.BatteryJ != s.cfg.NewNodeConfig.BatteryJ {
			b := node.cfg.BatteryJ
			cfg.BatteryJ = &b
		}
		if tc, ok := node.TrafficConfig(); ok {
			cfg.TrafficCfg = &tc
		}
		res = append(res, cfg)
	}
	return res
}
