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

package mac

import (
	"time"

	"github.com/pkg/errors"
)

const (
	DefaultCarrierSenseInterval = 100 * time.Microsecond
	DefaultEpsilon              = time.Microsecond
	MinHeaderOverhead           = 5
	MaxFrameSizeLimit           = 0xffff
)

// Config holds the MAC parameters of a node. It is not changed after the MAC is created.
type Config struct {
	SleepInterval        time.Duration `yaml:"sleep-interval"`
	ListenInterval       time.Duration `yaml:"listen-interval"`
	RandomTxOffset       time.Duration `yaml:"random-tx-offset"`
	CarrierSenseInterval time.Duration `yaml:"cs-interval"`
	Epsilon              time.Duration `yaml:"epsilon"`
	MaxFrameSize         int           `yaml:"max-frame-size"`  // bytes, MAC header included
	QueueCapacity        int           `yaml:"queue-capacity"`  // frames
	HeaderOverhead       int           `yaml:"header-overhead"` // bytes
	// MaxCsRetries bounds the carrier sense retries on a radio that is asleep or not ready.
	MaxCsRetries int `yaml:"max-cs-retries"`

	PrintStateTransitions bool `yaml:"print-state-transitions"`
	PrintDebugInfo        bool `yaml:"print-debug-info"`
	// StrictInvariants turns invariant violations into panics instead of error logs.
	StrictInvariants bool `yaml:"strict"`
}

func DefaultConfig() *Config {
	return &Config{
		SleepInterval:        500 * time.Millisecond,
		ListenInterval:       10 * time.Millisecond,
		RandomTxOffset:       50 * time.Millisecond,
		CarrierSenseInterval: DefaultCarrierSenseInterval,
		Epsilon:              DefaultEpsilon,
		MaxFrameSize:         128,
		QueueCapacity:        10,
		HeaderOverhead:       9,
		MaxCsRetries:         16,
	}
}

func (cfg *Config) Validate() error {
	if cfg.SleepInterval <= 0 {
		return errors.Errorf("sleep interval must be positive: %v", cfg.SleepInterval)
	}
	if cfg.ListenInterval <= 0 {
		return errors.Errorf("listen interval must be positive: %v", cfg.ListenInterval)
	}
	if cfg.RandomTxOffset < 0 {
		return errors.Errorf("random tx offset must not be negative: %v", cfg.RandomTxOffset)
	}
	if cfg.CarrierSenseInterval <= 0 {
		return errors.Errorf("carrier sense interval must be positive: %v", cfg.CarrierSenseInterval)
	}
	if cfg.Epsilon < 0 {
		return errors.Errorf("epsilon must not be negative: %v", cfg.Epsilon)
	}
	if cfg.HeaderOverhead < MinHeaderOverhead {
		return errors.Errorf("header overhead %d is below the minimum of %d bytes", cfg.HeaderOverhead,
			MinHeaderOverhead)
	}
	if cfg.MaxFrameSize <= cfg.HeaderOverhead || cfg.MaxFrameSize > MaxFrameSizeLimit {
		return errors.Errorf("max frame size %d must be in (%d, %d]", cfg.MaxFrameSize, cfg.HeaderOverhead,
			MaxFrameSizeLimit)
	}
	if cfg.MaxCsRetries < 1 {
		return errors.Errorf("max carrier sense retries must be at least 1: %d", cfg.MaxCsRetries)
	}
	if cfg.QueueCapacity < 1 {
		return errors.Errorf("queue capacity must be at least 1: %d", cfg.QueueCapacity)
	}
	return nil
}

func microseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Microsecond)
}
