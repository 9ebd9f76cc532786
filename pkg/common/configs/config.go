/*
 Licensed to the Apache Software Foundation (ASF) under one
 or more contributor license agreements.  See the NOTICE file
 distributed with this work for additional information
 regarding copyright ownership.  The ASF licenses this file
 to you under the Apache License, Version 2.0 (the
 "License"); you may not use this file except in compliance
 with the License.  You may obtain a copy of the License at

     http://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package configs

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// UndefinedCapacity marks a maximum capacity that was not set in the
// configuration. A maximumCapacity of 0 (or an absent one) in the YAML
// document maps to this value, so a configured maximum of 0 cannot be
// expressed.
const UndefinedCapacity = -1.0

// QueueConfig is the on-disk shape of a single leaf queue definition.
// Percentages are expressed 0-100 the way the YAML documents this
// scheduler loads always have.
type QueueConfig struct {
	Name               string `yaml:"name"`
	Capacity           int    `yaml:"capacity"`           // percentage of the parent's absolute share
	MaximumCapacity    int    `yaml:"maximumCapacity"`    // percentage, 0 means "not set" -> UndefinedCapacity
	UserLimit          int    `yaml:"userLimit"`          // 1-100
	UserLimitFactor    int    `yaml:"userLimitFactor"`    // multiplier applied to a user's queue-capacity ceiling, >= 0
	MinimumAllocationMB int64 `yaml:"minimumAllocationMB"`
}

// SchedulerConfig is the root of the YAML document: a flat list of leaf
// queues. The parent/root queue tree that owns these leaves is out of
// scope for this module; a caller wires each parsed
// QueueConfig into whatever tree it maintains.
type SchedulerConfig struct {
	MaximumSystemApplications int           `yaml:"maximumSystemApplications"`
	Queues                    []QueueConfig `yaml:"queues"`
}

// LoadFile reads and parses a SchedulerConfig document from path.
func LoadFile(path string) (*SchedulerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scheduler config: %w", err)
	}
	return Load(data)
}

// Load parses a SchedulerConfig document from raw YAML bytes.
func Load(data []byte) (*SchedulerConfig, error) {
	cfg := &SchedulerConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse scheduler config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *SchedulerConfig) validate() error {
	if c.MaximumSystemApplications < 0 {
		return fmt.Errorf("maximumSystemApplications must be >= 0, got %d", c.MaximumSystemApplications)
	}
	seen := make(map[string]bool)
	for _, q := range c.Queues {
		if q.Name == "" {
			return fmt.Errorf("queue definition missing a name")
		}
		if seen[q.Name] {
			return fmt.Errorf("duplicate queue name %q", q.Name)
		}
		seen[q.Name] = true
		if err := q.validate(); err != nil {
			return fmt.Errorf("queue %q: %w", q.Name, err)
		}
	}
	return nil
}

func (q *QueueConfig) validate() error {
	if q.Capacity < 0 || q.Capacity > 100 {
		return fmt.Errorf("capacity must be in [0, 100], got %d", q.Capacity)
	}
	if q.MaximumCapacity != 0 && (q.MaximumCapacity < 0 || q.MaximumCapacity > 100) {
		return fmt.Errorf("maximumCapacity must be in [0, 100], got %d", q.MaximumCapacity)
	}
	if q.UserLimit < 1 || q.UserLimit > 100 {
		return fmt.Errorf("userLimit must be in [1, 100], got %d", q.UserLimit)
	}
	if q.UserLimitFactor < 0 {
		return fmt.Errorf("userLimitFactor must be >= 0, got %d", q.UserLimitFactor)
	}
	if q.MinimumAllocationMB < 0 {
		return fmt.Errorf("minimumAllocationMB must be >= 0, got %d", q.MinimumAllocationMB)
	}
	return nil
}

// MaximumCapacityFraction returns the configured maximum capacity as a
// fraction in [0,1], or UndefinedCapacity when the queue did not set one.
func (q *QueueConfig) MaximumCapacityFraction() float64 {
	if q.MaximumCapacity == 0 {
		return UndefinedCapacity
	}
	return float64(q.MaximumCapacity) / 100.0
}
