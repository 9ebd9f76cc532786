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

package scheduler

import (
	"fmt"
	"math"

	"github.com/leafq/scheduler-core/pkg/common/configs"
	"github.com/leafq/scheduler-core/pkg/common/resources"
)

// UndefinedCapacity mirrors configs.UndefinedCapacity: a maxCapacity that
// was never configured maps to +Inf, never to a denial.
const UndefinedCapacity = configs.UndefinedCapacity

// QueueConfig is the immutable, derived configuration of a single leaf
// queue. It is computed once, at construction, from the parent's
// absolute capacity and the queue's raw YAML definition; nothing in the
// leaf queue's hot path recomputes it.
type QueueConfig struct {
	QueueName string
	QueuePath string

	Capacity            float64
	AbsoluteCapacity    float64
	MaxCapacity         float64 // UndefinedCapacity if not configured
	AbsoluteMaxCapacity float64 // +Inf if MaxCapacity is undefined

	UserLimit       int
	UserLimitFactor int

	MaxApplications        int
	MaxApplicationsPerUser int

	MinimumAllocation *resources.Resource
}

// NewQueueConfig derives a leaf queue's runtime configuration from its
// raw YAML definition, the system-wide application cap, and the parent
// queue's absolute capacity in the tree above it.
func NewQueueConfig(raw configs.QueueConfig, queuePath string, parentAbsoluteCapacity float64, maxSystemApplications int) (*QueueConfig, error) {
	if raw.Capacity < 0 || raw.Capacity > 100 {
		return nil, fmt.Errorf("queue %q: capacity %d out of range", raw.Name, raw.Capacity)
	}
	capacity := float64(raw.Capacity) / 100.0
	absoluteCapacity := parentAbsoluteCapacity * capacity

	maxCapacity := raw.MaximumCapacityFraction()
	absoluteMaxCapacity := math.Inf(1)
	if maxCapacity != UndefinedCapacity {
		absoluteMaxCapacity = parentAbsoluteCapacity * maxCapacity
	}

	maxApplications := int(math.Floor(float64(maxSystemApplications) * absoluteCapacity))
	maxApplicationsPerUser := int(math.Floor(float64(maxApplications) * (float64(raw.UserLimit) / 100.0) * float64(raw.UserLimitFactor)))

	minAlloc := raw.MinimumAllocationMB
	if minAlloc <= 0 {
		minAlloc = 1
	}

	return &QueueConfig{
		QueueName:              raw.Name,
		QueuePath:              queuePath,
		Capacity:               capacity,
		AbsoluteCapacity:       absoluteCapacity,
		MaxCapacity:            maxCapacity,
		AbsoluteMaxCapacity:    absoluteMaxCapacity,
		UserLimit:              raw.UserLimit,
		UserLimitFactor:        raw.UserLimitFactor,
		MaxApplications:        maxApplications,
		MaxApplicationsPerUser: maxApplicationsPerUser,
		MinimumAllocation:      resources.New(minAlloc),
	}, nil
}
