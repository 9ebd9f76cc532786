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
	"math"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/leafq/scheduler-core/pkg/common/configs"
)

func TestNewQueueConfigDerivesAbsoluteCapacity(t *testing.T) {
	raw := configs.QueueConfig{
		Name:                "batch",
		Capacity:            50,
		UserLimit:           25,
		UserLimitFactor:     2,
		MinimumAllocationMB: 1,
	}
	cfg, err := NewQueueConfig(raw, "root.batch", 0.5, 10000)
	assert.NilError(t, err)

	assert.Equal(t, cfg.Capacity, 0.5)
	assert.Equal(t, cfg.AbsoluteCapacity, 0.25)
	assert.Equal(t, cfg.MaxCapacity, UndefinedCapacity)
	assert.Assert(t, math.IsInf(cfg.AbsoluteMaxCapacity, 1))
	assert.Equal(t, cfg.MaxApplications, 2500)
	assert.Equal(t, cfg.MaxApplicationsPerUser, 1250)
}

func TestNewQueueConfigWithMaximumCapacity(t *testing.T) {
	raw := configs.QueueConfig{
		Name:                "batch",
		Capacity:            50,
		MaximumCapacity:     60,
		UserLimit:           100,
		UserLimitFactor:     1,
		MinimumAllocationMB: 1,
	}
	cfg, err := NewQueueConfig(raw, "root.batch", 1.0, 10000)
	assert.NilError(t, err)

	assert.Equal(t, cfg.AbsoluteMaxCapacity, 0.6)
}

func TestNewQueueConfigRejectsOutOfRangeCapacity(t *testing.T) {
	raw := configs.QueueConfig{Name: "bad", Capacity: 150, UserLimit: 1, UserLimitFactor: 1}
	_, err := NewQueueConfig(raw, "root.bad", 1.0, 10000)
	assert.ErrorContains(t, err, "out of range")
}
