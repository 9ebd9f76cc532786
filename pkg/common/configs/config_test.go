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
	"testing"

	"gotest.tools/v3/assert"
)

const validYAML = `
maximumSystemApplications: 10000
queues:
  - name: default
    capacity: 100
    userLimit: 25
    userLimitFactor: 1
    minimumAllocationMB: 1
  - name: batch
    capacity: 50
    maximumCapacity: 60
    userLimit: 100
    userLimitFactor: 2
    minimumAllocationMB: 1
`

func TestLoadValid(t *testing.T) {
	cfg, err := Load([]byte(validYAML))
	assert.NilError(t, err)
	assert.Equal(t, cfg.MaximumSystemApplications, 10000)
	assert.Equal(t, len(cfg.Queues), 2)
	assert.Equal(t, cfg.Queues[0].Name, "default")
	assert.Equal(t, cfg.Queues[0].MaximumCapacityFraction(), UndefinedCapacity)
	assert.Equal(t, cfg.Queues[1].MaximumCapacityFraction(), 0.6)
}

func TestLoadDuplicateQueueName(t *testing.T) {
	_, err := Load([]byte(`
queues:
  - name: default
    capacity: 50
    userLimit: 25
    userLimitFactor: 1
  - name: default
    capacity: 50
    userLimit: 25
    userLimitFactor: 1
`))
	assert.ErrorContains(t, err, "duplicate queue name")
}

func TestLoadInvalidCapacity(t *testing.T) {
	_, err := Load([]byte(`
queues:
  - name: default
    capacity: 150
    userLimit: 25
    userLimitFactor: 1
`))
	assert.ErrorContains(t, err, "capacity must be in")
}

func TestLoadInvalidUserLimit(t *testing.T) {
	_, err := Load([]byte(`
queues:
  - name: default
    capacity: 50
    userLimit: 0
    userLimitFactor: 1
`))
	assert.ErrorContains(t, err, "userLimit must be in")
}

func TestLoadMissingName(t *testing.T) {
	_, err := Load([]byte(`
queues:
  - capacity: 50
    userLimit: 25
    userLimitFactor: 1
`))
	assert.ErrorContains(t, err, "missing a name")
}

func TestLoadFileNotFound(t *testing.T) {
	_, err := LoadFile("/nonexistent/path/to/config.yaml")
	assert.ErrorContains(t, err, "read scheduler config")
}
