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

package objects

import (
	"sync"

	"github.com/leafq/scheduler-core/pkg/common/resources"
	"github.com/leafq/scheduler-core/pkg/scheduler"
)

// FakeNode is a worker machine with a fixed total capacity and a
// shrinking available pool as containers land on it.
type FakeNode struct {
	mu sync.Mutex

	hostName string
	rackName string

	total     *resources.Resource
	available *resources.Resource

	allocated map[string][]*scheduler.Container // applicationID -> containers
}

func NewFakeNode(hostName, rackName string, total *resources.Resource) *FakeNode {
	return &FakeNode{
		hostName:  hostName,
		rackName:  rackName,
		total:     total.Clone(),
		available: total.Clone(),
		allocated: make(map[string][]*scheduler.Container),
	}
}

func (n *FakeNode) HostName() string { return n.hostName }
func (n *FakeNode) RackName() string { return n.rackName }

func (n *FakeNode) AvailableResource() *resources.Resource {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.available.Clone()
}

func (n *FakeNode) AllocateContainer(applicationID string, container *scheduler.Container) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.available = resources.Sub(n.available, container.Capability)
	n.allocated[applicationID] = append(n.allocated[applicationID], container)
}

// ReleaseContainer gives container's capability back to the node. The
// demo driver and tests call this directly; the leaf queue core itself
// never releases node-side capacity, only queue/user bookkeeping (the
// node registry that owns real release-on-heartbeat plumbing is out of
// scope here).
func (n *FakeNode) ReleaseContainer(applicationID string, containerID scheduler.ContainerID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	containers := n.allocated[applicationID]
	for i, c := range containers {
		if c.ID == containerID {
			n.available = resources.Add(n.available, c.Capability)
			n.allocated[applicationID] = append(containers[:i], containers[i+1:]...)
			return
		}
	}
}
