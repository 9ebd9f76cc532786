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

	"github.com/leafq/scheduler-core/pkg/common/resources"
)

// LocalityType orders the placement attempts the locality selector tries
// for a single (application, priority) pair.
type LocalityType int

const (
	DataLocal LocalityType = iota
	RackLocal
	OffSwitch
)

func (l LocalityType) String() string {
	switch l {
	case DataLocal:
		return "DATA_LOCAL"
	case RackLocal:
		return "RACK_LOCAL"
	case OffSwitch:
		return "OFF_SWITCH"
	default:
		return "UNKNOWN"
	}
}

// OffSwitchLocation is the reserved location key for an off-switch
// resource request: any host, any rack.
const OffSwitchLocation = "*"

// ContainerID identifies a container within an application's sequence of
// allocations.
type ContainerID struct {
	ApplicationID string
	Seq           int64
}

func (id ContainerID) String() string {
	return fmt.Sprintf("%s_%d", id.ApplicationID, id.Seq)
}

// ContainerToken carries the security material minted for a container
// when the queue runs with a SecretManager configured. It is entirely
// opaque to the leaf queue beyond the fields it fills in.
type ContainerToken struct {
	Identifier []byte
	Kind       string
	Password   []byte
	Service    string
}

// Container is the unit of allocation the leaf queue hands to a node and
// an application: a fixed slice of a node's memory.
type Container struct {
	ID         ContainerID
	HostName   string
	Capability *resources.Resource
	Token      *ContainerToken
}

// ResourceRequest is one entry of an application's demand at a given
// priority, keyed by a location string: a host name (DATA_LOCAL), a rack
// name (RACK_LOCAL), or OffSwitchLocation (OFF_SWITCH).
type ResourceRequest struct {
	Location      string
	Capability    *resources.Resource
	NumContainers int
}

// HasCapacity reports whether the request still has containers to hand
// out.
func (r *ResourceRequest) HasCapacity() bool {
	return r != nil && r.NumContainers > 0
}

// Application is the leaf queue's view of a submitted application. The
// application owns its own lock; the queue holds it while it reads the
// request vector or records allocations and completions (see
// LeafQueue.AssignContainers and LeafQueue.CompletedContainer).
// ApplicationID and User are called without it.
type Application interface {
	// Lock and Unlock guard the application's own request vector. The
	// queue always takes Lock after it already holds its own queue
	// lock, never the reverse.
	Lock()
	Unlock()

	ApplicationID() string
	User() string

	// Priorities returns the application's active priorities, highest
	// first. The allocation loop walks this slice in order.
	Priorities() []int32

	// ResourceRequest returns the request at priority for location, or
	// nil if the application has none outstanding there.
	ResourceRequest(priority int32, location string) *ResourceRequest

	// NewContainerID allocates the next container id for this
	// application.
	NewContainerID() ContainerID

	// Allocate records a granted container against the application's
	// own bookkeeping.
	Allocate(locality LocalityType, node Node, priority int32, request *ResourceRequest, container *Container)

	// CompletedContainer notifies the application that container is no
	// longer running.
	CompletedContainer(container *Container)

	// ShowRequests is a diagnostic hook; implementations typically log
	// the outstanding request vector.
	ShowRequests()
}

// Node is the leaf queue's view of a cluster worker machine.
type Node interface {
	HostName() string
	RackName() string
	AvailableResource() *resources.Resource
	AllocateContainer(applicationID string, container *Container)
}

// ParentQueue is the non-owning reference a leaf holds to its parent in
// the queue tree. Notifications to the parent are fired after the leaf's
// own lock is released, to avoid lock-order inversions with the
// parent's own locks.
type ParentQueue interface {
	AbsoluteCapacity() float64
	QueuePath() string
	SubmitApplication(app Application, user string)
	FinishApplication(app Application)
	CompletedContainer(container *Container, app Application)
}

// NopParent is a ParentQueue that discards every notification. It lets a
// leaf queue run standalone, e.g. in tests or the demo driver, without a
// real queue tree above it.
type NopParent struct {
	Path string
	Abs  float64
}

func (p *NopParent) AbsoluteCapacity() float64 { return p.Abs }
func (p *NopParent) QueuePath() string         { return p.Path }
func (p *NopParent) SubmitApplication(Application, string) {}
func (p *NopParent) FinishApplication(Application)         {}
func (p *NopParent) CompletedContainer(*Container, Application) {}
