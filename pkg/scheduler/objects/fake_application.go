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

// Package objects provides minimal, concurrency-safe implementations of
// the scheduler.Application and scheduler.Node interfaces: hand-rolled
// fakes for tests and the demo driver rather than a mocking framework.
package objects

import (
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/leafq/scheduler-core/pkg/common/resources"
	"github.com/leafq/scheduler-core/pkg/log"
	"github.com/leafq/scheduler-core/pkg/scheduler"
)

// FakeApplication is a self-contained Application: callers populate its
// ResourceRequest table directly instead of going through an AM
// protocol, which is out of scope here.
type FakeApplication struct {
	sync.Mutex

	id   string
	user string

	// requests[priority][location] -> request
	requests map[int32]map[string]*scheduler.ResourceRequest

	allocated []*scheduler.Container
	nextSeq   int64
}

// NewFakeApplication creates an application with id submitted by user.
// A random id is generated when id is empty.
func NewFakeApplication(id, user string) *FakeApplication {
	if id == "" {
		id = uuid.NewString()
	}
	return &FakeApplication{
		id:       id,
		user:     user,
		requests: make(map[int32]map[string]*scheduler.ResourceRequest),
	}
}

func (a *FakeApplication) ApplicationID() string { return a.id }
func (a *FakeApplication) User() string          { return a.user }

// AddRequest registers (or replaces) the outstanding request for
// priority at location. Not safe to call concurrently with allocation;
// callers should set up demand before submitting the application or
// take the application's lock themselves.
func (a *FakeApplication) AddRequest(priority int32, location string, capability *resources.Resource, numContainers int) {
	byLocation, ok := a.requests[priority]
	if !ok {
		byLocation = make(map[string]*scheduler.ResourceRequest)
		a.requests[priority] = byLocation
	}
	byLocation[location] = &scheduler.ResourceRequest{
		Location:      location,
		Capability:    capability,
		NumContainers: numContainers,
	}
}

func (a *FakeApplication) Priorities() []int32 {
	priorities := make([]int32, 0, len(a.requests))
	for p := range a.requests {
		priorities = append(priorities, p)
	}
	sort.Slice(priorities, func(i, j int) bool { return priorities[i] > priorities[j] })
	return priorities
}

func (a *FakeApplication) ResourceRequest(priority int32, location string) *scheduler.ResourceRequest {
	byLocation, ok := a.requests[priority]
	if !ok {
		return nil
	}
	return byLocation[location]
}

func (a *FakeApplication) NewContainerID() scheduler.ContainerID {
	a.nextSeq++
	return scheduler.ContainerID{ApplicationID: a.id, Seq: a.nextSeq}
}

func (a *FakeApplication) Allocate(locality scheduler.LocalityType, node scheduler.Node, priority int32, request *scheduler.ResourceRequest, container *scheduler.Container) {
	request.NumContainers--
	a.allocated = append(a.allocated, container)
}

func (a *FakeApplication) CompletedContainer(container *scheduler.Container) {
	for i, c := range a.allocated {
		if c.ID == container.ID {
			a.allocated = append(a.allocated[:i], a.allocated[i+1:]...)
			return
		}
	}
}

func (a *FakeApplication) ShowRequests() {
	logger := log.Logger()
	for priority, byLocation := range a.requests {
		for _, r := range byLocation {
			logger.Debug("outstanding request",
				zap.String("application", a.id),
				zap.String("location", r.Location),
				zap.Int32("priority", priority),
				zap.Int("numContainers", r.NumContainers))
		}
	}
}

// AllocatedContainers returns the containers currently charged to this
// application. The slice is owned by the caller.
func (a *FakeApplication) AllocatedContainers() []*scheduler.Container {
	out := make([]*scheduler.Container, len(a.allocated))
	copy(out, a.allocated)
	return out
}
