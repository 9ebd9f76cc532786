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

	"github.com/leafq/scheduler-core/pkg/common/resources"
	"github.com/leafq/scheduler-core/pkg/scheduler/objects"
)

func testQueue(t *testing.T, cfg *QueueConfig) *LeafQueue {
	t.Helper()
	return NewLeafQueue(cfg, &NopParent{Path: "root", Abs: 1.0}, nil, false)
}

func baseConfig() *QueueConfig {
	return &QueueConfig{
		QueueName:              "default",
		QueuePath:              "root.default",
		Capacity:               1.0,
		AbsoluteCapacity:       1.0,
		MaxCapacity:            UndefinedCapacity,
		AbsoluteMaxCapacity:    math.Inf(1),
		UserLimit:              100,
		UserLimitFactor:        1,
		MaxApplications:        1000,
		MaxApplicationsPerUser: 1000,
		MinimumAllocation:      resources.New(1),
	}
}

func addOffSwitchApp(q *LeafQueue, id, user string, capability int64, numContainers int) *objects.FakeApplication {
	app := objects.NewFakeApplication(id, user)
	app.AddRequest(1, OffSwitchLocation, resources.New(capability), numContainers)
	return app
}

// Scenario 1: FIFO two apps, one node.
func TestFIFOTwoApplicationsOneNode(t *testing.T) {
	q := testQueue(t, baseConfig())
	cluster := resources.New(10)
	node := objects.NewFakeNode("h1", "r1", resources.New(10))

	appA := addOffSwitchApp(q, "appA", "u1", 1, 1)
	appB := addOffSwitchApp(q, "appB", "u2", 1, 1)
	assert.NilError(t, q.SubmitApplication(appA, "u1"))
	assert.NilError(t, q.SubmitApplication(appB, "u2"))

	r1 := q.AssignContainers(cluster, node)
	assert.Equal(t, r1.Memory, int64(1))
	r2 := q.AssignContainers(cluster, node)
	assert.Equal(t, r2.Memory, int64(1))

	assert.Equal(t, q.Used().Memory, int64(2))
	assert.Equal(t, q.NumContainers(), 2)
	assert.Equal(t, q.users["u1"].Consumed.Memory, int64(1))
	assert.Equal(t, q.users["u2"].Consumed.Memory, int64(1))
}

// Scenario 2: per-user cap progression.
func TestAssignToUserCapProgression(t *testing.T) {
	cfg := baseConfig()
	cfg.UserLimit = 25
	cfg.UserLimitFactor = 1
	q := testQueue(t, cfg)
	cluster := resources.New(100)

	q.users["u1"] = newUser("u1")
	q.users["u1"].Consumed = resources.New(25)
	q.usedResources = resources.New(25)

	assert.Assert(t, q.assignToUser("u1", cluster, resources.New(1)))

	q.users["u1"].Consumed = resources.New(26)
	q.usedResources = resources.New(26)
	assert.Assert(t, q.assignToUser("u1", cluster, resources.New(1)))
}

// Scenario 3: absolute-max cut-off.
func TestAssignToQueueAbsoluteMaxCutoff(t *testing.T) {
	cfg := baseConfig()
	cfg.AbsoluteCapacity = 0.5
	cfg.AbsoluteMaxCapacity = 0.6
	q := testQueue(t, cfg)
	q.usedResources = resources.New(29)
	cluster := resources.New(100)

	assert.Assert(t, !q.assignToQueue(cluster, resources.New(2)))
}

// Scenario 4: locality preference order.
func TestLocalityPreference(t *testing.T) {
	q := testQueue(t, baseConfig())
	cluster := resources.New(100)

	app := objects.NewFakeApplication("app1", "u1")
	app.AddRequest(1, "h1", resources.New(1), 1)
	app.AddRequest(1, "r1", resources.New(1), 1)
	app.AddRequest(1, OffSwitchLocation, resources.New(2), 1)
	assert.NilError(t, q.SubmitApplication(app, "u1"))

	nodeHost := objects.NewFakeNode("h1", "r1", resources.New(8))
	r := q.AssignContainers(cluster, nodeHost)
	assert.Equal(t, r.Memory, int64(1))

	nodeRack := objects.NewFakeNode("h2", "r1", resources.New(8))
	r = q.AssignContainers(cluster, nodeRack)
	assert.Equal(t, r.Memory, int64(1))

	nodeOther := objects.NewFakeNode("h3", "r2", resources.New(8))
	r = q.AssignContainers(cluster, nodeOther)
	assert.Equal(t, r.Memory, int64(2))
}

// Scenario 5: admission rejection on per-user application cap.
func TestSubmitApplicationUserQueueFull(t *testing.T) {
	cfg := baseConfig()
	cfg.MaxApplicationsPerUser = 2
	q := testQueue(t, cfg)

	app1 := objects.NewFakeApplication("a1", "u")
	app2 := objects.NewFakeApplication("a2", "u")
	app3 := objects.NewFakeApplication("a3", "u")

	assert.NilError(t, q.SubmitApplication(app1, "u"))
	assert.NilError(t, q.SubmitApplication(app2, "u"))
	err := q.SubmitApplication(app3, "u")
	assert.ErrorIs(t, err, ErrUserQueueFull)

	assert.Equal(t, q.NumApplications(), 2)
	assert.Equal(t, q.users["u"].Applications, 2)
}

func TestSubmitApplicationQueueFull(t *testing.T) {
	cfg := baseConfig()
	cfg.MaxApplications = 1
	q := testQueue(t, cfg)

	app1 := objects.NewFakeApplication("a1", "u1")
	app2 := objects.NewFakeApplication("a2", "u2")

	assert.NilError(t, q.SubmitApplication(app1, "u1"))
	err := q.SubmitApplication(app2, "u2")
	assert.ErrorIs(t, err, ErrQueueFull)
}

// Scenario 6: completion releases resources but keeps the user present.
func TestCompletedContainerReleasesResources(t *testing.T) {
	q := testQueue(t, baseConfig())
	cluster := resources.New(10)
	node := objects.NewFakeNode("h1", "r1", resources.New(10))

	app := addOffSwitchApp(q, "a1", "u1", 1, 1)
	assert.NilError(t, q.SubmitApplication(app, "u1"))
	granted := q.AssignContainers(cluster, node)
	assert.Equal(t, granted.Memory, int64(1))

	containers := app.AllocatedContainers()
	assert.Equal(t, len(containers), 1)

	assert.NilError(t, q.CompletedContainer(cluster, containers[0], app))

	assert.Equal(t, q.Used().Memory, int64(0))
	assert.Equal(t, q.NumContainers(), 0)
	assert.Equal(t, q.users["u1"].Consumed.Memory, int64(0))
	_, stillPresent := q.users["u1"]
	assert.Assert(t, stillPresent) // app still submitted: 1 active application
}

// FinishApplication removes the user entirely once its application
// count reaches zero.
func TestFinishApplicationRemovesEmptyUser(t *testing.T) {
	q := testQueue(t, baseConfig())
	app := objects.NewFakeApplication("a1", "u1")
	assert.NilError(t, q.SubmitApplication(app, "u1"))

	q.FinishApplication(app)

	assert.Equal(t, q.NumApplications(), 0)
	_, ok := q.users["u1"]
	assert.Assert(t, !ok)
}

// Boundary: maxCapacity undefined never denies on capacity grounds.
func TestAssignToQueueUndefinedMaxNeverDenies(t *testing.T) {
	cfg := baseConfig()
	q := testQueue(t, cfg)
	q.usedResources = resources.New(1_000_000)
	cluster := resources.New(1)

	assert.Assert(t, q.assignToQueue(cluster, resources.New(1)))
}

// Boundary: zero cluster resource never grants and never produces NaN.
func TestAssignToQueueZeroClusterDenies(t *testing.T) {
	q := testQueue(t, baseConfig())
	cluster := resources.New(0)

	assert.Assert(t, !q.assignToQueue(cluster, resources.New(1)))
	assert.Assert(t, !q.assignToUser("u1", cluster, resources.New(1)))
}

// Boundary: a zero-capability request is a safe no-op, not a panic.
func TestAssignContainerZeroCapabilityIsNoop(t *testing.T) {
	q := testQueue(t, baseConfig())
	cluster := resources.New(10)
	node := objects.NewFakeNode("h1", "r1", resources.New(10))
	app := objects.NewFakeApplication("a1", "u1")
	req := &ResourceRequest{Location: OffSwitchLocation, Capability: resources.New(0), NumContainers: 1}

	r := q.assignContainer(cluster, node, app, 1, req, OffSwitch)
	assert.Assert(t, resources.IsZero(r))
}

// CompletedContainer rejects a container belonging to an application the
// queue never admitted (or already finished).
func TestCompletedContainerUnknownApplication(t *testing.T) {
	q := testQueue(t, baseConfig())
	cluster := resources.New(10)
	app := objects.NewFakeApplication("ghost-app", "u1")
	container := &Container{
		ID:         ContainerID{ApplicationID: "ghost-app", Seq: 1},
		HostName:   "h1",
		Capability: resources.New(1),
	}

	err := q.CompletedContainer(cluster, container, app)
	assert.ErrorIs(t, err, ErrUnknownApplication)
}

// Property P3: numContainers never goes negative on an idempotent
// completion for a container that was never actually allocated.
func TestReleaseResourceNeverGoesNegative(t *testing.T) {
	q := testQueue(t, baseConfig())
	cluster := resources.New(10)

	q.releaseResource(cluster, "ghost", resources.New(5))

	assert.Equal(t, q.NumContainers(), 0)
}
