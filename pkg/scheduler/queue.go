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
	"sync"

	"github.com/google/btree"
	"go.uber.org/zap"

	"github.com/leafq/scheduler-core/pkg/common/resources"
	"github.com/leafq/scheduler-core/pkg/common/security"
	"github.com/leafq/scheduler-core/pkg/log"
	"github.com/leafq/scheduler-core/pkg/queuemetrics"
)

// appRef is the btree.Item a LeafQueue stores for each tracked
// application. Ordering by (submitSeq, applicationID) gives the FIFO
// comparator this scheduler uses as its canonical policy; a queue wanting a
// different order would replace Less, not the tree itself.
type appRef struct {
	app       Application
	submitSeq int64
}

func (a appRef) Less(than btree.Item) bool {
	other, ok := than.(appRef)
	if !ok {
		return false
	}
	if a.submitSeq != other.submitSeq {
		return a.submitSeq < other.submitSeq
	}
	return a.app.ApplicationID() < other.app.ApplicationID()
}

// LeafQueue is a terminal node of the queue tree: it admits applications,
// grants containers to them on node heartbeats under capacity and
// per-user limits, and keeps the bookkeeping the rest of the tree reads.
//
// Every exported method that touches queue state takes lock, in line
// with the single queue-wide mutex the design calls for; nothing inside
// a held lock blocks on I/O.
type LeafQueue struct {
	lock sync.Mutex

	config *QueueConfig
	parent ParentQueue

	secretManager   security.SecretManager
	securityEnabled bool

	metrics *queuemetrics.QueueMetrics

	usedResources *resources.Resource
	usedCapacity  float64
	utilization   float64
	numContainers int

	applications *btree.BTree
	appsByID     map[string]appRef
	nextSeq      int64

	users map[string]*User
}

// NewLeafQueue constructs an empty leaf queue. parent may be &NopParent{}
// when the queue is exercised standalone, e.g. in tests or the demo
// driver. secretManager may be nil; when it is, securityEnabled has no
// effect and containers are handed out without tokens.
func NewLeafQueue(config *QueueConfig, parent ParentQueue, secretManager security.SecretManager, securityEnabled bool) *LeafQueue {
	return &LeafQueue{
		config:          config,
		parent:          parent,
		secretManager:   secretManager,
		securityEnabled: securityEnabled,
		metrics:         queuemetrics.ForQueue(config.QueuePath),
		usedResources:   resources.New(0),
		applications:    btree.New(32),
		appsByID:        make(map[string]appRef),
		users:           make(map[string]*User),
	}
}

// --- accessors -------------------------------------------------------

func (q *LeafQueue) QueuePath() string { return q.config.QueuePath }

func (q *LeafQueue) Capacity() float64 { return q.config.Capacity }

func (q *LeafQueue) AbsoluteCapacity() float64 { return q.config.AbsoluteCapacity }

func (q *LeafQueue) Used() *resources.Resource {
	q.lock.Lock()
	defer q.lock.Unlock()
	return q.usedResources.Clone()
}

func (q *LeafQueue) Utilization() float64 {
	q.lock.Lock()
	defer q.lock.Unlock()
	return q.utilization
}

func (q *LeafQueue) UsedCapacity() float64 {
	q.lock.Lock()
	defer q.lock.Unlock()
	return q.usedCapacity
}

func (q *LeafQueue) NumApplications() int {
	q.lock.Lock()
	defer q.lock.Unlock()
	return q.applications.Len()
}

func (q *LeafQueue) NumContainers() int {
	q.lock.Lock()
	defer q.lock.Unlock()
	return q.numContainers
}

// --- admission --------------------------------------------------------

// SubmitApplication admits app on behalf of user, or rejects it with
// ErrQueueFull / ErrUserQueueFull. Queue state is mutated under lock and
// left untouched on rejection; the parent is notified only on success,
// after the lock is released.
func (q *LeafQueue) SubmitApplication(app Application, user string) error {
	q.lock.Lock()

	if q.applications.Len() >= q.config.MaxApplications {
		q.lock.Unlock()
		q.metrics.IncApplicationsRejected("queue_full")
		return ErrQueueFull
	}

	u := q.getOrCreateUser(user)
	if u.Applications >= q.config.MaxApplicationsPerUser {
		if u.Applications == 0 {
			delete(q.users, user)
		}
		q.lock.Unlock()
		q.metrics.IncApplicationsRejected("user_full")
		return ErrUserQueueFull
	}

	u.submitApplication()
	ref := appRef{app: app, submitSeq: q.nextSeq}
	q.nextSeq++
	q.applications.ReplaceOrInsert(ref)
	q.appsByID[app.ApplicationID()] = ref
	running := q.applications.Len()

	q.lock.Unlock()

	q.metrics.IncApplicationsAdded()
	q.metrics.SetApplicationsRunning(running)
	q.parent.SubmitApplication(app, user)
	return nil
}

// FinishApplication removes app from the queue. It is a no-op if app was
// never submitted or was already finished.
func (q *LeafQueue) FinishApplication(app Application) {
	q.lock.Lock()

	ref, ok := q.appsByID[app.ApplicationID()]
	if !ok {
		q.lock.Unlock()
		return
	}
	q.applications.Delete(ref)
	delete(q.appsByID, app.ApplicationID())

	if u, ok := q.users[app.User()]; ok {
		u.finishApplication()
		if u.Applications == 0 {
			delete(q.users, app.User())
		}
	}
	running := q.applications.Len()

	q.lock.Unlock()

	q.metrics.SetApplicationsRunning(running)
	q.parent.FinishApplication(app)
}

func (q *LeafQueue) getOrCreateUser(name string) *User {
	u, ok := q.users[name]
	if !ok {
		u = newUser(name)
		q.users[name] = u
	}
	return u
}

// --- capacity / limit evaluator --------------------------------------

// assignToQueue reports whether granting required would keep the
// queue's projected utilization at or below absoluteMaxCapacity. Called
// with the queue lock already held.
func (q *LeafQueue) assignToQueue(cluster, required *resources.Resource) bool {
	if cluster == nil || cluster.Memory <= 0 {
		return false
	}
	if math.IsInf(q.config.AbsoluteMaxCapacity, 1) {
		return true
	}
	if q.config.AbsoluteCapacity <= 0 {
		return false
	}
	projected := float64(q.usedResources.Memory+required.Memory) /
		(float64(cluster.Memory) * q.config.AbsoluteCapacity)
	return projected <= q.config.AbsoluteMaxCapacity
}

// assignToUser reports whether userName has headroom under its dynamic
// per-user share cap to receive required. Called with the queue lock
// already held. required is deliberately excluded from the user's side
// of the inequality: it leaves one allocation of slack
// for fixed per-application overhead.
func (q *LeafQueue) assignToUser(userName string, cluster, required *resources.Resource) bool {
	if cluster == nil || cluster.Memory <= 0 {
		return false
	}
	minAlloc := q.config.MinimumAllocation.Memory
	if minAlloc <= 0 {
		minAlloc = 1
	}

	queueCapacity := int64(math.Ceil(q.config.AbsoluteCapacity * float64(cluster.Memory) / float64(minAlloc)))
	if required.Memory > queueCapacity {
		queueCapacity = required.Memory
	}

	consumed := q.usedResources.Memory
	currentCapacity := queueCapacity
	if consumed >= queueCapacity {
		currentCapacity = consumed + required.Memory
	}

	activeUsers := int64(len(q.users))
	if activeUsers <= 0 {
		activeUsers = 1
	}

	fairShareFloor := resources.DivideAndCeil(currentCapacity, activeUsers)
	userLimitFloor := int64(math.Ceil(float64(q.config.UserLimit) * float64(currentCapacity) / 100.0))
	floor := fairShareFloor
	if userLimitFloor > floor {
		floor = userLimitFloor
	}

	ceiling := int64(math.Floor(float64(queueCapacity) * float64(q.config.UserLimitFactor)))
	limit := floor
	if ceiling < limit {
		limit = ceiling
	}

	userConsumed := int64(0)
	if u, ok := q.users[userName]; ok {
		userConsumed = u.Consumed.Memory
	}
	return userConsumed <= limit
}

// --- locality selector -------------------------------------------------

// canAssign implements the per-locality placement gate: the
// off-switch request must exist with headroom before anything else is
// considered, rack-local falls back to off-switch when the app has no
// rack-specific request, and node-local requires an exact host match.
func (q *LeafQueue) canAssign(app Application, priority int32, node Node, locality LocalityType) bool {
	offSwitch := app.ResourceRequest(priority, OffSwitchLocation)
	if !offSwitch.HasCapacity() {
		return false
	}
	switch locality {
	case OffSwitch:
		return offSwitch.HasCapacity()
	case RackLocal:
		rack := app.ResourceRequest(priority, node.RackName())
		if rack == nil {
			return offSwitch.HasCapacity()
		}
		return rack.HasCapacity()
	case DataLocal:
		host := app.ResourceRequest(priority, node.HostName())
		return host != nil && host.HasCapacity()
	default:
		return false
	}
}

// assignContainersOnNode tries node-local, then rack-local, then
// off-switch placement for (app, priority) on node, stopping at the
// first that grants a container. A level is skipped when the application
// has no request under that level's location key.
func (q *LeafQueue) assignContainersOnNode(cluster *resources.Resource, node Node, app Application, priority int32) *resources.Resource {
	if q.canAssign(app, priority, node, DataLocal) {
		req := app.ResourceRequest(priority, node.HostName())
		if r := q.assignContainer(cluster, node, app, priority, req, DataLocal); resources.StrictlyGreaterThanZero(r) {
			return r
		}
	}

	if req := app.ResourceRequest(priority, node.RackName()); req != nil && q.canAssign(app, priority, node, RackLocal) {
		if r := q.assignContainer(cluster, node, app, priority, req, RackLocal); resources.StrictlyGreaterThanZero(r) {
			return r
		}
	}

	if q.canAssign(app, priority, node, OffSwitch) {
		req := app.ResourceRequest(priority, OffSwitchLocation)
		if r := q.assignContainer(cluster, node, app, priority, req, OffSwitch); resources.StrictlyGreaterThanZero(r) {
			return r
		}
	}

	return resources.NONE
}

// assignContainer hands out exactly one container from request on node,
// to app, at priority and locality. It returns the granted capability,
// or NONE when the node has no room or the request's capability is
// degenerate.
func (q *LeafQueue) assignContainer(cluster *resources.Resource, node Node, app Application, priority int32, request *ResourceRequest, locality LocalityType) *resources.Resource {
	if request == nil || request.Capability == nil || request.Capability.Memory <= 0 {
		return resources.NONE
	}

	available := node.AvailableResource().Memory / request.Capability.Memory
	if available <= 0 {
		return resources.NONE
	}

	id := app.NewContainerID()
	container := &Container{
		ID:         id,
		HostName:   node.HostName(),
		Capability: request.Capability.Clone(),
	}
	if q.securityEnabled && q.secretManager != nil {
		container.Token = q.mintToken(container)
	}

	app.Allocate(locality, node, priority, request, container)
	node.AllocateContainer(app.ApplicationID(), container)

	log.Logger().Debug("container allocated",
		zap.String("queue", q.config.QueuePath),
		zap.String("application", app.ApplicationID()),
		zap.String("container", id.String()),
		zap.String("locality", locality.String()))

	return container.Capability
}

func (q *LeafQueue) mintToken(container *Container) *ContainerToken {
	identifier := []byte(container.ID.String() + "|" + container.HostName + "|" + container.Capability.String())
	return &ContainerToken{
		Identifier: identifier,
		Kind:       "LEAFQ_CONTAINER_TOKEN",
		Password:   q.secretManager.CreatePassword(identifier),
		Service:    container.HostName,
	}
}

// --- allocation loop ---------------------------------------------------

// AssignContainers walks the queue's applications in FIFO order looking
// for at most one container to grant on node. It returns NONE when
// nothing placed, including when a capacity or user-limit check denied
// the first candidate application: that denial ends the whole
// heartbeat's search rather than moving on to the next application.
func (q *LeafQueue) AssignContainers(cluster *resources.Resource, node Node) *resources.Resource {
	q.lock.Lock()
	defer q.lock.Unlock()

	result := resources.NONE
	q.applications.Ascend(func(item btree.Item) bool {
		app := item.(appRef).app
		granted, denied := q.tryAllocate(cluster, node, app)
		if denied {
			result = resources.NONE
			return false
		}
		if resources.StrictlyGreaterThanZero(granted) {
			result = granted
			return false
		}
		return true
	})
	return result
}

// tryAllocate walks app's active priorities, highest first, under the
// application's own lock. denied is true when a capacity/user-limit
// check failed, signalling the caller to stop the whole heartbeat.
func (q *LeafQueue) tryAllocate(cluster *resources.Resource, node Node, app Application) (granted *resources.Resource, denied bool) {
	app.Lock()
	defer app.Unlock()

	app.ShowRequests()
	defer app.ShowRequests()

	for _, priority := range app.Priorities() {
		offSwitch := app.ResourceRequest(priority, OffSwitchLocation)
		if !offSwitch.HasCapacity() {
			continue
		}

		if !q.assignToQueue(cluster, offSwitch.Capability) || !q.assignToUser(app.User(), cluster, offSwitch.Capability) {
			return nil, true
		}

		r := q.assignContainersOnNode(cluster, node, app, priority)
		if resources.StrictlyGreaterThanZero(r) {
			q.allocateResource(cluster, app.User(), r)
			return r, false
		}

		// Placement failed at the top eligible priority: priority
		// order discipline means lower priorities of this app are
		// not tried on this heartbeat either.
		break
	}
	return resources.NONE, false
}

// --- completion ---------------------------------------------------------

// CompletedContainer notifies app that container is no longer running
// and releases its capability back to the queue and user it was charged
// against, all under the queue lock (application notification also
// under the application's own lock), then notifies the parent after the
// queue lock is released. It returns ErrUnknownApplication if app is not
// currently tracked by this queue.
func (q *LeafQueue) CompletedContainer(cluster *resources.Resource, container *Container, app Application) error {
	q.lock.Lock()

	if _, ok := q.appsByID[app.ApplicationID()]; !ok {
		q.lock.Unlock()
		return ErrUnknownApplication
	}

	app.Lock()
	app.CompletedContainer(container)
	app.Unlock()

	q.releaseResource(cluster, app.User(), container.Capability)
	q.lock.Unlock()

	q.parent.CompletedContainer(container, app)
	return nil
}

// --- bookkeeping ---------------------------------------------------------

func (q *LeafQueue) allocateResource(cluster *resources.Resource, userName string, r *resources.Resource) {
	q.usedResources = resources.Add(q.usedResources, r)
	q.numContainers++
	q.getOrCreateUser(userName).assignContainer(r)
	q.recomputeDerived(cluster)

	q.metrics.IncContainersAllocated()
	q.metrics.SetUsedResource(q.usedResources.Memory)
	q.metrics.SetUtilization(q.utilization)
	q.metrics.SetUsedCapacity(q.usedCapacity)
}

func (q *LeafQueue) releaseResource(cluster *resources.Resource, userName string, r *resources.Resource) {
	next, _ := resources.SubErrorNegative(q.usedResources, r, "queue "+q.config.QueuePath+" used resource")
	q.usedResources = next
	if q.numContainers > 0 {
		q.numContainers--
	}
	if u, ok := q.users[userName]; ok {
		u.releaseContainer(r)
	}
	q.recomputeDerived(cluster)

	q.metrics.IncContainersReleased()
	q.metrics.SetUsedResource(q.usedResources.Memory)
	q.metrics.SetUtilization(q.utilization)
	q.metrics.SetUsedCapacity(q.usedCapacity)
}

func (q *LeafQueue) recomputeDerived(cluster *resources.Resource) {
	clusterMem := float64(0)
	if cluster != nil {
		clusterMem = float64(cluster.Memory)
	}

	if denom := clusterMem * q.config.AbsoluteCapacity; denom > 0 {
		q.utilization = float64(q.usedResources.Memory) / denom
	} else {
		q.utilization = 0
	}

	if denom := clusterMem * q.config.Capacity; denom > 0 {
		q.usedCapacity = float64(q.usedResources.Memory) / denom
	} else {
		q.usedCapacity = 0
	}
}
