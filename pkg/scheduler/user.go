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
	"sync"

	"github.com/leafq/scheduler-core/pkg/common/resources"
)

// User tracks one submitter's standing inside a single leaf queue: how
// much memory it currently consumes and how many applications it has
// active there. The queue creates a User lazily on first reference and
// drops it once Applications reaches zero: a user entry exists exactly
// when it has at least one active application.
//
// The queue already serializes every call into these methods under its
// own lock, but User carries its own mutex too as an additional safety
// net for callers that read or mutate it outside that path.
type User struct {
	mu sync.Mutex

	Name         string
	Consumed     *resources.Resource
	Applications int
}

func newUser(name string) *User {
	return &User{
		Name:     name,
		Consumed: resources.NONE,
	}
}

func (u *User) submitApplication() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.Applications++
}

func (u *User) finishApplication() {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.Applications > 0 {
		u.Applications--
	}
}

func (u *User) assignContainer(r *resources.Resource) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.Consumed = resources.Add(u.Consumed, r)
}

// releaseContainer subtracts r from the user's consumed resource,
// clamping at zero instead of going negative on an idempotent or
// out-of-order completion.
func (u *User) releaseContainer(r *resources.Resource) {
	u.mu.Lock()
	defer u.mu.Unlock()
	next, _ := resources.SubErrorNegative(u.Consumed, r, "user "+u.Name+" consumed")
	u.Consumed = next
}
