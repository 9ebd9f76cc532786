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

import "errors"

// ErrQueueFull is returned by SubmitApplication when accepting the
// application would push the queue's running application count past
// maxApplications.
var ErrQueueFull = errors.New("leaf queue: application limit reached")

// ErrUserQueueFull is returned by SubmitApplication when accepting the
// application would push the submitting user's running application count
// past maxApplicationsPerUser.
var ErrUserQueueFull = errors.New("leaf queue: user application limit reached")

// ErrUnknownApplication is returned when an operation references an
// application ID the queue is not currently tracking.
var ErrUnknownApplication = errors.New("leaf queue: unknown application")
