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

package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/leafq/scheduler-core/pkg/common/configs"
	"github.com/leafq/scheduler-core/pkg/common/resources"
	"github.com/leafq/scheduler-core/pkg/common/security"
	"github.com/leafq/scheduler-core/pkg/log"
	"github.com/leafq/scheduler-core/pkg/scheduler"
	"github.com/leafq/scheduler-core/pkg/scheduler/objects"
)

// run loads a scheduler config from configPath, builds one standalone
// LeafQueue per entry (parented at the root of the tree, which this
// demo never models beyond an absolute capacity of 1.0), submits a
// couple of sample applications, and drives a fixed number of simulated
// node heartbeats against them, logging every grant.
//
// This is a demonstration driver, not a production resource manager:
// node discovery, heartbeat transport, and application lifecycle are
// all out of scope for the core and are stubbed in-process here.
func run(configPath string, heartbeatCount int) error {
	cfg, err := configs.LoadFile(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if len(cfg.Queues) == 0 {
		return fmt.Errorf("config defines no queues")
	}

	secretManager := security.NewHMACSecretManager([]byte("demo-master-key"))

	queues := make(map[string]*scheduler.LeafQueue, len(cfg.Queues))
	for _, raw := range cfg.Queues {
		queueConfig, err := scheduler.NewQueueConfig(raw, "root."+raw.Name, 1.0, cfg.MaximumSystemApplications)
		if err != nil {
			return fmt.Errorf("derive config for queue %q: %w", raw.Name, err)
		}
		parent := &scheduler.NopParent{Path: "root", Abs: 1.0}
		queues[raw.Name] = scheduler.NewLeafQueue(queueConfig, parent, secretManager, true)
	}

	firstQueueName := cfg.Queues[0].Name
	queue := queues[firstQueueName]

	cluster := resources.New(1000)
	node := objects.NewFakeNode("demo-host-1", "demo-rack-1", resources.New(1000))

	appA := objects.NewFakeApplication("demo-app-a", "alice")
	appA.AddRequest(10, scheduler.OffSwitchLocation, resources.New(4), 5)
	appB := objects.NewFakeApplication("demo-app-b", "bob")
	appB.AddRequest(5, scheduler.OffSwitchLocation, resources.New(4), 5)

	if err := queue.SubmitApplication(appA, "alice"); err != nil {
		return fmt.Errorf("submit demo-app-a: %w", err)
	}
	if err := queue.SubmitApplication(appB, "bob"); err != nil {
		return fmt.Errorf("submit demo-app-b: %w", err)
	}

	logger := log.Logger()
	for i := 0; i < heartbeatCount; i++ {
		granted := queue.AssignContainers(cluster, node)
		logger.Info("heartbeat",
			zap.String("queue", queue.QueuePath()),
			zap.Int("iteration", i),
			zap.Int64("granted_memory", granted.Memory),
			zap.Int("queue_containers", queue.NumContainers()),
			zap.Float64("utilization", queue.Utilization()))
	}

	return nil
}
