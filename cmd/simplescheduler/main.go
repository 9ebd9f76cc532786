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
	"flag"
	"os"

	"go.uber.org/zap"

	"github.com/leafq/scheduler-core/pkg/log"
)

var (
	configPath = flag.String("config", "", "path to a leaf queue YAML config (see cmd/simplescheduler/example-config.yaml)")
	heartbeats = flag.Int("heartbeats", 10, "number of simulated node heartbeats to run")
)

func main() {
	flag.Parse()

	if *configPath == "" {
		log.Logger().Fatal("-config is required")
	}

	if err := run(*configPath, *heartbeats); err != nil {
		log.Logger().Error("demo run failed", zap.Error(err))
		os.Exit(1)
	}
}
