/*
Copyright 2019 The Unity Scheduler Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package queuemetrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const QueuesSubsystem = "queues_metrics"

var (
	applicationsAdded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Subsystem: QueuesSubsystem,
			Name:      "applications_added_total",
			Help:      "Applications accepted by a leaf queue.",
		}, []string{"queue"})
	applicationsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Subsystem: QueuesSubsystem,
			Name:      "applications_rejected_total",
			Help:      "Applications rejected by a leaf queue, by reason.",
		}, []string{"queue", "reason"})
	applicationsRunning = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Subsystem: QueuesSubsystem,
			Name:      "applications_running",
			Help:      "Applications currently tracked by a leaf queue.",
		}, []string{"queue"})
	containersAllocated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Subsystem: QueuesSubsystem,
			Name:      "containers_allocated_total",
			Help:      "Containers granted by a leaf queue.",
		}, []string{"queue"})
	containersReleased = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Subsystem: QueuesSubsystem,
			Name:      "containers_released_total",
			Help:      "Containers released back to a leaf queue.",
		}, []string{"queue"})
	usedResource = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Subsystem: QueuesSubsystem,
			Name:      "used_resource_memory",
			Help:      "Memory currently consumed by allocations in a leaf queue.",
		}, []string{"queue"})
	utilization = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Subsystem: QueuesSubsystem,
			Name:      "utilization_ratio",
			Help:      "used / (cluster * absoluteCapacity) for a leaf queue.",
		}, []string{"queue"})
	usedCapacity = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Subsystem: QueuesSubsystem,
			Name:      "used_capacity_ratio",
			Help:      "used / (cluster * capacity) for a leaf queue.",
		}, []string{"queue"})
)

var registerOnce sync.Once

func register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			applicationsAdded,
			applicationsRejected,
			applicationsRunning,
			containersAllocated,
			containersReleased,
			usedResource,
			utilization,
			usedCapacity,
		)
	})
}

// QueueMetrics is a thin, queue-path-scoped view over the package's
// Prometheus collectors. Every leaf queue gets one; the collectors
// themselves are registered once for the whole process.
type QueueMetrics struct {
	queuePath string
}

// ForQueue returns the metrics handle for a queue path, registering the
// shared collectors on first use.
func ForQueue(queuePath string) *QueueMetrics {
	register()
	return &QueueMetrics{queuePath: queuePath}
}

func (m *QueueMetrics) IncApplicationsAdded() {
	applicationsAdded.WithLabelValues(m.queuePath).Inc()
}

func (m *QueueMetrics) IncApplicationsRejected(reason string) {
	applicationsRejected.WithLabelValues(m.queuePath, reason).Inc()
}

func (m *QueueMetrics) SetApplicationsRunning(value int) {
	applicationsRunning.WithLabelValues(m.queuePath).Set(float64(value))
}

func (m *QueueMetrics) IncContainersAllocated() {
	containersAllocated.WithLabelValues(m.queuePath).Inc()
}

func (m *QueueMetrics) IncContainersReleased() {
	containersReleased.WithLabelValues(m.queuePath).Inc()
}

func (m *QueueMetrics) SetUsedResource(memory int64) {
	usedResource.WithLabelValues(m.queuePath).Set(float64(memory))
}

func (m *QueueMetrics) SetUtilization(value float64) {
	utilization.WithLabelValues(m.queuePath).Set(value)
}

func (m *QueueMetrics) SetUsedCapacity(value float64) {
	usedCapacity.WithLabelValues(m.queuePath).Set(value)
}
