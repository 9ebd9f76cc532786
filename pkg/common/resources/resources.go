/*
Copyright 2019 Cloudera, Inc.  All rights reserved.

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

package resources

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/leafq/scheduler-core/pkg/log"
)

// Resource is the single fungible quantity the leaf queue core allocates:
// an integer number of memory units. A nil *Resource behaves like the zero
// value everywhere in this package.
type Resource struct {
	Memory int64
}

// NONE is the sentinel zero resource. It is never mutated; callers that
// want a fresh zero value should use New(0) or the zero value directly.
var NONE = &Resource{}

// New builds a Resource with the given memory quantity.
func New(memory int64) *Resource {
	return &Resource{Memory: memory}
}

func (r *Resource) String() string {
	if r == nil {
		return "<nil>"
	}
	return fmt.Sprintf("memory:%d", r.Memory)
}

// Clone returns a copy of the resource. A nil receiver clones to a zero
// resource, never to nil, so callers can always mutate the result safely.
func (r *Resource) Clone() *Resource {
	if r == nil {
		return New(0)
	}
	return New(r.Memory)
}

func memOf(r *Resource) int64 {
	if r == nil {
		return 0
	}
	return r.Memory
}

// Add returns a new resource holding left+right. Nil operands are treated
// as zero.
func Add(left, right *Resource) *Resource {
	return New(memOf(left) + memOf(right))
}

// Sub returns a new resource holding left-right. The result may be
// negative; callers that must guard against that use SubErrorNegative.
func Sub(left, right *Resource) *Resource {
	return New(memOf(left) - memOf(right))
}

// SubErrorNegative behaves like Sub but returns an error, instead of a
// negative resource, when the subtraction would drive memory below zero.
// The zero resource is still returned alongside the error so callers that
// ignore the error do not panic on a nil dereference.
func SubErrorNegative(left, right *Resource, what string) (*Resource, error) {
	result := Sub(left, right)
	if result.Memory < 0 {
		log.Logger().Warn("resource went negative",
			zap.String("what", what),
			zap.Int64("left", memOf(left)),
			zap.Int64("right", memOf(right)))
		return New(0), fmt.Errorf("%s: resource went negative, left %v right %v", what, left, right)
	}
	return result, nil
}

// GreaterThan reports whether larger strictly exceeds smaller.
func GreaterThan(larger, smaller *Resource) bool {
	return memOf(larger) > memOf(smaller)
}

// FitIn reports whether smaller can be carved out of larger without
// driving it negative.
func FitIn(larger, smaller *Resource) bool {
	return memOf(larger) >= memOf(smaller)
}

// IsZero reports whether the resource holds no memory. A nil resource is
// zero.
func IsZero(r *Resource) bool {
	return memOf(r) == 0
}

// StrictlyGreaterThanZero reports whether the resource holds a positive
// quantity of memory.
func StrictlyGreaterThanZero(r *Resource) bool {
	return memOf(r) > 0
}

// DivideAndCeil divides a by b, rounding up, defensively returning 0 when
// b is zero instead of panicking on an integer divide-by-zero.
func DivideAndCeil(a, b int64) int64 {
	if b == 0 {
		log.Logger().Debug("divideAndCeil called with zero divisor",
			zap.Int64("a", a))
		return 0
	}
	return (a + (b - 1)) / b
}
