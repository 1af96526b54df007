package core

import (
	"fmt"
)

// MaxThreadsPerCategory caps the worker count of a single category.
// Values higher than this could lead to excessive goroutine creation.
const MaxThreadsPerCategory = 10000

// CategoryDescriptor declares how many workers a thread category gets.
type CategoryDescriptor[C comparable] struct {
	Category C
	Threads  int
}

// PoolDescriptor provides the fixed set of thread categories a Scheduler is built from.
type PoolDescriptor[C comparable] interface {
	CategoryDescriptors() []CategoryDescriptor[C]
}

// Descriptors is a literal PoolDescriptor.
//
//	core.Descriptors[Category]{
//		{Category: Logger, Threads: 1},
//		{Category: GameObject, Threads: 4},
//	}
type Descriptors[C comparable] []CategoryDescriptor[C]

// CategoryDescriptors returns a copy of d.
func (d Descriptors[C]) CategoryDescriptors() []CategoryDescriptor[C] {
	out := make([]CategoryDescriptor[C], len(d))
	copy(out, d)
	return out
}

// ValidateDescriptors checks a descriptor set. Duplicate categories are rejected
// rather than merged so that a misconfiguration never silently changes a worker count.
func ValidateDescriptors[C comparable](descriptors []CategoryDescriptor[C]) error {
	if len(descriptors) == 0 {
		return fmt.Errorf("%w: no thread categories declared", ErrInvalidDescriptor)
	}

	seen := make(map[C]struct{}, len(descriptors))
	for _, d := range descriptors {
		name := CategoryName(d.Category)
		if d.Threads < 1 {
			return fmt.Errorf("%w: category %q has %d threads, want at least 1", ErrInvalidDescriptor, name, d.Threads)
		}
		if d.Threads > MaxThreadsPerCategory {
			return fmt.Errorf("%w: category %q has %d threads, must not exceed %d", ErrInvalidDescriptor, name, d.Threads, MaxThreadsPerCategory)
		}
		if _, dup := seen[d.Category]; dup {
			return fmt.Errorf("%w: category %q declared more than once", ErrInvalidDescriptor, name)
		}
		seen[d.Category] = struct{}{}
	}
	return nil
}

// CategoryName renders a category for logs and metric labels.
// Categories implementing fmt.Stringer use their String method.
func CategoryName[C comparable](category C) string {
	return fmt.Sprint(category)
}
