package engine

import (
	"fmt"
	"strings"

	"github.com/Swind/go-job-scheduler/core"
)

// Category is the closed set of thread categories used by the engine.
type Category int8

const (
	// Logger runs the async log consumer. It must have exactly one worker.
	Logger Category = iota

	// GameObjectCategory runs per-tick logic components.
	GameObjectCategory
)

// Categories lists every engine category.
var Categories = []Category{Logger, GameObjectCategory}

func (c Category) String() string {
	switch c {
	case Logger:
		return "logger"
	case GameObjectCategory:
		return "game_object"
	default:
		return fmt.Sprintf("category(%d)", int8(c))
	}
}

// ParseCategory maps a configuration key to a Category.
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories {
		if strings.EqualFold(s, c.String()) {
			return c, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", core.ErrUnknownCategory, s)
}

// DefaultPoolDescriptor is one logger worker and four game-object workers.
func DefaultPoolDescriptor() core.Descriptors[Category] {
	return core.Descriptors[Category]{
		{Category: Logger, Threads: 1},
		{Category: GameObjectCategory, Threads: 4},
	}
}

// PoolDescriptorFromThreads builds a descriptor set from configured thread counts
// keyed by category name. The Logger category is pinned to one worker.
func PoolDescriptorFromThreads(threads map[string]int) (core.Descriptors[Category], error) {
	out := make(core.Descriptors[Category], 0, len(threads))
	for _, c := range Categories {
		n, ok := threads[c.String()]
		if !ok {
			return nil, fmt.Errorf("%w: category %q has no thread count", core.ErrInvalidDescriptor, c)
		}
		if c == Logger && n != 1 {
			return nil, fmt.Errorf("%w: category %q must have exactly 1 thread, got %d", core.ErrInvalidDescriptor, c, n)
		}
		out = append(out, core.CategoryDescriptor[Category]{Category: c, Threads: n})
	}
	for name := range threads {
		if _, err := ParseCategory(name); err != nil {
			return nil, err
		}
	}
	if err := core.ValidateDescriptors(out); err != nil {
		return nil, err
	}
	return out, nil
}
