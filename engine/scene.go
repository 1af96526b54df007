package engine

import (
	"sync"
	"sync/atomic"
)

// LogicFunc is a logic component: it runs once per tick on a GameObject worker.
// Different game objects run concurrently; one object's logic never overlaps itself.
type LogicFunc func(ctx *Context, obj *GameObject)

var gameObjectIDs atomic.Uint64

// GameObject is a scene entity with an optional logic component.
type GameObject struct {
	id    uint64
	name  string
	scene *Scene

	mu    sync.Mutex
	logic LogicFunc

	runs atomic.Int64
}

// ID returns the object's process-unique ID.
func (g *GameObject) ID() uint64 { return g.id }

// Name returns the object's name.
func (g *GameObject) Name() string { return g.name }

// Scene returns the scene the object was added to.
func (g *GameObject) Scene() *Scene { return g.scene }

// SetLogic attaches fn as the object's logic component, replacing any previous one.
func (g *GameObject) SetLogic(fn LogicFunc) {
	g.mu.Lock()
	g.logic = fn
	g.mu.Unlock()
}

// RemoveLogic detaches the logic component.
func (g *GameObject) RemoveLogic() {
	g.SetLogic(nil)
}

// Logic returns the current logic component, or nil.
func (g *GameObject) Logic() LogicFunc {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.logic
}

// Runs returns how many times the object's logic has run.
func (g *GameObject) Runs() int64 {
	return g.runs.Load()
}

// Scene is a thread-safe collection of game objects.
type Scene struct {
	mu      sync.RWMutex
	objects []*GameObject
}

// NewScene creates an empty scene.
func NewScene() *Scene {
	return &Scene{}
}

// AddGameObject creates a game object in the scene.
func (s *Scene) AddGameObject(name string) *GameObject {
	obj := &GameObject{
		id:    gameObjectIDs.Add(1),
		name:  name,
		scene: s,
	}
	s.mu.Lock()
	s.objects = append(s.objects, obj)
	s.mu.Unlock()
	return obj
}

// RemoveGameObject removes obj from the scene. It reports whether obj was present.
func (s *Scene) RemoveGameObject(obj *GameObject) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, o := range s.objects {
		if o == obj {
			s.objects = append(s.objects[:i], s.objects[i+1:]...)
			return true
		}
	}
	return false
}

// GameObjects returns a snapshot of the scene's objects.
func (s *Scene) GameObjects() []*GameObject {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*GameObject, len(s.objects))
	copy(out, s.objects)
	return out
}

// Len returns the number of objects in the scene.
func (s *Scene) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
