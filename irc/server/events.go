package server

import (
	"log"
	"reflect"
	"runtime"
	"sort"
	"sync"
)

// SessionEvent describes one lifecycle transition of a session.
type SessionEvent struct {
	Client *Client

	// Reason carries the quit reason; it is empty on registration.
	Reason string
}

// SessionHook observes a session lifecycle transition. Returning an error
// logs the failure; it never blocks the transition itself.
type SessionHook func(ev SessionEvent) error

type sessionHookInfo struct {
	name     string
	hook     SessionHook
	priority int64
}

// HookRegistry holds session hooks and runs them in priority order, lower
// values first.
type HookRegistry struct {
	mu    sync.RWMutex
	hooks []sessionHookInfo
}

// Register adds a hook with default priority.
func (r *HookRegistry) Register(hook SessionHook) {
	r.RegisterWithPriority(hook, 0)
}

// RegisterWithPriority adds a hook with the given priority. Lower priority
// values run first, like Unix nice.
func (r *HookRegistry) RegisterWithPriority(hook SessionHook, priority int64) {
	name := runtime.FuncForPC(reflect.ValueOf(hook).Pointer()).Name()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.hooks = append(r.hooks, sessionHookInfo{
		name:     name,
		hook:     hook,
		priority: priority,
	})
}

// Run executes every hook with the event. A failing hook is logged and the
// rest still run.
func (r *HookRegistry) Run(ev SessionEvent) {
	r.mu.RLock()
	hooks := append([]sessionHookInfo(nil), r.hooks...)
	r.mu.RUnlock()

	sort.SliceStable(hooks, func(i, j int) bool {
		return hooks[i].priority < hooks[j].priority
	})

	for _, info := range hooks {
		if err := info.hook(ev); err != nil {
			log.Printf("Session hook %s failed: %v", info.name, err)
		}
	}
}

// Count returns the number of registered hooks.
func (r *HookRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.hooks)
}
