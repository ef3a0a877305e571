package hook

import (
	"fmt"
	"slices"
	"sort"
	"sync"
)

// Manager manages execution hooks with priority-based ordering.
type Manager struct {
	mu        sync.RWMutex
	preHooks  []PreExecuteHook
	postHooks []PostExecuteHook
}

// NewManager creates a new hook manager.
func NewManager() *Manager {
	return &Manager{}
}

// RegisterPre adds a pre-execute hook, replacing one with the same name.
func (m *Manager) RegisterPre(h PreExecuteHook) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if i := slices.IndexFunc(m.preHooks, func(e PreExecuteHook) bool { return e.Name() == h.Name() }); i >= 0 {
		m.preHooks[i] = h
	} else {
		m.preHooks = append(m.preHooks, h)
	}
	// Higher priority first.
	sort.SliceStable(m.preHooks, func(i, j int) bool {
		return m.preHooks[i].Priority() > m.preHooks[j].Priority()
	})
}

// RegisterPost adds a post-execute hook, replacing one with the same name.
func (m *Manager) RegisterPost(h PostExecuteHook) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if i := slices.IndexFunc(m.postHooks, func(e PostExecuteHook) bool { return e.Name() == h.Name() }); i >= 0 {
		m.postHooks[i] = h
	} else {
		m.postHooks = append(m.postHooks, h)
	}
	// Higher priority last, so it sees what lower ones did.
	sort.SliceStable(m.postHooks, func(i, j int) bool {
		return m.postHooks[i].Priority() < m.postHooks[j].Priority()
	})
}

// Register adds h as a pre hook, a post hook, or both.
func (m *Manager) Register(h Hook) {
	if pre, ok := h.(PreExecuteHook); ok {
		m.RegisterPre(pre)
	}
	if post, ok := h.(PostExecuteHook); ok {
		m.RegisterPost(post)
	}
}

// Unregister removes a hook by name from both lists.
func (m *Manager) Unregister(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	pre := len(m.preHooks)
	post := len(m.postHooks)
	m.preHooks = slices.DeleteFunc(m.preHooks, func(h PreExecuteHook) bool { return h.Name() == name })
	m.postHooks = slices.DeleteFunc(m.postHooks, func(h PostExecuteHook) bool { return h.Name() == name })
	return len(m.preHooks) != pre || len(m.postHooks) != post
}

// RunPre runs pre-execute hooks in priority order and stops at the first
// one that refuses.
func (m *Manager) RunPre(inv *Invocation) error {
	m.mu.RLock()
	hooks := slices.Clone(m.preHooks)
	m.mu.RUnlock()

	for _, h := range hooks {
		if err := h.PreExecute(inv); err != nil {
			return &CancelError{Hook: h.Name(), Err: err}
		}
	}
	return nil
}

// RunPost runs every post-execute hook from lowest to highest priority.
func (m *Manager) RunPost(inv *Invocation, out *Outcome) {
	m.mu.RLock()
	hooks := slices.Clone(m.postHooks)
	m.mu.RUnlock()

	for _, h := range hooks {
		h.PostExecute(inv, out)
	}
}

// PreHookNames returns the names of the pre-execute hooks in run order.
func (m *Manager) PreHookNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, len(m.preHooks))
	for i, h := range m.preHooks {
		names[i] = h.Name()
	}
	return names
}

// PostHookNames returns the names of the post-execute hooks in run order.
func (m *Manager) PostHookNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, len(m.postHooks))
	for i, h := range m.postHooks {
		names[i] = h.Name()
	}
	return names
}

// CancelError reports the pre-execute hook that cancelled an invocation.
type CancelError struct {
	Hook string
	Err  error
}

func (e *CancelError) Error() string {
	return fmt.Sprintf("cancelled by hook %s: %v", e.Hook, e.Err)
}

func (e *CancelError) Unwrap() error { return e.Err }
