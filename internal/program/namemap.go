package program

import (
	"strings"
	"sync"
)

// NameMap is a registry with exact lookup and a lazily filled lower case fallback.
// It is safe for concurrent use.
type NameMap[T any] struct {
	mu    sync.RWMutex
	exact map[string]T
	lower map[string]T
	order []string
}

func NewNameMap[T any]() *NameMap[T] {
	return &NameMap[T]{exact: make(map[string]T)}
}

// Put registers v under name and reports false when the name is taken, ignoring case.
func (m *NameMap[T]) Put(name string, v T) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.exact[name]; ok {
		return false
	}
	key := strings.ToLower(name)
	for _, n := range m.order {
		if strings.ToLower(n) == key {
			return false
		}
	}
	m.exact[name] = v
	m.order = append(m.order, name)
	if m.lower != nil {
		m.lower[key] = v
	}
	return true
}

// Replace registers v under name, dropping an existing entry of the same name.
func (m *NameMap[T]) Replace(name string, v T) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := strings.ToLower(name)
	for i, n := range m.order {
		if strings.ToLower(n) == key {
			delete(m.exact, n)
			m.order = append(m.order[:i:i], m.order[i+1:]...)
			break
		}
	}
	m.exact[name] = v
	m.order = append(m.order, name)
	if m.lower != nil {
		m.lower[key] = v
	}
}

func (m *NameMap[T]) Get(name string) (T, bool) {
	m.mu.RLock()
	v, ok := m.exact[name]
	lower := m.lower
	m.mu.RUnlock()
	if ok {
		return v, true
	}

	key := strings.ToLower(name)
	if lower == nil {
		m.mu.Lock()
		if m.lower == nil {
			m.lower = make(map[string]T, len(m.exact))
			for n, v := range m.exact {
				m.lower[strings.ToLower(n)] = v
			}
		}
		v, ok = m.lower[key]
		m.mu.Unlock()
		return v, ok
	}
	m.mu.RLock()
	v, ok = m.lower[key]
	m.mu.RUnlock()
	return v, ok
}

// Names lists registered names in registration order.
func (m *NameMap[T]) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.order...)
}

func (m *NameMap[T]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.exact)
}
