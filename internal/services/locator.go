// Package services provides a process-wide named service registry. Simulator
// components register themselves at construction and look each other up by
// name, which keeps wiring order flexible and avoids import cycles between
// the broker, portfolio, and data layers.
package services

import (
	"fmt"
	"sync"
)

// Locator is a named registry of services.
type Locator struct {
	mu       sync.RWMutex
	services map[string]any
}

// NewLocator creates an empty registry.
func NewLocator() *Locator {
	return &Locator{services: make(map[string]any)}
}

// Register stores a service under name, replacing any previous registration.
func (l *Locator) Register(name string, svc any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.services[name] = svc
}

// Get returns the service registered under name.
func (l *Locator) Get(name string) (any, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	svc, ok := l.services[name]
	if !ok {
		return nil, fmt.Errorf("service %q not registered", name)
	}
	return svc, nil
}

// Names returns the registered service names.
func (l *Locator) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	names := make([]string, 0, len(l.services))
	for name := range l.services {
		names = append(names, name)
	}
	return names
}

// Reset drops every registration. Intended for tests and for tearing down a
// finished simulation before starting the next one.
func (l *Locator) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.services = make(map[string]any)
}

// Resolve fetches a service by name and asserts its concrete type.
func Resolve[T any](l *Locator, name string) (T, error) {
	var zero T
	svc, err := l.Get(name)
	if err != nil {
		return zero, err
	}
	typed, ok := svc.(T)
	if !ok {
		return zero, fmt.Errorf("service %q is %T, not %T", name, svc, zero)
	}
	return typed, nil
}

var defaultLocator = NewLocator()

// Default returns the process-wide locator instance.
func Default() *Locator {
	return defaultLocator
}
