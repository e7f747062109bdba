package app

import (
	"context"
	"fmt"
	"reflect"
	"sync"
)

// resources keeps one value per type, in insertion order so they close in reverse
type resources struct {
	mu    sync.RWMutex
	byKey map[reflect.Type]any
	order []reflect.Type
}

func newResources() *resources {
	return &resources{byKey: make(map[reflect.Type]any)}
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

func (r *resources) insert(key reflect.Type, v any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byKey[key]; !ok {
		r.order = append(r.order, key)
	}
	r.byKey[key] = v
}

func (r *resources) get(key reflect.Type) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.byKey[key]
	return v, ok
}

func (r *resources) remove(key reflect.Type) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byKey[key]; !ok {
		return
	}
	delete(r.byKey, key)
	for i, k := range r.order {
		if k == key {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

func (r *resources) closeAll(ctx context.Context) (errs []error) {
	r.mu.RLock()
	order := append([]reflect.Type(nil), r.order...)
	r.mu.RUnlock()
	for i := len(order) - 1; i >= 0; i-- {
		v, ok := r.get(order[i])
		if !ok {
			continue
		}
		if c, ok := v.(ResourceCloser); ok {
			if err := c.Close(ctx); err != nil {
				errs = append(errs, fmt.Errorf("resource %s close: %w", order[i], err))
			}
		}
	}
	return
}

// InsertResource stores v as the resource of type T, replacing the previous one
func InsertResource[T any](a *App, v T) {
	a.resources.insert(typeOf[T](), v)
}

// Resource returns the resource of type T
func Resource[T any](a *App) (v T, ok bool) {
	r, ok := a.resources.get(typeOf[T]())
	if !ok {
		return v, false
	}
	// a nil interface resource is stored as untyped nil
	v, _ = r.(T)
	return v, true
}

// MustResource is like Resource, but panics when the resource is missing
func MustResource[T any](a *App) T {
	v, ok := Resource[T](a)
	if !ok {
		panic(fmt.Errorf("resource %s not found", typeOf[T]()))
	}
	return v
}

// HasResource reports whether a resource of type T exists
func HasResource[T any](a *App) bool {
	_, ok := a.resources.get(typeOf[T]())
	return ok
}

// RemoveResource drops the resource of type T without closing it
func RemoveResource[T any](a *App) {
	a.resources.remove(typeOf[T]())
}

// Commands queues resource changes made by a system
type Commands struct {
	ops []func(r *resources)
}

// InsertResource queues an insert keyed by the dynamic type of v,
// so Resource[*Foo] finds a value inserted as &Foo{}
func (c *Commands) InsertResource(v any) {
	key := reflect.TypeOf(v)
	if key == nil {
		panic("can't insert nil resource")
	}
	c.ops = append(c.ops, func(r *resources) { r.insert(key, v) })
}

// RemoveResource queues removal of the resource with the dynamic type of v
func (c *Commands) RemoveResource(v any) {
	key := reflect.TypeOf(v)
	c.ops = append(c.ops, func(r *resources) { r.remove(key) })
}

// Len returns the number of queued commands
func (c *Commands) Len() int {
	return len(c.ops)
}

func (c *Commands) apply(r *resources) {
	for _, op := range c.ops {
		op(r)
	}
	c.ops = nil
}
