package streamio

import "github.com/cairn-systems/streamio/status"

// Dep is the uniform "I hold a Writer by unique ownership, or by borrow"
// wrapper used at every composition boundary (the limiting writer's inner,
// the framed-Snappy writer's destination). It
// replaces the reference implementation's template-parameterized ownership
// holder; Go's generics express the same "one shape, parameterized over the
// held type" idea the reference gets from a C++ template.
type Dep[W Writer] struct {
	w      W
	owning bool
}

// Borrow wraps w without taking ownership: CloseIfOwned is a no-op and the
// caller remains responsible for w's lifetime.
func Borrow[W Writer](w W) Dep[W] {
	return Dep[W]{w: w, owning: false}
}

// Own wraps w, taking ownership: CloseIfOwned (and therefore the enclosing
// writer's Close) will close w.
func Own[W Writer](w W) Dep[W] {
	return Dep[W]{w: w, owning: true}
}

// Get returns the held writer.
func (d Dep[W]) Get() W {
	return d.w
}

// IsOwning reports whether this Dep owns w's lifetime.
func (d Dep[W]) IsOwning() bool {
	return d.owning
}

// CloseIfOwned closes the held writer iff this Dep owns it and returns that
// writer's latched status. It returns nil when the Dep only borrows the
// writer or when the owned writer closed healthy; callers check for nil
// before collecting it as an error.
func (d Dep[W]) CloseIfOwned() *status.Status {
	if !d.owning {
		return nil
	}
	d.w.Close()
	return d.w.Status()
}
