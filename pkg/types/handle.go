package types

// Handle is either Unbound or Bound to a value. The value of a Bound handle
// is a snapshot; operations that change a record return a new handle rather
// than mutating the old one.
type Handle[T any] struct {
	value T
	bound bool
}

// Bind returns a handle bound to v.
func Bind[T any](v T) Handle[T] {
	return Handle[T]{value: v, bound: true}
}

// Unbound returns a handle bound to nothing.
func Unbound[T any]() Handle[T] {
	return Handle[T]{}
}

// IsBound reports whether the handle carries a value.
func (h Handle[T]) IsBound() bool {
	return h.bound
}

// Get returns the bound value and true, or the zero value and false.
func (h Handle[T]) Get() (T, bool) {
	return h.value, h.bound
}
