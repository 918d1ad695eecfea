package resource

// Ref is an optional weak handle. The zero value is empty.
type Ref[T any] struct {
	value T
	valid bool
}

// Reset points the handle at value.
func (r *Ref[T]) Reset(value T) {
	r.value = value
	r.valid = true
}

// Clear empties the handle.
func (r *Ref[T]) Clear() {
	var zero T
	r.value = zero
	r.valid = false
}

// Get returns the referenced value and whether the handle is set.
func (r *Ref[T]) Get() (T, bool) {
	return r.value, r.valid
}

// IsEmpty reports whether the handle is unset.
func (r *Ref[T]) IsEmpty() bool {
	return !r.valid
}
