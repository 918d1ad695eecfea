package script

import "context"

// Store carries a value through a context for the duration of a run.
type Store struct {
	name string
}

type storeKey struct {
	store *Store
}

// NewStore creates a store. The name is informational.
func NewStore(name string) *Store {
	return &Store{name: name}
}

// Name returns the store name.
func (s *Store) Name() string { return s.name }

// Run calls fn with a context in which the store holds value.
func (s *Store) Run(ctx context.Context, value any, fn func(context.Context) (any, error)) (any, error) {
	return fn(context.WithValue(ctx, storeKey{s}, value))
}

// Value returns the store's value in ctx.
func (s *Store) Value(ctx context.Context) (any, bool) {
	v := ctx.Value(storeKey{s})
	if v == nil {
		return nil, false
	}
	return v, true
}
