package persist

import "context"

// Persister converts typed state to bytes and keeps it in a Store.
type Persister[T any] struct {
	store  Store
	encode func(T) ([]byte, error)
	decode func([]byte) (T, error)
}

// NewPersister creates a persister over store using the given conversions.
func NewPersister[T any](store Store, encode func(T) ([]byte, error), decode func([]byte) (T, error)) *Persister[T] {
	return &Persister[T]{
		store:  store,
		encode: encode,
		decode: decode,
	}
}

// Save encodes state and stores it under name.
func (p *Persister[T]) Save(ctx context.Context, name string, state T) error {
	data, err := p.encode(state)
	if err != nil {
		return err
	}

	return p.store.Put(ctx, name, data)
}

// Load reads and decodes the state stored under name.
func (p *Persister[T]) Load(ctx context.Context, name string) (T, error) {
	var zero T

	data, err := p.store.Get(ctx, name)
	if err != nil {
		return zero, err
	}

	return p.decode(data)
}

// Store returns the underlying store.
func (p *Persister[T]) Store() Store {
	return p.store
}
