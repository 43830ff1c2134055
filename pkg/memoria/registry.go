package memoria

import (
	"errors"
	"sync"
)

// Registry lazily opens and caches the stores of every namespace under one
// root, for servers that address namespaces per request. All stores share
// the registry's options.
type Registry struct {
	root string
	opts []Option

	mu     sync.Mutex
	stores map[string]*Store
	closed bool
}

// NewRegistry returns a Registry over root.
func NewRegistry(root string, opts ...Option) *Registry {
	return &Registry{
		root:   root,
		opts:   opts,
		stores: make(map[string]*Store),
	}
}

// Root returns the directory holding the namespaces.
func (r *Registry) Root() string {
	return r.root
}

// Get returns the store of namespace, opening and initializing it on first
// use.
func (r *Registry) Get(namespace string) (*Store, error) {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if err := ValidateNamespace(namespace); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, errors.New("registry is closed")
	}
	if s, ok := r.stores[namespace]; ok {
		return s, nil
	}

	s, err := Open(r.root, namespace, r.opts...)
	if err != nil {
		return nil, err
	}
	r.stores[namespace] = s
	return s, nil
}

// Open returns the namespaces opened so far.
func (r *Registry) Open() []*Store {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*Store, 0, len(r.stores))
	for _, s := range r.stores {
		out = append(out, s)
	}
	return out
}

// Namespaces lists every initialized namespace under the root.
func (r *Registry) Namespaces() ([]string, error) {
	return Namespaces(r.root)
}

// Close closes every opened store.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for ns, s := range r.stores {
		errs = append(errs, s.Close())
		delete(r.stores, ns)
	}
	r.closed = true
	return errors.Join(errs...)
}
