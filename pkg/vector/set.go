package vector

import (
	"errors"
	"fmt"
)

// Set is the four collections of one namespace.
type Set struct {
	collections map[string]*Collection
}

// OpenSet opens every collection in Names under dir.
func OpenSet(dir string, opts ...CollectionOption) (*Set, error) {
	s := &Set{collections: make(map[string]*Collection, len(Names))}
	for _, name := range Names {
		c, err := OpenCollection(dir, name, opts...)
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		s.collections[name] = c
	}
	return s, nil
}

// Get returns the named collection.
func (s *Set) Get(name string) (*Collection, error) {
	c, ok := s.collections[name]
	if !ok {
		return nil, fmt.Errorf("unknown collection %q", name)
	}
	return c, nil
}

func (s *Set) Episodic() *Collection { return s.collections[Episodic] }
func (s *Set) Branch() *Collection   { return s.collections[Branch] }
func (s *Set) Raw() *Collection      { return s.collections[Raw] }
func (s *Set) RawChunk() *Collection { return s.collections[RawChunk] }

// Init writes the file of every collection that has none yet.
func (s *Set) Init() error {
	for _, name := range Names {
		if err := s.collections[name].Init(); err != nil {
			return err
		}
	}
	return nil
}

// Close releases every accelerated index.
func (s *Set) Close() error {
	var errs []error
	for _, name := range Names {
		if c, ok := s.collections[name]; ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}
