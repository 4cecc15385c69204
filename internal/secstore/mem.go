package secstore

import "sync"

// MemStore is an in-memory Store for tests and ephemeral use.
type MemStore struct {
	mu     sync.Mutex
	values map[string]string

	// FailWith, when set, is returned by every operation. Lets tests
	// exercise storage-failure paths.
	FailWith error
}

func NewMemStore() *MemStore {
	return &MemStore{values: map[string]string{}}
}

func (s *MemStore) Save(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailWith != nil {
		return s.FailWith
	}
	s.values[key] = value
	return nil
}

func (s *MemStore) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailWith != nil {
		return "", false, s.FailWith
	}
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *MemStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailWith != nil {
		return s.FailWith
	}
	delete(s.values, key)
	return nil
}

func (s *MemStore) DeleteAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailWith != nil {
		return s.FailWith
	}
	s.values = map[string]string{}
	return nil
}
