// Package cachetest provides an in-memory fiber.Storage for tests.
package cachetest

import (
	"errors"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
)

// ErrBroken is returned by every call once Break was called.
var ErrBroken = errors.New("cachetest: storage broken")

type entry struct {
	val     []byte
	expires time.Time
}

// Storage is a minimal in-memory fiber.Storage that records Set calls.
type Storage struct {
	mu     sync.Mutex
	data   map[string]entry
	sets   int
	broken bool
}

var _ fiber.Storage = (*Storage)(nil)

// New returns an empty storage.
func New() *Storage {
	return &Storage{data: make(map[string]entry)}
}

// Break makes every following call fail with ErrBroken.
func (s *Storage) Break() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.broken = true
}

// Sets returns how often Set succeeded.
func (s *Storage) Sets() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sets
}

// Get implements fiber.Storage. Missing and expired keys return nil, nil.
func (s *Storage) Get(key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.broken {
		return nil, ErrBroken
	}

	e, ok := s.data[key]
	if !ok || (!e.expires.IsZero() && time.Now().After(e.expires)) {
		return nil, nil
	}

	out := make([]byte, len(e.val))
	copy(out, e.val)

	return out, nil
}

// Set implements fiber.Storage.
func (s *Storage) Set(key string, val []byte, exp time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.broken {
		return ErrBroken
	}

	e := entry{val: append([]byte(nil), val...)}
	if exp > 0 {
		e.expires = time.Now().Add(exp)
	}

	s.data[key] = e
	s.sets++

	return nil
}

// Delete implements fiber.Storage.
func (s *Storage) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.broken {
		return ErrBroken
	}

	delete(s.data, key)

	return nil
}

// Reset implements fiber.Storage.
func (s *Storage) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = make(map[string]entry)

	return nil
}

// Close implements fiber.Storage.
func (s *Storage) Close() error {
	return nil
}
