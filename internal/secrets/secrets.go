// Package secrets supplies the current webhook shared secret to the
// verification path. The lookup is behind an interface so rotation and
// multi-tenant secrets never require global state or a restart.
package secrets

import (
	"context"
	"errors"
	"sync/atomic"
)

var ErrNoSecret = errors.New("no webhook secret available")

type Source interface {
	CurrentSecret(ctx context.Context) (string, error)
}

// StaticSource returns a fixed secret, typically seeded from configuration.
type StaticSource struct {
	secret string
}

func NewStaticSource(secret string) *StaticSource {
	return &StaticSource{secret: secret}
}

func (s *StaticSource) CurrentSecret(ctx context.Context) (string, error) {
	if s.secret == "" {
		return "", ErrNoSecret
	}
	return s.secret, nil
}

// RotatableSource holds a secret that can be swapped at runtime. Reads and
// rotations are safe for concurrent use.
type RotatableSource struct {
	current atomic.Value
}

func NewRotatableSource(initial string) *RotatableSource {
	s := &RotatableSource{}
	s.current.Store(initial)
	return s
}

func (s *RotatableSource) CurrentSecret(ctx context.Context) (string, error) {
	secret, _ := s.current.Load().(string)
	if secret == "" {
		return "", ErrNoSecret
	}
	return secret, nil
}

func (s *RotatableSource) Rotate(secret string) {
	s.current.Store(secret)
}
