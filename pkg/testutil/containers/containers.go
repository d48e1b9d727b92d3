//go:build integration

// Package containers starts the Postgres and Redis instances integration
// suites run against. Each is started once per test binary and shared.
package containers

import (
	"sync"
	"testing"
)

// Manager hands out the shared instances. Ryuk removes them when the test
// process exits, so suites never terminate them.
type Manager struct {
	mu       sync.Mutex
	postgres *PostgresContainer
	redis    *RedisContainer
}

var manager = sync.OnceValue(func() *Manager { return &Manager{} })

func GetManager() *Manager {
	return manager()
}

func (m *Manager) GetPostgres(t *testing.T) *PostgresContainer {
	t.Helper()
	return lazy(m, &m.postgres, func() *PostgresContainer { return NewPostgresContainer(t) })
}

func (m *Manager) GetRedis(t *testing.T) *RedisContainer {
	t.Helper()
	return lazy(m, &m.redis, func() *RedisContainer { return NewRedisContainer(t) })
}

func lazy[T any](m *Manager, slot **T, start func() *T) *T {
	m.mu.Lock()
	defer m.mu.Unlock()
	if *slot == nil {
		*slot = start()
	}
	return *slot
}
