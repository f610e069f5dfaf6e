package app

import (
	"fmt"
	"sync"

	"github.com/dkeye/heartlink/internal/core"
	"github.com/dkeye/heartlink/internal/protocol"
	"github.com/rs/zerolog/log"
)

// Registry maps a participant key to its single live connection.
// Registering a key again replaces the previous connection; the old one is
// orphaned and no longer reachable through the registry.
type Registry[K comparable] struct {
	module string

	mu    sync.RWMutex
	conns map[K]core.SignalConnection
}

func NewRegistry[K comparable](module string) *Registry[K] {
	return &Registry[K]{
		module: module,
		conns:  make(map[K]core.SignalConnection),
	}
}

func (r *Registry[K]) Register(k K, conn core.SignalConnection) {
	r.mu.Lock()
	_, replaced := r.conns[k]
	r.conns[k] = conn
	r.mu.Unlock()
	log.Info().Str("module", r.module).Str("key", fmt.Sprint(k)).Bool("replaced", replaced).Msg("registered connection")
}

// Unregister removes k. Safe to call for absent keys.
func (r *Registry[K]) Unregister(k K) {
	r.mu.Lock()
	_, ok := r.conns[k]
	delete(r.conns, k)
	r.mu.Unlock()
	if ok {
		log.Info().Str("module", r.module).Str("key", fmt.Sprint(k)).Msg("unregistered connection")
	}
}

// Release removes k only while it is still bound to conn, so a stale
// connection closing cannot evict the one that replaced it.
func (r *Registry[K]) Release(k K, conn core.SignalConnection) bool {
	r.mu.Lock()
	cur, ok := r.conns[k]
	if ok && cur == conn {
		delete(r.conns, k)
	} else {
		ok = false
	}
	r.mu.Unlock()
	if ok {
		log.Info().Str("module", r.module).Str("key", fmt.Sprint(k)).Msg("released connection")
	}
	return ok
}

func (r *Registry[K]) Lookup(k K) (core.SignalConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.conns[k]
	return conn, ok
}

func (r *Registry[K]) IsOnline(k K) bool {
	_, ok := r.Lookup(k)
	return ok
}

// Send writes f to k's connection. A failed write marks the connection dead:
// it is released and closed, and Send reports false.
func (r *Registry[K]) Send(k K, f core.Frame) bool {
	conn, ok := r.Lookup(k)
	if !ok {
		return false
	}
	if err := conn.TrySend(f); err != nil {
		log.Warn().Err(err).Str("module", r.module).Str("key", fmt.Sprint(k)).Msg("send failed, dropping connection")
		r.Release(k, conn)
		conn.Close()
		return false
	}
	return true
}

// SendEvent encodes v and sends it to k.
func (r *Registry[K]) SendEvent(k K, v any) bool {
	f, err := protocol.Encode(v)
	if err != nil {
		log.Error().Err(err).Str("module", r.module).Msg("encode event")
		return false
	}
	return r.Send(k, f)
}

// Online returns a snapshot of the registered keys.
func (r *Registry[K]) Online() []K {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]K, 0, len(r.conns))
	for k := range r.conns {
		out = append(out, k)
	}
	return out
}

func (r *Registry[K]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
