package app

import (
	"encoding/json"
	"sync"

	"github.com/dkeye/heartlink/internal/core"
	"github.com/dkeye/heartlink/internal/domain"
)

type mockConn struct {
	mu      sync.Mutex
	frames  []core.Frame
	closed  bool
	sendErr error
}

func (m *mockConn) TrySend(f core.Frame) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return domain.ErrConnClosed
	}
	if m.sendErr != nil {
		return m.sendErr
	}
	m.frames = append(m.frames, append(core.Frame(nil), f...))
	return nil
}

func (m *mockConn) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
}

func (m *mockConn) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// events decodes every received frame.
func (m *mockConn) events() []map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]map[string]any, 0, len(m.frames))
	for _, f := range m.frames {
		var ev map[string]any
		if err := json.Unmarshal(f, &ev); err == nil {
			out = append(out, ev)
		}
	}
	return out
}

func (m *mockConn) types() []string {
	var out []string
	for _, ev := range m.events() {
		t, _ := ev["type"].(string)
		out = append(out, t)
	}
	return out
}

func (m *mockConn) last() map[string]any {
	evs := m.events()
	if len(evs) == 0 {
		return nil
	}
	return evs[len(evs)-1]
}
