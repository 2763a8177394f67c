package orchestrator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aescanero/agentflow/internal/application/registry"
	"github.com/aescanero/agentflow/pkg/domain"
)

var errBoom = errors.New("boom")

// echoUnit returns "<role>:<input>" and counts its invocations.
type echoUnit struct {
	role  string
	calls int32
	fail  bool
}

func (u *echoUnit) Execute(ctx context.Context, input string) (string, error) {
	atomic.AddInt32(&u.calls, 1)
	if u.fail {
		return "", errBoom
	}
	return u.role + ":" + input, nil
}

func (u *echoUnit) Calls() int {
	return int(atomic.LoadInt32(&u.calls))
}

// newTestRegistry registers an echo unit per role. Roles listed in failing
// return errBoom.
func newTestRegistry(t *testing.T, roles []string, failing ...string) (*registry.Registry, map[string]*echoUnit) {
	t.Helper()
	fail := make(map[string]bool, len(failing))
	for _, r := range failing {
		fail[r] = true
	}

	reg := registry.New()
	units := make(map[string]*echoUnit, len(roles))
	for _, role := range roles {
		u := &echoUnit{role: role, fail: fail[role]}
		if err := reg.Register(role, u); err != nil {
			t.Fatalf("register %s: %v", role, err)
		}
		units[role] = u
	}
	return reg, units
}

// recordingMetrics is a MetricsCollector that keeps every call.
type recordingMetrics struct {
	mu          sync.Mutex
	workflows   []string
	units       []string
	confidences []float64
	poolUpdates int
}

func (m *recordingMetrics) RecordWorkflow(mode, status string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.workflows = append(m.workflows, mode+"/"+status)
}

func (m *recordingMetrics) RecordUnitExecuted(role, status string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.units = append(m.units, role+"/"+status)
}

func (m *recordingMetrics) ObserveConfidence(_ string, confidence float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.confidences = append(m.confidences, confidence)
}

func (m *recordingMetrics) RecordWorkerPoolStatus(_, _, _ int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.poolUpdates++
}

func (m *recordingMetrics) snapshot() (workflows, units []string, confidences []float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.workflows...),
		append([]string(nil), m.units...),
		append([]float64(nil), m.confidences...)
}

func keys(trace domain.Trace) []string {
	out := make([]string, len(trace))
	for i, rec := range trace {
		out[i] = rec.Key()
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
