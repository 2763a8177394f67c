package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aescanero/agentflow/internal/application/registry"
	eventsmemory "github.com/aescanero/agentflow/pkg/adapters/events/memory"
	storagememory "github.com/aescanero/agentflow/pkg/adapters/storage/memory"
	"github.com/aescanero/agentflow/pkg/domain"
	"go.uber.org/zap/zaptest"
)

type managerFixture struct {
	manager *Manager
	bus     *eventsmemory.InMemoryEventBus
	storage *storagememory.InMemoryReportStorage
	metrics *recordingMetrics
	units   map[string]*echoUnit
}

func newManagerFixture(t *testing.T, reg *registry.Registry, units map[string]*echoUnit) *managerFixture {
	t.Helper()
	f := &managerFixture{
		bus:     eventsmemory.NewInMemoryEventBus(),
		storage: storagememory.NewInMemoryReportStorage(),
		metrics: &recordingMetrics{},
		units:   units,
	}
	t.Cleanup(func() { _ = f.bus.Close() })

	f.manager = NewManager(ManagerConfig{
		Registry:          reg,
		EventBus:          f.bus,
		Storage:           f.storage,
		Metrics:           f.metrics,
		Logger:            zaptest.NewLogger(t),
		PipelineThreshold: DefaultSuccessThreshold,
		GraphThreshold:    DefaultSuccessThreshold,
	})
	return f
}

// collectEvents subscribes to both topics and returns a function that waits
// for n events.
func collectEvents(t *testing.T, bus *eventsmemory.InMemoryEventBus) func(n int) []domain.Event {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	var mu sync.Mutex
	var events []domain.Event
	handler := func(_ context.Context, e domain.Event) error {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
		return nil
	}
	_ = bus.Subscribe(ctx, domain.TopicWorkflowEvents, handler)
	_ = bus.Subscribe(ctx, domain.TopicUnitEvents, handler)

	return func(n int) []domain.Event {
		deadline := time.Now().Add(2 * time.Second)
		for {
			mu.Lock()
			got := len(events)
			mu.Unlock()
			if got >= n || time.Now().After(deadline) {
				break
			}
			time.Sleep(5 * time.Millisecond)
		}
		mu.Lock()
		defer mu.Unlock()
		return append([]domain.Event(nil), events...)
	}
}

func countType(events []domain.Event, typ domain.EventType) int {
	n := 0
	for _, e := range events {
		if e.Type == typ {
			n++
		}
	}
	return n
}

func TestManager_RunPipeline(t *testing.T) {
	roles := []string{"planner", "retriever", "analyst", "validator"}
	reg, units := newTestRegistry(t, roles, "analyst")
	f := newManagerFixture(t, reg, units)
	wait := collectEvents(t, f.bus)

	steps := []domain.Step{
		{Role: "planner", Input: "p"},
		{Role: "retriever", Input: "r"},
		{Role: "analyst", Input: "a"},
		{Role: "validator", Input: "v"},
	}
	run, err := f.manager.RunPipeline(context.Background(), "query", steps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if run.ID == "" || run.Report.RunID != run.ID {
		t.Fatalf("run id not propagated: %+v", run)
	}
	if run.Result.Status != domain.WorkflowStatusSuccess || run.Result.ConfidenceLevel != domain.ConfidenceMedium {
		t.Fatalf("unexpected verdict %s/%s", run.Result.Status, run.Result.ConfidenceLevel)
	}
	if run.Report.Summary.AverageConfidence != "72.5%" {
		t.Errorf("unexpected formatted average %s", run.Report.Summary.AverageConfidence)
	}

	stored, err := f.manager.GetReport(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("report not stored: %v", err)
	}
	if stored.Query != "query" || len(stored.Trace) != 4 {
		t.Fatalf("unexpected stored report %+v", stored)
	}

	workflows, unitMetrics, confidences := f.metrics.snapshot()
	if len(workflows) != 1 || workflows[0] != "pipeline/success" {
		t.Errorf("unexpected workflow metrics %v", workflows)
	}
	if len(unitMetrics) != 4 || unitMetrics[2] != "analyst/failed" {
		t.Errorf("unexpected unit metrics %v", unitMetrics)
	}
	if len(confidences) != 1 {
		t.Errorf("expected one confidence observation, got %v", confidences)
	}

	// started + 4 units + completed
	events := wait(6)
	if countType(events, domain.EventTypeWorkflowStarted) != 1 ||
		countType(events, domain.EventTypeWorkflowCompleted) != 1 ||
		countType(events, domain.EventTypeUnitCompleted) != 3 ||
		countType(events, domain.EventTypeUnitFailed) != 1 {
		t.Fatalf("unexpected events: %+v", events)
	}
	for _, e := range events {
		if e.RunID != run.ID {
			t.Fatalf("event for foreign run %s", e.RunID)
		}
	}

	if f.manager.ActiveRuns() != 0 {
		t.Fatal("run must be released after completion")
	}
}

func TestManager_RunPipelineUnknownRole(t *testing.T) {
	reg, units := newTestRegistry(t, []string{"planner"})
	f := newManagerFixture(t, reg, units)

	_, err := f.manager.RunPipeline(context.Background(), "q",
		[]domain.Step{{Role: "ghost", Input: "x"}}, WithRunID("run-err"))
	if !errors.Is(err, domain.ErrUnknownRole) {
		t.Fatalf("expected ErrUnknownRole, got %v", err)
	}

	report, err := f.manager.GetReport(context.Background(), "run-err")
	if err != nil {
		t.Fatalf("error report not stored: %v", err)
	}
	if report.Status != domain.WorkflowStatusError || report.ErrorMessage == "" {
		t.Fatalf("unexpected error report %+v", report)
	}

	workflows, _, _ := f.metrics.snapshot()
	if len(workflows) != 1 || workflows[0] != "pipeline/error" {
		t.Fatalf("unexpected workflow metrics %v", workflows)
	}
}

func TestManager_EmptyPipelineIsError(t *testing.T) {
	reg, units := newTestRegistry(t, nil)
	f := newManagerFixture(t, reg, units)

	if _, err := f.manager.RunPipeline(context.Background(), "q", nil); !errors.Is(err, domain.ErrEmptyTrace) {
		t.Fatalf("expected ErrEmptyTrace, got %v", err)
	}
}

func TestManager_RunGraph(t *testing.T) {
	reg, units := newTestRegistry(t, []string{"lead", "expert"})
	f := newManagerFixture(t, reg, units)

	g, err := f.manager.BuildGraph(domain.GraphDefinition{
		Nodes: []domain.NodeDefinition{{ID: "lead"}, {ID: "expert"}},
		Edges: []domain.Edge{{From: "lead", To: "expert"}},
		Entry: "lead",
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	run, err := f.manager.RunGraph(context.Background(), "fusion", g)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !equalStrings(run.Result.Order, []string{"lead", "expert"}) {
		t.Fatalf("unexpected order %v", run.Result.Order)
	}
	if run.Result.Status != domain.WorkflowStatusSuccess || run.Result.ConfidenceLevel != domain.ConfidenceHigh {
		t.Fatalf("unexpected verdict %s/%s", run.Result.Status, run.Result.ConfidenceLevel)
	}
	if units["expert"].Calls() != 1 || run.Result.Trace[1].Output.Content() != "expert:fusion" {
		t.Fatalf("expert did not receive the query: %+v", run.Result.Trace)
	}
}

func TestManager_BuildGraphErrors(t *testing.T) {
	reg, units := newTestRegistry(t, []string{"lead"})
	f := newManagerFixture(t, reg, units)

	_, err := f.manager.BuildGraph(domain.GraphDefinition{
		Nodes: []domain.NodeDefinition{{ID: "n", Role: "ghost"}},
		Entry: "n",
	})
	if !errors.Is(err, domain.ErrUnknownRole) {
		t.Fatalf("expected ErrUnknownRole, got %v", err)
	}

	_, err = f.manager.BuildGraph(domain.GraphDefinition{
		Nodes: []domain.NodeDefinition{{ID: "lead"}},
		Edges: []domain.Edge{{From: "lead", To: "lead"}},
		Entry: "lead",
	})
	if !errors.Is(err, domain.ErrCyclicGraph) {
		t.Fatalf("expected ErrCyclicGraph, got %v", err)
	}
	if units["lead"].Calls() != 0 {
		t.Fatal("rejected graphs must not run")
	}
}

func TestManager_CancelRun(t *testing.T) {
	started := make(chan struct{})
	reg := registry.New()
	_ = reg.Register("slow", domain.UnitFunc(func(ctx context.Context, _ string) (string, error) {
		close(started)
		<-ctx.Done()
		return "", ctx.Err()
	}))
	f := newManagerFixture(t, reg, nil)

	type result struct {
		run *Run
		err error
	}
	done := make(chan result, 1)
	go func() {
		run, err := f.manager.RunPipeline(context.Background(), "q",
			[]domain.Step{{Role: "slow", Input: "x"}}, WithRunID("run-cancel"))
		done <- result{run, err}
	}()

	<-started
	if _, err := f.manager.RunPipeline(context.Background(), "q", nil, WithRunID("run-cancel")); !errors.Is(err, domain.ErrRunInProgress) {
		t.Fatalf("expected ErrRunInProgress for duplicate id, got %v", err)
	}
	if err := f.manager.CancelRun(context.Background(), "run-cancel"); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	select {
	case res := <-done:
		if res.err != nil {
			t.Fatalf("cancelled run still completes, got %v", res.err)
		}
		rec := res.run.Result.Trace[0]
		if rec.Succeeded() || !errors.Is(rec.Err, context.Canceled) {
			t.Fatalf("expected cancelled unit record, got %+v", rec)
		}
		if res.run.Result.Status != domain.WorkflowStatusNeedsReview {
			t.Fatalf("expected needs_review, got %s", res.run.Result.Status)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("run did not finish after cancel")
	}

	if err := f.manager.CancelRun(context.Background(), "run-cancel"); !errors.Is(err, domain.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound after completion, got %v", err)
	}
}

func TestManager_ListAndDeleteReports(t *testing.T) {
	reg, units := newTestRegistry(t, []string{"lead"})
	f := newManagerFixture(t, reg, units)

	run, err := f.manager.RunPipeline(context.Background(), "q", []domain.Step{{Role: "lead", Input: "x"}})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	reports, err := f.manager.ListReports(context.Background())
	if err != nil || len(reports) != 1 {
		t.Fatalf("expected one report, got %d (err=%v)", len(reports), err)
	}

	if err := f.manager.DeleteReport(context.Background(), run.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.manager.GetReport(context.Background(), run.ID); !errors.Is(err, domain.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
	if err := f.manager.DeleteReport(context.Background(), run.ID); !errors.Is(err, domain.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound deleting twice, got %v", err)
	}
}
