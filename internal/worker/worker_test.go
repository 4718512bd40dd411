package worker

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/shaiso/staralign/internal/domain"
	"github.com/shaiso/staralign/internal/mq"
	"github.com/shaiso/staralign/internal/orchestrator"
)

// fakeExecutor записывает полученные runs и выполняет fn.
type fakeExecutor struct {
	mu   sync.Mutex
	runs []*domain.Run
	fn   func(run *domain.Run) error
}

func (e *fakeExecutor) Execute(_ context.Context, run *domain.Run) error {
	e.mu.Lock()
	e.runs = append(e.runs, run)
	e.mu.Unlock()
	if e.fn == nil {
		return nil
	}
	return e.fn(run)
}

func newTestWorker(t *testing.T, exec Executor) *Worker {
	t.Helper()
	w, err := New(Config{Executor: exec})
	if err != nil {
		t.Fatalf("new worker: %v", err)
	}
	return w
}

func runRequest(id uuid.UUID) mq.RunRequest {
	return mq.RunRequest{
		RunRequestedPayload: mq.RunRequestedPayload{RunID: id, Input: testInput},
		MessageID:           uuid.New().String(),
	}
}

var testInput = domain.PipelineInput{
	FastqR1Ref:        "reads/sample_R1.fastq.gz",
	FastqR2Ref:        "reads/sample_R2.fastq.gz",
	ReferenceGenomeID: "GRCh38",
}

// --- Worker Tests ---

func TestNew_RequiresExecutor(t *testing.T) {
	if _, err := New(Config{}); !errors.Is(err, ErrNoExecutor) {
		t.Errorf("expected ErrNoExecutor, got %v", err)
	}
}

func TestStart_RequiresConnection(t *testing.T) {
	w := newTestWorker(t, &fakeExecutor{})

	if err := w.Start(context.Background()); !errors.Is(err, ErrNoConnection) {
		t.Errorf("expected ErrNoConnection, got %v", err)
	}
}

func TestStart_AfterStop(t *testing.T) {
	w := newTestWorker(t, &fakeExecutor{})
	w.Stop()

	if !w.IsStopped() {
		t.Error("expected worker to be stopped")
	}
	if err := w.Start(context.Background()); !errors.Is(err, ErrWorkerStopped) {
		t.Errorf("expected ErrWorkerStopped, got %v", err)
	}
}

// --- Handler Tests ---

func TestHandleRunRequested_Success(t *testing.T) {
	exec := &fakeExecutor{}
	w := newTestWorker(t, exec)
	id := uuid.New()

	if got := w.handleRunRequested(context.Background(), runRequest(id)); got != mq.Ack {
		t.Fatalf("expected ack, got %s", got)
	}

	if len(exec.runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(exec.runs))
	}
	run := exec.runs[0]
	if run.ID != id {
		t.Errorf("expected run id %s, got %s", id, run.ID)
	}
	if run.Input != testInput {
		t.Errorf("expected input %+v, got %+v", testInput, run.Input)
	}
	if run.State != domain.RunStatePending {
		t.Errorf("expected run handed over in PENDING, got %s", run.State)
	}
}

func TestHandleRunRequested_GeneratesID(t *testing.T) {
	exec := &fakeExecutor{}
	w := newTestWorker(t, exec)

	if got := w.handleRunRequested(context.Background(), runRequest(uuid.Nil)); got != mq.Ack {
		t.Fatalf("expected ack, got %s", got)
	}
	if exec.runs[0].ID == uuid.Nil {
		t.Error("expected generated run id")
	}
}

func TestHandleRunRequested_Dispositions(t *testing.T) {
	toolFailure := func(run *domain.Run) error {
		err := &domain.ExternalToolFailure{Tool: "STAR", ExitCode: 137}
		run.MarkFailed(domain.StageAligning, err)
		return &domain.StageError{Stage: domain.StageAligning, Err: err}
	}

	tests := []struct {
		name string
		fn   func(run *domain.Run) error
		want mq.Disposition
	}{
		{"failed run", toolFailure, mq.Ack},
		{"already active", func(*domain.Run) error { return orchestrator.ErrRunAlreadyActive }, mq.Ack},
		{"not executed", func(*domain.Run) error { return orchestrator.ErrRunNotPending }, mq.DeadLetter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newTestWorker(t, &fakeExecutor{fn: tt.fn})
			if got := w.handleRunRequested(context.Background(), runRequest(uuid.New())); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestHandleRunRequested_ShutdownRequeues(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	// Run прерван остановкой worker и ушёл в FAILED
	exec := &fakeExecutor{fn: func(run *domain.Run) error {
		cancel()
		run.MarkFailed(domain.StageAligning, context.Canceled)
		return &domain.StageError{Stage: domain.StageAligning, Err: context.Canceled}
	}}
	w := newTestWorker(t, exec)

	if got := w.handleRunRequested(ctx, runRequest(uuid.New())); got != mq.Requeue {
		t.Errorf("expected requeue, got %s", got)
	}
}

func TestHandleRunRequested_CompletedDuringShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	exec := &fakeExecutor{fn: func(*domain.Run) error {
		cancel()
		return nil
	}}
	w := newTestWorker(t, exec)

	if got := w.handleRunRequested(ctx, runRequest(uuid.New())); got != mq.Ack {
		t.Errorf("expected ack, got %s", got)
	}
}

// --- HTTP Tests ---

func TestNewMux_Healthz(t *testing.T) {
	var healthy atomic.Bool
	healthy.Store(true)
	srv := httptest.NewServer(NewMux(prometheus.NewRegistry(), healthy.Load))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}

	healthy.Store(false)
	resp, err = http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", resp.StatusCode)
	}
}

func TestNewMux_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "staralign_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	srv := httptest.NewServer(NewMux(reg, nil))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "staralign_test_total 1") {
		t.Errorf("expected counter in metrics output, got:\n%s", body)
	}
}
