package stage

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shaiso/staralign/internal/domain"
	"github.com/shaiso/staralign/internal/process"
)

// --- Helpers ---

// eventLog — потокобезопасный журнал событий задач.
type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(e string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

// fakeHandle — Handle, который ждёт delay и возвращает err.
type fakeHandle struct {
	name   string
	delay  time.Duration
	err    error
	log    *eventLog
	waited *atomic.Bool
}

func (h *fakeHandle) Wait() error {
	h.log.add("wait:" + h.name)
	time.Sleep(h.delay)
	h.waited.Store(true)
	return h.err
}

func fakeTask(name string, delay time.Duration, err error, log *eventLog, waited *atomic.Bool) Task {
	return Task{
		Name: name,
		Launch: func(context.Context) (process.Handle, error) {
			log.add("launch:" + name)
			return &fakeHandle{name: name, delay: delay, err: err, log: log, waited: waited}, nil
		},
	}
}

// stepClock — часы, сдвигающиеся на step при каждом вызове.
func stepClock(start time.Time, step time.Duration) Clock {
	var mu sync.Mutex
	now := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := now
		now = now.Add(step)
		return t
	}
}

// --- Timer Tests ---

func TestTimer_Interval(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	timer := StartTimer(stepClock(start, 3*time.Second))

	if timer.Interval() != 0 {
		t.Error("interval should be 0 before Stop")
	}

	d := timer.Stop()
	if d != 3*time.Second {
		t.Errorf("expected 3s, got %s", d)
	}
	// Повторный Stop не сдвигает конец
	if again := timer.Stop(); again != d {
		t.Errorf("second Stop changed interval to %s", again)
	}
	if !timer.End().Equal(timer.Start().Add(d)) {
		t.Error("end should equal start + interval")
	}
}

func TestTimer_ClockGoingBackwards(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	timer := StartTimer(stepClock(start, -time.Second))

	if d := timer.Stop(); d != 0 {
		t.Errorf("expected clamped 0 duration, got %s", d)
	}
}

func TestMeasure(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	res, err := Measure(domain.StageRenaming, stepClock(start, 2*time.Second), func() error { return nil })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success || res.Stage != domain.StageRenaming {
		t.Errorf("unexpected result %+v", res)
	}
	if res.DurationSeconds != 2 {
		t.Errorf("expected 2s, got %v", res.DurationSeconds)
	}
	if res.DurationSeconds != res.FinishedAt.Sub(res.StartedAt).Seconds() {
		t.Error("duration should match timestamps")
	}
}

func TestNewResult_Failure(t *testing.T) {
	timer := StartTimer(nil)
	err := &TaskError{Task: "R1", Err: &domain.ExternalToolFailure{Tool: "pigz", ExitCode: 1}}

	res := NewResult(domain.StageAcquiring, timer, err)

	if res.Success {
		t.Error("result should be unsuccessful")
	}
	if res.ExitCode == nil || *res.ExitCode != 1 {
		t.Errorf("expected exit code 1, got %v", res.ExitCode)
	}
	if res.Tool != "pigz" {
		t.Errorf("expected tool pigz, got %q", res.Tool)
	}
	if res.DurationSeconds < 0 {
		t.Error("duration should be non-negative")
	}
}

func TestNewResult_CollaboratorFailure(t *testing.T) {
	err := &domain.MissingCollaboratorResponse{Collaborator: "publisher", Ref: "a.bam"}

	res := NewResult(domain.StagePublishing, StartTimer(nil), err)

	if res.Tool != "publisher" {
		t.Errorf("expected tool publisher, got %q", res.Tool)
	}
	if res.ExitCode != nil {
		t.Error("collaborator failure should have no exit code")
	}
}

// --- FanOut Tests ---

func TestFanOut_AllSucceed(t *testing.T) {
	log := &eventLog{}
	var w1, w2, w3 atomic.Bool

	tasks := []Task{
		fakeTask("t1", 10*time.Millisecond, nil, log, &w1),
		fakeTask("t2", 10*time.Millisecond, nil, log, &w2),
		fakeTask("t3", 10*time.Millisecond, nil, log, &w3),
	}

	res, err := NewFanOut(Config{}).Run(context.Background(), domain.StageAcquiring, tasks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success {
		t.Error("stage should succeed")
	}

	// Все запуски раньше любого ожидания
	events := log.snapshot()
	for i, e := range events[:3] {
		if !strings.HasPrefix(e, "launch:") {
			t.Fatalf("event %d = %q, expected launch before any wait (%v)", i, e, events)
		}
	}
	if len(events) != 6 {
		t.Errorf("expected 6 events, got %v", events)
	}
}

func TestFanOut_RunsConcurrently(t *testing.T) {
	log := &eventLog{}
	var w1, w2, w3 atomic.Bool

	tasks := []Task{
		fakeTask("t1", 200*time.Millisecond, nil, log, &w1),
		fakeTask("t2", 200*time.Millisecond, nil, log, &w2),
		fakeTask("t3", 200*time.Millisecond, nil, log, &w3),
	}

	start := time.Now()
	if _, err := NewFanOut(Config{}).Run(context.Background(), domain.StageAcquiring, tasks); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("tasks look sequential: %s", elapsed)
	}
}

func TestFanOut_MiddleTaskFails(t *testing.T) {
	log := &eventLog{}
	var w1, w2, w3 atomic.Bool

	failure := &domain.ExternalToolFailure{Tool: "tool-2", ExitCode: 2}
	tasks := []Task{
		fakeTask("t1", 100*time.Millisecond, nil, log, &w1),
		fakeTask("t2", 0, failure, log, &w2), // падает раньше соседей
		fakeTask("t3", 100*time.Millisecond, nil, log, &w3),
	}

	res, err := NewFanOut(Config{}).Run(context.Background(), domain.StageAcquiring, tasks)

	if err == nil {
		t.Fatal("expected error")
	}
	if res.Success {
		t.Error("stage should fail")
	}
	if res.Tool != "tool-2" {
		t.Errorf("expected failing tool tool-2, got %q", res.Tool)
	}
	if res.ExitCode == nil || *res.ExitCode != 2 {
		t.Errorf("expected exit code 2, got %v", res.ExitCode)
	}

	var taskErr *TaskError
	if !errors.As(err, &taskErr) || taskErr.Task != "t2" {
		t.Errorf("expected TaskError for t2, got %v", err)
	}

	// Соседи дождались до конца
	if !w1.Load() || !w3.Load() {
		t.Error("sibling tasks must be waited to completion")
	}
}

func TestFanOut_LaunchFailure(t *testing.T) {
	log := &eventLog{}
	var w1 atomic.Bool
	launchErr := errors.New("cannot start")

	var launched3 atomic.Bool
	tasks := []Task{
		fakeTask("t1", 50*time.Millisecond, nil, log, &w1),
		{
			Name: "t2",
			Launch: func(context.Context) (process.Handle, error) {
				return nil, launchErr
			},
		},
		{
			Name: "t3",
			Launch: func(context.Context) (process.Handle, error) {
				launched3.Store(true)
				return process.Done(nil), nil
			},
		},
	}

	res, err := NewFanOut(Config{}).Run(context.Background(), domain.StageAcquiring, tasks)

	if !errors.Is(err, launchErr) {
		t.Fatalf("expected launch error, got %v", err)
	}
	if res.Success {
		t.Error("stage should fail")
	}
	if !w1.Load() {
		t.Error("already launched task must be waited")
	}
	if launched3.Load() {
		t.Error("tasks after a failed launch should not be launched")
	}
}

func TestFanOut_ChecksRunAfterTasks(t *testing.T) {
	log := &eventLog{}
	var w1 atomic.Bool
	checkErr := errors.New("post-condition violated")

	var checked bool
	res, err := NewFanOut(Config{}).Run(context.Background(), domain.StagePublishing,
		[]Task{fakeTask("t1", 0, nil, log, &w1)},
		func() error {
			checked = w1.Load()
			return checkErr
		},
	)

	if !checked {
		t.Error("check should run after tasks completed")
	}
	if !errors.Is(err, checkErr) || res.Success {
		t.Errorf("expected check failure, got %v", err)
	}
}

func TestFanOut_ChecksSkippedOnFailure(t *testing.T) {
	log := &eventLog{}
	var w1 atomic.Bool

	called := false
	_, err := NewFanOut(Config{}).Run(context.Background(), domain.StageAcquiring,
		[]Task{fakeTask("t1", 0, errors.New("boom"), log, &w1)},
		func() error { called = true; return nil },
	)

	if err == nil {
		t.Fatal("expected error")
	}
	if called {
		t.Error("checks must not run when tasks failed")
	}
}

func TestFuncTask(t *testing.T) {
	var ran atomic.Bool
	task := FuncTask("fetch", func(ctx context.Context) error {
		ran.Store(true)
		return nil
	})

	res, err := NewFanOut(Config{}).Run(context.Background(), domain.StageAcquiring, []Task{task})
	if err != nil || !res.Success {
		t.Fatalf("unexpected failure: %v", err)
	}
	if !ran.Load() {
		t.Error("func task should run")
	}
}

// --- Sequential Tests ---

// countingLauncher — Launcher, считающий запуски и возвращающий err из Wait.
type countingLauncher struct {
	calls atomic.Int32
	err   error
}

func (l *countingLauncher) Launch(_ context.Context, spec process.CommandSpec) (process.Handle, error) {
	l.calls.Add(1)
	return process.Done(l.err), nil
}

func TestSequential_Success(t *testing.T) {
	l := &countingLauncher{}

	res, err := NewSequential(l, Config{}).Run(context.Background(), domain.StageIndexing,
		process.CommandSpec{Tool: "sambamba"})

	if err != nil || !res.Success {
		t.Fatalf("unexpected failure: %v", err)
	}
	if l.calls.Load() != 1 {
		t.Errorf("expected exactly one launch, got %d", l.calls.Load())
	}
}

func TestSequential_ToolFailure(t *testing.T) {
	l := &countingLauncher{err: &domain.ExternalToolFailure{Tool: "STAR", ExitCode: 137}}

	checked := false
	res, err := NewSequential(l, Config{}).Run(context.Background(), domain.StageAligning,
		process.CommandSpec{Tool: "STAR"},
		func() error { checked = true; return nil },
	)

	if !errors.Is(err, domain.ErrExternalTool) {
		t.Fatalf("expected ErrExternalTool, got %v", err)
	}
	if res.Success || res.ExitCode == nil || *res.ExitCode != 137 || res.Tool != "STAR" {
		t.Errorf("unexpected result %+v", res)
	}
	if checked {
		t.Error("checks must not run after tool failure")
	}
}

func TestSequential_LaunchError(t *testing.T) {
	launchErr := &domain.ExternalToolFailure{Tool: "STAR", ExitCode: -1, Err: errors.New("not found")}
	l := process.LauncherFunc(func(context.Context, process.CommandSpec) (process.Handle, error) {
		return nil, launchErr
	})

	res, err := NewSequential(l, Config{}).Run(context.Background(), domain.StageAligning,
		process.CommandSpec{Tool: "STAR"})

	if !errors.Is(err, launchErr) {
		t.Fatalf("expected launch error, got %v", err)
	}
	if res.Success {
		t.Error("stage should fail")
	}
}
