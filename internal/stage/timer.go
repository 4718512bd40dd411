package stage

import (
	"time"

	"github.com/shaiso/staralign/internal/domain"
)

// Clock возвращает текущее время. nil означает time.Now.
type Clock func() time.Time

// Timer измеряет длительность одной стадии.
type Timer struct {
	now   Clock
	start time.Time
	end   time.Time
}

// StartTimer запускает таймер.
func StartTimer(now Clock) *Timer {
	if now == nil {
		now = time.Now
	}
	return &Timer{now: now, start: now()}
}

// Stop фиксирует время окончания и возвращает длительность.
// Повторный вызов не меняет результат.
func (t *Timer) Stop() time.Duration {
	if t.end.IsZero() {
		t.end = t.now()
		if t.end.Before(t.start) {
			t.end = t.start
		}
	}
	return t.Interval()
}

// Interval возвращает измеренную длительность (0 до Stop).
func (t *Timer) Interval() time.Duration {
	if t.end.IsZero() {
		return 0
	}
	return t.end.Sub(t.start)
}

// Start возвращает время запуска.
func (t *Timer) Start() time.Time { return t.start }

// End возвращает время остановки.
func (t *Timer) End() time.Time { return t.end }

// NewResult строит StageResult из таймера и ошибки стадии.
func NewResult(name domain.StageName, t *Timer, err error) domain.StageResult {
	t.Stop()

	res := domain.StageResult{
		Stage:           name,
		StartedAt:       t.Start(),
		FinishedAt:      t.End(),
		DurationSeconds: t.Interval().Seconds(),
		Success:         err == nil,
	}
	if err == nil {
		return res
	}

	res.Error = err.Error()
	res.Tool = failedTool(err)
	if _, code, ok := domain.ExitCodeOf(err); ok {
		res.ExitCode = &code
	}
	return res
}

// Measure выполняет fn как стадию без внешних процессов.
func Measure(name domain.StageName, now Clock, fn func() error) (domain.StageResult, error) {
	timer := StartTimer(now)
	err := fn()
	return NewResult(name, timer, err), err
}
