package domain

// RunState — состояние выполнения pipeline run.
//
// Жизненный цикл:
//
//	PENDING → ACQUIRING → ALIGNING → RENAMING → INDEXING → PUBLISHING → COMPLETE
//	        ↘ FAILED (из любого нетерминального состояния)
type RunState string

const (
	// RunStatePending — run создан, стадии ещё не запускались.
	RunStatePending RunState = "PENDING"

	// RunStateAcquiring — загрузка и распаковка входных файлов.
	RunStateAcquiring RunState = "ACQUIRING"

	// RunStateAligning — выравнивание внешним aligner'ом.
	RunStateAligning RunState = "ALIGNING"

	// RunStateRenaming — переименование BAM по имени R1.
	RunStateRenaming RunState = "RENAMING"

	// RunStateIndexing — построение индекса BAM.
	RunStateIndexing RunState = "INDEXING"

	// RunStatePublishing — публикация артефактов.
	RunStatePublishing RunState = "PUBLISHING"

	// RunStateComplete — все стадии завершились успешно.
	RunStateComplete RunState = "COMPLETE"

	// RunStateFailed — одна из стадий упала, дальнейшие не запускались.
	RunStateFailed RunState = "FAILED"
)

// stateOrder — фиксированный порядок состояний успешного run.
var stateOrder = []RunState{
	RunStatePending,
	RunStateAcquiring,
	RunStateAligning,
	RunStateRenaming,
	RunStateIndexing,
	RunStatePublishing,
	RunStateComplete,
}

// IsTerminal возвращает true, если состояние финальное.
func (s RunState) IsTerminal() bool {
	switch s {
	case RunStateComplete, RunStateFailed:
		return true
	default:
		return false
	}
}

// Next возвращает следующее состояние успешного пути.
// Для терминальных состояний возвращает само состояние.
func (s RunState) Next() RunState {
	for i, st := range stateOrder {
		if st == s && i+1 < len(stateOrder) {
			return stateOrder[i+1]
		}
	}
	return s
}

// CanTransition проверяет допустимость перехода s → to.
//
// Разрешены только шаг вперёд по stateOrder и переход в FAILED
// из нетерминального состояния.
func (s RunState) CanTransition(to RunState) bool {
	if s.IsTerminal() {
		return false
	}
	if to == RunStateFailed {
		return true
	}
	return s.Next() == to
}

// StageName — имя стадии pipeline.
type StageName string

// Стадии в порядке выполнения.
const (
	StageAcquiring  StageName = "Acquiring"
	StageAligning   StageName = "Aligning"
	StageRenaming   StageName = "Renaming"
	StageIndexing   StageName = "Indexing"
	StagePublishing StageName = "Publishing"
)

// Stages возвращает все стадии в порядке выполнения.
func Stages() []StageName {
	return []StageName{
		StageAcquiring,
		StageAligning,
		StageRenaming,
		StageIndexing,
		StagePublishing,
	}
}

// State возвращает состояние run, соответствующее выполнению стадии.
func (n StageName) State() RunState {
	switch n {
	case StageAcquiring:
		return RunStateAcquiring
	case StageAligning:
		return RunStateAligning
	case StageRenaming:
		return RunStateRenaming
	case StageIndexing:
		return RunStateIndexing
	case StagePublishing:
		return RunStatePublishing
	default:
		return RunStatePending
	}
}

// String возвращает строковое представление StageName.
func (n StageName) String() string {
	return string(n)
}
