package orchestrator

import "errors"

// Ошибки контроллера.
var (
	// ErrRunAlreadyActive — run с таким ID уже выполняется.
	ErrRunAlreadyActive = errors.New("run already being processed")

	// ErrRunNotPending — run не в состоянии PENDING.
	ErrRunNotPending = errors.New("run is not in PENDING state")

	// ErrMissingDependency — в Config не задан обязательный коллаборатор.
	ErrMissingDependency = errors.New("missing controller dependency")
)
