package process

import "errors"

// Ошибки runner'а.
var (
	// ErrEmptyTool — в CommandSpec не указан инструмент.
	ErrEmptyTool = errors.New("command spec has empty tool")
)
