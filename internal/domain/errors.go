package domain

import (
	"errors"
	"fmt"
)

// Базовые ошибки pipeline. Типизированные ошибки ниже сопоставляются
// с ними через errors.Is.
var (
	// ErrExternalTool — внешний инструмент завершился с ненулевым кодом.
	ErrExternalTool = errors.New("external tool failed")

	// ErrAmbiguousOutput — нарушено постусловие стадии по числу артефактов.
	ErrAmbiguousOutput = errors.New("ambiguous output")

	// ErrMalformedInputName — имя входного файла не позволяет вывести имя BAM.
	ErrMalformedInputName = errors.New("malformed input name")

	// ErrMissingCollaboratorResponse — resolver или publisher не ответил.
	ErrMissingCollaboratorResponse = errors.New("missing collaborator response")

	// ErrInvalidInput — PipelineInput не прошёл валидацию.
	ErrInvalidInput = errors.New("invalid pipeline input")

	// ErrInvalidTransition — недопустимый переход состояния run.
	ErrInvalidTransition = errors.New("invalid run state transition")

	// ErrIncompleteManifest — manifest не позволяет завершить run.
	ErrIncompleteManifest = errors.New("run manifest is incomplete")
)

// ExternalToolFailure — запущенный процесс завершился с ошибкой.
// ExitCode = -1, если процесс не удалось запустить или он был убит.
type ExternalToolFailure struct {
	Tool     string
	ExitCode int
	Err      error
}

func (e *ExternalToolFailure) Error() string {
	if e.Err != nil && e.ExitCode < 0 {
		return fmt.Sprintf("%s: %v", e.Tool, e.Err)
	}
	return fmt.Sprintf("%s exited with code %d", e.Tool, e.ExitCode)
}

func (e *ExternalToolFailure) Is(target error) bool { return target == ErrExternalTool }

func (e *ExternalToolFailure) Unwrap() error { return e.Err }

// AmbiguousOutput — ожидалось Expected артефактов по шаблону, найдено Found.
type AmbiguousOutput struct {
	Pattern  string
	Expected int
	Found    int
}

func (e *AmbiguousOutput) Error() string {
	return fmt.Sprintf("ambiguous output %q: expected %d, found %d", e.Pattern, e.Expected, e.Found)
}

func (e *AmbiguousOutput) Is(target error) bool { return target == ErrAmbiguousOutput }

// MalformedInputName — после удаления расширения имя пустое.
type MalformedInputName struct {
	Name string
}

func (e *MalformedInputName) Error() string {
	return fmt.Sprintf("malformed input name %q", e.Name)
}

func (e *MalformedInputName) Is(target error) bool { return target == ErrMalformedInputName }

// MissingCollaboratorResponse — внешний коллаборатор (resolver, publisher) упал.
type MissingCollaboratorResponse struct {
	Collaborator string
	Ref          string
	Err          error
}

func (e *MissingCollaboratorResponse) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: no response for %q", e.Collaborator, e.Ref)
	}
	return fmt.Sprintf("%s: %q: %v", e.Collaborator, e.Ref, e.Err)
}

func (e *MissingCollaboratorResponse) Is(target error) bool {
	return target == ErrMissingCollaboratorResponse
}

func (e *MissingCollaboratorResponse) Unwrap() error { return e.Err }

// InvalidInput — ошибка валидации PipelineInput.
type InvalidInput struct {
	Field  string
	Reason string
}

func (e *InvalidInput) Error() string {
	return fmt.Sprintf("invalid input: %s %s", e.Field, e.Reason)
}

func (e *InvalidInput) Is(target error) bool { return target == ErrInvalidInput }

// StageError — run упал на стадии Stage с причиной Err.
type StageError struct {
	Stage StageName
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// ExitCodeOf извлекает код выхода инструмента из цепочки ошибок.
func ExitCodeOf(err error) (tool string, code int, ok bool) {
	var failure *ExternalToolFailure
	if errors.As(err, &failure) {
		return failure.Tool, failure.ExitCode, true
	}
	return "", 0, false
}
