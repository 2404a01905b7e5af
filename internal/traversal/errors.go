package traversal

import "errors"

var (
	ErrEmptyInput       = errors.New("answer is empty")
	ErrInvalidPhase     = errors.New("operation not allowed in the current phase")
	ErrInvalidChoice    = errors.New("choice index out of range")
	ErrJudgmentInFlight = errors.New("a judgment is already in progress")
	// ErrStaleJudgment - пока судья думал, сессия ушла с узла. Результат отброшен.
	ErrStaleJudgment = errors.New("judgment result is stale")
	ErrUnknownAction = errors.New("unknown choice action")
)
