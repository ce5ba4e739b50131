package framegraph

import (
	"errors"
	"fmt"
)

// Device-side failures. They are returned wrapped by Execute and Reset and
// are fatal for the generation: the graph performs no recovery.
var (
	// ErrAllocation is returned when the device fails to create a physical
	// image, buffer or view.
	ErrAllocation = errors.New("framegraph: allocation failed")

	// ErrRecording is returned when a command buffer cannot be created or
	// finished.
	ErrRecording = errors.New("framegraph: command recording failed")

	// ErrSubmit is returned when the device rejects a batch submission.
	ErrSubmit = errors.New("framegraph: submit failed")

	// ErrRetireTimeout is returned by Reset when a queue timeline does not
	// reach its last signalled value in time.
	ErrRetireTimeout = errors.New("framegraph: timed out waiting for GPU work to retire")
)

// ContractError is the panic value raised when the caller breaks the graph's
// usage contract: stale or foreign handles, declarations outside the READY
// phase, exceeding fixed budgets. It denotes a malformed graph and is not
// meant to be recovered from.
type ContractError struct {
	Msg string
}

func (e *ContractError) Error() string {
	return "framegraph: contract violation: " + e.Msg
}

func contractf(format string, args ...any) *ContractError {
	return &ContractError{Msg: fmt.Sprintf(format, args...)}
}
