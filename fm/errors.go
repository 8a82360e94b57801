package fm

import "errors"

var (
	// ErrQueueFull is returned when a write is offered to a full queue.
	// The write is dropped.
	ErrQueueFull = errors.New("fm: write queue full")

	// ErrChannelRange reports a channel index outside the backend's channel array.
	ErrChannelRange = errors.New("fm: channel index out of range")

	// ErrOperatorRange reports an operator index outside 0-3.
	ErrOperatorRange = errors.New("fm: operator index out of range")

	// ErrAlgorithmRange reports an algorithm outside 0-7.
	ErrAlgorithmRange = errors.New("fm: algorithm out of range")

	// ErrRegisterRange reports a register address outside the pool.
	ErrRegisterRange = errors.New("fm: register address out of range")
)
