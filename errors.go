package hsm

import (
	"errors"

	pkgerrors "github.com/pkg/errors"
)

// Sentinel errors returned synchronously from the public API. Compare with
// errors.Is — they are never wrapped away.
var (
	ErrNotStarted       = errors.New("hsm: machine not started")
	ErrAlreadyStarted   = errors.New("hsm: machine already started")
	ErrHalted           = errors.New("hsm: machine halted")
	ErrNoInitialState   = errors.New("hsm: no initial state registered")
	ErrUnknownState     = errors.New("hsm: transition target not registered")
	ErrCycle            = errors.New("hsm: state graph contains a cycle")
	ErrDuplicateState   = errors.New("hsm: state already registered")
	ErrConfigAfterStart = errors.New("hsm: configuration call after start")
	ErrDeferOutsideMsg  = errors.New("hsm: DeferMessage called outside ProcessMessage")
)

// configErrorf wraps a configuration fault with a stack trace, per
// spec.md §7: configuration faults are surfaced synchronously to the
// caller. The sentinel stays comparable with errors.Is through the
// wrap chain.
func configErrorf(sentinel error, format string, args ...any) error {
	return pkgerrors.Wrapf(sentinel, format, args...)
}

// hookPanic is the recovered value of a panic raised from Enter, Exit,
// or ProcessMessage. It carries a stack trace captured at the recover
// site so Machine.Err() returns something actionable.
type hookPanic struct {
	cause error
}

func (h *hookPanic) Error() string { return h.cause.Error() }
func (h *hookPanic) Unwrap() error { return h.cause }

func newHookPanic(recovered any) *hookPanic {
	var cause error
	if err, ok := recovered.(error); ok {
		cause = pkgerrors.WithStack(err)
	} else {
		cause = pkgerrors.Errorf("%v", recovered)
	}
	return &hookPanic{cause: cause}
}
