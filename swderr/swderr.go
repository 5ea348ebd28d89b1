// Package swderr defines the stable error taxonomy shared by every layer
// of the SWD/RISC-V debug stack, from the line engine up to the target
// session. The protocol layers return *Error values built with New and
// Wrap; callers classify them with CodeOf (or errors.Is against the
// sentinels below), which also looks through github.com/juju/errors
// annotations added on top.
package swderr

import "fmt"

// Code is one of the stable, numbered error tags from the host API
// surface. The numbering matches the order in which the original C
// implementation's swd_error_t enum declares them, so log output and
// any persisted error codes stay stable across languages.
type Code int

const (
	OK Code = iota
	Timeout
	Fault
	Protocol
	Parity
	Wait
	NotConnected
	NotHalted
	AlreadyHalted
	InvalidState
	NoMemory
	InvalidConfig
	ResourceBusy
	InvalidParam
	NotInitialized
	AbstractCmd
	Bus
	Alignment
	Verify
)

var codeNames = [...]string{
	"OK",
	"Timeout",
	"Fault",
	"Protocol",
	"Parity",
	"Wait",
	"NotConnected",
	"NotHalted",
	"AlreadyHalted",
	"InvalidState",
	"NoMemory",
	"InvalidConfig",
	"ResourceBusy",
	"InvalidParam",
	"NotInitialized",
	"AbstractCmd",
	"Bus",
	"Alignment",
	"Verify",
}

func (c Code) String() string {
	if int(c) < 0 || int(c) >= len(codeNames) {
		return "Unknown error"
	}
	return codeNames[c]
}

// Error is a Code with an optional machine-relevant payload (e.g. the
// ABSTRACTCS.cmderr value, or the ACK bits that triggered it). Every
// non-OK Error is also what populates a session's 128-byte detail
// buffer, via Error().
type Error struct {
	Code    Code
	Detail  string
	Wrapped error
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return e.Code.String()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Detail)
}

// Cause lets github.com/juju/errors.Cause unwrap to the *Error so
// callers can still pattern-match on Code after annotation/tracing.
func (e *Error) Cause() error {
	return e
}

// Is allows errors.Is(err, swderr.ErrWait) style checks against the
// package-level sentinels below, since those sentinels are themselves
// *Error values with an empty Detail.
func (e *Error) Is(target error) bool {
	o, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == o.Code
}

// New builds an *Error carrying a formatted detail string.
func New(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Detail: fmt.Sprintf(format, args...)}
}

// Wrap attaches code/detail context to an underlying error, e.g. a
// transport-level error returned by a fake or real line engine.
func Wrap(code Code, wrapped error, format string, args ...interface{}) *Error {
	return &Error{Code: code, Detail: fmt.Sprintf(format, args...), Wrapped: wrapped}
}

// Sentinels for errors.Cause(err) == swderr.X style comparisons where
// no extra detail is needed.
var (
	ErrTimeout        = &Error{Code: Timeout}
	ErrFault          = &Error{Code: Fault}
	ErrProtocol       = &Error{Code: Protocol}
	ErrParity         = &Error{Code: Parity}
	ErrWait           = &Error{Code: Wait}
	ErrNotConnected   = &Error{Code: NotConnected}
	ErrNotHalted      = &Error{Code: NotHalted}
	ErrAlreadyHalted  = &Error{Code: AlreadyHalted}
	ErrInvalidState   = &Error{Code: InvalidState}
	ErrNoMemory       = &Error{Code: NoMemory}
	ErrInvalidConfig  = &Error{Code: InvalidConfig}
	ErrResourceBusy   = &Error{Code: ResourceBusy}
	ErrInvalidParam   = &Error{Code: InvalidParam}
	ErrNotInitialized = &Error{Code: NotInitialized}
	ErrAbstractCmd    = &Error{Code: AbstractCmd}
	ErrBus            = &Error{Code: Bus}
	ErrAlignment      = &Error{Code: Alignment}
	ErrVerify         = &Error{Code: Verify}
)

// CodeOf extracts the Code from err, looking through any juju/errors
// wrapping via errors.Cause semantics (Cause() method). Returns
// (Protocol, false) if err does not carry one of our Codes.
func CodeOf(err error) (Code, bool) {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Code, true
		}
		causer, ok := err.(interface{ Cause() error })
		if !ok {
			break
		}
		next := causer.Cause()
		if next == err || next == nil {
			break
		}
		err = next
	}
	return Protocol, false
}
