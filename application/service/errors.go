package service

import "errors"

// Rejection errors are reported to the originator only and never broadcast.
// ErrExecutionFailed is distinct: validation passed but the commit could not
// be applied, so clients can tell "illegal" from "system failure".
var (
	ErrInvalidFormat   = errors.New("service: invalid command format")
	ErrUnknownKind     = errors.New("service: unknown command kind")
	ErrPieceNotFound   = errors.New("service: piece not found")
	ErrOutOfBounds     = errors.New("service: cell out of bounds")
	ErrConflict        = errors.New("service: conflicting board state")
	ErrIllegalCommand  = errors.New("service: command rejected by rule resolver")
	ErrExecutionFailed = errors.New("service: execution failed")
)

// IsRejection reports whether err is a validation rejection rather than an
// execution failure. Both produce an error response; only the distinction in
// the taxonomy differs.
func IsRejection(err error) bool {
	for _, target := range []error{
		ErrInvalidFormat,
		ErrUnknownKind,
		ErrPieceNotFound,
		ErrOutOfBounds,
		ErrConflict,
		ErrIllegalCommand,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
