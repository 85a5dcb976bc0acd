package impulse2d

import "fmt"

// ErrorKind classifies the handful of ways a public World call can fail.
type ErrorKind uint8

const (
	// WrongState means the call was made while the world was mid-Step
	// (locked) or otherwise in a state that forbids it.
	WrongState ErrorKind = iota
	// OutOfRange means a handle referred to a body/fixture/joint that has
	// been destroyed or never existed.
	OutOfRange
	// InvalidArgument means a value failed validation (NaN, negative
	// density, degenerate polygon, vertex radius out of bounds, ...).
	InvalidArgument
	// LengthError means a fixed-capacity buffer (manifold points, polygon
	// vertices, island arrays) was asked to hold more than it can.
	LengthError
)

func (k ErrorKind) String() string {
	switch k {
	case WrongState:
		return "wrong state"
	case OutOfRange:
		return "out of range"
	case InvalidArgument:
		return "invalid argument"
	case LengthError:
		return "length error"
	}
	return "unknown"
}

// EngineError is the only error type World's public API returns. Internal
// invariant violations (index arithmetic, slice bounds) still panic the way
// the teacher's B2Assert does — those are programmer bugs, not user input.
type EngineError struct {
	Kind ErrorKind
	Msg  string
}

func (e *EngineError) Error() string { return fmt.Sprintf("%s: %s", e.Kind, e.Msg) }

func newError(kind ErrorKind, format string, args ...interface{}) *EngineError {
	return &EngineError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}
