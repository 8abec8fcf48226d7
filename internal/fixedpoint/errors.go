package fixedpoint

import (
	"errors"
	"fmt"
)

// Arithmetic failures inside the math kernel are raised as panics carrying one
// of these sentinel errors. Pool operations recover them at their boundary via
// Guard, so library callers compose formulas without threading errors through
// every intermediate term.
var (
	ErrOverflow        = errors.New("fixedpoint: arithmetic overflow")
	ErrUnderflow       = errors.New("fixedpoint: arithmetic underflow")
	ErrDivisionByZero  = errors.New("fixedpoint: division by zero")
	ErrLnOfNonPositive = errors.New("fixedpoint: ln of non-positive input")
	ErrExpOverflow     = errors.New("fixedpoint: exp input out of range")
)

type arithmeticPanic struct {
	err error
	op  string
}

func (p arithmeticPanic) Error() string {
	return fmt.Sprintf("%v (op=%s)", p.err, p.op)
}

func (p arithmeticPanic) Unwrap() error {
	return p.err
}

func raise(err error, op string) {
	panic(arithmeticPanic{err: err, op: op})
}

// Guard converts an in-flight arithmetic panic into the error return of the
// calling function. Usage:
//
//	func (s *State) OpenLong(...) (result FixedPoint, err error) {
//		defer fixedpoint.Guard(&err)
//		...
//	}
//
// Non-arithmetic panics are re-raised untouched.
func Guard(err *error) {
	if r := recover(); r != nil {
		ap, ok := r.(arithmeticPanic)
		if !ok {
			panic(r)
		}
		*err = ap
	}
}
