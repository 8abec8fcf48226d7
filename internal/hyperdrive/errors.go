package hyperdrive

import (
	"errors"

	"github.com/delvtech/hyperdrive-sub006/internal/yieldspace"
)

var (
	// ErrInsufficientLiquidity aliases the curve-level error so callers can
	// match trade failures without importing the curve package.
	ErrInsufficientLiquidity = yieldspace.ErrInsufficientLiquidity

	// ErrNegativeInterest is returned when a long would push the spot price
	// past the maximum, which would let bonds trade above face value.
	ErrNegativeInterest = errors.New("hyperdrive: negative interest")

	// ErrBaseBufferExceedsShareReserves is the post-trade solvency failure:
	// the share reserves can no longer back the outstanding long exposure.
	ErrBaseBufferExceedsShareReserves = errors.New("hyperdrive: base buffer exceeds share reserves")

	// ErrBelowMinimumTransaction rejects trades below the configured floor.
	ErrBelowMinimumTransaction = errors.New("hyperdrive: amount below minimum transaction")

	// ErrSlippageExceeded is returned when a caller-supplied bound
	// (minOutput, maxDeposit, minSharePrice) is violated.
	ErrSlippageExceeded = errors.New("hyperdrive: slippage bound exceeded")

	// ErrNegativePresentValue indicates the LP present value computation went
	// negative, which means the pool is in an unrecoverable state.
	ErrNegativePresentValue = errors.New("hyperdrive: negative present value")

	// ErrInvalidConfig rejects pool configurations that violate structural
	// constraints (zero durations, checkpoint not dividing position, fee
	// fractions above one).
	ErrInvalidConfig = errors.New("hyperdrive: invalid pool config")
)
