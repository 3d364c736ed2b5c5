package swap

import "fmt"

// InvalidAmountError reports a missing, malformed or non-positive input
// amount. It is the only error callers should treat as a client error.
type InvalidAmountError struct {
	Value string
	Err   error
}

func (e *InvalidAmountError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("invalid amountIn %q", e.Value)
	}
	return fmt.Sprintf("invalid amountIn %q: %v", e.Value, e.Err)
}

func (e *InvalidAmountError) Unwrap() error {
	return e.Err
}

type QuoteUnavailableError struct {
	Err error
}

func (e *QuoteUnavailableError) Error() string {
	return "quote unavailable: " + e.Err.Error()
}

func (e *QuoteUnavailableError) Unwrap() error {
	return e.Err
}

// AllowanceError covers both the allowance read and the approval round trip.
type AllowanceError struct {
	Op  string
	Err error
}

func (e *AllowanceError) Error() string {
	return fmt.Sprintf("allowance %s failed: %v", e.Op, e.Err)
}

func (e *AllowanceError) Unwrap() error {
	return e.Err
}

// SubmissionExhaustedError is returned when every attempt was rejected for a
// stale nonce.
type SubmissionExhaustedError struct {
	Attempts  int
	LastNonce uint64
	Err       error
}

func (e *SubmissionExhaustedError) Error() string {
	return fmt.Sprintf("swap submission failed after %d attempts (last nonce %d): %v", e.Attempts, e.LastNonce, e.Err)
}

func (e *SubmissionExhaustedError) Unwrap() error {
	return e.Err
}
