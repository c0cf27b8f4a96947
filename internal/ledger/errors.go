package ledger

import "fmt"

// InsufficientBalanceError rejects an expense that would drive the balance
// negative. Current is the effective balance the check ran against: the
// cached balance for a record, the reverted balance for an edit.
type InsufficientBalanceError struct {
	Current   int64
	Requested int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: have %d, requested %d", e.Current, e.Requested)
}

// CriticalInconsistencyError signals that one half of a paired
// transaction+balance write succeeded and the other failed, so the stored
// balance no longer equals the signed sum of surviving transactions. Callers
// must surface this distinctly from an ordinary persistence error.
type CriticalInconsistencyError struct {
	Op    string
	Cause error
}

func (e *CriticalInconsistencyError) Error() string {
	return fmt.Sprintf("ledger inconsistency after %s: balance write failed: %v", e.Op, e.Cause)
}

func (e *CriticalInconsistencyError) Unwrap() error {
	return e.Cause
}
