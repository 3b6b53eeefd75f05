package settle

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound      = errors.New("settle: not found")
	ErrAlreadyExists = errors.New("settle: already exists")
	ErrInvalidInput  = errors.New("settle: invalid input")

	// Group errors
	ErrGroupNotFound    = errors.New("settle: group not found")
	ErrGroupNotActive   = errors.New("settle: group not active")
	ErrGroupClosed      = errors.New("settle: group is closed")
	ErrMemberExists     = errors.New("settle: member already in group")
	ErrUnknownMember    = errors.New("settle: member not in group")
	ErrMemberRemoval    = errors.New("settle: members cannot be removed once expenses exist")
	ErrNotAdmin         = errors.New("settle: participant is not the group admin")
	ErrCurrencyMismatch = errors.New("settle: currency does not match group currency")

	// Expense errors
	ErrExpenseNotFound = errors.New("settle: expense not found")
	ErrInvalidAmount   = errors.New("settle: amount must be positive")
	ErrEmptySplit      = errors.New("settle: split participants must not be empty")

	// Settlement errors
	ErrSettlementInProgress = errors.New("settle: settlement already in progress")
	ErrPlanNotFound         = errors.New("settle: settlement plan not found")
	ErrRunNotFound          = errors.New("settle: settlement run not found")
	ErrNothingToSettle      = errors.New("settle: no unsettled balances")
	ErrRunCancelled         = errors.New("settle: settlement run cancelled before submission")

	// Payment rail errors
	ErrTransferFailed  = errors.New("settle: transfer failed")
	ErrTransferTimeout = errors.New("settle: transfer timed out")
	ErrRailUnavailable = errors.New("settle: payment rail unavailable")
	ErrUnresolvedPayee = errors.New("settle: payable address could not be resolved")

	// Store errors
	ErrStoreNotReady   = errors.New("settle: store not ready")
	ErrStoreClosed     = errors.New("settle: store is closed")
	ErrMigrationFailed = errors.New("settle: migration failed")
)

// ValidationError represents a validation failure with details.
// Validation errors are rejected before any state change.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("settle: validation failed for %s: %s", e.Field, e.Message)
}

// Is makes ValidationError match ErrInvalidInput for errors.Is checks.
func (e ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// InvariantViolationError reports a broken internal invariant, such as net
// positions that do not sum to zero. It signals a defect in the engine
// itself: callers must fail loudly and never correct the data silently.
type InvariantViolationError struct {
	Invariant string
	Detail    string
}

func (e InvariantViolationError) Error() string {
	return fmt.Sprintf("settle: invariant violation (%s): %s", e.Invariant, e.Detail)
}

// TransferError records a per-transaction external failure. It is absorbed
// into the execution report, never raised as a whole-plan failure.
type TransferError struct {
	TransactionID string
	Reason        string
	Err           error
}

func (e TransferError) Error() string {
	return fmt.Sprintf("settle: transfer %s failed: %s", e.TransactionID, e.Reason)
}

func (e TransferError) Unwrap() error { return e.Err }

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrGroupNotFound) ||
		errors.Is(err, ErrExpenseNotFound) ||
		errors.Is(err, ErrPlanNotFound) ||
		errors.Is(err, ErrRunNotFound)
}

// IsValidation returns true if the error is a validation failure:
// rejected input, no state was changed.
func IsValidation(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrEmptySplit) ||
		errors.Is(err, ErrUnknownMember) ||
		errors.Is(err, ErrCurrencyMismatch)
}

// IsState returns true if the error is a lifecycle/state conflict:
// the request was well-formed but the group cannot accept it right now.
func IsState(err error) bool {
	return errors.Is(err, ErrGroupNotActive) ||
		errors.Is(err, ErrGroupClosed) ||
		errors.Is(err, ErrSettlementInProgress) ||
		errors.Is(err, ErrMemberExists) ||
		errors.Is(err, ErrMemberRemoval)
}

// IsInvariantViolation returns true if the error reports a broken engine
// invariant. These are defects, not user errors.
func IsInvariantViolation(err error) bool {
	var iv InvariantViolationError
	return errors.As(err, &iv)
}

// IsRetryable returns true if the error is temporary and the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreNotReady) ||
		errors.Is(err, ErrRailUnavailable) ||
		errors.Is(err, ErrTransferTimeout)
}
