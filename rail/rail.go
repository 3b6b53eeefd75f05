// Package rail defines the payment rail boundary: the external system that
// actually moves money between payable addresses.
//
// The engine only ever sees this interface. Transfers may fail, be slow, or
// time out; the settlement executor owns retries and timeouts, the rail owns
// idempotency.
package rail

import (
	"context"
	"errors"
	"time"

	"github.com/xraph/settle/types"
)

// Rail failure modes. Unavailability is transient and worth retrying;
// a rejection is permanent for the given transfer.
var (
	ErrUnavailable    = errors.New("rail: temporarily unavailable")
	ErrRejected       = errors.New("rail: transfer rejected")
	ErrUnknownAccount = errors.New("rail: unknown account")
)

// TransferRequest asks the rail to move Amount from one payable address to
// another. Key is a stable idempotency key: replaying a request with the
// same key must return the original receipt without moving money twice.
type TransferRequest struct {
	Key    string      `json:"key"`
	From   string      `json:"from"`
	To     string      `json:"to"`
	Amount types.Money `json:"amount"`
}

// Receipt confirms a completed transfer.
type Receipt struct {
	Reference   string    `json:"reference"`
	ConfirmedAt time.Time `json:"confirmed_at"`
}

// Rail is the external payment primitive.
type Rail interface {
	Transfer(ctx context.Context, req TransferRequest) (*Receipt, error)
}

// Retryable reports whether err is transient and the transfer may be
// attempted again.
func Retryable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
