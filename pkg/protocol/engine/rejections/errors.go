package rejections

import (
	"fmt"

	"github.com/iotaledger/hive.go/ierrors"
)

// ErrRejectedByConsensus is the sentinel that every RejectedByConsensusError wraps.
var ErrRejectedByConsensus = ierrors.New("rejected by consensus")

// Reason describes why a wait for a rejection was resolved.
type Reason string

const (
	// ReasonRejected is returned when consensus rejected the transaction.
	ReasonRejected Reason = "Rejected"

	// ReasonExpired is returned when the round of the transaction fell out of the retention window.
	ReasonExpired Reason = "Expired"

	// ReasonTimedOut is returned when the wait timed out.
	ReasonTimedOut Reason = "TimedOut"
)

// RejectedByConsensusError is the client-visible outcome of a wait for a rejection.
type RejectedByConsensusError struct {
	Reason Reason
}

// NewRejectedByConsensusError creates a new RejectedByConsensusError with the given reason.
func NewRejectedByConsensusError(reason Reason) *RejectedByConsensusError {
	return &RejectedByConsensusError{Reason: reason}
}

func (e *RejectedByConsensusError) Error() string {
	return fmt.Sprintf("%s: reason=%s", ErrRejectedByConsensus.Error(), e.Reason)
}

func (e *RejectedByConsensusError) Unwrap() error {
	return ErrRejectedByConsensus
}

// ReasonFromError extracts the Reason of a RejectedByConsensusError from the given error chain.
func ReasonFromError(err error) (reason Reason, ok bool) {
	var rejectedErr *RejectedByConsensusError
	if !ierrors.As(err, &rejectedErr) {
		return "", false
	}

	return rejectedErr.Reason, true
}
