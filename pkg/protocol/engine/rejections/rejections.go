package rejections

import (
	"context"
	"time"

	"github.com/iotaledger/consensus-executor/pkg/model"
	"github.com/iotaledger/hive.go/runtime/module"
)

// Tracker keeps track of the transactions that were rejected by consensus.
type Tracker interface {
	// RejectTransaction marks the transaction at the given position as rejected.
	RejectTransaction(position model.TransactionPosition)

	// WaitForRejection waits until the transaction at the given position is rejected, its round expires or the timeout
	// elapses. It always returns a *RejectedByConsensusError unless the context is done first.
	WaitForRejection(ctx context.Context, position model.TransactionPosition, timeout time.Duration) error

	// UpdateLastCommittedRound advances the last committed round and evicts the rounds that fell out of the window.
	UpdateLastCommittedRound(round model.Round)

	// IsRejected returns true if the transaction at the given position is currently known to be rejected.
	IsRejected(position model.TransactionPosition) bool

	// LastCommittedRound returns the last committed round and whether it was set already.
	LastCommittedRound() (round model.Round, isSet bool)

	// Size returns the number of retained rejected positions and indexed rounds.
	Size() (positions int, rounds int)

	module.Module
}
