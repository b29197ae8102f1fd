package rejectionsv1

import (
	"context"
	"time"

	"github.com/tidwall/btree"

	"github.com/iotaledger/consensus-executor/pkg/core/notifyread"
	"github.com/iotaledger/consensus-executor/pkg/model"
	"github.com/iotaledger/consensus-executor/pkg/protocol/engine/rejections"
	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/log"
	"github.com/iotaledger/hive.go/runtime/module"
	"github.com/iotaledger/hive.go/runtime/options"
	"github.com/iotaledger/hive.go/runtime/syncutils"
)

const (
	// DefaultExpirationWindow is the number of rounds a rejection is retained after its round was committed.
	DefaultExpirationWindow model.Round = 100

	// DefaultExpirationPollInterval is the interval in which waiters check whether their round expired.
	DefaultExpirationPollInterval = 50 * time.Millisecond
)

// Tracker is a rejections.Tracker that keeps the rejected positions of a fixed window of rounds in memory.
type Tracker struct {
	// Events contains the Events of the Tracker.
	Events *rejections.Events

	// rejected contains all positions that were rejected and did not expire yet.
	rejected map[model.TransactionPosition]struct{}

	// roundIndex contains the rejected positions grouped by their round, ordered ascending.
	roundIndex btree.Map[model.Round, map[model.TransactionPosition]struct{}]

	// lastCommittedRound is the high-water mark of committed rounds.
	lastCommittedRound model.Round

	// lastCommittedRoundSet is false until the first round update.
	lastCommittedRoundSet bool

	// rejectionNotifier wakes the waiters of a position once it gets rejected.
	rejectionNotifier *notifyread.NotifyRead[model.TransactionPosition, struct{}]

	// mutex guards rejected, roundIndex and the last committed round.
	mutex syncutils.RWMutex

	optsExpirationWindow       model.Round
	optsExpirationPollInterval time.Duration

	module.Module
}

// New creates a new Tracker.
func New(subModule module.Module, opts ...options.Option[Tracker]) *Tracker {
	return options.Apply(&Tracker{
		Events:                     rejections.NewEvents(),
		Module:                     subModule,
		rejected:                   make(map[model.TransactionPosition]struct{}),
		rejectionNotifier:          notifyread.New[model.TransactionPosition, struct{}](),
		optsExpirationWindow:       DefaultExpirationWindow,
		optsExpirationPollInterval: DefaultExpirationPollInterval,
	}, opts, func(t *Tracker) {
		t.initLogging()

		t.ShutdownEvent().OnTrigger(func() {
			t.StoppedEvent().Trigger()
		})

		t.ConstructedEvent().Trigger()
	})
}

// RejectTransaction marks the transaction at the given position as rejected. Rejecting a position whose round is
// already outside the window is a no-op.
func (t *Tracker) RejectTransaction(position model.TransactionPosition) {
	if !t.markRejected(position) {
		return
	}

	t.rejectionNotifier.Notify(position, struct{}{})
	t.Events.TransactionRejected.Trigger(position)
}

// WaitForRejection waits until the position is rejected, its round expires or the timeout elapses.
func (t *Tracker) WaitForRejection(ctx context.Context, position model.TransactionPosition, timeout time.Duration) error {
	registration := t.rejectionNotifier.Register(position)
	defer registration.Cancel()

	if t.IsRejected(position) {
		return t.resolveWait(rejections.ReasonRejected)
	}

	if t.isExpired(position) {
		return t.resolveWait(rejections.ReasonExpired)
	}

	timeoutTimer := time.NewTimer(timeout)
	defer timeoutTimer.Stop()

	expirationTicker := time.NewTicker(t.optsExpirationPollInterval)
	defer expirationTicker.Stop()

	for {
		select {
		case <-registration.Done():
			return t.resolveWait(rejections.ReasonRejected)
		case <-expirationTicker.C:
			if t.isExpired(position) {
				return t.resolveWait(rejections.ReasonExpired)
			}
		case <-timeoutTimer.C:
			return t.resolveWait(rejections.ReasonTimedOut)
		case <-ctx.Done():
			return ierrors.Wrapf(ctx.Err(), "stopped waiting for rejection of %s", position)
		}
	}
}

// UpdateLastCommittedRound sets the last committed round and evicts all rounds that fell out of the window. Rounds
// below the current high-water mark are ignored.
func (t *Tracker) UpdateLastCommittedRound(round model.Round) {
	t.mutex.Lock()

	if t.lastCommittedRoundSet && round < t.lastCommittedRound {
		lastCommittedRound := t.lastCommittedRound
		t.mutex.Unlock()

		t.LogWarn("ignoring regression of last committed round", "round", round, "lastCommittedRound", lastCommittedRound)

		return
	}

	expiredPositions := 0
	for {
		oldestRound, positions, exists := t.roundIndex.Min()
		if !exists || !t.isBeforeWindow(oldestRound, round) {
			break
		}

		t.roundIndex.Delete(oldestRound)
		for position := range positions {
			delete(t.rejected, position)
		}

		expiredPositions += len(positions)
	}

	t.lastCommittedRound = round
	t.lastCommittedRoundSet = true

	t.mutex.Unlock()

	if expiredPositions > 0 {
		t.Events.RoundsExpired.Trigger(round, expiredPositions)
	}
}

// IsRejected returns true if the position is currently retained as rejected.
func (t *Tracker) IsRejected(position model.TransactionPosition) bool {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	_, exists := t.rejected[position]

	return exists
}

// LastCommittedRound returns the last committed round and whether it was set already.
func (t *Tracker) LastCommittedRound() (round model.Round, isSet bool) {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	return t.lastCommittedRound, t.lastCommittedRoundSet
}

// Size returns the number of retained positions and rounds.
func (t *Tracker) Size() (positions int, rounds int) {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	return len(t.rejected), t.roundIndex.Len()
}

// markRejected adds the position to the rejected set and the round index and returns false if the position is stale.
func (t *Tracker) markRejected(position model.TransactionPosition) bool {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.isOutsideWindow(position.Round()) {
		return false
	}

	t.rejected[position] = struct{}{}

	positions, exists := t.roundIndex.Get(position.Round())
	if !exists {
		positions = make(map[model.TransactionPosition]struct{})
		t.roundIndex.Set(position.Round(), positions)
	}
	positions[position] = struct{}{}

	return true
}

func (t *Tracker) isExpired(position model.TransactionPosition) bool {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	return t.isOutsideWindow(position.Round())
}

// isOutsideWindow must be called with the mutex held.
func (t *Tracker) isOutsideWindow(round model.Round) bool {
	return t.lastCommittedRoundSet && t.isBeforeWindow(round, t.lastCommittedRound)
}

// isBeforeWindow returns true if round + window < committedRound without overflowing.
func (t *Tracker) isBeforeWindow(round model.Round, committedRound model.Round) bool {
	return committedRound > t.optsExpirationWindow && round < committedRound-t.optsExpirationWindow
}

func (t *Tracker) resolveWait(reason rejections.Reason) error {
	t.Events.WaitResolved.Trigger(reason)

	return rejections.NewRejectedByConsensusError(reason)
}

func (t *Tracker) initLogging() {
	logLevel := log.LevelTrace

	t.Events.TransactionRejected.Hook(func(position model.TransactionPosition) {
		t.Log("transaction rejected", logLevel, "position", position)
	})

	t.Events.RoundsExpired.Hook(func(round model.Round, expiredPositions int) {
		t.LogDebug("rejections expired", "lastCommittedRound", round, "positions", expiredPositions)
	})
}

// WithExpirationWindow sets the number of rounds a rejection is retained.
func WithExpirationWindow(window model.Round) options.Option[Tracker] {
	return func(t *Tracker) {
		t.optsExpirationWindow = window
	}
}

// WithExpirationPollInterval sets the interval in which waiters check whether their round expired.
func WithExpirationPollInterval(interval time.Duration) options.Option[Tracker] {
	return func(t *Tracker) {
		t.optsExpirationPollInterval = interval
	}
}

var _ rejections.Tracker = new(Tracker)
