package txmanager

import (
	"context"
	"time"

	"github.com/iotaledger/consensus-executor/pkg/model"
	"github.com/iotaledger/hive.go/runtime/module"
)

// TransactionManager decides when certified transactions are ready to be executed.
type TransactionManager interface {
	// EnqueueCertificates schedules the given certificates for execution once their inputs are available.
	EnqueueCertificates(certificates []*model.VerifiedCertificate, epochStore EpochStore)

	// Enqueue schedules the given executable transactions for execution once their inputs are available.
	Enqueue(certificates []*model.Certificate, epochStore EpochStore)

	// EnqueueWithExpectedEffectsDigest schedules the given transactions together with the digest of the effects that
	// their execution is expected to produce.
	EnqueueWithExpectedEffectsDigest(certificates []*CertificateWithEffectsDigest, epochStore EpochStore)

	// CheckExecutionOverload is the admission gate that is evaluated before transactions are scheduled.
	CheckExecutionOverload(config OverloadConfig, transactionData *model.TransactionData) error

	// InFlight returns the number of transactions that are currently waiting to become ready.
	InFlight() int64

	module.Module
}

// ObjectCacheReader provides access to the availability of objects.
type ObjectCacheReader interface {
	// NotifyReadInputObjects blocks until all the given keys are available. The receiving keys are a subset of keys
	// that refer to objects that are received by the transaction.
	NotifyReadInputObjects(ctx context.Context, keys []model.InputKey, receivingKeys map[model.InputKey]struct{}, epoch model.Epoch) error
}

// TransactionCacheReader provides access to the executed effects of transactions.
type TransactionCacheReader interface {
	// NotifyReadExecutedEffects blocks until all the given transactions were executed and returns their effects.
	NotifyReadExecutedEffects(ctx context.Context, digests []model.TransactionDigest) ([]*model.TransactionEffects, error)
}

// EpochStore provides the epoch-scoped state that is required to schedule transactions.
type EpochStore interface {
	// Epoch returns the epoch of the store.
	Epoch() model.Epoch

	// Context returns a context that is cancelled when the epoch ends.
	Context() context.Context

	// InputObjectKeys resolves the declared inputs of the given transaction to concrete keys.
	InputObjectKeys(transactionKey model.TransactionKey, inputs []model.InputObjectKind) ([]model.InputKey, error)
}

// CertificateWithEffectsDigest is a certificate whose execution outcome is known in advance.
type CertificateWithEffectsDigest struct {
	Certificate           *model.Certificate
	ExpectedEffectsDigest model.EffectsDigest
}

// OverloadConfig contains the thresholds of the admission control.
type OverloadConfig struct {
	// MaxTransactionAgeInQueue is the maximum time a transaction may wait for its inputs before load is shed.
	MaxTransactionAgeInQueue time.Duration

	// MaxInFlightTransactions is the maximum number of transactions that wait for their inputs.
	MaxInFlightTransactions int64

	// CheckInterval is the interval in which the load is evaluated.
	CheckInterval time.Duration
}
