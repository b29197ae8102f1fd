package txmanager

import (
	"github.com/iotaledger/consensus-executor/pkg/model"
	"github.com/iotaledger/hive.go/runtime/event"
)

// SkipReason describes why a certificate was not handed off to execution.
type SkipReason string

const (
	// SkipReasonWrongEpoch is used for certificates that do not belong to the epoch of the store.
	SkipReasonWrongEpoch SkipReason = "wrong_epoch"

	// SkipReasonUnresolvedInputs is used if the inputs could not be resolved, which happens after execution.
	SkipReasonUnresolvedInputs SkipReason = "unresolved_inputs"

	// SkipReasonAlreadyExecuted is used if the effects of the transaction became available first.
	SkipReasonAlreadyExecuted SkipReason = "already_executed"

	// SkipReasonEpochEnded is used if the epoch ended while waiting.
	SkipReasonEpochEnded SkipReason = "epoch_ended"
)

// Events represents events happening in the TransactionManager.
type Events struct {
	// CertificateReady gets triggered after a certificate was handed off to execution.
	CertificateReady *event.Event1[*PendingCertificate]

	// CertificateSkipped gets triggered when a certificate was dropped without being handed off.
	CertificateSkipped *event.Event2[*model.Certificate, SkipReason]

	event.Group[Events, *Events]
}

// NewEvents contains the constructor of the Events object (it is generated by a generic factory).
var NewEvents = event.CreateGroupConstructor(func() (newEvents *Events) {
	return &Events{
		CertificateReady:   event.New1[*PendingCertificate](),
		CertificateSkipped: event.New2[*model.Certificate, SkipReason](),
	}
})
