package txmanager

import (
	"time"

	"github.com/iotaledger/consensus-executor/pkg/model"
	"github.com/iotaledger/hive.go/stringify"
)

// PendingCertificate is a certificate whose inputs are available and that is handed off to execution.
type PendingCertificate struct {
	Certificate *model.Certificate

	// ExpectedEffectsDigest is set if the outcome of the execution is known in advance.
	ExpectedEffectsDigest *model.EffectsDigest

	// WaitingInputObjects is always empty at hand-off.
	WaitingInputObjects map[model.InputKey]struct{}

	Stats PendingCertificateStats
}

// PendingCertificateStats contains the timestamps of the scheduling of a certificate.
type PendingCertificateStats struct {
	EnqueueTime time.Time
	ReadyTime   time.Time
}

// ReadyLatency returns the time the certificate waited for its inputs.
func (p PendingCertificateStats) ReadyLatency() time.Duration {
	return p.ReadyTime.Sub(p.EnqueueTime)
}

func (p *PendingCertificate) String() string {
	builder := stringify.NewStructBuilder("PendingCertificate")
	builder.AddField(stringify.NewStructField("Certificate", p.Certificate.String()))
	if p.ExpectedEffectsDigest != nil {
		builder.AddField(stringify.NewStructField("ExpectedEffectsDigest", p.ExpectedEffectsDigest.String()))
	}
	builder.AddField(stringify.NewStructField("ReadyLatency", p.Stats.ReadyLatency()))

	return builder.String()
}
