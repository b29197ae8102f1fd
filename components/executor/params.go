package executor

import (
	"time"

	"github.com/iotaledger/hive.go/app"
)

// ParametersExecutor contains the definition of the configuration parameters used by the Executor component.
type ParametersExecutor struct {
	// InitialEpoch defines the epoch the executor starts in.
	InitialEpoch uint64 `default:"0" usage:"the epoch the executor starts in"`
	// ExecutionWorkerCount defines the number of workers that process the ready certificates.
	ExecutionWorkerCount int `default:"4" usage:"the number of workers that process the ready certificates"`

	Rejections struct {
		// ExpirationWindow defines the number of rounds a rejected position is retained after the last committed round.
		ExpirationWindow uint64 `default:"100" usage:"the number of rounds a rejected position is retained after the last committed round"`
		// PollInterval defines the interval in which waiting requests check whether their round expired.
		PollInterval time.Duration `default:"50ms" usage:"the interval in which waiting requests check whether their round expired"`
	}

	WaitForEffects struct {
		// Timeout defines the time after which a wait for effects is resolved as timed out.
		Timeout time.Duration `default:"10s" usage:"the time after which a wait for effects is resolved as timed out"`
		// ResponseCacheSizeBytes defines the maximum size of the cache of encoded responses.
		ResponseCacheSizeBytes int `default:"33554432" usage:"the maximum size of the cache of encoded responses in bytes"`
	}

	Overload struct {
		// MaxTransactionAgeInQueue defines the maximum time a transaction may wait for its inputs before load is shed.
		MaxTransactionAgeInQueue time.Duration `default:"1s" usage:"the maximum time a transaction may wait for its inputs before load is shed"`
		// MaxInFlightTransactions defines the maximum number of transactions that wait for their inputs.
		MaxInFlightTransactions int64 `default:"100000" usage:"the maximum number of transactions that wait for their inputs"`
		// CheckInterval defines the interval in which the load is evaluated.
		CheckInterval time.Duration `default:"100ms" usage:"the interval in which the load is evaluated"`
	}
}

// ParamsExecutor contains the values of the configuration parameters used by the Executor component.
var ParamsExecutor = &ParametersExecutor{}

var params = &app.ComponentParams{
	Params: map[string]any{
		"executor": ParamsExecutor,
	},
}
