package executorapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iotaledger/consensus-executor/pkg/executor"
	"github.com/iotaledger/consensus-executor/pkg/model"
	"github.com/iotaledger/consensus-executor/pkg/restapi"
	"github.com/iotaledger/hive.go/ierrors"
)

// InfoResponse is the response of the info route.
type InfoResponse struct {
	Epoch              model.Epoch  `json:"epoch"`
	InFlight           int64        `json:"inFlight"`
	LastCommittedRound *model.Round `json:"lastCommittedRound,omitempty"`
	RejectedPositions  int          `json:"rejectedPositions"`
	RetainedRounds     int          `json:"retainedRounds"`
}

// CertificateResponse is the response of a scheduled certificate.
type CertificateResponse struct {
	TransactionDigest string      `json:"transactionDigest"`
	Epoch             model.Epoch `json:"epoch"`
}

// EpochResponse is the response of a reconfiguration.
type EpochResponse struct {
	Epoch model.Epoch `json:"epoch"`
}

func info(c echo.Context, executorInstance *executor.Executor) error {
	response := &InfoResponse{
		Epoch:    executorInstance.CurrentEpochStore().Epoch(),
		InFlight: executorInstance.TransactionManager.InFlight(),
	}

	if round, isSet := executorInstance.RejectionTracker.LastCommittedRound(); isSet {
		response.LastCommittedRound = &round
	}
	response.RejectedPositions, response.RetainedRounds = executorInstance.RejectionTracker.Size()

	return c.JSON(http.StatusOK, response)
}

func waitForEffects(c echo.Context, executorInstance *executor.Executor) error {
	body, err := restapi.ReadBody(c)
	if err != nil {
		return restapi.HTTPError(err)
	}

	request, err := model.RawWaitForEffectsRequestFromBytes(body)
	if err != nil {
		return restapi.HTTPError(err)
	}

	response, err := executorInstance.RequestHandler.WaitForEffects(c.Request().Context(), request)
	if err != nil {
		return restapi.HTTPError(err)
	}

	responseBytes, err := response.Bytes()
	if err != nil {
		return restapi.HTTPError(ierrors.Wrap(err, "failed to encode response"))
	}

	return c.Blob(http.StatusOK, echo.MIMEOctetStream, responseBytes)
}

func submitCertificate(c echo.Context, executorInstance *executor.Executor) error {
	body, err := restapi.ReadBody(c)
	if err != nil {
		return restapi.HTTPError(err)
	}

	transactionData, consumedBytes, err := model.TransactionDataFromBytes(body)
	if err = checkDecoded(consumedBytes, len(body), err); err != nil {
		return restapi.HTTPError(ierrors.Wrap(err, "invalid transaction data"))
	}

	certificate := model.NewCertificate(transactionData, executorInstance.CurrentEpochStore().Epoch())
	if err = executorInstance.Submit(certificate); err != nil {
		return restapi.HTTPError(err)
	}

	return c.JSON(http.StatusAccepted, &CertificateResponse{
		TransactionDigest: certificate.Digest().String(),
		Epoch:             certificate.Epoch(),
	})
}

func rejectTransaction(c echo.Context, executorInstance *executor.Executor) error {
	body, err := restapi.ReadBody(c)
	if err != nil {
		return restapi.HTTPError(err)
	}

	position, consumedBytes, err := model.TransactionPositionFromBytes(body)
	if err = checkDecoded(consumedBytes, len(body), err); err != nil {
		return restapi.HTTPError(ierrors.Wrap(err, "invalid transaction position"))
	}

	executorInstance.RequestHandler.RejectTransaction(position)

	return c.NoContent(http.StatusNoContent)
}

func updateLastCommittedRound(c echo.Context, executorInstance *executor.Executor) error {
	round, err := restapi.ParseRoundParam(c)
	if err != nil {
		return restapi.HTTPError(err)
	}

	executorInstance.RequestHandler.UpdateLastCommittedRound(round)

	return c.NoContent(http.StatusNoContent)
}

func reconfigure(c echo.Context, executorInstance *executor.Executor) error {
	epochStore, err := executorInstance.Reconfigure()
	if err != nil {
		return restapi.HTTPError(err)
	}

	return c.JSON(http.StatusOK, &EpochResponse{Epoch: epochStore.Epoch()})
}

func checkDecoded(consumedBytes int, length int, err error) error {
	if err == nil && consumedBytes != length {
		err = ierrors.Errorf("unexpected trailing bytes: consumed %d of %d", consumedBytes, length)
	}

	if err != nil {
		return ierrors.Join(model.ErrMessageDeserialization, err)
	}

	return nil
}
