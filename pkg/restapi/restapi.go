package restapi

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iotaledger/consensus-executor/pkg/executor"
	"github.com/iotaledger/consensus-executor/pkg/model"
	"github.com/iotaledger/consensus-executor/pkg/protocol/engine/rejections"
	"github.com/iotaledger/hive.go/ierrors"
)

const (
	// ParameterRound is used to identify a consensus round.
	ParameterRound = "round"
)

var (
	// ErrInvalidParameter is returned if a path or query parameter could not be parsed.
	ErrInvalidParameter = ierrors.New("invalid parameter")

	// ErrInvalidBody is returned if the body of a request could not be read.
	ErrInvalidBody = ierrors.New("invalid body")
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	// Reason is set if consensus rejected the transaction or the wait for it ended without effects.
	Reason rejections.Reason `json:"reason,omitempty"`
}

// ParseRoundParam parses the round path parameter.
func ParseRoundParam(c echo.Context) (model.Round, error) {
	round, err := strconv.ParseUint(c.Param(ParameterRound), 10, 64)
	if err != nil {
		return 0, ierrors.Wrapf(ErrInvalidParameter, "invalid round %q: %s", c.Param(ParameterRound), err)
	}

	return model.Round(round), nil
}

// ReadBody reads the complete body of the request.
func ReadBody(c echo.Context) ([]byte, error) {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return nil, ierrors.Wrapf(ErrInvalidBody, "failed to read body: %s", err)
	}

	if len(body) == 0 {
		return nil, ierrors.Wrap(ErrInvalidBody, "empty body")
	}

	return body, nil
}

// HTTPError maps the errors of the executor to their status codes.
func HTTPError(err error) *echo.HTTPError {
	if reason, isRejection := rejections.ReasonFromError(err); isRejection {
		return echo.NewHTTPError(http.StatusConflict, &ErrorResponse{Error: err.Error(), Reason: reason})
	}

	switch {
	case ierrors.Is(err, model.ErrMessageDeserialization), ierrors.Is(err, ErrInvalidParameter), ierrors.Is(err, ErrInvalidBody):
		return echo.NewHTTPError(http.StatusBadRequest, &ErrorResponse{Error: err.Error()})
	case ierrors.Is(err, executor.ErrShutdown), ierrors.Is(err, context.Canceled):
		return echo.NewHTTPError(http.StatusServiceUnavailable, &ErrorResponse{Error: err.Error()})
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, &ErrorResponse{Error: err.Error()})
	}
}
