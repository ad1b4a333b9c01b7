package risk

import (
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-ladder/internal/types"
	"github.com/rxtech-lab/argo-ladder/pkg/errors"
)

// Rejection explains why an entry was not opened. The zero value means accepted.
type Rejection string

const (
	RejectionNone             Rejection = ""
	RejectionDailyBreaker     Rejection = "DAILY_BREAKER_ACTIVE"
	RejectionMaxPositions     Rejection = "MAX_CONCURRENT_POSITIONS"
	RejectionInsufficientRisk Rejection = "INSUFFICIENT_RISK"
	RejectionInsufficientData Rejection = "INSUFFICIENT_DATA"
	RejectionZeroQuantity     Rejection = "ZERO_QUANTITY"
	RejectionInvalidPrice     Rejection = "INVALID_PRICE"
)

// Err converts a rejection into a coded error for callers that propagate it.
func (r Rejection) Err() error {
	switch r {
	case RejectionNone:
		return nil
	case RejectionDailyBreaker:
		return errors.New(errors.ErrCodeDailyBreakerActive, "daily loss breaker is active")
	case RejectionMaxPositions:
		return errors.New(errors.ErrCodeMaxPositions, "maximum concurrent positions reached")
	case RejectionInsufficientData:
		return errors.New(errors.ErrCodeInsufficientData, "not enough history for stop loss model")
	case RejectionInvalidPrice:
		return errors.New(errors.ErrCodeInvalidParameter, "entry price must be positive")
	default:
		return errors.Newf(errors.ErrCodeInsufficientRisk, "entry rejected: %s", string(r))
	}
}

type UpdateStatus string

const (
	UpdateStatusUpdated         UpdateStatus = "UPDATED"
	UpdateStatusPartiallyClosed UpdateStatus = "PARTIALLY_CLOSED"
	UpdateStatusFullyClosed     UpdateStatus = "FULLY_CLOSED"
	UpdateStatusRunnerActivated UpdateStatus = "RUNNER_ACTIVATED"
	UpdateStatusError           UpdateStatus = "ERROR"
)

// UpdateResult reports what a single price update did to a position.
type UpdateResult struct {
	PositionID    int
	Status        UpdateStatus
	Trade         optional.Option[types.Trade]
	UnrealizedPnL float64
	Err           error
}

// Closed reports whether the update removed the position from the book.
func (r UpdateResult) Closed() bool {
	return r.Status == UpdateStatusFullyClosed
}

func errorResult(id int, err error) UpdateResult {
	return UpdateResult{
		PositionID: id,
		Status:     UpdateStatusError,
		Trade:      optional.None[types.Trade](),
		Err:        err,
	}
}
