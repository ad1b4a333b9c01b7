package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
)

type ErrorTestSuite struct {
	suite.Suite
}

func TestErrorSuite(t *testing.T) {
	suite.Run(t, new(ErrorTestSuite))
}

func (suite *ErrorTestSuite) TestNewError() {
	err := New(ErrCodeInvalidStopLoss, "stop loss value out of range")
	suite.Equal(ErrCodeInvalidStopLoss, err.Code)
	suite.Equal("stop loss value out of range", err.Message)
	suite.Nil(err.Cause)
	suite.Equal("[102] stop loss value out of range", err.Error())
}

func (suite *ErrorTestSuite) TestNewfError() {
	err := Newf(ErrCodePositionNotFound, "position %d not found", 7)
	suite.Equal(ErrCodePositionNotFound, err.Code)
	suite.Equal("position 7 not found", err.Message)
}

func (suite *ErrorTestSuite) TestWrapError() {
	cause := errors.New("disk full")
	err := Wrap(ErrCodeSnapshotFailed, "failed to save state", cause)
	suite.Equal(cause, err.Unwrap())
	suite.Equal("[405] failed to save state: disk full", err.Error())

	wrapped := Wrapf(ErrCodeQueryFailed, cause, "query %s failed", "bars")
	suite.Equal("query bars failed", wrapped.Message)
	suite.True(Is(wrapped, cause))
}

func (suite *ErrorTestSuite) TestGetCode() {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{name: "typed error", err: New(ErrCodeInsufficientRisk, "zero distance"), want: ErrCodeInsufficientRisk},
		{name: "wrapped with fmt", err: fmt.Errorf("open: %w", New(ErrCodeMaxPositions, "full")), want: ErrCodeMaxPositions},
		{name: "insufficient data", err: NewInsufficientDataError(14, 3, "BTCUSDT", "need more bars"), want: ErrCodeInsufficientData},
		{name: "plain error", err: errors.New("boom"), want: ErrCodeUnknown},
		{name: "nil error", err: nil, want: ErrCodeUnknown},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			suite.Equal(tc.want, GetCode(tc.err))
		})
	}
}

func (suite *ErrorTestSuite) TestHasCode() {
	err := fmt.Errorf("outer: %w", Wrap(ErrCodeOrderFailed, "rejected", errors.New("x")))
	suite.True(HasCode(err, ErrCodeOrderFailed))
	suite.False(HasCode(err, ErrCodeJournalFailed))
}

func (suite *ErrorTestSuite) TestAs() {
	var target *Error
	err := fmt.Errorf("outer: %w", New(ErrCodeDataNotFound, "missing"))
	suite.True(As(err, &target))
	suite.Equal(ErrCodeDataNotFound, target.Code)
}

func (suite *ErrorTestSuite) TestInsufficientDataError() {
	err := NewInsufficientDataErrorf(20, 5, "ETHUSDT", "volatility model needs %d bars, got %d", 20, 5)
	suite.Equal("volatility model needs 20 bars, got 5", err.Error())
	suite.Equal(20, err.Required)
	suite.Equal(5, err.Actual)
	suite.True(IsInsufficientDataError(fmt.Errorf("stop: %w", err)))
	suite.False(IsInsufficientDataError(errors.New("other")))
}

func (suite *ErrorTestSuite) TestCategory() {
	suite.Equal("configuration", ErrCodeInvalidWeights.Category())
	suite.Equal("data", ErrCodeInsufficientData.Category())
	suite.Equal("signal", ErrCodeSignalLengthMismatch.Category())
	suite.Equal("risk", ErrCodeDailyBreakerActive.Category())
	suite.Equal("execution", ErrCodeOrderFailed.Category())
	suite.Equal("backtest", ErrCodeResultWriteFailed.Category())
	suite.Equal("callback", ErrCodeCallbackFailed.Category())
	suite.Equal("general", ErrCodeUnknown.Category())
}
