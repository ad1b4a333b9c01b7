package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Configuration errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidStopLoss      ErrorCode = 102
	ErrCodeInvalidTakeProfit    ErrorCode = 103
	ErrCodeInvalidThreshold     ErrorCode = 104
	ErrCodeInvalidWeights       ErrorCode = 105
	ErrCodeInvalidTimezone      ErrorCode = 106
	ErrCodeInvalidBar           ErrorCode = 107
	ErrCodeInvalidVersion       ErrorCode = 108

	// Data errors (200-299)
	ErrCodeDataNotFound          ErrorCode = 200
	ErrCodeDataSourceUnavailable ErrorCode = 201
	ErrCodeQueryFailed           ErrorCode = 202
	ErrCodeInsufficientData      ErrorCode = 203
	ErrCodeAlertMergeFailed      ErrorCode = 204

	// Signal errors (300-399)
	ErrCodeUnsupportedSignalSource ErrorCode = 300
	ErrCodeSignalLengthMismatch    ErrorCode = 301

	// Risk errors (400-499)
	ErrCodeInsufficientRisk   ErrorCode = 400
	ErrCodePositionNotFound   ErrorCode = 401
	ErrCodeDailyBreakerActive ErrorCode = 402
	ErrCodeMaxPositions       ErrorCode = 403
	ErrCodeStateNil           ErrorCode = 404
	ErrCodeSnapshotFailed     ErrorCode = 405
	ErrCodeVersionMismatch    ErrorCode = 406

	// Execution errors (500-599)
	ErrCodeOrderFailed    ErrorCode = 500
	ErrCodeJournalFailed  ErrorCode = 501
	ErrCodeGatewayMissing ErrorCode = 502

	// Backtest errors (600-699)
	ErrCodeBacktestInitFailed   ErrorCode = 600
	ErrCodeBacktestConfigError  ErrorCode = 601
	ErrCodeBacktestNoDatasource ErrorCode = 602
	ErrCodeBacktestNoResultsDir ErrorCode = 603
	ErrCodeResultWriteFailed    ErrorCode = 604

	// Callback errors (800-899)
	ErrCodeCallbackFailed ErrorCode = 800
)

// Category returns the coarse group an error code belongs to.
func (c ErrorCode) Category() string {
	switch {
	case c >= 100 && c < 200:
		return "configuration"
	case c >= 200 && c < 300:
		return "data"
	case c >= 300 && c < 400:
		return "signal"
	case c >= 400 && c < 500:
		return "risk"
	case c >= 500 && c < 600:
		return "execution"
	case c >= 600 && c < 700:
		return "backtest"
	case c >= 800 && c < 900:
		return "callback"
	default:
		return "general"
	}
}
