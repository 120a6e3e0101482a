package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidQuantity      ErrorCode = 102
	ErrCodeInvalidSide          ErrorCode = 103
	ErrCodeInvalidStopLoss      ErrorCode = 104
	ErrCodeInvalidTarget        ErrorCode = 105
	ErrCodeInsufficientData     ErrorCode = 106
	ErrCodeInvalidSchedule      ErrorCode = 107
	ErrCodeInvalidPeriod        ErrorCode = 108
	ErrCodeMissingParameter     ErrorCode = 109
	ErrCodeSettingsRejected     ErrorCode = 110

	// Data/Resource errors (200-299)
	ErrCodeDataNotFound          ErrorCode = 200
	ErrCodeDataSourceUnavailable ErrorCode = 201
	ErrCodeQueryFailed           ErrorCode = 202
	ErrCodeHistoricalDataFailed  ErrorCode = 203
	ErrCodeNoDataFound           ErrorCode = 204
	ErrCodeSymbolNotFound        ErrorCode = 205

	// Strategy errors (400-499)
	ErrCodeStrategyNotFound      ErrorCode = 400
	ErrCodeStrategyConfigError   ErrorCode = 401
	ErrCodeStrategyRuntimeError  ErrorCode = 402
	ErrCodeStrategyAlreadyExists ErrorCode = 403

	// Position errors (500-599)
	ErrCodeOrderFailed           ErrorCode = 500
	ErrCodePositionNotFound      ErrorCode = 501
	ErrCodePositionAlreadyClosed ErrorCode = 502
	ErrCodePositionNotInBook     ErrorCode = 503
	ErrCodeMarketDataMissing     ErrorCode = 504

	// Backtest progress errors (600-699)
	ErrCodeProgressLoadFailed  ErrorCode = 600
	ErrCodeProgressWriteFailed ErrorCode = 601
	ErrCodeProgressCorrupted   ErrorCode = 602
	ErrCodeBacktestExhausted   ErrorCode = 603
	ErrCodePairLocked          ErrorCode = 604

	// Broker errors (700-799)
	ErrCodeBrokerUnavailable ErrorCode = 700
	ErrCodeLTPUnavailable    ErrorCode = 701

	// Journal errors (800-899)
	ErrCodeJournalWriteFailed ErrorCode = 800
	ErrCodeJournalReadFailed  ErrorCode = 801
)
