package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidOrder         ErrorCode = 102
	ErrCodeInvalidPeriod        ErrorCode = 103
	ErrCodeInvalidInterval      ErrorCode = 104
	ErrCodeMissingParameter     ErrorCode = 105

	// Data errors (200-299)
	ErrCodeNoDataFound    ErrorCode = 200
	ErrCodeProviderFailed ErrorCode = 201
	ErrCodeDataParse      ErrorCode = 202

	// Indicator errors (300-399)
	ErrCodeIndicatorCalculation ErrorCode = 300

	// Strategy errors (400-499)
	ErrCodeStrategyConfig ErrorCode = 400
	ErrCodeStrategySignal ErrorCode = 401

	// Trading errors (500-599)
	ErrCodeOrderNotFound     ErrorCode = 500
	ErrCodeOrderNotPending   ErrorCode = 501
	ErrCodePositionNotFound  ErrorCode = 502
	ErrCodeInsufficientFunds ErrorCode = 503

	// Backtest errors (600-699)
	ErrCodeStrategyNotSet ErrorCode = 600
	ErrCodeProviderNotSet ErrorCode = 601
	ErrCodeNoSymbols      ErrorCode = 602
	ErrCodeResultStore    ErrorCode = 603

	// Analytics errors (700-799)
	ErrCodeEmptySample ErrorCode = 700
)
