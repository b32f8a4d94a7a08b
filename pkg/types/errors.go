package types

import "errors"

// Sentinel errors for the validation / risk / consistency taxonomy.
// Callers match with errors.Is; the messages double as audit codes.
var (
	// Pool ledger validation errors.
	ErrBelowMinimum     = errors.New("BELOW_MINIMUM")
	ErrPoolFull         = errors.New("POOL_FULL")
	ErrNotFound         = errors.New("NOT_FOUND")
	ErrAlreadyExists    = errors.New("ALREADY_EXISTS")
	ErrAlreadyWithdrawn = errors.New("ALREADY_WITHDRAWN")

	// Quorum errors.
	ErrAlreadyDecided = errors.New("ALREADY_DECIDED")
	ErrNotPending     = errors.New("NOT_PENDING")

	// Risk gate rejections.
	ErrRiskLimitConcurrency = errors.New("RISK_LIMIT_CONCURRENCY")
	ErrRiskLimitDailyLoss   = errors.New("RISK_LIMIT_DAILY_LOSS")

	// Reserve consistency errors.
	ErrInsufficientReserve = errors.New("INSUFFICIENT_RESERVE")
	ErrReserveHealthLow    = errors.New("RESERVE_HEALTH_BELOW_MINIMUM")

	// Product registry errors.
	ErrProductDisabled = errors.New("PRODUCT_DISABLED")
	ErrNoHandler       = errors.New("NO_HANDLER")
)
