package model

import "errors"

var (
	// Not-found
	ErrPromotionNotFound = errors.New("promotion not found")
	ErrPhaseNotFound     = errors.New("phase not found")
	ErrRewardNotFound    = errors.New("reward not found")
	ErrConditionNotFound = errors.New("qualify condition not found")

	// Invalid-state
	ErrNotDepositCondition  = errors.New("qualify condition is not of type DEPOSIT")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrInvalidDepositAmount = errors.New("deposit amount must be greater than zero")

	// Malformed-variant: a persisted discriminant outside the known set.
	// Always a data-integrity failure, never silently defaulted.
	ErrUnknownVariant = errors.New("unknown variant discriminant")

	// Model invariants
	ErrMissingName                    = errors.New("name is required")
	ErrPromotionNoPhases              = errors.New("promotion must have at least one phase")
	ErrSinglePromotionPhaseCount      = errors.New("SINGLE promotion must have exactly one phase")
	ErrPromotionTimeframeNotAbsolute  = errors.New("promotion timeframe must be ABSOLUTE")
	ErrMultipleContributingConditions = errors.New("reward has more than one value-contributing qualify condition")
	ErrNoContributingCondition        = errors.New("calculated-value reward has no contributing qualify condition")
	ErrRewardMissingUsageConditions   = errors.New("reward has no usage conditions")
	ErrConditionMissingSpec           = errors.New("qualify condition has no conditions object")
	ErrConditionSpecMismatch          = errors.New("conditions object does not match discriminant")
	ErrConditionInvalidAmount         = errors.New("condition amount must be greater than zero")
	ErrConditionInvalidPercentage     = errors.New("condition percentage out of range")
	ErrConditionInvalidOdds           = errors.New("minimum odds must be at least 1.00")

	// Timeframe shape
	ErrTimeframeMissingStart     = errors.New("absolute timeframe requires a start date")
	ErrTimeframeEndBeforeStart   = errors.New("timeframe end must be after start")
	ErrTimeframeMissingAnchor    = errors.New("relative timeframe requires an anchor")
	ErrTimeframeUnexpectedAnchor = errors.New("only relative timeframes carry an anchor")
	ErrTimeframeInvalidOffset    = errors.New("timeframe offset days must be positive")
)
