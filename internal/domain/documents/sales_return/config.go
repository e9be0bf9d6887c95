package sales_return

import "pharmacore/internal/core/numerator"

const (
	// NumberPrefix for generated return numbers (SRT-2026-00001).
	NumberPrefix = "SRT"

	// NumeratorStrategy: returns are primary accounting documents,
	// numbers must be gapless.
	NumeratorStrategy = numerator.StrategyStrict
)
