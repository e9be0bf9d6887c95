package purchase_return

import "pharmacore/internal/core/numerator"

const (
	// NumberPrefix for generated return numbers (PRT-2026-00001).
	NumberPrefix = "PRT"

	// NumeratorStrategy: returns are primary accounting documents,
	// numbers must be gapless.
	NumeratorStrategy = numerator.StrategyStrict
)
