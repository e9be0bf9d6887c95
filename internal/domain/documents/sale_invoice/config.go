package sale_invoice

import "pharmacore/internal/core/numerator"

const (
	// NumberPrefix for generated invoice numbers (SAL-2026-00001).
	NumberPrefix = "SAL"

	// NumeratorStrategy: sale invoices are primary accounting documents,
	// numbers must be gapless.
	NumeratorStrategy = numerator.StrategyStrict
)
