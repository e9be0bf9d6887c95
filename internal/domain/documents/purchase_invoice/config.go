package purchase_invoice

import "pharmacore/internal/core/numerator"

const (
	// NumberPrefix for generated invoice numbers (PUR-2026-00001).
	NumberPrefix = "PUR"

	// NumeratorStrategy: purchase invoices are primary accounting
	// documents, numbers must be gapless.
	NumeratorStrategy = numerator.StrategyStrict
)
