package sale_invoice

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmacore/internal/core/apperror"
	"pharmacore/internal/core/id"
	"pharmacore/internal/core/types"
	"pharmacore/internal/domain"
)

func qty(v float64) types.Quantity {
	return types.NewQuantityFromFloat64(v)
}

func TestSaleInvoiceValidate(t *testing.T) {
	ctx := context.Background()
	customerID := id.New()

	t.Run("valid credit sale for registered customer", func(t *testing.T) {
		doc := NewSaleInvoice(&customerID, domain.PaymentCredit)
		doc.AddLine(id.New(), qty(2), 450, nil)
		assert.NoError(t, doc.Validate(ctx))
	})

	t.Run("walk-in requires a customer name", func(t *testing.T) {
		doc := NewSaleInvoice(nil, domain.PaymentCash)
		doc.AddLine(id.New(), qty(1), 450, nil)
		err := doc.Validate(ctx)
		assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
	})

	t.Run("walk-in cannot buy on credit", func(t *testing.T) {
		doc := NewSaleInvoice(nil, domain.PaymentCredit)
		doc.CustomerName = "Jan Wisniewski"
		doc.AddLine(id.New(), qty(1), 450, nil)
		err := doc.Validate(ctx)
		assert.True(t, apperror.HasCode(err, apperror.CodeBusinessRule))
	})

	t.Run("walk-in cash sale with name is valid", func(t *testing.T) {
		doc := NewSaleInvoice(nil, domain.PaymentCash)
		doc.CustomerName = "Jan Wisniewski"
		doc.AddLine(id.New(), qty(1), 450, nil)
		assert.NoError(t, doc.Validate(ctx))
	})

	t.Run("requires at least one line", func(t *testing.T) {
		doc := NewSaleInvoice(&customerID, domain.PaymentCash)
		err := doc.Validate(ctx)
		assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
	})

	t.Run("rejects invalid payment method", func(t *testing.T) {
		doc := NewSaleInvoice(&customerID, "barter")
		doc.AddLine(id.New(), qty(1), 450, nil)
		err := doc.Validate(ctx)
		assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
	})

	t.Run("rejects non-positive line quantity", func(t *testing.T) {
		doc := NewSaleInvoice(&customerID, domain.PaymentCash)
		doc.AddLine(id.New(), qty(0), 450, nil)
		err := doc.Validate(ctx)
		assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
	})
}

func TestSaleInvoiceTotals(t *testing.T) {
	customerID := id.New()
	doc := NewSaleInvoice(&customerID, domain.PaymentCash)

	// 2 x 450 + 3 x 790
	doc.AddLine(id.New(), qty(2), 450, nil)
	doc.AddLine(id.New(), qty(3), 790, nil)

	assert.Equal(t, types.MinorUnits(900+2370), doc.Amount)
	assert.Equal(t, 1, doc.Lines[0].LineNo)
	assert.Equal(t, 2, doc.Lines[1].LineNo)
}

func TestSaleInvoiceFractionalQuantityAmount(t *testing.T) {
	customerID := id.New()
	doc := NewSaleInvoice(&customerID, domain.PaymentCash)

	// 2.5 units at 450 minor units each.
	doc.AddLine(id.New(), qty(2.5), 450, nil)
	assert.Equal(t, types.MinorUnits(1125), doc.Amount)
}

func TestSaleInvoiceReplaceLines(t *testing.T) {
	customerID := id.New()
	doc := NewSaleInvoice(&customerID, domain.PaymentCash)
	doc.AddLine(id.New(), qty(5), 0, nil)

	medID := doc.Lines[0].MedicineID
	batchA, batchB := id.New(), id.New()

	doc.ReplaceLines([]SaleLine{
		{MedicineID: medID, BatchID: &batchA, Quantity: qty(3), UnitPrice: 450, UnitCost: 250},
		{MedicineID: medID, BatchID: &batchB, Quantity: qty(2), UnitPrice: 450, UnitCost: 260},
	})

	require.Len(t, doc.Lines, 2)
	assert.Equal(t, 1, doc.Lines[0].LineNo)
	assert.Equal(t, 2, doc.Lines[1].LineNo)
	assert.False(t, id.IsNil(doc.Lines[0].LineID))

	assert.Equal(t, types.MinorUnits(2250), doc.Amount)
	assert.Equal(t, types.MinorUnits(3*250+2*260), doc.Cost)
	assert.Equal(t, doc.Amount-doc.Cost, doc.Profit)
}

func TestSaleInvoiceIsWalkIn(t *testing.T) {
	assert.True(t, NewSaleInvoice(nil, domain.PaymentCash).IsWalkIn())

	nilID := id.Nil()
	assert.True(t, NewSaleInvoice(&nilID, domain.PaymentCash).IsWalkIn())

	customerID := id.New()
	assert.False(t, NewSaleInvoice(&customerID, domain.PaymentCash).IsWalkIn())
}
