package purchase_invoice

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"pharmacore/internal/core/apperror"
	"pharmacore/internal/core/id"
	"pharmacore/internal/core/types"
	"pharmacore/internal/domain"
)

func qty(v float64) types.Quantity {
	return types.NewQuantityFromFloat64(v)
}

func expiry() time.Time {
	return time.Now().AddDate(1, 0, 0)
}

func TestPurchaseInvoiceValidate(t *testing.T) {
	ctx := context.Background()

	t.Run("valid invoice passes", func(t *testing.T) {
		doc := NewPurchaseInvoice(id.New(), domain.PaymentCredit)
		doc.AddLine(id.New(), qty(100), 250, 450, expiry(), nil)
		assert.NoError(t, doc.Validate(ctx))
	})

	t.Run("requires supplier", func(t *testing.T) {
		doc := NewPurchaseInvoice(id.Nil(), domain.PaymentCash)
		doc.AddLine(id.New(), qty(1), 250, 450, expiry(), nil)
		err := doc.Validate(ctx)
		assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
	})

	t.Run("rejects invalid payment method", func(t *testing.T) {
		doc := NewPurchaseInvoice(id.New(), "barter")
		doc.AddLine(id.New(), qty(1), 250, 450, expiry(), nil)
		err := doc.Validate(ctx)
		assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
	})

	t.Run("requires at least one line", func(t *testing.T) {
		doc := NewPurchaseInvoice(id.New(), domain.PaymentCash)
		err := doc.Validate(ctx)
		assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
	})

	t.Run("every line needs a medicine", func(t *testing.T) {
		doc := NewPurchaseInvoice(id.New(), domain.PaymentCash)
		doc.AddLine(id.Nil(), qty(1), 250, 450, expiry(), nil)
		err := doc.Validate(ctx)
		assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		doc := NewPurchaseInvoice(id.New(), domain.PaymentCash)
		doc.AddLine(id.New(), qty(0), 250, 450, expiry(), nil)
		err := doc.Validate(ctx)
		assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
	})

	t.Run("rejects negative prices", func(t *testing.T) {
		doc := NewPurchaseInvoice(id.New(), domain.PaymentCash)
		doc.AddLine(id.New(), qty(1), types.MinorUnits(-1), 450, expiry(), nil)
		err := doc.Validate(ctx)
		assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
	})

	t.Run("requires expiry date", func(t *testing.T) {
		doc := NewPurchaseInvoice(id.New(), domain.PaymentCash)
		doc.AddLine(id.New(), qty(1), 250, 450, time.Time{}, nil)
		err := doc.Validate(ctx)
		assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
	})
}

func TestPurchaseInvoiceTotals(t *testing.T) {
	doc := NewPurchaseInvoice(id.New(), domain.PaymentCredit)

	// Totals use purchase prices, not the intended sale prices.
	doc.AddLine(id.New(), qty(100), 250, 450, expiry(), nil)
	doc.AddLine(id.New(), qty(40), 520, 790, expiry(), nil)

	assert.Equal(t, types.MinorUnits(25000+20800), doc.Amount)
	assert.Equal(t, 1, doc.Lines[0].LineNo)
	assert.Equal(t, 2, doc.Lines[1].LineNo)
	assert.Nil(t, doc.Lines[0].BatchID)
}

func TestPurchaseInvoiceFractionalQuantity(t *testing.T) {
	doc := NewPurchaseInvoice(id.New(), domain.PaymentCash)
	doc.AddLine(id.New(), qty(2.5), 100, 150, expiry(), nil)
	assert.Equal(t, types.MinorUnits(250), doc.Amount)
}

func TestPurchaseInvoiceDocumentType(t *testing.T) {
	assert.Equal(t, "PurchaseInvoice", NewPurchaseInvoice(id.New(), domain.PaymentCash).GetDocumentType())
}
