package batches

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmacore/internal/core/apperror"
	"pharmacore/internal/core/id"
	"pharmacore/internal/core/types"
)

func qty(v float64) types.Quantity {
	return types.NewQuantityFromFloat64(v)
}

func newTestBatch(remaining float64, expiry time.Time) *Batch {
	return NewBatch(id.New(), qty(remaining), 250, 450, expiry)
}

func TestBatchValidate(t *testing.T) {
	ctx := context.Background()
	expiry := time.Now().AddDate(1, 0, 0)

	t.Run("valid", func(t *testing.T) {
		b := newTestBatch(10, expiry)
		assert.NoError(t, b.Validate(ctx))
	})

	t.Run("missing medicine", func(t *testing.T) {
		b := NewBatch(id.Nil(), qty(10), 250, 450, expiry)
		err := b.Validate(ctx)
		assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
	})

	t.Run("zero quantity", func(t *testing.T) {
		b := newTestBatch(10, expiry)
		b.Quantity = 0
		b.RemainingQuantity = 0
		err := b.Validate(ctx)
		assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
	})

	t.Run("sold plus remaining exceeds total", func(t *testing.T) {
		b := newTestBatch(10, expiry)
		b.SoldQuantity = qty(5)
		err := b.Validate(ctx)
		assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
	})

	t.Run("missing expiry", func(t *testing.T) {
		b := newTestBatch(10, time.Time{})
		err := b.Validate(ctx)
		assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
	})

	t.Run("unknown status", func(t *testing.T) {
		b := newTestBatch(10, expiry)
		b.Status = "melted"
		err := b.Validate(ctx)
		assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
	})
}

func TestBatchSellabilityWindows(t *testing.T) {
	asOf := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("far expiry is sellable and not near expiry", func(t *testing.T) {
		b := newTestBatch(10, asOf.AddDate(0, 6, 0))
		assert.True(t, b.IsSellable(asOf))
		assert.False(t, b.IsNearExpiry(asOf))
	})

	t.Run("exactly at minimum days is sellable", func(t *testing.T) {
		b := newTestBatch(10, asOf.AddDate(0, 0, SellableMinDays))
		assert.True(t, b.IsSellable(asOf))
	})

	t.Run("below minimum days is not sellable", func(t *testing.T) {
		b := newTestBatch(10, asOf.AddDate(0, 0, SellableMinDays-1))
		assert.False(t, b.IsSellable(asOf))
	})

	t.Run("inside clearance window is near expiry", func(t *testing.T) {
		b := newTestBatch(10, asOf.AddDate(0, 0, NearExpiryDays))
		assert.True(t, b.IsNearExpiry(asOf))
		assert.True(t, b.IsSellable(asOf))
	})

	t.Run("non-active status is not sellable", func(t *testing.T) {
		b := newTestBatch(10, asOf.AddDate(0, 6, 0))
		b.Status = StatusQuarantined
		assert.False(t, b.IsSellable(asOf))
	})

	t.Run("drained batch is not sellable", func(t *testing.T) {
		b := newTestBatch(10, asOf.AddDate(0, 6, 0))
		require.NoError(t, b.Reserve(qty(10)))
		assert.False(t, b.IsSellable(asOf))
	})
}

func TestBatchIsExpired(t *testing.T) {
	asOf := time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC)

	b := newTestBatch(10, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	// Expiry day itself still counts as usable.
	assert.False(t, b.IsExpired(asOf))

	b.ExpiryDate = time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)
	assert.True(t, b.IsExpired(asOf))
}

func TestBatchReserveRelease(t *testing.T) {
	expiry := time.Now().AddDate(1, 0, 0)

	t.Run("reserve moves stock to sold", func(t *testing.T) {
		b := newTestBatch(10, expiry)
		require.NoError(t, b.Reserve(qty(4)))
		assert.Equal(t, qty(6), b.RemainingQuantity)
		assert.Equal(t, qty(4), b.SoldQuantity)
		assert.Equal(t, StatusActive, b.Status)
	})

	t.Run("draining marks batch empty", func(t *testing.T) {
		b := newTestBatch(10, expiry)
		require.NoError(t, b.Reserve(qty(10)))
		assert.Equal(t, StatusEmpty, b.Status)
	})

	t.Run("over-reserve fails", func(t *testing.T) {
		b := newTestBatch(3, expiry)
		err := b.Reserve(qty(5))
		assert.True(t, apperror.HasCode(err, apperror.CodeInsufficientStock))
		assert.Equal(t, qty(3), b.RemainingQuantity)
	})

	t.Run("release restores sold stock and revives empty batch", func(t *testing.T) {
		b := newTestBatch(10, expiry)
		require.NoError(t, b.Reserve(qty(10)))
		require.NoError(t, b.Release(qty(4)))
		assert.Equal(t, qty(4), b.RemainingQuantity)
		assert.Equal(t, qty(6), b.SoldQuantity)
		assert.Equal(t, StatusActive, b.Status)
	})

	t.Run("release more than sold fails", func(t *testing.T) {
		b := newTestBatch(10, expiry)
		require.NoError(t, b.Reserve(qty(2)))
		err := b.Release(qty(3))
		assert.True(t, apperror.HasCode(err, apperror.CodeOverReturn))
	})
}

func TestBatchTakeOutPutBack(t *testing.T) {
	expiry := time.Now().AddDate(1, 0, 0)

	t.Run("take-out shrinks both remaining and total", func(t *testing.T) {
		b := newTestBatch(10, expiry)
		require.NoError(t, b.TakeOut(qty(4)))
		assert.Equal(t, qty(6), b.RemainingQuantity)
		assert.Equal(t, qty(6), b.Quantity)
	})

	t.Run("take-out beyond remaining fails", func(t *testing.T) {
		b := newTestBatch(10, expiry)
		require.NoError(t, b.Reserve(qty(8)))
		err := b.TakeOut(qty(3))
		assert.True(t, apperror.HasCode(err, apperror.CodeInsufficientStock))
	})

	t.Run("put-back restores the taken quantity", func(t *testing.T) {
		b := newTestBatch(10, expiry)
		require.NoError(t, b.TakeOut(qty(10)))
		assert.Equal(t, StatusEmpty, b.Status)

		require.NoError(t, b.PutBack(qty(10)))
		assert.Equal(t, qty(10), b.RemainingQuantity)
		assert.Equal(t, qty(10), b.Quantity)
		assert.Equal(t, StatusActive, b.Status)
	})
}

func TestBatchResidualValue(t *testing.T) {
	b := NewBatch(id.New(), qty(7), 250, 450, time.Now().AddDate(1, 0, 0))
	// 7 units at 250 minor units each.
	assert.Equal(t, types.MinorUnits(1750), b.ResidualValue())

	require.NoError(t, b.Reserve(qty(3)))
	assert.Equal(t, types.MinorUnits(1000), b.ResidualValue())
}
