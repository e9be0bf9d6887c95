package allocation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmacore/internal/core/apperror"
	"pharmacore/internal/core/id"
	"pharmacore/internal/core/types"
	"pharmacore/internal/domain/batches"
)

func qty(v float64) types.Quantity {
	return types.NewQuantityFromFloat64(v)
}

func testBatch(medicineID id.ID, remaining float64, purchase, sale types.MinorUnits, expiry time.Time) *batches.Batch {
	b := batches.NewBatch(medicineID, qty(remaining), purchase, sale, expiry)
	return b
}

func TestAllocate_SingleBatchCoversRequest(t *testing.T) {
	engine := NewEngine()
	medID := id.New()
	expiry := time.Now().AddDate(0, 6, 0)

	candidates := []*batches.Batch{
		testBatch(medID, 10, 250, 450, expiry),
	}

	lines, err := engine.Allocate(candidates, Request{MedicineID: medID, Quantity: qty(4)})
	require.NoError(t, err)
	require.Len(t, lines, 1)

	assert.Equal(t, candidates[0].ID, lines[0].BatchID)
	assert.Equal(t, qty(4), lines[0].Quantity)
	assert.Equal(t, types.MinorUnits(450), lines[0].UnitPrice)
	assert.Equal(t, types.MinorUnits(250), lines[0].UnitCost)
}

func TestAllocate_SplitsAcrossBatchesInOrder(t *testing.T) {
	engine := NewEngine()
	medID := id.New()

	// Candidates arrive pre-sorted FEFO: earliest expiry first.
	early := testBatch(medID, 3, 200, 400, time.Now().AddDate(0, 1, 0))
	late := testBatch(medID, 10, 220, 420, time.Now().AddDate(0, 6, 0))

	lines, err := engine.Allocate([]*batches.Batch{early, late}, Request{MedicineID: medID, Quantity: qty(5)})
	require.NoError(t, err)
	require.Len(t, lines, 2)

	assert.Equal(t, early.ID, lines[0].BatchID)
	assert.Equal(t, qty(3), lines[0].Quantity)
	assert.Equal(t, late.ID, lines[1].BatchID)
	assert.Equal(t, qty(2), lines[1].Quantity)
}

func TestAllocate_IsDeterministic(t *testing.T) {
	engine := NewEngine()
	medID := id.New()

	candidates := []*batches.Batch{
		testBatch(medID, 2, 200, 400, time.Now().AddDate(0, 1, 0)),
		testBatch(medID, 2, 200, 400, time.Now().AddDate(0, 2, 0)),
		testBatch(medID, 2, 200, 400, time.Now().AddDate(0, 3, 0)),
	}
	req := Request{MedicineID: medID, Quantity: qty(5)}

	first, err := engine.Allocate(candidates, req)
	require.NoError(t, err)

	for range 10 {
		again, err := engine.Allocate(candidates, req)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestAllocate_PreferredBatchFirst(t *testing.T) {
	engine := NewEngine()
	medID := id.New()

	early := testBatch(medID, 10, 200, 400, time.Now().AddDate(0, 1, 0))
	scanned := testBatch(medID, 10, 220, 420, time.Now().AddDate(0, 6, 0))
	scannedID := scanned.ID

	lines, err := engine.Allocate([]*batches.Batch{early, scanned}, Request{
		MedicineID:       medID,
		Quantity:         qty(4),
		PreferredBatchID: &scannedID,
	})
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, scanned.ID, lines[0].BatchID)
}

func TestAllocate_PreferredBatchOverflowFallsBackToFEFO(t *testing.T) {
	engine := NewEngine()
	medID := id.New()

	early := testBatch(medID, 10, 200, 400, time.Now().AddDate(0, 1, 0))
	scanned := testBatch(medID, 2, 220, 420, time.Now().AddDate(0, 6, 0))
	scannedID := scanned.ID

	lines, err := engine.Allocate([]*batches.Batch{early, scanned}, Request{
		MedicineID:       medID,
		Quantity:         qty(5),
		PreferredBatchID: &scannedID,
	})
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, scanned.ID, lines[0].BatchID)
	assert.Equal(t, qty(2), lines[0].Quantity)
	assert.Equal(t, early.ID, lines[1].BatchID)
	assert.Equal(t, qty(3), lines[1].Quantity)
}

func TestAllocate_RequestPriceOverridesBatchPrice(t *testing.T) {
	engine := NewEngine()
	medID := id.New()

	candidates := []*batches.Batch{
		testBatch(medID, 10, 250, 450, time.Now().AddDate(0, 6, 0)),
	}

	lines, err := engine.Allocate(candidates, Request{
		MedicineID: medID,
		Quantity:   qty(1),
		UnitPrice:  399,
	})
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, types.MinorUnits(399), lines[0].UnitPrice)
}

func TestAllocate_InsufficientStockIsAtomic(t *testing.T) {
	engine := NewEngine()
	medID := id.New()

	candidates := []*batches.Batch{
		testBatch(medID, 2, 200, 400, time.Now().AddDate(0, 1, 0)),
		testBatch(medID, 1, 200, 400, time.Now().AddDate(0, 2, 0)),
	}

	lines, err := engine.Allocate(candidates, Request{MedicineID: medID, Quantity: qty(5)})
	require.Error(t, err)
	assert.Nil(t, lines)
	assert.True(t, apperror.HasCode(err, apperror.CodeInsufficientStock))
}

func TestAllocate_RejectsNonPositiveQuantity(t *testing.T) {
	engine := NewEngine()
	medID := id.New()

	_, err := engine.Allocate(nil, Request{MedicineID: medID, Quantity: qty(0)})
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestAllocate_SkipsDrainedBatches(t *testing.T) {
	engine := NewEngine()
	medID := id.New()

	drained := testBatch(medID, 5, 200, 400, time.Now().AddDate(0, 1, 0))
	require.NoError(t, drained.Reserve(qty(5)))
	full := testBatch(medID, 5, 200, 400, time.Now().AddDate(0, 2, 0))

	lines, err := engine.Allocate([]*batches.Batch{drained, full}, Request{MedicineID: medID, Quantity: qty(3)})
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, full.ID, lines[0].BatchID)
}
