package numerator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	corenumerator "pharmacore/internal/core/numerator"
)

type mockRow struct {
	val int64
	err error
}

func (m *mockRow) Scan(dest ...any) error {
	if m.err != nil {
		return m.err
	}
	if len(dest) > 0 {
		if ptr, ok := dest[0].(*int64); ok {
			*ptr = m.val
		}
	}
	return nil
}

// mockQuerier simulates the sys_sequences UPSERT: every call bumps the
// current value by the increment argument (1 for strict calls).
type mockQuerier struct {
	mu           sync.Mutex
	currentValue int64
	calls        int
}

func (m *mockQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	m.mu.Lock()
	defer m.mu.Unlock()

	var increment int64 = 1
	if len(args) == 3 {
		switch v := args[2].(type) {
		case int64:
			increment = v
		case int:
			increment = int64(v)
		}
	}

	m.currentValue += increment
	m.calls++
	return &mockRow{val: m.currentValue}
}

func TestGetNextNumber_Strict(t *testing.T) {
	q := &mockQuerier{}
	svc := New(q)
	ctx := context.Background()
	cfg := corenumerator.DefaultConfig("TEST")
	period := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	num, err := svc.GetNextNumber(ctx, cfg, nil, period)
	require.NoError(t, err)
	assert.Equal(t, "TEST-2026-00001", num)

	num, err = svc.GetNextNumber(ctx, cfg, nil, period)
	require.NoError(t, err)
	assert.Equal(t, "TEST-2026-00002", num)
	assert.Equal(t, 2, q.calls)
}

func TestGetNextNumber_Cached(t *testing.T) {
	q := &mockQuerier{}
	svc := New(q)
	ctx := context.Background()
	cfg := corenumerator.DefaultConfig("ORD")
	period := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	opts := &corenumerator.Options{
		Strategy:  corenumerator.StrategyCached,
		RangeSize: 10,
	}

	// First call allocates range 1..10 and returns 1.
	num, err := svc.GetNextNumber(ctx, cfg, opts, period)
	require.NoError(t, err)
	assert.Equal(t, "ORD-2026-00001", num)
	assert.EqualValues(t, 10, q.currentValue)

	// Second call is served from memory without touching the DB.
	num, err = svc.GetNextNumber(ctx, cfg, opts, period)
	require.NoError(t, err)
	assert.Equal(t, "ORD-2026-00002", num)
	assert.EqualValues(t, 10, q.currentValue)

	// Exhaust the rest of the range.
	for i := 0; i < 8; i++ {
		_, err = svc.GetNextNumber(ctx, cfg, opts, period)
		require.NoError(t, err)
	}

	// Range exhausted, next call reserves 11..20 and returns 11.
	num, err = svc.GetNextNumber(ctx, cfg, opts, period)
	require.NoError(t, err)
	assert.Equal(t, "ORD-2026-00011", num)
	assert.EqualValues(t, 20, q.currentValue)
}

func TestFormatNumber(t *testing.T) {
	svc := New(&mockQuerier{})
	period := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	cfg := corenumerator.DefaultConfig("SAL")
	assert.Equal(t, "SAL-2026-00042", svc.formatNumber(cfg, period, 42))

	cfg.IncludeYear = false
	cfg.PadWidth = 3
	assert.Equal(t, "SAL-042", svc.formatNumber(cfg, period, 42))
}

func TestParseNumber(t *testing.T) {
	assert.EqualValues(t, 42, ParseNumber("SAL-2026-00042"))
	assert.EqualValues(t, 7, ParseNumber("SAL-00007"))
	assert.EqualValues(t, -1, ParseNumber("garbage"))
	assert.EqualValues(t, -1, ParseNumber("SAL-"))
	assert.EqualValues(t, -1, ParseNumber("SAL-2026-xyz"))
}
