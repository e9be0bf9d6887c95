package posting

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmacore/internal/core/apperror"
	"pharmacore/internal/core/entity"
	"pharmacore/internal/core/id"
	"pharmacore/internal/core/security"
	"pharmacore/internal/core/tx"
)

// fakeTxManager runs the callback directly. Calls counts transactions.
type fakeTxManager struct {
	Calls int
}

func (m *fakeTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.Calls++
	return fn(ctx)
}

type fakeAuditor struct {
	Actions []string
}

func (a *fakeAuditor) LogTransition(ctx context.Context, docType string, docID id.ID, action string, changes map[string]any) error {
	a.Actions = append(a.Actions, action)
	return nil
}

type testDoc struct {
	entity.Document
}

func (d *testDoc) GetDocumentType() string { return "TestDocument" }

func newTestDoc() *testDoc {
	return &testDoc{Document: entity.NewDocument()}
}

func txContext(txm tx.Manager) context.Context {
	return tx.WithManager(context.Background(), txm)
}

func TestEngineApprove(t *testing.T) {
	txm := &fakeTxManager{}
	auditor := &fakeAuditor{}
	engine := NewEngine(security.NewFlexiblePolicy(0, time.Time{}), auditor)

	doc := newTestDoc()
	applied, persisted := false, false

	err := engine.Approve(txContext(txm), doc,
		func(ctx context.Context) error { applied = true; return nil },
		func(ctx context.Context) error { persisted = true; return nil },
	)
	require.NoError(t, err)

	assert.Equal(t, entity.StatusApproved, doc.Status)
	assert.True(t, applied)
	assert.True(t, persisted)
	assert.Equal(t, 1, txm.Calls)
	assert.Equal(t, []string{"approve"}, auditor.Actions)
}

func TestEngineApprove_EffectFailureAborts(t *testing.T) {
	txm := &fakeTxManager{}
	auditor := &fakeAuditor{}
	engine := NewEngine(security.NewFlexiblePolicy(0, time.Time{}), auditor)

	doc := newTestDoc()
	boom := errors.New("allocation failed")

	err := engine.Approve(txContext(txm), doc,
		func(ctx context.Context) error { return boom },
		nil,
	)
	require.ErrorIs(t, err, boom)
	assert.Empty(t, auditor.Actions)
}

func TestEngineApprove_OnlyFromDraft(t *testing.T) {
	txm := &fakeTxManager{}
	engine := NewEngine(security.NewFlexiblePolicy(0, time.Time{}), nil)

	doc := newTestDoc()
	require.NoError(t, doc.MarkApproved())

	err := engine.Approve(txContext(txm), doc, nil, nil)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidState))
}

func TestEngineCancel(t *testing.T) {
	txm := &fakeTxManager{}
	auditor := &fakeAuditor{}
	engine := NewEngine(security.NewFlexiblePolicy(0, time.Time{}), auditor)

	doc := newTestDoc()
	require.NoError(t, doc.MarkApproved())

	undone := false
	err := engine.Cancel(txContext(txm), doc,
		func(ctx context.Context) error { undone = true; return nil },
		nil,
	)
	require.NoError(t, err)

	assert.Equal(t, entity.StatusCancelled, doc.Status)
	assert.True(t, undone)
	assert.Equal(t, []string{"cancel"}, auditor.Actions)
}

func TestEngineCancel_DraftRejected(t *testing.T) {
	txm := &fakeTxManager{}
	engine := NewEngine(security.NewFlexiblePolicy(0, time.Time{}), nil)

	doc := newTestDoc()
	err := engine.Cancel(txContext(txm), doc, nil, nil)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidState))
}

func TestEngineUnapprove_RoundTrip(t *testing.T) {
	txm := &fakeTxManager{}
	engine := NewEngine(security.NewFlexiblePolicy(0, time.Time{}), nil)
	ctx := txContext(txm)

	doc := newTestDoc()
	require.NoError(t, engine.Approve(ctx, doc, nil, nil))
	require.NoError(t, engine.Unapprove(ctx, doc, nil, nil))
	assert.Equal(t, entity.StatusDraft, doc.Status)

	// Draft again: the document can go through approval a second time.
	require.NoError(t, engine.Approve(ctx, doc, nil, nil))
	assert.Equal(t, entity.StatusApproved, doc.Status)
}

func TestEngineStrictPolicy_ClosedPeriod(t *testing.T) {
	txm := &fakeTxManager{}
	closedUntil := time.Now().UTC().AddDate(0, 1, 0)
	engine := NewEngine(security.NewStrictPolicy(closedUntil), nil)

	doc := newTestDoc()
	err := engine.Approve(txContext(txm), doc, nil, nil)
	assert.True(t, apperror.HasCode(err, apperror.CodePeriodClosed))

	require.NoError(t, doc.MarkApproved())
	err = engine.Cancel(txContext(txm), doc, nil, nil)
	assert.True(t, apperror.HasCode(err, apperror.CodePeriodClosed))
}

func TestEngine_MissingTxManager(t *testing.T) {
	engine := NewEngine(security.NewFlexiblePolicy(0, time.Time{}), nil)

	doc := newTestDoc()
	err := engine.Approve(context.Background(), doc, nil, nil)
	assert.True(t, apperror.HasCode(err, apperror.CodeInternal))
}
