package postgres

import (
	"context"
	"fmt"

	"pharmacore/internal/core/tx"
)

// WithTxManager stores the TxManager in context for downstream repositories.
// Domain services and infrastructure repositories resolve the same instance,
// so all of them share one transaction scope per request.
func WithTxManager(ctx context.Context, txm *TxManager) context.Context {
	return tx.WithManager(ctx, txm)
}

// MustGetTxManager returns *postgres.TxManager from context.
// It is meant for infrastructure code that needs access to GetQuerier()/GetTx().
//
// Domain code should depend only on internal/core/tx.Manager.
func MustGetTxManager(ctx context.Context) *TxManager {
	txm := tx.MustFromContext(ctx)
	postgresTxm, ok := txm.(*TxManager)
	if !ok || postgresTxm == nil {
		panic(fmt.Sprintf("TxManager in context has unexpected type: %T", txm))
	}
	return postgresTxm
}
