// Package tx provides transaction management abstractions.
// This package defines interfaces that decouple domain logic from specific
// database implementations, following the Dependency Inversion Principle.
package tx

import (
	"context"
	"fmt"
)

// Manager defines the contract for transaction management.
// Implementations handle BEGIN, COMMIT, ROLLBACK, and nested transaction support.
//
// Domain services depend on this interface, not concrete implementations.
// The actual implementation lives in infrastructure/storage/postgres.
type Manager interface {
	// RunInTransaction executes fn within a database transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn succeeds, the transaction is committed.
	//
	// Nested calls reuse the existing transaction from context.
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// managerKey is the context key for the request-scoped Manager.
type managerKey struct{}

// WithManager stores the Manager in context. Middleware attaches it once per
// request so services and repositories can share one transaction scope.
func WithManager(ctx context.Context, m Manager) context.Context {
	return context.WithValue(ctx, managerKey{}, m)
}

// FromContext returns the Manager from context.
func FromContext(ctx context.Context) (Manager, error) {
	if m, ok := ctx.Value(managerKey{}).(Manager); ok && m != nil {
		return m, nil
	}
	return nil, fmt.Errorf("tx manager not found in context")
}

// MustFromContext returns the Manager from context or panics.
// A missing manager indicates a programming error (missing middleware).
func MustFromContext(ctx context.Context) Manager {
	m, err := FromContext(ctx)
	if err != nil {
		panic(err)
	}
	return m
}
