// Package posting provides the document workflow engine.
// Every lifecycle transition (approve, cancel, unapprove) runs in a single
// database transaction: document effects, ledger movements, money changes
// and the status flip commit or roll back together.
package posting

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"pharmacore/internal/core/apperror"
	"pharmacore/internal/core/entity"
	"pharmacore/internal/core/id"
	"pharmacore/internal/core/security"
	"pharmacore/internal/core/tx"
	"pharmacore/pkg/logger"
)

// Transitionable is implemented by documents the engine can transition.
// entity.Document provides everything except GetDocumentType.
type Transitionable interface {
	GetID() id.ID
	GetNumber() string
	GetDate() time.Time
	GetStatus() entity.DocumentStatus
	GetDocumentType() string
	MarkApproved() error
	MarkCancelled() error
	MarkDraft() error
}

// Auditor records document transitions in the audit change log.
type Auditor interface {
	LogTransition(ctx context.Context, docType string, docID id.ID, action string, changes map[string]any) error
}

// Effect is a document-specific step executed inside the transition
// transaction (allocation, batch updates, money moves, persistence).
type Effect func(ctx context.Context) error

// Engine orchestrates document lifecycle transitions.
type Engine struct {
	policy  security.ApprovalPolicy
	auditor Auditor
	tracer  trace.Tracer
}

// NewEngine creates a workflow engine.
func NewEngine(policy security.ApprovalPolicy, auditor Auditor) *Engine {
	return &Engine{
		policy:  policy,
		auditor: auditor,
		tracer:  otel.Tracer("pharmacore/posting"),
	}
}

// Approve transitions draft -> approved.
// apply performs the document's business effects; persist saves the
// document. Both run inside one transaction with the status flip.
func (e *Engine) Approve(ctx context.Context, doc Transitionable, apply, persist Effect) error {
	if err := e.policy.CanApprove(ctx, doc.GetDate()); err != nil {
		return err
	}
	return e.transition(ctx, doc, "approve", doc.MarkApproved, apply, persist)
}

// Cancel transitions approved -> cancelled.
// undo must append compensating movements and revert batch/money effects.
func (e *Engine) Cancel(ctx context.Context, doc Transitionable, undo, persist Effect) error {
	if err := e.policy.CanReverse(ctx, doc.GetDate()); err != nil {
		return err
	}
	return e.transition(ctx, doc, "cancel", doc.MarkCancelled, undo, persist)
}

// Unapprove transitions approved -> draft, reversing all effects so the
// document can be edited and approved again.
func (e *Engine) Unapprove(ctx context.Context, doc Transitionable, undo, persist Effect) error {
	if err := e.policy.CanReverse(ctx, doc.GetDate()); err != nil {
		return err
	}
	return e.transition(ctx, doc, "unapprove", doc.MarkDraft, undo, persist)
}

func (e *Engine) transition(ctx context.Context, doc Transitionable, action string, flip func() error, effect, persist Effect) error {
	txm, err := tx.FromContext(ctx)
	if err != nil {
		return apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}

	ctx, span := e.tracer.Start(ctx, "posting."+action,
		trace.WithAttributes(
			attribute.String("document.type", doc.GetDocumentType()),
			attribute.String("document.id", doc.GetID().String()),
			attribute.String("document.number", doc.GetNumber()),
		),
	)
	defer span.End()

	prevStatus := doc.GetStatus()

	err = txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := flip(); err != nil {
			return err
		}
		if effect != nil {
			if err := effect(ctx); err != nil {
				return err
			}
		}
		if persist != nil {
			if err := persist(ctx); err != nil {
				return err
			}
		}
		if e.auditor != nil {
			return e.auditor.LogTransition(ctx, doc.GetDocumentType(), doc.GetID(), action, map[string]any{
				"status": map[string]any{"old": string(prevStatus), "new": string(doc.GetStatus())},
				"number": doc.GetNumber(),
			})
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return err
	}

	logger.Info(ctx, "document transition",
		"action", action,
		"type", doc.GetDocumentType(),
		"id", doc.GetID(),
		"number", doc.GetNumber(),
	)
	return nil
}
