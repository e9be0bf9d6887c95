package security

import (
	"context"
	"time"

	"pharmacore/internal/core/apperror"
)

// ApprovalPolicy defines rules for document lifecycle transitions.
// A closed accounting period blocks approval and reversal of backdated
// documents.
type ApprovalPolicy interface {
	// CanApprove checks if a document with given date can be approved
	CanApprove(ctx context.Context, docDate time.Time) error

	// CanModify checks if a document with given date can be modified
	CanModify(ctx context.Context, docDate time.Time) error

	// CanReverse checks if a document can be cancelled or unapproved
	CanReverse(ctx context.Context, docDate time.Time) error

	// GetClosedPeriod returns the date until which period is closed
	GetClosedPeriod(ctx context.Context) time.Time
}

// StrictPolicy forbids any changes to closed period.
// Used for regulatory compliance.
type StrictPolicy struct {
	closedUntil time.Time
}

// NewStrictPolicy creates policy that forbids changes before closedUntil.
func NewStrictPolicy(closedUntil time.Time) *StrictPolicy {
	return &StrictPolicy{closedUntil: closedUntil}
}

func (p *StrictPolicy) CanApprove(ctx context.Context, docDate time.Time) error {
	if docDate.Before(p.closedUntil) {
		return apperror.NewPeriodClosed(p.closedUntil.Format("2006-01"))
	}
	return nil
}

func (p *StrictPolicy) CanModify(ctx context.Context, docDate time.Time) error {
	return p.CanApprove(ctx, docDate)
}

func (p *StrictPolicy) CanReverse(ctx context.Context, docDate time.Time) error {
	return p.CanApprove(ctx, docDate)
}

func (p *StrictPolicy) GetClosedPeriod(ctx context.Context) time.Time {
	return p.closedUntil
}

// FlexiblePolicy allows backdated changes with warnings.
// Suitable for development and small pharmacies.
type FlexiblePolicy struct {
	warningThreshold time.Duration // Warn if older than this
	closedUntil      time.Time     // Hard limit
}

// NewFlexiblePolicy creates policy with soft warnings.
func NewFlexiblePolicy(warningThreshold time.Duration, closedUntil time.Time) *FlexiblePolicy {
	return &FlexiblePolicy{
		warningThreshold: warningThreshold,
		closedUntil:      closedUntil,
	}
}

func (p *FlexiblePolicy) CanApprove(ctx context.Context, docDate time.Time) error {
	if !p.closedUntil.IsZero() && docDate.Before(p.closedUntil) {
		return apperror.NewPeriodClosed(p.closedUntil.Format("2006-01"))
	}
	// Soft warning would be logged or returned as warning, not error
	return nil
}

func (p *FlexiblePolicy) CanModify(ctx context.Context, docDate time.Time) error {
	return p.CanApprove(ctx, docDate)
}

func (p *FlexiblePolicy) CanReverse(ctx context.Context, docDate time.Time) error {
	return p.CanApprove(ctx, docDate)
}

func (p *FlexiblePolicy) GetClosedPeriod(ctx context.Context) time.Time {
	return p.closedUntil
}

// IsBackdatedWarning checks if operation deserves a warning.
func (p *FlexiblePolicy) IsBackdatedWarning(docDate time.Time) bool {
	if p.warningThreshold == 0 {
		return false
	}
	return time.Since(docDate) > p.warningThreshold
}

// OpenPolicy allows all operations (for development/testing).
type OpenPolicy struct{}

func (OpenPolicy) CanApprove(ctx context.Context, docDate time.Time) error { return nil }
func (OpenPolicy) CanModify(ctx context.Context, docDate time.Time) error  { return nil }
func (OpenPolicy) CanReverse(ctx context.Context, docDate time.Time) error { return nil }
func (OpenPolicy) GetClosedPeriod(ctx context.Context) time.Time           { return time.Time{} }
