package entity

import (
	"context"
	"time"

	"pharmacore/internal/core/apperror"
	"pharmacore/internal/core/id"
)

// DocumentStatus is the lifecycle state of an operational document.
type DocumentStatus string

const (
	// StatusDraft - document is editable, has no ledger or money effects
	StatusDraft DocumentStatus = "draft"
	// StatusApproved - effects are committed (stock, ledger, accounts)
	StatusApproved DocumentStatus = "approved"
	// StatusCancelled - effects were reversed with compensating entries
	StatusCancelled DocumentStatus = "cancelled"
)

// Document is the base type for business transactions.
// Examples: SaleInvoice, PurchaseInvoice, SalesReturn, PurchaseReturn.
type Document struct {
	BaseDocument

	// Number is the document number (auto-generated, unique within type+year)
	Number string `db:"number" json:"number"`

	// Date is the business date of the document
	Date time.Time `db:"date" json:"date"`

	// Status drives the draft -> approved -> cancelled lifecycle
	Status DocumentStatus `db:"status" json:"status"`

	// Comment is an optional user comment
	Comment string `db:"comment" json:"comment,omitempty"`
}

// NewDocument creates a new Document in draft status with generated ID.
func NewDocument() Document {
	return Document{
		BaseDocument: NewBaseDocument(),
		Date:         time.Now().UTC(),
		Status:       StatusDraft,
	}
}

// Validate implements Validatable interface.
func (d *Document) Validate(ctx context.Context) error {
	if d.Date.IsZero() {
		return apperror.NewValidation("date is required").
			WithDetail("field", "date")
	}

	return nil
}

func (d *Document) IsDraft() bool     { return d.Status == StatusDraft }
func (d *Document) IsApproved() bool  { return d.Status == StatusApproved }
func (d *Document) IsCancelled() bool { return d.Status == StatusCancelled }

// CanModify checks if document content can be edited.
// Approved documents require unapproval (or cancellation) first.
func (d *Document) CanModify() error {
	if !d.IsDraft() {
		return apperror.NewInvalidState("only draft documents can be modified").
			WithDetail("document_id", d.ID.String()).
			WithDetail("status", string(d.Status))
	}
	return nil
}

// MarkApproved transitions draft -> approved.
func (d *Document) MarkApproved() error {
	if !d.IsDraft() {
		return apperror.NewInvalidState("only draft documents can be approved").
			WithDetail("document_id", d.ID.String()).
			WithDetail("status", string(d.Status))
	}
	d.Status = StatusApproved
	d.Touch()
	return nil
}

// MarkCancelled transitions approved -> cancelled.
func (d *Document) MarkCancelled() error {
	if !d.IsApproved() {
		return apperror.NewInvalidState("only approved documents can be cancelled").
			WithDetail("document_id", d.ID.String()).
			WithDetail("status", string(d.Status))
	}
	d.Status = StatusCancelled
	d.Touch()
	return nil
}

// MarkDraft transitions approved -> draft (unapprove).
func (d *Document) MarkDraft() error {
	if !d.IsApproved() {
		return apperror.NewInvalidState("only approved documents can be unapproved").
			WithDetail("document_id", d.ID.String()).
			WithDetail("status", string(d.Status))
	}
	d.Status = StatusDraft
	d.Touch()
	return nil
}

// IsBackdated checks if document date is in the past.
func (d *Document) IsBackdated() bool {
	return d.Date.Before(time.Now().UTC().Truncate(24 * time.Hour))
}

// --- Transitionable interface default implementations ---
// Document-specific types only need to implement GetDocumentType().

// GetID returns the document ID.
func (d *Document) GetID() id.ID {
	return d.ID
}

// GetDate returns the business date.
func (d *Document) GetDate() time.Time {
	return d.Date
}

// GetStatus returns the current lifecycle status.
func (d *Document) GetStatus() DocumentStatus {
	return d.Status
}

// GetNumber returns the document number.
func (d *Document) GetNumber() string {
	return d.Number
}
