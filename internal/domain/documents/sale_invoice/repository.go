package sale_invoice

import (
	"context"
	"time"

	"pharmacore/internal/core/entity"
	"pharmacore/internal/core/id"
	"pharmacore/internal/domain"
)

// Repository defines operations for sale invoice documents.
type Repository interface {
	Create(ctx context.Context, doc *SaleInvoice) error
	GetByID(ctx context.Context, docID id.ID) (*SaleInvoice, error)
	GetByNumber(ctx context.Context, number string) (*SaleInvoice, error)
	Update(ctx context.Context, doc *SaleInvoice) error
	Delete(ctx context.Context, docID id.ID) error

	GetLines(ctx context.Context, docID id.ID) ([]SaleLine, error)
	SaveLines(ctx context.Context, docID id.ID, lines []SaleLine) error

	List(ctx context.Context, filter ListFilter) (domain.ListResult[*SaleInvoice], error)
	GetForUpdate(ctx context.Context, docID id.ID) (*SaleInvoice, error)

	// HasDependentReturns reports whether any non-cancelled sales return
	// references this invoice. Such invoices cannot be cancelled or
	// unapproved.
	HasDependentReturns(ctx context.Context, invoiceID id.ID) (bool, error)
}

// ListFilter for filtering sale invoices.
type ListFilter struct {
	domain.ListFilter

	CustomerID *id.ID
	Status     *entity.DocumentStatus
	DateFrom   *time.Time
	DateTo     *time.Time
}
