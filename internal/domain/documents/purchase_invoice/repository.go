package purchase_invoice

import (
	"context"
	"time"

	"pharmacore/internal/core/entity"
	"pharmacore/internal/core/id"
	"pharmacore/internal/domain"
)

// Repository defines operations for purchase invoice documents.
type Repository interface {
	Create(ctx context.Context, doc *PurchaseInvoice) error
	GetByID(ctx context.Context, docID id.ID) (*PurchaseInvoice, error)
	GetByNumber(ctx context.Context, number string) (*PurchaseInvoice, error)
	Update(ctx context.Context, doc *PurchaseInvoice) error
	Delete(ctx context.Context, docID id.ID) error

	GetLines(ctx context.Context, docID id.ID) ([]PurchaseLine, error)
	SaveLines(ctx context.Context, docID id.ID, lines []PurchaseLine) error

	List(ctx context.Context, filter ListFilter) (domain.ListResult[*PurchaseInvoice], error)
	GetForUpdate(ctx context.Context, docID id.ID) (*PurchaseInvoice, error)

	// HasDependentReturns reports whether any non-cancelled purchase
	// return references this invoice.
	HasDependentReturns(ctx context.Context, invoiceID id.ID) (bool, error)
}

// ListFilter for filtering purchase invoices.
type ListFilter struct {
	domain.ListFilter

	SupplierID *id.ID
	Status     *entity.DocumentStatus
	DateFrom   *time.Time
	DateTo     *time.Time
}
