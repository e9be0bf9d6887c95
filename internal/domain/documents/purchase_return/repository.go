package purchase_return

import (
	"context"
	"time"

	"pharmacore/internal/core/entity"
	"pharmacore/internal/core/id"
	"pharmacore/internal/domain"
)

// Repository defines operations for purchase return documents.
type Repository interface {
	Create(ctx context.Context, doc *PurchaseReturn) error
	GetByID(ctx context.Context, docID id.ID) (*PurchaseReturn, error)
	GetByNumber(ctx context.Context, number string) (*PurchaseReturn, error)
	Update(ctx context.Context, doc *PurchaseReturn) error
	Delete(ctx context.Context, docID id.ID) error

	GetLines(ctx context.Context, docID id.ID) ([]ReturnLine, error)
	SaveLines(ctx context.Context, docID id.ID, lines []ReturnLine) error

	List(ctx context.Context, filter ListFilter) (domain.ListResult[*PurchaseReturn], error)
	GetForUpdate(ctx context.Context, docID id.ID) (*PurchaseReturn, error)
}

// ListFilter for filtering purchase returns.
type ListFilter struct {
	domain.ListFilter

	OriginInvoiceID *id.ID
	SupplierID      *id.ID
	Status          *entity.DocumentStatus
	DateFrom        *time.Time
	DateTo          *time.Time
}
