package sales_return

import (
	"context"
	"time"

	"pharmacore/internal/core/entity"
	"pharmacore/internal/core/id"
	"pharmacore/internal/domain"
)

// Repository defines operations for sales return documents.
type Repository interface {
	Create(ctx context.Context, doc *SalesReturn) error
	GetByID(ctx context.Context, docID id.ID) (*SalesReturn, error)
	GetByNumber(ctx context.Context, number string) (*SalesReturn, error)
	Update(ctx context.Context, doc *SalesReturn) error
	Delete(ctx context.Context, docID id.ID) error

	GetLines(ctx context.Context, docID id.ID) ([]ReturnLine, error)
	SaveLines(ctx context.Context, docID id.ID, lines []ReturnLine) error

	List(ctx context.Context, filter ListFilter) (domain.ListResult[*SalesReturn], error)
	GetForUpdate(ctx context.Context, docID id.ID) (*SalesReturn, error)
}

// ListFilter for filtering sales returns.
type ListFilter struct {
	domain.ListFilter

	OriginInvoiceID *id.ID
	CustomerID      *id.ID
	Status          *entity.DocumentStatus
	DateFrom        *time.Time
	DateTo          *time.Time
}
