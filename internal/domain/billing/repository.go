package billing

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/facturado/backend/internal/domain/shared"
)

// SalesOrderRepository persists sales orders, always scoped to one company
type SalesOrderRepository interface {
	// FindByID loads an order with its items
	FindByID(ctx context.Context, companyID, id uuid.UUID) (*SalesOrder, error)

	// Save persists a new order
	Save(ctx context.Context, order *SalesOrder) error

	// SaveWithLock persists an existing order with an optimistic version
	// check; returns ErrConcurrencyConflict when the stored version moved
	SaveWithLock(ctx context.Context, order *SalesOrder) error

	// List returns a page of orders matching the filter
	List(ctx context.Context, companyID uuid.UUID, filter shared.Filter) (*shared.Paginated[SalesOrder], error)

	// Delete removes an order and its items
	Delete(ctx context.Context, companyID, id uuid.UUID) error

	// NextOrderNumber allocates the next number in the company's order
	// series; each company numbers its documents independently
	NextOrderNumber(ctx context.Context, companyID uuid.UUID) (string, error)
}

// CreditNoteRepository persists credit notes, always scoped to one company
type CreditNoteRepository interface {
	FindByID(ctx context.Context, companyID, id uuid.UUID) (*CreditNote, error)

	Save(ctx context.Context, note *CreditNote) error

	SaveWithLock(ctx context.Context, note *CreditNote) error

	List(ctx context.Context, companyID uuid.UUID, filter shared.Filter) (*shared.Paginated[CreditNote], error)

	// ListBySalesOrder returns every note against one order
	ListBySalesOrder(ctx context.Context, companyID, salesOrderID uuid.UUID) ([]CreditNote, error)

	// SumActiveTotalBySalesOrder sums the totals of the order's
	// non-cancelled notes; the refund ceiling check runs on this value
	SumActiveTotalBySalesOrder(ctx context.Context, companyID, salesOrderID uuid.UUID) (decimal.Decimal, error)

	// CountBySalesOrder counts all notes against an order, cancelled
	// included; order deletion is restricted while any exist
	CountBySalesOrder(ctx context.Context, companyID, salesOrderID uuid.UUID) (int64, error)

	// Delete removes a draft note
	Delete(ctx context.Context, companyID, id uuid.UUID) error

	// NextNoteNumber allocates the next number in the company's credit
	// note series
	NextNoteNumber(ctx context.Context, companyID uuid.UUID) (string, error)
}
