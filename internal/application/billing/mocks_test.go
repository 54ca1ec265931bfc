package billing

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/facturado/backend/internal/domain/billing"
	"github.com/facturado/backend/internal/domain/shared"
)

// fakeTxManager runs the callback directly; transactional semantics are
// covered by the persistence tests
type fakeTxManager struct{}

func (fakeTxManager) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// MockSalesOrderRepository is a mock implementation of SalesOrderRepository
type MockSalesOrderRepository struct {
	mock.Mock
}

func (m *MockSalesOrderRepository) FindByID(ctx context.Context, companyID, id uuid.UUID) (*billing.SalesOrder, error) {
	args := m.Called(ctx, companyID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.SalesOrder), args.Error(1)
}

func (m *MockSalesOrderRepository) Save(ctx context.Context, order *billing.SalesOrder) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockSalesOrderRepository) SaveWithLock(ctx context.Context, order *billing.SalesOrder) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockSalesOrderRepository) List(ctx context.Context, companyID uuid.UUID, filter shared.Filter) (*shared.Paginated[billing.SalesOrder], error) {
	args := m.Called(ctx, companyID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.Paginated[billing.SalesOrder]), args.Error(1)
}

func (m *MockSalesOrderRepository) Delete(ctx context.Context, companyID, id uuid.UUID) error {
	args := m.Called(ctx, companyID, id)
	return args.Error(0)
}

func (m *MockSalesOrderRepository) NextOrderNumber(ctx context.Context, companyID uuid.UUID) (string, error) {
	args := m.Called(ctx, companyID)
	return args.String(0), args.Error(1)
}

// MockCreditNoteRepository is a mock implementation of CreditNoteRepository
type MockCreditNoteRepository struct {
	mock.Mock
}

func (m *MockCreditNoteRepository) FindByID(ctx context.Context, companyID, id uuid.UUID) (*billing.CreditNote, error) {
	args := m.Called(ctx, companyID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.CreditNote), args.Error(1)
}

func (m *MockCreditNoteRepository) Save(ctx context.Context, note *billing.CreditNote) error {
	args := m.Called(ctx, note)
	return args.Error(0)
}

func (m *MockCreditNoteRepository) SaveWithLock(ctx context.Context, note *billing.CreditNote) error {
	args := m.Called(ctx, note)
	return args.Error(0)
}

func (m *MockCreditNoteRepository) List(ctx context.Context, companyID uuid.UUID, filter shared.Filter) (*shared.Paginated[billing.CreditNote], error) {
	args := m.Called(ctx, companyID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.Paginated[billing.CreditNote]), args.Error(1)
}

func (m *MockCreditNoteRepository) ListBySalesOrder(ctx context.Context, companyID, salesOrderID uuid.UUID) ([]billing.CreditNote, error) {
	args := m.Called(ctx, companyID, salesOrderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]billing.CreditNote), args.Error(1)
}

func (m *MockCreditNoteRepository) SumActiveTotalBySalesOrder(ctx context.Context, companyID, salesOrderID uuid.UUID) (decimal.Decimal, error) {
	args := m.Called(ctx, companyID, salesOrderID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockCreditNoteRepository) CountBySalesOrder(ctx context.Context, companyID, salesOrderID uuid.UUID) (int64, error) {
	args := m.Called(ctx, companyID, salesOrderID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCreditNoteRepository) Delete(ctx context.Context, companyID, id uuid.UUID) error {
	args := m.Called(ctx, companyID, id)
	return args.Error(0)
}

func (m *MockCreditNoteRepository) NextNoteNumber(ctx context.Context, companyID uuid.UUID) (string, error) {
	args := m.Called(ctx, companyID)
	return args.String(0), args.Error(1)
}
