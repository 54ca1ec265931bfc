package billing

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/facturado/backend/internal/domain/billing"
	"github.com/facturado/backend/internal/domain/shared"
)

func newNoteService(noteRepo *MockCreditNoteRepository, orderRepo *MockSalesOrderRepository) *CreditNoteService {
	return NewCreditNoteService(noteRepo, orderRepo, fakeTxManager{})
}

func storedTestNote(t *testing.T, companyID uuid.UUID) *billing.CreditNote {
	t.Helper()
	order := storedTestOrder(t, companyID, billing.SalesOrderStatusFulfilled)
	note, err := billing.NewCreditNoteFromOrder(order, billing.RefundTypeFull, nil, "defective goods", decimal.Zero)
	require.NoError(t, err)
	note.NoteNumber = "CN-2026-00001"
	return note
}

func TestCreditNoteService_Create(t *testing.T) {
	t.Run("full note against an emitted order", func(t *testing.T) {
		companyID := uuid.New()
		order := storedTestOrder(t, companyID, billing.SalesOrderStatusFulfilled)
		orderRepo := new(MockSalesOrderRepository)
		noteRepo := new(MockCreditNoteRepository)
		orderRepo.On("FindByID", mock.Anything, companyID, order.ID).Return(order, nil)
		noteRepo.On("SumActiveTotalBySalesOrder", mock.Anything, companyID, order.ID).Return(decimal.Zero, nil)
		noteRepo.On("NextNoteNumber", mock.Anything, mock.Anything).Return("CN-2026-00007", nil)
		noteRepo.On("Save", mock.Anything, mock.AnythingOfType("*billing.CreditNote")).Return(nil)

		service := newNoteService(noteRepo, orderRepo)
		resp, err := service.Create(context.Background(), companyID, CreateCreditNoteRequest{
			SalesOrderID: order.ID,
			RefundType:   "full",
			Reason:       "defective goods",
		})
		require.NoError(t, err)
		assert.Equal(t, "CN-2026-00007", resp.NoteNumber)
		assert.Equal(t, string(billing.CreditNoteStatusDraft), resp.Status)
		assert.True(t, resp.Totals.Total.Equal(d("914.85")))
		noteRepo.AssertExpectations(t)
	})

	t.Run("partial note prorates", func(t *testing.T) {
		companyID := uuid.New()
		order := storedTestOrder(t, companyID, billing.SalesOrderStatusFulfilled)
		orderRepo := new(MockSalesOrderRepository)
		noteRepo := new(MockCreditNoteRepository)
		orderRepo.On("FindByID", mock.Anything, companyID, order.ID).Return(order, nil)
		noteRepo.On("SumActiveTotalBySalesOrder", mock.Anything, companyID, order.ID).Return(decimal.Zero, nil)
		noteRepo.On("NextNoteNumber", mock.Anything, mock.Anything).Return("CN-2026-00008", nil)
		noteRepo.On("Save", mock.Anything, mock.AnythingOfType("*billing.CreditNote")).Return(nil)

		service := newNoteService(noteRepo, orderRepo)
		resp, err := service.Create(context.Background(), companyID, CreateCreditNoteRequest{
			SalesOrderID: order.ID,
			RefundType:   "partial",
			Reason:       "four units returned",
			Items: []CreditNoteLineInput{{
				OriginalItemID: order.Items[0].ID,
				Quantity:       d("4"),
			}},
		})
		require.NoError(t, err)
		assert.True(t, resp.Totals.Total.Equal(d("365.94")))
	})

	t.Run("prior notes enforce the refund ceiling", func(t *testing.T) {
		companyID := uuid.New()
		order := storedTestOrder(t, companyID, billing.SalesOrderStatusFulfilled)
		orderRepo := new(MockSalesOrderRepository)
		noteRepo := new(MockCreditNoteRepository)
		orderRepo.On("FindByID", mock.Anything, companyID, order.ID).Return(order, nil)
		noteRepo.On("SumActiveTotalBySalesOrder", mock.Anything, companyID, order.ID).Return(d("600"), nil)

		service := newNoteService(noteRepo, orderRepo)
		_, err := service.Create(context.Background(), companyID, CreateCreditNoteRequest{
			SalesOrderID: order.ID,
			RefundType:   "full",
			Reason:       "everything back",
		})
		assertServiceCode(t, err, shared.CodeRefundExceedsTotal)
		noteRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})
}

func TestCreditNoteService_Authorize(t *testing.T) {
	t.Run("assigns fiscal number and cufe", func(t *testing.T) {
		companyID := uuid.New()
		note := storedTestNote(t, companyID)
		noteRepo := new(MockCreditNoteRepository)
		orderRepo := new(MockSalesOrderRepository)
		noteRepo.On("FindByID", mock.Anything, companyID, note.ID).Return(note, nil)
		noteRepo.On("SaveWithLock", mock.Anything, note).Return(nil)

		service := newNoteService(noteRepo, orderRepo)
		resp, err := service.Authorize(context.Background(), companyID, note.ID)
		require.NoError(t, err)
		assert.Equal(t, string(billing.CreditNoteStatusAuthorized), resp.Status)
		require.NotNil(t, resp.FiscalNumber)
		assert.Equal(t, note.NoteNumber, *resp.FiscalNumber)
		require.NotNil(t, resp.FiscalCufe)
		assert.Len(t, *resp.FiscalCufe, 64)
	})

	t.Run("authorized note cannot be authorized again", func(t *testing.T) {
		companyID := uuid.New()
		note := storedTestNote(t, companyID)
		require.NoError(t, note.Authorize(note.NoteNumber, "cufe"))
		noteRepo := new(MockCreditNoteRepository)
		orderRepo := new(MockSalesOrderRepository)
		noteRepo.On("FindByID", mock.Anything, companyID, note.ID).Return(note, nil)

		service := newNoteService(noteRepo, orderRepo)
		_, err := service.Authorize(context.Background(), companyID, note.ID)
		assertServiceCode(t, err, shared.CodeInvalidTransition)
	})
}

func TestCreditNoteService_Delete(t *testing.T) {
	t.Run("draft notes delete", func(t *testing.T) {
		companyID := uuid.New()
		note := storedTestNote(t, companyID)
		noteRepo := new(MockCreditNoteRepository)
		orderRepo := new(MockSalesOrderRepository)
		noteRepo.On("FindByID", mock.Anything, companyID, note.ID).Return(note, nil)
		noteRepo.On("Delete", mock.Anything, companyID, note.ID).Return(nil)

		service := newNoteService(noteRepo, orderRepo)
		require.NoError(t, service.Delete(context.Background(), companyID, note.ID))
		noteRepo.AssertExpectations(t)
	})

	t.Run("authorized notes are not deletable", func(t *testing.T) {
		companyID := uuid.New()
		note := storedTestNote(t, companyID)
		require.NoError(t, note.Authorize(note.NoteNumber, "cufe"))
		noteRepo := new(MockCreditNoteRepository)
		orderRepo := new(MockSalesOrderRepository)
		noteRepo.On("FindByID", mock.Anything, companyID, note.ID).Return(note, nil)

		service := newNoteService(noteRepo, orderRepo)
		err := service.Delete(context.Background(), companyID, note.ID)
		assertServiceCode(t, err, shared.CodeInvalidTransition)
		noteRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
	})
}
