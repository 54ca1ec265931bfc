package billing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/facturado/backend/internal/domain/billing"
	"github.com/facturado/backend/internal/domain/shared"
)

// CreditNoteService generates and manages credit notes against sales
// orders. Creation sums the order's prior non-cancelled notes inside the
// same transaction that persists the new one, so the refund ceiling
// cannot be exceeded by concurrent requests.
type CreditNoteService struct {
	noteRepo  billing.CreditNoteRepository
	orderRepo billing.SalesOrderRepository
	tx        shared.TxManager
}

// NewCreditNoteService creates a new CreditNoteService
func NewCreditNoteService(noteRepo billing.CreditNoteRepository, orderRepo billing.SalesOrderRepository, tx shared.TxManager) *CreditNoteService {
	return &CreditNoteService{
		noteRepo:  noteRepo,
		orderRepo: orderRepo,
		tx:        tx,
	}
}

// Create generates a draft credit note from an originating order
func (s *CreditNoteService) Create(ctx context.Context, companyID uuid.UUID, req CreateCreditNoteRequest) (*CreditNoteResponse, error) {
	refundType := billing.RefundType(strings.ToUpper(req.RefundType))

	returns := make([]billing.ReturnLine, 0, len(req.Items))
	for _, item := range req.Items {
		returns = append(returns, billing.ReturnLine{
			OriginalItemID: item.OriginalItemID,
			Quantity:       item.Quantity,
		})
	}

	var response *CreditNoteResponse
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		order, err := s.orderRepo.FindByID(ctx, companyID, req.SalesOrderID)
		if err != nil {
			return err
		}

		priorTotal, err := s.noteRepo.SumActiveTotalBySalesOrder(ctx, companyID, order.ID)
		if err != nil {
			return err
		}

		note, err := billing.NewCreditNoteFromOrder(order, refundType, returns, req.Reason, priorTotal)
		if err != nil {
			return err
		}

		noteNumber, err := s.noteRepo.NextNoteNumber(ctx, companyID)
		if err != nil {
			return err
		}
		note.NoteNumber = noteNumber

		if err := s.noteRepo.Save(ctx, note); err != nil {
			return err
		}
		resp := ToCreditNoteResponse(note)
		response = &resp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return response, nil
}

// GetByID retrieves a credit note by ID
func (s *CreditNoteService) GetByID(ctx context.Context, companyID, noteID uuid.UUID) (*CreditNoteResponse, error) {
	note, err := s.noteRepo.FindByID(ctx, companyID, noteID)
	if err != nil {
		return nil, err
	}
	response := ToCreditNoteResponse(note)
	return &response, nil
}

// List retrieves a page of credit notes
func (s *CreditNoteService) List(ctx context.Context, companyID uuid.UUID, filter CreditNoteListFilter) (*shared.Paginated[CreditNoteResponse], error) {
	domainFilter := shared.DefaultFilter()
	if filter.Page > 0 {
		domainFilter.Page = filter.Page
	}
	if filter.PageSize > 0 && filter.PageSize <= 100 {
		domainFilter.PageSize = filter.PageSize
	}
	if filter.Status != "" {
		domainFilter.Filters["status"] = filter.Status
	}
	if filter.SalesOrderID != nil {
		domainFilter.Filters["sales_order_id"] = *filter.SalesOrderID
	}

	page, err := s.noteRepo.List(ctx, companyID, domainFilter)
	if err != nil {
		return nil, err
	}

	items := make([]CreditNoteResponse, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, ToCreditNoteResponse(&page.Items[i]))
	}
	result := shared.NewPaginated(items, page.Total, page.Page, page.PageSize)
	return &result, nil
}

// Authorize performs the fiscal authorization of a draft note, assigning
// its fiscal number from the note series and a generated CUFE
func (s *CreditNoteService) Authorize(ctx context.Context, companyID, noteID uuid.UUID) (*CreditNoteResponse, error) {
	var response *CreditNoteResponse
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		note, err := s.noteRepo.FindByID(ctx, companyID, noteID)
		if err != nil {
			return err
		}

		cufe := generateCufe(note)
		if err := note.Authorize(note.NoteNumber, cufe); err != nil {
			return err
		}

		if err := s.noteRepo.SaveWithLock(ctx, note); err != nil {
			return err
		}
		resp := ToCreditNoteResponse(note)
		response = &resp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return response, nil
}

// Cancel cancels a draft note. Cancelled notes stop counting against the
// order's refund ceiling.
func (s *CreditNoteService) Cancel(ctx context.Context, companyID, noteID uuid.UUID) (*CreditNoteResponse, error) {
	var response *CreditNoteResponse
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		note, err := s.noteRepo.FindByID(ctx, companyID, noteID)
		if err != nil {
			return err
		}
		if err := note.Cancel(); err != nil {
			return err
		}
		if err := s.noteRepo.SaveWithLock(ctx, note); err != nil {
			return err
		}
		resp := ToCreditNoteResponse(note)
		response = &resp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return response, nil
}

// Delete removes a draft note
func (s *CreditNoteService) Delete(ctx context.Context, companyID, noteID uuid.UUID) error {
	return s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		note, err := s.noteRepo.FindByID(ctx, companyID, noteID)
		if err != nil {
			return err
		}
		if !note.CanBeDeleted() {
			return shared.NewDomainError(shared.CodeInvalidTransition,
				fmt.Sprintf("credit note in status %s cannot be deleted", note.Status))
		}
		return s.noteRepo.Delete(ctx, companyID, noteID)
	})
}

// generateCufe derives the fiscal acceptance hash from the note's
// identifying fields
func generateCufe(note *billing.CreditNote) string {
	payload := fmt.Sprintf("%s|%s|%s|%s|%d",
		note.ID, note.NoteNumber, note.SalesOrderNumber, note.TotalAmount, time.Now().Unix())
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}
