package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/facturado/backend/internal/domain/billing"
	"github.com/facturado/backend/internal/domain/shared"
	"github.com/facturado/backend/internal/domain/shared/valueobject"
)

// SalesOrderService handles the sales order document operations
type SalesOrderService struct {
	orderRepo billing.SalesOrderRepository
	noteRepo  billing.CreditNoteRepository
	tx        shared.TxManager
}

// NewSalesOrderService creates a new SalesOrderService
func NewSalesOrderService(orderRepo billing.SalesOrderRepository, noteRepo billing.CreditNoteRepository, tx shared.TxManager) *SalesOrderService {
	return &SalesOrderService{
		orderRepo: orderRepo,
		noteRepo:  noteRepo,
		tx:        tx,
	}
}

// Create builds a draft order from the request and persists it with its
// computed totals
func (s *SalesOrderService) Create(ctx context.Context, companyID uuid.UUID, req CreateSalesOrderRequest) (*SalesOrderResponse, error) {
	var response *SalesOrderResponse
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		orderNumber, err := s.orderRepo.NextOrderNumber(ctx, companyID)
		if err != nil {
			return err
		}

		var issueDate = timeOrZero(req.IssueDate)
		order, err := billing.NewSalesOrder(companyID, req.CustomerID, req.CustomerName, issueDate)
		if err != nil {
			return err
		}
		order.OrderNumber = orderNumber
		order.Notes = req.Notes

		if err := applyDraftContent(order, req.Items, req.DiscountType, req.DiscountValue, req.TaxEnabled, req.TaxRate); err != nil {
			return err
		}

		if err := s.orderRepo.Save(ctx, order); err != nil {
			return err
		}
		resp := ToSalesOrderResponse(order)
		response = &resp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return response, nil
}

// Update replaces a draft order's items, discount and tax configuration
// and recomputes its totals
func (s *SalesOrderService) Update(ctx context.Context, companyID, orderID uuid.UUID, req UpdateSalesOrderRequest) (*SalesOrderResponse, error) {
	var response *SalesOrderResponse
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		order, err := s.orderRepo.FindByID(ctx, companyID, orderID)
		if err != nil {
			return err
		}

		// The stored global discount is dropped before the items are, so an
		// amount discount is never validated against a half-stripped base.
		if err := order.SetGlobalDiscount(valueobject.NoDiscount()); err != nil {
			return err
		}

		existing := make([]uuid.UUID, 0, len(order.Items))
		for i := range order.Items {
			existing = append(existing, order.Items[i].ID)
		}
		for _, itemID := range existing {
			if err := order.RemoveItem(itemID); err != nil {
				return err
			}
		}

		if err := applyDraftContent(order, req.Items, req.DiscountType, req.DiscountValue, req.TaxEnabled, req.TaxRate); err != nil {
			return err
		}
		if req.Notes != nil {
			order.Notes = *req.Notes
		}

		if err := s.orderRepo.SaveWithLock(ctx, order); err != nil {
			return err
		}
		resp := ToSalesOrderResponse(order)
		response = &resp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return response, nil
}

// applyDraftContent sets tax and items first and the global discount last,
// so an amount discount is validated against the final net items total.
func applyDraftContent(order *billing.SalesOrder, items []LineItemInput, discountType string, discountValue decimal.Decimal, taxEnabled bool, taxRate decimal.Decimal) error {
	if err := order.SetTax(parseTax(taxEnabled, taxRate)); err != nil {
		return err
	}
	for _, item := range items {
		discount := parseDiscount(item.DiscountType, item.DiscountValue)
		if err := order.AddItem(item.ProductID, item.Description, item.Quantity, item.UnitPrice, discount); err != nil {
			return err
		}
	}
	return order.SetGlobalDiscount(parseDiscount(discountType, discountValue))
}

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

// GetByID retrieves an order by ID
func (s *SalesOrderService) GetByID(ctx context.Context, companyID, orderID uuid.UUID) (*SalesOrderResponse, error) {
	order, err := s.orderRepo.FindByID(ctx, companyID, orderID)
	if err != nil {
		return nil, err
	}
	response := ToSalesOrderResponse(order)
	return &response, nil
}

// List retrieves a page of orders
func (s *SalesOrderService) List(ctx context.Context, companyID uuid.UUID, filter SalesOrderListFilter) (*shared.Paginated[SalesOrderResponse], error) {
	domainFilter := shared.DefaultFilter()
	if filter.Page > 0 {
		domainFilter.Page = filter.Page
	}
	if filter.PageSize > 0 && filter.PageSize <= 100 {
		domainFilter.PageSize = filter.PageSize
	}
	domainFilter.Search = filter.Search
	if filter.Status != "" {
		domainFilter.Filters["status"] = filter.Status
	}
	if filter.CustomerID != nil {
		domainFilter.Filters["customer_id"] = *filter.CustomerID
	}

	page, err := s.orderRepo.List(ctx, companyID, domainFilter)
	if err != nil {
		return nil, err
	}

	items := make([]SalesOrderResponse, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, ToSalesOrderResponse(&page.Items[i]))
	}
	result := shared.NewPaginated(items, page.Total, page.Page, page.PageSize)
	return &result, nil
}

// Confirm transitions a draft order to CONFIRMED
func (s *SalesOrderService) Confirm(ctx context.Context, companyID, orderID uuid.UUID) (*SalesOrderResponse, error) {
	return s.transition(ctx, companyID, orderID, func(order *billing.SalesOrder) error {
		return order.Confirm()
	})
}

// Emit performs the fiscal emission, freezing the order's totals
func (s *SalesOrderService) Emit(ctx context.Context, companyID, orderID uuid.UUID) (*SalesOrderResponse, error) {
	return s.transition(ctx, companyID, orderID, func(order *billing.SalesOrder) error {
		return order.Emit()
	})
}

// Cancel cancels a draft or confirmed order
func (s *SalesOrderService) Cancel(ctx context.Context, companyID, orderID uuid.UUID, reason string) (*SalesOrderResponse, error) {
	return s.transition(ctx, companyID, orderID, func(order *billing.SalesOrder) error {
		return order.Cancel(reason)
	})
}

func (s *SalesOrderService) transition(ctx context.Context, companyID, orderID uuid.UUID, mutate func(*billing.SalesOrder) error) (*SalesOrderResponse, error) {
	var response *SalesOrderResponse
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		order, err := s.orderRepo.FindByID(ctx, companyID, orderID)
		if err != nil {
			return err
		}
		if err := mutate(order); err != nil {
			return err
		}
		if err := s.orderRepo.SaveWithLock(ctx, order); err != nil {
			return err
		}
		resp := ToSalesOrderResponse(order)
		response = &resp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return response, nil
}

// Delete removes an order. Orders referenced by credit notes can never be
// deleted, and only drafts and cancelled orders are deletable at all.
func (s *SalesOrderService) Delete(ctx context.Context, companyID, orderID uuid.UUID) error {
	return s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		order, err := s.orderRepo.FindByID(ctx, companyID, orderID)
		if err != nil {
			return err
		}
		if !order.IsDraft() && !order.IsCancelled() {
			return shared.NewDomainError(shared.CodeInvalidTransition,
				fmt.Sprintf("order in status %s cannot be deleted", order.Status))
		}

		count, err := s.noteRepo.CountBySalesOrder(ctx, companyID, orderID)
		if err != nil {
			return err
		}
		if count > 0 {
			return shared.NewDomainError(shared.CodeInvalidInput,
				fmt.Sprintf("order %s has %d credit notes and cannot be deleted", order.OrderNumber, count))
		}

		return s.orderRepo.Delete(ctx, companyID, orderID)
	})
}
