package billing

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/facturado/backend/internal/domain/billing"
	"github.com/facturado/backend/internal/domain/shared/valueobject"
)

// ==================== Sales Order DTOs ====================

// LineItemInput represents one line in a create/update order request
type LineItemInput struct {
	ProductID     *uuid.UUID      `json:"product_id"`
	Description   string          `json:"description" binding:"required,min=1,max=255"`
	Quantity      decimal.Decimal `json:"quantity" binding:"required"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	DiscountType  string          `json:"discount_type" binding:"omitempty,oneof=percentage amount PERCENTAGE AMOUNT"`
	DiscountValue decimal.Decimal `json:"discount_value"`
}

// CreateSalesOrderRequest represents a request to create a draft order
type CreateSalesOrderRequest struct {
	CustomerID    uuid.UUID       `json:"customer_id" binding:"required"`
	CustomerName  string          `json:"customer_name" binding:"required,min=1,max=255"`
	IssueDate     *time.Time      `json:"issue_date"`
	Items         []LineItemInput `json:"items"`
	DiscountType  string          `json:"discount_type" binding:"omitempty,oneof=percentage amount PERCENTAGE AMOUNT"`
	DiscountValue decimal.Decimal `json:"discount_value"`
	TaxEnabled    bool            `json:"tax_enabled"`
	TaxRate       decimal.Decimal `json:"tax_rate"`
	Notes         string          `json:"notes" binding:"max=2000"`
}

// UpdateSalesOrderRequest replaces a draft order's content wholesale
type UpdateSalesOrderRequest struct {
	Items         []LineItemInput `json:"items"`
	DiscountType  string          `json:"discount_type" binding:"omitempty,oneof=percentage amount PERCENTAGE AMOUNT"`
	DiscountValue decimal.Decimal `json:"discount_value"`
	TaxEnabled    bool            `json:"tax_enabled"`
	TaxRate       decimal.Decimal `json:"tax_rate"`
	Notes         *string         `json:"notes"`
}

// CancelSalesOrderRequest carries the cancellation reason
type CancelSalesOrderRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// SalesOrderListFilter represents filter options for the order list
type SalesOrderListFilter struct {
	Search     string     `form:"search"`
	Status     string     `form:"status"`
	CustomerID *uuid.UUID `form:"customer_id"`
	Page       int        `form:"page"`
	PageSize   int        `form:"page_size"`
}

// RecordPaymentRequest represents a payment to record against an order
type RecordPaymentRequest struct {
	Amount    decimal.Decimal `json:"amount" binding:"required"`
	Method    string          `json:"method" binding:"required,min=1,max=50"`
	Reference string          `json:"reference" binding:"max=100"`
	Notes     string          `json:"notes" binding:"max=500"`
}

// ==================== Credit Note DTOs ====================

// CreditNoteLineInput specifies a returned quantity for one original line
type CreditNoteLineInput struct {
	OriginalItemID uuid.UUID       `json:"original_item_id" binding:"required"`
	Quantity       decimal.Decimal `json:"quantity" binding:"required"`
}

// CreateCreditNoteRequest represents a request to generate a credit note
type CreateCreditNoteRequest struct {
	SalesOrderID uuid.UUID             `json:"sales_order_id" binding:"required"`
	RefundType   string                `json:"refund_type" binding:"required,oneof=full partial FULL PARTIAL"`
	Reason       string                `json:"reason" binding:"required,min=1,max=500"`
	Items        []CreditNoteLineInput `json:"items"`
}

// CreditNoteListFilter represents filter options for the note list
type CreditNoteListFilter struct {
	SalesOrderID *uuid.UUID `form:"sales_order_id"`
	Status       string     `form:"status"`
	Page         int        `form:"page"`
	PageSize     int        `form:"page_size"`
}

// ==================== Responses ====================

// TotalsResponse is the computed monetary summary of a document
type TotalsResponse struct {
	Subtotal          decimal.Decimal `json:"subtotal"`
	LineDiscountTotal decimal.Decimal `json:"line_discount_total"`
	GlobalDiscount    decimal.Decimal `json:"global_discount"`
	TaxableBase       decimal.Decimal `json:"taxable_base"`
	Tax               decimal.Decimal `json:"tax"`
	Total             decimal.Decimal `json:"total"`
}

// SalesOrderItemResponse represents one order line
type SalesOrderItemResponse struct {
	ID             uuid.UUID       `json:"id"`
	ProductID      *uuid.UUID      `json:"product_id,omitempty"`
	Description    string          `json:"description"`
	Quantity       decimal.Decimal `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	DiscountType   string          `json:"discount_type"`
	DiscountValue  decimal.Decimal `json:"discount_value"`
	TaxRate        decimal.Decimal `json:"tax_rate"`
	Gross          decimal.Decimal `json:"gross"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	Net            decimal.Decimal `json:"net"`
}

// PaymentResponse represents one ledger entry
type PaymentResponse struct {
	ID        uuid.UUID       `json:"id"`
	Amount    decimal.Decimal `json:"amount"`
	Method    string          `json:"method"`
	Reference string          `json:"reference"`
	Notes     string          `json:"notes"`
	PaidAt    time.Time       `json:"paid_at"`
}

// SalesOrderResponse is the full order representation
type SalesOrderResponse struct {
	ID            uuid.UUID                `json:"id"`
	OrderNumber   string                   `json:"order_number"`
	CustomerID    uuid.UUID                `json:"customer_id"`
	CustomerName  string                   `json:"customer_name"`
	IssueDate     time.Time                `json:"issue_date"`
	Status        string                   `json:"status"`
	Items         []SalesOrderItemResponse `json:"items"`
	DiscountType  string                   `json:"discount_type"`
	DiscountValue decimal.Decimal          `json:"discount_value"`
	TaxEnabled    bool                     `json:"tax_enabled"`
	TaxRate       decimal.Decimal          `json:"tax_rate"`
	Totals        TotalsResponse           `json:"totals"`
	Payments      []PaymentResponse        `json:"payments"`
	PaidAmount    decimal.Decimal          `json:"paid_amount"`
	Balance       decimal.Decimal          `json:"balance"`
	Notes         string                   `json:"notes,omitempty"`
	ConfirmedAt   *time.Time               `json:"confirmed_at,omitempty"`
	EmittedAt     *time.Time               `json:"emitted_at,omitempty"`
	CancelledAt   *time.Time               `json:"cancelled_at,omitempty"`
	Version       int                      `json:"version"`
	CreatedAt     time.Time                `json:"created_at"`
	UpdatedAt     time.Time                `json:"updated_at"`
}

// PaymentResultResponse is returned by ledger mutations
type PaymentResultResponse struct {
	Payment    *PaymentResponse `json:"payment,omitempty"`
	PaidAmount decimal.Decimal  `json:"paid_amount"`
	Balance    decimal.Decimal  `json:"balance"`
}

// CreditNoteItemResponse represents one snapshot line
type CreditNoteItemResponse struct {
	OriginalItemID uuid.UUID       `json:"original_item_id"`
	ProductID      *uuid.UUID      `json:"product_id,omitempty"`
	Description    string          `json:"description"`
	Quantity       decimal.Decimal `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	TaxRate        decimal.Decimal `json:"tax_rate"`
	Gross          decimal.Decimal `json:"gross"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	Net            decimal.Decimal `json:"net"`
}

// CreditNoteResponse is the full credit note representation
type CreditNoteResponse struct {
	ID               uuid.UUID                `json:"id"`
	NoteNumber       string                   `json:"note_number"`
	SalesOrderID     uuid.UUID                `json:"sales_order_id"`
	SalesOrderNumber string                   `json:"sales_order_number"`
	CustomerID       uuid.UUID                `json:"customer_id"`
	CustomerName     string                   `json:"customer_name"`
	NoteDate         time.Time                `json:"note_date"`
	Reason           string                   `json:"reason"`
	RefundType       string                   `json:"refund_type"`
	Status           string                   `json:"status"`
	Items            []CreditNoteItemResponse `json:"items"`
	Totals           TotalsResponse           `json:"totals"`
	FiscalNumber     *string                  `json:"fiscal_number,omitempty"`
	FiscalCufe       *string                  `json:"fiscal_cufe,omitempty"`
	AuthorizedAt     *time.Time               `json:"authorized_at,omitempty"`
	CancelledAt      *time.Time               `json:"cancelled_at,omitempty"`
	Version          int                      `json:"version"`
	CreatedAt        time.Time                `json:"created_at"`
}

// ==================== Mapping helpers ====================

func parseDiscount(discountType string, value decimal.Decimal) valueobject.Discount {
	switch strings.ToUpper(discountType) {
	case string(valueobject.DiscountTypeAmount):
		return valueobject.NewAmountDiscount(value)
	case string(valueobject.DiscountTypePercentage):
		return valueobject.NewPercentageDiscount(value)
	default:
		if value.IsZero() {
			return valueobject.NoDiscount()
		}
		// default basis is percentage, matching the document form
		return valueobject.NewPercentageDiscount(value)
	}
}

func parseTax(enabled bool, rate decimal.Decimal) valueobject.TaxConfig {
	if !enabled {
		return valueobject.NoTax()
	}
	return valueobject.NewTaxConfig(rate)
}

func toTotalsResponse(t billing.Totals) TotalsResponse {
	return TotalsResponse{
		Subtotal:          t.Subtotal,
		LineDiscountTotal: t.LineDiscountTotal,
		GlobalDiscount:    t.GlobalDiscount,
		TaxableBase:       t.TaxableBase,
		Tax:               t.Tax,
		Total:             t.Total,
	}
}

// ToSalesOrderResponse maps an order aggregate to its API representation
func ToSalesOrderResponse(order *billing.SalesOrder) SalesOrderResponse {
	items := make([]SalesOrderItemResponse, 0, len(order.Items))
	for i := range order.Items {
		item := &order.Items[i]
		items = append(items, SalesOrderItemResponse{
			ID:             item.ID,
			ProductID:      item.ProductID,
			Description:    item.Description,
			Quantity:       item.Quantity,
			UnitPrice:      item.UnitPrice,
			DiscountType:   string(item.Discount.Type),
			DiscountValue:  item.Discount.Value,
			TaxRate:        item.TaxRate,
			Gross:          item.Gross,
			DiscountAmount: item.DiscountAmount,
			Net:            item.Net,
		})
	}

	payments := make([]PaymentResponse, 0, len(order.Payments))
	for _, p := range order.Payments {
		payments = append(payments, toPaymentResponse(p))
	}

	return SalesOrderResponse{
		ID:            order.ID,
		OrderNumber:   order.OrderNumber,
		CustomerID:    order.CustomerID,
		CustomerName:  order.CustomerName,
		IssueDate:     order.IssueDate,
		Status:        string(order.Status),
		Items:         items,
		DiscountType:  string(order.GlobalDiscount.Type),
		DiscountValue: order.GlobalDiscount.Value,
		TaxEnabled:    order.Tax.Enabled,
		TaxRate:       order.Tax.Rate,
		Totals:        toTotalsResponse(order.Totals()),
		Payments:      payments,
		PaidAmount:    order.PaidAmount,
		Balance:       order.Balance,
		Notes:         order.Notes,
		ConfirmedAt:   order.ConfirmedAt,
		EmittedAt:     order.EmittedAt,
		CancelledAt:   order.CancelledAt,
		Version:       order.Version,
		CreatedAt:     order.CreatedAt,
		UpdatedAt:     order.UpdatedAt,
	}
}

func toPaymentResponse(p billing.Payment) PaymentResponse {
	return PaymentResponse{
		ID:        p.ID,
		Amount:    p.Amount,
		Method:    p.Method,
		Reference: p.Reference,
		Notes:     p.Notes,
		PaidAt:    p.PaidAt,
	}
}

// ToCreditNoteResponse maps a credit note aggregate to its API representation
func ToCreditNoteResponse(note *billing.CreditNote) CreditNoteResponse {
	items := make([]CreditNoteItemResponse, 0, len(note.Items))
	for _, item := range note.Items {
		items = append(items, CreditNoteItemResponse{
			OriginalItemID: item.OriginalItemID,
			ProductID:      item.ProductID,
			Description:    item.Description,
			Quantity:       item.Quantity,
			UnitPrice:      item.UnitPrice,
			TaxRate:        item.TaxRate,
			Gross:          item.Gross,
			DiscountAmount: item.DiscountAmount,
			Net:            item.Net,
		})
	}

	return CreditNoteResponse{
		ID:               note.ID,
		NoteNumber:       note.NoteNumber,
		SalesOrderID:     note.SalesOrderID,
		SalesOrderNumber: note.SalesOrderNumber,
		CustomerID:       note.CustomerID,
		CustomerName:     note.CustomerName,
		NoteDate:         note.NoteDate,
		Reason:           note.Reason,
		RefundType:       string(note.RefundType),
		Status:           string(note.Status),
		Items:            items,
		Totals:           toTotalsResponse(note.Totals()),
		FiscalNumber:     note.FiscalNumber,
		FiscalCufe:       note.FiscalCufe,
		AuthorizedAt:     note.AuthorizedAt,
		CancelledAt:      note.CancelledAt,
		Version:          note.Version,
		CreatedAt:        note.CreatedAt,
	}
}
