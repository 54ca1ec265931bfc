package billing

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/facturado/backend/internal/domain/shared"
	"github.com/facturado/backend/internal/domain/shared/valueobject"
)

// CreditNoteStatus represents the lifecycle state of a credit note
type CreditNoteStatus string

const (
	CreditNoteStatusDraft      CreditNoteStatus = "DRAFT"
	CreditNoteStatusAuthorized CreditNoteStatus = "AUTHORIZED"
	CreditNoteStatusCancelled  CreditNoteStatus = "CANCELLED"
)

// IsValid checks if the status is valid
func (s CreditNoteStatus) IsValid() bool {
	switch s {
	case CreditNoteStatusDraft, CreditNoteStatusAuthorized, CreditNoteStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo checks if transition to target status is allowed.
// Authorization is one-way; AUTHORIZED and CANCELLED are terminal.
func (s CreditNoteStatus) CanTransitionTo(target CreditNoteStatus) bool {
	if s != CreditNoteStatusDraft {
		return false
	}
	return target == CreditNoteStatusAuthorized || target == CreditNoteStatusCancelled
}

// RefundType distinguishes a full reversal from a per-line partial return
type RefundType string

const (
	RefundTypeFull    RefundType = "FULL"
	RefundTypePartial RefundType = "PARTIAL"
)

// IsValid checks if the refund type is valid
func (r RefundType) IsValid() bool {
	return r == RefundTypeFull || r == RefundTypePartial
}

// ReturnLine specifies how much of one original order line is returned
type ReturnLine struct {
	OriginalItemID uuid.UUID       `json:"original_item_id"`
	Quantity       decimal.Decimal `json:"quantity"`
}

// CreditNoteItem is one line of a credit note's snapshot. It captures the
// prorated figures and the original line's frozen tax rate so the note
// stays reconstructible even if the originating order is later archived.
type CreditNoteItem struct {
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

// CreditNoteItems is the immutable snapshot, stored as a JSONB column.
// Downstream consumers (PDF and report generation) read this blob; its
// field names are a compatibility surface.
type CreditNoteItems []CreditNoteItem

// Value implements driver.Valuer
func (c CreditNoteItems) Value() (driver.Value, error) {
	if c == nil {
		return "[]", nil
	}
	data, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner
func (c *CreditNoteItems) Scan(value any) error {
	if value == nil {
		*c = CreditNoteItems{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into CreditNoteItems", value)
	}
	return json.Unmarshal(data, c)
}

// CreditNote reverses all or part of a sales order's billed value. Its
// items are a deep snapshot computed at creation, never a live reference
// to the order's lines.
type CreditNote struct {
	shared.CompanyAggregateRoot
	NoteNumber       string           `json:"note_number" gorm:"type:varchar(50);index;not null"`
	SalesOrderID     uuid.UUID        `json:"sales_order_id" gorm:"type:uuid;not null;index"`
	SalesOrderNumber string           `json:"sales_order_number" gorm:"type:varchar(50)"`
	CustomerID       uuid.UUID        `json:"customer_id" gorm:"type:uuid;not null;index"`
	CustomerName     string           `json:"customer_name" gorm:"type:varchar(255)"`
	NoteDate         time.Time        `json:"note_date" gorm:"not null"`
	Reason           string           `json:"reason" gorm:"type:text;not null"`
	RefundType       RefundType       `json:"refund_type" gorm:"type:varchar(10);not null"`
	Status           CreditNoteStatus `json:"status" gorm:"type:varchar(20);not null;default:'DRAFT';index"`

	Items CreditNoteItems `json:"items" gorm:"type:jsonb;not null;default:'[]'"`

	TaxEnabled bool            `json:"tax_enabled" gorm:"not null;default:false"`
	TaxRate    decimal.Decimal `json:"tax_rate" gorm:"type:decimal(10,4)"`

	Subtotal             decimal.Decimal `json:"subtotal" gorm:"type:decimal(20,2);not null;default:0"`
	LineDiscountTotal    decimal.Decimal `json:"line_discount_total" gorm:"type:decimal(20,2);not null;default:0"`
	NetItemsTotal        decimal.Decimal `json:"net_items_total" gorm:"type:decimal(20,2);not null;default:0"`
	GlobalDiscountAmount decimal.Decimal `json:"global_discount_amount" gorm:"type:decimal(20,2);not null;default:0"`
	TaxableBase          decimal.Decimal `json:"taxable_base" gorm:"type:decimal(20,2);not null;default:0"`
	TaxAmount            decimal.Decimal `json:"tax_amount" gorm:"type:decimal(20,2);not null;default:0"`
	TotalAmount          decimal.Decimal `json:"total_amount" gorm:"type:decimal(20,2);not null;default:0"`

	FiscalNumber *string    `json:"fiscal_number,omitempty" gorm:"type:varchar(100)"`
	FiscalCufe   *string    `json:"fiscal_cufe,omitempty" gorm:"type:varchar(200)"`
	AuthorizedAt *time.Time `json:"authorized_at,omitempty"`
	CancelledAt  *time.Time `json:"cancelled_at,omitempty"`
}

// TableName returns the table name for GORM
func (CreditNote) TableName() string {
	return "credit_notes"
}

// NewCreditNoteFromOrder builds a draft credit note by prorating the
// originating order's line and global discounts down to the returned
// quantities.
//
// Per line, the original discount is treated as uniform per unit:
// prorated discount = round(originalDiscount * returnedQty / originalQty),
// computed in one rounding step so a full return reproduces the original
// figures exactly. The order's global discount is prorated by the share of
// original net value being returned. Totals then flow through
// ComputeTotals like any other document.
//
// priorCreditTotal is the sum of the order's existing non-cancelled credit
// notes; the caller must compute it under the same transactional boundary
// that persists the new note so the refund ceiling cannot be raced.
func NewCreditNoteFromOrder(order *SalesOrder, refundType RefundType, returns []ReturnLine, reason string, priorCreditTotal decimal.Decimal) (*CreditNote, error) {
	if order == nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "originating order is required")
	}
	if reason == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "credit note reason is required")
	}
	if !refundType.IsValid() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "refund type must be FULL or PARTIAL")
	}
	if order.IsDraft() || order.IsCancelled() {
		return nil, shared.NewDomainError(shared.CodeInvalidTransition,
			fmt.Sprintf("cannot credit an order in status %s", order.Status))
	}

	returned, err := resolveReturnedQuantities(order, refundType, returns)
	if err != nil {
		return nil, err
	}

	items := make(CreditNoteItems, 0, len(order.Items))
	lines := make([]LineFigures, 0, len(order.Items))
	netItemsTotal := decimal.Zero
	for i := range order.Items {
		original := &order.Items[i]
		qty := returned[original.ID]
		if qty.IsZero() {
			continue
		}

		gross := valueobject.Round(qty.Mul(original.UnitPrice))
		lineDiscount := prorate(original.DiscountAmount, qty, original.Quantity)
		net := gross.Sub(lineDiscount)

		items = append(items, CreditNoteItem{
			OriginalItemID: original.ID,
			ProductID:      original.ProductID,
			Description:    original.Description,
			Quantity:       qty,
			UnitPrice:      original.UnitPrice,
			TaxRate:        original.TaxRate,
			Gross:          gross,
			DiscountAmount: lineDiscount,
			Net:            net,
		})
		lines = append(lines, LineFigures{Gross: gross, DiscountAmount: lineDiscount, Net: net})
		netItemsTotal = netItemsTotal.Add(net)
	}
	if len(items) == 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "credit note must return at least one item")
	}

	var globalReturned decimal.Decimal
	if refundType == RefundTypeFull {
		globalReturned = order.GlobalDiscountAmount
	} else {
		globalReturned = prorate(order.GlobalDiscountAmount, netItemsTotal, order.NetItemsTotal)
	}

	totals, err := ComputeTotals(lines, valueobject.NewAmountDiscount(globalReturned), order.Tax)
	if err != nil {
		return nil, err
	}

	remaining := order.TotalAmount.Sub(priorCreditTotal)
	if totals.Total.GreaterThan(remaining) {
		return nil, shared.NewDomainError(shared.CodeRefundExceedsTotal,
			fmt.Sprintf("credit note total %s exceeds the order's remaining creditable amount %s", totals.Total, remaining))
	}

	note := &CreditNote{
		CompanyAggregateRoot: shared.NewCompanyAggregateRoot(order.CompanyID),
		SalesOrderID:         order.ID,
		SalesOrderNumber:     order.OrderNumber,
		CustomerID:           order.CustomerID,
		CustomerName:         order.CustomerName,
		NoteDate:             time.Now(),
		Reason:               reason,
		RefundType:           refundType,
		Status:               CreditNoteStatusDraft,
		Items:                items,
		TaxEnabled:           order.Tax.Enabled,
		TaxRate:              order.Tax.Rate,
		Subtotal:             totals.Subtotal,
		LineDiscountTotal:    totals.LineDiscountTotal,
		NetItemsTotal:        totals.NetItemsTotal,
		GlobalDiscountAmount: totals.GlobalDiscount,
		TaxableBase:          totals.TaxableBase,
		TaxAmount:            totals.Tax,
		TotalAmount:          totals.Total,
	}
	note.AddDomainEvent(NewCreditNoteCreatedEvent(note))
	return note, nil
}

// prorate scales amount by part/whole with a single rounding step.
// Returns zero when the whole is zero.
func prorate(amount, part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return valueobject.Round(amount.Mul(part).Div(whole))
}

func resolveReturnedQuantities(order *SalesOrder, refundType RefundType, returns []ReturnLine) (map[uuid.UUID]decimal.Decimal, error) {
	returned := make(map[uuid.UUID]decimal.Decimal, len(order.Items))

	if refundType == RefundTypeFull {
		for i := range order.Items {
			returned[order.Items[i].ID] = order.Items[i].Quantity
		}
		return returned, nil
	}

	for _, ret := range returns {
		original, ok := order.FindItem(ret.OriginalItemID)
		if !ok {
			return nil, shared.NewDomainError(shared.CodeNotFound,
				fmt.Sprintf("order has no item %s", ret.OriginalItemID))
		}
		if ret.Quantity.IsNegative() || ret.Quantity.GreaterThan(original.Quantity) {
			return nil, shared.NewDomainError(shared.CodeExceedsOriginal,
				fmt.Sprintf("returned quantity %s is outside [0, %s] for item %s", ret.Quantity, original.Quantity, original.ID))
		}
		if _, dup := returned[ret.OriginalItemID]; dup {
			return nil, shared.NewDomainError(shared.CodeInvalidInput,
				fmt.Sprintf("item %s is listed more than once", ret.OriginalItemID))
		}
		returned[ret.OriginalItemID] = ret.Quantity
	}
	return returned, nil
}

// IsDraft returns true while the note may still be authorized, cancelled
// or deleted
func (c *CreditNote) IsDraft() bool {
	return c.Status == CreditNoteStatusDraft
}

// IsAuthorized returns true once the note has been fiscally authorized
func (c *CreditNote) IsAuthorized() bool {
	return c.Status == CreditNoteStatusAuthorized
}

// IsCancelled returns true if the note was cancelled
func (c *CreditNote) IsCancelled() bool {
	return c.Status == CreditNoteStatusCancelled
}

// CanBeDeleted returns true only for draft notes
func (c *CreditNote) CanBeDeleted() bool {
	return c.IsDraft()
}

// Authorize performs the one-way fiscal authorization, assigning the
// external identifiers. Irreversible.
func (c *CreditNote) Authorize(fiscalNumber, fiscalCufe string) error {
	if !c.Status.CanTransitionTo(CreditNoteStatusAuthorized) {
		return shared.NewDomainError(shared.CodeInvalidTransition,
			fmt.Sprintf("cannot authorize credit note in status %s", c.Status))
	}
	if fiscalNumber == "" || fiscalCufe == "" {
		return shared.NewDomainError(shared.CodeInvalidInput, "fiscal number and cufe are required for authorization")
	}
	c.Status = CreditNoteStatusAuthorized
	c.FiscalNumber = &fiscalNumber
	c.FiscalCufe = &fiscalCufe
	now := time.Now()
	c.AuthorizedAt = &now
	c.AddDomainEvent(NewCreditNoteAuthorizedEvent(c))
	return nil
}

// Cancel transitions a draft note to the terminal CANCELLED state.
// Cancelled notes no longer count against the order's refund ceiling.
func (c *CreditNote) Cancel() error {
	if !c.Status.CanTransitionTo(CreditNoteStatusCancelled) {
		return shared.NewDomainError(shared.CodeInvalidTransition,
			fmt.Sprintf("cannot cancel credit note in status %s", c.Status))
	}
	c.Status = CreditNoteStatusCancelled
	now := time.Now()
	c.CancelledAt = &now
	c.AddDomainEvent(NewCreditNoteCancelledEvent(c))
	return nil
}

// Totals returns the note's stored totals
func (c *CreditNote) Totals() Totals {
	return Totals{
		Subtotal:          c.Subtotal,
		LineDiscountTotal: c.LineDiscountTotal,
		NetItemsTotal:     c.NetItemsTotal,
		GlobalDiscount:    c.GlobalDiscountAmount,
		TaxableBase:       c.TaxableBase,
		Tax:               c.TaxAmount,
		Total:             c.TotalAmount,
	}
}
