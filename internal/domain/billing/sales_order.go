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

// SalesOrderStatus represents the lifecycle state of a sales order
type SalesOrderStatus string

const (
	SalesOrderStatusDraft     SalesOrderStatus = "DRAFT"
	SalesOrderStatusConfirmed SalesOrderStatus = "CONFIRMED"
	SalesOrderStatusFulfilled SalesOrderStatus = "FULFILLED"
	SalesOrderStatusCancelled SalesOrderStatus = "CANCELLED"
)

// IsValid checks if the status is valid
func (s SalesOrderStatus) IsValid() bool {
	switch s {
	case SalesOrderStatusDraft, SalesOrderStatusConfirmed,
		SalesOrderStatusFulfilled, SalesOrderStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo checks if transition to target status is allowed.
// Fulfilment is one-way; FULFILLED and CANCELLED are terminal.
func (s SalesOrderStatus) CanTransitionTo(target SalesOrderStatus) bool {
	transitions := map[SalesOrderStatus][]SalesOrderStatus{
		SalesOrderStatusDraft:     {SalesOrderStatusConfirmed, SalesOrderStatusFulfilled, SalesOrderStatusCancelled},
		SalesOrderStatusConfirmed: {SalesOrderStatusFulfilled, SalesOrderStatusCancelled},
		SalesOrderStatusFulfilled: {},
		SalesOrderStatusCancelled: {},
	}
	for _, allowed := range transitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// SalesOrderItem is a line within a sales order. It is owned exclusively
// by its order and never shared. TaxRate is copied from the order when the
// line is created so the line remains self-describing after the order is
// frozen; credit notes prorate against these frozen values.
type SalesOrderItem struct {
	shared.BaseEntity
	SalesOrderID   uuid.UUID            `json:"sales_order_id" gorm:"type:uuid;not null;index"`
	ProductID      *uuid.UUID           `json:"product_id,omitempty" gorm:"type:uuid"`
	Description    string               `json:"description" gorm:"type:varchar(255);not null"`
	Quantity       decimal.Decimal      `json:"quantity" gorm:"type:decimal(20,4);not null"`
	UnitPrice      decimal.Decimal      `json:"unit_price" gorm:"type:decimal(20,4);not null"`
	Discount       valueobject.Discount `json:"discount" gorm:"embedded;embeddedPrefix:discount_"`
	TaxRate        decimal.Decimal      `json:"tax_rate" gorm:"type:decimal(10,4)"`
	Gross          decimal.Decimal      `json:"gross" gorm:"type:decimal(20,2);not null"`
	DiscountAmount decimal.Decimal      `json:"discount_amount" gorm:"type:decimal(20,2);not null"`
	Net            decimal.Decimal      `json:"net" gorm:"type:decimal(20,2);not null"`
}

// TableName returns the table name for GORM
func (SalesOrderItem) TableName() string {
	return "sales_order_items"
}

// Figures returns the line's stored monetary figures
func (i *SalesOrderItem) Figures() LineFigures {
	return LineFigures{Gross: i.Gross, DiscountAmount: i.DiscountAmount, Net: i.Net}
}

// Payment is one entry in a sales order's payment ledger. Entries are
// append-only; removal is a distinct reversing operation on the ledger.
type Payment struct {
	ID        uuid.UUID       `json:"id"`
	Amount    decimal.Decimal `json:"amount"`
	Method    string          `json:"method"`
	Reference string          `json:"reference"`
	Notes     string          `json:"notes"`
	PaidAt    time.Time       `json:"paid_at"`
}

// PaymentRecords is stored as a JSONB column
type PaymentRecords []Payment

// Value implements driver.Valuer
func (p PaymentRecords) Value() (driver.Value, error) {
	if p == nil {
		return "[]", nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner
func (p *PaymentRecords) Scan(value any) error {
	if value == nil {
		*p = PaymentRecords{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into PaymentRecords", value)
	}
	return json.Unmarshal(data, p)
}

// SalesOrder is the invoice aggregate root. It owns its line items, the
// document-level discount and tax configuration, the derived totals, the
// payment ledger and the lifecycle status. Items, discount and tax may
// only change while the order is in DRAFT; after fiscal emission only the
// status and payment-derived fields move.
type SalesOrder struct {
	shared.CompanyAggregateRoot
	OrderNumber    string                `json:"order_number" gorm:"type:varchar(50);index;not null"`
	CustomerID     uuid.UUID             `json:"customer_id" gorm:"type:uuid;not null;index"`
	CustomerName   string                `json:"customer_name" gorm:"type:varchar(255)"`
	IssueDate      time.Time             `json:"issue_date" gorm:"not null"`
	Status         SalesOrderStatus      `json:"status" gorm:"type:varchar(20);not null;default:'DRAFT';index"`
	Items          []SalesOrderItem      `json:"items" gorm:"foreignKey:SalesOrderID;constraint:OnDelete:CASCADE"`
	GlobalDiscount valueobject.Discount  `json:"global_discount" gorm:"embedded;embeddedPrefix:global_discount_"`
	Tax            valueobject.TaxConfig `json:"tax" gorm:"embedded;embeddedPrefix:tax_"`

	Subtotal             decimal.Decimal `json:"subtotal" gorm:"type:decimal(20,2);not null;default:0"`
	LineDiscountTotal    decimal.Decimal `json:"line_discount_total" gorm:"type:decimal(20,2);not null;default:0"`
	NetItemsTotal        decimal.Decimal `json:"net_items_total" gorm:"type:decimal(20,2);not null;default:0"`
	GlobalDiscountAmount decimal.Decimal `json:"global_discount_amount" gorm:"type:decimal(20,2);not null;default:0"`
	TaxableBase          decimal.Decimal `json:"taxable_base" gorm:"type:decimal(20,2);not null;default:0"`
	TaxAmount            decimal.Decimal `json:"tax_amount" gorm:"type:decimal(20,2);not null;default:0"`
	TotalAmount          decimal.Decimal `json:"total_amount" gorm:"type:decimal(20,2);not null;default:0"`

	Payments   PaymentRecords  `json:"payments" gorm:"type:jsonb;default:'[]'"`
	PaidAmount decimal.Decimal `json:"paid_amount" gorm:"type:decimal(20,2);not null;default:0"`
	Balance    decimal.Decimal `json:"balance" gorm:"type:decimal(20,2);not null;default:0"`

	Notes       string     `json:"notes" gorm:"type:text"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	EmittedAt   *time.Time `json:"emitted_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
}

// TableName returns the table name for GORM
func (SalesOrder) TableName() string {
	return "sales_orders"
}

// NewSalesOrder creates a draft sales order
func NewSalesOrder(companyID, customerID uuid.UUID, customerName string, issueDate time.Time) (*SalesOrder, error) {
	if companyID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "company id is required")
	}
	if customerID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "customer id is required")
	}
	if issueDate.IsZero() {
		issueDate = time.Now()
	}

	order := &SalesOrder{
		CompanyAggregateRoot: shared.NewCompanyAggregateRoot(companyID),
		CustomerID:           customerID,
		CustomerName:         customerName,
		IssueDate:            issueDate,
		Status:               SalesOrderStatusDraft,
		GlobalDiscount:       valueobject.NoDiscount(),
		Tax:                  valueobject.NoTax(),
		Payments:             PaymentRecords{},
	}
	order.applyTotals(Totals{})

	order.AddDomainEvent(NewSalesOrderCreatedEvent(order))
	return order, nil
}

// IsDraft returns true while the order is still editable
func (o *SalesOrder) IsDraft() bool {
	return o.Status == SalesOrderStatusDraft
}

// IsCancelled returns true if the order has been cancelled
func (o *SalesOrder) IsCancelled() bool {
	return o.Status == SalesOrderStatusCancelled
}

// IsEmitted returns true once the order has been fiscally emitted
func (o *SalesOrder) IsEmitted() bool {
	return o.Status == SalesOrderStatusFulfilled
}

func (o *SalesOrder) ensureDraft() error {
	if !o.IsDraft() {
		return shared.NewDomainError(shared.CodeInvalidTransition,
			fmt.Sprintf("order in status %s cannot be modified", o.Status))
	}
	return nil
}

// totalsWith computes document totals for a candidate item set and
// discount/tax configuration without mutating the order. Mutators compute
// first and assign only on success so a failed edit leaves every derived
// field untouched.
func (o *SalesOrder) totalsWith(items []SalesOrderItem, global valueobject.Discount, tax valueobject.TaxConfig) (Totals, error) {
	lines := make([]LineFigures, 0, len(items))
	for i := range items {
		lines = append(lines, items[i].Figures())
	}
	return ComputeTotals(lines, global, tax)
}

func (o *SalesOrder) applyTotals(t Totals) {
	o.Subtotal = t.Subtotal
	o.LineDiscountTotal = t.LineDiscountTotal
	o.NetItemsTotal = t.NetItemsTotal
	o.GlobalDiscountAmount = t.GlobalDiscount
	o.TaxableBase = t.TaxableBase
	o.TaxAmount = t.Tax
	o.TotalAmount = t.Total
	o.Balance = t.Total.Sub(o.PaidAmount)
}

// Totals returns the order's stored totals
func (o *SalesOrder) Totals() Totals {
	return Totals{
		Subtotal:          o.Subtotal,
		LineDiscountTotal: o.LineDiscountTotal,
		NetItemsTotal:     o.NetItemsTotal,
		GlobalDiscount:    o.GlobalDiscountAmount,
		TaxableBase:       o.TaxableBase,
		Tax:               o.TaxAmount,
		Total:             o.TotalAmount,
	}
}

// AddItem appends a line to a draft order and recomputes totals
func (o *SalesOrder) AddItem(productID *uuid.UUID, description string, quantity, unitPrice decimal.Decimal, discount valueobject.Discount) error {
	if err := o.ensureDraft(); err != nil {
		return err
	}
	if description == "" {
		return shared.NewDomainError(shared.CodeInvalidInput, "item description is required")
	}

	figures, err := ComputeLine(quantity, unitPrice, discount)
	if err != nil {
		return err
	}

	item := SalesOrderItem{
		BaseEntity:     shared.NewBaseEntity(),
		SalesOrderID:   o.ID,
		ProductID:      productID,
		Description:    description,
		Quantity:       quantity,
		UnitPrice:      unitPrice,
		Discount:       discount,
		TaxRate:        o.Tax.Rate,
		Gross:          figures.Gross,
		DiscountAmount: figures.DiscountAmount,
		Net:            figures.Net,
	}

	candidate := append(append([]SalesOrderItem{}, o.Items...), item)
	totals, err := o.totalsWith(candidate, o.GlobalDiscount, o.Tax)
	if err != nil {
		return err
	}

	o.Items = candidate
	o.applyTotals(totals)
	return nil
}

// UpdateItem replaces the quantity, unit price and discount of an existing
// line on a draft order and recomputes totals
func (o *SalesOrder) UpdateItem(itemID uuid.UUID, quantity, unitPrice decimal.Decimal, discount valueobject.Discount) error {
	if err := o.ensureDraft(); err != nil {
		return err
	}

	idx := -1
	for i := range o.Items {
		if o.Items[i].ID == itemID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return shared.NewDomainError(shared.CodeNotFound, "order item not found")
	}

	figures, err := ComputeLine(quantity, unitPrice, discount)
	if err != nil {
		return err
	}

	candidate := append([]SalesOrderItem{}, o.Items...)
	candidate[idx].Quantity = quantity
	candidate[idx].UnitPrice = unitPrice
	candidate[idx].Discount = discount
	candidate[idx].Gross = figures.Gross
	candidate[idx].DiscountAmount = figures.DiscountAmount
	candidate[idx].Net = figures.Net

	totals, err := o.totalsWith(candidate, o.GlobalDiscount, o.Tax)
	if err != nil {
		return err
	}

	o.Items = candidate
	o.applyTotals(totals)
	return nil
}

// RemoveItem removes a line from a draft order and recomputes totals
func (o *SalesOrder) RemoveItem(itemID uuid.UUID) error {
	if err := o.ensureDraft(); err != nil {
		return err
	}

	candidate := make([]SalesOrderItem, 0, len(o.Items))
	found := false
	for i := range o.Items {
		if o.Items[i].ID == itemID {
			found = true
			continue
		}
		candidate = append(candidate, o.Items[i])
	}
	if !found {
		return shared.NewDomainError(shared.CodeNotFound, "order item not found")
	}

	totals, err := o.totalsWith(candidate, o.GlobalDiscount, o.Tax)
	if err != nil {
		return err
	}

	o.Items = candidate
	o.applyTotals(totals)
	return nil
}

// SetGlobalDiscount changes the document-level discount on a draft order
func (o *SalesOrder) SetGlobalDiscount(discount valueobject.Discount) error {
	if err := o.ensureDraft(); err != nil {
		return err
	}
	totals, err := o.totalsWith(o.Items, discount, o.Tax)
	if err != nil {
		return err
	}
	o.GlobalDiscount = discount
	o.applyTotals(totals)
	return nil
}

// SetTax changes the tax configuration on a draft order. Every line's
// frozen tax rate is refreshed; freezing only takes effect once the order
// leaves draft.
func (o *SalesOrder) SetTax(tax valueobject.TaxConfig) error {
	if err := o.ensureDraft(); err != nil {
		return err
	}
	totals, err := o.totalsWith(o.Items, o.GlobalDiscount, tax)
	if err != nil {
		return err
	}
	o.Tax = tax
	for i := range o.Items {
		o.Items[i].TaxRate = tax.Rate
	}
	o.applyTotals(totals)
	return nil
}

// Confirm transitions the order from DRAFT to CONFIRMED
func (o *SalesOrder) Confirm() error {
	if !o.Status.CanTransitionTo(SalesOrderStatusConfirmed) {
		return shared.NewDomainError(shared.CodeInvalidTransition,
			fmt.Sprintf("cannot confirm order in status %s", o.Status))
	}
	o.Status = SalesOrderStatusConfirmed
	now := time.Now()
	o.ConfirmedAt = &now
	o.AddDomainEvent(NewSalesOrderConfirmedEvent(o))
	return nil
}

// Emit performs the fiscal emission. It is one-way: the order becomes
// FULFILLED, its totals freeze and only status and payment fields may
// change afterwards.
func (o *SalesOrder) Emit() error {
	if !o.Status.CanTransitionTo(SalesOrderStatusFulfilled) {
		return shared.NewDomainError(shared.CodeInvalidTransition,
			fmt.Sprintf("cannot emit order in status %s", o.Status))
	}
	if len(o.Items) == 0 {
		return shared.NewDomainError(shared.CodeInvalidInput, "cannot emit an order without items")
	}
	o.Status = SalesOrderStatusFulfilled
	now := time.Now()
	o.EmittedAt = &now
	o.AddDomainEvent(NewSalesOrderEmittedEvent(o))
	return nil
}

// Cancel transitions the order to CANCELLED. Orders with recorded
// payments must have the payments reversed first.
func (o *SalesOrder) Cancel(reason string) error {
	if !o.Status.CanTransitionTo(SalesOrderStatusCancelled) {
		return shared.NewDomainError(shared.CodeInvalidTransition,
			fmt.Sprintf("cannot cancel order in status %s", o.Status))
	}
	if len(o.Payments) > 0 {
		return shared.NewDomainError(shared.CodeInvalidTransition, "cannot cancel an order with recorded payments")
	}
	o.Status = SalesOrderStatusCancelled
	now := time.Now()
	o.CancelledAt = &now
	if reason != "" {
		o.Notes = reason
	}
	o.AddDomainEvent(NewSalesOrderCancelledEvent(o, reason))
	return nil
}

// RecordPayment appends a payment to the ledger and moves the derived
// paid amount and balance in the same mutation. Payments are only
// accepted once the order has left draft; a draft's total is still
// allowed to change and cannot anchor a ledger.
func (o *SalesOrder) RecordPayment(amount decimal.Decimal, method, reference, notes string) (Payment, error) {
	if o.IsDraft() || o.IsCancelled() {
		return Payment{}, shared.NewDomainError(shared.CodeInvalidTransition,
			fmt.Sprintf("cannot record a payment against an order in status %s", o.Status))
	}
	if !amount.IsPositive() {
		return Payment{}, shared.NewDomainError(shared.CodeInvalidAmount, "payment amount must be greater than zero")
	}
	amount = valueobject.Round(amount)
	if amount.GreaterThan(o.Balance) {
		return Payment{}, shared.NewDomainError(shared.CodeOverPayment,
			fmt.Sprintf("payment of %s exceeds outstanding balance of %s", amount, o.Balance))
	}

	payment := Payment{
		ID:        uuid.New(),
		Amount:    amount,
		Method:    method,
		Reference: reference,
		Notes:     notes,
		PaidAt:    time.Now(),
	}
	o.Payments = append(o.Payments, payment)
	o.PaidAmount = o.PaidAmount.Add(amount)
	o.Balance = o.TotalAmount.Sub(o.PaidAmount)
	o.AddDomainEvent(NewPaymentRecordedEvent(o, payment))
	return payment, nil
}

// DeletePayment reverses a ledger entry, restoring the paid amount and
// balance. A reversal that would drive the balance above the total or
// below zero indicates the ledger and the document disagree; it surfaces
// LEDGER_INCONSISTENCY instead of clamping.
func (o *SalesOrder) DeletePayment(paymentID uuid.UUID) (Payment, error) {
	idx := -1
	for i := range o.Payments {
		if o.Payments[i].ID == paymentID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Payment{}, shared.NewDomainError(shared.CodeNotFound, "payment not found")
	}

	payment := o.Payments[idx]
	newPaid := o.PaidAmount.Sub(payment.Amount)
	newBalance := o.TotalAmount.Sub(newPaid)
	if newPaid.IsNegative() || newBalance.IsNegative() || newBalance.GreaterThan(o.TotalAmount) {
		return Payment{}, shared.NewDomainError(shared.CodeLedgerInconsistency,
			"reversing this payment would leave the balance outside [0, total]")
	}

	o.Payments = append(o.Payments[:idx], o.Payments[idx+1:]...)
	o.PaidAmount = newPaid
	o.Balance = newBalance
	o.AddDomainEvent(NewPaymentDeletedEvent(o, payment))
	return payment, nil
}

// FindItem returns the line with the given id
func (o *SalesOrder) FindItem(itemID uuid.UUID) (*SalesOrderItem, bool) {
	for i := range o.Items {
		if o.Items[i].ID == itemID {
			return &o.Items[i], true
		}
	}
	return nil, false
}
