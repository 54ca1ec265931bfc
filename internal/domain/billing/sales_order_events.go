package billing

import (
	"github.com/shopspring/decimal"

	"github.com/facturado/backend/internal/domain/shared"
)

const (
	AggregateTypeSalesOrder = "SalesOrder"

	EventTypeSalesOrderCreated   = "billing.sales_order.created"
	EventTypeSalesOrderConfirmed = "billing.sales_order.confirmed"
	EventTypeSalesOrderEmitted   = "billing.sales_order.emitted"
	EventTypeSalesOrderCancelled = "billing.sales_order.cancelled"
	EventTypePaymentRecorded     = "billing.sales_order.payment_recorded"
	EventTypePaymentDeleted      = "billing.sales_order.payment_deleted"
)

// SalesOrderCreatedEvent is raised when a draft order is created
type SalesOrderCreatedEvent struct {
	shared.BaseDomainEvent
	OrderNumber string `json:"order_number"`
}

func NewSalesOrderCreatedEvent(order *SalesOrder) *SalesOrderCreatedEvent {
	return &SalesOrderCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSalesOrderCreated, AggregateTypeSalesOrder, order.ID, order.CompanyID),
		OrderNumber:     order.OrderNumber,
	}
}

// SalesOrderConfirmedEvent is raised when a draft order is confirmed
type SalesOrderConfirmedEvent struct {
	shared.BaseDomainEvent
	OrderNumber string `json:"order_number"`
}

func NewSalesOrderConfirmedEvent(order *SalesOrder) *SalesOrderConfirmedEvent {
	return &SalesOrderConfirmedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSalesOrderConfirmed, AggregateTypeSalesOrder, order.ID, order.CompanyID),
		OrderNumber:     order.OrderNumber,
	}
}

// SalesOrderEmittedEvent is raised on fiscal emission, when totals freeze
type SalesOrderEmittedEvent struct {
	shared.BaseDomainEvent
	OrderNumber string          `json:"order_number"`
	Total       decimal.Decimal `json:"total"`
}

func NewSalesOrderEmittedEvent(order *SalesOrder) *SalesOrderEmittedEvent {
	return &SalesOrderEmittedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSalesOrderEmitted, AggregateTypeSalesOrder, order.ID, order.CompanyID),
		OrderNumber:     order.OrderNumber,
		Total:           order.TotalAmount,
	}
}

// SalesOrderCancelledEvent is raised when an order is cancelled
type SalesOrderCancelledEvent struct {
	shared.BaseDomainEvent
	OrderNumber string `json:"order_number"`
	Reason      string `json:"reason"`
}

func NewSalesOrderCancelledEvent(order *SalesOrder, reason string) *SalesOrderCancelledEvent {
	return &SalesOrderCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSalesOrderCancelled, AggregateTypeSalesOrder, order.ID, order.CompanyID),
		OrderNumber:     order.OrderNumber,
		Reason:          reason,
	}
}

// PaymentRecordedEvent is raised when a payment lands on the ledger
type PaymentRecordedEvent struct {
	shared.BaseDomainEvent
	OrderNumber string          `json:"order_number"`
	PaymentID   string          `json:"payment_id"`
	Amount      decimal.Decimal `json:"amount"`
	Balance     decimal.Decimal `json:"balance"`
}

func NewPaymentRecordedEvent(order *SalesOrder, payment Payment) *PaymentRecordedEvent {
	return &PaymentRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentRecorded, AggregateTypeSalesOrder, order.ID, order.CompanyID),
		OrderNumber:     order.OrderNumber,
		PaymentID:       payment.ID.String(),
		Amount:          payment.Amount,
		Balance:         order.Balance,
	}
}

// PaymentDeletedEvent is raised when a ledger entry is reversed
type PaymentDeletedEvent struct {
	shared.BaseDomainEvent
	OrderNumber string          `json:"order_number"`
	PaymentID   string          `json:"payment_id"`
	Amount      decimal.Decimal `json:"amount"`
	Balance     decimal.Decimal `json:"balance"`
}

func NewPaymentDeletedEvent(order *SalesOrder, payment Payment) *PaymentDeletedEvent {
	return &PaymentDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentDeleted, AggregateTypeSalesOrder, order.ID, order.CompanyID),
		OrderNumber:     order.OrderNumber,
		PaymentID:       payment.ID.String(),
		Amount:          payment.Amount,
		Balance:         order.Balance,
	}
}
