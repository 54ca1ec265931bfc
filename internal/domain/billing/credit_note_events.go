package billing

import (
	"github.com/shopspring/decimal"

	"github.com/facturado/backend/internal/domain/shared"
)

const (
	AggregateTypeCreditNote = "CreditNote"

	EventTypeCreditNoteCreated    = "billing.credit_note.created"
	EventTypeCreditNoteAuthorized = "billing.credit_note.authorized"
	EventTypeCreditNoteCancelled  = "billing.credit_note.cancelled"
)

// CreditNoteCreatedEvent is raised when a draft note is generated
type CreditNoteCreatedEvent struct {
	shared.BaseDomainEvent
	NoteNumber       string          `json:"note_number"`
	SalesOrderNumber string          `json:"sales_order_number"`
	RefundType       RefundType      `json:"refund_type"`
	Total            decimal.Decimal `json:"total"`
}

func NewCreditNoteCreatedEvent(note *CreditNote) *CreditNoteCreatedEvent {
	return &CreditNoteCreatedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeCreditNoteCreated, AggregateTypeCreditNote, note.ID, note.CompanyID),
		NoteNumber:       note.NoteNumber,
		SalesOrderNumber: note.SalesOrderNumber,
		RefundType:       note.RefundType,
		Total:            note.TotalAmount,
	}
}

// CreditNoteAuthorizedEvent is raised on fiscal authorization
type CreditNoteAuthorizedEvent struct {
	shared.BaseDomainEvent
	NoteNumber   string `json:"note_number"`
	FiscalNumber string `json:"fiscal_number"`
}

func NewCreditNoteAuthorizedEvent(note *CreditNote) *CreditNoteAuthorizedEvent {
	fiscalNumber := ""
	if note.FiscalNumber != nil {
		fiscalNumber = *note.FiscalNumber
	}
	return &CreditNoteAuthorizedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCreditNoteAuthorized, AggregateTypeCreditNote, note.ID, note.CompanyID),
		NoteNumber:      note.NoteNumber,
		FiscalNumber:    fiscalNumber,
	}
}

// CreditNoteCancelledEvent is raised when a draft note is cancelled
type CreditNoteCancelledEvent struct {
	shared.BaseDomainEvent
	NoteNumber string `json:"note_number"`
}

func NewCreditNoteCancelledEvent(note *CreditNote) *CreditNoteCancelledEvent {
	return &CreditNoteCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCreditNoteCancelled, AggregateTypeCreditNote, note.ID, note.CompanyID),
		NoteNumber:      note.NoteNumber,
	}
}
