package billing

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facturado/backend/internal/domain/shared"
	"github.com/facturado/backend/internal/domain/shared/valueobject"
)

func createDraftNote(t *testing.T, order *SalesOrder, refundType RefundType, returns []ReturnLine) *CreditNote {
	t.Helper()
	note, err := NewCreditNoteFromOrder(order, refundType, returns, "defective goods", decimal.Zero)
	require.NoError(t, err)
	return note
}

// ==================== Proration engine ====================

func TestNewCreditNoteFromOrder_Full(t *testing.T) {
	order := createEmittedOrder(t)
	note := createDraftNote(t, order, RefundTypeFull, nil)

	// a full note reproduces the order's own figures exactly
	assert.Equal(t, order.Totals(), note.Totals())
	assert.True(t, note.TotalAmount.Equal(d("914.85")))
	assert.Equal(t, CreditNoteStatusDraft, note.Status)
	assert.Equal(t, order.ID, note.SalesOrderID)
	assert.Equal(t, order.CompanyID, note.CompanyID)
	require.Len(t, note.Items, 1)
	assert.True(t, note.Items[0].Quantity.Equal(d("10")))
	assert.True(t, note.Items[0].TaxRate.Equal(d("7")))
}

func TestNewCreditNoteFromOrder_Partial(t *testing.T) {
	order := createEmittedOrder(t)
	note := createDraftNote(t, order, RefundTypePartial, []ReturnLine{
		{OriginalItemID: order.Items[0].ID, Quantity: d("4")},
	})

	// returning 4 of 10 units: line discount 40, net 360, global 18
	require.Len(t, note.Items, 1)
	assert.True(t, note.Items[0].Gross.Equal(d("400")))
	assert.True(t, note.Items[0].DiscountAmount.Equal(d("40")))
	assert.True(t, note.Items[0].Net.Equal(d("360")))
	assert.True(t, note.GlobalDiscountAmount.Equal(d("18")))
	assert.True(t, note.TaxableBase.Equal(d("342")))
	assert.True(t, note.TaxAmount.Equal(d("23.94")))
	assert.True(t, note.TotalAmount.Equal(d("365.94")))
	assert.True(t, note.TotalAmount.LessThanOrEqual(order.TotalAmount))
}

func TestNewCreditNoteFromOrder_Validation(t *testing.T) {
	t.Run("reason is mandatory", func(t *testing.T) {
		order := createEmittedOrder(t)
		_, err := NewCreditNoteFromOrder(order, RefundTypeFull, nil, "", decimal.Zero)
		assertCode(t, err, shared.CodeInvalidInput)
	})

	t.Run("returned quantity above original rejected", func(t *testing.T) {
		order := createEmittedOrder(t)
		_, err := NewCreditNoteFromOrder(order, RefundTypePartial, []ReturnLine{
			{OriginalItemID: order.Items[0].ID, Quantity: d("11")},
		}, "too many", decimal.Zero)
		assertCode(t, err, shared.CodeExceedsOriginal)
	})

	t.Run("negative returned quantity rejected", func(t *testing.T) {
		order := createEmittedOrder(t)
		_, err := NewCreditNoteFromOrder(order, RefundTypePartial, []ReturnLine{
			{OriginalItemID: order.Items[0].ID, Quantity: d("-1")},
		}, "negative", decimal.Zero)
		assertCode(t, err, shared.CodeExceedsOriginal)
	})

	t.Run("unknown original item rejected", func(t *testing.T) {
		order := createEmittedOrder(t)
		_, err := NewCreditNoteFromOrder(order, RefundTypePartial, []ReturnLine{
			{OriginalItemID: uuid.New(), Quantity: d("1")},
		}, "wrong line", decimal.Zero)
		assertCode(t, err, shared.CodeNotFound)
	})

	t.Run("duplicate return line rejected", func(t *testing.T) {
		order := createEmittedOrder(t)
		_, err := NewCreditNoteFromOrder(order, RefundTypePartial, []ReturnLine{
			{OriginalItemID: order.Items[0].ID, Quantity: d("2")},
			{OriginalItemID: order.Items[0].ID, Quantity: d("3")},
		}, "same line twice", decimal.Zero)
		assertCode(t, err, shared.CodeInvalidInput)
	})

	t.Run("all-zero return rejected", func(t *testing.T) {
		order := createEmittedOrder(t)
		_, err := NewCreditNoteFromOrder(order, RefundTypePartial, []ReturnLine{
			{OriginalItemID: order.Items[0].ID, Quantity: d("0")},
		}, "nothing returned", decimal.Zero)
		assertCode(t, err, shared.CodeInvalidInput)
	})

	t.Run("draft order cannot be credited", func(t *testing.T) {
		order := createTestOrder(t)
		_, err := NewCreditNoteFromOrder(order, RefundTypeFull, nil, "too early", decimal.Zero)
		assertCode(t, err, shared.CodeInvalidTransition)
	})

	t.Run("cancelled order cannot be credited", func(t *testing.T) {
		order := createTestOrder(t)
		require.NoError(t, order.Cancel(""))
		_, err := NewCreditNoteFromOrder(order, RefundTypeFull, nil, "gone", decimal.Zero)
		assertCode(t, err, shared.CodeInvalidTransition)
	})
}

func TestNewCreditNoteFromOrder_RefundCeiling(t *testing.T) {
	t.Run("prior credits lower the ceiling", func(t *testing.T) {
		order := createEmittedOrder(t)
		// a prior partial note already credited 365.94
		_, err := NewCreditNoteFromOrder(order, RefundTypeFull, nil, "full after partial", d("365.94"))
		assertCode(t, err, shared.CodeRefundExceedsTotal)
	})

	t.Run("note fitting the remainder accepted", func(t *testing.T) {
		order := createEmittedOrder(t)
		note, err := NewCreditNoteFromOrder(order, RefundTypePartial, []ReturnLine{
			{OriginalItemID: order.Items[0].ID, Quantity: d("4")},
		}, "second return", d("365.94"))
		require.NoError(t, err)
		assert.True(t, note.TotalAmount.Add(d("365.94")).LessThanOrEqual(order.TotalAmount))
	})
}

func TestNewCreditNoteFromOrder_ProrationRounding(t *testing.T) {
	// a flat 10.00 discount over 3 units does not divide evenly; the
	// proration rounds once per line, so a full return still reproduces
	// the original discount exactly
	order, err := NewSalesOrder(uuid.New(), uuid.New(), "Acme Ltda", time.Now())
	require.NoError(t, err)
	require.NoError(t, order.AddItem(nil, "Widget", d("3"), d("25"), valueobject.NewAmountDiscount(d("10"))))
	require.NoError(t, order.Emit())

	t.Run("partial return rounds the prorated discount", func(t *testing.T) {
		note := createDraftNote(t, order, RefundTypePartial, []ReturnLine{
			{OriginalItemID: order.Items[0].ID, Quantity: d("1")},
		})
		// 10 * 1/3 rounded half-up
		assert.True(t, note.Items[0].DiscountAmount.Equal(d("3.33")))
	})

	t.Run("full return reproduces the order", func(t *testing.T) {
		note := createDraftNote(t, order, RefundTypeFull, nil)
		assert.Equal(t, order.Totals(), note.Totals())
	})
}

// ==================== Lifecycle ====================

func TestCreditNote_Lifecycle(t *testing.T) {
	newNote := func(t *testing.T) *CreditNote {
		t.Helper()
		return createDraftNote(t, createEmittedOrder(t), RefundTypeFull, nil)
	}

	t.Run("authorize assigns fiscal identifiers", func(t *testing.T) {
		note := newNote(t)
		require.NoError(t, note.Authorize("NC-2026-00001", "cufe-abc123"))
		assert.Equal(t, CreditNoteStatusAuthorized, note.Status)
		require.NotNil(t, note.FiscalNumber)
		assert.Equal(t, "NC-2026-00001", *note.FiscalNumber)
		require.NotNil(t, note.FiscalCufe)
		assert.NotNil(t, note.AuthorizedAt)
	})

	t.Run("authorize is one-way", func(t *testing.T) {
		note := newNote(t)
		require.NoError(t, note.Authorize("NC-2026-00001", "cufe-abc123"))
		assertCode(t, note.Authorize("NC-2026-00002", "cufe-def456"), shared.CodeInvalidTransition)
		assertCode(t, note.Cancel(), shared.CodeInvalidTransition)
		assert.False(t, note.CanBeDeleted())
	})

	t.Run("authorize requires identifiers", func(t *testing.T) {
		note := newNote(t)
		assertCode(t, note.Authorize("", ""), shared.CodeInvalidInput)
		assert.Equal(t, CreditNoteStatusDraft, note.Status)
	})

	t.Run("cancel is terminal", func(t *testing.T) {
		note := newNote(t)
		require.NoError(t, note.Cancel())
		assert.Equal(t, CreditNoteStatusCancelled, note.Status)
		assertCode(t, note.Authorize("NC-2026-00001", "cufe"), shared.CodeInvalidTransition)
		assert.False(t, note.CanBeDeleted())
	})

	t.Run("only drafts are deletable", func(t *testing.T) {
		note := newNote(t)
		assert.True(t, note.CanBeDeleted())
	})
}

// ==================== Snapshot storage ====================

func TestCreditNoteItems_Roundtrip(t *testing.T) {
	order := createEmittedOrder(t)
	note := createDraftNote(t, order, RefundTypeFull, nil)

	value, err := note.Items.Value()
	require.NoError(t, err)

	var restored CreditNoteItems
	require.NoError(t, restored.Scan(value))
	require.Len(t, restored, 1)
	assert.Equal(t, note.Items[0].OriginalItemID, restored[0].OriginalItemID)
	assert.True(t, restored[0].Net.Equal(note.Items[0].Net))
	assert.True(t, restored[0].TaxRate.Equal(note.Items[0].TaxRate))
}
