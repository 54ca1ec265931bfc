package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/facturado/backend/internal/domain/billing"
	"github.com/facturado/backend/internal/domain/shared"
)

// newMockDatabase creates a Database backed by a mocked SQL connection
func newMockDatabase(t *testing.T) (*Database, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewDatabaseFromGorm(gormDB), mock, mockDB
}

func TestGormSalesOrderRepository_FindByID(t *testing.T) {
	t.Run("finds existing order with items", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()
		repo := NewGormSalesOrderRepository(db)

		orderID := uuid.New()
		companyID := uuid.New()

		orderRows := sqlmock.NewRows([]string{
			"id", "company_id", "order_number", "customer_id", "customer_name",
			"status", "total_amount", "paid_amount", "balance", "payments", "version",
		}).AddRow(
			orderID, companyID, "INV-2026-00001", uuid.New(), "Acme Ltda",
			"DRAFT", "914.85", "0", "914.85", "[]", 0,
		)
		mock.ExpectQuery(`SELECT \* FROM "sales_orders" WHERE company_id = \$1 AND id = \$2 ORDER BY .* LIMIT .*`).
			WithArgs(companyID, orderID, 1).
			WillReturnRows(orderRows)

		itemRows := sqlmock.NewRows([]string{
			"id", "sales_order_id", "description", "quantity", "unit_price",
			"gross", "discount_amount", "net",
		}).AddRow(
			uuid.New(), orderID, "Widget", "10", "100",
			"1000.00", "100.00", "900.00",
		)
		mock.ExpectQuery(`SELECT \* FROM "sales_order_items" WHERE "sales_order_items"\."sales_order_id" = \$1`).
			WithArgs(orderID).
			WillReturnRows(itemRows)

		order, err := repo.FindByID(context.Background(), companyID, orderID)

		require.NoError(t, err)
		assert.Equal(t, "INV-2026-00001", order.OrderNumber)
		assert.Len(t, order.Items, 1)
		assert.Equal(t, "914.85", order.TotalAmount.StringFixed(2))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns ErrNotFound for missing order", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()
		repo := NewGormSalesOrderRepository(db)

		companyID := uuid.New()
		orderID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "sales_orders" WHERE company_id = \$1 AND id = \$2 ORDER BY .* LIMIT .*`).
			WithArgs(companyID, orderID, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		order, err := repo.FindByID(context.Background(), companyID, orderID)

		assert.Nil(t, order)
		assert.Equal(t, shared.ErrNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormSalesOrderRepository_NextOrderNumber(t *testing.T) {
	year := time.Now().Year()

	t.Run("starts the company series at 00001", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()
		repo := NewGormSalesOrderRepository(db)

		companyID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "sales_orders" WHERE company_id = \$1 AND order_number LIKE \$2 ORDER BY order_number DESC.* LIMIT .*`).
			WithArgs(companyID, fmt.Sprintf("INV-%d-", year)+"%", 1).
			WillReturnError(gorm.ErrRecordNotFound)

		mock.ExpectQuery(`SELECT count\(\*\) FROM "sales_orders" WHERE company_id = \$1 AND order_number = \$2`).
			WithArgs(companyID, fmt.Sprintf("INV-%d-00001", year)).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		number, err := repo.NextOrderNumber(context.Background(), companyID)

		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("INV-%d-00001", year), number)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("each company numbers independently", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()
		repo := NewGormSalesOrderRepository(db)

		companyID := uuid.New()
		prefix := fmt.Sprintf("INV-%d-", year)

		lastRows := sqlmock.NewRows([]string{"id", "company_id", "order_number", "payments"}).
			AddRow(uuid.New(), companyID, prefix+"00007", "[]")
		mock.ExpectQuery(`SELECT \* FROM "sales_orders" WHERE company_id = \$1 AND order_number LIKE \$2 ORDER BY order_number DESC.* LIMIT .*`).
			WithArgs(companyID, prefix+"%", 1).
			WillReturnRows(lastRows)

		mock.ExpectQuery(`SELECT count\(\*\) FROM "sales_orders" WHERE company_id = \$1 AND order_number = \$2`).
			WithArgs(companyID, prefix+"00008").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		number, err := repo.NextOrderNumber(context.Background(), companyID)

		require.NoError(t, err)
		assert.Equal(t, prefix+"00008", number)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestNextInSeries(t *testing.T) {
	tests := []struct {
		name       string
		lastNumber string
		want       int64
	}{
		{"empty series", "", 1},
		{"continues sequence", "INV-2026-00041", 42},
		{"credit note series", "CN-2026-00006", 7},
		{"malformed number", "INVOICE41", 1},
		{"non-numeric sequence", "INV-2026-ABCDE", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, nextInSeries(tt.lastNumber))
		})
	}
}

func TestGormCreditNoteRepository_FindByID(t *testing.T) {
	t.Run("returns ErrNotFound for missing note", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()
		repo := NewGormCreditNoteRepository(db)

		companyID := uuid.New()
		noteID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "credit_notes" WHERE company_id = \$1 AND id = \$2 ORDER BY .* LIMIT .*`).
			WithArgs(companyID, noteID, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		note, err := repo.FindByID(context.Background(), companyID, noteID)

		assert.Nil(t, note)
		assert.Equal(t, shared.ErrNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormCreditNoteRepository_SumActiveTotalBySalesOrder(t *testing.T) {
	t.Run("sums non-cancelled note totals", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()
		repo := NewGormCreditNoteRepository(db)

		companyID := uuid.New()
		orderID := uuid.New()

		mock.ExpectQuery(`SELECT COALESCE\(SUM\(total_amount\), 0\) FROM "credit_notes" WHERE company_id = \$1 AND sales_order_id = \$2 AND status != \$3`).
			WithArgs(companyID, orderID, "CANCELLED").
			WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow("365.94"))

		sum, err := repo.SumActiveTotalBySalesOrder(context.Background(), companyID, orderID)

		require.NoError(t, err)
		assert.Equal(t, "365.94", sum.StringFixed(2))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSaveWithLock_MissingRow(t *testing.T) {
	t.Run("deleted order maps to ErrNotFound", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()
		repo := NewGormSalesOrderRepository(db)

		order := &billing.SalesOrder{}
		order.ID = uuid.New()
		order.Version = 1

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT .?version.? FROM "sales_orders" WHERE id = \$1 LIMIT .*`).
			WithArgs(order.ID, 1).
			WillReturnRows(sqlmock.NewRows([]string{"version"}))
		mock.ExpectRollback()

		err := repo.SaveWithLock(context.Background(), order)

		assert.Equal(t, shared.ErrNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("deleted note maps to ErrNotFound", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()
		repo := NewGormCreditNoteRepository(db)

		note := &billing.CreditNote{}
		note.ID = uuid.New()
		note.Version = 1

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT .?version.? FROM "credit_notes" WHERE id = \$1 LIMIT .*`).
			WithArgs(note.ID, 1).
			WillReturnRows(sqlmock.NewRows([]string{"version"}))
		mock.ExpectRollback()

		err := repo.SaveWithLock(context.Background(), note)

		assert.Equal(t, shared.ErrNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormCreditNoteRepository_Delete(t *testing.T) {
	t.Run("returns ErrNotFound when nothing was deleted", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()
		repo := NewGormCreditNoteRepository(db)

		companyID := uuid.New()
		noteID := uuid.New()

		mock.ExpectExec(`DELETE FROM "credit_notes" WHERE company_id = \$1 AND id = \$2`).
			WithArgs(companyID, noteID).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Delete(context.Background(), companyID, noteID)

		assert.Equal(t, shared.ErrNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
