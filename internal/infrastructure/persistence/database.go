package persistence

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/facturado/backend/internal/domain/billing"
	"github.com/facturado/backend/internal/domain/shared"
	"github.com/facturado/backend/internal/infrastructure/config"
)

// Database holds the database connection and implements shared.TxManager.
// Transactions are carried in the context so repository calls made inside
// WithinTransaction share one transaction without the repositories knowing
// about each other.
type Database struct {
	DB *gorm.DB
}

var _ shared.TxManager = (*Database)(nil)

// NewDatabase creates a new database connection with the given configuration
func NewDatabase(cfg *config.DatabaseConfig) (*Database, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Database{DB: db}, nil
}

// NewDatabaseFromGorm wraps an existing gorm connection (tests)
func NewDatabaseFromGorm(db *gorm.DB) *Database {
	return &Database{DB: db}
}

// Close closes the database connection
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// Ping checks if the database connection is alive
func (d *Database) Ping() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Ping()
}

// Migrate creates or updates the billing schema. Document numbers are
// unique per company, not globally; the composite indexes cannot be
// expressed as a tag on the embedded company column, so they are created
// here.
func (d *Database) Migrate() error {
	if err := d.DB.AutoMigrate(
		&billing.SalesOrder{},
		&billing.SalesOrderItem{},
		&billing.CreditNote{},
	); err != nil {
		return err
	}

	for _, stmt := range []string{
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_sales_orders_company_number ON sales_orders (company_id, order_number)",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_credit_notes_company_number ON credit_notes (company_id, note_number)",
	} {
		if err := d.DB.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

type txKey struct{}

// WithinTransaction implements shared.TxManager. Nested calls join the
// surrounding transaction instead of opening a new one.
func (d *Database) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok && tx != nil {
		return fn(ctx)
	}
	return d.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// conn returns the transaction bound to the context, or the base
// connection when no transaction is open
func (d *Database) conn(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return d.DB.WithContext(ctx)
}
