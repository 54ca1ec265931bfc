package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/facturado/backend/internal/domain/billing"
	"github.com/facturado/backend/internal/domain/shared"
)

// GormCreditNoteRepository implements billing.CreditNoteRepository using GORM
type GormCreditNoteRepository struct {
	db *Database
}

// NewGormCreditNoteRepository creates a new GormCreditNoteRepository
func NewGormCreditNoteRepository(db *Database) *GormCreditNoteRepository {
	return &GormCreditNoteRepository{db: db}
}

// FindByID finds a credit note within a company
func (r *GormCreditNoteRepository) FindByID(ctx context.Context, companyID, id uuid.UUID) (*billing.CreditNote, error) {
	var note billing.CreditNote
	if err := r.db.conn(ctx).
		Where("company_id = ? AND id = ?", companyID, id).
		First(&note).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &note, nil
}

// Save creates or updates a credit note
func (r *GormCreditNoteRepository) Save(ctx context.Context, note *billing.CreditNote) error {
	return r.db.conn(ctx).Save(note).Error
}

// SaveWithLock saves with optimistic locking (version check)
func (r *GormCreditNoteRepository) SaveWithLock(ctx context.Context, note *billing.CreditNote) error {
	return r.db.conn(ctx).Transaction(func(tx *gorm.DB) error {
		var stored struct{ Version int }
		if err := tx.Model(&billing.CreditNote{}).
			Where("id = ?", note.ID).
			Select("version").
			Take(&stored).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return shared.ErrNotFound
			}
			return err
		}
		currentVersion := stored.Version

		if currentVersion != note.Version {
			return shared.ErrConcurrencyConflict
		}

		note.IncrementVersion()
		note.Touch()

		result := tx.Model(&billing.CreditNote{}).
			Where("id = ? AND version = ?", note.ID, currentVersion).
			Updates(map[string]interface{}{
				"reason":        note.Reason,
				"status":        note.Status,
				"items":         note.Items,
				"fiscal_number": note.FiscalNumber,
				"fiscal_cufe":   note.FiscalCufe,
				"authorized_at": note.AuthorizedAt,
				"cancelled_at":  note.CancelledAt,
				"version":       note.Version,
				"updated_at":    note.UpdatedAt,
			})

		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}
		return nil
	})
}

// List returns a page of credit notes matching the filter
func (r *GormCreditNoteRepository) List(ctx context.Context, companyID uuid.UUID, filter shared.Filter) (*shared.Paginated[billing.CreditNote], error) {
	base := r.db.conn(ctx).Model(&billing.CreditNote{}).Where("company_id = ?", companyID)

	var total int64
	if err := r.applyFilterWithoutPagination(base.Session(&gorm.Session{}), filter).
		Count(&total).Error; err != nil {
		return nil, err
	}

	var notes []billing.CreditNote
	if err := r.applyFilter(base.Session(&gorm.Session{}), filter).
		Find(&notes).Error; err != nil {
		return nil, err
	}

	page := shared.NewPaginated(notes, total, filter.Page, filter.PageSize)
	return &page, nil
}

// ListBySalesOrder returns every credit note issued against one order
func (r *GormCreditNoteRepository) ListBySalesOrder(ctx context.Context, companyID, salesOrderID uuid.UUID) ([]billing.CreditNote, error) {
	var notes []billing.CreditNote
	if err := r.db.conn(ctx).
		Where("company_id = ? AND sales_order_id = ?", companyID, salesOrderID).
		Order("created_at ASC").
		Find(&notes).Error; err != nil {
		return nil, err
	}
	return notes, nil
}

// SumActiveTotalBySalesOrder sums the totals of the order's non-cancelled
// notes. Draft notes count so the refund ceiling holds while a note is
// still being prepared.
func (r *GormCreditNoteRepository) SumActiveTotalBySalesOrder(ctx context.Context, companyID, salesOrderID uuid.UUID) (decimal.Decimal, error) {
	var sum decimal.Decimal
	if err := r.db.conn(ctx).
		Model(&billing.CreditNote{}).
		Where("company_id = ? AND sales_order_id = ? AND status != ?",
			companyID, salesOrderID, billing.CreditNoteStatusCancelled).
		Select("COALESCE(SUM(total_amount), 0)").
		Scan(&sum).Error; err != nil {
		return decimal.Zero, err
	}
	return sum, nil
}

// CountBySalesOrder counts all notes against an order, cancelled included
func (r *GormCreditNoteRepository) CountBySalesOrder(ctx context.Context, companyID, salesOrderID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.conn(ctx).
		Model(&billing.CreditNote{}).
		Where("company_id = ? AND sales_order_id = ?", companyID, salesOrderID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Delete deletes a credit note
func (r *GormCreditNoteRepository) Delete(ctx context.Context, companyID, id uuid.UUID) error {
	result := r.db.conn(ctx).Delete(&billing.CreditNote{}, "company_id = ? AND id = ?", companyID, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// NextNoteNumber allocates the next number in the company's credit note
// series. Format: CN-YYYY-NNNNN (e.g., CN-2026-00001)
func (r *GormCreditNoteRepository) NextNoteNumber(ctx context.Context, companyID uuid.UUID) (string, error) {
	year := time.Now().Year()
	prefix := fmt.Sprintf("CN-%d-", year)

	var lastNote billing.CreditNote
	err := r.db.conn(ctx).
		Model(&billing.CreditNote{}).
		Where("company_id = ? AND note_number LIKE ?", companyID, prefix+"%").
		Order("note_number DESC").
		First(&lastNote).Error

	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	nextNum := nextInSeries(lastNote.NoteNumber)
	noteNumber := fmt.Sprintf("%s%05d", prefix, nextNum)

	for i := 0; i < 100; i++ {
		taken, err := r.noteNumberExists(ctx, companyID, noteNumber)
		if err != nil {
			return "", err
		}
		if !taken {
			break
		}
		nextNum++
		noteNumber = fmt.Sprintf("%s%05d", prefix, nextNum)
	}

	return noteNumber, nil
}

func (r *GormCreditNoteRepository) noteNumberExists(ctx context.Context, companyID uuid.UUID, noteNumber string) (bool, error) {
	var count int64
	if err := r.db.conn(ctx).
		Model(&billing.CreditNote{}).
		Where("company_id = ? AND note_number = ?", companyID, noteNumber).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// applyFilter applies filter options to the query
func (r *GormCreditNoteRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	if filter.OrderBy != "" {
		orderDir := "ASC"
		if strings.ToLower(filter.OrderDir) == "desc" {
			orderDir = "DESC"
		}
		query = query.Order(filter.OrderBy + " " + orderDir)
	} else {
		query = query.Order("created_at DESC")
	}

	return query
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormCreditNoteRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("note_number ILIKE ? OR sales_order_number ILIKE ? OR customer_name ILIKE ?",
			searchPattern, searchPattern, searchPattern)
	}

	for key, value := range filter.Filters {
		switch key {
		case "sales_order_id":
			query = query.Where("sales_order_id = ?", value)
		case "customer_id":
			query = query.Where("customer_id = ?", value)
		case "status":
			query = query.Where("status = ?", value)
		}
	}

	return query
}
