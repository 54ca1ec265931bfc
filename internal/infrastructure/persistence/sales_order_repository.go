package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/facturado/backend/internal/domain/billing"
	"github.com/facturado/backend/internal/domain/shared"
)

// GormSalesOrderRepository implements billing.SalesOrderRepository using GORM
type GormSalesOrderRepository struct {
	db *Database
}

// NewGormSalesOrderRepository creates a new GormSalesOrderRepository
func NewGormSalesOrderRepository(db *Database) *GormSalesOrderRepository {
	return &GormSalesOrderRepository{db: db}
}

// FindByID finds a sales order with its items within a company
func (r *GormSalesOrderRepository) FindByID(ctx context.Context, companyID, id uuid.UUID) (*billing.SalesOrder, error) {
	var order billing.SalesOrder
	if err := r.db.conn(ctx).
		Preload("Items").
		Where("company_id = ? AND id = ?", companyID, id).
		First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

// Save creates or updates a sales order together with its items
func (r *GormSalesOrderRepository) Save(ctx context.Context, order *billing.SalesOrder) error {
	return r.db.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Items").Save(order).Error; err != nil {
			return err
		}
		return r.reconcileItems(tx, order)
	})
}

// SaveWithLock saves with optimistic locking (version check)
func (r *GormSalesOrderRepository) SaveWithLock(ctx context.Context, order *billing.SalesOrder) error {
	return r.db.conn(ctx).Transaction(func(tx *gorm.DB) error {
		var stored struct{ Version int }
		if err := tx.Model(&billing.SalesOrder{}).
			Where("id = ?", order.ID).
			Select("version").
			Take(&stored).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return shared.ErrNotFound
			}
			return err
		}
		currentVersion := stored.Version

		if currentVersion != order.Version {
			return shared.ErrConcurrencyConflict
		}

		order.IncrementVersion()
		order.Touch()

		result := tx.Model(&billing.SalesOrder{}).
			Where("id = ? AND version = ?", order.ID, currentVersion).
			Updates(map[string]interface{}{
				"customer_id":            order.CustomerID,
				"customer_name":          order.CustomerName,
				"issue_date":             order.IssueDate,
				"status":                 order.Status,
				"global_discount_type":   order.GlobalDiscount.Type,
				"global_discount_value":  order.GlobalDiscount.Value,
				"tax_enabled":            order.Tax.Enabled,
				"tax_rate":               order.Tax.Rate,
				"subtotal":               order.Subtotal,
				"line_discount_total":    order.LineDiscountTotal,
				"net_items_total":        order.NetItemsTotal,
				"global_discount_amount": order.GlobalDiscountAmount,
				"taxable_base":           order.TaxableBase,
				"tax_amount":             order.TaxAmount,
				"total_amount":           order.TotalAmount,
				"payments":               order.Payments,
				"paid_amount":            order.PaidAmount,
				"balance":                order.Balance,
				"notes":                  order.Notes,
				"confirmed_at":           order.ConfirmedAt,
				"emitted_at":             order.EmittedAt,
				"cancelled_at":           order.CancelledAt,
				"version":                order.Version,
				"updated_at":             order.UpdatedAt,
			})

		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}

		return r.reconcileItems(tx, order)
	})
}

// reconcileItems deletes removed items and saves the current ones
func (r *GormSalesOrderRepository) reconcileItems(tx *gorm.DB, order *billing.SalesOrder) error {
	if order.ID == uuid.Nil {
		return nil
	}

	currentItemIDs := make([]uuid.UUID, len(order.Items))
	for i, item := range order.Items {
		currentItemIDs[i] = item.ID
	}

	if len(currentItemIDs) > 0 {
		if err := tx.Where("sales_order_id = ? AND id NOT IN ?", order.ID, currentItemIDs).
			Delete(&billing.SalesOrderItem{}).Error; err != nil {
			return err
		}
	} else {
		if err := tx.Where("sales_order_id = ?", order.ID).
			Delete(&billing.SalesOrderItem{}).Error; err != nil {
			return err
		}
	}

	for i := range order.Items {
		order.Items[i].SalesOrderID = order.ID
		if err := tx.Save(&order.Items[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

// List returns a page of sales orders matching the filter
func (r *GormSalesOrderRepository) List(ctx context.Context, companyID uuid.UUID, filter shared.Filter) (*shared.Paginated[billing.SalesOrder], error) {
	base := r.db.conn(ctx).Model(&billing.SalesOrder{}).Where("company_id = ?", companyID)

	var total int64
	if err := r.applyFilterWithoutPagination(base.Session(&gorm.Session{}), filter).
		Count(&total).Error; err != nil {
		return nil, err
	}

	var orders []billing.SalesOrder
	if err := r.applyFilter(base.Session(&gorm.Session{}), filter).
		Preload("Items").
		Find(&orders).Error; err != nil {
		return nil, err
	}

	page := shared.NewPaginated(orders, total, filter.Page, filter.PageSize)
	return &page, nil
}

// Delete deletes a sales order and its items
func (r *GormSalesOrderRepository) Delete(ctx context.Context, companyID, id uuid.UUID) error {
	return r.db.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("sales_order_id = ?", id).
			Delete(&billing.SalesOrderItem{}).Error; err != nil {
			return err
		}

		result := tx.Delete(&billing.SalesOrder{}, "company_id = ? AND id = ?", companyID, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// NextOrderNumber allocates the next number in the company's order series.
// Format: INV-YYYY-NNNNN (e.g., INV-2026-00001)
func (r *GormSalesOrderRepository) NextOrderNumber(ctx context.Context, companyID uuid.UUID) (string, error) {
	year := time.Now().Year()
	prefix := fmt.Sprintf("INV-%d-", year)

	var lastOrder billing.SalesOrder
	err := r.db.conn(ctx).
		Model(&billing.SalesOrder{}).
		Where("company_id = ? AND order_number LIKE ?", companyID, prefix+"%").
		Order("order_number DESC").
		First(&lastOrder).Error

	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	nextNum := nextInSeries(lastOrder.OrderNumber)
	orderNumber := fmt.Sprintf("%s%05d", prefix, nextNum)

	// Walk forward past any collision left by a concurrent writer
	for i := 0; i < 100; i++ {
		taken, err := r.orderNumberExists(ctx, companyID, orderNumber)
		if err != nil {
			return "", err
		}
		if !taken {
			break
		}
		nextNum++
		orderNumber = fmt.Sprintf("%s%05d", prefix, nextNum)
	}

	return orderNumber, nil
}

func (r *GormSalesOrderRepository) orderNumberExists(ctx context.Context, companyID uuid.UUID, orderNumber string) (bool, error) {
	var count int64
	if err := r.db.conn(ctx).
		Model(&billing.SalesOrder{}).
		Where("company_id = ? AND order_number = ?", companyID, orderNumber).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// nextInSeries parses the sequence part of a PREFIX-YYYY-NNNNN number
// and returns the successor, or 1 when the series is empty
func nextInSeries(lastNumber string) int64 {
	if lastNumber == "" {
		return 1
	}
	parts := strings.Split(lastNumber, "-")
	if len(parts) != 3 {
		return 1
	}
	var num int64
	if _, err := fmt.Sscanf(parts[2], "%d", &num); err != nil {
		return 1
	}
	return num + 1
}

// applyFilter applies filter options to the query
func (r *GormSalesOrderRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
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
func (r *GormSalesOrderRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("order_number ILIKE ? OR customer_name ILIKE ?",
			searchPattern, searchPattern)
	}

	for key, value := range filter.Filters {
		switch key {
		case "customer_id":
			query = query.Where("customer_id = ?", value)
		case "status":
			query = query.Where("status = ?", value)
		case "statuses":
			if statuses, ok := value.([]string); ok && len(statuses) > 0 {
				query = query.Where("status IN ?", statuses)
			}
		case "start_date":
			if t, ok := value.(time.Time); ok {
				query = query.Where("issue_date >= ?", t)
			}
		case "end_date":
			if t, ok := value.(time.Time); ok {
				query = query.Where("issue_date <= ?", t)
			}
		}
	}

	return query
}
