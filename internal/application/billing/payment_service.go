package billing

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/facturado/backend/internal/domain/billing"
	"github.com/facturado/backend/internal/domain/shared"
)

// PaymentService mutates the payment ledger of sales orders. Every
// operation is a single atomic read-modify-write: the order is loaded,
// the ledger and derived balance move together, and the save carries an
// optimistic version check so concurrent mutations of the same document
// cannot interleave.
type PaymentService struct {
	orderRepo billing.SalesOrderRepository
	tx        shared.TxManager
	logger    *zap.Logger
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(orderRepo billing.SalesOrderRepository, tx shared.TxManager, logger *zap.Logger) *PaymentService {
	return &PaymentService{
		orderRepo: orderRepo,
		tx:        tx,
		logger:    logger,
	}
}

// RecordPayment appends a payment against an order and returns the
// updated paid amount and balance
func (s *PaymentService) RecordPayment(ctx context.Context, companyID, orderID uuid.UUID, req RecordPaymentRequest) (*PaymentResultResponse, error) {
	var result *PaymentResultResponse
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		order, err := s.orderRepo.FindByID(ctx, companyID, orderID)
		if err != nil {
			return err
		}

		payment, err := order.RecordPayment(req.Amount, req.Method, req.Reference, req.Notes)
		if err != nil {
			return err
		}

		if err := s.orderRepo.SaveWithLock(ctx, order); err != nil {
			return err
		}

		paymentResp := toPaymentResponse(payment)
		result = &PaymentResultResponse{
			Payment:    &paymentResp,
			PaidAmount: order.PaidAmount,
			Balance:    order.Balance,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DeletePayment reverses a ledger entry and returns the restored paid
// amount and balance. A LEDGER_INCONSISTENCY failure is logged at error
// level; it means a stored document and its ledger disagree, which the
// atomicity guarantees should have made impossible.
func (s *PaymentService) DeletePayment(ctx context.Context, companyID, orderID, paymentID uuid.UUID) (*PaymentResultResponse, error) {
	var result *PaymentResultResponse
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		order, err := s.orderRepo.FindByID(ctx, companyID, orderID)
		if err != nil {
			return err
		}

		if _, err := order.DeletePayment(paymentID); err != nil {
			var domainErr *shared.DomainError
			if errors.As(err, &domainErr) && domainErr.Code == shared.CodeLedgerInconsistency {
				s.logger.Error("payment ledger inconsistency detected",
					zap.String("order_id", orderID.String()),
					zap.String("order_number", order.OrderNumber),
					zap.String("payment_id", paymentID.String()),
					zap.String("total", order.TotalAmount.String()),
					zap.String("paid_amount", order.PaidAmount.String()),
				)
			}
			return err
		}

		if err := s.orderRepo.SaveWithLock(ctx, order); err != nil {
			return err
		}

		result = &PaymentResultResponse{
			PaidAmount: order.PaidAmount,
			Balance:    order.Balance,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
