package service

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/storefront-admin/internal/gateway"
	"github.com/mmeshcher/storefront-admin/internal/model"
)

// StartPaymentSync периодически сверяет статусы ожидающих оплат с платёжным шлюзом.
// Блокируется до отмены ctx. Без клиента шлюза возвращается сразу.
func (s *Service) StartPaymentSync(ctx context.Context) error {
	if s.gateway == nil {
		return nil
	}

	ticker := time.NewTicker(s.syncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.processPaymentBatch(ctx)
		}
	}
}

func (s *Service) processPaymentBatch(ctx context.Context) {
	pending, err := s.repo.GetPendingPayments(ctx, s.syncBatch)
	if err != nil {
		s.logger.Warn("load pending payments", zap.Error(err))
		return
	}

	for _, p := range pending {
		res, err := s.gateway.GetPayment(ctx, p.OrderID)
		if err != nil {
			s.logger.Debug("get payment status", zap.String("orderID", p.OrderID), zap.Error(err))
			continue
		}

		if res.StatusCode == http.StatusTooManyRequests {
			if res.RetryAfter > 0 {
				timer := time.NewTimer(res.RetryAfter)
				select {
				case <-ctx.Done():
					timer.Stop()
					return
				case <-timer.C:
				}
			}
			continue
		}

		if res.Payment == nil {
			continue
		}

		status, ok := paymentStatusOf(res.Payment.Status)
		if !ok {
			continue
		}

		if err := s.repo.UpdatePaymentStatus(ctx, p.OrderID, status); err != nil {
			s.logger.Warn("update payment status", zap.String("orderID", p.OrderID), zap.Error(err))
		}
	}
}

// paymentStatusOf переводит статус шлюза в статус оплаты заказа.
// Промежуточные статусы ничего не меняют.
func paymentStatusOf(gw string) (model.PaymentStatus, bool) {
	switch gw {
	case gateway.StatusSucceeded:
		return model.PaymentStatusPaid, true
	case gateway.StatusFailed, gateway.StatusCanceled:
		return model.PaymentStatusFailed, true
	default:
		return "", false
	}
}
