package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/storefront-admin/internal/model"
	"github.com/mmeshcher/storefront-admin/internal/validation"
)

// ErrInvalidEmailTransition возвращается при недопустимой смене статуса письма.
var ErrInvalidEmailTransition = errors.New("invalid email status transition")

// EmailInput содержит письмо, составленное администратором.
type EmailInput struct {
	Recipient string
	Subject   string
	Body      string
}

// queueOrderEmail ставит в журнал письмо о заказе. Ошибка журнала не отменяет
// сам заказ и только логируется.
func (s *Service) queueOrderEmail(ctx context.Context, o model.Order, kind model.EmailKind) {
	if o.ContactEmail == "" {
		return
	}

	subject := fmt.Sprintf("Order %s is %s", o.ID, o.Status)
	body := fmt.Sprintf("Your order %s is now %s.", o.ID, o.Status)
	if kind == model.EmailOrderPlaced {
		subject = fmt.Sprintf("Order %s placed", o.ID)
		body = fmt.Sprintf("Thank you for your order %s. Total: %.2f.", o.ID, o.Total())
	}

	e := model.EmailRecord{
		ID:        uuid.NewString(),
		Recipient: o.ContactEmail,
		Subject:   subject,
		Body:      body,
		Kind:      kind,
		Status:    model.EmailQueued,
		OrderID:   o.ID,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.CreateEmail(ctx, e); err != nil {
		s.logger.Warn("failed to queue order email",
			zap.String("orderID", o.ID), zap.String("kind", string(kind)), zap.Error(err))
	}
}

// ListEmails возвращает журнал писем, при непустом status только письма с этим статусом.
func (s *Service) ListEmails(ctx context.Context, status string) ([]model.EmailRecord, error) {
	st := model.EmailStatus(strings.ToLower(strings.TrimSpace(status)))
	if st != "" && !validation.IsKnownEmailStatus(st) {
		return nil, fmt.Errorf("%w: email status", ErrInvalidInput)
	}
	return s.repo.ListEmails(ctx, st)
}

// GetEmail возвращает письмо из журнала.
func (s *Service) GetEmail(ctx context.Context, id string) (*model.EmailRecord, error) {
	return s.repo.GetEmail(ctx, id)
}

// ComposeEmail ставит в очередь письмо, составленное администратором.
func (s *Service) ComposeEmail(ctx context.Context, in EmailInput) (*model.EmailRecord, error) {
	recipient := strings.TrimSpace(in.Recipient)
	if !validation.IsValidEmail(recipient) {
		return nil, fmt.Errorf("%w: recipient", ErrInvalidInput)
	}
	subject := strings.TrimSpace(in.Subject)
	if subject == "" {
		return nil, fmt.Errorf("%w: subject", ErrInvalidInput)
	}

	e := model.EmailRecord{
		ID:        uuid.NewString(),
		Recipient: recipient,
		Subject:   subject,
		Body:      in.Body,
		Kind:      model.EmailManual,
		Status:    model.EmailQueued,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.CreateEmail(ctx, e); err != nil {
		return nil, err
	}
	return &e, nil
}

// UpdateEmailStatus фиксирует результат отправки письма внешним сервисом
// или возвращает неотправленное письмо в очередь.
func (s *Service) UpdateEmailStatus(ctx context.Context, id string, status model.EmailStatus, errMsg string) (*model.EmailRecord, error) {
	e, err := s.repo.GetEmail(ctx, id)
	if err != nil {
		return nil, err
	}

	if !validation.CanTransitionEmail(e.Status, status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidEmailTransition, e.Status, status)
	}

	var sentAt *time.Time
	errMsg = strings.TrimSpace(errMsg)
	switch status {
	case model.EmailSent:
		now := s.now().UTC()
		sentAt = &now
		errMsg = ""
	case model.EmailFailed:
		if errMsg == "" {
			errMsg = "delivery failed"
		}
	default:
		errMsg = ""
	}

	if err := s.repo.UpdateEmailStatus(ctx, id, status, errMsg, sentAt); err != nil {
		return nil, err
	}

	e.Status = status
	e.Error = errMsg
	e.SentAt = sentAt
	return e, nil
}

// DeleteEmail удаляет письмо из журнала.
func (s *Service) DeleteEmail(ctx context.Context, id string) error {
	return s.repo.DeleteEmail(ctx, id)
}
