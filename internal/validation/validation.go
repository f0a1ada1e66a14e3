// Package validation содержит функции валидации входных данных.
package validation

import (
	"net/mail"
	"strings"
	"unicode"

	"github.com/mmeshcher/storefront-admin/internal/model"
)

// IsValidEmail проверяет, что строка является одиночным адресом без отображаемого имени.
func IsValidEmail(email string) bool {
	if email == "" || strings.TrimSpace(email) != email {
		return false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return false
	}
	return addr.Address == email && strings.Contains(email[strings.LastIndexByte(email, '@'):], ".")
}

// IsValidPhone допускает цифры, пробелы, дефисы, скобки и ведущий плюс; цифр от 5 до 15.
func IsValidPhone(phone string) bool {
	digits := 0
	for i, ch := range phone {
		switch {
		case unicode.IsDigit(ch):
			digits++
		case ch == '+' && i == 0:
		case ch == ' ' || ch == '-' || ch == '(' || ch == ')':
		default:
			return false
		}
	}
	return digits >= 5 && digits <= 15
}

// IsValidPaymentMethod проверяет, что способ оплаты поддерживается.
func IsValidPaymentMethod(m model.PaymentMethod) bool {
	switch m {
	case model.PaymentCashOnDelivery, model.PaymentCard, model.PaymentGateway:
		return true
	}
	return false
}

// nextStatus задаёт прямой порядок обработки заказа.
var nextStatus = map[model.OrderStatus]model.OrderStatus{
	model.OrderStatusPlaced:  model.OrderStatusPacked,
	model.OrderStatusPacked:  model.OrderStatusShipped,
	model.OrderStatusShipped: model.OrderStatusDelivered,
}

// CanTransition проверяет допустимость смены статуса заказа.
// Статус двигается только вперёд на один шаг; отменить можно любой
// незавершённый заказ.
func CanTransition(from, to model.OrderStatus) bool {
	if to == model.OrderStatusCancelled {
		return from != model.OrderStatusDelivered && from != model.OrderStatusCancelled
	}
	next, ok := nextStatus[from]
	return ok && next == to
}

// IsCustomerCancellable сообщает, может ли покупатель сам отменить заказ: только до отправки.
func IsCustomerCancellable(status model.OrderStatus) bool {
	return status == model.OrderStatusPlaced || status == model.OrderStatusPacked
}

// IsKnownOrderStatus проверяет, что статус входит в жизненный цикл заказа.
func IsKnownOrderStatus(status model.OrderStatus) bool {
	switch status {
	case model.OrderStatusPlaced, model.OrderStatusPacked, model.OrderStatusShipped,
		model.OrderStatusDelivered, model.OrderStatusCancelled:
		return true
	}
	return false
}

// IsKnownEmailStatus проверяет, что статус письма поддерживается.
func IsKnownEmailStatus(status model.EmailStatus) bool {
	switch status {
	case model.EmailQueued, model.EmailSent, model.EmailFailed:
		return true
	}
	return false
}

// CanTransitionEmail проверяет смену статуса письма: из очереди письмо
// уходит отправленным или неотправленным, неотправленное можно вернуть в очередь.
func CanTransitionEmail(from, to model.EmailStatus) bool {
	switch from {
	case model.EmailQueued:
		return to == model.EmailSent || to == model.EmailFailed
	case model.EmailFailed:
		return to == model.EmailQueued
	}
	return false
}
