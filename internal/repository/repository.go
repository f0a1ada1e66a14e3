// Package repository содержит реализации хранилища магазина: PostgreSQL и локальный SQLite.
package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/mmeshcher/storefront-admin/internal/model"
)

// ErrCustomerExists возвращается при попытке зарегистрировать уже занятый e-mail.
var (
	ErrCustomerExists = errors.New("customer already exists")
	// ErrCustomerNotFound возвращается, если покупатель не найден.
	ErrCustomerNotFound = errors.New("customer not found")
	// ErrOrderNotFound возвращается, если заказ не найден.
	ErrOrderNotFound = errors.New("order not found")
	// ErrProductNotFound возвращается, если товар не найден.
	ErrProductNotFound = errors.New("product not found")
	// ErrOutOfStock возвращается, если на складе недостаточно товара для заказа.
	ErrOutOfStock = errors.New("product out of stock")
	// ErrOrderCancelled возвращается при смене статуса уже отменённого заказа.
	ErrOrderCancelled = errors.New("order already cancelled")
	// ErrCategoryNotFound возвращается, если категория не найдена.
	ErrCategoryNotFound = errors.New("category not found")
	// ErrCategoryExists возвращается при повторном создании категории с тем же slug.
	ErrCategoryExists = errors.New("category already exists")
	// ErrCategoryInUse возвращается при удалении категории, на которую ссылаются товары.
	ErrCategoryInUse = errors.New("category is used by products")
	// ErrEmailNotFound возвращается, если письмо не найдено.
	ErrEmailNotFound = errors.New("email not found")
)

// PendingPayment описывает заказ, ожидающий подтверждения оплаты от шлюза.
type PendingPayment struct {
	OrderID string
}

func toCents(v float64) int64 {
	return int64(math.Round(v * 100))
}

func fromCents(v *int64) *float64 {
	if v == nil {
		return nil
	}
	f := float64(*v) / 100
	return &f
}

func totalCents(o model.Order) *int64 {
	if o.TotalPrice == nil {
		return nil
	}
	c := toCents(*o.TotalPrice)
	return &c
}

func encodeItems(items []model.LineItem) ([]byte, error) {
	if items == nil {
		items = []model.LineItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("encode items: %w", err)
	}
	return data, nil
}

func decodeItems(data []byte) ([]model.LineItem, error) {
	var items []model.LineItem
	if len(data) == 0 {
		return items, nil
	}
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode items: %w", err)
	}
	return items, nil
}

// timestampFormat задаёт RFC 3339 с фиксированной длиной дробной части,
// чтобы строковая сортировка совпадала с хронологической.
const timestampFormat = "2006-01-02T15:04:05.000000000Z07:00"

func formatCreatedAt(t time.Time) string {
	return t.UTC().Format(timestampFormat)
}

func linkedCustomer(id, email *string) *model.CustomerRef {
	if id == nil {
		return nil
	}
	ref := &model.CustomerRef{ID: *id}
	if email != nil {
		ref.Email = *email
	}
	return ref
}

// isCancelled сравнивает статус без учёта регистра: старые записи хранят его в разном написании.
func isCancelled(status string) bool {
	return strings.EqualFold(status, string(model.OrderStatusCancelled))
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
