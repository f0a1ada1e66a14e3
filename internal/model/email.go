package model

import "time"

// EmailKind различает назначение письма.
type EmailKind string

const (
	EmailOrderPlaced EmailKind = "order_placed"
	EmailOrderStatus EmailKind = "order_status"
	EmailManual      EmailKind = "manual"
)

// EmailStatus описывает состояние отправки письма.
type EmailStatus string

const (
	EmailQueued EmailStatus = "queued"
	EmailSent   EmailStatus = "sent"
	EmailFailed EmailStatus = "failed"
)

// EmailRecord хранит транзакционное письмо магазина. Отправкой занимается
// внешний почтовый сервис, здесь только журнал и его состояние.
type EmailRecord struct {
	ID        string
	Recipient string
	Subject   string
	Body      string
	Kind      EmailKind
	Status    EmailStatus
	OrderID   string
	Error     string
	CreatedAt time.Time
	SentAt    *time.Time
}
