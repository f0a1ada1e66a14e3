// Package service реализует бизнес-логику магазина и админ-панели.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmeshcher/storefront-admin/internal/gateway"
	"github.com/mmeshcher/storefront-admin/internal/insight"
	"github.com/mmeshcher/storefront-admin/internal/model"
	"github.com/mmeshcher/storefront-admin/internal/receipt"
	"github.com/mmeshcher/storefront-admin/internal/repository"
	"github.com/mmeshcher/storefront-admin/internal/validation"
)

var (
	// ErrInvalidCredentials возвращается при неверной паре e-mail/пароль.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrCustomerBlocked возвращается, если покупатель заблокирован администратором.
	ErrCustomerBlocked = errors.New("customer is blocked")
	// ErrInvalidInput возвращается при некорректных входных данных.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidTransition возвращается при недопустимой смене статуса заказа.
	ErrInvalidTransition = errors.New("invalid order status transition")
	// ErrOrderNotCancellable возвращается, если заказ уже нельзя отменить.
	ErrOrderNotCancellable = errors.New("order can not be cancelled")
)

// Repository описывает контракт доступа к данным, используемый сервисом.
// Реализуется PostgreSQL и локальным SQLite-хранилищем.
type Repository interface {
	Close() error

	CreateCustomer(ctx context.Context, c model.Customer) error
	GetCustomer(ctx context.Context, id string) (*model.Customer, error)
	GetCustomerByEmail(ctx context.Context, email string) (*model.Customer, error)
	ListCustomers(ctx context.Context) ([]model.Customer, error)
	SetCustomerBlocked(ctx context.Context, id string, blocked bool) error

	CreateOrder(ctx context.Context, o model.Order) error
	GetOrder(ctx context.Context, id string) (*model.Order, error)
	ListOrders(ctx context.Context) ([]model.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, status model.OrderStatus, at time.Time) error
	GetPendingPayments(ctx context.Context, limit int) ([]repository.PendingPayment, error)
	UpdatePaymentStatus(ctx context.Context, id string, status model.PaymentStatus) error

	ListProducts(ctx context.Context, category string, onlyActive bool) ([]model.Product, error)
	GetProduct(ctx context.Context, id string) (*model.Product, error)
	SaveProduct(ctx context.Context, p model.Product) error
	DeleteProduct(ctx context.Context, id string) error

	ListCategories(ctx context.Context) ([]model.Category, error)
	GetCategory(ctx context.Context, slug string) (*model.Category, error)
	CreateCategory(ctx context.Context, c model.Category) error
	UpdateCategory(ctx context.Context, c model.Category) error
	DeleteCategory(ctx context.Context, slug string) error

	CreateEmail(ctx context.Context, e model.EmailRecord) error
	GetEmail(ctx context.Context, id string) (*model.EmailRecord, error)
	ListEmails(ctx context.Context, status model.EmailStatus) ([]model.EmailRecord, error)
	UpdateEmailStatus(ctx context.Context, id string, status model.EmailStatus, errMsg string, sentAt *time.Time) error
	DeleteEmail(ctx context.Context, id string) error
}

// PaymentGateway запрашивает статус оплаты заказа у платёжного шлюза.
type PaymentGateway interface {
	GetPayment(ctx context.Context, orderID string) (gateway.Result, error)
}

// TierSource отдаёт актуальные пороги сегментации покупателей.
type TierSource interface {
	Thresholds() model.TierThresholds
}

// ReceiptRenderer печатает квитанции в PDF.
type ReceiptRenderer interface {
	Enabled() bool
	PDF(ctx context.Context, d receipt.Data) ([]byte, error)
}

type staticTiers model.TierThresholds

func (s staticTiers) Thresholds() model.TierThresholds { return model.TierThresholds(s) }

// Service содержит бизнес-логику магазина.
type Service struct {
	repo     Repository
	gateway  PaymentGateway
	tiers    TierSource
	receipts ReceiptRenderer
	logger   *zap.Logger

	now          func() time.Time
	syncInterval time.Duration
	syncBatch    int
}

// NewService создаёт сервис. gateway и receipts могут быть nil: тогда
// синхронизация оплат и печать квитанций отключены. При nil tiers
// используются пороги по умолчанию.
func NewService(repo Repository, gw PaymentGateway, tiers TierSource, receipts ReceiptRenderer, logger *zap.Logger) *Service {
	if tiers == nil {
		tiers = staticTiers(model.DefaultTierThresholds())
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		repo:         repo,
		gateway:      gw,
		tiers:        tiers,
		receipts:     receipts,
		logger:       logger,
		now:          time.Now,
		syncInterval: time.Second,
		syncBatch:    100,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

func (s *Service) rules() insight.Rules {
	return insight.Rules{Thresholds: s.tiers.Thresholds(), Now: s.now()}
}

// RegisterInput содержит данные регистрации покупателя.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Password  string
}

func (in RegisterInput) validate() error {
	if !validation.IsValidEmail(in.Email) {
		return fmt.Errorf("%w: email", ErrInvalidInput)
	}
	if in.Phone != "" && !validation.IsValidPhone(in.Phone) {
		return fmt.Errorf("%w: phone", ErrInvalidInput)
	}
	if len(in.Password) < 6 {
		return fmt.Errorf("%w: password is too short", ErrInvalidInput)
	}
	return nil
}

// RegisterCustomer регистрирует нового покупателя.
func (s *Service) RegisterCustomer(ctx context.Context, in RegisterInput) (*model.Customer, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	c := model.Customer{
		ID:           uuid.NewString(),
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Email:        in.Email,
		Phone:        in.Phone,
		PasswordHash: hash,
		RegisteredAt: &now,
	}

	if err := s.repo.CreateCustomer(ctx, c); err != nil {
		return nil, err
	}

	return &c, nil
}

// AuthenticateCustomer проверяет e-mail и пароль покупателя и возвращает его идентификатор.
func (s *Service) AuthenticateCustomer(ctx context.Context, email, password string) (string, error) {
	c, err := s.repo.GetCustomerByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrCustomerNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}

	if len(c.PasswordHash) == 0 || bcrypt.CompareHashAndPassword(c.PasswordHash, []byte(password)) != nil {
		return "", ErrInvalidCredentials
	}

	if c.Blocked {
		return "", ErrCustomerBlocked
	}

	return c.ID, nil
}
