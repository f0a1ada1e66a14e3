// Package handler содержит HTTP-обработчики API магазина и админ-панели.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/mmeshcher/storefront-admin/internal/insight"
	"github.com/mmeshcher/storefront-admin/internal/middleware"
	"github.com/mmeshcher/storefront-admin/internal/model"
	"github.com/mmeshcher/storefront-admin/internal/receipt"
	"github.com/mmeshcher/storefront-admin/internal/repository"
	"github.com/mmeshcher/storefront-admin/internal/service"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	RegisterCustomer(ctx context.Context, in service.RegisterInput) (*model.Customer, error)
	AuthenticateCustomer(ctx context.Context, email, password string) (string, error)

	ListProducts(ctx context.Context, category string) ([]model.Product, error)
	GetProduct(ctx context.Context, id string) (*model.Product, error)
	ListCategories(ctx context.Context) ([]model.Category, error)
	Checkout(ctx context.Context, customerID string, in service.CheckoutInput) (*model.Order, error)
	GuestCheckout(ctx context.Context, email string, in service.CheckoutInput) (*model.Order, error)
	OrdersForCustomer(ctx context.Context, customerID string) ([]model.Order, error)
	CancelOrder(ctx context.Context, customerID, orderID string) (*model.Order, error)
	Receipt(ctx context.Context, customerID, orderID string) ([]byte, error)

	Dashboard(ctx context.Context) (*model.Dashboard, error)
	ListCustomerInsights(ctx context.Context, f insight.Filter) ([]model.CustomerInsight, error)
	CustomerDetail(ctx context.Context, id string) (*service.CustomerDetail, error)
	SetCustomerBlocked(ctx context.Context, id string, blocked bool) error
	ListOrders(ctx context.Context, status string) ([]model.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, status model.OrderStatus) (*model.Order, error)
	ListAllProducts(ctx context.Context, category string) ([]model.Product, error)
	CreateProduct(ctx context.Context, in service.ProductInput) (*model.Product, error)
	UpdateProduct(ctx context.Context, id string, in service.ProductInput) (*model.Product, error)
	DeleteProduct(ctx context.Context, id string) error

	CreateCategory(ctx context.Context, in service.CategoryInput) (*model.Category, error)
	UpdateCategory(ctx context.Context, slug string, in service.CategoryInput) (*model.Category, error)
	DeleteCategory(ctx context.Context, slug string) error

	ListEmails(ctx context.Context, status string) ([]model.EmailRecord, error)
	GetEmail(ctx context.Context, id string) (*model.EmailRecord, error)
	ComposeEmail(ctx context.Context, in service.EmailInput) (*model.EmailRecord, error)
	UpdateEmailStatus(ctx context.Context, id string, status model.EmailStatus, errMsg string) (*model.EmailRecord, error)
	DeleteEmail(ctx context.Context, id string) error
}

// Handler реализует HTTP-обработчики магазина и админ-панели.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
	adminAuth      *middleware.AdminAuth
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware, admin *middleware.AdminAuth) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
		adminAuth:      admin,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int) {
	http.Error(w, http.StatusText(code), code)
}

// statusFor сопоставляет ошибку бизнес-логики коду ответа. Ноль означает
// непредвиденную ошибку.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrCustomerBlocked):
		return http.StatusForbidden
	case errors.Is(err, repository.ErrCustomerNotFound),
		errors.Is(err, repository.ErrOrderNotFound),
		errors.Is(err, repository.ErrProductNotFound),
		errors.Is(err, repository.ErrCategoryNotFound),
		errors.Is(err, repository.ErrEmailNotFound):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrCustomerExists),
		errors.Is(err, repository.ErrOutOfStock),
		errors.Is(err, repository.ErrOrderCancelled),
		errors.Is(err, repository.ErrCategoryExists),
		errors.Is(err, repository.ErrCategoryInUse),
		errors.Is(err, service.ErrOrderNotCancellable),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrInvalidEmailTransition):
		return http.StatusConflict
	case errors.Is(err, receipt.ErrDisabled):
		return http.StatusServiceUnavailable
	}
	return 0
}

// fail отвечает кодом, соответствующим ошибке, и логирует непредвиденные ошибки.
func (h *Handler) fail(w http.ResponseWriter, err error, msg string, fields ...zap.Field) {
	if code := statusFor(err); code != 0 {
		httpError(w, code)
		return
	}
	h.logger.Error(msg, append(fields, zap.Error(err))...)
	httpError(w, http.StatusInternalServerError)
}

func (h *Handler) currentCustomer(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := middleware.GetCustomerIDFromContext(r.Context())
	if !ok {
		httpError(w, http.StatusUnauthorized)
	}
	return id, ok
}
