package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/storefront-admin/internal/insight"
	"github.com/mmeshcher/storefront-admin/internal/model"
	"github.com/mmeshcher/storefront-admin/internal/repository"
	"github.com/mmeshcher/storefront-admin/internal/validation"
)

// CustomerDetail содержит карточку покупателя для админ-панели.
type CustomerDetail struct {
	Insight model.CustomerInsight
	Orders  []model.Order
}

func (s *Service) loadCollections(ctx context.Context) ([]model.Customer, []model.Order, error) {
	customers, err := s.repo.ListCustomers(ctx)
	if err != nil {
		return nil, nil, err
	}

	orders, err := s.repo.ListOrders(ctx)
	if err != nil {
		return nil, nil, err
	}

	return customers, orders, nil
}

// Dashboard считает агрегаты главной страницы админ-панели.
func (s *Service) Dashboard(ctx context.Context) (*model.Dashboard, error) {
	customers, orders, err := s.loadCollections(ctx)
	if err != nil {
		return nil, err
	}

	d := insight.Summarize(customers, orders, s.rules())
	return &d, nil
}

// ListCustomerInsights возвращает покупателей со статистикой и сегментом, отобранных фильтром.
func (s *Service) ListCustomerInsights(ctx context.Context, f insight.Filter) ([]model.CustomerInsight, error) {
	customers, orders, err := s.loadCollections(ctx)
	if err != nil {
		return nil, err
	}

	return insight.FilterInsights(insight.Insights(customers, orders, s.rules()), f), nil
}

// CustomerDetail возвращает покупателя, его статистику, сегмент и историю заказов.
func (s *Service) CustomerDetail(ctx context.Context, id string) (*CustomerDetail, error) {
	customer, err := s.repo.GetCustomer(ctx, id)
	if err != nil {
		return nil, err
	}

	orders, err := s.repo.ListOrders(ctx)
	if err != nil {
		return nil, err
	}

	matched := insight.OrdersForCustomer(*customer, orders)

	return &CustomerDetail{
		Insight: insight.Insight(*customer, matched, s.rules()),
		Orders:  insight.RecentOrders(matched, len(matched)),
	}, nil
}

// SetCustomerBlocked блокирует или разблокирует покупателя.
func (s *Service) SetCustomerBlocked(ctx context.Context, id string, blocked bool) error {
	if err := s.repo.SetCustomerBlocked(ctx, id, blocked); err != nil {
		return err
	}
	s.logger.Info("customer block state changed", zap.String("customerID", id), zap.Bool("blocked", blocked))
	return nil
}

// ListOrders возвращает все заказы, а при непустом status только заказы с этим статусом.
func (s *Service) ListOrders(ctx context.Context, status string) ([]model.Order, error) {
	orders, err := s.repo.ListOrders(ctx)
	if err != nil {
		return nil, err
	}
	if status == "" {
		return orders, nil
	}

	res := make([]model.Order, 0, len(orders))
	for _, o := range orders {
		if strings.EqualFold(string(o.Status), status) {
			res = append(res, o)
		}
	}
	return res, nil
}

// UpdateOrderStatus переводит заказ в новый статус по правилам жизненного цикла.
func (s *Service) UpdateOrderStatus(ctx context.Context, id string, status model.OrderStatus) (*model.Order, error) {
	order, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	from := model.OrderStatus(strings.ToLower(string(order.Status)))
	if !validation.CanTransition(from, status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, status)
	}

	if err := s.repo.UpdateOrderStatus(ctx, id, status, s.now()); err != nil {
		if errors.Is(err, repository.ErrOrderCancelled) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidTransition, err)
		}
		return nil, err
	}

	updated, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	s.queueOrderEmail(ctx, *updated, model.EmailOrderStatus)
	return updated, nil
}

// ProductInput содержит данные товара из формы админ-панели.
type ProductInput struct {
	Name        string
	Description string
	Category    string
	Price       float64
	Stock       int
	ImageURL    string
	Active      bool
}

func (in ProductInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: name", ErrInvalidInput)
	}
	if in.Price <= 0 {
		return fmt.Errorf("%w: price must be positive", ErrInvalidInput)
	}
	if in.Stock < 0 {
		return fmt.Errorf("%w: stock must not be negative", ErrInvalidInput)
	}
	return nil
}

// ListAllProducts возвращает все товары, включая скрытые.
func (s *Service) ListAllProducts(ctx context.Context, category string) ([]model.Product, error) {
	return s.repo.ListProducts(ctx, category, false)
}

// CreateProduct добавляет товар в каталог.
func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (*model.Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if err := s.checkCategory(ctx, strings.TrimSpace(in.Category)); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	p := model.Product{
		ID:        uuid.NewString(),
		CreatedAt: now,
	}
	applyProductInput(&p, in, now)

	if err := s.repo.SaveProduct(ctx, p); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateProduct обновляет существующий товар.
func (s *Service) UpdateProduct(ctx context.Context, id string, in ProductInput) (*model.Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if err := s.checkCategory(ctx, strings.TrimSpace(in.Category)); err != nil {
		return nil, err
	}

	p, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	applyProductInput(p, in, s.now().UTC())

	if err := s.repo.SaveProduct(ctx, *p); err != nil {
		return nil, err
	}
	return p, nil
}

func applyProductInput(p *model.Product, in ProductInput, now time.Time) {
	p.Name = strings.TrimSpace(in.Name)
	p.Description = in.Description
	p.Category = strings.TrimSpace(in.Category)
	p.Price = in.Price
	p.Stock = in.Stock
	p.ImageURL = in.ImageURL
	p.Active = in.Active
	p.UpdatedAt = now
}

// DeleteProduct удаляет товар из каталога.
func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	return s.repo.DeleteProduct(ctx, id)
}
