package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/mmeshcher/storefront-admin/internal/insight"
	"github.com/mmeshcher/storefront-admin/internal/model"
	"github.com/mmeshcher/storefront-admin/internal/receipt"
	"github.com/mmeshcher/storefront-admin/internal/repository"
	"github.com/mmeshcher/storefront-admin/internal/validation"
)

// ListProducts возвращает активные товары каталога.
func (s *Service) ListProducts(ctx context.Context, category string) ([]model.Product, error) {
	return s.repo.ListProducts(ctx, category, true)
}

// GetProduct возвращает активный товар. Скрытые товары покупателю не видны.
func (s *Service) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	p, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.Active {
		return nil, repository.ErrProductNotFound
	}
	return p, nil
}

// CartItem описывает позицию корзины, присланную при оформлении заказа.
type CartItem struct {
	ProductID string
	Quantity  int
}

// CheckoutInput содержит данные оформления заказа.
type CheckoutInput struct {
	Items         []CartItem
	PaymentMethod model.PaymentMethod
	Address       string
}

// Checkout оформляет заказ текущего покупателя. Цены берутся из каталога,
// одинаковые товары в корзине объединяются.
func (s *Service) Checkout(ctx context.Context, customerID string, in CheckoutInput) (*model.Order, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	customer, err := s.repo.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if customer.Blocked {
		return nil, ErrCustomerBlocked
	}

	return s.placeOrder(ctx, customer.ID, customer.Email, in)
}

// GuestCheckout оформляет заказ без учётной записи. Заказ хранит только
// контактный e-mail и попадает в историю покупателя, когда тот зарегистрируется
// с этим адресом.
func (s *Service) GuestCheckout(ctx context.Context, email string, in CheckoutInput) (*model.Order, error) {
	email = strings.TrimSpace(email)
	if !validation.IsValidEmail(email) {
		return nil, fmt.Errorf("%w: email", ErrInvalidInput)
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	// заблокированный покупатель не обходит блокировку гостевым заказом
	existing, err := s.repo.GetCustomerByEmail(ctx, email)
	switch {
	case err == nil && existing.Blocked:
		return nil, ErrCustomerBlocked
	case err != nil && !errors.Is(err, repository.ErrCustomerNotFound):
		return nil, err
	}

	return s.placeOrder(ctx, "", email, in)
}

func (in CheckoutInput) validate() error {
	if len(in.Items) == 0 {
		return fmt.Errorf("%w: empty cart", ErrInvalidInput)
	}
	if !validation.IsValidPaymentMethod(in.PaymentMethod) {
		return fmt.Errorf("%w: payment method", ErrInvalidInput)
	}
	if strings.TrimSpace(in.Address) == "" {
		return fmt.Errorf("%w: address", ErrInvalidInput)
	}
	for _, it := range in.Items {
		if it.Quantity <= 0 || it.ProductID == "" {
			return fmt.Errorf("%w: cart item", ErrInvalidInput)
		}
	}
	return nil
}

func (s *Service) placeOrder(ctx context.Context, customerID, email string, in CheckoutInput) (*model.Order, error) {
	quantities := make(map[string]int, len(in.Items))
	var productOrder []string
	for _, it := range in.Items {
		if _, seen := quantities[it.ProductID]; !seen {
			productOrder = append(productOrder, it.ProductID)
		}
		quantities[it.ProductID] += it.Quantity
	}

	items := make([]model.LineItem, 0, len(productOrder))
	var total float64
	for _, id := range productOrder {
		p, err := s.GetProduct(ctx, id)
		if err != nil {
			return nil, err
		}
		qty := quantities[id]
		items = append(items, model.LineItem{
			ProductID: p.ID,
			Name:      p.Name,
			Quantity:  qty,
			UnitPrice: p.Price,
		})
		total += float64(qty) * p.Price
	}

	paymentStatus := model.PaymentStatusPending
	if in.PaymentMethod == model.PaymentCard {
		paymentStatus = model.PaymentStatusPaid
	}

	order := model.Order{
		ID:            uuid.NewString(),
		CustomerID:    customerID,
		ContactEmail:  email,
		Items:         items,
		TotalPrice:    &total,
		Status:        model.OrderStatusPlaced,
		PaymentMethod: in.PaymentMethod,
		PaymentStatus: paymentStatus,
		Address:       strings.TrimSpace(in.Address),
	}

	if err := s.repo.CreateOrder(ctx, order); err != nil {
		return nil, err
	}

	created, err := s.repo.GetOrder(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	s.queueOrderEmail(ctx, *created, model.EmailOrderPlaced)
	return created, nil
}

// OrdersForCustomer возвращает заказы покупателя, включая гостевые заказы
// на его e-mail, оформленные до регистрации.
func (s *Service) OrdersForCustomer(ctx context.Context, customerID string) ([]model.Order, error) {
	customer, err := s.repo.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}

	orders, err := s.repo.ListOrders(ctx)
	if err != nil {
		return nil, err
	}

	return insight.OrdersForCustomer(*customer, orders), nil
}

// customerOrder возвращает заказ, если он принадлежит покупателю. Чужой заказ
// неотличим от несуществующего.
func (s *Service) customerOrder(ctx context.Context, customerID, orderID string) (*model.Customer, *model.Order, error) {
	customer, err := s.repo.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, nil, err
	}

	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}

	if len(insight.OrdersForCustomer(*customer, []model.Order{*order})) == 0 {
		return nil, nil, repository.ErrOrderNotFound
	}

	return customer, order, nil
}

// CancelOrder отменяет заказ покупателя, если он ещё не отправлен.
func (s *Service) CancelOrder(ctx context.Context, customerID, orderID string) (*model.Order, error) {
	_, order, err := s.customerOrder(ctx, customerID, orderID)
	if err != nil {
		return nil, err
	}

	if !validation.IsCustomerCancellable(model.OrderStatus(strings.ToLower(string(order.Status)))) {
		return nil, ErrOrderNotCancellable
	}

	if err := s.repo.UpdateOrderStatus(ctx, order.ID, model.OrderStatusCancelled, s.now()); err != nil {
		// заказ успели отменить параллельно
		if errors.Is(err, repository.ErrOrderCancelled) {
			return nil, fmt.Errorf("%w: %w", ErrOrderNotCancellable, err)
		}
		return nil, err
	}

	cancelled, err := s.repo.GetOrder(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	s.queueOrderEmail(ctx, *cancelled, model.EmailOrderStatus)
	return cancelled, nil
}

// Receipt печатает PDF-квитанцию по заказу покупателя.
func (s *Service) Receipt(ctx context.Context, customerID, orderID string) ([]byte, error) {
	if s.receipts == nil || !s.receipts.Enabled() {
		return nil, receipt.ErrDisabled
	}

	customer, order, err := s.customerOrder(ctx, customerID, orderID)
	if err != nil {
		return nil, err
	}

	data, err := s.receipts.PDF(ctx, receipt.NewData(*order, customer.FullName(), s.now()))
	if err != nil {
		if errors.Is(err, receipt.ErrDisabled) {
			return nil, err
		}
		return nil, fmt.Errorf("render receipt: %w", err)
	}
	return data, nil
}
