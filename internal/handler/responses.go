package handler

import (
	"time"

	"github.com/mmeshcher/storefront-admin/internal/model"
)

type orderResponse struct {
	ID            string           `json:"id"`
	CustomerID    string           `json:"customerId,omitempty"`
	ContactEmail  string           `json:"contactEmail,omitempty"`
	Items         []model.LineItem `json:"items"`
	TotalPrice    *float64         `json:"totalPrice"`
	Status        string           `json:"status"`
	CreatedAt     string           `json:"createdAt"`
	CancelledAt   *time.Time       `json:"cancelledAt,omitempty"`
	PaymentMethod string           `json:"paymentMethod"`
	PaymentStatus string           `json:"paymentStatus"`
	Address       string           `json:"address,omitempty"`
}

func newOrderResponse(o model.Order) orderResponse {
	items := o.Items
	if items == nil {
		items = []model.LineItem{}
	}
	return orderResponse{
		ID:            o.ID,
		CustomerID:    o.CustomerID,
		ContactEmail:  o.ContactEmail,
		Items:         items,
		TotalPrice:    o.TotalPrice,
		Status:        string(o.Status),
		CreatedAt:     o.CreatedAt,
		CancelledAt:   o.CancelledAt,
		PaymentMethod: string(o.PaymentMethod),
		PaymentStatus: string(o.PaymentStatus),
		Address:       o.Address,
	}
}

func newOrderResponses(orders []model.Order) []orderResponse {
	resp := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, newOrderResponse(o))
	}
	return resp
}

type customerResponse struct {
	ID           string     `json:"id"`
	FirstName    string     `json:"firstName"`
	LastName     string     `json:"lastName"`
	Email        string     `json:"email"`
	Phone        string     `json:"phone,omitempty"`
	RegisteredAt *time.Time `json:"registeredAt"`
	Blocked      bool       `json:"blocked"`
}

func newCustomerResponse(c model.Customer) customerResponse {
	return customerResponse{
		ID:           c.ID,
		FirstName:    c.FirstName,
		LastName:     c.LastName,
		Email:        c.Email,
		Phone:        c.Phone,
		RegisteredAt: c.RegisteredAt,
		Blocked:      c.Blocked,
	}
}

type insightResponse struct {
	Customer customerResponse    `json:"customer"`
	Stats    model.CustomerStats `json:"stats"`
	Tier     model.CustomerTier  `json:"tier"`
}

func newInsightResponse(in model.CustomerInsight) insightResponse {
	return insightResponse{
		Customer: newCustomerResponse(in.Customer),
		Stats:    in.Stats,
		Tier:     in.Tier,
	}
}

type customerDetailResponse struct {
	insightResponse
	Orders []orderResponse `json:"orders"`
}

type dashboardResponse struct {
	*model.Dashboard
	RecentOrders []orderResponse `json:"recentOrders"`
}

type productResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	Price       float64   `json:"price"`
	Stock       int       `json:"stock"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func newProductResponse(p model.Product) productResponse {
	return productResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Category:    p.Category,
		Price:       p.Price,
		Stock:       p.Stock,
		ImageURL:    p.ImageURL,
		Active:      p.Active,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func newProductResponses(products []model.Product) []productResponse {
	resp := make([]productResponse, 0, len(products))
	for _, p := range products {
		resp = append(resp, newProductResponse(p))
	}
	return resp
}

type categoryResponse struct {
	Slug        string    `json:"slug"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func newCategoryResponse(c model.Category) categoryResponse {
	return categoryResponse{
		Slug:        c.Slug,
		Name:        c.Name,
		Description: c.Description,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func newCategoryResponses(categories []model.Category) []categoryResponse {
	resp := make([]categoryResponse, 0, len(categories))
	for _, c := range categories {
		resp = append(resp, newCategoryResponse(c))
	}
	return resp
}

type emailResponse struct {
	ID        string     `json:"id"`
	Recipient string     `json:"recipient"`
	Subject   string     `json:"subject"`
	Body      string     `json:"body"`
	Kind      string     `json:"kind"`
	Status    string     `json:"status"`
	OrderID   string     `json:"orderId,omitempty"`
	Error     string     `json:"error,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	SentAt    *time.Time `json:"sentAt,omitempty"`
}

func newEmailResponse(e model.EmailRecord) emailResponse {
	return emailResponse{
		ID:        e.ID,
		Recipient: e.Recipient,
		Subject:   e.Subject,
		Body:      e.Body,
		Kind:      string(e.Kind),
		Status:    string(e.Status),
		OrderID:   e.OrderID,
		Error:     e.Error,
		CreatedAt: e.CreatedAt,
		SentAt:    e.SentAt,
	}
}
