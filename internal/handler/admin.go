package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/storefront-admin/internal/insight"
	"github.com/mmeshcher/storefront-admin/internal/middleware"
	"github.com/mmeshcher/storefront-admin/internal/model"
	"github.com/mmeshcher/storefront-admin/internal/service"
	"github.com/mmeshcher/storefront-admin/internal/validation"
)

type adminLoginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type adminLoginResponse struct {
	Token string `json:"token"`
}

// AdminLogin выдаёт токен администратору.
func (h *Handler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var req adminLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest)
		return
	}

	token, err := h.adminAuth.Login(req.Login, req.Password)
	if err != nil {
		if errors.Is(err, middleware.ErrInvalidAdminCredentials) {
			httpError(w, http.StatusUnauthorized)
			return
		}
		h.logger.Error("admin login error", zap.Error(err))
		httpError(w, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, adminLoginResponse{Token: token})
}

// Dashboard возвращает агрегаты главной страницы админ-панели.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.service.Dashboard(r.Context())
	if err != nil {
		h.fail(w, err, "dashboard error")
		return
	}

	writeJSON(w, http.StatusOK, dashboardResponse{
		Dashboard:    d,
		RecentOrders: newOrderResponses(d.RecentOrders),
	})
}

// ListCustomers возвращает покупателей со статистикой и сегментом.
// Параметры запроса: search, status, tier.
func (h *Handler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := insight.Filter{
		Search: q.Get("search"),
		Status: q.Get("status"),
		Tier:   q.Get("tier"),
	}

	insights, err := h.service.ListCustomerInsights(r.Context(), f)
	if err != nil {
		h.fail(w, err, "list customers error")
		return
	}

	resp := make([]insightResponse, 0, len(insights))
	for _, in := range insights {
		resp = append(resp, newInsightResponse(in))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetCustomer возвращает карточку покупателя с историей заказов.
func (h *Handler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	detail, err := h.service.CustomerDetail(r.Context(), id)
	if err != nil {
		h.fail(w, err, "customer detail error", zap.String("customerID", id))
		return
	}

	writeJSON(w, http.StatusOK, customerDetailResponse{
		insightResponse: newInsightResponse(detail.Insight),
		Orders:          newOrderResponses(detail.Orders),
	})
}

// BlockCustomer блокирует покупателя.
func (h *Handler) BlockCustomer(w http.ResponseWriter, r *http.Request) {
	h.setBlocked(w, r, true)
}

// UnblockCustomer снимает блокировку покупателя.
func (h *Handler) UnblockCustomer(w http.ResponseWriter, r *http.Request) {
	h.setBlocked(w, r, false)
}

func (h *Handler) setBlocked(w http.ResponseWriter, r *http.Request, blocked bool) {
	id := chi.URLParam(r, "id")

	if err := h.service.SetCustomerBlocked(r.Context(), id, blocked); err != nil {
		h.fail(w, err, "set customer blocked error", zap.String("customerID", id))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListOrders возвращает все заказы, параметр status ограничивает выборку.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ListOrders(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		h.fail(w, err, "list orders error")
		return
	}

	writeJSON(w, http.StatusOK, newOrderResponses(insight.RecentOrders(orders, len(orders))))
}

type orderStatusRequest struct {
	Status string `json:"status"`
}

// UpdateOrderStatus меняет статус заказа.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req orderStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest)
		return
	}

	status := model.OrderStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	if !validation.IsKnownOrderStatus(status) {
		httpError(w, http.StatusBadRequest)
		return
	}

	order, err := h.service.UpdateOrderStatus(r.Context(), id, status)
	if err != nil {
		h.fail(w, err, "update order status error", zap.String("orderID", id), zap.String("status", string(status)))
		return
	}

	writeJSON(w, http.StatusOK, newOrderResponse(*order))
}

type productRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
	ImageURL    string  `json:"imageUrl"`
	Active      bool    `json:"active"`
}

func (p productRequest) input() service.ProductInput {
	return service.ProductInput{
		Name:        p.Name,
		Description: p.Description,
		Category:    p.Category,
		Price:       p.Price,
		Stock:       p.Stock,
		ImageURL:    p.ImageURL,
		Active:      p.Active,
	}
}

// AdminListProducts возвращает все товары, включая скрытые.
func (h *Handler) AdminListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.ListAllProducts(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		h.fail(w, err, "list all products error")
		return
	}

	writeJSON(w, http.StatusOK, newProductResponses(products))
}

// CreateProduct добавляет товар.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest)
		return
	}

	p, err := h.service.CreateProduct(r.Context(), req.input())
	if err != nil {
		h.fail(w, err, "create product error")
		return
	}

	writeJSON(w, http.StatusCreated, newProductResponse(*p))
}

// UpdateProduct изменяет товар.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest)
		return
	}

	p, err := h.service.UpdateProduct(r.Context(), id, req.input())
	if err != nil {
		h.fail(w, err, "update product error", zap.String("productID", id))
		return
	}

	writeJSON(w, http.StatusOK, newProductResponse(*p))
}

// DeleteProduct удаляет товар.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.DeleteProduct(r.Context(), id); err != nil {
		h.fail(w, err, "delete product error", zap.String("productID", id))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
