package handler

import (
	"encoding/json"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/storefront-admin/internal/model"
	"github.com/mmeshcher/storefront-admin/internal/service"
)

type registerRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Password  string `json:"password"`
}

// Register обрабатывает регистрацию нового покупателя.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest)
		return
	}

	if req.Email == "" || req.Password == "" {
		httpError(w, http.StatusBadRequest)
		return
	}

	c, err := h.service.RegisterCustomer(r.Context(), service.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     strings.TrimSpace(req.Email),
		Phone:     strings.TrimSpace(req.Phone),
		Password:  req.Password,
	})
	if err != nil {
		h.fail(w, err, "register customer error")
		return
	}

	h.authMiddleware.SetAuthCookie(w, c.ID)
	writeJSON(w, http.StatusOK, newCustomerResponse(*c))
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login выполняет аутентификацию покупателя и устанавливает cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest)
		return
	}

	if req.Email == "" || req.Password == "" {
		httpError(w, http.StatusBadRequest)
		return
	}

	customerID, err := h.service.AuthenticateCustomer(r.Context(), strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		h.fail(w, err, "login customer error")
		return
	}

	h.authMiddleware.SetAuthCookie(w, customerID)
	w.WriteHeader(http.StatusOK)
}

// ListProducts возвращает витрину каталога.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.ListProducts(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		h.fail(w, err, "list products error")
		return
	}

	writeJSON(w, http.StatusOK, newProductResponses(products))
}

// ListCategories возвращает разделы каталога.
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.ListCategories(r.Context())
	if err != nil {
		h.fail(w, err, "list categories error")
		return
	}

	writeJSON(w, http.StatusOK, newCategoryResponses(categories))
}

// GetProduct возвращает карточку товара.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	p, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		h.fail(w, err, "get product error", zap.String("productID", id))
		return
	}

	writeJSON(w, http.StatusOK, newProductResponse(*p))
}

type checkoutRequest struct {
	Items []struct {
		ProductID string `json:"productId"`
		Quantity  int    `json:"quantity"`
	} `json:"items"`
	PaymentMethod string `json:"paymentMethod"`
	Address       string `json:"address"`
}

func (req checkoutRequest) input() service.CheckoutInput {
	in := service.CheckoutInput{
		Items:         make([]service.CartItem, 0, len(req.Items)),
		PaymentMethod: model.PaymentMethod(strings.ToLower(strings.TrimSpace(req.PaymentMethod))),
		Address:       req.Address,
	}
	for _, it := range req.Items {
		in.Items = append(in.Items, service.CartItem{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return in
}

// Checkout оформляет заказ текущего покупателя.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	customerID, ok := h.currentCustomer(w, r)
	if !ok {
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest)
		return
	}

	order, err := h.service.Checkout(r.Context(), customerID, req.input())
	if err != nil {
		h.fail(w, err, "checkout error", zap.String("customerID", customerID))
		return
	}

	writeJSON(w, http.StatusCreated, newOrderResponse(*order))
}

type guestCheckoutRequest struct {
	checkoutRequest
	ContactEmail string `json:"contactEmail"`
}

// GuestCheckout оформляет заказ без входа в учётную запись.
func (h *Handler) GuestCheckout(w http.ResponseWriter, r *http.Request) {
	var req guestCheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest)
		return
	}

	if strings.TrimSpace(req.ContactEmail) == "" {
		httpError(w, http.StatusBadRequest)
		return
	}

	order, err := h.service.GuestCheckout(r.Context(), req.ContactEmail, req.input())
	if err != nil {
		h.fail(w, err, "guest checkout error")
		return
	}

	writeJSON(w, http.StatusCreated, newOrderResponse(*order))
}

// GetOrders возвращает список заказов текущего покупателя.
func (h *Handler) GetOrders(w http.ResponseWriter, r *http.Request) {
	customerID, ok := h.currentCustomer(w, r)
	if !ok {
		return
	}

	orders, err := h.service.OrdersForCustomer(r.Context(), customerID)
	if err != nil {
		h.fail(w, err, "get orders error", zap.String("customerID", customerID))
		return
	}

	if len(orders) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, http.StatusOK, newOrderResponses(orders))
}

// CancelOrder отменяет заказ текущего покупателя.
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	customerID, ok := h.currentCustomer(w, r)
	if !ok {
		return
	}
	orderID := chi.URLParam(r, "id")

	order, err := h.service.CancelOrder(r.Context(), customerID, orderID)
	if err != nil {
		h.fail(w, err, "cancel order error", zap.String("customerID", customerID), zap.String("orderID", orderID))
		return
	}

	writeJSON(w, http.StatusOK, newOrderResponse(*order))
}

// GetReceipt отдаёт PDF-квитанцию по заказу текущего покупателя.
func (h *Handler) GetReceipt(w http.ResponseWriter, r *http.Request) {
	customerID, ok := h.currentCustomer(w, r)
	if !ok {
		return
	}
	orderID := chi.URLParam(r, "id")

	pdf, err := h.service.Receipt(r.Context(), customerID, orderID)
	if err != nil {
		h.fail(w, err, "render receipt error", zap.String("orderID", orderID))
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": "receipt-" + orderID + ".pdf",
	}))
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}
