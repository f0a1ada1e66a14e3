package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mmeshcher/storefront-admin/internal/insight"
	"github.com/mmeshcher/storefront-admin/internal/middleware"
	"github.com/mmeshcher/storefront-admin/internal/model"
	"github.com/mmeshcher/storefront-admin/internal/receipt"
	"github.com/mmeshcher/storefront-admin/internal/repository"
	"github.com/mmeshcher/storefront-admin/internal/service"
)

type stubService struct {
	registerResp *model.Customer
	registerErr  error

	authCustomerID string
	authErr        error

	products   []model.Product
	product    *model.Product
	productErr error

	checkoutIn   service.CheckoutInput
	checkoutResp *model.Order
	checkoutErr  error

	ordersCustomerID string
	ordersResp       []model.Order
	ordersErr        error

	cancelResp *model.Order
	cancelErr  error

	receiptResp []byte
	receiptErr  error

	dashboard    *model.Dashboard
	filter       insight.Filter
	insights     []model.CustomerInsight
	detail       *service.CustomerDetail
	detailErr    error
	blocked      map[string]bool
	statusFilter string
	updateResp   *model.Order
	updateErr    error
	productIn    service.ProductInput
	deleteErr    error

	guestEmail string
	guestIn    service.CheckoutInput
	guestErr   error

	categories  []model.Category
	categoryIn  service.CategoryInput
	categoryErr error

	emails       []model.EmailRecord
	emailStatus  string
	emailErr     error
	composeIn    service.EmailInput
	emailUpdate  model.EmailStatus
	emailMessage string
}

func (s *stubService) RegisterCustomer(_ context.Context, _ service.RegisterInput) (*model.Customer, error) {
	return s.registerResp, s.registerErr
}

func (s *stubService) AuthenticateCustomer(_ context.Context, _, _ string) (string, error) {
	return s.authCustomerID, s.authErr
}

func (s *stubService) ListProducts(context.Context, string) ([]model.Product, error) {
	return s.products, nil
}

func (s *stubService) GetProduct(context.Context, string) (*model.Product, error) {
	return s.product, s.productErr
}

func (s *stubService) Checkout(_ context.Context, _ string, in service.CheckoutInput) (*model.Order, error) {
	s.checkoutIn = in
	return s.checkoutResp, s.checkoutErr
}

func (s *stubService) OrdersForCustomer(_ context.Context, customerID string) ([]model.Order, error) {
	s.ordersCustomerID = customerID
	return s.ordersResp, s.ordersErr
}

func (s *stubService) CancelOrder(context.Context, string, string) (*model.Order, error) {
	return s.cancelResp, s.cancelErr
}

func (s *stubService) Receipt(context.Context, string, string) ([]byte, error) {
	return s.receiptResp, s.receiptErr
}

func (s *stubService) Dashboard(context.Context) (*model.Dashboard, error) {
	return s.dashboard, nil
}

func (s *stubService) ListCustomerInsights(_ context.Context, f insight.Filter) ([]model.CustomerInsight, error) {
	s.filter = f
	return s.insights, nil
}

func (s *stubService) CustomerDetail(context.Context, string) (*service.CustomerDetail, error) {
	return s.detail, s.detailErr
}

func (s *stubService) SetCustomerBlocked(_ context.Context, id string, blocked bool) error {
	if s.blocked == nil {
		s.blocked = make(map[string]bool)
	}
	s.blocked[id] = blocked
	return nil
}

func (s *stubService) ListOrders(_ context.Context, status string) ([]model.Order, error) {
	s.statusFilter = status
	return s.ordersResp, nil
}

func (s *stubService) UpdateOrderStatus(context.Context, string, model.OrderStatus) (*model.Order, error) {
	return s.updateResp, s.updateErr
}

func (s *stubService) ListAllProducts(context.Context, string) ([]model.Product, error) {
	return s.products, nil
}

func (s *stubService) CreateProduct(_ context.Context, in service.ProductInput) (*model.Product, error) {
	s.productIn = in
	return &model.Product{ID: "p-new", Name: in.Name, Price: in.Price}, nil
}

func (s *stubService) UpdateProduct(_ context.Context, id string, in service.ProductInput) (*model.Product, error) {
	s.productIn = in
	return &model.Product{ID: id, Name: in.Name, Price: in.Price}, nil
}

func (s *stubService) DeleteProduct(context.Context, string) error {
	return s.deleteErr
}

func (s *stubService) GuestCheckout(_ context.Context, email string, in service.CheckoutInput) (*model.Order, error) {
	s.guestEmail = email
	s.guestIn = in
	if s.guestErr != nil {
		return nil, s.guestErr
	}
	return &model.Order{ID: "g1", ContactEmail: email, Status: model.OrderStatusPlaced}, nil
}

func (s *stubService) ListCategories(context.Context) ([]model.Category, error) {
	return s.categories, nil
}

func (s *stubService) CreateCategory(_ context.Context, in service.CategoryInput) (*model.Category, error) {
	s.categoryIn = in
	if s.categoryErr != nil {
		return nil, s.categoryErr
	}
	return &model.Category{Slug: service.Slugify(in.Name), Name: in.Name}, nil
}

func (s *stubService) UpdateCategory(_ context.Context, slug string, in service.CategoryInput) (*model.Category, error) {
	s.categoryIn = in
	if s.categoryErr != nil {
		return nil, s.categoryErr
	}
	return &model.Category{Slug: slug, Name: in.Name}, nil
}

func (s *stubService) DeleteCategory(context.Context, string) error {
	return s.categoryErr
}

func (s *stubService) ListEmails(_ context.Context, status string) ([]model.EmailRecord, error) {
	s.emailStatus = status
	return s.emails, s.emailErr
}

func (s *stubService) GetEmail(_ context.Context, id string) (*model.EmailRecord, error) {
	if s.emailErr != nil {
		return nil, s.emailErr
	}
	return &model.EmailRecord{ID: id, Status: model.EmailQueued}, nil
}

func (s *stubService) ComposeEmail(_ context.Context, in service.EmailInput) (*model.EmailRecord, error) {
	s.composeIn = in
	if s.emailErr != nil {
		return nil, s.emailErr
	}
	return &model.EmailRecord{ID: "e1", Recipient: in.Recipient, Subject: in.Subject, Kind: model.EmailManual, Status: model.EmailQueued}, nil
}

func (s *stubService) UpdateEmailStatus(_ context.Context, id string, status model.EmailStatus, errMsg string) (*model.EmailRecord, error) {
	s.emailUpdate = status
	s.emailMessage = errMsg
	if s.emailErr != nil {
		return nil, s.emailErr
	}
	return &model.EmailRecord{ID: id, Status: status, Error: errMsg}, nil
}

func (s *stubService) DeleteEmail(context.Context, string) error {
	return s.emailErr
}

type testServer struct {
	router http.Handler
	auth   *middleware.AuthMiddleware
	admin  *middleware.AdminAuth
}

func newTestServer(t *testing.T, svc Service) *testServer {
	t.Helper()

	auth := middleware.NewAuthMiddleware("test-secret")
	admin := middleware.NewAdminAuth("admin", "s3cret", "test-secret")
	h := NewHandler(svc, zap.NewNop(), auth, admin)

	return &testServer{router: h.SetupRouter([]string{"*"}), auth: auth, admin: admin}
}

func (ts *testServer) do(t *testing.T, method, target string, body any, customerID string, adminToken string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")

	if customerID != "" {
		rec := httptest.NewRecorder()
		ts.auth.SetAuthCookie(rec, customerID)
		for _, c := range rec.Result().Cookies() {
			req.AddCookie(c)
		}
	}
	if adminToken != "" {
		req.Header.Set("Authorization", "Bearer "+adminToken)
	}

	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) adminToken(t *testing.T) string {
	t.Helper()
	token, err := ts.admin.Login("admin", "s3cret")
	require.NoError(t, err)
	return token
}

func TestRegister(t *testing.T) {
	tests := []struct {
		name       string
		body       any
		svc        *stubService
		wantStatus int
		wantCookie bool
	}{
		{
			name:       "success",
			body:       registerRequest{Email: "alice@example.com", Password: "secret1"},
			svc:        &stubService{registerResp: &model.Customer{ID: "c1", Email: "alice@example.com"}},
			wantStatus: http.StatusOK,
			wantCookie: true,
		},
		{
			name:       "duplicate",
			body:       registerRequest{Email: "alice@example.com", Password: "secret1"},
			svc:        &stubService{registerErr: repository.ErrCustomerExists},
			wantStatus: http.StatusConflict,
		},
		{
			name:       "invalid input",
			body:       registerRequest{Email: "bad", Password: "secret1"},
			svc:        &stubService{registerErr: service.ErrInvalidInput},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing password",
			body:       registerRequest{Email: "alice@example.com"},
			svc:        &stubService{},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, tt.svc)
			rec := ts.do(t, http.MethodPost, "/api/user/register", tt.body, "", "")

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantCookie, len(rec.Result().Cookies()) > 0)
			assert.NotContains(t, rec.Body.String(), "passwordHash")
		})
	}
}

func TestLogin(t *testing.T) {
	tests := []struct {
		name       string
		svc        *stubService
		wantStatus int
	}{
		{name: "success", svc: &stubService{authCustomerID: "c1"}, wantStatus: http.StatusOK},
		{name: "invalid credentials", svc: &stubService{authErr: service.ErrInvalidCredentials}, wantStatus: http.StatusUnauthorized},
		{name: "blocked", svc: &stubService{authErr: service.ErrCustomerBlocked}, wantStatus: http.StatusForbidden},
		{name: "unexpected", svc: &stubService{authErr: context.DeadlineExceeded}, wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, tt.svc)
			rec := ts.do(t, http.MethodPost, "/api/user/login", loginRequest{Email: "a@example.com", Password: "x"}, "", "")
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestProducts_Public(t *testing.T) {
	svc := &stubService{
		products: []model.Product{{ID: "p1", Name: "Tea", Price: 120, Active: true}},
		product:  &model.Product{ID: "p1", Name: "Tea", Price: 120, Active: true},
	}
	ts := newTestServer(t, svc)

	rec := ts.do(t, http.MethodGet, "/api/products", nil, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []productResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	require.Len(t, list, 1)
	assert.Equal(t, "Tea", list[0].Name)

	rec = ts.do(t, http.MethodGet, "/api/products/p1", nil, "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	svc.productErr = repository.ErrProductNotFound
	rec = ts.do(t, http.MethodGet, "/api/products/missing", nil, "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCheckout(t *testing.T) {
	total := 240.0
	svc := &stubService{checkoutResp: &model.Order{ID: "o1", TotalPrice: &total, Status: model.OrderStatusPlaced}}
	ts := newTestServer(t, svc)

	body := map[string]any{
		"items":         []map[string]any{{"productId": "p1", "quantity": 2}},
		"paymentMethod": " CARD ",
		"address":       "Baker Street",
	}

	rec := ts.do(t, http.MethodPost, "/api/user/orders", body, "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/user/orders", body, "c1", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, model.PaymentCard, svc.checkoutIn.PaymentMethod)
	require.Len(t, svc.checkoutIn.Items, 1)
	assert.Equal(t, 2, svc.checkoutIn.Items[0].Quantity)

	var resp orderResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "o1", resp.ID)
	assert.Equal(t, []model.LineItem{}, resp.Items)

	svc.checkoutErr = repository.ErrOutOfStock
	rec = ts.do(t, http.MethodPost, "/api/user/orders", body, "c1", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetOrders(t *testing.T) {
	svc := &stubService{}
	ts := newTestServer(t, svc)

	rec := ts.do(t, http.MethodGet, "/api/user/orders", nil, "c1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "c1", svc.ordersCustomerID)

	svc.ordersResp = []model.Order{{ID: "o1", Status: model.OrderStatusDelivered, CreatedAt: "2024-06-01T10:00:00Z"}}
	rec = ts.do(t, http.MethodGet, "/api/user/orders", nil, "c1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp []orderResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp, 1)
	assert.Nil(t, resp[0].TotalPrice)

	svc.ordersErr = errors.New("db down")
	rec = ts.do(t, http.MethodGet, "/api/user/orders", nil, "c1", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCancelOrder(t *testing.T) {
	tests := []struct {
		name       string
		svc        *stubService
		wantStatus int
	}{
		{name: "cancelled", svc: &stubService{cancelResp: &model.Order{ID: "o1", Status: model.OrderStatusCancelled}}, wantStatus: http.StatusOK},
		{name: "not found", svc: &stubService{cancelErr: repository.ErrOrderNotFound}, wantStatus: http.StatusNotFound},
		{name: "too late", svc: &stubService{cancelErr: service.ErrOrderNotCancellable}, wantStatus: http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, tt.svc)
			rec := ts.do(t, http.MethodPost, "/api/user/orders/o1/cancel", nil, "c1", "")
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestGetReceipt(t *testing.T) {
	svc := &stubService{receiptErr: receipt.ErrDisabled}
	ts := newTestServer(t, svc)

	rec := ts.do(t, http.MethodGet, "/api/user/orders/o1/receipt", nil, "c1", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	svc.receiptErr = nil
	svc.receiptResp = []byte("%PDF-1.4 test")
	rec = ts.do(t, http.MethodGet, "/api/user/orders/o1/receipt", nil, "c1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "receipt-o1.pdf")
	assert.Equal(t, "%PDF-1.4 test", rec.Body.String())
}

func TestAdminLogin(t *testing.T) {
	ts := newTestServer(t, &stubService{})

	rec := ts.do(t, http.MethodPost, "/api/admin/login", adminLoginRequest{Login: "admin", Password: "wrong"}, "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/admin/login", adminLoginRequest{Login: "admin", Password: "s3cret"}, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp adminLoginResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.NotEmpty(t, resp.Token)
}

func TestAdminRoutes_RequireToken(t *testing.T) {
	ts := newTestServer(t, &stubService{dashboard: &model.Dashboard{}})

	rec := ts.do(t, http.MethodGet, "/api/admin/dashboard", nil, "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// cookie покупателя не даёт доступа к админ-панели
	rec = ts.do(t, http.MethodGet, "/api/admin/dashboard", nil, "c1", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDashboard(t *testing.T) {
	svc := &stubService{dashboard: &model.Dashboard{
		TotalRevenue:    1500,
		TotalOrders:     2,
		OrdersByStatus:  map[model.OrderStatus]int{model.OrderStatusPlaced: 2},
		TotalCustomers:  1,
		CustomersByTier: map[model.TierLabel]int{model.TierNew: 1},
		RecentOrders:    []model.Order{{ID: "o2"}, {ID: "o1"}},
	}}
	ts := newTestServer(t, svc)

	rec := ts.do(t, http.MethodGet, "/api/admin/dashboard", nil, "", ts.adminToken(t))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		TotalRevenue    float64         `json:"totalRevenue"`
		CustomersByTier map[string]int  `json:"customersByTier"`
		RecentOrders    []orderResponse `json:"recentOrders"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.InDelta(t, 1500.0, resp.TotalRevenue, 1e-9)
	assert.Equal(t, 1, resp.CustomersByTier["New"])
	require.Len(t, resp.RecentOrders, 2)
	assert.Equal(t, "o2", resp.RecentOrders[0].ID)
}

func TestListCustomers_PassesFilter(t *testing.T) {
	registered := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	svc := &stubService{insights: []model.CustomerInsight{{
		Customer: model.Customer{ID: "c1", FirstName: "Alice", PasswordHash: []byte("hash"), RegisteredAt: &registered},
		Stats:    model.CustomerStats{TotalOrders: 3, TotalSpent: 120000},
		Tier:     model.CustomerTier{Label: model.TierVIP, Color: "purple"},
	}}}
	ts := newTestServer(t, svc)

	rec := ts.do(t, http.MethodGet, "/api/admin/customers?search=987&status=blocked&tier=vip", nil, "", ts.adminToken(t))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, insight.Filter{Search: "987", Status: "blocked", Tier: "vip"}, svc.filter)
	assert.NotContains(t, rec.Body.String(), "hash")

	var resp []insightResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp, 1)
	assert.Equal(t, model.TierVIP, resp[0].Tier.Label)
	assert.Equal(t, 3, resp[0].Stats.TotalOrders)
}

func TestGetCustomer(t *testing.T) {
	svc := &stubService{detailErr: repository.ErrCustomerNotFound}
	ts := newTestServer(t, svc)
	token := ts.adminToken(t)

	rec := ts.do(t, http.MethodGet, "/api/admin/customers/missing", nil, "", token)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	svc.detailErr = nil
	svc.detail = &service.CustomerDetail{
		Insight: model.CustomerInsight{Customer: model.Customer{ID: "c1"}, Tier: model.CustomerTier{Label: model.TierNew}},
		Orders:  []model.Order{{ID: "o1"}},
	}
	rec = ts.do(t, http.MethodGet, "/api/admin/customers/c1", nil, "", token)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp customerDetailResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "c1", resp.Customer.ID)
	require.Len(t, resp.Orders, 1)
}

func TestBlockUnblockCustomer(t *testing.T) {
	svc := &stubService{}
	ts := newTestServer(t, svc)
	token := ts.adminToken(t)

	rec := ts.do(t, http.MethodPost, "/api/admin/customers/c1/block", nil, "", token)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, svc.blocked["c1"])

	rec = ts.do(t, http.MethodPost, "/api/admin/customers/c1/unblock", nil, "", token)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.False(t, svc.blocked["c1"])
}

func TestAdminOrders(t *testing.T) {
	svc := &stubService{
		ordersResp: []model.Order{
			{ID: "old", CreatedAt: "2024-01-01T00:00:00Z"},
			{ID: "new", CreatedAt: "2024-06-01T00:00:00Z"},
		},
	}
	ts := newTestServer(t, svc)
	token := ts.adminToken(t)

	rec := ts.do(t, http.MethodGet, "/api/admin/orders?status=placed", nil, "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "placed", svc.statusFilter)
	var resp []orderResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp, 2)
	assert.Equal(t, "new", resp[0].ID)

	tests := []struct {
		name       string
		body       orderStatusRequest
		updateErr  error
		wantStatus int
	}{
		{name: "ok", body: orderStatusRequest{Status: "Packed"}, wantStatus: http.StatusOK},
		{name: "unknown status", body: orderStatusRequest{Status: "lost"}, wantStatus: http.StatusBadRequest},
		{name: "invalid transition", body: orderStatusRequest{Status: "delivered"}, updateErr: service.ErrInvalidTransition, wantStatus: http.StatusConflict},
		{name: "missing order", body: orderStatusRequest{Status: "packed"}, updateErr: repository.ErrOrderNotFound, wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc.updateResp = &model.Order{ID: "o1", Status: model.OrderStatusPacked}
			svc.updateErr = tt.updateErr
			rec := ts.do(t, http.MethodPatch, "/api/admin/orders/o1/status", tt.body, "", token)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestAdminProducts(t *testing.T) {
	svc := &stubService{}
	ts := newTestServer(t, svc)
	token := ts.adminToken(t)

	rec := ts.do(t, http.MethodPost, "/api/admin/products", productRequest{Name: "Mug", Price: 299, Stock: 4, Active: true}, "", token)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, service.ProductInput{Name: "Mug", Price: 299, Stock: 4, Active: true}, svc.productIn)

	rec = ts.do(t, http.MethodPut, "/api/admin/products/p1", productRequest{Name: "Big Mug", Price: 349}, "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	var p productResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&p))
	assert.Equal(t, "p1", p.ID)

	rec = ts.do(t, http.MethodDelete, "/api/admin/products/p1", nil, "", token)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	svc.deleteErr = repository.ErrProductNotFound
	rec = ts.do(t, http.MethodDelete, "/api/admin/products/p1", nil, "", token)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/admin/products", nil, "", token)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_NotFound(t *testing.T) {
	ts := newTestServer(t, &stubService{})
	rec := ts.do(t, http.MethodGet, "/api/unknown", nil, "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGuestCheckout(t *testing.T) {
	svc := &stubService{}
	ts := newTestServer(t, svc)

	body := map[string]any{
		"contactEmail":  "guest@example.com",
		"items":         []map[string]any{{"productId": "p1", "quantity": 1}},
		"paymentMethod": "cod",
		"address":       "Main street 1",
	}

	rec := ts.do(t, http.MethodPost, "/api/orders/guest", body, "", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "guest@example.com", svc.guestEmail)
	assert.Equal(t, model.PaymentCashOnDelivery, svc.guestIn.PaymentMethod)
	require.Len(t, svc.guestIn.Items, 1)
	assert.Equal(t, "Main street 1", svc.guestIn.Address)

	var resp orderResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "g1", resp.ID)
	assert.Empty(t, resp.CustomerID)
	assert.Equal(t, "guest@example.com", resp.ContactEmail)

	tests := []struct {
		name       string
		body       map[string]any
		err        error
		wantStatus int
	}{
		{name: "missing email", body: map[string]any{"items": body["items"]}, wantStatus: http.StatusBadRequest},
		{name: "invalid input", body: body, err: service.ErrInvalidInput, wantStatus: http.StatusBadRequest},
		{name: "blocked", body: body, err: service.ErrCustomerBlocked, wantStatus: http.StatusForbidden},
		{name: "out of stock", body: body, err: repository.ErrOutOfStock, wantStatus: http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc.guestErr = tt.err
			rec := ts.do(t, http.MethodPost, "/api/orders/guest", tt.body, "", "")
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestCategories(t *testing.T) {
	svc := &stubService{categories: []model.Category{{Slug: "tea", Name: "Tea"}}}
	ts := newTestServer(t, svc)
	token := ts.adminToken(t)

	rec := ts.do(t, http.MethodGet, "/api/categories", nil, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []categoryResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	require.Len(t, list, 1)
	assert.Equal(t, "tea", list[0].Slug)

	rec = ts.do(t, http.MethodPost, "/api/admin/categories", categoryRequest{Name: "Green Tea"}, "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/admin/categories", categoryRequest{Name: "Green Tea"}, "", token)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created categoryResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	assert.Equal(t, "green-tea", created.Slug)

	rec = ts.do(t, http.MethodPut, "/api/admin/categories/tea", categoryRequest{Name: "Black tea", Description: "strong"}, "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, service.CategoryInput{Name: "Black tea", Description: "strong"}, svc.categoryIn)

	rec = ts.do(t, http.MethodGet, "/api/admin/categories", nil, "", token)
	assert.Equal(t, http.StatusOK, rec.Code)

	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "deleted", wantStatus: http.StatusNoContent},
		{name: "in use", err: repository.ErrCategoryInUse, wantStatus: http.StatusConflict},
		{name: "missing", err: repository.ErrCategoryNotFound, wantStatus: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc.categoryErr = tt.err
			rec := ts.do(t, http.MethodDelete, "/api/admin/categories/tea", nil, "", token)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}

	svc.categoryErr = repository.ErrCategoryExists
	rec = ts.do(t, http.MethodPost, "/api/admin/categories", categoryRequest{Name: "Tea"}, "", token)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestEmails(t *testing.T) {
	created := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	svc := &stubService{emails: []model.EmailRecord{{
		ID: "e1", Recipient: "a@example.com", Subject: "Order o1 placed", Kind: model.EmailOrderPlaced,
		Status: model.EmailQueued, OrderID: "o1", CreatedAt: created,
	}}}
	ts := newTestServer(t, svc)
	token := ts.adminToken(t)

	rec := ts.do(t, http.MethodGet, "/api/admin/emails?status=queued", nil, "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/admin/emails?status=queued", nil, "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "queued", svc.emailStatus)
	var list []emailResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	require.Len(t, list, 1)
	assert.Equal(t, "o1", list[0].OrderID)
	assert.Equal(t, "order_placed", list[0].Kind)

	rec = ts.do(t, http.MethodPost, "/api/admin/emails", composeEmailRequest{Recipient: "b@example.com", Subject: "Sale"}, "", token)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, service.EmailInput{Recipient: "b@example.com", Subject: "Sale"}, svc.composeIn)

	rec = ts.do(t, http.MethodGet, "/api/admin/emails/e1", nil, "", token)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodPatch, "/api/admin/emails/e1/status", emailStatusRequest{Status: " Failed ", Error: "mailbox full"}, "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.EmailFailed, svc.emailUpdate)
	assert.Equal(t, "mailbox full", svc.emailMessage)

	rec = ts.do(t, http.MethodPatch, "/api/admin/emails/e1/status", emailStatusRequest{Status: "bounced"}, "", token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodDelete, "/api/admin/emails/e1", nil, "", token)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "missing", err: repository.ErrEmailNotFound, wantStatus: http.StatusNotFound},
		{name: "bad transition", err: service.ErrInvalidEmailTransition, wantStatus: http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc.emailErr = tt.err
			rec := ts.do(t, http.MethodPatch, "/api/admin/emails/e1/status", emailStatusRequest{Status: "sent"}, "", token)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}
