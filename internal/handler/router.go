package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	custommiddleware "github.com/mmeshcher/storefront-admin/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware магазина и админ-панели.
// allowedOrigins ограничивает CORS для фронтенда админ-панели.
func (h *Handler) SetupRouter(allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Content-Encoding"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", h.ListProducts)
		r.Get("/{id}", h.GetProduct)
	})

	r.Get("/api/categories", h.ListCategories)
	r.Post("/api/orders/guest", h.GuestCheckout)

	r.Route("/api/user", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Post("/orders", h.Checkout)
			r.Get("/orders", h.GetOrders)
			r.Post("/orders/{id}/cancel", h.CancelOrder)
			r.Get("/orders/{id}/receipt", h.GetReceipt)
		})
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Post("/login", h.AdminLogin)

		r.Group(func(r chi.Router) {
			r.Use(h.adminAuth.Middleware)

			r.Get("/dashboard", h.Dashboard)

			r.Get("/customers", h.ListCustomers)
			r.Get("/customers/{id}", h.GetCustomer)
			r.Post("/customers/{id}/block", h.BlockCustomer)
			r.Post("/customers/{id}/unblock", h.UnblockCustomer)

			r.Get("/orders", h.ListOrders)
			r.Patch("/orders/{id}/status", h.UpdateOrderStatus)

			r.Get("/products", h.AdminListProducts)
			r.Post("/products", h.CreateProduct)
			r.Put("/products/{id}", h.UpdateProduct)
			r.Delete("/products/{id}", h.DeleteProduct)

			r.Get("/categories", h.ListCategories)
			r.Post("/categories", h.CreateCategory)
			r.Put("/categories/{slug}", h.UpdateCategory)
			r.Delete("/categories/{slug}", h.DeleteCategory)

			r.Get("/emails", h.ListEmails)
			r.Post("/emails", h.ComposeEmail)
			r.Get("/emails/{id}", h.GetEmail)
			r.Patch("/emails/{id}/status", h.UpdateEmailStatus)
			r.Delete("/emails/{id}", h.DeleteEmail)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
