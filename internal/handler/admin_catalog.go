package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/storefront-admin/internal/model"
	"github.com/mmeshcher/storefront-admin/internal/service"
	"github.com/mmeshcher/storefront-admin/internal/validation"
)

type categoryRequest struct {
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (c categoryRequest) input() service.CategoryInput {
	return service.CategoryInput{Slug: c.Slug, Name: c.Name, Description: c.Description}
}

// CreateCategory добавляет категорию каталога.
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest)
		return
	}

	c, err := h.service.CreateCategory(r.Context(), req.input())
	if err != nil {
		h.fail(w, err, "create category error")
		return
	}

	writeJSON(w, http.StatusCreated, newCategoryResponse(*c))
}

// UpdateCategory меняет название и описание категории.
func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest)
		return
	}

	c, err := h.service.UpdateCategory(r.Context(), slug, req.input())
	if err != nil {
		h.fail(w, err, "update category error", zap.String("slug", slug))
		return
	}

	writeJSON(w, http.StatusOK, newCategoryResponse(*c))
}

// DeleteCategory удаляет категорию без товаров.
func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	if err := h.service.DeleteCategory(r.Context(), slug); err != nil {
		h.fail(w, err, "delete category error", zap.String("slug", slug))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListEmails возвращает журнал писем, параметр status ограничивает выборку.
func (h *Handler) ListEmails(w http.ResponseWriter, r *http.Request) {
	emails, err := h.service.ListEmails(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		h.fail(w, err, "list emails error")
		return
	}

	resp := make([]emailResponse, 0, len(emails))
	for _, e := range emails {
		resp = append(resp, newEmailResponse(e))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetEmail возвращает письмо из журнала.
func (h *Handler) GetEmail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	e, err := h.service.GetEmail(r.Context(), id)
	if err != nil {
		h.fail(w, err, "get email error", zap.String("emailID", id))
		return
	}

	writeJSON(w, http.StatusOK, newEmailResponse(*e))
}

type composeEmailRequest struct {
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
}

// ComposeEmail ставит в очередь письмо администратора.
func (h *Handler) ComposeEmail(w http.ResponseWriter, r *http.Request) {
	var req composeEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest)
		return
	}

	e, err := h.service.ComposeEmail(r.Context(), service.EmailInput{
		Recipient: req.Recipient,
		Subject:   req.Subject,
		Body:      req.Body,
	})
	if err != nil {
		h.fail(w, err, "compose email error")
		return
	}

	writeJSON(w, http.StatusCreated, newEmailResponse(*e))
}

type emailStatusRequest struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

// UpdateEmailStatus фиксирует результат отправки письма.
func (h *Handler) UpdateEmailStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req emailStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest)
		return
	}

	status := model.EmailStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	if !validation.IsKnownEmailStatus(status) {
		httpError(w, http.StatusBadRequest)
		return
	}

	e, err := h.service.UpdateEmailStatus(r.Context(), id, status, req.Error)
	if err != nil {
		h.fail(w, err, "update email status error", zap.String("emailID", id), zap.String("status", string(status)))
		return
	}

	writeJSON(w, http.StatusOK, newEmailResponse(*e))
}

// DeleteEmail удаляет письмо из журнала.
func (h *Handler) DeleteEmail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.DeleteEmail(r.Context(), id); err != nil {
		h.fail(w, err, "delete email error", zap.String("emailID", id))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
