package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/irgordon/locker/api/internal/core/domain"
)

// ==============================================================================
// 1. Request Payloads (Input Validation)
// ==============================================================================

type EntryRequest struct {
	Title             string `json:"title" validate:"required,max=255"`
	Username          string `json:"username" validate:"required,max=255"`
	EncryptedPassword string `json:"encryptedPassword" validate:"required,base64,max=16384"`
	Notes             string `json:"notes" validate:"max=10000"`
}

func (req EntryRequest) toInput() domain.EntryInput {
	return domain.EntryInput{
		Title:             req.Title,
		Username:          req.Username,
		EncryptedPassword: req.EncryptedPassword,
		Notes:             req.Notes,
	}
}

// ==============================================================================
// 2. The Handler Struct (Dependency Injection)
// ==============================================================================

type EntryHandler struct {
	Service domain.EntryService
	Logger  *slog.Logger
}

func NewEntryHandler(service domain.EntryService, logger *slog.Logger) *EntryHandler {
	return &EntryHandler{Service: service, Logger: logger}
}

// ==============================================================================
// 3. HTTP Methods
// ==============================================================================

// List handles GET /api/v1/entries
func (h *EntryHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	entries, err := h.Service.List(r.Context(), claims.Subject)
	if err != nil {
		HandleError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// Get handles GET /api/v1/entries/{id}
func (h *EntryHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, id, ok := h.scope(w, r)
	if !ok {
		return
	}

	entry, err := h.Service.Get(r.Context(), id, claims.Subject)
	if err != nil {
		HandleError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// Create handles POST /api/v1/entries
func (h *EntryHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	entry, err := h.Service.Create(r.Context(), claims.Subject, req.toInput())
	if err != nil {
		HandleError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// Update handles PUT /api/v1/entries/{id}
func (h *EntryHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims, id, ok := h.scope(w, r)
	if !ok {
		return
	}

	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	entry, err := h.Service.Update(r.Context(), id, claims.Subject, req.toInput())
	if err != nil {
		HandleError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// Delete handles DELETE /api/v1/entries/{id}
func (h *EntryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, id, ok := h.scope(w, r)
	if !ok {
		return
	}

	if err := h.Service.Delete(r.Context(), id, claims.Subject); err != nil {
		HandleError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// scope resolves the caller and the {id} path parameter.
func (h *EntryHandler) scope(w http.ResponseWriter, r *http.Request) (*domain.UserClaims, uuid.UUID, bool) {
	claims, ok := claimsFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return nil, uuid.Nil, false
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid entry ID format")
		return nil, uuid.Nil, false
	}
	return claims, id, true
}

func (h *EntryHandler) decode(w http.ResponseWriter, r *http.Request) (EntryRequest, bool) {
	var req EntryRequest
	if err := decodeJSON(r, &req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			HandleError(w, r, h.Logger, err)
			return req, false
		}
		writeError(w, http.StatusBadRequest, "Invalid JSON payload")
		return req, false
	}

	if err := validate.Struct(req); err != nil {
		HandleError(w, r, h.Logger, err)
		return req, false
	}
	return req, true
}
