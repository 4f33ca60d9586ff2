package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/devops-golf-s17/wishlists/internal/domain"
	"github.com/devops-golf-s17/wishlists/internal/service"
	apperrors "github.com/devops-golf-s17/wishlists/pkg/errors"
	"github.com/devops-golf-s17/wishlists/pkg/httputil"
	"github.com/devops-golf-s17/wishlists/pkg/validator"
)

// WishlistHandler handles HTTP requests for wishlist endpoints.
type WishlistHandler struct {
	service *service.WishlistService
	logger  *slog.Logger
}

// NewWishlistHandler creates a new wishlist HTTP handler.
func NewWishlistHandler(svc *service.WishlistService, logger *slog.Logger) *WishlistHandler {
	return &WishlistHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// CreateWishlistRequest is the JSON request body for creating a wishlist.
type CreateWishlistRequest struct {
	Name   string `json:"name" validate:"required,notblank,max=255"`
	UserID string `json:"user_id" validate:"max=255"`
}

// UpdateWishlistRequest is the JSON request body for updating a wishlist.
// Only name and user_id are honoured; any other field is ignored.
type UpdateWishlistRequest struct {
	Name   *string `json:"name" validate:"omitempty,notblank,max=255"`
	UserID *string `json:"user_id" validate:"omitempty,max=255"`
}

func (r UpdateWishlistRequest) patch() domain.WishlistPatch {
	return domain.WishlistPatch{Name: r.Name, UserID: r.UserID}
}

// --- Handlers ---

// Create handles POST /wishlists
func (h *WishlistHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateWishlistRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	wl, err := h.service.Create(r.Context(), service.CreateWishlistInput{
		Name:   req.Name,
		UserID: req.UserID,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	httputil.WriteCreated(w, wishlistLocation(wl.ID), domain.Encode(wl))
}

// List handles GET /wishlists
func (h *WishlistHandler) List(w http.ResponseWriter, r *http.Request) {
	includeDeleted := false
	if raw := r.URL.Query().Get("include_deleted"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "include_deleted must be a boolean"},
			})
			return
		}
		includeDeleted = v
	}

	wishlists, err := h.service.List(r.Context(), includeDeleted)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	records := make([]domain.Record, 0, len(wishlists))
	for _, wl := range wishlists {
		records = append(records, domain.Encode(wl))
	}
	httputil.WriteData(w, http.StatusOK, records)
}

// Get handles GET /wishlists/{id}
func (h *WishlistHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	wl, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	httputil.WriteData(w, http.StatusOK, domain.Encode(wl))
}

// Update handles PUT /wishlists/{id}
func (h *WishlistHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req UpdateWishlistRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	wl, err := h.service.Update(r.Context(), id, req.patch())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	httputil.WriteData(w, http.StatusOK, domain.Encode(wl))
}

// Delete handles DELETE /wishlists/{id}. The wishlist is soft-deleted; an
// unknown id still answers 204.
func (h *WishlistHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.SoftDelete(r.Context(), id); err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		h.writeError(w, r, err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *WishlistHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	httputil.WriteError(w, r, err, h.logger)
}

func wishlistLocation(id int64) string {
	return fmt.Sprintf("/wishlists/%d", id)
}
