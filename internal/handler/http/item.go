package http

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/devops-golf-s17/wishlists/internal/domain"
	"github.com/devops-golf-s17/wishlists/internal/service"
	apperrors "github.com/devops-golf-s17/wishlists/pkg/errors"
	"github.com/devops-golf-s17/wishlists/pkg/httputil"
	"github.com/devops-golf-s17/wishlists/pkg/validator"
)

// AddItemRequest is the JSON request body for adding an item to a wishlist.
type AddItemRequest struct {
	ItemID      string `json:"item_id" validate:"required,notblank,max=255,excludes=/,ne=clear"`
	Description string `json:"description" validate:"max=2048"`
}

// UpdateItemRequest is the JSON request body for updating an item.
type UpdateItemRequest struct {
	Description *string `json:"description" validate:"required,max=2048"`
}

// AddItem handles POST /wishlists/{id}/items
func (h *WishlistHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req AddItemRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	item, err := h.service.AddItem(r.Context(), id, service.AddItemInput{
		ItemID:      req.ItemID,
		Description: req.Description,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	httputil.WriteCreated(w, itemLocation(id, item.ID), item)
}

// ListItems handles GET /wishlists/{id}/items
func (h *WishlistHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	items, err := h.service.ListItems(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	httputil.WriteData(w, http.StatusOK, items)
}

// GetItem handles GET /wishlists/{id}/items/{item_id}
func (h *WishlistHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	item, err := h.service.GetItem(r.Context(), id, chi.URLParam(r, "item_id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	httputil.WriteData(w, http.StatusOK, item)
}

// UpdateItem handles PUT /wishlists/{id}/items/{item_id}
func (h *WishlistHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req UpdateItemRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	item, err := h.service.UpdateItem(r.Context(), id, chi.URLParam(r, "item_id"), *req.Description)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	httputil.WriteData(w, http.StatusOK, item)
}

// RemoveItem handles DELETE /wishlists/{id}/items/{item_id}. Missing
// wishlists or items still answer 204.
func (h *WishlistHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	err := h.service.RemoveItem(r.Context(), id, chi.URLParam(r, "item_id"))
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) && !errors.Is(err, apperrors.ErrItemNotFound) {
		h.writeError(w, r, err)
		return
	}

	httputil.WriteNoContent(w)
}

// ClearItems handles PUT /wishlists/{id}/items/clear
func (h *WishlistHandler) ClearItems(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	wl, err := h.service.ClearItems(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	httputil.WriteData(w, http.StatusOK, domain.Encode(wl))
}

func itemLocation(wishlistID int64, itemID string) string {
	return wishlistLocation(wishlistID) + "/items/" + url.PathEscape(itemID)
}
