package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fjod/cart-widget/internal/cart"
	"github.com/fjod/cart-widget/internal/domain"
	"github.com/fjod/cart-widget/internal/view"
)

type CartHandler struct {
	cart     *cart.Cart
	renderer *view.Renderer
}

func NewCartHandler(c *cart.Cart, r *view.Renderer) *CartHandler {
	return &CartHandler{
		cart:     c,
		renderer: r,
	}
}

type AddItemRequestDTO struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
	Image    string  `json:"image"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type ChangeQuantityRequestDTO struct {
	Delta int `json:"delta"`
}

type CartResponseDTO struct {
	Items []domain.LineItem `json:"items"`
	Total float64           `json:"total"`
	Count int               `json:"count"`
}

func (h *CartHandler) snapshot() CartResponseDTO {
	return CartResponseDTO{
		Items: h.cart.Items(),
		Total: h.cart.Total(),
		Count: h.cart.ItemCount(),
	}
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.snapshot())
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if req.Price < 0 {
		respondError(w, http.StatusBadRequest, "invalid_price", "price must not be negative")
		return
	}

	product := domain.LineItem{
		ID:    req.ID,
		Name:  req.Name,
		Price: req.Price,
		Image: req.Image,
	}
	if !h.cart.AddItem(r.Context(), product, req.Quantity) {
		respondError(w, http.StatusBadRequest, "invalid_product", "product must have an id")
		return
	}

	respondJSON(w, http.StatusCreated, h.snapshot())
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	index, ok := parseIndex(w, r)
	if !ok {
		return
	}

	if !h.cart.RemoveItem(r.Context(), index) {
		respondError(w, http.StatusNotFound, "index_out_of_range", "no cart item at that index")
		return
	}

	respondJSON(w, http.StatusOK, h.snapshot())
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	index, ok := parseIndex(w, r)
	if !ok {
		return
	}

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if !h.cart.UpdateQuantity(r.Context(), index, req.Quantity) {
		respondError(w, http.StatusBadRequest, "invalid_update", "index out of range or quantity not positive")
		return
	}

	respondJSON(w, http.StatusOK, h.snapshot())
}

func (h *CartHandler) ChangeQuantity(w http.ResponseWriter, r *http.Request) {
	index, ok := parseIndex(w, r)
	if !ok {
		return
	}

	var req ChangeQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if !h.cart.ChangeQuantity(r.Context(), index, req.Delta) {
		respondError(w, http.StatusNotFound, "index_out_of_range", "no cart item at that index")
		return
	}

	respondJSON(w, http.StatusOK, h.snapshot())
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	h.cart.Clear(r.Context())
	respondJSON(w, http.StatusOK, h.snapshot())
}

// GetView serves the rendered modal fragment. Always rendered from the
// live snapshot; nothing is cached.
func (h *CartHandler) GetView(w http.ResponseWriter, r *http.Request) {
	fragment, err := h.renderer.RenderItems(h.cart.Items(), h.cart.Total())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "render_failed", "failed to render cart")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(fragment))
}

func parseIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	indexStr := chi.URLParam(r, "index")
	index, err := strconv.Atoi(indexStr)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_index", "index must be an integer")
		return 0, false
	}
	return index, true
}
