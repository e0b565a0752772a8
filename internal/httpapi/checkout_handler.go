package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/fjod/cart-widget/internal/checkout"
	"github.com/fjod/cart-widget/internal/domain"
)

// FlowFactory builds a fresh checkout flow per session. Flows are
// single-shot, so every begin gets its own.
type FlowFactory func() *checkout.Flow

type CheckoutHandler struct {
	newFlow FlowFactory

	mu    sync.Mutex
	flows map[string]*checkout.Flow
}

func NewCheckoutHandler(newFlow FlowFactory) *CheckoutHandler {
	return &CheckoutHandler{
		newFlow: newFlow,
		flows:   make(map[string]*checkout.Flow),
	}
}

type CheckoutResponseDTO struct {
	CheckoutID string `json:"checkout_id"`
	State      string `json:"state"`
}

type SubmitResponseDTO struct {
	Success   bool   `json:"success"`
	InitPoint string `json:"init_point"`
}

func (h *CheckoutHandler) Begin(w http.ResponseWriter, r *http.Request) {
	flow := h.newFlow()

	if err := flow.Begin(); err != nil {
		if errors.Is(err, checkout.ErrEmptyCart) {
			respondError(w, http.StatusConflict, "empty_cart", "cart is empty")
			return
		}
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to start checkout")
		return
	}

	h.mu.Lock()
	h.flows[flow.ID()] = flow
	h.mu.Unlock()

	respondJSON(w, http.StatusCreated, CheckoutResponseDTO{
		CheckoutID: flow.ID(),
		State:      flow.State().String(),
	})
}

func (h *CheckoutHandler) Submit(w http.ResponseWriter, r *http.Request) {
	flow, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var data domain.CustomerData
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	initPoint, err := flow.Submit(r.Context(), data)
	if err != nil {
		switch {
		case errors.Is(err, checkout.ErrInvalidCustomerData):
			// Flow stays open for correction; the session is kept.
			respondError(w, http.StatusUnprocessableEntity, "invalid_customer_data", err.Error())
		case errors.Is(err, checkout.ErrInvalidState):
			respondError(w, http.StatusConflict, "invalid_state", err.Error())
		default:
			log.Printf("checkout %s failed, request %s: %v", flow.ID(), getRequestID(r.Context()), err)
			h.remove(flow.ID())
			respondError(w, http.StatusBadGateway, "order_creation_failed", err.Error())
		}
		return
	}

	h.remove(flow.ID())
	respondJSON(w, http.StatusOK, SubmitResponseDTO{
		Success:   true,
		InitPoint: initPoint,
	})
}

func (h *CheckoutHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	flow, ok := h.lookup(w, r)
	if !ok {
		return
	}

	if err := flow.Cancel(); err != nil {
		respondError(w, http.StatusConflict, "invalid_state", err.Error())
		return
	}

	h.remove(flow.ID())
	respondJSON(w, http.StatusOK, CheckoutResponseDTO{
		CheckoutID: flow.ID(),
		State:      flow.State().String(),
	})
}

func (h *CheckoutHandler) lookup(w http.ResponseWriter, r *http.Request) (*checkout.Flow, bool) {
	id := chi.URLParam(r, "id")

	h.mu.Lock()
	flow, ok := h.flows[id]
	h.mu.Unlock()

	if !ok {
		respondError(w, http.StatusNotFound, "checkout_not_found", "no such checkout session")
		return nil, false
	}
	return flow, true
}

func (h *CheckoutHandler) remove(id string) {
	h.mu.Lock()
	delete(h.flows, id)
	h.mu.Unlock()
}
