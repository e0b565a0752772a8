package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/fjod/cart-widget/internal/badge"
	"github.com/fjod/cart-widget/internal/cart"
	"github.com/fjod/cart-widget/internal/notify"
	"github.com/fjod/cart-widget/internal/view"
)

type Deps struct {
	Cart           *cart.Cart
	Renderer       *view.Renderer
	Badges         *badge.Hub
	Notifier       *notify.Hub
	NewFlow        FlowFactory
	RequestTimeout time.Duration
}

func NewRouter(d Deps) http.Handler {
	cartHandler := NewCartHandler(d.Cart, d.Renderer)
	checkoutHandler := NewCheckoutHandler(d.NewFlow)
	streamHandler := NewStreamHandler(d.Badges, d.Notifier)

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(middleware.Compress(5))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/cart", func(r chi.Router) {
			r.Use(middleware.Timeout(d.RequestTimeout))

			r.Get("/", cartHandler.GetCart)
			r.Delete("/", cartHandler.ClearCart)
			r.Get("/view", cartHandler.GetView)
			r.Get("/badge", streamHandler.GetBadge)
			r.Post("/items", cartHandler.AddItem)
			r.Put("/items/{index}", cartHandler.UpdateQuantity)
			r.Post("/items/{index}/quantity", cartHandler.ChangeQuantity)
			r.Delete("/items/{index}", cartHandler.RemoveItem)
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Use(middleware.Timeout(d.RequestTimeout))

			r.Post("/", checkoutHandler.Begin)
			r.Post("/{id}", checkoutHandler.Submit)
			r.Delete("/{id}", checkoutHandler.Cancel)
		})

		// SSE endpoints stay outside the timeout middleware; they are
		// long-lived by design.
		r.Route("/stream", func(r chi.Router) {
			r.Get("/badge", streamHandler.StreamBadge)
			r.Get("/notifications", streamHandler.StreamNotifications)
		})
	})

	return r
}
