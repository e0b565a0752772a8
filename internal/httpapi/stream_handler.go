package httpapi

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/fjod/cart-widget/internal/badge"
	"github.com/fjod/cart-widget/internal/notify"
)

// StreamHandler serves the badge count and notification toasts. The SSE
// endpoints are the page-side equivalent of the widget writing into every
// matching badge element and toast container.
type StreamHandler struct {
	badges   *badge.Hub
	notifier *notify.Hub
}

func NewStreamHandler(badges *badge.Hub, notifier *notify.Hub) *StreamHandler {
	return &StreamHandler{
		badges:   badges,
		notifier: notifier,
	}
}

type BadgeResponseDTO struct {
	Count   int  `json:"count"`
	Visible bool `json:"visible"`
}

func (h *StreamHandler) GetBadge(w http.ResponseWriter, r *http.Request) {
	count := h.badges.Count()
	respondJSON(w, http.StatusOK, BadgeResponseDTO{
		Count:   count,
		Visible: count > 0,
	})
}

func (h *StreamHandler) StreamBadge(w http.ResponseWriter, r *http.Request) {
	flusher, ok := sseHeaders(w)
	if !ok {
		return
	}

	updates, cancel := h.badges.Subscribe()
	defer cancel()

	for {
		select {
		case <-r.Context().Done():
			return
		case count, open := <-updates:
			if !open {
				return
			}
			writeSSE(w, BadgeResponseDTO{Count: count, Visible: count > 0})
			flusher.Flush()
		}
	}
}

func (h *StreamHandler) StreamNotifications(w http.ResponseWriter, r *http.Request) {
	flusher, ok := sseHeaders(w)
	if !ok {
		return
	}

	notifications, cancel := h.notifier.Subscribe()
	defer cancel()

	for {
		select {
		case <-r.Context().Done():
			return
		case n, open := <-notifications:
			if !open {
				return
			}
			writeSSE(w, n)
			flusher.Flush()
		}
	}
}

func sseHeaders(w http.ResponseWriter) (http.Flusher, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming_unsupported", "streaming unsupported")
		return nil, false
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	return flusher, true
}

func writeSSE(w http.ResponseWriter, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		log.Printf("failed to marshal SSE event: %v", err)
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", payload)
}
