package tracking

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"pizzas-pos/internal/logger"
)

// Handler serves the tracking endpoints
type Handler struct {
	service *Service
	logger  *logger.Logger
	name    string
}

// NewHandler creates a tracking handler reporting itself as terminal name
func NewHandler(service *Service, log *logger.Logger, name string) *Handler {
	return &Handler{
		service: service,
		logger:  log,
		name:    name,
	}
}

// ListOrders handles GET /orders
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.service.ListActive())
}

// GetOrderStatus handles GET /orders/{code}/status
func (h *Handler) GetOrderStatus(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	if code == "" {
		h.writeErrorResponse(w, r, http.StatusBadRequest, "Invalid order code")
		return
	}

	status, err := h.service.GetOrderStatus(code)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			h.writeErrorResponse(w, r, http.StatusNotFound, "Order not found")
			return
		}
		h.logger.Error("order_lookup_failed", "Failed to get order status", err, map[string]any{
			"order_code": code,
		})
		h.writeErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, status)
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	healthy := h.service.HealthCheck(r.Context())

	response := map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"terminal":  h.name,
	}
	code := http.StatusOK
	if !healthy {
		code = http.StatusServiceUnavailable
		response["status"] = "unhealthy"
	}
	h.writeJSON(w, code, response)
}

// Register adds the tracking routes to mux
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /orders", h.withLogging(h.ListOrders))
	mux.HandleFunc("GET /orders/{code}/status", h.withLogging(h.GetOrderStatus))
	mux.HandleFunc("GET /health", h.withLogging(h.HealthCheck))
}

func (h *Handler) writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("response_encoding_failed", "Failed to encode response", err, nil)
	}
}

func (h *Handler) writeErrorResponse(w http.ResponseWriter, r *http.Request, code int, message string) {
	h.writeJSON(w, code, map[string]any{
		"error":      message,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"request_id": r.Header.Get(requestIDHeader),
	})
}

const requestIDHeader = "X-Request-ID"

// withLogging tags the request with an id and logs its outcome
func (h *Handler) withLogging(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
			r.Header.Set(requestIDHeader, requestID)
		}
		w.Header().Set(requestIDHeader, requestID)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		h.logger.Debug("request_completed",
			fmt.Sprintf("%s %s - %d", r.Method, r.URL.Path, rw.statusCode),
			map[string]any{
				"request_id":  requestID,
				"status_code": rw.statusCode,
				"duration_ms": time.Since(start).Milliseconds(),
			})
	}
}

// responseWriter captures the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
