package tracking

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"pizzas-pos/internal/docstore"
	"pizzas-pos/internal/logger"
	"pizzas-pos/internal/models"
)

var ErrOrderNotFound = errors.New("order not found")

// OrderStatusResponse is what a kitchen screen or a waiter's device polls.
type OrderStatusResponse struct {
	Code         string          `json:"code"`
	Status       models.Status   `json:"status"`
	TotalUnits   int             `json:"total_units"`
	PendingUnits int             `json:"pending_units"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	CreatedAt    time.Time       `json:"created_at"`
	ExpiresAt    time.Time       `json:"expires_at"`
	Overdue      bool            `json:"overdue"`
	Items        []ItemStatus    `json:"items"`
}

type ItemStatus struct {
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	Completed bool   `json:"completed"`
}

// Service answers read-only questions about the active orders.
type Service struct {
	orders OrderSource
	store  Lister
	logger *logger.Logger
	now    func() time.Time
}

func NewService(orders OrderSource, store Lister, log *logger.Logger) *Service {
	return &Service{
		orders: orders,
		store:  store,
		logger: log,
		now:    time.Now,
	}
}

// ListActive returns every active order, oldest first.
func (s *Service) ListActive() []OrderStatusResponse {
	active := s.orders.ActiveOrders()
	out := make([]OrderStatusResponse, 0, len(active))
	for _, o := range active {
		out = append(out, s.describe(o))
	}
	return out
}

// GetOrderStatus finds an active order by its code, ignoring case.
func (s *Service) GetOrderStatus(code string) (*OrderStatusResponse, error) {
	for _, o := range s.orders.ActiveOrders() {
		if strings.EqualFold(o.Code, code) {
			resp := s.describe(o)
			return &resp, nil
		}
	}
	return nil, ErrOrderNotFound
}

func (s *Service) describe(o models.Order) OrderStatusResponse {
	resp := OrderStatusResponse{
		Code:        o.Code,
		Status:      o.Status,
		TotalUnits:  o.TotalUnits,
		TotalAmount: o.TotalAmount,
		CreatedAt:   o.CreatedAt,
		ExpiresAt:   o.ExpiresAt,
		Overdue:     !o.ExpiresAt.IsZero() && s.now().After(o.ExpiresAt),
	}
	for _, item := range o.Items() {
		resp.Items = append(resp.Items, ItemStatus{
			Name:      item.Name,
			Quantity:  item.Quantity,
			Completed: item.Completed,
		})
		if !item.Completed {
			resp.PendingUnits += item.Quantity
		}
	}
	return resp
}

// HealthCheck reports whether the order collection can be read.
func (s *Service) HealthCheck(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if _, err := s.store.ListDocuments(ctx, docstore.CollectionOrders); err != nil {
		s.logger.Error("health_check_failed", "Order collection unreachable", err, nil)
		return false
	}
	return true
}
