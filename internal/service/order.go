package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/motoforge/storefront/internal/domain"
	"github.com/motoforge/storefront/internal/repository"
	apperrors "github.com/motoforge/storefront/pkg/errors"
	"github.com/motoforge/storefront/pkg/validator"
)

// CreateOrderItemInput is one requested order line.
type CreateOrderItemInput struct {
	ProductID string `json:"productId" validate:"required,max=128"`
	Quantity  int    `json:"quantity" validate:"gte=1,lte=100"`
}

// CreateOrderInput holds the parameters for placing a mock order.
type CreateOrderInput struct {
	CustomerName  string                 `json:"customerName" validate:"required,max=256"`
	CustomerEmail string                 `json:"customerEmail" validate:"required,email"`
	Items         []CreateOrderItemInput `json:"items" validate:"required,min=1,max=50,dive"`
}

// OrderService places mock orders. Prices always come from the catalog and
// payment is simulated by moving each order to processing after a delay.
type OrderService struct {
	repo     repository.OrderRepository
	products repository.ProductRepository
	logger   *slog.Logger
	delay    time.Duration
	now      func() time.Time

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewOrderService creates a new order service. Orders move from pending to
// processing after processingDelay.
func NewOrderService(repo repository.OrderRepository, products repository.ProductRepository, logger *slog.Logger, processingDelay time.Duration) *OrderService {
	return &OrderService{
		repo:     repo,
		products: products,
		logger:   logger,
		delay:    processingDelay,
		now:      time.Now,
		timers:   make(map[string]*time.Timer),
	}
}

// CreateOrder validates and prices input and stores a pending order for
// sessionID.
func (s *OrderService) CreateOrder(ctx context.Context, sessionID string, input CreateOrderInput) (*domain.Order, error) {
	if err := validator.Validate(input); err != nil {
		return nil, err
	}

	items := make([]domain.OrderItem, 0, len(input.Items))
	total := decimal.Zero
	for _, in := range input.Items {
		p, err := s.products.Get(ctx, in.ProductID)
		if err != nil {
			return nil, err
		}
		if !p.InStock {
			return nil, apperrors.InvalidInput(fmt.Sprintf("product %s is out of stock", p.ID))
		}

		unit := decimal.NewFromFloat(p.Price).Round(2)
		line := unit.Mul(decimal.NewFromInt(int64(in.Quantity)))
		items = append(items, domain.OrderItem{
			ProductID: p.ID,
			Name:      p.Name,
			Quantity:  in.Quantity,
			UnitPrice: unit,
			LineTotal: line,
		})
		total = total.Add(line)
	}

	now := s.now().UTC()
	order := &domain.Order{
		ID:            uuid.New().String(),
		SessionID:     sessionID,
		CustomerName:  input.CustomerName,
		CustomerEmail: input.CustomerEmail,
		Items:         items,
		Total:         total,
		Status:        domain.OrderStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.repo.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	s.scheduleProcessing(order.ID)

	s.logger.InfoContext(ctx, "order created",
		slog.String("order_id", order.ID),
		slog.String("session_id", sessionID),
		slog.String("total", order.Total.StringFixed(2)),
	)
	return order, nil
}

// GetOrder retrieves an order by its ID.
func (s *OrderService) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("order id is required")
	}
	return s.repo.Get(ctx, id)
}

// ListOrders returns the orders placed by sessionID, newest first.
func (s *OrderService) ListOrders(ctx context.Context, sessionID string) ([]domain.Order, error) {
	orders, err := s.repo.List(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// Close cancels every pending payment simulation.
func (s *OrderService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}

func (s *OrderService) scheduleProcessing(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.timers[id] = time.AfterFunc(s.delay, func() {
		s.mu.Lock()
		delete(s.timers, id)
		s.mu.Unlock()

		if err := s.repo.UpdateStatus(context.Background(), id, domain.OrderStatusProcessing, s.now().UTC()); err != nil {
			s.logger.Error("failed to move order to processing",
				slog.String("order_id", id),
				slog.String("error", err.Error()),
			)
			return
		}
		s.logger.Info("order processing", slog.String("order_id", id))
	})
}
