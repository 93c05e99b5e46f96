package orders

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/dsolution-crm/internal/metrics"
	"github.com/vovakirdan/dsolution-crm/internal/objectstore"
	"github.com/vovakirdan/dsolution-crm/internal/store"
)

// Common errors for order operations.
var (
	ErrInvalidOrder    = errors.New("invalid order")
	ErrServiceNotFound = errors.New("service not found")
	ErrOrderNotFound   = errors.New("order not found")
	ErrInvalidStatus   = errors.New("invalid order status")
)

var validate = validator.New()

// CreateInput describes a new order. File is optional.
type CreateInput struct {
	UserID    string `validate:"required"`
	ServiceID string `validate:"required"`
	Specs     string `validate:"required,max=4000"`
	FileName  string
	File      io.Reader
}

// Service provides order business logic.
type Service struct {
	orders   store.OrderStore
	services store.ServiceStore
	objects  objectstore.Store
	log      *zerolog.Logger
}

// New creates an order service. objects may be nil when attachments are disabled.
func New(orders store.OrderStore, services store.ServiceStore, objects objectstore.Store, logger *zerolog.Logger) *Service {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Service{
		orders:   orders,
		services: services,
		objects:  objects,
		log:      logger,
	}
}

// Create validates the input, stores the attachment and records a pending order.
func (s *Service) Create(ctx context.Context, in CreateInput) (*store.Order, error) {
	in.Specs = strings.TrimSpace(in.Specs)
	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOrder, err)
	}

	if _, err := s.services.GetService(ctx, in.ServiceID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrServiceNotFound
		}
		return nil, fmt.Errorf("get service: %w", err)
	}

	order := &store.Order{
		UserID:    in.UserID,
		ServiceID: in.ServiceID,
		Specs:     in.Specs,
		Status:    store.OrderStatusPending,
	}

	if in.File != nil {
		if s.objects == nil {
			return nil, fmt.Errorf("%w: attachments are disabled", ErrInvalidOrder)
		}
		url, err := s.objects.Put(ctx, in.FileName, in.File)
		if err != nil {
			return nil, fmt.Errorf("store attachment: %w", err)
		}
		order.FileURL = url
	}

	if err := s.orders.CreateOrder(ctx, order); err != nil {
		if order.FileURL != "" {
			s.discardAttachment(order.FileURL)
		}
		return nil, fmt.Errorf("create order: %w", err)
	}
	metrics.OrdersCreated.Inc()
	s.log.Info().Str("order_id", order.ID).Str("user_id", order.UserID).Str("service_id", order.ServiceID).Msg("order created")
	return order, nil
}

func (s *Service) discardAttachment(url string) {
	// The request context may already be done; cleanup must still run.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.objects.Delete(ctx, url); err != nil {
		s.log.Warn().Err(err).Str("object", url).Msg("orphaned attachment")
	}
}

// List returns the orders placed by userID.
func (s *Service) List(ctx context.Context, userID string) ([]*store.Order, error) {
	orders, err := s.orders.ListOrdersByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// ListAll returns every order.
func (s *Service) ListAll(ctx context.Context) ([]*store.Order, error) {
	orders, err := s.orders.ListOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// Get returns an order by id.
func (s *Service) Get(ctx context.Context, id string) (*store.Order, error) {
	order, err := s.orders.GetOrder(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return order, nil
}

// GetFor returns the order when userID owns it or staff is set.
// Orders of other users are reported as not found.
func (s *Service) GetFor(ctx context.Context, id, userID string, staff bool) (*store.Order, error) {
	order, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !staff && order.UserID != userID {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// UpdateStatus moves an order to status.
func (s *Service) UpdateStatus(ctx context.Context, id string, status store.OrderStatus) (*store.Order, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	order, err := s.orders.UpdateOrderStatus(ctx, id, status)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("update order status: %w", err)
	}
	s.log.Info().Str("order_id", id).Str("status", string(status)).Msg("order status updated")
	return order, nil
}
