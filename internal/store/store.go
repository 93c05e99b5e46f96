package store

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// Role defines what a user may do.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleStaff    Role = "staff"
)

// User represents a registered account.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}

// Service is an entry of the service catalog.
type Service struct {
	ID          string
	Name        string
	Description string
	CreatedAt   time.Time
}

// OrderStatus defines the order lifecycle.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusInProgress OrderStatus = "in_progress"
	OrderStatusCompleted  OrderStatus = "completed"
)

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusInProgress, OrderStatusCompleted:
		return true
	}
	return false
}

// Order is a customer request for a catalog service.
type Order struct {
	ID        string
	UserID    string
	ServiceID string
	Specs     string
	FileURL   string
	Status    OrderStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Message represents a persisted chat message. Messages are immutable.
type Message struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// NewMessageID returns a lexically sortable, process-monotonic message id.
func NewMessageID() string {
	return ulid.Make().String()
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser creates a new user with hashed password.
	CreateUser(ctx context.Context, email, passwordHash string, role Role) (*User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id string) (*User, error)

	// GetUserByEmail retrieves a user by email.
	GetUserByEmail(ctx context.Context, email string) (*User, error)
}

// ServiceStore handles the service catalog.
type ServiceStore interface {
	// CreateServices inserts services in one transaction and returns them with ids assigned.
	CreateServices(ctx context.Context, services []Service) ([]*Service, error)

	// GetService retrieves a service by ID.
	GetService(ctx context.Context, id string) (*Service, error)

	// ListServices lists the catalog in insertion order.
	ListServices(ctx context.Context) ([]*Service, error)
}

// OrderStore handles order persistence.
type OrderStore interface {
	CreateOrder(ctx context.Context, order *Order) error
	GetOrder(ctx context.Context, id string) (*Order, error)
	ListOrdersByUser(ctx context.Context, userID string) ([]*Order, error)
	ListOrders(ctx context.Context) ([]*Order, error)
	UpdateOrderStatus(ctx context.Context, id string, status OrderStatus) (*Order, error)
}

// MessageStore handles message persistence.
type MessageStore interface {
	// SaveMessage persists a message, assigning ID and CreatedAt.
	SaveMessage(ctx context.Context, msg *Message) error

	// ListMessages returns every message of the owner, oldest first.
	// Messages with equal CreatedAt keep their insertion order.
	ListMessages(ctx context.Context, ownerID string) ([]*Message, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	ServiceStore
	OrderStore
	MessageStore

	// Close closes the underlying database connection.
	Close() error
}
