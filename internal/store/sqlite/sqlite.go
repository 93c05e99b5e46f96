package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/vovakirdan/dsolution-crm/internal/store"
)

//go:embed schema.sql
var schema string

// ErrDuplicate is returned when a UNIQUE constraint rejects an insert.
var ErrDuplicate = errors.New("duplicate record")

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file, or ":memory:".
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, ApplySchema)
}

// NewWithSetup creates a new SQLite store and runs a setup function.
// Useful for tests that need a custom schema.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection; it also keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

// ApplySchema creates all tables and indexes if they do not exist yet.
func ApplySchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// ==== UserStore implementation ====

// CreateUser creates a new user with hashed password.
func (s *SQLiteStore) CreateUser(ctx context.Context, email, passwordHash string, role store.Role) (*store.User, error) {
	query := `
		INSERT INTO users (id, email, password_hash, role, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	id := uuid.NewString()
	if _, err := s.db.ExecContext(ctx, query, id, email, passwordHash, string(role), s.now()); err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("insert user: %w", ErrDuplicate)
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	return s.GetUserByID(ctx, id)
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id string) (*store.User, error) {
	query := `
		SELECT id, email, password_hash, role, created_at
		FROM users
		WHERE id = ?
	`
	return s.scanUser(s.db.QueryRowContext(ctx, query, id))
}

// GetUserByEmail retrieves a user by email.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*store.User, error) {
	query := `
		SELECT id, email, password_hash, role, created_at
		FROM users
		WHERE email = ?
	`
	return s.scanUser(s.db.QueryRowContext(ctx, query, email))
}

func (s *SQLiteStore) scanUser(row *sql.Row) (*store.User, error) {
	var (
		user store.User
		role string
	)
	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &role, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	user.Role = store.Role(role)
	return &user, nil
}

// ==== ServiceStore implementation ====

// CreateServices inserts services in one transaction.
func (s *SQLiteStore) CreateServices(ctx context.Context, services []store.Service) ([]*store.Service, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		INSERT INTO services (id, name, description, created_at)
		VALUES (?, ?, ?, ?)
	`
	created := make([]*store.Service, 0, len(services))
	now := s.now()
	for _, svc := range services {
		svc.ID = uuid.NewString()
		svc.CreatedAt = now
		if _, err := tx.ExecContext(ctx, query, svc.ID, svc.Name, svc.Description, svc.CreatedAt); err != nil {
			return nil, fmt.Errorf("insert service %q: %w", svc.Name, err)
		}
		created = append(created, &svc)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return created, nil
}

// GetService retrieves a service by ID.
func (s *SQLiteStore) GetService(ctx context.Context, id string) (*store.Service, error) {
	query := `
		SELECT id, name, description, created_at
		FROM services
		WHERE id = ?
	`
	var svc store.Service
	err := s.db.QueryRowContext(ctx, query, id).Scan(&svc.ID, &svc.Name, &svc.Description, &svc.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("service: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("query service: %w", err)
	}
	return &svc, nil
}

// ListServices lists the catalog in insertion order.
func (s *SQLiteStore) ListServices(ctx context.Context) ([]*store.Service, error) {
	query := `
		SELECT id, name, description, created_at
		FROM services
		ORDER BY seq ASC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query services: %w", err)
	}
	defer rows.Close()

	services := make([]*store.Service, 0)
	for rows.Next() {
		var svc store.Service
		if err := rows.Scan(&svc.ID, &svc.Name, &svc.Description, &svc.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan service: %w", err)
		}
		services = append(services, &svc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate services: %w", err)
	}

	return services, nil
}

// ==== OrderStore implementation ====

const orderColumns = `id, user_id, service_id, specs, file_url, status, created_at, updated_at`

// CreateOrder persists a new order, assigning ID and timestamps.
func (s *SQLiteStore) CreateOrder(ctx context.Context, order *store.Order) error {
	query := `
		INSERT INTO orders (` + orderColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	order.ID = uuid.NewString()
	order.CreatedAt = s.now()
	order.UpdatedAt = order.CreatedAt
	if order.Status == "" {
		order.Status = store.OrderStatusPending
	}

	_, err := s.db.ExecContext(ctx, query,
		order.ID,
		order.UserID,
		order.ServiceID,
		order.Specs,
		order.FileURL,
		string(order.Status),
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// GetOrder retrieves an order by ID.
func (s *SQLiteStore) GetOrder(ctx context.Context, id string) (*store.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = ?`

	order, err := scanOrder(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("order: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("query order: %w", err)
	}
	return order, nil
}

// ListOrdersByUser lists a user's orders, newest first.
func (s *SQLiteStore) ListOrdersByUser(ctx context.Context, userID string) ([]*store.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE user_id = ? ORDER BY created_at DESC`
	return s.queryOrders(ctx, query, userID)
}

// ListOrders lists all orders, newest first.
func (s *SQLiteStore) ListOrders(ctx context.Context) ([]*store.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC`
	return s.queryOrders(ctx, query)
}

// UpdateOrderStatus changes the status of an order and returns the updated record.
func (s *SQLiteStore) UpdateOrderStatus(ctx context.Context, id string, status store.OrderStatus) (*store.Order, error) {
	query := `
		UPDATE orders
		SET status = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := s.db.ExecContext(ctx, query, string(status), s.now(), id)
	if err != nil {
		return nil, fmt.Errorf("update order: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("order: %w", store.ErrNotFound)
	}

	return s.GetOrder(ctx, id)
}

func (s *SQLiteStore) queryOrders(ctx context.Context, query string, args ...any) ([]*store.Order, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	orders := make([]*store.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}

	return orders, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*store.Order, error) {
	var (
		order  store.Order
		status string
	)
	err := row.Scan(
		&order.ID,
		&order.UserID,
		&order.ServiceID,
		&order.Specs,
		&order.FileURL,
		&status,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	order.Status = store.OrderStatus(status)
	return &order, nil
}

// ==== MessageStore implementation ====

// SaveMessage persists a message to storage.
func (s *SQLiteStore) SaveMessage(ctx context.Context, msg *store.Message) error {
	query := `
		INSERT INTO messages (id, owner_id, body, created_at)
		VALUES (?, ?, ?, ?)
	`
	msg.ID = store.NewMessageID()
	msg.CreatedAt = s.now()

	if _, err := s.db.ExecContext(ctx, query, msg.ID, msg.OwnerID, msg.Body, msg.CreatedAt); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// ListMessages retrieves an owner's messages in chronological order.
// The autoincrement seq breaks ties between identical timestamps.
func (s *SQLiteStore) ListMessages(ctx context.Context, ownerID string) ([]*store.Message, error) {
	query := `
		SELECT id, owner_id, body, created_at
		FROM messages
		WHERE owner_id = ?
		ORDER BY created_at ASC, seq ASC
	`
	rows, err := s.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	messages := make([]*store.Message, 0)
	for rows.Next() {
		var msg store.Message
		if err := rows.Scan(&msg.ID, &msg.OwnerID, &msg.Body, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	return messages, nil
}
