package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/OTapias/alican-teca/models"

	"go.uber.org/zap"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrInvalidStatus = errors.New("invalid order status")
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// OrderStore owns the authoritative order rows.
type OrderStore struct {
	db     *sql.DB
	logger *zap.Logger

	mu       sync.Mutex
	lastUnix int64
}

func NewOrderStore(db *sql.DB, logger *zap.Logger) *OrderStore {
	return &OrderStore{db: db, logger: logger}
}

// nextID returns a time-based caller-opaque id. Two creations in the same
// millisecond get bumped apart so ids stay unique within the process.
func (s *OrderStore) nextID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ms := time.Now().UnixMilli()
	if ms <= s.lastUnix {
		ms = s.lastUnix + 1
	}
	s.lastUnix = ms
	return "order_" + strconv.FormatInt(ms, 10)
}

// Create inserts a pending order and returns it. An insert failure is
// logged and swallowed: checkout must not block on storage availability,
// even though the order may not be durably recorded. The second return
// value reports whether the row actually landed.
func (s *OrderStore) Create(ctx context.Context, req models.CreateOrderRequest) (models.Order, bool) {
	order := models.Order{
		ID:           s.nextID(),
		Items:        req.Items,
		Amount:       req.Amount,
		CurrencyCode: req.CurrencyCode,
		Status:       models.OrderStatusPending,
		CreatedAt:    time.Now().UTC(),
	}

	if s.db == nil {
		s.logger.Warn("No database configured, order not persisted", zap.String("order_id", order.ID))
		return order, false
	}

	itemsJSON, err := json.Marshal(order.Items)
	if err != nil {
		s.logger.Error("Failed to encode order items", zap.String("order_id", order.ID), zap.Error(err))
		return order, false
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO orders (id, items, amount, currency_code, status, created_at) VALUES ($1, $2, $3, $4, $5, $6)",
		order.ID, itemsJSON, order.Amount, order.CurrencyCode, order.Status, order.CreatedAt,
	)
	if err != nil {
		s.logger.Error("Failed to persist order", zap.String("order_id", order.ID), zap.Error(err))
		return order, false
	}

	return order, true
}

func (s *OrderStore) Get(ctx context.Context, id string) (models.Order, error) {
	if s.db == nil {
		return models.Order{}, ErrOrderNotFound
	}

	var order models.Order
	var itemsJSON []byte
	var provider sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT id, items, amount, currency_code, status, provider, created_at FROM orders WHERE id = $1",
		id,
	).Scan(&order.ID, &itemsJSON, &order.Amount, &order.CurrencyCode, &order.Status, &provider, &order.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Order{}, ErrOrderNotFound
		}
		return models.Order{}, err
	}

	order.Provider = provider.String
	if err := json.Unmarshal(itemsJSON, &order.Items); err != nil {
		s.logger.Error("Failed to decode order items", zap.String("order_id", id), zap.Error(err))
	}
	return order, nil
}

// List returns the most recent orders, newest first. The limit is clamped
// to [1, 200] to keep admin scans bounded; zero or negative means default.
func (s *OrderStore) List(ctx context.Context, limit int) ([]models.Order, error) {
	if s.db == nil {
		return nil, nil
	}

	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, items, amount, currency_code, status, provider, created_at FROM orders ORDER BY created_at DESC LIMIT $1",
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		var order models.Order
		var itemsJSON []byte
		var provider sql.NullString
		if err := rows.Scan(&order.ID, &itemsJSON, &order.Amount, &order.CurrencyCode, &order.Status, &provider, &order.CreatedAt); err != nil {
			s.logger.Error("Failed to scan order", zap.Error(err))
			continue
		}
		order.Provider = provider.String
		if err := json.Unmarshal(itemsJSON, &order.Items); err != nil {
			s.logger.Error("Failed to decode order items", zap.String("order_id", order.ID), zap.Error(err))
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

// Update mutates status and/or provider, the only two mutable fields.
// A status outside the vocabulary fails with ErrInvalidStatus before any
// row is touched. With nothing to change it degrades to a read.
func (s *OrderStore) Update(ctx context.Context, id string, req models.UpdateOrderRequest) (models.Order, error) {
	if req.Status != "" && !models.ValidStatus(models.OrderStatus(req.Status)) {
		return models.Order{}, ErrInvalidStatus
	}
	if req.Status == "" && req.Provider == "" {
		return s.Get(ctx, id)
	}
	if s.db == nil {
		return models.Order{}, ErrOrderNotFound
	}

	query := "UPDATE orders SET id = id"
	args := []interface{}{}
	argPos := 1

	if req.Status != "" {
		query += ", status = $" + strconv.Itoa(argPos)
		args = append(args, req.Status)
		argPos++
	}
	if req.Provider != "" {
		query += ", provider = $" + strconv.Itoa(argPos)
		args = append(args, req.Provider)
		argPos++
	}

	query += " WHERE id = $" + strconv.Itoa(argPos) +
		" RETURNING id, items, amount, currency_code, status, provider, created_at"
	args = append(args, id)

	var order models.Order
	var itemsJSON []byte
	var provider sql.NullString
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&order.ID, &itemsJSON, &order.Amount, &order.CurrencyCode, &order.Status, &provider, &order.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Order{}, ErrOrderNotFound
		}
		return models.Order{}, err
	}

	order.Provider = provider.String
	if err := json.Unmarshal(itemsJSON, &order.Items); err != nil {
		s.logger.Error("Failed to decode order items", zap.String("order_id", id), zap.Error(err))
	}

	s.logger.Info("Order updated",
		zap.String("order_id", id),
		zap.String("status", string(order.Status)),
		zap.String("provider", order.Provider),
	)
	return order, nil
}
