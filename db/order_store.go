package db

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/iLayer-io/iLayer-bot/store"
)

var _ store.OrderStore = (*OrderStore)(nil)

// OrderStore implements store.OrderStore on top of GORM.
type OrderStore struct {
	database *DB
}

// NewOrderStore creates a new order store
func NewOrderStore(database *DB) *OrderStore {
	return &OrderStore{database: database}
}

// GetByOrderID returns the order with the given id or store.ErrNotFound.
func (s *OrderStore) GetByOrderID(ctx context.Context, orderID []byte) (*store.Order, error) {
	var order store.Order
	err := s.database.Client().WithContext(ctx).
		Where("order_id = ?", orderID).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Wrapf(store.ErrNotFound, "order %x", orderID)
		}
		return nil, errors.Wrap(err, "failed to get order")
	}
	return &order, nil
}

// Insert stores a new order. A second insert with the same order id returns
// store.ErrDuplicateOrder and leaves the first row unchanged.
func (s *OrderStore) Insert(ctx context.Context, order *store.Order) (uint, error) {
	if order == nil {
		return 0, errors.New("order is nil")
	}
	if order.Status == "" {
		order.Status = store.OrderStatusCreated
	}
	if !order.Status.Valid() {
		return 0, errors.Errorf("invalid order status %q", order.Status)
	}

	if err := s.database.Client().WithContext(ctx).Create(order).Error; err != nil {
		if isDuplicateKey(err) {
			return 0, errors.Wrapf(store.ErrDuplicateOrder, "order %x", order.OrderID)
		}
		return 0, errors.Wrap(err, "failed to insert order")
	}
	return order.ID, nil
}

// UpdateStatus moves a CREATED order to status with a single conditional update.
// Replaying the status an order already has succeeds without writing.
func (s *OrderStore) UpdateStatus(ctx context.Context, orderID []byte, status store.OrderStatus) error {
	if !status.Valid() {
		return errors.Wrapf(store.ErrInvalidTransition, "unknown status %q", status)
	}

	if status != store.OrderStatusCreated {
		res := s.database.Client().WithContext(ctx).
			Model(&store.Order{}).
			Where("order_id = ? AND status = ?", orderID, store.OrderStatusCreated).
			Update("status", status)
		if res.Error != nil {
			return errors.Wrap(res.Error, "failed to update order status")
		}
		if res.RowsAffected > 0 {
			return nil
		}
	}

	current, err := s.GetByOrderID(ctx, orderID)
	if err != nil {
		return err
	}
	if current.Status == status {
		return nil
	}
	return errors.Wrapf(store.ErrInvalidTransition, "order %x: %s -> %s", orderID, current.Status, status)
}

// TransitionStatus changes the status only if the order is currently in from.
func (s *OrderStore) TransitionStatus(ctx context.Context, orderID []byte, from, to store.OrderStatus) error {
	if !from.Valid() || !to.Valid() || from.IsTerminal() {
		return errors.Wrapf(store.ErrInvalidTransition, "%s -> %s", from, to)
	}

	res := s.database.Client().WithContext(ctx).
		Model(&store.Order{}).
		Where("order_id = ? AND status = ?", orderID, from).
		Update("status", to)
	if res.Error != nil {
		return errors.Wrap(res.Error, "failed to transition order status")
	}
	if res.RowsAffected > 0 {
		return nil
	}

	current, err := s.GetByOrderID(ctx, orderID)
	if err != nil {
		return err
	}
	return errors.Wrapf(store.ErrInvalidTransition, "order %x is %s, expected %s", orderID, current.Status, from)
}

// ListByChainAndStatus returns the orders of a chain in a given status, oldest first.
func (s *OrderStore) ListByChainAndStatus(ctx context.Context, chainID uint64, status store.OrderStatus) ([]store.Order, error) {
	var orders []store.Order
	if err := s.database.Client().WithContext(ctx).
		Where("chain_id = ? AND status = ?", chainID, status).
		Order("id ASC").
		Find(&orders).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list orders")
	}
	return orders, nil
}

// CountByChainAndStatus returns the number of orders of a chain in a given status.
func (s *OrderStore) CountByChainAndStatus(ctx context.Context, chainID uint64, status store.OrderStatus) (int64, error) {
	var count int64
	if err := s.database.Client().WithContext(ctx).
		Model(&store.Order{}).
		Where("chain_id = ? AND status = ?", chainID, status).
		Count(&count).Error; err != nil {
		return 0, errors.Wrap(err, "failed to count orders")
	}
	return count, nil
}
