package db

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/iLayer-io/iLayer-bot/store"
)

var _ store.PendingTransitionStore = (*PendingStore)(nil)

// PendingStore implements store.PendingTransitionStore.
type PendingStore struct {
	database *DB
}

// NewPendingStore creates a new pending transition store
func NewPendingStore(database *DB) *PendingStore {
	return &PendingStore{database: database}
}

// Put stores the transition, replacing any earlier one for the same order id.
func (s *PendingStore) Put(ctx context.Context, pending *store.PendingTransition) error {
	if pending == nil {
		return errors.New("pending transition is nil")
	}
	if !pending.Status.IsTerminal() {
		return errors.Wrapf(store.ErrInvalidTransition, "pending status %q", pending.Status)
	}

	err := s.database.Client().WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "order_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"chain_id", "status", "block_number"}),
		}).
		Create(pending).Error
	if err != nil {
		return errors.Wrap(err, "failed to store pending transition")
	}
	return nil
}

// Take removes and returns the buffered transition for the order id.
func (s *PendingStore) Take(ctx context.Context, orderID []byte) (*store.PendingTransition, error) {
	var pending store.PendingTransition
	err := s.database.Client().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", orderID).First(&pending).Error; err != nil {
			return err
		}
		return tx.Delete(&store.PendingTransition{}, pending.ID).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Wrapf(store.ErrNotFound, "pending transition %x", orderID)
		}
		return nil, errors.Wrap(err, "failed to take pending transition")
	}
	return &pending, nil
}

// CountByChain returns the number of transitions buffered for a chain.
func (s *PendingStore) CountByChain(ctx context.Context, chainID uint64) (int64, error) {
	var count int64
	if err := s.database.Client().WithContext(ctx).
		Model(&store.PendingTransition{}).
		Where("chain_id = ?", chainID).
		Count(&count).Error; err != nil {
		return 0, errors.Wrap(err, "failed to count pending transitions")
	}
	return count, nil
}
