package db

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/iLayer-io/iLayer-bot/store"
)

var _ store.CheckpointStore = (*CheckpointStore)(nil)

// CheckpointStore implements store.CheckpointStore. Every append is a new row;
// the resume position is the maximum height per chain.
type CheckpointStore struct {
	database *DB
}

// NewCheckpointStore creates a new checkpoint store
func NewCheckpointStore(database *DB) *CheckpointStore {
	return &CheckpointStore{database: database}
}

// GetLastCheckpoint returns the highest recorded height for the chain.
func (s *CheckpointStore) GetLastCheckpoint(ctx context.Context, chainID uint64) (uint64, bool, error) {
	cp, err := lastCheckpoint(s.database.Client().WithContext(ctx), chainID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, false, nil
		}
		return 0, false, errors.Wrap(err, "failed to get last checkpoint")
	}
	return cp.Height, true, nil
}

// AppendCheckpoint records height for the chain. A height below the current
// maximum is rejected, an equal height is accepted.
func (s *CheckpointStore) AppendCheckpoint(ctx context.Context, chainID, height uint64) error {
	return s.database.Client().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		last, err := lastCheckpoint(tx, chainID)
		switch {
		case err == nil:
			if height < last.Height {
				return errors.Wrapf(store.ErrCheckpointRegression, "chain %d: %d < %d", chainID, height, last.Height)
			}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return errors.Wrap(err, "failed to read last checkpoint")
		}

		cp := store.BlockCheckpoint{ChainID: chainID, Height: height}
		if err := tx.Create(&cp).Error; err != nil {
			return errors.Wrap(err, "failed to append checkpoint")
		}
		return nil
	})
}

func lastCheckpoint(tx *gorm.DB, chainID uint64) (*store.BlockCheckpoint, error) {
	var cp store.BlockCheckpoint
	err := tx.
		Where("chain_id = ?", chainID).
		Order("height DESC").
		First(&cp).Error
	if err != nil {
		return nil, err
	}
	return &cp, nil
}
