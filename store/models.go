// Package store contains the GORM models and repository contracts used by the
// iLayer bot.
//
// Database structure:
//
//	orders               one row per order id, status CREATED -> FILLED | WITHDRAWN
//	block_checkpoints    append-only (chain_id, height, processed_at) progress markers
//	pending_transitions  terminal events observed before their order was indexed
package store

import (
	"time"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusCreated   OrderStatus = "CREATED"
	OrderStatusFilled    OrderStatus = "FILLED"
	OrderStatusWithdrawn OrderStatus = "WITHDRAWN"
)

// IsTerminal reports whether no further transition is allowed out of s.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusFilled || s == OrderStatusWithdrawn
}

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusCreated, OrderStatusFilled, OrderStatusWithdrawn:
		return true
	}
	return false
}

// Order is an order-book order projected from OrderCreated logs.
type Order struct {
	ID                       uint        `gorm:"primaryKey"`
	ChainID                  uint64      `gorm:"not null;index:idx_orders_chain_status"`
	OrderID                  []byte      `gorm:"not null;uniqueIndex"`    // bytes32 order identifier
	User                     []byte      `gorm:"not null"`                // lower||upper, chain-native address
	Filler                   []byte      `gorm:"not null"`                // lower||upper, chain-native address
	SourceChainSelector      []byte      `gorm:"not null"`                // little-endian uint256
	DestinationChainSelector []byte      `gorm:"not null"`                // little-endian uint256
	Sponsored                bool        `gorm:"not null"`
	PrimaryFillerDeadline    time.Time   `gorm:"not null"`
	Deadline                 time.Time   `gorm:"not null"`
	CallRecipient            []byte      // nil when the order carries no call
	CallData                 []byte
	Status                   OrderStatus `gorm:"type:varchar(16);not null;index:idx_orders_chain_status"`
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

// BlockCheckpoint marks the highest block of a chain whose logs were fully processed.
// Rows are only ever appended.
type BlockCheckpoint struct {
	ID          uint      `gorm:"primaryKey"`
	ChainID     uint64    `gorm:"not null;index:idx_checkpoints_chain_height"`
	Height      uint64    `gorm:"not null;index:idx_checkpoints_chain_height"`
	ProcessedAt time.Time `gorm:"autoCreateTime"`
}

// PendingTransition buffers a FILLED/WITHDRAWN event whose order has not been
// created yet. It is applied and removed once the order is projected.
type PendingTransition struct {
	ID          uint        `gorm:"primaryKey"`
	ChainID     uint64      `gorm:"not null"`
	OrderID     []byte      `gorm:"not null;uniqueIndex"`
	Status      OrderStatus `gorm:"type:varchar(16);not null"`
	BlockNumber uint64
	CreatedAt   time.Time
}
