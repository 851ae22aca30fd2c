package api

import (
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/iLayer-io/iLayer-bot/store"
)

// QueryResponse represents the standard query response format
type QueryResponse struct {
	Data interface{} `json:"data"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// OrderResponse is the JSON form of an indexed order.
type OrderResponse struct {
	ChainID                  uint64            `json:"chain_id"`
	OrderID                  hexutil.Bytes     `json:"order_id"`
	User                     hexutil.Bytes     `json:"user"`
	Filler                   hexutil.Bytes     `json:"filler"`
	SourceChainSelector      hexutil.Bytes     `json:"source_chain_selector"`
	DestinationChainSelector hexutil.Bytes     `json:"destination_chain_selector"`
	Sponsored                bool              `json:"sponsored"`
	PrimaryFillerDeadline    time.Time         `json:"primary_filler_deadline"`
	Deadline                 time.Time         `json:"deadline"`
	CallRecipient            hexutil.Bytes     `json:"call_recipient,omitempty"`
	CallData                 hexutil.Bytes     `json:"call_data,omitempty"`
	Status                   store.OrderStatus `json:"status"`
	CreatedAt                time.Time         `json:"created_at"`
	UpdatedAt                time.Time         `json:"updated_at"`
}

// CheckpointResponse reports the read position of a chain.
type CheckpointResponse struct {
	ChainID uint64 `json:"chain_id"`
	Height  uint64 `json:"height"`
	Found   bool   `json:"found"`
}

// StatsResponse counts the orders of a chain by status.
type StatsResponse struct {
	ChainID            uint64                      `json:"chain_id"`
	Orders             map[store.OrderStatus]int64 `json:"orders"`
	PendingTransitions int64                       `json:"pending_transitions"`
}

func newOrderResponse(o *store.Order) OrderResponse {
	return OrderResponse{
		ChainID:                  o.ChainID,
		OrderID:                  o.OrderID,
		User:                     o.User,
		Filler:                   o.Filler,
		SourceChainSelector:      o.SourceChainSelector,
		DestinationChainSelector: o.DestinationChainSelector,
		Sponsored:                o.Sponsored,
		PrimaryFillerDeadline:    o.PrimaryFillerDeadline.UTC(),
		Deadline:                 o.Deadline.UTC(),
		CallRecipient:            o.CallRecipient,
		CallData:                 o.CallData,
		Status:                   o.Status,
		CreatedAt:                o.CreatedAt.UTC(),
		UpdatedAt:                o.UpdatedAt.UTC(),
	}
}
