package pubsub

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/iLayer-io/iLayer-bot/store"
)

// OrderMessage is the JSON wire form of a ready order.
type OrderMessage struct {
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
}

// NewOrderMessage converts a stored order to its wire form.
func NewOrderMessage(o *store.Order) OrderMessage {
	return OrderMessage{
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
	}
}

// Order converts the message back to an order row without a database id.
func (m OrderMessage) Order() *store.Order {
	return &store.Order{
		ChainID:                  m.ChainID,
		OrderID:                  m.OrderID,
		User:                     m.User,
		Filler:                   m.Filler,
		SourceChainSelector:      m.SourceChainSelector,
		DestinationChainSelector: m.DestinationChainSelector,
		Sponsored:                m.Sponsored,
		PrimaryFillerDeadline:    m.PrimaryFillerDeadline,
		Deadline:                 m.Deadline,
		CallRecipient:            m.CallRecipient,
		CallData:                 m.CallData,
		Status:                   m.Status,
	}
}

// EncodeOrder marshals an order for publishing.
func EncodeOrder(o *store.Order) ([]byte, error) {
	data, err := json.Marshal(NewOrderMessage(o))
	if err != nil {
		return nil, fmt.Errorf("failed to encode order: %w", err)
	}
	return data, nil
}

// DecodeOrder parses a published order. The order id is required.
func DecodeOrder(payload []byte) (*store.Order, error) {
	var msg OrderMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return nil, fmt.Errorf("failed to decode order message: %w", err)
	}
	if len(msg.OrderID) == 0 {
		return nil, fmt.Errorf("order message without order_id")
	}
	return msg.Order(), nil
}
