// Package orderbook decodes order-book contract logs and projects them into
// the order table.
package orderbook

import (
	"bytes"
	_ "embed"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const (
	EventOrderCreated   = "OrderCreated"
	EventOrderFilled    = "OrderFilled"
	EventOrderWithdrawn = "OrderWithdrawn"
)

//go:embed orderbook_abi.json
var orderbookABIJSON []byte

// ParseABI parses the embedded order-book contract ABI.
func ParseABI() (abi.ABI, error) {
	parsed, err := abi.JSON(bytes.NewReader(orderbookABIJSON))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("failed to parse order-book abi: %w", err)
	}
	return parsed, nil
}

// EventTopics returns topic0 of every decoded event, in decode order.
func EventTopics(contractABI abi.ABI) []common.Hash {
	return []common.Hash{
		contractABI.Events[EventOrderCreated].ID,
		contractABI.Events[EventOrderFilled].ID,
		contractABI.Events[EventOrderWithdrawn].ID,
	}
}

// Bytes64 is a 64-byte chain-agnostic value (address or selector) split in two words.
// Field order follows the ABI tuple.
type Bytes64 struct {
	Lower [32]byte
	Upper [32]byte
}

// Bytes returns lower||upper.
func (b Bytes64) Bytes() []byte {
	out := make([]byte, 0, 64)
	out = append(out, b.Lower[:]...)
	return append(out, b.Upper[:]...)
}

// IsZero reports whether both words are zero.
func (b Bytes64) IsZero() bool {
	return b.Lower == [32]byte{} && b.Upper == [32]byte{}
}

// OrderData is the order tuple carried by OrderCreated.
type OrderData struct {
	User                     Bytes64
	Filler                   Bytes64
	SourceChainSelector      *big.Int
	DestinationChainSelector *big.Int
	Sponsored                bool
	PrimaryFillerDeadline    *big.Int
	Deadline                 *big.Int
	CallRecipient            Bytes64
	CallData                 []byte
}
