package watcher

import (
	"bytes"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/iLayer-io/iLayer-bot/store"
)

// ReadyPolicy decides whether a CREATED order may be handed to the filler.
// An order is ready before its deadline, once its primary filler window has
// passed or when this bot is the primary filler.
type ReadyPolicy struct {
	filler []byte // lower||upper form, nil when no filler identity is configured
}

// NewReadyPolicy parses the configured filler address. A 20-byte EVM address
// is placed in the low 20 bytes of the lower word; a 64-byte value is used as is.
func NewReadyPolicy(fillerAddress string) (ReadyPolicy, error) {
	if fillerAddress == "" {
		return ReadyPolicy{}, nil
	}
	raw, err := hexutil.Decode(fillerAddress)
	if err != nil {
		return ReadyPolicy{}, fmt.Errorf("invalid filler address: %w", err)
	}

	switch len(raw) {
	case 64:
		return ReadyPolicy{filler: raw}, nil
	case common.AddressLength:
		filler := make([]byte, 64)
		copy(filler[32-common.AddressLength:32], raw)
		return ReadyPolicy{filler: filler}, nil
	default:
		return ReadyPolicy{}, fmt.Errorf("filler address must be 20 or 64 bytes, got %d", len(raw))
	}
}

// Ready reports whether order can be filled at now.
func (p ReadyPolicy) Ready(order *store.Order, now time.Time) bool {
	if !now.Before(order.Deadline) {
		return false
	}
	if !now.Before(order.PrimaryFillerDeadline) {
		return true
	}
	return p.isPrimaryFiller(order)
}

func (p ReadyPolicy) isPrimaryFiller(order *store.Order) bool {
	return p.filler != nil && bytes.Equal(order.Filler, p.filler)
}
