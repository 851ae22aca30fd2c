package orderbook

import (
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/holiman/uint256"

	"github.com/iLayer-io/iLayer-bot/store"
)

// MapOrder projects an OrderCreated payload into a CREATED order row.
// Addresses are stored as lower||upper, selectors as 32-byte little-endian
// integers and deadlines as UTC times. A deadline that does not fit in a
// signed 64-bit unix timestamp is an error.
func MapOrder(chainID uint64, orderID [32]byte, data OrderData) (*store.Order, error) {
	primaryDeadline, err := unixTime(data.PrimaryFillerDeadline)
	if err != nil {
		return nil, fmt.Errorf("primary filler deadline: %w", err)
	}
	deadline, err := unixTime(data.Deadline)
	if err != nil {
		return nil, fmt.Errorf("deadline: %w", err)
	}
	sourceSelector, err := littleEndian32(data.SourceChainSelector)
	if err != nil {
		return nil, fmt.Errorf("source chain selector: %w", err)
	}
	destinationSelector, err := littleEndian32(data.DestinationChainSelector)
	if err != nil {
		return nil, fmt.Errorf("destination chain selector: %w", err)
	}

	order := &store.Order{
		ChainID:                  chainID,
		OrderID:                  append([]byte(nil), orderID[:]...),
		User:                     data.User.Bytes(),
		Filler:                   data.Filler.Bytes(),
		SourceChainSelector:      sourceSelector,
		DestinationChainSelector: destinationSelector,
		Sponsored:                data.Sponsored,
		PrimaryFillerDeadline:    primaryDeadline,
		Deadline:                 deadline,
		Status:                   store.OrderStatusCreated,
	}
	if !data.CallRecipient.IsZero() {
		order.CallRecipient = data.CallRecipient.Bytes()
	}
	if len(data.CallData) > 0 {
		order.CallData = append([]byte(nil), data.CallData...)
	}
	return order, nil
}

func toUint256(v *big.Int) (*uint256.Int, error) {
	if v == nil {
		return new(uint256.Int), nil
	}
	if v.Sign() < 0 {
		return nil, fmt.Errorf("negative value %s", v)
	}
	out, overflow := uint256.FromBig(v)
	if overflow {
		return nil, fmt.Errorf("value %s overflows uint256", v)
	}
	return out, nil
}

func unixTime(v *big.Int) (time.Time, error) {
	n, err := toUint256(v)
	if err != nil {
		return time.Time{}, err
	}
	if !n.IsUint64() || n.Uint64() > math.MaxInt64 {
		return time.Time{}, fmt.Errorf("timestamp %s out of range", n.Dec())
	}
	return time.Unix(int64(n.Uint64()), 0).UTC(), nil
}

func littleEndian32(v *big.Int) ([]byte, error) {
	n, err := toUint256(v)
	if err != nil {
		return nil, err
	}
	be := n.Bytes32()
	out := make([]byte, 32)
	for i := range be {
		out[i] = be[31-i]
	}
	return out, nil
}
