package orderbook

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ErrUnrecognizedLog is returned when a log matches none of the order-book events.
var ErrUnrecognizedLog = errors.New("unrecognized order-book log")

// EventKind names a decoded event.
type EventKind string

const (
	KindCreated   EventKind = "created"
	KindFilled    EventKind = "filled"
	KindWithdrawn EventKind = "withdrawn"
)

// DecodedEvent is one of *OrderCreated, *OrderFilled or *OrderWithdrawn.
type DecodedEvent interface {
	Kind() EventKind
	ID() [32]byte
	RawLog() types.Log
}

// OrderCreated is emitted when an order is placed.
type OrderCreated struct {
	OrderId [32]byte
	Order   OrderData
	Raw     types.Log
}

// OrderFilled is emitted when an order is filled.
type OrderFilled struct {
	OrderId [32]byte
	Raw     types.Log
}

// OrderWithdrawn is emitted when the user withdraws an order.
type OrderWithdrawn struct {
	OrderId [32]byte
	Raw     types.Log
}

func (e *OrderCreated) Kind() EventKind   { return KindCreated }
func (e *OrderCreated) ID() [32]byte      { return e.OrderId }
func (e *OrderCreated) RawLog() types.Log { return e.Raw }

func (e *OrderFilled) Kind() EventKind   { return KindFilled }
func (e *OrderFilled) ID() [32]byte      { return e.OrderId }
func (e *OrderFilled) RawLog() types.Log { return e.Raw }

func (e *OrderWithdrawn) Kind() EventKind   { return KindWithdrawn }
func (e *OrderWithdrawn) ID() [32]byte      { return e.OrderId }
func (e *OrderWithdrawn) RawLog() types.Log { return e.Raw }

// Decoder turns raw logs into typed order-book events.
type Decoder struct {
	contract *bind.BoundContract
	abi      abi.ABI
}

// NewDecoder creates a decoder for the embedded order-book ABI.
func NewDecoder() (*Decoder, error) {
	parsed, err := ParseABI()
	if err != nil {
		return nil, err
	}
	return &Decoder{
		contract: bind.NewBoundContract(common.Address{}, parsed, nil, nil, nil),
		abi:      parsed,
	}, nil
}

// Topics returns topic0 of the events the decoder understands.
func (d *Decoder) Topics() []common.Hash {
	return EventTopics(d.abi)
}

// ABI returns the parsed contract ABI.
func (d *Decoder) ABI() abi.ABI {
	return d.abi
}

// Decode tries OrderCreated, OrderFilled then OrderWithdrawn and returns the
// first that decodes. A log matching none returns ErrUnrecognizedLog.
func (d *Decoder) Decode(log types.Log) (DecodedEvent, error) {
	created := new(OrderCreated)
	if err := d.contract.UnpackLog(created, EventOrderCreated, log); err == nil {
		created.Raw = log
		return created, nil
	}

	filled := new(OrderFilled)
	if err := d.contract.UnpackLog(filled, EventOrderFilled, log); err == nil {
		filled.Raw = log
		return filled, nil
	}

	withdrawn := new(OrderWithdrawn)
	if err := d.contract.UnpackLog(withdrawn, EventOrderWithdrawn, log); err == nil {
		withdrawn.Raw = log
		return withdrawn, nil
	}

	return nil, fmt.Errorf("%w: block %d tx %s index %d", ErrUnrecognizedLog, log.BlockNumber, log.TxHash.Hex(), log.Index)
}
