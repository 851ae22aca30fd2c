package orderbook

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
)

var (
	testContract = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	testUser     = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	testFiller   = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
)

// addressBytes64 packs an EVM address into the lower word, left padded.
func addressBytes64(addr common.Address) Bytes64 {
	var b Bytes64
	copy(b.Lower[12:], addr.Bytes())
	return b
}

func fixtureOrderData() OrderData {
	return OrderData{
		User:                     addressBytes64(testUser),
		Filler:                   addressBytes64(testFiller),
		SourceChainSelector:      big.NewInt(31337),
		DestinationChainSelector: big.NewInt(31337),
		Sponsored:                false,
		PrimaryFillerDeadline:    big.NewInt(1735566882),
		Deadline:                 big.NewInt(1755556882),
		CallRecipient:            Bytes64{},
		CallData:                 nil,
	}
}

func orderIDFor(b byte) [32]byte {
	var id [32]byte
	id[31] = b
	return id
}

func createdLog(t *testing.T, orderID [32]byte, data OrderData, block uint64, index uint) types.Log {
	t.Helper()
	parsed, err := ParseABI()
	require.NoError(t, err)

	ev := parsed.Events[EventOrderCreated]
	payload, err := ev.Inputs.NonIndexed().Pack(data)
	require.NoError(t, err)

	return types.Log{
		Address:     testContract,
		Topics:      []common.Hash{ev.ID, common.Hash(orderID)},
		Data:        payload,
		BlockNumber: block,
		Index:       index,
		TxHash:      common.BigToHash(big.NewInt(int64(block*1000) + int64(index))),
	}
}

func terminalLog(t *testing.T, event string, orderID [32]byte, block uint64, index uint) types.Log {
	t.Helper()
	parsed, err := ParseABI()
	require.NoError(t, err)

	return types.Log{
		Address:     testContract,
		Topics:      []common.Hash{parsed.Events[event].ID, common.Hash(orderID)},
		BlockNumber: block,
		Index:       index,
		TxHash:      common.BigToHash(big.NewInt(int64(block*1000) + int64(index))),
	}
}
