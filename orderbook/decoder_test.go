package orderbook

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseABI(t *testing.T) {
	parsed, err := ParseABI()
	require.NoError(t, err)

	for _, name := range []string{EventOrderCreated, EventOrderFilled, EventOrderWithdrawn} {
		ev, ok := parsed.Events[name]
		require.True(t, ok, name)
		assert.Equal(t, "orderId", ev.Inputs[0].Name)
		assert.True(t, ev.Inputs[0].Indexed)
	}

	topics := EventTopics(parsed)
	require.Len(t, topics, 3)
	assert.Equal(t, parsed.Events[EventOrderCreated].ID, topics[0])
	assert.NotEqual(t, topics[1], topics[2])
}

func TestDecoder_Decode(t *testing.T) {
	decoder, err := NewDecoder()
	require.NoError(t, err)

	t.Run("order created", func(t *testing.T) {
		id := orderIDFor(1)
		data := fixtureOrderData()
		data.Sponsored = true
		data.CallData = []byte{0xca, 0xfe}
		log := createdLog(t, id, data, 10, 2)

		event, err := decoder.Decode(log)
		require.NoError(t, err)
		assert.Equal(t, KindCreated, event.Kind())
		assert.Equal(t, id, event.ID())
		assert.Equal(t, uint64(10), event.RawLog().BlockNumber)

		created, ok := event.(*OrderCreated)
		require.True(t, ok)
		assert.Equal(t, data.User, created.Order.User)
		assert.Equal(t, data.Filler, created.Order.Filler)
		assert.Equal(t, int64(31337), created.Order.SourceChainSelector.Int64())
		assert.Equal(t, int64(1755556882), created.Order.Deadline.Int64())
		assert.True(t, created.Order.Sponsored)
		assert.Equal(t, []byte{0xca, 0xfe}, created.Order.CallData)
	})

	t.Run("order filled", func(t *testing.T) {
		id := orderIDFor(2)
		event, err := decoder.Decode(terminalLog(t, EventOrderFilled, id, 11, 0))
		require.NoError(t, err)
		assert.Equal(t, KindFilled, event.Kind())
		assert.Equal(t, id, event.ID())
		_, ok := event.(*OrderFilled)
		assert.True(t, ok)
	})

	t.Run("order withdrawn", func(t *testing.T) {
		id := orderIDFor(3)
		event, err := decoder.Decode(terminalLog(t, EventOrderWithdrawn, id, 12, 0))
		require.NoError(t, err)
		assert.Equal(t, KindWithdrawn, event.Kind())
		_, ok := event.(*OrderWithdrawn)
		assert.True(t, ok)
	})

	t.Run("unknown topic", func(t *testing.T) {
		log := types.Log{
			Topics:      []common.Hash{common.HexToHash("0xdeadbeef"), common.Hash(orderIDFor(4))},
			BlockNumber: 13,
		}
		_, err := decoder.Decode(log)
		require.ErrorIs(t, err, ErrUnrecognizedLog)
	})

	t.Run("anonymous log", func(t *testing.T) {
		_, err := decoder.Decode(types.Log{BlockNumber: 14})
		require.ErrorIs(t, err, ErrUnrecognizedLog)
	})

	t.Run("filled log missing order id topic", func(t *testing.T) {
		log := terminalLog(t, EventOrderFilled, orderIDFor(5), 15, 0)
		log.Topics = log.Topics[:1]
		_, err := decoder.Decode(log)
		require.ErrorIs(t, err, ErrUnrecognizedLog)
	})

	t.Run("created log with truncated data", func(t *testing.T) {
		log := createdLog(t, orderIDFor(6), fixtureOrderData(), 16, 0)
		log.Data = log.Data[:40]
		_, err := decoder.Decode(log)
		require.ErrorIs(t, err, ErrUnrecognizedLog)
	})
}
