package evm

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/iLayer-io/iLayer-bot/db"
	ilerrors "github.com/iLayer-io/iLayer-bot/errors"
)

const testChainID = uint64(31337)

var (
	testContract = ethcommon.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	testTopic    = ethcommon.HexToHash("0x01")
)

func u64(v uint64) *uint64 { return &v }

func setupCheckpoints(t *testing.T) *db.CheckpointStore {
	t.Helper()
	database, err := db.OpenInMemoryDB(true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	return db.NewCheckpointStore(database)
}

func newTestListener(client ChainClient, checkpoints *db.CheckpointStore, processor LogProcessor, start *uint64, batch uint64) *EventListener {
	return NewEventListener(client, checkpoints, processor, ListenerConfig{
		ChainID:    testChainID,
		Contract:   testContract,
		Topics:     []ethcommon.Hash{testTopic},
		StartBlock: start,
		BatchSize:  batch,
	}, zerolog.Nop())
}

func rangeQuery(from, to uint64) interface{} {
	return mock.MatchedBy(func(q ethereum.FilterQuery) bool {
		return q.FromBlock != nil && q.ToBlock != nil &&
			q.FromBlock.Uint64() == from && q.ToBlock.Uint64() == to &&
			len(q.Addresses) == 1 && q.Addresses[0] == testContract
	})
}

func liveQuery() interface{} {
	return mock.MatchedBy(func(q ethereum.FilterQuery) bool {
		return q.FromBlock == nil && q.ToBlock == nil
	})
}

func testLog(block uint64, index uint) types.Log {
	return types.Log{Address: testContract, Topics: []ethcommon.Hash{testTopic}, BlockNumber: block, Index: index}
}

func TestEventListener_ResolveStart(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		start      *uint64
		checkpoint *uint64
		wantFrom   uint64
		wantOK     bool
		wantConfig bool
	}{
		{name: "nothing configured", wantOK: false},
		{name: "config only", start: u64(100), wantFrom: 100, wantOK: true},
		{name: "checkpoint only", checkpoint: u64(50), wantFrom: 51, wantOK: true},
		{name: "checkpoint ahead of config", start: u64(100), checkpoint: u64(150), wantFrom: 151, wantOK: true},
		{name: "checkpoint just below config", start: u64(100), checkpoint: u64(99), wantFrom: 100, wantOK: true},
		{name: "checkpoint behind config", start: u64(100), checkpoint: u64(50), wantConfig: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkpoints := setupCheckpoints(t)
			if tt.checkpoint != nil {
				require.NoError(t, checkpoints.AppendCheckpoint(ctx, testChainID, *tt.checkpoint))
			}
			l := newTestListener(new(mockChainClient), checkpoints, &recordingProcessor{}, tt.start, 10)

			from, ok, err := l.ResolveStart(ctx)
			if tt.wantConfig {
				require.Error(t, err)
				assert.True(t, ilerrors.IsChainError(err, ilerrors.ErrCodeConfig))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantFrom, from)
		})
	}
}

func TestEventListener_Run_InconsistentResumeFailsFast(t *testing.T) {
	ctx := context.Background()
	checkpoints := setupCheckpoints(t)
	require.NoError(t, checkpoints.AppendCheckpoint(ctx, testChainID, 50))

	client := new(mockChainClient)
	client.On("ChainID", mock.Anything).Return(new(big.Int).SetUint64(testChainID), nil)
	processor := &recordingProcessor{}

	err := newTestListener(client, checkpoints, processor, u64(100), 10).Run(ctx)
	require.Error(t, err)
	assert.True(t, ilerrors.IsChainError(err, ilerrors.ErrCodeConfig))

	client.AssertNotCalled(t, "FilterLogs", mock.Anything, mock.Anything)
	client.AssertNotCalled(t, "SubscribeFilterLogs", mock.Anything, mock.Anything, mock.Anything)
	assert.Zero(t, processor.count())

	height, _, err := checkpoints.GetLastCheckpoint(ctx, testChainID)
	require.NoError(t, err)
	assert.Equal(t, uint64(50), height)
}

func TestEventListener_Run_ChainIDMismatch(t *testing.T) {
	client := new(mockChainClient)
	client.On("ChainID", mock.Anything).Return(big.NewInt(1), nil)

	err := newTestListener(client, setupCheckpoints(t), &recordingProcessor{}, u64(0), 10).Run(context.Background())
	require.Error(t, err)
	assert.True(t, ilerrors.IsChainError(err, ilerrors.ErrCodeConfig))
	client.AssertNotCalled(t, "BlockNumber", mock.Anything)
}

func TestEventListener_Backfill(t *testing.T) {
	ctx := context.Background()

	t.Run("batches with a checkpoint after each", func(t *testing.T) {
		checkpoints := setupCheckpoints(t)
		client := new(mockChainClient)
		client.On("BlockNumber", mock.Anything).Return(uint64(25), nil)
		client.On("FilterLogs", mock.Anything, rangeQuery(0, 9)).Return([]types.Log{testLog(7, 1), testLog(3, 0), testLog(7, 0)}, nil).Once()
		client.On("FilterLogs", mock.Anything, rangeQuery(10, 19)).Return([]types.Log{}, nil).Once()
		client.On("FilterLogs", mock.Anything, rangeQuery(20, 25)).Return([]types.Log{testLog(25, 0)}, nil).Once()

		processor := &recordingProcessor{}
		l := newTestListener(client, checkpoints, processor, nil, 10)

		next, err := l.Backfill(ctx, 0)
		require.NoError(t, err)
		assert.Equal(t, uint64(26), next)
		assert.Equal(t, []uint64{3, 7, 7, 25}, processor.blocks())
		assert.Equal(t, uint(0), processor.applied[1].Index)
		assert.Equal(t, uint(1), processor.applied[2].Index)

		height, found, err := checkpoints.GetLastCheckpoint(ctx, testChainID)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, uint64(25), height)
		client.AssertExpectations(t)
	})

	t.Run("removed logs are skipped", func(t *testing.T) {
		client := new(mockChainClient)
		client.On("BlockNumber", mock.Anything).Return(uint64(5), nil)
		removed := testLog(4, 0)
		removed.Removed = true
		client.On("FilterLogs", mock.Anything, rangeQuery(0, 5)).Return([]types.Log{removed, testLog(5, 0)}, nil)

		processor := &recordingProcessor{}
		_, err := newTestListener(client, setupCheckpoints(t), processor, nil, 10).Backfill(ctx, 0)
		require.NoError(t, err)
		assert.Equal(t, []uint64{5}, processor.blocks())
	})

	t.Run("processing failure aborts without checkpoint and a restart resumes it", func(t *testing.T) {
		checkpoints := setupCheckpoints(t)
		client := new(mockChainClient)
		client.On("BlockNumber", mock.Anything).Return(uint64(19), nil)
		client.On("FilterLogs", mock.Anything, rangeQuery(0, 9)).Return([]types.Log{testLog(2, 0)}, nil)
		client.On("FilterLogs", mock.Anything, rangeQuery(10, 19)).Return([]types.Log{testLog(12, 0), testLog(15, 0)}, nil)

		boom := errors.New("unrecognized")
		processor := &recordingProcessor{failOn: map[uint64]error{15: boom}}
		next, err := newTestListener(client, checkpoints, processor, nil, 10).Backfill(ctx, 0)
		require.ErrorIs(t, err, boom)
		assert.Equal(t, uint64(10), next)

		height, _, err := checkpoints.GetLastCheckpoint(ctx, testChainID)
		require.NoError(t, err)
		assert.Equal(t, uint64(9), height)

		processor.failOn = nil
		next, err = newTestListener(client, checkpoints, processor, nil, 10).Backfill(ctx, height+1)
		require.NoError(t, err)
		assert.Equal(t, uint64(20), next)
		assert.Equal(t, []uint64{2, 12, 12, 15}, processor.blocks())

		final, _, err := checkpoints.GetLastCheckpoint(ctx, testChainID)
		require.NoError(t, err)
		assert.Equal(t, uint64(19), final)
		assert.GreaterOrEqual(t, final, height)
	})

	t.Run("provider failure is an rpc error", func(t *testing.T) {
		checkpoints := setupCheckpoints(t)
		client := new(mockChainClient)
		client.On("BlockNumber", mock.Anything).Return(uint64(5), nil)
		client.On("FilterLogs", mock.Anything, mock.Anything).Return(nil, errors.New("timeout"))

		_, err := newTestListener(client, checkpoints, &recordingProcessor{}, nil, 10).Backfill(ctx, 0)
		require.Error(t, err)
		assert.True(t, ilerrors.IsChainError(err, ilerrors.ErrCodeRPC))

		_, found, err := checkpoints.GetLastCheckpoint(ctx, testChainID)
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("nothing to do when caught up", func(t *testing.T) {
		client := new(mockChainClient)
		client.On("BlockNumber", mock.Anything).Return(uint64(5), nil)

		next, err := newTestListener(client, setupCheckpoints(t), &recordingProcessor{}, nil, 10).Backfill(ctx, 6)
		require.NoError(t, err)
		assert.Equal(t, uint64(6), next)
		client.AssertNotCalled(t, "FilterLogs", mock.Anything, mock.Anything)
	})
}

func TestEventListener_Run_Live(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	checkpoints := setupCheckpoints(t)
	sub := newFakeSubscription()
	var liveCh chan<- types.Log

	client := new(mockChainClient)
	client.On("ChainID", mock.Anything).Return(new(big.Int).SetUint64(testChainID), nil)
	// first backfill sees head 9, catch-up after subscribing sees head 10
	client.On("BlockNumber", mock.Anything).Return(uint64(9), nil).Once()
	client.On("BlockNumber", mock.Anything).Return(uint64(10), nil)
	client.On("FilterLogs", mock.Anything, rangeQuery(0, 9)).Return([]types.Log{testLog(4, 0)}, nil).Once()
	client.On("FilterLogs", mock.Anything, rangeQuery(10, 10)).Return([]types.Log{testLog(10, 0)}, nil).Once()
	client.On("SubscribeFilterLogs", mock.Anything, liveQuery(), mock.Anything).
		Run(func(args mock.Arguments) { liveCh = args.Get(2).(chan<- types.Log) }).
		Return(sub, nil).Once()

	processor := &recordingProcessor{}
	l := newTestListener(client, checkpoints, processor, u64(0), 100)

	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	require.Eventually(t, func() bool { return processor.count() == 2 }, 2*time.Second, 10*time.Millisecond)

	removed := testLog(11, 0)
	removed.Removed = true
	liveCh <- testLog(10, 0) // already covered by the catch-up backfill
	liveCh <- removed
	liveCh <- testLog(11, 0)
	liveCh <- testLog(11, 1)
	liveCh <- testLog(12, 0)

	require.Eventually(t, func() bool { return processor.count() == 5 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []uint64{4, 10, 11, 11, 12}, processor.blocks())

	height, _, err := checkpoints.GetLastCheckpoint(ctx, testChainID)
	require.NoError(t, err)
	assert.Equal(t, uint64(11), height)

	sub.fail(errors.New("connection reset"))
	select {
	case err := <-done:
		require.Error(t, err)
		assert.True(t, ilerrors.IsChainError(err, ilerrors.ErrCodeRPC))
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not return after subscription error")
	}

	// block 12 was processed but not checkpointed; a restart replays it
	height, _, err = checkpoints.GetLastCheckpoint(ctx, testChainID)
	require.NoError(t, err)
	assert.Equal(t, uint64(11), height)
}

func TestEventListener_Run_NoStartFollowsHead(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	sub := newFakeSubscription()
	client := new(mockChainClient)
	client.On("ChainID", mock.Anything).Return(new(big.Int).SetUint64(testChainID), nil)
	client.On("BlockNumber", mock.Anything).Return(uint64(500), nil)
	subscribed := make(chan struct{})
	client.On("SubscribeFilterLogs", mock.Anything, liveQuery(), mock.Anything).
		Run(func(mock.Arguments) { close(subscribed) }).
		Return(sub, nil).Once()

	done := make(chan error, 1)
	go func() {
		done <- newTestListener(client, setupCheckpoints(t), &recordingProcessor{}, nil, 100).Run(ctx)
	}()

	select {
	case <-subscribed:
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not subscribe")
	}

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop on cancel")
	}
	client.AssertNotCalled(t, "FilterLogs", mock.Anything, mock.Anything)
}
