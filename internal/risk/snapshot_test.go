package risk

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/go-redis/redis/v8"
	"github.com/rxtech-lab/argo-ladder/internal/types"
	"github.com/rxtech-lab/argo-ladder/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type SnapshotTestSuite struct {
	suite.Suite
	tempDir string
	state   *State
}

func TestSnapshotSuite(t *testing.T) {
	suite.Run(t, new(SnapshotTestSuite))
}

func (suite *SnapshotTestSuite) SetupTest() {
	tempDir, err := os.MkdirTemp("", "snapshot_test")
	suite.Require().NoError(err)
	suite.tempDir = tempDir

	manager, err := NewManager(DefaultConfig())
	suite.Require().NoError(err)

	suite.state = NewState(10000)
	suite.state.CurrentDay = "2024-05-01"
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	first, _ := manager.OpenPosition(suite.state, OpenRequest{Symbol: "BTCUSDT", Side: types.SideLong, EntryPrice: 100, StopLossPrice: 98, Time: at})
	manager.OpenPosition(suite.state, OpenRequest{Symbol: "BTCUSDT", Side: types.SideShort, EntryPrice: 100, StopLossPrice: 102, Time: at})
	manager.UpdatePosition(suite.state, first.Unwrap().ID, 103.5, at.Add(time.Hour), 1)
}

func (suite *SnapshotTestSuite) TearDownTest() {
	os.RemoveAll(suite.tempDir)
}

func (suite *SnapshotTestSuite) TestFileRoundTrip() {
	store := NewFileSnapshotStore(filepath.Join(suite.tempDir, "state"))
	ctx := context.Background()

	suite.Require().NoError(store.Save(ctx, "btc", suite.state))

	loaded, err := store.Load(ctx, "btc")
	suite.Require().NoError(err)
	suite.Equal(suite.state.Capital, loaded.Capital)
	suite.Equal(suite.state.CurrentDay, loaded.CurrentDay)
	suite.Equal(3, loaded.NextPositionID)
	suite.Equal([]int{1, 2}, loaded.OpenPositionIDs())
	suite.True(loaded.Positions[1].TP1Hit)
	suite.Len(loaded.ClosedTrades, 1)
	suite.Equal(types.ExitReasonTP1, loaded.ClosedTrades[0].Reason)
	suite.True(loaded.ClosedTrades[0].ExitTime.Equal(suite.state.ClosedTrades[0].ExitTime))

	// no temp files left behind
	entries, err := os.ReadDir(filepath.Join(suite.tempDir, "state"))
	suite.NoError(err)
	suite.Len(entries, 1)
}

func (suite *SnapshotTestSuite) TestLoadMissing() {
	store := NewFileSnapshotStore(suite.tempDir)

	_, err := store.Load(context.Background(), "missing")
	suite.Equal(errors.ErrCodeDataNotFound, errors.GetCode(err))
}

func (suite *SnapshotTestSuite) TestVersionMismatch() {
	suite.state.Version = "9.0.0"
	data, err := MarshalState(suite.state)
	suite.Require().NoError(err)

	_, err = UnmarshalState(data)
	suite.Equal(errors.ErrCodeVersionMismatch, errors.GetCode(err))
}

func (suite *SnapshotTestSuite) TestCloneIsDeep() {
	clone := suite.state.Clone()
	clone.Positions[1].Quantity = 0
	clone.ClosedTrades[0].PnL = -1

	suite.NotEqual(0.0, suite.state.Positions[1].Quantity)
	suite.NotEqual(-1.0, suite.state.ClosedTrades[0].PnL)
}

func (suite *SnapshotTestSuite) TestRedisUnavailable() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := NewRedisSnapshotStore(ctx, RedisConfig{Addr: "127.0.0.1:1"})
	suite.Error(err)
	suite.Equal(errors.ErrCodeDataSourceUnavailable, errors.GetCode(err))
}

func (suite *SnapshotTestSuite) newRedisStore(prefix string, ttl time.Duration) (*RedisSnapshotStore, *miniredis.Miniredis) {
	server := miniredis.RunT(suite.T())
	client := goredis.NewClient(&goredis.Options{Addr: server.Addr()})

	store := NewRedisSnapshotStoreWithClient(client, prefix, ttl)
	suite.T().Cleanup(func() { _ = store.Close() })

	return store, server
}

func (suite *SnapshotTestSuite) TestRedisRoundTrip() {
	store, server := suite.newRedisStore("", 0)
	ctx := context.Background()

	suite.Require().NoError(store.Save(ctx, "btc", suite.state))
	suite.True(server.Exists("ladder:state:btc"))

	loaded, err := store.Load(ctx, "btc")
	suite.Require().NoError(err)
	suite.Equal(suite.state.Capital, loaded.Capital)
	suite.Equal(suite.state.CurrentDay, loaded.CurrentDay)
	suite.Equal([]int{1, 2}, loaded.OpenPositionIDs())
	suite.True(loaded.Positions[1].TP1Hit)
	suite.Len(loaded.ClosedTrades, 1)
	suite.Equal(types.ExitReasonTP1, loaded.ClosedTrades[0].Reason)

	// a later save replaces the snapshot
	suite.state.Capital = 1
	suite.Require().NoError(store.Save(ctx, "btc", suite.state))

	loaded, err = store.Load(ctx, "btc")
	suite.Require().NoError(err)
	suite.Equal(1.0, loaded.Capital)
}

func (suite *SnapshotTestSuite) TestRedisLoad() {
	tests := []struct {
		name  string
		setup func(server *miniredis.Miniredis)
		code  errors.ErrorCode
	}{
		{
			name:  "missing key",
			setup: func(*miniredis.Miniredis) {},
			code:  errors.ErrCodeDataNotFound,
		},
		{
			name: "other prefix is not visible",
			setup: func(server *miniredis.Miniredis) {
				suite.Require().NoError(server.Set("other:btc", "capital: 5"))
			},
			code: errors.ErrCodeDataNotFound,
		},
		{
			name: "wrong value type",
			setup: func(server *miniredis.Miniredis) {
				_, err := server.Lpush("ladder:state:btc", "x")
				suite.Require().NoError(err)
			},
			code: errors.ErrCodeSnapshotFailed,
		},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			store, server := suite.newRedisStore("", 0)
			tc.setup(server)

			_, err := store.Load(context.Background(), "btc")
			suite.Error(err)
			suite.Equal(tc.code, errors.GetCode(err))
		})
	}
}

func (suite *SnapshotTestSuite) TestRedisTTL() {
	store, server := suite.newRedisStore("test:", time.Minute)
	ctx := context.Background()

	suite.Require().NoError(store.Save(ctx, "btc", suite.state))
	suite.Equal(time.Minute, server.TTL("test:btc"))

	server.FastForward(2 * time.Minute)

	_, err := store.Load(ctx, "btc")
	suite.Equal(errors.ErrCodeDataNotFound, errors.GetCode(err))
}

func (suite *SnapshotTestSuite) TestRedisServerDown() {
	store, server := suite.newRedisStore("", 0)
	server.Close()

	err := store.Save(context.Background(), "btc", suite.state)
	suite.Equal(errors.ErrCodeSnapshotFailed, errors.GetCode(err))
}
