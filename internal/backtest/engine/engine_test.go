package engine

import (
	"errors"
	"testing"

	"github.com/rxtech-lab/argo-ladder/internal/types"
	"github.com/stretchr/testify/suite"
)

type EngineTestSuite struct {
	suite.Suite
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineTestSuite))
}

func (suite *EngineTestSuite) TestOnProcessDataCallbackWithProgress() {
	var progress []int
	callback := OnProcessDataCallback(func(current int, total int) error {
		progress = append(progress, current)

		return nil
	})

	for i := 1; i <= 5; i++ {
		suite.NoError(callback(i, 5))
	}

	suite.Equal([]int{1, 2, 3, 4, 5}, progress)
}

func (suite *EngineTestSuite) TestCallbackCanAbort() {
	abort := errors.New("stop")
	callback := OnRunStartCallback(func(runID string, dataFileIndex int, dataFilePath string, totalBars int) error {
		if totalBars == 0 {
			return abort
		}

		return nil
	})

	suite.NoError(callback("run", 0, "a.parquet", 10))
	suite.ErrorIs(callback("run", 1, "b.parquet", 0), abort)
}

func (suite *EngineTestSuite) TestRunEndReceivesStats() {
	var got types.TradeStats
	callback := OnRunEndCallback(func(dataFileIndex int, dataFilePath string, resultFolderPath string, stats types.TradeStats) {
		got = stats
	})

	callbacks := LifecycleCallbacks{OnRunEnd: &callback}
	(*callbacks.OnRunEnd)(0, "a.parquet", "results/a", types.TradeStats{ID: "run-1"})

	suite.Equal("run-1", got.ID)
	suite.Nil(callbacks.OnProcessData)
}
