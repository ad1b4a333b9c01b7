package engine

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/suite"
)

type UtilsTestSuite struct {
	suite.Suite
}

func TestUtilsSuite(t *testing.T) {
	suite.Run(t, new(UtilsTestSuite))
}

func (suite *UtilsTestSuite) TestResultFolder() {
	tests := []struct {
		name         string
		dataPath     string
		mode         Mode
		startTime    optional.Option[time.Time]
		endTime      optional.Option[time.Time]
		expectedPath string
	}{
		{
			name:         "without time range",
			dataPath:     "/path/to/btc.parquet",
			mode:         ModeLadder,
			startTime:    optional.None[time.Time](),
			endTime:      optional.None[time.Time](),
			expectedPath: "/results/ladder/btc",
		},
		{
			name:         "with time range",
			dataPath:     "/path/to/btc.parquet",
			mode:         ModeFast,
			startTime:    optional.Some(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)),
			endTime:      optional.Some(time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)),
			expectedPath: "/results/fast/20230101_20231231/btc",
		},
		{
			name:         "only start time",
			dataPath:     "/path/to/eth.csv",
			mode:         ModeLadder,
			startTime:    optional.Some(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)),
			endTime:      optional.None[time.Time](),
			expectedPath: "/results/ladder/20230101_all/eth",
		},
		{
			name:         "only end time",
			dataPath:     "relative/eth.data.csv",
			mode:         ModeLadder,
			startTime:    optional.None[time.Time](),
			endTime:      optional.Some(time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)),
			expectedPath: "/results/ladder/all_20231231/eth.data",
		},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			b := &BacktestEngineV1{
				config:        EmptyConfig(),
				resultsFolder: "/results",
			}
			b.config.Mode = tc.mode
			b.config.StartTime = tc.startTime
			b.config.EndTime = tc.endTime

			suite.Equal(filepath.FromSlash(tc.expectedPath), b.resultFolder(tc.dataPath))
		})
	}
}
