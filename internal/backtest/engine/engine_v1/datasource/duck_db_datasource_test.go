package datasource

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-ladder/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type DuckDBDataSourceTestSuite struct {
	suite.Suite
	ds  *DuckDBDataSource
	dir string
}

func TestDuckDBDataSourceSuite(t *testing.T) {
	suite.Run(t, new(DuckDBDataSourceTestSuite))
}

func (suite *DuckDBDataSourceTestSuite) SetupTest() {
	ds, err := NewDataSource(":memory:", nil)
	suite.Require().NoError(err)

	suite.ds = ds
	suite.dir = suite.T().TempDir()
}

func (suite *DuckDBDataSourceTestSuite) TearDownTest() {
	suite.ds.Close()
}

func (suite *DuckDBDataSourceTestSuite) write(name, content string) string {
	path := filepath.Join(suite.dir, name)
	suite.Require().NoError(os.WriteFile(path, []byte(content), 0644))

	return path
}

func (suite *DuckDBDataSourceTestSuite) TestReadCSVWithoutIndicators() {
	path := suite.write("bars.csv", `time,symbol,open,high,low,close,volume
2024-01-01 02:00:00,BTCUSDT,102,103,101,102.5,30
2024-01-01 00:00:00,BTCUSDT,100,101,99,100.5,10
2024-01-01 01:00:00,BTCUSDT,101,102,100,101.5,20
`)
	suite.Require().NoError(suite.ds.Initialize(path))

	bars, err := Collect(suite.ds, optional.None[time.Time](), optional.None[time.Time]())
	suite.Require().NoError(err)
	suite.Require().Len(bars, 3)

	suite.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), bars[0].Time.UTC())
	suite.Equal("BTCUSDT", bars[0].Symbol)
	suite.Equal(100.5, bars[0].Close)
	suite.Equal(30.0, bars[2].Volume)
	suite.True(math.IsNaN(bars[0].RSI))
	suite.True(math.IsNaN(bars[0].WT1))
	suite.False(bars[0].AlertBuy)
}

func (suite *DuckDBDataSourceTestSuite) TestReadCSVWithIndicators() {
	path := suite.write("enriched.csv", `time,open,high,low,close,rsi,wt1,wt2,alert_buy,alert_sell
2024-01-01 00:00:00,100,101,99,100,,,,false,false
2024-01-01 01:00:00,100,102,99,101,55.5,-10,-12,true,false
`)
	suite.Require().NoError(suite.ds.Initialize(path))

	bars, err := Collect(suite.ds, optional.None[time.Time](), optional.None[time.Time]())
	suite.Require().NoError(err)
	suite.Require().Len(bars, 2)

	suite.Equal("", bars[0].Symbol)
	suite.Equal(0.0, bars[0].Volume)
	suite.True(math.IsNaN(bars[0].RSI))
	suite.Equal(55.5, bars[1].RSI)
	suite.Equal(-10.0, bars[1].WT1)
	suite.Equal(-12.0, bars[1].WT2)
	suite.True(bars[1].AlertBuy)
	suite.False(bars[1].AlertSell)
}

func (suite *DuckDBDataSourceTestSuite) TestParquetRangeAndCount() {
	path := filepath.Join(suite.dir, "bars.parquet")
	_, err := suite.ds.db.Exec(fmt.Sprintf(`COPY (
		SELECT TIMESTAMP '2024-01-01 00:00:00' + INTERVAL (i) HOUR AS time,
			'ETHUSDT' AS symbol,
			100.0 + i AS open, 101.0 + i AS high, 99.0 + i AS low, 100.0 + i AS close,
			1.0 AS volume
		FROM range(10) t(i)
	) TO '%s' (FORMAT PARQUET)`, path))
	suite.Require().NoError(err)
	suite.Require().NoError(suite.ds.Initialize(path))

	count, err := suite.ds.Count(optional.None[time.Time](), optional.None[time.Time]())
	suite.NoError(err)
	suite.Equal(10, count)

	start := optional.Some(time.Date(2024, 1, 1, 2, 0, 0, 0, time.UTC))
	end := optional.Some(time.Date(2024, 1, 1, 5, 0, 0, 0, time.UTC))

	count, err = suite.ds.Count(start, end)
	suite.NoError(err)
	suite.Equal(4, count)

	bars, err := Collect(suite.ds, start, end)
	suite.NoError(err)
	suite.Require().Len(bars, 4)
	suite.Equal(102.0, bars[0].Close)
	suite.Equal(105.0, bars[3].Close)
}

func (suite *DuckDBDataSourceTestSuite) TestMissingColumn() {
	path := suite.write("broken.csv", `time,open,high,low
2024-01-01 00:00:00,100,101,99
`)

	err := suite.ds.Initialize(path)
	suite.Equal(errors.ErrCodeInvalidBar, errors.GetCode(err))
}

func (suite *DuckDBDataSourceTestSuite) TestMissingFile() {
	err := suite.ds.Initialize(filepath.Join(suite.dir, "nope.parquet"))
	suite.Equal(errors.ErrCodeDataNotFound, errors.GetCode(err))
}

func (suite *DuckDBDataSourceTestSuite) TestUninitialized() {
	_, err := suite.ds.Count(optional.None[time.Time](), optional.None[time.Time]())
	suite.Equal(errors.ErrCodeDataNotFound, errors.GetCode(err))
}

func (suite *DuckDBDataSourceTestSuite) TestReadAlerts() {
	path := suite.write("alerts.csv", `time,buy,sell
2024-01-01 01:00:00,1,0
2024-01-01 00:00:00,0,1
`)

	alerts, err := suite.ds.ReadAlerts(path)
	suite.Require().NoError(err)
	suite.Require().Len(alerts, 2)
	suite.True(alerts[0].Sell)
	suite.False(alerts[0].Buy)
	suite.True(alerts[1].Buy)
	suite.Equal("", alerts[1].Symbol)

	missing := suite.write("bad_alerts.csv", "when,buy\n2024-01-01 00:00:00,1\n")
	_, err = suite.ds.ReadAlerts(missing)
	suite.Equal(errors.ErrCodeAlertMergeFailed, errors.GetCode(err))
}
