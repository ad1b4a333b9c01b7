package tradingprovider

import (
	"testing"

	"github.com/rxtech-lab/argo-ladder/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type BinanceConfigTestSuite struct {
	suite.Suite
}

func TestBinanceConfigTestSuite(t *testing.T) {
	suite.Run(t, new(BinanceConfigTestSuite))
}

func (suite *BinanceConfigTestSuite) TestParseBinanceConfig() {
	tests := []struct {
		name        string
		json        string
		expectError bool
	}{
		{
			name: "valid config",
			json: `{"apiKey":"key","secretKey":"secret","quoteAsset":"FDUSD"}`,
		},
		{
			name:        "missing secret",
			json:        `{"apiKey":"key"}`,
			expectError: true,
		},
		{
			name:        "malformed json",
			json:        `{"apiKey":`,
			expectError: true,
		},
		{
			name:        "precision out of range",
			json:        `{"apiKey":"key","secretKey":"secret","decimalPrecision":20}`,
			expectError: true,
		},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			config, err := parseBinanceConfig(tc.json)
			if tc.expectError {
				suite.Error(err)
				suite.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))

				return
			}

			suite.Require().NoError(err)
			suite.Equal("key", config.ApiKey)
			suite.Equal("FDUSD", config.QuoteAsset)
		})
	}
}
