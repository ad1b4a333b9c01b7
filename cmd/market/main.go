package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/rxtech-lab/argo-ladder/pkg/marketdata"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
)

// downloadAction fetches closed bars for the requested range and writes them
// to a file the backtest command can read.
func downloadAction(ctx context.Context, cmd *cli.Command) error {
	symbol := cmd.String("symbol")
	startDate := cmd.Timestamp("start")
	endDate := cmd.Timestamp("end")
	interval := cmd.String("interval")
	providerFlag := cmd.String("provider")

	fetcher, err := newFetcher(providerFlag)
	if err != nil {
		return err
	}

	var bar *progressbar.ProgressBar

	onProgress := func(current float64, total float64, message string) {
		if bar == nil {
			bar = progressbar.Default(int64(total))
			bar.Describe(fmt.Sprintf("Writing %s", message))
		}

		_ = bar.Set(int(current))
	}

	client, err := marketdata.NewClient(fetcher, marketdata.ClientConfig{
		DataPath: cmd.String("data"),
		Format:   marketdata.Format(cmd.String("format")),
	}, onProgress)
	if err != nil {
		return fmt.Errorf("failed to create market data client: %w", err)
	}

	log.Printf("Starting download for %s from %s to %s at %s using %s...",
		symbol, startDate.Format(time.DateOnly), endDate.Format(time.DateOnly), interval, providerFlag)

	path, err := client.Download(ctx, marketdata.DownloadParams{
		Symbol:    symbol,
		StartDate: startDate,
		EndDate:   endDate,
		Interval:  interval,
	})
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}

	if bar != nil {
		_ = bar.Finish()
	}

	log.Printf("Download completed: %s", path)

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:  "download",
		Usage: "Download historical bars for backtesting",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "symbol",
				Aliases:  []string{"t"},
				Usage:    "Trading pair symbol (e.g. BTCUSDT)",
				Required: true,
			},
			&cli.TimestampFlag{
				Name:    "start",
				Aliases: []string{"s"},
				Usage:   "Start date in `YYYY-MM-DD` format",
				Config: cli.TimestampConfig{
					Layouts: []string{time.DateOnly},
				},
				Required: true,
			},
			&cli.TimestampFlag{
				Name:    "end",
				Aliases: []string{"e"},
				Usage:   "End date in `YYYY-MM-DD` format. Defaults to today.",
				Value:   time.Now(),
				Config: cli.TimestampConfig{
					Layouts: []string{time.DateOnly},
				},
			},
			&cli.StringFlag{
				Name:    "interval",
				Aliases: []string{"i"},
				Usage:   "Bar interval (e.g. 15m, 1h, 4h, 1d)",
				Value:   "1h",
			},
			&cli.StringFlag{
				Name:    "provider",
				Aliases: []string{"p"},
				Usage:   fmt.Sprintf("Data provider to use (%s, %s)", MarketProviderBinance, MarketProviderBinanceTestnet),
				Value:   MarketProviderBinance,
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   fmt.Sprintf("Output format (%s, %s)", marketdata.FormatParquet, marketdata.FormatCSV),
				Value:   string(marketdata.FormatParquet),
			},
			&cli.StringFlag{
				Name:    "data",
				Aliases: []string{"d"},
				Usage:   "Path to the data output directory",
				Value:   "data",
			},
		},
		Action: downloadAction,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
