package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"

	"github.com/quantfold/backtest/internal/backtest"
	"github.com/quantfold/backtest/internal/config"
	"github.com/quantfold/backtest/internal/datasource"
	"github.com/quantfold/backtest/internal/logger"
	"github.com/quantfold/backtest/internal/strategy"
)

// runAction wires up the engine from the CLI flags and executes one backtest.
func runAction(ctx context.Context, cmd *cli.Command) error {
	symbols := strings.Split(cmd.String("symbols"), ",")
	for i := range symbols {
		symbols[i] = strings.TrimSpace(symbols[i])
	}

	startDate := cmd.Timestamp("start")
	endDate := cmd.Timestamp("end")
	interval := cmd.String("interval")
	dataDir := cmd.String("data")
	configPath := cmd.String("config")
	outputPath := cmd.String("output")
	resultDB := cmd.String("result-db")

	cfg := config.DefaultConfig()

	if configPath != "" {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return err
		}

		cfg = loaded
	}

	appLogger, err := logger.NewLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer appLogger.Sync()

	strat, err := buildStrategy(cmd.String("strategy"))
	if err != nil {
		return err
	}

	provider, err := buildProvider(cmd.String("provider"), dataDir, appLogger)
	if err != nil {
		return err
	}

	engine := backtest.NewEngine(cfg, appLogger)
	engine.SetStrategy(strat)
	engine.SetDataProvider(provider)

	var bar *progressbar.ProgressBar

	result, err := engine.Run(ctx, backtest.Options{
		StartDate: startDate,
		EndDate:   endDate,
		Symbols:   symbols,
		Interval:  interval,
		OnBar: func(current, total int) {
			if bar == nil {
				bar = progressbar.NewOptions(total,
					progressbar.OptionSetDescription("Backtesting"),
					progressbar.OptionShowCount(),
				)
			}

			bar.Set(current)
		},
	})
	if err != nil {
		return fmt.Errorf("backtest failed: %w", err)
	}

	if bar != nil {
		bar.Finish()
		fmt.Println()
	}

	if resultDB != "" {
		store, err := backtest.NewResultStore(resultDB, appLogger)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.SaveResult(result); err != nil {
			return err
		}
	}

	if outputPath != "" {
		if err := result.WriteSummary(outputPath); err != nil {
			return err
		}
	}

	fmt.Printf("Run %s finished: final equity %.2f (%.2f%%), %d trades, sharpe %.2f, max drawdown %.2f%%\n",
		result.ID,
		result.FinalEquity,
		result.TotalReturnPercent*100,
		result.Metrics.TotalTrades,
		result.Metrics.SharpeRatio,
		result.Metrics.MaxDrawdown*100,
	)

	return nil
}

func buildStrategy(name string) (strategy.Strategy, error) {
	switch name {
	case "sma-crossover":
		return strategy.NewSMACrossover(10, 30), nil
	case "rsi":
		return strategy.NewRSIStrategy(14, 30, 70), nil
	default:
		return nil, fmt.Errorf("unknown strategy %q (available: sma-crossover, rsi)", name)
	}
}

func buildProvider(name, dataDir string, appLogger *logger.Logger) (datasource.DataProvider, error) {
	switch name {
	case "csv":
		return datasource.NewCSVProvider(dataDir, appLogger), nil
	case "binance":
		return datasource.NewBinanceProvider(), nil
	case "polygon":
		return datasource.NewPolygonProvider(os.Getenv("POLYGON_API_KEY"))
	case "alpaca":
		return datasource.NewAlpacaProvider(), nil
	default:
		return nil, fmt.Errorf("unknown provider %q (available: csv, binance, polygon, alpaca)", name)
	}
}

// schemaAction prints the JSON schema for the config file.
func schemaAction(_ context.Context, _ *cli.Command) error {
	cfg := config.DefaultConfig()

	schema, err := cfg.GenerateSchemaJSON()
	if err != nil {
		return fmt.Errorf("failed to generate config schema: %w", err)
	}

	fmt.Println(schema)

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:  "backtest",
		Usage: "Run trading strategy backtests over historical market data",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Run a backtest",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "symbols",
						Aliases:  []string{"S"},
						Usage:    "Comma-separated symbols, first symbol drives the timeline",
						Required: true,
					},
					&cli.TimestampFlag{
						Name:     "start",
						Aliases:  []string{"s"},
						Usage:    "Start date in `YYYY-MM-DD` format",
						Required: true,
						Config: cli.TimestampConfig{
							Layouts: []string{"2006-01-02"},
						},
					},
					&cli.TimestampFlag{
						Name:    "end",
						Aliases: []string{"e"},
						Usage:   "End date in `YYYY-MM-DD` format, defaults to today",
						Value:   time.Now(),
						Config: cli.TimestampConfig{
							Layouts: []string{"2006-01-02"},
						},
					},
					&cli.StringFlag{
						Name:    "interval",
						Aliases: []string{"i"},
						Usage:   "Bar interval (e.g. 1d, 4h, 15m)",
						Value:   "1d",
					},
					&cli.StringFlag{
						Name:  "strategy",
						Usage: "Strategy to run (sma-crossover, rsi)",
						Value: "sma-crossover",
					},
					&cli.StringFlag{
						Name:    "provider",
						Aliases: []string{"p"},
						Usage:   "Data provider (csv, binance, polygon, alpaca)",
						Value:   "csv",
					},
					&cli.StringFlag{
						Name:    "data",
						Aliases: []string{"d"},
						Usage:   "Data directory for the csv provider",
						Value:   "data",
					},
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to a YAML config file",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write the result summary to this YAML file",
					},
					&cli.StringFlag{
						Name:  "result-db",
						Usage: "Persist the full result to this DuckDB database",
					},
				},
				Action: runAction,
			},
			{
				Name:   "schema",
				Usage:  "Print the JSON schema for the config file",
				Action: schemaAction,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
