package datasource

import (
	"context"
	"strconv"
	"time"

	binance "github.com/adshao/go-binance/v2"

	"github.com/quantfold/backtest/internal/types"
	"github.com/quantfold/backtest/pkg/errors"
)

// binancePageSize is the kline page limit documented by the Binance API.
const binancePageSize = 500

// BinanceProvider fetches klines from the Binance spot API. Public market
// data needs no credentials.
type BinanceProvider struct {
	client *binance.Client
}

var _ DataProvider = (*BinanceProvider)(nil)

// NewBinanceProvider creates a provider backed by the public Binance API.
func NewBinanceProvider() *BinanceProvider {
	return &BinanceProvider{client: binance.NewClient("", "")}
}

// GetOHLCV pages through the klines endpoint until the range is covered.
// Binance timestamps are in milliseconds; a bar is stamped with its open time.
func (p *BinanceProvider) GetOHLCV(ctx context.Context, symbol string, interval string, start, end time.Time) ([]types.Bar, error) {
	if _, _, err := parseInterval(interval); err != nil {
		return nil, err
	}

	var bars []types.Bar

	currentStart := start.UnixMilli()
	endMillis := end.UnixMilli()

	for {
		klines, err := p.client.NewKlinesService().
			Symbol(symbol).
			Interval(interval).
			StartTime(currentStart).
			EndTime(endMillis).
			Do(ctx)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeProviderFailed, err, "failed to fetch klines for %s", symbol)
		}

		for _, k := range klines {
			bar, err := klineToBar(symbol, k)
			if err != nil {
				return nil, err
			}

			bars = append(bars, bar)
		}

		if len(klines) < binancePageSize {
			break
		}

		// Next page starts just after the last kline's close time
		currentStart = klines[len(klines)-1].CloseTime + 1
		if currentStart >= endMillis {
			break
		}
	}

	if len(bars) == 0 {
		return nil, noDataError(symbol, start, end)
	}

	return bars, nil
}

// GetLatestPrice returns the current ticker price for the symbol.
func (p *BinanceProvider) GetLatestPrice(ctx context.Context, symbol string) (float64, error) {
	prices, err := p.client.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return 0, errors.Wrapf(errors.ErrCodeProviderFailed, err, "failed to fetch latest price for %s", symbol)
	}

	if len(prices) == 0 {
		return 0, errors.Newf(errors.ErrCodeNoDataFound, "no price returned for %s", symbol)
	}

	price, err := strconv.ParseFloat(prices[0].Price, 64)
	if err != nil {
		return 0, errors.Wrapf(errors.ErrCodeDataParse, err, "failed to parse price for %s", symbol)
	}

	return price, nil
}

func klineToBar(symbol string, k *binance.Kline) (types.Bar, error) {
	open, err := strconv.ParseFloat(k.Open, 64)
	if err != nil {
		return types.Bar{}, errors.Wrapf(errors.ErrCodeDataParse, err, "failed to parse kline open for %s", symbol)
	}

	high, err := strconv.ParseFloat(k.High, 64)
	if err != nil {
		return types.Bar{}, errors.Wrapf(errors.ErrCodeDataParse, err, "failed to parse kline high for %s", symbol)
	}

	low, err := strconv.ParseFloat(k.Low, 64)
	if err != nil {
		return types.Bar{}, errors.Wrapf(errors.ErrCodeDataParse, err, "failed to parse kline low for %s", symbol)
	}

	closePrice, err := strconv.ParseFloat(k.Close, 64)
	if err != nil {
		return types.Bar{}, errors.Wrapf(errors.ErrCodeDataParse, err, "failed to parse kline close for %s", symbol)
	}

	volume, err := strconv.ParseFloat(k.Volume, 64)
	if err != nil {
		return types.Bar{}, errors.Wrapf(errors.ErrCodeDataParse, err, "failed to parse kline volume for %s", symbol)
	}

	return types.Bar{
		Symbol: symbol,
		Time:   time.UnixMilli(k.OpenTime),
		Open:   open,
		High:   high,
		Low:    low,
		Close:  closePrice,
		Volume: volume,
	}, nil
}
