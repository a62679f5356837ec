package datasource

import (
	"context"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"github.com/quantfold/backtest/internal/types"
	"github.com/quantfold/backtest/pkg/errors"
)

// AlpacaProvider fetches stock bars from the Alpaca market data API.
// Credentials come from the standard APCA environment variables.
type AlpacaProvider struct {
	client *marketdata.Client
}

var _ DataProvider = (*AlpacaProvider)(nil)

// NewAlpacaProvider creates a provider using ambient Alpaca credentials.
func NewAlpacaProvider() *AlpacaProvider {
	return &AlpacaProvider{client: marketdata.NewClient(marketdata.ClientOpts{})}
}

// GetOHLCV fetches bars for the symbol over the inclusive range.
func (p *AlpacaProvider) GetOHLCV(_ context.Context, symbol string, interval string, start, end time.Time) ([]types.Bar, error) {
	timeframe, err := alpacaTimeFrame(interval)
	if err != nil {
		return nil, err
	}

	alpacaBars, err := p.client.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame: timeframe,
		Start:     start,
		End:       end,
	})
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeProviderFailed, err, "failed to fetch bars for %s", symbol)
	}

	if len(alpacaBars) == 0 {
		return nil, noDataError(symbol, start, end)
	}

	bars := make([]types.Bar, 0, len(alpacaBars))
	for _, bar := range alpacaBars {
		bars = append(bars, types.Bar{
			Symbol: symbol,
			Time:   bar.Timestamp,
			Open:   bar.Open,
			High:   bar.High,
			Low:    bar.Low,
			Close:  bar.Close,
			Volume: float64(bar.Volume),
		})
	}

	return bars, nil
}

// GetLatestPrice returns the price of the symbol's latest trade.
func (p *AlpacaProvider) GetLatestPrice(_ context.Context, symbol string) (float64, error) {
	trade, err := p.client.GetLatestTrade(symbol, marketdata.GetLatestTradeRequest{})
	if err != nil {
		return 0, errors.Wrapf(errors.ErrCodeProviderFailed, err, "failed to fetch latest trade for %s", symbol)
	}

	if trade == nil {
		return 0, errors.Newf(errors.ErrCodeNoDataFound, "no trade returned for %s", symbol)
	}

	return trade.Price, nil
}

func alpacaTimeFrame(interval string) (marketdata.TimeFrame, error) {
	multiplier, unit, err := parseInterval(interval)
	if err != nil {
		return marketdata.TimeFrame{}, err
	}

	switch unit {
	case unitMinute:
		return marketdata.NewTimeFrame(multiplier, marketdata.Min), nil
	case unitHour:
		return marketdata.NewTimeFrame(multiplier, marketdata.Hour), nil
	case unitDay:
		return marketdata.NewTimeFrame(multiplier, marketdata.Day), nil
	case unitWeek:
		return marketdata.NewTimeFrame(multiplier, marketdata.Week), nil
	}

	return marketdata.TimeFrame{}, errors.Newf(errors.ErrCodeInvalidInterval, "unsupported interval %q for alpaca", interval)
}
