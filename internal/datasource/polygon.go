package datasource

import (
	"context"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"

	"github.com/quantfold/backtest/internal/types"
	"github.com/quantfold/backtest/pkg/errors"
)

// PolygonProvider fetches aggregate bars from the Polygon REST API.
type PolygonProvider struct {
	client *polygon.Client
}

var _ DataProvider = (*PolygonProvider)(nil)

// NewPolygonProvider creates a provider with the given API key.
func NewPolygonProvider(apiKey string) (*PolygonProvider, error) {
	if apiKey == "" {
		return nil, errors.New(errors.ErrCodeMissingParameter, "polygon API key is required")
	}

	return &PolygonProvider{client: polygon.New(apiKey)}, nil
}

// GetOHLCV lists aggregates over the range using the iterator API.
func (p *PolygonProvider) GetOHLCV(ctx context.Context, symbol string, interval string, start, end time.Time) ([]types.Bar, error) {
	multiplier, timespan, err := polygonTimespan(interval)
	if err != nil {
		return nil, err
	}

	params := models.ListAggsParams{
		Ticker:     symbol,
		Multiplier: multiplier,
		Timespan:   timespan,
		From:       models.Millis(start),
		To:         models.Millis(end),
	}.WithLimit(50000)

	iter := p.client.ListAggs(ctx, params)

	var bars []types.Bar

	for iter.Next() {
		agg := iter.Item()
		bars = append(bars, types.Bar{
			Symbol: symbol,
			Time:   time.Time(agg.Timestamp),
			Open:   agg.Open,
			High:   agg.High,
			Low:    agg.Low,
			Close:  agg.Close,
			Volume: agg.Volume,
		})
	}

	if iter.Err() != nil {
		return nil, errors.Wrapf(errors.ErrCodeProviderFailed, iter.Err(), "failed to list aggregates for %s", symbol)
	}

	if len(bars) == 0 {
		return nil, noDataError(symbol, start, end)
	}

	return bars, nil
}

// GetLatestPrice returns the close of the previous day's bar, which is the
// most recent price available without a real-time entitlement.
func (p *PolygonProvider) GetLatestPrice(ctx context.Context, symbol string) (float64, error) {
	res, err := p.client.GetPreviousCloseAgg(ctx, &models.GetPreviousCloseAggParams{Ticker: symbol})
	if err != nil {
		return 0, errors.Wrapf(errors.ErrCodeProviderFailed, err, "failed to fetch previous close for %s", symbol)
	}

	if len(res.Results) == 0 {
		return 0, errors.Newf(errors.ErrCodeNoDataFound, "no previous close returned for %s", symbol)
	}

	return res.Results[0].Close, nil
}

func polygonTimespan(interval string) (int, models.Timespan, error) {
	multiplier, unit, err := parseInterval(interval)
	if err != nil {
		return 0, "", err
	}

	switch unit {
	case unitMinute:
		return multiplier, models.Minute, nil
	case unitHour:
		return multiplier, models.Hour, nil
	case unitDay:
		return multiplier, models.Day, nil
	case unitWeek:
		return multiplier, models.Week, nil
	}

	return 0, "", errors.Newf(errors.ErrCodeInvalidInterval, "unsupported interval %q for polygon", interval)
}
