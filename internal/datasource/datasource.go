// Package datasource defines the market data provider abstraction and its
// implementations. Providers return bars ascending by timestamp over an
// inclusive range; failures propagate, there is no retry logic at this layer.
package datasource

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/quantfold/backtest/internal/types"
	"github.com/quantfold/backtest/pkg/errors"
)

// DataProvider supplies historical and latest market data to the engine.
type DataProvider interface {
	// GetOHLCV returns bars for the symbol in [start, end], ascending by
	// timestamp.
	GetOHLCV(ctx context.Context, symbol string, interval string, start, end time.Time) ([]types.Bar, error)
	// GetLatestPrice returns the most recent known price for the symbol.
	GetLatestPrice(ctx context.Context, symbol string) (float64, error)
}

// intervalUnit is the bar-size unit of an interval string such as "15m",
// "4h", "1d", or "1w".
type intervalUnit string

const (
	unitMinute intervalUnit = "m"
	unitHour   intervalUnit = "h"
	unitDay    intervalUnit = "d"
	unitWeek   intervalUnit = "w"
)

// parseInterval splits an interval string into its multiplier and unit.
func parseInterval(interval string) (int, intervalUnit, error) {
	if len(interval) < 2 {
		return 0, "", errors.Newf(errors.ErrCodeInvalidInterval, "invalid interval %q", interval)
	}

	unit := intervalUnit(strings.ToLower(interval[len(interval)-1:]))
	switch unit {
	case unitMinute, unitHour, unitDay, unitWeek:
	default:
		return 0, "", errors.Newf(errors.ErrCodeInvalidInterval, "unsupported interval unit in %q", interval)
	}

	multiplier, err := strconv.Atoi(interval[:len(interval)-1])
	if err != nil || multiplier <= 0 {
		return 0, "", errors.Newf(errors.ErrCodeInvalidInterval, "invalid interval multiplier in %q", interval)
	}

	return multiplier, unit, nil
}

// IntervalDuration returns the wall-clock length of one bar of the interval.
func IntervalDuration(interval string) (time.Duration, error) {
	multiplier, unit, err := parseInterval(interval)
	if err != nil {
		return 0, err
	}

	switch unit {
	case unitMinute:
		return time.Duration(multiplier) * time.Minute, nil
	case unitHour:
		return time.Duration(multiplier) * time.Hour, nil
	case unitDay:
		return time.Duration(multiplier) * 24 * time.Hour, nil
	case unitWeek:
		return time.Duration(multiplier) * 7 * 24 * time.Hour, nil
	}

	return 0, errors.Newf(errors.ErrCodeInvalidInterval, "unsupported interval %q", interval)
}

func noDataError(symbol string, start, end time.Time) error {
	return errors.New(errors.ErrCodeNoDataFound,
		fmt.Sprintf("no data for %s between %s and %s", symbol, start.Format(time.RFC3339), end.Format(time.RFC3339)))
}
