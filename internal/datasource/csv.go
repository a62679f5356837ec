package datasource

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gocarina/gocsv"
	"go.uber.org/zap"

	"github.com/quantfold/backtest/internal/logger"
	"github.com/quantfold/backtest/internal/types"
	"github.com/quantfold/backtest/pkg/errors"
)

// CSVProvider serves bars from local CSV files, one file per symbol named
// <SYMBOL>.csv under a data directory. Files are loaded lazily and cached
// for the provider's lifetime. The interval argument is ignored; the file's
// native bar size is served as-is.
type CSVProvider struct {
	dataDir string

	mu    sync.Mutex
	cache map[string][]types.Bar

	log *logger.Logger
}

var _ DataProvider = (*CSVProvider)(nil)

// NewCSVProvider creates a provider rooted at the given data directory.
func NewCSVProvider(dataDir string, log *logger.Logger) *CSVProvider {
	return &CSVProvider{
		dataDir: dataDir,
		cache:   make(map[string][]types.Bar),
		log:     log,
	}
}

// GetOHLCV returns the cached symbol's bars filtered to [start, end].
func (p *CSVProvider) GetOHLCV(_ context.Context, symbol string, _ string, start, end time.Time) ([]types.Bar, error) {
	bars, err := p.load(symbol)
	if err != nil {
		return nil, err
	}

	var filtered []types.Bar

	for _, bar := range bars {
		if bar.Time.Before(start) || bar.Time.After(end) {
			continue
		}

		filtered = append(filtered, bar)
	}

	if len(filtered) == 0 {
		return nil, noDataError(symbol, start, end)
	}

	return filtered, nil
}

// GetLatestPrice returns the close of the symbol's last bar on file.
func (p *CSVProvider) GetLatestPrice(_ context.Context, symbol string) (float64, error) {
	bars, err := p.load(symbol)
	if err != nil {
		return 0, err
	}

	return bars[len(bars)-1].Close, nil
}

func (p *CSVProvider) load(symbol string) ([]types.Bar, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if bars, ok := p.cache[symbol]; ok {
		return bars, nil
	}

	path := filepath.Join(p.dataDir, strings.ToUpper(symbol)+".csv")

	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeNoDataFound, err, "failed to open data file for %s", symbol)
	}
	defer file.Close()

	var bars []types.Bar
	if err := gocsv.UnmarshalFile(file, &bars); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeDataParse, err, "failed to parse CSV data for %s", symbol)
	}

	if len(bars) == 0 {
		return nil, errors.Newf(errors.ErrCodeNoDataFound, "data file for %s is empty", symbol)
	}

	for i := range bars {
		if bars[i].Symbol == "" {
			bars[i].Symbol = symbol
		}
	}

	sort.Slice(bars, func(i, j int) bool {
		return bars[i].Time.Before(bars[j].Time)
	})

	p.cache[symbol] = bars
	p.log.Debug("loaded CSV market data",
		zap.String("symbol", symbol),
		zap.String("path", path),
		zap.Int("bars", len(bars)),
	)

	return bars, nil
}

// ClearCache drops all cached bars.
func (p *CSVProvider) ClearCache() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.cache = make(map[string][]types.Bar)
}
