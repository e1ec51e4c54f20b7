package connector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/yourorg/datalens/internal/model"
	"github.com/yourorg/datalens/internal/normalize"
)

const (
	coinGeckoID          = "coingecko"
	coinGeckoSource      = "CoinGecko"
	coinGeckoDefaultURL  = "https://api.coingecko.com/api/v3"
	coinGeckoDefaultDays = "365"
	coinGeckoMaxDays     = 3650
)

var coinGeckoBasePrices = map[string]float64{
	"bitcoin":   45000,
	"ethereum":  3000,
	"solana":    100,
	"cardano":   0.5,
	"polkadot":  7,
	"chainlink": 15,
}

// CoinGecko fetches historical USD prices for a coin. Upstream failures,
// including rate limiting, fall back to synthetic prices.
type CoinGecko struct {
	catalog
	opts    Options
	baseURL string
	up      *upstream
}

// NewCoinGecko creates a CoinGecko connector.
func NewCoinGecko(opts Options) *CoinGecko {
	base := opts.BaseURL
	if base == "" {
		base = coinGeckoDefaultURL
	}
	var headers map[string]string
	if opts.APIKey != "" {
		headers = map[string]string{"x-cg-demo-api-key": opts.APIKey}
	}
	return &CoinGecko{
		catalog: catalog{
			id:          coinGeckoID,
			name:        "CoinGecko",
			category:    CategoryCrypto,
			description: "Cryptocurrency prices and market data",
			indicators: []model.DataSourceIndicator{
				{ID: "bitcoin", Name: "Bitcoin (BTC)", Description: "Bitcoin price in USD", Unit: "USD"},
				{ID: "ethereum", Name: "Ethereum (ETH)", Description: "Ethereum price in USD", Unit: "USD"},
				{ID: "solana", Name: "Solana (SOL)", Description: "Solana price in USD", Unit: "USD"},
				{ID: "cardano", Name: "Cardano (ADA)", Description: "Cardano price in USD", Unit: "USD"},
				{ID: "polkadot", Name: "Polkadot (DOT)", Description: "Polkadot price in USD", Unit: "USD"},
				{ID: "chainlink", Name: "Chainlink (LINK)", Description: "Chainlink price in USD", Unit: "USD"},
			},
		},
		opts:    opts,
		baseURL: strings.TrimRight(base, "/"),
		up:      newUpstream(coinGeckoID, opts, headers),
	}
}

// Fetch implements Connector.
func (c *CoinGecko) Fetch(ctx context.Context, indicatorID string, params map[string]string) (*model.DataSet, error) {
	ind, err := c.indicator(indicatorID)
	if err != nil {
		return nil, err
	}

	days := param(params, ind, "days", coinGeckoDefaultDays)
	n, err := strconv.Atoi(days)
	if err != nil || n <= 0 || n > coinGeckoMaxDays {
		return nil, &InvalidParameterError{Connector: coinGeckoID, Param: "days", Value: days}
	}

	now := c.opts.now()
	ds := &model.DataSet{
		ID:   normalize.DataSetID(coinGeckoID, ind.ID, strconv.Itoa(n)),
		Name: ind.Name,
		Metadata: model.Metadata{
			Unit:        "USD",
			Source:      coinGeckoSource,
			LastUpdated: now.UTC().Format(time.RFC3339),
		},
	}

	points, err := c.fetchPrices(ctx, ind.ID, days)
	if err != nil {
		var fetchErr *FetchError
		if !errors.As(err, &fetchErr) {
			return nil, err
		}
		ds.Data = c.synthetic(ds.ID, ind.ID, n, now)
		return normalize.Finalize(markDegraded(ds, coinGeckoID, ind.ID, err)), nil
	}

	ds.Data = points
	return normalize.Finalize(ds), nil
}

func (c *CoinGecko) fetchPrices(ctx context.Context, coin, days string) ([]model.DataPoint, error) {
	q := url.Values{}
	q.Set("vs_currency", "usd")
	q.Set("days", days)
	endpoint := fmt.Sprintf("%s/coins/%s/market_chart?%s", c.baseURL, url.PathEscape(coin), q.Encode())

	body, err := c.up.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	// null samples decode as nil and are skipped
	var response struct {
		Prices [][]*float64 `json:"prices"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, c.up.parseError(err)
	}

	// Intraday granularity collapses to one point per date, keeping the latest sample.
	byDate := make(map[string]int, len(response.Prices))
	points := make([]model.DataPoint, 0, len(response.Prices))
	for _, pair := range response.Prices {
		if len(pair) < 2 || pair[0] == nil || pair[1] == nil || !normalize.IsFinite(*pair[1]) {
			continue
		}
		date := normalize.FormatDate(time.UnixMilli(int64(*pair[0])))
		price := *pair[1]
		if i, seen := byDate[date]; seen {
			points[i].Y = price
			continue
		}
		byDate[date] = len(points)
		points = append(points, model.DataPoint{X: date, Y: price})
	}
	return points, nil
}

// synthetic generates days+1 daily prices ending today.
func (c *CoinGecko) synthetic(datasetID, coin string, days int, now time.Time) []model.DataPoint {
	base, ok := coinGeckoBasePrices[coin]
	if !ok {
		base = 100
	}
	rng := seededRand(datasetID)
	values := randomWalk(rng, days+1, base, 0.05, 0.1)
	points := make([]model.DataPoint, 0, days+1)
	for i := days; i >= 0; i-- {
		points = append(points, model.DataPoint{
			X: normalize.FormatDate(now.AddDate(0, 0, -i)),
			Y: values[days-i],
		})
	}
	return points
}
