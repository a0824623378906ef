package market

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const DefaultYahooBaseURL = "https://query1.finance.yahoo.com"

// YahooClient reads daily closes from the Yahoo Finance chart API.
type YahooClient struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewYahooClient returns a client for baseURL (DefaultYahooBaseURL when
// empty). A nil client uses DefaultHTTPClient.
func NewYahooClient(baseURL string, client *http.Client, logger *slog.Logger) *YahooClient {
	if baseURL == "" {
		baseURL = DefaultYahooBaseURL
	}
	if client == nil {
		client = DefaultHTTPClient()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &YahooClient{baseURL: baseURL, client: client, logger: logger}
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (y *YahooClient) chartURL(ticker string, r Range) string {
	q := url.Values{}
	interval := r.Interval
	if interval == "" {
		interval = "1d"
	}
	q.Set("interval", interval)
	if !r.Start.IsZero() {
		q.Set("period1", strconv.FormatInt(r.Start.Unix(), 10))
		q.Set("period2", strconv.FormatInt(time.Now().Unix(), 10))
	} else {
		period := r.Period
		if period == "" {
			period = "5d"
		}
		q.Set("range", period)
	}
	return fmt.Sprintf("%s/v8/finance/chart/%s?%s", y.baseURL, url.PathEscape(ticker), q.Encode())
}

// Series returns the non-null closes of ticker.
func (y *YahooClient) Series(ctx context.Context, ticker string, r Range) ([]Point, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, y.chartURL(ticker, r), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; marketdash/1.0)")
	req.Header.Set("Accept", "application/json")

	resp, err := y.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo %s: %w", ticker, err)
	}
	defer resp.Body.Close()

	var body chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("yahoo %s: decode (status %d): %w", ticker, resp.StatusCode, err)
	}
	if body.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo %s: %s: %s", ticker, body.Chart.Error.Code, body.Chart.Error.Description)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo %s: unexpected status %d", ticker, resp.StatusCode)
	}
	if len(body.Chart.Result) == 0 || len(body.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("yahoo %s: %w", ticker, ErrNoData)
	}

	res := body.Chart.Result[0]
	closes := res.Indicators.Quote[0].Close
	out := make([]Point, 0, len(closes))
	for i, c := range closes {
		if c == nil || math.IsNaN(*c) || i >= len(res.Timestamp) {
			continue
		}
		out = append(out, Point{Time: time.Unix(res.Timestamp[i], 0).UTC(), Value: *c})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("yahoo %s: %w", ticker, ErrNoData)
	}
	y.logger.Debug("yahoo series fetched", "ticker", ticker, "points", len(out))
	return out, nil
}
