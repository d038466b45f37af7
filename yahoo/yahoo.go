// Package yahoo fetches daily closing prices from the Yahoo Finance chart
// API. Responses are cached on disk for the day, so repeated runs do not
// hammer the endpoint.
package yahoo

import (
	"fmt"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/ifolio/ifolio"
	"github.com/ifolio/ifolio/date"
	"github.com/shopspring/decimal"
)

const defaultBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart"

// Client queries the chart endpoint. The zero value is not usable, use
// NewClient.
type Client struct {
	baseURL string
	// see util.go for the caching transport behind this
	http doer
}

// NewClient returns a client backed by a daily disk cache.
func NewClient() *Client {
	return &Client{baseURL: defaultBaseURL, http: newDailyCachingClient()}
}

// History returns the daily closes for ticker in [from, to), oldest first.
// Days without a close (market holidays, suspended quotes) are absent from
// the result.
func (c *Client) History(ticker string, from, to date.Date) ([]ifolio.Quote, error) {
	addr := fmt.Sprintf("%s/%s?period1=%d&period2=%d&interval=1d&events=history",
		c.baseURL, ticker, from.Unix(), to.Unix())

	var payload interface{}
	if err := jwget(c.http, addr, &payload); err != nil {
		return nil, fmt.Errorf("fetching %s history: %w", ticker, err)
	}
	quotes, err := parseChart(payload)
	if err != nil {
		return nil, fmt.Errorf("parsing %s history: %w", ticker, err)
	}
	return quotes, nil
}

// parseChart extracts (date, close) pairs from a decoded chart response.
func parseChart(payload interface{}) ([]ifolio.Quote, error) {
	ts, err := jsonpath.Get("$.chart.result[0].timestamp", payload)
	if err != nil {
		return nil, fmt.Errorf("no timestamps in chart response: %w", err)
	}
	cl, err := jsonpath.Get("$.chart.result[0].indicators.quote[0].close", payload)
	if err != nil {
		return nil, fmt.Errorf("no closes in chart response: %w", err)
	}

	timestamps, ok := ts.([]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected timestamp payload %T", ts)
	}
	closes, ok := cl.([]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected close payload %T", cl)
	}
	if len(timestamps) != len(closes) {
		return nil, fmt.Errorf("chart response mismatch: %d timestamps, %d closes", len(timestamps), len(closes))
	}

	quotes := make([]ifolio.Quote, 0, len(closes))
	for i, c := range closes {
		// a null close marks a day the instrument did not trade
		price, ok := c.(float64)
		if !ok {
			continue
		}
		sec, ok := timestamps[i].(float64)
		if !ok {
			return nil, fmt.Errorf("unexpected timestamp %v", timestamps[i])
		}
		t := time.Unix(int64(sec), 0).UTC()
		quotes = append(quotes, ifolio.Quote{
			Date:  date.New(t.Year(), t.Month(), t.Day()),
			Close: decimal.NewFromFloat(price),
		})
	}
	return quotes, nil
}
