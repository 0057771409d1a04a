// Package fmp provides a client for the Financial Modeling Prep market-data API.
package fmp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"golang.org/x/time/rate"

	"github.com/rewired-gh/voltwatch/internal/logger"
	"github.com/rewired-gh/voltwatch/internal/models"
	"github.com/rewired-gh/voltwatch/internal/retry"
)

const (
	// DefaultBaseURL is the base URL for the v3 API.
	DefaultBaseURL = "https://financialmodelingprep.com/api/v3"

	// exchange-local timestamps in chart and news payloads
	dateLayout = "2006-01-02 15:04:05"
)

// ClientConfig holds client tuning options.
type ClientConfig struct {
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
	RateLimit  int // requests per second
}

// Client provides access to the FMP API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	policy     retry.Policy
	location   *time.Location
}

// NewClient creates a new FMP client.
func NewClient(baseURL, apiKey string, cfg ClientConfig) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 2
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 5
	}

	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.UTC
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter:  rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimit),
		policy:   retry.Policy{Attempts: cfg.MaxRetries, Delay: cfg.RetryDelay},
		location: loc,
	}
}

// GetQuote returns the latest observation for symbol.
func (c *Client) GetQuote(ctx context.Context, symbol string) (models.Quote, error) {
	var resp []quoteResponse
	if err := c.get(ctx, "/quote/"+url.PathEscape(symbol), nil, &resp); err != nil {
		return models.Quote{}, err
	}
	if len(resp) == 0 {
		return models.Quote{}, fmt.Errorf("quote %s: %w", symbol, ErrNoData)
	}

	r := resp[0]
	if r.Price == nil || *r.Price <= 0 {
		return models.Quote{}, fmt.Errorf("quote %s: missing price: %w", symbol, ErrNoData)
	}

	q := models.Quote{
		Symbol:     symbol,
		Price:      *r.Price,
		ObservedAt: time.Now().UTC(),
	}
	if r.ChangesPercentage != nil {
		q.ChangePct = *r.ChangesPercentage
	}
	if r.PreviousClose != nil {
		q.PreviousClose = *r.PreviousClose
	}
	return q, nil
}

// GetFirstQuote tries symbols in order and returns the first quote that answers.
func (c *Client) GetFirstQuote(ctx context.Context, symbols []string) (models.Quote, error) {
	var errs []error
	for _, s := range symbols {
		q, err := c.GetQuote(ctx, s)
		if err == nil {
			return q, nil
		}
		if ctx.Err() != nil {
			return models.Quote{}, ctx.Err()
		}
		logger.Debug("Quote for %s unavailable, trying next symbol: %v", s, err)
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return models.Quote{}, fmt.Errorf("no symbols configured: %w", ErrNoData)
	}
	return models.Quote{}, errors.Join(errs...)
}

// GetMinuteBars returns up to limit 1-minute closes, ordered oldest to newest.
func (c *Client) GetMinuteBars(ctx context.Context, symbol string, limit int) ([]models.MinuteBar, error) {
	var resp []chartBar
	if err := c.get(ctx, "/historical-chart/1min/"+url.PathEscape(symbol), nil, &resp); err != nil {
		return nil, err
	}
	if len(resp) == 0 {
		return nil, fmt.Errorf("minute bars %s: %w", symbol, ErrNoData)
	}
	if limit > 0 && len(resp) > limit {
		resp = resp[:limit]
	}

	// provider order is newest first
	bars := make([]models.MinuteBar, 0, len(resp))
	for i := len(resp) - 1; i >= 0; i-- {
		ts, _ := time.ParseInLocation(dateLayout, resp[i].Date, c.location)
		bars = append(bars, models.MinuteBar{
			Instrument: symbol,
			Close:      resp[i].Close,
			Timestamp:  ts.UTC(),
		})
	}
	return bars, nil
}

// GetNews returns the latest headlines for the given tickers.
func (c *Client) GetNews(ctx context.Context, symbols []string, limit int) ([]models.NewsItem, error) {
	params := url.Values{}
	if len(symbols) > 0 {
		params.Set("tickers", strings.Join(symbols, ","))
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	var resp []newsResponse
	if err := c.get(ctx, "/stock_news", params, &resp); err != nil {
		return nil, err
	}

	items := make([]models.NewsItem, 0, len(resp))
	for _, n := range resp {
		if n.Title == "" && n.Text == "" {
			continue
		}
		published, _ := time.ParseInLocation(dateLayout, n.PublishedDate, c.location)
		items = append(items, models.NewsItem{
			Symbol:      n.Symbol,
			Title:       n.Title,
			Body:        n.Text,
			Source:      n.Site,
			URL:         n.URL,
			PublishedAt: published.UTC(),
		})
	}
	return items, nil
}

// GetStatements fetches the latest quarterly statements and valuation quote for ticker.
func (c *Client) GetStatements(ctx context.Context, ticker string) (*Statements, error) {
	st := &Statements{Ticker: ticker}
	path := url.PathEscape(ticker)

	quarter := func(limit int) url.Values {
		return url.Values{"period": {"quarter"}, "limit": {strconv.Itoa(limit)}}
	}

	if err := c.get(ctx, "/income-statement/"+path, quarter(2), &st.Income); err != nil {
		return nil, err
	}
	if err := c.get(ctx, "/balance-sheet-statement/"+path, quarter(1), &st.Balance); err != nil {
		return nil, err
	}
	if err := c.get(ctx, "/cash-flow-statement/"+path, quarter(2), &st.CashFlow); err != nil {
		return nil, err
	}
	var quotes []QuoteRatios
	if err := c.get(ctx, "/quote/"+path, nil, &quotes); err != nil {
		return nil, err
	}

	if len(st.Income) == 0 || len(st.Balance) == 0 || len(st.CashFlow) == 0 || len(quotes) == 0 {
		return nil, fmt.Errorf("statements %s: %w", ticker, ErrNoData)
	}
	st.Quote = quotes[0]
	return st, nil
}

// get performs a rate-limited GET with the bounded retry policy and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	q.Set("apikey", c.apiKey)
	reqURL := c.baseURL + path + "?" + q.Encode()

	return c.policy.Do(ctx, func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return retry.Permanent(fmt.Errorf("rate limiter: %w", err))
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return retry.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		req.Header.Set("Accept", "application/json")

		logger.Debug("FMP request %s", path)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("failed to execute request: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			apiErr := &APIError{
				StatusCode: resp.StatusCode,
				Endpoint:   path,
				Message:    truncate(string(body), 200),
			}
			if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
				return apiErr
			}
			return retry.Permanent(apiErr)
		}

		if err := sonic.Unmarshal(body, out); err != nil {
			return retry.Permanent(fmt.Errorf("failed to decode %s: %w", path, err))
		}
		return nil
	})
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
