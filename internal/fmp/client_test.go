package fmp

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "test-key", ClientConfig{
		Timeout:    2 * time.Second,
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
		RateLimit:  100,
	})
}

func TestGetQuote(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/quote/YM=F", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("apikey"))
		_, _ = w.Write([]byte(`[{"symbol":"YM=F","price":42150.5,"changesPercentage":-0.42,"previousClose":42328}]`))
	})

	q, err := c.GetQuote(context.Background(), "YM=F")
	require.NoError(t, err)
	assert.Equal(t, "YM=F", q.Symbol)
	assert.Equal(t, 42150.5, q.Price)
	assert.Equal(t, -0.42, q.ChangePct)
	assert.Equal(t, 42328.0, q.PreviousClose)
	assert.False(t, q.ObservedAt.IsZero())
}

func TestGetQuote_EmptyAndMissingPrice(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty list", `[]`},
		{"null price", `[{"symbol":"GC=F","price":null}]`},
		{"zero price", `[{"symbol":"GC=F","price":0}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := c.GetQuote(context.Background(), "GC=F")
			assert.ErrorIs(t, err, ErrNoData)
		})
	}
}

func TestGet_RetriesServerErrors(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`[{"symbol":"GC=F","price":2411.3}]`))
	})

	q, err := c.GetQuote(context.Background(), "GC=F")
	require.NoError(t, err)
	assert.Equal(t, 2411.3, q.Price)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestGet_DoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"Error Message":"Invalid API KEY"}`))
	})

	_, err := c.GetQuote(context.Background(), "GC=F")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGet_MalformedPayload(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"Error Message":"Limit Reach"}`))
	})
	_, err := c.GetQuote(context.Background(), "GC=F")
	assert.Error(t, err)
}

func TestGetFirstQuote_FallsBack(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/quote/^DJI" {
			_, _ = w.Write([]byte(`[]`))
			return
		}
		_, _ = w.Write([]byte(`[{"symbol":"YM=F","price":42000}]`))
	})

	q, err := c.GetFirstQuote(context.Background(), []string{"^DJI", "YM=F"})
	require.NoError(t, err)
	assert.Equal(t, "YM=F", q.Symbol)
}

func TestGetFirstQuote_AllFail(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})
	_, err := c.GetFirstQuote(context.Background(), []string{"^DJI", "YM=F"})
	assert.ErrorIs(t, err, ErrNoData)
}

func TestGetMinuteBars_ReversesToOldestFirst(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/historical-chart/1min/GC=F", r.URL.Path)
		_, _ = w.Write([]byte(`[
			{"date":"2024-05-01 10:03:00","close":2304.1},
			{"date":"2024-05-01 10:02:00","close":2303.0},
			{"date":"2024-05-01 10:01:00","close":2301.7},
			{"date":"2024-05-01 10:00:00","close":2300.2}
		]`))
	})

	bars, err := c.GetMinuteBars(context.Background(), "GC=F", 3)
	require.NoError(t, err)
	require.Len(t, bars, 3)
	assert.Equal(t, 2301.7, bars[0].Close)
	assert.Equal(t, 2303.0, bars[1].Close)
	assert.Equal(t, 2304.1, bars[2].Close)
	assert.True(t, bars[0].Timestamp.Before(bars[2].Timestamp))
}

func TestGetNews(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stock_news", r.URL.Path)
		assert.Equal(t, "MSFT,GS", r.URL.Query().Get("tickers"))
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`[
			{"symbol":"MSFT","publishedDate":"2024-05-01 09:30:00","title":"Microsoft beats estimates","text":"Cloud revenue surges","site":"Reuters"},
			{"symbol":"GS","publishedDate":"2024-05-01 09:00:00","title":"","text":""}
		]`))
	})

	items, err := c.GetNews(context.Background(), []string{"MSFT", "GS"}, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "MSFT", items[0].Symbol)
	assert.Equal(t, "Microsoft beats estimates", items[0].Title)
	assert.Equal(t, "Cloud revenue surges", items[0].Body)
	assert.Equal(t, "Reuters", items[0].Source)
	assert.False(t, items[0].PublishedAt.IsZero())
}

func TestGetStatements(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/income-statement/MSFT":
			assert.Equal(t, "quarter", r.URL.Query().Get("period"))
			_, _ = w.Write([]byte(`[{"date":"2024-03-31","revenue":61858,"netIncome":21939,"epsdiluted":2.94},{"date":"2023-12-31","revenue":62020,"netIncome":21870,"epsdiluted":2.93}]`))
		case "/balance-sheet-statement/MSFT":
			_, _ = w.Write([]byte(`[{"date":"2024-03-31","totalStockholdersEquity":253152,"totalDebt":88000}]`))
		case "/cash-flow-statement/MSFT":
			_, _ = w.Write([]byte(`[{"date":"2024-03-31","freeCashFlow":21000},{"date":"2023-12-31","freeCashFlow":9100}]`))
		case "/quote/MSFT":
			_, _ = w.Write([]byte(`[{"price":406.3,"pe":35.1}]`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	st, err := c.GetStatements(context.Background(), "MSFT")
	require.NoError(t, err)
	assert.Len(t, st.Income, 2)
	assert.Len(t, st.CashFlow, 2)
	require.NotNil(t, st.Quote.PE)
	assert.Equal(t, 35.1, *st.Quote.PE)
	assert.Equal(t, "2024-03-31", st.Income[0].Date)
}
