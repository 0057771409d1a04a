package fmp

import (
	"errors"
	"fmt"
)

// ErrNoData is returned when the provider answers with an empty or unusable payload.
var ErrNoData = errors.New("no data returned")

// APIError is a non-success response from the provider.
type APIError struct {
	StatusCode int
	Endpoint   string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("fmp %s: status %d: %s", e.Endpoint, e.StatusCode, e.Message)
}

type quoteResponse struct {
	Symbol            string   `json:"symbol"`
	Price             *float64 `json:"price"`
	ChangesPercentage *float64 `json:"changesPercentage"`
	PreviousClose     *float64 `json:"previousClose"`
	Timestamp         int64    `json:"timestamp"`
}

type chartBar struct {
	Date  string  `json:"date"`
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

type newsResponse struct {
	Symbol        string `json:"symbol"`
	PublishedDate string `json:"publishedDate"`
	Title         string `json:"title"`
	Text          string `json:"text"`
	Site          string `json:"site"`
	URL           string `json:"url"`
}

// IncomeStatement is the subset of a quarterly income statement used for scoring.
type IncomeStatement struct {
	Date       string   `json:"date"`
	Revenue    *float64 `json:"revenue"`
	NetIncome  *float64 `json:"netIncome"`
	EPSDiluted *float64 `json:"epsdiluted"`
}

// BalanceSheet is the subset of a quarterly balance sheet used for scoring.
type BalanceSheet struct {
	Date                    string   `json:"date"`
	TotalStockholdersEquity *float64 `json:"totalStockholdersEquity"`
	TotalDebt               *float64 `json:"totalDebt"`
}

// CashFlowStatement is the subset of a quarterly cash-flow statement used for scoring.
type CashFlowStatement struct {
	Date         string   `json:"date"`
	FreeCashFlow *float64 `json:"freeCashFlow"`
}

// QuoteRatios carries valuation fields of a quote used for scoring.
type QuoteRatios struct {
	Price *float64 `json:"price"`
	PE    *float64 `json:"pe"`
}

// Statements bundles the latest quarterly statements of one ticker, newest first.
type Statements struct {
	Ticker   string
	Income   []IncomeStatement
	Balance  []BalanceSheet
	CashFlow []CashFlowStatement
	Quote    QuoteRatios
}
