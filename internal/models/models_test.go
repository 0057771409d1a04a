package models

import (
	"testing"
	"time"
)

func TestQuoteValidate(t *testing.T) {
	tests := []struct {
		name    string
		quote   Quote
		wantErr bool
	}{
		{
			name:  "valid quote",
			quote: Quote{Symbol: "YM=F", Price: 42000, ChangePct: -0.3, PreviousClose: 42120, ObservedAt: time.Now()},
		},
		{
			name:    "empty symbol",
			quote:   Quote{Price: 100},
			wantErr: true,
		},
		{
			name:    "zero price",
			quote:   Quote{Symbol: "GC=F"},
			wantErr: true,
		},
		{
			name:    "negative previous close",
			quote:   Quote{Symbol: "GC=F", Price: 2400, PreviousClose: -1},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.quote.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Quote.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFundamentalsRecordValidate(t *testing.T) {
	tests := []struct {
		name    string
		record  FundamentalsRecord
		wantErr bool
	}{
		{"valid", FundamentalsRecord{Ticker: "MSFT", Score: 71.4}, false},
		{"lower bound", FundamentalsRecord{Ticker: "MSFT", Score: 0}, false},
		{"upper bound", FundamentalsRecord{Ticker: "MSFT", Score: 100}, false},
		{"empty ticker", FundamentalsRecord{Score: 50}, true},
		{"above range", FundamentalsRecord{Ticker: "GS", Score: 100.1}, true},
		{"below range", FundamentalsRecord{Ticker: "GS", Score: -3}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.record.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("FundamentalsRecord.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewsItemText(t *testing.T) {
	item := NewsItem{Title: "Fed signals rate cut", Body: "Officials sound dovish"}
	if got := item.Text(); got != "Fed signals rate cut Officials sound dovish" {
		t.Errorf("Text() = %q", got)
	}
	if got := (NewsItem{Title: "Only title"}).Text(); got != "Only title" {
		t.Errorf("Text() without body = %q", got)
	}
}

func TestAlertStateHasAlerted(t *testing.T) {
	var s AlertState
	if s.HasAlerted() {
		t.Error("zero state should not report an alert")
	}
	p := 135.0
	s = AlertState{LastAlertPrice: &p, LastAlertTime: time.Unix(30, 0)}
	if !s.HasAlerted() {
		t.Error("state with alert time should report an alert")
	}
}
