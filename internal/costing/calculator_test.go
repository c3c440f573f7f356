package costing

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCompute(t *testing.T) {
	tests := []struct {
		name       string
		price      string
		lines      []Line
		wantTotal  string
		wantMargin string
		wantPct    *string
	}{
		{
			name:       "two lines",
			price:      "10.00",
			lines:      []Line{{Cost: d("1.50"), Quantity: d("2")}, {Cost: d("0.75"), Quantity: d("4")}},
			wantTotal:  "6.00",
			wantMargin: "4.00",
			wantPct:    strPtr("40.00"),
		},
		{
			name:       "no lines",
			price:      "8.50",
			lines:      nil,
			wantTotal:  "0",
			wantMargin: "8.50",
			wantPct:    strPtr("100.00"),
		},
		{
			name:       "negative margin",
			price:      "2.00",
			lines:      []Line{{Cost: d("1.25"), Quantity: d("2")}},
			wantTotal:  "2.50",
			wantMargin: "-0.50",
			wantPct:    strPtr("-25.00"),
		},
		{
			name:       "rounds to two decimals",
			price:      "3.00",
			lines:      []Line{{Cost: d("1.00"), Quantity: d("1")}},
			wantTotal:  "1.00",
			wantMargin: "2.00",
			wantPct:    strPtr("66.67"),
		},
		{
			name:       "zero price omits percentage",
			price:      "0",
			lines:      []Line{{Cost: d("1.00"), Quantity: d("1")}},
			wantTotal:  "1.00",
			wantMargin: "-1.00",
			wantPct:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compute(d(tt.price), tt.lines)

			if !got.TotalCost.Equal(d(tt.wantTotal)) {
				t.Errorf("TotalCost = %s, want %s", got.TotalCost, tt.wantTotal)
			}
			if !got.Margin.Equal(d(tt.wantMargin)) {
				t.Errorf("Margin = %s, want %s", got.Margin, tt.wantMargin)
			}
			switch {
			case tt.wantPct == nil && got.MarginPercentage != nil:
				t.Errorf("MarginPercentage = %s, want nil", *got.MarginPercentage)
			case tt.wantPct != nil && got.MarginPercentage == nil:
				t.Errorf("MarginPercentage = nil, want %s", *tt.wantPct)
			case tt.wantPct != nil && *got.MarginPercentage != *tt.wantPct:
				t.Errorf("MarginPercentage = %s, want %s", *got.MarginPercentage, *tt.wantPct)
			}
		})
	}
}

func strPtr(s string) *string { return &s }
