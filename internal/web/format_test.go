package web

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func f(v float64) *float64 { return &v }
func i(v int64) *int64     { return &v }

func TestFormatYield(t *testing.T) {
	assert.Equal(t, "2.50%", FormatYield(f(2.5)))
	assert.Equal(t, "4.04%", FormatYield(f(4.0371)))
	assert.Equal(t, "-", FormatYield(nil))
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "2,500円", FormatPrice(f(2500)))
	assert.Equal(t, "1,234.5円", FormatPrice(f(1234.5)))
	assert.Equal(t, "215.5円", FormatPrice(f(215.5)))
	assert.Equal(t, "-", FormatPrice(nil))
}

func TestFormatRatio(t *testing.T) {
	assert.Equal(t, "10.50", FormatRatio(f(10.5)))
	assert.Equal(t, "-3.20", FormatRatio(f(-3.2)))
	assert.Equal(t, "-", FormatRatio(nil))
}

func TestFormatMarketCap(t *testing.T) {
	tests := []struct {
		name     string
		millions *int64
		expected string
	}{
		{name: "nil", millions: nil, expected: "-"},
		{name: "trillions", millions: i(40_123_456), expected: "40.1兆円"},
		{name: "exactly one trillion", millions: i(1_000_000), expected: "1.0兆円"},
		{name: "hundred millions", millions: i(987_654), expected: "9,877億円"},
		{name: "exactly one hundred million", millions: i(100), expected: "1億円"},
		{name: "millions", millions: i(99), expected: "99百万円"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatMarketCap(tt.millions))
		})
	}
}

func TestFormatTime(t *testing.T) {
	ts := time.Date(2025, 10, 1, 9, 30, 0, 0, time.UTC)
	assert.Equal(t, "2025/10/01 18:30", FormatTime(ts))
	assert.Equal(t, "-", FormatTime(time.Time{}))
}
