package web

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

const placeholder = "-"

var jst = time.FixedZone("JST", 9*60*60)

var (
	trillionInMillions  = decimal.NewFromInt(1_000_000)
	hundredMillionUnits = decimal.NewFromInt(100)
)

// FormatYield renders a percentage as "3.25%"
func FormatYield(v *float64) string {
	if v == nil {
		return placeholder
	}
	return fmt.Sprintf("%.2f%%", *v)
}

// FormatPrice renders yen with thousands separators, "2,500円"
func FormatPrice(v *float64) string {
	if v == nil {
		return placeholder
	}
	return humanize.CommafWithDigits(*v, 2) + "円"
}

// FormatRatio renders PER/PBR with two decimals
func FormatRatio(v *float64) string {
	if v == nil {
		return placeholder
	}
	return fmt.Sprintf("%.2f", *v)
}

// FormatMarketCap renders a market cap given in millions of yen
// as 兆円, 億円 or 百万円
func FormatMarketCap(v *int64) string {
	if v == nil {
		return placeholder
	}
	m := decimal.NewFromInt(*v)

	switch {
	case m.GreaterThanOrEqual(trillionInMillions):
		return m.Div(trillionInMillions).StringFixed(1) + "兆円"
	case m.GreaterThanOrEqual(hundredMillionUnits):
		return humanize.Comma(m.Div(hundredMillionUnits).Round(0).IntPart()) + "億円"
	default:
		return humanize.Comma(*v) + "百万円"
	}
}

// FormatTime renders a timestamp in Japan time
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return placeholder
	}
	return t.In(jst).Format("2006/01/02 15:04")
}
