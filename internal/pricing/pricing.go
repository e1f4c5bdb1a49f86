// Package pricing derives offer prices, foreign-currency display prices and
// profit figures. All functions are pure; malformed inputs degrade to zero.
package pricing

import (
	"encoding/json"
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// RateThreshold splits the two rate conventions. A rate above it is foreign
// units per RMB; at or below it the rate is RMB per foreign unit.
const RateThreshold = 10.0

// Decimal places for each display currency.
const (
	KRWPlaces = 1
	USDPlaces = 2
)

// Markup returns round(cost * (1 + margin/100), 2). ok is false when cost <= 0,
// in which case the caller's price stands.
func Markup(cost, marginPercent float64) (price float64, ok bool) {
	if cost <= 0 {
		return 0, false
	}
	return Round(cost*(1+marginPercent/100.0), 2), true
}

// Convert turns an RMB price into a foreign price using rate, rounded to places.
func Convert(priceRMB, rate float64, places int32) float64 {
	if rate > RateThreshold {
		return Round(priceRMB*rate, places)
	}
	if rate == 0 {
		return 0
	}
	return Round(priceRMB/rate, places)
}

func ConvertKRW(priceRMB, rate float64) float64 { return Convert(priceRMB, rate, KRWPlaces) }

func ConvertUSD(priceRMB, rate float64) float64 { return Convert(priceRMB, rate, USDPlaces) }

// Profit is round(offer - cost, 3).
func Profit(offerPrice, costPrice float64) float64 {
	return Round(offerPrice-costPrice, 3)
}

// TotalProfit is round(profit * qty) as an integer.
func TotalProfit(profit float64, qty int) int64 {
	return exact(profit * float64(qty)).RoundBank(0).IntPart()
}

// Round rounds the exact binary value of v to places, ties to even.
// 2.675 is stored just below the tie and rounds to 2.67; 0.125 is an exact
// tie and rounds to 0.12.
func Round(v float64, places int32) float64 {
	return exact(v).RoundBank(places).InexactFloat64()
}

// exact is the decimal expansion of v with no shortest-form shortcut.
func exact(v float64) decimal.Decimal {
	if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero
	}
	frac, exp := math.Frexp(v)
	mant := big.NewInt(int64(frac * (1 << 53)))
	exp -= 53
	if exp >= 0 {
		return decimal.NewFromBigInt(mant.Lsh(mant, uint(exp)), 0)
	}
	// mant / 2^k == mant * 5^k / 10^k
	k := int64(-exp)
	pow := new(big.Int).Exp(big.NewInt(5), big.NewInt(k), nil)
	return decimal.NewFromBigInt(pow.Mul(pow, mant), int32(-k))
}

// ToFloat reads a loosely typed numeric value. Missing or non-numeric input is 0.
func ToFloat(v interface{}) float64 {
	f, _ := ParseFloat(v)
	return f
}

// ParseFloat is ToFloat with a flag telling whether v held a number.
// nil and blank strings count as absent, not as malformed.
func ParseFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case nil:
		return 0, true
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, true
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// ToInt reads a loosely typed integer value, truncating fractions.
func ToInt(v interface{}) int {
	n, _ := ParseInt(v)
	return n
}

// ParseInt is ToInt with a flag telling whether v held a number.
func ParseInt(v interface{}) (int, bool) {
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		if n, err := strconv.Atoi(s); err == nil {
			return n, true
		}
	}
	f, ok := ParseFloat(v)
	return int(f), ok
}
