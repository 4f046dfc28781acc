package funding

import (
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseMinuteList parses free-text "15,5" style minute lists. Tokens are
// trimmed, float-like values truncated to int, and anything unparseable or
// negative is discarded. The result is deduplicated and ascending. An
// empty result means no before-funding alerts are configured.
func ParseMinuteList(text string) []int {
	seen := make(map[int]struct{})
	for _, part := range strings.Split(text, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		value, err := strconv.ParseFloat(part, 64)
		if err != nil {
			continue
		}
		minute := int(value)
		if minute < 0 {
			continue
		}
		seen[minute] = struct{}{}
	}

	minutes := make([]int, 0, len(seen))
	for minute := range seen {
		minutes = append(minutes, minute)
	}
	sort.Ints(minutes)
	return minutes
}

// Threshold is a percent threshold that may be disabled. A typo in the
// configuration disables the filter instead of failing.
type Threshold struct {
	Value   decimal.Decimal
	Enabled bool
}

// ParseThreshold parses a single percent threshold. Zero, negative, or
// unparseable input yields a disabled threshold.
func ParseThreshold(text string) Threshold {
	value, err := decimal.NewFromString(strings.TrimSpace(text))
	if err != nil || value.Sign() <= 0 {
		return Threshold{}
	}
	return Threshold{Value: value, Enabled: true}
}

// PassesThreshold applies OR semantics: the rate passes when it reaches the
// positive threshold or falls to the negated negative threshold. With both
// thresholds disabled there is no filter and everything passes.
func PassesThreshold(signedRatePct decimal.Decimal, pos, neg Threshold) bool {
	if !pos.Enabled && !neg.Enabled {
		return true
	}
	if pos.Enabled && signedRatePct.GreaterThanOrEqual(pos.Value) {
		return true
	}
	if neg.Enabled && signedRatePct.LessThanOrEqual(neg.Value.Neg()) {
		return true
	}
	return false
}
