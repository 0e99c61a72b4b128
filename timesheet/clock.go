package timesheet

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CLOCK TIMES - "H:MM", "H:MM:SS", optional AM/PM
// =============================================================================

var (
	meridiemRe = regexp.MustCompile(`(?i)^(\d{1,2}):(\d{2})(?::(\d{2}))?\s*(AM|PM)$`)
	// 24h values are matched as a prefix so database renderings such as
	// "09:00:00+00" or "09:00:00.000" still parse.
	clock24Re = regexp.MustCompile(`^(\d{1,2}):(\d{2})(?::(\d{2}))?`)
)

// TimeToMinutes converts a clock string to minutes after midnight.
// ok is false when the value is absent or malformed.
func TimeToMinutes(raw string) (minutes int, ok bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}

	if m := meridiemRe.FindStringSubmatch(s); m != nil {
		h, _ := strconv.Atoi(m[1])
		min, _ := strconv.Atoi(m[2])
		if h < 1 || h > 12 || min > 59 {
			return 0, false
		}
		pm := strings.EqualFold(m[4], "PM")
		switch {
		case pm && h != 12:
			h += 12
		case !pm && h == 12:
			h = 0
		}
		return h*60 + min, true
	}

	if m := clock24Re.FindStringSubmatch(s); m != nil {
		h, _ := strconv.Atoi(m[1])
		min, _ := strconv.Atoi(m[2])
		if h > 23 || min > 59 {
			return 0, false
		}
		return h*60 + min, true
	}
	return 0, false
}

// ParseHourOfDay returns the hour (0-23) of a clock string.
func ParseHourOfDay(raw string) (hour int, ok bool) {
	minutes, ok := TimeToMinutes(raw)
	if !ok {
		return 0, false
	}
	return minutes / 60, true
}

// FormatMinutes renders minutes after midnight as HH:MM.
func FormatMinutes(minutes int) string {
	return pad2(strconv.Itoa(minutes/60)) + ":" + pad2(strconv.Itoa(minutes%60))
}

// =============================================================================
// NUMBERS - Hour values arrive as numbers, text, or null
// =============================================================================

var numericPrefixRe = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

// ToNumber coerces a raw hours value into a decimal. Null, blank, and
// non-finite input all yield zero. Text is read up to the first character
// that cannot continue a number, so "7.5h" is 7.5.
func ToNumber(raw any) decimal.Decimal {
	switch v := raw.(type) {
	case nil:
		return decimal.Zero
	case decimal.Decimal:
		return v
	case *decimal.Decimal:
		if v == nil {
			return decimal.Zero
		}
		return *v
	case float64:
		return fromFloat(v)
	case float32:
		return fromFloat(float64(v))
	case int:
		return decimal.NewFromInt(int64(v))
	case int32:
		return decimal.NewFromInt(int64(v))
	case int64:
		return decimal.NewFromInt(v)
	case json.Number:
		return parseNumericText(string(v))
	case string:
		return parseNumericText(v)
	case *string:
		if v == nil {
			return decimal.Zero
		}
		return parseNumericText(*v)
	case []byte:
		return parseNumericText(string(v))
	default:
		return decimal.Zero
	}
}

func fromFloat(f float64) decimal.Decimal {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f)
}

func parseNumericText(s string) decimal.Decimal {
	prefix := numericPrefixRe.FindString(strings.TrimSpace(s))
	if prefix == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(prefix)
	if err != nil {
		return decimal.Zero
	}
	return d
}
