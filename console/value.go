package console

import (
	"math"
	"strconv"
	"strings"
)

// parseFloat reads the longest numeric prefix of s the way atof does:
// leading space is skipped and anything unparsable reads as 0.
func parseFloat(s string) float32 {
	s = strings.TrimLeft(s, " \t\n\v\f\r")
	if f, ok := parseSpecial(s); ok {
		return f
	}
	n := numericPrefix(s)
	if n == 0 {
		return 0
	}
	num := strings.TrimSuffix(s[:n], ".")
	f, err := strconv.ParseFloat(num, 32)
	if err != nil && !isRangeErr(err) {
		return 0
	}
	return float32(f)
}

func isRangeErr(err error) bool {
	ne, ok := err.(*strconv.NumError)
	return ok && ne.Err == strconv.ErrRange
}

func parseSpecial(s string) (float32, bool) {
	sign := float32(1)
	body := s
	if body != "" && (body[0] == '+' || body[0] == '-') {
		if body[0] == '-' {
			sign = -1
		}
		body = body[1:]
	}
	lower := strings.ToLower(body)
	switch {
	case strings.HasPrefix(lower, "inf"):
		return sign * float32(math.Inf(1)), true
	case strings.HasPrefix(lower, "nan"):
		return float32(math.NaN()), true
	}
	return 0, false
}

// numericPrefix returns the length of the decimal number at the start of s,
// 0 when there is none.
func numericPrefix(s string) int {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits := 0
	for i < len(s) && isDigit(s[i]) {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && isDigit(s[i]) {
			i++
			digits++
		}
	}
	if digits == 0 {
		return 0
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		k := j
		for k < len(s) && isDigit(s[k]) {
			k++
		}
		if k > j {
			i = k
		}
	}
	return i
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// formatFloat renders f in its shortest round-trip form, keeping a decimal
// point on whole numbers: 1 renders as "1.0".
func formatFloat(f float32) string {
	s := strconv.FormatFloat(float64(f), 'f', -1, 32)
	if math.IsInf(float64(f), 0) || math.IsNaN(float64(f)) {
		return s
	}
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// truncInt converts toward zero, saturating at the int32 range.
func truncInt(f float32) int32 {
	switch {
	case math.IsNaN(float64(f)):
		return 0
	case f >= math.MaxInt32:
		return math.MaxInt32
	case f <= math.MinInt32:
		return math.MinInt32
	}
	return int32(f)
}

func cutNUL(s string) string {
	if i := strings.IndexByte(s, 0); i >= 0 {
		return s[:i]
	}
	return s
}
