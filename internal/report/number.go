package report

import (
	"strconv"
	"strings"

	"social-report/pkg/types"
)

// ParseNumber turns a sheet metric such as "1,234,567" into an integer.
// Grouping commas are removed and the leading base-10 integer is read, so
// "12 views" yields 12. Empty or non-numeric text yields 0.
func ParseNumber(value string) int64 {
	if value == "" {
		return 0
	}
	s := strings.TrimLeft(strings.ReplaceAll(value, ",", ""), " \t\r\n")

	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0
	}

	n, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// SumImpressions adds up ParseNumber(Impressions) over records.
func SumImpressions(records []types.RawPostRecord) int64 {
	var total int64
	for _, r := range records {
		total += ParseNumber(r.Impressions)
	}
	return total
}
