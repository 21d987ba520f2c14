package render

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"social-report/internal/report"
	"social-report/pkg/types"
)

// FormatNumber abbreviates large counts: 1.2K, 3.4M. Smaller values are
// grouped by thousands.
func FormatNumber(n int64) string {
	abs := n
	if abs < 0 {
		abs = -abs
	}
	switch {
	case n >= 1000000:
		return fmt.Sprintf("%.1fM", roundTenth(float64(n)/1000000))
	case n >= 1000:
		return fmt.Sprintf("%.1fK", roundTenth(float64(n)/1000))
	case abs >= 1000:
		return "-" + GroupThousands(abs)
	default:
		return strconv.FormatInt(n, 10)
	}
}

// FormatCell formats a raw sheet cell with FormatNumber.
func FormatCell(value string) string {
	return FormatNumber(report.ParseNumber(value))
}

// GroupThousands renders n with ',' separators.
func GroupThousands(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

// roundTenth rounds half away from zero to one decimal.
func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}

// ChartData is the series handed to the charting script.
type ChartData struct {
	Labels      []string `json:"labels"`
	Posts       []int    `json:"posts"`
	Impressions []int64  `json:"impressions"`
}

// NewChartData labels each day as e.g. "Mar 1".
func NewChartData(series []types.DailyAggregate) ChartData {
	cd := ChartData{
		Labels:      make([]string, 0, len(series)),
		Posts:       make([]int, 0, len(series)),
		Impressions: make([]int64, 0, len(series)),
	}
	for _, d := range series {
		label := d.Date
		if t, err := time.Parse("2006-01-02", d.Date); err == nil {
			label = t.Format("Jan 2")
		}
		cd.Labels = append(cd.Labels, label)
		cd.Posts = append(cd.Posts, d.PostCount)
		cd.Impressions = append(cd.Impressions, d.ImpressionSum)
	}
	return cd
}
