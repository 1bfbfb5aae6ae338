package admin

import (
	"html/template"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"streammall/internal/backend"
)

const timeLayout = "2006-01-02 15:04"

func formatTimeIn(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return "-"
	}
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(timeLayout)
}

func formatTimePtrIn(t *time.Time, loc *time.Location) string {
	if t == nil {
		return "-"
	}
	return formatTimeIn(*t, loc)
}

// formatDecimalPlain 截断到 scale 位并去掉末尾的 0。
func formatDecimalPlain(d decimal.Decimal, scale int32) string {
	if scale < 0 {
		scale = 0
	}
	s := d.Truncate(scale).StringFixed(scale)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimRight(s, ".")
	}
	if s == "" || s == "-0" {
		return "0"
	}
	return s
}

// formatMoney 输出两位小数并带千分位：1234.5 → 1,234.50。
func formatMoney(d decimal.Decimal) string {
	f, _ := d.Round(2).Float64()
	return humanize.FormatFloat("#,###.##", f)
}

func formatPoints(n int64) string { return humanize.Comma(n) }

func formatOptionalPoints(n *int64) string {
	if n == nil {
		return "-"
	}
	return humanize.Comma(*n)
}

func statusClass(status string) string {
	switch status {
	case backend.OrderCompleted, backend.RechargeApproved:
		return "badge-success"
	case backend.OrderPending:
		return "badge-warning"
	case backend.OrderCancelled, backend.RechargeRejected:
		return "badge-danger"
	default:
		return "badge-muted"
	}
}

func (s *Server) funcMap() template.FuncMap {
	return template.FuncMap{
		"points": formatPoints,
		"ago": func(t time.Time) string {
			if t.IsZero() {
				return "never"
			}
			return humanize.Time(t)
		},
		"statusClass": statusClass,
		"title": func(v string) string {
			if v == "" {
				return v
			}
			return strings.ToUpper(v[:1]) + v[1:]
		},
	}
}
