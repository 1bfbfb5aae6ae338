// Package export 将当前展示列表编码为下载用的 CSV：每个字段都加双引号，行间以 \n 分隔，末行不带换行。
package export

import (
	"bufio"
	"io"
	"strings"
	"time"
)

const NotAvailable = "N/A"

const ContentType = "text/csv; charset=utf-8"

type Column[T any] struct {
	Header string
	Value  func(T) string
}

// Encode 写出表头与每条记录；rows 为空时只输出表头一行。
func Encode[T any](w io.Writer, cols []Column[T], rows []T) error {
	bw := bufio.NewWriter(w)

	headers := make([]string, len(cols))
	for i, c := range cols {
		headers[i] = c.Header
	}
	writeRecord(bw, headers)

	fields := make([]string, len(cols))
	for _, r := range rows {
		bw.WriteByte('\n')
		for i, c := range cols {
			fields[i] = c.Value(r)
		}
		writeRecord(bw, fields)
	}
	return bw.Flush()
}

func EncodeString[T any](cols []Column[T], rows []T) string {
	var b strings.Builder
	_ = Encode(&b, cols, rows)
	return b.String()
}

func writeRecord(w *bufio.Writer, fields []string) {
	for i, f := range fields {
		if i > 0 {
			w.WriteByte(',')
		}
		w.WriteByte('"')
		w.WriteString(strings.ReplaceAll(f, `"`, `""`))
		w.WriteByte('"')
	}
}

// Filename 形如 orders-2024-03-01.csv，日期取 now 所在时区。
func Filename(prefix string, now time.Time) string {
	return prefix + "-" + now.Format("2006-01-02") + ".csv"
}

// Or 在值为空白时返回 N/A。
func Or(v string) string {
	if strings.TrimSpace(v) == "" {
		return NotAvailable
	}
	return v
}
