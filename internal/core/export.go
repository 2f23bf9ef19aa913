package core

import (
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/fieldverify/internal/lead"
)

// ExportCSV renders leads as CSV text in the canonical column order.
//
// The first line is the header row. Each lead follows on its own line, in
// input order, with no trailing newline. An empty input yields the header
// line alone.
func ExportCSV(leads []lead.Lead) string {
	var b strings.Builder
	b.WriteString(strings.Join(Headers(), ","))

	for i := range leads {
		b.WriteByte('\n')
		writeRow(&b, &leads[i])
	}
	return b.String()
}

func writeRow(b *strings.Builder, l *lead.Lead) {
	for i, c := range columns {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(formatCell(c.field(l, false)))
	}
}

// formatCell renders one attribute as a CSV cell. ref is the pointer
// returned by a column accessor, or nil when the backing sub-record is absent.
func formatCell(ref any) string {
	s, text := renderCell(ref)
	if text && s != NA {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}

// renderCell returns the unquoted text of an attribute and whether it is a
// string-typed value. Empty values render as NA.
func renderCell(ref any) (string, bool) {
	switch v := ref.(type) {
	case *string:
		return textOrNA(*v), true
	case *lead.Status:
		return textOrNA(string(*v)), true
	case *lead.VisitType:
		return textOrNA(string(*v)), true
	case *lead.AddressType:
		return textOrNA(string(*v)), true
	case *int:
		return strconv.Itoa(*v), false
	case **int:
		if *v == nil {
			return NA, false
		}
		return strconv.Itoa(**v), false
	case **float64:
		if *v == nil {
			return NA, false
		}
		return strconv.FormatFloat(**v, 'f', -1, 64), false
	case *bool:
		return strconv.FormatBool(*v), false
	case *time.Time:
		if v.IsZero() {
			return NA, false
		}
		return FormatDate(*v), false
	case **time.Time:
		if *v == nil || (*v).IsZero() {
			return NA, false
		}
		return FormatDate(**v), false
	default:
		return NA, false
	}
}

func textOrNA(s string) string {
	if IsNA(s) {
		return NA
	}
	return s
}
