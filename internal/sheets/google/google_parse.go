package google

import (
	"fmt"
	"slices"
	"strings"

	"contas/internal/core"
	ports "contas/internal/sheets"
)

// decodeRows converts a values matrix (as returned by Sheets API) into
// payment rows. The header and rows that do not parse are skipped; skipped
// counts only the latter.
func decodeRows(values [][]interface{}) (rows []ports.PaymentRow, skipped int) {
	for _, raw := range values {
		cols := toStrings(raw)
		if isHeader(cols) || isBlank(cols) {
			continue
		}
		r, err := ports.ParseRow(cols)
		if err != nil {
			skipped++
			continue
		}
		rows = append(rows, r)
	}
	return rows, skipped
}

// encodeRows renders the header followed by rows.
func encodeRows(rows []ports.PaymentRow) [][]interface{} {
	out := make([][]interface{}, 0, len(rows)+1)
	header := make([]interface{}, len(ports.Header))
	for i, h := range ports.Header {
		header[i] = h
	}
	out = append(out, header)
	for _, r := range rows {
		out = append(out, r.Values())
	}
	return out
}

// replaceMonthRows drops every row of month from existing, adds rows and
// orders the result by month, keeping the order within a month.
func replaceMonthRows(existing []ports.PaymentRow, month core.Month, rows []ports.PaymentRow) []ports.PaymentRow {
	out := make([]ports.PaymentRow, 0, len(existing)+len(rows))
	for _, r := range existing {
		if !r.Month.Equal(month) {
			out = append(out, r)
		}
	}
	out = append(out, rows...)
	slices.SortStableFunc(out, func(a, b ports.PaymentRow) int {
		return core.CompareMonths(a.Month, b.Month)
	})
	return out
}

func isHeader(cols []string) bool {
	return len(cols) > 0 && strings.EqualFold(strings.TrimSpace(cols[0]), ports.Header[0])
}

func isBlank(cols []string) bool {
	for _, c := range cols {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}
