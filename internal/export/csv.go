// Package export renders fleet reports for download.
//
// The CSV layout is fixed: every cell is double-quoted, columns are joined
// with bare commas, and rows with "\n". Downstream spreadsheets imported by
// the fleet admins depend on this exact shape, so the encoder is hand-rolled
// rather than driven by encoding/csv (which only quotes when required and
// emits "\r\n").
package export

import (
	"strings"
	"time"

	"github.com/devports/go-lending-backend/internal/domain"
)

var csvHeader = []string{
	"ID",
	"Model Name",
	"OS",
	"OS Version",
	"Manufacturer",
	"UUID",
	"Status",
	"Current User",
	"Borrowed At",
	"Registered At",
}

// DevicesCSV renders the device fleet as a CSV report. Missing holder and
// borrow timestamp render as "-"; timestamps use RFC 3339 UTC.
func DevicesCSV(devices []domain.Device) string {
	var b strings.Builder
	writeRow(&b, csvHeader)
	for _, d := range devices {
		b.WriteByte('\n')
		writeRow(&b, []string{
			d.DisplayID,
			d.ModelName,
			d.OSName,
			d.OSVersion,
			d.Manufacturer,
			d.UUID,
			string(d.Status),
			orDash(d.CurrentUserName),
			timeOrDash(d.BorrowedAt),
			d.RegisteredAt.UTC().Format(time.RFC3339),
		})
	}
	return b.String()
}

func writeRow(b *strings.Builder, cells []string) {
	for i, cell := range cells {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(cell, `"`, `""`))
		b.WriteByte('"')
	}
}

func orDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}

func timeOrDash(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}
