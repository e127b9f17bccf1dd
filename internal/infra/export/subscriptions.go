// Package export renders admin reports as xlsx workbooks.
package export

import (
	"bytes"

	"github.com/xuri/excelize/v2"

	"github.com/Hitanshu08/percy-ecomm-sub000/internal/domain/subscriptions"
)

// SubscriptionsReport renders one row per subscription with its user,
// service, assigned account and remaining balance.
func SubscriptionsReport(rows []subscriptions.ReportRow) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())

	header := []interface{}{
		"username",
		"service",
		"account_ref",
		"started_at",
		"expires_at",
		"active",
		"duration_key",
		"total_days",
		"credits_balance",
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, err
	}

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := []interface{}{
			r.Username,
			r.ServiceName,
			r.AccountRef,
			r.StartedAt.Format("2006-01-02"),
			r.ExpiresAt.Format("2006-01-02"),
			r.Active,
			r.DurationKey,
			r.TotalDays,
			r.Credits,
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, err
		}
	}

	return f.WriteToBuffer()
}
